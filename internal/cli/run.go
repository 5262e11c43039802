package cli

import (
	"facewatch/internal/app"
	"facewatch/internal/logger"

	"github.com/spf13/cobra"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	var (
		headless bool
		capture  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch the camera and signal presence changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("headless") {
				cfg.ShowPreview = !headless
			}
			if cmd.Flags().Changed("capture") {
				cfg.CaptureEnabled = capture
			}

			log, err := logger.New(cfg.LogDirectory)
			if err != nil {
				return err
			}
			defer log.Close()

			application, err := app.NewApp(cmd.Context(), cfg, log)
			if err != nil {
				log.Error("Startup failed: %v", err)
				return err
			}
			return application.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&headless, "headless", false, "disable the preview window (overrides SHOW_PREVIEW)")
	cmd.Flags().BoolVar(&capture, "capture", false, "snapshot and upload detected faces (overrides CAPTURE_ENABLED)")
	return cmd
}
