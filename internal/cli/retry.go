package cli

import (
	"fmt"
	"os"

	"facewatch/internal/app"
	"facewatch/internal/logger"
	"facewatch/internal/service/capture"
	"facewatch/internal/service/upload"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newRetryCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Upload captures left in the scratch directory by earlier runs",
		Long: "Upload captures left in the scratch directory by earlier runs.\n\n" +
			"Refuses to start while a capturing run holds the scratch directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			log := logger.NewWriter(cmd.ErrOrStderr())

			lock, err := capture.LockScratch(cfg.ScratchDirectory)
			if err != nil {
				return err
			}
			defer lock.Release()

			ledger, err := app.OpenLedger(cfg)
			if err != nil {
				return err
			}
			defer ledger.Close()

			store := capture.NewStore(cfg, ledger.Captures, log)
			pending, err := store.Adopt()
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to upload.")
				return nil
			}

			uploader, err := app.NewUploader(cmd.Context(), cfg, os.Stdin, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			pipeline := upload.NewPipeline(uploader, ledger.Captures, log, upload.Options{
				QueueSize:  len(pending),
				Timeout:    cfg.UploadTimeout,
				KeepFailed: true,
			})

			results := make([]<-chan upload.Result, 0, len(pending))
			for _, c := range pending {
				ch, err := pipeline.Enqueue(c)
				if err != nil {
					pipeline.Close()
					return err
				}
				results = append(results, ch)
			}

			bar := progressbar.NewOptions(len(pending),
				progressbar.OptionSetDescription("📤 Uploading"),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionShowCount(),
			)

			var failed int
			for _, ch := range results {
				select {
				case res := <-ch:
					if res.Err != nil {
						failed++
					}
					bar.Add(1)
				case <-cmd.Context().Done():
					fmt.Fprintln(cmd.ErrOrStderr(), "\nInterrupted - waiting for queued uploads to finish")
					pipeline.Close()
					return cmd.Context().Err()
				}
			}
			pipeline.Close()
			bar.Finish()

			fmt.Fprintf(cmd.OutOrStdout(), "\nUploaded %d of %d captures.\n", len(pending)-failed, len(pending))
			if failed > 0 {
				return fmt.Errorf("%d uploads failed; files kept in %s", failed, store.Dir())
			}
			return nil
		},
	}
}
