// Package cli wires the facewatch commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"facewatch/internal/config"

	"github.com/spf13/cobra"
)

// Version is the application version.
const Version = "0.1.0"

type rootOptions struct {
	envFiles []string
	cfg      *config.Config
}

// NewRootCommand builds the command tree. Running it without a subcommand
// starts the detection loop.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "facewatch",
		Short:         "Webcam face presence detector with serial signalling and cloud capture upload",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnv(opts.envFiles...); err != nil {
				return err
			}
			opts.cfg = config.Load()
			return nil
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env", nil, "dotenv file(s) to load before reading the environment (default: .env if present)")

	run := newRunCommand(opts)
	root.AddCommand(run, newCapturesCommand(opts), newRetryCommand(opts), newPortsCommand())

	root.Flags().AddFlagSet(run.Flags())
	root.RunE = run.RunE

	return root
}

// Execute runs the CLI with a context cancelled on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
