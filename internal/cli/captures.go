package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"facewatch/internal/app"
	"facewatch/internal/dto"
	"facewatch/internal/model"

	"github.com/spf13/cobra"
)

func newCapturesCommand(opts *rootOptions) *cobra.Command {
	var (
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "captures",
		Short: "List captures recorded in the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" && !validStatus(model.CaptureStatus(status)) {
				return fmt.Errorf("unknown status %q", status)
			}

			ledger, err := app.OpenLedger(opts.cfg)
			if err != nil {
				return err
			}
			defer ledger.Close()
			if ledger.Captures == nil {
				return errors.New("no ledger configured (DB_PATH is empty)")
			}

			rows, err := ledger.Captures.GetAll(&dto.CaptureFilters{Status: status, Limit: limit})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No captures found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tFILE\tSTATUS\tFACES\tATTEMPTS\tCREATED\tDETAIL")
			fmt.Fprintln(w, "--\t----\t------\t-----\t--------\t-------\t------")
			for _, c := range rows {
				detail := c.RemoteID
				if c.LastError != "" {
					detail = c.LastError
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\t%s\n",
					c.ID, c.Filename, c.Status, c.Faces, c.Attempts, c.CreatedAt.Local().Format("2006-01-02 15:04:05"), detail)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only show captures with this status (pending, uploading, uploaded, failed, discarded)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of rows, newest first")
	return cmd
}

func validStatus(s model.CaptureStatus) bool {
	switch s {
	case model.CaptureStatusPending, model.CaptureStatusUploading, model.CaptureStatusUploaded,
		model.CaptureStatusFailed, model.CaptureStatusDiscarded:
		return true
	}
	return false
}
