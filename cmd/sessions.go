package cmd

import (
	"io"
	"time"

	"github.com/habedi/sessiond/auth"
	"github.com/habedi/sessiond/pkg/clierr"
	"github.com/habedi/sessiond/pkg/validation"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func sessionsCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List the stored sessions of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateNonEmptyString("user", userID); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			records, err := auth.NewQuery(store, nil).ListSessions(cmd.Context(), userID)
			if err != nil {
				log.Error().Err(err).Str("user_id", userID).Msg("Failed to list sessions")
				return clierr.New(clierr.Internal, "Unable to list sessions. Please check the logs for details.", err)
			}
			if len(records) == 0 {
				cmd.Println("No sessions found for this user. Use `sessiond login` to sign in.")
				return nil
			}

			renderSessions(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "ID of the user whose sessions to list")
	if err := cmd.MarkFlagRequired("user"); err != nil {
		log.Error().Err(err).Msg("Failed to mark 'user' flag as required")
	}
	return cmd
}

func renderSessions(w io.Writer, records []auth.DisplayRecord) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"User ID", "Email", "Status", "Expires At", "Updated At"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetRowLine(false)

	for _, r := range records {
		table.Append([]string{
			r.UserID,
			r.Email,
			string(r.Status),
			r.ExpiresAt.Local().Format(time.RFC3339),
			r.UpdatedAt.Local().Format(time.RFC3339),
		})
	}
	table.Render()
}
