package cmd

import (
	"io"
	"time"

	"github.com/habedi/sessiond/auth"
	"github.com/habedi/sessiond/pkg/clierr"
	"github.com/habedi/sessiond/pkg/validation"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	var window time.Duration
	var workers int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Refresh every stored session that is expired or about to expire",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := requireProvider(cfg); err != nil {
				return err
			}
			if cmd.Flags().Changed("window") {
				cfg.Refresh.Window = window
			}
			if cmd.Flags().Changed("workers") {
				if err := validation.ValidateWorkerCount(workers); err != nil {
					return clierr.New(clierr.Validation, err.Error(), err)
				}
				cfg.Refresh.SweepWorkers = workers
			}

			store, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			provider := newProvider(cfg)
			sweeper := auth.NewSweeper(store, newCoordinator(cfg, provider, store), cfg.Refresh.Window, cfg.Refresh.SweepWorkers)
			results, err := sweeper.Sweep(cmd.Context())
			if err != nil {
				return clierr.New(clierr.Internal, "Unable to list expiring sessions.", err)
			}
			if len(results) == 0 {
				cmd.Println("No sessions need refreshing.")
				return nil
			}

			failed := renderSweep(cmd.OutOrStdout(), results)
			cmd.Printf("Refreshed %d of %d sessions.\n", len(results)-failed, len(results))
			if failed > 0 {
				return clierr.New(clierr.Provider, "Some sessions could not be refreshed.", nil)
			}
			return nil
		},
	}

	cmd.Flags().DurationVarP(&window, "window", "w", 5*time.Minute, "Refresh sessions expiring within this window")
	cmd.Flags().IntVarP(&workers, "workers", "n", 4, "Number of concurrent refreshes [1-20]")
	return cmd
}

func renderSweep(w io.Writer, results []auth.SweepResult) (failed int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"User ID", "Result", "Expires At"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)

	for _, r := range results {
		outcome := "refreshed"
		if r.Err != nil {
			failed++
			outcome = "failed: " + r.Err.Error()
		}
		table.Append([]string{r.UserID, outcome, r.ExpiresAt.Local().Format(time.RFC3339)})
	}
	table.Render()
	return failed
}
