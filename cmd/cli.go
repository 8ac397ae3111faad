package cmd

import (
	"context"
	"os"

	"github.com/habedi/sessiond/config"
	"github.com/habedi/sessiond/pkg/clierr"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the CLI and exits with a status derived from the error.
func Execute(ctx context.Context) {
	rootCmd := createRootCmd()
	rootCmd.PersistentFlags().BoolP("help", "h", false, "Show help for a command")

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("Command execution failed.")
		os.Exit(clierr.ExitCode(err))
	}
}

func createRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sessiond",
		Short:         "Session lifecycle manager for OAuth-federated sign-in",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config file (default $HOME/.sessiond/config.yaml)")

	rootCmd.AddCommand(
		serveCmd(),
		loginCmd(),
		refreshCmd(),
		sessionsCmd(),
		sweepCmd(),
		versionCmd(),
	)

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	return rootCmd
}

// loadConfig reads the config named by the --config flag and validates it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, clierr.New(clierr.Validation, "Unable to load configuration: "+err.Error(), err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, clierr.New(clierr.Validation, "Invalid configuration: "+err.Error(), err)
	}
	return cfg, nil
}

func requireProvider(cfg *config.Config) error {
	if err := cfg.RequireProvider(); err != nil {
		return clierr.New(clierr.Validation, "Invalid provider configuration: "+err.Error(), err)
	}
	return nil
}
