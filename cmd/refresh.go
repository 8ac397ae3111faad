package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/habedi/sessiond/auth"
	"github.com/habedi/sessiond/pkg/clierr"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func refreshCmd() *cobra.Command {
	var token string
	var showTokens bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Exchange a refresh token for a new session",
		Long:  "Exchange a refresh token for a new session and save it. The token is read from --token or prompted for.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := requireProvider(cfg); err != nil {
				return err
			}

			if token == "" {
				token, err = promptForSecret("Refresh token: ")
				if err != nil {
					return clierr.New(clierr.Internal, "Failed to read the refresh token.", err)
				}
			}

			store, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			provider := newProvider(cfg)
			res, err := newCoordinator(cfg, provider, store).Refresh(cmd.Context(), token)
			if err != nil {
				return refreshError(err)
			}

			cmd.Println("Token refreshed successfully.")
			cmd.Printf("User ID: %s\n", res.UserID)
			cmd.Printf("Expires at: %s\n", res.ExpiresAt.Local().Format(time.RFC1123))
			if !res.Persisted {
				cmd.PrintErrln("Warning: the new session could not be saved.")
			}
			if showTokens {
				cmd.Printf("Access token: %s\n", res.AccessToken)
				cmd.Printf("Refresh token: %s\n", res.RefreshToken)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&token, "token", "t", "", "Refresh token to exchange (prompted for when empty)")
	cmd.Flags().BoolVar(&showTokens, "show-tokens", false, "Print the new tokens")
	return cmd
}

// refreshError maps a refresh failure to the CLI error shown to the user.
func refreshError(err error) error {
	var rejected *auth.ProviderRejectedError
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return clierr.New(clierr.Validation, "Refresh token is required.", err)
	case errors.As(err, &rejected):
		return clierr.New(clierr.Provider, "Provider rejected the refresh token: "+rejected.Message, err)
	case errors.Is(err, auth.ErrNoSessionReturned):
		return clierr.New(clierr.Provider, "Failed to refresh session.", err)
	case errors.Is(err, auth.ErrProviderUnavailable):
		return clierr.New(clierr.Provider, "The provider could not be reached. Try again later.", err)
	default:
		return clierr.New(clierr.Internal, "Unexpected error while refreshing the session.", err)
	}
}

// promptForSecret reads a line from the terminal without echoing it.
func promptForSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(secret)), nil
}
