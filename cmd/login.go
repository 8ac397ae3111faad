package cmd

import (
	"time"

	"github.com/habedi/sessiond/auth"
	"github.com/habedi/sessiond/client"
	"github.com/habedi/sessiond/pkg/clierr"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// loginCmd signs in through the provider in a browser and saves the session.
func loginCmd() *cobra.Command {
	var headless bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with the identity provider",
		Long:  "Open the provider's sign-in page in a browser, wait for the redirect and save the resulting session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := requireProvider(cfg); err != nil {
				return err
			}

			store, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			provider := newProvider(cfg)
			bridge := auth.NewBridge(store, auth.WithStoreTimeout(cfg.Store.Timeout))
			detach := bridge.Attach(provider)
			defer detach()

			pkce := client.NewPKCE()
			authorizeURL := provider.AuthorizeURL(client.AuthorizeOptions{
				Provider:      cfg.Provider.OAuthProvider,
				RedirectTo:    cfg.Provider.RedirectURL,
				Scopes:        cfg.Provider.Scopes,
				CodeChallenge: pkce.Challenge,
			})

			cmd.Println("Complete the sign-in in the browser window.")
			code, err := client.BrowserLogin(cmd.Context(), authorizeURL, cfg.Provider.RedirectURL, headless, timeout)
			if err != nil {
				log.Error().Err(err).Msg("Browser sign-in failed")
				return clierr.New(clierr.Provider, "Sign-in did not complete: "+err.Error(), err)
			}

			sess, err := provider.ExchangeCode(cmd.Context(), code, pkce.Verifier)
			if err != nil {
				return clierr.New(clierr.Provider, "Failed to exchange the authorization code.", err)
			}

			state := bridge.State(sess.User.ID)
			cmd.Println("Login was successful.")
			cmd.Printf("User ID: %s\n", state.UserID)
			if state.Email != "" {
				cmd.Printf("Email: %s\n", state.Email)
			}
			cmd.Printf("Expires at: %s\n", state.ExpiresAt.Local().Format(time.RFC1123))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&headless, "headless", "n", false, "Run the browser without a window? [true, false]")
	cmd.Flags().DurationVarP(&timeout, "timeout", "T", 5*time.Minute, "How long to wait for the sign-in to finish")
	return cmd
}
