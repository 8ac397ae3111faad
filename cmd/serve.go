package cmd

import (
	"os"
	"time"

	"github.com/habedi/sessiond/auth"
	"github.com/habedi/sessiond/client"
	"github.com/habedi/sessiond/config"
	"github.com/habedi/sessiond/pkg/clierr"
	"github.com/habedi/sessiond/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := requireProvider(cfg); err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			configureServerLogging(cfg)

			ctx := cmd.Context()
			store, closeStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			policy, err := auth.ParseSignOutPolicy(cfg.SignOutPolicy)
			if err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}

			provider := newProvider(cfg)
			bridge := auth.NewBridge(store, auth.WithSignOutPolicy(policy), auth.WithStoreTimeout(cfg.Store.Timeout))
			detach := bridge.Attach(provider)
			defer detach()

			deps := server.Deps{
				Refresher:     newCoordinator(cfg, provider, store),
				Sessions:      auth.NewQuery(store, nil),
				States:        bridge,
				Provider:      provider,
				OAuthProvider: cfg.Provider.OAuthProvider,
				Scopes:        cfg.Provider.Scopes,
				RedirectURL:   cfg.Provider.RedirectURL,
				SecureCookies: cfg.Env != "local",
			}
			if cfg.Provider.JWTSecret != "" {
				deps.Bearer = auth.NewTokenVerifier(cfg.Provider.JWTSecret)
			} else {
				log.Warn().Msg("provider.jwt_secret is not set; /sessions, /me and /auth/logout are disabled")
			}
			if cfg.HookSecret != "" {
				deps.Hooks = auth.NewTokenVerifier(cfg.HookSecret)
			}

			srv := server.NewHTTPServer(server.NewRouter(deps), cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout)
			if err := srv.Run(ctx, cfg.HTTP.Addr); err != nil {
				return clierr.New(clierr.Internal, "HTTP server failed: "+err.Error(), err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (overrides http.addr)")
	return cmd
}

// configureServerLogging turns logging on for the long-running server unless
// DEBUG_SESSIOND already forced debug output.
func configureServerLogging(cfg *config.Config) {
	if os.Getenv("DEBUG_SESSIOND") == "" {
		level, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil || level == zerolog.NoLevel {
			level = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(level)
	}
	if cfg.Env == "local" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func newProvider(cfg *config.Config) *client.Provider {
	p := client.NewProvider(cfg.Provider.URL, cfg.Provider.APIKey, cfg.Provider.Timeout)
	p.Limiter = client.NewRateLimiter(cfg.Provider.RateLimit)
	return p
}

func newCoordinator(cfg *config.Config, provider *client.Provider, store auth.RecordWriter) *auth.Coordinator {
	opts := []auth.CoordinatorOption{
		auth.WithWriteTimeout(cfg.Store.Timeout),
		auth.WithCallTimeout(cfg.Provider.Timeout),
	}
	if cfg.Refresh.SingleFlight {
		opts = append(opts, auth.WithSingleFlight())
	}
	return auth.NewCoordinator(provider, store, opts...)
}
