package cmd

import (
	"context"
	"fmt"

	"github.com/habedi/sessiond/config"
	"github.com/habedi/sessiond/db"
	"github.com/habedi/sessiond/pkg/clierr"
	"github.com/rs/zerolog/log"
)

// openStore opens the session store the config selects. The returned
// function releases it.
func openStore(ctx context.Context, cfg *config.Config) (db.SessionRepository, func(), error) {
	switch cfg.Store.Driver {
	case "mongodb":
		connectCtx, cancel := context.WithTimeout(ctx, cfg.Store.Timeout)
		defer cancel()
		repo, err := db.OpenMongo(connectCtx, cfg.Store.MongoURI, cfg.Store.MongoDatabase)
		if err != nil {
			return nil, nil, clierr.New(clierr.Internal, "Unable to connect to MongoDB.", err)
		}
		return repo, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Store.Timeout)
			defer cancel()
			if err := repo.Close(closeCtx); err != nil {
				log.Error().Err(err).Msg("Failed to close the MongoDB connection.")
			}
		}, nil
	case "sqlite":
		gdb, err := db.Open(cfg.StorePath(db.DefaultPath))
		if err != nil {
			return nil, nil, clierr.New(clierr.Internal, "Unable to open the session database.", err)
		}
		return db.NewSessionRepository(gdb), func() {
			if err := db.Close(gdb); err != nil {
				log.Error().Err(err).Msg("Failed to close the database.")
			}
		}, nil
	default:
		err := fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
		return nil, nil, clierr.New(clierr.Validation, err.Error(), err)
	}
}
