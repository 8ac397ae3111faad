package db

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultPath is the default location of the SQLite session database.
var DefaultPath = filepath.Join(os.Getenv("HOME"), ".sessiond/sessions.db")

// Open creates the database directory if needed, opens the SQLite database at path,
// migrates the session table and configures the GORM logger.
func Open(path string) (*gorm.DB, error) {
	if path == "" {
		path = DefaultPath
	}

	if err := createDBDirectory(path); err != nil {
		return nil, err
	}

	gdb, err := openDatabase(path)
	if err != nil {
		return nil, err
	}

	if err := migrateTables(gdb); err != nil {
		return nil, err
	}

	configureLogger(gdb)

	log.Info().Str("path", path).Msg("Database initialized successfully")
	return gdb, nil
}

// createDBDirectory creates the directory for the database file if it does not exist.
func createDBDirectory(path string) error {
	if path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error().Err(err).Msg("Failed to create database directory")
			return err
		}
	}
	return nil
}

func openDatabase(path string) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize database")
		return nil, err
	}
	return gdb, nil
}

func migrateTables(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&TokenRecord{}); err != nil {
		log.Error().Err(err).Msg("Failed to auto-migrate database")
		return err
	}
	return nil
}

// configureLogger silences GORM unless zerolog is enabled.
func configureLogger(gdb *gorm.DB) {
	if zerolog.GlobalLevel() == zerolog.Disabled {
		gdb.Logger = gdb.Logger.LogMode(logger.Silent)
	} else {
		gdb.Logger = gdb.Logger.LogMode(logger.Warn)
	}
}

// Close closes the underlying database connection.
func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		log.Error().Err(err).Msg("Failed to get raw database connection")
		return err
	}
	return sqlDB.Close()
}
