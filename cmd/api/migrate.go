package main

import (
	"errors"

	"plates-backend/internal/config"
	"plates-backend/internal/infrastructure/database"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm/logger"
)

var migrateCommand = &cli.Command{
	Name:   "migrate",
	Usage:  "Create or update the database schema",
	Action: migrate,
}

func migrate(cCtx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)
	if cfg.DatabaseURL == "" {
		return errors.New("database url is not configured")
	}

	db, err := database.Open(cfg.DatabaseURL, logger.Info)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	log.Info().Int("tables", len(database.Models())).Msg("schema migrated")
	return nil
}
