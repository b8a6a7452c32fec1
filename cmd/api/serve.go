package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	emailsvc "plates-backend/internal/application/emails"
	"plates-backend/internal/config"
	"plates-backend/internal/infrastructure/database"
	"plates-backend/internal/interfaces/router"
	"plates-backend/internal/middleware"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm/logger"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "migrate",
			Usage: "Run schema migrations before serving",
		},
	},
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	if cfg.DatabaseURL == "" {
		return errors.New("database url is not configured (DATABASE_URL_DEV / DATABASE_URL_PROD)")
	}
	if cfg.RedisURL == "" {
		return errors.New("REDIS_URL is not configured")
	}

	gormLevel := logger.Warn
	if cfg.IsProduction() {
		gormLevel = logger.Error
	}
	db, err := database.Open(cfg.DatabaseURL, gormLevel)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}
	log.Info().Msg("Postgres connected")

	if cCtx.Bool("migrate") {
		if err := database.AutoMigrate(db); err != nil {
			return err
		}
		log.Info().Msg("schema migrated")
	}

	rdb, err := middleware.NewRedis(cfg.RedisURL)
	if err != nil {
		return err
	}
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}
	log.Info().Msg("Redis connected")

	app := router.CreateApp(router.Deps{
		Config: cfg,
		DB:     db,
		Rdb:    rdb,
		Emails: &emailsvc.BrevoClient{APIKey: cfg.SendinblueAPIKey, MailFrom: cfg.MailFrom},
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server listening")
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}
