package main

import (
	"os"
	"strings"

	"plates-backend/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "plates-backend",
		Usage: "Meal capacity and donation request API",
		Commands: []*cli.Command{
			serveCommand,
			migrateCommand,
		},
		DefaultCommand: serveCommand.Name,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("application failed")
	}
}

// setupLogging points the global logger at stdout: console output in development, JSON otherwise.
func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
		return
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "plates-backend").Logger()
}
