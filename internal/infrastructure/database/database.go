package database

import (
	"time"

	"plates-backend/internal/domain"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens a GORM DB from DSN (Postgres or pooler URL).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") when using connection poolers (e.g. PgBouncer).
func Open(dsn string, logLevel logger.LogLevel) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		TranslateError: true,
		Logger:         NewLogger(log.Logger.With().Str("component", "gorm").Logger(), logLevel),
	})
}

// zerologWriter routes gorm's formatted lines into zerolog.
type zerologWriter struct {
	logger zerolog.Logger
}

func (w zerologWriter) Printf(format string, args ...interface{}) {
	w.logger.Log().Msgf(format, args...)
}

// NewLogger builds the gorm logger. Optional lookups miss all the time, so record-not-found
// is never logged as an error.
func NewLogger(zl zerolog.Logger, level logger.LogLevel) logger.Interface {
	return logger.New(zerologWriter{logger: zl}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Models lists every table owned by this service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&domain.Location{},
		&domain.LocationDefaultCapacity{},
		&domain.CapacityOverride{},
		&domain.DonationRequest{},
		&domain.DonationEvent{},
		&domain.Rating{},
		&domain.Notification{},
	}
}

// AutoMigrate creates or updates the schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
