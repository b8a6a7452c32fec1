package database

import (
	"bytes"
	"testing"

	"plates-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestAutoMigrate_CreatesTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, AutoMigrate(db))
	for _, table := range []string{
		"ngo_locations", "ngo_location_default_capacities", "ngo_location_capacity",
		"donation_requests", "donation_events", "ratings", "notifications",
	} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex("ngo_location_capacity", "ux_override_slot"))
}

func TestNewLogger_SkipsRecordNotFound(t *testing.T) {
	var buf bytes.Buffer
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: NewLogger(zerolog.New(&buf), logger.Warn),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, AutoMigrate(db))
	buf.Reset()

	var o domain.CapacityOverride
	err = db.Where("location_id = ?", uuid.New()).First(&o).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	err = db.Table("no_such_table").Where("id = 1").Find(&[]map[string]interface{}{}).Error
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "no_such_table")
}
