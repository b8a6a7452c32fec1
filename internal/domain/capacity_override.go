package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CapacityOverride is a manual capacity for one (location, date, meal type) slot.
// The composite unique index makes a second row for the same slot impossible.
type CapacityOverride struct {
	OverrideID uuid.UUID `gorm:"column:override_id;type:uuid;primaryKey" json:"id"`
	LocationID uuid.UUID `gorm:"column:location_id;type:uuid;not null;uniqueIndex:ux_override_slot,priority:1" json:"location_id"`
	Date       Date      `gorm:"column:date;type:date;not null;uniqueIndex:ux_override_slot,priority:2" json:"date"`
	MealType   MealType  `gorm:"column:meal_type;type:varchar(20);not null;uniqueIndex:ux_override_slot,priority:3" json:"meal_type"`
	Capacity   int       `gorm:"column:capacity;not null;check:capacity >= 0" json:"capacity"`
	Notes      *string   `gorm:"column:notes;type:text" json:"notes"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (CapacityOverride) TableName() string {
	return "ngo_location_capacity"
}

func (o *CapacityOverride) BeforeCreate(tx *gorm.DB) error {
	if o.OverrideID == uuid.Nil {
		o.OverrideID = uuid.New()
	}
	return nil
}
