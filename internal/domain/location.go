package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Location is a physical NGO site that accepts donations.
type Location struct {
	LocationID   uuid.UUID `gorm:"column:location_id;type:uuid;primaryKey" json:"location_id"`
	NGOID        uuid.UUID `gorm:"column:ngo_id;type:uuid;not null;index" json:"ngo_id"`
	LocationName string    `gorm:"column:location_name;not null" json:"location_name"`
	AddressLine1 string    `gorm:"column:address_line1;not null" json:"address_line1"`
	AddressLine2 *string   `gorm:"column:address_line2" json:"address_line2"`
	City         string    `gorm:"column:city;not null" json:"city"`
	State        string    `gorm:"column:state" json:"state"`
	ZipCode      string    `gorm:"column:zip_code" json:"zip_code"`
	Country      string    `gorm:"column:country" json:"country"`
	Latitude     float64   `gorm:"column:latitude" json:"latitude"`
	Longitude    float64   `gorm:"column:longitude" json:"longitude"`
	ContactPhone *string   `gorm:"column:contact_phone" json:"contact_phone"`
	ContactEmail *string   `gorm:"column:contact_email" json:"contact_email"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`

	DefaultCapacities []LocationDefaultCapacity `gorm:"foreignKey:LocationID;references:LocationID" json:"default_capacities,omitempty"`
}

func (Location) TableName() string {
	return "ngo_locations"
}

// BeforeCreate: never insert zero UUID for primary key.
func (l *Location) BeforeCreate(tx *gorm.DB) error {
	if l.LocationID == uuid.Nil {
		l.LocationID = uuid.New()
	}
	return nil
}

// Defaults returns the standing per-meal capacities; meals without a row are 0.
func (l *Location) Defaults() map[MealType]int {
	out := make(map[MealType]int, len(AllMealTypes))
	for _, m := range AllMealTypes {
		out[m] = 0
	}
	for _, d := range l.DefaultCapacities {
		out[d.MealType] = d.Capacity
	}
	return out
}

// LocationDefaultCapacity is the standing capacity of one meal at a location.
// One row per (location, meal type); adding a meal type needs no schema change.
type LocationDefaultCapacity struct {
	LocationID uuid.UUID `gorm:"column:location_id;type:uuid;primaryKey" json:"-"`
	MealType   MealType  `gorm:"column:meal_type;type:varchar(20);primaryKey" json:"meal_type"`
	Capacity   int       `gorm:"column:capacity;not null;default:0" json:"capacity"`
	UpdatedAt  time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (LocationDefaultCapacity) TableName() string {
	return "ngo_location_default_capacities"
}
