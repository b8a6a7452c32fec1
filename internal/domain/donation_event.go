package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Donation event types, one per lifecycle transition.
const (
	EventCreated   = "CREATED"
	EventConfirmed = "CONFIRMED"
	EventRejected  = "REJECTED"
	EventCompleted = "COMPLETED"
	EventCancelled = "CANCELLED"
)

// Capacity effects recorded on each event.
const (
	EffectReserve = "reserve"
	EffectRelease = "release"
	EffectNone    = "none"
)

// DonationEvent is the append-only audit trail of donation transitions.
type DonationEvent struct {
	EventID   uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	RequestID uuid.UUID      `gorm:"column:request_id;type:uuid;not null;index" json:"request_id"`
	EventType string         `gorm:"column:event_type;type:varchar(30);not null" json:"event_type"`
	ActorID   *uuid.UUID     `gorm:"column:actor_id;type:uuid" json:"actor_id"`
	EventData datatypes.JSON `gorm:"column:event_data;type:jsonb;not null" json:"event_data"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (DonationEvent) TableName() string {
	return "donation_events"
}

func (e *DonationEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
