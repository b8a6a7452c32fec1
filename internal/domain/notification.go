package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification types written by the donation flow.
const (
	NotifyDonationCreated   = "donation_created"
	NotifyDonationConfirmed = "donation_confirmed"
	NotifyDonationRejected  = "donation_rejected"
	NotifyDonationCompleted = "donation_completed"
	NotifyDonationCancelled = "donation_cancelled"
)

// Notification is an in-app message for one user.
type Notification struct {
	NotificationID   uuid.UUID  `gorm:"column:notification_id;type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Title            string     `gorm:"column:title;not null" json:"title"`
	Message          string     `gorm:"column:message;type:text;not null" json:"message"`
	NotificationType string     `gorm:"column:notification_type;type:varchar(50);not null" json:"notification_type"`
	RelatedEntityID  *uuid.UUID `gorm:"column:related_entity_id;type:uuid" json:"related_entity_id"`
	IsRead           bool       `gorm:"column:is_read;not null;default:false;index" json:"is_read"`
	ReadAt           *time.Time `gorm:"column:read_at" json:"read_at"`
	CreatedAt        time.Time  `gorm:"column:created_at" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.NotificationID == uuid.Nil {
		n.NotificationID = uuid.New()
	}
	return nil
}
