package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DonationStatus is the lifecycle state of a donation request.
type DonationStatus string

const (
	StatusPending   DonationStatus = "pending"
	StatusConfirmed DonationStatus = "confirmed"
	StatusRejected  DonationStatus = "rejected"
	StatusCompleted DonationStatus = "completed"
	StatusCancelled DonationStatus = "cancelled"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []DonationStatus{StatusPending, StatusConfirmed, StatusRejected, StatusCompleted, StatusCancelled}

// ParseDonationStatus validates a status filter coming from a caller.
func ParseDonationStatus(s string) (DonationStatus, error) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", InvalidArgument("Invalid status. Must be one of: pending, confirmed, rejected, completed, cancelled")
}

// Terminal reports whether no further transition is possible.
func (s DonationStatus) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted || s == StatusCancelled
}

// HoldsCapacity reports whether a request in this status occupies plates in its slot.
func (s DonationStatus) HoldsCapacity() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusCompleted
}

// DonationRequest ties a donor to a slot with a fixed plate quantity.
// Quantity never changes after creation; only status and transition timestamps do.
type DonationRequest struct {
	RequestID           uuid.UUID      `gorm:"column:request_id;type:uuid;primaryKey" json:"id"`
	DonorID             uuid.UUID      `gorm:"column:donor_id;type:uuid;not null;index" json:"donor_id"`
	DonorEmail          *string        `gorm:"column:donor_email" json:"-"`
	LocationID          uuid.UUID      `gorm:"column:ngo_location_id;type:uuid;not null;index:ix_donation_slot,priority:1" json:"ngo_location_id"`
	DonationDate        Date           `gorm:"column:donation_date;type:date;not null;index:ix_donation_slot,priority:2" json:"donation_date"`
	MealType            MealType       `gorm:"column:meal_type;type:varchar(20);not null;index:ix_donation_slot,priority:3" json:"meal_type"`
	FoodType            string         `gorm:"column:food_type;not null" json:"food_type"`
	Quantity            int            `gorm:"column:quantity_plates;not null;check:quantity_plates > 0" json:"quantity_plates"`
	PickupTimeStart     string         `gorm:"column:pickup_time_start;type:varchar(10)" json:"pickup_time_start"`
	PickupTimeEnd       string         `gorm:"column:pickup_time_end;type:varchar(10)" json:"pickup_time_end"`
	Description         *string        `gorm:"column:description;type:text" json:"description"`
	SpecialInstructions *string        `gorm:"column:special_instructions;type:text" json:"special_instructions"`
	Status              DonationStatus `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`
	ConfirmedAt         *time.Time     `gorm:"column:confirmed_at" json:"confirmed_at"`
	RejectedAt          *time.Time     `gorm:"column:rejected_at" json:"rejected_at"`
	RejectionReason     *string        `gorm:"column:rejection_reason;type:text" json:"rejection_reason"`
	CompletedAt         *time.Time     `gorm:"column:completed_at" json:"completed_at"`
	CancelledAt         *time.Time     `gorm:"column:cancelled_at" json:"cancelled_at"`
	CreatedAt           time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"column:updated_at" json:"updated_at"`

	Location *Location `gorm:"foreignKey:LocationID;references:LocationID" json:"location,omitempty"`
}

func (DonationRequest) TableName() string {
	return "donation_requests"
}

func (d *DonationRequest) BeforeCreate(tx *gorm.DB) error {
	if d.RequestID == uuid.Nil {
		d.RequestID = uuid.New()
	}
	return nil
}
