package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const NotifyRatingReceived = "rating_received"

// Rating is a donor's 1-5 score for a completed donation. One per request.
type Rating struct {
	RatingID  uuid.UUID `gorm:"column:rating_id;type:uuid;primaryKey" json:"id"`
	RequestID uuid.UUID `gorm:"column:request_id;type:uuid;not null;uniqueIndex" json:"donation_request_id"`
	DonorID   uuid.UUID `gorm:"column:donor_id;type:uuid;not null;index" json:"donor_id"`
	NGOID     uuid.UUID `gorm:"column:ngo_id;type:uuid;not null;index" json:"ngo_id"`
	Rating    int       `gorm:"column:rating;not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Feedback  *string   `gorm:"column:feedback;type:text" json:"feedback"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Rating) TableName() string {
	return "ratings"
}

func (r *Rating) BeforeCreate(tx *gorm.DB) error {
	if r.RatingID == uuid.Nil {
		r.RatingID = uuid.New()
	}
	return nil
}
