package donations

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"plates-backend/internal/application/capacity"
	"plates-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Change describes a committed donation transition for downstream fan-out.
type Change struct {
	EventType string
	Request   domain.DonationRequest
	Location  domain.Location
	ActorID   uuid.UUID
}

// Notifier is told about every committed transition. Its failures never undo the transition.
type Notifier interface {
	DonationChanged(ctx context.Context, change Change) error
}

type Service struct {
	DB       *gorm.DB
	Notifier Notifier
}

type CreateInput struct {
	DonorID             uuid.UUID
	DonorEmail          *string
	LocationID          uuid.UUID
	DonationDate        domain.Date
	MealType            domain.MealType
	FoodType            string
	Quantity            int
	PickupTimeStart     string
	PickupTimeEnd       string
	Description         *string
	SpecialInstructions *string
}

func (in CreateInput) validate() error {
	if in.Quantity <= 0 {
		return domain.InvalidArgument("quantity_plates must be greater than 0")
	}
	if !in.MealType.Valid() {
		return domain.InvalidArgument("Invalid meal_type: %q", in.MealType)
	}
	if in.DonationDate.IsZero() {
		return domain.InvalidArgument("donation_date is required")
	}
	if in.DonorID == uuid.Nil {
		return domain.InvalidArgument("donor_id is required")
	}
	if strings.TrimSpace(in.FoodType) == "" {
		return domain.InvalidArgument("food_type is required")
	}
	return nil
}

// Create reserves quantity plates on the slot and records a pending request. The availability
// check and the insert happen under the location lock, so two concurrent creates can never
// both pass against the same remaining plates.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.DonationRequest, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var (
		req *domain.DonationRequest
		loc *domain.Location
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := capacity.LockLocation(tx, in.LocationID)
		if err != nil {
			return err
		}
		if !l.IsActive {
			return domain.NotFound("NGO location not found or inactive")
		}
		loc = l

		avail, err := capacity.AvailabilityTx(tx, in.LocationID, in.DonationDate, in.MealType)
		if err != nil {
			return err
		}
		if avail.Available < in.Quantity {
			return domain.InsufficientCapacity(avail.Available)
		}

		req = &domain.DonationRequest{
			DonorID:             in.DonorID,
			DonorEmail:          in.DonorEmail,
			LocationID:          in.LocationID,
			DonationDate:        in.DonationDate,
			MealType:            in.MealType,
			FoodType:            strings.TrimSpace(in.FoodType),
			Quantity:            in.Quantity,
			PickupTimeStart:     in.PickupTimeStart,
			PickupTimeEnd:       in.PickupTimeEnd,
			Description:         in.Description,
			SpecialInstructions: in.SpecialInstructions,
			Status:              domain.StatusPending,
		}
		if err := tx.Create(req).Error; err != nil {
			return err
		}
		return recordEvent(tx, req, domain.EventCreated, in.DonorID, "", domain.StatusPending, domain.EffectReserve, nil)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, Change{EventType: domain.EventCreated, Request: *req, Location: *loc, ActorID: in.DonorID})
	return req, nil
}

// transition is one edge of the request state machine.
type transition struct {
	action string
	from   []domain.DonationStatus
	to     domain.DonationStatus
	event  string
	// stamp returns the timestamp columns to set alongside status.
	stamp  func(now time.Time) map[string]interface{}
	reason *string
}

func (t transition) allowed(st domain.DonationStatus) bool {
	for _, f := range t.from {
		if f == st {
			return true
		}
	}
	return false
}

// effect is what the transition does to the slot's held plates.
func (t transition) effect(from domain.DonationStatus) string {
	switch {
	case from.HoldsCapacity() && !t.to.HoldsCapacity():
		return domain.EffectRelease
	case !from.HoldsCapacity() && t.to.HoldsCapacity():
		return domain.EffectReserve
	default:
		return domain.EffectNone
	}
}

// Confirm accepts a pending request. The plates move from reserved to committed.
func (s *Service) Confirm(ctx context.Context, requestID, actorID uuid.UUID) (*domain.DonationRequest, error) {
	return s.apply(ctx, requestID, actorID, transition{
		action: "confirm",
		from:   []domain.DonationStatus{domain.StatusPending},
		to:     domain.StatusConfirmed,
		event:  domain.EventConfirmed,
		stamp:  func(now time.Time) map[string]interface{} { return map[string]interface{}{"confirmed_at": now} },
	})
}

// Reject declines a pending request and releases its plates.
func (s *Service) Reject(ctx context.Context, requestID, actorID uuid.UUID, reason string) (*domain.DonationRequest, error) {
	var r *string
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		r = &trimmed
	}
	return s.apply(ctx, requestID, actorID, transition{
		action: "reject",
		from:   []domain.DonationStatus{domain.StatusPending},
		to:     domain.StatusRejected,
		event:  domain.EventRejected,
		reason: r,
		stamp: func(now time.Time) map[string]interface{} {
			return map[string]interface{}{"rejected_at": now, "rejection_reason": r}
		},
	})
}

// Complete marks a confirmed donation as delivered. Its plates stay committed.
func (s *Service) Complete(ctx context.Context, requestID, actorID uuid.UUID) (*domain.DonationRequest, error) {
	return s.apply(ctx, requestID, actorID, transition{
		action: "complete",
		from:   []domain.DonationStatus{domain.StatusConfirmed},
		to:     domain.StatusCompleted,
		event:  domain.EventCompleted,
		stamp:  func(now time.Time) map[string]interface{} { return map[string]interface{}{"completed_at": now} },
	})
}

// Cancel withdraws a pending or confirmed request and releases its plates.
func (s *Service) Cancel(ctx context.Context, requestID, actorID uuid.UUID) (*domain.DonationRequest, error) {
	return s.apply(ctx, requestID, actorID, transition{
		action: "cancel",
		from:   []domain.DonationStatus{domain.StatusPending, domain.StatusConfirmed},
		to:     domain.StatusCancelled,
		event:  domain.EventCancelled,
		stamp:  func(now time.Time) map[string]interface{} { return map[string]interface{}{"cancelled_at": now} },
	})
}

func (s *Service) apply(ctx context.Context, requestID, actorID uuid.UUID, t transition) (*domain.DonationRequest, error) {
	var (
		req domain.DonationRequest
		loc *domain.Location
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findRequest(tx, requestID, &req); err != nil {
			return err
		}
		l, err := capacity.LockLocation(tx, req.LocationID)
		if err != nil {
			return err
		}
		loc = l
		// Re-read under the lock; a concurrent transition may have committed while we waited.
		if err := findRequest(tx, requestID, &req); err != nil {
			return err
		}

		from := req.Status
		if !t.allowed(from) {
			return domain.InvalidState(t.action, from, t.from...)
		}

		now := time.Now().UTC()
		updates := t.stamp(now)
		updates["status"] = t.to
		res := tx.Model(&domain.DonationRequest{}).
			Where("request_id = ? AND status = ?", requestID, from).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.InvalidState(t.action, from, t.from...)
		}

		if err := recordEvent(tx, &req, t.event, actorID, from, t.to, t.effect(from), t.reason); err != nil {
			return err
		}
		return findRequest(tx, requestID, &req)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, Change{EventType: t.event, Request: req, Location: *loc, ActorID: actorID})
	return &req, nil
}

func findRequest(tx *gorm.DB, requestID uuid.UUID, out *domain.DonationRequest) error {
	if err := tx.Where("request_id = ?", requestID).First(out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFound("Donation request not found")
		}
		return err
	}
	return nil
}

func recordEvent(tx *gorm.DB, req *domain.DonationRequest, eventType string, actorID uuid.UUID, from, to domain.DonationStatus, effect string, reason *string) error {
	payload := map[string]interface{}{
		"to_status":       to,
		"quantity_plates": req.Quantity,
		"meal_type":       req.MealType,
		"donation_date":   req.DonationDate.String(),
		"capacity_effect": effect,
	}
	if from != "" {
		payload["from_status"] = from
	}
	if reason != nil {
		payload["reason"] = *reason
	}
	eventDataBytes, _ := json.Marshal(payload)

	var actor *uuid.UUID
	if actorID != uuid.Nil {
		actor = &actorID
	}
	return tx.Create(&domain.DonationEvent{
		RequestID: req.RequestID,
		EventType: eventType,
		ActorID:   actor,
		EventData: datatypes.JSON(eventDataBytes),
	}).Error
}

func (s *Service) notify(ctx context.Context, change Change) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.DonationChanged(ctx, change); err != nil {
		log.Warn().Err(err).
			Str("request_id", change.Request.RequestID.String()).
			Str("event", change.EventType).
			Msg("donation notification failed")
	}
}
