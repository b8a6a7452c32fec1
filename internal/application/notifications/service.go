package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"plates-backend/internal/application/donations"
	"plates-backend/internal/application/emails"
	"plates-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service stores in-app notifications and mirrors them by email when an address is known.
type Service struct {
	DB     *gorm.DB
	Emails emails.Sender
}

type ListResult struct {
	Total         int64                 `json:"total"`
	UnreadCount   int64                 `json:"unread_count"`
	Notifications []domain.Notification `json:"notifications"`
}

// message is one notification addressed to one recipient.
type message struct {
	recipient uuid.UUID
	email     *string
	kind      string
	title     string
	body      string
}

// DonationChanged implements donations.Notifier. NGO-side events go to the owning NGO,
// donor-side events to the donor.
func (s *Service) DonationChanged(ctx context.Context, change donations.Change) error {
	msg, ok := compose(change)
	if !ok {
		return nil
	}
	relatedID := change.Request.RequestID
	n := domain.Notification{
		UserID:           msg.recipient,
		Title:            msg.title,
		Message:          msg.body,
		NotificationType: msg.kind,
		RelatedEntityID:  &relatedID,
	}
	if err := s.DB.WithContext(ctx).Create(&n).Error; err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	if s.Emails != nil && msg.email != nil && *msg.email != "" {
		update := emails.DonationUpdate{
			Subject:      msg.title,
			Heading:      msg.title,
			Message:      msg.body,
			LocationName: change.Location.LocationName,
			MealType:     string(change.Request.MealType),
			Date:         change.Request.DonationDate.String(),
			Plates:       change.Request.Quantity,
		}
		if err := s.Emails.SendDonationUpdate(ctx, *msg.email, update); err != nil {
			log.Warn().Err(err).Str("notification_id", n.NotificationID.String()).Msg("donation email failed")
		}
	}
	return nil
}

// RatingReceived implements ratings.Notifier by telling the rated NGO.
func (s *Service) RatingReceived(ctx context.Context, rating domain.Rating, location domain.Location) error {
	body := fmt.Sprintf("A donor rated their donation at %s %d/5.", location.LocationName, rating.Rating)
	if rating.Feedback != nil {
		body += " Feedback: " + *rating.Feedback
	}
	requestID := rating.RequestID
	n := domain.Notification{
		UserID:           rating.NGOID,
		Title:            "New Rating Received",
		Message:          body,
		NotificationType: domain.NotifyRatingReceived,
		RelatedEntityID:  &requestID,
	}
	if err := s.DB.WithContext(ctx).Create(&n).Error; err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	return nil
}

func compose(change donations.Change) (message, bool) {
	req := change.Request
	loc := change.Location
	switch change.EventType {
	case domain.EventCreated:
		return message{
			recipient: loc.NGOID,
			email:     loc.ContactEmail,
			kind:      domain.NotifyDonationCreated,
			title:     "New Donation Request",
			body:      fmt.Sprintf("A donor wants to donate %d plates of %s on %s at %s", req.Quantity, req.MealType, req.DonationDate, loc.LocationName),
		}, true
	case domain.EventConfirmed:
		return message{
			recipient: req.DonorID,
			email:     req.DonorEmail,
			kind:      domain.NotifyDonationConfirmed,
			title:     "Donation Confirmed",
			body:      fmt.Sprintf("Your donation at %s has been confirmed. Check details for pickup information.", loc.LocationName),
		}, true
	case domain.EventRejected:
		body := fmt.Sprintf("%s had to decline your donation request.", loc.LocationName)
		if req.RejectionReason != nil {
			body += " Reason: " + *req.RejectionReason
		}
		return message{
			recipient: req.DonorID,
			email:     req.DonorEmail,
			kind:      domain.NotifyDonationRejected,
			title:     "Donation Request Declined",
			body:      body,
		}, true
	case domain.EventCompleted:
		return message{
			recipient: req.DonorID,
			email:     req.DonorEmail,
			kind:      domain.NotifyDonationCompleted,
			title:     "Donation Completed!",
			body:      fmt.Sprintf("Thank you! Your donation of %d plates has been delivered to %s.", req.Quantity, loc.LocationName),
		}, true
	case domain.EventCancelled:
		return message{
			recipient: loc.NGOID,
			email:     loc.ContactEmail,
			kind:      domain.NotifyDonationCancelled,
			title:     "Donation Cancelled",
			body:      fmt.Sprintf("The donation of %d plates of %s on %s has been cancelled.", req.Quantity, req.MealType, req.DonationDate),
		}, true
	}
	return message{}, false
}

// List returns the caller's notifications, newest first. recipients holds every id the caller
// receives as (their user id, plus their NGO id for NGO accounts).
func (s *Service) List(ctx context.Context, recipients []uuid.UUID, unreadOnly bool, limit, offset int) (*ListResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	db := s.DB.WithContext(ctx)
	base := func() *gorm.DB {
		return db.Model(&domain.Notification{}).Where("user_id IN ?", recipients)
	}

	res := &ListResult{}
	q := base()
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if err := q.Count(&res.Total).Error; err != nil {
		return nil, err
	}
	if err := base().Where("is_read = ?", false).Count(&res.UnreadCount).Error; err != nil {
		return nil, err
	}
	q = base()
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&res.Notifications).Error; err != nil {
		return nil, err
	}
	return res, nil
}

// MarkRead flags one notification as read. Notifications of other users are NotFound.
func (s *Service) MarkRead(ctx context.Context, recipients []uuid.UUID, notificationID uuid.UUID) (*domain.Notification, error) {
	db := s.DB.WithContext(ctx)
	var n domain.Notification
	if err := db.Where("notification_id = ? AND user_id IN ?", notificationID, recipients).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("Notification not found")
		}
		return nil, err
	}
	if n.IsRead {
		return &n, nil
	}
	now := time.Now().UTC()
	if err := db.Model(&n).Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error; err != nil {
		return nil, err
	}
	n.IsRead = true
	n.ReadAt = &now
	return &n, nil
}

// Delete removes one of the caller's notifications.
func (s *Service) Delete(ctx context.Context, recipients []uuid.UUID, notificationID uuid.UUID) error {
	res := s.DB.WithContext(ctx).
		Where("notification_id = ? AND user_id IN ?", notificationID, recipients).
		Delete(&domain.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("Notification not found")
	}
	return nil
}

// Clear deletes the caller's notifications, only the read ones when readOnly is set.
func (s *Service) Clear(ctx context.Context, recipients []uuid.UUID, readOnly bool) (int64, error) {
	q := s.DB.WithContext(ctx).Where("user_id IN ?", recipients)
	if readOnly {
		q = q.Where("is_read = ?", true)
	}
	res := q.Delete(&domain.Notification{})
	return res.RowsAffected, res.Error
}

// MarkAllRead flags every unread notification of the caller and returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, recipients []uuid.UUID) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&domain.Notification{}).
		Where("user_id IN ? AND is_read = ?", recipients, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}
