package donations

import (
	"context"

	"plates-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Get loads one request with its location.
func (s *Service) Get(ctx context.Context, requestID uuid.UUID) (*domain.DonationRequest, error) {
	var req domain.DonationRequest
	if err := findRequest(s.DB.WithContext(ctx).Preload("Location"), requestID, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// ListForDonor returns the donor's requests, newest first. An empty status lists all.
func (s *Service) ListForDonor(ctx context.Context, donorID uuid.UUID, status string) ([]domain.DonationRequest, error) {
	q := s.DB.WithContext(ctx).Preload("Location").Where("donor_id = ?", donorID)
	return listRequests(q, status)
}

// ListForNGO returns requests addressed to any location of the NGO, newest first.
func (s *Service) ListForNGO(ctx context.Context, ngoID uuid.UUID, status string) ([]domain.DonationRequest, error) {
	q := s.DB.WithContext(ctx).Preload("Location").
		Where("ngo_location_id IN (?)", s.DB.Model(&domain.Location{}).Select("location_id").Where("ngo_id = ?", ngoID))
	return listRequests(q, status)
}

// Events returns the audit trail of a request in the order it happened.
func (s *Service) Events(ctx context.Context, requestID uuid.UUID) ([]domain.DonationEvent, error) {
	var events []domain.DonationEvent
	if err := s.DB.WithContext(ctx).Where("request_id = ?", requestID).Order("created_at ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func listRequests(q *gorm.DB, status string) ([]domain.DonationRequest, error) {
	if status != "" {
		st, err := domain.ParseDonationStatus(status)
		if err != nil {
			return nil, err
		}
		q = q.Where("status = ?", st)
	}
	var out []domain.DonationRequest
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
