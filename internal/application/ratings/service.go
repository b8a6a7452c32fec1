package ratings

import (
	"context"
	"errors"
	"math"
	"strings"

	"plates-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Notifier is told when a donor rates a donation. Its failures never undo the rating.
type Notifier interface {
	RatingReceived(ctx context.Context, rating domain.Rating, location domain.Location) error
}

type Service struct {
	DB       *gorm.DB
	Notifier Notifier
}

type CreateInput struct {
	RequestID uuid.UUID
	DonorID   uuid.UUID
	Rating    int
	Feedback  string
}

// Summary is an NGO's rating overview.
type Summary struct {
	NGOID         uuid.UUID       `json:"ngo_id"`
	TotalRatings  int64           `json:"total_ratings"`
	AverageRating float64         `json:"average_rating"`
	Distribution  map[int]int64   `json:"rating_distribution"`
	Recent        []domain.Rating `json:"recent_ratings"`
}

type Average struct {
	NGOID         uuid.UUID `json:"ngo_id"`
	AverageRating float64   `json:"average_rating"`
	TotalRatings  int64     `json:"total_ratings"`
}

// Create stores the donor's rating of a completed donation and notifies the NGO.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Rating, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, domain.InvalidArgument("rating must be between 1 and 5")
	}

	var (
		rating *domain.Rating
		req    domain.DonationRequest
		loc    domain.Location
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Location").Where("request_id = ?", in.RequestID).First(&req).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("Donation request not found")
			}
			return err
		}
		if req.Location == nil {
			return domain.NotFound("NGO location not found")
		}
		loc = *req.Location
		if req.DonorID != in.DonorID {
			return domain.Forbidden("You can only rate your own donations")
		}
		if req.Status != domain.StatusCompleted {
			return domain.InvalidState("rate", req.Status, domain.StatusCompleted)
		}

		var existing int64
		if err := tx.Model(&domain.Rating{}).Where("request_id = ?", in.RequestID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return domain.Conflict("This donation has already been rated")
		}

		rating = &domain.Rating{
			RequestID: in.RequestID,
			DonorID:   in.DonorID,
			NGOID:     loc.NGOID,
			Rating:    in.Rating,
		}
		if fb := strings.TrimSpace(in.Feedback); fb != "" {
			rating.Feedback = &fb
		}
		if err := tx.Create(rating).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.Conflict("This donation has already been rated")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Notifier != nil {
		if err := s.Notifier.RatingReceived(ctx, *rating, loc); err != nil {
			log.Warn().Err(err).Str("rating_id", rating.RatingID.String()).Msg("rating notification failed")
		}
	}
	return rating, nil
}

// ListForDonor returns every rating the donor gave, newest first.
func (s *Service) ListForDonor(ctx context.Context, donorID uuid.UUID) ([]domain.Rating, error) {
	var out []domain.Rating
	if err := s.DB.WithContext(ctx).Where("donor_id = ?", donorID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// NGOSummary returns totals, the 1-5 distribution and the limit most recent ratings.
func (s *Service) NGOSummary(ctx context.Context, ngoID uuid.UUID, limit int) (*Summary, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}
	db := s.DB.WithContext(ctx)

	var rows []struct {
		Rating int
		N      int64
	}
	if err := db.Model(&domain.Rating{}).
		Select("rating, COUNT(*) AS n").
		Where("ngo_id = ?", ngoID).
		Group("rating").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := &Summary{NGOID: ngoID, Distribution: map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	var sum int64
	for _, r := range rows {
		out.Distribution[r.Rating] = r.N
		out.TotalRatings += r.N
		sum += int64(r.Rating) * r.N
	}
	if out.TotalRatings > 0 {
		out.AverageRating = round2(float64(sum) / float64(out.TotalRatings))
	}

	if err := db.Where("ngo_id = ?", ngoID).Order("created_at DESC").Limit(limit).Find(&out.Recent).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// NGOAverage is the cheap form of NGOSummary.
func (s *Service) NGOAverage(ctx context.Context, ngoID uuid.UUID) (*Average, error) {
	var row struct {
		Total int64
		Avg   *float64
	}
	if err := s.DB.WithContext(ctx).Model(&domain.Rating{}).
		Select("COUNT(*) AS total, AVG(rating) AS avg").
		Where("ngo_id = ?", ngoID).
		Scan(&row).Error; err != nil {
		return nil, err
	}
	out := &Average{NGOID: ngoID, TotalRatings: row.Total}
	if row.Avg != nil {
		out.AverageRating = round2(*row.Avg)
	}
	return out, nil
}

// ForRequest returns the rating of a donation, or nil when it has none.
func (s *Service) ForRequest(ctx context.Context, requestID uuid.UUID) (*domain.Rating, error) {
	var r domain.Rating
	res := s.DB.WithContext(ctx).Where("request_id = ?", requestID).Limit(1).Find(&r)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &r, nil
}

// Delete removes a rating. Only its donor or an admin may do so.
func (s *Service) Delete(ctx context.Context, ratingID, actorID uuid.UUID, admin bool) error {
	db := s.DB.WithContext(ctx)
	var r domain.Rating
	if err := db.Where("rating_id = ?", ratingID).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFound("Rating not found")
		}
		return err
	}
	if !admin && r.DonorID != actorID {
		return domain.Forbidden("You can only delete your own ratings")
	}
	return db.Delete(&r).Error
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
