package capacity

import (
	"context"
	"errors"
	"sort"

	"plates-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SetOverrideInput struct {
	LocationID uuid.UUID
	Date       domain.Date
	MealType   domain.MealType
	Capacity   int
	Notes      *string
}

type BulkSetOverrideInput struct {
	LocationID uuid.UUID
	StartDate  domain.Date
	EndDate    domain.Date
	MealType   domain.MealType
	Capacity   int
	Notes      *string
}

func validateOverride(meal domain.MealType, capacity int) error {
	if !meal.Valid() {
		return domain.InvalidArgument("Invalid meal_type: %q", meal)
	}
	if capacity < 0 {
		return domain.InvalidArgument("Capacity must be non-negative")
	}
	return nil
}

// SetOverride creates or replaces the manual capacity of a slot. Lowering it below what is
// already held is allowed; availability then reads 0.
func (s *Service) SetOverride(ctx context.Context, in SetOverrideInput) (*domain.CapacityOverride, error) {
	if err := validateOverride(in.MealType, in.Capacity); err != nil {
		return nil, err
	}
	var out *domain.CapacityOverride
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := LockLocation(tx, in.LocationID); err != nil {
			return err
		}
		o, err := upsertOverride(tx, in.LocationID, in.Date, in.MealType, in.Capacity, in.Notes)
		if err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// upsertOverride expects the caller to hold the location lock.
func upsertOverride(tx *gorm.DB, locationID uuid.UUID, date domain.Date, meal domain.MealType, capacity int, notes *string) (*domain.CapacityOverride, error) {
	existing, err := findOverride(tx, locationID, date, meal)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := tx.Model(existing).Updates(map[string]interface{}{
			"capacity": capacity,
			"notes":    notes,
		}).Error; err != nil {
			return nil, err
		}
		existing.Capacity = capacity
		existing.Notes = notes
		return existing, nil
	}

	o := &domain.CapacityOverride{
		LocationID: locationID,
		Date:       date,
		MealType:   meal,
		Capacity:   capacity,
		Notes:      notes,
	}
	if err := tx.Create(o).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.Conflict("Capacity override already exists for this slot")
		}
		return nil, err
	}
	return o, nil
}

// DeleteOverride removes the manual capacity of a slot so the location default applies again.
// It reports whether an override existed.
func (s *Service) DeleteOverride(ctx context.Context, locationID uuid.UUID, date domain.Date, meal domain.MealType) (bool, error) {
	if !meal.Valid() {
		return false, domain.InvalidArgument("Invalid meal_type: %q", meal)
	}
	var deleted bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := LockLocation(tx, locationID); err != nil {
			return err
		}
		res := tx.Where("location_id = ? AND date = ? AND meal_type = ?", locationID, date, meal).
			Delete(&domain.CapacityOverride{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

// ListOverrides returns every override of the location ordered by date, then meal order.
func (s *Service) ListOverrides(ctx context.Context, locationID uuid.UUID) ([]domain.CapacityOverride, error) {
	db := s.DB.WithContext(ctx)
	if _, err := findLocation(db, locationID); err != nil {
		return nil, err
	}
	var overrides []domain.CapacityOverride
	if err := db.Where("location_id = ?", locationID).Order("date ASC").Find(&overrides).Error; err != nil {
		return nil, err
	}
	sort.SliceStable(overrides, func(i, j int) bool {
		a, b := overrides[i], overrides[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.Before(b.Date.Time)
		}
		return a.MealType.Order() < b.MealType.Order()
	})
	return overrides, nil
}

// BulkSetOverride applies the same override to one meal on every date of a range, all or nothing.
// It returns the number of slots written.
func (s *Service) BulkSetOverride(ctx context.Context, in BulkSetOverrideInput) (int, error) {
	if err := validateOverride(in.MealType, in.Capacity); err != nil {
		return 0, err
	}
	days, err := s.checkSpan(in.StartDate, in.EndDate)
	if err != nil {
		return 0, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := LockLocation(tx, in.LocationID); err != nil {
			return err
		}
		for i := 0; i < days; i++ {
			if _, err := upsertOverride(tx, in.LocationID, in.StartDate.AddDays(i), in.MealType, in.Capacity, in.Notes); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return days, nil
}
