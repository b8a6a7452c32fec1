package capacity

import (
	"context"
	"errors"

	"plates-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Source tells where an effective capacity came from.
type Source string

const (
	SourceManual  Source = "MANUAL"
	SourceDefault Source = "DEFAULT"
)

// Resolution is the effective capacity of one slot.
type Resolution struct {
	Capacity int     `json:"capacity"`
	Source   Source  `json:"source"`
	Notes    *string `json:"notes"`
}

// EffectiveCapacity applies override-over-default precedence. A nil override means the
// location default governs.
func EffectiveCapacity(override *domain.CapacityOverride, defaultCapacity int) Resolution {
	if override != nil {
		return Resolution{Capacity: override.Capacity, Source: SourceManual, Notes: override.Notes}
	}
	return Resolution{Capacity: defaultCapacity, Source: SourceDefault}
}

// Service is the capacity engine: resolver, ledger, availability and override store.
type Service struct {
	DB *gorm.DB
	// MaxRangeDays caps calendar and bulk operations; 0 means DefaultMaxRangeDays.
	MaxRangeDays int
}

const DefaultMaxRangeDays = 62

func (s *Service) maxRange() int {
	if s.MaxRangeDays > 0 {
		return s.MaxRangeDays
	}
	return DefaultMaxRangeDays
}

// Resolve returns the effective capacity for (location, date, meal).
func (s *Service) Resolve(ctx context.Context, locationID uuid.UUID, date domain.Date, meal domain.MealType) (Resolution, error) {
	return ResolveTx(s.DB.WithContext(ctx), locationID, date, meal)
}

// ResolveTx is Resolve on an existing handle, so it can run inside a caller's transaction.
func ResolveTx(tx *gorm.DB, locationID uuid.UUID, date domain.Date, meal domain.MealType) (Resolution, error) {
	if !meal.Valid() {
		return Resolution{}, domain.InvalidArgument("Invalid meal_type: %q", meal)
	}
	override, err := findOverride(tx, locationID, date, meal)
	if err != nil {
		return Resolution{}, err
	}
	if override != nil {
		return EffectiveCapacity(override, 0), nil
	}
	if _, err := findLocation(tx, locationID); err != nil {
		return Resolution{}, err
	}
	def, err := defaultCapacity(tx, locationID, meal)
	if err != nil {
		return Resolution{}, err
	}
	return EffectiveCapacity(nil, def), nil
}

func findOverride(tx *gorm.DB, locationID uuid.UUID, date domain.Date, meal domain.MealType) (*domain.CapacityOverride, error) {
	var o domain.CapacityOverride
	res := tx.Where("location_id = ? AND date = ? AND meal_type = ?", locationID, date, meal).Limit(1).Find(&o)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &o, nil
}

func defaultCapacity(tx *gorm.DB, locationID uuid.UUID, meal domain.MealType) (int, error) {
	var d domain.LocationDefaultCapacity
	res := tx.Where("location_id = ? AND meal_type = ?", locationID, meal).Limit(1).Find(&d)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, nil
	}
	return d.Capacity, nil
}

func findLocation(tx *gorm.DB, locationID uuid.UUID) (*domain.Location, error) {
	var loc domain.Location
	if err := tx.Where("location_id = ?", locationID).First(&loc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("Location not found")
		}
		return nil, err
	}
	return &loc, nil
}

// LockLocation loads the location row with SELECT ... FOR UPDATE. Every operation that changes
// what a slot of this location can accept takes this lock first, so check-then-write
// sequences on the same location run one at a time.
func LockLocation(tx *gorm.DB, locationID uuid.UUID) (*domain.Location, error) {
	var loc domain.Location
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("location_id = ?", locationID).First(&loc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("Location not found")
		}
		return nil, err
	}
	return &loc, nil
}
