package locations

import (
	"context"
	"errors"
	"strings"

	"plates-backend/internal/application/capacity"
	"plates-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service manages NGO locations and their standing per-meal capacities.
type Service struct {
	DB *gorm.DB
}

type CreateInput struct {
	NGOID        uuid.UUID
	LocationName string
	AddressLine1 string
	AddressLine2 *string
	City         string
	State        string
	ZipCode      string
	Country      string
	Latitude     float64
	Longitude    float64
	ContactPhone *string
	ContactEmail *string
	Defaults     map[domain.MealType]int
}

func validateDefaults(defaults map[domain.MealType]int) error {
	for meal, c := range defaults {
		if !meal.Valid() {
			return domain.InvalidArgument("Invalid meal_type: %q", meal)
		}
		if c < 0 {
			return domain.InvalidArgument("Default capacity for %s must be non-negative", meal)
		}
	}
	return nil
}

// Create registers a location for an NGO; it starts active.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Location, error) {
	if in.NGOID == uuid.Nil {
		return nil, domain.InvalidArgument("ngo_id is required")
	}
	if strings.TrimSpace(in.LocationName) == "" || strings.TrimSpace(in.AddressLine1) == "" || strings.TrimSpace(in.City) == "" {
		return nil, domain.InvalidArgument("location_name, address_line1 and city are required")
	}
	if err := validateDefaults(in.Defaults); err != nil {
		return nil, err
	}

	loc := &domain.Location{
		NGOID:        in.NGOID,
		LocationName: strings.TrimSpace(in.LocationName),
		AddressLine1: strings.TrimSpace(in.AddressLine1),
		AddressLine2: in.AddressLine2,
		City:         strings.TrimSpace(in.City),
		State:        in.State,
		ZipCode:      in.ZipCode,
		Country:      in.Country,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		ContactPhone: in.ContactPhone,
		ContactEmail: in.ContactEmail,
		IsActive:     true,
	}
	for _, meal := range domain.AllMealTypes {
		if c, ok := in.Defaults[meal]; ok {
			loc.DefaultCapacities = append(loc.DefaultCapacities, domain.LocationDefaultCapacity{MealType: meal, Capacity: c})
		}
	}
	if err := s.DB.WithContext(ctx).Create(loc).Error; err != nil {
		return nil, err
	}
	return loc, nil
}

// Get loads a location with its default capacities.
func (s *Service) Get(ctx context.Context, locationID uuid.UUID) (*domain.Location, error) {
	var loc domain.Location
	if err := s.DB.WithContext(ctx).Preload("DefaultCapacities").Where("location_id = ?", locationID).First(&loc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("Location not found")
		}
		return nil, err
	}
	return &loc, nil
}

// ListByNGO returns the NGO's locations; inactive ones only when includeInactive is set.
func (s *Service) ListByNGO(ctx context.Context, ngoID uuid.UUID, includeInactive bool) ([]domain.Location, error) {
	q := s.DB.WithContext(ctx).Preload("DefaultCapacities").Where("ngo_id = ?", ngoID)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var out []domain.Location
	if err := q.Order("location_name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SetDefaults upserts the standing capacity of the given meals. Meals not named keep their value.
// Defaults feed every slot without an override, so the location lock is held while writing.
func (s *Service) SetDefaults(ctx context.Context, locationID uuid.UUID, defaults map[domain.MealType]int) (*domain.Location, error) {
	if len(defaults) == 0 {
		return nil, domain.InvalidArgument("At least one meal capacity is required")
	}
	if err := validateDefaults(defaults); err != nil {
		return nil, err
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := capacity.LockLocation(tx, locationID); err != nil {
			return err
		}
		rows := make([]domain.LocationDefaultCapacity, 0, len(defaults))
		for _, meal := range domain.AllMealTypes {
			if c, ok := defaults[meal]; ok {
				rows = append(rows, domain.LocationDefaultCapacity{LocationID: locationID, MealType: meal, Capacity: c})
			}
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "location_id"}, {Name: "meal_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"capacity", "updated_at"}),
		}).Create(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, locationID)
}

// SetActive toggles whether the location accepts new donation requests. Existing requests are untouched.
func (s *Service) SetActive(ctx context.Context, locationID uuid.UUID, active bool) (*domain.Location, error) {
	res := s.DB.WithContext(ctx).Model(&domain.Location{}).
		Where("location_id = ?", locationID).
		Update("is_active", active)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.NotFound("Location not found")
	}
	return s.Get(ctx, locationID)
}

// UpdateInput is a partial update; nil fields keep their value.
type UpdateInput struct {
	LocationName *string
	AddressLine1 *string
	AddressLine2 *string
	City         *string
	State        *string
	ZipCode      *string
	Country      *string
	Latitude     *float64
	Longitude    *float64
	ContactPhone *string
	ContactEmail *string
}

func (in UpdateInput) columns() (map[string]interface{}, error) {
	out := map[string]interface{}{}
	required := []struct {
		col string
		v   *string
	}{
		{"location_name", in.LocationName},
		{"address_line1", in.AddressLine1},
		{"city", in.City},
	}
	for _, r := range required {
		if r.v == nil {
			continue
		}
		v := strings.TrimSpace(*r.v)
		if v == "" {
			return nil, domain.InvalidArgument("%s must not be empty", r.col)
		}
		out[r.col] = v
	}
	optional := map[string]*string{
		"address_line2": in.AddressLine2,
		"state":         in.State,
		"zip_code":      in.ZipCode,
		"country":       in.Country,
		"contact_phone": in.ContactPhone,
		"contact_email": in.ContactEmail,
	}
	for col, v := range optional {
		if v != nil {
			out[col] = *v
		}
	}
	if in.Latitude != nil {
		if *in.Latitude < -90 || *in.Latitude > 90 {
			return nil, domain.InvalidArgument("latitude must be between -90 and 90")
		}
		out["latitude"] = *in.Latitude
	}
	if in.Longitude != nil {
		if *in.Longitude < -180 || *in.Longitude > 180 {
			return nil, domain.InvalidArgument("longitude must be between -180 and 180")
		}
		out["longitude"] = *in.Longitude
	}
	return out, nil
}

// Update changes the descriptive fields of a location. Capacity and activity have their own calls.
func (s *Service) Update(ctx context.Context, locationID uuid.UUID, in UpdateInput) (*domain.Location, error) {
	cols, err := in.columns()
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return s.Get(ctx, locationID)
	}
	res := s.DB.WithContext(ctx).Model(&domain.Location{}).Where("location_id = ?", locationID).Updates(cols)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.NotFound("Location not found")
	}
	return s.Get(ctx, locationID)
}

// Delete removes a location with its defaults and overrides. A location that ever received a
// donation request keeps its history and can only be deactivated.
func (s *Service) Delete(ctx context.Context, locationID uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := capacity.LockLocation(tx, locationID); err != nil {
			return err
		}
		var requests int64
		if err := tx.Model(&domain.DonationRequest{}).Where("ngo_location_id = ?", locationID).Count(&requests).Error; err != nil {
			return err
		}
		if requests > 0 {
			return domain.Conflict("Location has %d donation requests; deactivate it instead", requests)
		}
		if err := tx.Where("location_id = ?", locationID).Delete(&domain.CapacityOverride{}).Error; err != nil {
			return err
		}
		if err := tx.Where("location_id = ?", locationID).Delete(&domain.LocationDefaultCapacity{}).Error; err != nil {
			return err
		}
		return tx.Where("location_id = ?", locationID).Delete(&domain.Location{}).Error
	})
}
