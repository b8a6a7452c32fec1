package capacity

import (
	"context"

	"plates-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Availability is the capacity picture of one slot.
type Availability struct {
	LocationID uuid.UUID       `json:"location_id"`
	Date       domain.Date     `json:"date"`
	MealType   domain.MealType `json:"meal_type"`
	Capacity   int             `json:"capacity"`
	Available  int             `json:"available"`
	Committed  int             `json:"committed"`
	Reserved   int             `json:"reserved"`
	IsManual   bool            `json:"is_manual"`
	Notes      *string         `json:"notes"`
}

// DayAvailability is every meal of one date, in meal order.
type DayAvailability struct {
	Date  domain.Date    `json:"date"`
	Meals []Availability `json:"meals"`
}

// LocationAvailability pairs an active location with its slot availability.
type LocationAvailability struct {
	Location     domain.Location `json:"location"`
	Availability Availability    `json:"availability"`
}

// Availability reports capacity, commitments and what is still available on the slot.
func (s *Service) Availability(ctx context.Context, locationID uuid.UUID, date domain.Date, meal domain.MealType) (Availability, error) {
	return AvailabilityTx(s.DB.WithContext(ctx), locationID, date, meal)
}

// AvailabilityTx computes availability on tx. Inside a transaction that holds the location
// lock the result stays valid until commit.
func AvailabilityTx(tx *gorm.DB, locationID uuid.UUID, date domain.Date, meal domain.MealType) (Availability, error) {
	res, err := ResolveTx(tx, locationID, date, meal)
	if err != nil {
		return Availability{}, err
	}
	totals, err := SlotTotalsTx(tx, locationID, date, meal)
	if err != nil {
		return Availability{}, err
	}
	return newAvailability(locationID, date, meal, res, totals), nil
}

func newAvailability(locationID uuid.UUID, date domain.Date, meal domain.MealType, res Resolution, totals SlotTotals) Availability {
	available := res.Capacity - totals.Held()
	if available < 0 {
		available = 0
	}
	return Availability{
		LocationID: locationID,
		Date:       date,
		MealType:   meal,
		Capacity:   res.Capacity,
		Available:  available,
		Committed:  totals.Committed,
		Reserved:   totals.Reserved,
		IsManual:   res.Source == SourceManual,
		Notes:      res.Notes,
	}
}

// DayAvailability returns all four meals of a date for the location.
func (s *Service) DayAvailability(ctx context.Context, locationID uuid.UUID, date domain.Date) (DayAvailability, error) {
	days, err := s.availabilityRange(ctx, locationID, date, date, 1)
	if err != nil {
		return DayAvailability{}, err
	}
	return days[0], nil
}

// RangeAvailability is the calendar view from start to end inclusive.
func (s *Service) RangeAvailability(ctx context.Context, locationID uuid.UUID, start, end domain.Date) ([]DayAvailability, error) {
	days, err := s.checkSpan(start, end)
	if err != nil {
		return nil, err
	}
	return s.availabilityRange(ctx, locationID, start, end, days)
}

func (s *Service) availabilityRange(ctx context.Context, locationID uuid.UUID, start, end domain.Date, days int) ([]DayAvailability, error) {
	db := s.DB.WithContext(ctx)
	if _, err := findLocation(db, locationID); err != nil {
		return nil, err
	}
	book, err := loadSlotBook(db, locationID, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]DayAvailability, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDays(i)
		day := DayAvailability{Date: date, Meals: make([]Availability, 0, len(domain.AllMealTypes))}
		for _, meal := range domain.AllMealTypes {
			day.Meals = append(day.Meals, book.availability(date, meal))
		}
		out = append(out, day)
	}
	return out, nil
}

type slotKey struct {
	date string
	meal domain.MealType
}

// slotBook is a location's defaults, overrides and held plates over a date range, loaded in
// three queries so a calendar does not cost a round trip per slot.
type slotBook struct {
	locationID uuid.UUID
	defaults   map[domain.MealType]int
	overrides  map[slotKey]*domain.CapacityOverride
	totals     map[slotKey]SlotTotals
}

func loadSlotBook(db *gorm.DB, locationID uuid.UUID, start, end domain.Date) (*slotBook, error) {
	book := &slotBook{
		locationID: locationID,
		defaults:   map[domain.MealType]int{},
		overrides:  map[slotKey]*domain.CapacityOverride{},
		totals:     map[slotKey]SlotTotals{},
	}

	var defaults []domain.LocationDefaultCapacity
	if err := db.Where("location_id = ?", locationID).Find(&defaults).Error; err != nil {
		return nil, err
	}
	for _, d := range defaults {
		book.defaults[d.MealType] = d.Capacity
	}

	var overrides []domain.CapacityOverride
	if err := db.Where("location_id = ? AND date BETWEEN ? AND ?", locationID, start, end).Find(&overrides).Error; err != nil {
		return nil, err
	}
	for i := range overrides {
		o := &overrides[i]
		book.overrides[slotKey{o.Date.String(), o.MealType}] = o
	}

	var rows []struct {
		DonationDate domain.Date
		MealType     domain.MealType
		Status       domain.DonationStatus
		Plates       int64
	}
	err := db.Model(&domain.DonationRequest{}).
		Select("donation_date, meal_type, status, COALESCE(SUM(quantity_plates), 0) AS plates").
		Where("ngo_location_id = ? AND donation_date BETWEEN ? AND ? AND status IN ?", locationID, start, end, holdingStatuses()).
		Group("donation_date, meal_type, status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		k := slotKey{r.DonationDate.String(), r.MealType}
		t := book.totals[k]
		t.add(r.Status, int(r.Plates))
		book.totals[k] = t
	}
	return book, nil
}

func (b *slotBook) availability(date domain.Date, meal domain.MealType) Availability {
	k := slotKey{date.String(), meal}
	res := EffectiveCapacity(b.overrides[k], b.defaults[meal])
	return newAvailability(b.locationID, date, meal, res, b.totals[k])
}

// checkSpan returns the number of days in [start, end].
func (s *Service) checkSpan(start, end domain.Date) (int, error) {
	if end.Before(start.Time) {
		return 0, domain.InvalidArgument("end_date must be on or after start_date")
	}
	days := start.DaysUntil(end) + 1
	if days > s.maxRange() {
		return 0, domain.InvalidArgument("Date range cannot exceed %d days", s.maxRange())
	}
	return days, nil
}

// AvailableLocations lists the NGO's active locations that can still take minPlates on the slot.
func (s *Service) AvailableLocations(ctx context.Context, ngoID uuid.UUID, date domain.Date, meal domain.MealType, minPlates int) ([]LocationAvailability, error) {
	if !meal.Valid() {
		return nil, domain.InvalidArgument("Invalid meal_type: %q", meal)
	}
	if minPlates < 0 {
		return nil, domain.InvalidArgument("min must not be negative")
	}
	db := s.DB.WithContext(ctx)

	var locations []domain.Location
	if err := db.Where("ngo_id = ? AND is_active = ?", ngoID, true).
		Order("location_name ASC").
		Find(&locations).Error; err != nil {
		return nil, err
	}

	out := make([]LocationAvailability, 0, len(locations))
	for _, loc := range locations {
		a, err := AvailabilityTx(db, loc.LocationID, date, meal)
		if err != nil {
			return nil, err
		}
		if a.Available >= minPlates {
			out = append(out, LocationAvailability{Location: loc, Availability: a})
		}
	}
	return out, nil
}
