package capacity

import (
	"context"
	"testing"
	"time"

	"plates-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCapacityTest(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&domain.Location{}, &domain.LocationDefaultCapacity{},
		&domain.CapacityOverride{}, &domain.DonationRequest{},
	))
	return &Service{DB: db}, db
}

func seedLocation(t *testing.T, db *gorm.DB, ngoID uuid.UUID, defaults map[domain.MealType]int) *domain.Location {
	loc := &domain.Location{
		NGOID:        ngoID,
		LocationName: "Main kitchen",
		AddressLine1: "1 Food St",
		City:         "Pune",
		IsActive:     true,
	}
	for meal, c := range defaults {
		loc.DefaultCapacities = append(loc.DefaultCapacities, domain.LocationDefaultCapacity{MealType: meal, Capacity: c})
	}
	require.NoError(t, db.Create(loc).Error)
	return loc
}

func seedRequest(t *testing.T, db *gorm.DB, loc uuid.UUID, date domain.Date, meal domain.MealType, qty int, status domain.DonationStatus) {
	require.NoError(t, db.Create(&domain.DonationRequest{
		DonorID:      uuid.New(),
		LocationID:   loc,
		DonationDate: date,
		MealType:     meal,
		FoodType:     "rice",
		Quantity:     qty,
		Status:       status,
	}).Error)
}

var day = domain.NewDate(2025, time.March, 10)

func TestEffectiveCapacity_Precedence(t *testing.T) {
	notes := "festival"
	r := EffectiveCapacity(&domain.CapacityOverride{Capacity: 0, Notes: &notes}, 100)
	assert.Equal(t, 0, r.Capacity)
	assert.Equal(t, SourceManual, r.Source)
	assert.Equal(t, &notes, r.Notes)

	r = EffectiveCapacity(nil, 100)
	assert.Equal(t, 100, r.Capacity)
	assert.Equal(t, SourceDefault, r.Source)
	assert.Nil(t, r.Notes)
}

func TestResolve_DefaultThenOverride(t *testing.T) {
	svc, db := setupCapacityTest(t)
	ctx := context.Background()
	loc := seedLocation(t, db, uuid.New(), map[domain.MealType]int{domain.Lunch: 100})

	r, err := svc.Resolve(ctx, loc.LocationID, day, domain.Lunch)
	require.NoError(t, err)
	assert.Equal(t, Resolution{Capacity: 100, Source: SourceDefault}, r)

	r, err = svc.Resolve(ctx, loc.LocationID, day, domain.Dinner)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Capacity, "meal without a default row resolves to 0")

	_, err = svc.SetOverride(ctx, SetOverrideInput{LocationID: loc.LocationID, Date: day, MealType: domain.Lunch, Capacity: 40})
	require.NoError(t, err)
	r, err = svc.Resolve(ctx, loc.LocationID, day, domain.Lunch)
	require.NoError(t, err)
	assert.Equal(t, 40, r.Capacity)
	assert.Equal(t, SourceManual, r.Source)

	r, err = svc.Resolve(ctx, loc.LocationID, day.AddDays(1), domain.Lunch)
	require.NoError(t, err)
	assert.Equal(t, 100, r.Capacity, "override only affects its own date")
}

func TestResolve_UnknownLocation(t *testing.T) {
	svc, _ := setupCapacityTest(t)
	_, err := svc.Resolve(context.Background(), uuid.New(), day, domain.Lunch)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAvailability_CountsPendingAndCommitted(t *testing.T) {
	svc, db := setupCapacityTest(t)
	ctx := context.Background()
	loc := seedLocation(t, db, uuid.New(), map[domain.MealType]int{domain.Lunch: 100})

	seedRequest(t, db, loc.LocationID, day, domain.Lunch, 30, domain.StatusConfirmed)
	seedRequest(t, db, loc.LocationID, day, domain.Lunch, 10, domain.StatusCompleted)
	seedRequest(t, db, loc.LocationID, day, domain.Lunch, 20, domain.StatusPending)
	seedRequest(t, db, loc.LocationID, day, domain.Lunch, 50, domain.StatusRejected)
	seedRequest(t, db, loc.LocationID, day, domain.Lunch, 50, domain.StatusCancelled)
	seedRequest(t, db, loc.LocationID, day, domain.Dinner, 70, domain.StatusConfirmed)

	a, err := svc.Availability(ctx, loc.LocationID, day, domain.Lunch)
	require.NoError(t, err)
	assert.Equal(t, 100, a.Capacity)
	assert.Equal(t, 40, a.Committed)
	assert.Equal(t, 20, a.Reserved)
	assert.Equal(t, 40, a.Available)
	assert.False(t, a.IsManual)

	committed, err := svc.Committed(ctx, loc.LocationID, day, domain.Lunch)
	require.NoError(t, err)
	assert.Equal(t, 40, committed)
	reserved, err := svc.Reserved(ctx, loc.LocationID, day, domain.Lunch)
	require.NoError(t, err)
	assert.Equal(t, 20, reserved)
}

func TestAvailability_NeverNegative(t *testing.T) {
	svc, db := setupCapacityTest(t)
	ctx := context.Background()
	loc := seedLocation(t, db, uuid.New(), map[domain.MealType]int{domain.Lunch: 100})
	seedRequest(t, db, loc.LocationID, day, domain.Lunch, 80, domain.StatusConfirmed)

	_, err := svc.SetOverride(ctx, SetOverrideInput{LocationID: loc.LocationID, Date: day, MealType: domain.Lunch, Capacity: 50})
	require.NoError(t, err)

	a, err := svc.Availability(ctx, loc.LocationID, day, domain.Lunch)
	require.NoError(t, err)
	assert.Equal(t, 50, a.Capacity)
	assert.Equal(t, 80, a.Committed)
	assert.Equal(t, 0, a.Available)
	assert.True(t, a.IsManual)
}

func TestDayAvailability_AllMealsInOrder(t *testing.T) {
	svc, db := setupCapacityTest(t)
	loc := seedLocation(t, db, uuid.New(), map[domain.MealType]int{
		domain.Breakfast: 10, domain.Lunch: 20, domain.Snacks: 30, domain.Dinner: 40,
	})

	d, err := svc.DayAvailability(context.Background(), loc.LocationID, day)
	require.NoError(t, err)
	require.Len(t, d.Meals, 4)
	for i, meal := range domain.AllMealTypes {
		assert.Equal(t, meal, d.Meals[i].MealType)
		assert.Equal(t, (i+1)*10, d.Meals[i].Available)
	}
}

func TestRangeAvailability_Bounds(t *testing.T) {
	svc, db := setupCapacityTest(t)
	ctx := context.Background()
	loc := seedLocation(t, db, uuid.New(), map[domain.MealType]int{domain.Lunch: 5})

	days, err := svc.RangeAvailability(ctx, loc.LocationID, day, day.AddDays(6))
	require.NoError(t, err)
	assert.Len(t, days, 7)
	assert.Equal(t, day.AddDays(6).String(), days[6].Date.String())

	_, err = svc.RangeAvailability(ctx, loc.LocationID, day, day.AddDays(-1))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.RangeAvailability(ctx, loc.LocationID, day, day.AddDays(DefaultMaxRangeDays))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestRangeAvailability_MatchesPerSlotAndBatchesQueries(t *testing.T) {
	svc, db := setupCapacityTest(t)
	ctx := context.Background()
	loc := seedLocation(t, db, uuid.New(), map[domain.MealType]int{domain.Lunch: 50, domain.Dinner: 20})
	seedRequest(t, db, loc.LocationID, day.AddDays(1), domain.Lunch, 10, domain.StatusPending)
	seedRequest(t, db, loc.LocationID, day.AddDays(1), domain.Lunch, 15, domain.StatusConfirmed)
	seedRequest(t, db, loc.LocationID, day.AddDays(1), domain.Lunch, 5, domain.StatusRejected)
	seedRequest(t, db, loc.LocationID, day.AddDays(3), domain.Dinner, 25, domain.StatusCompleted)
	notes := "festival"
	_, err := svc.SetOverride(ctx, SetOverrideInput{
		LocationID: loc.LocationID, Date: day.AddDays(2), MealType: domain.Lunch, Capacity: 200, Notes: &notes,
	})
	require.NoError(t, err)

	queries := 0
	count := func(*gorm.DB) { queries++ }
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:count_query", count))
	require.NoError(t, db.Callback().Row().After("gorm:row").Register("test:count_row", count))

	days, err := svc.RangeAvailability(ctx, loc.LocationID, day, day.AddDays(29))
	require.NoError(t, err)
	require.Len(t, days, 30)
	assert.Equal(t, 4, queries)

	for _, d := range days[:5] {
		for _, got := range d.Meals {
			want, err := svc.Availability(ctx, loc.LocationID, d.Date, got.MealType)
			require.NoError(t, err)
			assert.Equal(t, want, got, "%s %s", d.Date, got.MealType)
		}
	}

	lunch := days[1].Meals[1]
	assert.Equal(t, domain.Lunch, lunch.MealType)
	assert.Equal(t, 10, lunch.Reserved)
	assert.Equal(t, 15, lunch.Committed)
	assert.Equal(t, 25, lunch.Available)
	assert.True(t, days[2].Meals[1].IsManual)
	assert.Equal(t, 200, days[2].Meals[1].Available)
	assert.Equal(t, 0, days[3].Meals[3].Available)
}

func TestAvailableLocations_FiltersInactiveAndFull(t *testing.T) {
	svc, db := setupCapacityTest(t)
	ngo := uuid.New()
	open := seedLocation(t, db, ngo, map[domain.MealType]int{domain.Lunch: 100})
	full := seedLocation(t, db, ngo, map[domain.MealType]int{domain.Lunch: 20})
	seedRequest(t, db, full.LocationID, day, domain.Lunch, 15, domain.StatusPending)
	closed := seedLocation(t, db, ngo, map[domain.MealType]int{domain.Lunch: 100})
	require.NoError(t, db.Model(closed).Update("is_active", false).Error)
	seedLocation(t, db, uuid.New(), map[domain.MealType]int{domain.Lunch: 100})

	got, err := svc.AvailableLocations(context.Background(), ngo, day, domain.Lunch, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, open.LocationID, got[0].Location.LocationID)
	assert.Equal(t, 100, got[0].Availability.Available)
}
