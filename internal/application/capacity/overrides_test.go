package capacity

import (
	"context"
	"testing"

	"plates-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetOverride_Idempotent(t *testing.T) {
	svc, db := setupCapacityTest(t)
	ctx := context.Background()
	loc := seedLocation(t, db, uuid.New(), nil)
	notes := "holiday"

	in := SetOverrideInput{LocationID: loc.LocationID, Date: day, MealType: domain.Dinner, Capacity: 25, Notes: &notes}
	first, err := svc.SetOverride(ctx, in)
	require.NoError(t, err)
	second, err := svc.SetOverride(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.OverrideID, second.OverrideID)

	var count int64
	db.Model(&domain.CapacityOverride{}).Where("location_id = ?", loc.LocationID).Count(&count)
	assert.Equal(t, int64(1), count)

	in.Capacity = 60
	in.Notes = nil
	updated, err := svc.SetOverride(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 60, updated.Capacity)
	assert.Nil(t, updated.Notes)
}

func TestSetOverride_Validation(t *testing.T) {
	svc, db := setupCapacityTest(t)
	ctx := context.Background()
	loc := seedLocation(t, db, uuid.New(), nil)

	_, err := svc.SetOverride(ctx, SetOverrideInput{LocationID: loc.LocationID, Date: day, MealType: domain.Lunch, Capacity: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.SetOverride(ctx, SetOverrideInput{LocationID: loc.LocationID, Date: day, MealType: "brunch", Capacity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.SetOverride(ctx, SetOverrideInput{LocationID: uuid.New(), Date: day, MealType: domain.Lunch, Capacity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteOverride_RevertsToDefault(t *testing.T) {
	svc, db := setupCapacityTest(t)
	ctx := context.Background()
	loc := seedLocation(t, db, uuid.New(), map[domain.MealType]int{domain.Lunch: 100})

	_, err := svc.SetOverride(ctx, SetOverrideInput{LocationID: loc.LocationID, Date: day, MealType: domain.Lunch, Capacity: 0})
	require.NoError(t, err)
	a, err := svc.Availability(ctx, loc.LocationID, day, domain.Lunch)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Available)

	deleted, err := svc.DeleteOverride(ctx, loc.LocationID, day, domain.Lunch)
	require.NoError(t, err)
	assert.True(t, deleted)

	a, err = svc.Availability(ctx, loc.LocationID, day, domain.Lunch)
	require.NoError(t, err)
	assert.Equal(t, 100, a.Available)
	assert.False(t, a.IsManual)

	deleted, err = svc.DeleteOverride(ctx, loc.LocationID, day, domain.Lunch)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = svc.DeleteOverride(ctx, uuid.New(), day, domain.Lunch)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListOverrides_Ordered(t *testing.T) {
	svc, db := setupCapacityTest(t)
	ctx := context.Background()
	loc := seedLocation(t, db, uuid.New(), nil)

	for _, in := range []SetOverrideInput{
		{LocationID: loc.LocationID, Date: day.AddDays(1), MealType: domain.Breakfast, Capacity: 1},
		{LocationID: loc.LocationID, Date: day, MealType: domain.Dinner, Capacity: 2},
		{LocationID: loc.LocationID, Date: day, MealType: domain.Breakfast, Capacity: 3},
		{LocationID: loc.LocationID, Date: day, MealType: domain.Snacks, Capacity: 4},
	} {
		_, err := svc.SetOverride(ctx, in)
		require.NoError(t, err)
	}

	list, err := svc.ListOverrides(ctx, loc.LocationID)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, []int{3, 4, 2, 1}, []int{list[0].Capacity, list[1].Capacity, list[2].Capacity, list[3].Capacity})

	_, err = svc.ListOverrides(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBulkSetOverride(t *testing.T) {
	svc, db := setupCapacityTest(t)
	ctx := context.Background()
	loc := seedLocation(t, db, uuid.New(), map[domain.MealType]int{domain.Lunch: 100})

	_, err := svc.SetOverride(ctx, SetOverrideInput{LocationID: loc.LocationID, Date: day.AddDays(2), MealType: domain.Lunch, Capacity: 5})
	require.NoError(t, err)

	n, err := svc.BulkSetOverride(ctx, BulkSetOverrideInput{
		LocationID: loc.LocationID, StartDate: day, EndDate: day.AddDays(4), MealType: domain.Lunch, Capacity: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	list, err := svc.ListOverrides(ctx, loc.LocationID)
	require.NoError(t, err)
	require.Len(t, list, 5)
	for _, o := range list {
		assert.Equal(t, 30, o.Capacity)
	}

	_, err = svc.BulkSetOverride(ctx, BulkSetOverrideInput{
		LocationID: loc.LocationID, StartDate: day, EndDate: day.AddDays(-1), MealType: domain.Lunch, Capacity: 30,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
