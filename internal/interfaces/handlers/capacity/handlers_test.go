package capacity

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	capsvc "plates-backend/internal/application/capacity"
	locsvc "plates-backend/internal/application/locations"
	"plates-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCapacityHandlers(t *testing.T, caller map[string]interface{}) (*fiber.App, *gorm.DB, *domain.Location) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&domain.Location{}, &domain.LocationDefaultCapacity{},
		&domain.CapacityOverride{}, &domain.DonationRequest{},
	))

	ngoID := uuid.MustParse("7f1d3a52-2c1e-4d7a-9a57-0c2a8b1e6f10")
	loc := &domain.Location{
		NGOID:        ngoID,
		LocationName: "Community kitchen",
		AddressLine1: "12 Market Rd",
		City:         "Pune",
		IsActive:     true,
		DefaultCapacities: []domain.LocationDefaultCapacity{
			{MealType: domain.Lunch, Capacity: 100},
			{MealType: domain.Dinner, Capacity: 40},
		},
	}
	require.NoError(t, db.Create(loc).Error)

	h := &Handlers{Service: &capsvc.Service{DB: db}, Locations: &locsvc.Service{DB: db}}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", caller)
		return c.Next()
	})
	app.Get("/locations/:id/capacity", h.Get)
	app.Get("/locations/:id/availability", h.Calendar)
	app.Get("/ngos/:ngo_id/available-locations", h.AvailableLocations)
	app.Post("/locations/:id/capacity", h.SetOverride)
	app.Post("/locations/:id/capacity/bulk", h.BulkSetOverride)
	app.Delete("/locations/:id/capacity", h.DeleteOverride)
	app.Get("/locations/:id/capacity/manual", h.ListOverrides)
	return app, db, loc
}

func ngoCaller(ngoID uuid.UUID) map[string]interface{} {
	return map[string]interface{}{"user_id": uuid.NewString(), "role": "ngo", "ngo_id": ngoID.String()}
}

func call(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

func TestGet_SingleMealAndDay(t *testing.T) {
	app, db, loc := setupCapacityHandlers(t, ngoCaller(uuid.New()))
	require.NoError(t, db.Create(&domain.DonationRequest{
		DonorID: uuid.New(), LocationID: loc.LocationID, DonationDate: domain.NewDate(2025, 3, 10),
		MealType: domain.Lunch, FoodType: "rice", Quantity: 30, Status: domain.StatusPending,
	}).Error)
	base := "/locations/" + loc.LocationID.String() + "/capacity?date=2025-03-10"

	status, out := call(t, app, "GET", base+"&meal_type=lunch", nil)
	require.Equal(t, fiber.StatusOK, status, out)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, float64(100), data["capacity"])
	assert.Equal(t, float64(70), data["available"])
	assert.Equal(t, float64(30), data["reserved"])
	assert.Equal(t, false, data["is_manual"])

	status, out = call(t, app, "GET", base, nil)
	require.Equal(t, fiber.StatusOK, status, out)
	meals := out["data"].(map[string]interface{})["meals"].([]interface{})
	assert.Len(t, meals, 4)

	status, _ = call(t, app, "GET", base+"&meal_type=brunch", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = call(t, app, "GET", "/locations/"+uuid.NewString()+"/capacity?date=2025-03-10&meal_type=lunch", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestCalendar_RangeValidation(t *testing.T) {
	app, _, loc := setupCapacityHandlers(t, ngoCaller(uuid.New()))
	base := "/locations/" + loc.LocationID.String() + "/availability"

	status, out := call(t, app, "GET", base+"?start=2025-03-10&end=2025-03-12", nil)
	require.Equal(t, fiber.StatusOK, status, out)
	assert.Len(t, out["data"].([]interface{}), 3)

	status, _ = call(t, app, "GET", base+"?start=2025-03-12&end=2025-03-10", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = call(t, app, "GET", base+"?start=2025-01-01&end=2025-12-31", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestOverrides_OwnerFlow(t *testing.T) {
	ngoID := uuid.MustParse("7f1d3a52-2c1e-4d7a-9a57-0c2a8b1e6f10")
	app, _, loc := setupCapacityHandlers(t, ngoCaller(ngoID))
	base := "/locations/" + loc.LocationID.String() + "/capacity"

	status, out := call(t, app, "POST", base, map[string]interface{}{
		"date": "2025-03-10", "meal_type": "lunch", "capacity": 0, "notes": "closed",
	})
	require.Equal(t, fiber.StatusOK, status, out)

	status, out = call(t, app, "GET", base+"?date=2025-03-10&meal_type=lunch", nil)
	require.Equal(t, fiber.StatusOK, status)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, float64(0), data["capacity"])
	assert.Equal(t, true, data["is_manual"])

	status, out = call(t, app, "POST", base+"/bulk", map[string]interface{}{
		"start_date": "2025-03-11", "end_date": "2025-03-14", "meal_type": "dinner", "capacity": 25,
	})
	require.Equal(t, fiber.StatusOK, status, out)
	assert.Equal(t, float64(4), out["data"].(map[string]interface{})["days_updated"])

	status, out = call(t, app, "GET", base+"/manual", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, out["data"].([]interface{}), 5)

	status, _ = call(t, app, "DELETE", base+"?date=2025-03-10&meal_type=lunch", nil)
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = call(t, app, "DELETE", base+"?date=2025-03-10&meal_type=lunch", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestOverrides_ValidationAndOwnership(t *testing.T) {
	app, _, loc := setupCapacityHandlers(t, ngoCaller(uuid.New()))
	base := "/locations/" + loc.LocationID.String() + "/capacity"

	status, _ := call(t, app, "POST", base, map[string]interface{}{
		"date": "2025-03-10", "meal_type": "lunch", "capacity": 10,
	})
	assert.Equal(t, fiber.StatusForbidden, status)

	ngoID := uuid.MustParse("7f1d3a52-2c1e-4d7a-9a57-0c2a8b1e6f10")
	app, _, loc = setupCapacityHandlers(t, ngoCaller(ngoID))
	base = "/locations/" + loc.LocationID.String() + "/capacity"
	status, out := call(t, app, "POST", base, map[string]interface{}{
		"date": "2025-03-10", "meal_type": "lunch", "capacity": -1,
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	details := out["error"].(map[string]interface{})["details"].(map[string]interface{})
	assert.Equal(t, "gte=0", details["capacity"])
}

func TestAvailableLocations_MinFilter(t *testing.T) {
	ngoID := uuid.MustParse("7f1d3a52-2c1e-4d7a-9a57-0c2a8b1e6f10")
	app, _, loc := setupCapacityHandlers(t, ngoCaller(uuid.New()))
	base := "/ngos/" + ngoID.String() + "/available-locations?date=2025-03-10&meal_type=dinner"

	status, out := call(t, app, "GET", base, nil)
	require.Equal(t, fiber.StatusOK, status, out)
	list := out["data"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, loc.LocationID.String(), list[0].(map[string]interface{})["location"].(map[string]interface{})["location_id"])

	status, out = call(t, app, "GET", base+"&min=41", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, out["data"])

	status, _ = call(t, app, "GET", base+"&min=abc", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}
