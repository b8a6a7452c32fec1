package router

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"plates-backend/internal/config"
	"plates-backend/internal/domain"
	"plates-backend/internal/infrastructure/database"
	"plates-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
}

func setupApp(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	app := CreateApp(Deps{
		Config: &config.Config{Env: "test", HealthAdminKey: "k", MaxRangeDays: 31},
		DB:     db,
		Rdb:    rdb,
	})
	return &testEnv{app: app, db: db, mr: mr}
}

func (e *testEnv) login(t *testing.T, sid string, user map[string]interface{}) {
	b, err := json.Marshal(map[string]interface{}{"user": user})
	require.NoError(t, err)
	require.NoError(t, e.mr.Set(middleware.SessionRedisPrefix+sid, string(b)))
}

func (e *testEnv) call(t *testing.T, sid, method, path string, body interface{}) (int, map[string]interface{}) {
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
	if sid != "" {
		req.Header.Set("Cookie", middleware.SessionCookieName+"=s:"+sid+".sig")
	}
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

func TestHealthAndAuthGate(t *testing.T) {
	e := setupApp(t)

	status, out := e.call(t, "", "GET", "/health/json", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "plates-backend", out["service"])

	status, _ = e.call(t, "", "GET", "/api/v1/notifications", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	e.login(t, "donor", map[string]interface{}{"user_id": uuid.NewString(), "role": "donor"})
	status, _ = e.call(t, "donor", "POST", "/api/v1/locations", map[string]interface{}{"location_name": "x"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, out = e.call(t, "donor", "GET", "/api/v1/nowhere", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "error", out["status"])
}

func TestDonationFlowAcrossRoles(t *testing.T) {
	e := setupApp(t)
	ngoID := uuid.New()
	donorID := uuid.New()
	e.login(t, "ngo", map[string]interface{}{"user_id": uuid.NewString(), "role": "ngo", "ngo_id": ngoID.String()})
	e.login(t, "donor", map[string]interface{}{"user_id": donorID.String(), "role": "donor", "email": "d@example.com"})

	status, out := e.call(t, "ngo", "POST", "/api/v1/locations", map[string]interface{}{
		"location_name":      "Shelter A",
		"address_line1":      "1 Main St",
		"city":               "Pune",
		"default_capacities": map[string]int{"dinner": 40},
	})
	require.Equal(t, fiber.StatusCreated, status, out)
	locID := out["data"].(map[string]interface{})["location_id"].(string)

	status, out = e.call(t, "donor", "POST", "/api/v1/donations", map[string]interface{}{
		"ngo_location_id": locID,
		"donation_date":   "2025-06-01",
		"meal_type":       "dinner",
		"food_type":       "chapati",
		"quantity_plates": 25,
	})
	require.Equal(t, fiber.StatusCreated, status, out)
	donationID := out["data"].(map[string]interface{})["id"].(string)

	status, out = e.call(t, "donor", "GET", "/api/v1/locations/"+locID+"/capacity?date=2025-06-01&meal_type=dinner", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(15), out["data"].(map[string]interface{})["available"])

	status, out = e.call(t, "ngo", "GET", "/api/v1/notifications", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), out["data"].(map[string]interface{})["unread_count"])

	status, _ = e.call(t, "donor", "POST", "/api/v1/donations/"+donationID+"/confirm", nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, out = e.call(t, "ngo", "POST", "/api/v1/donations/"+donationID+"/reject", map[string]interface{}{"rejection_reason": "full"})
	require.Equal(t, fiber.StatusOK, status, out)

	status, out = e.call(t, "donor", "GET", "/api/v1/locations/"+locID+"/capacity?date=2025-06-01&meal_type=dinner", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(40), out["data"].(map[string]interface{})["available"])

	status, out = e.call(t, "donor", "GET", "/api/v1/notifications", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), out["data"].(map[string]interface{})["total"])

	var stored domain.DonationRequest
	require.NoError(t, e.db.First(&stored, "request_id = ?", donationID).Error)
	assert.Equal(t, domain.StatusRejected, stored.Status)

	status, _ = e.call(t, "donor", "GET", "/api/v1/locations/"+locID+"/availability?start=2025-06-01&end=2025-07-15", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = e.call(t, "ngo", "DELETE", "/api/v1/locations/"+locID, nil)
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestRatingAfterCompletion(t *testing.T) {
	e := setupApp(t)
	ngoID := uuid.New()
	e.login(t, "ngo", map[string]interface{}{"user_id": uuid.NewString(), "role": "ngo", "ngo_id": ngoID.String()})
	e.login(t, "donor", map[string]interface{}{"user_id": uuid.NewString(), "role": "donor"})

	status, out := e.call(t, "ngo", "POST", "/api/v1/locations", map[string]interface{}{
		"location_name":      "Shelter B",
		"address_line1":      "2 Main St",
		"city":               "Pune",
		"default_capacities": map[string]int{"lunch": 40},
	})
	require.Equal(t, fiber.StatusCreated, status, out)
	locID := out["data"].(map[string]interface{})["location_id"].(string)

	status, out = e.call(t, "donor", "POST", "/api/v1/donations", map[string]interface{}{
		"ngo_location_id": locID,
		"donation_date":   "2025-06-02",
		"meal_type":       "lunch",
		"food_type":       "biryani",
		"quantity_plates": 10,
	})
	require.Equal(t, fiber.StatusCreated, status, out)
	donationID := out["data"].(map[string]interface{})["id"].(string)

	status, _ = e.call(t, "donor", "POST", "/api/v1/ratings", map[string]interface{}{"donation_request_id": donationID, "rating": 5})
	assert.Equal(t, fiber.StatusBadRequest, status)

	for _, step := range []string{"confirm", "complete"} {
		status, out = e.call(t, "ngo", "POST", "/api/v1/donations/"+donationID+"/"+step, nil)
		require.Equal(t, fiber.StatusOK, status, out)
	}

	status, out = e.call(t, "donor", "POST", "/api/v1/ratings", map[string]interface{}{"donation_request_id": donationID, "rating": 5})
	require.Equal(t, fiber.StatusCreated, status, out)

	status, out = e.call(t, "ngo", "GET", "/api/v1/notifications", nil)
	require.Equal(t, fiber.StatusOK, status)
	kinds := []string{}
	for _, n := range out["data"].(map[string]interface{})["notifications"].([]interface{}) {
		kinds = append(kinds, n.(map[string]interface{})["notification_type"].(string))
	}
	assert.Contains(t, kinds, domain.NotifyRatingReceived)

	status, out = e.call(t, "ngo", "DELETE", "/api/v1/notifications/clear-all?read_only=false", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(len(kinds)), out["data"].(map[string]interface{})["deleted"])

	status, out = e.call(t, "donor", "GET", "/api/v1/ratings/ngo/"+ngoID.String()+"/average", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(5), out["data"].(map[string]interface{})["average_rating"])
}
