package capacity

import (
	"strconv"

	capsvc "plates-backend/internal/application/capacity"
	locsvc "plates-backend/internal/application/locations"
	"plates-backend/internal/domain"
	"plates-backend/internal/middleware"
	"plates-backend/internal/pkg/response"
	"plates-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service   *capsvc.Service
	Locations *locsvc.Service
}

type setOverrideRequest struct {
	Date     string  `json:"date" validate:"required,ymd"`
	MealType string  `json:"meal_type" validate:"required,meal_type"`
	Capacity *int    `json:"capacity" validate:"required,gte=0"`
	Notes    *string `json:"notes" validate:"omitempty,max=500"`
}

type bulkOverrideRequest struct {
	StartDate string  `json:"start_date" validate:"required,ymd"`
	EndDate   string  `json:"end_date" validate:"required,ymd"`
	MealType  string  `json:"meal_type" validate:"required,meal_type"`
	Capacity  *int    `json:"capacity" validate:"required,gte=0"`
	Notes     *string `json:"notes" validate:"omitempty,max=500"`
}

func locationID(c *fiber.Ctx) (uuid.UUID, error) {
	return validation.UUIDParam("location id", c.Params("id"))
}

// GET /api/v1/locations/:id/capacity?date=YYYY-MM-DD[&meal_type=lunch]
// With meal_type: one slot. Without: all four meals of the date.
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := locationID(c)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	date, err := validation.DateParam("date", c.Query("date"))
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	if c.Query("meal_type") == "" {
		day, err := h.Service.DayAvailability(c.UserContext(), id, date)
		if err != nil {
			return middleware.ErrorHandler(c, err)
		}
		return response.Success(c, "Capacity fetched successfully", day, nil)
	}
	meal, err := validation.MealParam(c.Query("meal_type"))
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	a, err := h.Service.Availability(c.UserContext(), id, date, meal)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Capacity fetched successfully", a, nil)
}

// GET /api/v1/locations/:id/availability?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handlers) Calendar(c *fiber.Ctx) error {
	id, err := locationID(c)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	start, err := validation.DateParam("start", c.Query("start"))
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	end, err := validation.DateParam("end", c.Query("end"))
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	days, err := h.Service.RangeAvailability(c.UserContext(), id, start, end)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Availability fetched successfully", days, fiber.Map{
		"location_id": id,
		"start":       start,
		"end":         end,
		"days":        len(days),
	})
}

// GET /api/v1/ngos/:ngo_id/available-locations?date=&meal_type=&min=1
func (h *Handlers) AvailableLocations(c *fiber.Ctx) error {
	ngoID, err := validation.UUIDParam("ngo_id", c.Params("ngo_id"))
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	date, err := validation.DateParam("date", c.Query("date"))
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	meal, err := validation.MealParam(c.Query("meal_type"))
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	minPlates := 1
	if s := c.Query("min"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return response.BadRequest(c, "min must be an integer", nil)
		}
		minPlates = v
	}
	out, err := h.Service.AvailableLocations(c.UserContext(), ngoID, date, meal, minPlates)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Available locations fetched successfully", out, fiber.Map{"count": len(out)})
}

// managed resolves :id and checks the caller manages the owning NGO.
func (h *Handlers) managed(c *fiber.Ctx) (*domain.Location, error) {
	id, err := locationID(c)
	if err != nil {
		return nil, err
	}
	loc, err := h.Locations.Get(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	user, _ := middleware.CurrentUser(c)
	if !user.ManagesNGO(loc.NGOID) {
		return nil, fiber.NewError(fiber.StatusForbidden, "You do not manage this location")
	}
	return loc, nil
}

// POST /api/v1/locations/:id/capacity: create or replace a manual override.
func (h *Handlers) SetOverride(c *fiber.Ctx) error {
	loc, err := h.managed(c)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	var req setOverrideRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	if fields, err := validation.Struct(&req); err != nil {
		return response.BadRequest(c, err.Error(), fields)
	}
	date, _ := domain.ParseDate(req.Date)
	meal, _ := domain.ParseMealType(req.MealType)

	o, err := h.Service.SetOverride(c.UserContext(), capsvc.SetOverrideInput{
		LocationID: loc.LocationID,
		Date:       date,
		MealType:   meal,
		Capacity:   *req.Capacity,
		Notes:      req.Notes,
	})
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Capacity set successfully", o, nil)
}

// POST /api/v1/locations/:id/capacity/bulk: same override for one meal over a date range.
func (h *Handlers) BulkSetOverride(c *fiber.Ctx) error {
	loc, err := h.managed(c)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	var req bulkOverrideRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	if fields, err := validation.Struct(&req); err != nil {
		return response.BadRequest(c, err.Error(), fields)
	}
	start, _ := domain.ParseDate(req.StartDate)
	end, _ := domain.ParseDate(req.EndDate)
	meal, _ := domain.ParseMealType(req.MealType)

	n, err := h.Service.BulkSetOverride(c.UserContext(), capsvc.BulkSetOverrideInput{
		LocationID: loc.LocationID,
		StartDate:  start,
		EndDate:    end,
		MealType:   meal,
		Capacity:   *req.Capacity,
		Notes:      req.Notes,
	})
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Capacity set for "+strconv.Itoa(n)+" days", fiber.Map{"days_updated": n}, nil)
}

// DELETE /api/v1/locations/:id/capacity?date=&meal_type=: revert the slot to the location default.
func (h *Handlers) DeleteOverride(c *fiber.Ctx) error {
	loc, err := h.managed(c)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	date, err := validation.DateParam("date", c.Query("date"))
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	meal, err := validation.MealParam(c.Query("meal_type"))
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	deleted, err := h.Service.DeleteOverride(c.UserContext(), loc.LocationID, date, meal)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	if !deleted {
		return response.Error(c, "No manual capacity set for this slot", fiber.StatusNotFound, nil)
	}
	return response.Success(c, "Manual capacity removed; default applies", fiber.Map{"deleted": true}, nil)
}

// GET /api/v1/locations/:id/capacity/manual
func (h *Handlers) ListOverrides(c *fiber.Ctx) error {
	loc, err := h.managed(c)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	list, err := h.Service.ListOverrides(c.UserContext(), loc.LocationID)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Manual capacities fetched successfully", list, fiber.Map{"count": len(list)})
}
