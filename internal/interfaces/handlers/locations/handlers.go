package locations

import (
	"strconv"

	locsvc "plates-backend/internal/application/locations"
	"plates-backend/internal/domain"
	"plates-backend/internal/middleware"
	"plates-backend/internal/pkg/response"
	"plates-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *locsvc.Service
}

type createLocationRequest struct {
	NGOID        string         `json:"ngo_id" validate:"omitempty,uuid"`
	LocationName string         `json:"location_name" validate:"required,max=255"`
	AddressLine1 string         `json:"address_line1" validate:"required"`
	AddressLine2 *string        `json:"address_line2"`
	City         string         `json:"city" validate:"required"`
	State        string         `json:"state"`
	ZipCode      string         `json:"zip_code"`
	Country      string         `json:"country"`
	Latitude     float64        `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64        `json:"longitude" validate:"gte=-180,lte=180"`
	ContactPhone *string        `json:"contact_phone"`
	ContactEmail *string        `json:"contact_email" validate:"omitempty,email"`
	Defaults     map[string]int `json:"default_capacities"`
}

type updateLocationRequest struct {
	LocationName *string  `json:"location_name" validate:"omitempty,max=255"`
	AddressLine1 *string  `json:"address_line1"`
	AddressLine2 *string  `json:"address_line2"`
	City         *string  `json:"city"`
	State        *string  `json:"state"`
	ZipCode      *string  `json:"zip_code"`
	Country      *string  `json:"country"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	ContactPhone *string  `json:"contact_phone"`
	ContactEmail *string  `json:"contact_email" validate:"omitempty,email"`
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

func parseDefaults(in map[string]int) (map[domain.MealType]int, error) {
	out := make(map[domain.MealType]int, len(in))
	for k, v := range in {
		m, err := domain.ParseMealType(k)
		if err != nil {
			return nil, err
		}
		out[m] = v
	}
	return out, nil
}

// POST /api/v1/locations: NGO registers a location; admin may pass ngo_id.
func (h *Handlers) Create(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)
	var req createLocationRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	if fields, err := validation.Struct(&req); err != nil {
		return response.BadRequest(c, err.Error(), fields)
	}

	ngoID := user.NGOID
	if user.IsAdmin() && req.NGOID != "" {
		ngoID = uuid.MustParse(req.NGOID)
	}
	if ngoID == uuid.Nil {
		return response.Forbidden(c, "Account is not associated with an NGO")
	}
	defaults, err := parseDefaults(req.Defaults)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}

	loc, err := h.Service.Create(c.UserContext(), locsvc.CreateInput{
		NGOID:        ngoID,
		LocationName: req.LocationName,
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		City:         req.City,
		State:        req.State,
		ZipCode:      req.ZipCode,
		Country:      req.Country,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		ContactPhone: req.ContactPhone,
		ContactEmail: req.ContactEmail,
		Defaults:     defaults,
	})
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.SuccessCreated(c, "Location created successfully", loc, nil)
}

// GET /api/v1/locations?include_inactive=true: the caller's NGO locations (admin: ?ngo_id=).
func (h *Handlers) List(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)
	ngoID := user.NGOID
	if s := c.Query("ngo_id"); s != "" {
		id, err := validation.UUIDParam("ngo_id", s)
		if err != nil {
			return middleware.ErrorHandler(c, err)
		}
		ngoID = id
	}
	if ngoID == uuid.Nil {
		return response.BadRequest(c, "ngo_id is required", nil)
	}
	includeInactive, _ := strconv.ParseBool(c.Query("include_inactive"))
	if includeInactive && !user.ManagesNGO(ngoID) {
		includeInactive = false
	}
	locs, err := h.Service.ListByNGO(c.UserContext(), ngoID, includeInactive)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Locations fetched successfully", locs, fiber.Map{"count": len(locs)})
}

// GET /api/v1/locations/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := validation.UUIDParam("location id", c.Params("id"))
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	loc, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Location fetched successfully", fiber.Map{
		"location": loc,
		"defaults": loc.Defaults(),
	}, nil)
}

// owned loads the :id location and checks the caller manages it.
func (h *Handlers) owned(c *fiber.Ctx) (*domain.Location, error) {
	id, err := validation.UUIDParam("location id", c.Params("id"))
	if err != nil {
		return nil, err
	}
	loc, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	user, _ := middleware.CurrentUser(c)
	if !user.ManagesNGO(loc.NGOID) {
		return nil, fiber.NewError(fiber.StatusForbidden, "You do not manage this location")
	}
	return loc, nil
}

// PUT /api/v1/locations/:id/defaults: body {"lunch": 100, "dinner": 80}
func (h *Handlers) SetDefaults(c *fiber.Ctx) error {
	loc, err := h.owned(c)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	var body map[string]int
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	defaults, err := parseDefaults(body)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	updated, err := h.Service.SetDefaults(c.UserContext(), loc.LocationID, defaults)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Default capacities updated", fiber.Map{
		"location": updated,
		"defaults": updated.Defaults(),
	}, nil)
}

// PATCH /api/v1/locations/:id/active: body {"is_active": false}
func (h *Handlers) SetActive(c *fiber.Ctx) error {
	loc, err := h.owned(c)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	var req setActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	if fields, err := validation.Struct(&req); err != nil {
		return response.BadRequest(c, err.Error(), fields)
	}
	updated, err := h.Service.SetActive(c.UserContext(), loc.LocationID, *req.IsActive)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Location updated", updated, nil)
}

// PUT /api/v1/locations/:id: partial update of the descriptive fields.
func (h *Handlers) Update(c *fiber.Ctx) error {
	loc, err := h.owned(c)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	var req updateLocationRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	if fields, err := validation.Struct(&req); err != nil {
		return response.BadRequest(c, err.Error(), fields)
	}
	updated, err := h.Service.Update(c.UserContext(), loc.LocationID, locsvc.UpdateInput{
		LocationName: req.LocationName,
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		City:         req.City,
		State:        req.State,
		ZipCode:      req.ZipCode,
		Country:      req.Country,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		ContactPhone: req.ContactPhone,
		ContactEmail: req.ContactEmail,
	})
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Location updated", updated, nil)
}

// DELETE /api/v1/locations/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	loc, err := h.owned(c)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	if err := h.Service.Delete(c.UserContext(), loc.LocationID); err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Location deleted", nil, nil)
}
