package donations

import (
	"errors"

	donsvc "plates-backend/internal/application/donations"
	"plates-backend/internal/domain"
	"plates-backend/internal/middleware"
	"plates-backend/internal/pkg/response"
	"plates-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Handlers struct {
	Service *donsvc.Service
	// Rdb receives the capacity-reject counter reported by /health/json; optional.
	Rdb     *redis.Client
}

type createDonationRequest struct {
	LocationID          string  `json:"ngo_location_id" validate:"required,uuid"`
	DonationDate        string  `json:"donation_date" validate:"required,ymd"`
	MealType            string  `json:"meal_type" validate:"required,meal_type"`
	FoodType            string  `json:"food_type" validate:"required,max=255"`
	Quantity            int     `json:"quantity_plates" validate:"gt=0"`
	PickupTimeStart     string  `json:"pickup_time_start" validate:"omitempty,clock"`
	PickupTimeEnd       string  `json:"pickup_time_end" validate:"omitempty,clock"`
	Description         *string `json:"description"`
	SpecialInstructions *string `json:"special_instructions"`
}

type rejectRequest struct {
	Reason string `json:"rejection_reason" validate:"max=1000"`
}

// POST /api/v1/donations: donor reserves plates on a slot.
func (h *Handlers) Create(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)
	var req createDonationRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	if fields, err := validation.Struct(&req); err != nil {
		return response.BadRequest(c, err.Error(), fields)
	}
	if req.PickupTimeStart != "" && req.PickupTimeEnd != "" && req.PickupTimeEnd <= req.PickupTimeStart {
		return response.BadRequest(c, "pickup_time_end must be after pickup_time_start", nil)
	}
	date, _ := domain.ParseDate(req.DonationDate)
	meal, _ := domain.ParseMealType(req.MealType)

	var email *string
	if user.Email != "" {
		email = &user.Email
	}
	donation, err := h.Service.Create(c.UserContext(), donsvc.CreateInput{
		DonorID:             user.UserID,
		DonorEmail:          email,
		LocationID:          uuid.MustParse(req.LocationID),
		DonationDate:        date,
		MealType:            meal,
		FoodType:            req.FoodType,
		Quantity:            req.Quantity,
		PickupTimeStart:     req.PickupTimeStart,
		PickupTimeEnd:       req.PickupTimeEnd,
		Description:         req.Description,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCapacity) {
			middleware.MarkCapacityReject(c.UserContext(), h.Rdb)
		}
		return middleware.ErrorHandler(c, err)
	}
	return response.SuccessCreated(c, "Donation request created successfully", donation, nil)
}

// GET /api/v1/donations/mine?status=pending
func (h *Handlers) ListMine(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)
	list, err := h.Service.ListForDonor(c.UserContext(), user.UserID, c.Query("status"))
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Donations fetched successfully", list, fiber.Map{"count": len(list)})
}

// GET /api/v1/donations/ngo?status=pending: requests addressed to the caller's NGO.
func (h *Handlers) ListForNGO(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)
	ngoID := user.NGOID
	if user.IsAdmin() && c.Query("ngo_id") != "" {
		id, err := validation.UUIDParam("ngo_id", c.Query("ngo_id"))
		if err != nil {
			return middleware.ErrorHandler(c, err)
		}
		ngoID = id
	}
	if ngoID == uuid.Nil {
		return response.Forbidden(c, "Account is not associated with an NGO")
	}
	list, err := h.Service.ListForNGO(c.UserContext(), ngoID, c.Query("status"))
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Donations fetched successfully", list, fiber.Map{"count": len(list)})
}

// load fetches :id and checks the caller is a party to it. ngoOnly limits access to the
// NGO that owns the location.
func (h *Handlers) load(c *fiber.Ctx, ngoOnly bool) (*domain.DonationRequest, error) {
	id, err := validation.UUIDParam("donation id", c.Params("id"))
	if err != nil {
		return nil, err
	}
	d, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	user, _ := middleware.CurrentUser(c)
	managesLocation := d.Location != nil && user.ManagesNGO(d.Location.NGOID)
	if ngoOnly {
		if !managesLocation {
			return nil, fiber.NewError(fiber.StatusForbidden, "You do not manage this location")
		}
		return d, nil
	}
	if !managesLocation && d.DonorID != user.UserID {
		return nil, fiber.NewError(fiber.StatusForbidden, "You do not have access to this donation")
	}
	return d, nil
}

// GET /api/v1/donations/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	d, err := h.load(c, false)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	events, err := h.Service.Events(c.UserContext(), d.RequestID)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Donation fetched successfully", fiber.Map{
		"donation": d,
		"events":   events,
	}, nil)
}

// POST /api/v1/donations/:id/confirm
func (h *Handlers) Confirm(c *fiber.Ctx) error {
	d, err := h.load(c, true)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	user, _ := middleware.CurrentUser(c)
	out, err := h.Service.Confirm(c.UserContext(), d.RequestID, user.UserID)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Donation confirmed", out, nil)
}

// POST /api/v1/donations/:id/reject: body {"rejection_reason": "..."} optional.
func (h *Handlers) Reject(c *fiber.Ctx) error {
	d, err := h.load(c, true)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	var req rejectRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body", nil)
		}
		if fields, err := validation.Struct(&req); err != nil {
			return response.BadRequest(c, err.Error(), fields)
		}
	}
	user, _ := middleware.CurrentUser(c)
	out, err := h.Service.Reject(c.UserContext(), d.RequestID, user.UserID, req.Reason)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Donation rejected", out, nil)
}

// POST /api/v1/donations/:id/complete
func (h *Handlers) Complete(c *fiber.Ctx) error {
	d, err := h.load(c, true)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	user, _ := middleware.CurrentUser(c)
	out, err := h.Service.Complete(c.UserContext(), d.RequestID, user.UserID)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Donation marked as completed", out, nil)
}

// POST /api/v1/donations/:id/cancel: only the donor who made the request (or admin).
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	id, err := validation.UUIDParam("donation id", c.Params("id"))
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	d, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	user, _ := middleware.CurrentUser(c)
	if d.DonorID != user.UserID && !user.IsAdmin() {
		return response.Forbidden(c, "Only the donor can cancel this donation")
	}
	out, err := h.Service.Cancel(c.UserContext(), d.RequestID, user.UserID)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Donation cancelled", out, nil)
}
