package ratings

import (
	"strconv"

	donsvc "plates-backend/internal/application/donations"
	ratingsvc "plates-backend/internal/application/ratings"
	"plates-backend/internal/middleware"
	"plates-backend/internal/pkg/response"
	"plates-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service   *ratingsvc.Service
	Donations *donsvc.Service
}

type createRatingRequest struct {
	RequestID string `json:"donation_request_id" validate:"required,uuid"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Feedback  string `json:"feedback" validate:"max=2000"`
}

// POST /api/v1/ratings: donor rates one of their completed donations.
func (h *Handlers) Create(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)
	var req createRatingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	if fields, err := validation.Struct(&req); err != nil {
		return response.BadRequest(c, err.Error(), fields)
	}
	r, err := h.Service.Create(c.UserContext(), ratingsvc.CreateInput{
		RequestID: uuid.MustParse(req.RequestID),
		DonorID:   user.UserID,
		Rating:    req.Rating,
		Feedback:  req.Feedback,
	})
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.SuccessCreated(c, "Rating submitted successfully", r, nil)
}

// GET /api/v1/ratings/mine
func (h *Handlers) ListMine(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)
	list, err := h.Service.ListForDonor(c.UserContext(), user.UserID)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Ratings fetched successfully", list, fiber.Map{"count": len(list)})
}

// GET /api/v1/ratings/ngo/:ngo_id?limit=10
func (h *Handlers) NGOSummary(c *fiber.Ctx) error {
	ngoID, err := validation.UUIDParam("ngo_id", c.Params("ngo_id"))
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	sum, err := h.Service.NGOSummary(c.UserContext(), ngoID, limit)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "NGO ratings fetched successfully", sum, nil)
}

// GET /api/v1/ratings/ngo/:ngo_id/average
func (h *Handlers) NGOAverage(c *fiber.Ctx) error {
	ngoID, err := validation.UUIDParam("ngo_id", c.Params("ngo_id"))
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	avg, err := h.Service.NGOAverage(c.UserContext(), ngoID)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "NGO average rating fetched successfully", avg, nil)
}

// GET /api/v1/ratings/donation/:id: visible to the donor, the receiving NGO and admins.
// data is null when the donation has not been rated.
func (h *Handlers) ForDonation(c *fiber.Ctx) error {
	id, err := validation.UUIDParam("donation id", c.Params("id"))
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	d, err := h.Donations.Get(c.UserContext(), id)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	user, _ := middleware.CurrentUser(c)
	managesLocation := d.Location != nil && user.ManagesNGO(d.Location.NGOID)
	if !managesLocation && d.DonorID != user.UserID {
		return response.Forbidden(c, "You do not have access to this donation")
	}
	r, err := h.Service.ForRequest(c.UserContext(), id)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Rating fetched successfully", r, nil)
}

// DELETE /api/v1/ratings/:id: the rating donor or an admin.
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, err := validation.UUIDParam("rating id", c.Params("id"))
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	user, _ := middleware.CurrentUser(c)
	if err := h.Service.Delete(c.UserContext(), id, user.UserID, user.IsAdmin()); err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Rating deleted", nil, nil)
}
