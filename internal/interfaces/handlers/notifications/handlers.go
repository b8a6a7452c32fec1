package notifications

import (
	"strconv"

	notifsvc "plates-backend/internal/application/notifications"
	"plates-backend/internal/middleware"
	"plates-backend/internal/pkg/response"
	"plates-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *notifsvc.Service
}

// GET /api/v1/notifications?unread_only=true&limit=50&skip=0
func (h *Handlers) List(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)
	unreadOnly, _ := strconv.ParseBool(c.Query("unread_only"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	skip, _ := strconv.Atoi(c.Query("skip"))
	res, err := h.Service.List(c.UserContext(), user.Recipients(), unreadOnly, limit, skip)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Notifications fetched successfully", res, nil)
}

// PUT /api/v1/notifications/:id/read
func (h *Handlers) MarkRead(c *fiber.Ctx) error {
	id, err := validation.UUIDParam("notification id", c.Params("id"))
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	user, _ := middleware.CurrentUser(c)
	n, err := h.Service.MarkRead(c.UserContext(), user.Recipients(), id)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Notification marked as read", n, nil)
}

// PUT /api/v1/notifications/read-all
func (h *Handlers) MarkAllRead(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)
	count, err := h.Service.MarkAllRead(c.UserContext(), user.Recipients())
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "All notifications marked as read", fiber.Map{"updated": count}, nil)
}

// DELETE /api/v1/notifications/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, err := validation.UUIDParam("notification id", c.Params("id"))
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	user, _ := middleware.CurrentUser(c)
	if err := h.Service.Delete(c.UserContext(), user.Recipients(), id); err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Notification deleted", nil, nil)
}

// DELETE /api/v1/notifications/clear-all?read_only=false. Only read ones are cleared by default.
func (h *Handlers) ClearAll(c *fiber.Ctx) error {
	readOnly := true
	if s := c.Query("read_only"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return response.BadRequest(c, "read_only must be true or false", nil)
		}
		readOnly = v
	}
	user, _ := middleware.CurrentUser(c)
	count, err := h.Service.Clear(c.UserContext(), user.Recipients(), readOnly)
	if err != nil {
		return middleware.ErrorHandler(c, err)
	}
	return response.Success(c, "Notifications cleared", fiber.Map{"deleted": count}, nil)
}
