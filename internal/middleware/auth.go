package middleware

import (
	"plates-backend/internal/pkg/constants"
	"plates-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userLocal = "user"

// SessionUser is the caller identity carried in the session under "user".
type SessionUser struct {
	UserID uuid.UUID
	Role   string
	Email  string

	// NGOID is set for NGO accounts and names the NGO whose locations they manage.
	NGOID uuid.UUID
}

// Recipients lists every id notifications for this caller are addressed to.
func (u *SessionUser) Recipients() []uuid.UUID {
	ids := []uuid.UUID{u.UserID}
	if u.NGOID != uuid.Nil && u.NGOID != u.UserID {
		ids = append(ids, u.NGOID)
	}
	return ids
}

// RequireAuth ensures a valid user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := CurrentUser(c); !ok {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// RequireRole allows the request through only for the listed roles; admin always passes.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}
		if user.IsAdmin() {
			return c.Next()
		}
		for _, r := range roles {
			if user.Role == r {
				return c.Next()
			}
		}
		return response.Forbidden(c, "User is Forbidden from performing this action")
	}
}

// CurrentUser decodes the session user from Locals. ok is false when there is no user
// or its user_id is not a UUID.
func CurrentUser(c *fiber.Ctx) (*SessionUser, bool) {
	m, ok := c.Locals(userLocal).(map[string]interface{})
	if !ok {
		return nil, false
	}
	idStr, _ := m["user_id"].(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, false
	}
	u := &SessionUser{UserID: id}
	u.Role, _ = m["role"].(string)
	u.Email, _ = m["email"].(string)
	if s, ok := m["ngo_id"].(string); ok && s != "" {
		u.NGOID, _ = uuid.Parse(s)
	}
	return u, true
}

// IsAdmin reports whether the caller has the admin role.
func (u *SessionUser) IsAdmin() bool {
	return u.Role == constants.Admin
}

// ManagesNGO reports whether the caller may administer locations of ngoID.
func (u *SessionUser) ManagesNGO(ngoID uuid.UUID) bool {
	if u.IsAdmin() {
		return true
	}
	return u.Role == constants.NGO && u.NGOID != uuid.Nil && u.NGOID == ngoID
}
