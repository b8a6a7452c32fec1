package middleware

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Sessions are issued by the identity service (connect-redis format); this service only reads them.
const (
	SessionCookieName  = "plates.sid"
	SessionRedisPrefix = "session:"
)

// NewRedis parses a redis:// URL into a client.
func NewRedis(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

// Session loads the session user from Redis into Locals("user"). Missing or unreadable
// sessions leave the request anonymous; RequireAuth decides what that means.
func Session(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Cookies(SessionCookieName)
		// Cookie may be "s:id" or "s:id.signature"; use first part as id
		if strings.HasPrefix(sessionID, "s:") {
			parts := strings.SplitN(sessionID[2:], ".", 2)
			sessionID = parts[0]
		}
		c.Locals(userLocal, nil)
		if sessionID == "" {
			return c.Next()
		}

		b, err := rdb.Get(c.UserContext(), SessionRedisPrefix+sessionID).Bytes()
		if err != nil {
			if err != redis.Nil {
				log.Warn().Err(err).Str("trace_id", GetTraceID(c)).Msg("session lookup failed")
			}
			return c.Next()
		}
		var data map[string]interface{}
		if err := json.Unmarshal(b, &data); err != nil {
			log.Warn().Err(err).Str("trace_id", GetTraceID(c)).Msg("session payload unreadable")
			return c.Next()
		}
		if u, ok := data["user"].(map[string]interface{}); ok {
			c.Locals(userLocal, u)
		}
		return c.Next()
	}
}
