package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sajidhasan/schooldesk-backend/internal/domain"
	"github.com/sajidhasan/schooldesk-backend/internal/repository/ports"
	"github.com/sajidhasan/schooldesk-backend/internal/service"
	"github.com/sajidhasan/schooldesk-backend/internal/util"
)

const (
	contextUserKey  = "schooldesk.user"
	contextTokenKey = "schooldesk.token"
)

func RequireAuth(auth *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if strings.TrimSpace(authHeader) == "" {
				return c.JSON(http.StatusUnauthorized, util.Error("missing authorization header"))
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return c.JSON(http.StatusUnauthorized, util.Error("invalid authorization header"))
			}
			token := strings.TrimSpace(parts[1])
			user, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, util.Error("invalid or expired session"))
			}
			c.Set(contextUserKey, user)
			c.Set(contextTokenKey, token)
			return next(c)
		}
	}
}

// RequireAdmin allows only privileged roles through. It must run after
// RequireAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get(contextUserKey).(*domain.UserAccount)
			if !ok || user == nil {
				return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
			}
			if !user.Role.Privileged() {
				return c.JSON(http.StatusForbidden, util.Error("admin privileges required"))
			}
			return next(c)
		}
	}
}

func CurrentUser(c echo.Context) (*domain.UserAccount, bool) {
	user, ok := c.Get(contextUserKey).(*domain.UserAccount)
	return user, ok
}

type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// checkRateLimit guards an OTP endpoint with a shared counter keyed by client
// IP, institution, scope and normalized identifier. This sits in front of the
// engine's own cooldown; both must pass. The limiter fails closed: if the
// backend is unreachable the request is denied, never waved through.
// stop is true when the response has been written and the handler must return
// err immediately without touching the service layer. c.JSON reports nil on a
// successful write, so the written response alone cannot signal denial.
func checkRateLimit(c echo.Context, limiter ports.RateLimiter, action, slug, scope, identifier string, cfg RateLimitConfig) (stop bool, err error) {
	key := fmt.Sprintf("otp:%s:%s:%s:%s:%s", action, c.RealIP(), slug, scope, identifier)

	allowed, err := limiter.Allow(c.Request().Context(), key, cfg.Limit, cfg.Window)
	if err != nil {
		c.Logger().Errorf("rate limiter unavailable: %v", err)
		return true, c.JSON(http.StatusServiceUnavailable, util.Error("service temporarily unavailable, try again shortly"))
	}
	if !allowed {
		return true, c.JSON(http.StatusTooManyRequests, util.Envelope{
			"error":               "too many requests",
			"retry_after_seconds": int(cfg.Window / time.Second),
		})
	}
	return false, nil
}
