package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sajidhasan/schooldesk-backend/internal/domain"
	"github.com/sajidhasan/schooldesk-backend/internal/repository/ports"
	"github.com/sajidhasan/schooldesk-backend/internal/service"
	"github.com/sajidhasan/schooldesk-backend/internal/util"
)

type AuthHandler struct {
	auth      *service.AuthService
	limiter   ports.RateLimiter
	sendRate  RateLimitConfig
	checkRate RateLimitConfig
}

type AuthHandlerConfig struct {
	SendRate  RateLimitConfig
	CheckRate RateLimitConfig
}

func RegisterAuth(e *echo.Echo, auth *service.AuthService, limiter ports.RateLimiter, cfg AuthHandlerConfig) {
	handler := &AuthHandler{
		auth:      auth,
		limiter:   limiter,
		sendRate:  cfg.SendRate,
		checkRate: cfg.CheckRate,
	}

	group := e.Group("/api/v1/auth")
	group.POST("/otp/send", handler.sendCode)
	group.POST("/otp/verify", handler.verifyCode)
	group.POST("/login", handler.passwordLogin)
	group.POST("/google", handler.googleLogin)
}

func (h *AuthHandler) sendCode(c echo.Context) error {
	var req OtpSendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	slug := strings.TrimSpace(req.InstitutionSlug)
	scope := domain.LoginScope(strings.ToUpper(strings.TrimSpace(req.Scope)))
	if slug == "" || !scope.IsValid() {
		return c.JSON(http.StatusBadRequest, util.Error("institution_slug and a valid scope are required"))
	}
	phone := util.NormalizePhone(req.Phone)
	if phone == "" {
		return c.JSON(http.StatusBadRequest, util.Error("phone is not a valid number"))
	}

	if stop, err := checkRateLimit(c, h.limiter, "send", slug, string(scope), phone, h.sendRate); stop {
		return err
	}

	result, err := h.auth.SendLoginCode(c.Request().Context(), slug, scope, req.Phone)
	if err != nil {
		return h.mapAuthError(c, err)
	}

	// Unknown phone answers exactly like a successful send so the endpoint
	// cannot be used to enumerate registered numbers.
	if result.AccountMissing {
		return c.JSON(http.StatusOK, OtpSendResponse{
			Sent:    true,
			Message: "if an account exists for this number, a code has been sent",
		})
	}

	otp := result.Otp
	if !otp.Sent {
		return c.JSON(http.StatusTooManyRequests, OtpSendResponse{
			ChallengeID:     otp.ChallengeID.String(),
			Sent:            false,
			CooldownSeconds: otp.CooldownSeconds,
			Message:         "a code was sent recently, wait before requesting another",
		})
	}
	return c.JSON(http.StatusOK, OtpSendResponse{
		ChallengeID:     otp.ChallengeID.String(),
		Sent:            true,
		CooldownSeconds: otp.CooldownSeconds,
		DevOtp:          otp.DevCode,
	})
}

func (h *AuthHandler) verifyCode(c echo.Context) error {
	var req OtpVerifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	slug := strings.TrimSpace(req.InstitutionSlug)
	scope := domain.LoginScope(strings.ToUpper(strings.TrimSpace(req.Scope)))
	if slug == "" || !scope.IsValid() {
		return c.JSON(http.StatusBadRequest, util.Error("institution_slug and a valid scope are required"))
	}
	phone := util.NormalizePhone(req.Phone)
	if phone == "" {
		return c.JSON(http.StatusBadRequest, util.Error("phone is not a valid number"))
	}
	challengeID, err := uuid.Parse(strings.TrimSpace(req.ChallengeID))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("challenge_id must be a valid UUID"))
	}
	if strings.TrimSpace(req.Code) == "" {
		return c.JSON(http.StatusBadRequest, util.Error("code is required"))
	}

	if stop, err := checkRateLimit(c, h.limiter, "verify", slug, string(scope), phone, h.checkRate); stop {
		return err
	}

	session, err := h.auth.VerifyLoginCode(c.Request().Context(), slug, scope, req.Phone, challengeID, req.Code)
	if err != nil {
		return h.mapVerifyError(c, err)
	}
	return c.JSON(http.StatusOK, sessionResponse(session))
}

func (h *AuthHandler) passwordLogin(c echo.Context) error {
	var req PasswordLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, util.Error("email and password are required"))
	}

	session, err := h.auth.LoginWithPassword(c.Request().Context(), strings.TrimSpace(req.InstitutionSlug), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrPasswordLoginDisabled):
			return c.JSON(http.StatusUnauthorized, util.Error("invalid credentials"))
		default:
			return h.mapAuthError(c, err)
		}
	}
	return c.JSON(http.StatusOK, sessionResponse(session))
}

func (h *AuthHandler) googleLogin(c echo.Context) error {
	var req GoogleLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if strings.TrimSpace(req.IDToken) == "" {
		return c.JSON(http.StatusBadRequest, util.Error("id_token is required"))
	}

	session, err := h.auth.LoginWithGoogle(c.Request().Context(), strings.TrimSpace(req.InstitutionSlug), req.IDToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGoogleTokenInvalid), errors.Is(err, service.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, util.Error("invalid credentials"))
		default:
			return h.mapAuthError(c, err)
		}
	}
	return c.JSON(http.StatusOK, sessionResponse(session))
}

// mapAuthError covers failures shared by every auth entry point.
func (h *AuthHandler) mapAuthError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInstitutionNotFound):
		return c.JSON(http.StatusNotFound, util.Error("institution not found"))
	case errors.Is(err, service.ErrInstitutionSuspended):
		return c.JSON(http.StatusForbidden, util.Error("institution suspended"))
	case errors.Is(err, service.ErrInvalidPhone), errors.Is(err, service.ErrInvalidScope):
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	case errors.Is(err, service.ErrAccountPending):
		return c.JSON(http.StatusForbidden, util.Error("account is pending approval"))
	case errors.Is(err, service.ErrAccountRejected):
		return c.JSON(http.StatusForbidden, util.Error("account was rejected"))
	case errors.Is(err, service.ErrAccountDisabled):
		return c.JSON(http.StatusForbidden, util.Error("account is disabled"))
	case errors.Is(err, service.ErrDeliveryFailed):
		return c.JSON(http.StatusBadGateway, util.Error("could not send verification code"))
	default:
		return c.JSON(http.StatusInternalServerError, util.Error("internal error"))
	}
}

// mapVerifyError maps each engine reason to a distinct status. NOT_FOUND and
// INVALID_CODE share one generic message so the response cannot reveal
// whether a challenge exists for someone else's phone.
func (h *AuthHandler) mapVerifyError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrChallengeExpired):
		return c.JSON(http.StatusGone, util.Error("code expired, request a new one"))
	case errors.Is(err, service.ErrChallengeLocked):
		return c.JSON(http.StatusTooManyRequests, util.Error("too many wrong attempts, request a new code"))
	case errors.Is(err, service.ErrChallengeUsed):
		return c.JSON(http.StatusBadRequest, util.Error("this code was already used"))
	case errors.Is(err, service.ErrChallengeNotFound), errors.Is(err, service.ErrCodeInvalid):
		return c.JSON(http.StatusBadRequest, util.Error("invalid code"))
	case errors.Is(err, service.ErrAuthenticationFailed):
		return c.JSON(http.StatusUnauthorized, util.Error("authentication failed"))
	default:
		return h.mapAuthError(c, err)
	}
}

func sessionResponse(session *service.AuthSession) SessionResponse {
	resp := SessionResponse{
		Verified:  true,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User: SessionUser{
			ID:            session.User.ID.String(),
			InstitutionID: session.User.InstitutionID.String(),
			Email:         session.User.Email,
			Phone:         session.User.Phone,
			FullName:      session.User.FullName,
			Role:          string(session.User.Role),
		},
	}
	if session.ChallengeID != uuid.Nil {
		resp.ChallengeID = session.ChallengeID.String()
	}
	return resp
}
