package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"storefront/internal/auth"
	apperrors "storefront/internal/errors"
	"storefront/internal/service"
)

const (
	stateCookieName = "oauth_state"
	stateCookieTTL  = 10 * time.Minute

	loginFailedMessage = "Login failed!"
)

// ExternalProvider is an OAuth identity provider.
type ExternalProvider interface {
	AuthCodeURL(state string) string
	Authenticate(ctx context.Context, code string) (service.ExternalProfile, error)
}

// AuthHandler handles session endpoints: signup, login, logout, the current
// principal and external identity delegation.
type AuthHandler struct {
	credentials service.CredentialService
	tokens      *auth.TokenService
	cookie      *auth.SessionCookie
	provider    ExternalProvider
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler. provider may be nil when no
// external identity provider is configured.
func NewAuthHandler(credentials service.CredentialService, tokens *auth.TokenService, cookie *auth.SessionCookie, provider ExternalProvider, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		credentials: credentials,
		tokens:      tokens,
		cookie:      cookie,
		provider:    provider,
		logger:      logger.With("component", "auth_handler"),
	}
}

// ExternalEnabled reports whether the external identity routes should be mounted.
func (h *AuthHandler) ExternalEnabled() bool {
	return h.provider != nil
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
	Email     string `json:"email" form:"email" validate:"omitempty,email"`
	Password  string `json:"password" form:"password"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Register godoc
// @Summary Register a new user
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} SuccessResponse{payload=model.UserSummary}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /sessions/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.credentials.Register(c.Request().Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		if wantsHTML(c) && isClientError(err) {
			return redirectWithError(c, "/register", err.Error())
		}
		return err
	}

	if wantsHTML(c) {
		return c.Redirect(http.StatusFound, "/login")
	}
	return respond(c, http.StatusCreated, user.Summary())
}

// Login godoc
// @Summary Log in with email and password
// @Description Sets the currentUser session cookie. Browsers (Accept: text/html) are redirected.
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} SuccessResponse{payload=auth.Principal}
// @Success 302 "redirect to /current"
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /sessions/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	principal, err := h.credentials.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) && wantsHTML(c) {
			return redirectWithError(c, "/login", loginFailedMessage)
		}
		return err
	}
	return h.startSession(c, principal)
}

// Logout godoc
// @Summary Log out
// @Description Clears the session cookie. Safe to call without a session.
// @Tags sessions
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /sessions/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	h.cookie.Clear(c)
	if wantsHTML(c) {
		return c.Redirect(http.StatusFound, "/login")
	}
	return respond(c, http.StatusOK, "Logged out")
}

// Current godoc
// @Summary Current principal
// @Tags sessions
// @Produce json
// @Success 200 {object} SuccessResponse{payload=auth.Principal}
// @Failure 401 {object} errors.ErrorResponse
// @Router /sessions/current [get]
func (h *AuthHandler) Current(c echo.Context) error {
	principal := auth.CurrentPrincipal(c)
	if principal == nil {
		return apperrors.ErrUnauthorized
	}
	return respond(c, http.StatusOK, principal)
}

// GitHubLogin godoc
// @Summary Start GitHub login
// @Tags sessions
// @Success 302 "redirect to GitHub"
// @Router /sessions/github [get]
func (h *AuthHandler) GitHubLogin(c echo.Context) error {
	state := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateCookieTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

// GitHubCallback godoc
// @Summary GitHub login callback
// @Tags sessions
// @Param code query string true "Authorization code"
// @Param state query string true "Anti-forgery state"
// @Success 302 "redirect to /current"
// @Failure 502 {object} errors.ErrorResponse
// @Router /sessions/github/callback [get]
func (h *AuthHandler) GitHubCallback(c echo.Context) error {
	principal, err := h.completeExternal(c)
	if err != nil {
		h.logger.Warn("external login failed", slog.String("error", err.Error()))
		if wantsHTML(c) {
			return redirectWithError(c, "/login", loginFailedMessage)
		}
		return err
	}
	return h.startSession(c, principal)
}

func (h *AuthHandler) completeExternal(c echo.Context) (*auth.Principal, error) {
	stateCookie, err := c.Cookie(stateCookieName)
	c.SetCookie(&http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	if err != nil || stateCookie.Value == "" || stateCookie.Value != c.QueryParam("state") {
		return nil, errors.Join(apperrors.ErrUpstreamIdentity, errors.New("state mismatch"))
	}
	if providerErr := c.QueryParam("error"); providerErr != "" {
		return nil, errors.Join(apperrors.ErrUpstreamIdentity, errors.New(providerErr))
	}

	profile, err := h.provider.Authenticate(c.Request().Context(), c.QueryParam("code"))
	if err != nil {
		return nil, err
	}
	return h.credentials.ExternalDelegate(c.Request().Context(), profile)
}

// startSession issues a token for principal and answers in the caller's format.
func (h *AuthHandler) startSession(c echo.Context, principal *auth.Principal) error {
	token, err := h.tokens.Issue(*principal)
	if err != nil {
		return err
	}
	h.cookie.Write(c, token)

	if wantsHTML(c) || c.Request().Method == http.MethodGet {
		return c.Redirect(http.StatusFound, "/current")
	}
	return respond(c, http.StatusOK, principal)
}

func isClientError(err error) bool {
	return apperrors.MapErrorToHTTP(err).StatusCode < http.StatusInternalServerError
}
