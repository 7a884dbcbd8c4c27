package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/domain/user"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/httpx"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/refresolver"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/session"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/validation"
)

const (
	MsgInvalidCredentials = "Email ou mot de passe incorrect."
	MsgAccountInactive    = "Votre compte est désactivé. Contactez l'administrateur."
)

// Forgetter drops per-session state kept elsewhere, such as rate limit buckets.
type Forgetter interface {
	Forget(sessionID string)
}

type SessionHandler struct {
	sessions   *session.Manager
	registry   *Registry
	validator  *validation.Validator
	signingKey []byte
	ttl        time.Duration
	forget     []Forgetter
	logger     zerolog.Logger
}

func NewSessionHandler(sessions *session.Manager, registry *Registry, v *validation.Validator, signingKey []byte, ttl time.Duration, logger zerolog.Logger, forget ...Forgetter) *SessionHandler {
	return &SessionHandler{
		sessions:   sessions,
		registry:   registry,
		validator:  v,
		signingKey: signingKey,
		ttl:        ttl,
		forget:     forget,
		logger:     logger,
	}
}

// LoginResponse carries the gateway token the front end sends back as a
// bearer token.
type LoginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      auth.Actor `json:"user"`
	RoleLabel string     `json:"role_label"`
}

// RegisterPublic mounts the unauthenticated routes.
func (h *SessionHandler) RegisterPublic(g *echo.Group) {
	g.POST("/auth/login", h.Login)
}

// RegisterRoutes mounts the routes that need a session.
func (h *SessionHandler) RegisterRoutes(api *echo.Group) {
	api.POST("/auth/logout", h.Logout)
	api.GET("/auth/me", h.Me)
	api.POST("/auth/reload", h.Reload)
	api.POST("/references/:kind/:id/retry", h.RetryReference)
}

func (h *SessionHandler) Login(c echo.Context) error {
	var creds session.Credentials
	if err := httpx.Bind(c, &creds); err != nil {
		return err
	}
	if err := h.validator.Struct(&creds); err != nil {
		return httpx.Error(err)
	}

	s, err := h.sessions.Login(c.Request().Context(), creds)
	switch {
	case errors.Is(err, session.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, httpx.ErrorBody{Message: MsgInvalidCredentials}).SetInternal(err)
	case errors.Is(err, user.ErrInactive):
		return echo.NewHTTPError(http.StatusForbidden, httpx.ErrorBody{Message: MsgAccountInactive}).SetInternal(err)
	case err != nil:
		return httpx.Error(err)
	}

	token, exp, err := auth.IssueToken(h.signingKey, s.ID, s.Actor, h.ttl, time.Now())
	if err != nil {
		return httpx.Error(err)
	}
	h.registry.Open(s)
	return c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: exp,
		User:      s.Actor,
		RoleLabel: s.Actor.Role.Label(),
	})
}

// Logout ends the session whatever the backend answers.
func (h *SessionHandler) Logout(c echo.Context) error {
	id := auth.SessionIDFromContext(c.Request().Context())
	h.registry.Close(id)
	for _, f := range h.forget {
		f.Forget(id)
	}
	if err := h.sessions.Logout(c.Request().Context(), id); err != nil {
		return httpx.Error(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type meResponse struct {
	User      auth.Actor `json:"user"`
	RoleLabel string     `json:"role_label"`
	SessionID string     `json:"session_id"`
	Since     time.Time  `json:"since"`
}

func (h *SessionHandler) Me(c echo.Context) error {
	w, err := Current(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, meResponse{
		User:      w.Actor,
		RoleLabel: w.Actor.Role.Label(),
		SessionID: w.SessionID,
		Since:     w.CreatedAt,
	})
}

// Reload loads every dashboard of the session at once.
func (h *SessionHandler) Reload(c echo.Context) error {
	w, err := Current(c)
	if err != nil {
		return err
	}
	if err := w.LoadAll(c.Request().Context()); err != nil {
		return httpx.Error(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type referenceResponse struct {
	refresolver.Reference
	Display string `json:"display"`
}

// RetryReference starts a new lookup of a reference that failed. The answer
// is the placeholder; the outcome arrives as a reference event.
func (h *SessionHandler) RetryReference(c echo.Context) error {
	w, err := Current(c)
	if err != nil {
		return err
	}
	kind, err := refresolver.ParseKind(c.Param("kind"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, httpx.ErrorBody{Message: "Type de référence inconnu."}).SetInternal(err)
	}
	id, err := httpx.ParamID(c, "id")
	if err != nil {
		return err
	}
	ref := w.Refs.Retry(kind, id)
	status := http.StatusAccepted
	if ref.Resolved {
		status = http.StatusOK
	}
	return c.JSON(status, referenceResponse{Reference: ref, Display: ref.Display()})
}
