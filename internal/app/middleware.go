package app

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/domain/appointment"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/domain/diagnostic"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/domain/signalement"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/domain/stock"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/domain/user"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/apiclient"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/httpx"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/session"
)

const workspaceKey = "workspace"

// MsgSessionExpired is returned when the gateway token outlives its session.
const MsgSessionExpired = "Votre session a expiré. Veuillez vous reconnecter."

// WorkspaceMiddleware attaches the session's workspace to the request,
// restoring it from the session store after a restart or eviction. It must
// run after auth.JWTMiddleware.
func WorkspaceMiddleware(reg *Registry, sessions *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			id := auth.SessionIDFromContext(ctx)
			if id == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, httpx.ErrorBody{Message: MsgSessionExpired})
			}

			w, ok := reg.Get(id)
			if !ok {
				s, err := sessions.Hydrate(ctx, id)
				if errors.Is(err, session.ErrNoSession) {
					return echo.NewHTTPError(http.StatusUnauthorized, httpx.ErrorBody{Message: MsgSessionExpired})
				}
				if err != nil {
					return err
				}
				if actor, _ := auth.ActorFromContext(ctx); actor.CIN != s.Actor.CIN {
					return echo.NewHTTPError(http.StatusUnauthorized, httpx.ErrorBody{Message: MsgSessionExpired})
				}
				w = reg.Open(s)
			}
			c.Set(workspaceKey, w)

			err := next(c)
			var ae *apiclient.APIError
			if errors.As(err, &ae) && ae.Kind == apiclient.KindUnauthorized && ae.Status == http.StatusUnauthorized {
				// the backend no longer accepts the session token
				reg.Close(id)
			}
			return err
		}
	}
}

// Current returns the workspace attached by WorkspaceMiddleware.
func Current(c echo.Context) (*Workspace, error) {
	w, ok := c.Get(workspaceKey).(*Workspace)
	if !ok || w == nil || w.Closed() {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, httpx.ErrorBody{Message: MsgSessionExpired})
	}
	return w, nil
}

func AppointmentDesk(c echo.Context) (*appointment.Desk, error) {
	w, err := Current(c)
	if err != nil {
		return nil, err
	}
	return w.Appointments, nil
}

func DiagnosticDesk(c echo.Context) (*diagnostic.Desk, error) {
	w, err := Current(c)
	if err != nil {
		return nil, err
	}
	return w.Diagnostics, nil
}

func SignalementDesk(c echo.Context) (*signalement.Desk, error) {
	w, err := Current(c)
	if err != nil {
		return nil, err
	}
	return w.Signalements, nil
}

func UserService(c echo.Context) (*user.Service, error) {
	w, err := Current(c)
	if err != nil {
		return nil, err
	}
	return w.Users, nil
}

func StockService(c echo.Context) (*stock.Service, error) {
	w, err := Current(c)
	if err != nil {
		return nil, err
	}
	return w.Stock, nil
}
