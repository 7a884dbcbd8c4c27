package user

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/httpx"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/pkg/pagination"
)

// ServiceFunc returns the user service bound to the request's session.
type ServiceFunc func(c echo.Context) (*Service, error)

type Handler struct {
	service ServiceFunc
}

func NewHandler(service ServiceFunc) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/users", h.List)
	admin.GET("/users/:cin", h.Get)
	admin.POST("/users", h.Create)
	admin.PATCH("/users/:cin/state", h.SetState)
	admin.POST("/users/:cin/toggle", h.Toggle)
}

func (h *Handler) List(c echo.Context) error {
	svc, err := h.service(c)
	if err != nil {
		return err
	}
	f := Filter{Query: c.QueryParam("q"), Role: c.QueryParam("role"), Etat: State(c.QueryParam("etat"))}
	resp, err := svc.List(c.Request().Context(), f, pagination.FromContext(c))
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Get(c echo.Context) error {
	svc, err := h.service(c)
	if err != nil {
		return err
	}
	u, err := svc.Get(c.Request().Context(), c.Param("cin"))
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) Create(c echo.Context) error {
	svc, err := h.service(c)
	if err != nil {
		return err
	}
	var req CreateRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	u, err := svc.Create(c.Request().Context(), &req)
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) SetState(c echo.Context) error {
	svc, err := h.service(c)
	if err != nil {
		return err
	}
	var req StateRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	actor, _ := auth.ActorFromContext(c.Request().Context())
	if err := svc.SetState(c.Request().Context(), actor, c.Param("cin"), req.Etat); err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"CIN": c.Param("cin"), "etat": req.Etat, "label": req.Etat.Label()})
}

func (h *Handler) Toggle(c echo.Context) error {
	svc, err := h.service(c)
	if err != nil {
		return err
	}
	actor, _ := auth.ActorFromContext(c.Request().Context())
	etat, err := svc.Toggle(c.Request().Context(), actor, c.Param("cin"))
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"CIN": c.Param("cin"), "etat": etat, "label": etat.Label()})
}
