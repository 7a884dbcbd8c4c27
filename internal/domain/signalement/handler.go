package signalement

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/board"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/httpx"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/pkg/pagination"
)

type DeskFunc func(c echo.Context) (*Desk, error)

type Handler struct {
	desk DeskFunc
}

func NewHandler(desk DeskFunc) *Handler {
	return &Handler{desk: desk}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.RoleInfirmier, auth.RoleMagasinier))
	readGroup.GET("/signalements", h.List)
	readGroup.GET("/signalements/:id", h.Get)
	readGroup.DELETE("/signalements/banner", h.DismissBanner)

	api.POST("/signalements", h.Create, auth.RequireRole(auth.RoleInfirmier))
	api.POST("/signalements/:id/transition", h.Transition, auth.RequireRole(auth.RoleMagasinier))
}

func (h *Handler) List(c echo.Context) error {
	d, err := h.desk(c)
	if err != nil {
		return err
	}
	if reload, _ := strconv.ParseBool(c.QueryParam("reload")); reload || !d.Collection().Loaded() {
		_ = d.Load(c.Request().Context())
	}
	return c.JSON(http.StatusOK, d.View(c.QueryParam("q"), pagination.FromContext(c)))
}

func (h *Handler) Get(c echo.Context) error {
	d, err := h.desk(c)
	if err != nil {
		return err
	}
	id, err := httpx.ParamID(c, "id")
	if err != nil {
		return err
	}
	loadOnce(c, d)
	row, ok := d.Row(id)
	if !ok {
		return httpx.Error(board.NotFound(Entity, id))
	}
	return c.JSON(http.StatusOK, row)
}

func (h *Handler) Create(c echo.Context) error {
	d, err := h.desk(c)
	if err != nil {
		return err
	}
	var req CreateRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	sig, err := d.Create(c.Request().Context(), &req)
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusCreated, sig)
}

// Transition marks a signalement resolved or unresolved.
func (h *Handler) Transition(c echo.Context) error {
	d, err := h.desk(c)
	if err != nil {
		return err
	}
	id, err := httpx.ParamID(c, "id")
	if err != nil {
		return err
	}
	loadOnce(c, d)
	var req TransitionRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	row, err := d.Transition(c.Request().Context(), id, req.Statut)
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusOK, row)
}

func (h *Handler) DismissBanner(c echo.Context) error {
	d, err := h.desk(c)
	if err != nil {
		return err
	}
	d.Dismiss()
	return c.NoContent(http.StatusNoContent)
}

func loadOnce(c echo.Context, d *Desk) {
	if !d.Collection().Loaded() {
		_ = d.Load(c.Request().Context())
	}
}
