package diagnostic

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/board"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/httpx"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/pkg/pagination"
)

// DeskFunc returns the diagnostic desk of the request's session.
type DeskFunc func(c echo.Context) (*Desk, error)

type Handler struct {
	desk DeskFunc
}

func NewHandler(desk DeskFunc) *Handler {
	return &Handler{desk: desk}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.RolePatient, auth.RoleMedecin, auth.RoleInfirmier))
	readGroup.GET("/diagnostics", h.List)
	readGroup.GET("/diagnostics/:id", h.Get)
	readGroup.DELETE("/diagnostics/banner", h.DismissBanner)

	// Staff write endpoints
	writeGroup := api.Group("", auth.RequireRole(auth.RoleMedecin, auth.RoleInfirmier))
	writeGroup.POST("/diagnostics", h.Create)
	writeGroup.PUT("/diagnostics/:id", h.Update)

	// Approve / reject and delete belong to the médecin
	medecinGroup := api.Group("", auth.RequireRole(auth.RoleMedecin))
	medecinGroup.POST("/diagnostics/:id/transition", h.Transition)
	medecinGroup.DELETE("/diagnostics/:id", h.Delete)
}

func (h *Handler) List(c echo.Context) error {
	d, err := h.desk(c)
	if err != nil {
		return err
	}
	reload, _ := strconv.ParseBool(c.QueryParam("reload"))
	if reload {
		// a failed load is reported through the view banner
		_ = d.Load(c.Request().Context())
	} else {
		ensureLoaded(c, d)
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
	ensureLoaded(c, d)
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
	a, err := d.Create(c.Request().Context(), &req)
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Update(c echo.Context) error {
	d, err := h.desk(c)
	if err != nil {
		return err
	}
	id, err := httpx.ParamID(c, "id")
	if err != nil {
		return err
	}
	ensureLoaded(c, d)
	var req UpdateRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	a, err := d.Update(c.Request().Context(), id, &req)
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Delete(c echo.Context) error {
	d, err := h.desk(c)
	if err != nil {
		return err
	}
	id, err := httpx.ParamID(c, "id")
	if err != nil {
		return err
	}
	ensureLoaded(c, d)
	if err := d.Delete(c.Request().Context(), id); err != nil {
		return httpx.Error(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Transition approves or rejects one diagnostic.
func (h *Handler) Transition(c echo.Context) error {
	d, err := h.desk(c)
	if err != nil {
		return err
	}
	id, err := httpx.ParamID(c, "id")
	if err != nil {
		return err
	}
	ensureLoaded(c, d)
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

// ensureLoaded loads the list once for a fresh session so single-record
// operations can find their record.
func ensureLoaded(c echo.Context, d *Desk) {
	if !d.Collection().Loaded() {
		_ = d.Load(c.Request().Context())
	}
}
