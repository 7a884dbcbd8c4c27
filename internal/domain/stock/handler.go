package stock

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/httpx"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/pkg/pagination"
)

// ServiceFunc returns the stock service bound to the request's session.
type ServiceFunc func(c echo.Context) (*Service, error)

type Handler struct {
	service ServiceFunc
}

func NewHandler(service ServiceFunc) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Infirmiers pick products when raising a signalement.
	catalog := api.Group("", auth.RequireRole(auth.RoleMagasinier, auth.RoleInfirmier))
	catalog.GET("/produits", h.ListProduits)
	catalog.GET("/produits/:id", h.GetProduit)

	store := api.Group("", auth.RequireRole(auth.RoleMagasinier))
	store.POST("/produits", h.CreateProduit)
	store.PUT("/produits/:id", h.UpdateProduit)
	store.DELETE("/produits/:id", h.DeleteProduit)

	store.GET("/livraisons", h.ListLivraisons)
	store.GET("/livraisons/:id", h.GetLivraison)
	store.POST("/livraisons", h.CreateLivraison)
	store.PUT("/livraisons/:id", h.UpdateLivraison)
	store.DELETE("/livraisons/:id", h.DeleteLivraison)

	store.GET("/livraisons/:id/produits", h.ListLignes)
	store.POST("/livraison-produit", h.CreateLigne)
	store.PUT("/livraison-produit/:id", h.UpdateLigne)
	store.DELETE("/livraison-produit/:id", h.DeleteLigne)
}

func (h *Handler) ListProduits(c echo.Context) error {
	svc, err := h.service(c)
	if err != nil {
		return err
	}
	low, _ := strconv.ParseBool(c.QueryParam("alerte"))
	resp, err := svc.Produits(c.Request().Context(), ProduitFilter{Query: c.QueryParam("q"), Low: low}, pagination.FromContext(c))
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetProduit(c echo.Context) error {
	svc, id, err := h.withID(c)
	if err != nil {
		return err
	}
	p, err := svc.Produit(c.Request().Context(), id)
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) CreateProduit(c echo.Context) error {
	svc, err := h.service(c)
	if err != nil {
		return err
	}
	var req ProduitRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	p, err := svc.CreateProduit(c.Request().Context(), &req)
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdateProduit(c echo.Context) error {
	svc, id, err := h.withID(c)
	if err != nil {
		return err
	}
	var req ProduitRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	p, err := svc.UpdateProduit(c.Request().Context(), id, &req)
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteProduit(c echo.Context) error {
	svc, id, err := h.withID(c)
	if err != nil {
		return err
	}
	if err := svc.DeleteProduit(c.Request().Context(), id); err != nil {
		return httpx.Error(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListLivraisons(c echo.Context) error {
	svc, err := h.service(c)
	if err != nil {
		return err
	}
	resp, err := svc.Livraisons(c.Request().Context(), c.QueryParam("q"), pagination.FromContext(c))
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetLivraison(c echo.Context) error {
	svc, id, err := h.withID(c)
	if err != nil {
		return err
	}
	l, err := svc.Livraison(c.Request().Context(), id)
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) CreateLivraison(c echo.Context) error {
	svc, err := h.service(c)
	if err != nil {
		return err
	}
	var req LivraisonRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	l, err := svc.CreateLivraison(c.Request().Context(), &req)
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) UpdateLivraison(c echo.Context) error {
	svc, id, err := h.withID(c)
	if err != nil {
		return err
	}
	var req LivraisonRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	l, err := svc.UpdateLivraison(c.Request().Context(), id, &req)
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) DeleteLivraison(c echo.Context) error {
	svc, id, err := h.withID(c)
	if err != nil {
		return err
	}
	if err := svc.DeleteLivraison(c.Request().Context(), id); err != nil {
		return httpx.Error(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListLignes(c echo.Context) error {
	svc, id, err := h.withID(c)
	if err != nil {
		return err
	}
	lignes, err := svc.Lignes(c.Request().Context(), id)
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusOK, lignes)
}

func (h *Handler) CreateLigne(c echo.Context) error {
	svc, err := h.service(c)
	if err != nil {
		return err
	}
	var req LigneRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	l, err := svc.CreateLigne(c.Request().Context(), &req)
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) UpdateLigne(c echo.Context) error {
	svc, id, err := h.withID(c)
	if err != nil {
		return err
	}
	var req LigneRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	l, err := svc.UpdateLigne(c.Request().Context(), id, &req)
	if err != nil {
		return httpx.Error(err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) DeleteLigne(c echo.Context) error {
	svc, id, err := h.withID(c)
	if err != nil {
		return err
	}
	if err := svc.DeleteLigne(c.Request().Context(), id); err != nil {
		return httpx.Error(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) withID(c echo.Context) (*Service, int64, error) {
	svc, err := h.service(c)
	if err != nil {
		return nil, 0, err
	}
	id, err := httpx.ParamID(c, "id")
	if err != nil {
		return nil, 0, err
	}
	return svc, id, nil
}
