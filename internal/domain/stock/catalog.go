package stock

import (
	"context"
	"fmt"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/refresolver"
)

// Catalog resolves product references.
type Catalog struct {
	produits Resource[Produit, ProduitRequest]
}

func NewCatalog(repo Repository) *Catalog {
	return &Catalog{produits: repo.Produits}
}

func (c *Catalog) FetchReference(ctx context.Context, kind refresolver.Kind, id int64) (refresolver.Reference, error) {
	if kind != refresolver.KindProduit {
		return refresolver.Reference{}, fmt.Errorf("catalog cannot resolve %s", kind)
	}
	p, err := c.produits.Get(ctx, id)
	if err != nil {
		return refresolver.Reference{}, err
	}
	return ProduitReference(p), nil
}

// ProduitReference is the display record of p.
func ProduitReference(p Produit) refresolver.Reference {
	return refresolver.Reference{
		Kind:     refresolver.KindProduit,
		ID:       p.ID,
		Name:     p.Nom,
		Code:     p.Categorie,
		Resolved: true,
	}
}
