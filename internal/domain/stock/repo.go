package stock

import (
	"context"
	"fmt"
	"net/http"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/apiclient"
)

// Resource is one backend CRUD collection. Req is the write payload.
type Resource[T any, Req any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id int64) (T, error)
	Create(ctx context.Context, req *Req) (T, error)
	Update(ctx context.Context, id int64, req *Req) (T, error)
	Delete(ctx context.Context, id int64) error
}

type httpResource[T any, Req any] struct {
	client *apiclient.Client
	path   string
}

func (r *httpResource[T, Req]) List(ctx context.Context) ([]T, error) {
	return apiclient.GetList[T](ctx, r.client, r.path)
}

func (r *httpResource[T, Req]) Get(ctx context.Context, id int64) (T, error) {
	return apiclient.GetItem[T](ctx, r.client, fmt.Sprintf("%s/%d", r.path, id))
}

func (r *httpResource[T, Req]) Create(ctx context.Context, req *Req) (T, error) {
	return apiclient.Send[T](ctx, r.client, http.MethodPost, r.path, req)
}

func (r *httpResource[T, Req]) Update(ctx context.Context, id int64, req *Req) (T, error) {
	return apiclient.Send[T](ctx, r.client, http.MethodPut, fmt.Sprintf("%s/%d", r.path, id), req)
}

func (r *httpResource[T, Req]) Delete(ctx context.Context, id int64) error {
	_, err := r.client.Do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", r.path, id), nil)
	return err
}

// Repository groups the three stock resources.
type Repository struct {
	Produits   Resource[Produit, ProduitRequest]
	Livraisons Resource[Livraison, LivraisonRequest]
	Lignes     Resource[Ligne, LigneRequest]
}

func NewHTTPRepo(client *apiclient.Client) Repository {
	return Repository{
		Produits:   &httpResource[Produit, ProduitRequest]{client: client, path: "/produits"},
		Livraisons: &httpResource[Livraison, LivraisonRequest]{client: client, path: "/livraisons"},
		Lignes:     &httpResource[Ligne, LigneRequest]{client: client, path: "/livraison-produit"},
	}
}
