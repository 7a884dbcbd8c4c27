package user

import (
	"context"
	"net/http"
	"net/url"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/apiclient"
)

type httpRepo struct {
	client *apiclient.Client
}

func NewHTTPRepo(client *apiclient.Client) Repository {
	return &httpRepo{client: client}
}

func (r *httpRepo) List(ctx context.Context) ([]User, error) {
	return apiclient.GetList[User](ctx, r.client, "/users")
}

func (r *httpRepo) Get(ctx context.Context, cin string) (User, error) {
	return apiclient.GetItem[User](ctx, r.client, "/users/"+url.PathEscape(cin))
}

func (r *httpRepo) Create(ctx context.Context, req *CreateRequest) (User, error) {
	return apiclient.Send[User](ctx, r.client, http.MethodPost, "/users", req)
}

func (r *httpRepo) SetState(ctx context.Context, cin string, etat State) error {
	_, err := r.client.Do(ctx, http.MethodPatch, "/users/"+url.PathEscape(cin)+"/state", StateRequest{Etat: etat})
	return err
}
