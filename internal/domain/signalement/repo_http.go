package signalement

import (
	"context"
	"fmt"
	"net/http"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/apiclient"
)

type httpRepo struct {
	client *apiclient.Client
}

func NewHTTPRepo(client *apiclient.Client) Repository {
	return &httpRepo{client: client}
}

func (r *httpRepo) List(ctx context.Context) ([]Signalement, error) {
	return apiclient.GetList[Signalement](ctx, r.client, "/signalements/index")
}

func (r *httpRepo) Create(ctx context.Context, req *CreateRequest) (Signalement, error) {
	return apiclient.Send[Signalement](ctx, r.client, http.MethodPost, "/signalements", req)
}

func (r *httpRepo) SetStatus(ctx context.Context, id int64, s Status) error {
	_, err := r.client.Do(ctx, http.MethodPut, fmt.Sprintf("/signalements/%d/update", id), TransitionRequest{Statut: s})
	return err
}
