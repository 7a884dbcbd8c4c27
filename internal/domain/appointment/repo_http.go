package appointment

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

func (r *httpRepo) List(ctx context.Context) ([]Appointment, error) {
	return apiclient.GetList[Appointment](ctx, r.client, "/rendezVous/index")
}

func (r *httpRepo) Create(ctx context.Context, req *CreateRequest) (Appointment, error) {
	return apiclient.Send[Appointment](ctx, r.client, http.MethodPost, "/rendezVous", req)
}

func (r *httpRepo) Update(ctx context.Context, id int64, req *UpdateRequest) (Appointment, error) {
	return apiclient.Send[Appointment](ctx, r.client, http.MethodPut, fmt.Sprintf("/rendezVous/%d/update", id), req)
}

// SetStatus sends the partial update {"statut": s}.
func (r *httpRepo) SetStatus(ctx context.Context, id int64, s Status) error {
	_, err := r.client.Do(ctx, http.MethodPut, fmt.Sprintf("/rendezVous/%d/update", id), TransitionRequest{Statut: s})
	return err
}

func (r *httpRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.client.Do(ctx, http.MethodDelete, fmt.Sprintf("/rendezVous/%d/destroy", id), nil)
	return err
}
