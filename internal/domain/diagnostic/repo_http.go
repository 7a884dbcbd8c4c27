package diagnostic

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

func (r *httpRepo) List(ctx context.Context) ([]Diagnostic, error) {
	return apiclient.GetList[Diagnostic](ctx, r.client, "/diagnostics/index")
}

func (r *httpRepo) ListForPatient(ctx context.Context, patientID int64) ([]Diagnostic, error) {
	return apiclient.GetList[Diagnostic](ctx, r.client, fmt.Sprintf("/diagnostics/%d/patient", patientID))
}

func (r *httpRepo) Create(ctx context.Context, req *CreateRequest) (Diagnostic, error) {
	return apiclient.Send[Diagnostic](ctx, r.client, http.MethodPost, "/diagnostics", req)
}

func (r *httpRepo) Update(ctx context.Context, id int64, req *UpdateRequest) (Diagnostic, error) {
	return apiclient.Send[Diagnostic](ctx, r.client, http.MethodPut, fmt.Sprintf("/diagnostics/%d/update", id), req)
}

func (r *httpRepo) SetStatus(ctx context.Context, id int64, s Status) error {
	_, err := r.client.Do(ctx, http.MethodPut, fmt.Sprintf("/diagnostics/%d/update", id), TransitionRequest{Statut: s})
	return err
}

func (r *httpRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.client.Do(ctx, http.MethodDelete, fmt.Sprintf("/diagnostics/%d/destroy", id), nil)
	return err
}
