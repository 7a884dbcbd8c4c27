package diagnostic

import "context"

type Repository interface {
	List(ctx context.Context) ([]Diagnostic, error)
	ListForPatient(ctx context.Context, patientID int64) ([]Diagnostic, error)
	Create(ctx context.Context, req *CreateRequest) (Diagnostic, error)
	Update(ctx context.Context, id int64, req *UpdateRequest) (Diagnostic, error)
	SetStatus(ctx context.Context, id int64, s Status) error
	Delete(ctx context.Context, id int64) error
}
