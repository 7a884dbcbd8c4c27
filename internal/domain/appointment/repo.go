package appointment

import "context"

type Repository interface {
	List(ctx context.Context) ([]Appointment, error)
	Create(ctx context.Context, req *CreateRequest) (Appointment, error)
	Update(ctx context.Context, id int64, req *UpdateRequest) (Appointment, error)
	SetStatus(ctx context.Context, id int64, s Status) error
	Delete(ctx context.Context, id int64) error
}
