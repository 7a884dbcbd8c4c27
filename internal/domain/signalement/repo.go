package signalement

import "context"

// Repository is the backend's signalement resource. There is no delete.
type Repository interface {
	List(ctx context.Context) ([]Signalement, error)
	Create(ctx context.Context, req *CreateRequest) (Signalement, error)
	SetStatus(ctx context.Context, id int64, s Status) error
}
