package user

import "context"

type Repository interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, cin string) (User, error)
	Create(ctx context.Context, req *CreateRequest) (User, error)
	SetState(ctx context.Context, cin string, etat State) error
}
