package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/apiclient"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/session"
)

// ErrInactive is returned when a deactivated account tries to log in.
var ErrInactive = errors.New("account is inactive")

type loginResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}

// Authenticator logs users in against the backend's /login and /logout.
type Authenticator struct {
	client *apiclient.Client
}

// NewAuthenticator uses client without any session token.
func NewAuthenticator(client *apiclient.Client) *Authenticator {
	return &Authenticator{client: client.WithTokens(apiclient.StaticToken(""))}
}

func (a *Authenticator) Login(ctx context.Context, creds session.Credentials) (string, auth.Actor, error) {
	resp, err := apiclient.Send[loginResponse](ctx, a.client, http.MethodPost, "/login", creds)
	if err != nil {
		if apiclient.IsKind(err, apiclient.KindUnauthorized) || apiclient.IsKind(err, apiclient.KindValidation) {
			return "", auth.Actor{}, fmt.Errorf("%w: %v", session.ErrInvalidCredentials, err)
		}
		return "", auth.Actor{}, err
	}
	token := resp.Token
	if token == "" {
		token = resp.AccessToken
	}
	if resp.User == nil {
		return "", auth.Actor{}, &apiclient.DecodeError{Reason: "login response has no user"}
	}
	if resp.User.Etat == StateInactive {
		return "", auth.Actor{}, ErrInactive
	}
	actor, err := resp.User.Actor()
	if err != nil {
		return "", auth.Actor{}, &apiclient.DecodeError{Reason: "login response has an unknown role", Err: err}
	}
	return token, actor, nil
}

func (a *Authenticator) Logout(ctx context.Context, token string) error {
	_, err := a.client.Do(apiclient.WithToken(ctx, token), http.MethodPost, "/logout", nil)
	return err
}
