// Package services contains application services for the storefront client.
// This file defines the authentication service: login, registration, the
// "who am I" probe, logout and restoring the stored session.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/storefront/internal/client/client"
	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/client/session"
	"github.com/dmitrijs2005/storefront/internal/common"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: authenticate against the server and persist {token, user}.
//   - Register: create a new user on the server; does not log in.
//   - Me: fetch the profile of the stored session from the server.
//   - Logout: forget the stored session. Purely local.
//   - Restore: load the stored session, or session.ErrNoSession.
//
// Inputs are validated before any network call. All methods honor context
// cancellation/timeouts.
type AuthService interface {
	Login(ctx context.Context, creds models.Credentials) (*models.User, error)
	Register(ctx context.Context, reg models.Registration) (*models.User, error)
	Me(ctx context.Context) (*models.User, error)
	Logout(ctx context.Context) error
	Restore(ctx context.Context) (*session.Session, error)
}

// authService is the concrete AuthService backed by a remote Client and the
// local session store.
type authService struct {
	client client.Client
	store  session.Store
}

// NewAuthService constructs an AuthService bound to the given API client and store.
func NewAuthService(c client.Client, store session.Store) AuthService {
	return &authService{client: c, store: store}
}

func (a *authService) Login(ctx context.Context, creds models.Credentials) (*models.User, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	resp, err := a.client.Login(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, &common.Error{Kind: common.KindServer, Op: "login", Err: errors.New("empty access token")}
	}

	user := resp.User
	if err := a.store.Save(ctx, resp.AccessToken, user); err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	return &user, nil
}

func (a *authService) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	user, err := a.client.Register(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("register error: %w", err)
	}
	return user, nil
}

func (a *authService) Me(ctx context.Context) (*models.User, error) {
	user, err := a.client.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("me error: %w", err)
	}
	return user, nil
}

func (a *authService) Logout(ctx context.Context) error {
	return a.store.Clear(ctx)
}

func (a *authService) Restore(ctx context.Context) (*session.Session, error) {
	return a.store.Load(ctx)
}
