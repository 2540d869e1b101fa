// Package session persists the authenticated session (bearer token and user
// profile) in the local database so it survives restarts.
//
// Both keys are written together, read together and cleared together. A
// stored session that is only half present, or whose user profile cannot be
// decoded, is discarded on Load.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/storefront/internal/client/models"
)

// ErrNoSession is returned by Load when no usable session is stored.
var ErrNoSession = errors.New("no stored session")

// Session is the persisted authentication state.
type Session struct {
	Token string
	User  models.User
}

// ExpiresAt returns the exp claim of the token when it is a JWT carrying one.
// The signature is not verified; the server stays the authority.
func (s Session) ExpiresAt() (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expired reports whether the token carries an exp claim that is not after now.
// Opaque tokens never expire locally.
func (s Session) Expired(now time.Time) bool {
	exp, ok := s.ExpiresAt()
	return ok && !now.Before(exp)
}

// Store is durable storage for a single session.
type Store interface {
	Save(ctx context.Context, token string, user models.User) error
	Load(ctx context.Context) (*Session, error)
	Clear(ctx context.Context) error
	// Token returns the stored token, or "" when none is stored.
	Token(ctx context.Context) (string, error)
}
