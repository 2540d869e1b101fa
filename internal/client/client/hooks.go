package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/storefront/internal/common"
)

// TokenSource yields the bearer token to attach, or "" for none.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// BearerToken attaches "Authorization: Bearer <token>" when src holds a
// token. Without one the request goes out unauthenticated.
func BearerToken(src TokenSource) RequestHook {
	return func(ctx context.Context, req *http.Request) error {
		token, err := src.Token(ctx)
		if err != nil {
			return err
		}
		if token != "" {
			req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
		}
		return nil
	}
}

// RequestID tags each request with a fresh X-Request-ID.
func RequestID() RequestHook {
	return func(_ context.Context, req *http.Request) error {
		req.Header.Set(common.RequestIDHeaderName, uuid.NewString())
		return nil
	}
}

// Throttle blocks until limiter admits the request.
func Throttle(limiter *rate.Limiter) RequestHook {
	return func(ctx context.Context, _ *http.Request) error {
		return limiter.Wait(ctx)
	}
}

// NewLimiter returns a limiter for rps requests per second, or nil when rps
// is not positive.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// bearerOf returns the token carried by req, or "".
func bearerOf(req *http.Request) string {
	if req == nil {
		return ""
	}
	h := req.Header.Get(common.AuthorizationHeaderName)
	if !strings.HasPrefix(h, common.BearerPrefix) {
		return ""
	}
	return strings.TrimPrefix(h, common.BearerPrefix)
}
