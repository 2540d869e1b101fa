// Package nav holds the client's routes, the route guard and the navigator
// that tracks where the user is.
package nav

import (
	"fmt"
	"strings"
)

const (
	RouteHome       = "/"
	RouteLogin      = "/login"
	RouteRegister   = "/register"
	RouteProducts   = "/products"
	RouteProductNew = "/products/new"
)

// ProductPath is the detail route of product id.
func ProductPath(id int64) string {
	return fmt.Sprintf("%s/%d", RouteProducts, id)
}

// ProductEditPath is the edit route of product id.
func ProductEditPath(id int64) string {
	return fmt.Sprintf("%s/%d/edit", RouteProducts, id)
}

// Status is the authentication status the guard decides on.
type Status int

const (
	Anonymous Status = iota
	Restoring
	Authenticated
	AuthFailed
)

func (s Status) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Restoring:
		return "restoring"
	case Authenticated:
		return "authenticated"
	case AuthFailed:
		return "auth failed"
	default:
		return "unknown"
	}
}

// Decision is the outcome of Guard. When Allowed is false the caller must go
// to Redirect and come back to ReturnTo after logging in.
type Decision struct {
	Allowed  bool
	Redirect string
	ReturnTo string
}

// IsProtected reports whether path needs an authenticated session.
func IsProtected(path string) bool {
	return path == RouteProducts || strings.HasPrefix(path, RouteProducts+"/")
}

// Guard decides whether path may be shown in the given status.
func Guard(status Status, path string) Decision {
	if !IsProtected(path) || status == Authenticated {
		return Decision{Allowed: true}
	}
	return Decision{Redirect: RouteLogin, ReturnTo: path}
}
