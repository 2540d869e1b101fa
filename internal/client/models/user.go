package models

import (
	"strings"

	"github.com/dmitrijs2005/storefront/internal/common"
)

// MinPasswordLength is enforced on registration.
const MinPasswordLength = 6

// User is the profile snapshot returned by login, registration and /auth/me.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

// DisplayName prefers the full name.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Credentials are sent to the login endpoint and never persisted.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Username) == "" {
		return common.NewValidationError("login", "Username is required")
	}
	if c.Password == "" {
		return common.NewValidationError("login", "Password is required")
	}
	return nil
}

// Registration is the body of POST /auth/register.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	Password string `json:"password"`
}

func (r Registration) Validate() error {
	switch {
	case strings.TrimSpace(r.Username) == "":
		return common.NewValidationError("register", "Username is required")
	case strings.TrimSpace(r.Email) == "":
		return common.NewValidationError("register", "Email is required")
	case r.Password == "":
		return common.NewValidationError("register", "Password is required")
	case len(r.Password) < MinPasswordLength:
		return common.NewValidationError("register", "Password must be at least 6 characters long")
	}
	return nil
}

// Credentials returns the login credentials matching this registration.
func (r Registration) Credentials() Credentials {
	return Credentials{Username: r.Username, Password: r.Password}
}

// LoginResponse is the body returned by POST /auth/login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}
