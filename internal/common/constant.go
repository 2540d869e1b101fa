package common

// Header names and persisted keys shared by the transport and the session store.
const (
	AuthorizationHeaderName = "Authorization"
	RequestIDHeaderName     = "X-Request-ID"
	BearerPrefix            = "Bearer "

	AccessTokenKey = "access_token"
	UserKey        = "user"
)
