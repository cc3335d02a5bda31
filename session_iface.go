package session

import (
	"net/http"

	"github.com/cccteam/ccc/accesstypes"
)

var _ AuthHandlers = &Manager{}

// AuthHandlers defines the handler facade consumed by the auth screens.
type AuthHandlers interface {
	Authenticated() http.HandlerFunc
	Login() http.HandlerFunc
	Register() http.HandlerFunc
	Logout() http.HandlerFunc
	ForgotPassword() http.HandlerFunc
}

// Guarder defines the middleware surface consumed by protected screens.
type Guarder interface {
	Guard(next http.Handler) http.Handler
	RequirePermission(perm accesstypes.Permission) func(next http.Handler) http.Handler
}

var _ Guarder = &Manager{}
