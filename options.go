package session

import (
	"time"

	"github.com/camphq/session/internal/returncookie"
)

// Option defines the interface for functional options used when creating a new Manager.
type Option interface {
	isOption()
}

// ManagerOption defines a function signature for setting Manager options.
type ManagerOption func(*Manager)

func (ManagerOption) isOption() {}

// CookieOption defines a function signature for setting return cookie options.
type CookieOption returncookie.Option

func (CookieOption) isOption() {}

// WithSafetyTimeout sets the bound on the initial loading state. (default: 15s)
func WithSafetyTimeout(d time.Duration) ManagerOption {
	return ManagerOption(func(m *Manager) {
		m.safetyTimeout = d
	})
}

// WithLoginURL sets the sign-in entry point the guard redirects to. (default: /login)
func WithLoginURL(url string) ManagerOption {
	return ManagerOption(func(m *Manager) {
		m.loginURL = url
	})
}

// WithPasswordResetRedirect sets the location a password reset email links
// back to. (default: /reset-password)
func WithPasswordResetRedirect(url string) ManagerOption {
	return ManagerOption(func(m *Manager) {
		m.resetRedirect = url
	})
}

// WithReturnCookieName sets the cookie name for the preserved return location.
func WithReturnCookieName(name string) CookieOption {
	return CookieOption(returncookie.WithCookieName(name))
}

// WithCookieDomain sets the domain for the return cookie.
func WithCookieDomain(domain string) CookieOption {
	return CookieOption(returncookie.WithDomain(domain))
}
