package idp

import "context"

// EventKind identifies an auth-change event emitted by the identity provider.
type EventKind string

const (
	SignedIn       EventKind = "SIGNED_IN"
	SignedOut      EventKind = "SIGNED_OUT"
	TokenRefreshed EventKind = "TOKEN_REFRESHED"
)

// AuthEvent describes a change to the authentication state.
// Session is nil for SignedOut events.
type AuthEvent struct {
	Kind    EventKind
	Session *Session
}

// Authenticator defines the identity provider operations consumed by the session package.
type Authenticator interface {
	// CurrentSession returns the session restored from the provider's stored
	// credentials, or nil when the visitor is not signed in.
	CurrentSession(ctx context.Context) (*Session, error)

	// SignInWithPassword exchanges the credentials for a session.
	// A SignedIn event is emitted on success.
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)

	// SignOut revokes the current session with the provider and emits a SignedOut event.
	SignOut(ctx context.Context) error

	// RequestPasswordReset asks the provider to email a password reset link
	// that returns the user to redirectURL.
	RequestPasswordReset(ctx context.Context, email, redirectURL string) error

	// OnAuthChange registers fn to receive auth-change events until the
	// returned unsubscribe function is called.
	OnAuthChange(fn func(AuthEvent)) (unsubscribe func())
}

// CredentialStore holds the provider's session handle between passes.
// The provider owns this storage; nothing else reads it.
type CredentialStore interface {
	Load(ctx context.Context) (refreshToken string, err error)
	Save(ctx context.Context, refreshToken string) error
	Clear(ctx context.Context) error
}
