package idp

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Session is the opaque credential bundle issued by the identity provider.
// Consumers should only rely on its presence or absence; token handling and
// refresh are the provider's concern.
type Session struct {
	token *oauth2.Token
}

// NewSession wraps a provider token set. If the token carries no explicit
// expiry, the access token's exp claim is used when one can be read.
func NewSession(token *oauth2.Token) *Session {
	if token.Expiry.IsZero() {
		if exp, ok := tokenExpiry(token.AccessToken); ok {
			token.Expiry = exp
		}
	}

	return &Session{token: token}
}

// Token returns the underlying token set for authenticated API calls.
func (s *Session) Token() *oauth2.Token {
	return s.token
}

// ExpiresAt returns the access token expiry, or the zero time when unknown.
func (s *Session) ExpiresAt() time.Time {
	return s.token.Expiry
}

// tokenExpiry reads the exp claim off a JWT access token without verifying
// the signature. The provider remains authoritative for expiry; this value
// only feeds local refresh scheduling.
func tokenExpiry(accessToken string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time, true
}
