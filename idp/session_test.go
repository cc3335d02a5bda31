package idp

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

func signedJWT(t *testing.T, exp time.Time) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("jwt.Token.SignedString() error = %v", err)
	}

	return token
}

func TestNewSession_Expiry(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	tests := []struct {
		name       string
		token      *oauth2.Token
		wantExpiry time.Time
	}{
		{
			name:       "explicit expiry wins",
			token:      &oauth2.Token{AccessToken: "opaque", Expiry: exp},
			wantExpiry: exp,
		},
		{
			name: "expiry read from the access token's exp claim",
			token: &oauth2.Token{
				AccessToken: signedJWT(t, exp),
			},
			wantExpiry: exp,
		},
		{
			name:  "opaque token without expiry stays unknown",
			token: &oauth2.Token{AccessToken: "opaque"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sess := NewSession(tt.token)
			if !sess.ExpiresAt().Equal(tt.wantExpiry) {
				t.Errorf("ExpiresAt() = %v, want %v", sess.ExpiresAt(), tt.wantExpiry)
			}
		})
	}
}
