// Package returncookie stores the originally requested location across the
// sign-in hop, so the visitor lands back where the guard intercepted them.
package returncookie

import (
	"net/http"
	"time"

	"github.com/go-playground/errors/v5"
	"github.com/gorilla/securecookie"
)

// Key is a field name within the return cookie.
type Key string

const (
	// KeyReturnURL is the originally requested location.
	KeyReturnURL Key = "returnURL"
	// KeyState is the nonce tying the cookie to one redirect.
	KeyState Key = "state"
)

const defaultCookieName = "return-location"

// Client reads and writes the secured return cookie.
type Client struct {
	secureCookie *securecookie.SecureCookie
	cookieName   string
	domain       string
}

// Option defines a function signature for setting Client options.
type Option func(*Client)

// WithCookieName sets the cookie name. (default: return-location)
func WithCookieName(name string) Option {
	return func(c *Client) {
		c.cookieName = name
	}
}

// WithDomain sets the cookie domain.
func WithDomain(domain string) Option {
	return func(c *Client) {
		c.domain = domain
	}
}

// New returns a Client encoding with secureCookie.
func New(secureCookie *securecookie.SecureCookie, opts ...Option) *Client {
	c := &Client{
		secureCookie: secureCookie,
		cookieName:   defaultCookieName,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Write encodes cval into the return cookie.
func (c *Client) Write(w http.ResponseWriter, cval map[Key]string) error {
	encoded, err := c.secureCookie.Encode(c.cookieName, cval)
	if err != nil {
		return errors.Wrap(err, "securecookie.SecureCookie.Encode()")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName,
		Value:    encoded,
		Path:     "/",
		Domain:   c.domain,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// Read decodes the return cookie. A missing or undecodable cookie reports ok=false.
func (c *Client) Read(r *http.Request) (cval map[Key]string, ok bool) {
	cookie, err := r.Cookie(c.cookieName)
	if err != nil {
		return nil, false
	}

	cval = make(map[Key]string)
	if err := c.secureCookie.Decode(c.cookieName, cookie.Value, &cval); err != nil {
		return nil, false
	}

	return cval, true
}

// Delete expires the return cookie.
func (c *Client) Delete(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName,
		Value:    "",
		Path:     "/",
		Domain:   c.domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
