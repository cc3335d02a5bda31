// Package users is the client for the camp platform's profile and
// registration endpoints.
package users

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cccteam/ccc"
	"github.com/cccteam/ccc/accesstypes"
	"github.com/go-playground/errors/v5"
	"go.opentelemetry.io/otel"
	"golang.org/x/oauth2"
)

const name = "github.com/camphq/session/users"

// UserProfile is the application-level identity record keyed by the
// authenticated session. RoleName is a free-form label: the backend can
// introduce roles without a client change.
type UserProfile struct {
	ID             ccc.UUID                 `json:"id"`
	OrganizationID ccc.UUID                 `json:"organization_id"`
	RoleID         ccc.UUID                 `json:"role_id"`
	RoleName       string                   `json:"role_name"`
	Permissions    []accesstypes.Permission `json:"permissions"`
	Active         bool                     `json:"active"`
	SeasonStart    *time.Time               `json:"season_start,omitempty"`
	SeasonEnd      *time.Time               `json:"season_end,omitempty"`
	FirstName      string                   `json:"first_name,omitempty"`
	LastName       string                   `json:"last_name,omitempty"`
	Email          string                   `json:"email,omitempty"`
	Phone          string                   `json:"phone,omitempty"`
}

// RegistrationRequest is the payload for the registration endpoint, which
// provisions the organization, the identity-provider account, and the default
// roles as one server-side operation.
type RegistrationRequest struct {
	OrgName   string `json:"org_name"`
	OrgSlug   string `json:"org_slug"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UserManager defines the backend operations consumed by the session package.
type UserManager interface {
	// CurrentUser returns the profile for the authenticated session.
	CurrentUser(ctx context.Context) (*UserProfile, error)

	// Register provisions a new organization and account.
	Register(ctx context.Context, req RegistrationRequest) error
}

var _ UserManager = &Client{}

// Client implements UserManager over the backend REST API. Profile loads are
// authenticated through tokens; registration is anonymous.
type Client struct {
	baseURL string
	client  *http.Client
	authed  *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseClient sets the HTTP client wrapped for all backend calls.
func WithBaseClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient returns a backend client rooted at baseURL. tokens supplies the
// current session's credentials for authenticated endpoints.
func NewClient(baseURL string, tokens oauth2.TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.authed = &http.Client{
		Transport: &oauth2.Transport{
			Source: tokens,
			Base:   c.client.Transport,
		},
		Timeout: c.client.Timeout,
	}

	return c
}

// CurrentUser loads the profile from GET /auth/me. Any non-2xx response is a
// profile-load failure.
func (c *Client) CurrentUser(ctx context.Context) (*UserProfile, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Client.CurrentUser()")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/me", http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "http.NewRequestWithContext()")
	}

	resp, err := c.authed.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "http.Client.Do()")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.Newf("profile load failed: %s", resp.Status)
	}

	profile := &UserProfile{}
	if err := json.NewDecoder(resp.Body).Decode(profile); err != nil {
		return nil, errors.Wrap(err, "json.Decoder.Decode()")
	}

	return profile, nil
}

// Register provisions an organization and account via POST /auth/register.
// A non-2xx response surfaces the server's detail message as a *DetailError.
func (c *Client) Register(ctx context.Context, regReq RegistrationRequest) error {
	ctx, span := otel.Tracer(name).Start(ctx, "Client.Register()")
	defer span.End()

	body, err := json.Marshal(regReq)
	if err != nil {
		return errors.Wrap(err, "json.Marshal()")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/register", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "http.NewRequestWithContext()")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "http.Client.Do()")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return newDetailError(resp)
	}

	return nil
}
