// Package idp implements the client for the hosted identity provider. It owns
// credential storage, token refresh, and the auth-change event stream that the
// session package folds into the shared state.
package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/cccteam/logger"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-playground/errors/v5"
	"go.opentelemetry.io/otel"
	"golang.org/x/oauth2"
)

const name = "github.com/camphq/session/idp"

var _ Authenticator = &Provider{}

// Provider is an Authenticator backed by a hosted OIDC-capable identity
// service. Auth-change events are generated locally: the provider emits them
// as its own operations change the credential state.
type Provider struct {
	config        oauth2.Config
	revocationURL string
	resetURL      string
	creds         CredentialStore
	client        *http.Client

	mu      sync.Mutex
	subs    map[int]func(AuthEvent)
	nextSub int
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithHTTPClient sets the HTTP client used for all provider calls.
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *Provider) {
		p.client = client
	}
}

// WithCredentialStore sets the store holding the session handle between
// initialization passes. (default: in-memory)
func WithCredentialStore(creds CredentialStore) ProviderOption {
	return func(p *Provider) {
		p.creds = creds
	}
}

// WithPasswordResetEndpoint sets the endpoint for password reset requests.
// (default: issuer URL + /recover)
func WithPasswordResetEndpoint(url string) ProviderOption {
	return func(p *Provider) {
		p.resetURL = url
	}
}

// NewProvider discovers the identity service's endpoints and returns a Provider.
func NewProvider(ctx context.Context, issuerURL, clientID, clientSecret string, opts ...ProviderOption) (*Provider, error) {
	p := &Provider{
		creds:    NewMemoryCredentialStore(),
		resetURL: issuerURL + "/recover",
		subs:     make(map[int]func(AuthEvent)),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.client != nil {
		ctx = oidc.ClientContext(ctx, p.client)
	}

	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "oidc.NewProvider()")
	}

	var claims struct {
		RevocationEndpoint string `json:"revocation_endpoint"`
	}
	if err := provider.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "oidc.Provider.Claims()")
	}
	p.revocationURL = claims.RevocationEndpoint

	p.config = oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email", oidc.ScopeOfflineAccess},
	}

	return p, nil
}

// CurrentSession restores the session from the stored handle. A missing or
// rejected handle means no session, not an error; only transport failures
// are reported.
func (p *Provider) CurrentSession(ctx context.Context) (*Session, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Provider.CurrentSession()")
	defer span.End()

	refresh, err := p.creds.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "idp.CredentialStore.Load()")
	}
	if refresh == "" {
		return nil, nil
	}

	src := p.config.TokenSource(p.httpContext(ctx), &oauth2.Token{RefreshToken: refresh})
	token, err := src.Token()
	if err != nil {
		if retrieveError(err) != nil {
			// The provider rejected the handle: the session is gone.
			if err := p.creds.Clear(ctx); err != nil {
				logger.Ctx(ctx).Error(errors.Wrap(err, "idp.CredentialStore.Clear()"))
			}

			return nil, nil
		}

		return nil, errors.Wrap(err, "oauth2.TokenSource.Token()")
	}

	sess := NewSession(token)
	if token.RefreshToken != "" && token.RefreshToken != refresh {
		if err := p.creds.Save(ctx, token.RefreshToken); err != nil {
			return nil, errors.Wrap(err, "idp.CredentialStore.Save()")
		}
	}
	p.emit(AuthEvent{Kind: TokenRefreshed, Session: sess})

	return sess, nil
}

// SignInWithPassword exchanges the credentials through the resource owner
// grant. Failures carry the provider's message as a *SignInError.
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Provider.SignInWithPassword()")
	defer span.End()

	token, err := p.config.PasswordCredentialsToken(p.httpContext(ctx), email, password)
	if err != nil {
		if rerr := retrieveError(err); rerr != nil {
			return nil, newSignInError(rerr)
		}

		return nil, errors.Wrap(err, "oauth2.Config.PasswordCredentialsToken()")
	}

	if token.RefreshToken != "" {
		if err := p.creds.Save(ctx, token.RefreshToken); err != nil {
			return nil, errors.Wrap(err, "idp.CredentialStore.Save()")
		}
	}

	sess := NewSession(token)
	p.emit(AuthEvent{Kind: SignedIn, Session: sess})

	return sess, nil
}

// SignOut revokes the stored handle with the provider and clears it locally.
// Revocation failure is logged but does not block the local sign-out.
func (p *Provider) SignOut(ctx context.Context) error {
	ctx, span := otel.Tracer(name).Start(ctx, "Provider.SignOut()")
	defer span.End()

	refresh, err := p.creds.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "idp.CredentialStore.Load()")
	}

	if refresh != "" && p.revocationURL != "" {
		if err := p.revoke(ctx, refresh); err != nil {
			logger.Ctx(ctx).Error(errors.Wrap(err, "Provider.revoke()"))
		}
	}

	if err := p.creds.Clear(ctx); err != nil {
		return errors.Wrap(err, "idp.CredentialStore.Clear()")
	}

	p.emit(AuthEvent{Kind: SignedOut})

	return nil
}

// RequestPasswordReset asks the provider to email a reset link returning to redirectURL.
func (p *Provider) RequestPasswordReset(ctx context.Context, email, redirectURL string) error {
	ctx, span := otel.Tracer(name).Start(ctx, "Provider.RequestPasswordReset()")
	defer span.End()

	body, err := json.Marshal(map[string]string{
		"email":       email,
		"redirect_to": redirectURL,
	})
	if err != nil {
		return errors.Wrap(err, "json.Marshal()")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.resetURL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "http.NewRequestWithContext()")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return errors.Wrap(err, "http.Client.Do()")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return errors.Newf("password reset request failed: %s", resp.Status)
	}

	return nil
}

// OnAuthChange registers fn for auth-change events. Events are delivered
// synchronously, in subscription order, on the goroutine that triggered them.
func (p *Provider) OnAuthChange(fn func(AuthEvent)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

func (p *Provider) emit(ev AuthEvent) {
	p.mu.Lock()
	fns := make([]func(AuthEvent), 0, len(p.subs))
	for _, id := range slices.Sorted(maps.Keys(p.subs)) {
		fns = append(fns, p.subs[id])
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (p *Provider) revoke(ctx context.Context, refreshToken string) error {
	form := url.Values{
		"token":           {refreshToken},
		"token_type_hint": {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revocationURL, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "http.NewRequestWithContext()")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.config.ClientID, p.config.ClientSecret)

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return errors.Wrap(err, "http.Client.Do()")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		return errors.Newf("revocation failed: %s: %s", resp.Status, body)
	}

	return nil
}

func (p *Provider) httpClient() *http.Client {
	if p.client != nil {
		return p.client
	}

	return http.DefaultClient
}

func (p *Provider) httpContext(ctx context.Context) context.Context {
	if p.client == nil {
		return ctx
	}

	return context.WithValue(ctx, oauth2.HTTPClient, p.client)
}
