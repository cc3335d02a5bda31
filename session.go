// Package session implements the camp platform frontend's session and
// authorization subsystem: the shared authentication state, the startup
// protocol that settles it, the route guard over protected screens, and the
// handler facade behind the sign-in, registration, and password-reset forms.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/camphq/session/authstate"
	"github.com/camphq/session/idp"
	"github.com/camphq/session/internal/returncookie"
	"github.com/camphq/session/users"
	"github.com/cccteam/logger"
	"github.com/go-playground/errors/v5"
	"github.com/gorilla/securecookie"
	"go.opentelemetry.io/otel"
)

const name = "github.com/camphq/session"

const defaultSafetyTimeout = 15 * time.Second

// Manager owns the session lifecycle. Start runs one initialization pass and
// installs the auth-change subscription; from then on every state transition
// funnels through the store, and the guard and handlers read from it.
//
// The Manager is the store's only writer, with one exception: Logout resets
// the store directly, since no SignedOut event is guaranteed to arrive before
// the caller navigates away.
type Manager struct {
	store         *authstate.Store
	authenticator idp.Authenticator
	userClient    users.UserManager
	cookies       *returncookie.Client

	safetyTimeout time.Duration
	loginURL      string
	resetRedirect string

	mu          sync.Mutex
	started     bool
	unsubscribe func()
	timer       *time.Timer
}

// New returns a Manager wired to its collaborators. The store is seeded in
// the loading state; call Start to begin populating it.
func New(store *authstate.Store, authenticator idp.Authenticator, userClient users.UserManager, secureCookie *securecookie.SecureCookie, opts ...Option) *Manager {
	m := &Manager{
		store:         store,
		authenticator: authenticator,
		userClient:    userClient,
		safetyTimeout: defaultSafetyTimeout,
		loginURL:      "/login",
		resetRedirect: "/reset-password",
	}

	cookieOpts := []returncookie.Option{}
	for _, opt := range opts {
		switch o := opt.(type) {
		case ManagerOption:
			o(m)
		case CookieOption:
			cookieOpts = append(cookieOpts, returncookie.Option(o))
		}
	}
	m.cookies = returncookie.New(secureCookie, cookieOpts...)

	return m
}

// Store returns the shared state store for consumers that render from it.
func (m *Manager) Store() *authstate.Store {
	return m.store
}

// Start begins the initialization pass: the safety timer, the session probe
// with its conditional profile load, and the auth-change subscription. It
// returns immediately; the store settles asynchronously. Calling Start twice
// is a no-op.
//
// The safety timer bounds the loading state regardless of collaborator
// latency. It does not abort the in-flight probe, so a late probe result can
// still land after the store has settled; last write wins.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return
	}
	m.started = true

	m.unsubscribe = m.authenticator.OnAuthChange(func(ev idp.AuthEvent) {
		m.handleAuthChange(ctx, ev)
	})

	m.timer = time.AfterFunc(m.safetyTimeout, func() {
		logger.Ctx(ctx).Infof("session initialization exceeded %s; unblocking the loading state", m.safetyTimeout)
		m.store.SetLoading(false)
	})

	go m.initialize(ctx)
}

// Close tears down the subscription and the safety timer. No event-driven
// store write can originate from the Manager after Close returns.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	if m.timer != nil {
		m.timer.Stop()
	}
}

// initialize is the probe chain: one session probe, a profile load when a
// session came back, then settle. Probe failure is absorbed as "no session"
// so the state machine keeps moving.
func (m *Manager) initialize(ctx context.Context) {
	ctx, span := otel.Tracer(name).Start(ctx, "Manager.initialize()")
	defer span.End()

	defer func() {
		m.mu.Lock()
		if m.timer != nil {
			m.timer.Stop()
		}
		m.mu.Unlock()
		m.store.SetLoading(false)
	}()

	sess, err := m.authenticator.CurrentSession(ctx)
	if err != nil {
		logger.Ctx(ctx).Error(errors.Wrap(err, "idp.Authenticator.CurrentSession()"))

		return
	}
	if sess == nil {
		return
	}

	m.store.SetSession(sess)
	m.loadProfile(ctx)
}

// loadProfile fetches the profile for the current session. Failure of any
// kind clears the profile and is otherwise non-fatal: permission-gated
// content behaves as "no permissions" until a later successful load.
func (m *Manager) loadProfile(ctx context.Context) {
	ctx, span := otel.Tracer(name).Start(ctx, "Manager.loadProfile()")
	defer span.End()

	user, err := m.userClient.CurrentUser(ctx)
	if err != nil {
		logger.Ctx(ctx).Error(errors.Wrap(err, "users.UserManager.CurrentUser()"))
		m.store.SetUser(nil)

		return
	}

	m.store.SetUser(user)
}

// handleAuthChange folds one provider event into the store. The fold can race
// with the probe chain; the store's per-field last-write-wins semantics keep
// overlapping writes well-defined.
func (m *Manager) handleAuthChange(ctx context.Context, ev idp.AuthEvent) {
	ctx, span := otel.Tracer(name).Start(ctx, "Manager.handleAuthChange()")
	defer span.End()

	switch ev.Kind {
	case idp.SignedIn:
		m.store.SetSession(ev.Session)
		m.loadProfile(ctx)
	case idp.SignedOut:
		// The event's session is nil, which clears the authenticated flag.
		m.store.SetSession(ev.Session)
		m.store.SetUser(nil)
	case idp.TokenRefreshed:
		// The profile did not change; only the session is replaced.
		m.store.SetSession(ev.Session)
	default:
		return
	}

	m.store.SetLoading(false)
}
