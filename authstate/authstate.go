// Package authstate holds the process-wide authentication state shared by the
// route guard, the permission checks, and any screen that renders differently
// for signed-in visitors. The Store is created once at composition time and
// passed to its consumers; it never calls collaborators itself.
package authstate

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/camphq/session/idp"
	"github.com/camphq/session/users"
	"github.com/go-playground/errors/v5"
	"golang.org/x/oauth2"
)

// State is one immutable snapshot of the authentication state.
//
// IsAuthenticated always equals Session != nil; it is never toggled on its
// own. User may be nil while IsAuthenticated is true (profile still loading,
// or its load failed) and consumers must handle that snapshot.
type State struct {
	Session         *idp.Session
	User            *users.UserProfile
	IsLoading       bool
	IsAuthenticated bool
}

// Store is the single shared holder of the authentication state. All
// mutators are synchronous and total: each performs one indivisible update
// and produces a new snapshot, so a reader never observes a torn State.
type Store struct {
	mu           sync.Mutex
	state        State
	loadingSince time.Time
	subs         map[int]func(State)
	nextSub      int
}

// NewStore returns a Store in the initial loading state.
func NewStore() *Store {
	return &Store{
		state:        State{IsLoading: true},
		loadingSince: time.Now(),
		subs:         make(map[int]func(State)),
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// LoadingSince reports when the current loading pass began. Only meaningful
// while IsLoading is true.
func (s *Store) LoadingSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadingSince
}

// SetSession replaces the session. IsAuthenticated follows the session's
// presence in the same update.
func (s *Store) SetSession(sess *idp.Session) {
	s.mutate(func(state *State) {
		state.Session = sess
		state.IsAuthenticated = sess != nil
	})
}

// SetUser replaces the loaded profile.
func (s *Store) SetUser(user *users.UserProfile) {
	s.mutate(func(state *State) {
		state.User = user
	})
}

// SetLoading sets the loading flag. Re-entering the loading state restarts
// the clock reported by LoadingSince.
func (s *Store) SetLoading(loading bool) {
	s.mutate(func(state *State) {
		if loading && !state.IsLoading {
			s.loadingSince = time.Now()
		}
		state.IsLoading = loading
	})
}

// Reset atomically clears the session and profile and settles the loading
// flag. It is idempotent: a second call leaves the same terminal state.
func (s *Store) Reset() {
	s.mutate(func(state *State) {
		*state = State{}
	})
}

// Subscribe registers fn to receive every snapshot produced after this call,
// until the returned unsubscribe function is called. Observers run
// synchronously on the mutating goroutine, in subscription order, and must
// not call back into the Store.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// TokenSource returns an oauth2 view of the current session for
// authenticated backend calls. Token fails while no session is present.
func (s *Store) TokenSource() oauth2.TokenSource {
	return tokenSource{store: s}
}

func (s *Store) mutate(apply func(*State)) {
	s.mu.Lock()
	apply(&s.state)
	snapshot := s.state
	fns := make([]func(State), 0, len(s.subs))
	for _, id := range slices.Sorted(maps.Keys(s.subs)) {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

type tokenSource struct {
	store *Store
}

func (t tokenSource) Token() (*oauth2.Token, error) {
	state := t.store.Snapshot()
	if state.Session == nil {
		return nil, errors.New("no active session")
	}

	return state.Session.Token(), nil
}
