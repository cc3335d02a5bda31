package session

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/camphq/session/access"
	"github.com/camphq/session/internal/returncookie"
	"github.com/cccteam/ccc/accesstypes"
	"github.com/cccteam/logger"
	"github.com/go-playground/errors/v5"
	"github.com/gofrs/uuid"
)

// Loading feedback tiers. Purely cosmetic: the backend has variable
// cold-start latency and the message escalates while the state settles.
const (
	wakingThreshold = 3 * time.Second
	slowThreshold   = 10 * time.Second
)

// Guard gates a protected subtree on the settled authentication state: a
// loading page while the state is unsettled, a redirect to the sign-in entry
// point (preserving the requested location) when unauthenticated, and the
// subtree itself otherwise.
func (m *Manager) Guard(next http.Handler) http.Handler {
	return m.gate("", next)
}

// RequirePermission gates the subtree on perm in addition to authentication,
// responding with an access-denied page when the profile lacks it.
//
// An authenticated visitor whose profile has not loaded passes through
// unchecked; each unchecked pass is logged so the gap stays measurable.
func (m *Manager) RequirePermission(perm accesstypes.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.gate(perm, next)
	}
}

func (m *Manager) gate(perm accesstypes.Permission, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := m.store.Snapshot()

		switch {
		case state.IsLoading:
			m.writeLoading(w)
		case !state.IsAuthenticated:
			m.redirectToLogin(w, r)
		case perm != "" && state.User == nil:
			logger.Req(r).Infof("permission %q not enforced: profile not loaded", perm)
			next.ServeHTTP(w, r)
		case perm != "" && !access.HasPermission(state.User, perm):
			writeAccessDenied(w)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// ReturnURL consumes the location preserved by the guard's redirect, for the
// post-login hop. The state query parameter must match the nonce written at
// redirect time; on any mismatch or absence it falls back to "/".
func (m *Manager) ReturnURL(w http.ResponseWriter, r *http.Request) string {
	cval, ok := m.cookies.Read(r)
	if !ok {
		return "/"
	}
	m.cookies.Delete(w)

	if r.URL.Query().Get("state") != cval[returncookie.KeyState] {
		return "/"
	}

	returnURL := cval[returncookie.KeyReturnURL]
	if !strings.HasPrefix(returnURL, "/") || strings.HasPrefix(returnURL, "//") {
		return "/"
	}

	return returnURL
}

func (m *Manager) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	returnURL := r.URL.RequestURI()

	state, err := uuid.NewV4()
	if err != nil {
		logger.Req(r).Error(errors.Wrap(err, "uuid.NewV4()"))
		http.Redirect(w, r, m.loginURL, http.StatusFound)

		return
	}

	cval := map[returncookie.Key]string{
		returncookie.KeyReturnURL: returnURL,
		returncookie.KeyState:     state.String(),
	}
	if err := m.cookies.Write(w, cval); err != nil {
		logger.Req(r).Error(errors.Wrap(err, "returncookie.Client.Write()"))
		http.Redirect(w, r, m.loginURL, http.StatusFound)

		return
	}

	query := url.Values{
		"returnUrl": {returnURL},
		"state":     {state.String()},
	}
	http.Redirect(w, r, m.loginURL+"?"+query.Encode(), http.StatusFound)
}

func (m *Manager) writeLoading(w http.ResponseWriter) {
	message, hint := loadingMessage(time.Since(m.store.LoadingSince()))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Retry-After", "2")
	w.WriteHeader(http.StatusServiceUnavailable)
	fmt.Fprintf(w, loadingPage, message, hint)
}

// loadingMessage picks the feedback tier for the elapsed loading time.
func loadingMessage(elapsed time.Duration) (message, hint string) {
	switch {
	case elapsed >= slowThreshold:
		return "This is taking longer than expected.",
			"The server may be starting up. Your session will resume automatically; there is no need to sign in again."
	case elapsed >= wakingThreshold:
		return "Waking up the server…", ""
	default:
		return "Loading…", ""
	}
}

func writeAccessDenied(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	fmt.Fprint(w, accessDeniedPage)
}

const loadingPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta http-equiv="refresh" content="2"><title>Loading</title></head>
<body><p>%s</p><p>%s</p></body>
</html>
`

const accessDeniedPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Access denied</title></head>
<body><h1>Access denied</h1><p>You do not have permission to view this page.</p></body>
</html>
`
