package session

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/camphq/session/idp"
	"github.com/camphq/session/users"
	"github.com/cccteam/ccc/accesstypes"
	"github.com/cccteam/httpio"
	"github.com/cccteam/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/errors/v5"
	"go.opentelemetry.io/otel"
)

// Routes mounts the auth screens' handlers on r.
func (m *Manager) Routes(r chi.Router) {
	r.Get("/auth/session", m.Authenticated())
	r.Post("/auth/login", m.Login())
	r.Post("/auth/register", m.Register())
	r.Post("/auth/logout", m.Logout())
	r.Post("/auth/forgot-password", m.ForgotPassword())
}

// Authenticated is the handler that reports the current authentication state
func (m *Manager) Authenticated() http.HandlerFunc {
	type response struct {
		Authenticated bool                     `json:"authenticated"`
		Loading       bool                     `json:"loading"`
		Role          string                   `json:"role,omitempty"`
		Permissions   []accesstypes.Permission `json:"permissions,omitempty"`
	}

	return m.handle(func(w http.ResponseWriter, r *http.Request) error {
		_, span := otel.Tracer(name).Start(r.Context(), "Manager.Authenticated()")
		defer span.End()

		state := m.store.Snapshot()

		res := response{
			Authenticated: state.IsAuthenticated,
			Loading:       state.IsLoading,
		}
		if state.User != nil {
			res.Role = state.User.RoleName
			res.Permissions = state.User.Permissions
		}

		return httpio.NewEncoder(w).Ok(res)
	})
}

// Login validates the credentials with the identity provider. On success the
// store is updated by the SignedIn event, not here; on failure the provider's
// message is returned for inline display on the form.
func (m *Manager) Login() http.HandlerFunc {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	return m.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Manager.Login()")
		defer span.End()

		req := &request{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewBadRequestMessageWithError(err, "failed to decode request"))
		}

		if _, err := m.authenticator.SignInWithPassword(ctx, req.Email, req.Password); err != nil {
			var sie *idp.SignInError
			if stderrors.As(err, &sie) {
				return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewUnauthorizedMessage(sie.Message))
			}

			return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewUnauthorizedMessageWithError(err, "sign in failed"))
		}

		return httpio.NewEncoder(w).Ok(nil)
	})
}

// Register provisions the organization and account, then signs in with the
// same credentials. Registration succeeding while the immediate sign-in fails
// is a distinct outcome: the account exists and the user's next action is to
// sign in, not to register again.
func (m *Manager) Register() http.HandlerFunc {
	type response struct {
		Created  bool   `json:"created"`
		SignedIn bool   `json:"signedIn"`
		Message  string `json:"message,omitempty"`
	}

	return m.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Manager.Register()")
		defer span.End()

		req := &users.RegistrationRequest{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewBadRequestMessageWithError(err, "failed to decode request"))
		}

		if err := m.userClient.Register(ctx, *req); err != nil {
			var derr *users.DetailError
			if stderrors.As(err, &derr) {
				return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewBadRequestMessage(derr.Detail))
			}

			return httpio.NewEncoder(w).ClientMessage(ctx, errors.Wrap(err, "users.UserManager.Register()"))
		}

		if _, err := m.authenticator.SignInWithPassword(ctx, req.Email, req.Password); err != nil {
			logger.Req(r).Error(errors.Wrap(err, "idp.Authenticator.SignInWithPassword()"))

			return httpio.NewEncoder(w).Ok(response{Created: true, Message: "Your account was created. Please sign in."})
		}

		return httpio.NewEncoder(w).Ok(response{Created: true, SignedIn: true})
	})
}

// Logout signs out with the identity provider and resets the store. This is
// the one action writing the store directly: the caller navigates away
// immediately and cannot wait on a SignedOut event.
func (m *Manager) Logout() http.HandlerFunc {
	return m.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Manager.Logout()")
		defer span.End()

		if err := m.authenticator.SignOut(ctx); err != nil {
			logger.Req(r).Error(errors.Wrap(err, "idp.Authenticator.SignOut()"))
		}

		m.store.Reset()

		return httpio.NewEncoder(w).Ok(nil)
	})
}

// ForgotPassword asks the identity provider to send a password reset email.
func (m *Manager) ForgotPassword() http.HandlerFunc {
	type request struct {
		Email string `json:"email"`
	}

	return m.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Manager.ForgotPassword()")
		defer span.End()

		req := &request{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewBadRequestMessageWithError(err, "failed to decode request"))
		}

		if err := m.authenticator.RequestPasswordReset(ctx, req.Email, m.resetRedirect); err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewBadRequestMessageWithError(err, "could not send the password reset email"))
		}

		return httpio.NewEncoder(w).Ok(nil)
	})
}
