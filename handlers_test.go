package session

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/camphq/session/authstate"
	"github.com/camphq/session/idp"
	"github.com/camphq/session/mock/mock_idp"
	"github.com/camphq/session/mock/mock_users"
	"github.com/camphq/session/users"
	"github.com/cccteam/ccc/accesstypes"
	"github.com/cccteam/httpio"
	"github.com/go-playground/errors/v5"
	gomock "go.uber.org/mock/gomock"
)

func postJSON(t *testing.T, target string, body any) *http.Request {
	t.Helper()

	if body == nil {
		return httptest.NewRequest(http.MethodPost, target, http.NoBody)
	}

	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}

	return httptest.NewRequest(http.MethodPost, target, bytes.NewReader(b))
}

func TestManager_Login(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		reqBody        any
		prepare        func(authenticator *mock_idp.MockAuthenticator)
		wantStatusCode int
		wantMessage    string
	}{
		{
			name:           "fails on decode",
			reqBody:        nil,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:    "surfaces the provider's message inline",
			reqBody: map[string]string{"email": "director@camp.example", "password": "wrong"},
			prepare: func(authenticator *mock_idp.MockAuthenticator) {
				authenticator.EXPECT().SignInWithPassword(gomock.Any(), "director@camp.example", "wrong").
					Return(nil, &idp.SignInError{Message: "Invalid login credentials"})
			},
			wantStatusCode: http.StatusUnauthorized,
			wantMessage:    "Invalid login credentials",
		},
		{
			name:    "transport failure gets a generic message",
			reqBody: map[string]string{"email": "director@camp.example", "password": "password"},
			prepare: func(authenticator *mock_idp.MockAuthenticator) {
				authenticator.EXPECT().SignInWithPassword(gomock.Any(), "director@camp.example", "password").
					Return(nil, errors.New("connection refused"))
			},
			wantStatusCode: http.StatusUnauthorized,
			wantMessage:    "sign in failed",
		},
		{
			name:    "success",
			reqBody: map[string]string{"email": "director@camp.example", "password": "password"},
			prepare: func(authenticator *mock_idp.MockAuthenticator) {
				authenticator.EXPECT().SignInWithPassword(gomock.Any(), "director@camp.example", "password").
					Return(testSession(), nil)
			},
			wantStatusCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)

			authenticator := mock_idp.NewMockAuthenticator(ctrl)
			if tt.prepare != nil {
				tt.prepare(authenticator)
			}

			store := authstate.NewStore()
			store.SetLoading(false)
			m := New(store, authenticator, mock_users.NewMockUserManager(ctrl), testSecureCookie())

			rr := httptest.NewRecorder()
			m.Login().ServeHTTP(rr, postJSON(t, "/auth/login", tt.reqBody))

			if rr.Code != tt.wantStatusCode {
				t.Errorf("response.Code = %v, want %v", rr.Code, tt.wantStatusCode)
			}
			if tt.wantMessage != "" {
				var got httpio.MessageResponse
				if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
					t.Fatalf("json.Unmarshal() error = %v", err)
				}
				if got.Message != tt.wantMessage {
					t.Errorf("message = %q, want %q", got.Message, tt.wantMessage)
				}
			}

			// Login never writes the store; the SignedIn event does.
			if state := store.Snapshot(); state.IsAuthenticated {
				t.Error("Login() wrote the store directly")
			}
		})
	}
}

func TestManager_Register(t *testing.T) {
	t.Parallel()

	regBody := map[string]string{
		"org_name":   "Pine Ridge Camp",
		"org_slug":   "pine-ridge",
		"email":      "director@camp.example",
		"password":   "password",
		"first_name": "Jo",
		"last_name":  "Avery",
	}
	regReq := users.RegistrationRequest{
		OrgName:   "Pine Ridge Camp",
		OrgSlug:   "pine-ridge",
		Email:     "director@camp.example",
		Password:  "password",
		FirstName: "Jo",
		LastName:  "Avery",
	}

	tests := []struct {
		name           string
		reqBody        any
		prepare        func(authenticator *mock_idp.MockAuthenticator, userClient *mock_users.MockUserManager)
		wantStatusCode int
		wantInBody     string
	}{
		{
			name:           "fails on decode",
			reqBody:        nil,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:    "backend detail message is surfaced verbatim",
			reqBody: regBody,
			prepare: func(_ *mock_idp.MockAuthenticator, userClient *mock_users.MockUserManager) {
				userClient.EXPECT().Register(gomock.Any(), regReq).
					Return(&users.DetailError{StatusCode: http.StatusConflict, Detail: "organization slug is already taken"})
			},
			wantStatusCode: http.StatusBadRequest,
			wantInBody:     "organization slug is already taken",
		},
		{
			name:    "created but immediate sign in failed",
			reqBody: regBody,
			prepare: func(authenticator *mock_idp.MockAuthenticator, userClient *mock_users.MockUserManager) {
				userClient.EXPECT().Register(gomock.Any(), regReq).Return(nil)
				authenticator.EXPECT().SignInWithPassword(gomock.Any(), "director@camp.example", "password").
					Return(nil, errors.New("provider unavailable"))
			},
			wantStatusCode: http.StatusOK,
			wantInBody:     "Please sign in",
		},
		{
			name:    "created and signed in",
			reqBody: regBody,
			prepare: func(authenticator *mock_idp.MockAuthenticator, userClient *mock_users.MockUserManager) {
				userClient.EXPECT().Register(gomock.Any(), regReq).Return(nil)
				authenticator.EXPECT().SignInWithPassword(gomock.Any(), "director@camp.example", "password").
					Return(testSession(), nil)
			},
			wantStatusCode: http.StatusOK,
			wantInBody:     `"signedIn":true`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)

			authenticator := mock_idp.NewMockAuthenticator(ctrl)
			userClient := mock_users.NewMockUserManager(ctrl)
			if tt.prepare != nil {
				tt.prepare(authenticator, userClient)
			}

			m := New(authstate.NewStore(), authenticator, userClient, testSecureCookie())

			rr := httptest.NewRecorder()
			m.Register().ServeHTTP(rr, postJSON(t, "/auth/register", tt.reqBody))

			if rr.Code != tt.wantStatusCode {
				t.Errorf("response.Code = %v, want %v", rr.Code, tt.wantStatusCode)
			}
			if tt.wantInBody != "" && !strings.Contains(rr.Body.String(), tt.wantInBody) {
				t.Errorf("body = %q, want it to contain %q", rr.Body.String(), tt.wantInBody)
			}
		})
	}
}

func TestManager_Logout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		prepare func(authenticator *mock_idp.MockAuthenticator)
	}{
		{
			name: "success",
			prepare: func(authenticator *mock_idp.MockAuthenticator) {
				authenticator.EXPECT().SignOut(gomock.Any()).Return(nil)
			},
		},
		{
			name: "provider sign out failure still resets the store",
			prepare: func(authenticator *mock_idp.MockAuthenticator) {
				authenticator.EXPECT().SignOut(gomock.Any()).Return(errors.New("provider unavailable"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)

			authenticator := mock_idp.NewMockAuthenticator(ctrl)
			tt.prepare(authenticator)

			store := authstate.NewStore()
			store.SetSession(testSession())
			store.SetUser(&users.UserProfile{RoleName: "Counselor"})
			store.SetLoading(false)

			m := New(store, authenticator, mock_users.NewMockUserManager(ctrl), testSecureCookie())

			rr := httptest.NewRecorder()
			m.Logout().ServeHTTP(rr, postJSON(t, "/auth/logout", nil))

			if rr.Code != http.StatusOK {
				t.Errorf("response.Code = %v, want %v", rr.Code, http.StatusOK)
			}

			state := store.Snapshot()
			if state.IsAuthenticated || state.Session != nil || state.User != nil || state.IsLoading {
				t.Errorf("store not reset: %+v", state)
			}
		})
	}
}

func TestManager_ForgotPassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		reqBody        any
		prepare        func(authenticator *mock_idp.MockAuthenticator)
		wantStatusCode int
	}{
		{
			name:           "fails on decode",
			reqBody:        nil,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:    "provider failure is reported",
			reqBody: map[string]string{"email": "director@camp.example"},
			prepare: func(authenticator *mock_idp.MockAuthenticator) {
				authenticator.EXPECT().RequestPasswordReset(gomock.Any(), "director@camp.example", "/reset-password").
					Return(errors.New("provider unavailable"))
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:    "success",
			reqBody: map[string]string{"email": "director@camp.example"},
			prepare: func(authenticator *mock_idp.MockAuthenticator) {
				authenticator.EXPECT().RequestPasswordReset(gomock.Any(), "director@camp.example", "/reset-password").
					Return(nil)
			},
			wantStatusCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)

			authenticator := mock_idp.NewMockAuthenticator(ctrl)
			if tt.prepare != nil {
				tt.prepare(authenticator)
			}

			m := New(authstate.NewStore(), authenticator, mock_users.NewMockUserManager(ctrl), testSecureCookie())

			rr := httptest.NewRecorder()
			m.ForgotPassword().ServeHTTP(rr, postJSON(t, "/auth/forgot-password", tt.reqBody))

			if rr.Code != tt.wantStatusCode {
				t.Errorf("response.Code = %v, want %v", rr.Code, tt.wantStatusCode)
			}
		})
	}
}

func TestManager_Authenticated(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		seed       func(store *authstate.Store)
		wantInBody string
	}{
		{
			name:       "loading",
			seed:       func(_ *authstate.Store) {},
			wantInBody: `"loading":true`,
		},
		{
			name:       "signed out",
			seed:       func(store *authstate.Store) { store.SetLoading(false) },
			wantInBody: `"authenticated":false`,
		},
		{
			name: "signed in with profile",
			seed: func(store *authstate.Store) {
				store.SetSession(testSession())
				store.SetUser(&users.UserProfile{RoleName: "Counselor", Permissions: []accesstypes.Permission{"core.events.read"}})
				store.SetLoading(false)
			},
			wantInBody: `"role":"Counselor"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := authstate.NewStore()
			tt.seed(store)
			m := New(store, nil, nil, testSecureCookie())

			rr := httptest.NewRecorder()
			m.Authenticated().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/session", http.NoBody))

			if rr.Code != http.StatusOK {
				t.Errorf("response.Code = %v, want %v", rr.Code, http.StatusOK)
			}
			if !strings.Contains(rr.Body.String(), tt.wantInBody) {
				t.Errorf("body = %q, want it to contain %q", rr.Body.String(), tt.wantInBody)
			}
		})
	}
}
