package idp

import (
	stderrors "errors"

	"golang.org/x/oauth2"
)

// SignInError carries the identity provider's human-readable message for a
// rejected sign-in, suitable for inline display on the form.
type SignInError struct {
	Message string
	err     error
}

func newSignInError(rerr *oauth2.RetrieveError) *SignInError {
	message := rerr.ErrorDescription
	if message == "" {
		message = rerr.ErrorCode
	}
	if message == "" {
		message = "sign in failed"
	}

	return &SignInError{Message: message, err: rerr}
}

func (e *SignInError) Error() string {
	return e.Message
}

func (e *SignInError) Unwrap() error {
	return e.err
}

// retrieveError unwraps an oauth2 endpoint rejection, or returns nil when the
// error is a transport failure.
func retrieveError(err error) *oauth2.RetrieveError {
	var rerr *oauth2.RetrieveError
	if stderrors.As(err, &rerr) {
		return rerr
	}

	return nil
}
