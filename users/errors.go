package users

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// DetailError carries the backend's detail message for a rejected request,
// verbatim, for display to the end user.
type DetailError struct {
	StatusCode int
	Detail     string
}

func newDetailError(resp *http.Response) *DetailError {
	e := &DetailError{
		StatusCode: resp.StatusCode,
		Detail:     resp.Status,
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return e
	}

	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		e.Detail = payload.Detail
	}

	return e
}

func (e *DetailError) Error() string {
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Detail)
}
