package chatclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vedran77/dealerchat/pkg/validator"
)

var (
	ErrEmptyUserID  = errors.New("chatclient: user id is required")
	ErrNoSession    = errors.New("chatclient: no active session")
	ErrUnauthorized = errors.New("chatclient: unauthorized")
)

// ValidationError reports a draft rejected locally, before any request was made.
type ValidationError struct {
	Fields validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	return "chatclient: invalid message: " + e.Fields.Error()
}

// APIError is a failed REST call: a non-2xx status or an envelope with
// success=false.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("chatclient: request failed with status %d", e.Status)
	}
	return fmt.Sprintf("chatclient: request failed with status %d: %s", e.Status, e.Message)
}

// Is lets callers match a 401 with errors.Is(err, ErrUnauthorized).
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}
