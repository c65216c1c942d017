package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	ErrBadRequest         = errors.New("bad request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrServer             = errors.New("server error")
	ErrCircuitOpen        = errors.New("api temporarily unavailable")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const maxErrorBody = 64 << 10

// APIError is a non-2xx response from the API. It unwraps to the sentinel
// matching its status class so callers can use errors.Is.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusConflict:
		return ErrConflict
	case e.StatusCode >= 500:
		return ErrServer
	case e.StatusCode >= 400:
		return ErrBadRequest
	default:
		return nil
	}
}

// errorFromResponse reads and closes resp.Body.
func errorFromResponse(resp *http.Response) *APIError {
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	body := strings.TrimSpace(string(raw))
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    extractMessage(body),
		Body:       body,
	}
}

// extractMessage understands the shapes the API uses for errors: a bare JSON
// string, an object with a message-like field, or plain text.
func extractMessage(body string) string {
	if body == "" {
		return ""
	}

	var s string
	if err := json.Unmarshal([]byte(body), &s); err == nil {
		return s
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(body), &obj); err == nil {
		for _, key := range []string{"message", "error", "title", "detail"} {
			if v, ok := obj[key].(string); ok && v != "" {
				return v
			}
		}
		return ""
	}
	return body
}

// UserMessage renders err as a short message suitable for showing to a user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid username or password."
	case errors.Is(err, ErrUnauthorized):
		return "Your session is missing or expired. Please log in again."
	case errors.Is(err, ErrForbidden):
		return "You do not have permission to perform this action."
	case errors.Is(err, ErrCircuitOpen):
		return "The store is temporarily unavailable. Please try again shortly."
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fmt.Sprintf("Request failed with status %d.", apiErr.StatusCode)
	default:
		return "Connection error. Please check your network and try again."
	}
}
