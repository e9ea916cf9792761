package poller

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPollerStopped is returned when an operation is attempted on a
	// poller that has been stopped. Stopped pollers cannot be restarted.
	ErrPollerStopped = errors.New("poller stopped")

	// ErrRegistryClosed is returned by a [Registry] after Deactivate.
	ErrRegistryClosed = errors.New("registry closed")

	// ErrDuplicateResource is returned when a registry already holds a
	// poller with the same name.
	ErrDuplicateResource = errors.New("duplicate resource")

	// ErrUnknownResource is returned when a registry lookup fails.
	ErrUnknownResource = errors.New("unknown resource")
)

// TransportError reports that the query service could not be reached or
// returned an unusable transport-level response.
type TransportError struct {
	// Query is the name of the query being executed.
	Query string

	// StatusCode is the HTTP status code, or zero if no response was received.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

func (e *TransportError) Error() string {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		if msg == "" {
			return fmt.Sprintf("unexpected status %d", e.StatusCode)
		}
		return fmt.Sprintf("%s (status=%d)", msg, e.StatusCode)
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServiceError reports a structured failure from the query service, such as
// a malformed query, a backend fault, or a payload that cannot be decoded.
type ServiceError struct {
	// Query is the name of the query being executed.
	Query string

	// Messages are the service-provided error messages.
	Messages []string
}

func (e *ServiceError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// AsTransportError attempts to unwrap an error into a TransportError.
func AsTransportError(err error) (*TransportError, bool) {
	var tErr *TransportError
	if errors.As(err, &tErr) {
		return tErr, true
	}
	return nil, false
}

// AsServiceError attempts to unwrap an error into a ServiceError.
func AsServiceError(err error) (*ServiceError, bool) {
	var sErr *ServiceError
	if errors.As(err, &sErr) {
		return sErr, true
	}
	return nil, false
}

// ErrorMessage derives the human-readable message stored in a [State] from a
// failed execution. When the cause carries no message the generic
// "Failed to fetch <resource>" is used.
func ErrorMessage(err error, resource string) string {
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			return msg
		}
	}
	if resource == "" {
		resource = "resource"
	}
	return "Failed to fetch " + resource
}
