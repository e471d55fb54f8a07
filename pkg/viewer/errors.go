package viewer

import (
	"errors"
	"net/http"
)

// Kind classifies viewer errors.
type Kind string

const (
	// KindConfig represents an invalid store path or missing marker files.
	KindConfig Kind = "config"

	// KindConnection represents a failure to open the store.
	KindConnection Kind = "connection"

	// KindNotFound represents a reference to a collection that does not exist.
	KindNotFound Kind = "not_found"

	// KindRetrieval represents any other store failure while reading.
	KindRetrieval Kind = "retrieval"

	// KindNotConnected represents a request made while no store is attached.
	KindNotConnected Kind = "not_connected"
)

// Error is a viewer failure with its classification.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err. Unclassified errors are retrieval errors.
func KindOf(err error) Kind {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Kind
	}
	return KindRetrieval
}

// StatusCode maps an error kind to the HTTP status reported for it.
func StatusCode(kind Kind) int {
	switch kind {
	case KindConfig:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindNotConnected:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
