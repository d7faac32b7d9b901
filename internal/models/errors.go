package models

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout marks a remote call that did not finish in time. It always
	// reaches callers wrapped in a GatewayError.
	ErrTimeout = errors.New("request timed out")
	// ErrGeolocation means the user position is missing, denied or out of range.
	ErrGeolocation = errors.New("location unavailable")
	// ErrUnsupportedFileType rejects a document before any state changes.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrUnknownLanguage     = errors.New("unknown language")
	// ErrMalformedResult is wrapped in a GatewayError when the remote side
	// answers with data that does not fit the expected shape.
	ErrMalformedResult = errors.New("malformed result")
)

// EncodingError is a failure to turn a local file into a document blob.
type EncodingError struct {
	Name string
	Err  error
}

func (e *EncodingError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("read document: %v", e.Err)
	}
	return fmt.Sprintf("read document %s: %v", e.Name, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// GatewayError is any failure reported by, or while talking to, the remote
// analysis service.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// NewGatewayError wraps err unless it already is a GatewayError.
func NewGatewayError(op string, err error) error {
	if err == nil {
		return nil
	}
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return err
	}
	return &GatewayError{Op: op, Err: err}
}

func IsGatewayError(err error) bool {
	var gwErr *GatewayError
	return errors.As(err, &gwErr)
}

func IsEncodingError(err error) bool {
	var encErr *EncodingError
	return errors.As(err, &encErr)
}
