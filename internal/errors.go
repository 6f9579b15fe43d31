package internal

import "fmt"

// APIError represents an error response from the RAGIS service.
// Detail holds the normalized human-readable message extracted from the
// response body: the backend returns either a plain string or a list of
// structured validation entries under "detail".
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Detail)
}

// IsAuthFailure reports whether the error is a credential rejection.
func (e *APIError) IsAuthFailure() bool {
	return e.Status == 401
}

// StorageError represents errors accessing local state files
type StorageError struct {
	Path string
	Op   string // "read", "write", "decode"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// TransportError represents a failure before an HTTP status was obtained
// (connection refused, timeout, non-JSON body).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
