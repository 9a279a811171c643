// Package apperr defines the error taxonomy shared by services and
// handlers: NotFound, PermissionDenied, StorageError and UploadError.
// Callers branch with errors.Is against the sentinel kinds.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrStorage          = errors.New("storage error")
	ErrUpload           = errors.New("upload error")
)

// Error carries a kind sentinel, a short operation name and the cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

func NotFound(op string) error {
	return &Error{Kind: ErrNotFound, Op: op}
}

func PermissionDenied(op string) error {
	return &Error{Kind: ErrPermissionDenied, Op: op}
}

func Storage(op string, err error) error {
	return &Error{Kind: ErrStorage, Op: op, Err: err}
}

func Upload(op string, err error) error {
	return &Error{Kind: ErrUpload, Op: op, Err: err}
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsPermissionDenied(err error) bool { return errors.Is(err, ErrPermissionDenied) }
