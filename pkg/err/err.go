package errprocess

import (
	"errors"
	"fmt"

	"collab_chat_service/pkg/logger"
)

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}

// error kinds, match with errors.Is
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrTransient    = errors.New("temporarily unavailable")
	ErrExternal     = errors.New("external service failure")
	ErrRateLimited  = errors.New("rate limited")
)

// Error 帶 kind 與操作名稱的錯誤
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap expose both kind and cause to errors.Is / errors.As
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Wrap tag err with kind, nil err with nil kind stays nil
func Wrap(kind error, op string, err error) error {
	if kind == nil && err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// New build a kind error without cause
func New(kind error, op, msg string) error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// protocol error codes
const (
	CodeInvalidRequest  = "invalid_request"
	CodeUnauthorized    = "unauthorized"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeUnavailable     = "unavailable"
	CodeExternalFailure = "external_failure"
	CodeRateLimited     = "rate_limited"
	CodeInternal        = "internal_error"
)

// Code map an error to its protocol code
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidRequest
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrTransient):
		return CodeUnavailable
	case errors.Is(err, ErrExternal):
		return CodeExternalFailure
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	default:
		return CodeInternal
	}
}
