package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Code is a stable, machine-readable error type mapped to process exit codes.
type Code int

const (
	CodeSuccess    Code = 0
	CodeInternal   Code = 1
	CodeValidation Code = 2
	CodeAuth       Code = 10
	CodeNotFound   Code = 11
	CodeConflict   Code = 12
	CodeTransport  Code = 13
	CodeServer     Code = 14
	CodeBlocked    Code = 16
)

// Kind names the taxonomy branch an error belongs to. It is what the
// renderer prints as error.type.
type Kind string

const (
	KindValidation Kind = "validation_error"
	KindAuth       Kind = "auth_error"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindTransport  Kind = "transport_error"
	KindServer     Kind = "server_error"
	KindBlocked    Kind = "command_blocked"
	KindInternal   Kind = "internal_error"
)

// AuthKind distinguishes the three authentication failures.
type AuthKind string

const (
	AuthMissingAPIKey     AuthKind = "missing_api_key"
	AuthInvalidPrivateKey AuthKind = "invalid_private_key"
	AuthUnauthorized      AuthKind = "unauthorized"
)

// Error is a typed CLI error that carries a stable error code plus the
// context fields of its kind. Fields that do not apply to the kind are empty.
type Error struct {
	Code    Code
	Kind    Kind
	Message string
	Cause   error

	Field      string
	Auth       AuthKind
	Resource   string
	ID         string
	StatusCode int
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether re-invoking the whole command may succeed.
// Nothing in this module retries on its own.
func (e *Error) Retryable() bool {
	return e != nil && e.Kind == KindTransport
}

// Details returns the kind-specific context for structured output.
func (e *Error) Details() map[string]any {
	if e == nil {
		return nil
	}
	d := map[string]any{}
	if e.Field != "" {
		d["field"] = e.Field
	}
	if e.Auth != "" {
		d["auth_kind"] = string(e.Auth)
	}
	if e.Resource != "" {
		d["resource"] = e.Resource
	}
	if e.ID != "" {
		d["id"] = e.ID
	}
	if e.StatusCode != 0 {
		d["status_code"] = e.StatusCode
	}
	if len(d) == 0 {
		return nil
	}
	return d
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Kind: kindForCode(code), Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Kind: kindForCode(code), Message: message, Cause: cause}
}

func Validation(field, reason string) *Error {
	return &Error{Code: CodeValidation, Kind: KindValidation, Message: reason, Field: field}
}

func Auth(kind AuthKind, message string) *Error {
	return &Error{Code: CodeAuth, Kind: KindAuth, Message: message, Auth: kind}
}

func NotFound(resource, id, message string) *Error {
	if strings.TrimSpace(message) == "" {
		message = fmt.Sprintf("%s not found", resource)
	}
	return &Error{Code: CodeNotFound, Kind: KindNotFound, Message: message, Resource: resource, ID: id, StatusCode: 404}
}

func Conflict(reason string) *Error {
	return &Error{Code: CodeConflict, Kind: KindConflict, Message: reason, StatusCode: 409}
}

func Transport(message string, cause error) *Error {
	return &Error{Code: CodeTransport, Kind: KindTransport, Message: message, Cause: cause}
}

func UnknownServer(statusCode int, message string) *Error {
	return &Error{Code: CodeServer, Kind: KindServer, Message: message, StatusCode: statusCode}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// Classify maps any failure onto the taxonomy. It returns nil only for nil.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	if cErr, ok := As(err); ok {
		return cErr
	}
	if errors.Is(err, context.Canceled) {
		return Transport("request cancelled", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transport("request timed out", err)
	}
	var uErr *url.Error
	if errors.As(err, &uErr) {
		return Transport("request failed", err)
	}
	var nErr net.Error
	if errors.As(err, &nErr) {
		if nErr.Timeout() {
			return Transport("request timed out", err)
		}
		return Transport("request failed", err)
	}
	if isLikelyUsageError(err) {
		return &Error{Code: CodeValidation, Kind: KindValidation, Message: "invalid command input", Cause: err}
	}
	return Wrap(CodeInternal, "execute command", err)
}

func ExitCode(err error) int {
	if err == nil {
		return int(CodeSuccess)
	}
	if cliErr, ok := As(err); ok {
		return int(cliErr.Code)
	}
	return int(CodeInternal)
}

func kindForCode(code Code) Kind {
	switch code {
	case CodeValidation:
		return KindValidation
	case CodeAuth:
		return KindAuth
	case CodeNotFound:
		return KindNotFound
	case CodeConflict:
		return KindConflict
	case CodeTransport:
		return KindTransport
	case CodeServer:
		return KindServer
	case CodeBlocked:
		return KindBlocked
	default:
		return KindInternal
	}
}

func isLikelyUsageError(err error) bool {
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"unknown flag",
		"unknown shorthand flag",
		"required flag(s)",
		"flag needs an argument",
		"requires at least",
		"requires exactly",
		"accepts ",
		"invalid argument",
		"invalid args",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
