package api

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind classifies the errors produced by the client itself.
type Kind int

const (
	// KindRegular is a user-facing error, recoverable by retrying or
	// correcting the input.
	KindRegular Kind = iota + 1
	// KindInternal is a programming or configuration fault, such as a
	// malformed endpoint URL. It is never expected in correct operation.
	KindInternal
	// KindAuth means the session token is no longer valid.
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindInternal:
		return "internal"
	case KindAuth:
		return "auth"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	// ErrRegular is matched by every [KindRegular] error.
	ErrRegular = errors.New("regular error")
	// ErrInternal is matched by every [KindInternal] error.
	ErrInternal = errors.New("internal error")
	// ErrAuth is matched by every [KindAuth] error.
	ErrAuth = errors.New("auth failure")
)

const (
	msgBadResponse    = "Bad server response"
	msgServerError    = "Server error %d"
	msgDownloadError  = "Download server error %d"
	msgBadEndpoint    = "Bad endpoint url"
	msgBadBody        = "Bad request body"
	msgBadPayload     = "Bad payload type"
	msgNoResponse     = "Internal error"
	msgNotScheduled   = "Request could not be scheduled"
	msgAuthentication = "Failed to authenticate: token has expired."
)

// Error is returned for every failure the client classifies itself.
// Transport failures and decoded typed errors are returned as they are.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	FuncName   string
	FileName   string
	Err        error

	// detail keeps the underlying cause for logging without
	// exposing it through Unwrap.
	detail error
}

// Error implements the error interface, returning the user-facing message.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the kind sentinel and the wrapped cause, if any.
func (e *Error) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}

	return errs
}

func (k Kind) sentinel() error {
	switch k {
	case KindInternal:
		return ErrInternal
	case KindAuth:
		return ErrAuth
	default:
		return ErrRegular
	}
}

// Regular constructs a user-facing error with the given message.
func Regular(msg string) *Error {
	return &Error{Kind: KindRegular, Message: msg}
}

// Internal constructs an error that is not intended to be seen by users.
// The calling function and file are recorded for diagnostics.
func Internal(msg string) *Error {
	return newInternal(msg, 2)
}

// newInternal records the function skip frames above itself.
func newInternal(msg string, skip int) *Error {
	pc, filename, line, _ := runtime.Caller(skip)

	return &Error{
		Kind:     KindInternal,
		Message:  msg,
		FuncName: runtime.FuncForPC(pc).Name(),
		FileName: fmt.Sprintf("%s:%d", filename, line),
	}
}

// Auth constructs the error signalling an expired session.
func Auth() *Error {
	return &Error{Kind: KindAuth, Message: msgAuthentication}
}

// IsAuth reports whether err is a [KindAuth] error.
func IsAuth(err error) bool { return errors.Is(err, ErrAuth) }

// IsInternal reports whether err is a [KindInternal] error.
func IsInternal(err error) bool { return errors.Is(err, ErrInternal) }

// IsRegular reports whether err is a [KindRegular] error.
func IsRegular(err error) bool { return errors.Is(err, ErrRegular) }

// KindOf returns the kind of the first [*Error] in err's chain,
// or 0 if there is none.
func KindOf(err error) Kind {
	if e, ok := errors.AsType[*Error](err); ok {
		return e.Kind
	}

	return 0
}

func badResponse(status int, detail error) *Error {
	return &Error{Kind: KindRegular, Message: msgBadResponse, StatusCode: status, detail: detail}
}

func serverError(status int, detail error) *Error {
	return &Error{Kind: KindRegular, Message: fmt.Sprintf(msgServerError, status), StatusCode: status, detail: detail}
}

func authError(status int) *Error {
	err := Auth()
	err.StatusCode = status

	return err
}

// internalError keeps detail out of the Unwrap chain. Use it for
// diagnostics the caller cannot act on.
func internalError(msg string, detail error) *Error {
	err := newInternal(msg, 2)
	err.detail = detail

	return err
}

// internalCause exposes cause through Unwrap. Use it when the caller
// can act on the cause.
func internalCause(msg string, cause error) *Error {
	err := newInternal(msg, 2)
	err.Err = cause

	return err
}
