package dispatch

import (
	"errors"
	"fmt"
)

// Kind classifies a dispatch failure.
type Kind string

const (
	KindUnknownFunction    Kind = "unknown_function"
	KindUnknownServer      Kind = "unknown_server"
	KindUnsupportedBackend Kind = "unsupported_backend"
	KindInvalidServer      Kind = "invalid_server"
	KindMissingCredential  Kind = "missing_credential"
	KindInvalidCredential  Kind = "invalid_credential"
	KindTriggerFailed      Kind = "trigger_failed"
)

// Sentinels for errors.Is; a *Error matches the sentinel of its Kind.
var (
	ErrUnknownFunction    = &Error{Kind: KindUnknownFunction}
	ErrUnknownServer      = &Error{Kind: KindUnknownServer}
	ErrUnsupportedBackend = &Error{Kind: KindUnsupportedBackend}
	ErrInvalidServer      = &Error{Kind: KindInvalidServer}
	ErrMissingCredential  = &Error{Kind: KindMissingCredential}
	ErrInvalidCredential  = &Error{Kind: KindInvalidCredential}
	ErrTriggerFailed      = &Error{Kind: KindTriggerFailed}
)

// Error is a failed dispatch. StatusCode and Body are set when the backend
// answered; Err holds the transport or SDK error when there was one.
type Error struct {
	Kind       Kind
	Function   string
	Server     string
	Msg        string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Function != "" {
		msg += fmt.Sprintf(" (function %q)", e.Function)
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
		if e.Body != "" {
			msg += " - " + e.Body
		}
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of err, or "" when err is not a dispatch error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func newError(kind Kind, function, format string, args ...any) *Error {
	return &Error{Kind: kind, Function: function, Msg: fmt.Sprintf(format, args...)}
}
