package docingest

import (
	"errors"
	"fmt"
)

// Application error codes.
const (
	EINTERNAL = "internal"
	EINVALID  = "invalid"
	ENOTFOUND = "not_found"
)

// Error represents an application-specific error.
type Error struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("docingest error: code=%s message=%s", e.Code, e.Message)
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error.".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// Errorf is a helper function to return an Error with a given code and formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorKind classifies crawl failures. Kinds other than ScopeViolation
// are persisted in error records.
type ErrorKind string

// Crawl error kinds.
const (
	NetworkTimeout     ErrorKind = "NetworkTimeout"
	HTTPError          ErrorKind = "HttpError"
	ChallengeDetected  ErrorKind = "ChallengeDetected"
	ParseError         ErrorKind = "ParseError"
	ScopeViolation     ErrorKind = "ScopeViolation"
	SessionLoadFailure ErrorKind = "SessionLoadFailure"
)

// CrawlError is a failure attributed to a single URL or to the run itself.
type CrawlError struct {
	Kind    ErrorKind
	URL     string
	Attempt int
	Status  int
	Err     error
}

// Error implements the error interface.
func (e *CrawlError) Error() string {
	msg := string(e.Kind)
	if e.URL != "" {
		msg += " " + e.URL
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *CrawlError) Unwrap() error {
	return e.Err
}

// Fatal reports whether the error kind aborts the whole run.
func (k ErrorKind) Fatal() bool {
	return k == SessionLoadFailure
}

// ErrorKindOf returns the kind of the first CrawlError in err's chain,
// or the empty kind if there is none.
func ErrorKindOf(err error) ErrorKind {
	var e *CrawlError
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
