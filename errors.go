package memfs

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"
)

// ErrorKind classifies a failed memory command.
type ErrorKind string

const (
	KindInvalidPath        ErrorKind = "InvalidPath"
	KindPathEscape         ErrorKind = "PathEscape"
	KindNotFound           ErrorKind = "NotFound"
	KindAlreadyExists      ErrorKind = "AlreadyExists"
	KindIsADirectory       ErrorKind = "IsADirectory"
	KindNotADirectory      ErrorKind = "NotADirectory"
	KindNoMatch            ErrorKind = "NoMatch"
	KindAmbiguousMatch     ErrorKind = "AmbiguousMatch"
	KindInvalidRange       ErrorKind = "InvalidRange"
	KindUnknownCommand     ErrorKind = "UnknownCommand"
	KindInvalidArguments   ErrorKind = "InvalidArguments"
	KindConfigurationError ErrorKind = "ConfigurationError"
	KindAccessDenied       ErrorKind = "AccessDenied"
	KindIOFailure          ErrorKind = "IOFailure"
)

func (k ErrorKind) String() string {
	return string(k)
}

// Error is returned by every layer of the memory store. The Message is safe
// to show to the model; Err holds the underlying cause, if any.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Errorf creates an Error of the given kind with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an Error of the given kind that wraps err.
func WrapError(kind ErrorKind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind != KindPathEscape {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so callers can
// write errors.Is(err, &memfs.Error{Kind: memfs.KindNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// os.Root reports escapes with an unexported error value.
const rootEscapeText = "path escapes from parent"

// KindOf classifies err. Typed errors keep their kind, filesystem errors are
// mapped to the closest kind, and anything else is an IOFailure.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var memErr *Error
	if errors.As(err, &memErr) {
		return memErr.Kind
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, fs.ErrExist):
		return KindAlreadyExists
	case errors.Is(err, syscall.ENOTDIR):
		return KindNotADirectory
	case errors.Is(err, syscall.EISDIR):
		return KindIsADirectory
	case strings.Contains(err.Error(), rootEscapeText):
		return KindPathEscape
	}
	return KindIOFailure
}

// AsError converts any error into an *Error, classifying it with KindOf.
// The fallback message is used when err carries no model-safe message.
func AsError(err error, fallback string) *Error {
	if err == nil {
		return nil
	}
	var memErr *Error
	if errors.As(err, &memErr) {
		return memErr
	}
	kind := KindOf(err)
	if kind == KindPathEscape {
		// Never echo the underlying path text for escapes.
		return &Error{Kind: kind, Message: "path resolves outside the memory directory"}
	}
	return &Error{Kind: kind, Message: fallback, Err: err}
}

// IsKind reports whether err classifies as kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
