package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindParse
	KindValidation
	KindProviderTransport
	KindProviderRejection
	KindCacheIntegrity
	KindConfig
	KindStorage
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "Parse"
	case KindValidation:
		return "Validation"
	case KindProviderTransport:
		return "ProviderTransport"
	case KindProviderRejection:
		return "ProviderRejection"
	case KindCacheIntegrity:
		return "CacheIntegrity"
	case KindConfig:
		return "Config"
	case KindStorage:
		return "Storage"
	case KindNotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

// Error is the single error type shared by every layer. Document-level kinds
// (Parse, Validation, Config) abort a request; provider kinds are scoped to one chunk.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
	Cause   error
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Context: make(map[string]any),
	}
}

func Wrap(err error, kind Kind, format string, args ...any) *Error {
	e := New(kind, format, args...)
	e.Cause = err
	return e
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Kind, e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) WithContext(key string, value any) *Error {
	e.Context[key] = value
	return e
}

// KindOf returns the kind of the outermost *Error in the chain, or KindUnknown.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsDocumentLevel reports whether err must abort the whole request.
func IsDocumentLevel(err error) bool {
	switch KindOf(err) {
	case KindParse, KindValidation, KindConfig:
		return true
	}
	return false
}
