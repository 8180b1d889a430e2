package domain

import (
	"errors"
	"fmt"
	"log/slog"
)

// Error categories. Every error leaving a component is matchable with errors.Is against one of them.
var (
	// ErrConfiguration is returned when the application configuration is invalid or incomplete.
	ErrConfiguration = errors.New("configuration error")

	// ErrDocumentLoad is returned when documents cannot be loaded or indexed.
	ErrDocumentLoad = errors.New("document load error")

	// ErrVectorStore is returned when the vector index cannot be built or queried.
	ErrVectorStore = errors.New("vector store error")

	// ErrLLM is returned when the language model fails to produce an answer.
	ErrLLM = errors.New("llm error")

	// ErrWebCrawler is returned when the web crawler cannot fetch or parse a page.
	ErrWebCrawler = errors.New("web crawler error")

	// ErrInvalidInput is returned when a user query or parameter fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSessionNotFound is returned when a session ID cannot be found in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNotImplemented is returned by providers that are declared but not available yet.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedFormat is returned when a file extension has no loader.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// categories lists the sentinels that mark an error as already classified.
var categories = []error{
	ErrConfiguration,
	ErrDocumentLoad,
	ErrVectorStore,
	ErrLLM,
	ErrWebCrawler,
	ErrInvalidInput,
	ErrSessionNotFound,
	ErrNotImplemented,
	ErrUnsupportedFormat,
}

// Error is a categorized failure of a named operation.
type Error struct {
	Kind error  // One of the category sentinels.
	Op   string // Operation that failed, e.g. "generate_answer".
	Err  error  // Underlying cause.
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the category and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Wrap categorizes err as kind for operation op.
// Errors that already belong to a category pass through unchanged, so the
// innermost classification wins. A nil err returns nil.
func Wrap(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	if Categorized(err) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Categorized reports whether err already matches one of the category sentinels.
func Categorized(err error) bool {
	for _, c := range categories {
		if errors.Is(err, c) {
			return true
		}
	}
	return false
}

// Invalid builds an ErrInvalidInput error with a human readable reason.
func Invalid(reason string) error {
	return &Error{Kind: ErrInvalidInput, Op: "validate", Err: errors.New(reason)}
}

// SafeExecute runs fn and returns def instead of failing when fn errors.
// The failure is logged under op.
func SafeExecute[T any](logger *slog.Logger, op string, def T, fn func() (T, error)) T {
	v, err := fn()
	if err != nil {
		if logger != nil {
			logger.Warn("operation failed, using default", "op", op, "error", err)
		}
		return def
	}
	return v
}
