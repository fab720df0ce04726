package classify

import (
	"fmt"

	"github.com/searchwise/termlens/internal/resilience"
)

// ProviderError is a non-2xx HTTP response from a classification endpoint,
// carrying the status code and raw body. Retryable.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: provider returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// ParseError means no JSON object could be located in, or parsed from, the
// model output. Retryable.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse model output: %s", e.Reason)
}

// InvalidCategoryError means the parsed category was absent, not a string,
// or outside the active category set. Unlike confidence, the category is
// never repaired: a bad label fails the attempt and drives a retry.
type InvalidCategoryError struct {
	Category string
}

func (e *InvalidCategoryError) Error() string {
	if e.Category == "" {
		return "model output has no usable category"
	}
	return fmt.Sprintf("model returned unknown category %q", e.Category)
}

// asRetryable marks provider errors with a transient HTTP status (429,
// 5xx, ...) as resilience.TransientError so callers retrying on the
// default transient predicate treat them accordingly. Other statuses pass
// through unwrapped.
func asRetryable(err *ProviderError) error {
	if resilience.IsTransientHTTPStatus(err.StatusCode) {
		return resilience.NewTransientError(err, err.StatusCode)
	}
	return err
}

// retryAll is the retry predicate for the classification path: provider
// errors, parse errors and invalid categories all warrant another attempt.
// Persistent failure is absorbed into a terminal ERROR result, never a run
// abort.
func retryAll(error) bool { return true }
