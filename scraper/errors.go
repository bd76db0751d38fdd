package scraper

import (
	"errors"
	"fmt"
)

// ErrorKind splits adapter failures into the ones worth retrying and the
// ones that will fail the same way every time.
type ErrorKind string

const (
	KindTransient ErrorKind = "transient"
	KindPermanent ErrorKind = "permanent"
)

type AdapterError struct {
	Kind ErrorKind
	Err  error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

func Transient(err error) error {
	return &AdapterError{Kind: KindTransient, Err: err}
}

func Permanent(err error) error {
	return &AdapterError{Kind: KindPermanent, Err: err}
}

// Classify reports the retry class of err. Errors that don't carry a kind
// are treated as transient so flaky network failures get their retries.
func Classify(err error) ErrorKind {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindTransient
}

// statusError wraps an unexpected HTTP status from an upstream API.
// Rate limiting and server-side failures are retryable, the rest are not.
func statusError(op string, code int, body string) error {
	err := fmt.Errorf("%s: unexpected status %d: %s", op, code, body)
	if code == 429 || code >= 500 {
		return Transient(err)
	}
	return Permanent(err)
}
