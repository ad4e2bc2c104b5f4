package service

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vzahanych/forecast-client-demo/internal/forecast"
)

// Kind classifies a request-time failure independently of the strategy that produced it.
type Kind int

const (
	KindTransport Kind = iota + 1
	KindNotFound
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is the single failure type returned by every client strategy.
type Error struct {
	Kind       Kind
	Strategy   Strategy
	Op         string
	StatusCode int
	Violations []forecast.Violation
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s returned %d %s", e.Strategy, e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Strategy, e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s failed", e.Strategy, e.Op)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func transportError(s Strategy, op string, err error) *Error {
	return &Error{Kind: KindTransport, Strategy: s, Op: op, Err: err}
}

func validationError(s Strategy, op string, err error) error {
	var verr *forecast.ValidationError
	if !errors.As(err, &verr) {
		return transportError(s, op, err)
	}
	return &Error{Kind: KindValidation, Strategy: s, Op: op, Violations: verr.Violations, Err: verr}
}

// checkStatus turns a non-2xx response into an error and releases its body.
func checkStatus(s Strategy, op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()

	kind := KindTransport
	if resp.StatusCode == http.StatusNotFound {
		kind = KindNotFound
	}
	return &Error{Kind: kind, Strategy: s, Op: op, StatusCode: resp.StatusCode}
}

// KindOf returns the kind of err, or 0 when err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsTransport(err error) bool {
	return KindOf(err) == KindTransport
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// ValidateResponse runs the forecast constraints on items fetched by s.
func ValidateResponse(s Strategy, items []forecast.Forecast) ([]forecast.Forecast, error) {
	out, err := forecast.Validate(items)
	if err != nil {
		return nil, validationError(s, "validate response", err)
	}
	return out, nil
}
