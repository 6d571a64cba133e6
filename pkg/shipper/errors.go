package shipper

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ShipperError represents an error from a shipping carrier.
type ShipperError struct {
	Carrier    string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *ShipperError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Carrier, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Carrier, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ShipperError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ShipperError.
func (e *ShipperError) Is(target error) bool {
	t, ok := target.(*ShipperError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewShipperError creates a new ShipperError.
func NewShipperError(carrier, code, message string) *ShipperError {
	return &ShipperError{
		Carrier: carrier,
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *ShipperError) WithCause(err error) *ShipperError {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *ShipperError) WithStatusCode(code int) *ShipperError {
	e.StatusCode = code
	return e
}

// WithRetryable marks the error as retryable.
func (e *ShipperError) WithRetryable(retryable bool) *ShipperError {
	e.Retryable = retryable
	return e
}

// Sentinel errors for common shipping scenarios.
var (
	// ErrConfiguration indicates a required credential or setting is missing.
	ErrConfiguration = errors.New("configuration error")

	// ErrTransport indicates the carrier could not be reached.
	ErrTransport = errors.New("transport error")

	// ErrMalformedResponse indicates the carrier replied with something that
	// is not XML.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrIncompleteCoverage indicates the carrier does not integrate the
	// requested operation.
	ErrIncompleteCoverage = errors.New("operation not supported by carrier")

	// ErrRequiredOption indicates a shipment option is missing or invalid.
	ErrRequiredOption = errors.New("required option")

	// ErrInvalidAddressType indicates an address type outside the enum.
	ErrInvalidAddressType = errors.New("invalid address type")

	// ErrServiceUnavailable indicates the carrier service is temporarily unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrAuthenticationFailed indicates carrier authentication failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrRateLimitExceeded indicates the carrier rate limit was exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrCarrierNotFound indicates the requested carrier is not registered.
	ErrCarrierNotFound = errors.New("carrier not found")
)

// ConfigurationError reports credentials missing at construction time.
type ConfigurationError struct {
	Carrier string
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: missing required configuration: %s", e.Carrier, strings.Join(e.Missing, ", "))
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// CheckRequired returns a ConfigurationError naming every blank value in
// fields, in the order given, or nil.
func CheckRequired(carrier string, fields ...[2]string) error {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			missing = append(missing, f[0])
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &ConfigurationError{Carrier: carrier, Missing: missing}
}

// TransportError reports a network or HTTP failure reaching the carrier.
type TransportError struct {
	Carrier    string
	Operation  Operation
	URL        string
	StatusCode int
	Cause      error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s %s: transport error posting to %s", e.Carrier, e.Operation, e.URL)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": HTTP %d", e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Cause }

func (e *TransportError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return true
	case ErrServiceUnavailable:
		return e.StatusCode == http.StatusServiceUnavailable || e.StatusCode == http.StatusBadGateway ||
			e.StatusCode == http.StatusGatewayTimeout
	case ErrRateLimitExceeded:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrAuthenticationFailed:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

// Retryable reports whether the caller may safely resubmit. Only read-only
// operations qualify, and only for failures that are not client errors.
func (e *TransportError) Retryable() bool {
	if !e.Operation.RetrySafe() {
		return false
	}
	return e.StatusCode == 0 || e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// MalformedResponseError reports a body that does not parse as XML.
type MalformedResponseError struct {
	Carrier   string
	Operation Operation
	Body      []byte
	Cause     error
}

func (e *MalformedResponseError) Error() string {
	msg := fmt.Sprintf("%s %s: malformed response", e.Carrier, e.Operation)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() error { return e.Cause }

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

// IncompleteCoverageError reports an operation the carrier does not integrate.
type IncompleteCoverageError struct {
	Carrier   string
	Operation Operation
}

func (e *IncompleteCoverageError) Error() string {
	return fmt.Sprintf("%s: operation %q is not supported", e.Carrier, e.Operation)
}

func (e *IncompleteCoverageError) Is(target error) bool { return target == ErrIncompleteCoverage }

// RequiredOptionError reports a shipment option that is missing or fails its
// validation rule.
type RequiredOptionError struct {
	Option string
	Rule   string
}

func (e *RequiredOptionError) Error() string {
	if e.Rule == "required" || e.Rule == "min" {
		return fmt.Sprintf("required option %s not supplied", e.Option)
	}
	return fmt.Sprintf("option %s is invalid (%s)", e.Option, e.Rule)
}

func (e *RequiredOptionError) Is(target error) bool { return target == ErrRequiredOption }

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var shipperErr *ShipperError
	if errors.As(err, &shipperErr) {
		return shipperErr.Retryable
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Retryable()
	}
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrRateLimitExceeded)
}
