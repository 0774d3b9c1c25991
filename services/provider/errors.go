package provider

import (
	"errors"
	"fmt"
)

// BusinessError is a provider-reported rejection (hold refused, payment
// declined). Terminal for the current attempt and never retried.
type BusinessError struct {
	Op     string
	Reason string
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Op, e.Reason)
}

// NewBusinessError wraps a provider rejection.
func NewBusinessError(op, reason string) error {
	return &BusinessError{Op: op, Reason: reason}
}

// TransientError is a network/timeout style failure worth retrying.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s transient failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps a retryable provider failure.
func NewTransientError(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsBusiness reports whether err is a provider-side rejection.
func IsBusiness(err error) bool {
	var be *BusinessError
	return errors.As(err, &be)
}

// BusinessReason extracts the rejection reason, if any.
func BusinessReason(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Reason
	}
	return ""
}
