// Package apperr defines the error types shared across the POS core:
// validation failures, backend unreachability, missing auth and durable
// storage failures. Handlers and the gateway branch on these with errors.As.
package apperr

import "fmt"

// Validation error codes surfaced to the UI as message categories.
const (
	CodeEmptyCart           = "EMPTY_CART"
	CodeInsufficientPayment = "INSUFFICIENT_PAYMENT"
	CodePriceBelowCost      = "PRICE_BELOW_COST"
	CodeInvalidInput        = "INVALID_INPUT"
)

// ValidationError reports bad input. It is never retried automatically.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Code, e.Message)
}

// NewValidation builds a ValidationError with the given code.
func NewValidation(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// NetworkError means the remote backend is unreachable. The gateway converts
// it into offline-queue behavior instead of bubbling it to the UI.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("backend unreachable during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError means no authenticated user was available at write time.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "authentication required"
	}
	return e.Message
}

// IOError means the local durable store is unavailable or corrupted.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("offline storage %s failed: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
