// internal/services/errors.go
package services

import "errors"

// Domain errors returned as typed results so handlers can branch on
// kind. Infrastructure failures are wrapped with %w and logged; their
// details never reach the requester.
var (
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available")
	ErrAlreadyOwned       = errors.New("user already owns this product")
	ErrOrderNotFound      = errors.New("order not found")
	ErrNotEntitled        = errors.New("user is not entitled to this product")
	ErrUserNotFound       = errors.New("user not found")
	ErrPaymentCreation    = errors.New("failed to create payment")
	ErrContentMissing     = errors.New("product has no deliverable content")
)
