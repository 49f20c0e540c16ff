package model

import "fmt"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	VariantID string            `json:"variantId,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// Kind classifies a domain failure independently of its specific code.
type Kind string

const (
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
	KindInvalidInput    Kind = "INVALID_INPUT"
	KindBusy            Kind = "BUSY"
	KindUpstreamFailure Kind = "UPSTREAM_FAILURE"
)

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON            = "INVALID_JSON"
	ErrCodeValidation             = "VALIDATION_FAILED"
	ErrCodeUnauthorised           = "UNAUTHORIZED"
	ErrCodeInternalError          = "INTERNAL_ERROR"
	ErrCodeUserNotFound           = "USER_NOT_FOUND"
	ErrCodeCartNotFound           = "CART_NOT_FOUND"
	ErrCodeOrderNotFound          = "ORDER_NOT_FOUND"
	ErrCodeCouponNotFound         = "COUPON_NOT_FOUND"
	ErrCodeVariantNotFound        = "VARIANT_NOT_FOUND"
	ErrCodeRoleNotFound           = "ROLE_NOT_FOUND"
	ErrCodeEmptyCart              = "EMPTY_CART"
	ErrCodeMissingSessionID       = "MISSING_SESSION_ID"
	ErrCodeEmailRegistered        = "EMAIL_ALREADY_REGISTERED"
	ErrCodeInvalidStatus          = "INVALID_STATUS"
	ErrCodeInvalidQuantity        = "INVALID_QUANTITY"
	ErrCodeInvalidFilter          = "INVALID_FILTER"
	ErrCodeInsufficientStock      = "INSUFFICIENT_STOCK"
	ErrCodeCouponExhausted        = "COUPON_EXHAUSTED"
	ErrCodeInsufficientPoints     = "INSUFFICIENT_LOYALTY_POINTS"
	ErrCodeCartAlreadyCheckedOut  = "CART_ALREADY_CHECKED_OUT"
	ErrCodeConcurrentModification = "CONCURRENT_MODIFICATION"
	ErrCodeBusy                   = "RESOURCE_BUSY"
	ErrCodeNotificationFailed     = "NOTIFICATION_FAILED"
)

// DomainError is a typed business failure. Two domain errors are considered
// the same by errors.Is when their codes match.
type DomainError struct {
	Kind      Kind
	Code      string
	Message   string
	VariantID string
}

func (e *DomainError) Error() string {
	if e.VariantID != "" {
		return fmt.Sprintf("%s (variant %s)", e.Message, e.VariantID)
	}
	return e.Message
}

// Is reports whether target is a domain error with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(kind Kind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewInsufficientStockError reports the variant whose stock would go negative.
func NewInsufficientStockError(variantID string) *DomainError {
	return &DomainError{
		Kind:      KindConflict,
		Code:      ErrCodeInsufficientStock,
		Message:   "Insufficient stock",
		VariantID: variantID,
	}
}

// NewVariantNotFoundError reports a variant id that does not resolve.
func NewVariantNotFoundError(variantID string) *DomainError {
	return &DomainError{
		Kind:      KindNotFound,
		Code:      ErrCodeVariantNotFound,
		Message:   "Product variant not found",
		VariantID: variantID,
	}
}

// Common domain errors
var (
	ErrUserNotFound           = NewDomainError(KindNotFound, ErrCodeUserNotFound, "User not found")
	ErrCartNotFound           = NewDomainError(KindNotFound, ErrCodeCartNotFound, "Cart not found")
	ErrOrderNotFound          = NewDomainError(KindNotFound, ErrCodeOrderNotFound, "Order not found")
	ErrCouponNotFound         = NewDomainError(KindNotFound, ErrCodeCouponNotFound, "Coupon not found")
	ErrVariantNotFound        = NewDomainError(KindNotFound, ErrCodeVariantNotFound, "Product variant not found")
	ErrRoleNotFound           = NewDomainError(KindNotFound, ErrCodeRoleNotFound, "Role not found")
	ErrEmptyCart              = NewDomainError(KindInvalidInput, ErrCodeEmptyCart, "Cart is empty")
	ErrMissingSessionID       = NewDomainError(KindInvalidInput, ErrCodeMissingSessionID, "Session ID required")
	ErrEmailRegistered        = NewDomainError(KindInvalidInput, ErrCodeEmailRegistered, "Email already exists")
	ErrInvalidStatus          = NewDomainError(KindInvalidInput, ErrCodeInvalidStatus, "Status must not be empty")
	ErrInvalidQuantity        = NewDomainError(KindInvalidInput, ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInvalidFilter          = NewDomainError(KindInvalidInput, ErrCodeInvalidFilter, "Invalid timeline filter")
	ErrInsufficientStock      = NewDomainError(KindConflict, ErrCodeInsufficientStock, "Insufficient stock")
	ErrCouponExhausted        = NewDomainError(KindConflict, ErrCodeCouponExhausted, "Coupon has no redemptions left")
	ErrInsufficientPoints     = NewDomainError(KindConflict, ErrCodeInsufficientPoints, "Loyalty balance too low")
	ErrCartAlreadyCheckedOut  = NewDomainError(KindConflict, ErrCodeCartAlreadyCheckedOut, "Cart was already checked out")
	ErrConcurrentModification = NewDomainError(KindConflict, ErrCodeConcurrentModification, "Concurrent modification, retry the request")
	ErrBusy                   = NewDomainError(KindBusy, ErrCodeBusy, "Resource is busy, retry later")
	ErrNotificationFailed     = NewDomainError(KindUpstreamFailure, ErrCodeNotificationFailed, "Notification dispatch failed")
)
