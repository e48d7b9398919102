package types

import "errors"

// Domain errors for type validation
var (
	// Product errors
	ErrEmptyProductID = errors.New("product ID cannot be empty")
	ErrNegativePrice  = errors.New("price must be >= 0")
	ErrNegativeStock  = errors.New("stock must be >= 0")

	// Order errors
	ErrEmptyOrderID     = errors.New("order ID cannot be empty")
	ErrInvalidQuantity  = errors.New("quantity must be >= 1")
	ErrInvalidStatus    = errors.New("order status must be CONFIRMED or CANCELLED")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)
