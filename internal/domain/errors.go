package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownBloodType        = errors.New("unknown blood type")
	ErrInvalidQuantity         = errors.New("invalid quantity")
	ErrExpiryBeforeDonation    = errors.New("expiry date precedes donation date")
	ErrUnitNotFound            = errors.New("blood unit not found")
	ErrRequestNotFound         = errors.New("blood request not found")
	ErrRequestAlreadyFulfilled = errors.New("blood request already fulfilled")
	ErrAlertNotFound           = errors.New("alert not found")
	ErrInvalidID               = errors.New("invalid id")
)

// InsufficientStockError rejects an admission or fulfillment with the full
// accounting picture, so callers can render a precise diagnostic.
type InsufficientStockError struct {
	Op        string // "admit" or "fulfill"
	BloodType BloodType
	Requested int
	Total     int
	Pending   int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf(
		"insufficient stock to %s %d units of %s: total=%d pending=%d available=%d",
		e.Op, e.Requested, e.BloodType, e.Total, e.Pending, e.Available,
	)
}
