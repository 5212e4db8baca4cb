package domain

import "time"

// BloodRequest is a hospital demand for a quantity of one blood type.
// Fulfilled is monotonic: it flips false to true exactly once, after the
// matching ledger deduction has committed.
type BloodRequest struct {
	ID          int64
	BloodType   BloodType
	Quantity    int
	RequestDate time.Time
	Fulfilled   bool
}
