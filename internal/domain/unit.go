package domain

import "time"

// BloodUnit is one ledger row: an integer quantity of a single blood type
// with a fixed shelf life. A unit whose quantity reaches zero is deleted,
// never stored at zero.
type BloodUnit struct {
	ID           int64
	BloodType    BloodType
	Quantity     int
	DonationDate time.Time
	ExpiryDate   time.Time
	// DonorID is an opaque reference into the donor registry; nil for
	// manual stock entries.
	DonorID *int64
}

// Validate checks the intake invariants before the unit touches the store.
func (u BloodUnit) Validate() error {
	if !u.BloodType.Valid() {
		return ErrUnknownBloodType
	}
	if u.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if DateOf(u.ExpiryDate).Before(DateOf(u.DonationDate)) {
		return ErrExpiryBeforeDonation
	}
	return nil
}

// DateOf truncates an instant to its UTC calendar date. All expiry and
// request bookkeeping happens at date precision.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
