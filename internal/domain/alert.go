package domain

import "time"

type AlertKind string

const (
	AlertKindExpired    AlertKind = "Expired"
	AlertKindNearExpiry AlertKind = "Near Expiry"
)

type AlertStatus string

const (
	AlertStatusPending AlertStatus = "Pending"
	AlertStatusHandled AlertStatus = "Handled"
)

// nearExpiryWindowDays is the look-ahead for near-expiry alerts: units
// expiring within the next 7 full days qualify.
const nearExpiryWindowDays = 8

// Alert records that a unit entered an expiry state. At most one alert per
// (unit, kind) pair exists; a unit that later crosses from near-expiry into
// expired gets a second, separate alert.
type Alert struct {
	ID            int64
	UnitID        int64
	Kind          AlertKind
	DateGenerated time.Time
	Status        AlertStatus
	// BloodType is joined in from the unit for display. Empty when the
	// unit has since been consumed or deleted.
	BloodType BloodType
}

// ClassifyExpiry buckets an expiry date relative to today. Comparison is at
// date precision; time of day is ignored.
func ClassifyExpiry(expiry, today time.Time) (AlertKind, bool) {
	exp := DateOf(expiry)
	now := DateOf(today)

	if exp.Before(now) {
		return AlertKindExpired, true
	}
	if exp.Before(now.AddDate(0, 0, nearExpiryWindowDays)) {
		return AlertKindNearExpiry, true
	}
	return "", false
}
