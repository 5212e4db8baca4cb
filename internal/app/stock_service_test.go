package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Jean-Luc-of-God/bloodbank/internal/clock"
	"github.com/Jean-Luc-of-God/bloodbank/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStockService_Deduct(t *testing.T) {
	t.Parallel()

	now := date(2024, 1, 1)

	// Two units deliberately inserted newest-expiry first, so FEFO order
	// differs from insertion order.
	seed := func() (*StockService, *fakeStore) {
		store := newFakeStore()
		store.addUnit(domain.BloodUnit{ID: 1, BloodType: domain.BloodTypeOPositive, Quantity: 3, DonationDate: date(2023, 12, 1), ExpiryDate: date(2024, 1, 10)})
		store.addUnit(domain.BloodUnit{ID: 2, BloodType: domain.BloodTypeOPositive, Quantity: 2, DonationDate: date(2023, 12, 1), ExpiryDate: date(2024, 1, 5)})
		return NewStockService(store, clock.NewFixed(now)), store
	}

	t.Run("consumes earliest expiry first", func(t *testing.T) {
		svc, store := seed()

		res, err := svc.Deduct(context.Background(), "O+", 4)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Deducted != 4 || res.Shortfall != 0 {
			t.Fatalf("unexpected result: %+v", res)
		}

		if len(store.units) != 1 {
			t.Fatalf("expected 1 unit left, got %d", len(store.units))
		}
		if store.units[0].ID != 1 || store.units[0].Quantity != 1 {
			t.Fatalf("expected unit 1 at quantity 1, got %+v", store.units[0])
		}
	})

	t.Run("partial consumption stops cleanly", func(t *testing.T) {
		svc, store := seed()

		res, err := svc.Deduct(context.Background(), "O+", 1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Deducted != 1 {
			t.Fatalf("expected 1 deducted, got %d", res.Deducted)
		}

		units, _ := store.ListUnits(context.Background())
		if len(units) != 2 {
			t.Fatalf("expected 2 units, got %d", len(units))
		}
		// FEFO order: unit 2 first.
		if units[0].ID != 2 || units[0].Quantity != 1 {
			t.Fatalf("expected unit 2 at quantity 1, got %+v", units[0])
		}
		if units[1].ID != 1 || units[1].Quantity != 3 {
			t.Fatalf("expected unit 1 untouched, got %+v", units[1])
		}
	})

	t.Run("equal expiry dates break on ascending id", func(t *testing.T) {
		store := newFakeStore()
		store.addUnit(domain.BloodUnit{ID: 7, BloodType: domain.BloodTypeABNegative, Quantity: 2, DonationDate: date(2023, 12, 1), ExpiryDate: date(2024, 1, 5)})
		store.addUnit(domain.BloodUnit{ID: 3, BloodType: domain.BloodTypeABNegative, Quantity: 2, DonationDate: date(2023, 12, 1), ExpiryDate: date(2024, 1, 5)})
		svc := NewStockService(store, clock.NewFixed(now))

		if _, err := svc.Deduct(context.Background(), "AB-", 2); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(store.units) != 1 || store.units[0].ID != 7 {
			t.Fatalf("expected unit 3 consumed first, remaining %+v", store.units)
		}
	})

	t.Run("only deducts the requested type", func(t *testing.T) {
		svc, store := seed()
		other := store.addUnit(domain.BloodUnit{BloodType: domain.BloodTypeANegative, Quantity: 5, DonationDate: date(2023, 12, 1), ExpiryDate: date(2024, 1, 2)})

		if _, err := svc.Deduct(context.Background(), "O+", 5); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		got, err := store.GetUnit(context.Background(), other.ID)
		if err != nil || got.Quantity != 5 {
			t.Fatalf("expected A- unit untouched, got %+v (%v)", got, err)
		}
	})

	t.Run("reports shortfall instead of failing silently", func(t *testing.T) {
		svc, store := seed()

		res, err := svc.Deduct(context.Background(), "O+", 9)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Deducted != 5 || res.Shortfall != 4 {
			t.Fatalf("expected deducted=5 shortfall=4, got %+v", res)
		}
		if store.totalQuantity(domain.BloodTypeOPositive) != 0 {
			t.Fatalf("expected ledger drained, got %d", store.totalQuantity(domain.BloodTypeOPositive))
		}
	})

	t.Run("conservation across serviceable calls", func(t *testing.T) {
		svc, store := seed()
		before := store.totalQuantity(domain.BloodTypeOPositive)

		total := 0
		for _, qty := range []int{2, 1, 2} {
			res, err := svc.Deduct(context.Background(), "O+", qty)
			if err != nil {
				t.Fatalf("deduct %d: %v", qty, err)
			}
			if res.Shortfall != 0 {
				t.Fatalf("deduct %d: unexpected shortfall %d", qty, res.Shortfall)
			}
			total += res.Deducted
		}
		if got := store.totalQuantity(domain.BloodTypeOPositive); got != before-total {
			t.Fatalf("expected total %d, got %d", before-total, got)
		}
	})

	t.Run("failure mid-deduction rolls back everything", func(t *testing.T) {
		svc, store := seed()
		// First candidate deletes fine, the decrement of the second fails.
		store.failOn("SetUnitQuantity", 1)

		_, err := svc.Deduct(context.Background(), "O+", 4)
		if !errors.Is(err, errStoreFailure) {
			t.Fatalf("expected store failure, got %v", err)
		}

		if store.totalQuantity(domain.BloodTypeOPositive) != 5 {
			t.Fatalf("expected pre-call total 5, got %d", store.totalQuantity(domain.BloodTypeOPositive))
		}
		if len(store.units) != 2 {
			t.Fatalf("expected both units intact, got %d", len(store.units))
		}
	})

	t.Run("takes the per-type lock", func(t *testing.T) {
		svc, store := seed()
		if _, err := svc.Deduct(context.Background(), "O+", 1); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(store.locks) != 1 || store.locks[0] != domain.BloodTypeOPositive {
			t.Fatalf("expected O+ lock taken, got %v", store.locks)
		}
	})

	t.Run("rejects bad input before touching the store", func(t *testing.T) {
		svc, store := seed()

		if _, err := svc.Deduct(context.Background(), "Z+", 1); err != domain.ErrUnknownBloodType {
			t.Fatalf("expected ErrUnknownBloodType, got %v", err)
		}
		if _, err := svc.Deduct(context.Background(), "O+", 0); err != domain.ErrInvalidQuantity {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
		if store.totalQuantity(domain.BloodTypeOPositive) != 5 {
			t.Fatalf("expected ledger untouched, got %d", store.totalQuantity(domain.BloodTypeOPositive))
		}
	})
}

func TestStockService_AddUnit(t *testing.T) {
	t.Parallel()

	now := date(2024, 3, 1)

	t.Run("creates a valid unit", func(t *testing.T) {
		store := newFakeStore()
		svc := NewStockService(store, clock.NewFixed(now))

		unit, err := svc.AddUnit(context.Background(), AddUnitInput{
			BloodType:  "A+",
			Quantity:   4,
			ExpiryDate: date(2024, 4, 12),
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if unit.ID == 0 {
			t.Fatalf("expected assigned id")
		}
		// Donation date defaults to today.
		if !unit.DonationDate.Equal(now) {
			t.Fatalf("expected donation date %v, got %v", now, unit.DonationDate)
		}
	})

	t.Run("rejects expiry before donation", func(t *testing.T) {
		store := newFakeStore()
		svc := NewStockService(store, clock.NewFixed(now))

		_, err := svc.AddUnit(context.Background(), AddUnitInput{
			BloodType:    "A+",
			Quantity:     4,
			DonationDate: date(2024, 3, 1),
			ExpiryDate:   date(2024, 2, 1),
		})
		if err != domain.ErrExpiryBeforeDonation {
			t.Fatalf("expected ErrExpiryBeforeDonation, got %v", err)
		}
		if len(store.units) != 0 {
			t.Fatalf("expected no unit persisted")
		}
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		store := newFakeStore()
		svc := NewStockService(store, clock.NewFixed(now))

		_, err := svc.AddUnit(context.Background(), AddUnitInput{
			BloodType:  "A+",
			Quantity:   0,
			ExpiryDate: date(2024, 4, 12),
		})
		if err != domain.ErrInvalidQuantity {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})
}

func TestStockService_UpdateUnit(t *testing.T) {
	t.Parallel()

	now := date(2024, 3, 1)

	t.Run("correcting quantity to zero deletes the row", func(t *testing.T) {
		store := newFakeStore()
		unit := store.addUnit(domain.BloodUnit{BloodType: domain.BloodTypeBPositive, Quantity: 2, DonationDate: date(2024, 2, 1), ExpiryDate: date(2024, 3, 15)})
		svc := NewStockService(store, clock.NewFixed(now))

		if _, err := svc.UpdateUnit(context.Background(), unit.ID, AddUnitInput{
			BloodType:    "B+",
			Quantity:     0,
			DonationDate: date(2024, 2, 1),
			ExpiryDate:   date(2024, 3, 15),
		}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(store.units) != 0 {
			t.Fatalf("expected unit deleted, got %+v", store.units)
		}
	})

	t.Run("updates quantity in place", func(t *testing.T) {
		store := newFakeStore()
		unit := store.addUnit(domain.BloodUnit{BloodType: domain.BloodTypeBPositive, Quantity: 2, DonationDate: date(2024, 2, 1), ExpiryDate: date(2024, 3, 15)})
		svc := NewStockService(store, clock.NewFixed(now))

		updated, err := svc.UpdateUnit(context.Background(), unit.ID, AddUnitInput{
			BloodType:    "B+",
			Quantity:     7,
			DonationDate: date(2024, 2, 1),
			ExpiryDate:   date(2024, 3, 15),
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if updated.Quantity != 7 {
			t.Fatalf("expected quantity 7, got %d", updated.Quantity)
		}
		if store.units[0].Quantity != 7 {
			t.Fatalf("expected stored quantity 7, got %d", store.units[0].Quantity)
		}
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		store := newFakeStore()
		unit := store.addUnit(domain.BloodUnit{BloodType: domain.BloodTypeBPositive, Quantity: 2, DonationDate: date(2024, 2, 1), ExpiryDate: date(2024, 3, 15)})
		svc := NewStockService(store, clock.NewFixed(now))

		if _, err := svc.UpdateUnit(context.Background(), unit.ID, AddUnitInput{
			BloodType:    "B+",
			Quantity:     -1,
			DonationDate: date(2024, 2, 1),
			ExpiryDate:   date(2024, 3, 15),
		}); err != domain.ErrInvalidQuantity {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})
}
