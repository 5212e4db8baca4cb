package app

import (
	"context"
	"time"

	"github.com/Jean-Luc-of-God/bloodbank/internal/clock"
	"github.com/Jean-Luc-of-God/bloodbank/internal/domain"
)

// LedgerMutator is the slice of the unit store that the FEFO allocation loop
// needs. Its methods are only called inside a transaction that already holds
// the per-type lock.
type LedgerMutator interface {
	SelectForDeduction(ctx context.Context, bt domain.BloodType) ([]domain.BloodUnit, error)
	SetUnitQuantity(ctx context.Context, id int64, quantity int) error
	DeleteUnit(ctx context.Context, id int64) error
}

type StockRepository interface {
	LedgerMutator
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockBloodType(ctx context.Context, bt domain.BloodType) error
	CreateUnit(ctx context.Context, unit domain.BloodUnit) (int64, error)
	UpdateUnit(ctx context.Context, unit domain.BloodUnit) error
	GetUnit(ctx context.Context, id int64) (domain.BloodUnit, error)
	ListUnits(ctx context.Context) ([]domain.BloodUnit, error)
	TotalStock(ctx context.Context, bt domain.BloodType) (int, error)
}

// StockService owns the unit ledger: intake, manual correction, and
// earliest-expiry-first deduction.
type StockService struct {
	repo  StockRepository
	clock clock.Clock
}

func NewStockService(repo StockRepository, clk clock.Clock) *StockService {
	return &StockService{
		repo:  repo,
		clock: clk,
	}
}

type AddUnitInput struct {
	BloodType    string
	Quantity     int
	DonationDate time.Time
	ExpiryDate   time.Time
	DonorID      *int64
}

func (s *StockService) AddUnit(ctx context.Context, in AddUnitInput) (domain.BloodUnit, error) {
	bt, err := domain.ParseBloodType(in.BloodType)
	if err != nil {
		return domain.BloodUnit{}, err
	}

	donated := in.DonationDate
	if donated.IsZero() {
		donated = s.clock.Now()
	}

	unit := domain.BloodUnit{
		BloodType:    bt,
		Quantity:     in.Quantity,
		DonationDate: domain.DateOf(donated),
		ExpiryDate:   domain.DateOf(in.ExpiryDate),
		DonorID:      in.DonorID,
	}
	if err := unit.Validate(); err != nil {
		return domain.BloodUnit{}, err
	}

	id, err := s.repo.CreateUnit(ctx, unit)
	if err != nil {
		return domain.BloodUnit{}, err
	}
	unit.ID = id
	return unit, nil
}

// UpdateUnit applies a manual stock correction. Correcting a unit down to
// quantity zero deletes the row; zero-quantity units are never persisted.
func (s *StockService) UpdateUnit(ctx context.Context, id int64, in AddUnitInput) (domain.BloodUnit, error) {
	bt, err := domain.ParseBloodType(in.BloodType)
	if err != nil {
		return domain.BloodUnit{}, err
	}
	if in.Quantity < 0 {
		return domain.BloodUnit{}, domain.ErrInvalidQuantity
	}
	if in.Quantity == 0 {
		if err := s.repo.DeleteUnit(ctx, id); err != nil {
			return domain.BloodUnit{}, err
		}
		return domain.BloodUnit{ID: id, BloodType: bt}, nil
	}

	unit := domain.BloodUnit{
		ID:           id,
		BloodType:    bt,
		Quantity:     in.Quantity,
		DonationDate: domain.DateOf(in.DonationDate),
		ExpiryDate:   domain.DateOf(in.ExpiryDate),
		DonorID:      in.DonorID,
	}
	if err := unit.Validate(); err != nil {
		return domain.BloodUnit{}, err
	}
	if err := s.repo.UpdateUnit(ctx, unit); err != nil {
		return domain.BloodUnit{}, err
	}
	return unit, nil
}

func (s *StockService) DeleteUnit(ctx context.Context, id int64) error {
	return s.repo.DeleteUnit(ctx, id)
}

// ListUnits returns the whole ledger ordered soonest-to-expire first.
func (s *StockService) ListUnits(ctx context.Context) ([]domain.BloodUnit, error) {
	return s.repo.ListUnits(ctx)
}

func (s *StockService) TotalStock(ctx context.Context, bloodType string) (int, error) {
	bt, err := domain.ParseBloodType(bloodType)
	if err != nil {
		return 0, err
	}
	return s.repo.TotalStock(ctx, bt)
}

// DeductResult reports how much of a deduction could be serviced. Shortfall
// is zero whenever the caller honored the sufficient-stock precondition.
type DeductResult struct {
	Requested int
	Deducted  int
	Shortfall int
}

// Deduct consumes quantity units of a blood type in earliest-expiry-first
// order, ties broken by ascending unit id. A unit smaller than the remaining
// need is removed outright; the final unit touched is decremented in place.
// The whole mutation runs in one transaction under the per-type lock, so a
// failed call leaves the ledger untouched.
//
// Callers are expected to verify sufficiency first; rather than silently
// under-deducting, any unserviced remainder is reported as Shortfall.
func (s *StockService) Deduct(ctx context.Context, bloodType string, quantity int) (DeductResult, error) {
	bt, err := domain.ParseBloodType(bloodType)
	if err != nil {
		return DeductResult{}, err
	}
	if quantity <= 0 {
		return DeductResult{}, domain.ErrInvalidQuantity
	}

	var result DeductResult
	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockBloodType(txCtx, bt); err != nil {
			return err
		}
		deducted, err := consumeFEFO(txCtx, s.repo, bt, quantity)
		if err != nil {
			return err
		}
		result = DeductResult{
			Requested: quantity,
			Deducted:  deducted,
			Shortfall: quantity - deducted,
		}
		return nil
	})
	if err != nil {
		return DeductResult{}, err
	}
	return result, nil
}

// consumeFEFO walks the locked candidate units in expiry order and applies
// the delete-or-decrement step until the need is met or stock runs out.
// Returns the quantity actually consumed.
func consumeFEFO(ctx context.Context, ledger LedgerMutator, bt domain.BloodType, need int) (int, error) {
	units, err := ledger.SelectForDeduction(ctx, bt)
	if err != nil {
		return 0, err
	}

	remaining := need
	for _, unit := range units {
		if remaining == 0 {
			break
		}
		if unit.Quantity <= remaining {
			if err := ledger.DeleteUnit(ctx, unit.ID); err != nil {
				return 0, err
			}
			remaining -= unit.Quantity
		} else {
			if err := ledger.SetUnitQuantity(ctx, unit.ID, unit.Quantity-remaining); err != nil {
				return 0, err
			}
			remaining = 0
		}
	}
	return need - remaining, nil
}
