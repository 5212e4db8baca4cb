package app

import (
	"context"

	"github.com/Jean-Luc-of-God/bloodbank/internal/clock"
	"github.com/Jean-Luc-of-God/bloodbank/internal/domain"
)

type RequestRepository interface {
	LedgerMutator
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockBloodType(ctx context.Context, bt domain.BloodType) error
	CreateRequest(ctx context.Context, req domain.BloodRequest) (int64, error)
	ListRequests(ctx context.Context) ([]domain.BloodRequest, error)
	GetRequestForUpdate(ctx context.Context, id int64) (domain.BloodRequest, error)
	MarkFulfilled(ctx context.Context, id int64) error
	DeleteRequest(ctx context.Context, id int64) error
	SumPending(ctx context.Context, bt domain.BloodType) (int, error)
	TotalStock(ctx context.Context, bt domain.BloodType) (int, error)
}

// RequestService is the reservation accountant: it admits requests only when
// unpromised stock can cover them, and fulfills admitted requests by
// deducting the ledger and flipping the fulfilled flag in one transaction.
type RequestService struct {
	repo  RequestRepository
	clock clock.Clock
}

func NewRequestService(repo RequestRepository, clk clock.Clock) *RequestService {
	return &RequestService{
		repo:  repo,
		clock: clk,
	}
}

// Availability nets physical stock against promised-but-unfulfilled demand.
type Availability struct {
	BloodType domain.BloodType
	Total     int
	Pending   int
	Available int
}

func (s *RequestService) Availability(ctx context.Context, bloodType string) (Availability, error) {
	bt, err := domain.ParseBloodType(bloodType)
	if err != nil {
		return Availability{}, err
	}
	return s.availability(ctx, bt)
}

func (s *RequestService) availability(ctx context.Context, bt domain.BloodType) (Availability, error) {
	total, err := s.repo.TotalStock(ctx, bt)
	if err != nil {
		return Availability{}, err
	}
	pending, err := s.repo.SumPending(ctx, bt)
	if err != nil {
		return Availability{}, err
	}
	return Availability{
		BloodType: bt,
		Total:     total,
		Pending:   pending,
		Available: total - pending,
	}, nil
}

func (s *RequestService) PendingStock(ctx context.Context, bloodType string) (int, error) {
	bt, err := domain.ParseBloodType(bloodType)
	if err != nil {
		return 0, err
	}
	return s.repo.SumPending(ctx, bt)
}

func (s *RequestService) AvailableStock(ctx context.Context, bloodType string) (int, error) {
	avail, err := s.Availability(ctx, bloodType)
	if err != nil {
		return 0, err
	}
	return avail.Available, nil
}

type AdmitRequestInput struct {
	BloodType string
	Quantity  int
}

// AdmitRequest inserts a new pending request when quantity fits within the
// truly-available stock (total minus already-pending). The availability
// check and the insert run in one transaction under the per-type lock, so
// two concurrent admissions cannot both read the same headroom.
func (s *RequestService) AdmitRequest(ctx context.Context, in AdmitRequestInput) (domain.BloodRequest, error) {
	bt, err := domain.ParseBloodType(in.BloodType)
	if err != nil {
		return domain.BloodRequest{}, err
	}
	if in.Quantity <= 0 {
		return domain.BloodRequest{}, domain.ErrInvalidQuantity
	}

	var result domain.BloodRequest
	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockBloodType(txCtx, bt); err != nil {
			return err
		}

		avail, err := s.availability(txCtx, bt)
		if err != nil {
			return err
		}
		if in.Quantity > avail.Available {
			return &domain.InsufficientStockError{
				Op:        "admit",
				BloodType: bt,
				Requested: in.Quantity,
				Total:     avail.Total,
				Pending:   avail.Pending,
				Available: avail.Available,
			}
		}

		req := domain.BloodRequest{
			BloodType:   bt,
			Quantity:    in.Quantity,
			RequestDate: domain.DateOf(s.clock.Now()),
			Fulfilled:   false,
		}
		id, err := s.repo.CreateRequest(txCtx, req)
		if err != nil {
			return err
		}
		req.ID = id
		result = req
		return nil
	})
	if err != nil {
		return domain.BloodRequest{}, err
	}
	return result, nil
}

// FulfillRequest deducts the ledger for a pending request and marks it
// fulfilled, all-or-nothing. Physical stock is re-validated inside the
// transaction because it may have been manually edited since admission; on
// insufficient stock the request stays pending and the error carries the
// full accounting detail.
func (s *RequestService) FulfillRequest(ctx context.Context, requestID int64) (domain.BloodRequest, error) {
	var result domain.BloodRequest
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		req, err := s.repo.GetRequestForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.Fulfilled {
			return domain.ErrRequestAlreadyFulfilled
		}

		if err := s.repo.LockBloodType(txCtx, req.BloodType); err != nil {
			return err
		}

		avail, err := s.availability(txCtx, req.BloodType)
		if err != nil {
			return err
		}
		if avail.Total < req.Quantity {
			return &domain.InsufficientStockError{
				Op:        "fulfill",
				BloodType: req.BloodType,
				Requested: req.Quantity,
				Total:     avail.Total,
				Pending:   avail.Pending,
				Available: avail.Available,
			}
		}

		deducted, err := consumeFEFO(txCtx, s.repo, req.BloodType, req.Quantity)
		if err != nil {
			return err
		}
		// Sufficiency was checked under the same lock, so the deduction
		// can never come up short here.
		if deducted != req.Quantity {
			return &domain.InsufficientStockError{
				Op:        "fulfill",
				BloodType: req.BloodType,
				Requested: req.Quantity,
				Total:     avail.Total,
				Pending:   avail.Pending,
				Available: avail.Available,
			}
		}

		if err := s.repo.MarkFulfilled(txCtx, req.ID); err != nil {
			return err
		}
		req.Fulfilled = true
		result = req
		return nil
	})
	if err != nil {
		return domain.BloodRequest{}, err
	}
	return result, nil
}

// ListRequests returns all requests, newest first.
func (s *RequestService) ListRequests(ctx context.Context) ([]domain.BloodRequest, error) {
	return s.repo.ListRequests(ctx)
}

// DeleteRequest removes a request that is still pending. Fulfilled requests
// have already moved stock and stay on record.
func (s *RequestService) DeleteRequest(ctx context.Context, requestID int64) error {
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		req, err := s.repo.GetRequestForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.Fulfilled {
			return domain.ErrRequestAlreadyFulfilled
		}
		return s.repo.DeleteRequest(txCtx, requestID)
	})
}
