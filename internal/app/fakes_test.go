package app

import (
	"context"
	"errors"
	"sort"

	"github.com/Jean-Luc-of-God/bloodbank/internal/domain"
)

var errStoreFailure = errors.New("simulated store failure")

// fakeStore is an in-memory stand-in for the Postgres repositories. WithTx
// snapshots all tables and restores them when the callback fails, matching
// the all-or-nothing semantics of a real transaction.
type fakeStore struct {
	units    []domain.BloodUnit
	requests []domain.BloodRequest
	alerts   []domain.Alert

	nextUnitID    int64
	nextRequestID int64
	nextAlertID   int64

	// failures[op] = n makes the n-th call to op return errStoreFailure.
	failures map[string]int
	calls    map[string]int

	locks []domain.BloodType
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextUnitID:    1,
		nextRequestID: 1,
		nextAlertID:   1,
		failures:      map[string]int{},
		calls:         map[string]int{},
	}
}

func (s *fakeStore) addUnit(u domain.BloodUnit) domain.BloodUnit {
	if u.ID == 0 {
		u.ID = s.nextUnitID
	}
	if u.ID >= s.nextUnitID {
		s.nextUnitID = u.ID + 1
	}
	s.units = append(s.units, u)
	return u
}

func (s *fakeStore) addRequest(r domain.BloodRequest) domain.BloodRequest {
	if r.ID == 0 {
		r.ID = s.nextRequestID
	}
	if r.ID >= s.nextRequestID {
		s.nextRequestID = r.ID + 1
	}
	s.requests = append(s.requests, r)
	return r
}

func (s *fakeStore) failOn(op string, call int) {
	s.failures[op] = call
}

func (s *fakeStore) fail(op string) error {
	s.calls[op]++
	if n, ok := s.failures[op]; ok && s.calls[op] == n {
		return errStoreFailure
	}
	return nil
}

func (s *fakeStore) totalQuantity(bt domain.BloodType) int {
	total := 0
	for _, u := range s.units {
		if u.BloodType == bt {
			total += u.Quantity
		}
	}
	return total
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	units := append([]domain.BloodUnit(nil), s.units...)
	requests := append([]domain.BloodRequest(nil), s.requests...)
	alerts := append([]domain.Alert(nil), s.alerts...)

	if err := fn(ctx); err != nil {
		s.units = units
		s.requests = requests
		s.alerts = alerts
		return err
	}
	return nil
}

func (s *fakeStore) LockBloodType(ctx context.Context, bt domain.BloodType) error {
	if err := s.fail("LockBloodType"); err != nil {
		return err
	}
	s.locks = append(s.locks, bt)
	return nil
}

func (s *fakeStore) CreateUnit(ctx context.Context, unit domain.BloodUnit) (int64, error) {
	if err := s.fail("CreateUnit"); err != nil {
		return 0, err
	}
	return s.addUnit(unit).ID, nil
}

func (s *fakeStore) UpdateUnit(ctx context.Context, unit domain.BloodUnit) error {
	if err := s.fail("UpdateUnit"); err != nil {
		return err
	}
	for i := range s.units {
		if s.units[i].ID == unit.ID {
			s.units[i] = unit
			return nil
		}
	}
	return domain.ErrUnitNotFound
}

func (s *fakeStore) DeleteUnit(ctx context.Context, id int64) error {
	if err := s.fail("DeleteUnit"); err != nil {
		return err
	}
	for i := range s.units {
		if s.units[i].ID == id {
			s.units = append(s.units[:i], s.units[i+1:]...)
			return nil
		}
	}
	return domain.ErrUnitNotFound
}

func (s *fakeStore) GetUnit(ctx context.Context, id int64) (domain.BloodUnit, error) {
	for _, u := range s.units {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.BloodUnit{}, domain.ErrUnitNotFound
}

func (s *fakeStore) ListUnits(ctx context.Context) ([]domain.BloodUnit, error) {
	if err := s.fail("ListUnits"); err != nil {
		return nil, err
	}
	units := append([]domain.BloodUnit(nil), s.units...)
	sortUnitsFEFO(units)
	return units, nil
}

func (s *fakeStore) TotalStock(ctx context.Context, bt domain.BloodType) (int, error) {
	if err := s.fail("TotalStock"); err != nil {
		return 0, err
	}
	return s.totalQuantity(bt), nil
}

func (s *fakeStore) SelectForDeduction(ctx context.Context, bt domain.BloodType) ([]domain.BloodUnit, error) {
	if err := s.fail("SelectForDeduction"); err != nil {
		return nil, err
	}
	var units []domain.BloodUnit
	for _, u := range s.units {
		if u.BloodType == bt && u.Quantity > 0 {
			units = append(units, u)
		}
	}
	sortUnitsFEFO(units)
	return units, nil
}

func (s *fakeStore) SetUnitQuantity(ctx context.Context, id int64, quantity int) error {
	if err := s.fail("SetUnitQuantity"); err != nil {
		return err
	}
	for i := range s.units {
		if s.units[i].ID == id {
			s.units[i].Quantity = quantity
			return nil
		}
	}
	return domain.ErrUnitNotFound
}

func (s *fakeStore) CreateRequest(ctx context.Context, req domain.BloodRequest) (int64, error) {
	if err := s.fail("CreateRequest"); err != nil {
		return 0, err
	}
	return s.addRequest(req).ID, nil
}

func (s *fakeStore) ListRequests(ctx context.Context) ([]domain.BloodRequest, error) {
	requests := append([]domain.BloodRequest(nil), s.requests...)
	sort.SliceStable(requests, func(i, j int) bool {
		if !requests[i].RequestDate.Equal(requests[j].RequestDate) {
			return requests[i].RequestDate.After(requests[j].RequestDate)
		}
		return requests[i].ID > requests[j].ID
	})
	return requests, nil
}

func (s *fakeStore) GetRequestForUpdate(ctx context.Context, id int64) (domain.BloodRequest, error) {
	if err := s.fail("GetRequestForUpdate"); err != nil {
		return domain.BloodRequest{}, err
	}
	for _, r := range s.requests {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.BloodRequest{}, domain.ErrRequestNotFound
}

func (s *fakeStore) MarkFulfilled(ctx context.Context, id int64) error {
	if err := s.fail("MarkFulfilled"); err != nil {
		return err
	}
	for i := range s.requests {
		if s.requests[i].ID == id {
			s.requests[i].Fulfilled = true
			return nil
		}
	}
	return domain.ErrRequestNotFound
}

func (s *fakeStore) DeleteRequest(ctx context.Context, id int64) error {
	for i := range s.requests {
		if s.requests[i].ID == id {
			s.requests = append(s.requests[:i], s.requests[i+1:]...)
			return nil
		}
	}
	return domain.ErrRequestNotFound
}

func (s *fakeStore) SumPending(ctx context.Context, bt domain.BloodType) (int, error) {
	if err := s.fail("SumPending"); err != nil {
		return 0, err
	}
	total := 0
	for _, r := range s.requests {
		if r.BloodType == bt && !r.Fulfilled {
			total += r.Quantity
		}
	}
	return total, nil
}

func (s *fakeStore) AlertExists(ctx context.Context, unitID int64, kind domain.AlertKind) (bool, error) {
	if err := s.fail("AlertExists"); err != nil {
		return false, err
	}
	for _, a := range s.alerts {
		if a.UnitID == unitID && a.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) CreateAlert(ctx context.Context, alert domain.Alert) (*domain.Alert, error) {
	if err := s.fail("CreateAlert"); err != nil {
		return nil, err
	}
	for _, a := range s.alerts {
		if a.UnitID == alert.UnitID && a.Kind == alert.Kind {
			return nil, nil
		}
	}
	alert.ID = s.nextAlertID
	s.nextAlertID++
	s.alerts = append(s.alerts, alert)
	return &alert, nil
}

func (s *fakeStore) ListAlerts(ctx context.Context) ([]domain.Alert, error) {
	alerts := append([]domain.Alert(nil), s.alerts...)
	sort.SliceStable(alerts, func(i, j int) bool {
		if !alerts[i].DateGenerated.Equal(alerts[j].DateGenerated) {
			return alerts[i].DateGenerated.After(alerts[j].DateGenerated)
		}
		return alerts[i].ID > alerts[j].ID
	})
	for i := range alerts {
		for _, u := range s.units {
			if u.ID == alerts[i].UnitID {
				alerts[i].BloodType = u.BloodType
				break
			}
		}
	}
	return alerts, nil
}

func (s *fakeStore) DeleteAlert(ctx context.Context, id int64) error {
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			s.alerts = append(s.alerts[:i], s.alerts[i+1:]...)
			return nil
		}
	}
	return domain.ErrAlertNotFound
}

func sortUnitsFEFO(units []domain.BloodUnit) {
	sort.SliceStable(units, func(i, j int) bool {
		if !units[i].ExpiryDate.Equal(units[j].ExpiryDate) {
			return units[i].ExpiryDate.Before(units[j].ExpiryDate)
		}
		return units[i].ID < units[j].ID
	})
}
