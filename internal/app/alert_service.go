package app

import (
	"context"

	"github.com/Jean-Luc-of-God/bloodbank/internal/clock"
	"github.com/Jean-Luc-of-God/bloodbank/internal/domain"
)

type AlertRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	ListUnits(ctx context.Context) ([]domain.BloodUnit, error)
	AlertExists(ctx context.Context, unitID int64, kind domain.AlertKind) (bool, error)
	CreateAlert(ctx context.Context, alert domain.Alert) (*domain.Alert, error)
	ListAlerts(ctx context.Context) ([]domain.Alert, error)
	DeleteAlert(ctx context.Context, id int64) error
}

// AlertService scans the ledger for expiring units and maintains the alert
// table. Deduplication keys on (unit, kind): a unit that crosses from
// near-expiry into expired accumulates a second alert, and the old one is
// never upgraded or cleared by the scanner.
type AlertService struct {
	repo  AlertRepository
	clock clock.Clock
}

func NewAlertService(repo AlertRepository, clk clock.Clock) *AlertService {
	return &AlertService{
		repo:  repo,
		clock: clk,
	}
}

// Scan classifies every unit against today and inserts one Pending alert per
// newly-entered (unit, kind) state. The whole scan is a single transaction;
// the returned slice holds only alerts created by this call, so running the
// scan twice over an unchanged ledger returns nothing the second time.
func (s *AlertService) Scan(ctx context.Context) ([]domain.Alert, error) {
	today := domain.DateOf(s.clock.Now())

	var created []domain.Alert
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		units, err := s.repo.ListUnits(txCtx)
		if err != nil {
			return err
		}

		for _, unit := range units {
			kind, ok := domain.ClassifyExpiry(unit.ExpiryDate, today)
			if !ok {
				continue
			}

			exists, err := s.repo.AlertExists(txCtx, unit.ID, kind)
			if err != nil {
				return err
			}
			if exists {
				continue
			}

			alert, err := s.repo.CreateAlert(txCtx, domain.Alert{
				UnitID:        unit.ID,
				Kind:          kind,
				DateGenerated: today,
				Status:        domain.AlertStatusPending,
			})
			if err != nil {
				return err
			}
			if alert != nil {
				alert.BloodType = unit.BloodType
				created = append(created, *alert)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// List returns all alerts, newest first, with the triggering unit's blood
// type joined in for display.
func (s *AlertService) List(ctx context.Context) ([]domain.Alert, error) {
	return s.repo.ListAlerts(ctx)
}

// Dismiss deletes one alert. Dismissal is the only way an alert leaves the
// table; the scanner never removes stale ones.
func (s *AlertService) Dismiss(ctx context.Context, alertID int64) error {
	return s.repo.DeleteAlert(ctx, alertID)
}
