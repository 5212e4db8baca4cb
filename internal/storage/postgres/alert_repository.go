package postgres

import (
	"context"
	"fmt"

	"github.com/Jean-Luc-of-God/bloodbank/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AlertRepository struct {
	pool *pgxpool.Pool
}

func NewAlertRepository(pool *pgxpool.Pool) *AlertRepository {
	return &AlertRepository{pool: pool}
}

func (r *AlertRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *AlertRepository) ListUnits(ctx context.Context) ([]domain.BloodUnit, error) {
	const query = `
SELECT id, blood_type, quantity, donation_date, expiry_date, donor_id
FROM units
ORDER BY expiry_date ASC, id ASC`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	return scanUnits(rows)
}

func (r *AlertRepository) AlertExists(ctx context.Context, unitID int64, kind domain.AlertKind) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM alerts WHERE unit_id = $1 AND alert_type = $2)`

	var exists bool
	if err := r.queryRow(ctx, query, unitID, kind).Scan(&exists); err != nil {
		return false, fmt.Errorf("check alert exists: %w", err)
	}
	return exists, nil
}

// CreateAlert inserts one alert. The unique index on (unit_id, alert_type)
// backstops the existence check under concurrent scans; a conflicting insert
// returns nil without error.
func (r *AlertRepository) CreateAlert(ctx context.Context, alert domain.Alert) (*domain.Alert, error) {
	const stmt = `
INSERT INTO alerts (unit_id, alert_type, date_generated, status)
VALUES ($1, $2, $3, $4)
ON CONFLICT (unit_id, alert_type) DO NOTHING
RETURNING id`

	var id int64
	err := r.queryRow(ctx, stmt, alert.UnitID, alert.Kind, alert.DateGenerated, alert.Status).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("create alert: %w", err)
	}
	alert.ID = id
	return &alert, nil
}

// ListAlerts returns all alerts newest first, joined back to the ledger for
// the triggering unit's blood type. The join is LEFT: a consumed unit leaves
// its alerts behind with an empty blood type.
func (r *AlertRepository) ListAlerts(ctx context.Context) ([]domain.Alert, error) {
	const query = `
SELECT a.id, a.unit_id, a.alert_type, a.date_generated, a.status, COALESCE(u.blood_type, '')
FROM alerts a
LEFT JOIN units u ON u.id = a.unit_id
ORDER BY a.date_generated DESC, a.id DESC`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		var a domain.Alert
		if err := rows.Scan(&a.ID, &a.UnitID, &a.Kind, &a.DateGenerated, &a.Status, &a.BloodType); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return alerts, nil
}

func (r *AlertRepository) DeleteAlert(ctx context.Context, id int64) error {
	tag, err := r.exec(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlertNotFound
	}
	return nil
}

func (r *AlertRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *AlertRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *AlertRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
