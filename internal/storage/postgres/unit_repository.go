package postgres

import (
	"context"
	"fmt"

	"github.com/Jean-Luc-of-God/bloodbank/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UnitRepository struct {
	pool *pgxpool.Pool
}

func NewUnitRepository(pool *pgxpool.Pool) *UnitRepository {
	return &UnitRepository{pool: pool}
}

func (r *UnitRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *UnitRepository) LockBloodType(ctx context.Context, bt domain.BloodType) error {
	if _, err := r.exec(ctx, lockBloodTypeSQL, string(bt)); err != nil {
		return fmt.Errorf("lock blood type %s: %w", bt, err)
	}
	return nil
}

func (r *UnitRepository) CreateUnit(ctx context.Context, unit domain.BloodUnit) (int64, error) {
	const stmt = `
INSERT INTO units (blood_type, quantity, donation_date, expiry_date, donor_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`

	var id int64
	err := r.queryRow(ctx, stmt,
		unit.BloodType,
		unit.Quantity,
		unit.DonationDate,
		unit.ExpiryDate,
		unit.DonorID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create unit: %w", err)
	}
	return id, nil
}

func (r *UnitRepository) UpdateUnit(ctx context.Context, unit domain.BloodUnit) error {
	const stmt = `
UPDATE units
SET blood_type = $1, quantity = $2, donation_date = $3, expiry_date = $4, donor_id = $5
WHERE id = $6`

	tag, err := r.exec(ctx, stmt,
		unit.BloodType,
		unit.Quantity,
		unit.DonationDate,
		unit.ExpiryDate,
		unit.DonorID,
		unit.ID,
	)
	if err != nil {
		return fmt.Errorf("update unit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnitNotFound
	}
	return nil
}

func (r *UnitRepository) DeleteUnit(ctx context.Context, id int64) error {
	tag, err := r.exec(ctx, `DELETE FROM units WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete unit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnitNotFound
	}
	return nil
}

func (r *UnitRepository) GetUnit(ctx context.Context, id int64) (domain.BloodUnit, error) {
	const query = `
SELECT id, blood_type, quantity, donation_date, expiry_date, donor_id
FROM units
WHERE id = $1`

	var u domain.BloodUnit
	err := r.queryRow(ctx, query, id).
		Scan(&u.ID, &u.BloodType, &u.Quantity, &u.DonationDate, &u.ExpiryDate, &u.DonorID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.BloodUnit{}, domain.ErrUnitNotFound
		}
		return domain.BloodUnit{}, fmt.Errorf("get unit: %w", err)
	}
	return u, nil
}

// ListUnits returns the whole ledger soonest-to-expire first, ties broken by
// ascending id.
func (r *UnitRepository) ListUnits(ctx context.Context) ([]domain.BloodUnit, error) {
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

func (r *UnitRepository) TotalStock(ctx context.Context, bt domain.BloodType) (int, error) {
	const query = `SELECT COALESCE(SUM(quantity), 0) FROM units WHERE blood_type = $1`

	var total int
	if err := r.queryRow(ctx, query, bt).Scan(&total); err != nil {
		return 0, fmt.Errorf("total stock: %w", err)
	}
	return total, nil
}

// SelectForDeduction locks and returns the deduction candidates for one
// blood type in consumption order: expiry date ascending, then id ascending.
func (r *UnitRepository) SelectForDeduction(ctx context.Context, bt domain.BloodType) ([]domain.BloodUnit, error) {
	const query = `
SELECT id, blood_type, quantity, donation_date, expiry_date, donor_id
FROM units
WHERE blood_type = $1 AND quantity > 0
ORDER BY expiry_date ASC, id ASC
FOR UPDATE`

	rows, err := r.query(ctx, query, bt)
	if err != nil {
		return nil, fmt.Errorf("select units for deduction: %w", err)
	}
	defer rows.Close()

	return scanUnits(rows)
}

func (r *UnitRepository) SetUnitQuantity(ctx context.Context, id int64, quantity int) error {
	tag, err := r.exec(ctx, `UPDATE units SET quantity = $1 WHERE id = $2`, quantity, id)
	if err != nil {
		return fmt.Errorf("set unit quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnitNotFound
	}
	return nil
}

func scanUnits(rows pgx.Rows) ([]domain.BloodUnit, error) {
	var units []domain.BloodUnit
	for rows.Next() {
		var u domain.BloodUnit
		if err := rows.Scan(&u.ID, &u.BloodType, &u.Quantity, &u.DonationDate, &u.ExpiryDate, &u.DonorID); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate units: %w", err)
	}
	return units, nil
}

func (r *UnitRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *UnitRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *UnitRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
