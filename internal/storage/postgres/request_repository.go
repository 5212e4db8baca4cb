package postgres

import (
	"context"
	"fmt"

	"github.com/Jean-Luc-of-God/bloodbank/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RequestRepository serves the reservation accountant. It carries its own
// copies of the unit queries the fulfillment path needs, so a fulfillment
// transaction never crosses repository boundaries.
type RequestRepository struct {
	pool *pgxpool.Pool
}

func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

func (r *RequestRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *RequestRepository) LockBloodType(ctx context.Context, bt domain.BloodType) error {
	if _, err := r.exec(ctx, lockBloodTypeSQL, string(bt)); err != nil {
		return fmt.Errorf("lock blood type %s: %w", bt, err)
	}
	return nil
}

func (r *RequestRepository) CreateRequest(ctx context.Context, req domain.BloodRequest) (int64, error) {
	const stmt = `
INSERT INTO requests (blood_type, quantity, request_date, fulfilled)
VALUES ($1, $2, $3, $4)
RETURNING id`

	var id int64
	err := r.queryRow(ctx, stmt, req.BloodType, req.Quantity, req.RequestDate, req.Fulfilled).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	return id, nil
}

// ListRequests returns all requests newest first.
func (r *RequestRepository) ListRequests(ctx context.Context) ([]domain.BloodRequest, error) {
	const query = `
SELECT id, blood_type, quantity, request_date, fulfilled
FROM requests
ORDER BY request_date DESC, id DESC`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []domain.BloodRequest
	for rows.Next() {
		var req domain.BloodRequest
		if err := rows.Scan(&req.ID, &req.BloodType, &req.Quantity, &req.RequestDate, &req.Fulfilled); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return requests, nil
}

func (r *RequestRepository) GetRequestForUpdate(ctx context.Context, id int64) (domain.BloodRequest, error) {
	const query = `
SELECT id, blood_type, quantity, request_date, fulfilled
FROM requests
WHERE id = $1
FOR UPDATE`

	var req domain.BloodRequest
	err := r.queryRow(ctx, query, id).
		Scan(&req.ID, &req.BloodType, &req.Quantity, &req.RequestDate, &req.Fulfilled)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.BloodRequest{}, domain.ErrRequestNotFound
		}
		return domain.BloodRequest{}, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

func (r *RequestRepository) MarkFulfilled(ctx context.Context, id int64) error {
	tag, err := r.exec(ctx, `UPDATE requests SET fulfilled = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark fulfilled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

func (r *RequestRepository) DeleteRequest(ctx context.Context, id int64) error {
	tag, err := r.exec(ctx, `DELETE FROM requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

// SumPending totals the promised-but-unfulfilled quantity for one type.
func (r *RequestRepository) SumPending(ctx context.Context, bt domain.BloodType) (int, error) {
	const query = `SELECT COALESCE(SUM(quantity), 0) FROM requests WHERE blood_type = $1 AND NOT fulfilled`

	var total int
	if err := r.queryRow(ctx, query, bt).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum pending: %w", err)
	}
	return total, nil
}

func (r *RequestRepository) TotalStock(ctx context.Context, bt domain.BloodType) (int, error) {
	const query = `SELECT COALESCE(SUM(quantity), 0) FROM units WHERE blood_type = $1`

	var total int
	if err := r.queryRow(ctx, query, bt).Scan(&total); err != nil {
		return 0, fmt.Errorf("total stock: %w", err)
	}
	return total, nil
}

func (r *RequestRepository) SelectForDeduction(ctx context.Context, bt domain.BloodType) ([]domain.BloodUnit, error) {
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

func (r *RequestRepository) SetUnitQuantity(ctx context.Context, id int64, quantity int) error {
	tag, err := r.exec(ctx, `UPDATE units SET quantity = $1 WHERE id = $2`, quantity, id)
	if err != nil {
		return fmt.Errorf("set unit quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnitNotFound
	}
	return nil
}

func (r *RequestRepository) DeleteUnit(ctx context.Context, id int64) error {
	tag, err := r.exec(ctx, `DELETE FROM units WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete unit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnitNotFound
	}
	return nil
}

func (r *RequestRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *RequestRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *RequestRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
