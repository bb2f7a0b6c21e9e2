package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/paygate/internal/domain/errors"
	"github.com/cassiomorais/paygate/internal/domain/payment"
	"github.com/cassiomorais/paygate/pkg/money"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentRepository implements payment.Repository using PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const recordColumns = `id, amount, currency, status, message, error_codes,
	        http_status, method, paid_by, paid_for_class, paid_for_id,
	        created_at, updated_at, completed_at`

// Create inserts a new payment record.
func (r *PaymentRepository) Create(ctx context.Context, rec *payment.Record) error {
	errorCodes, err := json.Marshal(rec.ErrorCodes)
	if err != nil {
		return fmt.Errorf("marshal error codes: %w", err)
	}

	var paidForClass, paidForID *string
	if rec.PaidFor != nil {
		paidForClass = &rec.PaidFor.Class
		paidForID = &rec.PaidFor.ID
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO payments
		 (id, amount, currency, status, message, error_codes,
		  http_status, method, paid_by, paid_for_class, paid_for_id,
		  created_at, updated_at, completed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		rec.ID, money.FromCents(rec.Amount.ValueCents), rec.Amount.Currency,
		string(rec.Status), rec.Message, errorCodes,
		rec.HTTPStatus, rec.Method, rec.PaidBy, paidForClass, paidForID,
		rec.CreatedAt, rec.UpdatedAt, rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment record: %w", err)
	}
	return nil
}

// GetByID retrieves a payment record. A missing record returns (nil, nil);
// the caller decides whether that is an error.
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Record, error) {
	rec, err := r.scanRecord(r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM payments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// Update persists a terminal transition with a compare-and-set on the
// expected current status. A stale expectation (another delivery already
// moved the record) returns ErrAlreadyProcessed; a missing row returns
// ErrPaymentNotFound.
func (r *PaymentRepository) Update(ctx context.Context, rec *payment.Record, expected payment.Status) error {
	errorCodes, err := json.Marshal(rec.ErrorCodes)
	if err != nil {
		return fmt.Errorf("marshal error codes: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE payments SET
		  status=$1, message=$2, error_codes=$3, http_status=$4,
		  updated_at=$5, completed_at=$6
		 WHERE id=$7 AND status=$8`,
		string(rec.Status), rec.Message, errorCodes, rec.HTTPStatus,
		rec.UpdatedAt, rec.CompletedAt, rec.ID, string(expected),
	)
	if err != nil {
		return fmt.Errorf("update payment record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM payments WHERE id = $1)`, rec.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check payment record: %w", err)
		}
		if !exists {
			return domainErrors.ErrPaymentNotFound
		}
		return domainErrors.ErrAlreadyProcessed
	}
	return nil
}

// List lists payment records with optional filters, newest first.
func (r *PaymentRepository) List(ctx context.Context, f payment.ListFilter) ([]*payment.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM payments WHERE 1=1`
	args := []any{}
	argIdx := 1

	if f.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(*f.Status))
		argIdx++
	}
	if f.Method != nil {
		query += fmt.Sprintf(" AND method = $%d", argIdx)
		args = append(args, *f.Method)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payment records: %w", err)
	}
	defer rows.Close()

	var records []*payment.Record
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// --- scanning helpers ---

func (r *PaymentRepository) scanRecord(s scanner) (*payment.Record, error) {
	rec := &payment.Record{}
	var (
		amountStr    string
		status       string
		errorCodes   []byte
		paidForClass *string
		paidForID    *string
	)
	err := s.Scan(
		&rec.ID, &amountStr, &rec.Amount.Currency, &status, &rec.Message, &errorCodes,
		&rec.HTTPStatus, &rec.Method, &rec.PaidBy, &paidForClass, &paidForID,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan payment record: %w", err)
	}

	cents, err := money.ToCents(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	rec.Amount.ValueCents = cents
	rec.Status = payment.Status(status)

	if paidForClass != nil && paidForID != nil {
		rec.PaidFor = &payment.ResourceRef{Class: *paidForClass, ID: *paidForID}
	}
	if len(errorCodes) > 0 {
		if err := json.Unmarshal(errorCodes, &rec.ErrorCodes); err != nil {
			return nil, fmt.Errorf("unmarshal error codes: %w", err)
		}
	}
	return rec, nil
}
