// internal/repository/postgres/payment_intent_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"mandir-fund/internal/domain"
	"mandir-fund/internal/repository"
	"mandir-fund/internal/util"
)

const paymentIntentColumns = `id, reference, donor_name, phone, email, amount, message, is_anonymous,
       status, bank_reference, donation_id, created_at, updated_at`

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// PaymentIntentRepository implements repository.PaymentIntentRepository for PostgreSQL.
type PaymentIntentRepository struct{}

// NewPaymentIntentRepository creates a new PaymentIntentRepository.
func NewPaymentIntentRepository() repository.PaymentIntentRepository {
	return &PaymentIntentRepository{}
}

// CreatePaymentIntent inserts a new payment intent using the provided DBExecutor.
func (r *PaymentIntentRepository) CreatePaymentIntent(ctx context.Context, q repository.DBExecutor, intent *domain.PaymentIntent) error {
	query := `INSERT INTO payment_intents (id, reference, donor_name, phone, email, amount, message, is_anonymous, status, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := q.ExecContext(ctx, query,
		intent.ID,
		intent.Reference,
		intent.DonorName,
		intent.Phone,
		intent.Email,
		intent.Amount,
		intent.Message,
		intent.IsAnonymous,
		intent.Status,
		intent.CreatedAt,
		intent.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("failed to create payment intent %s: %w", intent.Reference, util.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create payment intent: %w", err)
	}
	return nil
}

// GetPaymentIntentByID retrieves a payment intent by its ID using the provided DBExecutor.
func (r *PaymentIntentRepository) GetPaymentIntentByID(ctx context.Context, q repository.DBExecutor, id string) (*domain.PaymentIntent, error) {
	var intent domain.PaymentIntent
	query := `SELECT ` + paymentIntentColumns + ` FROM payment_intents WHERE id = $1`
	if err := q.GetContext(ctx, &intent, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment intent by ID %s: %w", id, err)
	}
	return &intent, nil
}

// GetPaymentIntentByReference retrieves a payment intent by reference, optionally locking it.
func (r *PaymentIntentRepository) GetPaymentIntentByReference(ctx context.Context, q repository.DBExecutor, reference string, forUpdate bool) (*domain.PaymentIntent, error) {
	var intent domain.PaymentIntent
	query := `SELECT ` + paymentIntentColumns + ` FROM payment_intents WHERE reference = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	if err := q.GetContext(ctx, &intent, query, reference); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment intent by reference '%s': %w", reference, err)
	}
	return &intent, nil
}

// UpdatePaymentIntentStatus updates the status columns of a payment intent.
func (r *PaymentIntentRepository) UpdatePaymentIntentStatus(ctx context.Context, q repository.DBExecutor, intent *domain.PaymentIntent) error {
	query := `UPDATE payment_intents
              SET status = $1, bank_reference = $2, donation_id = $3, updated_at = $4
              WHERE id = $5`
	result, err := q.ExecContext(ctx, query, intent.Status, intent.BankReference, intent.DonationID, intent.UpdatedAt, intent.ID)
	if err != nil {
		return fmt.Errorf("failed to update payment intent %s: %w", intent.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating payment intent %s: %w", intent.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("payment intent %s: %w", intent.ID, util.ErrNotFound)
	}
	return nil
}

// ListPaymentIntents retrieves a paginated list of payment intents with the given status.
// It performs two queries: one for the data and one for the total count.
func (r *PaymentIntentRepository) ListPaymentIntents(ctx context.Context, q repository.DBExecutor, status domain.PaymentIntentStatus, limit, offset int) ([]domain.PaymentIntent, int64, error) {
	intents := []domain.PaymentIntent{}

	query := `SELECT ` + paymentIntentColumns + `
		FROM payment_intents
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	if err := q.SelectContext(ctx, &intents, query, status, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to fetch %s payment intents: %w", status, err)
	}

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM payment_intents WHERE status = $1`
	if err := q.GetContext(ctx, &totalCount, countQuery, status); err != nil {
		return nil, 0, fmt.Errorf("failed to count %s payment intents: %w", status, err)
	}

	return intents, totalCount, nil
}
