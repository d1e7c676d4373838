// internal/repository/payment_intent_repo.go
package repository

import (
	"context"

	"mandir-fund/internal/domain"
)

// PaymentIntentRepository defines the interface for payment intent data operations.
type PaymentIntentRepository interface {
	// CreatePaymentIntent inserts a new pending intent.
	CreatePaymentIntent(ctx context.Context, q DBExecutor, intent *domain.PaymentIntent) error
	// GetPaymentIntentByID retrieves an intent by its ID.
	GetPaymentIntentByID(ctx context.Context, q DBExecutor, id string) (*domain.PaymentIntent, error)
	// GetPaymentIntentByReference retrieves an intent by reference. With forUpdate the
	// row is locked until the surrounding transaction ends.
	GetPaymentIntentByReference(ctx context.Context, q DBExecutor, reference string, forUpdate bool) (*domain.PaymentIntent, error)
	// UpdatePaymentIntentStatus persists Status, BankReference, DonationID and UpdatedAt.
	UpdatePaymentIntentStatus(ctx context.Context, q DBExecutor, intent *domain.PaymentIntent) error
	// ListPaymentIntents returns one page of intents with the given status plus the total count.
	ListPaymentIntents(ctx context.Context, q DBExecutor, status domain.PaymentIntentStatus, limit, offset int) ([]domain.PaymentIntent, int64, error)
}
