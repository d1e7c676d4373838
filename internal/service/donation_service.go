// internal/service/donation_service.go
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mandir-fund/internal/domain"
	"mandir-fund/internal/metrics"
	"mandir-fund/internal/repository"
	"mandir-fund/internal/util"
	"mandir-fund/pkg/db"
)

// Donation sources used in metrics.
const (
	SourceUPIConfirmed = "upi_confirmed"
	SourceAdmin        = "admin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// DonationService defines the administrative donation operations.
type DonationService interface {
	RecordDonation(ctx context.Context, details domain.DonorDetails, amount int64) (*domain.Donation, error)
	ConfirmPayment(ctx context.Context, reference, bankReference string) (*domain.PaymentIntent, *domain.Donation, error)
	CancelPayment(ctx context.Context, reference string) (*domain.PaymentIntent, error)
	ListPaymentIntents(ctx context.Context, status domain.PaymentIntentStatus, limit, offset int) ([]domain.PaymentIntent, int64, error)
}

// donationService implements the DonationService interface.
type donationService struct {
	dbBeginner   db.DBTxBeginner
	dbExecutor   repository.DBExecutor
	donationRepo repository.DonationRepository
	intentRepo   repository.PaymentIntentRepository
	validator    *DetailsValidator
	beginTx      db.BeginTxFunc
	commitTx     db.CommitTxFunc
	rollbackTx   db.RollbackTxFunc
}

// NewDonationService creates a new instance of DonationService.
func NewDonationService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	donationRepo repository.DonationRepository,
	intentRepo repository.PaymentIntentRepository,
	validator *DetailsValidator,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
) DonationService {
	return &donationService{
		dbBeginner:   dbBeginner,
		dbExecutor:   dbExecutor,
		donationRepo: donationRepo,
		intentRepo:   intentRepo,
		validator:    validator,
		beginTx:      beginTx,
		commitTx:     commitTx,
		rollbackTx:   rollbackTx,
	}
}

// RecordDonation inserts a donation received outside the UPI flow, such as cash
// at the temple counter.
func (s *donationService) RecordDonation(ctx context.Context, details domain.DonorDetails, amount int64) (*domain.Donation, error) {
	if err := s.validator.Validate(&details, amount); err != nil {
		return nil, err
	}

	donation := domain.NewDonation(details, amount)
	if err := s.donationRepo.CreateDonation(ctx, s.dbExecutor, donation); err != nil {
		return nil, fmt.Errorf("record donation: failed to create donation: %w", err)
	}

	metrics.RecordDonation(SourceAdmin, donation.Amount)
	util.GetLogger().Info().
		Str("donation_id", donation.ID).
		Int64("amount", donation.Amount).
		Msg("Donation recorded")
	return donation, nil
}

// ConfirmPayment marks a pending intent as paid and writes its donation row in
// the same transaction.
func (s *donationService) ConfirmPayment(ctx context.Context, reference, bankReference string) (*domain.PaymentIntent, *domain.Donation, error) {
	reference = normalizeReference(reference)
	bankReference = strings.TrimSpace(bankReference)
	if reference == "" {
		return nil, nil, fmt.Errorf("confirm payment: %w: reference is required", util.ErrInvalidInput)
	}
	if bankReference == "" {
		ve := util.NewValidationError()
		ve.Add("bank_reference", "Please enter the bank transaction reference")
		return nil, nil, ve
	}

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, nil, fmt.Errorf("confirm payment: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, nil, fmt.Errorf("confirm payment: transaction controller does not implement DBExecutor")
	}

	intent, err := s.intentRepo.GetPaymentIntentByReference(ctx, txExecutor, reference, true)
	if err != nil {
		return nil, nil, fmt.Errorf("confirm payment: failed to get intent %s: %w", reference, err)
	}
	if intent.Status != domain.PaymentIntentStatusPending {
		return nil, nil, fmt.Errorf("confirm payment: %w: intent %s is %s", util.ErrInvalidState, reference, intent.Status)
	}

	donation := domain.NewDonation(intent.Details(), intent.Amount)
	if err := s.donationRepo.CreateDonation(ctx, txExecutor, donation); err != nil {
		return nil, nil, fmt.Errorf("confirm payment: failed to create donation: %w", err)
	}

	intent.Status = domain.PaymentIntentStatusConfirmed
	intent.BankReference = &bankReference
	intent.DonationID = &donation.ID
	intent.UpdatedAt = time.Now().UTC()
	if err := s.intentRepo.UpdatePaymentIntentStatus(ctx, txExecutor, intent); err != nil {
		return nil, nil, fmt.Errorf("confirm payment: failed to update intent %s: %w", reference, err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, nil, fmt.Errorf("confirm payment: failed to commit transaction: %w", err)
	}

	metrics.PaymentIntentTransitions.WithLabelValues(string(domain.PaymentIntentStatusConfirmed)).Inc()
	metrics.RecordDonation(SourceUPIConfirmed, donation.Amount)
	util.GetLogger().Info().
		Str("reference", reference).
		Str("donation_id", donation.ID).
		Int64("amount", donation.Amount).
		Msg("Payment confirmed")
	return intent, donation, nil
}

// CancelPayment abandons a pending intent. No donation row is ever written for it.
func (s *donationService) CancelPayment(ctx context.Context, reference string) (*domain.PaymentIntent, error) {
	reference = normalizeReference(reference)
	if reference == "" {
		return nil, fmt.Errorf("cancel payment: %w: reference is required", util.ErrInvalidInput)
	}

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, fmt.Errorf("cancel payment: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, fmt.Errorf("cancel payment: transaction controller does not implement DBExecutor")
	}

	intent, err := s.intentRepo.GetPaymentIntentByReference(ctx, txExecutor, reference, true)
	if err != nil {
		return nil, fmt.Errorf("cancel payment: failed to get intent %s: %w", reference, err)
	}
	if intent.Status != domain.PaymentIntentStatusPending {
		return nil, fmt.Errorf("cancel payment: %w: intent %s is %s", util.ErrInvalidState, reference, intent.Status)
	}

	intent.Status = domain.PaymentIntentStatusCancelled
	intent.UpdatedAt = time.Now().UTC()
	if err := s.intentRepo.UpdatePaymentIntentStatus(ctx, txExecutor, intent); err != nil {
		return nil, fmt.Errorf("cancel payment: failed to update intent %s: %w", reference, err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, fmt.Errorf("cancel payment: failed to commit transaction: %w", err)
	}

	metrics.PaymentIntentTransitions.WithLabelValues(string(domain.PaymentIntentStatusCancelled)).Inc()
	util.GetLogger().Info().Str("reference", reference).Msg("Payment cancelled")
	return intent, nil
}

// ListPaymentIntents returns one page of intents with the given status.
func (s *donationService) ListPaymentIntents(ctx context.Context, status domain.PaymentIntentStatus, limit, offset int) ([]domain.PaymentIntent, int64, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	intents, total, err := s.intentRepo.ListPaymentIntents(ctx, s.dbExecutor, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list payment intents: %w", err)
	}
	return intents, total, nil
}

func normalizeReference(reference string) string {
	return strings.ToUpper(strings.TrimSpace(reference))
}
