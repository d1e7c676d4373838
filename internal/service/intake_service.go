// internal/service/intake_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"mandir-fund/internal/config"
	"mandir-fund/internal/domain"
	"mandir-fund/internal/metrics"
	"mandir-fund/internal/repository"
	"mandir-fund/internal/util"
)

// maxReferenceAttempts bounds retries when a generated payment reference collides.
const maxReferenceAttempts = 3

// AmountSelection is the donor's choice on the amount step. Preset is applied
// before Custom, so a valid custom amount wins.
type AmountSelection struct {
	Preset *int64  `json:"preset,omitempty"`
	Custom *string `json:"custom,omitempty"`
}

// LinkBuilder produces the payment redirect for an amount and reference.
type LinkBuilder interface {
	Build(amount int64, reference string) (string, error)
}

// IntakeService defines the donation wizard operations.
type IntakeService interface {
	Start(ctx context.Context) (domain.IntakeSnapshot, error)
	Get(ctx context.Context, id string) (domain.IntakeSnapshot, error)
	SetAmount(ctx context.Context, id string, sel AmountSelection) (domain.IntakeSnapshot, error)
	Back(ctx context.Context, id string) (domain.IntakeSnapshot, error)
	SubmitDetails(ctx context.Context, id string, details domain.DonorDetails) (domain.IntakeSnapshot, error)
}

// intakeService implements the IntakeService interface.
type intakeService struct {
	dbExecutor repository.DBExecutor
	intentRepo repository.PaymentIntentRepository
	links      LinkBuilder
	validator  *DetailsValidator
	sessions   *lru.Cache // intake id -> *domain.Intake
	cfg        config.IntakeConfig
	now        func() time.Time
}

// NewIntakeService creates a new instance of IntakeService. Sessions are kept
// in memory, bounded by cfg.Capacity and expired after cfg.TTL of inactivity.
func NewIntakeService(
	dbExecutor repository.DBExecutor,
	intentRepo repository.PaymentIntentRepository,
	links LinkBuilder,
	validator *DetailsValidator,
	cfg config.IntakeConfig,
) (IntakeService, error) {
	sessions, err := lru.New(cfg.Capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create intake session store: %w", err)
	}
	return &intakeService{
		dbExecutor: dbExecutor,
		intentRepo: intentRepo,
		links:      links,
		validator:  validator,
		sessions:   sessions,
		cfg:        cfg,
		now:        time.Now,
	}, nil
}

// Start opens a new wizard with the default amount preselected.
func (s *intakeService) Start(ctx context.Context) (domain.IntakeSnapshot, error) {
	in := domain.NewIntake(s.cfg.PresetAmounts, s.cfg.DefaultAmount)
	s.sessions.Add(in.ID(), in)
	metrics.IntakesStarted.Inc()
	return in.Snapshot(), nil
}

// Get returns the wizard state. A wizard awaiting payment is moved to Confirmed
// once an operator has confirmed its payment intent.
func (s *intakeService) Get(ctx context.Context, id string) (domain.IntakeSnapshot, error) {
	in, err := s.lookup(id)
	if err != nil {
		return domain.IntakeSnapshot{}, err
	}

	snap := in.Snapshot()
	if snap.State != domain.IntakeStateAwaitingPayment || snap.IntentID == "" {
		return snap, nil
	}
	intent, err := s.intentRepo.GetPaymentIntentByID(ctx, s.dbExecutor, snap.IntentID)
	if err != nil {
		return domain.IntakeSnapshot{}, fmt.Errorf("get intake: failed to get payment intent %s: %w", snap.IntentID, err)
	}
	if intent.Status == domain.PaymentIntentStatusConfirmed && intent.DonationID != nil {
		if err := in.MarkConfirmed(*intent.DonationID); err != nil {
			return domain.IntakeSnapshot{}, fmt.Errorf("get intake: %w", err)
		}
	}
	return in.Snapshot(), nil
}

// SetAmount applies the amount selection and continues to the details step.
func (s *intakeService) SetAmount(ctx context.Context, id string, sel AmountSelection) (domain.IntakeSnapshot, error) {
	in, err := s.lookup(id)
	if err != nil {
		return domain.IntakeSnapshot{}, err
	}

	if sel.Preset != nil {
		if err := in.SelectPreset(*sel.Preset); err != nil {
			return domain.IntakeSnapshot{}, err
		}
	}
	if sel.Custom != nil {
		if err := in.EnterCustom(*sel.Custom); err != nil {
			return domain.IntakeSnapshot{}, err
		}
	}
	if err := in.Continue(); err != nil {
		if util.IsError(err, util.ErrInvalidInput) {
			metrics.IntakeValidationFailures.WithLabelValues("amount").Inc()
		}
		return domain.IntakeSnapshot{}, err
	}
	return in.Snapshot(), nil
}

// Back returns to the amount step.
func (s *intakeService) Back(ctx context.Context, id string) (domain.IntakeSnapshot, error) {
	in, err := s.lookup(id)
	if err != nil {
		return domain.IntakeSnapshot{}, err
	}
	if err := in.Back(); err != nil {
		return domain.IntakeSnapshot{}, err
	}
	return in.Snapshot(), nil
}

// SubmitDetails validates the donor details, records a pending payment intent
// and returns the wizard with its single redirect target. Nothing is persisted
// when validation fails.
func (s *intakeService) SubmitDetails(ctx context.Context, id string, details domain.DonorDetails) (domain.IntakeSnapshot, error) {
	in, err := s.lookup(id)
	if err != nil {
		return domain.IntakeSnapshot{}, err
	}

	details.Normalize()
	amount, err := in.StageDetails(details)
	if err != nil {
		return domain.IntakeSnapshot{}, err
	}
	if err := s.validator.Validate(&details, amount); err != nil {
		in.ReleaseDetails()
		return domain.IntakeSnapshot{}, err
	}

	intent, link, err := s.createIntent(ctx, details, amount)
	if err != nil {
		in.ReleaseDetails()
		return domain.IntakeSnapshot{}, fmt.Errorf("submit details: %w", err)
	}
	if err := in.AwaitPayment(intent.ID, link); err != nil {
		return domain.IntakeSnapshot{}, fmt.Errorf("submit details: %w", err)
	}

	metrics.PaymentIntentTransitions.WithLabelValues(string(domain.PaymentIntentStatusPending)).Inc()
	metrics.PaymentRedirects.Inc()
	util.GetLogger().Info().
		Str("intake_id", id).
		Str("reference", intent.Reference).
		Int64("amount", amount).
		Bool("anonymous", intent.IsAnonymous).
		Msg("Payment intent created")

	return in.Snapshot(), nil
}

func (s *intakeService) createIntent(ctx context.Context, details domain.DonorDetails, amount int64) (*domain.PaymentIntent, string, error) {
	var lastErr error
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		intent := domain.NewPaymentIntent(details, amount)
		link, err := s.links.Build(amount, intent.Reference)
		if err != nil {
			return nil, "", fmt.Errorf("failed to build payment link: %w", err)
		}
		err = s.intentRepo.CreatePaymentIntent(ctx, s.dbExecutor, intent)
		if err == nil {
			return intent, link, nil
		}
		if !errors.Is(err, util.ErrDuplicateEntry) {
			return nil, "", fmt.Errorf("failed to create payment intent: %w", err)
		}
		lastErr = err
	}
	return nil, "", fmt.Errorf("failed to allocate a unique payment reference: %w", lastErr)
}

func (s *intakeService) lookup(id string) (*domain.Intake, error) {
	v, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("intake %s: %w", id, util.ErrNotFound)
	}
	in := v.(*domain.Intake)
	if s.cfg.TTL > 0 && s.now().Sub(in.TouchedAt()) > s.cfg.TTL {
		s.sessions.Remove(id)
		return nil, fmt.Errorf("intake %s expired: %w", id, util.ErrNotFound)
	}
	in.Touch()
	return in, nil
}
