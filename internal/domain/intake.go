// internal/domain/intake.go
package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mandir-fund/internal/util"
)

var errSubmitting = fmt.Errorf("%w: details are already being submitted", util.ErrInvalidState)

// IntakeState defines the step of the donation wizard.
type IntakeState string

const (
	IntakeStateAmountSelection IntakeState = "AMOUNT_SELECTION"
	IntakeStateDetailEntry     IntakeState = "DETAIL_ENTRY"
	IntakeStateAwaitingPayment IntakeState = "AWAITING_PAYMENT"
	IntakeStateConfirmed       IntakeState = "CONFIRMED"
)

// Intake is one donor's pass through the two-step donation wizard.
// It is safe for concurrent use.
type Intake struct {
	mu sync.Mutex

	id       string
	presets  []int64
	state    IntakeState
	preset   int64
	custom   string
	fallback int64
	details  DonorDetails
	intentID string
	redirect string
	// submitting is set between StageDetails and AwaitPayment/ReleaseDetails.
	submitting bool

	donationID string
	createdAt  time.Time
	touchedAt  time.Time
}

// IntakeSnapshot is an immutable view of an Intake.
type IntakeSnapshot struct {
	ID           string       `json:"id"`
	State        IntakeState  `json:"state"`
	Presets      []int64      `json:"presets"`
	Preset       int64        `json:"selected_preset,omitempty"`
	CustomAmount string       `json:"custom_amount,omitempty"`
	Amount       int64        `json:"amount"`
	Details      DonorDetails `json:"details"`
	IntentID     string       `json:"intent_id,omitempty"`
	RedirectURL  string       `json:"redirect_url,omitempty"`
	DonationID   string       `json:"donation_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// NewIntake creates a wizard in AmountSelection with defaultAmount preselected.
func NewIntake(presets []int64, defaultAmount int64) *Intake {
	now := time.Now().UTC()
	in := &Intake{
		id:        uuid.NewString(),
		presets:   slices.Clone(presets),
		state:     IntakeStateAmountSelection,
		fallback:  defaultAmount,
		createdAt: now,
		touchedAt: now,
	}
	if slices.Contains(presets, defaultAmount) {
		in.preset = defaultAmount
	}
	return in
}

// ID returns the intake identifier.
func (in *Intake) ID() string { return in.id }

// TouchedAt returns the time of the last state change or read through the service.
func (in *Intake) TouchedAt() time.Time {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.touchedAt
}

// Touch marks the intake as recently used.
func (in *Intake) Touch() {
	in.mu.Lock()
	in.touchedAt = time.Now().UTC()
	in.mu.Unlock()
}

// SelectPreset picks one of the preset amounts and clears any custom entry.
func (in *Intake) SelectPreset(amount int64) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if err := in.require(IntakeStateAmountSelection); err != nil {
		return err
	}
	if !slices.Contains(in.presets, amount) {
		ve := util.NewValidationError()
		ve.Add("preset", fmt.Sprintf("%d is not one of the preset amounts", amount))
		return ve
	}
	in.preset = amount
	in.custom = ""
	in.touchedAt = time.Now().UTC()
	return nil
}

// EnterCustom records the custom amount text. A positive integer wins over the
// selected preset; anything else leaves the preset in effect.
func (in *Intake) EnterCustom(raw string) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if err := in.require(IntakeStateAmountSelection); err != nil {
		return err
	}
	in.custom = strings.TrimSpace(raw)
	in.touchedAt = time.Now().UTC()
	return nil
}

// Continue moves from AmountSelection to DetailEntry with the effective amount.
func (in *Intake) Continue() error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if err := in.require(IntakeStateAmountSelection); err != nil {
		return err
	}
	if in.effectiveAmount() <= 0 {
		ve := util.NewValidationError()
		ve.Add("amount", "Please enter a valid amount")
		return ve
	}
	in.state = IntakeStateDetailEntry
	in.touchedAt = time.Now().UTC()
	return nil
}

// Back returns from DetailEntry to AmountSelection, keeping entered details.
func (in *Intake) Back() error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if err := in.require(IntakeStateDetailEntry); err != nil {
		return err
	}
	if in.submitting {
		return errSubmitting
	}
	in.state = IntakeStateAmountSelection
	in.touchedAt = time.Now().UTC()
	return nil
}

// StageDetails stores donor details while in DetailEntry and claims the
// submission: until AwaitPayment or ReleaseDetails, further submits and Back
// fail with ErrInvalidState. Validation is the caller's job; the details are
// kept even when they later fail validation so the form can be redisplayed.
func (in *Intake) StageDetails(details DonorDetails) (int64, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if err := in.require(IntakeStateDetailEntry); err != nil {
		return 0, err
	}
	if in.submitting {
		return 0, errSubmitting
	}
	in.submitting = true
	in.details = details
	in.touchedAt = time.Now().UTC()
	return in.effectiveAmount(), nil
}

// AwaitPayment records the created intent and redirect link, leaving DetailEntry.
func (in *Intake) AwaitPayment(intentID, redirectURL string) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if err := in.require(IntakeStateDetailEntry); err != nil {
		return err
	}
	in.submitting = false
	in.intentID = intentID
	in.redirect = redirectURL
	in.state = IntakeStateAwaitingPayment
	in.touchedAt = time.Now().UTC()
	return nil
}

// ReleaseDetails drops the submission claim after a failed submit, leaving the
// wizard in DetailEntry.
func (in *Intake) ReleaseDetails() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.submitting = false
}

// MarkConfirmed moves to the terminal Confirmed state once the payment was verified.
func (in *Intake) MarkConfirmed(donationID string) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.state == IntakeStateConfirmed {
		return nil
	}
	if err := in.require(IntakeStateAwaitingPayment); err != nil {
		return err
	}
	in.donationID = donationID
	in.state = IntakeStateConfirmed
	in.touchedAt = time.Now().UTC()
	return nil
}

// Snapshot returns a copy of the current wizard state.
func (in *Intake) Snapshot() IntakeSnapshot {
	in.mu.Lock()
	defer in.mu.Unlock()
	return IntakeSnapshot{
		ID:           in.id,
		State:        in.state,
		Presets:      slices.Clone(in.presets),
		Preset:       in.preset,
		CustomAmount: in.custom,
		Amount:       in.effectiveAmount(),
		Details:      in.details,
		IntentID:     in.intentID,
		RedirectURL:  in.redirect,
		DonationID:   in.donationID,
		CreatedAt:    in.createdAt,
	}
}

// effectiveAmount: a valid custom entry, else the selected preset, else the default.
func (in *Intake) effectiveAmount() int64 {
	if v, ok := ParseCustomAmount(in.custom); ok {
		return v
	}
	if in.preset > 0 {
		return in.preset
	}
	return in.fallback
}

func (in *Intake) require(want IntakeState) error {
	if in.state != want {
		return fmt.Errorf("%w: intake is %s, expected %s", util.ErrInvalidState, in.state, want)
	}
	return nil
}

// ParseCustomAmount accepts a positive whole-rupee integer.
func ParseCustomAmount(raw string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
