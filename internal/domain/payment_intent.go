// internal/domain/payment_intent.go
package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentIntentStatus defines the status of a payment intent.
type PaymentIntentStatus string

const (
	PaymentIntentStatusPending   PaymentIntentStatus = "PENDING"
	PaymentIntentStatusConfirmed PaymentIntentStatus = "CONFIRMED"
	PaymentIntentStatusCancelled PaymentIntentStatus = "CANCELLED"
)

// ParsePaymentIntentStatus validates a status string, case-insensitively.
func ParsePaymentIntentStatus(s string) (PaymentIntentStatus, bool) {
	switch st := PaymentIntentStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case PaymentIntentStatusPending, PaymentIntentStatusConfirmed, PaymentIntentStatusCancelled:
		return st, true
	}
	return "", false
}

// PaymentIntent records a donor's intention to pay through UPI. The donation row
// is only written once an operator confirms the payment arrived.
type PaymentIntent struct {
	ID            string              `db:"id" json:"id"`
	Reference     string              `db:"reference" json:"reference"` // Carried in the UPI transaction note
	DonorName     string              `db:"donor_name" json:"donor_name"`
	Phone         *string             `db:"phone" json:"phone,omitempty"`
	Email         *string             `db:"email" json:"email,omitempty"`
	Amount        int64               `db:"amount" json:"amount"`
	Message       *string             `db:"message" json:"message,omitempty"`
	IsAnonymous   bool                `db:"is_anonymous" json:"is_anonymous"`
	Status        PaymentIntentStatus `db:"status" json:"status"`
	BankReference *string             `db:"bank_reference" json:"bank_reference,omitempty"`
	DonationID    *string             `db:"donation_id" json:"donation_id,omitempty"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
}

// NewPaymentIntent creates a pending intent with a fresh id and reference.
func NewPaymentIntent(details DonorDetails, amount int64) *PaymentIntent {
	details.Normalize()
	now := time.Now().UTC()
	return &PaymentIntent{
		ID:          uuid.NewString(),
		Reference:   NewPaymentReference(),
		DonorName:   details.StoredName(),
		Phone:       nullableString(details.Phone),
		Email:       nullableString(details.Email),
		Amount:      amount,
		Message:     nullableString(details.Message),
		IsAnonymous: details.IsAnonymous,
		Status:      PaymentIntentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Details returns the donor details the intent was created with (already anonymized).
func (p *PaymentIntent) Details() DonorDetails {
	d := DonorDetails{Name: p.DonorName, IsAnonymous: p.IsAnonymous}
	if p.Phone != nil {
		d.Phone = *p.Phone
	}
	if p.Email != nil {
		d.Email = *p.Email
	}
	if p.Message != nil {
		d.Message = *p.Message
	}
	return d
}

// referenceAlphabet omits 0/O and 1/I so references survive being read aloud.
const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const referenceLength = 10

// NewPaymentReference returns a short random code, e.g. "HM-7KQ2XW9PRD".
func NewPaymentReference() string {
	buf := make([]byte, referenceLength)
	// Since Go 1.24 rand.Read never returns an error.
	_, _ = rand.Read(buf)
	var sb strings.Builder
	sb.WriteString("HM-")
	for _, b := range buf {
		sb.WriteByte(referenceAlphabet[int(b)%len(referenceAlphabet)])
	}
	return sb.String()
}
