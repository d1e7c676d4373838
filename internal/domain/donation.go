// internal/domain/donation.go
package domain

import (
	"strings"
	"time"
)

// AnonymousDonorName replaces the donor name of anonymous donations at write time.
const AnonymousDonorName = "Anonymous"

// DonationType classifies a donation. Only general donations are collected today.
type DonationType string

const (
	DonationTypeGeneral DonationType = "general"
)

// Donation represents a stored donation record. Records are immutable once created.
type Donation struct {
	ID           string       `db:"id" json:"id"`                     // UUID assigned by the database
	DonorName    string       `db:"donor_name" json:"donor_name"`     // "Anonymous" when IsAnonymous
	Phone        *string      `db:"phone" json:"-"`                   // Never exposed publicly
	Amount       int64        `db:"amount" json:"amount"`             // Whole rupees, always > 0
	DonationType DonationType `db:"donation_type" json:"donation_type"`
	Message      *string      `db:"message" json:"message"`
	IsAnonymous  bool         `db:"is_anonymous" json:"is_anonymous"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"` // Server-assigned, sole ordering key
}

// DonorDetails is the donor identity collected by the intake flow or the admin path.
type DonorDetails struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Message     string `json:"message"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// Normalize trims every free-text field in place.
func (d *DonorDetails) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Email = strings.TrimSpace(d.Email)
	d.Message = strings.TrimSpace(d.Message)
}

// StoredName is the name written to storage: the anonymization is irreversible.
func (d DonorDetails) StoredName() string {
	if d.IsAnonymous {
		return AnonymousDonorName
	}
	return strings.TrimSpace(d.Name)
}

// NewDonation creates a new Donation ready for insertion. ID and CreatedAt are
// filled in by the database.
func NewDonation(details DonorDetails, amount int64) *Donation {
	details.Normalize()
	return &Donation{
		DonorName:    details.StoredName(),
		Phone:        nullableString(details.Phone),
		Amount:       amount,
		DonationType: DonationTypeGeneral,
		Message:      nullableString(details.Message),
		IsAnonymous:  details.IsAnonymous,
	}
}

// DonorKey is the grouping key used by leaderboards. Anonymous rows always
// collapse into "Anonymous" regardless of the stored name.
func (d Donation) DonorKey() string {
	if d.IsAnonymous {
		return AnonymousDonorName
	}
	return d.DonorName
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
