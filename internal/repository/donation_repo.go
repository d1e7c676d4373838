// internal/repository/donation_repo.go
package repository

import (
	"context"

	"mandir-fund/internal/domain"
)

// DonationFilter narrows a donation query. Results are always ordered by
// created_at descending.
type DonationFilter struct {
	ExcludeAnonymous bool
	Limit            int // 0 means no limit
}

// DonationRepository defines the interface for donation data operations.
// Donations are immutable, so there is no update or delete.
type DonationRepository interface {
	// CreateDonation inserts a donation and fills in its ID and CreatedAt.
	CreateDonation(ctx context.Context, q DBExecutor, donation *domain.Donation) error
	// ListDonations retrieves donations newest first.
	ListDonations(ctx context.Context, q DBExecutor, filter DonationFilter) ([]domain.Donation, error)
}
