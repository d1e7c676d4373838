// internal/repository/postgres/donation_pg.go
package postgres

import (
	"context"
	"fmt"
	"strings"

	"mandir-fund/internal/domain"
	"mandir-fund/internal/repository"
)

const donationColumns = `id, donor_name, phone, amount, donation_type, message, is_anonymous, created_at`

// DonationRepository implements repository.DonationRepository for PostgreSQL.
type DonationRepository struct{}

// NewDonationRepository creates a new DonationRepository.
func NewDonationRepository() repository.DonationRepository {
	return &DonationRepository{}
}

// CreateDonation inserts a new donation using the provided DBExecutor.
// id and created_at are assigned by the database.
func (r *DonationRepository) CreateDonation(ctx context.Context, q repository.DBExecutor, donation *domain.Donation) error {
	query := `INSERT INTO donations (donor_name, phone, amount, donation_type, message, is_anonymous)
              VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`

	err := q.QueryRowxContext(ctx, query,
		donation.DonorName,
		donation.Phone,
		donation.Amount,
		donation.DonationType,
		donation.Message,
		donation.IsAnonymous,
	).Scan(&donation.ID, &donation.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create donation: %w", err)
	}
	return nil
}

// ListDonations retrieves donations ordered by created_at descending.
func (r *DonationRepository) ListDonations(ctx context.Context, q repository.DBExecutor, filter repository.DonationFilter) ([]domain.Donation, error) {
	donations := []domain.Donation{}

	var (
		sb   strings.Builder
		args []interface{}
	)
	sb.WriteString(`SELECT ` + donationColumns + ` FROM donations`)
	if filter.ExcludeAnonymous {
		sb.WriteString(` WHERE is_anonymous = FALSE`)
	}
	sb.WriteString(` ORDER BY created_at DESC, id DESC`)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sb.WriteString(fmt.Sprintf(` LIMIT $%d`, len(args)))
	}

	if err := q.SelectContext(ctx, &donations, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	return donations, nil
}
