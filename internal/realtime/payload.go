// internal/realtime/payload.go
package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mandir-fund/internal/domain"
	"mandir-fund/internal/util"
)

// notification mirrors the JSON built by the notify_donations_change trigger.
type notification struct {
	Table     string          `json:"table"`
	Type      string          `json:"type"`
	Record    json.RawMessage `json:"record"`
	OldRecord json.RawMessage `json:"old_record"`
	Truncated bool            `json:"truncated"`
}

// donationRow is the row_to_json shape of a donations row.
type donationRow struct {
	ID           *string    `json:"id"`
	DonorName    *string    `json:"donor_name"`
	Amount       *int64     `json:"amount"`
	DonationType string     `json:"donation_type"`
	Message      *string    `json:"message"`
	IsAnonymous  *bool      `json:"is_anonymous"`
	CreatedAt    *time.Time `json:"created_at"`
}

// DecodeChangeEvent validates a raw NOTIFY payload against the donations
// schema. Anything that does not fit is rejected with util.ErrInvalidPayload.
func DecodeChangeEvent(payload string, receivedAt time.Time) (domain.ChangeEvent, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("%w: %v", util.ErrInvalidPayload, err)
	}
	if n.Table != domain.DonationsTable {
		return domain.ChangeEvent{}, fmt.Errorf("%w: unexpected table %q", util.ErrInvalidPayload, n.Table)
	}

	ev := domain.ChangeEvent{
		Table:      n.Table,
		Type:       domain.ChangeType(strings.ToUpper(n.Type)),
		Truncated:  n.Truncated,
		ReceivedAt: receivedAt,
	}
	if !ev.Type.Valid() {
		return domain.ChangeEvent{}, fmt.Errorf("%w: unexpected change type %q", util.ErrInvalidPayload, n.Type)
	}
	if ev.Truncated {
		return ev, nil
	}

	var err error
	if ev.Type != domain.ChangeTypeDelete {
		if ev.Record, err = decodeRow(n.Record, "record"); err != nil {
			return domain.ChangeEvent{}, err
		}
	}
	if ev.Type != domain.ChangeTypeInsert {
		if ev.OldRecord, err = decodeRow(n.OldRecord, "old_record"); err != nil {
			return domain.ChangeEvent{}, err
		}
	}
	return ev, nil
}

func decodeRow(raw json.RawMessage, field string) (*domain.Donation, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: missing %s", util.ErrInvalidPayload, field)
	}
	var row donationRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", util.ErrInvalidPayload, field, err)
	}

	switch {
	case row.ID == nil || *row.ID == "":
		return nil, fmt.Errorf("%w: %s.id is required", util.ErrInvalidPayload, field)
	case row.DonorName == nil:
		return nil, fmt.Errorf("%w: %s.donor_name is required", util.ErrInvalidPayload, field)
	case row.Amount == nil || *row.Amount <= 0:
		return nil, fmt.Errorf("%w: %s.amount must be positive", util.ErrInvalidPayload, field)
	case row.IsAnonymous == nil:
		return nil, fmt.Errorf("%w: %s.is_anonymous is required", util.ErrInvalidPayload, field)
	case row.CreatedAt == nil:
		return nil, fmt.Errorf("%w: %s.created_at is required", util.ErrInvalidPayload, field)
	}

	d := &domain.Donation{
		ID:           *row.ID,
		DonorName:    *row.DonorName,
		Amount:       *row.Amount,
		DonationType: domain.DonationType(row.DonationType),
		Message:      row.Message,
		IsAnonymous:  *row.IsAnonymous,
		CreatedAt:    row.CreatedAt.UTC(),
	}
	if d.DonationType == "" {
		d.DonationType = domain.DonationTypeGeneral
	}
	if d.IsAnonymous {
		d.DonorName = domain.AnonymousDonorName
	}
	return d, nil
}
