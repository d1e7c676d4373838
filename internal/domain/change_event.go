// internal/domain/change_event.go
package domain

import "time"

// DonationsTable is the only table whose changes are published.
const DonationsTable = "donations"

// ChangeType defines the kind of row change a notification describes.
type ChangeType string

const (
	ChangeTypeInsert ChangeType = "INSERT"
	ChangeTypeUpdate ChangeType = "UPDATE"
	ChangeTypeDelete ChangeType = "DELETE"
)

// AllChangeTypes lists every change type, for subscribers interested in "*".
var AllChangeTypes = []ChangeType{ChangeTypeInsert, ChangeTypeUpdate, ChangeTypeDelete}

// Valid reports whether t is a known change type.
func (t ChangeType) Valid() bool {
	switch t {
	case ChangeTypeInsert, ChangeTypeUpdate, ChangeTypeDelete:
		return true
	}
	return false
}

// ChangeEvent is a validated row-change notification for the donations table.
//
// Record is set for INSERT and UPDATE, OldRecord for UPDATE and DELETE. When the
// database had to drop the row data (Truncated), both are nil and consumers must
// reload from storage.
type ChangeEvent struct {
	Table      string
	Type       ChangeType
	Record     *Donation
	OldRecord  *Donation
	Truncated  bool
	ReceivedAt time.Time
}
