package models

import (
	"time"

	"github.com/google/uuid"
)

// Ledger entry types, one per obligation kind.
const (
	LedgerTransaction  = "transaction"
	LedgerSIPExecution = "sip_execution"
	LedgerEMIReminder  = "emi_reminder"
)

// LedgerEntry is one materialized occurrence of an obligation template. The
// scheduler writes exactly one per template per period; the template itself
// is never deleted by execution, only advanced or deactivated.
type LedgerEntry struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TemplateID uuid.UUID `gorm:"type:uuid;not null;index" json:"template_id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	EntryType  string    `gorm:"size:20;not null" json:"entry_type"`
	Amount     float64   `gorm:"not null" json:"amount"`
	Currency   string    `gorm:"size:3;not null;default:'USD'" json:"currency"`
	// OccurrenceDate is the period this entry settles, not the wall-clock
	// time it was written. After an outage the two can differ by weeks.
	OccurrenceDate time.Time          `gorm:"not null;index" json:"occurrence_date"`
	Description    string             `gorm:"size:255" json:"description"`
	CreatedAt      time.Time          `json:"created_at"`
	Template       ObligationTemplate `gorm:"foreignKey:TemplateID" json:"-"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
