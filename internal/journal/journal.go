package journal

import (
	"context"
	"time"

	"github.com/appetiteclub/posconsole/internal/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultRecent is how many entries the console lists.
const DefaultRecent = 10

// Entry records one submitted settlement and how the backend answered.
type Entry struct {
	ID         uuid.UUID
	TableID    string
	OrderID    string
	TotalDue   decimal.Decimal
	AmountPaid decimal.Decimal
	Change     decimal.Decimal
	Method     string
	Outcome    billing.Outcome
	Error      string
	Admin      string
	RecordedAt time.Time
}

// NewEntry builds the journal entry for a settlement submitted on behalf of
// admin. A non-nil submitErr marks the entry failed.
func NewEntry(tableID, orderID string, s billing.Settlement, admin string, submitErr error) Entry {
	e := Entry{
		ID:         uuid.New(),
		TableID:    tableID,
		OrderID:    orderID,
		TotalDue:   s.TotalDue,
		AmountPaid: s.AmountPaid,
		Change:     s.Change,
		Method:     s.Method,
		Outcome:    billing.OutcomeSuccess,
		Admin:      admin,
		RecordedAt: time.Now().UTC(),
	}

	if submitErr != nil {
		e.Outcome = billing.OutcomeFailed
		e.Error = submitErr.Error()
	}

	return e
}

// Succeeded reports whether the backend accepted the payment.
func (e Entry) Succeeded() bool {
	return e.Outcome == billing.OutcomeSuccess
}

// Journal stores settlement entries. Recent returns the newest entries first.
type Journal interface {
	Record(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}
