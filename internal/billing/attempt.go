package billing

import (
	"errors"
	"time"
)

// State is the phase of a payment attempt.
type State int

const (
	Entering State = iota
	Validating
	Accepted
	Rejected
)

func (s State) String() string {
	switch s {
	case Entering:
		return "entering"
	case Validating:
		return "validating"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

var ErrAttemptClosed = errors.New("payment attempt already settled")

// Attempt drives one payment of a table from keypad entry to settlement.
type Attempt struct {
	table      TableAggregate
	entry      *AmountEntry
	state      State
	settlement *Settlement
	now        func() time.Time
}

// NewAttempt starts an attempt for table, restoring any text already typed.
func NewAttempt(table TableAggregate, text string) *Attempt {
	return &Attempt{
		table: table,
		entry: NewAmountEntry(text),
		state: Entering,
		now:   time.Now,
	}
}

func (a *Attempt) State() State {
	return a.state
}

func (a *Attempt) Table() TableAggregate {
	return a.table
}

func (a *Attempt) Entry() *AmountEntry {
	return a.entry
}

// Settlement returns the accepted settlement, nil until the attempt is accepted.
func (a *Attempt) Settlement() *Settlement {
	return a.settlement
}

// Preview returns the live change for the current text.
func (a *Attempt) Preview() Preview {
	return ChangePreview(a.table.TotalAmount, a.entry.Text())
}

// Key applies a keypad key. A rejected attempt goes back to Entering.
func (a *Attempt) Key(key string) error {
	if a.state == Accepted {
		return ErrAttemptClosed
	}
	a.state = Entering
	a.entry.Apply(key)
	return nil
}

// Submit validates the typed amount. On success the attempt is accepted and
// the backend payload is returned; on failure the text is kept for correction.
func (a *Attempt) Submit() (SettlementRequest, error) {
	if a.state == Accepted {
		return SettlementRequest{}, ErrAttemptClosed
	}

	if a.table.OrderCount() == 0 {
		a.reject(ErrNothingToSettle)
		return SettlementRequest{}, ErrNothingToSettle
	}

	a.state = Validating
	settlement, err := settleAt(a.table.TotalAmount, a.entry.Text(), a.now())
	if err != nil {
		a.reject(err)
		return SettlementRequest{}, err
	}

	a.state = Accepted
	a.entry.SetErr(nil)
	a.settlement = &settlement

	return settlement.Request(a.table.TableID, a.table.RepresentativeOrderID()), nil
}

func (a *Attempt) reject(err error) {
	a.state = Rejected
	a.entry.SetErr(err)
}
