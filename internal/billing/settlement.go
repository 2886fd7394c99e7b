package billing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// MethodCash is the only supported payment method.
const MethodCash = "cash"

// Outcome is the status tag carried by a settlement record.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

var (
	ErrInvalidAmount       = errors.New("please enter the amount paid")
	ErrInsufficientPayment = errors.New("amount paid must be greater than or equal to total amount")
	ErrNegativeTotal       = errors.New("total amount cannot be negative")
	ErrNothingToSettle     = errors.New("table has no unpaid orders")
)

// Settlement is an accepted cash payment.
type Settlement struct {
	TotalDue   decimal.Decimal
	AmountPaid decimal.Decimal
	Change     decimal.Decimal
	Method     string
	CreatedAt  time.Time
	Status     Outcome
}

// SettlementRequest is the body of POST /payments.
type SettlementRequest struct {
	OrderID       string    `json:"orderId"`
	TableID       string    `json:"tableId"`
	TotalAmount   float64   `json:"totalAmount"`
	AmountPaid    float64   `json:"amountPaid"`
	Change        float64   `json:"change"`
	PaymentMethod string    `json:"paymentMethod"`
	CreatedAt     time.Time `json:"createdAt"`
	Status        Outcome   `json:"status"`
}

// Request builds the backend payload for the settlement.
func (s Settlement) Request(tableID, orderID string) SettlementRequest {
	return SettlementRequest{
		OrderID:       orderID,
		TableID:       tableID,
		TotalAmount:   s.TotalDue.InexactFloat64(),
		AmountPaid:    s.AmountPaid.InexactFloat64(),
		Change:        s.Change.InexactFloat64(),
		PaymentMethod: s.Method,
		CreatedAt:     s.CreatedAt,
		Status:        s.Status,
	}
}

// ValidateAndSettle checks the typed amount against the total due. Both are
// compared in whole cents so binary rounding noise in the total cannot reject
// an exact payment.
func ValidateAndSettle(totalDue decimal.Decimal, amountPaidText string) (Settlement, error) {
	return settleAt(totalDue, amountPaidText, time.Now())
}

func settleAt(totalDue decimal.Decimal, amountPaidText string, now time.Time) (Settlement, error) {
	if totalDue.IsNegative() {
		return Settlement{}, ErrNegativeTotal
	}

	paid, err := ParseAmount(amountPaidText)
	if err != nil {
		return Settlement{}, err
	}

	if Cents(paid).LessThan(Cents(totalDue)) {
		return Settlement{}, ErrInsufficientPayment
	}

	return Settlement{
		TotalDue:   totalDue,
		AmountPaid: paid,
		Change:     changeFor(totalDue, paid),
		Method:     MethodCash,
		CreatedAt:  now,
		Status:     OutcomeSuccess,
	}, nil
}

// Preview is the live change display while the amount is being typed.
type Preview struct {
	Ready    bool
	Change   decimal.Decimal
	Negative bool
}

// ChangePreview computes the change for the typed text. Preview.Ready is
// false while nothing parseable has been typed.
func ChangePreview(totalDue decimal.Decimal, amountPaidText string) Preview {
	paid, err := ParseAmount(amountPaidText)
	if err != nil {
		return Preview{}
	}

	change := changeFor(totalDue, paid)
	return Preview{
		Ready:    true,
		Change:   change,
		Negative: change.IsNegative(),
	}
}

func changeFor(totalDue, paid decimal.Decimal) decimal.Decimal {
	return RoundToCents(paid.Sub(totalDue))
}
