package event

import (
	"encoding/json"
	"time"
)

const (
	PaymentsStream      = "PAYMENTS"
	PaymentsTopic       = "payments.settled"
	EventPaymentSettled = "payment.settled"
)

// PaymentSettledEvent announces a cash payment accepted by the backend.
// Amounts are decimal strings.
type PaymentSettledEvent struct {
	EventType    string    `json:"event_type"`
	OccurredAt   time.Time `json:"occurred_at"`
	SettlementID string    `json:"settlement_id"`
	TableID      string    `json:"table_id"`
	OrderID      string    `json:"order_id"`
	TotalDue     string    `json:"total_due"`
	AmountPaid   string    `json:"amount_paid"`
	Change       string    `json:"change"`
	Method       string    `json:"payment_method"`
	Admin        string    `json:"admin,omitempty"`
}

func (e PaymentSettledEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}
