package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/appetiteclub/posconsole/internal/billing"
)

// ListUnpaidOrders fetches the orders still awaiting payment.
func (c *Client) ListUnpaidOrders(ctx context.Context) ([]billing.OrderRecord, error) {
	req := request{
		method: http.MethodGet,
		path:   "/orders",
		query:  url.Values{"unpaid": {"true"}},
	}

	var orders []billing.OrderRecord
	if err := c.do(ctx, req, &orders); err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []billing.OrderRecord{}
	}
	return orders, nil
}

// SubmitPayment records a settlement with the backend. It is sent once and
// never retried.
func (s *Session) SubmitPayment(ctx context.Context, payment billing.SettlementRequest) error {
	req, err := jsonRequest(http.MethodPost, "/payments", payment)
	if err != nil {
		return err
	}
	return s.do(ctx, req, nil)
}
