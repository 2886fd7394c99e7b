package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the settlement status reported by the backend for an order.
type Status string

const (
	StatusUnpaid Status = "unpaid"
	StatusPaid   Status = "paid"
)

// MenuItemRef is the menu item snapshot embedded in an order line.
type MenuItemRef struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl"`
}

// LineItem is a single line of an order.
type LineItem struct {
	ID       string      `json:"id"`
	MenuItem MenuItemRef `json:"menuItem"`
	Quantity int         `json:"quantity"`
}

// UnitPrice returns the price of one unit of the line's menu item.
func (li LineItem) UnitPrice() decimal.Decimal {
	return li.MenuItem.Price
}

// Subtotal returns quantity x unit price.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.MenuItem.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// OrderRecord mirrors an order as returned by GET /orders.
type OrderRecord struct {
	ID          string          `json:"id"`
	TableID     string          `json:"tableId"`
	Items       []LineItem      `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// IsPaid reports whether the order has been settled.
func (o OrderRecord) IsPaid() bool {
	return o.Status == StatusPaid
}

// ItemsTotal sums the line subtotals. The backend total stays authoritative;
// this is only used to cross-check what is displayed.
func (o OrderRecord) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ShortID returns the last six characters of the order id.
func (o OrderRecord) ShortID() string {
	if len(o.ID) <= 6 {
		return o.ID
	}
	return o.ID[len(o.ID)-6:]
}
