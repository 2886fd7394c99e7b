package reports

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Type identifies the period a report covers.
type Type string

const (
	TypeMonthly Type = "monthly"
	TypeYearly  Type = "yearly"
	TypeCustom  Type = "custom"
)

// Title returns the heading used for the report type, e.g. "Monthly Report".
func (t Type) Title() string {
	switch t {
	case TypeMonthly:
		return "Monthly Report"
	case TypeYearly:
		return "Yearly Report"
	case TypeCustom:
		return "Custom Report"
	default:
		return "Report"
	}
}

// Timestamp decodes the loosely formatted dates the backend emits: RFC 3339,
// plain dates and empty strings.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", DateLayout}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		ts.Time = time.Time{}
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}

	parsed, err := parseTimestamp(raw)
	if err != nil {
		return err
	}
	ts.Time = parsed
	return nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(ts.UTC().Format(time.RFC3339))
}

func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp: unrecognized format %q", raw)
}

// DateRange is the period covered by a report.
type DateRange struct {
	Start Timestamp `json:"start"`
	End   Timestamp `json:"end"`
}

// CategorySales aggregates what a category sold in the period.
type CategorySales struct {
	Quantity int             `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

// MonthlySales is one bar of the yearly chart.
type MonthlySales struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// OrderDetail is one settled order listed in a report.
type OrderDetail struct {
	ID      string          `json:"_id"`
	OrderID string          `json:"orderId"`
	Amount  decimal.Decimal `json:"amount"`
	Items   int             `json:"items"`
	Date    Timestamp       `json:"date"`
}

// SalesReport is the report document returned by the backend.
type SalesReport struct {
	ID               string                     `json:"_id"`
	Type             Type                       `json:"type"`
	DateRange        DateRange                  `json:"dateRange"`
	TotalSales       decimal.Decimal            `json:"totalSales"`
	TotalOrders      int                        `json:"totalOrders"`
	DailySales       map[string]decimal.Decimal `json:"dailySales"`
	MonthlySalesData []MonthlySales             `json:"monthlySalesData"`
	SalesByCategory  map[string]CategorySales   `json:"salesByCategory"`
	Details          []OrderDetail              `json:"details"`
	CreatedAt        Timestamp                  `json:"createdAt"`
}
