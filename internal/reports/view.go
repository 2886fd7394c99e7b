package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// UnknownCategory labels sales whose category no longer exists.
	UnknownCategory = "Unknown"
	// VisibleDetails is how many order details are shown before "show more".
	VisibleDetails = 3
)

var hundred = decimal.NewFromInt(100)

// Point is one labelled value of a chart series.
type Point struct {
	Label  string
	Amount decimal.Decimal
}

// CategoryShare is one slice of the category breakdown.
type CategoryShare struct {
	ID       string
	Name     string
	Quantity int
	Amount   decimal.Decimal
	Percent  decimal.Decimal
}

// View is a report prepared for rendering.
type View struct {
	Type        Type
	Title       string
	Start       time.Time
	End         time.Time
	Sales       decimal.Decimal
	Orders      int
	Daily       []Point
	Monthly     []Point
	Categories  []CategoryShare
	TopDetails  []OrderDetail
	MoreDetails []OrderDetail
}

// HasMore reports whether details beyond the visible ones exist.
func (v View) HasMore() bool {
	return len(v.MoreDetails) > 0
}

// BuildView derives chart series and tables from a report. categoryNames maps
// category ids to names.
func BuildView(r SalesReport, categoryNames map[string]string) View {
	v := View{
		Type:   r.Type,
		Title:  r.Type.Title(),
		Start:  r.DateRange.Start.Time,
		End:    r.DateRange.End.Time,
		Sales:  headlineSales(r),
		Orders: r.TotalOrders,
	}

	v.Daily = dailySeries(r.DailySales)

	v.Monthly = make([]Point, 0, len(r.MonthlySalesData))
	for _, m := range r.MonthlySalesData {
		v.Monthly = append(v.Monthly, Point{Label: m.Month, Amount: m.Amount})
	}

	v.Categories = categoryShares(r.SalesByCategory, categoryNames)
	v.TopDetails, v.MoreDetails = splitDetails(r.Details, VisibleDetails)

	return v
}

// headlineSales is the current month bar for monthly reports and the report
// total otherwise.
func headlineSales(r SalesReport) decimal.Decimal {
	if r.Type == TypeMonthly {
		if len(r.MonthlySalesData) > 0 {
			return r.MonthlySalesData[0].Amount
		}
		return decimal.Zero
	}
	return r.TotalSales
}

func dailySeries(daily map[string]decimal.Decimal) []Point {
	type dated struct {
		key  string
		when time.Time
	}

	keys := make([]dated, 0, len(daily))
	for k := range daily {
		when, _ := parseTimestamp(k)
		keys = append(keys, dated{key: k, when: when})
	}

	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].when.Equal(keys[j].when) {
			return keys[i].when.Before(keys[j].when)
		}
		return keys[i].key < keys[j].key
	})

	points := make([]Point, 0, len(keys))
	for _, k := range keys {
		label := k.key
		if !k.when.IsZero() {
			label = k.when.Format("Jan 2")
		}
		points = append(points, Point{Label: label, Amount: daily[k.key]})
	}
	return points
}

func categoryShares(sales map[string]CategorySales, names map[string]string) []CategoryShare {
	total := decimal.Zero
	for _, s := range sales {
		total = total.Add(s.Amount)
	}

	shares := make([]CategoryShare, 0, len(sales))
	for id, s := range sales {
		name, ok := names[id]
		if !ok {
			name = UnknownCategory
		}

		percent := decimal.Zero
		if total.IsPositive() {
			percent = s.Amount.Mul(hundred).Div(total).Round(1)
		}

		shares = append(shares, CategoryShare{
			ID:       id,
			Name:     name,
			Quantity: s.Quantity,
			Amount:   s.Amount,
			Percent:  percent,
		})
	}

	sort.Slice(shares, func(i, j int) bool {
		if c := shares[i].Amount.Cmp(shares[j].Amount); c != 0 {
			return c > 0
		}
		return shares[i].ID < shares[j].ID
	})

	return shares
}

func splitDetails(details []OrderDetail, visible int) ([]OrderDetail, []OrderDetail) {
	if len(details) <= visible {
		return details, nil
	}
	return details[:visible], details[visible:]
}
