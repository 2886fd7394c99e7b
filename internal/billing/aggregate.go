package billing

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// TableAggregate groups the unpaid orders of one table.
type TableAggregate struct {
	TableID     string
	Orders      []OrderRecord
	TotalAmount decimal.Decimal
}

// OrderCount returns the number of unpaid orders at the table.
func (t TableAggregate) OrderCount() int {
	return len(t.Orders)
}

// RepresentativeOrderID is the order id a settlement is recorded against.
func (t TableAggregate) RepresentativeOrderID() string {
	if len(t.Orders) == 0 {
		return ""
	}
	return t.Orders[0].ID
}

// Aggregate groups orders by table, skipping paid ones. Tables keep the order
// in which they first appear in the input and totals are exact sums.
func Aggregate(orders []OrderRecord) []TableAggregate {
	result := make([]TableAggregate, 0)
	index := make(map[string]int)

	for _, order := range orders {
		if order.IsPaid() {
			continue
		}

		i, ok := index[order.TableID]
		if !ok {
			i = len(result)
			index[order.TableID] = i
			result = append(result, TableAggregate{
				TableID:     order.TableID,
				TotalAmount: decimal.Zero,
			})
		}

		result[i].Orders = append(result[i].Orders, order)
		result[i].TotalAmount = result[i].TotalAmount.Add(order.TotalAmount)
	}

	return result
}

// SortTables returns a copy of tables ordered for display. Numeric table ids
// sort by value and come before non-numeric ones.
func SortTables(tables []TableAggregate) []TableAggregate {
	sorted := make([]TableAggregate, len(tables))
	copy(sorted, tables)

	sort.SliceStable(sorted, func(i, j int) bool {
		return lessTableID(sorted[i].TableID, sorted[j].TableID)
	})

	return sorted
}

// FindTable looks up the aggregate of a table.
func FindTable(tables []TableAggregate, tableID string) (TableAggregate, bool) {
	for _, t := range tables {
		if t.TableID == tableID {
			return t, true
		}
	}
	return TableAggregate{}, false
}

func lessTableID(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)

	switch {
	case errA == nil && errB == nil:
		if na != nb {
			return na < nb
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
