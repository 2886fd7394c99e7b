package console

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/appetiteclub/posconsole/internal/billing"
	"github.com/appetiteclub/posconsole/internal/journal"
	"github.com/go-chi/chi/v5"
)

type tableView struct {
	ID       string
	Orders   string
	Total    string
	Selected bool
	URL      string
}

type lineView struct {
	Name      string
	Quantity  int
	UnitPrice string
	Subtotal  string
	ImageURL  string
}

type orderView struct {
	ID        string
	ShortID   string
	CreatedAt string
	Total     string
	Items     []lineView
}

type selectedTableView struct {
	ID         string
	Orders     []orderView
	Total      string
	PaymentURL string
}

type settlementView struct {
	TableID string
	OrderID string
	Total   string
	Paid    string
	Change  string
	Outcome string
	Success bool
	Admin   string
	When    string
	Error   string
}

// Orders renders the unpaid tables overview.
func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.Orders")
	defer finish()

	h.renderOrders(w, r, "")
}

// TableOrders renders the overview with one table selected. A table that no
// longer has unpaid orders is deselected.
func (h *Handler) TableOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.TableOrders")
	defer finish()

	h.renderOrders(w, r, chi.URLParam(r, "tableID"))
}

func (h *Handler) renderOrders(w http.ResponseWriter, r *http.Request, selected string) {
	ctx := r.Context()

	data := map[string]interface{}{
		"Title":    "Orders",
		"Template": "orders",
	}

	if paid := r.URL.Query().Get("paid"); paid != "" {
		data["Success"] = fmt.Sprintf("Payment for table %s recorded.", paid)
	}
	data["Recent"] = h.recentSettlements(r)

	orders, err := h.client.ListUnpaidOrders(ctx)
	if err != nil {
		h.log(r).Error("cannot list unpaid orders", "error", err)
		data["Error"] = userMessage(err, "Failed to load orders.")
		h.renderPage(w, r, http.StatusOK, "orders.html", data)
		return
	}

	tables := billing.SortTables(billing.Aggregate(orders))
	data["Tables"] = tableViews(tables, selected)

	if selected != "" {
		if table, ok := billing.FindTable(tables, selected); ok {
			data["Selected"] = h.selectedTable(table)
		} else {
			data["Notice"] = fmt.Sprintf("Table %s has no unpaid orders.", selected)
		}
	}

	h.renderPage(w, r, http.StatusOK, "orders.html", data)
}

func tableViews(tables []billing.TableAggregate, selected string) []tableView {
	views := make([]tableView, 0, len(tables))
	for _, t := range tables {
		views = append(views, tableView{
			ID:       t.TableID,
			Orders:   pluralize(t.OrderCount(), "order", "orders"),
			Total:    formatMoney(t.TotalAmount),
			Selected: t.TableID == selected,
			URL:      tablePath(t.TableID),
		})
	}
	return views
}

func (h *Handler) selectedTable(t billing.TableAggregate) selectedTableView {
	view := selectedTableView{
		ID:         t.TableID,
		Total:      formatMoney(t.TotalAmount),
		PaymentURL: tablePath(t.TableID) + "/payment",
		Orders:     make([]orderView, 0, len(t.Orders)),
	}

	for _, o := range t.Orders {
		ov := orderView{
			ID:        o.ID,
			ShortID:   o.ShortID(),
			CreatedAt: formatTime(o.CreatedAt),
			Total:     formatMoney(o.TotalAmount),
			Items:     make([]lineView, 0, len(o.Items)),
		}
		for _, li := range o.Items {
			ov.Items = append(ov.Items, lineView{
				Name:      li.MenuItem.Name,
				Quantity:  li.Quantity,
				UnitPrice: formatMoney(li.UnitPrice()),
				Subtotal:  formatMoney(li.Subtotal()),
				ImageURL:  li.MenuItem.ImageURL,
			})
		}
		view.Orders = append(view.Orders, ov)
	}

	return view
}

func tablePath(tableID string) string {
	return "/orders/tables/" + url.PathEscape(tableID)
}

func (h *Handler) recentSettlements(r *http.Request) []settlementView {
	entries, err := h.journal.Recent(r.Context(), journal.DefaultRecent)
	if err != nil {
		h.log(r).Error("cannot list recent settlements", "error", err)
		return nil
	}

	views := make([]settlementView, 0, len(entries))
	for _, e := range entries {
		views = append(views, settlementView{
			TableID: e.TableID,
			OrderID: e.OrderID,
			Total:   formatMoney(e.TotalDue),
			Paid:    formatMoney(e.AmountPaid),
			Change:  formatMoney(e.Change),
			Outcome: titleCase(string(e.Outcome)),
			Success: e.Succeeded(),
			Admin:   e.Admin,
			When:    formatTime(e.RecordedAt),
			Error:   e.Error,
		})
	}
	return views
}

// loadTable fetches the unpaid orders and returns the aggregate of tableID.
func (h *Handler) loadTable(ctx context.Context, tableID string) (billing.TableAggregate, bool, error) {
	orders, err := h.client.ListUnpaidOrders(ctx)
	if err != nil {
		return billing.TableAggregate{}, false, err
	}

	table, ok := billing.FindTable(billing.Aggregate(orders), tableID)
	return table, ok, nil
}
