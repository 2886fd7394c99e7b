package console

import (
	"net/http"
	"strconv"

	"github.com/appetiteclub/posconsole/internal/catalog"
	"github.com/appetiteclub/posconsole/internal/reports"
	"github.com/shopspring/decimal"
)

type barView struct {
	Label  string
	Amount string
	Width  string
}

type shareView struct {
	Name     string
	Quantity string
	Amount   string
	Percent  string
}

type detailView struct {
	OrderID string
	Items   string
	Amount  string
	Date    string
}

type reportView struct {
	Title       string
	Range       string
	Period      string
	Sales       string
	Orders      string
	Daily       []barView
	Monthly     []barView
	Categories  []shareView
	TopDetails  []detailView
	MoreDetails []detailView
	HasMore     bool
}

// Reports renders the sales report for the selected range.
func (h *Handler) Reports(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.Reports")
	defer finish()
	log := h.log(r)
	ctx := r.Context()

	q := r.URL.Query()
	now := h.now()

	data := map[string]interface{}{
		"Title":     "Reports",
		"Template":  "reports",
		"Range":     q.Get("range"),
		"Year":      q.Get("year"),
		"StartDate": q.Get("startDate"),
		"EndDate":   q.Get("endDate"),
	}
	if data["Year"] == "" {
		data["Year"] = strconv.Itoa(now.Year())
	}

	req, err := reports.ParseRequest(q, now)
	if err != nil {
		data["Error"] = titleCase(err.Error())
		h.renderPage(w, r, http.StatusUnprocessableEntity, "reports.html", data)
		return
	}
	data["Range"] = string(req.Type)

	bs := backendFromContext(ctx)

	report, err := bs.Report(ctx, req)
	if h.handleBackendError(w, r, err) {
		return
	}
	if err != nil {
		log.Error("cannot load report", "type", req.Type, "error", err)
		data["Error"] = userMessage(err, "Failed to load report.")
		h.renderPage(w, r, http.StatusOK, "reports.html", data)
		return
	}

	names := map[string]string{}
	categories, err := bs.ListCategories(ctx)
	if h.handleBackendError(w, r, err) {
		return
	}
	if err != nil {
		log.Error("cannot list categories for report", "error", err)
	} else {
		names = catalog.CategoryNames(categories)
	}

	data["Report"] = newReportView(reports.BuildView(report, names))
	h.renderPage(w, r, http.StatusOK, "reports.html", data)
}

func newReportView(v reports.View) reportView {
	view := reportView{
		Title:      v.Title,
		Range:      string(v.Type),
		Period:     formatDate(v.Start) + " - " + formatDate(v.End),
		Sales:      formatMoney(v.Sales),
		Orders:     formatCount(v.Orders),
		Daily:      bars(v.Daily),
		Monthly:    bars(v.Monthly),
		Categories: make([]shareView, 0, len(v.Categories)),
		HasMore:    v.HasMore(),
	}

	for _, c := range v.Categories {
		view.Categories = append(view.Categories, shareView{
			Name:     c.Name,
			Quantity: formatCount(c.Quantity),
			Amount:   formatMoney(c.Amount),
			Percent:  c.Percent.StringFixed(1) + "%",
		})
	}

	view.TopDetails = details(v.TopDetails)
	view.MoreDetails = details(v.MoreDetails)
	return view
}

// bars scales a series against its largest value for the CSS bar chart.
func bars(points []reports.Point) []barView {
	peak := decimal.Zero
	for _, p := range points {
		if p.Amount.GreaterThan(peak) {
			peak = p.Amount
		}
	}

	out := make([]barView, 0, len(points))
	for _, p := range points {
		width := decimal.Zero
		if peak.IsPositive() && p.Amount.IsPositive() {
			width = p.Amount.Mul(decimal.NewFromInt(100)).Div(peak).Round(1)
		}
		out = append(out, barView{
			Label:  p.Label,
			Amount: formatMoney(p.Amount),
			Width:  width.String() + "%",
		})
	}
	return out
}

func details(ds []reports.OrderDetail) []detailView {
	out := make([]detailView, 0, len(ds))
	for _, d := range ds {
		id := d.OrderID
		if id == "" {
			id = d.ID
		}
		out = append(out, detailView{
			OrderID: id,
			Items:   pluralize(d.Items, "item", "items"),
			Amount:  formatMoney(d.Amount),
			Date:    formatDate(d.Date.Time),
		})
	}
	return out
}
