package console

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/appetiteclub/posconsole/internal/billing"
	"github.com/appetiteclub/posconsole/internal/journal"
	"github.com/appetiteclub/posconsole/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const paymentFragment = "payment_panel"

type keyView struct {
	Value string
	Label string
}

var keypadRows = [][]keyView{
	{{"1", "1"}, {"2", "2"}, {"3", "3"}},
	{{"4", "4"}, {"5", "5"}, {"6", "6"}},
	{{"7", "7"}, {"8", "8"}, {"9", "9"}},
	{{billing.KeyPoint, "."}, {"0", "0"}, {billing.KeyBackspace, "⌫"}},
}

type paymentView struct {
	TableID   string
	Orders    string
	TotalDue  string
	TotalRaw  string
	Amount    string
	Display   string
	Change    string
	Negative  bool
	Error     string
	State     string
	Keys      [][]keyView
	ClearKey  string
	SubmitURL string
	KeyURL    string
	ClosePath string
}

func newPaymentView(a *billing.Attempt) paymentView {
	table := a.Table()
	entry := a.Entry()

	view := paymentView{
		TableID:   table.TableID,
		Orders:    pluralize(table.OrderCount(), "order", "orders"),
		TotalDue:  formatMoney(table.TotalAmount),
		TotalRaw:  table.TotalAmount.String(),
		Amount:    entry.Text(),
		Display:   entry.Text(),
		Change:    "-",
		State:     a.State().String(),
		Keys:      keypadRows,
		ClearKey:  billing.KeyClear,
		SubmitURL: tablePath(table.TableID) + "/payment",
		KeyURL:    tablePath(table.TableID) + "/payment/key",
		ClosePath: tablePath(table.TableID),
	}

	if view.Display == "" {
		view.Display = "0"
	}

	if p := a.Preview(); p.Ready {
		view.Change = formatMoney(p.Change)
		view.Negative = p.Negative
	}

	if err := entry.Err(); err != nil {
		view.Error = titleCase(err.Error())
	}

	return view
}

// withoutKeypad drops the total so the panel shows only the message, used
// when no payable total is known for the table.
func withoutKeypad(view paymentView) paymentView {
	view.TotalDue = ""
	view.TotalRaw = ""
	return view
}

// ShowPayment opens the cash payment panel for a table.
func (h *Handler) ShowPayment(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.ShowPayment")
	defer finish()

	tableID := chi.URLParam(r, "tableID")

	table, ok, err := h.loadTable(r.Context(), tableID)
	if err != nil {
		h.log(r).Error("cannot load table for payment", "table_id", tableID, "error", err)
		h.renderPayment(w, r, http.StatusBadGateway, paymentView{
			TableID:   tableID,
			Error:     userMessage(err, "Failed to load orders."),
			ClosePath: tablePath(tableID),
		})
		return
	}
	if !ok {
		aqm.RedirectOrHeader(w, r, "/")
		return
	}

	h.renderPayment(w, r, http.StatusOK, newPaymentView(billing.NewAttempt(table, "")))
}

// PaymentKey applies one keypad key to the amount being typed and refreshes
// the change preview. Nothing is sent to the backend.
func (h *Handler) PaymentKey(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.PaymentKey")
	defer finish()

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	total, err := decimal.NewFromString(r.FormValue("total"))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	table := billing.TableAggregate{
		TableID:     chi.URLParam(r, "tableID"),
		TotalAmount: total,
	}

	// A shown error stays until backspace or clear.
	a := billing.NewAttempt(table, r.FormValue("amount"))
	if msg := strings.TrimSpace(r.FormValue("error")); msg != "" {
		a.Entry().SetErr(errors.New(msg))
	}
	if err := a.Key(r.FormValue("key")); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	view := newPaymentView(a)
	view.Orders = r.FormValue("orders")
	h.renderFragment(w, r, http.StatusOK, "payment.html", paymentFragment, view)
}

// SubmitPayment validates the typed amount against a freshly fetched total
// and records the settlement with the backend.
func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.SubmitPayment")
	defer finish()
	log := h.log(r)
	ctx := r.Context()

	tableID := chi.URLParam(r, "tableID")

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	amount := r.FormValue("amount")

	table, ok, err := h.loadTable(ctx, tableID)
	if err != nil {
		log.Error("cannot load table for payment", "table_id", tableID, "error", err)
		a := billing.NewAttempt(billing.TableAggregate{TableID: tableID}, amount)
		a.Entry().SetErr(errors.New(userMessage(err, "Failed to load orders.")))
		h.renderPayment(w, r, http.StatusBadGateway, withoutKeypad(newPaymentView(a)))
		return
	}
	if !ok {
		table = billing.TableAggregate{TableID: tableID}
	}

	a := billing.NewAttempt(table, amount)
	req, err := a.Submit()
	if err != nil {
		log.Debug("payment rejected", "table_id", tableID, "error", err)
		view := newPaymentView(a)
		if !ok {
			view = withoutKeypad(view)
		}
		h.renderPayment(w, r, http.StatusUnprocessableEntity, view)
		return
	}

	bs := backendFromContext(ctx)
	if bs == nil {
		aqm.RedirectOrHeader(w, r, "/signin")
		return
	}

	submitErr := bs.SubmitPayment(ctx, req)
	h.recordSettlement(r, req, *a.Settlement(), submitErr)

	if h.handleBackendError(w, r, submitErr) {
		return
	}

	if submitErr != nil {
		log.Error("payment submission failed", "table_id", tableID, "error", submitErr)
		a.Entry().SetErr(errors.New(userMessage(submitErr, "Payment failed. Please try again.")))
		h.renderPayment(w, r, http.StatusBadGateway, newPaymentView(a))
		return
	}

	aqm.RedirectOrHeader(w, r, "/?paid="+url.QueryEscape(tableID))
}

func (h *Handler) renderPayment(w http.ResponseWriter, r *http.Request, status int, view paymentView) {
	if aqm.IsHTMX(r) {
		h.renderFragment(w, r, status, "payment.html", paymentFragment, view)
		return
	}

	data := map[string]interface{}{
		"Title":    "Payment - Table " + view.TableID,
		"Template": "payment",
		"Payment":  view,
	}
	h.renderPage(w, r, status, "payment.html", data)
}

// recordSettlement journals a submitted settlement and announces accepted
// ones. Failures here never affect the payment response.
func (h *Handler) recordSettlement(r *http.Request, req billing.SettlementRequest, s billing.Settlement, submitErr error) {
	ctx := context.WithoutCancel(r.Context())
	admin := h.adminName(r)

	entry := journal.NewEntry(req.TableID, req.OrderID, s, admin, submitErr)
	if err := h.journal.Record(ctx, entry); err != nil {
		h.log(r).Error("cannot journal settlement", "table_id", req.TableID, "error", err)
	}

	h.audit.LogAction(ctx, admin, "settle-payment", req.TableID, map[string]interface{}{
		"order_id":    req.OrderID,
		"total":       s.TotalDue.String(),
		"amount_paid": s.AmountPaid.String(),
		"change":      s.Change.String(),
	}, submitErr)

	if submitErr != nil || h.publisher == nil {
		return
	}

	msg, err := paymentSettledEvent(entry).Encode()
	if err != nil {
		h.log(r).Error("cannot encode payment event", "error", err)
		return
	}
	if err := h.publisher.Publish(ctx, event.PaymentsTopic, msg); err != nil {
		h.log(r).Error("cannot publish payment event", "table_id", req.TableID, "error", err)
	}
}

func paymentSettledEvent(e journal.Entry) event.PaymentSettledEvent {
	return event.PaymentSettledEvent{
		EventType:    event.EventPaymentSettled,
		OccurredAt:   e.RecordedAt,
		SettlementID: e.ID.String(),
		TableID:      e.TableID,
		OrderID:      e.OrderID,
		TotalDue:     e.TotalDue.StringFixed(2),
		AmountPaid:   e.AmountPaid.StringFixed(2),
		Change:       e.Change.StringFixed(2),
		Method:       e.Method,
		Admin:        e.Admin,
	}
}
