package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/appetiteclub/posconsole/internal/billing"
	"github.com/appetiteclub/posconsole/internal/catalog"
	"github.com/appetiteclub/posconsole/internal/reports"
	"github.com/shopspring/decimal"
)

func TestListUnpaidOrders(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders" || r.URL.Query().Get("unpaid") != "true" {
			t.Errorf("request = %s, want /orders?unpaid=true", r.URL)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("public route should not send a bearer token")
		}
		w.Write([]byte(`[{"id":"o1","tableId":"3","items":[],"totalAmount":12.5,"status":"unpaid","createdAt":"2024-06-02T12:00:00Z"}]`))
	})

	orders, err := c.ListUnpaidOrders(context.Background())
	if err != nil {
		t.Fatalf("ListUnpaidOrders() unexpected error: %v", err)
	}
	if len(orders) != 1 || orders[0].TableID != "3" || !orders[0].TotalAmount.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("ListUnpaidOrders() = %+v", orders)
	}
}

func TestListUnpaidOrdersNullBody(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	})

	orders, err := c.ListUnpaidOrders(context.Background())
	if err != nil {
		t.Fatalf("ListUnpaidOrders() unexpected error: %v", err)
	}
	if orders == nil || len(orders) != 0 {
		t.Errorf("ListUnpaidOrders() = %v, want empty slice", orders)
	}
}

func TestSubmitPayment(t *testing.T) {
	var got map[string]any
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/payments" {
			t.Errorf("request = %s %s, want POST /payments", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("Authorization = %q, want Bearer tok", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	})

	payment := billing.SettlementRequest{
		OrderID:       "o1",
		TableID:       "3",
		TotalAmount:   10.1,
		AmountPaid:    20,
		Change:        9.9,
		PaymentMethod: billing.MethodCash,
		CreatedAt:     time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC),
		Status:        billing.OutcomeSuccess,
	}

	if err := c.NewSession("tok", Admin{}).SubmitPayment(context.Background(), payment); err != nil {
		t.Fatalf("SubmitPayment() unexpected error: %v", err)
	}
	if got["tableId"] != "3" || got["amountPaid"] != 20.0 || got["paymentMethod"] != "cash" {
		t.Errorf("payload = %v", got)
	}
}

func TestCategoryCRUD(t *testing.T) {
	var calls []string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`[{"_id":"c1","name":"Drinks"}]`))
		case http.MethodPost, http.MethodPut:
			var body categoryPayload
			json.NewDecoder(r.Body).Decode(&body)
			json.NewEncoder(w).Encode(catalog.Category{ID: "c2", Name: body.Name})
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	s := c.NewSession("tok", Admin{})
	ctx := context.Background()

	list, err := s.ListCategories(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListCategories() = %v, %v", list, err)
	}
	created, err := s.CreateCategory(ctx, "Mains")
	if err != nil || created.Name != "Mains" {
		t.Fatalf("CreateCategory() = %v, %v", created, err)
	}
	updated, err := s.UpdateCategory(ctx, "c2", "Main courses")
	if err != nil || updated.Name != "Main courses" {
		t.Fatalf("UpdateCategory() = %v, %v", updated, err)
	}
	if err := s.DeleteCategory(ctx, "c2"); err != nil {
		t.Fatalf("DeleteCategory() unexpected error: %v", err)
	}

	want := []string{"GET /categories", "POST /categories", "PUT /categories/c2", "DELETE /categories/c2"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call[%d] = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestCreateMenuItemMultipart(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error: %v", err)
			return
		}

		for field, want := range map[string]string{"name": "Soup", "price": "6.5", "category": "c1", "isAvailable": "true"} {
			if got := r.FormValue(field); got != want {
				t.Errorf("field %s = %q, want %q", field, got, want)
			}
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			t.Errorf("FormFile(image) error: %v", err)
			return
		}
		data, _ := io.ReadAll(file)
		if header.Filename != "soup.png" || string(data) != "png-bytes" {
			t.Errorf("image = %q %q", header.Filename, data)
		}
		if header.Header.Get("Content-Type") != "image/png" {
			t.Errorf("image content type = %q", header.Header.Get("Content-Type"))
		}

		w.Write([]byte(`{"_id":"m1","name":"Soup","price":6.5,"image":"uploads/soup.png","category":"c1","isAvailable":true}`))
	})

	form := catalog.MenuItemForm{
		Name:        "Soup",
		Price:       "6.50",
		CategoryID:  "c1",
		IsAvailable: true,
		Image:       &catalog.ImageUpload{Filename: "soup.png", ContentType: "image/png", Data: []byte("png-bytes")},
	}

	item, err := c.NewSession("tok", Admin{}).CreateMenuItem(context.Background(), form)
	if err != nil {
		t.Fatalf("CreateMenuItem() unexpected error: %v", err)
	}
	if item.ID != "m1" || item.Image != "uploads/soup.png" {
		t.Errorf("CreateMenuItem() = %+v", item)
	}
}

func TestUpdateMenuItemWithoutImage(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/menu/m1" {
			t.Errorf("request = %s %s, want PUT /menu/m1", r.Method, r.URL.Path)
		}
		r.ParseMultipartForm(1 << 20)
		if _, _, err := r.FormFile("image"); err == nil {
			t.Error("image part should be omitted")
		}
		w.Write([]byte(`{"_id":"m1"}`))
	})

	form := catalog.MenuItemForm{Name: "Soup", Price: "7", CategoryID: "c1"}
	if _, err := c.NewSession("tok", Admin{}).UpdateMenuItem(context.Background(), "m1", form); err != nil {
		t.Fatalf("UpdateMenuItem() unexpected error: %v", err)
	}
}

func TestReports(t *testing.T) {
	var gotURL string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		w.Write([]byte(`{"type":"yearly","totalSales":10,"totalOrders":1}`))
	})
	s := c.NewSession("tok", Admin{})
	ctx := context.Background()

	tests := []struct {
		name    string
		call    func() (reports.SalesReport, error)
		wantURL string
	}{
		{name: "currentMonth", call: func() (reports.SalesReport, error) { return s.CurrentMonthReport(ctx) }, wantURL: "/reports/current-month"},
		{name: "yearly", call: func() (reports.SalesReport, error) { return s.YearlyReport(ctx, 2024) }, wantURL: "/reports/yearly?year=2024"},
		{
			name:    "custom",
			call:    func() (reports.SalesReport, error) { return s.CustomReport(ctx, "2024-01-01", "2024-01-31") },
			wantURL: "/reports/custom?endDate=2024-01-31&startDate=2024-01-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := tt.call()
			if err != nil {
				t.Fatalf("report call unexpected error: %v", err)
			}
			if gotURL != tt.wantURL {
				t.Errorf("URL = %q, want %q", gotURL, tt.wantURL)
			}
			if report.TotalOrders != 1 {
				t.Errorf("TotalOrders = %d, want 1", report.TotalOrders)
			}
		})
	}

	if _, err := s.CustomReport(ctx, "2024-02-01", "2024-01-01"); err == nil {
		t.Error("CustomReport() with inverted range should fail before calling the backend")
	}
}
