package console

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/appetiteclub/posconsole/internal/backend"
	"github.com/appetiteclub/posconsole/internal/billing"
	"github.com/appetiteclub/posconsole/internal/catalog"
	"github.com/aquamarinepk/aqm"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

const templatesDir = "../../assets/templates"

// diskTemplates parses the embedded console templates straight from disk.
type diskTemplates struct {
	dir string
}

func (d diskTemplates) Get(name string) (*template.Template, error) {
	return template.ParseFiles(
		filepath.Join(d.dir, "layouts", "base.html"),
		filepath.Join(d.dir, name),
	)
}

// MockPublisher is a test mock for events.Publisher
type MockPublisher struct {
	mu              sync.Mutex
	PublishedEvents []PublishedEvent
	PublishFunc     func(ctx context.Context, topic string, data []byte) error
}

type PublishedEvent struct {
	Topic string
	Data  []byte
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		PublishedEvents: make([]PublishedEvent, 0),
	}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, data []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishedEvents = append(m.PublishedEvents, PublishedEvent{Topic: topic, Data: data})
	return nil
}

func (m *MockPublisher) Events() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedEvent(nil), m.PublishedEvents...)
}

// fakeRedis is an in-memory stand-in for the go-redis client.
type fakeRedis struct {
	mu      sync.Mutex
	values  map[string]string
	ttls    map[string]time.Duration
	PingErr error
	closed  bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	default:
		f.values[key] = fmt.Sprint(v)
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Ping(ctx context.Context) *redis.StatusCmd {
	if f.PingErr != nil {
		return redis.NewStatusResult("", f.PingErr)
	}
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

// fakeBackend serves the REST endpoints the console talks to.
type fakeBackend struct {
	mu             sync.Mutex
	token          string
	orders         string
	ordersCode     int
	categories     []catalog.Category
	categoriesCode int
	menu           string
	report         string
	paymentCode    int
	payments       []billing.SettlementRequest
	menuWrites     []url.Values
	menuGate       chan struct{}
	reportQuery    string
	verifyCalls    int
	srv            *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	fb := &fakeBackend{
		token:       "tok",
		orders:      "[]",
		menu:        `{"items":[]}`,
		report:      `{}`,
		paymentCode: http.StatusCreated,
	}

	r := chi.NewRouter()
	r.Post("/auth/login", fb.login)
	r.Post("/auth/register", fb.register)
	r.Get("/auth/verify", fb.verify)
	r.Get("/orders", fb.listOrders)
	r.Post("/payments", fb.submitPayment)
	r.Get("/categories", fb.listCategories)
	r.Post("/categories", fb.createCategory)
	r.Put("/categories/{id}", fb.updateCategory)
	r.Delete("/categories/{id}", fb.deleteCategory)
	r.Get("/menu", fb.listMenu)
	r.Post("/menu", fb.writeMenuItem)
	r.Put("/menu/{id}", fb.writeMenuItem)
	r.Delete("/menu/{id}", fb.deleteMenuItem)
	r.Get("/reports/{kind}", fb.getReport)

	fb.srv = httptest.NewServer(r)
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBackend) set(fn func(fb *fakeBackend)) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fn(fb)
}

func (fb *fakeBackend) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (fb *fakeBackend) authorized(w http.ResponseWriter, r *http.Request) bool {
	fb.mu.Lock()
	token := fb.token
	fb.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+token {
		fb.writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid token"})
		return false
	}
	return true
}

func (fb *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var creds backend.Credentials
	json.NewDecoder(r.Body).Decode(&creds)
	if creds.Password != "secret" {
		fb.writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}

	fb.mu.Lock()
	token := fb.token
	fb.mu.Unlock()

	fb.writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"admin": map[string]string{"_id": "a1", "username": creds.Username},
	})
}

func (fb *fakeBackend) register(w http.ResponseWriter, r *http.Request) {
	var creds backend.Credentials
	json.NewDecoder(r.Body).Decode(&creds)
	if creds.Username == "taken" {
		fb.writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Username already exists"})
		return
	}
	fb.writeJSON(w, http.StatusCreated, map[string]string{"message": "Admin registered"})
}

func (fb *fakeBackend) verify(w http.ResponseWriter, r *http.Request) {
	fb.set(func(fb *fakeBackend) { fb.verifyCalls++ })
	if !fb.authorized(w, r) {
		return
	}
	fb.writeJSON(w, http.StatusOK, map[string]interface{}{
		"admin": map[string]string{"id": "a1", "username": "alice"},
	})
}

func (fb *fakeBackend) listOrders(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	body := fb.orders
	code := fb.ordersCode
	fb.mu.Unlock()
	if code >= http.StatusBadRequest {
		fb.writeJSON(w, code, map[string]string{"message": "Orders unavailable"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func (fb *fakeBackend) submitPayment(w http.ResponseWriter, r *http.Request) {
	if !fb.authorized(w, r) {
		return
	}

	var req billing.SettlementRequest
	json.NewDecoder(r.Body).Decode(&req)

	fb.mu.Lock()
	fb.payments = append(fb.payments, req)
	code := fb.paymentCode
	fb.mu.Unlock()

	if code >= http.StatusBadRequest {
		fb.writeJSON(w, code, map[string]string{"message": "Payment rejected"})
		return
	}
	fb.writeJSON(w, code, map[string]string{"message": "Payment recorded"})
}

func (fb *fakeBackend) listCategories(w http.ResponseWriter, r *http.Request) {
	if !fb.authorized(w, r) {
		return
	}
	fb.mu.Lock()
	categories := append([]catalog.Category{}, fb.categories...)
	code := fb.categoriesCode
	fb.mu.Unlock()
	if code >= http.StatusBadRequest {
		fb.writeJSON(w, code, map[string]string{"message": "Categories unavailable"})
		return
	}
	fb.writeJSON(w, http.StatusOK, categories)
}

func (fb *fakeBackend) createCategory(w http.ResponseWriter, r *http.Request) {
	if !fb.authorized(w, r) {
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	fb.mu.Lock()
	created := catalog.Category{ID: fmt.Sprintf("c%d", len(fb.categories)+1), Name: body.Name}
	fb.categories = append(fb.categories, created)
	fb.mu.Unlock()

	fb.writeJSON(w, http.StatusCreated, created)
}

func (fb *fakeBackend) updateCategory(w http.ResponseWriter, r *http.Request) {
	if !fb.authorized(w, r) {
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	json.NewDecoder(r.Body).Decode(&body)
	id := chi.URLParam(r, "id")

	fb.mu.Lock()
	defer fb.mu.Unlock()
	for i := range fb.categories {
		if fb.categories[i].ID == id {
			fb.categories[i].Name = body.Name
			fb.writeJSON(w, http.StatusOK, fb.categories[i])
			return
		}
	}
	fb.writeJSON(w, http.StatusNotFound, map[string]string{"message": "Category not found"})
}

func (fb *fakeBackend) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if !fb.authorized(w, r) {
		return
	}
	id := chi.URLParam(r, "id")
	if id == "busy" {
		fb.writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Cannot delete category with menu items"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (fb *fakeBackend) listMenu(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	body := fb.menu
	fb.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func (fb *fakeBackend) writeMenuItem(w http.ResponseWriter, r *http.Request) {
	if !fb.authorized(w, r) {
		return
	}
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		fb.writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad form"})
		return
	}

	fields := url.Values{}
	for k, v := range r.MultipartForm.Value {
		fields[k] = v
	}
	if files := r.MultipartForm.File["image"]; len(files) > 0 {
		fields.Set("image", files[0].Filename)
	}

	fb.mu.Lock()
	fb.menuWrites = append(fb.menuWrites, fields)
	gate := fb.menuGate
	fb.mu.Unlock()

	if gate != nil {
		<-gate
	}

	fb.writeJSON(w, http.StatusOK, map[string]interface{}{
		"_id":      "m9",
		"name":     fields.Get("name"),
		"price":    fields.Get("price"),
		"category": fields.Get("category"),
		"image":    `uploads\m9.png`,
	})
}

func (fb *fakeBackend) deleteMenuItem(w http.ResponseWriter, r *http.Request) {
	if !fb.authorized(w, r) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (fb *fakeBackend) getReport(w http.ResponseWriter, r *http.Request) {
	if !fb.authorized(w, r) {
		return
	}
	fb.mu.Lock()
	fb.reportQuery = r.URL.Path + "?" + r.URL.RawQuery
	body := fb.report
	fb.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

// testConsole wires a handler to a fake backend behind a chi router.
type testConsole struct {
	handler   *Handler
	router    http.Handler
	backend   *fakeBackend
	publisher *MockPublisher
}

func newTestConsole(t *testing.T) *testConsole {
	t.Helper()

	fb := newFakeBackend(t)
	pub := NewMockPublisher()

	h := NewHandler(HandlerDeps{
		Templates: diskTemplates{dir: templatesDir},
		Backend:   backend.NewClient(fb.srv.URL),
		Publisher: pub,
	}, Settings{AssetURL: "http://assets.test", MaxImageBytes: 1024}, aqm.NewNoopLogger())

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	return &testConsole{handler: h, router: r, backend: fb, publisher: pub}
}

func (tc *testConsole) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	tc.router.ServeHTTP(rec, req)
	return rec
}

func (tc *testConsole) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	return tc.do(httptest.NewRequest(http.MethodGet, path, nil), cookie)
}

func (tc *testConsole) postForm(path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return tc.do(req, cookie)
}

// signIn signs alice in and returns the session cookie.
func (tc *testConsole) signIn(t *testing.T) *http.Cookie {
	t.Helper()

	rec := tc.postForm("/signin", url.Values{"username": {"alice"}, "password": {"secret"}}, nil)
	for _, c := range rec.Result().Cookies() {
		if c.Name == tc.handler.settings.SessionName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("signin status = %d, no session cookie", rec.Code)
	return nil
}

func location(rec *httptest.ResponseRecorder) string {
	if l := rec.Header().Get("HX-Redirect"); l != "" {
		return l
	}
	return rec.Header().Get("Location")
}

const unpaidOrders = `[
	{"id":"order-000001","tableId":"3","items":[{"id":"l1","menuItem":{"id":"m1","name":"Soup","price":4.25},"quantity":2}],"totalAmount":8.5,"status":"unpaid","createdAt":"2024-06-02T12:00:00Z"},
	{"id":"order-000002","tableId":"10","items":[],"totalAmount":20,"status":"unpaid","createdAt":"2024-06-02T12:05:00Z"},
	{"id":"order-000003","tableId":"3","items":[],"totalAmount":4,"status":"unpaid","createdAt":"2024-06-02T12:10:00Z"}
]`

func (fb *fakeBackend) verifications() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.verifyCalls
}

func (fb *fakeBackend) submitted() []billing.SettlementRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]billing.SettlementRequest(nil), fb.payments...)
}

func (fb *fakeBackend) writes() []url.Values {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]url.Values(nil), fb.menuWrites...)
}
