package console

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/appetiteclub/posconsole/internal/catalog"
)

const menuItems = `{"items":[
	{"_id":"b","name":"Tea","price":2.5,"image":"uploads\\tea.png","category":"c1","isAvailable":true},
	{"_id":"a","name":"Steak","price":18,"image":"","category":{"_id":"c2","name":"Mains"},"isAvailable":false}
]}`

var pngHeader = []byte("\x89PNG\r\n\x1a\n")

func seedCatalog(fb *fakeBackend) {
	fb.categories = []catalog.Category{{ID: "c1", Name: "Drinks"}, {ID: "c2", Name: "Mains"}}
	fb.menu = menuItems
}

func multipartRequest(t *testing.T, path string, fields map[string]string, image []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField() unexpected error: %v", err)
		}
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "soup.png")
		if err != nil {
			t.Fatalf("CreateFormFile() unexpected error: %v", err)
		}
		part.Write(image)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestMenuPage(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    []string
		notWant []string
	}{
		{
			name: "allCategories",
			path: "/menu",
			want: []string{"Tea", "Drinks", "$2.50", "http://assets.test/uploads/tea.png", "Steak", "Unavailable"},
		},
		{
			name:    "filtered",
			path:    "/menu?category=c1",
			want:    []string{"Tea"},
			notWant: []string{"Steak"},
		},
		{
			name: "savedNotice",
			path: "/menu?saved=1",
			want: []string{"Menu item saved."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestConsole(t)
			tc.backend.set(seedCatalog)
			cookie := tc.signIn(t)

			rec := tc.get(tt.path, cookie)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			body := rec.Body.String()
			for _, want := range tt.want {
				if !strings.Contains(body, want) {
					t.Errorf("body does not contain %q", want)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(body, nw) {
					t.Errorf("body should not contain %q", nw)
				}
			}
		})
	}
}

func TestMenuPageWithoutCategories(t *testing.T) {
	tc := newTestConsole(t)
	tc.backend.set(func(fb *fakeBackend) {
		seedCatalog(fb)
		fb.categoriesCode = http.StatusInternalServerError
	})
	cookie := tc.signIn(t)

	rec := tc.get("/menu", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{`<div class="flash notice">Categories unavailable</div>`, "Tea", "Uncategorized", "Steak", "Mains"} {
		if !strings.Contains(body, want) {
			t.Errorf("body does not contain %q", want)
		}
	}
}

func TestEditMenuItemForm(t *testing.T) {
	tc := newTestConsole(t)
	tc.backend.set(seedCatalog)
	cookie := tc.signIn(t)

	rec := tc.get("/menu/b/edit", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `value="2.50"`) {
		t.Error("edit form should carry the current price")
	}

	if got := location(tc.get("/menu/zz/edit", cookie)); got != "/menu" {
		t.Errorf("unknown item redirect = %q, want /menu", got)
	}
}

func TestCreateMenuItemValidation(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		image  []byte
		want   []string
	}{
		{
			name:   "missingEverything",
			fields: map[string]string{},
			want:   []string{"Name is required", "Price is required", "Category is required", "Please upload an image"},
		},
		{
			name:   "imageTooLarge",
			fields: map[string]string{"name": "Soup", "price": "4.5", "category": "c1"},
			image:  append(append([]byte{}, pngHeader...), make([]byte, 2048)...),
			want:   []string{"Image size cannot exceed"},
		},
		{
			name:   "notAnImage",
			fields: map[string]string{"name": "Soup", "price": "4.5", "category": "c1"},
			image:  []byte("plain text"),
			want:   []string{"Please upload an image file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestConsole(t)
			tc.backend.set(seedCatalog)
			cookie := tc.signIn(t)

			rec := tc.do(multipartRequest(t, "/menu", tt.fields, tt.image), cookie)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", rec.Code)
			}
			for _, want := range tt.want {
				if !strings.Contains(rec.Body.String(), want) {
					t.Errorf("body does not contain %q", want)
				}
			}
			if n := len(tc.backend.writes()); n != 0 {
				t.Errorf("backend writes = %d, want 0", n)
			}
		})
	}
}

func (tc *testConsole) onlyUpload(t *testing.T) string {
	t.Helper()

	tc.handler.uploads.mu.RLock()
	defer tc.handler.uploads.mu.RUnlock()
	if len(tc.handler.uploads.tasks) != 1 {
		t.Fatalf("upload tasks = %d, want 1", len(tc.handler.uploads.tasks))
	}
	for id := range tc.handler.uploads.tasks {
		return id
	}
	return ""
}

func TestCreateMenuItemUploadsInBackground(t *testing.T) {
	tc := newTestConsole(t)
	gate := make(chan struct{})
	tc.backend.set(func(fb *fakeBackend) {
		seedCatalog(fb)
		fb.menuGate = gate
	})
	cookie := tc.signIn(t)

	fields := map[string]string{"name": "Soup", "description": "Hot", "price": "4.5", "category": "c1", "isAvailable": "true"}
	rec := tc.do(multipartRequest(t, "/menu", fields, pngHeader), cookie)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Saving Soup") {
		t.Error("body should show the pending upload")
	}

	id := tc.onlyUpload(t)
	statusPath := "/menu/uploads/" + id

	rec = tc.get(statusPath, cookie)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "every 1s") {
		t.Errorf("in-flight status = %d, should keep polling", rec.Code)
	}

	close(gate)
	tc.handler.uploads.Wait()

	rec = tc.get(statusPath, cookie)
	if got := location(rec); got != "/menu?saved=1" {
		t.Errorf("completed redirect = %q, want /menu?saved=1", got)
	}

	writes := tc.backend.writes()
	if len(writes) != 1 {
		t.Fatalf("backend writes = %d, want 1", len(writes))
	}
	w := writes[0]
	if w.Get("name") != "Soup" || w.Get("price") != "4.5" || w.Get("image") != "soup.png" || w.Get("isAvailable") != "true" {
		t.Errorf("write = %v", w)
	}

	task, ok := tc.handler.uploads.Get(id, "someone-else")
	if ok || task.State != UploadIdle {
		t.Errorf("foreign Get() = %v, %v, want idle, false", task.State, ok)
	}
}

func TestUploadStatusUnknownTask(t *testing.T) {
	tc := newTestConsole(t)
	cookie := tc.signIn(t)

	rec := tc.get("/menu/uploads/unknown", cookie)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No upload in progress.") {
		t.Error("unknown task should report no upload")
	}
}

func TestUploadFailureSignsOutOnUnauthorized(t *testing.T) {
	tc := newTestConsole(t)
	tc.backend.set(seedCatalog)
	cookie := tc.signIn(t)

	fields := map[string]string{"name": "Soup", "price": "4.5", "category": "c1"}
	req := multipartRequest(t, "/menu", fields, pngHeader)

	tc.backend.set(func(fb *fakeBackend) { fb.token = "rotated" })
	rec := tc.do(req, cookie)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	tc.handler.uploads.Wait()

	rec = tc.get("/menu/uploads/"+tc.onlyUpload(t), cookie)
	if got := location(rec); got != "/signin?expired=1" {
		t.Errorf("redirect = %q, want /signin?expired=1", got)
	}
}

func TestUpdateMenuItemWithoutImage(t *testing.T) {
	tc := newTestConsole(t)
	tc.backend.set(seedCatalog)
	cookie := tc.signIn(t)

	fields := map[string]string{"name": "Green Tea", "price": "3", "category": "c1"}
	rec := tc.do(multipartRequest(t, "/menu/b", fields, nil), cookie)
	if got := location(rec); got != "/menu?saved=1" {
		t.Fatalf("redirect = %q, want /menu?saved=1", got)
	}

	writes := tc.backend.writes()
	if len(writes) != 1 || writes[0].Get("name") != "Green Tea" || writes[0].Get("image") != "" {
		t.Errorf("writes = %v", writes)
	}
	if writes[0].Get("isAvailable") != "false" {
		t.Errorf("isAvailable = %q, want false when unchecked", writes[0].Get("isAvailable"))
	}
}

func TestDeleteMenuItem(t *testing.T) {
	tc := newTestConsole(t)
	cookie := tc.signIn(t)

	rec := tc.postForm("/menu/b/delete", url.Values{}, cookie)
	if got := location(rec); got != "/menu?deleted=1" {
		t.Errorf("redirect = %q, want /menu?deleted=1", got)
	}
}
