package console

import (
	"net/http"
	"net/url"

	"github.com/appetiteclub/posconsole/internal/catalog"
	"github.com/aquamarinepk/aqm"
	"github.com/go-chi/chi/v5"
)

type categoryView struct {
	ID        string
	Name      string
	UpdateURL string
	DeleteURL string
	Editing   bool
	Error     string
}

// Categories lists the menu categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.Categories")
	defer finish()

	data := map[string]interface{}{}
	switch {
	case r.URL.Query().Get("created") == "1":
		data["Success"] = "Category created."
	case r.URL.Query().Get("updated") == "1":
		data["Success"] = "Category updated."
	case r.URL.Query().Get("deleted") == "1":
		data["Success"] = "Category deleted."
	}

	h.renderCategories(w, r, http.StatusOK, data, "")
}

// CreateCategory adds a category after checking the name is unique.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.CreateCategory")
	defer finish()
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	raw := r.FormValue("name")

	existing, ok := h.listCategories(w, r)
	if !ok {
		return
	}

	name, err := catalog.ValidateCategoryName(raw, existing, "")
	if err != nil {
		h.renderCategories(w, r, http.StatusUnprocessableEntity, map[string]interface{}{
			"NewName":  raw,
			"NewError": titleCase(err.Error()),
		}, "")
		return
	}

	_, err = backendFromContext(ctx).CreateCategory(ctx, name)
	h.audit.LogAction(ctx, h.adminName(r), "create-category", name, nil, err)
	if h.handleBackendError(w, r, err) {
		return
	}
	if err != nil {
		h.log(r).Error("cannot create category", "name", name, "error", err)
		h.renderCategories(w, r, http.StatusBadGateway, map[string]interface{}{
			"NewName":  raw,
			"NewError": userMessage(err, "Failed to create category."),
		}, "")
		return
	}

	aqm.RedirectOrHeader(w, r, "/categories?created=1")
}

// UpdateCategory renames a category.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.UpdateCategory")
	defer finish()
	ctx := r.Context()

	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	existing, ok := h.listCategories(w, r)
	if !ok {
		return
	}

	name, err := catalog.ValidateCategoryName(r.FormValue("name"), existing, id)
	if err != nil {
		h.renderCategories(w, r, http.StatusUnprocessableEntity, map[string]interface{}{
			"EditError": titleCase(err.Error()),
		}, id)
		return
	}

	_, err = backendFromContext(ctx).UpdateCategory(ctx, id, name)
	h.audit.LogAction(ctx, h.adminName(r), "update-category", id, map[string]interface{}{"name": name}, err)
	if h.handleBackendError(w, r, err) {
		return
	}
	if err != nil {
		h.log(r).Error("cannot update category", "id", id, "error", err)
		h.renderCategories(w, r, http.StatusBadGateway, map[string]interface{}{
			"EditError": userMessage(err, "Failed to update category."),
		}, id)
		return
	}

	aqm.RedirectOrHeader(w, r, "/categories?updated=1")
}

// DeleteCategory removes a category. The backend refuses categories that
// still have menu items and its message is shown as is.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.DeleteCategory")
	defer finish()
	ctx := r.Context()

	id := chi.URLParam(r, "id")

	err := backendFromContext(ctx).DeleteCategory(ctx, id)
	h.audit.LogAction(ctx, h.adminName(r), "delete-category", id, nil, err)
	if h.handleBackendError(w, r, err) {
		return
	}
	if err != nil {
		h.log(r).Error("cannot delete category", "id", id, "error", err)
		h.renderCategories(w, r, http.StatusBadGateway, map[string]interface{}{
			"Error": userMessage(err, "Failed to delete category."),
		}, "")
		return
	}

	aqm.RedirectOrHeader(w, r, "/categories?deleted=1")
}

// listCategories fetches the categories, writing the response itself when the
// session was rejected or the backend failed.
func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) ([]catalog.Category, bool) {
	ctx := r.Context()

	categories, err := backendFromContext(ctx).ListCategories(ctx)
	if h.handleBackendError(w, r, err) {
		return nil, false
	}
	if err != nil {
		h.log(r).Error("cannot list categories", "error", err)
		h.renderPage(w, r, http.StatusBadGateway, "categories.html", map[string]interface{}{
			"Title":    "Categories",
			"Template": "categories",
			"Error":    userMessage(err, "Failed to load categories."),
		})
		return nil, false
	}
	return categories, true
}

func (h *Handler) renderCategories(w http.ResponseWriter, r *http.Request, status int, data map[string]interface{}, editing string) {
	categories, ok := h.listCategories(w, r)
	if !ok {
		return
	}

	views := make([]categoryView, 0, len(categories))
	for _, c := range categories {
		path := "/categories/" + url.PathEscape(c.ID)
		v := categoryView{
			ID:        c.ID,
			Name:      c.Name,
			UpdateURL: path,
			DeleteURL: path + "/delete",
			Editing:   c.ID == editing,
		}
		if v.Editing {
			if msg, ok := data["EditError"].(string); ok {
				v.Error = msg
			}
		}
		views = append(views, v)
	}

	data["Title"] = "Categories"
	data["Template"] = "categories"
	data["Categories"] = views
	h.renderPage(w, r, status, "categories.html", data)
}
