package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/appetiteclub/posconsole/internal/catalog"
	"github.com/aquamarinepk/aqm"
	"github.com/go-chi/chi/v5"
)

const uploadFragment = "upload_status"

// multipartOverhead is the room left for the text fields around the image.
const multipartOverhead int64 = 1 << 20

type menuItemView struct {
	ID          string
	Name        string
	Description string
	Price       string
	Category    string
	ImageURL    string
	Available   bool
	EditURL     string
	DeleteURL   string
}

type categoryOption struct {
	ID       string
	Name     string
	Selected bool
}

type menuFormView struct {
	Action      string
	Title       string
	Creating    bool
	ID          string
	Name        string
	Description string
	Price       string
	CategoryID  string
	IsAvailable bool
	ImageURL    string
	Categories  []categoryOption
	Errors      map[string]string
	Error       string
}

type uploadView struct {
	ID        string
	Label     string
	State     string
	Pending   bool
	Failed    bool
	Error     string
	StatusURL string
}

// Menu lists menu items, optionally filtered by category.
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.Menu")
	defer finish()
	log := h.log(r)
	ctx := r.Context()

	selected := r.URL.Query().Get("category")
	if selected == "" {
		selected = catalog.AllCategories
	}

	data := map[string]interface{}{
		"Title":    "Menu",
		"Template": "menu",
		"Filter":   selected,
	}
	if r.URL.Query().Get("saved") == "1" {
		data["Success"] = "Menu item saved."
	}
	if r.URL.Query().Get("deleted") == "1" {
		data["Success"] = "Menu item deleted."
	}

	categories, err := backendFromContext(ctx).ListCategories(ctx)
	if h.handleBackendError(w, r, err) {
		return
	}
	if err != nil {
		// Items are public; show them uncategorized.
		log.Error("cannot list categories", "error", err)
		data["Notice"] = userMessage(err, "Failed to load categories.")
		categories = nil
	}

	items, err := h.client.ListMenu(ctx)
	if err != nil {
		log.Error("cannot list menu", "error", err)
		data["Error"] = userMessage(err, "Failed to load menu.")
		h.renderPage(w, r, http.StatusOK, "menu.html", data)
		return
	}

	visible := catalog.FilterByCategory(catalog.ResolveCategories(items, categories), selected)

	views := make([]menuItemView, 0, len(visible))
	for _, item := range visible {
		views = append(views, h.menuItemView(item))
	}

	filters := []categoryOption{{ID: catalog.AllCategories, Name: "All", Selected: selected == catalog.AllCategories}}
	filters = append(filters, categoryOptions(categories, selected)...)

	data["Items"] = views
	data["Filters"] = filters
	h.renderPage(w, r, http.StatusOK, "menu.html", data)
}

func (h *Handler) menuItemView(item catalog.MenuItem) menuItemView {
	return menuItemView{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Price:       formatMoney(item.Price),
		Category:    item.Category.Label("Uncategorized"),
		ImageURL:    catalog.AssetURL(h.settings.AssetURL, item.Image),
		Available:   item.IsAvailable,
		EditURL:     menuItemPath(item.ID) + "/edit",
		DeleteURL:   menuItemPath(item.ID) + "/delete",
	}
}

func categoryOptions(categories []catalog.Category, selected string) []categoryOption {
	options := make([]categoryOption, 0, len(categories))
	for _, c := range categories {
		options = append(options, categoryOption{ID: c.ID, Name: c.Name, Selected: c.ID == selected})
	}
	return options
}

func menuItemPath(id string) string {
	return "/menu/" + url.PathEscape(id)
}

// NewMenuItemForm serves the create form.
func (h *Handler) NewMenuItemForm(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.NewMenuItemForm")
	defer finish()

	form := menuFormView{
		Action:      "/menu",
		Title:       "New Menu Item",
		Creating:    true,
		IsAvailable: true,
	}
	h.renderMenuForm(w, r, http.StatusOK, form)
}

// EditMenuItemForm serves the edit form for an existing item.
func (h *Handler) EditMenuItemForm(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.EditMenuItemForm")
	defer finish()

	id := chi.URLParam(r, "id")

	items, err := h.client.ListMenu(r.Context())
	if err != nil {
		h.log(r).Error("cannot list menu", "error", err)
		http.Error(w, userMessage(err, "Failed to load menu."), http.StatusBadGateway)
		return
	}

	for _, item := range items {
		if item.ID != id {
			continue
		}
		form := menuFormView{
			Action:      menuItemPath(item.ID),
			Title:       "Edit Menu Item",
			ID:          item.ID,
			Name:        item.Name,
			Description: item.Description,
			Price:       item.Price.StringFixed(2),
			CategoryID:  item.Category.ID(),
			IsAvailable: item.IsAvailable,
			ImageURL:    catalog.AssetURL(h.settings.AssetURL, item.Image),
		}
		h.renderMenuForm(w, r, http.StatusOK, form)
		return
	}

	aqm.RedirectOrHeader(w, r, "/menu")
}

// CreateMenuItem validates the form and uploads the new item with its image.
func (h *Handler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.CreateMenuItem")
	defer finish()

	h.saveMenuItem(w, r, "")
}

// UpdateMenuItem validates the form and updates the item. A new image is
// uploaded in the background; otherwise the update is applied inline.
func (h *Handler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.UpdateMenuItem")
	defer finish()

	h.saveMenuItem(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) saveMenuItem(w http.ResponseWriter, r *http.Request, id string) {
	log := h.log(r)
	ctx := r.Context()
	creating := id == ""

	view := menuFormView{
		Action:   "/menu",
		Title:    "New Menu Item",
		Creating: creating,
		ID:       id,
	}
	if !creating {
		view.Action = menuItemPath(id)
		view.Title = "Edit Menu Item"
	}

	form, err := h.parseMenuItemForm(w, r)
	view.Name = form.Name
	view.Description = form.Description
	view.Price = form.Price
	view.CategoryID = form.CategoryID
	view.IsAvailable = form.IsAvailable
	if err != nil {
		log.Debug("cannot parse menu item form", "error", err)
		view.Errors = map[string]string{"image": titleCase(imageLimitMessage(h.settings.MaxImageBytes))}
		h.renderMenuForm(w, r, http.StatusUnprocessableEntity, view)
		return
	}

	if errs := catalog.ValidateMenuItem(form, creating, h.settings.MaxImageBytes); len(errs) > 0 {
		view.Errors = make(map[string]string, len(errs))
		for _, e := range errs {
			if _, seen := view.Errors[e.Field]; !seen {
				view.Errors[e.Field] = titleCase(e.Message)
			}
		}
		h.renderMenuForm(w, r, http.StatusUnprocessableEntity, view)
		return
	}

	session := sessionFromContext(ctx)
	bs := backendFromContext(ctx)
	if session == nil || bs == nil {
		aqm.RedirectOrHeader(w, r, "/signin")
		return
	}

	save := func(ctx context.Context) (catalog.MenuItem, error) {
		if creating {
			return bs.CreateMenuItem(ctx, form)
		}
		return bs.UpdateMenuItem(ctx, id, form)
	}

	action := "update-menu-item"
	if creating {
		action = "create-menu-item"
	}
	admin := session.Admin.Username

	if form.Image != nil {
		taskID := h.uploads.Start(ctx, session.ID, form.Name, func(ctx context.Context) (string, error) {
			item, err := save(ctx)
			h.audit.LogAction(ctx, admin, action, form.Name, map[string]interface{}{"image": form.Image.Filename}, err)
			if err != nil {
				return "", err
			}
			return catalog.AssetURL(h.settings.AssetURL, item.Image), nil
		})

		task, _ := h.uploads.Get(taskID, session.ID)
		h.renderUpload(w, r, http.StatusAccepted, task)
		return
	}

	_, err = save(ctx)
	h.audit.LogAction(ctx, admin, action, form.Name, nil, err)
	if h.handleBackendError(w, r, err) {
		return
	}
	if err != nil {
		log.Error("cannot save menu item", "id", id, "error", err)
		view.Error = userMessage(err, "Failed to save menu item.")
		h.renderMenuForm(w, r, http.StatusBadGateway, view)
		return
	}

	aqm.RedirectOrHeader(w, r, "/menu?saved=1")
}

// parseMenuItemForm reads the multipart form. The image is read up to one
// byte past the limit so oversized files fail validation.
func (h *Handler) parseMenuItemForm(w http.ResponseWriter, r *http.Request) (catalog.MenuItemForm, error) {
	limit := h.settings.MaxImageBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	var form catalog.MenuItemForm
	if err := r.ParseMultipartForm(limit + multipartOverhead); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return form, err
	}

	form.Name = strings.TrimSpace(r.FormValue("name"))
	form.Description = strings.TrimSpace(r.FormValue("description"))
	form.Price = strings.TrimSpace(r.FormValue("price"))
	form.CategoryID = r.FormValue("category")
	form.IsAvailable = r.FormValue("isAvailable") != ""

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return form, nil
	}
	if err != nil {
		return form, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return form, err
	}
	if len(data) == 0 {
		return form, nil
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	form.Image = &catalog.ImageUpload{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	}
	return form, nil
}

func imageLimitMessage(limit int64) string {
	return fmt.Sprintf("image size cannot exceed %dMB", limit/(1024*1024))
}

func (h *Handler) renderMenuForm(w http.ResponseWriter, r *http.Request, status int, view menuFormView) {
	ctx := r.Context()

	categories, err := backendFromContext(ctx).ListCategories(ctx)
	if h.handleBackendError(w, r, err) {
		return
	}
	if err != nil {
		h.log(r).Error("cannot list categories", "error", err)
		if view.Error == "" {
			view.Error = userMessage(err, "Failed to load categories.")
		}
	}
	view.Categories = categoryOptions(categories, view.CategoryID)

	if aqm.IsHTMX(r) && r.Header.Get("HX-Target") != "content" {
		h.renderFragment(w, r, status, "menu_form.html", "menu_form", view)
		return
	}

	data := map[string]interface{}{
		"Title":    view.Title,
		"Template": "menu_form",
		"Form":     view,
	}
	h.renderPage(w, r, status, "menu_form.html", data)
}

// UploadStatus reports the state of a background menu upload. Completed
// uploads redirect to the menu; failed ones show the backend message.
func (h *Handler) UploadStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.UploadStatus")
	defer finish()

	session := sessionFromContext(r.Context())
	if session == nil {
		aqm.RedirectOrHeader(w, r, "/signin")
		return
	}

	task, ok := h.uploads.Get(chi.URLParam(r, "taskID"), session.ID)
	if !ok {
		h.renderUpload(w, r, http.StatusNotFound, task)
		return
	}

	switch task.State {
	case UploadCompleted:
		aqm.RedirectOrHeader(w, r, "/menu?saved=1")
	case UploadFailed:
		if h.handleBackendError(w, r, task.Err) {
			return
		}
		h.renderUpload(w, r, http.StatusOK, task)
	default:
		h.renderUpload(w, r, http.StatusOK, task)
	}
}

func (h *Handler) renderUpload(w http.ResponseWriter, r *http.Request, status int, task UploadTask) {
	view := uploadView{
		ID:        task.ID,
		Label:     task.Label,
		State:     task.State.String(),
		Pending:   task.State == UploadInFlight,
		Failed:    task.State == UploadFailed,
		StatusURL: "/menu/uploads/" + url.PathEscape(task.ID),
	}
	if task.Err != nil {
		view.Error = userMessage(task.Err, "Upload failed. Please try again.")
	}

	if aqm.IsHTMX(r) {
		h.renderFragment(w, r, status, "upload_status.html", uploadFragment, view)
		return
	}

	data := map[string]interface{}{
		"Title":    "Saving Menu Item",
		"Template": "upload_status",
		"Upload":   view,
	}
	h.renderPage(w, r, status, "upload_status.html", data)
}

// DeleteMenuItem removes a menu item.
func (h *Handler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.DeleteMenuItem")
	defer finish()
	ctx := r.Context()

	id := chi.URLParam(r, "id")

	err := backendFromContext(ctx).DeleteMenuItem(ctx, id)
	h.audit.LogAction(ctx, h.adminName(r), "delete-menu-item", id, nil, err)
	if h.handleBackendError(w, r, err) {
		return
	}
	if err != nil {
		h.log(r).Error("cannot delete menu item", "id", id, "error", err)
		http.Error(w, userMessage(err, "Failed to delete menu item."), http.StatusBadGateway)
		return
	}

	aqm.RedirectOrHeader(w, r, "/menu?deleted=1")
}
