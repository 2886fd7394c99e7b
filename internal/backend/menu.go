package backend

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/appetiteclub/posconsole/internal/catalog"
)

type menuResponse struct {
	Items []catalog.MenuItem `json:"items"`
}

// ListMenu fetches every menu item. The route is public.
func (c *Client) ListMenu(ctx context.Context) ([]catalog.MenuItem, error) {
	var resp menuResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/menu"}, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		resp.Items = []catalog.MenuItem{}
	}
	return resp.Items, nil
}

func (s *Session) CreateMenuItem(ctx context.Context, form catalog.MenuItemForm) (catalog.MenuItem, error) {
	return s.sendMenuItem(ctx, http.MethodPost, "/menu", form)
}

func (s *Session) UpdateMenuItem(ctx context.Context, id string, form catalog.MenuItemForm) (catalog.MenuItem, error) {
	return s.sendMenuItem(ctx, http.MethodPut, "/menu/"+url.PathEscape(id), form)
}

func (s *Session) DeleteMenuItem(ctx context.Context, id string) error {
	return s.do(ctx, request{method: http.MethodDelete, path: "/menu/" + url.PathEscape(id)}, nil)
}

func (s *Session) sendMenuItem(ctx context.Context, method, path string, form catalog.MenuItemForm) (catalog.MenuItem, error) {
	body, contentType, err := encodeMenuItem(form)
	if err != nil {
		return catalog.MenuItem{}, fmt.Errorf("encode menu item: %w", err)
	}

	var item catalog.MenuItem
	req := request{method: method, path: path, body: body, contentType: contentType}
	if err := s.do(ctx, req, &item); err != nil {
		return catalog.MenuItem{}, err
	}
	return item, nil
}

// encodeMenuItem builds the multipart body the backend expects. The image
// part is omitted when no new image was chosen.
func encodeMenuItem(form catalog.MenuItemForm) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	fields := []struct{ name, value string }{
		{"name", form.Name},
		{"description", form.Description},
		{"price", form.PriceAmount().String()},
		{"category", form.CategoryID},
		{"isAvailable", strconv.FormatBool(form.IsAvailable)},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	if form.Image != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, form.Image.Filename))
		header.Set("Content-Type", form.Image.ContentType)
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(form.Image.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf, w.FormDataContentType(), nil
}
