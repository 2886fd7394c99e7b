package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/appetiteclub/posconsole/internal/catalog"
)

type categoryPayload struct {
	Name string `json:"name"`
}

func (s *Session) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var categories []catalog.Category
	if err := s.do(ctx, request{method: http.MethodGet, path: "/categories"}, &categories); err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []catalog.Category{}
	}
	return categories, nil
}

func (s *Session) CreateCategory(ctx context.Context, name string) (catalog.Category, error) {
	req, err := jsonRequest(http.MethodPost, "/categories", categoryPayload{Name: name})
	if err != nil {
		return catalog.Category{}, err
	}

	var created catalog.Category
	if err := s.do(ctx, req, &created); err != nil {
		return catalog.Category{}, err
	}
	return created, nil
}

func (s *Session) UpdateCategory(ctx context.Context, id, name string) (catalog.Category, error) {
	req, err := jsonRequest(http.MethodPut, "/categories/"+url.PathEscape(id), categoryPayload{Name: name})
	if err != nil {
		return catalog.Category{}, err
	}

	var updated catalog.Category
	if err := s.do(ctx, req, &updated); err != nil {
		return catalog.Category{}, err
	}
	return updated, nil
}

func (s *Session) DeleteCategory(ctx context.Context, id string) error {
	return s.do(ctx, request{method: http.MethodDelete, path: "/categories/" + url.PathEscape(id)}, nil)
}
