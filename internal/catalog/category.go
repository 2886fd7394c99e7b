package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Category groups menu items.
type Category struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// CategoryRef is how a menu item points at its category. The backend sends
// either the bare id or the populated category; both are normalized here so
// the rest of the console never inspects the raw shape.
type CategoryRef struct {
	id       string
	name     string
	resolved bool
}

// Reference builds an unresolved reference to a category id.
func Reference(id string) CategoryRef {
	return CategoryRef{id: id}
}

// Resolved builds a reference that already carries the category name.
func Resolved(id, name string) CategoryRef {
	return CategoryRef{id: id, name: name, resolved: true}
}

func (c CategoryRef) ID() string {
	return c.id
}

func (c CategoryRef) IsResolved() bool {
	return c.resolved
}

// Name returns the category name when the reference is resolved.
func (c CategoryRef) Name() (string, bool) {
	return c.name, c.resolved
}

// Label returns the category name, or fallback for unresolved references.
func (c CategoryRef) Label(fallback string) string {
	if c.resolved {
		return c.name
	}
	return fallback
}

// Resolve upgrades a reference using the known categories. References to
// unknown ids are returned unchanged.
func (c CategoryRef) Resolve(categories []Category) CategoryRef {
	for _, cat := range categories {
		if cat.ID == c.id {
			return Resolved(cat.ID, cat.Name)
		}
	}
	return c
}

func (c *CategoryRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = CategoryRef{}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return fmt.Errorf("category reference: %w", err)
		}
		*c = Reference(id)
		return nil
	case '{':
		var obj struct {
			MongoID string `json:"_id"`
			ID      string `json:"id"`
			Name    string `json:"name"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return fmt.Errorf("category reference: %w", err)
		}
		id := obj.MongoID
		if id == "" {
			id = obj.ID
		}
		if obj.Name == "" {
			*c = Reference(id)
			return nil
		}
		*c = Resolved(id, obj.Name)
		return nil
	default:
		return fmt.Errorf("category reference: unexpected JSON %s", string(trimmed))
	}
}

// MarshalJSON always emits the bare id, which is what the backend accepts.
func (c CategoryRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.id)
}

// CategoryNames maps category ids to names.
func CategoryNames(categories []Category) map[string]string {
	names := make(map[string]string, len(categories))
	for _, cat := range categories {
		names[cat.ID] = cat.Name
	}
	return names
}
