package catalog

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// AllCategories selects every menu item when filtering.
const AllCategories = "all"

// MenuItem is a dish or drink offered on the menu.
type MenuItem struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    CategoryRef     `json:"category"`
	IsAvailable bool            `json:"isAvailable"`
}

// ResolveCategories returns items whose category references carry names
// where the category is known.
func ResolveCategories(items []MenuItem, categories []Category) []MenuItem {
	resolved := make([]MenuItem, len(items))
	for i, item := range items {
		item.Category = item.Category.Resolve(categories)
		resolved[i] = item
	}
	return resolved
}

// FilterByCategory keeps the items of one category, or all of them for
// AllCategories or an empty id. The result is sorted by item id.
func FilterByCategory(items []MenuItem, categoryID string) []MenuItem {
	filtered := make([]MenuItem, 0, len(items))
	for _, item := range items {
		if categoryID == "" || categoryID == AllCategories || item.Category.ID() == categoryID {
			filtered = append(filtered, item)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].ID < filtered[j].ID
	})

	return filtered
}

// AssetURL joins a stored image path to the asset base URL. Windows-style
// separators written by the backend are normalized.
func AssetURL(base, imagePath string) string {
	if imagePath == "" {
		return ""
	}
	normalized := strings.ReplaceAll(imagePath, `\`, "/")
	normalized = strings.TrimPrefix(normalized, "/")
	return strings.TrimSuffix(base, "/") + "/" + normalized
}
