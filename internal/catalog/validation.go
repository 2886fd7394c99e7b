package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultMaxImageBytes caps uploaded menu images.
const DefaultMaxImageBytes int64 = 5 * 1024 * 1024

var (
	ErrEmptyName     = errors.New("please enter a category name")
	ErrDuplicateName = errors.New("a category with this name already exists")
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors joins field errors into a single error value.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// ImageUpload is an image received from the menu item form.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (i *ImageUpload) Size() int64 {
	if i == nil {
		return 0
	}
	return int64(len(i.Data))
}

// MenuItemForm carries the raw menu item form fields.
type MenuItemForm struct {
	Name        string
	Description string
	Price       string
	CategoryID  string
	IsAvailable bool
	Image       *ImageUpload
}

// PriceAmount parses the price field. Callers validate first.
func (f MenuItemForm) PriceAmount() decimal.Decimal {
	price, err := decimal.NewFromString(strings.TrimSpace(f.Price))
	if err != nil {
		return decimal.Zero
	}
	return price
}

// ValidateCategoryName trims name and checks it is not empty and not used by
// another category. selfID is the category being edited, if any.
func ValidateCategoryName(name string, existing []Category, selfID string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrEmptyName
	}

	for _, cat := range existing {
		if cat.ID == selfID {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(cat.Name), trimmed) {
			return "", ErrDuplicateName
		}
	}

	return trimmed, nil
}

// ValidateMenuItem validates a menu item form. An image is mandatory only when
// creating; when present it must be an image within maxImageBytes.
func ValidateMenuItem(form MenuItemForm, creating bool, maxImageBytes int64) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(form.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "name is required",
		})
	}

	price := strings.TrimSpace(form.Price)
	if price == "" {
		errs = append(errs, ValidationError{
			Field:   "price",
			Message: "price is required",
		})
	} else if amount, err := decimal.NewFromString(price); err != nil {
		errs = append(errs, ValidationError{
			Field:   "price",
			Message: "price must be a number",
		})
	} else if !amount.IsPositive() {
		errs = append(errs, ValidationError{
			Field:   "price",
			Message: "price must be greater than zero",
		})
	}

	if strings.TrimSpace(form.CategoryID) == "" {
		errs = append(errs, ValidationError{
			Field:   "category",
			Message: "category is required",
		})
	}

	if form.Image == nil {
		if creating {
			errs = append(errs, ValidationError{
				Field:   "image",
				Message: "please upload an image",
			})
		}
		return errs
	}

	if !strings.HasPrefix(form.Image.ContentType, "image/") {
		errs = append(errs, ValidationError{
			Field:   "image",
			Message: "please upload an image file",
		})
	}

	if maxImageBytes <= 0 {
		maxImageBytes = DefaultMaxImageBytes
	}
	if form.Image.Size() > maxImageBytes {
		errs = append(errs, ValidationError{
			Field:   "image",
			Message: fmt.Sprintf("image size cannot exceed %dMB", maxImageBytes/(1024*1024)),
		})
	}

	return errs
}
