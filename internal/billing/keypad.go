package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Keypad keys besides the digits.
const (
	KeyPoint     = "."
	KeyBackspace = "back"
	KeyClear     = "clear"
)

// AmountEntry holds the amount typed on the payment keypad.
type AmountEntry struct {
	text string
	err  error
}

// NewAmountEntry restores an entry from previously typed text. Text that the
// keypad could not have produced is discarded.
func NewAmountEntry(text string) *AmountEntry {
	if !isKeypadText(text) {
		text = ""
	}
	return &AmountEntry{text: text}
}

// Text returns the typed text.
func (e *AmountEntry) Text() string {
	return e.text
}

// Err returns the last validation error, if any.
func (e *AmountEntry) Err() error {
	return e.err
}

// SetErr records a validation error while keeping the typed text.
func (e *AmountEntry) SetErr(err error) {
	e.err = err
}

// Press applies a digit or the decimal point. It reports whether key was
// recognized.
func (e *AmountEntry) Press(key string) bool {
	switch {
	case key == KeyPoint:
		if strings.Contains(e.text, KeyPoint) {
			return true
		}
		if e.text == "" {
			e.text = "0."
			return true
		}
		e.text += KeyPoint
		return true
	case len(key) == 1 && isDigit(key[0]):
		e.text += key
		return true
	default:
		return false
	}
}

// Backspace removes the last typed character.
func (e *AmountEntry) Backspace() {
	if e.text != "" {
		e.text = e.text[:len(e.text)-1]
	}
	e.err = nil
}

// Clear empties the entry and its error.
func (e *AmountEntry) Clear() {
	e.text = ""
	e.err = nil
}

// Apply dispatches any keypad key, including backspace and clear.
func (e *AmountEntry) Apply(key string) bool {
	switch key {
	case KeyBackspace:
		e.Backspace()
		return true
	case KeyClear:
		e.Clear()
		return true
	default:
		return e.Press(key)
	}
}

// Amount parses the typed text.
func (e *AmountEntry) Amount() (decimal.Decimal, error) {
	return ParseAmount(e.text)
}

// ParseAmount parses keypad text into an amount. Empty text, a lone point or
// anything other than digits with at most one point is invalid.
func ParseAmount(text string) (decimal.Decimal, error) {
	if !isKeypadText(text) || strings.Trim(text, KeyPoint) == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	normalized := strings.TrimSuffix(text, KeyPoint)
	if strings.HasPrefix(normalized, KeyPoint) {
		normalized = "0" + normalized
	}

	amount, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}

	return amount, nil
}

func isKeypadText(text string) bool {
	points := 0
	for i := 0; i < len(text); i++ {
		switch {
		case text[i] == '.':
			points++
			if points > 1 {
				return false
			}
		case isDigit(text[i]):
		default:
			return false
		}
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
