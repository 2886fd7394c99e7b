package console

import (
	"strings"
	"time"

	"github.com/appetiteclub/posconsole/internal/billing"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

// formatMoney renders an amount as dollars with thousands separators.
func formatMoney(amount decimal.Decimal) string {
	rounded := billing.RoundToCents(amount)
	if rounded.IsNegative() {
		return "-" + moneyPrinter.Sprintf("$%.2f", rounded.Neg().InexactFloat64())
	}
	return moneyPrinter.Sprintf("$%.2f", rounded.InexactFloat64())
}

func formatCount(n int) string {
	return moneyPrinter.Sprintf("%d", n)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("Jan 2, 2006")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("02 Jan 15:04")
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return formatCount(n) + " " + singular
	}
	return formatCount(n) + " " + plural
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
