package reports

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the date format used by custom report queries.
const DateLayout = "2006-01-02"

var (
	ErrInvalidDate   = errors.New("dates must use the YYYY-MM-DD format")
	ErrInvertedRange = errors.New("start date must not be after end date")
	ErrInvalidYear   = errors.New("year must be a number")
)

// Request selects which report to fetch.
type Request struct {
	Type  Type
	Year  int
	Start time.Time
	End   time.Time
}

func CurrentMonth() Request {
	return Request{Type: TypeMonthly}
}

func Yearly(year int) Request {
	return Request{Type: TypeYearly, Year: year}
}

// Custom validates a custom date range given as YYYY-MM-DD strings.
func Custom(start, end string) (Request, error) {
	s, err := time.Parse(DateLayout, strings.TrimSpace(start))
	if err != nil {
		return Request{}, ErrInvalidDate
	}
	e, err := time.Parse(DateLayout, strings.TrimSpace(end))
	if err != nil {
		return Request{}, ErrInvalidDate
	}
	if s.After(e) {
		return Request{}, ErrInvertedRange
	}
	return Request{Type: TypeCustom, Start: s, End: e}, nil
}

// ParseRequest reads the report selection from query values. Unknown or
// missing ranges select the current month; a yearly report without a year
// uses the year of now.
func ParseRequest(q url.Values, now time.Time) (Request, error) {
	switch q.Get("range") {
	case string(TypeYearly):
		year := now.Year()
		if raw := strings.TrimSpace(q.Get("year")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				return Request{}, ErrInvalidYear
			}
			year = parsed
		}
		return Yearly(year), nil
	case string(TypeCustom):
		return Custom(q.Get("startDate"), q.Get("endDate"))
	default:
		return CurrentMonth(), nil
	}
}

// Query returns the backend query parameters for the request.
func (r Request) Query() url.Values {
	q := url.Values{}
	switch r.Type {
	case TypeYearly:
		q.Set("year", strconv.Itoa(r.Year))
	case TypeCustom:
		q.Set("startDate", r.Start.Format(DateLayout))
		q.Set("endDate", r.End.Format(DateLayout))
	}
	return q
}
