package backend

import (
	"context"
	"net/http"

	"github.com/appetiteclub/posconsole/internal/reports"
)

func (s *Session) CurrentMonthReport(ctx context.Context) (reports.SalesReport, error) {
	return s.Report(ctx, reports.CurrentMonth())
}

func (s *Session) YearlyReport(ctx context.Context, year int) (reports.SalesReport, error) {
	return s.Report(ctx, reports.Yearly(year))
}

func (s *Session) CustomReport(ctx context.Context, start, end string) (reports.SalesReport, error) {
	r, err := reports.Custom(start, end)
	if err != nil {
		return reports.SalesReport{}, err
	}
	return s.Report(ctx, r)
}

// Report fetches the report selected by r.
func (s *Session) Report(ctx context.Context, r reports.Request) (reports.SalesReport, error) {
	path := "/reports/current-month"
	switch r.Type {
	case reports.TypeYearly:
		path = "/reports/yearly"
	case reports.TypeCustom:
		path = "/reports/custom"
	}

	var report reports.SalesReport
	if err := s.do(ctx, request{method: http.MethodGet, path: path, query: r.Query()}, &report); err != nil {
		return reports.SalesReport{}, err
	}
	return report, nil
}
