// Package usage reports embedding token consumption against the configured budget.
package usage

import (
	"context"
	"fmt"
	"time"
)

// Period selects the reporting window.
type Period string

const (
	// PeriodDay reports the current UTC day.
	PeriodDay Period = "day"
	// PeriodMonth reports the current UTC month.
	PeriodMonth Period = "month"
)

// ParsePeriod validates a period string. Empty defaults to day.
func ParsePeriod(s string) (Period, error) {
	switch s {
	case "", string(PeriodDay):
		return PeriodDay, nil
	case string(PeriodMonth):
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("period must be %q or %q, got %q", PeriodDay, PeriodMonth, s)
	}
}

// Report describes token consumption for one budget window.
type Report struct {
	Period          Period
	WindowStart     time.Time
	WindowEnd       time.Time
	TokensUsed      int64
	TokenLimit      int64 // 0 = unlimited
	TokensRemaining int64 // -1 = unlimited
	Exhausted       bool
}

// Service handles usage reporting.
type Service struct {
	br BudgetReader
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader) *Service {
	return &Service{br: br}
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period Period) Report {
	now := time.Now().UTC()
	var start, end time.Time
	var limit, used, remaining int64

	switch period {
	case PeriodMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
		if s.br != nil {
			limit = s.br.MonthlyLimit()
			used = s.br.MonthlyUsed()
			remaining = s.br.RemainingMonthly()
		}
	default:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		end = start.Add(24 * time.Hour)
		period = PeriodDay
		if s.br != nil {
			limit = s.br.DailyLimit()
			used = s.br.DailyUsed()
			remaining = s.br.RemainingDaily()
		}
	}

	return Report{
		Period:          period,
		WindowStart:     start,
		WindowEnd:       end,
		TokensUsed:      used,
		TokenLimit:      limit,
		TokensRemaining: remaining,
		Exhausted:       limit > 0 && remaining <= 0,
	}
}
