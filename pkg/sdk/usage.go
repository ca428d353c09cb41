package lexrag

import (
	"context"
	"time"

	usageuc "github.com/atrium-law/lexrag/internal/usecase/usage"
)

// UsagePeriod is the aggregation window for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
)

// UsageReport contains embedding token consumption for one window.
// The embedded client tracks no budget, so limits report as unlimited;
// the type mirrors the server API for callers shared between both.
type UsageReport struct {
	Period          UsagePeriod
	WindowStart     time.Time
	WindowEnd       time.Time
	TokensUsed      int64
	TokenLimit      int64 // 0 = unlimited
	TokensRemaining int64 // -1 = unlimited
	Exhausted       bool
}

// Usage returns an embedding usage report for the given period.
// Observer always records success — the underlying use-case is
// in-memory and does not produce errors.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) UsageReport {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, nil) }()

	report := c.usageSvc.GetReport(ctx, usageuc.Period(period))
	return UsageReport{
		Period:          UsagePeriod(report.Period),
		WindowStart:     report.WindowStart,
		WindowEnd:       report.WindowEnd,
		TokensUsed:      report.TokensUsed,
		TokenLimit:      report.TokenLimit,
		TokensRemaining: report.TokensRemaining,
		Exhausted:       report.Exhausted,
	}
}

// usageUseCase is the internal interface for usage reports.
type usageUseCase interface {
	GetReport(ctx context.Context, period usageuc.Period) usageuc.Report
}
