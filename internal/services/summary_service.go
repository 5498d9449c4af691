package services

import (
	"context"
	"fmt"

	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/core"
)

// SummaryService aggregates stored emissions into monthly views and
// evaluates the configured limit. Reads take no lock; a summary may
// observe a snapshot concurrent with in-flight writes.
type SummaryService struct {
	store SummaryStore
}

func NewSummaryService(store SummaryStore) *SummaryService {
	return &SummaryService{store: store}
}

// Report is the aggregate view handed to the rendering layer.
type Report struct {
	Summary       core.MonthlySummary
	CarbonLimit   *core.Amount
	LimitExceeded bool
}

// Overview is the administrative statistics block.
type Overview struct {
	Users         int64
	Emissions     int64
	MockDataCount int64
}

// MonthlyReport aggregates a user's emissions from the first of
// refDate's month onward (no upper bound, so future-dated corrections
// count) and evaluates the supplied limit. A zero refDate means the
// current month.
func (s *SummaryService) MonthlyReport(ctx context.Context, userID int64, limit *core.Amount, refDate core.Date) (Report, error) {
	if refDate.IsZero() {
		refDate = core.Today()
	}

	emissions, err := s.store.ListEmissionsSince(ctx, userID, refDate.FirstOfMonth())
	if err != nil {
		return Report{}, fmt.Errorf("list emissions: %w", err)
	}

	summary := core.Summarize(emissions)
	return Report{
		Summary:       summary,
		CarbonLimit:   limit,
		LimitExceeded: core.EvaluateLimit(summary.Total, limit),
	}, nil
}

// MonthlyReportForUser is MonthlyReport against the limit currently
// stored for the user, for callers that hold no principal (the alert
// worker).
func (s *SummaryService) MonthlyReportForUser(ctx context.Context, userID int64, refDate core.Date) (core.User, Report, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return core.User{}, Report{}, fmt.Errorf("resolve user %d: %w", userID, err)
	}
	report, err := s.MonthlyReport(ctx, userID, user.CarbonLimit, refDate)
	if err != nil {
		return core.User{}, Report{}, err
	}
	return user, report, nil
}

// AdminOverview returns the counters shown on the admin panel.
func (s *SummaryService) AdminOverview(ctx context.Context) (Overview, error) {
	users, err := s.store.CountUsers(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("count users: %w", err)
	}
	emissions, err := s.store.CountEmissions(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("count emissions: %w", err)
	}
	mock, err := s.store.CountEmissionsBySource(ctx, core.SourceMockIoT)
	if err != nil {
		return Overview{}, fmt.Errorf("count mock data: %w", err)
	}
	return Overview{Users: users, Emissions: emissions, MockDataCount: mock}, nil
}
