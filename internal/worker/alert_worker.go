package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/amqp"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/core"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/services"
)

// UserLister enumerates every stored user, for whole-population sweeps.
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]int64, error)
}

// AlertWorker watches recorded emissions and reports users whose
// running monthly total has gone over their configured limit.
type AlertWorker struct {
	summaries *services.SummaryService
	users     UserLister
}

func NewAlertWorker(summaries *services.SummaryService, users UserLister) *AlertWorker {
	return &AlertWorker{
		summaries: summaries,
		users:     users,
	}
}

// HandleEmissionEvent processes a single emission.recorded message from AMQP.
// The check runs against the month the emission was recorded for, not the
// current month, so backdated records trigger alerts for their own month.
func (w *AlertWorker) HandleEmissionEvent(ctx context.Context, msg *amqp.EmissionRecordedMessage) error {
	slog.InfoContext(ctx, "Processing emission event",
		"emission_id", msg.EmissionID,
		"user_id", msg.UserID,
		"date", msg.Date)

	refDate, err := core.ParseDate(msg.Date)
	if err != nil {
		// Bad date in a message is not retryable; log and drop.
		slog.ErrorContext(ctx, "Emission event carries unparseable date",
			"emission_id", msg.EmissionID,
			"date", msg.Date,
			"error", err)
		return nil
	}

	return w.checkUser(ctx, msg.UserID, refDate)
}

// SweepAll re-evaluates the current month for every user. This is a
// backup mechanism in case AMQP messages are lost.
func (w *AlertWorker) SweepAll(ctx context.Context) error {
	ids, err := w.users.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users for sweep: %w", err)
	}

	slog.InfoContext(ctx, "Starting limit sweep", "users", len(ids))

	errorCount := 0
	for _, id := range ids {
		if err := w.checkUser(ctx, id, core.Today()); err != nil {
			slog.ErrorContext(ctx, "Sweep check failed", "user_id", id, "error", err)
			errorCount++
		}
	}

	slog.InfoContext(ctx, "Limit sweep completed",
		"users", len(ids),
		"errors", errorCount)

	if errorCount > 0 {
		return fmt.Errorf("limit sweep: %d of %d users failed", errorCount, len(ids))
	}
	return nil
}

// RunPeriodicSweep runs SweepAll every interval until the context is
// cancelled. Sweep failures are logged and the loop keeps going.
func (w *AlertWorker) RunPeriodicSweep(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.SweepAll(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic sweep failed", "error", err)
			}
		}
	}
}

func (w *AlertWorker) checkUser(ctx context.Context, userID int64, refDate core.Date) error {
	user, report, err := w.summaries.MonthlyReportForUser(ctx, userID, refDate)
	if err != nil {
		return fmt.Errorf("monthly report for user %d: %w", userID, err)
	}

	if user.CarbonLimit == nil {
		slog.DebugContext(ctx, "User has no carbon limit configured", "user_id", userID)
		return nil
	}

	if report.LimitExceeded {
		slog.WarnContext(ctx, "Carbon limit exceeded",
			"user_id", userID,
			"email", user.Email,
			"month", refDate.FirstOfMonth().ISO(),
			"total_milligrams", report.Summary.Total.Milligrams,
			"limit_milligrams", user.CarbonLimit.Milligrams)
		return nil
	}

	slog.DebugContext(ctx, "User within carbon limit",
		"user_id", userID,
		"total_milligrams", report.Summary.Total.Milligrams,
		"limit_milligrams", user.CarbonLimit.Milligrams)
	return nil
}
