// Package services hosts the ingestion and aggregation operations of
// the emissions engine. Services validate inputs, drive the record
// store, and publish events; all arithmetic lives in internal/core.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/amqp"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/core"
)

// EmissionService is the single-record ingestion path. It enforces the
// one-row-per-(user, date, activity) invariant via the store's upsert.
type EmissionService struct {
	store  EmissionStore
	events EventPublisher
}

func NewEmissionService(store EmissionStore, events EventPublisher) *EmissionService {
	return &EmissionService{store: store, events: events}
}

// SubmitResult tells the caller whether the submission created a new
// row or overwrote an existing one.
type SubmitResult struct {
	Created    bool
	EmissionID int64
}

// SubmitEmission records one reading for the user. A zero date means
// today. If a row for (user, date, activity) already exists, its amount
// is overwritten; source and creation time stay untouched.
func (s *EmissionService) SubmitEmission(ctx context.Context, userID int64, activityType string, amount core.Amount, date core.Date) (SubmitResult, error) {
	if date.IsZero() {
		date = core.Today()
	}
	activityType = strings.TrimSpace(activityType)

	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return SubmitResult{}, fmt.Errorf("resolve user %d: %w", userID, err)
	}

	e := core.Emission{
		UserID:       userID,
		Date:         date,
		ActivityType: activityType,
		Amount:       amount,
		Source:       core.SourceManual,
	}
	if err := e.Validate(); err != nil {
		return SubmitResult{}, err
	}

	created, id, err := s.store.UpsertEmission(ctx, e)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("upsert emission: %w", err)
	}

	slog.InfoContext(ctx, "Emission submitted",
		"user_id", userID,
		"date", date.ISO(),
		"activity_type", activityType,
		"amount_milligrams", amount.Milligrams,
		"created", created,
		"emission_id", id)

	s.publishRecorded(ctx, id, userID, date, core.SourceManual)

	return SubmitResult{Created: created, EmissionID: id}, nil
}

// RecordForUser is the unconstrained administrative insertion path. It
// bypasses the natural-key invariant on purpose, but it does verify the
// target user exists so no orphaned rows are written.
func (s *EmissionService) RecordForUser(ctx context.Context, userID int64, activityType string, amount core.Amount) (int64, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return 0, fmt.Errorf("resolve user %d: %w", userID, err)
	}

	e := core.Emission{
		UserID:       userID,
		Date:         core.Today(),
		ActivityType: strings.TrimSpace(activityType),
		Amount:       amount,
		Source:       core.SourceMockIoT,
	}
	if err := e.Validate(); err != nil {
		return 0, err
	}

	id, err := s.store.InsertEmission(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("insert emission: %w", err)
	}

	slog.InfoContext(ctx, "Admin emission recorded",
		"user_id", userID,
		"activity_type", e.ActivityType,
		"amount_milligrams", amount.Milligrams,
		"emission_id", id)

	s.publishRecorded(ctx, id, userID, e.Date, core.SourceMockIoT)

	return id, nil
}

// UpdateCarbonLimit sets the user's configured monthly limit; nil
// clears it.
func (s *EmissionService) UpdateCarbonLimit(ctx context.Context, userID int64, limit *core.Amount) error {
	if limit != nil {
		if err := limit.Validate(); err != nil {
			return err
		}
	}
	if err := s.store.UpdateCarbonLimit(ctx, userID, limit); err != nil {
		return fmt.Errorf("update carbon limit: %w", err)
	}
	slog.InfoContext(ctx, "Carbon limit updated", "user_id", userID, "has_limit", limit != nil)
	return nil
}

func (s *EmissionService) publishRecorded(ctx context.Context, emissionID, userID int64, date core.Date, source core.Source) {
	if s.events == nil {
		return
	}
	msg := amqp.NewEmissionRecordedMessage(emissionID, userID, date.ISO(), string(source))
	if err := s.events.PublishEmissionRecorded(ctx, msg); err != nil {
		// The durable write already happened; alerting is best-effort.
		slog.ErrorContext(ctx, "Failed to publish emission event",
			"emission_id", emissionID,
			"user_id", userID,
			"error", err)
	}
}
