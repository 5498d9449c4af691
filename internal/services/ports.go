package services

import (
	"context"

	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/amqp"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/core"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/storage"
)

// Ports over the record store, one per consumer.
type (
	// EmissionStore is what single-record ingestion needs.
	EmissionStore interface {
		GetUser(ctx context.Context, id int64) (core.User, error)
		UpsertEmission(ctx context.Context, e core.Emission) (created bool, id int64, err error)
		InsertEmission(ctx context.Context, e core.Emission) (int64, error)
		UpdateCarbonLimit(ctx context.Context, userID int64, limit *core.Amount) error
	}

	// ImportStore provides the transactional scope for bulk imports.
	ImportStore interface {
		WithinImportTx(ctx context.Context, fn func(storage.ImportScope) error) error
	}

	// SummaryStore serves aggregation reads and admin statistics.
	SummaryStore interface {
		GetUser(ctx context.Context, id int64) (core.User, error)
		ListEmissionsSince(ctx context.Context, userID int64, from core.Date) ([]core.Emission, error)
		CountUsers(ctx context.Context) (int64, error)
		CountEmissions(ctx context.Context) (int64, error)
		CountEmissionsBySource(ctx context.Context, source core.Source) (int64, error)
	}

	// EventPublisher emits emission.recorded events. A nil publisher
	// degrades to local-only operation.
	EventPublisher interface {
		PublishEmissionRecorded(ctx context.Context, msg *amqp.EmissionRecordedMessage) error
	}
)
