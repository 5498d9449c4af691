package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/amqp"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/core"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/storage"
)

var ErrMissingColumn = errors.New("missing required column")

// ImportService is the bulk ingestion path. Its failure policy differs
// from single-record submission: a malformed date or amount aborts the
// whole batch with nothing committed, while an unknown email only skips
// that row. Inserts are unconditional, so this path can create
// duplicate natural keys; the divergence from SubmitEmission is
// documented and deliberate.
type ImportService struct {
	store  ImportStore
	events EventPublisher
}

func NewImportService(store ImportStore, events EventPublisher) *ImportService {
	return &ImportService{store: store, events: events}
}

// ImportBatch applies rows in order within one transaction and returns
// how many were inserted. Skipped rows are not counted and not errors.
func (s *ImportService) ImportBatch(ctx context.Context, rows []core.ImportRow) (int, error) {
	inserted := 0
	var recorded []*amqp.EmissionRecordedMessage

	err := s.store.WithinImportTx(ctx, func(scope storage.ImportScope) error {
		for i, row := range rows {
			date, err := core.ParseDate(row.Date)
			if err != nil {
				return fmt.Errorf("row %d: date %q: %w", i+1, row.Date, err)
			}
			amount, err := core.ParseAmount(row.Amount)
			if err != nil {
				return fmt.Errorf("row %d: amount %q: %w", i+1, row.Amount, err)
			}

			user, err := scope.FindUserByEmail(ctx, row.Email)
			if errors.Is(err, core.ErrUserNotFound) {
				slog.WarnContext(ctx, "Skipping import row for unknown user",
					"row", i+1,
					"email", row.Email)
				continue
			}
			if err != nil {
				return fmt.Errorf("row %d: resolve %q: %w", i+1, row.Email, err)
			}

			source := core.Source(row.Source)
			if row.Source == "" {
				source = core.SourceMockIoT
			}

			e := core.Emission{
				UserID:       user.ID,
				Date:         date,
				ActivityType: row.ActivityType,
				Amount:       amount,
				Source:       source,
			}
			if err := e.Validate(); err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}

			id, err := scope.InsertEmission(ctx, e)
			if err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			inserted++
			recorded = append(recorded, amqp.NewEmissionRecordedMessage(id, user.ID, date.ISO(), string(source)))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	// Events go out only after the batch committed.
	if s.events != nil {
		for _, msg := range recorded {
			if err := s.events.PublishEmissionRecorded(ctx, msg); err != nil {
				slog.ErrorContext(ctx, "Failed to publish emission event",
					"emission_id", msg.EmissionID,
					"error", err)
			}
		}
	}

	slog.InfoContext(ctx, "Batch import committed",
		"rows", len(rows),
		"inserted", inserted,
		"skipped", len(rows)-inserted)

	return inserted, nil
}

// csv column headers, exact-match per the import format
const (
	colEmail    = "email"
	colDate     = "date"
	colActivity = "activity_type"
	colAmount   = "emission_kgco2e"
	colSource   = "source"
)

// ParseCSVRows reads a header-driven CSV into import rows. Column order
// is not significant; email, date, activity_type and emission_kgco2e
// are required, source is optional.
func ParseCSVRows(r io.Reader) ([]core.ImportRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{colEmail, colDate, colActivity, colAmount} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, required)
		}
	}

	field := func(record []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	var rows []core.ImportRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		rows = append(rows, core.ImportRow{
			Email:        field(record, colEmail),
			Date:         field(record, colDate),
			ActivityType: field(record, colActivity),
			Amount:       field(record, colAmount),
			Source:       field(record, colSource),
		})
	}
	return rows, nil
}
