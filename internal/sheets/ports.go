// Package sheets defines the port for tabular bulk-import sources.
package sheets

import (
	"context"

	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/core"
)

// ImportSource yields raw import rows from a tabular backend. Rows come
// back unparsed; the import service owns validation and failure policy.
type ImportSource interface {
	ReadRows(ctx context.Context) ([]core.ImportRow, error)
}
