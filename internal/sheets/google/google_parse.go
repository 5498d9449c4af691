package google

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/core"
)

// required and optional header names, matching the CSV import format
const (
	colEmail    = "email"
	colDate     = "date"
	colActivity = "activity_type"
	colAmount   = "emission_kgco2e"
	colSource   = "source"
)

var errMissingHeader = errors.New("missing required column")

// parseRows maps a header-driven cell grid onto import rows. Column
// order is not significant; header names are exact-match.
func parseRows(values [][]any) ([]core.ImportRow, error) {
	if len(values) == 0 {
		return nil, nil
	}

	cols := make(map[string]int, len(values[0]))
	for i, cell := range values[0] {
		cols[strings.TrimSpace(cellString(cell))] = i
	}
	for _, required := range []string{colEmail, colDate, colActivity, colAmount} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %q", errMissingHeader, required)
		}
	}

	field := func(record []any, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(cellString(record[idx]))
	}

	rows := make([]core.ImportRow, 0, len(values)-1)
	for _, record := range values[1:] {
		if len(record) == 0 {
			continue
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

// cellString renders a sheet cell as text. The Sheets API returns
// strings for formatted values but numbers can arrive as float64.
func cellString(cell any) string {
	switch v := cell.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
