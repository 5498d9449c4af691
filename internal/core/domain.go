package core

import (
	"errors"
	"strings"
	"time"
)

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"

	SourceManual    Source = "manual"
	SourceMockIoT   Source = "mock_iot"
	SourceCSVImport Source = "csv_import"
)

type (
	Role string

	Source string

	Date struct {
		time.Time
	}

	// Amount is a quantity of emitted CO2 equivalent, held as integer
	// milligrams so that aggregation is exact and a sub-gram excess
	// still compares strictly against a limit.
	Amount struct {
		Milligrams int64
	}

	User struct {
		ID       int64
		FullName string
		Email    string
		Role     Role
		// CarbonLimit is the configured monthly budget in kgCO2e;
		// nil means no limit is enforced for this user.
		CarbonLimit  *Amount
		RegisteredAt time.Time
	}

	Emission struct {
		ID           int64
		UserID       int64
		Date         Date
		ActivityType string
		Amount       Amount
		Source       Source
		CreatedAt    time.Time
	}

	// ImportRow is one unparsed line of a bulk import, exactly as it
	// arrived from the tabular source. Parsing happens during import.
	ImportRow struct {
		Email        string
		Date         string
		ActivityType string
		Amount       string
		Source       string
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidSource = errors.New("invalid source")
	ErrEmptyActivity = errors.New("empty activity type")
	ErrUserNotFound  = errors.New("user not found")
)

// NewDate creates a Date for the given calendar day, UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar day.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// ISO renders the date as YYYY-MM-DD, the key format used in daily
// breakdowns and the wire format for imports.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// FirstOfMonth returns the first calendar day of d's month.
func (d Date) FirstOfMonth() Date {
	return NewDate(d.Year(), int(d.Month()), 1)
}

// Validate rejects negative quantities. Zero is a legitimate reading.
func (a Amount) Validate() error {
	if a.Milligrams < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceMockIoT, SourceCSVImport:
		return true
	}
	return false
}

func (e Emission) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.ActivityType)) == 0 {
		return ErrEmptyActivity
	}
	if len(e.ActivityType) > 50 {
		return errors.New("activity type too long (max 50 characters)")
	}
	if !e.Source.Valid() {
		return ErrInvalidSource
	}
	return e.Amount.Validate()
}
