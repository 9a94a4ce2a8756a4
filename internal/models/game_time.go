// -----------------------------------------------------------------------
// Game Time - Simulated calendar position for the tick engine
// -----------------------------------------------------------------------

package models

import "fmt"

// Epoch values for a fresh world. Simulated time starts at year 1, month 1,
// and TotalMonths counts from 1 so the running-total invariant holds from
// the very first month.
const (
	EpochYear        = 1
	EpochMonth       = 1
	EpochTotalMonths = 1

	MonthsPerYear = 12
)

// GameTime is the simulated calendar position of the world. One tick moves
// it forward by exactly one month. TotalMonths is the running total since
// the epoch and must always equal (Year-1)*12 + Month.
type GameTime struct {
	Year        int `json:"year"`         // Simulated year, starts at 1
	Month       int `json:"month"`        // Simulated month, 1-12
	TotalMonths int `json:"total_months"` // Running month count since epoch
}

// EpochGameTime returns the starting time for a world with no persisted clock.
func EpochGameTime() GameTime {
	return GameTime{
		Year:        EpochYear,
		Month:       EpochMonth,
		TotalMonths: EpochTotalMonths,
	}
}

// Validate checks the calendar bounds and the running-total invariant.
func (t GameTime) Validate() error {
	if t.Year < 1 {
		return fmt.Errorf("year must be >= 1, got %d", t.Year)
	}
	if t.Month < 1 || t.Month > MonthsPerYear {
		return fmt.Errorf("month must be 1-%d, got %d", MonthsPerYear, t.Month)
	}
	if expected := (t.Year-1)*MonthsPerYear + t.Month; t.TotalMonths != expected {
		return fmt.Errorf("total months %d does not match year %d month %d (expected %d)",
			t.TotalMonths, t.Year, t.Month, expected)
	}
	return nil
}

// IsZero reports whether the time is the zero value (no persisted clock yet).
func (t GameTime) IsZero() bool {
	return t.Year == 0 && t.Month == 0 && t.TotalMonths == 0
}

// Before reports whether t is earlier than other.
func (t GameTime) Before(other GameTime) bool {
	return t.TotalMonths < other.TotalMonths
}

// String formats the time for logs, e.g. "Y3 M07 (T31)".
func (t GameTime) String() string {
	return fmt.Sprintf("Y%d M%02d (T%d)", t.Year, t.Month, t.TotalMonths)
}
