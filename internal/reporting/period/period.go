// Package period builds the calendar windows used for bucketing records.
package period

import (
	"fmt"
	"time"

	"github.com/smallbiznis/loobook/internal/reporting/domain"
)

const (
	MinYear = 1970
	MaxYear = 9999
)

func StartOfDay(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, value.Location())
}

// EndOfDay returns the last instant of the calendar day of value.
func EndOfDay(value time.Time) time.Time {
	return StartOfDay(value).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func StartOfMonth(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), 1, 0, 0, 0, 0, value.Location())
}

func EndOfMonth(value time.Time) time.Time {
	return StartOfMonth(value).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func ValidateMonth(year, month int) error {
	if year < MinYear || year > MaxYear {
		return domain.ErrInvalidYear
	}
	if month < 1 || month > 12 {
		return domain.ErrInvalidMonth
	}
	return nil
}

// MonthRange returns the inclusive range covering a calendar month.
func MonthRange(year, month int, loc *time.Location) (domain.DateRange, error) {
	if err := ValidateMonth(year, month); err != nil {
		return domain.DateRange{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return domain.DateRange{Start: start, End: EndOfMonth(start)}, nil
}

func PreviousMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// DayRange returns the inclusive range covering the calendar day of value.
func DayRange(value time.Time) domain.DateRange {
	return domain.DateRange{Start: StartOfDay(value), End: EndOfDay(value)}
}

// ShiftBack moves a range back by its own length so the result ends right
// before the original starts.
func ShiftBack(r domain.DateRange) domain.DateRange {
	length := r.End.Sub(r.Start)
	end := r.Start.Add(-time.Nanosecond)
	return domain.DateRange{Start: end.Add(-length), End: end}
}

func DayLabel(value time.Time) string {
	return value.Format("2006-01-02")
}

// WeekLabel formats the ISO week that contains value.
func WeekLabel(value time.Time) string {
	year, week := value.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

func MonthLabel(value time.Time) string {
	return value.Format("2006-01")
}
