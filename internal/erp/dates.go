package erp

import "time"

// DateLayout is the date format the ERP query fields accept.
const DateLayout = "2006/01/02"

// FormatDate renders t as YYYY/MM/DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Today is now as YYYY/MM/DD.
func Today(now time.Time) string {
	return FormatDate(now)
}

// NextDay is the day after now.
func NextDay(now time.Time) string {
	return FormatDate(now.AddDate(0, 0, 1))
}

// DaysAgo is the date n days before now.
func DaysAgo(now time.Time, n int) string {
	return FormatDate(now.AddDate(0, 0, -n))
}

// IsMonday reports whether now falls on a Monday.
func IsMonday(now time.Time) bool {
	return now.Weekday() == time.Monday
}
