package schedule

import "time"

// Never is the due date reported for tasks the engine refuses to schedule.
var Never = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// SameDay reports whether a and b fall on the same calendar day.
// Each value is read in its own location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func DaysIn(year int, month time.Month) int {
	// day 0 of the following month is the last day of month
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay pulls day into the valid range of the given month.
func ClampDay(year int, month time.Month, day int) int {
	if day < 1 {
		return 1
	}
	if n := DaysIn(year, month); day > n {
		return n
	}
	return day
}

// AddMonths moves t forward by n months and lands on day, clamped to the
// target month. Unlike time.AddDate it never spills into the month after.
func AddMonths(t time.Time, n int, day int) time.Time {
	y, m, _ := t.Date()
	idx := int(m) - 1 + n
	y += floorDiv(idx, 12)
	m = time.Month(idx-floorDiv(idx, 12)*12) + 1
	return time.Date(y, m, ClampDay(y, m, day), 0, 0, 0, 0, t.Location())
}

// DaysUntil counts calendar days from now to due; negative when due has passed.
func DaysUntil(due, now time.Time) int {
	dy, dm, dd := due.Date()
	ny, nm, nd := now.Date()
	a := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(a.Sub(b).Hours() / 24)
}

func addDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
