package schedule

import (
	"strings"
	"time"
)

// Task is the read-only view of a chore the engine works on.
type Task struct {
	ID              string
	Name            string
	Rule            Rule
	LastCompletedAt *time.Time
}

// Valid reports whether the task has an identity and a non-blank name.
func (t Task) Valid() bool {
	return t.ID != "" && strings.TrimSpace(t.Name) != ""
}

// NextDue resolves the task's rule; invalid tasks are never due.
func (t Task) NextDue(now time.Time) time.Time {
	if !t.Valid() {
		return Never
	}
	return NextDue(t.Rule, t.LastCompletedAt, now)
}

type Status int

const (
	Overdue Status = iota + 1
	DueToday
	Upcoming
	CompletedToday
)

func (s Status) String() string {
	switch s {
	case Overdue:
		return "overdue"
	case DueToday:
		return "due_today"
	case Upcoming:
		return "upcoming"
	case CompletedToday:
		return "completed_today"
	default:
		return "unknown"
	}
}

// Classify derives the dashboard status of t at now. The second result is
// false for invalid tasks, which are not classified at all.
func Classify(t Task, now time.Time) (Status, bool) {
	if !t.Valid() {
		return 0, false
	}
	if t.LastCompletedAt != nil && SameDay(*t.LastCompletedAt, now) {
		return CompletedToday, true
	}
	if t.LastCompletedAt == nil {
		return DueToday, true
	}

	switch d := DaysUntil(t.NextDue(now), now); {
	case d < 0:
		return Overdue, true
	case d == 0:
		return DueToday, true
	default:
		return Upcoming, true
	}
}
