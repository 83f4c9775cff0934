// Package board turns a snapshot of stored chores into the dashboard
// sections shown to the household.
package board

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"chores/internal/schedule"
	"chores/internal/storage"
)

type Item struct {
	Chore     storage.Chore
	Rule      schedule.Rule
	Status    schedule.Status
	Due       time.Time
	DaysUntil int
}

type Skipped struct {
	Chore storage.Chore
	Err   error
}

type Board struct {
	Now            time.Time
	Overdue        []Item
	DueToday       []Item
	Upcoming       []Item
	CompletedToday []Item
	Skipped        []Skipped
}

// Build classifies every chore against the single instant now. A chore
// with an unreadable timestamp or rule is logged and set aside; the others
// are still classified. Chores without an id or name are dropped silently.
func Build(chores []storage.Chore, now time.Time, log *zap.Logger) Board {
	if log == nil {
		log = zap.NewNop()
	}
	b := Board{Now: now}
	for _, c := range chores {
		if c.Err != nil {
			log.Warn("skipping chore with unreadable data",
				zap.String("chore_id", c.ID),
				zap.String("name", c.Name),
				zap.Error(c.Err))
			b.Skipped = append(b.Skipped, Skipped{Chore: c, Err: c.Err})
			continue
		}
		rule, err := schedule.Decode(c.Rule)
		if err != nil {
			log.Warn("skipping chore with unreadable rule",
				zap.String("chore_id", c.ID),
				zap.String("name", c.Name),
				zap.Error(err))
			b.Skipped = append(b.Skipped, Skipped{Chore: c, Err: err})
			continue
		}
		task := TaskOf(c, rule)
		status, ok := schedule.Classify(task, now)
		if !ok {
			continue
		}
		due := task.NextDue(now)
		item := Item{
			Chore:     c,
			Rule:      rule,
			Status:    status,
			Due:       due,
			DaysUntil: schedule.DaysUntil(due, now),
		}
		switch status {
		case schedule.Overdue:
			b.Overdue = append(b.Overdue, item)
		case schedule.DueToday:
			b.DueToday = append(b.DueToday, item)
		case schedule.Upcoming:
			b.Upcoming = append(b.Upcoming, item)
		case schedule.CompletedToday:
			b.CompletedToday = append(b.CompletedToday, item)
		}
	}
	for _, section := range [][]Item{b.Overdue, b.DueToday, b.Upcoming, b.CompletedToday} {
		sortItems(section)
	}
	return b
}

func TaskOf(c storage.Chore, rule schedule.Rule) schedule.Task {
	t := schedule.Task{ID: c.ID, Name: c.Name, Rule: rule}
	if c.LastDone.Valid {
		last := c.LastDone.Time
		t.LastCompletedAt = &last
	}
	return t
}

// Items lists the sections in display order.
func (b Board) Items() []Item {
	out := make([]Item, 0, b.Len())
	out = append(out, b.Overdue...)
	out = append(out, b.DueToday...)
	out = append(out, b.Upcoming...)
	out = append(out, b.CompletedToday...)
	return out
}

// Pending groups the overdue and due-today chores by assignee, overdue
// first. Unassigned chores are keyed by "".
func (b Board) Pending() map[string][]Item {
	out := map[string][]Item{}
	for _, section := range [][]Item{b.Overdue, b.DueToday} {
		for _, it := range section {
			out[it.Chore.AssignedTo] = append(out[it.Chore.AssignedTo], it)
		}
	}
	return out
}

func (b Board) Len() int {
	return len(b.Overdue) + len(b.DueToday) + len(b.Upcoming) + len(b.CompletedToday)
}

func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !schedule.SameDay(a.Due, b.Due) {
			return a.Due.Before(b.Due)
		}
		if a.Chore.Priority != b.Chore.Priority {
			return a.Chore.Priority > b.Chore.Priority
		}
		return strings.ToLower(a.Chore.Name) < strings.ToLower(b.Chore.Name)
	})
}

// ForceDueDate picks a last-completion date that makes a chore governed by
// rule come due on or before the day of now. It starts one nominal period
// back and steps further back for anchored rules that would land later.
func ForceDueDate(rule schedule.Rule, now time.Time) time.Time {
	last := schedule.StartOfDay(now).AddDate(0, 0, -schedule.ApproxDays(rule))
	for i := 0; i < 400; i++ {
		if schedule.DaysUntil(schedule.NextDue(rule, &last, now), now) <= 0 {
			break
		}
		last = last.AddDate(0, 0, -1)
	}
	return last
}
