package storage

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"chores/internal/schedule"
)

// streakWindow bounds how far back a streak is counted.
const streakWindow = 30

// AddAssignee registers name. Registering a name twice is not an error.
func (s *Store) AddAssignee(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("assignee name is empty")
	}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO assignees (name, created_at) VALUES (?, ?);`,
		name, time.Now().Format(time.RFC3339))
	return err
}

// DeleteAssignee removes name from the registry and unassigns its chores.
func (s *Store) DeleteAssignee(name string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM assignees WHERE name = ?;`, strings.TrimSpace(name))
	if err := affected(res, err); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%q: %w", name, ErrUnknownAssignee)
		}
		return err
	}
	if _, err := tx.Exec(`UPDATE chores SET assigned_to = '' WHERE assigned_to = ? COLLATE NOCASE;`, strings.TrimSpace(name)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Assignees() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM assignees ORDER BY name;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// checkAssignee accepts any name while the registry is empty.
func (s *Store) checkAssignee(name string) error {
	if name == "" {
		return nil
	}
	var total, found int
	if err := s.db.QueryRow(`SELECT COUNT(*), COUNT(CASE WHEN name = ? THEN 1 END) FROM assignees;`, name).Scan(&total, &found); err != nil {
		return err
	}
	if total > 0 && found == 0 {
		return fmt.Errorf("%q: %w", name, ErrUnknownAssignee)
	}
	return nil
}

type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

func ParsePeriod(v string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(v))); p {
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q (want today, week, month or year)", v)
	}
}

// Start returns the first day of the period holding now. Weeks start on Monday.
func (p Period) Start(now time.Time) time.Time {
	day := schedule.StartOfDay(now)
	switch p {
	case PeriodWeek:
		return day.AddDate(0, 0, -int(schedule.WeekdayOf(day)))
	case PeriodMonth:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	case PeriodYear:
		return time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, day.Location())
	default:
		return day
	}
}

type PersonStats struct {
	Person         string
	Completed      int
	MonthCompleted int
	// MonthShare is the person's percentage of this month's completions.
	MonthShare float64
	Streak     int
}

// Stats counts completions per person since the start of period p. Every
// registered assignee is listed, with zeros if they have done nothing.
func (s *Store) Stats(p Period, now time.Time) ([]PersonStats, error) {
	since := p.Start(now).Format(dayLayout)
	monthStart := PeriodMonth.Start(now).Format(dayLayout)
	rows, err := s.db.Query(`SELECT done_by,
	COUNT(CASE WHEN done_day >= ? THEN 1 END),
	COUNT(CASE WHEN done_day >= ? THEN 1 END)
FROM chore_history WHERE done_by != '' GROUP BY done_by COLLATE NOCASE;`, since, monthStart)
	if err != nil {
		return nil, err
	}
	byPerson := map[string]*PersonStats{}
	var out []*PersonStats
	for rows.Next() {
		st := &PersonStats{}
		if err := rows.Scan(&st.Person, &st.Completed, &st.MonthCompleted); err != nil {
			rows.Close()
			return nil, err
		}
		byPerson[strings.ToLower(st.Person)] = st
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	names, err := s.Assignees()
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		if _, ok := byPerson[strings.ToLower(n)]; !ok {
			out = append(out, &PersonStats{Person: n})
		}
	}

	monthTotal := 0
	for _, st := range out {
		monthTotal += st.MonthCompleted
	}
	result := make([]PersonStats, 0, len(out))
	for _, st := range out {
		if monthTotal > 0 {
			st.MonthShare = math.Round(float64(st.MonthCompleted)/float64(monthTotal)*1000) / 10
		}
		if st.Streak, err = s.Streak(st.Person, now); err != nil {
			return nil, err
		}
		result = append(result, *st)
	}
	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].Person) < strings.ToLower(result[j].Person)
	})
	return result, nil
}

// Streak counts the consecutive days, ending on the day of now, on which
// person completed at least one chore.
func (s *Store) Streak(person string, now time.Time) (int, error) {
	today := schedule.StartOfDay(now)
	from := today.AddDate(0, 0, -(streakWindow - 1)).Format(dayLayout)
	rows, err := s.db.Query(`SELECT DISTINCT done_day FROM chore_history
WHERE done_by = ? COLLATE NOCASE AND done_day >= ? AND done_day <= ?;`, person, from, today.Format(dayLayout))
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	days := map[string]bool{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return 0, err
		}
		days[d] = true
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return countStreak(days, today), nil
}

func countStreak(days map[string]bool, today time.Time) int {
	n := 0
	for d := today; n < streakWindow && days[d.Format(dayLayout)]; d = d.AddDate(0, 0, -1) {
		n++
	}
	return n
}

// CompletionRate compares the completions of the last days days with the
// number the schedules ask for, as a percentage capped at 100. An empty
// person covers the whole household.
func (s *Store) CompletionRate(person string, days int, now time.Time) (float64, error) {
	if days <= 0 {
		days = 30
	}
	from := schedule.StartOfDay(now).AddDate(0, 0, -days).Format(dayLayout)
	query := `SELECT COUNT(*) FROM chore_history WHERE done_day > ?`
	args := []any{from}
	if person != "" {
		query += ` AND done_by = ? COLLATE NOCASE`
		args = append(args, person)
	}
	var completed int
	if err := s.db.QueryRow(query+`;`, args...).Scan(&completed); err != nil {
		return 0, err
	}

	chores, err := s.FetchChores()
	if err != nil {
		return 0, err
	}
	expected := 0.0
	for _, c := range chores {
		if person != "" && !strings.EqualFold(c.AssignedTo, person) {
			continue
		}
		rule, err := schedule.Decode(c.Rule)
		if err != nil {
			continue
		}
		expected += float64(days) / float64(schedule.ApproxDays(rule))
	}
	if expected == 0 {
		expected = 1
	}
	return math.Min(100, float64(completed)/expected*100), nil
}

// PruneHistory deletes completions recorded more than keepDays days before
// now and reports how many went.
func (s *Store) PruneHistory(keepDays int, now time.Time) (int64, error) {
	if keepDays <= 0 {
		return 0, errors.New("days to keep must be positive")
	}
	cutoff := schedule.StartOfDay(now).AddDate(0, 0, -keepDays).Format(dayLayout)
	res, err := s.db.Exec(`DELETE FROM chore_history WHERE done_day < ?;`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
