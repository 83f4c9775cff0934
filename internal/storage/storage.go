package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"chores/internal/schedule"
)

var (
	ErrNotFound        = errors.New("chore not found")
	ErrBadTimestamp    = errors.New("unreadable timestamp")
	ErrUnknownAssignee = errors.New("unknown assignee")
)

const dayLayout = "2006-01-02"

// timestampLayouts are tried in order. Values without an offset are read as
// local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	dayLayout,
}

type Chore struct {
	ID          string
	Name        string
	Rule        schedule.Fields
	AssignedTo  string
	Priority    int
	Description string
	LastDone    sql.NullTime
	LastDoneBy  string
	CreatedAt   time.Time
	// Err is set when a stored timestamp could not be read back. The chore
	// must not be classified.
	Err error
}

type ChoreInput struct {
	Name        string
	Rule        schedule.Rule
	AssignedTo  string
	Priority    int
	Description string
}

type Completion struct {
	ChoreID string
	DoneBy  string
	DoneAt  time.Time
}

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, err
		}
	}
	dsn := sqliteDSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", dbPath, err)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS chores (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	frequency_type TEXT NOT NULL DEFAULT 'every',
	frequency_days INTEGER NOT NULL DEFAULT 7,
	frequency_times INTEGER NOT NULL DEFAULT 1,
	weekday INTEGER NOT NULL DEFAULT -1,
	monthday INTEGER NOT NULL DEFAULT -1,
	start_month INTEGER NOT NULL DEFAULT 0,
	start_day INTEGER NOT NULL DEFAULT 1,
	last_done TEXT DEFAULT NULL,
	last_done_by TEXT DEFAULT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chore_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	chore_id TEXT NOT NULL,
	done_by TEXT NOT NULL DEFAULT '',
	done_at TEXT NOT NULL,
	done_day TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_chore ON chore_history(chore_id, done_day);
CREATE TABLE IF NOT EXISTS assignees (
	name TEXT PRIMARY KEY COLLATE NOCASE,
	created_at TEXT NOT NULL
);`
	if _, err := s.db.Exec(ddl); err != nil {
		return err
	}
	return s.ensureChoreColumns()
}

// ensureChoreColumns adds columns introduced after the first schema version.
func (s *Store) ensureChoreColumns() error {
	required := map[string]string{
		"active_days": "ALTER TABLE chores ADD COLUMN active_days TEXT NOT NULL DEFAULT '';",
		"assigned_to": "ALTER TABLE chores ADD COLUMN assigned_to TEXT NOT NULL DEFAULT '';",
		"priority":    "ALTER TABLE chores ADD COLUMN priority INTEGER NOT NULL DEFAULT 0;",
		"description": "ALTER TABLE chores ADD COLUMN description TEXT NOT NULL DEFAULT '';",
	}
	existing := map[string]struct{}{}
	rows, err := s.db.Query(`PRAGMA table_info(chores);`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			rows.Close()
			return err
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for col, alter := range required {
		if _, ok := existing[col]; ok {
			continue
		}
		if _, err := s.db.Exec(alter); err != nil {
			return fmt.Errorf("add column %s: %w", col, err)
		}
	}
	return nil
}

const choreColumns = `id, name, frequency_type, frequency_days, frequency_times, weekday, monthday,
	start_month, start_day, active_days, assigned_to, priority, description, last_done, last_done_by, created_at`

func (s *Store) FetchChores() ([]Chore, error) {
	rows, err := s.db.Query(`SELECT ` + choreColumns + ` FROM chores ORDER BY rowid;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chores []Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, err
		}
		chores = append(chores, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return chores, nil
}

func (s *Store) Chore(id string) (Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreColumns+` FROM chores WHERE id = ?;`, id)
	c, err := scanChore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Chore{}, ErrNotFound
	}
	return c, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChore(r scanner) (Chore, error) {
	var c Chore
	var lastStr, lastBy sql.NullString
	var createdStr string
	f := &c.Rule
	if err := r.Scan(&c.ID, &c.Name, &f.Kind, &f.Days, &f.Times, &f.Weekday, &f.MonthDay,
		&f.StartMonth, &f.StartDay, &f.ActiveDays, &c.AssignedTo, &c.Priority, &c.Description,
		&lastStr, &lastBy, &createdStr); err != nil {
		return Chore{}, err
	}
	var errs []error
	if lastStr.Valid && strings.TrimSpace(lastStr.String) != "" {
		last, err := parseTimestamp(lastStr.String)
		if err != nil {
			errs = append(errs, fmt.Errorf("last_done: %w", err))
		} else {
			c.LastDone = sql.NullTime{Time: last, Valid: true}
		}
	}
	c.LastDoneBy = lastBy.String
	created, err := parseTimestamp(createdStr)
	if err != nil {
		errs = append(errs, fmt.Errorf("created_at: %w", err))
	} else {
		c.CreatedAt = created
	}
	c.Err = errors.Join(errs...)
	return c, nil
}

func parseTimestamp(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return t.In(time.Local), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w %q", ErrBadTimestamp, v)
}

func (s *Store) AddChore(in ChoreInput) (Chore, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Chore{}, errors.New("chore name is empty")
	}
	if in.Rule == nil {
		in.Rule = schedule.CustomInterval{Days: schedule.DefaultIntervalDays}
	}
	if err := s.checkAssignee(in.AssignedTo); err != nil {
		return Chore{}, err
	}
	id := uuid.NewString()
	f := schedule.Encode(in.Rule)
	now := time.Now().Format(time.RFC3339)
	_, err := s.db.Exec(`INSERT INTO chores (id, name, frequency_type, frequency_days, frequency_times, weekday, monthday,
	start_month, start_day, active_days, assigned_to, priority, description, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		id, strings.TrimSpace(in.Name), f.Kind, f.Days, f.Times, f.Weekday, f.MonthDay,
		f.StartMonth, f.StartDay, f.ActiveDays, in.AssignedTo, in.Priority, in.Description, now)
	if err != nil {
		return Chore{}, err
	}
	return s.Chore(id)
}

func (s *Store) UpdateChore(id string, in ChoreInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("chore name is empty")
	}
	if in.Rule == nil {
		in.Rule = schedule.CustomInterval{Days: schedule.DefaultIntervalDays}
	}
	if err := s.checkAssignee(in.AssignedTo); err != nil {
		return err
	}
	f := schedule.Encode(in.Rule)
	res, err := s.db.Exec(`UPDATE chores SET name = ?, frequency_type = ?, frequency_days = ?, frequency_times = ?,
	weekday = ?, monthday = ?, start_month = ?, start_day = ?, active_days = ?, assigned_to = ?, priority = ?,
	description = ? WHERE id = ?;`,
		strings.TrimSpace(in.Name), f.Kind, f.Days, f.Times, f.Weekday, f.MonthDay, f.StartMonth, f.StartDay,
		f.ActiveDays, in.AssignedTo, in.Priority, in.Description, id)
	return affected(res, err)
}

// MarkDone records a completion by person at the given instant.
func (s *Store) MarkDone(id, person string, at time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE chores SET last_done = ?, last_done_by = ? WHERE id = ?;`,
		at.Format(time.RFC3339), person, id)
	if err := affected(res, err); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO chore_history (chore_id, done_by, done_at, done_day) VALUES (?, ?, ?, ?);`,
		id, person, at.Format(time.RFC3339), at.Format(dayLayout)); err != nil {
		return err
	}
	return tx.Commit()
}

// Reset forgets the last completion and drops the history entries made on
// the calendar day of now.
func (s *Store) Reset(id string, now time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE chores SET last_done = NULL, last_done_by = NULL WHERE id = ?;`, id)
	if err := affected(res, err); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM chore_history WHERE chore_id = ? AND done_day = ?;`, id, now.Format(dayLayout)); err != nil {
		return err
	}
	return tx.Commit()
}

// ForceDue backdates the last completion so the chore shows up as due.
// History is left untouched.
func (s *Store) ForceDue(id string, lastDone time.Time) error {
	res, err := s.db.Exec(`UPDATE chores SET last_done = ? WHERE id = ?;`, lastDone.Format(time.RFC3339), id)
	return affected(res, err)
}

func (s *Store) DeleteChore(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM chores WHERE id = ?;`, id)
	if err := affected(res, err); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM chore_history WHERE chore_id = ?;`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// History returns the most recent completions of a chore, newest first.
func (s *Store) History(id string, limit int) ([]Completion, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`SELECT chore_id, done_by, done_at FROM chore_history WHERE chore_id = ? ORDER BY id DESC LIMIT ?;`, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Completion
	for rows.Next() {
		var c Completion
		var doneStr string
		if err := rows.Scan(&c.ChoreID, &c.DoneBy, &doneStr); err != nil {
			return nil, err
		}
		doneAt, err := parseTimestamp(doneStr)
		if err != nil {
			return nil, fmt.Errorf("history of %s: %w", id, err)
		}
		c.DoneAt = doneAt
		out = append(out, c)
	}
	return out, rows.Err()
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
