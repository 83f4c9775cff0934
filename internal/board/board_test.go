package board

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"chores/internal/schedule"
	"chores/internal/storage"
)

func chore(id, name string, r schedule.Rule, last *time.Time) storage.Chore {
	c := storage.Chore{ID: id, Name: name, Rule: schedule.Encode(r)}
	if last != nil {
		c.LastDone = sql.NullTime{Time: *last, Valid: true}
	}
	return c
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 9, 0, 0, 0, time.Local)
	return &t
}

func TestBuild_Sections(t *testing.T) {
	now := time.Date(2024, time.March, 11, 12, 0, 0, 0, time.Local)
	chores := []storage.Chore{
		chore("1", "Dishes", schedule.Daily{}, date(2024, time.March, 10)),
		chore("2", "Bins", schedule.Weekly{}, date(2024, time.March, 1)),
		chore("3", "Windows", schedule.Monthly{}, date(2024, time.March, 1)),
		chore("4", "Laundry", schedule.CustomInterval{Days: 3}, date(2024, time.March, 11)),
		chore("5", "Plants", schedule.Weekly{}, nil),
	}

	b := Build(chores, now, nil)

	ids := func(items []Item) []string {
		var out []string
		for _, it := range items {
			out = append(out, it.Chore.ID)
		}
		return out
	}
	assert.Equal(t, []string{"2"}, ids(b.Overdue))
	assert.Equal(t, []string{"1", "5"}, ids(b.DueToday))
	assert.Equal(t, []string{"3"}, ids(b.Upcoming))
	assert.Equal(t, []string{"4"}, ids(b.CompletedToday))
	assert.Equal(t, 5, b.Len())
	assert.Len(t, b.Items(), 5)
	assert.Equal(t, -3, b.Overdue[0].DaysUntil)
	assert.Equal(t, 21, b.Upcoming[0].DaysUntil)
}

func TestBuild_IsolatesCorruptedChores(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	now := time.Date(2024, time.March, 11, 12, 0, 0, 0, time.Local)

	bad := chore("bad", "Mystery", schedule.Daily{}, nil)
	bad.Rule.Kind = "fortnightly"
	chores := []storage.Chore{
		bad,
		chore("blank", "   ", schedule.Daily{}, nil),
		chore("ok", "Dishes", schedule.Daily{}, date(2024, time.March, 10)),
	}

	b := Build(chores, now, zap.New(core))

	require.Len(t, b.Skipped, 1)
	assert.Equal(t, "bad", b.Skipped[0].Chore.ID)
	assert.ErrorIs(t, b.Skipped[0].Err, schedule.ErrUnknownKind)
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, "ok", b.DueToday[0].Chore.ID)

	entries := logs.FilterField(zap.String("chore_id", "bad")).All()
	assert.Len(t, entries, 1)
}

func TestBuild_SkipsChoresWithUnreadableTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chores.db")
	store, err := storage.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	naive, err := store.AddChore(storage.ChoreInput{Name: "Dishes", Rule: schedule.Daily{}})
	require.NoError(t, err)
	broken, err := store.AddChore(storage.ChoreInput{Name: "Gutters", Rule: schedule.Daily{}})
	require.NoError(t, err)

	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer raw.Close()
	_, err = raw.Exec(`UPDATE chores SET last_done = '2024-03-10 09:00:00' WHERE id = ?;`, naive.ID)
	require.NoError(t, err)
	_, err = raw.Exec(`UPDATE chores SET last_done = 'last tuesday' WHERE id = ?;`, broken.ID)
	require.NoError(t, err)

	chores, err := store.FetchChores()
	require.NoError(t, err)

	core, logs := observer.New(zap.WarnLevel)
	now := time.Date(2024, time.March, 20, 12, 0, 0, 0, time.Local)
	b := Build(chores, now, zap.New(core))

	require.Len(t, b.Overdue, 1)
	assert.Equal(t, naive.ID, b.Overdue[0].Chore.ID)
	assert.Equal(t, -9, b.Overdue[0].DaysUntil)
	assert.Empty(t, b.DueToday)

	require.Len(t, b.Skipped, 1)
	assert.Equal(t, broken.ID, b.Skipped[0].Chore.ID)
	assert.ErrorIs(t, b.Skipped[0].Err, storage.ErrBadTimestamp)
	assert.Len(t, logs.FilterField(zap.String("chore_id", broken.ID)).All(), 1)
}

func TestPending(t *testing.T) {
	now := time.Date(2024, time.March, 11, 12, 0, 0, 0, time.Local)
	bins := chore("1", "Bins", schedule.Weekly{}, date(2024, time.March, 1))
	bins.AssignedTo = "kim"
	dishes := chore("2", "Dishes", schedule.Daily{}, date(2024, time.March, 10))
	dishes.AssignedTo = "kim"
	lawn := chore("3", "Lawn", schedule.Daily{}, nil)
	done := chore("4", "Laundry", schedule.Daily{}, date(2024, time.March, 11))
	done.AssignedTo = "sam"

	pending := Build([]storage.Chore{dishes, lawn, bins, done}, now, nil).Pending()

	require.Len(t, pending, 2)
	require.Len(t, pending["kim"], 2)
	assert.Equal(t, "1", pending["kim"][0].Chore.ID)
	assert.Equal(t, schedule.Overdue, pending["kim"][0].Status)
	assert.Equal(t, "2", pending["kim"][1].Chore.ID)
	require.Len(t, pending[""], 1)
	assert.Equal(t, "3", pending[""][0].Chore.ID)
	assert.NotContains(t, pending, "sam")
}

func TestBuild_OrdersByDueThenPriority(t *testing.T) {
	now := time.Date(2024, time.March, 20, 8, 0, 0, 0, time.Local)
	a := chore("a", "Alpha", schedule.Daily{}, date(2024, time.March, 1))
	b := chore("b", "Beta", schedule.Daily{}, date(2024, time.March, 5))
	c := chore("c", "Gamma", schedule.Daily{}, date(2024, time.March, 5))
	c.Priority = 3

	got := Build([]storage.Chore{b, c, a}, now, zap.NewNop())
	require.Len(t, got.Overdue, 3)
	assert.Equal(t, "a", got.Overdue[0].Chore.ID)
	assert.Equal(t, "c", got.Overdue[1].Chore.ID)
	assert.Equal(t, "b", got.Overdue[2].Chore.ID)
}

func TestBuild_SameInstantForWholeBatch(t *testing.T) {
	clock := NewManualClock(time.Date(2024, time.March, 11, 23, 59, 59, 0, time.Local))
	chores := []storage.Chore{
		chore("1", "Dishes", schedule.Daily{}, date(2024, time.March, 11)),
		chore("2", "Towels", schedule.Daily{}, date(2024, time.March, 11)),
	}
	first := Build(chores, clock.Now(), nil)
	assert.Len(t, first.CompletedToday, 2)

	second := Build(chores, clock.Advance(2*time.Second), nil)
	assert.Equal(t, time.Date(2024, time.March, 12, 0, 0, 1, 0, time.Local), clock.Now())
	assert.Empty(t, second.CompletedToday)
	assert.Len(t, second.DueToday, 2)
}

func TestForceDueDate(t *testing.T) {
	now := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.Local)
	wed := schedule.Wednesday
	rules := []schedule.Rule{
		schedule.Daily{},
		schedule.Weekly{Target: &wed},
		schedule.MultiPerWeek{Start: schedule.Monday, Times: 2},
		schedule.Monthly{TargetDay: 31},
		schedule.MultiPerMonth{StartDay: 20, Times: 2},
		schedule.Quarterly{Anchor: schedule.Anchor{Month: 2, Day: 28}},
		schedule.Annual{Anchor: schedule.Anchor{Month: 11, Day: 31}},
		schedule.CustomInterval{Days: 12},
	}
	for _, r := range rules {
		last := ForceDueDate(r, now)
		status, ok := schedule.Classify(schedule.Task{ID: "x", Name: "x", Rule: r, LastCompletedAt: &last}, now)
		require.True(t, ok)
		assert.Contains(t, []schedule.Status{schedule.DueToday, schedule.Overdue}, status, r.String())
	}
}
