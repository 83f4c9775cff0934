package ui

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chores/internal/board"
	"chores/internal/config"
	"chores/internal/schedule"
	"chores/internal/storage"
)

func testConfig() config.Config {
	return config.Config{
		Person:          "robin",
		RefreshInterval: config.Duration{Duration: time.Minute},
		Keys: config.Keymap{
			Quit: "q", Add: "a", Up: "k", Down: "j", Done: " ", Reset: "u", ForceDue: "f",
			Delete: "d", Detail: "enter", Confirm: "enter", Cancel: "esc", Edit: "e", Refresh: "r",
		},
	}
}

func newTestModel(t *testing.T, now time.Time) (Model, *storage.Store, *board.ManualClock) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "chores.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	clock := board.NewManualClock(now)
	return New(store, testConfig(), clock, nil), store, clock
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	var next tea.Model = m
	for _, k := range keys {
		next, _ = next.Update(k)
	}
	return next.(Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
)

func TestMarkDoneMovesChoreToCompleted(t *testing.T) {
	now := time.Date(2024, time.March, 11, 18, 0, 0, 0, time.Local)
	m, store, _ := newTestModel(t, now)
	_, err := store.AddChore(storage.ChoreInput{Name: "Dishes", Rule: schedule.Daily{}})
	require.NoError(t, err)
	m = press(t, m, runes("r"))
	require.Len(t, m.board.DueToday, 1)

	m = press(t, m, space)

	assert.Empty(t, m.board.DueToday)
	require.Len(t, m.board.CompletedToday, 1)
	assert.Equal(t, "robin", m.board.CompletedToday[0].Chore.LastDoneBy)
	assert.Contains(t, m.View(), "Completed today (1)")

	m = press(t, m, runes("u"))
	assert.Len(t, m.board.DueToday, 1)
}

func TestTickReclassifiesAfterMidnight(t *testing.T) {
	now := time.Date(2024, time.March, 11, 23, 59, 0, 0, time.Local)
	m, store, clock := newTestModel(t, now)
	_, err := store.AddChore(storage.ChoreInput{Name: "Dishes", Rule: schedule.Daily{}})
	require.NoError(t, err)
	m = press(t, m, runes("r"), space)
	require.Len(t, m.board.CompletedToday, 1)

	clock.Advance(2 * time.Minute)
	next, cmd := m.Update(tickMsg(clock.Now()))
	m = next.(Model)

	assert.NotNil(t, cmd)
	assert.Empty(t, m.board.CompletedToday)
	assert.Len(t, m.board.DueToday, 1)
}

func TestForceDue(t *testing.T) {
	now := time.Date(2024, time.March, 11, 10, 0, 0, 0, time.Local)
	m, store, _ := newTestModel(t, now)
	c, err := store.AddChore(storage.ChoreInput{Name: "Filter", Rule: schedule.Quarterly{Anchor: schedule.Anchor{Month: 0, Day: 20}}})
	require.NoError(t, err)
	require.NoError(t, store.MarkDone(c.ID, "kim", now.AddDate(0, 0, -3)))
	m = press(t, m, runes("r"))
	require.Len(t, m.board.Upcoming, 1)

	m = press(t, m, runes("f"))

	assert.Empty(t, m.board.Upcoming)
	assert.Equal(t, 1, len(m.board.DueToday)+len(m.board.Overdue))
}

func TestAddChoreThroughForm(t *testing.T) {
	now := time.Date(2024, time.March, 11, 10, 0, 0, 0, time.Local)
	m, store, _ := newTestModel(t, now)

	m = press(t, m, runes("a"), runes("Water plants"), enter)
	require.NotNil(t, m.form)
	assert.Equal(t, "weekly", m.input.Value())
	m = press(t, m, enter, runes("sam"), enter, runes("2"), enter, enter)

	assert.Nil(t, m.form)
	chores, err := store.FetchChores()
	require.NoError(t, err)
	require.Len(t, chores, 1)
	assert.Equal(t, "Water plants", chores[0].Name)
	assert.Equal(t, "sam", chores[0].AssignedTo)
	assert.Equal(t, 2, chores[0].Priority)
	assert.Equal(t, "weekly", chores[0].Rule.Kind)
	assert.Len(t, m.board.DueToday, 1)
}

func TestFormRejectsBadSchedule(t *testing.T) {
	now := time.Date(2024, time.March, 11, 10, 0, 0, 0, time.Local)
	m, store, _ := newTestModel(t, now)

	m = press(t, m, runes("a"), runes("Gutters"), enter)
	m.input.SetValue("fortnightly")
	m = press(t, m, enter, enter, enter, enter)

	require.NotNil(t, m.form)
	assert.True(t, strings.HasPrefix(m.status, "schedule invalid"))
	chores, err := store.FetchChores()
	require.NoError(t, err)
	assert.Empty(t, chores)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, m.form)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	now := time.Date(2024, time.March, 11, 10, 0, 0, 0, time.Local)
	m, store, _ := newTestModel(t, now)
	_, err := store.AddChore(storage.ChoreInput{Name: "Fridge", Rule: schedule.Monthly{}})
	require.NoError(t, err)
	m = press(t, m, runes("r"))

	m = press(t, m, runes("d"), runes("n"))
	assert.Equal(t, 1, m.board.Len())

	m = press(t, m, runes("d"), runes("y"))
	assert.Equal(t, 0, m.board.Len())
	assert.Contains(t, m.View(), "Nothing here yet")
}

func TestDueLabel(t *testing.T) {
	assert.Equal(t, "3d overdue", dueLabel(board.Item{Status: schedule.Overdue, DaysUntil: -3}))
	assert.Equal(t, "today", dueLabel(board.Item{Status: schedule.DueToday}))
	assert.Equal(t, "tomorrow", dueLabel(board.Item{Status: schedule.Upcoming, DaysUntil: 1}))
	assert.Equal(t, "done by kim", dueLabel(board.Item{Status: schedule.CompletedToday, Chore: storage.Chore{LastDoneBy: "kim"}}))
}

func TestStartHintFollowsKeymap(t *testing.T) {
	now := time.Date(2024, time.March, 11, 10, 0, 0, 0, time.Local)
	m, _, _ := newTestModel(t, now)
	assert.Equal(t, "'space' marks done, 'a' adds a chore, 'q' quits.", m.status)

	cfg := testConfig()
	cfg.Keys.Done, cfg.Keys.Add, cfg.Keys.Quit = "x", "n", "ctrl+c"
	store, err := storage.Open(filepath.Join(t.TempDir(), "chores.db"))
	require.NoError(t, err)
	defer store.Close()
	m = New(store, cfg, board.NewManualClock(now), nil)
	assert.Equal(t, "'x' marks done, 'n' adds a chore, 'ctrl+c' quits.", m.status)
}
