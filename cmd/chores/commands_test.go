package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chores/internal/board"
	"chores/internal/schedule"
	"chores/internal/storage"
)

type fakeLookup []storage.Chore

func (f fakeLookup) FetchChores() ([]storage.Chore, error) { return f, nil }

func TestResolveChore(t *testing.T) {
	chores := fakeLookup{
		{ID: "a1b2c3d4-0000", Name: "Dishes"},
		{ID: "a1ffffff-0000", Name: "Bins"},
		{ID: "b7777777-0000", Name: "Lawn"},
	}

	c, err := resolveChore(chores, "b7")
	require.NoError(t, err)
	assert.Equal(t, "Lawn", c.Name)

	c, err = resolveChore(chores, "dishes")
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3d4-0000", c.ID)

	_, err = resolveChore(chores, "a1")
	assert.ErrorContains(t, err, "matches 2 chores")

	_, err = resolveChore(chores, "zz")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWriteBoard(t *testing.T) {
	now := time.Date(2024, time.March, 11, 12, 0, 0, 0, time.Local)
	last := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.Local)
	chores := []storage.Chore{
		{ID: "11111111-x", Name: "Bins", Rule: schedule.Encode(schedule.Weekly{})},
		{ID: "22222222-x", Name: "Windows", Rule: schedule.Encode(schedule.Monthly{})},
		{ID: "33333333-x", Name: "Mystery", Rule: schedule.Fields{Kind: "hourly"}},
	}
	chores[0].LastDone.Time, chores[0].LastDone.Valid = last, true
	chores[1].LastDone.Time, chores[1].LastDone.Valid = last, true

	b := board.Build(chores, now, nil)

	var out bytes.Buffer
	require.NoError(t, writeBoard(&out, b))
	text := out.String()
	assert.Contains(t, text, "OVERDUE")
	assert.Contains(t, text, "UPCOMING")
	assert.Contains(t, text, "-3d")
	assert.Contains(t, text, "skipped 33333333")

	out.Reset()
	require.NoError(t, writeJSON(&out, b))
	var items []jsonItem
	require.NoError(t, json.Unmarshal(out.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "overdue", items[0].Status)
	assert.Equal(t, "weekly", items[0].Schedule)
	assert.Equal(t, "2024-04-01", items[1].Due)
}

func TestWritePending(t *testing.T) {
	now := time.Date(2024, time.March, 11, 12, 0, 0, 0, time.Local)
	chores := []storage.Chore{
		{ID: "11111111-x", Name: "Bins", AssignedTo: "kim", Rule: schedule.Encode(schedule.Daily{})},
		{ID: "22222222-x", Name: "Lawn", Rule: schedule.Encode(schedule.Weekly{})},
	}
	pending := board.Build(chores, now, nil).Pending()

	var out bytes.Buffer
	require.NoError(t, writePending(&out, pending, ""))
	assert.Equal(t, "unassigned\n  22222222  Lawn  due_today\nkim\n  11111111  Bins  due_today\n", out.String())

	out.Reset()
	require.NoError(t, writePending(&out, pending, "KIM"))
	assert.NotContains(t, out.String(), "Lawn")

	out.Reset()
	require.NoError(t, writePending(&out, pending, "sam"))
	assert.Equal(t, "nothing pending\n", out.String())
}

func TestWriteStats(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "chores.db"))
	require.NoError(t, err)
	defer store.Close()

	now := time.Date(2024, time.March, 14, 20, 0, 0, 0, time.Local)
	c, err := store.AddChore(storage.ChoreInput{Name: "Dishes", Rule: schedule.Daily{}, AssignedTo: "kim"})
	require.NoError(t, err)
	require.NoError(t, store.MarkDone(c.ID, "kim", now.Add(-time.Hour)))

	stats, err := store.Stats(storage.PeriodToday, now)
	require.NoError(t, err)
	chores, err := store.FetchChores()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, writeStats(&out, store, stats, board.Build(chores, now, nil), storage.PeriodToday, 30, now))
	text := out.String()
	assert.Contains(t, text, "DONE (today)")
	assert.Contains(t, text, "100.0%")
	assert.Contains(t, text, "household")
	assert.Contains(t, text, "overdue: 0, due today: 0")
}
