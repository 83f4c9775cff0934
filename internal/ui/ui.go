package ui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"chores/internal/board"
	"chores/internal/config"
	"chores/internal/schedule"
	"chores/internal/storage"
)

type Store interface {
	FetchChores() ([]storage.Chore, error)
	AddChore(in storage.ChoreInput) (storage.Chore, error)
	UpdateChore(id string, in storage.ChoreInput) error
	MarkDone(id, person string, at time.Time) error
	Reset(id string, now time.Time) error
	ForceDue(id string, lastDone time.Time) error
	DeleteChore(id string) error
	History(id string, limit int) ([]storage.Completion, error)
}

type mode int

const (
	modeList mode = iota
	modeForm
)

type tickMsg time.Time

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	overdueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	todayStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	laterStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	doneStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// formState backs both the add and the edit form. An empty choreID means add.
type formState struct {
	choreID     string
	name        string
	rule        string
	assignedTo  string
	priority    string
	description string
	index       int
}

type Model struct {
	store      Store
	cfg        config.Config
	clock      board.Clock
	log        *zap.Logger
	board      board.Board
	items      []board.Item
	cursor     int
	mode       mode
	input      textinput.Model
	status     string
	confirmDel bool
	pendingDel *storage.Chore
	form       *formState
}

func New(store Store, cfg config.Config, clock board.Clock, log *zap.Logger) Model {
	if clock == nil {
		clock = board.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 40

	m := Model{
		store:  store,
		cfg:    cfg,
		clock:  clock,
		log:    log,
		input:  ti,
		mode:   modeList,
		status: startHint(cfg.Keys),
	}
	if err := m.reload(); err != nil {
		m.status = fmt.Sprintf("load failed: %v", err)
	}
	return m
}

func Run(store Store, cfg config.Config, log *zap.Logger) error {
	program := tea.NewProgram(New(store, cfg, board.SystemClock{}, log))
	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	interval := m.cfg.RefreshInterval.Duration
	if interval <= 0 {
		interval = config.DefaultRefreshInterval
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// reload takes a fresh snapshot from the store and classifies it against a
// single sampled instant.
func (m *Model) reload() error {
	chores, err := m.store.FetchChores()
	if err != nil {
		return err
	}
	var selected string
	if len(m.items) > 0 {
		selected = m.items[clampCursor(m.cursor, len(m.items))].Chore.ID
	}
	m.board = board.Build(chores, m.clock.Now(), m.log)
	m.items = m.board.Items()
	m.cursor = clampCursor(m.cursor, len(m.items))
	for i, it := range m.items {
		if it.Chore.ID == selected {
			m.cursor = i
			break
		}
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if err := m.reload(); err != nil {
			m.log.Warn("refresh failed", zap.Error(err))
			m.status = fmt.Sprintf("refresh failed: %v", err)
		}
		return m, m.tick()
	case tea.KeyMsg:
		if m.form != nil {
			return m.updateFormMode(msg.String(), msg)
		}
		if m.confirmDel {
			return m.updateDeleteConfirm(msg.String())
		}
		return m.updateListMode(msg.String())
	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 10
	}
	return m, nil
}

func (m Model) selected() (board.Item, bool) {
	if len(m.items) == 0 {
		return board.Item{}, false
	}
	return m.items[clampCursor(m.cursor, len(m.items))], true
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c", m.cfg.Keys.Quit:
		return m, tea.Quit
	case m.cfg.Keys.Down, "down":
		m.cursor = clampCursor(m.cursor+1, len(m.items))
	case m.cfg.Keys.Up, "up":
		m.cursor = clampCursor(m.cursor-1, len(m.items))
	case m.cfg.Keys.Refresh:
		return m.afterAction("Refreshed", nil)
	case m.cfg.Keys.Add:
		return m.startForm(nil)
	case m.cfg.Keys.Edit:
		it, ok := m.selected()
		if !ok {
			m.status = "No chores to edit"
			return m, nil
		}
		return m.startForm(&it)
	case m.cfg.Keys.Done:
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		err := m.store.MarkDone(it.Chore.ID, m.cfg.Person, m.clock.Now())
		return m.afterAction(fmt.Sprintf("Marked %q done", it.Chore.Name), err)
	case m.cfg.Keys.Reset:
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		err := m.store.Reset(it.Chore.ID, m.clock.Now())
		return m.afterAction(fmt.Sprintf("Reset %q", it.Chore.Name), err)
	case m.cfg.Keys.ForceDue:
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		err := m.store.ForceDue(it.Chore.ID, board.ForceDueDate(it.Rule, m.clock.Now()))
		return m.afterAction(fmt.Sprintf("%q is due now", it.Chore.Name), err)
	case m.cfg.Keys.Delete:
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		c := it.Chore
		m.confirmDel = true
		m.pendingDel = &c
		m.status = fmt.Sprintf("Delete \"%s\"? y/n", c.Name)
	case m.cfg.Keys.Detail:
		it, ok := m.selected()
		if !ok {
			m.status = "No chores"
			return m, nil
		}
		m.status = m.detailLine(it)
	}
	return m, nil
}

// afterAction reloads the board so a write is visible immediately instead
// of on the next tick.
func (m Model) afterAction(ok string, err error) (tea.Model, tea.Cmd) {
	if err != nil {
		m.log.Warn("action failed", zap.String("action", ok), zap.Error(err))
		m.status = fmt.Sprintf("failed: %v", err)
		return m, nil
	}
	if err := m.reload(); err != nil {
		m.status = fmt.Sprintf("reload failed: %v", err)
		return m, nil
	}
	m.status = ok
	return m, nil
}

func (m Model) detailLine(it board.Item) string {
	c := it.Chore
	info := fmt.Sprintf("%s • %s • %s", c.Name, it.Rule, it.Status)
	if c.AssignedTo != "" {
		info += " • for:" + c.AssignedTo
	}
	if c.Priority != 0 {
		info += fmt.Sprintf(" • priority:%d", c.Priority)
	}
	if c.LastDone.Valid {
		info += " • last:" + c.LastDone.Time.Format("2006-01-02")
		if c.LastDoneBy != "" {
			info += " by " + c.LastDoneBy
		}
	}
	history, err := m.store.History(c.ID, 5)
	if err == nil && len(history) > 0 {
		info += fmt.Sprintf(" • %d recent", len(history))
	}
	if strings.TrimSpace(c.Description) != "" {
		info += " • " + c.Description
	}
	return info
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Chores"))
	b.WriteString(faintStyle.Render("  " + m.board.Now.Format("Mon 2 Jan 2006 15:04")))
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		b.WriteString("Nothing here yet. Press 'a' to add a chore.\n")
	} else {
		b.WriteString(m.renderSections())
	}
	if n := len(m.board.Skipped); n > 0 {
		b.WriteString(faintStyle.Render(fmt.Sprintf("(%d chore(s) hidden: unreadable schedule)", n)))
		b.WriteString("\n")
	}

	b.WriteString("\n---\n")

	if m.form != nil {
		b.WriteString("Chore form (tab/shift+tab to move, enter to save/next, esc to cancel)")
		b.WriteString("\n\n")
		b.WriteString(m.renderFormBox())
		b.WriteString("\n")
		b.WriteString("Field: " + m.form.currentLabel())
		b.WriteString("\n")
		b.WriteString(m.input.View())
	} else {
		b.WriteString(m.renderDetailPanel())
	}

	b.WriteString("\n\n")
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(renderHelp(m.cfg.Keys))

	return b.String()
}

func (m Model) renderSections() string {
	sections := []struct {
		title string
		style lipgloss.Style
		items []board.Item
	}{
		{"Overdue", overdueStyle, m.board.Overdue},
		{"Due today", todayStyle, m.board.DueToday},
		{"Upcoming", laterStyle, m.board.Upcoming},
		{"Completed today", doneStyle, m.board.CompletedToday},
	}
	var b strings.Builder
	idx := 0
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		b.WriteString(s.style.Render(fmt.Sprintf("%s (%d)", s.title, len(s.items))))
		b.WriteString("\n")
		for _, it := range s.items {
			cursor := " "
			if m.cursor == idx && m.mode == modeList {
				cursor = ">"
			}
			b.WriteString(fmt.Sprintf("%s %-28s %-16s %s\n", cursor, it.Chore.Name, it.Rule, dueLabel(it)))
			idx++
		}
		b.WriteString("\n")
	}
	return b.String()
}

func dueLabel(it board.Item) string {
	switch it.Status {
	case schedule.CompletedToday:
		if it.Chore.LastDoneBy != "" {
			return "done by " + it.Chore.LastDoneBy
		}
		return "done"
	case schedule.Overdue:
		return fmt.Sprintf("%dd overdue", -it.DaysUntil)
	case schedule.DueToday:
		return "today"
	default:
		if it.DaysUntil == 1 {
			return "tomorrow"
		}
		return fmt.Sprintf("in %dd (%s)", it.DaysUntil, it.Due.Format("Mon 2 Jan"))
	}
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N":
		m.status = "Delete cancelled"
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	case "y", "Y":
		if m.pendingDel == nil {
			m.status = "Nothing to delete"
			m.confirmDel = false
			return m, nil
		}
		name := m.pendingDel.Name
		err := m.store.DeleteChore(m.pendingDel.ID)
		m.confirmDel = false
		m.pendingDel = nil
		return m.afterAction(fmt.Sprintf("Deleted %q", name), err)
	default:
		return m, nil
	}
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s detail • %s done • %s reset • %s force due • %s add • %s edit • %s delete • %s refresh • %s quit",
		k.Up, k.Down, k.Detail, keyName(k.Done), k.Reset, k.ForceDue, k.Add, k.Edit, k.Delete, k.Refresh, k.Quit)
}

func startHint(k config.Keymap) string {
	return fmt.Sprintf("'%s' marks done, '%s' adds a chore, '%s' quits.", keyName(k.Done), k.Add, k.Quit)
}

func keyName(k string) string {
	if k == " " {
		return "space"
	}
	return k
}

func (m Model) startForm(it *board.Item) (tea.Model, tea.Cmd) {
	m.form = &formState{rule: string(schedule.KindWeekly)}
	m.status = "New chore: enter to save/next, esc to cancel"
	if it != nil {
		c := it.Chore
		m.form = &formState{
			choreID:     c.ID,
			name:        c.Name,
			rule:        it.Rule.String(),
			assignedTo:  c.AssignedTo,
			priority:    strconv.Itoa(c.Priority),
			description: c.Description,
		}
		m.status = "Edit chore: enter to save/next, esc to cancel"
	}
	m.input.SetValue(m.form.currentValue())
	m.input.Placeholder = m.form.currentLabel()
	m.input.Focus()
	m.mode = modeForm
	return m, textinput.Blink
}

func (m Model) updateFormMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		return m.closeForm("Cancelled"), nil
	case "tab", "down":
		m.form.setCurrentValue(m.input.Value())
		m.form.index = wrapIndex(m.form.index+1, len(formFields()))
		return m.focusField(), nil
	case "shift+tab", "up":
		m.form.setCurrentValue(m.input.Value())
		m.form.index = wrapIndex(m.form.index-1, len(formFields()))
		return m.focusField(), nil
	case m.cfg.Keys.Confirm, "enter":
		m.form.setCurrentValue(m.input.Value())
		if m.form.index >= len(formFields())-1 {
			return m.saveForm()
		}
		m.form.index++
		return m.focusField(), nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) focusField() Model {
	m.input.SetValue(m.form.currentValue())
	m.input.Placeholder = m.form.currentLabel()
	m.status = m.formPrompt()
	return m
}

func (m Model) closeForm(status string) Model {
	m.form = nil
	m.mode = modeList
	m.input.SetValue("")
	m.input.Blur()
	m.status = status
	return m
}

func (m Model) saveForm() (tea.Model, tea.Cmd) {
	in, err := m.form.input()
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	if m.form.choreID == "" {
		_, err = m.store.AddChore(in)
		m = m.closeForm("")
		return m.afterAction(fmt.Sprintf("Added %q", in.Name), err)
	}
	err = m.store.UpdateChore(m.form.choreID, in)
	m = m.closeForm("")
	return m.afterAction(fmt.Sprintf("Saved %q", in.Name), err)
}

func (f formState) input() (storage.ChoreInput, error) {
	name := strings.TrimSpace(f.name)
	if name == "" {
		return storage.ChoreInput{}, errors.New("name cannot be empty")
	}
	rule, err := schedule.ParseRule(f.rule)
	if err != nil {
		return storage.ChoreInput{}, fmt.Errorf("schedule invalid: %w", err)
	}
	priority, err := parsePriority(f.priority)
	if err != nil {
		return storage.ChoreInput{}, fmt.Errorf("priority invalid: %w", err)
	}
	return storage.ChoreInput{
		Name:        name,
		Rule:        rule,
		AssignedTo:  strings.TrimSpace(f.assignedTo),
		Priority:    priority,
		Description: strings.TrimSpace(f.description),
	}, nil
}

func formFields() []string {
	return []string{"name", "schedule (e.g. weekly:wed)", "assigned to", "priority", "description"}
}

func (f formState) currentLabel() string {
	return formFields()[f.index]
}

func (f formState) currentValue() string {
	switch f.index {
	case 0:
		return f.name
	case 1:
		return f.rule
	case 2:
		return f.assignedTo
	case 3:
		return f.priority
	case 4:
		return f.description
	default:
		return ""
	}
}

func (f *formState) setCurrentValue(v string) {
	switch f.index {
	case 0:
		f.name = v
	case 1:
		f.rule = v
	case 2:
		f.assignedTo = v
	case 3:
		f.priority = v
	case 4:
		f.description = v
	}
}

func (m Model) formPrompt() string {
	if m.form == nil {
		return ""
	}
	return fmt.Sprintf("Editing %s (field %d of %d). Enter to advance, Esc to cancel, tab to move.",
		m.form.currentLabel(), m.form.index+1, len(formFields()))
}

func (m Model) renderFormBox() string {
	if m.form == nil {
		return ""
	}
	values := []string{
		m.form.name,
		m.form.rule,
		m.form.assignedTo,
		m.form.priority,
		m.form.description,
	}
	var b strings.Builder
	for i, name := range formFields() {
		prefix := " "
		if i == m.form.index {
			prefix = ">"
		}
		b.WriteString(fmt.Sprintf("%s %-26s : %s\n", prefix, name, emptyPlaceholder(values[i])))
	}
	return b.String()
}

func (m Model) renderDetailPanel() string {
	it, ok := m.selected()
	if !ok {
		return "No chore selected"
	}
	c := it.Chore
	last := "never"
	if c.LastDone.Valid {
		last = c.LastDone.Time.Format("2006-01-02 15:04")
		if c.LastDoneBy != "" {
			last += " by " + c.LastDoneBy
		}
	}
	var b strings.Builder
	b.WriteString("Details\n")
	b.WriteString(fmt.Sprintf("Name      : %s\n", c.Name))
	b.WriteString(fmt.Sprintf("Schedule  : %s\n", it.Rule))
	b.WriteString(fmt.Sprintf("Status    : %s\n", it.Status))
	b.WriteString(fmt.Sprintf("Next due  : %s\n", it.Due.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Last done : %s\n", last))
	b.WriteString(fmt.Sprintf("For       : %s\n", emptyPlaceholder(c.AssignedTo)))
	b.WriteString(fmt.Sprintf("Priority  : %d\n", c.Priority))
	return b.String()
}

func parsePriority(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func emptyPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return "(empty)"
	}
	return v
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
