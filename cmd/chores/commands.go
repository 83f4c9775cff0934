package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chores/internal/board"
	"chores/internal/schedule"
	"chores/internal/storage"
)

func listCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print chores grouped by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			chores, err := a.store.FetchChores()
			if err != nil {
				return err
			}
			b := board.Build(chores, time.Now(), a.log)
			asJSON, _ := cmd.Flags().GetBool("json")
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), b)
			}
			return writeBoard(cmd.OutOrStdout(), b)
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	return cmd
}

func addCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add NAME SCHEDULE",
		Short: "Add a chore, e.g. add \"Bins out\" weekly:wed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := schedule.ParseRule(args[1])
			if err != nil {
				return err
			}
			assignee, _ := cmd.Flags().GetString("for")
			priority, _ := cmd.Flags().GetInt("priority")
			description, _ := cmd.Flags().GetString("description")
			c, err := a.store.AddChore(storage.ChoreInput{
				Name:        args[0],
				Rule:        rule,
				AssignedTo:  assignee,
				Priority:    priority,
				Description: description,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", c.Name, shortID(c.ID))
			return nil
		},
	}
	cmd.Flags().String("for", "", "Who the chore is assigned to")
	cmd.Flags().IntP("priority", "p", 0, "Priority, higher sorts first")
	cmd.Flags().StringP("description", "d", "", "Free text description")
	return cmd
}

func doneCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "done CHORE",
		Short: "Mark a chore done now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := resolveChore(a.store, args[0])
			if err != nil {
				return err
			}
			person, _ := cmd.Flags().GetString("by")
			if person == "" {
				person = a.cfg.Person
			}
			if err := a.store.MarkDone(c.ID, person, time.Now()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s done by %s\n", c.Name, person)
			return nil
		},
	}
	cmd.Flags().String("by", "", "Who did it (defaults to the configured person)")
	return cmd
}

func resetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset CHORE",
		Short: "Forget the last completion of a chore",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := resolveChore(a.store, args[0])
			if err != nil {
				return err
			}
			if err := a.store.Reset(c.ID, time.Now()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s reset\n", c.Name)
			return nil
		},
	}
}

func forceDueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "force-due CHORE",
		Short: "Make a chore due today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := resolveChore(a.store, args[0])
			if err != nil {
				return err
			}
			rule, err := schedule.Decode(c.Rule)
			if err != nil {
				return fmt.Errorf("%s: %w", c.Name, err)
			}
			if err := a.store.ForceDue(c.ID, board.ForceDueDate(rule, time.Now())); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is due\n", c.Name)
			return nil
		},
	}
}

func deleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete CHORE",
		Short: "Delete a chore and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := resolveChore(a.store, args[0])
			if err != nil {
				return err
			}
			if err := a.store.DeleteChore(c.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", c.Name)
			return nil
		},
	}
}

func historyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history CHORE",
		Short: "Show recent completions of a chore",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := resolveChore(a.store, args[0])
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			entries, err := a.store.History(c.ID, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "%s has no completions yet\n", c.Name)
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %s\n", e.DoneAt.Format("2006-01-02 15:04"), e.DoneBy)
			}
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 10, "Maximum entries")
	return cmd
}

type choreLookup interface {
	FetchChores() ([]storage.Chore, error)
}

// resolveChore accepts a full id, a unique id prefix, or a chore name.
func resolveChore(s choreLookup, ref string) (storage.Chore, error) {
	chores, err := s.FetchChores()
	if err != nil {
		return storage.Chore{}, err
	}
	var matches []storage.Chore
	for _, c := range chores {
		if c.ID == ref {
			return c, nil
		}
		if strings.HasPrefix(c.ID, ref) || strings.EqualFold(c.Name, ref) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return storage.Chore{}, fmt.Errorf("%q: %w", ref, storage.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return storage.Chore{}, fmt.Errorf("%q matches %d chores, use a longer id", ref, len(matches))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func writeBoard(w io.Writer, b board.Board) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	sections := []struct {
		title string
		items []board.Item
	}{
		{"OVERDUE", b.Overdue},
		{"DUE TODAY", b.DueToday},
		{"UPCOMING", b.Upcoming},
		{"COMPLETED TODAY", b.CompletedToday},
	}
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\n", s.title)
		for _, it := range s.items {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%+dd\n",
				shortID(it.Chore.ID), it.Chore.Name, it.Rule, it.Due.Format("2006-01-02"), it.DaysUntil)
		}
	}
	for _, s := range b.Skipped {
		fmt.Fprintf(tw, "skipped %s (%s): %v\n", shortID(s.Chore.ID), s.Chore.Name, s.Err)
	}
	if b.Len() == 0 && len(b.Skipped) == 0 {
		fmt.Fprintln(tw, "no chores")
	}
	return tw.Flush()
}

type jsonItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Schedule  string `json:"schedule"`
	Status    string `json:"status"`
	Due       string `json:"due"`
	DaysUntil int    `json:"days_until"`
}

func writeJSON(w io.Writer, b board.Board) error {
	items := make([]jsonItem, 0, b.Len())
	for _, it := range b.Items() {
		items = append(items, jsonItem{
			ID:        it.Chore.ID,
			Name:      it.Chore.Name,
			Schedule:  it.Rule.String(),
			Status:    it.Status.String(),
			Due:       it.Due.Format("2006-01-02"),
			DaysUntil: it.DaysUntil,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

func statsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show completions, streaks and completion rate per person",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("period")
			period, err := storage.ParsePeriod(raw)
			if err != nil {
				return err
			}
			days, _ := cmd.Flags().GetInt("days")
			now := time.Now()
			stats, err := a.store.Stats(period, now)
			if err != nil {
				return err
			}
			chores, err := a.store.FetchChores()
			if err != nil {
				return err
			}
			return writeStats(cmd.OutOrStdout(), a.store, stats, board.Build(chores, now, a.log), period, days, now)
		},
	}
	cmd.Flags().String("period", string(storage.PeriodWeek), "today, week, month or year")
	cmd.Flags().Int("days", 30, "Window for the completion rate")
	return cmd
}

type rateSource interface {
	CompletionRate(person string, days int, now time.Time) (float64, error)
}

func writeStats(w io.Writer, rates rateSource, stats []storage.PersonStats, b board.Board, period storage.Period, days int, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "PERSON\tDONE (%s)\tTHIS MONTH\tSHARE\tSTREAK\tRATE (%dd)\n", period, days)
	for _, st := range stats {
		rate, err := rates.CompletionRate(st.Person, days, now)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f%%\t%d\t%.0f%%\n",
			st.Person, st.Completed, st.MonthCompleted, st.MonthShare, st.Streak, rate)
	}
	total, err := rates.CompletionRate("", days, now)
	if err != nil {
		return err
	}
	fmt.Fprintf(tw, "household\t\t\t\t\t%.0f%%\n", total)
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "overdue: %d, due today: %d\n", len(b.Overdue), len(b.DueToday))
	return err
}

func pendingCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List chores that need doing today, per assignee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			chores, err := a.store.FetchChores()
			if err != nil {
				return err
			}
			person, _ := cmd.Flags().GetString("for")
			return writePending(cmd.OutOrStdout(), board.Build(chores, time.Now(), a.log).Pending(), person)
		},
	}
	cmd.Flags().String("for", "", "Only this assignee")
	return cmd
}

func writePending(w io.Writer, pending map[string][]board.Item, person string) error {
	names := make([]string, 0, len(pending))
	for name := range pending {
		if person == "" || strings.EqualFold(name, person) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		_, err := fmt.Fprintln(w, "nothing pending")
		return err
	}
	for _, name := range names {
		label := name
		if label == "" {
			label = "unassigned"
		}
		fmt.Fprintf(w, "%s\n", label)
		for _, it := range pending[name] {
			fmt.Fprintf(w, "  %s  %s  %s\n", shortID(it.Chore.ID), it.Chore.Name, it.Status)
		}
	}
	return nil
}

func assigneesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assignees",
		Short: "List the people chores can be assigned to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := a.store.Assignees()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, "no assignees registered, any name is accepted")
				return nil
			}
			for _, n := range names {
				fmt.Fprintln(out, n)
			}
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME",
		Short: "Register an assignee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.AddAssignee(args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "rm NAME",
		Aliases: []string{"delete"},
		Short:   "Remove an assignee and unassign their chores",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.DeleteAssignee(args[0])
		},
	})
	return cmd
}

func pruneCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old completion history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")
			if days == 0 {
				days = a.cfg.HistoryDays
			}
			n, err := a.store.PruneHistory(days, time.Now())
			if err != nil {
				return err
			}
			a.log.Info("pruned history", zap.Int64("deleted", n), zap.Int("keep_days", days))
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d completions older than %d days\n", n, days)
			return nil
		},
	}
	cmd.Flags().Int("days", 0, "Days to keep (defaults to history_days from the config)")
	return cmd
}
