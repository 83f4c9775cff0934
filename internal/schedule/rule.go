package schedule

import (
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindDaily         Kind = "daily"
	KindWeekly        Kind = "weekly"
	KindMultiPerWeek  Kind = "multiweek"
	KindMonthly       Kind = "monthly"
	KindMultiPerMonth Kind = "multimonth"
	KindQuarterly     Kind = "quarterly"
	KindSemiAnnual    Kind = "semiannual"
	KindAnnual        Kind = "annual"
	KindCustom        Kind = "every"
)

// DefaultIntervalDays is used when a rule carries no usable interval.
const DefaultIntervalDays = 7

// Weekday numbers days Monday (0) through Sunday (6).
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 6) % 7)
}

func (w Weekday) clamp() Weekday {
	if w < Monday {
		return Monday
	}
	if w > Sunday {
		return Sunday
	}
	return w
}

func (w Weekday) String() string {
	return weekdayNames[w.clamp()]
}

func parseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range weekdayNames {
		if s == name || (len(s) > 3 && strings.HasPrefix(s, name)) {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidRule, s)
}

// WeekdaySet is a bitmask of active weekdays. The zero value means every day.
type WeekdaySet uint8

func NewWeekdaySet(days ...Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << d.clamp()
	}
	return s
}

func (s WeekdaySet) Has(d Weekday) bool {
	return s == 0 || s&(1<<d.clamp()) != 0
}

func (s WeekdaySet) Days() []Weekday {
	var out []Weekday
	for d := Monday; d <= Sunday; d++ {
		if s&(1<<d) != 0 {
			out = append(out, d)
		}
	}
	return out
}

func (s WeekdaySet) String() string {
	days := s.Days()
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()
	}
	return strings.Join(names, ",")
}

// Rule is one of the recurrence variants declared in this package.
type Rule interface {
	Kind() Kind
	String() string
	rule()
}

type Daily struct {
	ActiveDays WeekdaySet
}

type Weekly struct {
	Target *Weekday
}

type MultiPerWeek struct {
	Start Weekday
	Times int
}

type Monthly struct {
	// TargetDay of 0 keeps the day of the last completion.
	TargetDay int
}

type MultiPerMonth struct {
	StartDay int
	Times    int
}

// Anchor pins a periodic rule to a calendar point. Month counts from 0 (January).
type Anchor struct {
	Month int
	Day   int
}

type Quarterly struct{ Anchor Anchor }

type SemiAnnual struct{ Anchor Anchor }

type Annual struct{ Anchor Anchor }

type CustomInterval struct {
	Days int
}

func (Daily) Kind() Kind          { return KindDaily }
func (Weekly) Kind() Kind         { return KindWeekly }
func (MultiPerWeek) Kind() Kind   { return KindMultiPerWeek }
func (Monthly) Kind() Kind        { return KindMonthly }
func (MultiPerMonth) Kind() Kind  { return KindMultiPerMonth }
func (Quarterly) Kind() Kind      { return KindQuarterly }
func (SemiAnnual) Kind() Kind     { return KindSemiAnnual }
func (Annual) Kind() Kind         { return KindAnnual }
func (CustomInterval) Kind() Kind { return KindCustom }

func (Daily) rule()          {}
func (Weekly) rule()         {}
func (MultiPerWeek) rule()   {}
func (Monthly) rule()        {}
func (MultiPerMonth) rule()  {}
func (Quarterly) rule()      {}
func (SemiAnnual) rule()     {}
func (Annual) rule()         {}
func (CustomInterval) rule() {}

func (r Daily) String() string {
	if r.ActiveDays == 0 {
		return string(KindDaily)
	}
	return fmt.Sprintf("%s:%s", KindDaily, r.ActiveDays)
}

func (r Weekly) String() string {
	if r.Target == nil {
		return string(KindWeekly)
	}
	return fmt.Sprintf("%s:%s", KindWeekly, *r.Target)
}

func (r MultiPerWeek) String() string {
	return fmt.Sprintf("%s:%s:%d", KindMultiPerWeek, r.Start, r.Times)
}

func (r Monthly) String() string {
	if r.TargetDay <= 0 {
		return string(KindMonthly)
	}
	return fmt.Sprintf("%s:%d", KindMonthly, r.TargetDay)
}

func (r MultiPerMonth) String() string {
	return fmt.Sprintf("%s:%d:%d", KindMultiPerMonth, r.StartDay, r.Times)
}

func (a Anchor) format(k Kind) string {
	return fmt.Sprintf("%s:%d:%d", k, a.Month+1, a.Day)
}

func (r Quarterly) String() string  { return r.Anchor.format(KindQuarterly) }
func (r SemiAnnual) String() string { return r.Anchor.format(KindSemiAnnual) }
func (r Annual) String() string     { return r.Anchor.format(KindAnnual) }

func (r CustomInterval) String() string {
	return fmt.Sprintf("%s:%d", KindCustom, r.Days)
}

// ApproxDays is the nominal length of one period of r.
func ApproxDays(r Rule) int {
	switch r := r.(type) {
	case Daily:
		return 1
	case Weekly:
		return 7
	case MultiPerWeek:
		return ceilDiv(7, atLeastOne(r.Times))
	case Monthly:
		return 30
	case MultiPerMonth:
		return ceilDiv(30, atLeastOne(r.Times))
	case Quarterly:
		return 90
	case SemiAnnual:
		return 180
	case Annual:
		return 365
	case CustomInterval:
		return atLeastOne(r.Days)
	default:
		return DefaultIntervalDays
	}
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func clampRange(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
