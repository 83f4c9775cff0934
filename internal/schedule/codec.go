package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownKind = errors.New("unknown recurrence kind")
	ErrInvalidRule = errors.New("invalid recurrence rule")
)

// Fields is the flat column form a rule is stored in. Which fields matter
// depends on Kind; the rest are ignored.
type Fields struct {
	Kind       string
	Days       int
	Times      int
	Weekday    int // -1 when unset
	MonthDay   int // -1 when unset
	StartMonth int
	StartDay   int
	ActiveDays string
}

// Decode turns stored fields into a Rule. An empty kind falls back to a
// custom interval; a kind this package does not know is an error.
func Decode(f Fields) (Rule, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(f.Kind))) {
	case KindDaily:
		set, err := parseWeekdaySet(f.ActiveDays)
		if err != nil {
			return nil, err
		}
		return Daily{ActiveDays: set}, nil
	case KindWeekly:
		if f.Weekday < 0 {
			return Weekly{}, nil
		}
		wd := Weekday(clampRange(f.Weekday, 0, 6))
		return Weekly{Target: &wd}, nil
	case KindMultiPerWeek:
		return MultiPerWeek{Start: Weekday(clampRange(f.Weekday, 0, 6)), Times: atLeastOne(f.Times)}, nil
	case KindMonthly:
		if f.MonthDay <= 0 {
			return Monthly{}, nil
		}
		return Monthly{TargetDay: clampRange(f.MonthDay, 1, 31)}, nil
	case KindMultiPerMonth:
		return MultiPerMonth{StartDay: clampRange(f.StartDay, 1, 31), Times: atLeastOne(f.Times)}, nil
	case KindQuarterly:
		return Quarterly{Anchor: anchorOf(f)}, nil
	case KindSemiAnnual:
		return SemiAnnual{Anchor: anchorOf(f)}, nil
	case KindAnnual:
		return Annual{Anchor: anchorOf(f)}, nil
	case KindCustom, "":
		days := f.Days
		if days <= 0 {
			days = DefaultIntervalDays
		}
		return CustomInterval{Days: days}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, f.Kind)
	}
}

func anchorOf(f Fields) Anchor {
	return Anchor{Month: clampRange(f.StartMonth, 0, 11), Day: clampRange(f.StartDay, 1, 31)}
}

func Encode(r Rule) Fields {
	f := Fields{Kind: string(r.Kind()), Weekday: -1, MonthDay: -1, StartDay: 1}
	switch r := r.(type) {
	case Daily:
		f.Days = 1
		f.ActiveDays = r.ActiveDays.String()
	case Weekly:
		f.Days = 7
		if r.Target != nil {
			f.Weekday = int(*r.Target)
		}
	case MultiPerWeek:
		f.Weekday = int(r.Start)
		f.Times = r.Times
	case Monthly:
		if r.TargetDay > 0 {
			f.MonthDay = r.TargetDay
		}
	case MultiPerMonth:
		f.StartDay = r.StartDay
		f.Times = r.Times
	case Quarterly:
		f.StartMonth, f.StartDay = r.Anchor.Month, r.Anchor.Day
	case SemiAnnual:
		f.StartMonth, f.StartDay = r.Anchor.Month, r.Anchor.Day
	case Annual:
		f.StartMonth, f.StartDay = r.Anchor.Month, r.Anchor.Day
	case CustomInterval:
		f.Days = r.Days
	}
	return f
}

// ParseRule reads the text form produced by Rule.String, for example
// "weekly:wed", "multimonth:1:4" or "annual:2:29". Months are written 1-12.
func ParseRule(s string) (Rule, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), ":")
	kind, args := Kind(parts[0]), parts[1:]

	switch kind {
	case KindDaily:
		if len(args) == 0 {
			return Daily{}, nil
		}
		set, err := parseWeekdaySet(args[0])
		if err != nil {
			return nil, err
		}
		return Daily{ActiveDays: set}, nil
	case KindWeekly:
		if len(args) == 0 {
			return Weekly{}, nil
		}
		wd, err := parseWeekdayArg(args[0])
		if err != nil {
			return nil, err
		}
		return Weekly{Target: &wd}, nil
	case KindMultiPerWeek:
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: want %s:WEEKDAY:TIMES", ErrInvalidRule, kind)
		}
		wd, err := parseWeekdayArg(args[0])
		if err != nil {
			return nil, err
		}
		times, err := parsePositive(args[1])
		if err != nil {
			return nil, err
		}
		return MultiPerWeek{Start: wd, Times: times}, nil
	case KindMonthly:
		if len(args) == 0 {
			return Monthly{}, nil
		}
		day, err := parseDayOfMonth(args[0])
		if err != nil {
			return nil, err
		}
		return Monthly{TargetDay: day}, nil
	case KindMultiPerMonth:
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: want %s:DAY:TIMES", ErrInvalidRule, kind)
		}
		day, err := parseDayOfMonth(args[0])
		if err != nil {
			return nil, err
		}
		times, err := parsePositive(args[1])
		if err != nil {
			return nil, err
		}
		return MultiPerMonth{StartDay: day, Times: times}, nil
	case KindQuarterly, KindSemiAnnual, KindAnnual:
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: want %s:MONTH:DAY", ErrInvalidRule, kind)
		}
		month, err := parsePositive(args[0])
		if err != nil || month > 12 {
			return nil, fmt.Errorf("%w: month %q", ErrInvalidRule, args[0])
		}
		day, err := parseDayOfMonth(args[1])
		if err != nil {
			return nil, err
		}
		a := Anchor{Month: month - 1, Day: day}
		switch kind {
		case KindQuarterly:
			return Quarterly{Anchor: a}, nil
		case KindSemiAnnual:
			return SemiAnnual{Anchor: a}, nil
		default:
			return Annual{Anchor: a}, nil
		}
	case KindCustom:
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: want %s:DAYS", ErrInvalidRule, kind)
		}
		days, err := parsePositive(args[0])
		if err != nil {
			return nil, err
		}
		return CustomInterval{Days: days}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, parts[0])
	}
}

func parseWeekdayArg(s string) (Weekday, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("%w: weekday %d out of range", ErrInvalidRule, n)
		}
		return Weekday(n), nil
	}
	return parseWeekday(s)
}

func parseWeekdaySet(s string) (WeekdaySet, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	var days []Weekday
	for _, part := range strings.Split(s, ",") {
		wd, err := parseWeekdayArg(strings.TrimSpace(part))
		if err != nil {
			return 0, err
		}
		days = append(days, wd)
	}
	return NewWeekdaySet(days...), nil
}

func parsePositive(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q is not a positive number", ErrInvalidRule, s)
	}
	return n, nil
}

func parseDayOfMonth(s string) (int, error) {
	n, err := parsePositive(s)
	if err != nil || n > 31 {
		return 0, fmt.Errorf("%w: day %q", ErrInvalidRule, s)
	}
	return n, nil
}
