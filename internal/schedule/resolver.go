package schedule

import "time"

// NextDue returns the date a task governed by r comes due again after its
// last completion. A task that was never completed is due at now.
//
// The result is a midnight in the location of last and is never earlier than
// the day of last. Out-of-range rule parameters are clamped, so NextDue is
// defined for every input.
func NextDue(r Rule, last *time.Time, now time.Time) time.Time {
	if last == nil {
		return now
	}
	l := StartOfDay(*last)

	switch r := r.(type) {
	case Daily:
		return nextActiveDay(addDays(l, 1), r.ActiveDays)

	case Weekly:
		if r.Target == nil {
			return addDays(l, 7)
		}
		ahead := (int(r.Target.clamp()) - int(WeekdayOf(l)) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return addDays(l, ahead)

	case MultiPerWeek:
		interval := ceilDiv(7, atLeastOne(r.Times))
		toStart := (int(r.Start.clamp()) - int(WeekdayOf(l)) + 7) % 7
		if toStart > 0 && toStart <= interval {
			return addDays(l, toStart)
		}
		return addDays(l, interval)

	case Monthly:
		day := l.Day()
		if r.TargetDay > 0 {
			day = r.TargetDay
		}
		return AddMonths(l, 1, day)

	case MultiPerMonth:
		return nextMultiMonthly(l, r)

	case Quarterly:
		return AddMonths(l, 3, clampRange(r.Anchor.Day, 1, 31))

	case SemiAnnual:
		return AddMonths(l, 6, clampRange(r.Anchor.Day, 1, 31))

	case Annual:
		return AddMonths(l, 12, clampRange(r.Anchor.Day, 1, 31))

	case CustomInterval:
		return addDays(l, atLeastOne(r.Days))

	default:
		return addDays(l, DefaultIntervalDays)
	}
}

// nextActiveDay walks forward from d until it lands on an active weekday.
func nextActiveDay(d time.Time, active WeekdaySet) time.Time {
	for i := 0; i < 7 && !active.Has(WeekdayOf(d)); i++ {
		d = addDays(d, 1)
	}
	return d
}

func nextMultiMonthly(l time.Time, r MultiPerMonth) time.Time {
	interval := ceilDiv(30, atLeastOne(r.Times))
	start := clampRange(r.StartDay, 1, 31)

	occurrence := start
	if last := l.Day(); occurrence <= last {
		steps := (last-start)/interval + 1
		occurrence = start + steps*interval
	}

	y, m, _ := l.Date()
	if occurrence > DaysIn(y, m) {
		return AddMonths(l, 1, start)
	}
	return time.Date(y, m, occurrence, 0, 0, 0, 0, l.Location())
}
