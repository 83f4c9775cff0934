package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRule_TextForm(t *testing.T) {
	for _, r := range allRules() {
		if c, ok := r.(CustomInterval); ok && c.Days < 1 {
			continue
		}
		parsed, err := ParseRule(r.String())
		require.NoError(t, err, r.String())
		assert.Equal(t, r, parsed)
	}
}

func TestParseRule_Inputs(t *testing.T) {
	cases := map[string]Rule{
		"Daily":             Daily{},
		"daily:mon,wed,fri": Daily{ActiveDays: NewWeekdaySet(Monday, Wednesday, Friday)},
		"weekly:Wednesday":  Weekly{Target: weekday(Wednesday)},
		"weekly:6":          Weekly{Target: weekday(Sunday)},
		"multiweek:tue:2":   MultiPerWeek{Start: Tuesday, Times: 2},
		"monthly:15":        Monthly{TargetDay: 15},
		"multimonth:1:4":    MultiPerMonth{StartDay: 1, Times: 4},
		"quarterly:1:15":    Quarterly{Anchor: Anchor{Month: 0, Day: 15}},
		"semiannual:6:30":   SemiAnnual{Anchor: Anchor{Month: 5, Day: 30}},
		" annual:2:29 ":     Annual{Anchor: Anchor{Month: 1, Day: 29}},
		"every:10":          CustomInterval{Days: 10},
	}
	for in, want := range cases {
		got, err := ParseRule(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseRule_Errors(t *testing.T) {
	_, err := ParseRule("fortnightly")
	assert.ErrorIs(t, err, ErrUnknownKind)

	for _, in := range []string{"weekly:someday", "multiweek:mon", "monthly:32", "annual:13:1", "every:0", "every", "daily:xyz"} {
		_, err := ParseRule(in)
		assert.ErrorIs(t, err, ErrInvalidRule, in)
	}
}

func TestDecode(t *testing.T) {
	for _, r := range allRules() {
		if c, ok := r.(CustomInterval); ok && c.Days < 1 {
			continue
		}
		got, err := Decode(Encode(r))
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
}

func TestDecode_Fallbacks(t *testing.T) {
	got, err := Decode(Fields{Kind: "", Days: 0})
	require.NoError(t, err)
	assert.Equal(t, CustomInterval{Days: DefaultIntervalDays}, got)

	got, err = Decode(Fields{Kind: "weekly", Weekday: 12})
	require.NoError(t, err)
	assert.Equal(t, Weekly{Target: weekday(Sunday)}, got)

	got, err = Decode(Fields{Kind: "annual", StartMonth: 20, StartDay: 0})
	require.NoError(t, err)
	assert.Equal(t, Annual{Anchor: Anchor{Month: 11, Day: 1}}, got)

	_, err = Decode(Fields{Kind: "biweekly"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestApproxDays(t *testing.T) {
	assert.Equal(t, 1, ApproxDays(Daily{}))
	assert.Equal(t, 3, ApproxDays(MultiPerWeek{Times: 3}))
	assert.Equal(t, 8, ApproxDays(MultiPerMonth{Times: 4}))
	assert.Equal(t, 365, ApproxDays(Annual{}))
	assert.Equal(t, 12, ApproxDays(CustomInterval{Days: 12}))
}
