package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// Kind enumerates the closed set of supported recurrence frequencies.
type Kind int

const (
	Daily Kind = iota
	Weekly
)

var kindNames = map[Kind]string{
	Daily:  "DAILY",
	Weekly: "WEEKLY",
}

var kindFromName = map[string]Kind{
	"DAILY":  Daily,
	"WEEKLY": Weekly,
}

var dayNames = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

var dayAbbrev = map[time.Weekday]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

// Rule is a decoded recurrence rule. It is decoded once when a chore
// definition is created; the evaluator never re-parses strings.
type Rule struct {
	Kind Kind
	Days []time.Weekday // Weekly only; empty = plain weekly cadence
}

// Parse parses a rule string like "FREQ=DAILY" or "FREQ=WEEKLY;BYDAY=MO,WE".
func Parse(rule string) (Rule, error) {
	if rule == "" {
		return Rule{}, fmt.Errorf("empty rule")
	}

	var r Rule
	var hasFreq bool

	parts := strings.Split(rule, ";")
	for _, part := range parts {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return Rule{}, fmt.Errorf("invalid rule part: %q", part)
		}
		key, val := kv[0], kv[1]

		switch key {
		case "FREQ":
			k, ok := kindFromName[val]
			if !ok {
				return Rule{}, fmt.Errorf("unknown frequency: %q", val)
			}
			r.Kind = k
			hasFreq = true

		case "BYDAY":
			for _, d := range strings.Split(val, ",") {
				wd, ok := dayNames[strings.TrimSpace(d)]
				if !ok {
					return Rule{}, fmt.Errorf("unknown day: %q", d)
				}
				r.Days = append(r.Days, wd)
			}

		default:
			return Rule{}, fmt.Errorf("unsupported rule key: %q", key)
		}
	}

	if !hasFreq {
		return Rule{}, fmt.Errorf("FREQ is required")
	}
	if r.Kind == Daily && len(r.Days) > 0 {
		return Rule{}, fmt.Errorf("BYDAY is only valid with FREQ=WEEKLY")
	}

	return r, nil
}

// String serializes the rule back to its storage form.
func (r Rule) String() string {
	s := "FREQ=" + kindNames[r.Kind]
	if len(r.Days) > 0 {
		var days []string
		for _, d := range r.Days {
			days = append(days, dayAbbrev[d])
		}
		s += ";BYDAY=" + strings.Join(days, ",")
	}
	return s
}

// Describe returns a human-readable description of the rule.
func (r Rule) Describe() string {
	switch r.Kind {
	case Daily:
		return "Repeats daily"
	case Weekly:
		if len(r.Days) > 0 {
			var names []string
			for _, d := range r.Days {
				names = append(names, d.String()[:3])
			}
			return "Repeats weekly on " + strings.Join(names, ", ")
		}
		return "Repeats weekly"
	}
	return ""
}

// NextDue returns the first due date strictly after the given date. The
// resolved occurrence's own date is never re-selected, even when its weekday
// is in the rule's day set. NextDue is a pure function of its inputs: the
// lifecycle manager calls it speculatively and relies on identical answers
// across retries.
func NextDue(r Rule, after time.Time) time.Time {
	after = DateOnly(after)

	switch r.Kind {
	case Weekly:
		if len(r.Days) == 0 {
			return after.AddDate(0, 0, 7)
		}
		for offset := 1; offset <= 7; offset++ {
			candidate := after.AddDate(0, 0, offset)
			for _, d := range r.Days {
				if candidate.Weekday() == d {
					return candidate
				}
			}
		}
		// Unreachable: any non-empty weekday set matches within 7 days.
		return after.AddDate(0, 0, 7)
	default:
		return after.AddDate(0, 0, 1)
	}
}

// DateOnly truncates a timestamp to its calendar date at UTC midnight, the
// normal form for all due dates.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
