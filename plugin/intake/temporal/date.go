package temporal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

var months = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

var (
	numericDatePattern = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?$`)
	dayMonthPattern    = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)?\s+([a-z]+)\.?(?:\s+(\d{4}))?$`)
)

// verdict is a date rule's answer for one phrase.
type verdict int

const (
	// skip means the rule does not apply; the next rule is tried.
	skip verdict = iota
	// resolved means the rule produced a date.
	resolved
	// rejected means the phrase has the rule's shape but names no valid date.
	// No later rule is tried and the default date applies.
	rejected
)

// dateRule resolves a lower-cased, trimmed phrase against now.
type dateRule struct {
	name    string
	resolve func(n *Normalizer, phrase string, now time.Time) (time.Time, verdict)
}

// dateRules is evaluated in order; the first rule that does not skip decides.
var dateRules = []dateRule{
	{"next_weekday", resolveNextWeekday},
	{"tomorrow", resolveTomorrow},
	{"today", resolveToday},
	{"weekday", resolveWeekday},
	{"numeric_date", resolveNumericDate},
	{"day_month", resolveDayMonth},
	{"free_text", resolveFreeText},
}

func (n *Normalizer) resolveDate(phrase string, present bool, now time.Time) DateResolution {
	fallback := DateResolution{
		Date:    now.AddDate(0, 0, n.defaultOffsetDays),
		Outcome: OutcomeFallback,
		Rule:    "default_offset",
	}
	if !present {
		return fallback
	}
	for _, r := range dateRules {
		d, v := r.resolve(n, phrase, now)
		switch v {
		case resolved:
			return DateResolution{Date: d, Outcome: OutcomeResolved, Rule: r.name}
		case rejected:
			fallback.Rule = r.name
			return fallback
		}
	}
	return fallback
}

// nextOccurrence returns the next date strictly after now falling on wd.
func nextOccurrence(now time.Time, wd time.Weekday) time.Time {
	ahead := int(wd) - int(now.Weekday())
	if ahead <= 0 {
		ahead += 7
	}
	return now.AddDate(0, 0, ahead)
}

// resolveNextWeekday owns every "next ..." phrase. Anything but a full weekday
// name after "next" ("next week", "next sat") is rejected.
func resolveNextWeekday(_ *Normalizer, phrase string, now time.Time) (time.Time, verdict) {
	rest, ok := strings.CutPrefix(phrase, "next ")
	if !ok {
		return time.Time{}, skip
	}
	wd, ok := weekdays[strings.TrimSpace(rest)]
	if !ok {
		return time.Time{}, rejected
	}
	return nextOccurrence(now, wd), resolved
}

func resolveTomorrow(_ *Normalizer, phrase string, now time.Time) (time.Time, verdict) {
	if phrase != "tomorrow" {
		return time.Time{}, skip
	}
	return now.AddDate(0, 0, 1), resolved
}

func resolveToday(_ *Normalizer, phrase string, now time.Time) (time.Time, verdict) {
	if phrase != "today" {
		return time.Time{}, skip
	}
	return now, resolved
}

func resolveWeekday(_ *Normalizer, phrase string, now time.Time) (time.Time, verdict) {
	wd, ok := weekdays[phrase]
	if !ok {
		return time.Time{}, skip
	}
	return nextOccurrence(now, wd), resolved
}

// resolveNumericDate reads month-first numeric dates: 5/3/2026 is 3 May,
// 12/25/26 is 25 December. When the first number cannot be a month it is read
// as the day instead (13/3/2026 is 13 March). A missing year inherits from now.
func resolveNumericDate(n *Normalizer, phrase string, now time.Time) (time.Time, verdict) {
	m := numericDatePattern.FindStringSubmatch(phrase)
	if m == nil {
		return time.Time{}, skip
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	if month > 12 {
		month, day = day, month
	}
	year := now.Year()
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
		switch len(m[3]) {
		case 2:
			year += 2000
		case 3:
			return time.Time{}, rejected
		}
	}
	if month < 1 || month > 12 {
		return time.Time{}, rejected
	}
	return calendarDate(year, time.Month(month), day, n.location)
}

// resolveDayMonth reads "15 march", "3rd sept", "1 jan 2027". A missing year
// inherits from now. A word that is not a month leaves the phrase to later rules.
func resolveDayMonth(n *Normalizer, phrase string, now time.Time) (time.Time, verdict) {
	m := dayMonthPattern.FindStringSubmatch(phrase)
	if m == nil {
		return time.Time{}, skip
	}
	month, ok := lookupMonth(m[2])
	if !ok {
		return time.Time{}, skip
	}
	day, _ := strconv.Atoi(m[1])
	year := now.Year()
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
	}
	return calendarDate(year, month, day, n.location)
}

// resolveFreeText hands anything else to the natural-language parser, anchored at now.
func resolveFreeText(n *Normalizer, phrase string, now time.Time) (time.Time, verdict) {
	r, err := n.freeText.Parse(phrase, now)
	if err != nil || r == nil {
		return time.Time{}, skip
	}
	return r.Time.In(n.location), resolved
}

// lookupMonth accepts a full month name or any prefix of at least three letters.
func lookupMonth(word string) (time.Month, bool) {
	if len(word) < 3 {
		return 0, false
	}
	for name, month := range months {
		if strings.HasPrefix(name, word) {
			return month, true
		}
	}
	return 0, false
}

// calendarDate builds a date, rejecting values time.Date would silently roll over.
func calendarDate(year int, month time.Month, day int, loc *time.Location) (time.Time, verdict) {
	if day < 1 || day > 31 {
		return time.Time{}, rejected
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, rejected
	}
	return t, resolved
}
