package temporal

import (
	"regexp"
	"strconv"
	"strings"
)

// meridiemNoise strips everything but digits, colon, the am/pm letters, and whitespace.
var meridiemNoise = regexp.MustCompile(`[^\d:apm\s]`)

func (n *Normalizer) resolveTime(phrase string, present bool) TimeResolution {
	if present {
		switch {
		case strings.Contains(phrase, "am") || strings.Contains(phrase, "pm"):
			if h, m, ok := parseMeridiem(phrase); ok {
				return TimeResolution{Hour: h, Minute: m, Outcome: OutcomeResolved, Rule: "meridiem"}
			}
		case strings.Contains(phrase, ":"):
			if h, m, ok := parseClock24(phrase); ok {
				return TimeResolution{Hour: h, Minute: m, Outcome: OutcomeResolved, Rule: "clock_24h"}
			}
		}
	}
	return TimeResolution{
		Hour:    n.defaultHour,
		Minute:  n.defaultMinute,
		Outcome: OutcomeFallback,
		Rule:    "default_time",
	}
}

// parseMeridiem reads "3pm", "3 pm", "11:45 am", "3:30pm" into 24-hour form.
func parseMeridiem(phrase string) (hour, minute int, ok bool) {
	fields := strings.Fields(meridiemNoise.ReplaceAllString(phrase, ""))
	if len(fields) == 0 {
		return 0, 0, false
	}
	pm := strings.Contains(phrase, "pm")

	// The marker may be glued to the digits ("3:30pm"); keep the numeric part only.
	clock := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == ':' {
			return r
		}
		return -1
	}, fields[0])

	hour, minute, ok = splitClock(clock, true)
	if !ok {
		return 0, 0, false
	}
	switch {
	case pm && hour != 12:
		hour += 12
	case !pm && hour == 12:
		hour = 0
	}
	if hour > 23 {
		return 0, 0, false
	}
	return hour, minute, true
}

// parseClock24 reads a literal 24-hour "HH:MM".
func parseClock24(phrase string) (hour, minute int, ok bool) {
	return splitClock(strings.TrimSpace(phrase), false)
}

// splitClock parses "H" (when bareHour is set) or "H:MM" and validates ranges.
func splitClock(s string, bareHour bool) (hour, minute int, ok bool) {
	parts := strings.Split(s, ":")
	var err error
	switch {
	case len(parts) == 1 && bareHour:
		hour, err = strconv.Atoi(parts[0])
	case len(parts) == 2:
		hour, err = strconv.Atoi(strings.TrimSpace(parts[0]))
		if err == nil {
			minute, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		}
	default:
		return 0, 0, false
	}
	if err != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}
