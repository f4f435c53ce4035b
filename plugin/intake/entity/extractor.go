// Package entity extracts department, date, and time phrases from appointment request text.
package entity

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/hrygo/medibook/plugin/intake/department"
)

// Confidence levels reported by the extractor. Downstream guardrails expect this scale.
const (
	ConfidenceHigh = 0.85 // at least two of department/date/time found
	ConfidenceLow  = 0.60
)

// Entities holds the phrases found in a request. A nil field means "not found";
// a non-nil field is the matched substring of the lower-cased text.
type Entities struct {
	DatePhrase        *string `json:"date_phrase"`
	TimePhrase        *string `json:"time_phrase"`
	DepartmentKeyword *string `json:"department"`
}

// Found reports how many of the three signals are present.
func (e Entities) Found() int {
	n := 0
	for _, p := range []*string{e.DatePhrase, e.TimePhrase, e.DepartmentKeyword} {
		if p != nil {
			n++
		}
	}
	return n
}

// Result is the output of a single extraction.
type Result struct {
	Entities   Entities `json:"entities"`
	Confidence float64  `json:"entities_confidence"`
	TimeRule   string   `json:"-"`
	DateRule   string   `json:"-"`
}

// Rule is a named pattern whose first capture group is the extracted phrase.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// TimeRules lists time-phrase patterns in priority order. The first rule that
// matches anywhere in the text wins.
var TimeRules = []Rule{
	// "3pm", "@ 3 pm"; the leading class keeps "10:30pm" from matching as "30pm".
	{"hour_meridiem", regexp.MustCompile(`(?:^|[^\d:])@?\s*(\d{1,2}\s*(?:am|pm))`)},
	{"hour_minute", regexp.MustCompile(`@?\s*(\d{1,2}:\d{2}\s*(?:am|pm)?)`)},
	{"at_hour_meridiem", regexp.MustCompile(`at\s+(\d{1,2}\s*(?:am|pm))`)},
	{"at_hour_minute", regexp.MustCompile(`at\s+(\d{1,2}:\d{2})`)},
}

// DateRules lists date-phrase patterns in priority order.
var DateRules = []Rule{
	{"next_word", regexp.MustCompile(`(next\s+\w+)`)},
	{"tomorrow", regexp.MustCompile(`(tomorrow)`)},
	{"today", regexp.MustCompile(`(today)`)},
	{"weekday", regexp.MustCompile(`(monday|tuesday|wednesday|thursday|friday|saturday|sunday)`)},
	{"numeric_date", regexp.MustCompile(`(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`)},
	{"day_month", regexp.MustCompile(`(\d{1,2}\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\w*)`)},
}

// Extractor finds entities using ordered rule tables.
// It holds only read-only state and is safe for concurrent use.
type Extractor struct {
	departments *department.Map
	timeRules   []Rule
	dateRules   []Rule
}

// NewExtractor creates an extractor over the given department map.
// A nil map uses the built-in departments.
func NewExtractor(departments *department.Map) *Extractor {
	if departments == nil {
		departments = department.Default()
	}
	return &Extractor{
		departments: departments,
		timeRules:   TimeRules,
		dateRules:   DateRules,
	}
}

// Extract scans text for a department keyword, a date phrase, and a time phrase.
// Absence of any signal is not an error; it only lowers confidence.
func (x *Extractor) Extract(text string) Result {
	lower := strings.ToLower(text)

	var result Result
	if kw, ok := x.departments.Find(lower); ok {
		result.Entities.DepartmentKeyword = &kw
	}
	if phrase, rule, ok := firstMatch(x.timeRules, lower); ok {
		result.Entities.TimePhrase = &phrase
		result.TimeRule = rule
	}
	if phrase, rule, ok := firstMatch(x.dateRules, lower); ok {
		result.Entities.DatePhrase = &phrase
		result.DateRule = rule
	}

	result.Confidence = ConfidenceLow
	if result.Entities.Found() >= 2 {
		result.Confidence = ConfidenceHigh
	}

	slog.Debug("entities extracted",
		"found", result.Entities.Found(),
		"time_rule", result.TimeRule,
		"date_rule", result.DateRule,
		"confidence", result.Confidence)
	return result
}

// firstMatch returns the trimmed first capture group of the first matching rule.
func firstMatch(rules []Rule, text string) (phrase, rule string, ok bool) {
	for _, r := range rules {
		if m := r.Pattern.FindStringSubmatch(text); len(m) > 1 {
			return strings.TrimSpace(m[1]), r.Name, true
		}
	}
	return "", "", false
}
