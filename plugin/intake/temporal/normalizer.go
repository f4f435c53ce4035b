// Package temporal resolves extracted date and time phrases into an absolute
// calendar date and clock time in a fixed timezone.
package temporal

import (
	"log/slog"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Confidence levels reported by the normalizer. They reflect input completeness,
// not whether resolution succeeded.
const (
	ConfidenceComplete = 0.90 // both date and time phrases supplied
	ConfidencePartial  = 0.70
)

// Defaults applied when a phrase is absent or cannot be resolved.
const (
	DefaultDateOffsetDays = 7
	DefaultHour           = 9
	DefaultMinute         = 0
)

// Outcome tells whether a value came from the phrase or from a default.
type Outcome string

const (
	OutcomeResolved Outcome = "resolved"
	OutcomeFallback Outcome = "fallback"
)

// Normalized is a fully populated date, clock time, and timezone.
type Normalized struct {
	Date     string `json:"date"` // YYYY-MM-DD
	Time     string `json:"time"` // HH:MM, 24-hour
	Timezone string `json:"timezone"`
}

// DateResolution records how the calendar date was obtained. On fallback, Rule
// names the rule that rejected the phrase, or "default_offset" when none did.
type DateResolution struct {
	Date    time.Time
	Outcome Outcome
	Rule    string
}

// TimeResolution records how the clock time was obtained.
type TimeResolution struct {
	Hour    int
	Minute  int
	Outcome Outcome
	Rule    string
}

// Result is the output of a single normalization.
type Result struct {
	Normalized Normalized     `json:"normalized"`
	Confidence float64        `json:"normalization_confidence"`
	At         time.Time      `json:"-"`
	Date       DateResolution `json:"-"`
	Time       TimeResolution `json:"-"`
}

// Config holds the fixed parameters of a Normalizer.
type Config struct {
	Location          *time.Location
	DefaultOffsetDays int
	DefaultTime       string // "HH:MM", 24-hour
}

// Normalizer resolves date/time phrases. It holds only read-only state and is
// safe for concurrent use.
type Normalizer struct {
	location          *time.Location
	defaultOffsetDays int
	defaultHour       int
	defaultMinute     int
	freeText          *when.Parser
	now               func() time.Time
}

// NewNormalizer creates a normalizer from cfg. A nil location uses UTC; zero or
// unparsable defaults use the package defaults.
func NewNormalizer(cfg Config) *Normalizer {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	offset := cfg.DefaultOffsetDays
	if offset == 0 {
		offset = DefaultDateOffsetDays
	}
	hour, minute := DefaultHour, DefaultMinute
	if h, m, ok := parseClock24(cfg.DefaultTime); ok {
		hour, minute = h, m
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	return &Normalizer{
		location:          loc,
		defaultOffsetDays: offset,
		defaultHour:       hour,
		defaultMinute:     minute,
		freeText:          w,
		now:               time.Now,
	}
}

// Location returns the normalizer's timezone.
func (n *Normalizer) Location() *time.Location {
	return n.location
}

// Now returns the current wall-clock time in the normalizer's timezone.
func (n *Normalizer) Now() time.Time {
	return n.now().In(n.location)
}

// Normalize resolves the phrases relative to now. Nil or blank phrases are
// treated as absent. It never fails: unresolved phrases fall back to defaults.
func (n *Normalizer) Normalize(datePhrase, timePhrase *string, now time.Time) Result {
	now = now.In(n.location)
	dateText, hasDate := phraseText(datePhrase)
	timeText, hasTime := phraseText(timePhrase)

	date := n.resolveDate(dateText, hasDate, now)
	clock := n.resolveTime(timeText, hasTime)

	d := date.Date
	at := time.Date(d.Year(), d.Month(), d.Day(), clock.Hour, clock.Minute, 0, 0, n.location)

	confidence := ConfidencePartial
	if hasDate && hasTime {
		confidence = ConfidenceComplete
	}

	slog.Debug("phrases normalized",
		"date_rule", date.Rule,
		"date_outcome", date.Outcome,
		"time_rule", clock.Rule,
		"time_outcome", clock.Outcome,
		"confidence", confidence)

	return Result{
		Normalized: Normalized{
			Date:     at.Format(time.DateOnly),
			Time:     at.Format("15:04"),
			Timezone: n.location.String(),
		},
		Confidence: confidence,
		At:         at,
		Date:       date,
		Time:       clock,
	}
}

func phraseText(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	s := strings.ToLower(strings.TrimSpace(*p))
	return s, s != ""
}
