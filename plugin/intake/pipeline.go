// Package intake turns free-form appointment requests into structured appointments.
//
// The pipeline has three pure stages: entity extraction, temporal normalization,
// and guardrail checks. Stages share only read-only configuration, so a Pipeline
// can serve concurrent requests without locking.
package intake

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hrygo/medibook/plugin/intake/department"
	"github.com/hrygo/medibook/plugin/intake/entity"
	"github.com/hrygo/medibook/plugin/intake/guardrail"
	"github.com/hrygo/medibook/plugin/intake/temporal"
)

// StatusOK marks a finalized appointment.
const StatusOK = "ok"

// DefaultBatchConcurrency bounds ProcessBatch when no limit is given.
const DefaultBatchConcurrency = 8

// Appointment is the final structured record.
type Appointment struct {
	Department string `json:"department"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Timezone   string `json:"timezone"`
}

// Result is the outcome of processing one request. Exactly one of Appointment
// and Clarification is set.
type Result struct {
	Status                  string                   `json:"status"`
	RawText                 string                   `json:"raw_text"`
	Entities                entity.Entities          `json:"entities"`
	EntitiesConfidence      float64                  `json:"entities_confidence"`
	Normalized              temporal.Normalized      `json:"normalized"`
	NormalizationConfidence float64                  `json:"normalization_confidence"`
	Appointment             *Appointment             `json:"appointment,omitempty"`
	Clarification           *guardrail.Clarification `json:"-"`
}

// NeedsClarification reports whether a guardrail rejected the request.
func (r *Result) NeedsClarification() bool {
	return r.Clarification != nil
}

// Config is the read-only configuration injected into a Pipeline.
type Config struct {
	Departments       *department.Map
	Location          *time.Location
	DefaultOffsetDays int
	DefaultTime       string
}

// Pipeline wires the extraction, normalization, and guardrail stages.
type Pipeline struct {
	departments *department.Map
	extractor   *entity.Extractor
	normalizer  *temporal.Normalizer
	recognizer  Recognizer
	ocrTimeout  time.Duration
	now         func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecognizer sets the OCR collaborator used by ProcessImage and Recognize.
func WithRecognizer(r Recognizer) Option {
	return func(p *Pipeline) { p.recognizer = r }
}

// WithOCRTimeout bounds each OCR call.
func WithOCRTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.ocrTimeout = d
		}
	}
}

// WithClock overrides the wall clock used when no reference time is given.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Pipeline. A nil department map uses the built-in departments.
func New(cfg Config, opts ...Option) *Pipeline {
	departments := cfg.Departments
	if departments == nil {
		departments = department.Default()
	}
	p := &Pipeline{
		departments: departments,
		extractor:   entity.NewExtractor(departments),
		normalizer: temporal.NewNormalizer(temporal.Config{
			Location:          cfg.Location,
			DefaultOffsetDays: cfg.DefaultOffsetDays,
			DefaultTime:       cfg.DefaultTime,
		}),
		ocrTimeout: DefaultOCRTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Departments returns the active department map.
func (p *Pipeline) Departments() *department.Map {
	return p.departments
}

// Location returns the pipeline timezone.
func (p *Pipeline) Location() *time.Location {
	return p.normalizer.Location()
}

// Now returns the current time in the pipeline timezone.
func (p *Pipeline) Now() time.Time {
	return p.now().In(p.normalizer.Location())
}

// Extract runs the entity extraction stage.
func (p *Pipeline) Extract(text string) entity.Result {
	return p.extractor.Extract(text)
}

// Normalize runs the temporal normalization stage against now.
func (p *Pipeline) Normalize(datePhrase, timePhrase *string, now time.Time) temporal.Result {
	return p.normalizer.Normalize(datePhrase, timePhrase, now)
}

// Process runs the full pipeline against the current time.
func (p *Pipeline) Process(text string) *Result {
	return p.ProcessAt(text, p.Now())
}

// ProcessAt runs the full pipeline against the given reference time.
func (p *Pipeline) ProcessAt(text string, now time.Time) *Result {
	extracted := p.extractor.Extract(text)
	normalized := p.normalizer.Normalize(extracted.Entities.DatePhrase, extracted.Entities.TimePhrase, now)

	result := &Result{
		RawText:                 text,
		Entities:                extracted.Entities,
		EntitiesConfidence:      extracted.Confidence,
		Normalized:              normalized.Normalized,
		NormalizationConfidence: normalized.Confidence,
	}

	if c := guardrail.Evaluate(extracted.Entities, normalized.Normalized); c != nil {
		result.Status = c.Status
		result.Clarification = c
		slog.Debug("appointment needs clarification", "message", c.Message)
		return result
	}

	appt := p.Assemble(extracted.Entities, normalized.Normalized)
	result.Status = StatusOK
	result.Appointment = &appt
	return result
}

// Assemble maps the department keyword to its canonical name and copies the
// normalized fields. Absent or unmapped keywords use the fallback department.
func (p *Pipeline) Assemble(e entity.Entities, n temporal.Normalized) Appointment {
	keyword := ""
	if e.DepartmentKeyword != nil {
		keyword = *e.DepartmentKeyword
	}
	name, _ := p.departments.Canonical(keyword)
	return Appointment{
		Department: name,
		Date:       n.Date,
		Time:       n.Time,
		Timezone:   n.Timezone,
	}
}

// ProcessBatch processes texts concurrently against a single reference time.
// Results keep input order. limit <= 0 uses DefaultBatchConcurrency.
func (p *Pipeline) ProcessBatch(ctx context.Context, texts []string, limit int) ([]*Result, error) {
	if limit <= 0 {
		limit = DefaultBatchConcurrency
	}
	now := p.Now()
	results := make([]*Result, len(texts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = p.ProcessAt(text, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
