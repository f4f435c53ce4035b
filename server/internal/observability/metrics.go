package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Outcome labels recorded per operation.
const (
	OutcomeOK                 = "ok"
	OutcomeNeedsClarification = "needs_clarification"
	OutcomeError              = "error"
)

// Metrics collects per-operation request counts and latencies.
type Metrics struct {
	mu         sync.Mutex
	operations map[string]*OperationMetrics

	requestTotal atomic.Int64
}

// OperationMetrics holds counters for one API operation.
type OperationMetrics struct {
	total          atomic.Int64
	clarifications atomic.Int64
	errors         atomic.Int64
	totalDuration  atomic.Int64 // milliseconds
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{operations: make(map[string]*OperationMetrics)}
}

// Record counts one finished request.
func (m *Metrics) Record(operation, outcome string, duration time.Duration) {
	m.requestTotal.Add(1)
	om := m.operation(operation)
	om.total.Add(1)
	om.totalDuration.Add(duration.Milliseconds())
	switch outcome {
	case OutcomeNeedsClarification:
		om.clarifications.Add(1)
	case OutcomeError:
		om.errors.Add(1)
	}
}

func (m *Metrics) operation(name string) *OperationMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	om, ok := m.operations[name]
	if !ok {
		om = &OperationMetrics{}
		m.operations[name] = om
	}
	return om
}

// Reset resets all metrics.
func (m *Metrics) Reset() {
	m.requestTotal.Store(0)
	m.mu.Lock()
	m.operations = make(map[string]*OperationMetrics)
	m.mu.Unlock()
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal int64                         `json:"request_total"`
	Operations   map[string]*OperationSnapshot `json:"operations"`
}

// OperationSnapshot is the exported view of OperationMetrics.
type OperationSnapshot struct {
	Total             int64 `json:"total"`
	Clarifications    int64 `json:"needs_clarification"`
	Errors            int64 `json:"errors"`
	AverageDurationMs int64 `json:"avg_duration_ms"`
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	ops := make(map[string]*OperationSnapshot, len(m.operations))
	for name, om := range m.operations {
		s := &OperationSnapshot{
			Total:          om.total.Load(),
			Clarifications: om.clarifications.Load(),
			Errors:         om.errors.Load(),
		}
		if s.Total > 0 {
			s.AverageDurationMs = om.totalDuration.Load() / s.Total
		}
		ops[name] = s
	}
	return &MetricsSnapshot{
		RequestTotal: m.requestTotal.Load(),
		Operations:   ops,
	}
}
