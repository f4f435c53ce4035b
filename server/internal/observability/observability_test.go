package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContext_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	rc := NewRequestContext(logger, "appointment", "10.0.0.1")
	assert.Len(t, rc.RequestID, 36)

	rc.Error("ocr failed", errors.New("tesseract not found"), slog.String(LogFieldErrorCode, "OCR_FAILED"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, rc.RequestID, rec[LogFieldRequestID])
	assert.Equal(t, "appointment", rec[LogFieldOperation])
	assert.Equal(t, "10.0.0.1", rec[LogFieldRemoteIP])
	assert.Equal(t, "OCR_FAILED", rec[LogFieldErrorCode])
	assert.Equal(t, "tesseract not found", rec["error"])
}

func TestRequestContext_Done(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	rc := NewRequestContextWithID(logger, "fixed-id", "entities", "")
	rc.Done(slog.String(LogFieldStatus, "ok"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "fixed-id", rec[LogFieldRequestID])
	assert.Contains(t, rec, LogFieldDuration)
	assert.NotContains(t, rec, LogFieldRemoteIP)
}

func TestContextRoundTrip(t *testing.T) {
	rc := NewRequestContext(nil, "normalize", "")
	ctx := WithRequestContext(context.Background(), rc)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, rc, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.Record("appointment", OutcomeOK, 10*time.Millisecond)
	m.Record("appointment", OutcomeNeedsClarification, 20*time.Millisecond)
	m.Record("appointment", OutcomeError, 30*time.Millisecond)
	m.Record("ocr", OutcomeOK, 100*time.Millisecond)

	s := m.Snapshot()
	assert.Equal(t, int64(4), s.RequestTotal)
	appt := s.Operations["appointment"]
	require.NotNil(t, appt)
	assert.Equal(t, int64(3), appt.Total)
	assert.Equal(t, int64(1), appt.Clarifications)
	assert.Equal(t, int64(1), appt.Errors)
	assert.Equal(t, int64(20), appt.AverageDurationMs)
	assert.Len(t, s.Operations, 2)

	m.Reset()
	assert.Equal(t, int64(0), m.Snapshot().RequestTotal)
	assert.Empty(t, m.Snapshot().Operations)
}
