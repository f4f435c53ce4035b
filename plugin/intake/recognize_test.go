package intake

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	text  string
	err   error
	delay time.Duration
	calls int
}

func (f *fakeRecognizer) ExtractText(ctx context.Context, _ []byte, _ string) (string, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func TestRecognize(t *testing.T) {
	t.Run("no recognizer", func(t *testing.T) {
		p, _ := newTestPipeline(t)
		_, err := p.Recognize(context.Background(), []byte("img"), "image/png")
		assert.ErrorIs(t, err, ErrNoRecognizer)
	})

	t.Run("trims text", func(t *testing.T) {
		p, _ := newTestPipeline(t, WithRecognizer(&fakeRecognizer{text: "  dentist tomorrow 3pm \n"}))
		text, err := p.Recognize(context.Background(), []byte("img"), "image/png")
		require.NoError(t, err)
		assert.Equal(t, "dentist tomorrow 3pm", text)
	})

	t.Run("empty text is an error", func(t *testing.T) {
		p, _ := newTestPipeline(t, WithRecognizer(&fakeRecognizer{text: " \n\t"}))
		_, err := p.Recognize(context.Background(), []byte("img"), "image/png")
		assert.ErrorIs(t, err, ErrNoText)
		assert.NotErrorIs(t, err, ErrRecognition)
	})

	t.Run("collaborator failure", func(t *testing.T) {
		p, _ := newTestPipeline(t, WithRecognizer(&fakeRecognizer{err: errors.New("tesseract not found")}))
		_, err := p.Recognize(context.Background(), []byte("img"), "image/png")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRecognition)
		assert.Contains(t, err.Error(), "tesseract not found")

		var recErr *RecognitionError
		assert.ErrorAs(t, err, &recErr)
	})

	t.Run("timeout", func(t *testing.T) {
		p, _ := newTestPipeline(t,
			WithRecognizer(&fakeRecognizer{text: "late", delay: time.Second}),
			WithOCRTimeout(10*time.Millisecond))
		_, err := p.Recognize(context.Background(), []byte("img"), "image/png")
		assert.ErrorIs(t, err, ErrRecognition)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestProcessImage(t *testing.T) {
	rec := &fakeRecognizer{text: "Cardiology appointment tomorrow at 10:30"}
	p, _ := newTestPipeline(t, WithRecognizer(rec))

	got, err := p.ProcessImage(context.Background(), []byte("img"), "image/png")
	require.NoError(t, err)
	require.NotNil(t, got.Appointment)
	assert.Equal(t, "Cardiology", got.Appointment.Department)
	assert.Equal(t, "2026-10-15", got.Appointment.Date)
	assert.Equal(t, "10:30", got.Appointment.Time)
	assert.Equal(t, 1, rec.calls)

	p, _ = newTestPipeline(t, WithRecognizer(&fakeRecognizer{err: errors.New("boom")}))
	got, err = p.ProcessImage(context.Background(), []byte("img"), "image/png")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrRecognition)
}
