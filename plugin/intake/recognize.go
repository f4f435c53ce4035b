package intake

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultOCRTimeout bounds a single OCR call.
const DefaultOCRTimeout = 30 * time.Second

// OCRConfidence is the fixed score reported for recognized or directly supplied text.
const OCRConfidence = 0.90

var (
	// ErrRecognition wraps any failure of the OCR collaborator, including timeouts.
	ErrRecognition = errors.New("text recognition failed")
	// ErrNoText is returned when OCR succeeds but yields no readable text.
	ErrNoText = errors.New("No text could be extracted from the image. The image might be too blurry or contain no readable text.")
	// ErrNoRecognizer is returned when image input arrives without an OCR collaborator.
	ErrNoRecognizer = errors.New("OCR is not configured")
	// ErrEmptyInput is returned by callers that require non-empty text.
	ErrEmptyInput = errors.New("No text or image provided")
)

// Recognizer turns image bytes into text.
type Recognizer interface {
	ExtractText(ctx context.Context, image []byte, mimeType string) (string, error)
}

// Recognize runs OCR with the configured timeout. Collaborator failures are
// wrapped with ErrRecognition; empty output is ErrNoText, never an empty string.
func (p *Pipeline) Recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	if p.recognizer == nil {
		return "", ErrNoRecognizer
	}

	ctx, cancel := context.WithTimeout(ctx, p.ocrTimeout)
	defer cancel()

	text, err := p.recognizer.ExtractText(ctx, image, mimeType)
	if err != nil {
		if ctx.Err() != nil {
			err = errors.Wrapf(ctx.Err(), "ocr gave up after %s", p.ocrTimeout)
		}
		return "", &RecognitionError{Cause: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// ProcessImage runs OCR and then the full pipeline on the recognized text.
func (p *Pipeline) ProcessImage(ctx context.Context, image []byte, mimeType string) (*Result, error) {
	text, err := p.Recognize(ctx, image, mimeType)
	if err != nil {
		return nil, err
	}
	return p.Process(text), nil
}

// RecognitionError carries the OCR collaborator's failure.
type RecognitionError struct {
	Cause error
}

func (e *RecognitionError) Error() string {
	return e.Cause.Error()
}

func (e *RecognitionError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrRecognition) hold for every RecognitionError.
func (e *RecognitionError) Is(target error) bool {
	return target == ErrRecognition
}
