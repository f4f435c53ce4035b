package v1

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/medibook/plugin/intake"
	"github.com/hrygo/medibook/plugin/intake/department"
	"github.com/hrygo/medibook/plugin/intake/entity"
	"github.com/hrygo/medibook/plugin/ocr"
	apierrors "github.com/hrygo/medibook/server/internal/errors"
	"github.com/hrygo/medibook/server/internal/observability"
)

const (
	messageNoText     = "No text provided"
	messageNoEntities = "No entities provided"
	messageBadJSON    = "Invalid JSON body"

	tesseractMissingMessage = "Tesseract OCR is not installed or not found in PATH. Please install Tesseract OCR from https://github.com/UB-Mannheim/tesseract/wiki"

	ocrVersionTimeout = 10 * time.Second
)

type textRequest struct {
	Text *string `json:"text"`
}

type normalizeRequest struct {
	Entities *entity.Entities `json:"entities"`
}

// OCRResponse is returned by POST /api/ocr.
type OCRResponse struct {
	RawText    string  `json:"raw_text"`
	Confidence float64 `json:"confidence"`
}

// TestOCRResponse is returned by GET /api/test-ocr.
type TestOCRResponse struct {
	Status             string `json:"status"`
	TesseractInstalled bool   `json:"tesseract_installed"`
	Version            string `json:"version,omitempty"`
	TesseractCmd       string `json:"tesseract_cmd,omitempty"`
	Error              string `json:"error,omitempty"`
	Message            string `json:"message,omitempty"`
}

// DepartmentsResponse is returned by GET /api/departments.
type DepartmentsResponse struct {
	Fallback    string             `json:"fallback"`
	Departments []department.Entry `json:"departments"`
}

// OCRText returns supplied text as-is, or the OCR text of an uploaded image.
// POST /api/ocr
func (s *APIV1Service) OCRText(c echo.Context) error {
	rc := s.begin(c, "ocr")

	var req textRequest
	if apiErr := decodeJSON(c, &req); apiErr != nil {
		return s.fail(c, rc, apiErr)
	}
	if req.Text != nil {
		return s.finish(c, rc, OCRResponse{RawText: *req.Text, Confidence: intake.OCRConfidence}, observability.OutcomeOK)
	}

	image, mimeType, ok, apiErr := readImage(c)
	if apiErr != nil {
		return s.fail(c, rc, apiErr)
	}
	if !ok {
		return s.fail(c, rc, apierrors.InvalidArgument(intake.ErrEmptyInput.Error()))
	}

	text, apiErr := s.recognize(c.Request().Context(), image, mimeType)
	if apiErr != nil {
		return s.fail(c, rc, apiErr)
	}
	return s.finish(c, rc, OCRResponse{RawText: text, Confidence: intake.OCRConfidence}, observability.OutcomeOK)
}

// ExtractEntities runs entity extraction only.
// POST /api/entities
func (s *APIV1Service) ExtractEntities(c echo.Context) error {
	rc := s.begin(c, "entities")

	var req textRequest
	if apiErr := decodeJSON(c, &req); apiErr != nil {
		return s.fail(c, rc, apiErr)
	}
	if req.Text == nil {
		return s.fail(c, rc, apierrors.InvalidArgument(messageNoText))
	}
	return s.finish(c, rc, s.Pipeline().Extract(*req.Text), observability.OutcomeOK)
}

// NormalizeDateTime resolves date and time phrases against the current time.
// POST /api/normalize
func (s *APIV1Service) NormalizeDateTime(c echo.Context) error {
	rc := s.begin(c, "normalize")

	var req normalizeRequest
	if apiErr := decodeJSON(c, &req); apiErr != nil {
		return s.fail(c, rc, apiErr)
	}
	if req.Entities == nil {
		return s.fail(c, rc, apierrors.InvalidArgument(messageNoEntities))
	}
	pipeline := s.Pipeline()
	result := pipeline.Normalize(req.Entities.DatePhrase, req.Entities.TimePhrase, pipeline.Now())
	return s.finish(c, rc, result, observability.OutcomeOK)
}

// CreateAppointment runs the full pipeline. An uploaded image takes precedence
// over JSON text, which takes precedence over a form field.
// POST /api/appointment
func (s *APIV1Service) CreateAppointment(c echo.Context) error {
	rc := s.begin(c, "appointment")

	var req textRequest
	if apiErr := decodeJSON(c, &req); apiErr != nil {
		return s.fail(c, rc, apiErr)
	}
	var text string
	if req.Text != nil {
		text = *req.Text
	}

	image, mimeType, ok, apiErr := readImage(c)
	if apiErr != nil {
		return s.fail(c, rc, apiErr)
	}
	if ok {
		recognized, apiErr := s.recognize(c.Request().Context(), image, mimeType)
		if apiErr != nil {
			return s.fail(c, rc, apiErr)
		}
		text = recognized
	}

	if text == "" && !isJSON(c) {
		text = c.FormValue("text")
	}
	if text == "" {
		return s.fail(c, rc, apierrors.InvalidArgument(intake.ErrEmptyInput.Error()))
	}

	result := s.Pipeline().Process(text)
	if result.NeedsClarification() {
		rc.Debug("clarification requested", slog.String("message", result.Clarification.Message))
		return s.finish(c, rc, result.Clarification, observability.OutcomeNeedsClarification)
	}
	return s.finish(c, rc, result, observability.OutcomeOK)
}

// TestOCR reports whether tesseract can be executed.
// GET /api/test-ocr
func (s *APIV1Service) TestOCR(c echo.Context) error {
	rc := s.begin(c, "test-ocr")

	var (
		version string
		err     = errors.New("OCR is not configured")
	)
	if s.OCR != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), ocrVersionTimeout)
		defer cancel()
		version, err = s.OCR.GetVersion(ctx)
	}
	if err != nil {
		rc.Warn("tesseract version check failed", slog.String("error", err.Error()))
		s.Metrics.Record(rc.Operation, observability.OutcomeError, rc.Duration())
		return c.JSON(http.StatusInternalServerError, TestOCRResponse{
			Status:             "error",
			TesseractInstalled: false,
			Error:              err.Error(),
			Message:            tesseractMissingMessage,
		})
	}

	return s.finish(c, rc, TestOCRResponse{
		Status:             "ok",
		TesseractInstalled: true,
		Version:            version,
		TesseractCmd:       s.OCR.TesseractPath(),
	}, observability.OutcomeOK)
}

// ListDepartments returns the department map in matching order.
// GET /api/departments
func (s *APIV1Service) ListDepartments(c echo.Context) error {
	m := s.Pipeline().Departments()
	return c.JSON(http.StatusOK, DepartmentsResponse{
		Fallback:    m.Fallback(),
		Departments: m.Entries(),
	})
}

// GetStats returns per-operation request counters.
// GET /api/stats
func (s *APIV1Service) GetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Metrics.Snapshot())
}

func (s *APIV1Service) begin(c echo.Context, operation string) *observability.RequestContext {
	rc := observability.NewRequestContext(slog.Default(), operation, c.RealIP())
	c.Response().Header().Set(echo.HeaderXRequestID, rc.RequestID)
	c.SetRequest(c.Request().WithContext(observability.WithRequestContext(c.Request().Context(), rc)))
	return rc
}

func (s *APIV1Service) finish(c echo.Context, rc *observability.RequestContext, body any, outcome string) error {
	s.Metrics.Record(rc.Operation, outcome, rc.Duration())
	rc.Done(slog.String(observability.LogFieldStatus, outcome))
	return c.JSON(http.StatusOK, body)
}

func (s *APIV1Service) fail(c echo.Context, rc *observability.RequestContext, apiErr *apierrors.APIError) error {
	status := apiErr.Code.HTTPStatus()
	attr := slog.String(observability.LogFieldErrorCode, string(apiErr.Code))
	if status >= http.StatusInternalServerError {
		rc.Error("request failed", apiErr, attr)
	} else {
		rc.Warn("request rejected", attr, slog.String("error", apiErr.Error()))
	}
	s.Metrics.Record(rc.Operation, observability.OutcomeError, rc.Duration())
	return c.JSON(status, apiErr.Body())
}

// recognize runs OCR under the concurrency limit.
func (s *APIV1Service) recognize(ctx context.Context, image []byte, mimeType string) (string, *apierrors.APIError) {
	if err := s.ocrSemaphore.Acquire(ctx, 1); err != nil {
		return "", apierrors.Timeout("Timed out waiting for OCR", err)
	}
	defer s.ocrSemaphore.Release(1)

	started := time.Now()
	text, err := s.Pipeline().Recognize(ctx, image, mimeType)
	if rc, ok := observability.FromContext(ctx); ok {
		rc.Debug("ocr finished",
			slog.String("mime_type", mimeType),
			slog.Int("chars", len(text)),
			slog.Int64("ocr_ms", time.Since(started).Milliseconds()),
			slog.Bool("ok", err == nil))
	}
	if err != nil {
		if errors.Is(err, intake.ErrNoRecognizer) {
			return "", apierrors.OCRUnavailable(err.Error(), err)
		}
		return "", apierrors.OCRFailed(err)
	}
	return text, nil
}

func isJSON(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// decodeJSON fills dst from a JSON body. Non-JSON requests and empty bodies leave dst untouched.
func decodeJSON(c echo.Context, dst any) *apierrors.APIError {
	if !isJSON(c) {
		return nil
	}
	if err := json.NewDecoder(c.Request().Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apierrors.InvalidArgument(messageBadJSON)
	}
	return nil
}

// readImage returns the "image" upload of a multipart request. ok is false when
// no file with a name was sent.
func readImage(c echo.Context) (image []byte, mimeType string, ok bool, apiErr *apierrors.APIError) {
	if !isMultipart(c) {
		return nil, "", false, nil
	}
	fh, err := c.FormFile("image")
	if err != nil || fh.Filename == "" {
		return nil, "", false, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", false, apierrors.Internal(errors.Wrap(err, "failed to open upload"))
	}
	defer f.Close()

	image, err = io.ReadAll(f)
	if err != nil {
		return nil, "", false, apierrors.InvalidArgument("Failed to read uploaded image")
	}
	if len(image) == 0 {
		return nil, "", false, apierrors.InvalidArgument("Uploaded image is empty")
	}

	mimeType = fh.Header.Get(echo.HeaderContentType)
	if mimeType == "" || strings.HasPrefix(mimeType, echo.MIMEOctetStream) {
		mimeType = http.DetectContentType(image)
	}
	if !ocr.IsSupportedMimeType(mimeType) {
		return nil, "", false, apierrors.UnsupportedMediaType(mimeType)
	}
	return image, mimeType, true, nil
}
