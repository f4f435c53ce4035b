package v1

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/semaphore"

	"github.com/hrygo/medibook/internal/profile"
	"github.com/hrygo/medibook/plugin/intake"
	"github.com/hrygo/medibook/server/internal/observability"
	appmiddleware "github.com/hrygo/medibook/server/middleware"
)

// OCRInspector reports on the installed OCR engine.
type OCRInspector interface {
	GetVersion(ctx context.Context) (string, error)
	TesseractPath() string
}

type APIV1Service struct {
	Profile *profile.Profile
	OCR     OCRInspector
	Metrics *observability.Metrics

	// pipeline is swapped whole when the department file is reloaded.
	pipeline atomic.Pointer[intake.Pipeline]

	// ocrSemaphore limits concurrent tesseract processes to prevent CPU and memory exhaustion
	ocrSemaphore *semaphore.Weighted
}

func NewAPIV1Service(profile *profile.Profile, pipeline *intake.Pipeline, ocr OCRInspector) *APIV1Service {
	maxOCR := int64(profile.OCRMaxConcurrent)
	if maxOCR <= 0 {
		maxOCR = 1
	}
	s := &APIV1Service{
		Profile:      profile,
		OCR:          ocr,
		Metrics:      observability.NewMetrics(),
		ocrSemaphore: semaphore.NewWeighted(maxOCR),
	}
	s.pipeline.Store(pipeline)
	return s
}

// Pipeline returns the pipeline currently serving requests.
func (s *APIV1Service) Pipeline() *intake.Pipeline {
	return s.pipeline.Load()
}

// SetPipeline replaces the serving pipeline. In-flight requests finish on the old one.
func (s *APIV1Service) SetPipeline(p *intake.Pipeline) {
	if p != nil {
		s.pipeline.Store(p)
	}
}

// RegisterRoutes mounts the JSON API under /api. A nil limiter disables rate limiting.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo, limiter *appmiddleware.RateLimiter) {
	api := echoServer.Group("/api")
	api.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))
	api.Use(middleware.BodyLimit(bodyLimit(s.Profile.MaxUploadBytes)))
	if limiter != nil {
		api.Use(appmiddleware.RateLimit(limiter))
	}

	api.POST("/ocr", s.OCRText)
	api.POST("/entities", s.ExtractEntities)
	api.POST("/normalize", s.NormalizeDateTime)
	api.POST("/appointment", s.CreateAppointment)
	api.GET("/test-ocr", s.TestOCR)
	api.GET("/departments", s.ListDepartments)
	api.GET("/stats", s.GetStats)
}

// bodyLimit renders a byte count for echo's BodyLimit, which accepts a bare number as bytes.
func bodyLimit(n int64) string {
	if n <= 0 {
		n = 10 << 20
	}
	return strconv.FormatInt(n, 10)
}
