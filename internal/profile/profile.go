package profile

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/hrygo/medibook/server/timezone"
)

// EnvPrefix is prepended to every configuration key when read from the environment,
// e.g. MEDIBOOK_OCR_TIMEOUT for "ocr-timeout".
const EnvPrefix = "MEDIBOOK"

// Configuration keys. Flags use the same names.
const (
	KeyMode                  = "mode"
	KeyAddr                  = "addr"
	KeyPort                  = "port"
	KeyTimezone              = "timezone"
	KeyDefaultDepartment     = "default-department"
	KeyDepartmentsFile       = "departments-file"
	KeyDefaultDateOffsetDays = "default-offset-days"
	KeyDefaultTime           = "default-time"
	KeyTesseractPath         = "tesseract-path"
	KeyTessdataPath          = "tessdata-path"
	KeyOCRLanguages          = "ocr-languages"
	KeyOCRTimeout            = "ocr-timeout"
	KeyOCRPreprocess         = "ocr-preprocess"
	KeyOCRCacheSize          = "ocr-cache-size"
	KeyOCRMaxConcurrent      = "ocr-max-concurrent"
	KeyRateLimit             = "rate-limit"
	KeyRateBurst             = "rate-burst"
	KeyLogLevel              = "log-level"
	KeyLogFormat             = "log-format"
	KeyLogFile               = "log-file"
	KeyMaxUploadBytes        = "max-upload-bytes"
	KeyJanitorSchedule       = "janitor-schedule"
)

// Profile is the configuration to start the server and the offline CLI.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Version is the current version of server
	Version string

	// Scheduling
	Timezone              string // MEDIBOOK_TIMEZONE (default: Asia/Kolkata)
	DefaultDepartment     string // MEDIBOOK_DEFAULT_DEPARTMENT (default: General Medicine)
	DepartmentsFile       string // MEDIBOOK_DEPARTMENTS_FILE (optional YAML)
	DefaultDateOffsetDays int    // MEDIBOOK_DEFAULT_OFFSET_DAYS (default: 7)
	DefaultTime           string // MEDIBOOK_DEFAULT_TIME (default: 09:00)

	// OCR
	TesseractPath    string        // MEDIBOOK_TESSERACT_PATH (default: tesseract)
	TessdataPath     string        // MEDIBOOK_TESSDATA_PATH (default: "")
	OCRLanguages     string        // MEDIBOOK_OCR_LANGUAGES (default: eng)
	OCRTimeout       time.Duration // MEDIBOOK_OCR_TIMEOUT (default: 30s)
	OCRPreprocess    bool          // MEDIBOOK_OCR_PREPROCESS (default: true)
	OCRCacheSize     int           // MEDIBOOK_OCR_CACHE_SIZE (default: 128, 0 disables)
	OCRMaxConcurrent int           // MEDIBOOK_OCR_MAX_CONCURRENT (default: 2)

	// HTTP
	RateLimit      float64 // MEDIBOOK_RATE_LIMIT requests per second per client (0 disables)
	RateBurst      int     // MEDIBOOK_RATE_BURST
	MaxUploadBytes int64   // MEDIBOOK_MAX_UPLOAD_BYTES (default: 10 MiB)

	// JanitorSchedule is the cron spec for sweeping idle limiters and stale cache entries.
	JanitorSchedule string // MEDIBOOK_JANITOR_SCHEDULE (default: @every 5m)

	// Logging
	LogLevel  string // MEDIBOOK_LOG_LEVEL (default: info)
	LogFormat string // MEDIBOOK_LOG_FORMAT text|json
	LogFile   string // MEDIBOOK_LOG_FILE (optional, rotated)
}

// SetDefaults registers every key's default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyMode, "dev")
	v.SetDefault(KeyAddr, "127.0.0.1")
	v.SetDefault(KeyPort, 5001)
	v.SetDefault(KeyTimezone, timezone.TimezoneAsiaKolkata)
	v.SetDefault(KeyDefaultDepartment, "General Medicine")
	v.SetDefault(KeyDepartmentsFile, "")
	v.SetDefault(KeyDefaultDateOffsetDays, 7)
	v.SetDefault(KeyDefaultTime, "09:00")
	v.SetDefault(KeyTesseractPath, "tesseract")
	v.SetDefault(KeyTessdataPath, "")
	v.SetDefault(KeyOCRLanguages, "eng")
	v.SetDefault(KeyOCRTimeout, "30s")
	v.SetDefault(KeyOCRPreprocess, true)
	v.SetDefault(KeyOCRCacheSize, 128)
	v.SetDefault(KeyOCRMaxConcurrent, 2)
	v.SetDefault(KeyRateLimit, 5.0)
	v.SetDefault(KeyRateBurst, 10)
	v.SetDefault(KeyMaxUploadBytes, int64(10<<20))
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyJanitorSchedule, "@every 5m")
}

// NewViper returns a viper instance with defaults and MEDIBOOK_* environment
// binding. Flags bound later take precedence over both.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// ReadConfigFile merges a YAML config file into v. A missing path is not an error.
func ReadConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return errors.Wrapf(err, "unable to access config file %s", path)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}
	slog.Debug("config file loaded", "path", path)
	return nil
}

// FromViper builds a Profile from resolved configuration values.
func FromViper(v *viper.Viper) *Profile {
	return &Profile{
		Mode:                  v.GetString(KeyMode),
		Addr:                  v.GetString(KeyAddr),
		Port:                  v.GetInt(KeyPort),
		Timezone:              v.GetString(KeyTimezone),
		DefaultDepartment:     v.GetString(KeyDefaultDepartment),
		DepartmentsFile:       v.GetString(KeyDepartmentsFile),
		DefaultDateOffsetDays: v.GetInt(KeyDefaultDateOffsetDays),
		DefaultTime:           v.GetString(KeyDefaultTime),
		TesseractPath:         v.GetString(KeyTesseractPath),
		TessdataPath:          v.GetString(KeyTessdataPath),
		OCRLanguages:          v.GetString(KeyOCRLanguages),
		OCRTimeout:            v.GetDuration(KeyOCRTimeout),
		OCRPreprocess:         v.GetBool(KeyOCRPreprocess),
		OCRCacheSize:          v.GetInt(KeyOCRCacheSize),
		OCRMaxConcurrent:      v.GetInt(KeyOCRMaxConcurrent),
		RateLimit:             v.GetFloat64(KeyRateLimit),
		RateBurst:             v.GetInt(KeyRateBurst),
		MaxUploadBytes:        v.GetInt64(KeyMaxUploadBytes),
		LogLevel:              v.GetString(KeyLogLevel),
		LogFormat:             v.GetString(KeyLogFormat),
		LogFile:               v.GetString(KeyLogFile),
		JanitorSchedule:       v.GetString(KeyJanitorSchedule),
	}
}

// Default returns the profile with nothing but defaults applied.
func Default() *Profile {
	v := viper.New()
	SetDefaults(v)
	return FromViper(v)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// Location loads the configured IANA timezone.
func (p *Profile) Location() (*time.Location, error) {
	return timezone.ParseTimezone(p.Timezone)
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}
	if !timezone.IsValidTimezone(p.Timezone) {
		return errors.Errorf("invalid timezone %q", p.Timezone)
	}
	if _, err := time.Parse("15:04", p.DefaultTime); err != nil {
		return errors.Errorf("invalid default time %q, want HH:MM", p.DefaultTime)
	}
	if p.DefaultDateOffsetDays <= 0 {
		return errors.Errorf("default offset days must be positive, got %d", p.DefaultDateOffsetDays)
	}
	if strings.TrimSpace(p.DefaultDepartment) == "" {
		return errors.New("default department must not be empty")
	}
	if p.OCRTimeout <= 0 {
		return errors.Errorf("ocr timeout must be positive, got %s", p.OCRTimeout)
	}
	if p.OCRMaxConcurrent <= 0 {
		p.OCRMaxConcurrent = 1
	}
	if p.RateLimit < 0 {
		return errors.Errorf("rate limit must not be negative, got %v", p.RateLimit)
	}
	if p.RateLimit > 0 && p.RateBurst <= 0 {
		p.RateBurst = 1
	}
	if p.MaxUploadBytes <= 0 {
		return errors.Errorf("max upload bytes must be positive, got %d", p.MaxUploadBytes)
	}
	if _, err := cron.ParseStandard(p.JanitorSchedule); err != nil {
		return errors.Wrapf(err, "invalid janitor schedule %q", p.JanitorSchedule)
	}
	if p.DepartmentsFile != "" {
		if _, err := os.Stat(p.DepartmentsFile); err != nil {
			slog.Error("failed to access departments file", slog.String("path", p.DepartmentsFile), slog.String("error", err.Error()))
			return errors.Wrapf(err, "unable to access departments file %s", p.DepartmentsFile)
		}
	}
	return nil
}
