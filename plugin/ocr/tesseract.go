// Package ocr provides OCR (Optical Character Recognition) functionality using Tesseract.
// It reads appointment request text out of uploaded images.
package ocr

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// Supported image MIME types for OCR
var SupportedMimeTypes = []string{
	"image/png",
	"image/jpeg",
	"image/jpg",
	"image/gif",
	"image/bmp",
	"image/tiff",
	"image/webp",
}

// DefaultTesseractPath is the executable name looked up on PATH.
const DefaultTesseractPath = "tesseract"

// Config holds the OCR configuration
type Config struct {
	// TesseractPath is the path to the tesseract executable
	TesseractPath string
	// DataPath is the path to the tessdata directory (optional)
	DataPath string
	// Languages are the languages to use for OCR (e.g., "eng")
	Languages string
	// Preprocess enables grayscale/contrast/upscale cleanup before recognition
	Preprocess bool
}

// DefaultConfig returns the default OCR configuration
func DefaultConfig() *Config {
	return &Config{
		TesseractPath: DefaultTesseractPath,
		DataPath:      "",
		Languages:     "eng",
		Preprocess:    true,
	}
}

// Client provides OCR functionality
type Client struct {
	config *Config
}

// NewClient creates a new OCR client. A bare default executable name is
// resolved against well-known install locations on Windows.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if cfg.TesseractPath == "" || cfg.TesseractPath == DefaultTesseractPath {
		cfg.TesseractPath = LocateTesseract(runtime.GOOS, fileExists)
	}
	return &Client{config: &cfg}
}

// TesseractPath returns the executable the client runs.
func (c *Client) TesseractPath() string {
	return c.config.TesseractPath
}

// ExtractText extracts text from an image using Tesseract OCR
func (c *Client) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	if !IsSupportedMimeType(mimeType) {
		return "", errors.Errorf("unsupported MIME type: %s", mimeType)
	}
	if len(image) == 0 {
		return "", errors.New("empty image")
	}

	if c.config.Preprocess {
		cleaned, err := Preprocess(image)
		if err != nil {
			// Tesseract reads more formats than the preprocessor decodes.
			slog.Debug("image preprocessing skipped", "mime_type", mimeType, "error", err)
		} else {
			image = cleaned
		}
	}

	// Create a temporary file for the image
	tmpFile, err := os.CreateTemp("", "ocr_*.img")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temp file")
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)
	tmpFile.Close()

	// Write image data to temp file
	if err := os.WriteFile(tmpPath, image, 0o600); err != nil {
		return "", errors.Wrap(err, "failed to write temp file")
	}

	// Create output file path (without extension)
	outPath := strings.TrimSuffix(tmpPath, filepath.Ext(tmpPath))

	// Build tesseract command
	args := []string{tmpPath, outPath}
	if c.config.Languages != "" {
		args = append(args, "-l", c.config.Languages)
	}

	// Add tessdata path if configured
	if c.config.DataPath != "" {
		args = append(args, "--tessdata-dir", c.config.DataPath)
	}

	// Run tesseract with timeout support
	cmd := exec.CommandContext(ctx, c.config.TesseractPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		slog.Warn("tesseract command failed", "error", err, "stderr", stderr.String())
		if errors.Is(err, exec.ErrNotFound) {
			return "", errors.Wrapf(err, "Tesseract OCR not found at %q. Please install Tesseract OCR", c.config.TesseractPath)
		}
		return "", errors.Wrap(err, "tesseract command failed")
	}

	// Read the output text file
	txtPath := outPath + ".txt"
	defer os.Remove(txtPath)

	text, err := os.ReadFile(txtPath)
	if err != nil {
		return "", errors.Wrap(err, "failed to read OCR output")
	}

	return strings.TrimSpace(string(text)), nil
}

// IsAvailable checks if Tesseract is available
func (c *Client) IsAvailable(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, c.config.TesseractPath, "--version")
	return cmd.Run() == nil
}

// GetVersion returns the Tesseract version line
func (c *Client) GetVersion(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, c.config.TesseractPath, "--version")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", errors.Wrap(err, "failed to get tesseract version")
	}
	out := strings.TrimSpace(stdout.String())
	first, _, _ := strings.Cut(out, "\n")
	return strings.TrimSpace(first), nil
}

// GetAvailableLanguages returns the list of available languages
func (c *Client) GetAvailableLanguages(ctx context.Context) ([]string, error) {
	args := []string{"--list-langs"}
	if c.config.DataPath != "" {
		args = append(args, "--tessdata-dir", c.config.DataPath)
	}

	cmd := exec.CommandContext(ctx, c.config.TesseractPath, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrap(err, "failed to list tesseract languages")
	}
	return parseLanguageList(stdout.String()), nil
}

// parseLanguageList reads `tesseract --list-langs` output, skipping the header line.
func parseLanguageList(out string) []string {
	var langs []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Error:") || strings.HasPrefix(line, "List of available languages") {
			continue
		}
		langs = append(langs, line)
	}
	return langs
}

// IsSupportedMimeType reports whether mimeType names an image format Tesseract reads.
func IsSupportedMimeType(mimeType string) bool {
	// Strip parameters such as "; charset=binary".
	base, _, _ := strings.Cut(mimeType, ";")
	base = strings.TrimSpace(base)
	for _, supported := range SupportedMimeTypes {
		if strings.EqualFold(base, supported) {
			return true
		}
	}
	return false
}

// windowsInstallPaths are the usual Tesseract locations on Windows.
func windowsInstallPaths() []string {
	return []string{
		`C:\Program Files\Tesseract-OCR\tesseract.exe`,
		`C:\Program Files (x86)\Tesseract-OCR\tesseract.exe`,
		filepath.Join(`C:\Users`, os.Getenv("USERNAME"), `AppData\Local\Programs\Tesseract-OCR\tesseract.exe`),
	}
}

// LocateTesseract returns the first existing well-known install path on Windows,
// or DefaultTesseractPath so that PATH lookup applies.
func LocateTesseract(goos string, exists func(string) bool) string {
	if goos != "windows" {
		return DefaultTesseractPath
	}
	for _, p := range windowsInstallPaths() {
		if exists(p) {
			return p
		}
	}
	return DefaultTesseractPath
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
