package main

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/medibook/internal/logging"
	"github.com/hrygo/medibook/internal/profile"
	"github.com/hrygo/medibook/plugin/cache"
	"github.com/hrygo/medibook/plugin/intake"
	"github.com/hrygo/medibook/plugin/intake/department"
	"github.com/hrygo/medibook/plugin/ocr"
)

var version = "0.1.0"

const keyConfig = "config"

type app struct {
	v       *viper.Viper
	profile *profile.Profile
	closer  io.Closer
}

func newRootCommand() *cobra.Command {
	a := &app{v: profile.NewViper()}
	def := profile.Default()

	root := &cobra.Command{
		Use:               "medibook",
		Short:             "Turn free-text appointment requests into structured appointments",
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: a.teardown,
	}

	pf := root.PersistentFlags()
	pf.String(keyConfig, "", "path to a YAML config file")
	pf.String(profile.KeyTimezone, def.Timezone, "IANA timezone appointments are scheduled in")
	pf.String(profile.KeyDepartmentsFile, def.DepartmentsFile, "YAML or TOML file replacing the built-in department map")
	pf.String(profile.KeyDefaultDepartment, def.DefaultDepartment, "department used when no keyword matches")
	pf.Int(profile.KeyDefaultDateOffsetDays, def.DefaultDateOffsetDays, "days from today used when no date is given")
	pf.String(profile.KeyDefaultTime, def.DefaultTime, "HH:MM used when no time is given")
	pf.String(profile.KeyTesseractPath, def.TesseractPath, "tesseract executable")
	pf.String(profile.KeyTessdataPath, def.TessdataPath, "tessdata directory")
	pf.String(profile.KeyOCRLanguages, def.OCRLanguages, "tesseract languages, e.g. eng+hin")
	pf.Duration(profile.KeyOCRTimeout, def.OCRTimeout, "limit for a single OCR run")
	pf.Bool(profile.KeyOCRPreprocess, def.OCRPreprocess, "clean up images before OCR")
	pf.Int(profile.KeyOCRMaxConcurrent, def.OCRMaxConcurrent, "maximum concurrent OCR runs")
	pf.String(profile.KeyLogLevel, def.LogLevel, "debug, info, warn or error")
	pf.String(profile.KeyLogFormat, def.LogFormat, "text or json")
	pf.String(profile.KeyLogFile, def.LogFile, "also write logs to this rotated file")
	_ = a.v.BindPFlags(pf)

	root.AddCommand(
		a.newServeCommand(),
		a.newParseCommand(),
		a.newOCRCheckCommand(),
		a.newDepartmentsCommand(),
	)
	return root
}

// setup resolves the profile from defaults, config file, environment and flags.
func (a *app) setup(_ *cobra.Command, _ []string) error {
	if err := profile.ReadConfigFile(a.v, a.v.GetString(keyConfig)); err != nil {
		return err
	}
	p := profile.FromViper(a.v)
	p.Version = version
	if err := p.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	closer, err := logging.Init(logging.Options{Level: p.LogLevel, Format: p.LogFormat, File: p.LogFile})
	if err != nil {
		return err
	}
	a.profile = p
	a.closer = closer
	slog.Debug("configuration loaded", "timezone", p.Timezone, "departments_file", p.DepartmentsFile, "ocr_timeout", p.OCRTimeout)
	return nil
}

func (a *app) teardown(_ *cobra.Command, _ []string) {
	if a.closer != nil {
		_ = a.closer.Close()
	}
}

// components are the long-lived pieces shared by the subcommands.
type components struct {
	pipeline *intake.Pipeline
	ocr      *ocr.Client
	cached   *ocr.CachedExtractor

	loc        *time.Location
	recognizer intake.Recognizer
	now        func() time.Time
}

func (a *app) loadDepartments() (*department.Map, error) {
	if a.profile.DepartmentsFile != "" {
		return department.Load(a.profile.DepartmentsFile)
	}
	return department.New(department.Default().Entries(), a.profile.DefaultDepartment)
}

func (a *app) build(now func() time.Time) (*components, error) {
	p := a.profile
	loc, err := p.Location()
	if err != nil {
		return nil, err
	}
	departments, err := a.loadDepartments()
	if err != nil {
		return nil, err
	}

	client := ocr.NewClient(&ocr.Config{
		TesseractPath: p.TesseractPath,
		DataPath:      p.TessdataPath,
		Languages:     p.OCRLanguages,
		Preprocess:    p.OCRPreprocess,
	})
	c := &components{ocr: client, loc: loc, recognizer: client, now: now}
	if p.OCRCacheSize > 0 {
		c.cached = ocr.NewCachedExtractor(client, p.OCRCacheSize, cache.DefaultTTL)
		c.recognizer = c.cached
	}
	c.pipeline = a.newPipeline(c, departments)
	return c, nil
}

// newPipeline assembles a pipeline around departments, sharing c's OCR and clock.
func (a *app) newPipeline(c *components, departments *department.Map) *intake.Pipeline {
	p := a.profile
	return intake.New(intake.Config{
		Departments:       departments,
		Location:          c.loc,
		DefaultOffsetDays: p.DefaultDateOffsetDays,
		DefaultTime:       p.DefaultTime,
	},
		intake.WithRecognizer(c.recognizer),
		intake.WithOCRTimeout(p.OCRTimeout),
		intake.WithClock(c.now),
	)
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
