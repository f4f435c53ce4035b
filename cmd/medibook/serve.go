package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hrygo/medibook/internal/profile"
	"github.com/hrygo/medibook/plugin/intake/department"
	"github.com/hrygo/medibook/server"
)

func (a *app) newServeCommand() *cobra.Command {
	def := profile.Default()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  a.runServe,
	}

	f := cmd.Flags()
	f.String(profile.KeyMode, def.Mode, `"dev" or "prod"`)
	f.String(profile.KeyAddr, def.Addr, "address of server")
	f.Int(profile.KeyPort, def.Port, "port of server")
	f.Float64(profile.KeyRateLimit, def.RateLimit, "requests per second per client, 0 disables")
	f.Int(profile.KeyRateBurst, def.RateBurst, "rate limiter burst")
	f.Int64(profile.KeyMaxUploadBytes, def.MaxUploadBytes, "maximum request body size")
	f.Int(profile.KeyOCRCacheSize, def.OCRCacheSize, "number of OCR results kept in memory, 0 disables")
	f.String(profile.KeyJanitorSchedule, def.JanitorSchedule, "cron spec for sweeping idle clients and stale cache entries")
	_ = a.v.BindPFlags(f)
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, _ []string) error {
	c, err := a.build(nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !c.ocr.IsAvailable(ctx) {
		slog.Warn("tesseract not available; image requests will fail", "tesseract_cmd", c.ocr.TesseractPath())
	}

	var opts []server.Option
	if c.cached != nil {
		opts = append(opts, server.WithExpiringCache(c.cached))
	}
	s := server.NewServer(a.profile, c.pipeline, c.ocr, opts...)
	if err := s.Start(ctx); err != nil {
		return err
	}

	if path := a.profile.DepartmentsFile; path != "" {
		go func() {
			err := department.Watch(ctx, path, func(m *department.Map) {
				s.SetPipeline(a.newPipeline(c, m))
			})
			if err != nil {
				slog.Warn("department hot reload disabled", "path", path, "error", err)
			}
		}()
	}

	<-ctx.Done()
	s.Shutdown(context.Background())
	return nil
}
