package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/medibook/plugin/intake"
	"github.com/hrygo/medibook/plugin/intake/guardrail"
	"github.com/hrygo/medibook/server/timezone"
)

type parseOptions struct {
	images []string
	now    string
	json   bool
}

// parseRecord is the outcome for one input.
type parseRecord struct {
	Input         string                   `json:"input"`
	Result        *intake.Result           `json:"result,omitempty"`
	Clarification *guardrail.Clarification `json:"clarification,omitempty"`
	Error         string                   `json:"error,omitempty"`
}

func (a *app) newParseCommand() *cobra.Command {
	opts := &parseOptions{}
	cmd := &cobra.Command{
		Use:   "parse [text...]",
		Short: "Parse appointment requests offline",
		Long: `Parse appointment requests without starting the server.

Each argument is one request. Images given with --image are read with OCR.
With neither, each non-empty line of standard input is one request.`,
		Example: `  medibook parse "Dentist appointment next Monday at 3pm"
  medibook parse --image note.png --json
  medibook parse --now 2026-10-14T10:30:00+05:30 "cardiology tomorrow 10am"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runParse(cmd, args, opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.images, "image", nil, "image file to OCR, repeatable")
	cmd.Flags().StringVar(&opts.now, "now", "", "reference time (RFC3339 or \"YYYY-MM-DD HH:MM\" in the configured timezone)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print results as JSON")
	return cmd
}

func (a *app) runParse(cmd *cobra.Command, args []string, opts *parseOptions) error {
	loc, err := a.profile.Location()
	if err != nil {
		return err
	}

	var clock func() time.Time
	if opts.now != "" {
		ref, err := parseReferenceTime(opts.now, loc)
		if err != nil {
			return err
		}
		clock = func() time.Time { return ref }
	}

	texts := args
	if len(texts) == 0 && len(opts.images) == 0 {
		if texts, err = readLines(cmd.InOrStdin()); err != nil {
			return err
		}
		if len(texts) == 0 {
			return errors.New("no input: pass text arguments, --image files, or lines on stdin")
		}
	}

	c, err := a.build(clock)
	if err != nil {
		return err
	}

	records, err := a.parseAll(cmd.Context(), c.pipeline, texts, opts.images)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return errors.Wrap(err, "failed to encode results")
		}
	} else {
		printRecords(out, records, loc)
	}

	failed := 0
	for _, r := range records {
		if r.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return errors.Errorf("%d of %d inputs failed", failed, len(records))
	}
	return nil
}

// parseAll processes texts as one batch and images concurrently. Output order is
// texts first, then images, each in the order given.
func (a *app) parseAll(ctx context.Context, pipeline *intake.Pipeline, texts, images []string) ([]parseRecord, error) {
	records := make([]parseRecord, len(texts)+len(images))

	if len(texts) > 0 {
		results, err := pipeline.ProcessBatch(ctx, texts, 0)
		if err != nil {
			return nil, err
		}
		for i, r := range results {
			records[i] = newParseRecord(texts[i], r)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.profile.OCRMaxConcurrent)
	for i, path := range images {
		path := path
		slot := len(texts) + i
		g.Go(func() error {
			result, err := processImageFile(gctx, pipeline, path)
			if err != nil {
				records[slot] = parseRecord{Input: path, Error: err.Error()}
				return nil
			}
			records[slot] = newParseRecord(path, result)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func processImageFile(ctx context.Context, pipeline *intake.Pipeline, path string) (*intake.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return pipeline.ProcessImage(ctx, data, mimeType)
}

func newParseRecord(input string, r *intake.Result) parseRecord {
	return parseRecord{Input: input, Result: r, Clarification: r.Clarification}
}

func printRecords(w io.Writer, records []parseRecord, loc *time.Location) {
	pal := newPalette(w)
	for i, r := range records {
		fmt.Fprintf(w, "%s %s\n", pal.accent.Render(fmt.Sprintf("[%d]", i+1)), r.Input)
		switch {
		case r.Error != "":
			fmt.Fprintf(w, "    %s %s\n", pal.fail.Render("Error:"), r.Error)
		case r.Clarification != nil:
			fmt.Fprintf(w, "    %s %s\n", pal.warn.Render("Needs clarification:"), r.Clarification.Message)
		default:
			appt := r.Result.Appointment
			when, err := timezone.FormatAppointment(appt.Date, appt.Time, loc)
			if err != nil {
				when = appt.Date + " " + appt.Time
			}
			fmt.Fprintf(w, "    Appointment: %s, %s (%s)\n", appt.Department, when, appt.Timezone)
		}
	}
}

func parseReferenceTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", s, loc)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid --now %q: want RFC3339 or \"YYYY-MM-DD HH:MM\"", s)
	}
	return t, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read stdin")
	}
	return lines, nil
}
