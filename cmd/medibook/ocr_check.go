package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/medibook/internal/profile"
)

const (
	ocrCheckRule  = "=================================================="
	tesseractWiki = "https://github.com/UB-Mannheim/tesseract/wiki"
	ocrCheckLimit = 3
)

func (a *app) newOCRCheckCommand() *cobra.Command {
	var image string
	cmd := &cobra.Command{
		Use:   "ocr-check",
		Short: "Verify that Tesseract OCR is installed and usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runOCRCheck(cmd, image)
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "also run OCR on this image")
	return cmd
}

func (a *app) runOCRCheck(cmd *cobra.Command, image string) error {
	out := cmd.OutOrStdout()
	c, err := a.build(nil)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), a.profile.OCRTimeout)
	defer cancel()

	pal := newPalette(out)

	fmt.Fprintln(out, "Testing OCR Setup...")
	fmt.Fprintln(out, ocrCheckRule)

	version, err := c.ocr.GetVersion(ctx)
	if err != nil {
		fmt.Fprintln(out, pal.fail.Render("[ERROR]"), "Tesseract OCR not found")
		fmt.Fprintf(out, "  Error: %v\n", err)
		fmt.Fprintf(out, "\nPlease install Tesseract OCR from:\n%s\n", tesseractWiki)
		fmt.Fprintf(out, "\nAfter installation, make sure to:\n1. Add Tesseract to your system PATH, OR\n2. Set --%s / MEDIBOOK_TESSERACT_PATH\n", profile.KeyTesseractPath)
		return errors.Wrap(err, "tesseract unavailable")
	}
	fmt.Fprintln(out, pal.ok.Render("[OK]"), "Tesseract OCR is installed")
	fmt.Fprintf(out, "  Version: %s\n", version)
	fmt.Fprintf(out, "  Path: %s\n", c.ocr.TesseractPath())

	if langs, err := c.ocr.GetAvailableLanguages(ctx); err != nil {
		fmt.Fprintf(out, "%s Could not list languages: %v\n", pal.warn.Render("[WARN]"), err)
	} else {
		fmt.Fprintf(out, "  Languages: %s\n", strings.Join(langs, ", "))
		for _, want := range strings.Split(a.profile.OCRLanguages, "+") {
			if !contains(langs, want) {
				fmt.Fprintf(out, "%s Configured language %q is not installed\n", pal.warn.Render("[WARN]"), want)
			}
		}
	}

	if image != "" {
		result, err := processImageFile(ctx, c.pipeline, image)
		if err != nil {
			fmt.Fprintf(out, "%s OCR failed on %s: %v\n", pal.fail.Render("[ERROR]"), image, err)
			return err
		}
		lines := strings.Split(result.RawText, "\n")
		if len(lines) > ocrCheckLimit {
			lines = append(lines[:ocrCheckLimit], "...")
		}
		fmt.Fprintf(out, "%s Read %d characters from %s\n", pal.ok.Render("[OK]"), len(result.RawText), image)
		for _, l := range lines {
			fmt.Fprintf(out, "  | %s\n", l)
		}
	}

	fmt.Fprintln(out, "\n"+ocrCheckRule)
	fmt.Fprintln(out, pal.accent.Render("OCR setup looks good! You can now test image uploads."))
	fmt.Fprintln(out, ocrCheckRule)
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
