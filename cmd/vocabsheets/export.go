package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-vocabsheets/vocab"
	"github.com/spf13/cobra"
)

var (
	exportWords    string
	exportImages   []string
	exportOut      string
	exportEngine   string
	exportWorkbook string
	exportTimeout  time.Duration
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render words and images to a PDF without the web UI",
	Example: `  vocabsheets export --words "apple, banana, cherry" --image cat.png --out sheets.pdf
  vocabsheets export --words "one,two" --engine native`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if exportEngine != "" {
			cfg.PDF.Engine = exportEngine
		}
		cfg.History.DSN = ""

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if exportTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, exportTimeout)
			defer cancel()
		}

		app, err := NewApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		return runExport(ctx, app, cmd)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportWords, "words", "w", "", "comma separated words")
	exportCmd.Flags().StringArrayVarP(&exportImages, "image", "i", nil, "image file to add (repeatable)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", vocab.DefaultFilename, "output PDF path")
	exportCmd.Flags().StringVar(&exportEngine, "engine", "", "pdf engine: chromium, wkhtmltopdf or native")
	exportCmd.Flags().StringVar(&exportWorkbook, "workbook", "", "also write the word list as XLSX to this path")
	exportCmd.Flags().DurationVar(&exportTimeout, "timeout", 2*time.Minute, "overall export timeout")
}

func runExport(ctx context.Context, app *App, cmd *cobra.Command) error {
	controller := app.Controller
	controller.SetFromText(exportWords)

	files := make([]vocab.ImageFile, 0, len(exportImages))
	for _, path := range exportImages {
		files = append(files, vocab.PathImage(path))
	}
	batch := controller.AddImages(ctx, files)
	var problems []error
	problems = append(problems, batch.Rejected()...)
	for _, res := range batch.Wait() {
		if res.Err != nil {
			problems = append(problems, res.Err)
		}
	}
	if len(problems) > 0 {
		return errors.Join(problems...)
	}

	if !controller.CanExport() {
		return vocab.NewError(vocab.KindDisabled, "nothing to export: pass --words or --image", nil)
	}

	out, err := writeAtomically(exportOut, func(f *os.File) error {
		result, err := controller.Export(ctx, f)
		if err != nil {
			return err
		}
		if result.Skipped {
			return vocab.NewError(vocab.KindMissingSurface, "no surface was rendered", nil)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d sheet(s), %d page(s) rendered, %d written\n",
			result.Sheets, result.PagesRendered, result.PagesWritten)
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)

	if exportWorkbook != "" {
		out, err := writeAtomically(exportWorkbook, func(f *os.File) error {
			_, err := controller.ExportWorkbook(ctx, f)
			return err
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
	}
	return nil
}

// writeAtomically writes into a temp file next to path and renames it on
// success.
func writeAtomically(path string, write func(*os.File) error) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", vocab.NewError(vocab.KindValidation, "output path is required", nil)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return "", fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename output: %w", err)
	}
	return path, nil
}
