package exportpdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-vocabsheets/adapters/pdfdoc"
	"github.com/goliatone/go-vocabsheets/vocab"
)

// DefaultMaxHTMLBytes guards the surface size handed to an engine.
const DefaultMaxHTMLBytes int64 = 32 * 1024 * 1024

// RenderRequest contains HTML input and render options for PDF engines.
type RenderRequest struct {
	HTML    []byte
	Options vocab.RenderOptions
}

// Engine renders HTML content into PDF bytes.
type Engine interface {
	Render(ctx context.Context, req RenderRequest) ([]byte, error)
}

// EngineFunc adapts a function to an Engine.
type EngineFunc func(ctx context.Context, req RenderRequest) ([]byte, error)

func (f EngineFunc) Render(ctx context.Context, req RenderRequest) ([]byte, error) {
	if f == nil {
		return nil, errors.New("pdf engine func is nil")
	}
	return f(ctx, req)
}

// Service turns an HTML surface into a paginated document through an Engine.
type Service struct {
	Engine       Engine
	MaxHTMLBytes int64
	// Open parses engine output; defaults to pdfdoc.Open.
	Open func(data []byte) (vocab.Document, error)
}

var _ vocab.RenderService = Service{}

// Render converts the surface HTML to PDF and opens it as a document.
func (s Service) Render(ctx context.Context, surface *vocab.Surface, opts vocab.RenderOptions) (vocab.Document, error) {
	if surface == nil || len(surface.HTML) == 0 {
		return nil, vocab.NewError(vocab.KindMissingSurface, "surface has no html", nil)
	}
	if s.Engine == nil {
		return nil, vocab.NewError(vocab.KindExportService, "pdf service requires engine", nil)
	}
	maxBytes := s.MaxHTMLBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxHTMLBytes
	}
	if int64(len(surface.HTML)) > maxBytes {
		return nil, vocab.NewError(vocab.KindValidation, "surface exceeds max html bytes", nil)
	}

	pdf, err := s.Engine.Render(ctx, RenderRequest{HTML: surface.HTML, Options: opts})
	if err != nil {
		return nil, err
	}

	open := s.Open
	if open == nil {
		open = func(data []byte) (vocab.Document, error) {
			return pdfdoc.Open(data)
		}
	}
	return open(pdf)
}

// WKHTMLTOPDFEngine invokes wkhtmltopdf for HTML-to-PDF conversion. Unlike
// ChromiumEngine it cannot block remote assets when UseCORS is false.
type WKHTMLTOPDFEngine struct {
	Command string
	Args    []string
	Env     []string
	Timeout time.Duration
}

// Render executes wkhtmltopdf using stdin/stdout for HTML/PDF.
func (e WKHTMLTOPDFEngine) Render(ctx context.Context, req RenderRequest) ([]byte, error) {
	cmdPath := strings.TrimSpace(e.Command)
	if cmdPath == "" {
		cmdPath = "wkhtmltopdf"
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cmdCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args, err := wkhtmltopdfArgs(req.Options)
	if err != nil {
		return nil, err
	}
	args = append(args, e.Args...)
	args = append(args, "-", "-")
	cmd := exec.CommandContext(cmdCtx, cmdPath, args...)
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	cmd.Stdin = bytes.NewReader(req.HTML)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			message = "wkhtmltopdf failed"
		}
		return nil, vocab.NewError(vocab.KindExportService, message, err)
	}
	return stdout.Bytes(), nil
}

func wkhtmltopdfArgs(opts vocab.RenderOptions) ([]string, error) {
	if _, ok := pdfPageSizesInches[strings.ToUpper(opts.Format)]; !ok && opts.Format != "" {
		return nil, vocab.NewError(vocab.KindValidation, fmt.Sprintf("unsupported pdf page size: %s", opts.Format), nil)
	}

	args := []string{"--quiet", "--print-media-type"}
	if opts.Format != "" {
		args = append(args, "--page-size", strings.ToUpper(opts.Format))
	}
	if opts.Orientation == vocab.Landscape {
		args = append(args, "--orientation", "Landscape")
	} else {
		args = append(args, "--orientation", "Portrait")
	}

	unit := opts.Unit
	if unit == "" {
		unit = "mm"
	}
	flags := []string{"--margin-top", "--margin-right", "--margin-bottom", "--margin-left"}
	for i, flag := range flags {
		args = append(args, flag, formatLength(opts.Margins[i], unit))
	}

	if opts.Scale > 0 {
		args = append(args, "--dpi", strconv.Itoa(int(96*opts.Scale)))
	}
	// wkhtmltopdf has no switch that blocks remote loads; only local file
	// reads can be denied.
	if !opts.UseCORS {
		args = append(args, "--disable-local-file-access")
	}
	return args, nil
}

func formatLength(value float64, unit string) string {
	return strconv.FormatFloat(value, 'f', -1, 64) + unit
}
