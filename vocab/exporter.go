package vocab

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TrimPolicy decides when the trailing page of a rendered document is removed.
type TrimPolicy string

const (
	// TrimMultiPage removes the last page only when more than one page exists.
	TrimMultiPage TrimPolicy = "multi_page"
	// TrimAlways removes the last page regardless of page count.
	TrimAlways TrimPolicy = "always"
	// TrimNever keeps every rendered page.
	TrimNever TrimPolicy = "never"
)

// ParseTrimPolicy validates a trim policy name; empty selects TrimMultiPage.
func ParseTrimPolicy(value string) (TrimPolicy, error) {
	switch policy := TrimPolicy(strings.ToLower(strings.TrimSpace(value))); policy {
	case "":
		return TrimMultiPage, nil
	case TrimMultiPage, TrimAlways, TrimNever:
		return policy, nil
	default:
		return "", NewError(KindValidation, fmt.Sprintf("unknown trim policy %q", value), nil)
	}
}

// ExportResult captures a finished export.
type ExportResult struct {
	ID            string `json:"id"`
	Filename      string `json:"filename"`
	Sheets        int    `json:"sheets"`
	PagesRendered int    `json:"pages_rendered"`
	PagesWritten  int    `json:"pages_written"`
	Trimmed       bool   `json:"trimmed"`
	Skipped       bool   `json:"skipped"`
	Bytes         int64  `json:"bytes"`
}

// Exporter renders sheets through a rendering service and trims its trailing page.
type Exporter struct {
	Surface     SurfaceRenderer
	Service     RenderService
	Trim        TrimPolicy
	Options     RenderOptions
	Tracker     Tracker
	Logger      Logger
	Now         func() time.Time
	IDGenerator func() string

	// OnCapture is called with true before the pipeline starts and with
	// false once it finishes, on every exit path.
	OnCapture func(capturing bool)
}

// NewExporter creates an exporter with the fixed render options.
func NewExporter(surface SurfaceRenderer, service RenderService) *Exporter {
	return &Exporter{
		Surface:     surface,
		Service:     service,
		Trim:        TrimMultiPage,
		Options:     DefaultRenderOptions(),
		Logger:      NopLogger{},
		Now:         time.Now,
		IDGenerator: uuid.NewString,
	}
}

// Export renders sheets to a PDF and writes it to w. Nothing is written
// unless the whole pipeline succeeds.
func (e *Exporter) Export(ctx context.Context, sheets []Sheet, w io.Writer) (ExportResult, error) {
	if e == nil {
		return ExportResult{}, NewError(KindInternal, "exporter is nil", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if len(sheets) == 0 {
		return ExportResult{}, NewError(KindDisabled, "export requires at least one sheet", nil)
	}
	if w == nil {
		return ExportResult{}, NewError(KindValidation, "output writer is required", nil)
	}
	if e.Service == nil {
		return ExportResult{}, NewError(KindExportService, "render service is not configured", nil)
	}
	e.defaults()

	opts := e.Options
	if opts.Filename == "" {
		opts.Filename = DefaultFilename
	}

	result := ExportResult{
		ID:       e.IDGenerator(),
		Filename: opts.Filename,
		Sheets:   len(sheets),
	}
	if e.Tracker != nil {
		id, err := e.Tracker.Start(ctx, ExportRecord{
			ID:        result.ID,
			Filename:  result.Filename,
			State:     StateRunning,
			Sheets:    result.Sheets,
			CreatedAt: e.Now(),
		})
		if err != nil {
			e.Logger.Errorf("export %s: tracker start failed: %v", result.ID, err)
		} else if id != "" {
			result.ID = id
		}
	}

	e.capture(true)
	defer e.capture(false)

	data, err := e.run(ctx, sheets, opts, &result)
	if err != nil {
		if IsKind(err, KindMissingSurface) {
			e.Logger.Debugf("export %s skipped: %v", result.ID, err)
			e.track(func(t Tracker) error { return t.Skip(ctx, result.ID, err.Error()) })
			result.Skipped = true
			return result, nil
		}
		e.Logger.Errorf("export %s failed: %v", result.ID, err)
		e.track(func(t Tracker) error { return t.Fail(ctx, result.ID, err) })
		return ExportResult{}, err
	}

	n, err := w.Write(data)
	result.Bytes = int64(n)
	if err != nil {
		e.track(func(t Tracker) error { return t.Fail(ctx, result.ID, err) })
		return ExportResult{}, NewError(KindInternal, "write export output", err)
	}

	e.Logger.Infof("export %s completed: sheets=%d pages=%d/%d bytes=%d",
		result.ID, result.Sheets, result.PagesWritten, result.PagesRendered, result.Bytes)
	e.track(func(t Tracker) error { return t.Complete(ctx, result.ID, result) })
	return result, nil
}

func (e *Exporter) run(ctx context.Context, sheets []Sheet, opts RenderOptions, result *ExportResult) ([]byte, error) {
	if e.Surface == nil {
		return nil, NewError(KindMissingSurface, "surface renderer is not configured", nil)
	}
	surface, err := e.Surface.RenderSurface(ctx, sheets, SurfaceOptions{Capturing: true})
	if err != nil {
		if IsKind(err, KindMissingSurface) {
			return nil, err
		}
		return nil, serviceError(ctx, "render surface", err)
	}
	if surface.Empty() {
		return nil, NewError(KindMissingSurface, "no renderable surface", nil)
	}

	doc, err := e.Service.Render(ctx, surface, opts)
	if err != nil {
		return nil, serviceError(ctx, "render document", err)
	}
	if doc == nil {
		return nil, NewError(KindExportService, "render service returned no document", nil)
	}

	result.PagesRendered = doc.PageCount()
	trimmed, err := e.trim(doc)
	if err != nil {
		return nil, serviceError(ctx, "delete trailing page", err)
	}
	result.Trimmed = trimmed
	result.PagesWritten = doc.PageCount()

	if opts.AutoPrint {
		if printer, ok := doc.(AutoPrinter); ok {
			printer.SetAutoPrint(true)
		} else {
			e.Logger.Debugf("auto print skipped: %T has no print action", doc)
		}
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, serviceError(ctx, "save document", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, serviceError(ctx, "export interrupted", err)
	}
	return buf.Bytes(), nil
}

func (e *Exporter) trim(doc Document) (bool, error) {
	total := doc.PageCount()
	switch e.Trim {
	case TrimNever:
		return false, nil
	case TrimAlways:
		if total < 1 {
			return false, nil
		}
	default:
		if total <= 1 {
			e.Logger.Debugf("trailing page kept: document has %d page(s)", total)
			return false, nil
		}
	}
	if err := doc.DeletePage(total); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Exporter) capture(on bool) {
	if e.OnCapture != nil {
		e.OnCapture(on)
	}
}

func (e *Exporter) track(fn func(Tracker) error) {
	if e.Tracker == nil {
		return
	}
	if err := fn(e.Tracker); err != nil {
		e.Logger.Errorf("export tracker update failed: %v", err)
	}
}

func (e *Exporter) defaults() {
	if e.Logger == nil {
		e.Logger = NopLogger{}
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	if e.IDGenerator == nil {
		e.IDGenerator = uuid.NewString
	}
	if e.Trim == "" {
		e.Trim = TrimMultiPage
	}
}

func serviceError(ctx context.Context, msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return NewError(KindTimeout, msg, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return NewError(KindCanceled, msg, err)
	}
	var vocabErr *VocabError
	if errors.As(err, &vocabErr) && vocabErr.Kind != KindInternal {
		return err
	}
	return NewError(KindExportService, msg, err)
}
