package vocab

import (
	"context"
	"io"
	"sync/atomic"
)

// ControllerConfig wires a controller.
type ControllerConfig struct {
	Store    *Store
	Surface  SurfaceRenderer
	Exporter *Exporter
	Workbook WorkbookWriter
	Tracker  Tracker
	Logger   Logger
}

// Controller owns the vocabulary store and the downloading flag and exposes
// every user operation.
type Controller struct {
	store    *Store
	surface  SurfaceRenderer
	exporter *Exporter
	workbook WorkbookWriter
	tracker  Tracker
	logger   Logger

	downloading atomic.Bool
	exporting   atomic.Bool
}

// NewController creates a controller. The exporter's OnCapture hook is
// chained so the controller observes the downloading flag.
func NewController(cfg ControllerConfig) *Controller {
	store := cfg.Store
	if store == nil {
		store = NewStore()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = NopLogger{}
	}

	c := &Controller{
		store:    store,
		surface:  cfg.Surface,
		exporter: cfg.Exporter,
		workbook: cfg.Workbook,
		tracker:  cfg.Tracker,
		logger:   logger,
	}

	if c.exporter != nil {
		if c.exporter.Surface == nil {
			c.exporter.Surface = cfg.Surface
		}
		if c.exporter.Tracker == nil {
			c.exporter.Tracker = cfg.Tracker
		}
		if c.tracker == nil {
			c.tracker = c.exporter.Tracker
		}
		next := c.exporter.OnCapture
		c.exporter.OnCapture = func(capturing bool) {
			c.downloading.Store(capturing)
			if next != nil {
				next(capturing)
			}
		}
	}
	return c
}

// SetFromText replaces the text entries with the words in raw.
func (c *Controller) SetFromText(raw string) int {
	n := c.store.SetFromText(raw)
	c.logger.Debugf("text input parsed into %d word(s)", n)
	return n
}

// AddImages validates the declared types and starts one decode per accepted
// file. Decoded images are appended as each decode completes.
func (c *Controller) AddImages(ctx context.Context, files []ImageFile) *ImageBatch {
	if ctx == nil {
		ctx = context.Background()
	}
	batch := &ImageBatch{}
	for _, file := range files {
		if err := validateImageFile(file); err != nil {
			c.logger.Infof("image rejected: %v", err)
			batch.rejected = append(batch.rejected, err)
			continue
		}
		batch.accepted++
		batch.wg.Add(1)
		go func(file ImageFile) {
			defer batch.wg.Done()
			c.completeImage(batch, decodeImageResult(ctx, file))
		}(file)
	}
	return batch
}

func decodeImageResult(ctx context.Context, file ImageFile) ImageResult {
	img, err := decodeImage(ctx, file)
	return ImageResult{Name: file.Name, Image: img, Err: err}
}

func (c *Controller) completeImage(batch *ImageBatch, res ImageResult) {
	if res.Err != nil {
		c.logger.Errorf("image %s failed: %v", displayName(res.Name), res.Err)
	} else {
		c.store.AppendImage(res.Image)
		c.logger.Debugf("image %s added (%d bytes)", displayName(res.Name), res.Image.Size)
	}
	batch.complete(res)
}

// RemoveAt removes the item at a global store index. Out-of-range is a no-op.
func (c *Controller) RemoveAt(index int) bool {
	return c.store.RemoveAt(index)
}

// RemoveFromSheet removes the item at a sheet-local position.
func (c *Controller) RemoveFromSheet(sheet, position int) bool {
	if sheet < 0 || position < 0 || position >= SheetSize {
		return false
	}
	return c.store.RemoveAt(sheet*SheetSize + position)
}

// Items returns the current items.
func (c *Controller) Items() []Item {
	return c.store.Items()
}

// Sheets paginates the current items.
func (c *Controller) Sheets() []Sheet {
	return Paginate(c.store.Items())
}

// RawText returns the last text input.
func (c *Controller) RawText() string {
	return c.store.RawText()
}

// Version returns the store version.
func (c *Controller) Version() uint64 {
	return c.store.Version()
}

// CanExport reports whether there is at least one sheet to export.
func (c *Controller) CanExport() bool {
	return c.store.Len() > 0 && c.exporter != nil
}

// Downloading reports whether an export capture is in progress.
func (c *Controller) Downloading() bool {
	return c.downloading.Load()
}

// Preview renders the surface the way the UI shows it.
func (c *Controller) Preview(ctx context.Context) (*Surface, error) {
	if c.surface == nil {
		return nil, NewError(KindMissingSurface, "surface renderer is not configured", nil)
	}
	return c.surface.RenderSurface(ctx, c.Sheets(), SurfaceOptions{Capturing: c.Downloading()})
}

// Export renders the current sheets as a PDF into w.
func (c *Controller) Export(ctx context.Context, w io.Writer) (ExportResult, error) {
	if c.exporter == nil {
		return ExportResult{}, NewError(KindNotImpl, "export is not configured", nil)
	}
	sheets := c.Sheets()
	if len(sheets) == 0 {
		return ExportResult{}, NewError(KindDisabled, "export is disabled while there are no sheets", nil)
	}
	if !c.exporting.CompareAndSwap(false, true) {
		return ExportResult{}, NewError(KindBusy, "an export is already running", nil)
	}
	defer c.exporting.Store(false)

	return c.exporter.Export(ctx, sheets, w)
}

// ExportWorkbook writes the current sheet layout as an XLSX word list.
func (c *Controller) ExportWorkbook(ctx context.Context, w io.Writer) (int64, error) {
	sheets := c.Sheets()
	if len(sheets) == 0 {
		return 0, NewError(KindDisabled, "export is disabled while there are no sheets", nil)
	}
	return c.workbook.Write(ctx, sheets, w)
}

// History lists recorded exports.
func (c *Controller) History(ctx context.Context, filter HistoryFilter) ([]ExportRecord, error) {
	if c.tracker == nil {
		return []ExportRecord{}, nil
	}
	return c.tracker.List(ctx, filter)
}
