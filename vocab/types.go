package vocab

import (
	"context"
	"io"
	"strings"
)

// SheetSize is the number of items printed on a single sheet.
const SheetSize = 8

const (
	// DefaultFilename is the name of the exported PDF document.
	DefaultFilename = "vocabulary_sheets.pdf"
	// WorkbookFilename is the name of the exported word-list workbook.
	WorkbookFilename = "vocabulary_sheets.xlsx"
)

// ItemKind tags a vocabulary item variant.
type ItemKind string

const (
	ItemText  ItemKind = "text"
	ItemImage ItemKind = "image"
)

// Image is a self-contained image payload embeddable without further I/O.
type Image struct {
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type"`
	DataURI     string `json:"data_uri"`
	Size        int64  `json:"size"`
}

// Item is a single vocabulary entry: a word or phrase, or an image.
type Item struct {
	Kind  ItemKind `json:"kind"`
	Text  string   `json:"text,omitempty"`
	Image *Image   `json:"image,omitempty"`
}

// NewTextItem creates a text entry.
func NewTextItem(value string) Item {
	return Item{Kind: ItemText, Text: value}
}

// NewImageItem creates an image entry.
func NewImageItem(img Image) Item {
	return Item{Kind: ItemImage, Image: &img}
}

// IsText reports whether the item is a text entry.
func (i Item) IsText() bool { return i.Kind == ItemText }

// IsImage reports whether the item is an image entry.
func (i Item) IsImage() bool { return i.Kind == ItemImage && i.Image != nil }

// Label returns a short human readable description of the item.
func (i Item) Label() string {
	if i.IsImage() {
		if name := strings.TrimSpace(i.Image.Name); name != "" {
			return name
		}
		return i.Image.ContentType
	}
	return i.Text
}

// Sheet is a page of at most SheetSize consecutive items.
type Sheet struct {
	Index  int    `json:"index"`
	Offset int    `json:"offset"`
	Items  []Item `json:"items"`
}

// GlobalIndex maps a sheet-local position onto a store position.
func (s Sheet) GlobalIndex(position int) int {
	return s.Offset + position
}

// Orientation is the output page orientation.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// RenderOptions is the configuration bundle handed to the rendering service.
type RenderOptions struct {
	// Margins holds top, right, bottom and left margins expressed in Unit.
	Margins     [4]float64
	Scale       float64
	UseCORS     bool
	Unit        string
	Format      string
	Orientation Orientation
	Filename    string
	// AutoPrint asks the PDF viewer to open its print dialog on load.
	AutoPrint bool
}

// DefaultRenderOptions returns the fixed export configuration.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Margins:     [4]float64{0, 0, 0, 0},
		Scale:       2,
		UseCORS:     true,
		Unit:        "mm",
		Format:      "a4",
		Orientation: Portrait,
		Filename:    DefaultFilename,
		AutoPrint:   true,
	}
}

// Surface is the rendered visual surface holding every sheet.
type Surface struct {
	HTML      []byte
	Sheets    []Sheet
	Capturing bool
}

// Empty reports whether the surface has nothing to render.
func (s *Surface) Empty() bool {
	return s == nil || (len(s.HTML) == 0 && len(s.Sheets) == 0)
}

// SurfaceOptions configures surface rendering.
type SurfaceOptions struct {
	// Capturing removes inter-sheet spacing and removal controls.
	Capturing bool
	Title     string
}

// SurfaceRenderer draws the sheet sequence into a surface.
type SurfaceRenderer interface {
	RenderSurface(ctx context.Context, sheets []Sheet, opts SurfaceOptions) (*Surface, error)
}

// SurfaceRendererFunc adapts a function to a SurfaceRenderer.
type SurfaceRendererFunc func(ctx context.Context, sheets []Sheet, opts SurfaceOptions) (*Surface, error)

func (f SurfaceRendererFunc) RenderSurface(ctx context.Context, sheets []Sheet, opts SurfaceOptions) (*Surface, error) {
	if f == nil {
		return nil, NewError(KindMissingSurface, "surface renderer func is nil", nil)
	}
	return f(ctx, sheets, opts)
}

// Document is a paginated document produced by a rendering service.
type Document interface {
	PageCount() int
	// DeletePage removes page n (1-based); later pages shift down.
	DeletePage(n int) error
	Save(w io.Writer) error
}

// AutoPrinter is implemented by documents that can embed a print-on-open
// action.
type AutoPrinter interface {
	SetAutoPrint(on bool)
}

// RenderService converts a surface into a paginated document.
type RenderService interface {
	Render(ctx context.Context, surface *Surface, opts RenderOptions) (Document, error)
}

// RenderServiceFunc adapts a function to a RenderService.
type RenderServiceFunc func(ctx context.Context, surface *Surface, opts RenderOptions) (Document, error)

func (f RenderServiceFunc) Render(ctx context.Context, surface *Surface, opts RenderOptions) (Document, error) {
	if f == nil {
		return nil, NewError(KindExportService, "render service func is nil", nil)
	}
	return f(ctx, surface, opts)
}

// Logger provides logging hooks.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}
