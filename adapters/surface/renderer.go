package vocabsurface

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/goliatone/go-vocabsheets/vocab"
)

//go:embed templates/*
var embeddedTemplates embed.FS

const (
	defaultTitle      = "Vocabulary Sheets"
	defaultGap        = "20px"
	defaultPaddingTop = "20px"
)

// Renderer draws sheets into HTML surfaces and the UI page.
type Renderer struct {
	Title      string
	Gap        string
	PaddingTop string
	UseCORS    bool

	once     sync.Once
	initErr  error
	styles   string
	fragment *pongo2.Template
	document *pongo2.Template
	page     *pongo2.Template
}

// New creates a renderer with the default preview spacing.
func New() *Renderer {
	return &Renderer{
		Title:      defaultTitle,
		Gap:        defaultGap,
		PaddingTop: defaultPaddingTop,
		UseCORS:    true,
	}
}

type cardView struct {
	Index int
	Kind  string
	Text  string
	Src   string
	Alt   string
}

type sheetView struct {
	Index int
	Cards []cardView
}

// RenderSurface renders a complete HTML document holding every sheet.
func (r *Renderer) RenderSurface(ctx context.Context, sheets []vocab.Sheet, opts vocab.SurfaceOptions) (*vocab.Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(sheets) == 0 {
		return nil, vocab.NewError(vocab.KindMissingSurface, "no sheets to render", nil)
	}
	fragment, err := r.RenderFragment(ctx, sheets, opts)
	if err != nil {
		return nil, err
	}
	if err := r.init(); err != nil {
		return nil, err
	}

	out, err := r.document.Execute(pongo2.Context{
		"title":       r.title(opts),
		"styles":      r.styles,
		"sheets_html": string(fragment),
	})
	if err != nil {
		return nil, vocab.NewError(vocab.KindInternal, "render surface document", err)
	}
	return &vocab.Surface{
		HTML:      []byte(out),
		Sheets:    sheets,
		Capturing: opts.Capturing,
	}, nil
}

// RenderFragment renders only the sheet container, for embedding in the UI.
func (r *Renderer) RenderFragment(ctx context.Context, sheets []vocab.Sheet, opts vocab.SurfaceOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.init(); err != nil {
		return nil, err
	}

	gap := r.Gap
	if gap == "" {
		gap = defaultGap
	}
	if opts.Capturing {
		gap = "0"
	}
	padding := r.PaddingTop
	if padding == "" {
		padding = defaultPaddingTop
	}

	out, err := r.fragment.Execute(pongo2.Context{
		"sheets":      buildSheetViews(sheets),
		"capturing":   opts.Capturing,
		"gap":         gap,
		"padding_top": padding,
		"use_cors":    r.UseCORS,
	})
	if err != nil {
		return nil, vocab.NewError(vocab.KindInternal, "render sheets", err)
	}
	return []byte(out), nil
}

// PageData is the state shown on the UI page.
type PageData struct {
	BasePath  string
	RawText   string
	CanExport bool
	Sheets    []vocab.Sheet
	Capturing bool
}

// RenderPage renders the interactive UI page.
func (r *Renderer) RenderPage(ctx context.Context, data PageData) ([]byte, error) {
	fragment, err := r.RenderFragment(ctx, data.Sheets, vocab.SurfaceOptions{Capturing: data.Capturing})
	if err != nil {
		return nil, err
	}

	out, err := r.page.Execute(pongo2.Context{
		"title":             r.title(vocab.SurfaceOptions{}),
		"styles":            r.styles,
		"sheets_html":       string(fragment),
		"raw_text":          data.RawText,
		"can_export":        data.CanExport,
		"base_path":         strings.TrimRight(data.BasePath, "/"),
		"accept":            strings.Join(vocab.AllowedImageTypes(), ","),
		"filename":          vocab.DefaultFilename,
		"workbook_filename": vocab.WorkbookFilename,
	})
	if err != nil {
		return nil, vocab.NewError(vocab.KindInternal, "render page", err)
	}
	return []byte(out), nil
}

func (r *Renderer) title(opts vocab.SurfaceOptions) string {
	if opts.Title != "" {
		return opts.Title
	}
	if r.Title != "" {
		return r.Title
	}
	return defaultTitle
}

func (r *Renderer) init() error {
	r.once.Do(func() {
		styles, err := embeddedTemplates.ReadFile("templates/sheets.css")
		if err != nil {
			r.initErr = err
			return
		}
		r.styles = string(styles)

		if r.fragment, r.initErr = loadTemplate("sheets.html"); r.initErr != nil {
			return
		}
		if r.document, r.initErr = loadTemplate("surface.html"); r.initErr != nil {
			return
		}
		r.page, r.initErr = loadTemplate("page.html")
	})
	if r.initErr != nil {
		return vocab.NewError(vocab.KindInternal, "load surface templates", r.initErr)
	}
	return nil
}

func loadTemplate(name string) (*pongo2.Template, error) {
	raw, err := embeddedTemplates.ReadFile("templates/" + name)
	if err != nil {
		return nil, err
	}
	tpl, err := pongo2.FromString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return tpl, nil
}

func buildSheetViews(sheets []vocab.Sheet) []sheetView {
	views := make([]sheetView, 0, len(sheets))
	for _, sheet := range sheets {
		view := sheetView{Index: sheet.Index, Cards: make([]cardView, 0, len(sheet.Items))}
		for position, item := range sheet.Items {
			card := cardView{
				Index: sheet.GlobalIndex(position),
				Kind:  string(item.Kind),
				Text:  item.Text,
			}
			if item.IsImage() {
				card.Src = item.Image.DataURI
				card.Alt = item.Label()
			}
			view.Cards = append(view.Cards, card)
		}
		views = append(views, view)
	}
	return views
}
