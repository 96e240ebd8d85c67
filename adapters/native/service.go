package nativepdf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strconv"
	"strings"

	"github.com/goliatone/go-vocabsheets/adapters/pdfdoc"
	"github.com/goliatone/go-vocabsheets/vocab"
	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/webp"
)

// Page geometry in millimetres, matching the HTML surface.
const (
	pageWidth   = 210.0
	pageHeight  = 297.0
	columns     = 2
	rows        = 4
	cardGap     = 6.0
	cardPadding = 4.0
	sidePadding = 10.0
	topPadding  = 5.3
	maxFontSize = 28.0
	minFontSize = 8.0
	fontFamily  = "Helvetica"
	lineRatio   = 1.25
)

// Service lays sheets out directly with gofpdf.
type Service struct {
	Title  string
	Author string
}

var _ vocab.RenderService = Service{}

// Render draws one page per sheet of the surface.
func (s Service) Render(ctx context.Context, surface *vocab.Surface, opts vocab.RenderOptions) (vocab.Document, error) {
	if surface == nil || len(surface.Sheets) == 0 {
		return nil, vocab.NewError(vocab.KindMissingSurface, "surface has no sheets", nil)
	}
	if format := strings.ToUpper(opts.Format); format != "" && format != "A4" {
		return nil, vocab.NewError(vocab.KindValidation, fmt.Sprintf("native engine only supports A4, got %s", opts.Format), nil)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCreator("vocabsheets", true)
	if s.Title != "" {
		pdf.SetTitle(s.Title, true)
	}
	if s.Author != "" {
		pdf.SetAuthor(s.Author, true)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	area := contentArea(opts)
	for _, sheet := range surface.Sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pdf.AddPage()
		for position, item := range sheet.Items {
			card := cardRect(area, position)
			drawCardFrame(pdf, card)
			if item.IsImage() {
				name := fmt.Sprintf("sheet%d-card%d", sheet.Index, position)
				if err := drawImage(pdf, name, card, item.Image); err != nil {
					drawText(pdf, tr, card, item.Label())
				}
				continue
			}
			drawText(pdf, tr, card, item.Text)
		}
		if err := pdf.Error(); err != nil {
			return nil, vocab.NewError(vocab.KindExportService, "draw sheet "+strconv.Itoa(sheet.Index+1), err)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, vocab.NewError(vocab.KindExportService, "write native pdf", err)
	}
	return pdfdoc.Open(buf.Bytes())
}

type rect struct {
	x, y, w, h float64
}

// contentArea is the page minus margins (top, right, bottom, left).
func contentArea(opts vocab.RenderOptions) rect {
	m := opts.Margins
	if opts.Unit != "" && opts.Unit != "mm" {
		m = [4]float64{}
	}
	return rect{
		x: m[3] + sidePadding,
		y: m[0] + topPadding,
		w: pageWidth - m[1] - m[3] - 2*sidePadding,
		h: pageHeight - m[0] - m[2] - topPadding - sidePadding,
	}
}

func cardRect(area rect, position int) rect {
	w := (area.w - cardGap*(columns-1)) / columns
	h := (area.h - cardGap*(rows-1)) / rows
	col := position % columns
	row := position / columns
	return rect{
		x: area.x + float64(col)*(w+cardGap),
		y: area.y + float64(row)*(h+cardGap),
		w: w,
		h: h,
	}
}

func drawCardFrame(pdf *gofpdf.Fpdf, card rect) {
	pdf.SetDrawColor(51, 51, 51)
	pdf.SetLineWidth(0.3)
	pdf.Rect(card.x, card.y, card.w, card.h, "D")
}

// drawText centres text in the card, shrinking the font until every
// wrapped line fits.
func drawText(pdf *gofpdf.Fpdf, tr func(string) string, card rect, text string) {
	text = tr(text)
	innerW := card.w - 2*cardPadding
	innerH := card.h - 2*cardPadding

	pdf.SetTextColor(29, 29, 31)
	var lines [][]byte
	size := maxFontSize
	for ; size >= minFontSize; size -= 2 {
		pdf.SetFont(fontFamily, "B", size)
		lines = pdf.SplitLines([]byte(text), innerW)
		if lineHeight(size)*float64(len(lines)) <= innerH && fitsWidth(pdf, lines, innerW) {
			break
		}
	}
	if size < minFontSize {
		size = minFontSize
		pdf.SetFont(fontFamily, "B", size)
		lines = pdf.SplitLines([]byte(text), innerW)
	}

	lh := lineHeight(size)
	y := card.y + (card.h-lh*float64(len(lines)))/2
	for _, line := range lines {
		pdf.SetXY(card.x+cardPadding, y)
		pdf.CellFormat(innerW, lh, string(line), "", 0, "CM", false, 0, "")
		y += lh
	}
}

func fitsWidth(pdf *gofpdf.Fpdf, lines [][]byte, width float64) bool {
	for _, line := range lines {
		if pdf.GetStringWidth(string(line)) > width {
			return false
		}
	}
	return true
}

func lineHeight(size float64) float64 {
	return size * lineRatio * 25.4 / 72
}

// drawImage fits the image inside the card keeping its aspect ratio.
func drawImage(pdf *gofpdf.Fpdf, name string, card rect, img *vocab.Image) error {
	if img == nil {
		return vocab.NewError(vocab.KindValidation, "card has no image", nil)
	}
	data, imageType, err := imagePayload(img)
	if err != nil {
		return err
	}

	options := gofpdf.ImageOptions{ImageType: imageType, ReadDpi: false}
	info := pdf.RegisterImageOptionsReader(name, options, bytes.NewReader(data))
	if err := pdf.Error(); err != nil {
		pdf.ClearError()
		return err
	}
	if info == nil || info.Width() <= 0 || info.Height() <= 0 {
		return vocab.NewError(vocab.KindValidation, "image has no size", nil)
	}

	innerW := card.w - 2*cardPadding
	innerH := card.h - 2*cardPadding
	ratio := min(innerW/info.Width(), innerH/info.Height())
	w := info.Width() * ratio
	h := info.Height() * ratio
	x := card.x + (card.w-w)/2
	y := card.y + (card.h-h)/2
	pdf.ImageOptions(name, x, y, w, h, false, options, 0, "")
	return nil
}

// imagePayload returns bytes gofpdf can embed and their gofpdf type name.
// WebP is transcoded to PNG.
func imagePayload(img *vocab.Image) ([]byte, string, error) {
	mediaType, data, err := vocab.DecodeDataURI(img.DataURI)
	if err != nil {
		return nil, "", err
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, "", vocab.NewError(vocab.KindValidation, "unreadable image "+img.Name, err)
	}

	switch mediaType {
	case "image/jpeg":
		return data, "JPG", nil
	case "image/png":
		return data, "PNG", nil
	case "image/gif":
		return data, "GIF", nil
	case "image/webp":
		decoded, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, "", vocab.NewError(vocab.KindValidation, "decode webp "+img.Name, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, decoded); err != nil {
			return nil, "", vocab.NewError(vocab.KindInternal, "transcode webp "+img.Name, err)
		}
		return buf.Bytes(), "PNG", nil
	default:
		return nil, "", vocab.NewError(vocab.KindValidation, "unsupported image type "+mediaType, nil)
	}
}
