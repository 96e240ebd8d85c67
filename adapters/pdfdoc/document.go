// Package pdfdoc wraps rendered PDF bytes as a paginated document that can
// count, delete and save pages.
//
// Pages are counted with gofpdi. Deleting pages is recorded and applied on
// Save, which imports the kept pages as templates into a new gofpdf document.
package pdfdoc

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goliatone/go-vocabsheets/vocab"
	"github.com/jung-kurt/gofpdf"
	contribgofpdi "github.com/jung-kurt/gofpdf/contrib/gofpdi"
	realgofpdi "github.com/phpdave11/gofpdi"
)

const pageBox = "/MediaBox"

const autoPrintScript = "print(true);"

// A4 in points, used when an imported page reports no box.
const (
	a4WidthPt  = 595.28
	a4HeightPt = 841.89
)

type pageSize struct {
	w float64
	h float64
}

// Document is a PDF held in memory.
type Document struct {
	data  []byte
	sizes map[int]pageSize
	// pages holds the original page numbers still present, in order.
	pages     []int
	autoPrint bool
}

var (
	_ vocab.Document    = (*Document)(nil)
	_ vocab.AutoPrinter = (*Document)(nil)
)

// Open parses PDF bytes and counts their pages.
func Open(data []byte) (doc *Document, err error) {
	if len(data) < 5 || !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, vocab.NewError(vocab.KindExportService, "rendered output is not a PDF", nil)
	}

	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = vocab.NewError(vocab.KindExportService, "parse rendered pdf", fmt.Errorf("%v", r))
		}
	}()

	imp := realgofpdi.NewImporter()
	var rs io.ReadSeeker = bytes.NewReader(data)
	imp.SetSourceStream(&rs)

	boxes := imp.GetPageSizes()
	if len(boxes) == 0 {
		return nil, vocab.NewError(vocab.KindExportService, "rendered pdf has no pages", nil)
	}

	doc = &Document{
		data:  data,
		sizes: make(map[int]pageSize, len(boxes)),
		pages: make([]int, 0, len(boxes)),
	}
	for n := 1; n <= len(boxes); n++ {
		size := pageSize{w: a4WidthPt, h: a4HeightPt}
		if box, ok := boxes[n][pageBox]; ok && box["w"] > 0 && box["h"] > 0 {
			size = pageSize{w: box["w"], h: box["h"]}
		}
		doc.sizes[n] = size
		doc.pages = append(doc.pages, n)
	}
	return doc, nil
}

// PageCount returns the number of pages currently in the document.
func (d *Document) PageCount() int {
	if d == nil {
		return 0
	}
	return len(d.pages)
}

// DeletePage removes page n (1-based, current numbering).
func (d *Document) DeletePage(n int) error {
	if d == nil {
		return vocab.NewError(vocab.KindInternal, "document is nil", nil)
	}
	if n < 1 || n > len(d.pages) {
		return vocab.NewError(vocab.KindValidation, fmt.Sprintf("page %d out of range [1, %d]", n, len(d.pages)), nil)
	}
	d.pages = append(d.pages[:n-1:n-1], d.pages[n:]...)
	return nil
}

// SetAutoPrint embeds a document-level script that opens the print dialog
// when the file is viewed. It forces a rebuild on Save.
func (d *Document) SetAutoPrint(on bool) {
	if d != nil {
		d.autoPrint = on
	}
}

// Save writes the document. The original bytes are written untouched when
// no page was deleted and auto print is off.
func (d *Document) Save(w io.Writer) error {
	if d == nil {
		return vocab.NewError(vocab.KindInternal, "document is nil", nil)
	}
	if len(d.pages) == len(d.sizes) && !d.autoPrint {
		_, err := w.Write(d.data)
		return err
	}
	if len(d.pages) == 0 {
		return vocab.NewError(vocab.KindValidation, "document has no pages left", nil)
	}

	pdf, err := d.rebuild()
	if err != nil {
		return err
	}
	return pdf.Output(w)
}

func (d *Document) rebuild() (pdf *gofpdf.Fpdf, err error) {
	defer func() {
		if r := recover(); r != nil {
			pdf = nil
			err = vocab.NewError(vocab.KindExportService, "import pdf pages", fmt.Errorf("%v", r))
		}
	}()

	pdf = gofpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	if d.autoPrint {
		pdf.SetJavascript(autoPrintScript)
	}

	imp := contribgofpdi.NewImporter()
	var rs io.ReadSeeker = bytes.NewReader(d.data)
	for _, n := range d.pages {
		size := d.sizes[n]
		tplID := imp.ImportPageFromStream(pdf, &rs, n, pageBox)
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: size.w, Ht: size.h})
		imp.UseImportedTemplate(pdf, tplID, 0, 0, size.w, size.h)
	}
	if err := pdf.Error(); err != nil {
		return nil, vocab.NewError(vocab.KindExportService, "rebuild pdf", err)
	}
	return pdf, nil
}
