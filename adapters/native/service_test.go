package nativepdf

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/goliatone/go-vocabsheets/vocab"
)

func pngImage(t *testing.T, name string) vocab.Image {
	t.Helper()

	src := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			src.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return vocab.Image{
		Name:        name,
		ContentType: "image/png",
		DataURI:     vocab.EncodeDataURI("image/png", buf.Bytes()),
		Size:        int64(buf.Len()),
	}
}

func surfaceFor(items []vocab.Item) *vocab.Surface {
	return &vocab.Surface{HTML: []byte("<html></html>"), Sheets: vocab.Paginate(items), Capturing: true}
}

func TestService_OnePagePerSheet(t *testing.T) {
	items := []vocab.Item{}
	for _, word := range strings.Split("apple,banana,cherry,dates,elder,figs,grape,honeydew,kiwi", ",") {
		items = append(items, vocab.NewTextItem(word))
	}
	items = append(items, vocab.NewImageItem(pngImage(t, "red.png")))

	doc, err := Service{Title: "Vocabulary"}.Render(context.Background(), surfaceFor(items), vocab.DefaultRenderOptions())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if doc.PageCount() != 2 {
		t.Fatalf("expected 2 pages, got %d", doc.PageCount())
	}

	var out bytes.Buffer
	if err := doc.Save(&out); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !bytes.HasPrefix(out.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected pdf output")
	}
}

func TestService_LongWordAndBrokenImage(t *testing.T) {
	broken := vocab.Image{Name: "broken.png", ContentType: "image/png", DataURI: vocab.EncodeDataURI("image/png", []byte("nope"))}
	items := []vocab.Item{
		vocab.NewTextItem(strings.Repeat("Donaudampfschifffahrt ", 12)),
		vocab.NewTextItem("café"),
		vocab.NewImageItem(broken),
	}

	doc, err := Service{}.Render(context.Background(), surfaceFor(items), vocab.DefaultRenderOptions())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if doc.PageCount() != 1 {
		t.Fatalf("expected 1 page, got %d", doc.PageCount())
	}
}

func TestService_MissingSurface(t *testing.T) {
	_, err := Service{}.Render(context.Background(), &vocab.Surface{}, vocab.DefaultRenderOptions())
	if vocab.KindFromError(err) != vocab.KindMissingSurface {
		t.Fatalf("expected missing_surface, got %v", err)
	}
}

func TestService_RejectsOtherFormats(t *testing.T) {
	opts := vocab.DefaultRenderOptions()
	opts.Format = "letter"
	_, err := Service{}.Render(context.Background(), surfaceFor([]vocab.Item{vocab.NewTextItem("a")}), opts)
	if vocab.KindFromError(err) != vocab.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCardRect_Grid(t *testing.T) {
	area := contentArea(vocab.DefaultRenderOptions())
	first := cardRect(area, 0)
	second := cardRect(area, 1)
	last := cardRect(area, vocab.SheetSize-1)

	if second.x <= first.x || second.y != first.y {
		t.Fatalf("expected second card to the right of the first: %+v %+v", first, second)
	}
	if got := last.y + last.h; got > pageHeight {
		t.Fatalf("last card overflows the page: bottom=%f", got)
	}
	if got := second.x + second.w; got > pageWidth {
		t.Fatalf("right column overflows the page: right=%f", got)
	}
}

func TestImagePayload_UnsupportedType(t *testing.T) {
	img := &vocab.Image{Name: "x.bmp", DataURI: vocab.EncodeDataURI("image/bmp", []byte("BM"))}
	if _, _, err := imagePayload(img); err == nil {
		t.Fatalf("expected error for unreadable image")
	}
}
