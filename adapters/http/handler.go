package vocabhttp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-router"
	vocabsurface "github.com/goliatone/go-vocabsheets/adapters/surface"
	"github.com/goliatone/go-vocabsheets/vocab"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	uploadField     = "images"

	// DefaultMaxUploadMemory caps the multipart bytes held in memory per upload.
	DefaultMaxUploadMemory int64 = 32 << 20
)

// Pages renders the UI page and the sheet preview fragment.
type Pages interface {
	RenderPage(ctx context.Context, data vocabsurface.PageData) ([]byte, error)
	RenderFragment(ctx context.Context, sheets []vocab.Sheet, opts vocab.SurfaceOptions) ([]byte, error)
}

// Config configures the HTTP adapter.
type Config struct {
	Controller      *vocab.Controller
	Pages           Pages
	BasePath        string
	MaxUploadMemory int64
	Logger          vocab.Logger
}

// Handler exposes the vocabulary UI and API on a go-router router.
type Handler struct {
	controller *vocab.Controller
	pages      Pages
	basePath   string
	maxMemory  int64
	logger     vocab.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = vocab.NopLogger{}
	}
	pages := cfg.Pages
	if pages == nil {
		pages = vocabsurface.New()
	}
	maxMemory := cfg.MaxUploadMemory
	if maxMemory <= 0 {
		maxMemory = DefaultMaxUploadMemory
	}
	return &Handler{
		controller: cfg.Controller,
		pages:      pages,
		basePath:   strings.TrimRight(cfg.BasePath, "/"),
		maxMemory:  maxMemory,
		logger:     logger,
	}
}

type routeRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Put(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// RegisterRoutes registers every UI and API route on a compatible go-router
// router.
func (h *Handler) RegisterRoutes(r any) error {
	reg, ok := r.(routeRegistrar)
	if !ok {
		return vocab.NewError(vocab.KindInternal, fmt.Sprintf("router %T does not support get/post/put/delete", r), nil)
	}
	base := h.basePath
	api := base + "/api"

	reg.Get(base+"/", h.page)
	reg.Get(api+"/vocabulary", h.state)
	reg.Put(api+"/vocabulary/text", h.setText)
	reg.Post(api+"/vocabulary/images", h.addImages)
	reg.Delete(api+"/vocabulary/items/:index", h.removeItem)
	reg.Delete(api+"/sheets/:sheet/items/:index", h.removeSheetItem)
	reg.Get(api+"/surface", h.surface)
	reg.Post(api+"/export", h.exportPDF)
	reg.Get(api+"/export/workbook", h.exportWorkbook)
	reg.Post(api+"/export/workbook", h.exportWorkbook)
	reg.Get(api+"/exports", h.history)
	return nil
}

func (h *Handler) page(c router.Context) error {
	out, err := h.pages.RenderPage(c.Context(), vocabsurface.PageData{
		BasePath:  h.basePath,
		RawText:   h.controller.RawText(),
		CanExport: h.controller.CanExport(),
		Sheets:    h.controller.Sheets(),
		Capturing: h.controller.Downloading(),
	})
	if err != nil {
		return writeError(c, err)
	}
	c.SetHeader("Content-Type", contentTypeHTML)
	return c.Send(out)
}

func (h *Handler) state(c router.Context) error {
	return c.JSON(http.StatusOK, h.snapshot())
}

func (h *Handler) snapshot() stateResponse {
	sheets := h.controller.Sheets()
	if sheets == nil {
		sheets = []vocab.Sheet{}
	}
	return stateResponse{
		RawText:     h.controller.RawText(),
		Items:       h.controller.Items(),
		Sheets:      sheets,
		CanExport:   h.controller.CanExport(),
		Downloading: h.controller.Downloading(),
		Version:     h.controller.Version(),
	}
}

func (h *Handler) setText(c router.Context) error {
	var req textRequest
	if strings.HasPrefix(c.Header("Content-Type"), "text/plain") {
		req.Text = string(c.Body())
	} else if err := c.Bind(&req); err != nil {
		return writeError(c, vocab.NewError(vocab.KindValidation, "invalid text payload", err))
	}

	words := h.controller.SetFromText(req.Text)
	return c.JSON(http.StatusOK, textResponse{Words: words, State: h.snapshot()})
}

func (h *Handler) addImages(c router.Context) error {
	form, err := h.readMultipart(c)
	if err != nil {
		return writeError(c, err)
	}
	defer form.RemoveAll()

	headers := form.File[uploadField]
	if len(headers) == 0 {
		headers = form.File[uploadField+"[]"]
	}

	files := make([]vocab.ImageFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, vocab.ImageFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}

	batch := h.controller.AddImages(c.Context(), files)
	// form.RemoveAll drops the parts, so every decode has to finish first.
	results := batch.Wait()

	res := imagesResponse{Accepted: batch.Accepted(), Errors: []string{}}
	for _, err := range batch.Rejected() {
		res.Errors = append(res.Errors, vocab.AsGoError(err).Message)
	}
	for _, result := range results {
		if result.Err != nil {
			res.Errors = append(res.Errors, result.Err.Error())
			continue
		}
		res.Added++
	}
	res.State = h.snapshot()

	status := http.StatusOK
	if len(files) > 0 && res.Accepted == 0 {
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, res)
}

func (h *Handler) readMultipart(c router.Context) (*multipart.Form, error) {
	mediaType, params, err := mime.ParseMediaType(c.Header("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		return nil, vocab.NewError(vocab.KindValidation, "expected multipart form with images", err)
	}
	reader := multipart.NewReader(bytes.NewReader(c.Body()), params["boundary"])
	form, err := reader.ReadForm(h.maxMemory)
	if err != nil {
		return nil, vocab.NewError(vocab.KindValidation, "invalid multipart form", err)
	}
	return form, nil
}

func (h *Handler) removeItem(c router.Context) error {
	index, err := intParam(c, "index")
	if err != nil {
		return writeError(c, err)
	}
	removed := h.controller.RemoveAt(index)
	return c.JSON(http.StatusOK, removeResponse{Removed: removed, State: h.snapshot()})
}

func (h *Handler) removeSheetItem(c router.Context) error {
	sheet, err := intParam(c, "sheet")
	if err != nil {
		return writeError(c, err)
	}
	index, err := intParam(c, "index")
	if err != nil {
		return writeError(c, err)
	}
	removed := h.controller.RemoveFromSheet(sheet, index)
	return c.JSON(http.StatusOK, removeResponse{Removed: removed, State: h.snapshot()})
}

func intParam(c router.Context, name string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(c.Param(name)))
	if err != nil {
		return 0, vocab.NewError(vocab.KindValidation, name+" must be an integer", err)
	}
	return value, nil
}

func (h *Handler) surface(c router.Context) error {
	ctx := c.Context()

	if fragment, _ := strconv.ParseBool(c.Query("fragment")); fragment {
		out, err := h.pages.RenderFragment(ctx, h.controller.Sheets(), vocab.SurfaceOptions{Capturing: h.controller.Downloading()})
		if err != nil {
			return writeError(c, err)
		}
		c.SetHeader("Content-Type", contentTypeHTML)
		return c.Send(out)
	}

	surface, err := h.controller.Preview(ctx)
	if err != nil {
		return writeError(c, err)
	}
	c.SetHeader("Content-Type", contentTypeHTML)
	return c.Send(surface.HTML)
}

func (h *Handler) exportPDF(c router.Context) error {
	var buf bytes.Buffer
	result, err := h.controller.Export(c.Context(), &buf)
	if err != nil {
		h.logger.Errorf("pdf export failed: %v", err)
		return writeError(c, err)
	}
	if result.Skipped {
		return c.SendStatus(http.StatusNoContent)
	}

	c.SetHeader("Content-Disposition", attachment(result.Filename))
	c.SetHeader("Content-Type", contentTypePDF)
	c.SetHeader("X-Export-ID", result.ID)
	return c.Send(buf.Bytes())
}

func (h *Handler) exportWorkbook(c router.Context) error {
	var buf bytes.Buffer
	if _, err := h.controller.ExportWorkbook(c.Context(), &buf); err != nil {
		h.logger.Errorf("workbook export failed: %v", err)
		return writeError(c, err)
	}

	c.SetHeader("Content-Disposition", attachment(vocab.WorkbookFilename))
	c.SetHeader("Content-Type", contentTypeXLSX)
	return c.Send(buf.Bytes())
}

func (h *Handler) history(c router.Context) error {
	filter := vocab.HistoryFilter{
		State: vocab.ExportState(c.Query("state")),
		Limit: c.QueryInt("limit", 0),
	}
	records, err := h.controller.History(c.Context(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, historyResponse{Exports: records})
}

func attachment(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
