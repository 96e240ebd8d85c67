package exportpdf

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/goliatone/go-vocabsheets/vocab"
)

const (
	printScale         = 1.0
	cssPixelsPerInch   = 96.0
	mmPerInch          = 25.4
	maxDeviceScale     = 4.0
	defaultPaperFormat = "A4"
)

var pdfLengthPattern = regexp.MustCompile(`^\s*([0-9]+(?:\.[0-9]+)?)\s*([a-zA-Z]*)\s*$`)

// ISO sizes are derived from millimetres so a CSS sheet of the same size
// fits its page exactly.
var pdfPageSizesInches = map[string]struct {
	width  float64
	height float64
}{
	"A3":     {width: 297 / mmPerInch, height: 420 / mmPerInch},
	"A4":     {width: 210 / mmPerInch, height: 297 / mmPerInch},
	"A5":     {width: 148 / mmPerInch, height: 210 / mmPerInch},
	"LETTER": {width: 8.5, height: 11},
	"LEGAL":  {width: 8.5, height: 14},
}

// ChromiumEngine renders PDF output using a shared headless Chromium instance.
type ChromiumEngine struct {
	BrowserPath string
	Headless    bool
	Timeout     time.Duration
	Args        []string

	initOnce      sync.Once
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// Render loads the surface into a fresh tab and prints it.
func (e *ChromiumEngine) Render(ctx context.Context, req RenderRequest) ([]byte, error) {
	if e == nil {
		return nil, vocab.NewError(vocab.KindInternal, "chromium engine is nil", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	params, err := buildPrintToPDFParams(req.Options)
	if err != nil {
		return nil, err
	}
	metrics, err := buildDeviceMetrics(req.Options)
	if err != nil {
		return nil, err
	}

	if err := e.ensureBrowser(); err != nil {
		return nil, vocab.NewError(vocab.KindExportService, "chromium engine init failed", err)
	}

	tabCtx, cancel := chromedp.NewContext(e.browserCtx)
	defer cancel()

	reqCtx, cancelReq := context.WithCancel(tabCtx)
	defer cancelReq()
	go func() {
		select {
		case <-ctx.Done():
			cancelReq()
		case <-reqCtx.Done():
		}
	}()
	execCtx := reqCtx
	if e.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		execCtx, cancelTimeout = context.WithTimeout(reqCtx, e.Timeout)
		defer cancelTimeout()
	}

	var pdf []byte
	actions := []chromedp.Action{}
	if !req.Options.UseCORS {
		actions = append(actions,
			network.Enable(),
			network.SetBlockedURLs([]string{"http://*", "https://*"}),
		)
	}

	actions = append(actions,
		metrics,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(req.HTML)).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = params.Do(ctx)
			return err
		}),
	)

	if err := chromedp.Run(execCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, vocab.NewError(vocab.KindTimeout, "chromium pdf render timed out", err)
		}
		return nil, vocab.NewError(vocab.KindExportService, "chromium pdf render failed", err)
	}
	return pdf, nil
}

// Close releases Chromium resources if they have been initialized.
func (e *ChromiumEngine) Close() error {
	if e == nil {
		return nil
	}
	if e.browserCancel != nil {
		e.browserCancel()
	}
	if e.allocCancel != nil {
		e.allocCancel()
	}
	return nil
}

func (e *ChromiumEngine) ensureBrowser() error {
	e.initOnce.Do(func() {
		options := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
		if e.BrowserPath != "" {
			options = append(options, chromedp.ExecPath(e.BrowserPath))
		}
		options = append(options, chromedp.Flag("headless", e.Headless))
		options = append(options, allocatorOptionsFromArgs(e.Args)...)

		e.allocCtx, e.allocCancel = chromedp.NewExecAllocator(context.Background(), options...)
		e.browserCtx, e.browserCancel = chromedp.NewContext(e.allocCtx)
	})
	if e.allocCtx == nil || e.browserCtx == nil {
		return errors.New("chromium allocator unavailable")
	}
	return nil
}

func paperSize(opts vocab.RenderOptions) (float64, float64, error) {
	format := strings.ToUpper(strings.TrimSpace(opts.Format))
	if format == "" {
		format = defaultPaperFormat
	}
	size, ok := pdfPageSizesInches[format]
	if !ok {
		return 0, 0, vocab.NewError(vocab.KindValidation, fmt.Sprintf("unsupported pdf page size: %s", opts.Format), nil)
	}
	if opts.Orientation == vocab.Landscape {
		return size.height, size.width, nil
	}
	return size.width, size.height, nil
}

// buildDeviceMetrics sizes the viewport to one page and applies the capture
// scale as the device pixel ratio.
func buildDeviceMetrics(opts vocab.RenderOptions) (chromedp.Action, error) {
	width, height, err := paperSize(opts)
	if err != nil {
		return nil, err
	}
	scale := opts.Scale
	if scale == 0 {
		scale = 1
	}
	if scale < 0 || scale > maxDeviceScale {
		return nil, vocab.NewError(vocab.KindValidation, fmt.Sprintf("capture scale must be between 0 and %g", maxDeviceScale), nil)
	}
	return emulation.SetDeviceMetricsOverride(
		int64(math.Round(width*cssPixelsPerInch)),
		int64(math.Round(height*cssPixelsPerInch)),
		scale,
		false,
	), nil
}

func buildPrintToPDFParams(opts vocab.RenderOptions) (*page.PrintToPDFParams, error) {
	width, height, err := paperSize(opts)
	if err != nil {
		return nil, err
	}

	params := page.PrintToPDF().
		WithScale(printScale).
		WithPrintBackground(true).
		WithPaperWidth(width).
		WithPaperHeight(height)

	unit := opts.Unit
	if unit == "" {
		unit = "mm"
	}
	margins := make([]float64, len(opts.Margins))
	for i, margin := range opts.Margins {
		value, err := parseLengthInches(formatLength(margin, unit))
		if err != nil {
			return nil, err
		}
		margins[i] = value
	}
	params = params.
		WithMarginTop(margins[0]).
		WithMarginRight(margins[1]).
		WithMarginBottom(margins[2]).
		WithMarginLeft(margins[3])

	return params, nil
}

func parseLengthInches(value string) (float64, error) {
	matches := pdfLengthPattern.FindStringSubmatch(value)
	if len(matches) != 3 {
		return 0, vocab.NewError(vocab.KindValidation, fmt.Sprintf("invalid pdf length: %s", value), nil)
	}

	raw := matches[1]
	unit := strings.ToLower(matches[2])
	if unit == "" {
		unit = "in"
	}

	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, vocab.NewError(vocab.KindValidation, fmt.Sprintf("invalid pdf length: %s", value), err)
	}

	switch unit {
	case "in":
		return amount, nil
	case "cm":
		return amount / 2.54, nil
	case "mm":
		return amount / mmPerInch, nil
	case "pt":
		return amount / 72.0, nil
	case "px":
		return amount / cssPixelsPerInch, nil
	default:
		return 0, vocab.NewError(vocab.KindValidation, fmt.Sprintf("unsupported pdf length unit: %s", unit), nil)
	}
}

func allocatorOptionsFromArgs(args []string) []chromedp.ExecAllocatorOption {
	options := make([]chromedp.ExecAllocatorOption, 0, len(args))
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		arg = strings.TrimPrefix(arg, "--")
		if arg == "" {
			continue
		}
		if name, value, ok := strings.Cut(arg, "="); ok {
			options = append(options, chromedp.Flag(name, value))
			continue
		}
		options = append(options, chromedp.Flag(arg, true))
	}
	return options
}
