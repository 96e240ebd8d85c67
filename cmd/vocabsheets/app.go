package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	exportpdf "github.com/goliatone/go-vocabsheets/adapters/pdf"
	nativepdf "github.com/goliatone/go-vocabsheets/adapters/native"
	vocabsurface "github.com/goliatone/go-vocabsheets/adapters/surface"
	trackerbun "github.com/goliatone/go-vocabsheets/adapters/tracker/bun"
	"github.com/goliatone/go-vocabsheets/config"
	"github.com/goliatone/go-vocabsheets/vocab"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// App holds the application dependencies.
type App struct {
	Config     config.Config
	Logger     vocab.Logger
	Surface    *vocabsurface.Renderer
	Controller *vocab.Controller
	Tracker    vocab.Tracker
	closers    []func() error
}

// NewApp wires the store, surface renderer, render service and history
// tracker selected by cfg.
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := vocab.NewConsoleLogger("vocabsheets", cfg.Log.Debug)
	app := &App{Config: cfg, Logger: logger}

	surface := vocabsurface.New()
	surface.UseCORS = cfg.PDF.UseCORS
	app.Surface = surface

	service, trim, err := app.renderService()
	if err != nil {
		return nil, err
	}

	tracker, err := app.tracker(ctx)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Tracker = tracker

	exporter := vocab.NewExporter(surface, service)
	exporter.Trim = trim
	exporter.Options = cfg.RenderOptions()
	exporter.Logger = logger
	exporter.Tracker = tracker

	app.Controller = vocab.NewController(vocab.ControllerConfig{
		Surface:  surface,
		Exporter: exporter,
		Tracker:  tracker,
		Logger:   logger,
	})
	logger.Infof("pdf engine %s, trim policy %s", cfg.PDF.Engine, trim)
	return app, nil
}

func (a *App) renderService() (vocab.RenderService, vocab.TrimPolicy, error) {
	cfg := a.Config.PDF
	trim, err := vocab.ParseTrimPolicy(cfg.Trim)
	if err != nil {
		return nil, "", err
	}
	timeout := time.Duration(cfg.Timeout) * time.Second

	switch cfg.Engine {
	case config.EngineNative:
		// Native layout emits exactly one page per sheet.
		return nativepdf.Service{Title: "Vocabulary Sheets"}, vocab.TrimNever, nil
	case config.EngineWKHTMLTOPDF:
		engine := exportpdf.WKHTMLTOPDFEngine{Command: cfg.WKHTMLTOPDFPath, Timeout: timeout}
		return exportpdf.Service{Engine: engine}, trim, nil
	case config.EngineChromium:
		engine := &exportpdf.ChromiumEngine{
			BrowserPath: cfg.ChromiumPath,
			Headless:    cfg.Headless,
			Timeout:     timeout,
			Args:        cfg.Args,
		}
		a.closers = append(a.closers, engine.Close)
		return exportpdf.Service{Engine: engine}, trim, nil
	default:
		return nil, "", vocab.NewError(vocab.KindValidation, fmt.Sprintf("unknown pdf engine %q", cfg.Engine), nil)
	}
}

func (a *App) tracker(ctx context.Context) (vocab.Tracker, error) {
	dsn := a.Config.History.DSN
	if dsn == "" {
		return vocab.NewMemoryTracker(), nil
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	a.closers = append(a.closers, db.Close)

	tracker := trackerbun.NewTracker(db)
	if err := tracker.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return tracker, nil
}

// Close releases app resources.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
