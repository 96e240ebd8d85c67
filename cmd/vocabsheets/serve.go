package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-router"
	vocabhttp "github.com/goliatone/go-vocabsheets/adapters/http"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the vocabulary sheet web UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveHost != "" {
			cfg.Server.Host = serveHost
		}
		if servePort != "" {
			cfg.Server.Port = servePort
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := NewApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		server, err := newServer(app)
		if err != nil {
			return err
		}
		addr := cfg.Addr()
		errCh := make(chan error, 1)
		go func() {
			app.Logger.Infof("starting server on http://%s%s/", addr, cfg.Server.BasePath)
			errCh <- server.Serve(addr)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		app.Logger.Infof("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (overrides config)")
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (overrides config)")
}

func newServer(app *App) (router.Server[*fiber.App], error) {
	srv := router.NewFiberAdapter(fiberAppInitializer(app))

	err := vocabhttp.NewHandler(vocabhttp.Config{
		Controller:      app.Controller,
		Pages:           app.Surface,
		BasePath:        app.Config.Server.BasePath,
		MaxUploadMemory: int64(app.Config.Server.BodyLimit),
		Logger:          app.Logger,
	}).RegisterRoutes(srv.Router())
	if err != nil {
		return nil, err
	}
	return srv, nil
}

func fiberAppInitializer(app *App) func(*fiber.App) *fiber.App {
	return func(*fiber.App) *fiber.App {
		server := fiber.New(fiber.Config{
			AppName:               "Vocabulary Sheets",
			BodyLimit:             app.Config.Server.BodyLimit,
			DisableStartupMessage: true,
		})

		server.Use(recover.New())
		server.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
		}))
		server.Use(cors.New(cors.Config{
			AllowOrigins: "*",
			AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
			AllowHeaders: "Content-Type",
		}))
		return server
	}
}
