// Package config holds the vocabsheets runtime configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goliatone/go-vocabsheets/vocab"
	"gopkg.in/yaml.v3"
)

// Engine names accepted by PDFConfig.Engine.
const (
	EngineChromium    = "chromium"
	EngineWKHTMLTOPDF = "wkhtmltopdf"
	EngineNative      = "native"
)

// Config holds the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	PDF     PDFConfig     `yaml:"pdf"`
	History HistoryConfig `yaml:"history"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	BasePath string `yaml:"base_path"`
	// BodyLimit caps request bodies in bytes, image uploads included.
	BodyLimit int `yaml:"body_limit"`
}

// PDFConfig selects and tunes the rendering service.
type PDFConfig struct {
	Engine          string   `yaml:"engine"`
	ChromiumPath    string   `yaml:"chromium_path"`
	Headless        bool     `yaml:"headless"`
	Args            []string `yaml:"args"`
	WKHTMLTOPDFPath string   `yaml:"wkhtmltopdf_path"`
	// Timeout is in seconds.
	Timeout   int     `yaml:"timeout"`
	Scale     float64 `yaml:"scale"`
	UseCORS   bool    `yaml:"use_cors"`
	Trim      string  `yaml:"trim"`
	AutoPrint bool    `yaml:"auto_print"`
}

// HistoryConfig configures the export history store.
type HistoryConfig struct {
	// DSN is a sqlite DSN. Empty keeps history in process memory.
	DSN string `yaml:"dsn"`
}

// LogConfig configures the console logger.
type LogConfig struct {
	Debug bool `yaml:"debug"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:      "localhost",
			Port:      "8080",
			BodyLimit: 32 * 1024 * 1024,
		},
		PDF: PDFConfig{
			Engine:    EngineChromium,
			Headless:  true,
			Timeout:   30,
			Scale:     2,
			UseCORS:   true,
			Trim:      string(vocab.TrimMultiPage),
			AutoPrint: true,
		},
		History: HistoryConfig{
			DSN: "file::memory:?cache=shared",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from VOCAB_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	str := func(key string, dest *string) {
		if value, ok := lookup(key); ok && value != "" {
			*dest = value
		}
	}
	boolean := func(key string, dest *bool) {
		if value, ok := lookup(key); ok && value != "" {
			if parsed, err := strconv.ParseBool(value); err == nil {
				*dest = parsed
			}
		}
	}

	str("VOCAB_HOST", &c.Server.Host)
	str("VOCAB_PORT", &c.Server.Port)
	str("VOCAB_BASE_PATH", &c.Server.BasePath)
	if value, ok := lookup("VOCAB_BODY_LIMIT"); ok {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			c.Server.BodyLimit = n
		}
	}

	str("VOCAB_PDF_ENGINE", &c.PDF.Engine)
	str("VOCAB_CHROMIUM_PATH", &c.PDF.ChromiumPath)
	boolean("VOCAB_PDF_HEADLESS", &c.PDF.Headless)
	if value, ok := lookup("VOCAB_CHROMIUM_ARGS"); ok && value != "" {
		c.PDF.Args = splitCSV(value)
	}
	str("VOCAB_WKHTMLTOPDF_PATH", &c.PDF.WKHTMLTOPDFPath)
	if value, ok := lookup("VOCAB_PDF_TIMEOUT"); ok {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			c.PDF.Timeout = n
		}
	}
	if value, ok := lookup("VOCAB_PDF_SCALE"); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			c.PDF.Scale = f
		}
	}
	boolean("VOCAB_PDF_USE_CORS", &c.PDF.UseCORS)
	boolean("VOCAB_PDF_AUTO_PRINT", &c.PDF.AutoPrint)
	str("VOCAB_PDF_TRIM", &c.PDF.Trim)

	str("VOCAB_HISTORY_DSN", &c.History.DSN)
	boolean("VOCAB_DEBUG", &c.Log.Debug)
}

// Validate checks engine names, the trim policy and numeric ranges.
func (c Config) Validate() error {
	var errs []error
	switch c.PDF.Engine {
	case EngineChromium, EngineWKHTMLTOPDF, EngineNative:
	default:
		errs = append(errs, fmt.Errorf("unknown pdf engine %q", c.PDF.Engine))
	}
	if _, err := vocab.ParseTrimPolicy(c.PDF.Trim); err != nil {
		errs = append(errs, err)
	}
	if c.PDF.Scale <= 0 {
		errs = append(errs, fmt.Errorf("pdf scale must be positive, got %g", c.PDF.Scale))
	}
	if c.PDF.Timeout < 0 {
		errs = append(errs, fmt.Errorf("pdf timeout must not be negative, got %d", c.PDF.Timeout))
	}
	if strings.TrimSpace(c.Server.Port) == "" {
		errs = append(errs, errors.New("server port is required"))
	}
	if len(errs) == 0 {
		return nil
	}
	return vocab.NewError(vocab.KindValidation, "invalid configuration", errors.Join(errs...))
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// RenderOptions returns the render options for exports.
func (c Config) RenderOptions() vocab.RenderOptions {
	opts := vocab.DefaultRenderOptions()
	if c.PDF.Scale > 0 {
		opts.Scale = c.PDF.Scale
	}
	opts.UseCORS = c.PDF.UseCORS
	opts.AutoPrint = c.PDF.AutoPrint
	return opts
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
