package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/advconfig/advconfig"
	"github.com/eugenenazirov/advconfig/document"
	"github.com/eugenenazirov/advconfig/internal/application"
	"github.com/eugenenazirov/advconfig/internal/config"
	"github.com/eugenenazirov/advconfig/internal/logging"
)

var signalNotify = signal.Notify

var errNotFound = errors.New("no value stored at path")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "advconfig: %v\n", err)
		os.Exit(1)
	}
}

type cli struct {
	app *kingpin.Application

	dataDir  *string
	path     *string
	name     *string
	logLevel *string

	show *kingpin.CmdClause

	get     *kingpin.CmdClause
	getPath *string

	set      *kingpin.CmdClause
	setPath  *string
	setValue *string

	export       *kingpin.CmdClause
	exportFormat *string

	fixComments *kingpin.CmdClause

	serve          *kingpin.CmdClause
	listen         *string
	rateLimitRPS   *float64
	rateLimitBurst *int
	watch          *bool
}

func newCLI() *cli {
	c := &cli{}
	c.app = kingpin.New("advconfig", "Inspect, edit and serve a commented YAML plugin config file")
	c.dataDir = c.app.Flag("data-dir", "Plugin data folder").String()
	c.path = c.app.Flag("path", "Directory below the data folder").String()
	c.name = c.app.Flag("name", "Config file name without extension").String()
	c.logLevel = c.app.Flag("log-level", "Log level (debug, info, warn, error)").String()

	c.show = c.app.Command("show", "Print the config file").Default()

	c.get = c.app.Command("get", "Print the value stored at a dotted path")
	c.getPath = c.get.Arg("path", "Dotted path, e.g. messages.greet").Required().String()

	c.set = c.app.Command("set", "Store a YAML value at a dotted path; null removes it")
	c.setPath = c.set.Arg("path", "Dotted path").Required().String()
	c.setValue = c.set.Arg("value", "YAML scalar or flow value").Required().String()

	c.export = c.app.Command("export", "Print the values in another format")
	c.exportFormat = c.export.Flag("format", "Output format").Default(string(document.FormatYAML)).
		Enum(string(document.FormatYAML), string(document.FormatJSON), string(document.FormatTOML))

	c.fixComments = c.app.Command("fix-comments", "Rewrite legacy synthetic comment entries into comment lines")

	c.serve = c.app.Command("serve", "Serve the admin HTTP API")
	c.listen = c.serve.Flag("listen", "HTTP listen address").String()
	c.rateLimitRPS = c.serve.Flag("rate-limit-rps", "Write requests per second allowed (set 0 to disable)").Default("-1").Float64()
	c.rateLimitBurst = c.serve.Flag("rate-limit-burst", "Burst capacity for rate limiter").Default("-1").Int()
	c.watch = c.serve.Flag("watch", "Reload when the file changes on disk").Default("true").Bool()
	return c
}

func (c *cli) overrides() *config.CLIOverrides {
	overrides := &config.CLIOverrides{
		DataDir:    c.dataDir,
		Name:       c.name,
		LogLevel:   c.logLevel,
		ListenAddr: c.listen,
		Watch:      c.watch,
	}
	if *c.path != "" {
		overrides.Path = c.path
	}
	if *c.rateLimitRPS >= 0 {
		overrides.RateLimitRPS = c.rateLimitRPS
	}
	if *c.rateLimitBurst >= 0 {
		overrides.RateLimitBurst = c.rateLimitBurst
	}
	return overrides
}

func run(args []string, stdout io.Writer) error {
	c := newCLI()
	command, err := c.app.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(c.overrides())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	switch command {
	case c.serve.FullCommand():
		return serve(cfg, logger)
	case c.fixComments.FullCommand():
		return fixComments(cfg, stdout)
	}

	store, _, err := application.OpenStore(cfg, advconfig.NewRegistry(), logger)
	if err != nil {
		return err
	}
	doc, err := store.Document()
	if err != nil {
		return err
	}

	switch command {
	case c.get.FullCommand():
		return printValue(doc, *c.getPath, stdout)
	case c.set.FullCommand():
		return setValue(store, doc, *c.setPath, *c.setValue)
	case c.export.FullCommand():
		return doc.Export(stdout, document.Format(*c.exportFormat))
	default:
		return doc.Export(stdout, document.FormatYAML)
	}
}

func printValue(doc *document.Document, path string, stdout io.Writer) error {
	if err := document.ValidatePath(path); err != nil {
		return err
	}
	if !doc.Contains(path) {
		return fmt.Errorf("%w: %s", errNotFound, path)
	}
	data, err := yaml.Marshal(doc.Get(path, nil))
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	_, err = stdout.Write(data)
	return err
}

func setValue(store *advconfig.Store, doc *document.Document, path, raw string) error {
	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		return fmt.Errorf("parse value %q: %w", raw, err)
	}
	if err := doc.Set(path, value); err != nil {
		return err
	}
	return store.Save()
}

func fixComments(cfg config.Config, stdout io.Writer) error {
	changed, err := advconfig.RewriteLegacyComments(cfg.FilePath())
	if err != nil {
		return err
	}
	if changed {
		_, err = fmt.Fprintf(stdout, "rewrote comments in %s\n", cfg.FilePath())
	} else {
		_, err = fmt.Fprintf(stdout, "no legacy comments in %s\n", cfg.FilePath())
	}
	return err
}

func serve(cfg config.Config, logger *zap.Logger) error {
	app, err := application.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to stop config watcher", zap.Error(err))
		}
	}()

	if err := app.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
	return nil
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
