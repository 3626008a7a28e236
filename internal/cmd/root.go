// Package cmd implements the runeforge command line.
package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/runeforge/internal/archive"
	"github.com/felixgeelhaar/runeforge/internal/config"
	"github.com/felixgeelhaar/runeforge/internal/log"
	"github.com/felixgeelhaar/runeforge/internal/metrics"
	"github.com/felixgeelhaar/runeforge/internal/planner"
	"github.com/felixgeelhaar/runeforge/internal/rules"
	"github.com/felixgeelhaar/runeforge/internal/telemetry"
	"github.com/felixgeelhaar/runeforge/internal/version"
)

// app holds what every command shares once flags and config are resolved.
// It replaces package-level flag variables so commands can be built and
// run repeatedly in tests.
type app struct {
	out    io.Writer
	errOut io.Writer

	configFile string
	noColor    bool
	settings   config.Settings

	logger            *log.Logger
	registry          *prometheus.Registry
	metrics           *metrics.Metrics
	shutdownTelemetry telemetry.ShutdownFunc
}

// NewRootCommand builds the command tree writing to out and errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut, logger: log.Discard()}
	return a.rootCommand()
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "runeforge",
		Short: "Deterministic tech-stack selection",
		Long: `runeforge turns a project blueprint into a stack plan: one technology per
topic, chosen by filtering a rules table against the blueprint's constraints
and ranking the survivors by weighted score.

The same blueprint, rules table and seed always produce the same plan,
byte for byte, and the plan carries hashes that prove it.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/runeforge/config.yaml or ~/.runeforge/config.yaml)")
	pf.String(config.KeyRules, "", "rules table (default ./runeforge.rules.yaml, ~/.runeforge/rules.yaml, then built-in)")
	pf.String(config.KeyLogLevel, "warn", "log level (debug, info, warn, error)")
	pf.String(config.KeyLogFormat, "text", "log format (text, json)")
	pf.String(config.KeyOTelEndpoint, "", "OTLP/HTTP endpoint for traces (host:port)")
	pf.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		a.planCommand(),
		a.explainCommand(),
		a.validateCommand(),
		a.rulesCommand(),
		a.blueprintCommand(),
		a.serveCommand(),
		a.historyCommand(),
		a.versionCommand(),
	)
	return root
}

// setup resolves settings and configures logging, metrics and tracing.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	loader := config.NewLoader(a.configFile)
	if err := loader.BindFlags(cmd.Flags()); err != nil {
		return err
	}
	settings, err := loader.Load()
	if err != nil {
		return err
	}
	a.settings = settings

	level, err := log.ParseLevel(settings.LogLevel)
	if err != nil {
		return err
	}
	format, err := log.ParseFormat(settings.LogFormat)
	if err != nil {
		return err
	}
	info := version.GetInfo()
	a.logger = log.New(log.Config{
		Level:          level,
		Format:         format,
		Output:         a.errOut,
		ServiceName:    "runeforge",
		ServiceVersion: info.Version,
	})
	log.SetDefaultLogger(a.logger)
	if settings.ConfigFile != "" {
		a.logger.Debug("config loaded", "file", settings.ConfigFile)
	}

	a.registry, a.metrics = metrics.NewRegistry()

	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceVersion = info.Version
	tcfg.Enabled = settings.OTelEndpoint != ""
	tcfg.Endpoint = settings.OTelEndpoint
	tcfg.Insecure = true
	shutdown, err := telemetry.InitProvider(cmd.Context(), tcfg)
	if err != nil {
		a.logger.WithError(err).Warn("tracing disabled")
		return nil
	}
	a.shutdownTelemetry = shutdown
	return nil
}

func (a *app) close() {
	if a.shutdownTelemetry == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdownTelemetry(ctx); err != nil {
		a.logger.WithError(err).Warn("failed to flush traces")
	}
}

// loadRules resolves the rules table from --rules, the project directory,
// the user directory or the built-in table.
func (a *app) loadRules() (*rules.Repository, error) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}
	userDir := ""
	if home, err := os.UserHomeDir(); err == nil {
		userDir = filepath.Join(home, ".runeforge")
	}
	repo, err := rules.Resolve(a.settings.Rules, cwd, userDir)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("rules loaded", "source", repo.Source(), "fingerprint", repo.Fingerprint())
	return repo, nil
}

// newPlanner builds a planner over the resolved rules. With record set it
// also opens the configured archive; the returned close function releases it.
func (a *app) newPlanner(ctx context.Context, strict, record bool) (*planner.Planner, func(), error) {
	repo, err := a.loadRules()
	if err != nil {
		return nil, nil, err
	}

	cfg := planner.Config{
		Rules:    repo,
		Metrics:  a.metrics,
		Logger:   a.logger,
		Parallel: a.settings.Parallel,
		Strict:   strict,
	}
	closeFn := func() {}
	if record && a.settings.Archive != "" {
		store, err := archive.Open(ctx, a.settings.Archive)
		if err != nil {
			return nil, nil, err
		}
		cfg.Archive = store
		closeFn = func() { _ = store.Close() }
	}
	return planner.New(cfg), closeFn, nil
}

// ExecuteContext runs the CLI with os.Args.
func ExecuteContext(ctx context.Context) error {
	a := &app{out: os.Stdout, errOut: os.Stderr, logger: log.Discard()}
	root := a.rootCommand()
	defer a.close()

	start := time.Now()
	executed, err := root.ExecuteContextC(ctx)
	name := root.Name()
	if executed != nil {
		name = executed.Name()
	}
	if a.metrics != nil {
		a.metrics.RecordCommand(name, time.Since(start), err)
	}
	if err != nil {
		a.logger.WithError(err).Debug("command failed", "command", name)
	}
	return err
}
