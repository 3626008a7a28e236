package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/runeforge/internal/archive"
	"github.com/felixgeelhaar/runeforge/internal/config"
	"github.com/felixgeelhaar/runeforge/internal/health"
	"github.com/felixgeelhaar/runeforge/internal/planner"
	"github.com/felixgeelhaar/runeforge/internal/server"
	"github.com/felixgeelhaar/runeforge/internal/version"
)

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve plan selection over HTTP",
		Long: `Start an HTTP server that selects stacks for blueprints posted to /v1/plan.

Plans are validated against their schema before they are returned and are
cached by blueprint hash and seed. Health probes are served under /health and
Prometheus metrics under /metrics. SIGINT or SIGTERM drains open requests
before exiting.`,
		Example: `  runeforge serve --addr :8080
  curl -s --data-binary @blueprint.yaml localhost:8080/v1/plan?seed=7`,
		Args: cobra.NoArgs,
		RunE: a.runServe,
	}

	f := cmd.Flags()
	f.String(config.KeyAddr, ":8080", "listen address")
	f.Int(config.KeyCacheSize, server.DefaultCacheSize, "plan cache size (negative disables the cache)")
	f.Uint64(config.KeySeed, config.DefaultSeed, "seed for requests without one")
	f.Bool(config.KeyParallel, false, "score topics concurrently")
	f.String(config.KeyArchive, "", "record served plans in this SQLite archive")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	repo, err := a.loadRules()
	if err != nil {
		return err
	}

	probes := health.NewProbeManager(version.GetInfo().Version)
	probes.AddChecker(health.NewRulesChecker(repo))

	pcfg := planner.Config{
		Rules:    repo,
		Metrics:  a.metrics,
		Logger:   a.logger,
		Parallel: a.settings.Parallel,
		Strict:   true,
	}
	if a.settings.Archive != "" {
		store, err := archive.Open(ctx, a.settings.Archive)
		if err != nil {
			return err
		}
		defer store.Close()
		pcfg.Archive = store
		probes.AddChecker(health.NewPingChecker("archive", store))
	}

	srv, err := server.New(server.Deps{
		Planner:  planner.New(pcfg),
		Probes:   probes,
		Metrics:  a.metrics,
		Gatherer: a.registry,
		Logger:   a.logger,
	}, server.Config{
		Address:     a.settings.Addr,
		DefaultSeed: a.settings.Seed,
		CacheSize:   a.settings.CacheSize,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.errOut, "Serving on %s (rules %s)\n", a.settings.Addr, repo.Fingerprint())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
		a.logger.Info("shutting down")
		if err := srv.Shutdown(context.WithoutCancel(ctx)); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	}
}
