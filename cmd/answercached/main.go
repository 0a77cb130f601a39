// Command answercached serves a semantic answer cache over an
// authenticated admin API.
//
// Usage:
//
//	answercached -config /etc/answercache/answercached.yaml
//
// Configuration may also come entirely from ANSWERCACHE_* environment
// variables. SIGINT or SIGTERM stops the server, stops the flusher, saves
// the cache and flushes telemetry, in that order.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonwraymond/answercache/cache"
	"github.com/jonwraymond/answercache/config"
	"github.com/jonwraymond/answercache/health"
	"github.com/jonwraymond/answercache/observe"
)

var version = "dev"

func main() {
	var (
		configPath  = flag.String("config", "", "path to a YAML or JSON config file")
		watch       = flag.Bool("watch", true, "apply similarity threshold and log level changes from the config file")
		showVersion = flag.Bool("version", false, "print the version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("answercached", version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *watch); err != nil {
		fmt.Fprintln(os.Stderr, "answercached:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, watch bool) error {
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return err
	}

	obsCfg := cfg.ObserveSettings()
	if obsCfg.Version == "" {
		obsCfg.Version = version
	}
	obs, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return fmt.Errorf("observer: %w", err)
	}
	in, err := observe.InstrumentsFromObserver(obs)
	if err != nil {
		return fmt.Errorf("instruments: %w", err)
	}
	log := obs.Logger().WithComponent("answercached")

	c, err := cache.Open(ctx, cfg.CacheSettings(), cache.WithInstruments(in))
	if c == nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err != nil {
		log.Warn(ctx, "cache running in memory only", observe.Err(err))
	}

	// The flusher outlives the signal context so shutdown can stop it in order.
	flusher := cache.NewFlusher(c)
	flusher.Start(context.WithoutCancel(ctx))

	if watch && configPath != "" {
		w, err := config.NewWatcher(ctx, configPath, obs.Logger())
		if err != nil {
			log.Warn(ctx, "config watch disabled", observe.Err(err))
		} else {
			w.OnReload(config.ApplyRuntime(c, obs.Logger()))
			w.Start(ctx)
		}
	}

	agg := health.NewAggregator()
	_ = agg.Register(cache.NewHealthChecker(c))
	_ = agg.Register(health.NewMemoryChecker(health.MemoryCheckerConfig{}))

	authn, err := cfg.Authenticator()
	if err != nil {
		return fmt.Errorf("admin auth: %w", err)
	}
	opts := routerOptions{health: agg, prometheus: cfg.PrometheusEnabled()}
	if authn != nil {
		opts.authn = authn
	} else {
		log.Warn(ctx, "no admin credentials configured; /v1 API disabled")
	}

	srv := &http.Server{
		Addr:              cfg.Admin.Addr,
		Handler:           newRouter(&server{cache: c, flusher: flusher, log: obs.Logger()}, opts),
		ReadHeaderTimeout: cfg.Admin.ReadTimeout,
		ReadTimeout:       cfg.Admin.ReadTimeout,
		WriteTimeout:      cfg.Admin.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "admin server listening",
			observe.F("addr", cfg.Admin.Addr),
			observe.F("auth", authn != nil),
			observe.F("metrics", cfg.PrometheusEnabled()),
		)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "admin server failed", observe.Err(err))
		}
	}

	return shutdown(context.WithoutCancel(ctx), cfg, srv, flusher, c, obs, log)
}

// shutdown stops components in dependency order and joins their errors.
func shutdown(ctx context.Context, cfg *config.Config, srv *http.Server, f *cache.Flusher, c *cache.SemanticCache, obs observe.Observer, log observe.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Admin.ShutdownTimeout)
	defer cancel()

	log.Info(ctx, "shutting down")

	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("admin server: %w", err))
	}
	f.Stop()
	if err := c.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}
	if err := obs.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("observer: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		log.Error(ctx, "shutdown incomplete", observe.Err(err))
		return err
	}
	log.Info(ctx, "stopped")
	return nil
}
