package commands

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/manyvis/internal/api"
	"git.home.luguber.info/inful/manyvis/internal/config"
	"git.home.luguber.info/inful/manyvis/internal/dispatcher"
	"git.home.luguber.info/inful/manyvis/internal/logfields"
	"git.home.luguber.info/inful/manyvis/internal/metrics"
	"git.home.luguber.info/inful/manyvis/internal/watch"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Listen  string `help:"Listen address; overrides server.listen"`
	System  string `type:"existingfile" help:"System description to load at startup"`
	NoWatch bool   `help:"Do not reload the system when its file changes"`
}

func (s *ServeCmd) Run(g *Global, _ *CLI) error {
	cfg, err := g.settings()
	if err != nil {
		return err
	}
	if s.Listen != "" {
		cfg.Server.Listen = s.Listen
	}
	ctx, cancel := commandContext()
	defer cancel()
	return RunServe(ctx, cfg, s.System, cfg.Watch.Enabled && !s.NoWatch)
}

// RunServe serves until ctx is cancelled or the listener fails.
func RunServe(ctx context.Context, cfg *config.Config, systemPath string, watchSystem bool) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewPrometheusRecorder(reg)
	events := api.NewEventSubscriber()

	opts := []dispatcher.Option{dispatcher.WithEmitter(events)}

	// The watcher reloads through the dispatcher it is handed to.
	var d *dispatcher.Dispatcher
	var watcher *watch.Watcher
	if watchSystem {
		w, err := watch.New(watch.ReloaderFunc(func(ctx context.Context, path string) {
			d.Reload(ctx, path)
		}), cfg.Watch.Debounce)
		if err != nil {
			return err
		}
		watcher = w
		opts = append(opts, dispatcher.WithParseHook(func(path string) {
			if err := watcher.Follow(path); err != nil {
				slog.Warn("Could not watch system file", logfields.Path(path), logfields.Error(err))
			}
		}))
	}

	sess, err := newSession(cfg, rec, opts...)
	if err != nil {
		return err
	}
	d = sess.dispatcher

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = metrics.HTTPHandler(reg)
	}
	srv := api.NewServer(cfg.Server.Listen, d, events, api.Options{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		MetricsPath:  cfg.Metrics.Path,
		Metrics:      metricsHandler,
	})

	if systemPath != "" {
		if err := sess.load(ctx, systemPath); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
