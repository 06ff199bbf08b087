package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/uneu/ogimage/go/flags"
	"github.com/uneu/ogimage/go/font"
	ogihttp "github.com/uneu/ogimage/go/http"
	"github.com/uneu/ogimage/go/imageio"
	"github.com/uneu/ogimage/go/logging"
	"github.com/uneu/ogimage/go/og"
	"github.com/uneu/ogimage/go/prometheus"
	"github.com/uneu/ogimage/go/routine"
	"github.com/uneu/ogimage/go/server"
	"github.com/uneu/ogimage/go/store/backend"
)

var opts struct {
	Logging    *logging.Opts    `group:"Logging" namespace:"logging" env-namespace:"LOGGING"`
	HTTP       *ogihttp.Opts    `group:"HTTP" namespace:"http" env-namespace:"HTTP"`
	Prometheus *prometheus.Opts `group:"Prometheus" namespace:"prometheus" env-namespace:"PROMETHEUS"`
	Cache      *backend.Opts    `group:"Cache" namespace:"cache" env-namespace:"CACHE"`

	Background        string        `long:"background" env:"BACKGROUND" description:"Background PNG every image is drawn on" default:"./backgrounds/wave-haikei.png"`
	CacheSizeInterval time.Duration `long:"cache-size-interval" env:"CACHE_SIZE_INTERVAL" description:"How often ogimage_cache_entries is refreshed" default:"1m"`
	ShutdownTimeout   time.Duration `long:"shutdown-timeout" env:"SHUTDOWN_TIMEOUT" description:"Deadline for stopping the metrics server" default:"10s"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx); err != nil {
		slog.ErrorContext(ctx, "running", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) (err error) {
	if err := flags.Parse(&opts); err != nil {
		if flags.IsHelp(err) {
			return nil
		}
		return err
	}
	if err := logging.Init(opts.Logging); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	log := slog.Default()
	if err := prometheus.RegisterBuildInfo(); err != nil {
		return err
	}

	typesetter, err := font.Load()
	if err != nil {
		return fmt.Errorf("loading font: %w", err)
	}
	cache, err := backend.Open(ctx, opts.Cache, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := cache.Close(); closeErr != nil {
			err = multierror.Append(err, fmt.Errorf("closing %s cache: %w", cache.Name(), closeErr))
		}
	}()

	background := imageio.NewFileLoader(opts.Background)
	if err := background.Check(ctx); err != nil {
		// Served as 500s until the file appears.
		log.WarnContext(ctx, "background is not readable", "path", background.Path(), "error", err)
	}
	renderer := og.NewRenderer(cache, background, typesetter, imageio.PNGEncoder{}).WithLogger(log)

	httpServer := ogihttp.NewServer(opts.HTTP).WithLogger(log)
	httpServer.Health().Register("cache", cache.HealthCheck())
	httpServer.Health().Register("background", background.Check)
	if err := server.NewHandler(renderer).WithLogger(log).Register(httpServer); err != nil {
		return fmt.Errorf("registering image route: %w", err)
	}
	metricsServer := prometheus.NewServer(opts.Prometheus).WithLogger(log)

	var routines []*routine.Routine
	if counter, ok := cache.Counter(); ok {
		routines = append(routines, og.NewCacheSizeRoutine(counter, opts.CacheSizeInterval).WithLogger(log).Start(ctx))
	}

	errs := make(chan error, 2)
	go func() { errs <- httpServer.Serve(ctx) }()
	go func() {
		if err := metricsServer.Start(ctx); err != nil {
			errs <- err
		}
	}()

	var result *multierror.Error
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case serveErr := <-errs:
		result = multierror.Append(result, serveErr)
	}

	if err := httpServer.GracefulStop(); err != nil {
		result = multierror.Append(result, fmt.Errorf("stopping http server: %w", err))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancel()
	if err := metricsServer.Stop(shutdownCtx); err != nil {
		result = multierror.Append(result, err)
	}
	routine.CloseInParallel(routines...)
	log.Info("stopped")
	return result.ErrorOrNil()
}
