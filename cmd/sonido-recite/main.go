// Command sonido-recite replays a recording through the real-time pitch
// tracker and writes one JSON pitch point per tick to stdout.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-recite/logging"
	"github.com/RyanBlaney/sonido-recite/observe"
	"github.com/RyanBlaney/sonido-recite/tracker"
	"github.com/RyanBlaney/sonido-recite/tracker/config"
	"github.com/RyanBlaney/sonido-recite/transcode"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to the YAML configuration file (defaults when empty)")
	input := flag.String("input", "", "audio file to track, or - for stdin")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address (overrides metrics.addr)")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "sonido-recite: -input is required")
		flag.Usage()
		return 2
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "sonido-recite: %v\n", err)
			return 1
		}
	}
	if *metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = *metricsAddr
	}

	logger := newLogger(cfg.Log)
	logging.SetGlobalLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var recorder tracker.Recorder
	if cfg.Metrics.Enabled {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "sonido-recite"})
		if err != nil {
			logger.Error(err, "Failed to initialise metrics provider")
			return 1
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(sctx)
		}()
		recorder = observe.DefaultMetrics()
	}

	audio, err := decode(ctx, cfg.Decoder, *input)
	if err != nil {
		logger.Error(err, "Failed to decode input", logging.Fields{"input": *input})
		return 1
	}
	logger.Info("Input decoded", logging.Fields{
		"input":       *input,
		"sample_rate": audio.SampleRate,
		"duration":    audio.Duration.Seconds(),
	})

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	if err := track(ctx, cfg, audio, recorder, logger, out); err != nil {
		logger.Error(err, "Pitch tracking failed")
		return 1
	}
	return 0
}

func newLogger(cfg config.LogConfig) logging.Logger {
	var l *logging.DefaultLogger
	if cfg.JSON {
		l = logging.NewJSONLogger(os.Stderr)
	} else {
		l = logging.NewDefaultLogger()
	}
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		level = logging.InfoLevel
	}
	l.SetLevel(level)
	return l
}

func decode(ctx context.Context, cfg config.DecoderConfig, input string) (*transcode.AudioData, error) {
	d := transcode.NewDecoder(cfg)
	if err := d.CheckAvailability(ctx); err != nil {
		return nil, err
	}
	if input == "-" {
		return d.DecodeReader(ctx, os.Stdin)
	}
	return d.DecodeFile(ctx, input)
}

// track replays audio through a session until the recording ends or ctx is
// cancelled. The metrics endpoint, when enabled, runs alongside it.
func track(ctx context.Context, cfg *config.Config, audio *transcode.AudioData, recorder tracker.Recorder, logger logging.Logger, w io.Writer) error {
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	if cfg.Metrics.Enabled {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metricsMux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("Serving metrics", logging.Fields{"addr": cfg.Metrics.Addr})
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			select {
			case <-gctx.Done():
			case <-done:
			}
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	g.Go(func() error {
		defer close(done)

		opts := []tracker.Option{
			tracker.WithConfig(cfg.Session),
			tracker.WithLogger(logger),
		}
		if recorder != nil {
			opts = append(opts, tracker.WithMetrics(recorder))
		}
		session := tracker.NewSession(opts...)

		var (
			mu     sync.Mutex
			enc    = json.NewEncoder(w)
			encErr error
		)
		onUpdate := func(p tracker.PitchPoint) {
			mu.Lock()
			defer mu.Unlock()
			if encErr == nil {
				encErr = enc.Encode(p)
			}
		}

		stream := transcode.NewPCMStream(audio, cfg.Decoder.ChunkSize)
		if err := session.Start(stream, onUpdate, &cfg.Filter); err != nil {
			return err
		}

		select {
		case <-stream.Done():
			logger.Info("Recording finished")
		case <-gctx.Done():
			logger.Info("Interrupted")
		}
		session.Stop()

		mu.Lock()
		defer mu.Unlock()
		if encErr != nil {
			return fmt.Errorf("write pitch point: %w", encErr)
		}
		return nil
	})

	return g.Wait()
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
