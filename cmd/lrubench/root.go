package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/IvanBrykalov/shardlru/internal/util"
)

type config struct {
	impl       string
	capacity   int
	bucketsExp int
	hinted     bool

	workers     int
	duration    time.Duration
	readPct     int
	putIfAbsPct int
	evictPct    int

	keys    int
	zipfS   float64
	zipfV   float64
	seed    int64
	preload int

	pprofAddr   string
	metricsAddr string
	verbose     bool
}

func addFlags(fs *pflag.FlagSet, cfg *config) {
	fs.StringVar(&cfg.impl, "impl", implShard, "cache implementation: shardlru | baseline")
	fs.IntVar(&cfg.capacity, "cap", 100_000, "cache capacity (entries)")
	fs.IntVar(&cfg.bucketsExp, "buckets-exp", -1, "log2 of the bucket count (-1 = auto from GOMAXPROCS)")
	fs.BoolVar(&cfg.hinted, "hinted", false, "route by precomputed bucket hints instead of hashing")

	fs.IntVarP(&cfg.workers, "workers", "w", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
	fs.DurationVarP(&cfg.duration, "duration", "d", 10*time.Second, "benchmark duration")
	fs.IntVar(&cfg.readPct, "reads", 80, "Get percentage [0..100]")
	fs.IntVar(&cfg.putIfAbsPct, "put-if-absent", 5, "PutIfAbsent percentage [0..100]")
	fs.IntVar(&cfg.evictPct, "evicts", 2, "Evict percentage [0..100]; the rest are Inserts")

	fs.IntVar(&cfg.keys, "keys", 1_000_000, "keyspace size")
	fs.Float64Var(&cfg.zipfS, "zipf-s", 1.1, "Zipf s > 1 (skew)")
	fs.Float64Var(&cfg.zipfV, "zipf-v", 1.0, "Zipf v >= 1")
	fs.Int64Var(&cfg.seed, "seed", time.Now().UnixNano(), "random seed")
	fs.IntVar(&cfg.preload, "preload", 0, "preload entries (0 = cap/2)")

	fs.StringVar(&cfg.pprofAddr, "pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
	fs.StringVar(&cfg.metricsAddr, "http", "", "serve Prometheus metrics at addr (e.g. :8080); empty = disabled")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "debug logging (logs every eviction)")
}

func (cfg *config) validate() error {
	switch {
	case cfg.impl != implShard && cfg.impl != implBaseline:
		return fmt.Errorf("unknown impl %q (use %s or %s)", cfg.impl, implShard, implBaseline)
	case cfg.workers <= 0:
		return errors.New("workers must be > 0")
	case cfg.keys <= 0:
		return errors.New("keys must be > 0")
	case cfg.zipfS <= 1 || cfg.zipfV < 1:
		return errors.New("zipf-s must be > 1 and zipf-v >= 1")
	case cfg.preload < 0:
		return errors.New("preload must be >= 0")
	case cfg.readPct < 0 || cfg.putIfAbsPct < 0 || cfg.evictPct < 0:
		return errors.New("percentages must be >= 0")
	case cfg.readPct+cfg.putIfAbsPct+cfg.evictPct > 100:
		return fmt.Errorf("reads+put-if-absent+evicts = %d exceeds 100",
			cfg.readPct+cfg.putIfAbsPct+cfg.evictPct)
	}
	if cfg.bucketsExp < 0 {
		cfg.bucketsExp = util.ReasonableBucketsExp()
	}
	if cfg.preload == 0 {
		cfg.preload = cfg.capacity / 2
	}
	// Preloaded ids come from the key space; hinted runs index hints by id.
	cfg.preload = min(cfg.preload, cfg.keys)
	return nil
}

func newRootCmd() *cobra.Command {
	cfg := &config{}
	cmd := &cobra.Command{
		Use:          "lrubench",
		Short:        "Synthetic read/write workload for the sharded LRU cache",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			level := slog.LevelInfo
			if cfg.verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, logger, cmd.OutOrStdout())
		},
	}
	addFlags(cmd.Flags(), cfg)
	return cmd
}

// run builds the store, serves the optional endpoints, drives the workload
// and prints the report.
func run(ctx context.Context, cfg *config, logger *slog.Logger, out io.Writer) error {
	reg := prometheus.NewRegistry()
	s, err := newStore(cfg, reg, logger)
	if err != nil {
		return err
	}

	if cfg.pprofAddr != "" {
		go func() {
			logger.Info("pprof: serving", slog.String("addr", cfg.pprofAddr))
			logger.Warn("pprof: stopped", slog.Any("err", http.ListenAndServe(cfg.pprofAddr, nil)))
		}()
	}
	if cfg.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv := &http.Server{Addr: cfg.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("metrics: serving", slog.String("addr", cfg.metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics: server failed", slog.Any("err", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	preload(s, cfg.preload)
	logger.Info("workload: starting",
		slog.String("impl", cfg.impl),
		slog.Int("cap", cfg.capacity),
		slog.Int("buckets", 1<<cfg.bucketsExp),
		slog.Int("workers", cfg.workers),
		slog.Duration("duration", cfg.duration))

	rep, err := runWorkload(ctx, cfg, s)
	if err != nil {
		return err
	}
	rep.print(out, cfg)
	return nil
}
