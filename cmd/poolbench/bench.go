package main

import (
	"context"
	"errors"
	"net/http"
	"time"
	"unsafe"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	fixedpool "github.com/replay/go-fixed-pool"
	"github.com/replay/go-fixed-pool/metrics"
)

type (
	smallPayload  [8]float64
	mediumPayload [128]float64
	largePayload  [1024]float64
)

// result is what one benchmark run measured.
type result struct {
	Objects   int
	SlotSize  uintptr
	Heap      time.Duration
	Pool      time.Duration
	Stats     fixedpool.Stats
	Leftover  int64
	PeakPools int
}

// sink keeps the heap loop from being optimised away.
var sink float64

func fill[T any](p *T) {
	words := unsafe.Slice((*float64)(unsafe.Pointer(p)), unsafe.Sizeof(*p)/8)
	for i := range words {
		words[i] = 1.0
	}
	sink += words[len(words)-1]
}

func runBench(ctx context.Context, cfg benchConfig, log *zap.Logger) (result, error) {
	switch cfg.Payload {
	case "small":
		return bench[smallPayload](ctx, cfg, log)
	case "medium":
		return bench[mediumPayload](ctx, cfg, log)
	default:
		return bench[largePayload](ctx, cfg, log)
	}
}

// bench times cfg.Objects rounds of creating, filling and dropping an
// object, first with the Go allocator and then with a fixed pool. With
// cfg.Hold > 0 that many objects stay alive in a ring, so the pool has to
// grow.
func bench[T any](ctx context.Context, cfg benchConfig, log *zap.Logger) (res result, err error) {
	poolCfg, storage := cfg.poolConfig(log)
	a, err := fixedpool.New[T](poolCfg)
	if err != nil {
		return res, err
	}
	defer func() {
		err = multierr.Append(err, a.Release())
		_, res.Leftover = storage.Outstanding()
	}()

	if cfg.MetricsAddr != "" {
		stop, err := serveMetrics(cfg.MetricsAddr, a, log)
		if err != nil {
			return res, err
		}
		defer stop()
	}

	res.Objects = cfg.Objects
	res.SlotSize = a.SlotSize()

	ring := make([]*T, cfg.Hold)
	start := time.Now()
	for i := 0; i < cfg.Objects; i++ {
		p := new(T)
		fill(p)
		if len(ring) > 0 {
			ring[i%len(ring)] = p
		}
	}
	res.Heap = time.Since(start)
	clear(ring)

	log.Debug("heap rounds done", zap.Duration("elapsed", res.Heap))
	if err := ctx.Err(); err != nil {
		return res, err
	}

	start = time.Now()
	for i := 0; i < cfg.Objects; i++ {
		p, err := a.Allocate()
		if err != nil {
			return res, err
		}
		fill(p)

		if len(ring) == 0 {
			err = a.Deallocate(p)
		} else {
			slot := i % len(ring)
			if old := ring[slot]; old != nil {
				err = a.Deallocate(old)
			}
			ring[slot] = p
		}
		if err != nil {
			return res, err
		}
		if n := a.PoolCount(); n > res.PeakPools {
			res.PeakPools = n
		}
	}
	res.Pool = time.Since(start)
	res.Stats = a.Stats()

	if err := a.Verify(); err != nil {
		return res, err
	}
	return res, nil
}

// serveMetrics exposes the allocator's accounting until stop is called.
func serveMetrics(addr string, a metrics.StatsSource, log *zap.Logger) (stop func(), err error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(metrics.NewCollector("poolbench", a)); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
