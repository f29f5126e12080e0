// Command cachebench drives a synthetic read/write workload against a
// segmented concurrent cache and reports hit rate, eviction counts, and
// final size, exercising internal/cache end-to-end the way a load-testing
// harness would.
//
// Example usage:
//
//	cachebench -keys 10000 -ops 200000 -capacity 2000 -strategy lirs -workers 8
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/quartzdb/internal/cache"
	"github.com/dreamware/quartzdb/internal/cache/eviction"
)

// logFatal is a variable so tests can intercept a fatal exit without
// terminating the test process.
var logFatal = func(logger *zap.Logger, msg string, fields ...zap.Field) {
	logger.Fatal(msg, fields...)
}

func main() {
	keys := flag.Int("keys", 50000, "distinct key space size")
	ops := flag.Int("ops", 500000, "total operations across all workers")
	capacity := flag.Int("capacity", 10000, "cache capacity (entries) before eviction kicks in")
	workers := flag.Int("workers", 8, "concurrent goroutines issuing operations")
	writeRatio := flag.Float64("write-ratio", 0.2, "fraction of operations that are writes, in [0,1]")
	strategy := flag.String("strategy", "lru", "eviction strategy: none, lru, or lirs")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	strat, err := parseStrategy(*strategy)
	if err != nil {
		logFatal(logger, "invalid strategy", zap.Error(err))
		return
	}

	var evictions atomic.Int64
	c, err := cache.New[int, int64](cache.Config[int, int64]{
		InitialCapacity:  *capacity,
		ConcurrencyLevel: *workers,
		Strategy:         strat,
		Logger:           logger,
		Listener: func(key int, value int64) {
			evictions.Add(1)
		},
	})
	if err != nil {
		logFatal(logger, "build cache", zap.Error(err))
		return
	}

	result := run(c, *keys, *ops, *workers, *writeRatio)
	result.Evictions = evictions.Load()
	result.FinalSize = c.Size()
	report(logger, result)
}

type benchResult struct {
	Duration  time.Duration
	Hits      int64
	Misses    int64
	Writes    int64
	Evictions int64
	FinalSize int
}

func run(c *cache.Cache[int, int64], keys, ops, workers int, writeRatio float64) benchResult {
	var hits, misses, writes atomic.Int64
	var wg sync.WaitGroup
	opsPerWorker := ops / workers

	start := time.Now()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			for i := 0; i < opsPerWorker; i++ {
				key := rnd.Intn(keys)
				if rnd.Float64() < writeRatio {
					if _, _, err := c.Put(key, int64(key)*31+int64(i)); err == nil {
						writes.Add(1)
					}
					continue
				}
				if _, ok := c.Get(key); ok {
					hits.Add(1)
				} else {
					misses.Add(1)
				}
			}
		}(int64(w) + 1)
	}
	wg.Wait()

	return benchResult{
		Duration: time.Since(start),
		Hits:     hits.Load(),
		Misses:   misses.Load(),
		Writes:   writes.Load(),
	}
}

func report(logger *zap.Logger, r benchResult) {
	total := r.Hits + r.Misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(r.Hits) / float64(total)
	}
	logger.Info("cachebench complete",
		zap.Duration("duration", r.Duration),
		zap.Int64("hits", r.Hits),
		zap.Int64("misses", r.Misses),
		zap.Float64("hit_rate", hitRate),
		zap.Int64("writes", r.Writes),
		zap.Int64("evictions", r.Evictions),
		zap.Int("final_size", r.FinalSize),
	)
}

func parseStrategy(s string) (eviction.Strategy, error) {
	switch s {
	case "none":
		return eviction.None, nil
	case "lru":
		return eviction.LRU, nil
	case "lirs":
		return eviction.LIRS, nil
	default:
		return 0, fmt.Errorf("unknown strategy %q: want none, lru, or lirs", s)
	}
}
