package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alitto/pond"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// HarvestPoolMetrics periodically records the load of the worker pool that runs the provider calls.
// Harvesting stops on Close or when the returned function is called.
func HarvestPoolMetrics(pool *pond.WorkerPool, pollInterval time.Duration) func() {
	stop := harvestPoolMetrics(otel.GetMeterProvider(), pool, pollInterval)
	initMutex.Lock()
	defer initMutex.Unlock()
	if stopHarvest != nil {
		stopHarvest()
	}
	stopHarvest = stop
	return stop
}

func harvestPoolMetrics(provider metric.MeterProvider, pool *pond.WorkerPool, pollInterval time.Duration) func() {
	ticker := time.NewTicker(pollInterval)
	meter := provider.Meter("github.com/getlantern/oauthdance/telemetry")
	runningWorkers, err := meter.Int64Gauge("worker_pool.running_workers", metric.WithDescription("Workers currently running provider calls"))
	if err != nil {
		slog.Warn("failed to create worker_pool.running_workers metric", slog.Any("error", err))
	}
	waitingTasks, err := meter.Int64Gauge("worker_pool.waiting_tasks", metric.WithDescription("Provider calls waiting for a worker"))
	if err != nil {
		slog.Warn("failed to create worker_pool.waiting_tasks metric", slog.Any("error", err))
	}
	failedTasks, err := meter.Int64Gauge("worker_pool.failed_tasks", metric.WithDescription("Tasks that panicked in the pool"))
	if err != nil {
		slog.Warn("failed to create worker_pool.failed_tasks metric", slog.Any("error", err))
	}

	record := func() {
		ctx := context.Background()
		if runningWorkers != nil {
			runningWorkers.Record(ctx, int64(pool.RunningWorkers()))
		}
		if waitingTasks != nil {
			waitingTasks.Record(ctx, int64(pool.WaitingTasks()))
		}
		if failedTasks != nil {
			failedTasks.Record(ctx, int64(pool.FailedTasks()))
		}
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				record()
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
