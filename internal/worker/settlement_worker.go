package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tradeyard/wallet-engine/internal/observability"
	"github.com/tradeyard/wallet-engine/internal/service"
)

// SettlementWorker polls for PENDING transfers and completes them.
type SettlementWorker struct {
	svc       *service.SettlementService
	interval  time.Duration
	batchSize int32
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func NewSettlementWorker(svc *service.SettlementService) *SettlementWorker {
	return &SettlementWorker{
		svc:       svc,
		interval:  10 * time.Second,
		batchSize: 50,
		stopCh:    make(chan struct{}),
	}
}

// WithPollInterval updates the polling interval.
func (w *SettlementWorker) WithPollInterval(interval time.Duration) *SettlementWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// WithBatchSize updates the claim batch size.
func (w *SettlementWorker) WithBatchSize(size int32) *SettlementWorker {
	if size > 0 {
		w.batchSize = size
	}
	return w
}

// Start blocks and settles pending transfers at the configured interval.
func (w *SettlementWorker) Start(ctx context.Context) {
	zap.L().Info("settlement worker starting",
		zap.Duration("interval", w.interval),
		zap.Int32("batch", w.batchSize),
	)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("settlement worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("settlement worker stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *SettlementWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *SettlementWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *SettlementWorker) runOnce(ctx context.Context) {
	if _, err := w.svc.SettleBatch(ctx, w.batchSize); err != nil {
		observability.IncrementWorkerRun("settlement", "failed")
		zap.L().Error("settlement run failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("settlement", "success")
}
