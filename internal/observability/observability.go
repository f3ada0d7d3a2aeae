package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpDurationHistogram *prometheus.HistogramVec
	transferCounter       *prometheus.CounterVec
	settledCounter        prometheus.Counter
	driftedWalletsGauge   prometheus.Gauge
	idempotencyCounter    *prometheus.CounterVec
	workerRunCounter      *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		transferCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_transfers_total",
			Help: "Transfer attempts by type and outcome",
		}, []string{"transfer_type", "outcome"})

		settledCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wallet_transfers_settled_total",
			Help: "Pending transfers completed by the settlement worker",
		})

		driftedWalletsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wallet_drifted_total",
			Help: "Wallets whose aggregate balance exceeds their chain ledger",
		})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			transferCounter,
			settledCounter,
			driftedWalletsGauge,
			idempotencyCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementTransfer(transferType, outcome string) {
	if transferCounter == nil {
		return
	}
	transferCounter.WithLabelValues(transferType, outcome).Inc()
}

func AddSettled(count int) {
	if settledCounter == nil {
		return
	}
	settledCounter.Add(float64(count))
}

func SetDriftedWallets(count int) {
	if driftedWalletsGauge == nil {
		return
	}
	driftedWalletsGauge.Set(float64(count))
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
