package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	orderOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_operations_total",
			Help: "Order operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	reservedTickets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reserved_tickets_total",
			Help: "Tickets reserved and released per batch",
		},
		[]string{"direction"},
	)

	paymentOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_outcomes_total",
			Help: "Payment gateway outcomes",
		},
		[]string{"method", "outcome"},
	)

	orderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "order_operation_duration_seconds",
			Help:    "Duration of order operations",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation"},
	)

	cacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries_total",
			Help: "Current number of cached read-side entries per prefix",
		},
		[]string{"prefix"},
	)
)

// TrackOrderOperation records a create/pay/cancel attempt and its outcome
// ("success" or the failure kind).
func TrackOrderOperation(operation, outcome string) {
	orderOperations.WithLabelValues(operation, outcome).Inc()
}

// TrackReservation records tickets moving out of ("reserve") or back into
// ("release") a batch.
func TrackReservation(direction string, quantity int) {
	reservedTickets.WithLabelValues(direction).Add(float64(quantity))
}

func TrackPayment(method, outcome string) {
	paymentOutcomes.WithLabelValues(method, outcome).Inc()
}

func ObserveOrderDuration(operation string, d time.Duration) {
	orderDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// Monitor periodically samples the read-side cache so dashboards can see how
// much of the catalog is cached.
type Monitor struct {
	redis *redis.Client
}

func NewMonitor(redisClient *redis.Client) *Monitor {
	monitor := &Monitor{redis: redisClient}

	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx := context.Background()
		m.collectCacheMetrics(ctx)
	}
}

func (m *Monitor) collectCacheMetrics(ctx context.Context) {
	for _, prefix := range []string{"events_query", "event", "orders"} {
		keys, err := m.redis.Keys(ctx, prefix+":*").Result()
		if err != nil {
			continue
		}
		cacheEntries.WithLabelValues(prefix).Set(float64(len(keys)))
	}
}
