package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	ticketsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_created_total",
		Help: "Total purchase tickets created",
	})

	ticketsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_closed_total",
		Help: "Total tickets closed, manually or automatically",
	})

	paymentsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_confirmed_total",
		Help: "Total payments confirmed by staff",
	})

	paymentsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_rejected_total",
		Help: "Total payments rejected by staff",
	})

	deliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deliveries_total",
		Help: "Total orders marked delivered",
	})

	rateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Total actions rejected by the rate limiter",
		},
		[]string{"action"},
	)

	pendingTickets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pending_tickets_total",
		Help: "Current tickets awaiting staff action",
	})
)

func TicketCreated()    { ticketsCreated.Inc() }
func TicketClosed()     { ticketsClosed.Inc() }
func PaymentConfirmed() { paymentsConfirmed.Inc() }
func PaymentRejected()  { paymentsRejected.Inc() }
func Delivered()        { deliveries.Inc() }

func RateLimitRejected(action string) {
	rateLimitRejections.WithLabelValues(action).Inc()
}

// StartPendingRefresher keeps the pending-tickets gauge current until
// ctx is done. count is expected to hit the database, so refresh
// failures only log.
func StartPendingRefresher(ctx context.Context, interval time.Duration, count func(context.Context) (int, error), log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := count(ctx)
			if err != nil {
				log.Warn("pending ticket refresh failed", zap.Error(err))
				continue
			}
			pendingTickets.Set(float64(n))
		}
	}
}
