package metrics

import (
	"sync"
	"time"

	"roombook/internal/events"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "roombook"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status.",
		},
		[]string{"endpoint", "status"},
	)

	grpcRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "gRPC requests by method and code.",
		},
		[]string{"method", "code"},
	)

	bookingEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_events_total",
			Help:      "Booking lifecycle events by type.",
		},
		[]string{"event"},
	)

	bookingRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_rejections_total",
			Help:      "Rejected booking requests by reason.",
		},
		[]string{"reason"},
	)

	sweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auto_release",
			Name:      "runs_total",
			Help:      "Auto-release sweeps by result.",
		},
		[]string{"result"},
	)

	sweepChecked = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auto_release",
		Name:      "bookings_checked_total",
		Help:      "Reservations inspected by auto-release.",
	})

	sweepReleased = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auto_release",
		Name:      "bookings_released_total",
		Help:      "Reservations released as no-show.",
	})

	sweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "auto_release",
		Name:      "duration_seconds",
		Help:      "Auto-release sweep duration.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			grpcRequests,
			bookingEvents,
			bookingRejections,
			sweepRuns,
			sweepChecked,
			sweepReleased,
			sweepDuration,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string, status int) {
	httpRequests.WithLabelValues(endpoint, statusClass(status)).Inc()
}

func IncGRPC(method, code string) {
	grpcRequests.WithLabelValues(method, code).Inc()
}

// ObserveSweep records one auto-release pass.
func ObserveSweep(checked, released int, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	sweepRuns.WithLabelValues(result).Inc()
	sweepChecked.Add(float64(checked))
	sweepReleased.Add(float64(released))
	sweepDuration.Observe(dur.Seconds())
}

// SkipSweep records a pass skipped because another instance holds the lock.
func SkipSweep() {
	sweepRuns.WithLabelValues("skipped").Inc()
}

// ObserveEvents counts booking lifecycle events published on the bus.
func ObserveEvents(bus *events.EventBus) {
	for _, eventType := range events.AllBookingEvents {
		eventType := eventType
		bus.Subscribe(eventType, func(e *events.Event) error {
			bookingEvents.WithLabelValues(eventType).Inc()
			if eventType != events.EventBookingRejected {
				return nil
			}
			var payload events.BookingEventPayload
			if err := e.Decode(&payload); err != nil {
				return err
			}
			bookingRejections.WithLabelValues(payload.Reason).Inc()
			return nil
		})
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
