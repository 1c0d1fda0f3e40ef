package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ComparisonsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meal_comparisons_total",
			Help: "Comparisons committed, by outcome",
		},
		[]string{"outcome"},
	)

	ComparisonFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meal_comparison_failures_total",
			Help: "Comparisons rejected or rolled back, by reason",
		},
		[]string{"reason"}, // not_found, invalid, persistence
	)

	StreakTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streak_updates_total",
			Help: "Streak updates applied on meal insert, by transition",
		},
		[]string{"transition"}, // first, extend, same_day, reset, backdated
	)

	MealsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meals_created_total",
			Help: "Meals inserted",
		},
	)

	JanitorRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_janitor_removed_total",
			Help: "Orphaned catalog rows removed by the janitor",
		},
		[]string{"table"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordHTTP observes one finished request.
func RecordHTTP(method, route string, status int, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Middleware times every request against its matched route pattern so that
// path parameters do not explode label cardinality.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		RecordHTTP(c.Method(), c.Route().Path, status, time.Since(start))
		return err
	}
}
