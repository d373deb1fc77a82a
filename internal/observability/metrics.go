package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pointlog",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests handled, partitioned by route and status.",
	}, []string{"method", "route", "status"})
	subscriptionsStored = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pointlog",
		Subsystem: "push",
		Name:      "subscriptions_stored_total",
		Help:      "Push subscriptions stored via /resources/subscribe, by outcome (created/updated).",
	}, []string{"outcome"})
	pushDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pointlog",
		Subsystem: "push",
		Name:      "deliveries_total",
		Help:      "Web push deliveries, by result (sent/gone/failed).",
	}, []string{"result"})
	activitiesRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pointlog",
		Subsystem: "board",
		Name:      "activities_recorded_total",
		Help:      "Activities recorded through the API.",
	})
)

func init() {
	prometheus.MustRegister(httpRequests, subscriptionsStored, pushDeliveries, activitiesRecorded)
}

// RecordHTTPRequest counts a finished request. Unmatched routes are folded into one label.
func RecordHTTPRequest(method, route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// RecordSubscriptionStored counts a stored push subscription.
func RecordSubscriptionStored(created bool) {
	outcome := "updated"
	if created {
		outcome = "created"
	}
	subscriptionsStored.WithLabelValues(outcome).Inc()
}

// RecordPushDelivery counts a push delivery attempt.
func RecordPushDelivery(result string) {
	pushDeliveries.WithLabelValues(result).Inc()
}

// RecordActivity counts an activity recorded through the API.
func RecordActivity() {
	activitiesRecorded.Inc()
}
