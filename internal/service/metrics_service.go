package service

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mlefebvre/budget-approval-api/internal/models"
)

// MetricsService exposes the workflow and HTTP instrumentation. Transition
// counts are labelled by edge so a dashboard can follow the state machine;
// denial counts are labelled by taxonomy code.
type MetricsService struct {
	transitions  *prometheus.CounterVec
	denials      *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetricsService registers the metric vectors on the given registerer.
// Pass nil to use the default registry.
func NewMetricsService(reg prometheus.Registerer) *MetricsService {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	s := &MetricsService{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_transitions_total",
			Help: "Count of applied workflow transitions by edge and triggering event.",
		}, []string{"from", "to", "event"}),
		denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_denials_total",
			Help: "Count of refused workflow commands by error code.",
		}, []string{"code"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Count of HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(s.transitions, s.denials, s.httpRequests, s.httpDuration)
	return s
}

// ObserveTransition counts one applied state machine edge.
func (s *MetricsService) ObserveTransition(from, to models.RequestState, event string) {
	s.transitions.WithLabelValues(string(from), string(to), event).Inc()
}

// ObserveDenial counts one refused command.
func (s *MetricsService) ObserveDenial(code string) {
	s.denials.WithLabelValues(code).Inc()
}

// ObserveHTTP records one handled HTTP request.
func (s *MetricsService) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	s.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	s.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
