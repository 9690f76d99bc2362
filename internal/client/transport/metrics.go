package transport

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "annonces_client"

// Результаты обновления токенов
const (
	RefreshSuccess   = "success"
	RefreshFailure   = "failure"
	RefreshCoalesced = "coalesced" // ожидание уже идущего обновления
	RefreshStale     = "stale"     // повтор с уже обновлённым токеном без нового запроса
)

// Metrics собирает счётчики конвейера в переданный реестр
type Metrics struct {
	requests      *prometheus.CounterVec
	failures      prometheus.Counter
	retries       prometheus.Counter
	refreshes     *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	duration      prometheus.Histogram
}

// NewMetrics регистрирует метрики в reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "HTTP responses received, by method and status code.",
		}, []string{"method", "code"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "request_failures_total",
			Help:      "Requests that got no response (timeout, connection error).",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "retries_total",
			Help:      "Requests resubmitted after a 401.",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "token_refreshes_total",
			Help:      "Token refresh outcomes.",
		}, []string{"result"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "session_invalidations_total",
			Help:      "Sessions invalidated by the request pipeline, by reason.",
		}, []string{"reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.failures, m.retries, m.refreshes, m.invalidations, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// HandleResponse считает ответ и никогда не прерывает вызов
func (m *Metrics) HandleResponse(_ context.Context, resp *Response) (*Call, error) {
	m.requests.WithLabelValues(resp.Call.Method, strconv.Itoa(resp.StatusCode)).Inc()
	m.duration.Observe(resp.Duration.Seconds())
	if resp.Call.Attempt > 0 {
		m.retries.Inc()
	}
	return nil, nil
}

// ObserveFailure считает запрос без ответа
func (m *Metrics) ObserveFailure(_ context.Context, _ Call, _ error) {
	m.failures.Inc()
}

func (m *Metrics) refresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) invalidation(reason string) {
	if m == nil {
		return
	}
	m.invalidations.WithLabelValues(reason).Inc()
}
