package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "apiclient"

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "requests_total",
		Help:      "API calls by method and outcome.",
	}, []string{"method", "outcome"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "request_duration_seconds",
		Help:      "API call latency by method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	var err error
	if requests, err = register(reg, requests); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}

	return &metrics{requests: requests, duration: duration}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("registering metrics: %w", err)
	}

	return c, nil
}

func (m *metrics) observe(method, outcome string, d time.Duration) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(method, outcome).Inc()
	m.duration.WithLabelValues(method).Observe(d.Seconds())
}

// outcome labels a call result for metrics and spans.
func outcome[E error](err error) string {
	if err == nil {
		return "success"
	}

	switch KindOf(err) {
	case KindRegular:
		return "regular"
	case KindInternal:
		return "internal"
	case KindAuth:
		return "auth"
	}

	if _, ok := errors.AsType[E](err); ok {
		return "api_error"
	}

	return "transport"
}
