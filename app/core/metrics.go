package core

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/quka-ai/daybook/pkg/metrics"
	"github.com/quka-ai/daybook/pkg/types"
)

type Metrics struct {
	apiResponseTime       *prometheus.HistogramVec
	apiErrorCounter       *prometheus.CounterVec
	mediaUploadCounter    *prometheus.CounterVec
	mediaUploadSize       *prometheus.HistogramVec
	assistantRequestTime  *prometheus.HistogramVec
	assistantFallback     *prometheus.CounterVec
	activeRecordingsGauge *prometheus.GaugeVec
}

func NewMetrics(ns, system string) *Metrics {
	// setup metric
	mgr := metrics.SetupMetricsManager(ns, system, prometheus.NewRegistry())

	m := &Metrics{
		apiResponseTime:    mgr.NewHistogramVec("api_response_time", []string{"api"}),
		apiErrorCounter:    mgr.NewCounterVec("api_error", []string{"method", "api", "status"}),
		mediaUploadCounter: mgr.NewCounterVec("media_upload", []string{"kind", "result"}),
		// 16KB ~ 256MB
		mediaUploadSize: mgr.NewHistogramVec("media_upload_size_kb", []string{"kind"},
			metrics.WithHelp("uploaded media size in KB"),
			metrics.WithBuckets(prometheus.ExponentialBuckets(16, 4, 8))),
		assistantRequestTime:  mgr.NewHistogramVec("assistant_request_time", []string{"method"}),
		assistantFallback:     mgr.NewCounterVec("assistant_fallback", []string{"method"}),
		activeRecordingsGauge: mgr.NewGaugeVec("active_recordings", []string{"kind"}),
	}

	return m
}

func (m *Metrics) ApiErrorInc(method, api string, status int) {
	m.apiErrorCounter.WithLabelValues(method, api, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ApiResponseTimer(api string) *prometheus.Timer {
	return prometheus.NewTimer(m.apiResponseTime.WithLabelValues(api))
}

// ObserveUpload matches the upload.WithObserver signature.
func (m *Metrics) ObserveUpload(kind types.EntryType, size int, err error) {
	result := "success"
	if err != nil {
		result = "failed"
	}
	m.mediaUploadCounter.WithLabelValues(kind.String(), result).Inc()
	if err == nil {
		m.mediaUploadSize.WithLabelValues(kind.String()).Observe(float64(size) / 1024)
	}
}

func (m *Metrics) ObserveAssistant(method string, cost time.Duration, fallback bool) {
	m.assistantRequestTime.WithLabelValues(method).Observe(cost.Seconds())
	if fallback {
		m.assistantFallback.WithLabelValues(method).Inc()
	}
}

func (m *Metrics) RecordingStarted(kind string) {
	m.activeRecordingsGauge.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordingStopped(kind string) {
	m.activeRecordingsGauge.WithLabelValues(kind).Dec()
}
