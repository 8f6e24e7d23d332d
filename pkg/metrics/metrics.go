package metrics

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager 负责为同一 namespace/subsystem 下的指标统一命名并注册
type Manager struct {
	namespace string
	system    string
	registry  *prometheus.Registry
}

func NewManager(ns, system string, registry *prometheus.Registry) *Manager {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &Manager{
		namespace: FmtFixer(ns),
		system:    FmtFixer(system),
		registry:  registry,
	}
}

var (
	defaultMu      sync.RWMutex
	defaultManager = NewManager("default", "default", nil)
)

// SetupMetricsManager 替换默认 manager 并注册 go runtime 指标
func SetupMetricsManager(ns, system string, registry *prometheus.Registry) *Manager {
	m := NewManager(ns, system, registry)
	m.registry.MustRegister(collectors.NewGoCollector())

	defaultMu.Lock()
	defaultManager = m
	defaultMu.Unlock()
	return m
}

func Default() *Manager {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultManager
}

func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

type VecOption func(*vecOptions)

type vecOptions struct {
	help    string
	buckets []float64
}

func WithHelp(help string) VecOption {
	return func(o *vecOptions) {
		o.help = help
	}
}

// WithBuckets 仅对 histogram 生效
func WithBuckets(buckets []float64) VecOption {
	return func(o *vecOptions) {
		o.buckets = buckets
	}
}

func (m *Manager) options(name, kind string, opts []VecOption) vecOptions {
	o := vecOptions{
		help: fmt.Sprintf("%s %s of /%s/%s", name, kind, m.namespace, m.system),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// emptyLabels 用于预先初始化一组空标签，保证指标在首次上报前即可被抓取
func emptyLabels(labels []string) []string {
	return make([]string, len(labels))
}

func (m *Manager) register(c prometheus.Collector) {
	if err := m.registry.Register(c); err != nil {
		panic(fmt.Errorf("metrics: failed to register collector: %w", err))
	}
}

func (m *Manager) NewCounterVec(name string, labels []string, opts ...VecOption) *prometheus.CounterVec {
	o := m.options(name, "count", opts)
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.system,
		Name:      FmtFixer(name),
		Help:      o.help,
	}, labels)
	vec.WithLabelValues(emptyLabels(labels)...).Add(0)
	m.register(vec)
	return vec
}

func (m *Manager) NewHistogramVec(name string, labels []string, opts ...VecOption) *prometheus.HistogramVec {
	o := m.options(name, "duration", opts)
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.system,
		Name:      FmtFixer(name),
		Help:      o.help,
		Buckets:   o.buckets,
	}, labels)
	m.register(vec)
	return vec
}

func (m *Manager) NewGaugeVec(name string, labels []string, opts ...VecOption) *prometheus.GaugeVec {
	o := m.options(name, "gauge", opts)
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.system,
		Name:      FmtFixer(name),
		Help:      o.help,
	}, labels)
	vec.WithLabelValues(emptyLabels(labels)...).Add(0)
	m.register(vec)
	return vec
}

func (m *Manager) ExportHandler() gin.HandlerFunc {
	h := promhttp.InstrumentMetricHandler(m.registry, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return gin.WrapH(h)
}

func NewCounterVec(name string, labels []string, opts ...VecOption) *prometheus.CounterVec {
	return Default().NewCounterVec(name, labels, opts...)
}

func NewHistogramVec(name string, labels []string, opts ...VecOption) *prometheus.HistogramVec {
	return Default().NewHistogramVec(name, labels, opts...)
}

func NewGaugeVec(name string, labels []string, opts ...VecOption) *prometheus.GaugeVec {
	return Default().NewGaugeVec(name, labels, opts...)
}

func DefaultExportHandler() gin.HandlerFunc {
	return Default().ExportHandler()
}

func FmtFixer(in string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(in)
}
