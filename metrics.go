package rxstream

import "github.com/prometheus/client_golang/prometheus"

const promNamespace = "rxstream"

// Metrics 订阅级别的Prometheus指标
type Metrics struct {
	reacts    *prometheus.CounterVec
	disposals *prometheus.CounterVec
	active    *prometheus.GaugeVec
}

// NewMetrics 创建指标并注册到registerer，registerer为nil时不注册
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		reacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      "reacts_total",
			Help:      "Values forwarded downstream.",
		}, []string{"stream"}),
		disposals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      "disposals_total",
			Help:      "Subscriptions ended, by disposal source.",
		}, []string{"stream", "source"}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: promNamespace,
			Name:      "active_subscriptions",
			Help:      "Subscriptions not yet disposed.",
		}, []string{"stream"}),
	}
	if registerer != nil {
		registerer.MustRegister(m.reacts, m.disposals, m.active)
	}
	return m
}

type instrument[T any] struct {
	metrics *Metrics
	name    string
}

// Instrument 统计经过的值、订阅数与释放来源
func Instrument[T any](metrics *Metrics, name string) Decorator[T, T] {
	return &instrument[T]{metrics: metrics, name: name}
}

func (d *instrument[T]) Decorate(next Listener[T], _ Subscriber) Listener[T] {
	active := d.metrics.active.WithLabelValues(d.name)
	active.Inc()
	return &instrumentListener[T]{
		Forwarder: Forwarder[T]{Next: next},
		metrics:   d.metrics,
		name:      d.name,
		reacts:    d.metrics.reacts.WithLabelValues(d.name),
		active:    active,
	}
}

type instrumentListener[T any] struct {
	Forwarder[T]
	metrics *Metrics
	name    string
	reacts  prometheus.Counter
	active  prometheus.Gauge
}

func (l *instrumentListener[T]) React(value T) {
	if l.IsReleased() {
		return
	}
	l.reacts.Inc()
	l.Emit(value)
}

func (l *instrumentListener[T]) OnDispose(source DisposalSource) {
	if l.IsReleased() {
		return
	}
	l.metrics.disposals.WithLabelValues(l.name, source.String()).Inc()
	l.active.Dec()
	l.Release(source)
}
