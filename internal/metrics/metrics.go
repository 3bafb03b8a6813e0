// Package metrics exposes Prometheus counters for the memo cache and the
// live bridge.
package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baiguoname/qust-sub001/internal/di"
)

// Metrics holds every collector. Each instance registers on its own
// registry so tests and several bridges do not collide.
type Metrics struct {
	Registry *prometheus.Registry

	MemoComputes *prometheus.CounterVec
	MemoHits     *prometheus.CounterVec
	MemoClears   *prometheus.CounterVec

	TicksTotal   *prometheus.CounterVec
	StaleTicks   *prometheus.CounterVec
	BarsTotal    *prometheus.CounterVec
	ActionsTotal *prometheus.CounterVec
	FillsTotal   *prometheus.CounterVec
	RejectsTotal *prometheus.CounterVec
	QueueDepth   *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		MemoComputes: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "memo_computes_total", Help: "Memo entries computed"},
			[]string{"kind"},
		),
		MemoHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "memo_hits_total", Help: "Memo lookups served from cache"},
			[]string{"kind"},
		),
		MemoClears: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "memo_clears_total", Help: "Memo maps cleared on overflow"},
			[]string{"kind"},
		),
		TicksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "ticks_total", Help: "Count of market ticks ingested"},
			[]string{"contract"},
		),
		StaleTicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "stale_ticks_total", Help: "Ticks discarded as older than the last seen"},
			[]string{"contract"},
		),
		BarsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "bars_total", Help: "Bars finished by the kline machines"},
			[]string{"contract"},
		),
		ActionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "actions_total", Help: "Order actions published"},
			[]string{"contract", "kind"},
		),
		FillsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "fills_total", Help: "Order fills reported by the broker"},
			[]string{"contract"},
		),
		RejectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "rejects_total", Help: "Orders rejected by the broker"},
			[]string{"contract"},
		),
		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "queue_depth", Help: "Events waiting in a bridge queue"},
			[]string{"queue"},
		),
	}

	m.Registry.MustRegister(
		m.MemoComputes, m.MemoHits, m.MemoClears,
		m.TicksTotal, m.StaleTicks, m.BarsTotal,
		m.ActionsTotal, m.FillsTotal, m.RejectsTotal, m.QueueDepth,
	)

	return m
}

// Observer returns a di.Observer feeding the memo counters.
func (m *Metrics) Observer() di.Observer {
	return memoObserver{m: m}
}

type memoObserver struct {
	m *Metrics
}

func (o memoObserver) MemoCompute(kind di.Kind) {
	o.m.MemoComputes.WithLabelValues(string(kind)).Inc()
}

func (o memoObserver) MemoHit(kind di.Kind) {
	o.m.MemoHits.WithLabelValues(string(kind)).Inc()
}

func (o memoObserver) MemoClear(kind di.Kind) {
	o.m.MemoClears.WithLabelValues(string(kind)).Inc()
}

// Router serves the registry on /metrics.
func (m *Metrics) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return r
}
