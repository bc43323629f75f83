package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts bridge activity. A nil *Recorder records nothing.
type Recorder struct {
	nativeCalls   *prometheus.CounterVec
	activations   *prometheus.CounterVec
	expansions    *prometheus.CounterVec
	activeSession prometheus.Gauge
}

// New registers the bridge metrics with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		nativeCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appmenu_native_calls_total",
			Help: "Calls issued to the menu registrar, by call and result.",
		}, []string{"call", "result"}),
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appmenu_activations_total",
			Help: "Menu item activations, by source and result.",
		}, []string{"source", "result"}),
		expansions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appmenu_about_to_show_total",
			Help: "Lazy submenu expansions, by result.",
		}, []string{"result"}),
		activeSession: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "appmenu_install_sessions",
			Help: "Install sessions currently mirrored.",
		}),
	}
	reg.MustRegister(r.nativeCalls, r.activations, r.expansions, r.activeSession)
	return r
}

// NativeCall records a registrar call outcome.
func (r *Recorder) NativeCall(call string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.nativeCalls.WithLabelValues(call, result).Inc()
}

// Activation records an activation attempt from source ("remote" or
// "accelerator") with result ("pressed" or "ignored").
func (r *Recorder) Activation(source, result string) {
	if r == nil {
		return
	}
	r.activations.WithLabelValues(source, result).Inc()
}

// Expansion records an about-to-show outcome.
func (r *Recorder) Expansion(result string) {
	if r == nil {
		return
	}
	r.expansions.WithLabelValues(result).Inc()
}

// SessionStarted increments the active session gauge.
func (r *Recorder) SessionStarted() {
	if r == nil {
		return
	}
	r.activeSession.Inc()
}

// SessionEnded decrements the active session gauge.
func (r *Recorder) SessionEnded() {
	if r == nil {
		return
	}
	r.activeSession.Dec()
}

// Handler returns an HTTP handler serving metrics gathered from g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
