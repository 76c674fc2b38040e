package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	BindAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "subslot",
		Name:      "bind_attempts_total",
		Help:      "Total Bind operations attempted.",
	})
	LabelConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "subslot",
		Name:      "bind_label_conflicts_total",
		Help:      "Bind operations rejected because the label was taken.",
	})
	RegistrarFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "subslot",
		Name:      "registrar_failures_total",
		Help:      "Registrar CNAME upserts that failed.",
	})
	PlatformFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "subslot",
		Name:      "platform_failures_total",
		Help:      "Platform domain registrations that failed.",
	})
	BindsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "subslot",
		Name:      "binds_completed_total",
		Help:      "Bind operations where both external services succeeded.",
	})
	Unbinds = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "subslot",
		Name:      "unbinds_total",
		Help:      "Unbind operations completed.",
	})
)

// Init registers collectors; call once from main.
func Init() {
	prometheus.MustRegister(
		BindAttempts, LabelConflicts, RegistrarFailures,
		PlatformFailures, BindsCompleted, Unbinds,
	)
}
