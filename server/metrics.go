package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the dispatcher metrics.
type Metrics struct {
	CommandsTotal     *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
	HookShortCircuits *prometheus.CounterVec
}

// NewMetrics registers the dispatcher metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CommandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gocddb_commands_total",
				Help: "Total number of CDDB commands handled",
			},
			[]string{"command", "status"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gocddb_command_duration_seconds",
				Help:    "Duration of CDDB commands in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		HookShortCircuits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gocddb_hook_short_circuits_total",
				Help: "Responses produced by hooks instead of handlers",
			},
			[]string{"chain"},
		),
	}
}

func (m *Metrics) observe(command string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(command, strconv.Itoa(status)).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

func (m *Metrics) shortCircuit(chain string) {
	if m == nil {
		return
	}
	m.HookShortCircuits.WithLabelValues(chain).Inc()
}

// metricCommand bounds the command label to the known command set.
func metricCommand(cmd string, handlers map[string]handler) string {
	if _, ok := handlers[cmd]; ok {
		return cmd
	}
	if cmd == "" {
		return "empty"
	}
	return "unrecognized"
}
