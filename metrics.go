// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package starter

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics are owned by a single Server and only registered when the caller
// supplies a Registerer.
type metrics struct {
	sessions      prometheus.Counter
	commands      *prometheus.CounterVec
	workerStarts  *prometheus.CounterVec
	workerRunning prometheus.Gauge
}

func newMetrics() *metrics {
	return &metrics{
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dtls_starter_sessions_total",
			Help: "Total number of accepted control sessions.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dtls_starter_commands_total",
			Help: "Total number of control commands received, labeled by command.",
		}, []string{"command"}),
		workerStarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dtls_starter_worker_starts_total",
			Help: "Total number of worker starts, labeled by result.",
		}, []string{"result"}), // success, failure
		workerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dtls_starter_worker_running",
			Help: "1 while the managed worker is running.",
		}),
	}
}

func (m *metrics) register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.sessions, m.commands, m.workerStarts, m.workerRunning} {
		if err := r.Register(c); err != nil {
			return err
		}
	}

	return nil
}

func (m *metrics) unregister(r prometheus.Registerer) {
	for _, c := range []prometheus.Collector{m.sessions, m.commands, m.workerStarts, m.workerRunning} {
		r.Unregister(c)
	}
}

func (m *metrics) command(cmd Command, known bool) {
	label := string(cmd)
	if !known {
		label = "unknown"
	}
	m.commands.WithLabelValues(label).Inc()
}

func (m *metrics) workerStarted(err error) {
	if err != nil {
		m.workerStarts.WithLabelValues("failure").Inc()

		return
	}
	m.workerStarts.WithLabelValues("success").Inc()
	m.workerRunning.Set(1)
}

func (m *metrics) workerStopped() {
	m.workerRunning.Set(0)
}
