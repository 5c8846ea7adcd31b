// metrics.go - prometheus metrics recorder
// Copyright (C) 2019  David Stainton.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package metrics wires the server's counters and gauges into
// Prometheus, grounded on the teacher's go.mod declaring
// github.com/prometheus/client_golang and server/internal/decoy/decoy.go's
// reference to an instrumentation package sitting alongside the
// server's core actors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder is the listener/session's narrow view of metrics: a handful
// of named operations rather than raw prometheus types, so the core
// packages never import prometheus directly.
type Recorder struct {
	handshakesTotal  prometheus.Counter
	replayDropsTotal prometheus.Counter
	sessionsActive   prometheus.Gauge

	noop bool
}

// New registers and returns a Recorder against reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		handshakesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duskline_handshakes_total",
			Help: "Total number of ClientHello handshakes answered.",
		}),
		replayDropsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duskline_replay_drops_total",
			Help: "Total number of datagrams dropped as replays.",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "duskline_sessions_active",
			Help: "Number of sessions currently registered in the session table.",
		}),
	}
	reg.MustRegister(r.handshakesTotal, r.replayDropsTotal, r.sessionsActive)
	return r
}

// Noop returns a Recorder whose methods do nothing, for callers that
// don't want to wire metrics (e.g. tests).
func Noop() *Recorder { return &Recorder{noop: true} }

func (r *Recorder) HandshakeAttempt() {
	if r.noop {
		return
	}
	r.handshakesTotal.Inc()
}

func (r *Recorder) ReplayDrop() {
	if r.noop {
		return
	}
	r.replayDropsTotal.Inc()
}

func (r *Recorder) SessionOpened() {
	if r.noop {
		return
	}
	r.sessionsActive.Inc()
}

func (r *Recorder) SessionClosed() {
	if r.noop {
		return
	}
	r.sessionsActive.Dec()
}
