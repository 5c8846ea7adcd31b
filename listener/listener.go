// listener.go - listener actor event loop
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

// Package listener implements the Listener Actor: the single-task
// event loop that demultiplexes inbound datagrams across live sessions,
// drives the handshake state machine, and owns the session table
// exclusively (spec §4.4). Grounded on original_source/listener.rs's
// Listener actor loop, reimplemented as a Go goroutine racing a
// datagram-receive channel against a session-death channel in a
// select, in the style of client2/connection.go's connectWorker /
// onWireConn actor loops and internal/worker's halt pattern.
package listener

import (
	"context"
	"crypto/rand"
	"net"
	"runtime"

	"gopkg.in/eapache/channels.v1"
	logging "gopkg.in/op/go-logging.v1"

	"github.com/duskline/duskline/backhaul"
	"github.com/duskline/duskline/crypt"
	"github.com/duskline/duskline/internal/dlog"
	"github.com/duskline/duskline/internal/worker"
	"github.com/duskline/duskline/metrics"
	"github.com/duskline/duskline/replay"
	"github.com/duskline/duskline/session"
	"github.com/duskline/duskline/sessiontable"
)

// padTarget is the fixed obfuscation length every handshake reply and
// data frame is padded to (spec §6).
const padTarget = 1000

// ingressCap and egressCap are the per-session channel capacities spec
// §5 mandates: ingress drops datagrams when full, egress backpressures
// a session's own send path.
const (
	ingressCap = 100
	egressCap  = 1000
)

// deathQueueCap bounds how many pending session-death notifications the
// Listener Actor can have queued; drop hooks try-send and ignore a full
// queue (spec §5/§7 — harmless, the table entry then persists until
// process exit).
const deathQueueCap = 256

// Listener is the server-side core's demultiplexer. It owns the
// session table, the replay filter, and the process-local token key
// exclusively; nothing else in the process may touch them.
type Listener struct {
	worker.Worker

	bh      backhaul.Backhaul
	longKey *crypt.LongKey
	cookie  *crypt.Cookie

	tokenAEAD *crypt.StdAEAD
	table     *sessiontable.Table
	replay    *replay.Filter

	deathCh chan []byte
	accept  *channels.InfiniteChannel

	metrics *metrics.Recorder
	log     *logging.Logger
}

// Option customizes Listener construction.
type Option func(*Listener)

// WithMetrics attaches a metrics recorder; without it, metrics calls
// are no-ops.
func WithMetrics(m *metrics.Recorder) Option {
	return func(l *Listener) { l.metrics = m }
}

// New constructs a Listener bound to bh, speaking for the server
// identity longKey.
func New(bh backhaul.Backhaul, longKey *crypt.LongKey, opts ...Option) (*Listener, error) {
	tokenKey, err := randomKey()
	if err != nil {
		return nil, err
	}
	l := &Listener{
		bh:        bh,
		longKey:   longKey,
		cookie:    crypt.NewCookie(longKey.Public()),
		tokenAEAD: crypt.NewStdAEAD(tokenKey),
		table:     sessiontable.New(),
		replay:    replay.New(),
		deathCh:   make(chan []byte, deathQueueCap),
		accept:    channels.NewInfiniteChannel(),
		metrics:   metrics.Noop(),
		log:       dlog.New("listener"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Accept blocks until a new Session has completed its handshake, or
// returns false once the Listener Actor has terminated.
func (l *Listener) Accept() (*session.Session, bool) {
	v, ok := <-l.accept.Out()
	if !ok {
		return nil, false
	}
	return v.(*session.Session), true
}

type recvResult struct {
	payload []byte
	addr    net.Addr
	err     error
}

// Run drives the event loop until ctx is cancelled or the backhaul's
// receive path fails (spec §7: a receive error terminates the Listener
// Actor and ends the accept stream).
func (l *Listener) Run(ctx context.Context) error {
	recvCh := make(chan recvResult)
	l.Go(func() {
		for {
			payload, addr, err := l.bh.RecvFrom()
			select {
			case recvCh <- recvResult{payload: payload, addr: addr, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	})

	for {
		// Mandatory yield so a burst of inbound datagrams can never
		// starve the death-notification channel (spec §4.4 fairness
		// note).
		runtime.Gosched()

		select {
		case res := <-recvCh:
			if res.err != nil {
				l.log.Infof("backhaul receive failed, terminating: %v", res.err)
				l.accept.Close()
				return res.err
			}
			l.handleDatagram(res.payload, res.addr)
		case token := <-l.deathCh:
			l.table.Delete(token)
			l.metrics.SessionClosed()
		case <-ctx.Done():
			l.accept.Close()
			return ctx.Err()
		}
	}
}

func randomKey() ([32]byte, error) {
	var k [32]byte
	_, err := rand.Read(k[:])
	return k, err
}
