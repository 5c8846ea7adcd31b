// session.go - session facade
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

// Package session implements the Session façade: the external,
// collaborator-only surface spec §6 describes (accept_session,
// send_frame/recv_frame, a drop hook) — kept here, implemented rather
// than merely declared, so the Listener Actor has a concrete consumer
// to be exercised by. It does not use the inflight engine. Scaled down from
// stream/stream.go's Stream type to exactly the §6 contract.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/duskline/duskline/wire"
)

// defaultTargetLoss and defaultRecvTimeout match spec §6's literal
// construction parameters (target_loss=0.05, recv_timeout=1h).
const (
	defaultTargetLoss  = 0.05
	defaultRecvTimeout = time.Hour
)

// ErrClosed is returned by Send/Recv once the session has been torn
// down.
var ErrClosed = errors.New("session: closed")

// Session is one established, possibly-roaming connection. It is the
// only thing the Listener Actor hands to an application: frames go in
// and out through channels the Listener wired to the session table and
// the per-session output poller, never through a direct reference back
// into listener state (spec §9: "no back-reference from Session into
// table").
type Session struct {
	targetLoss  float64
	recvTimeout time.Duration

	egress  chan<- wire.DataFrame
	ingress <-chan wire.DataFrame

	closeOnce sync.Once
	dropHook  func()
	closed    chan struct{}
}

// Options configures the channels and teardown hook a Session is wired
// to, plus TargetLoss and RecvTimeout; a zero TargetLoss or
// RecvTimeout falls back to its spec-mandated default.
type Options struct {
	Egress      chan<- wire.DataFrame
	Ingress     <-chan wire.DataFrame
	DropHook    func()
	TargetLoss  float64
	RecvTimeout time.Duration
}

// New constructs a Session from Options, applying spec-mandated
// defaults for any zero-valued field.
func New(opts Options) *Session {
	targetLoss := opts.TargetLoss
	if targetLoss == 0 {
		targetLoss = defaultTargetLoss
	}
	recvTimeout := opts.RecvTimeout
	if recvTimeout == 0 {
		recvTimeout = defaultRecvTimeout
	}
	return &Session{
		targetLoss:  targetLoss,
		recvTimeout: recvTimeout,
		egress:      opts.Egress,
		ingress:     opts.Ingress,
		dropHook:    opts.DropHook,
		closed:      make(chan struct{}),
	}
}

// TargetLoss returns the loss rate this session's congestion control
// (out of scope here) should aim for.
func (s *Session) TargetLoss() float64 { return s.targetLoss }

// Send queues payload for delivery as a data frame. Blocks only as
// long as ctx allows; the egress channel's bounded capacity is the
// session's backpressure signal (spec §5).
func (s *Session) Send(ctx context.Context, payload []byte) error {
	select {
	case s.egress <- wire.DataFrame{Payload: payload}:
		return nil
	case <-s.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv waits for the next inbound data frame, up to recvTimeout.
func (s *Session) Recv(ctx context.Context) ([]byte, error) {
	timer := time.NewTimer(s.recvTimeout)
	defer timer.Stop()

	select {
	case f, ok := <-s.ingress:
		if !ok {
			return nil, ErrClosed
		}
		return f.Payload, nil
	case <-s.closed:
		return nil, ErrClosed
	case <-timer.C:
		return nil, context.DeadlineExceeded
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close tears the session down, firing the drop hook exactly once.
// Idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.dropHook != nil {
			s.dropHook()
		}
	})
	return nil
}
