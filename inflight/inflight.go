// inflight.go - inflight segment bookkeeping engine
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

// Package inflight implements the per-connection reliable-transport
// bookkeeping engine: the unacked-segment ring, retransmission timer
// queue, fast-retransmit mailbox, and RTT/delivery-rate estimators.
// Grounded directly on original_source/mux/relconn/inflight.rs.
package inflight

import (
	"context"
	"sort"
	"sync"
	"time"
)

const fastRetransGraceWindow = 30 * time.Second

// segment is an unacked outbound message. Offset from the front of the
// ring (seqno - front.seqno) is a valid index into the logical
// sequence space while the segment has not been pruned; callers never
// see this struct directly, only seqnos.
type segment struct {
	seqno    uint64
	acked    bool
	sendTime time.Time
	retrans  int
	payload  []byte
	reliable bool

	deliveredAtSend     uint64
	deliveredTimeAtSend time.Time

	pendingRTO time.Duration
	epoch      uint64
}

// Engine is one connection's inflight bookkeeping. The zero value is
// not usable; construct with New.
type Engine struct {
	mu sync.Mutex

	segments []*segment // ascending by seqno; segments[0] is the front
	bySeqno  map[uint64]*segment
	count    int // inflight_count: not-yet-acked segments

	times timerHeap

	fastOrder []uint64
	fastSet   map[uint64]struct{}

	rtt  *RttCalculator
	rate *RateCalculator

	delivered     uint64
	deliveredTime time.Time

	wake chan struct{}
}

// New constructs an empty Engine.
func New() *Engine {
	return &Engine{
		bySeqno:       make(map[uint64]*segment),
		fastSet:       make(map[uint64]struct{}),
		rtt:           NewRttCalculator(),
		rate:          NewRateCalculator(),
		deliveredTime: time.Now(),
		wake:          make(chan struct{}),
	}
}

func (e *Engine) broadcastWakeLocked() {
	close(e.wake)
	e.wake = make(chan struct{})
}

// Rtt exposes the RTT estimator for read access (e.g. BDP
// computation by an external congestion controller).
func (e *Engine) Rtt() *RttCalculator { return e.rtt }

// Rate exposes the delivery-rate estimator for read access.
func (e *Engine) Rate() *RateCalculator { return e.rate }

// InflightCount returns the number of segments inserted but not yet
// acked. Never exceeds len(segments); a violation is a bug.
func (e *Engine) InflightCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

// Insert registers seqno as freshly sent, carrying payload. reliable
// marks it as a data message eligible for rate sampling on ack (per
// spec §4.5, only reliable data messages, never handshake traffic,
// contribute rate samples). Callers must insert in ascending seqno
// order; a duplicate insert only refreshes the retransmit deadline.
func (e *Engine) Insert(seqno uint64, payload []byte, reliable bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	if s, ok := e.bySeqno[seqno]; ok {
		s.epoch++
		s.pendingRTO = e.rtt.RTO()
		deadline := now.Add(s.pendingRTO)
		e.times.push(timerItem{seqno: seqno, deadline: deadline, epoch: s.epoch})
		e.broadcastWakeLocked()
		return
	}

	s := &segment{
		seqno:               seqno,
		sendTime:            now,
		payload:             payload,
		reliable:            reliable,
		deliveredAtSend:     e.delivered,
		deliveredTimeAtSend: e.deliveredTime,
		pendingRTO:          e.rtt.RTO(),
		epoch:               1,
	}
	e.segments = append(e.segments, s)
	e.bySeqno[seqno] = s
	e.count++
	e.times.push(timerItem{seqno: seqno, deadline: now.Add(s.pendingRTO), epoch: s.epoch})
	e.broadcastWakeLocked()
}

// popFrontLocked drops every already-acked segment sitting at the
// front of the ring, as described in spec §4.5's mark_acked.
func (e *Engine) popFrontLocked() {
	for len(e.segments) > 0 && e.segments[0].acked {
		delete(e.bySeqno, e.segments[0].seqno)
		e.segments = e.segments[1:]
	}
	if e.count > len(e.segments) {
		panic("BUG: inflight count exceeds segment count")
	}
}

// MarkAcked records seqno as acked. Returns whether this was a new
// acknowledgment (false if seqno is unknown, already pruned, or
// already acked).
func (e *Engine) MarkAcked(seqno uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.markAckedLocked(seqno)
}

func (e *Engine) markAckedLocked(seqno uint64) bool {
	s, ok := e.bySeqno[seqno]
	if !ok || s.acked {
		return false
	}
	if len(e.segments) == 0 || seqno < e.segments[0].seqno {
		return false
	}

	now := time.Now()
	s.acked = true
	e.count--
	e.delivered++
	e.deliveredTime = now

	if s.retrans == 0 {
		e.rtt.Sample(now.Sub(s.sendTime))
		if s.reliable {
			elapsed := e.deliveredTime.Sub(s.deliveredTimeAtSend)
			if elapsed > 0 {
				delta := e.delivered - s.deliveredAtSend
				e.rate.RecordSample(float64(delta) / elapsed.Seconds())
			}
		}
	} else {
		// No fresh sample (Karn's algorithm), but the min-RTT refresh
		// check still runs on every ack regardless.
		e.rtt.RefreshMinRTT()
	}

	e.popFrontLocked()
	return true
}

// MarkAckedLT cumulatively acks every currently-tracked seqno strictly
// less than seqno, in ascending order, equivalent to calling MarkAcked
// on each individually.
func (e *Engine) MarkAckedLT(seqno uint64) {
	e.mu.Lock()
	pending := make([]uint64, 0, len(e.bySeqno))
	for s := range e.bySeqno {
		if s < seqno {
			pending = append(pending, s)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })
	e.mu.Unlock()

	for _, s := range pending {
		e.MarkAcked(s)
	}
}

// ReportLoss flags seqno for immediate retransmission, bypassing the
// timer queue. The engine itself never populates this set; it is a
// mailbox the RX path (duplicate-ack / SACK gap detection) writes to.
func (e *Engine) ReportLoss(seqno uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.fastSet[seqno]; ok {
		return
	}
	e.fastSet[seqno] = struct{}{}
	e.fastOrder = append(e.fastOrder, seqno)
	sort.Slice(e.fastOrder, func(i, j int) bool { return e.fastOrder[i] < e.fastOrder[j] })
	e.broadcastWakeLocked()
}

// WaitFirst blocks until there is a segment to (re)transmit: either a
// fast-retransmit entry (priority, isTimeout=false) or a segment whose
// retransmission deadline has fired (isTimeout=true), in which case its
// retransmit count is bumped and its pending RTO scaled by 3/2 before
// it is rescheduled. ok is false if nothing needs attention within the
// next 30s, or ctx was cancelled.
func (e *Engine) WaitFirst(ctx context.Context) (seqno uint64, isTimeout bool, ok bool) {
	for {
		e.mu.Lock()
		if len(e.fastOrder) > 0 {
			seq := e.fastOrder[0]
			e.fastOrder = e.fastOrder[1:]
			delete(e.fastSet, seq)
			e.mu.Unlock()
			return seq, false, true
		}

		top, has := e.times.peek()
		if !has {
			wakeCh := e.wake
			e.mu.Unlock()
			select {
			case <-wakeCh:
				continue
			case <-ctx.Done():
				return 0, false, false
			}
		}

		now := time.Now()
		if top.deadline.Sub(now) > fastRetransGraceWindow {
			e.mu.Unlock()
			return 0, false, false
		}
		wakeCh := e.wake
		e.mu.Unlock()

		timer := time.NewTimer(time.Until(top.deadline))
		select {
		case <-timer.C:
			e.mu.Lock()
			item := e.times.pop()
			s, ok := e.bySeqno[item.seqno]
			if !ok || s.acked || s.epoch != item.epoch {
				e.mu.Unlock()
				continue
			}
			s.retrans++
			s.pendingRTO = s.pendingRTO * 3 / 2
			s.epoch++
			deadline := time.Now().Add(s.pendingRTO)
			e.times.push(timerItem{seqno: item.seqno, deadline: deadline, epoch: s.epoch})
			e.mu.Unlock()
			return item.seqno, true, true
		case <-wakeCh:
			timer.Stop()
			continue
		case <-ctx.Done():
			timer.Stop()
			return 0, false, false
		}
	}
}
