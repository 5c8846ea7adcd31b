// rtt.go - SRTT/RTTVAR/RTO estimator
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

package inflight

import "time"

// RttCalculator is the SRTT/RTTVAR/RTO estimator described in spec
// §3/§4.5, grounded on original_source/mux/relconn/inflight.rs's
// RttCalculator. All of SRTT/RTTVAR/RTO/MinRTT are held in
// time.Duration rather than raw milliseconds; the spec's millisecond
// figures are exact translations of the same arithmetic.
type RttCalculator struct {
	srtt     time.Duration
	rttvar   time.Duration
	rto      time.Duration
	minRTT   time.Duration
	existing bool

	lastMinRTTRefresh time.Time
}

const (
	initialRTT        = 300 * time.Millisecond
	minRTTVarFloor     = 10 * time.Millisecond
	rtoFixedOverhead   = 50 * time.Millisecond
	minRTTRefreshEvery = 10 * time.Second
)

// NewRttCalculator constructs an estimator at its spec-mandated initial
// state: SRTT = RTO = MinRTT = 300ms, RTTVAR = 0.
func NewRttCalculator() *RttCalculator {
	now := time.Now()
	return &RttCalculator{
		srtt:              initialRTT,
		rto:               initialRTT,
		minRTT:            initialRTT,
		lastMinRTTRefresh: now,
	}
}

// Sample records one RTT observation. Callers must only call this for
// segments acked with retrans==0 (Karn's algorithm); the engine itself
// enforces that, so Sample has no opinion about it.
func (r *RttCalculator) Sample(sample time.Duration) {
	if !r.existing {
		r.srtt = sample
		r.rttvar = sample / 2
		r.existing = true
	} else {
		diff := r.srtt - sample
		if diff < 0 {
			diff = -diff
		}
		r.rttvar = r.rttvar*3/4 + diff/4
		r.srtt = r.srtt*7/8 + sample/8
	}

	rttvarFloor := 4 * r.rttvar
	if rttvarFloor < minRTTVarFloor {
		rttvarFloor = minRTTVarFloor
	}
	floor := r.srtt + rttvarFloor
	rto := sample
	if floor > rto {
		rto = floor
	}
	r.rto = rto

	r.RefreshMinRTT()
}

// RefreshMinRTT is the ack-path tail that runs whether or not this ack
// carried a fresh RTT sample: original_source's record_sample calls it
// unconditionally, passing None for retransmitted segments, so min_rtt
// still rises back toward srtt after minRTTRefreshEvery elapses even
// under sustained loss, when Sample itself is never invoked (Karn's
// algorithm skips retransmitted segments entirely).
func (r *RttCalculator) RefreshMinRTT() {
	now := time.Now()
	if r.srtt < r.minRTT || now.Sub(r.lastMinRTTRefresh) > minRTTRefreshEvery {
		r.minRTT = r.srtt
		r.lastMinRTTRefresh = now
	}
}

// RTO returns the current scheduling RTO: the base estimate (srtt,
// floored by RTTVAR, or the initial 300ms before any sample) plus the
// fixed 50ms overhead every schedule carries. The engine's geometric
// backoff on retransmit scales this value per-segment; it never feeds
// back into the shared estimator.
func (r *RttCalculator) RTO() time.Duration { return r.rto + rtoFixedOverhead }

// SRTT returns the current smoothed RTT estimate.
func (r *RttCalculator) SRTT() time.Duration { return r.srtt }

// MinRTT returns the current minimum RTT estimate, used by the
// external congestion controller's bandwidth-delay-product computation.
func (r *RttCalculator) MinRTT() time.Duration { return r.minRTT }
