// rate.go - delivery rate estimator
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

const (
	initialRate          = 100.0
	rateRefreshEvery     = 3 * time.Second
)

// RateCalculator tracks a windowed-max delivery rate in messages per
// second, grounded on original_source/mux/relconn/inflight.rs's
// RateCalculator. The rate rises immediately on a higher sample and
// otherwise decays back toward the latest sample only once
// rateRefreshEvery has elapsed, so a brief lull does not immediately
// collapse an established rate.
type RateCalculator struct {
	rate       float64
	lastUpdate time.Time
}

// NewRateCalculator constructs a calculator at its initial rate of 100
// messages/sec.
func NewRateCalculator() *RateCalculator {
	return &RateCalculator{rate: initialRate, lastUpdate: time.Now()}
}

// RecordSample folds in one delivery-rate observation.
func (r *RateCalculator) RecordSample(sample float64) {
	now := time.Now()
	if sample > r.rate || now.Sub(r.lastUpdate) > rateRefreshEvery {
		r.rate = sample
		r.lastUpdate = now
	}
}

// Rate returns the current delivery-rate estimate.
func (r *RateCalculator) Rate() float64 { return r.rate }

// BDP returns the bandwidth-delay product (rate * minRTT), exposed for
// an external congestion controller; computing one is out of scope
// here.
func BDP(rate *RateCalculator, rtt *RttCalculator) float64 {
	return rate.Rate() * rtt.MinRTT().Seconds()
}
