// filter.go - bloom-based replay suppressor
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

// Package replay implements the Recent Filter: a bloom-based replay
// suppressor over raw ciphertext bytes, used to drop replayed
// handshake frames without keeping per-packet state. Grounded
// directly on original_source/lib/sosistab/src/listener.rs's
// RecentFilter.
package replay

import (
	"sync"
	"time"

	"github.com/yawning/bloom"
)

// bloomCapacity and bloomFPRate size each of the two rotating bloom
// filters for 100,000 items at a 1% false-positive rate, as specified.
const (
	bloomCapacity = 100000
	bloomFPRate   = 0.01

	// rotationInterval is how long a filter accumulates entries before
	// the pair rotates. A value is reported as "seen" for up to
	// 2*rotationInterval after it was first checked.
	rotationInterval = 600 * time.Second
)

// Filter is the false-negative-impossible, false-positive-bounded
// replay suppressor described in spec §4.1. It is safe for concurrent
// use.
type Filter struct {
	mu        sync.Mutex
	curr      *bloom.BloomFilter
	prev      *bloom.BloomFilter
	currSince time.Time
}

func newBloom() *bloom.BloomFilter {
	return bloom.New(bloomCapacity, bloomFPRate)
}

// New constructs an empty Filter.
func New() *Filter {
	return &Filter{
		curr:      newBloom(),
		prev:      newBloom(),
		currSince: time.Now(),
	}
}

// Check returns true iff b has not been observed in the last
// [rotationInterval, 2*rotationInterval) seconds, and records it as
// seen. A false return means the caller should treat b as a replay and
// drop it.
func (f *Filter) Check(b []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if time.Since(f.currSince) > rotationInterval {
		f.prev, f.curr = f.curr, newBloom()
		f.currSince = time.Now()
	}

	// check_and_set: Has reads membership in curr before Add records
	// it, so a value checked twice in the same window is reported seen
	// the second time.
	seenInCurr := f.curr.Has(b)
	f.curr.Add(b)
	seenInPrev := f.prev.Has(b)
	return !(seenInCurr || seenInPrev)
}
