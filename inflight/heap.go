// heap.go - retransmit deadline priority queue
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

import (
	"container/heap"
	"time"
)

// timerItem is one scheduled retransmission deadline. Stale items
// (superseded by a later reschedule of the same seqno) are left in the
// heap and discarded lazily when popped, rather than removed eagerly —
// container/heap has no efficient arbitrary-element delete.
type timerItem struct {
	seqno    uint64
	deadline time.Time
	epoch    uint64 // must match entry.epoch to still be authoritative
}

type timerHeap []timerItem

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x interface{}) { *h = append(*h, x.(timerItem)) }
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (h *timerHeap) push(item timerItem) { heap.Push(h, item) }
func (h *timerHeap) pop() timerItem      { return heap.Pop(h).(timerItem) }
func (h timerHeap) peek() (timerItem, bool) {
	if len(h) == 0 {
		return timerItem{}, false
	}
	return h[0], true
}
