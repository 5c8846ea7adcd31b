// poller.go - per-session output poller
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

package listener

import (
	"context"

	"github.com/duskline/duskline/addrmap"
	"github.com/duskline/duskline/backhaul"
	"github.com/duskline/duskline/crypt"
	"github.com/duskline/duskline/wire"
)

// runOutputPoller is the per-session task that drains a Session's
// egress channel and ships each frame out over whichever shard address
// the round-robin counter currently selects (spec §4.4). addrs is
// re-read on every send so a rebind takes effect on the next frame
// without the poller needing to be notified.
func (l *Listener) runOutputPoller(ctx context.Context, egress <-chan wire.DataFrame, addrs *addrmap.Map, dnAEAD *crypt.StdAEAD) {
	var counter uint8

	for {
		select {
		case frame, ok := <-egress:
			if !ok {
				// Session egress closed out from under us; the drop
				// hook is responsible for cancelling ctx, so just park
				// until it does.
				<-ctx.Done()
				return
			}
			l.sendFrame(frame, addrs, dnAEAD, &counter)
		case <-ctx.Done():
			return
		}
	}
}

func (l *Listener) sendFrame(frame wire.DataFrame, addrs *addrmap.Map, dnAEAD *crypt.StdAEAD, counter *uint8) {
	snap := addrs.Snapshot()
	if len(snap) == 0 {
		return
	}
	dest := snap[int(*counter)%len(snap)]
	*counter++

	sealed, err := crypt.PadEncrypt(dnAEAD, frame, padTarget)
	if err != nil {
		l.log.Errorf("data frame seal failed: %v", err)
		return
	}
	// Spec §4.4: the output poller calls send_to_many even for a
	// single destination, keeping one send path for both the common
	// one-shard case and any future multi-destination fan-out.
	if err := l.bh.SendToMany([]backhaul.Packet{{Payload: sealed, Addr: dest}}); err != nil {
		l.log.Debugf("data frame send to %s failed: %v", dest, err)
	}
}
