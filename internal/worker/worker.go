// worker.go - halt/wait goroutine lifecycle helper
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

// Package worker provides the halt/wait lifecycle embedded by the
// Listener, which starts its receive goroutine and every per-session
// output poller through it. The metrics HTTP server runs as a plain
// goroutine outside it.
package worker

import "sync"

// Worker is embedded by types that run one or more background
// goroutines and need a coordinated, idempotent shutdown.
type Worker struct {
	sync.WaitGroup

	haltOnce  sync.Once
	haltingCh chan struct{}
}

func (w *Worker) initOnce() {
	if w.haltingCh == nil {
		w.haltingCh = make(chan struct{})
	}
}

// Go runs fn in a new goroutine tracked by the Worker's WaitGroup.
func (w *Worker) Go(fn func()) {
	w.initOnce()
	w.Add(1)
	go func() {
		defer w.Done()
		fn()
	}()
}

// HaltCh returns a channel that is closed when Halt is first called.
// Goroutines started with Go should select on this to know when to
// stop.
func (w *Worker) HaltCh() chan struct{} {
	w.initOnce()
	return w.haltingCh
}

// Halt requests shutdown and blocks until every goroutine started with
// Go has returned. It is safe to call more than once.
func (w *Worker) Halt() {
	w.initOnce()
	w.haltOnce.Do(func() {
		close(w.haltingCh)
	})
	w.Wait()
}
