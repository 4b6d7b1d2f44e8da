// go-infinity
// Copyright (c) 2025 The ToyPad Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-infinity.
//
// go-infinity is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-infinity is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-infinity; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package infinity

import (
	"context"
	"fmt"

	"github.com/ToyPadProject/go-infinity/internal/syncutil"
)

// TagObserver receives unsolicited tag-change notifications. Handlers
// run outside the read loop and may issue new device requests; blocking
// in a handler delays later observers of the same event but never the
// read loop itself.
type TagObserver interface {
	OnTagChange(ctx context.Context, event *TagChangeEvent) error
}

// TagObserverFunc adapts a plain function to the TagObserver interface
type TagObserverFunc func(ctx context.Context, event *TagChangeEvent) error

// OnTagChange implements TagObserver
func (f TagObserverFunc) OnTagChange(ctx context.Context, event *TagChangeEvent) error {
	return f(ctx, event)
}

// eventDispatcher fans events out to registered observers in
// registration order. Observer failures are isolated: an error or panic
// in one observer is logged and does not prevent delivery to the next.
type eventDispatcher struct {
	observers []TagObserver
	mu        syncutil.RWMutex
}

// addObserver appends an observer; delivery order is registration order
func (d *eventDispatcher) addObserver(obs TagObserver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, obs)
}

// dispatch delivers event to every observer in order. Always called from
// a goroutine independent of the read loop: an observer issuing a new
// request must be able to block on response traffic that only the read
// loop can deliver.
func (d *eventDispatcher) dispatch(ctx context.Context, event *TagChangeEvent) {
	d.mu.RLock()
	observers := make([]TagObserver, len(d.observers))
	copy(observers, d.observers)
	d.mu.RUnlock()

	for _, obs := range observers {
		if err := safeNotify(ctx, obs, event); err != nil {
			Debugf("observer error for %s: %v", event, err)
		}
	}
}

// safeNotify invokes one observer with panic recovery so a misbehaving
// handler cannot take down the dispatch goroutine.
func safeNotify(ctx context.Context, obs TagObserver, event *TagChangeEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panicked: %v", r)
		}
	}()
	return obs.OnTagChange(ctx, event)
}
