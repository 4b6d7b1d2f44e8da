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

import "github.com/ToyPadProject/go-infinity/internal/syncutil"

// sequenceAllocator hands out message sequence ids 0-255, wrapping. It is
// the single authority for ids: two concurrent senders must never observe
// the same value, hence the mutex.
type sequenceAllocator struct {
	mu   syncutil.Mutex
	next byte
}

// Next returns the next sequence id. The counter increments before use,
// so the first id issued after startup is 1; after 0xFF it wraps to 0.
func (a *sequenceAllocator) Next() byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	return a.next
}
