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

// pendingRequest is the completion handle for one in-flight command.
// The result channel is buffered so resolve never blocks on a caller
// that has not reached its receive yet.
type pendingRequest struct {
	result chan []byte
	seq    byte
}

// requestRegistry maps in-flight sequence ids to their completion
// handles. Entries live from register until resolve or cancel; exactly
// one unresolved entry may exist per id at any instant. Ids wrap at 256,
// so the registry bounds outstanding requests to 256 by construction.
type requestRegistry struct {
	pending map[byte]*pendingRequest
	mu      syncutil.Mutex
}

func newRequestRegistry() *requestRegistry {
	return &requestRegistry{
		pending: make(map[byte]*pendingRequest),
	}
}

// register inserts a pending entry for seq. An existing unresolved entry
// for the same id means the 256-outstanding-request invariant was
// violated upstream; that is refused rather than silently misdelivered.
func (r *requestRegistry) register(seq byte) (*pendingRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pending[seq]; exists {
		return nil, ErrDuplicateSequence
	}

	req := &pendingRequest{
		seq:    seq,
		result: make(chan []byte, 1),
	}
	r.pending[seq] = req
	return req, nil
}

// resolve removes the entry for seq and delivers payload to its handle.
// Returns false when no entry exists: a stale or duplicate response,
// which is dropped by design rather than treated as an error.
func (r *requestRegistry) resolve(seq byte, payload []byte) bool {
	r.mu.Lock()
	req, ok := r.pending[seq]
	if ok {
		delete(r.pending, seq)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	req.result <- payload
	return true
}

// cancel removes the entry for seq without delivery, so a late response
// for an abandoned request is dropped instead of misdelivered to a
// future request that reuses the id.
func (r *requestRegistry) cancel(seq byte) {
	r.mu.Lock()
	delete(r.pending, seq)
	r.mu.Unlock()
}

// outstanding returns the number of in-flight entries
func (r *requestRegistry) outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
