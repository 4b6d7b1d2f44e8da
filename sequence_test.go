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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceAllocatorFirstID(t *testing.T) {
	t.Parallel()

	var alloc sequenceAllocator
	assert.Equal(t, byte(1), alloc.Next(), "first allocated id is 1, not 0")
}

func TestSequenceAllocatorWraps(t *testing.T) {
	t.Parallel()

	var alloc sequenceAllocator
	seen := make(map[byte]bool)
	for i := 0; i < 256; i++ {
		seen[alloc.Next()] = true
	}
	assert.Len(t, seen, 256, "256 consecutive calls yield 256 distinct ids")

	// 255 is followed by 0, then 1 again
	assert.True(t, seen[0])
	assert.Equal(t, byte(1), alloc.Next())
}

func TestSequenceAllocatorConcurrent(t *testing.T) {
	t.Parallel()

	var alloc sequenceAllocator
	ids := make(chan byte, 256)

	var wg sync.WaitGroup
	for i := 0; i < 256; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- alloc.Next()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[byte]bool)
	for id := range ids {
		assert.False(t, seen[id], "id %d allocated twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, 256)
}
