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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagFromIndexPair(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		packed       byte
		sak          byte
		wantPlatform int
		wantSlot     int
	}{
		{name: "platform 1 slot 2", packed: 0x12, sak: 0x09, wantPlatform: 1, wantSlot: 2},
		{name: "platform 3 slot 1", packed: 0x31, sak: 0x09, wantPlatform: 3, wantSlot: 1},
		{name: "empty sentinel", packed: 0x09, sak: 0x09, wantPlatform: 0, wantSlot: 9},
		{name: "high nibbles", packed: 0xFF, sak: 0x20, wantPlatform: 15, wantSlot: 15},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tag := tagFromIndexPair(tt.packed, tt.sak)
			assert.Equal(t, tt.wantPlatform, tag.Platform)
			assert.Equal(t, tt.wantSlot, tag.Slot)
			assert.Equal(t, tt.sak, tag.SAK)

			// Packing must round-trip
			assert.Equal(t, tt.packed, tag.indexByte())
		})
	}
}

func TestTagUID(t *testing.T) {
	t.Parallel()

	tag := &Tag{Platform: 1, Slot: 2}
	assert.False(t, tag.HasUID())
	assert.Empty(t, tag.UIDString())

	tag.UID = []byte{0x04, 0xA1, 0xFF}
	assert.True(t, tag.HasUID())
	assert.Equal(t, "04a1ff", tag.UIDString())
}

func TestTagChangeEventString(t *testing.T) {
	t.Parallel()

	tag := &Tag{Platform: 1, Slot: 2, SAK: 0x09}
	placed := &TagChangeEvent{Tag: tag}
	removed := &TagChangeEvent{Tag: tag, Removed: true}

	assert.True(t, strings.Contains(placed.String(), "placed"))
	assert.True(t, strings.Contains(removed.String(), "removed"))
}
