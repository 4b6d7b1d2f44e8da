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
	"encoding/hex"
	"fmt"
)

// Pad numbers on the base. Pad 0 addresses every pad at once for LED
// commands; tags always report the specific pad they sit on.
const (
	PadAll      = 0
	PadRound    = 1
	PadHexLeft  = 2
	PadHexRight = 3
)

// Tag identifies a figure or disc held by the base. Platform and Slot
// come from a single packed index byte (platform in the high nibble,
// slot in the low nibble); SAK is the tag's ISO 14443A select-acknowledge
// byte, always 0x09 for Infinity tags (MIFARE Classic Mini). UID stays
// nil until LoadTagUID populates it.
type Tag struct {
	UID      []byte
	Platform int
	Slot     int
	SAK      byte
}

// tagFromIndexPair builds a Tag from one two-byte slot listing entry:
// the packed index byte and the SAK byte.
func tagFromIndexPair(packed, sak byte) *Tag {
	return &Tag{
		Platform: int(packed >> 4),
		Slot:     int(packed & 0x0F),
		SAK:      sak,
	}
}

// indexByte re-packs the platform/slot pair into the nibble form the
// base reports in list responses, the inverse of tagFromIndexPair.
// Command payloads address tags by bare slot, not this packed form.
func (t *Tag) indexByte() byte {
	return byte(t.Platform<<4) | byte(t.Slot&0x0F)
}

// UIDString returns the tag UID as a hex string, or "" if the UID has
// not been loaded.
func (t *Tag) UIDString() string {
	return hex.EncodeToString(t.UID)
}

// HasUID reports whether LoadTagUID has populated the UID
func (t *Tag) HasUID() bool {
	return len(t.UID) > 0
}

func (t *Tag) String() string {
	return fmt.Sprintf("Tag(platform=%d, slot=%d, sak=0x%02X, uid=%s)",
		t.Platform, t.Slot, t.SAK, t.UIDString())
}

// TagChangeEvent is one unsolicited tag-change notification from the
// base: a tag was placed on or removed from a pad. Value object, one per
// notification; owned by whoever receives it.
type TagChangeEvent struct {
	Tag     *Tag
	Removed bool
}

func (e *TagChangeEvent) String() string {
	verb := "placed"
	if e.Removed {
		verb = "removed"
	}
	return fmt.Sprintf("TagChangeEvent(%s, %s)", verb, e.Tag)
}

// Color is an RGB triple for the pad LEDs
type Color struct {
	R, G, B byte
}

// Common colors used by the demo tooling
var (
	ColorOff   = Color{}
	ColorRed   = Color{R: 200}
	ColorGreen = Color{G: 56}
	ColorBlue  = Color{B: 200}
)
