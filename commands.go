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

// Base command codes
const (
	cmdActivate     = 0x80
	cmdSetColor     = 0x90
	cmdFadeColor    = 0x92
	cmdFlashColor   = 0x93
	cmdFadeRandom   = 0x94
	cmdListTagSlots = 0xA1
	cmdReadBlock    = 0xA2
	cmdWriteBlock   = 0xA3
	cmdLoadTagUID   = 0xB4
)

// activatePayload is the fixed 15-byte handshake blob the base expects
// before it will answer tag commands or raise tag-change events. It is
// the ASCII string "(c) Disney 2013".
var activatePayload = []byte{
	0x28, 0x63, 0x29, 0x20, 0x44,
	0x69, 0x73, 0x6E, 0x65, 0x79,
	0x20, 0x32, 0x30, 0x31, 0x33,
}

// tagBlockSize is the exact block length for tag read/write operations
// (MIFARE Classic Mini block)
const tagBlockSize = 16
