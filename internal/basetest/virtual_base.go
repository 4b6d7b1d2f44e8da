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

// Package basetest provides a wire-level Infinity base simulator for
// integration tests. VirtualBase implements the infinity.Transport
// interface and answers command frames the way the real pad does, so
// the full stack from Device down to frame bytes runs against it.
package basetest

import (
	"fmt"
	"time"

	infinity "github.com/ToyPadProject/go-infinity"
	"github.com/ToyPadProject/go-infinity/internal/frame"
	"github.com/ToyPadProject/go-infinity/internal/syncutil"
)

// Command codes mirrored from the root package, which keeps them
// unexported.
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

const (
	statusSuccess   = 0x00
	statusNoSuchTag = 0x80
	statusTagIO     = 0x82
	blockSize       = 16
)

// VirtualTag is a figure or disc sitting on the simulated base
type VirtualTag struct {
	blocks   map[byte][]byte
	UID      []byte
	Platform int
	Slot     int
	SAK      byte
}

// NewVirtualTag creates a tag with the given placement and UID
func NewVirtualTag(platform, slot int, sak byte, uid []byte) *VirtualTag {
	return &VirtualTag{
		Platform: platform,
		Slot:     slot,
		SAK:      sak,
		UID:      append([]byte(nil), uid...),
		blocks:   make(map[byte][]byte),
	}
}

// SetBlock seeds tag memory for read tests
func (t *VirtualTag) SetBlock(index byte, data []byte) {
	t.blocks[index] = append([]byte(nil), data...)
}

// Block returns tag memory, zero-filled when unwritten
func (t *VirtualTag) Block(index byte) []byte {
	if b, ok := t.blocks[index]; ok {
		return append([]byte(nil), b...)
	}
	return make([]byte, blockSize)
}

// VirtualBase simulates an Infinity base at the frame level. It parses
// command frames written to it, updates its internal state, and queues
// response frames; PlaceTag and RemoveTag queue unsolicited event
// frames just as the hardware does.
type VirtualBase struct {
	tags      map[int]*VirtualTag
	padColors map[int][4]byte
	outbound  chan []byte
	mu        syncutil.Mutex
	writes    [][]byte
	readFails int
	Activated bool
	closed    bool
}

// NewVirtualBase creates a simulator with no tags and dark pads
func NewVirtualBase() *VirtualBase {
	return &VirtualBase{
		tags:      make(map[int]*VirtualTag),
		padColors: make(map[int][4]byte),
		outbound:  make(chan []byte, 64),
	}
}

// PlaceTag puts a tag on the base and queues the placement event
func (v *VirtualBase) PlaceTag(tag *VirtualTag) {
	v.mu.Lock()
	v.tags[tag.Slot] = tag
	v.mu.Unlock()
	v.queueEvent(tag, false)
}

// RemoveTag lifts the tag in the given slot and queues the removal
// event. Unknown slots are ignored.
func (v *VirtualBase) RemoveTag(slot int) {
	v.mu.Lock()
	tag, ok := v.tags[slot]
	if ok {
		delete(v.tags, slot)
	}
	v.mu.Unlock()
	if ok {
		v.queueEvent(tag, true)
	}
}

// FailNextReads makes the next n block reads answer with a tag I/O
// error status, simulating a figure lifted mid-read.
func (v *VirtualBase) FailNextReads(n int) {
	v.mu.Lock()
	v.readFails = n
	v.mu.Unlock()
}

// PadColor returns the last color commanded for a pad, with the command
// code that set it in the first byte.
func (v *VirtualBase) PadColor(pad int) (cmd, r, g, b byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c := v.padColors[pad]
	return c[0], c[1], c[2], c[3]
}

// Writes returns all raw frames written to the base
func (v *VirtualBase) Writes() [][]byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([][]byte, len(v.writes))
	copy(out, v.writes)
	return out
}

// InjectRaw queues arbitrary bytes for the next read, for malformed
// input tests.
func (v *VirtualBase) InjectRaw(data []byte) {
	v.outbound <- append([]byte(nil), data...)
}

func (v *VirtualBase) queueEvent(tag *VirtualTag, removed bool) {
	removedByte := byte(0)
	if removed {
		removedByte = 1
	}
	raw := []byte{
		frame.EventMarker, 0x04,
		byte(tag.Platform), tag.SAK, byte(tag.Slot), removedByte,
	}
	raw = append(raw, frame.Checksum(raw))
	v.outbound <- raw
}

func (v *VirtualBase) queueResponse(seq byte, body []byte) {
	raw := make([]byte, 0, len(body)+4)
	raw = append(raw, frame.ResponseMarker, byte(len(body)+1), seq)
	raw = append(raw, body...)
	raw = append(raw, frame.Checksum(raw))
	v.outbound <- raw
}

// Write implements infinity.Transport. It parses the command frame and
// queues the response the hardware would give.
func (v *VirtualBase) Write(data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return infinity.ErrTransportClosed
	}
	v.writes = append(v.writes, append([]byte(nil), data...))

	if len(data) < 6 || data[0] != frame.StartCode1 || data[1] != frame.StartCode2 {
		return fmt.Errorf("malformed command frame: % X", data)
	}
	length := int(data[2])
	if len(data) < length+3 {
		return fmt.Errorf("truncated command frame: % X", data)
	}
	if frame.Checksum(data[:length+2]) != data[length+2] {
		return fmt.Errorf("bad command checksum: % X", data)
	}

	cmd, seq := data[3], data[4]
	var payload []byte
	if length > 2 {
		payload = data[5 : length+2]
	}
	v.queueResponse(seq, v.handleCommand(cmd, payload))
	return nil
}

// handleCommand runs under v.mu
func (v *VirtualBase) handleCommand(cmd byte, payload []byte) []byte {
	switch cmd {
	case cmdActivate:
		v.Activated = true
		return []byte{statusSuccess}
	case cmdListTagSlots:
		return v.listSlots()
	case cmdLoadTagUID:
		return v.loadUID(payload)
	case cmdReadBlock:
		return v.readBlock(payload)
	case cmdWriteBlock:
		return v.writeBlock(payload)
	case cmdSetColor, cmdFadeColor, cmdFlashColor, cmdFadeRandom:
		return v.setLight(cmd, payload)
	default:
		return []byte{statusNoSuchTag}
	}
}

func (v *VirtualBase) listSlots() []byte {
	body := make([]byte, 0, len(v.tags)*2)
	for _, tag := range v.tags {
		packed := byte(tag.Platform)<<4 | byte(tag.Slot)&0x0F
		body = append(body, packed, tag.SAK)
	}
	return body
}

func (v *VirtualBase) loadUID(payload []byte) []byte {
	if len(payload) < 1 {
		return []byte{statusNoSuchTag}
	}
	tag, ok := v.tags[int(payload[0])]
	if !ok {
		return []byte{statusNoSuchTag}
	}
	return append([]byte{statusSuccess}, tag.UID...)
}

func (v *VirtualBase) readBlock(payload []byte) []byte {
	if len(payload) < 3 {
		return []byte{statusNoSuchTag}
	}
	if v.readFails > 0 {
		v.readFails--
		return []byte{statusTagIO}
	}
	tag, ok := v.tags[int(payload[0])]
	if !ok {
		return []byte{statusNoSuchTag}
	}
	index := payload[1]*4 + payload[2]
	return append([]byte{statusSuccess}, tag.Block(index)...)
}

func (v *VirtualBase) writeBlock(payload []byte) []byte {
	if len(payload) < 3+blockSize {
		return []byte{statusTagIO}
	}
	tag, ok := v.tags[int(payload[0])]
	if !ok {
		return []byte{statusNoSuchTag}
	}
	index := payload[1]*4 + payload[2]
	tag.SetBlock(index, payload[3:3+blockSize])
	return []byte{statusSuccess}
}

func (v *VirtualBase) setLight(cmd byte, payload []byte) []byte {
	if len(payload) < 1 {
		return []byte{statusSuccess}
	}
	pad := int(payload[0])
	state := [4]byte{cmd}
	// Color trails the timing bytes for fade and flash commands;
	// FadeRandom carries no color at all.
	switch cmd {
	case cmdSetColor:
		if len(payload) >= 4 {
			copy(state[1:], payload[1:4])
		}
	case cmdFadeColor:
		if len(payload) >= 6 {
			copy(state[1:], payload[3:6])
		}
	case cmdFlashColor:
		if len(payload) >= 7 {
			copy(state[1:], payload[4:7])
		}
	}
	if pad == 0 {
		for p := 1; p <= 3; p++ {
			v.padColors[p] = state
		}
	}
	v.padColors[pad] = state
	return []byte{statusSuccess}
}

// Read implements infinity.Transport. A timeout yields an empty slice
// and nil error so the read loop re-polls.
func (v *VirtualBase) Read(maxLen int, timeout time.Duration) ([]byte, error) {
	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return nil, infinity.ErrTransportClosed
	}

	select {
	case data := <-v.outbound:
		if maxLen > 0 && len(data) > maxLen {
			data = data[:maxLen]
		}
		return data, nil
	case <-time.After(timeout):
		return nil, nil
	}
}

// Close implements infinity.Transport
func (v *VirtualBase) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}

// IsConnected implements infinity.Transport
func (v *VirtualBase) IsConnected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.closed
}

// Type implements infinity.Transport
func (v *VirtualBase) Type() infinity.TransportType {
	return infinity.TransportMock
}

var _ infinity.Transport = (*VirtualBase)(nil)
