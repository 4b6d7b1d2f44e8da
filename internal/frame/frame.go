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

// Package frame implements the Infinity base wire framing: command frame
// construction with additive checksum, and classification of inbound
// packets into responses, tag events and unrecognized frames.
package frame

import "errors"

// Frame markers and control bytes
const (
	StartCode1 = 0x00 // Command frame start byte 1
	StartCode2 = 0xFF // Command frame start byte 2

	// Inbound frame discriminators
	ResponseMarker = 0xAA // Response to a previously sent command
	EventMarker    = 0xAB // Unsolicited tag-change notification
)

// Size limits
const (
	// MaxPayloadLength bounds the command payload so that the length byte
	// (2 + payload) still fits in one byte.
	MaxPayloadLength = 253

	// ReportLength is the fixed HID packet size used by the base. Encode
	// does not pad to it; transports that need fixed-size reports do.
	ReportLength = 32
)

// ErrPayloadTooLarge is returned by Encode when the command payload
// exceeds MaxPayloadLength.
var ErrPayloadTooLarge = errors.New("frame payload too large")

// Kind classifies a decoded inbound frame
type Kind int

const (
	// KindUnknown is any frame whose discriminator is not recognized
	KindUnknown Kind = iota
	// KindResponse is a response frame (0xAA) carrying a sequence id
	KindResponse
	// KindEvent is a tag-change event frame (0xAB)
	KindEvent
)

// Decoded is the result of classifying one inbound packet.
// Exactly the fields for its Kind are meaningful.
type Decoded struct {
	// Payload is the response body for KindResponse, or the raw packet
	// for KindUnknown.
	Payload []byte
	Kind    Kind
	// SequenceID correlates a KindResponse to its request
	SequenceID byte
	// Event fields, valid for KindEvent
	Platform byte
	SAK      byte
	Slot     byte
	Removed  bool
}

// Checksum computes the additive checksum over data: the low byte of the
// sum of all bytes.
func Checksum(data []byte) byte {
	chk := byte(0)
	for _, b := range data {
		chk += b
	}
	return chk
}

// Encode builds a command frame:
//
//	[0x00, 0xFF, length, command, sequenceID, payload..., checksum]
//
// where length = 2 + len(payload) and checksum covers every preceding
// byte. A legacy implementation zero-padded frames to a fixed report
// size; the base accepts both forms, so padding is left to transports.
func Encode(command, sequenceID byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLength {
		return nil, ErrPayloadTooLarge
	}

	buf := make([]byte, 0, 6+len(payload))
	buf = append(buf, StartCode1, StartCode2, byte(2+len(payload)), command, sequenceID)
	buf = append(buf, payload...)
	buf = append(buf, Checksum(buf))
	return buf, nil
}

// Decode classifies one inbound packet. It never fails: packets that are
// not well-formed responses or events come back as KindUnknown and are
// the caller's to log and drop. Inbound checksums are not re-validated,
// matching the reference behavior.
func Decode(raw []byte) Decoded {
	if len(raw) == 0 {
		return Decoded{Kind: KindUnknown}
	}

	switch raw[0] {
	case ResponseMarker:
		return decodeResponse(raw)
	case EventMarker:
		return decodeEvent(raw)
	default:
		return Decoded{Kind: KindUnknown, Payload: raw}
	}
}

// decodeResponse extracts the sequence id and body from a response frame:
// [0xAA, length, sequenceID, body...]. The body spans raw[3:length+2],
// clamped to the packet so a short or lying length byte cannot panic.
func decodeResponse(raw []byte) Decoded {
	if len(raw) < 3 {
		return Decoded{Kind: KindUnknown, Payload: raw}
	}

	end := int(raw[1]) + 2
	if end > len(raw) {
		end = len(raw)
	}
	body := raw[3:]
	if end > 3 {
		body = raw[3:end]
	} else {
		body = nil
	}

	return Decoded{
		Kind:       KindResponse,
		SequenceID: raw[2],
		Payload:    body,
	}
}

// decodeEvent extracts the fixed-layout tag-change fields:
// [0xAB, 0x00, platform, sak, slot, removedFlag, ...]
func decodeEvent(raw []byte) Decoded {
	if len(raw) < 6 {
		return Decoded{Kind: KindUnknown, Payload: raw}
	}

	return Decoded{
		Kind:     KindEvent,
		Platform: raw[2],
		SAK:      raw[3],
		Slot:     raw[4],
		Removed:  raw[5] != 0,
	}
}
