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
	"time"

	"github.com/ToyPadProject/go-infinity/internal/frame"
	"github.com/ToyPadProject/go-infinity/internal/syncutil"
)

// Transport defines the interface for packet-level communication with an
// Infinity base. The real backends are USB HID and (for emulated bases)
// serial; both move one whole packet per call.
type Transport interface {
	// Write sends one outbound packet. The frame is complete and
	// unpadded; transports with fixed-size reports pad as needed.
	Write(data []byte) error

	// Read blocks for up to timeout waiting for one inbound packet of at
	// most maxLen bytes. A timeout is not an error: it returns an empty
	// slice and a nil error.
	Read(maxLen int, timeout time.Duration) ([]byte, error)

	// Close closes the transport connection
	Close() error

	// IsConnected returns true if the transport is connected
	IsConnected() bool

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportHID represents USB HID transport.
	TransportHID TransportType = "hid"
	// TransportSerial represents CDC serial transport.
	TransportSerial TransportType = "serial"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// MockTransport provides a mock implementation of Transport for testing.
// Written command frames are parsed and answered from a configurable
// response table, echoing the sequence id of the request; events and raw
// frames can be injected into the inbound stream at any time.
type MockTransport struct {
	responses map[byte][]byte
	errorMap  map[byte]error
	silent    map[byte]bool
	callCount map[byte]int
	inbound   chan []byte
	writes    [][]byte
	mu        syncutil.Mutex
	connected bool
}

// NewMockTransport creates a new mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{
		responses: make(map[byte][]byte),
		errorMap:  make(map[byte]error),
		silent:    make(map[byte]bool),
		callCount: make(map[byte]int),
		inbound:   make(chan []byte, 64),
		connected: true,
	}
}

// Write implements Transport. The outbound frame is recorded, then a
// response frame is queued for the next Read unless the command is
// configured silent or to fail.
func (m *MockTransport) Write(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return ErrTransportClosed
	}

	recorded := make([]byte, len(data))
	copy(recorded, data)
	m.writes = append(m.writes, recorded)

	// Command frame layout: [0x00, 0xFF, length, command, seq, ...]
	if len(data) < 5 {
		return nil
	}
	cmd, seq := data[3], data[4]
	m.callCount[cmd]++

	if err, exists := m.errorMap[cmd]; exists {
		return err
	}
	if m.silent[cmd] {
		return nil
	}

	payload, exists := m.responses[cmd]
	if !exists {
		payload = []byte{byte(StatusSuccess)}
	}
	m.inbound <- buildResponseFrame(seq, payload)
	return nil
}

// Read implements Transport, delivering one queued inbound frame or an
// empty slice after timeout.
func (m *MockTransport) Read(maxLen int, timeout time.Duration) ([]byte, error) {
	m.mu.Lock()
	connected := m.connected
	m.mu.Unlock()
	if !connected {
		return nil, ErrTransportClosed
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data := <-m.inbound:
		if len(data) > maxLen {
			data = data[:maxLen]
		}
		return data, nil
	case <-timer.C:
		return nil, nil
	}
}

// Close implements Transport
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
	return nil
}

// IsConnected implements Transport
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Type implements Transport
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// Test helper methods

// SetResponse configures the response payload for a command. The first
// payload byte is the status position for commands that carry one.
func (m *MockTransport) SetResponse(cmd byte, payload []byte) {
	m.mu.Lock()
	m.responses[cmd] = payload
	m.mu.Unlock()
}

// SetError configures an error to be returned when a command is written
func (m *MockTransport) SetError(cmd byte, err error) {
	m.mu.Lock()
	m.errorMap[cmd] = err
	m.mu.Unlock()
}

// SetSilent configures a command to be swallowed without a response,
// leaving its request pending forever (for timeout tests).
func (m *MockTransport) SetSilent(cmd byte) {
	m.mu.Lock()
	m.silent[cmd] = true
	m.mu.Unlock()
}

// InjectEvent queues a tag-change event frame into the inbound stream
func (m *MockTransport) InjectEvent(platform, sak, slot byte, removed bool) {
	removedFlag := byte(0)
	if removed {
		removedFlag = 1
	}
	m.InjectRaw([]byte{frame.EventMarker, 0x00, platform, sak, slot, removedFlag})
}

// InjectRaw queues an arbitrary frame into the inbound stream
func (m *MockTransport) InjectRaw(data []byte) {
	m.inbound <- data
}

// InjectResponse queues a response frame for an arbitrary sequence id,
// bypassing the request parsing in Write.
func (m *MockTransport) InjectResponse(seq byte, payload []byte) {
	m.inbound <- buildResponseFrame(seq, payload)
}

// Writes returns copies of all frames written so far
func (m *MockTransport) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// GetCallCount returns how many times a command was written
func (m *MockTransport) GetCallCount(cmd byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount[cmd]
}

var _ Transport = (*MockTransport)(nil)

// buildResponseFrame assembles an inbound response frame for seq:
// [0xAA, length, seq, payload..., checksum] with length = len(payload)+1.
func buildResponseFrame(seq byte, payload []byte) []byte {
	buf := make([]byte, 0, 4+len(payload))
	buf = append(buf, frame.ResponseMarker, byte(len(payload)+1), seq)
	buf = append(buf, payload...)
	buf = append(buf, frame.Checksum(buf))
	return buf
}
