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

// Package serial implements a serial-port transport for emulated
// Infinity bases. Microcontroller projects that speak the base protocol
// over a USB CDC port (an Arduino behind a CH340, typically) present as
// plain serial devices rather than HID; this transport drives those.
package serial

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	infinity "github.com/ToyPadProject/go-infinity"
	"github.com/ToyPadProject/go-infinity/internal/frame"
	"go.bug.st/serial"
)

const (
	defaultBaudRate = 115200
	// Emulated bases still frame in 32-byte packets like the real one.
	packetSize = frame.ReportLength
)

// Transport implements the infinity.Transport interface over a serial
// port.
type Transport struct {
	port      serial.Port
	portName  string
	mu        sync.Mutex
	connected atomic.Bool
}

// New opens the serial port at the given path
func New(portName string) (*Transport, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: defaultBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	t := &Transport{port: port, portName: portName}
	t.connected.Store(true)
	return t, nil
}

// Factory creates a serial transport from a port path. It matches the
// infinity.TransportFactory signature for use with ConnectDevice.
func Factory(path string) (infinity.Transport, error) {
	return New(path)
}

// Write sends one frame as a single chunk
func (t *Transport) Write(data []byte) error {
	if !t.connected.Load() {
		return infinity.ErrTransportClosed
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	written := 0
	for written < len(data) {
		n, err := t.port.Write(data[written:])
		if err != nil {
			return t.mapError("Write", err)
		}
		written += n
	}
	return nil
}

// Read returns the next packet, blocking up to timeout. A timeout
// yields an empty slice and nil error so the caller can re-poll.
//
// Emulated bases write each packet in one burst, so a single read after
// the first byte arrives returns a whole frame.
func (t *Transport) Read(maxLen int, timeout time.Duration) ([]byte, error) {
	if !t.connected.Load() {
		return nil, infinity.ErrTransportClosed
	}
	if maxLen <= 0 || maxLen > packetSize {
		maxLen = packetSize
	}

	if err := t.port.SetReadTimeout(timeout); err != nil {
		return nil, t.mapError("Read", err)
	}

	buf := make([]byte, maxLen)
	n, err := t.port.Read(buf)
	if err != nil {
		return nil, t.mapError("Read", err)
	}
	if n == 0 {
		return nil, nil
	}
	return buf[:n], nil
}

func (t *Transport) mapError(op string, err error) error {
	if infinity.IsFatal(err) {
		t.connected.Store(false)
		return infinity.NewTransportError(op, t.portName, err, infinity.ErrorTypePermanent)
	}
	if op == "Read" {
		return infinity.NewTransportReadError(op, t.portName, err)
	}
	return infinity.NewTransportWriteError(op, t.portName, err)
}

// Close closes the serial port
func (t *Transport) Close() error {
	if !t.connected.CompareAndSwap(true, false) {
		return nil
	}
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", t.portName, err)
	}
	return nil
}

// IsConnected returns whether the transport is connected
func (t *Transport) IsConnected() bool {
	return t.connected.Load()
}

// Type returns the transport type
func (t *Transport) Type() infinity.TransportType {
	return infinity.TransportSerial
}

var _ infinity.Transport = (*Transport)(nil)
