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

// Package hid implements the USB HID transport for the Infinity base.
package hid

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	infinity "github.com/ToyPadProject/go-infinity"
	"github.com/ToyPadProject/go-infinity/detection"
	"github.com/ToyPadProject/go-infinity/internal/frame"
	"github.com/sstallion/go-hid"
)

const (
	// The base exchanges fixed 32-byte HID reports in both directions.
	reportSize = frame.ReportLength
	// Output reports carry a leading report-ID byte, always zero here.
	reportID = 0x00
)

var hidInitOnce sync.Once

func ensureInit() error {
	var err error
	hidInitOnce.Do(func() {
		err = hid.Init()
	})
	return err
}

// hidDevice is the subset of *hid.Device the transport needs.
type hidDevice interface {
	Write(p []byte) (int, error)
	ReadWithTimeout(p []byte, timeout time.Duration) (int, error)
	Close() error
}

// Transport implements the infinity.Transport interface over USB HID.
type Transport struct {
	dev       hidDevice
	path      string
	mu        sync.Mutex
	connected atomic.Bool
}

// New opens the HID device at the given platform path.
func New(path string) (*Transport, error) {
	if err := ensureInit(); err != nil {
		return nil, fmt.Errorf("hidapi init failed: %w", err)
	}

	dev, err := hid.OpenPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open HID device %s: %w", path, err)
	}

	t := &Transport{dev: dev, path: path}
	t.connected.Store(true)
	return t, nil
}

// Open opens the first Infinity base found by VID/PID, without
// enumerating paths first.
func Open() (*Transport, error) {
	if err := ensureInit(); err != nil {
		return nil, fmt.Errorf("hidapi init failed: %w", err)
	}

	dev, err := hid.OpenFirst(detection.VendorID, detection.ProductID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", infinity.ErrDeviceNotFound, err)
	}

	t := &Transport{dev: dev, path: "auto"}
	t.connected.Store(true)
	return t, nil
}

// Factory creates a HID transport from a device path. It matches the
// infinity.TransportFactory signature for use with ConnectDevice.
func Factory(path string) (infinity.Transport, error) {
	return New(path)
}

// FromDevice creates a HID transport from a detected device
func FromDevice(device detection.DeviceInfo) (infinity.Transport, error) {
	return New(device.Path)
}

// buildReport wraps a frame in an output report: a leading report-ID
// byte followed by the frame, zero-padded to reportSize bytes.
func buildReport(data []byte) []byte {
	report := make([]byte, reportSize+1)
	report[0] = reportID
	copy(report[1:], data)
	return report
}

// Write sends one frame as a single padded output report. The report is
// always reportSize bytes on the wire regardless of the frame length;
// the base locates the frame by its start bytes and length field.
func (t *Transport) Write(data []byte) error {
	if !t.connected.Load() {
		return infinity.ErrTransportClosed
	}
	if len(data) > reportSize {
		return infinity.NewTransportWriteError("Write", t.path, infinity.ErrPayloadTooLarge)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.dev.Write(buildReport(data)); err != nil {
		return t.mapError("Write", err)
	}
	return nil
}

// Read returns the next input report, blocking up to timeout. A timeout
// yields an empty slice and nil error so the caller can re-poll.
func (t *Transport) Read(maxLen int, timeout time.Duration) ([]byte, error) {
	if !t.connected.Load() {
		return nil, infinity.ErrTransportClosed
	}
	if maxLen <= 0 || maxLen > reportSize {
		maxLen = reportSize
	}

	buf := make([]byte, reportSize)
	n, err := t.dev.ReadWithTimeout(buf, timeout)
	if err != nil {
		return nil, t.mapError("Read", err)
	}
	if n == 0 {
		return nil, nil
	}
	if n > maxLen {
		n = maxLen
	}
	return buf[:n], nil
}

// mapError converts hidapi errors into transport errors, marking the
// device gone so subsequent calls fail fast.
func (t *Transport) mapError(op string, err error) error {
	if infinity.IsFatal(err) {
		t.connected.Store(false)
		return infinity.NewTransportError(op, t.path, err, infinity.ErrorTypePermanent)
	}
	if op == "Read" {
		return infinity.NewTransportReadError(op, t.path, err)
	}
	return infinity.NewTransportWriteError(op, t.path, err)
}

// Close closes the HID device
func (t *Transport) Close() error {
	if !t.connected.CompareAndSwap(true, false) {
		return nil
	}
	if err := t.dev.Close(); err != nil {
		return fmt.Errorf("failed to close HID device %s: %w", t.path, err)
	}
	return nil
}

// IsConnected returns whether the transport is connected
func (t *Transport) IsConnected() bool {
	return t.connected.Load()
}

// Type returns the transport type
func (t *Transport) Type() infinity.TransportType {
	return infinity.TransportHID
}

var _ infinity.Transport = (*Transport)(nil)
