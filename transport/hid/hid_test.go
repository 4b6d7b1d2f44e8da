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

package hid

import (
	"errors"
	"syscall"
	"testing"
	"time"

	infinity "github.com/ToyPadProject/go-infinity"
	"github.com/ToyPadProject/go-infinity/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice records output reports and serves canned input reports.
type fakeDevice struct {
	writes   [][]byte
	reads    [][]byte
	writeErr error
	readErr  error
	closed   bool
}

func (f *fakeDevice) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.writes = append(f.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (f *fakeDevice) ReadWithTimeout(p []byte, _ time.Duration) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if len(f.reads) == 0 {
		return 0, nil
	}
	next := f.reads[0]
	f.reads = f.reads[1:]
	return copy(p, next), nil
}

func (f *fakeDevice) Close() error {
	f.closed = true
	return nil
}

var _ hidDevice = (*fakeDevice)(nil)

func fakeTransport() (*Transport, *fakeDevice) {
	dev := &fakeDevice{}
	t := &Transport{dev: dev, path: "/dev/hidraw-test"}
	t.connected.Store(true)
	return t, dev
}

func TestBuildReport(t *testing.T) {
	t.Parallel()

	raw, err := frame.Encode(0xA1, 0x01, nil)
	require.NoError(t, err)
	require.Len(t, raw, 6)

	report := buildReport(raw)
	assert.Len(t, report, reportSize+1)
	assert.Equal(t, byte(reportID), report[0])
	assert.Equal(t, raw, report[1:1+len(raw)])
	for i := 1 + len(raw); i < len(report); i++ {
		assert.Zero(t, report[i], "pad byte %d", i)
	}
}

func TestWritePadsFrameToFullReport(t *testing.T) {
	t.Parallel()

	tr, dev := fakeTransport()

	raw, err := frame.Encode(0xA1, 0x02, nil)
	require.NoError(t, err)
	require.NoError(t, tr.Write(raw))

	require.Len(t, dev.writes, 1)
	report := dev.writes[0]
	require.Len(t, report, reportSize+1)
	assert.Equal(t, byte(reportID), report[0])
	assert.Equal(t, raw, report[1:1+len(raw)])
	for i := 1 + len(raw); i < len(report); i++ {
		assert.Zero(t, report[i], "pad byte %d", i)
	}
}

func TestWriteRejectsOversizedFrame(t *testing.T) {
	t.Parallel()

	tr, dev := fakeTransport()

	err := tr.Write(make([]byte, reportSize+1))
	require.Error(t, err)
	assert.ErrorIs(t, err, infinity.ErrPayloadTooLarge)
	assert.Empty(t, dev.writes)
}

func TestWriteAfterCloseFails(t *testing.T) {
	t.Parallel()

	tr, dev := fakeTransport()
	require.NoError(t, tr.Close())

	err := tr.Write([]byte{0x00, 0xFF, 0x02, 0xA1, 0x01, 0xA3})
	assert.ErrorIs(t, err, infinity.ErrTransportClosed)
	assert.True(t, dev.closed)
}

func TestReadTimeoutReturnsEmpty(t *testing.T) {
	t.Parallel()

	tr, _ := fakeTransport()

	data, err := tr.Read(reportSize, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestReadReturnsReport(t *testing.T) {
	t.Parallel()

	tr, dev := fakeTransport()
	dev.reads = append(dev.reads, []byte{0xAA, 0x02, 0x01, 0x00, 0xAD})

	data, err := tr.Read(reportSize, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0x02, 0x01, 0x00, 0xAD}, data)
}

func TestReadClampsToMaxLen(t *testing.T) {
	t.Parallel()

	tr, dev := fakeTransport()
	dev.reads = append(dev.reads, make([]byte, reportSize))

	data, err := tr.Read(4, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Len(t, data, 4)
}

func TestFatalDeviceErrorMarksDisconnected(t *testing.T) {
	t.Parallel()

	tr, dev := fakeTransport()
	dev.readErr = syscall.ENODEV

	_, err := tr.Read(reportSize, 10*time.Millisecond)
	require.Error(t, err)
	assert.True(t, infinity.IsFatal(err))
	assert.False(t, tr.IsConnected())

	var terr *infinity.TransportError
	require.True(t, errors.As(err, &terr))
	assert.False(t, terr.Retryable)
}

func TestTransientWriteErrorStaysConnected(t *testing.T) {
	t.Parallel()

	tr, dev := fakeTransport()
	dev.writeErr = errors.New("report dropped")

	err := tr.Write([]byte{0x00, 0xFF, 0x02, 0xA1, 0x01, 0xA3})
	require.Error(t, err)
	assert.ErrorIs(t, err, infinity.ErrTransportWrite)
	assert.True(t, tr.IsConnected())
	assert.True(t, infinity.IsRetryable(err))
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	tr, _ := fakeTransport()
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	assert.False(t, tr.IsConnected())
}
