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

package infinity_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	infinity "github.com/ToyPadProject/go-infinity"
	"github.com/ToyPadProject/go-infinity/internal/basetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectedBase(t *testing.T) (*infinity.Device, *basetest.VirtualBase) {
	t.Helper()
	base := basetest.NewVirtualBase()
	device, err := infinity.New(base)
	require.NoError(t, err)
	require.NoError(t, device.Connect(context.Background()))
	t.Cleanup(func() {
		_ = device.Close()
	})
	return device, base
}

func TestVirtualBaseActivation(t *testing.T) {
	t.Parallel()

	_, base := connectedBase(t)
	assert.True(t, base.Activated, "Connect must run the activation handshake")
}

func TestVirtualBaseTagLifecycle(t *testing.T) {
	t.Parallel()

	device, base := connectedBase(t)

	events := make(chan *infinity.TagChangeEvent, 4)
	device.AddObserver(infinity.TagObserverFunc(func(_ context.Context, e *infinity.TagChangeEvent) error {
		events <- e
		return nil
	}))

	uid := []byte{0x04, 0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC}
	base.PlaceTag(basetest.NewVirtualTag(1, 2, 0x09, uid))

	select {
	case e := <-events:
		require.False(t, e.Removed)
		assert.Equal(t, 1, e.Tag.Platform)
		assert.Equal(t, 2, e.Tag.Slot)
	case <-time.After(2 * time.Second):
		t.Fatal("placement event never arrived")
	}

	byPlatform, err := device.GetAllTags(context.Background())
	require.NoError(t, err)
	require.Len(t, byPlatform[1], 1)
	assert.Equal(t, uid, byPlatform[1][0].UID)

	base.RemoveTag(2)
	select {
	case e := <-events:
		assert.True(t, e.Removed)
		assert.Equal(t, 2, e.Tag.Slot)
	case <-time.After(2 * time.Second):
		t.Fatal("removal event never arrived")
	}

	tags, err := device.ListTagSlots(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestVirtualBaseBlockReadWrite(t *testing.T) {
	t.Parallel()

	device, base := connectedBase(t)
	base.PlaceTag(basetest.NewVirtualTag(1, 1, 0x09, []byte{0x04, 0x01, 0x02}))

	tag := &infinity.Tag{Platform: 1, Slot: 1}
	ctx := context.Background()

	// Unwritten memory reads back zero-filled
	block, err := device.ReadTagBlock(ctx, tag, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 16), block)

	data := bytes.Repeat([]byte{0xC4}, 16)
	require.NoError(t, device.WriteTagBlock(ctx, tag, 1, data, 2))

	got, err := device.ReadTagBlock(ctx, tag, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// Sector/offset addressing is flat: sector*4+offset, so (0, 6)
	// names the same block as (1, 2)
	same, err := device.ReadTagBlock(ctx, tag, 0, 6)
	require.NoError(t, err)
	assert.Equal(t, data, same)
}

func TestVirtualBaseNoSuchTag(t *testing.T) {
	t.Parallel()

	device, _ := connectedBase(t)

	err := device.LoadTagUID(context.Background(), &infinity.Tag{Platform: 1, Slot: 5})
	var se *infinity.StatusError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.IsNoSuchTag())
}

func TestVirtualBaseReadFailure(t *testing.T) {
	t.Parallel()

	device, base := connectedBase(t)
	base.PlaceTag(basetest.NewVirtualTag(1, 1, 0x09, []byte{0x04}))
	base.FailNextReads(1)

	ctx := context.Background()
	tag := &infinity.Tag{Platform: 1, Slot: 1}

	_, err := device.ReadTagBlock(ctx, tag, 0, 0)
	var se *infinity.StatusError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.IsTagIOError())

	// The failure is transient; the next read succeeds
	_, err = device.ReadTagBlock(ctx, tag, 0, 0)
	assert.NoError(t, err)
}

func TestVirtualBaseLightCommands(t *testing.T) {
	t.Parallel()

	device, base := connectedBase(t)
	ctx := context.Background()

	require.NoError(t, device.SetColor(ctx, infinity.PadRound, infinity.Color{R: 200}))
	cmd, r, g, b := base.PadColor(infinity.PadRound)
	assert.Equal(t, byte(0x90), cmd)
	assert.Equal(t, [3]byte{200, 0, 0}, [3]byte{r, g, b})

	require.NoError(t, device.FadeColor(ctx, infinity.PadHexLeft, infinity.Color{B: 200}))
	cmd, _, _, b = base.PadColor(infinity.PadHexLeft)
	assert.Equal(t, byte(0x92), cmd)
	assert.Equal(t, byte(200), b)

	require.NoError(t, device.FlashColor(ctx, infinity.PadHexRight, infinity.Color{G: 56}))
	cmd, _, g, _ = base.PadColor(infinity.PadHexRight)
	assert.Equal(t, byte(0x93), cmd)
	assert.Equal(t, byte(56), g)

	// Pad 0 addresses every pad at once
	require.NoError(t, device.SetColor(ctx, infinity.PadAll, infinity.ColorOff))
	for pad := infinity.PadRound; pad <= infinity.PadHexRight; pad++ {
		_, r, g, b := base.PadColor(pad)
		assert.Equal(t, [3]byte{}, [3]byte{r, g, b}, "pad %d", pad)
	}
}

func TestVirtualBaseObserverReadsOnPlacement(t *testing.T) {
	t.Parallel()

	device, base := connectedBase(t)

	// The padctl pattern: an observer that issues requests from its
	// handler while the read loop keeps running.
	done := make(chan error, 1)
	device.AddObserver(infinity.TagObserverFunc(func(ctx context.Context, e *infinity.TagChangeEvent) error {
		if e.Removed {
			return nil
		}
		_, err := device.ReadTagBlock(ctx, e.Tag, 0, 0)
		done <- err
		return err
	}))

	base.PlaceTag(basetest.NewVirtualTag(2, 3, 0x09, []byte{0x04, 0x99}))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("observer read deadlocked")
	}
}
