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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryResolveDeliversPayload(t *testing.T) {
	t.Parallel()

	reg := newRequestRegistry()
	pending, err := reg.register(7)
	require.NoError(t, err)

	assert.True(t, reg.resolve(7, []byte{0x00, 0xAB}))
	assert.Equal(t, []byte{0x00, 0xAB}, <-pending.result)
	assert.Equal(t, 0, reg.outstanding())
}

func TestRegistryDuplicateSequence(t *testing.T) {
	t.Parallel()

	reg := newRequestRegistry()
	_, err := reg.register(42)
	require.NoError(t, err)

	_, err = reg.register(42)
	assert.ErrorIs(t, err, ErrDuplicateSequence)

	// The original registration is untouched by the rejected one
	assert.True(t, reg.resolve(42, nil))
}

func TestRegistryResolveUnknownSequence(t *testing.T) {
	t.Parallel()

	reg := newRequestRegistry()
	assert.False(t, reg.resolve(99, []byte{0x00}), "stale responses are dropped")
}

func TestRegistryResolveExactlyOnce(t *testing.T) {
	t.Parallel()

	reg := newRequestRegistry()
	_, err := reg.register(5)
	require.NoError(t, err)

	assert.True(t, reg.resolve(5, []byte{0x01}))
	assert.False(t, reg.resolve(5, []byte{0x02}), "second response for the same id is stale")
}

func TestRegistryCancelDropsLateResponse(t *testing.T) {
	t.Parallel()

	reg := newRequestRegistry()
	pending, err := reg.register(11)
	require.NoError(t, err)

	reg.cancel(11)
	assert.Equal(t, 0, reg.outstanding())
	assert.False(t, reg.resolve(11, []byte{0x00}), "response after cancel must not be delivered")

	select {
	case payload := <-pending.result:
		t.Fatalf("cancelled request received payload % X", payload)
	default:
	}
}

func TestRegistryCancelUnknownSequence(t *testing.T) {
	t.Parallel()

	reg := newRequestRegistry()
	reg.cancel(200) // no-op
	assert.Equal(t, 0, reg.outstanding())
}
