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
	"strings"
	"testing"
)

func TestFormatHexBytes(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{name: "empty", data: nil, want: "(empty)"},
		{name: "short", data: []byte{0x00, 0xFF, 0xA1}, want: "00 FF A1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatHexBytes(tt.data)
			if got != tt.want {
				t.Errorf("formatHexBytes() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatHexBytesTruncates(t *testing.T) {
	got := formatHexBytes(make([]byte, 64))
	if !strings.Contains(got, "...") {
		t.Errorf("long data should be truncated, got %q", got)
	}
	if strings.Count(got, "00") != 32 {
		t.Errorf("expected 32 bytes before truncation, got %q", got)
	}
}

func TestSetDebugEnabled(t *testing.T) {
	prev := debugEnabled
	defer SetDebugEnabled(prev)

	SetDebugEnabled(true)
	if !debugEnabled {
		t.Error("SetDebugEnabled(true) had no effect")
	}
	SetDebugEnabled(false)
	if debugEnabled {
		t.Error("SetDebugEnabled(false) had no effect")
	}
}
