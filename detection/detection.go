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

// Package detection locates Infinity bases on the USB HID bus.
package detection

import (
	"errors"
	"fmt"

	"github.com/sstallion/go-hid"
)

// The base enumerates as a generic HID device under a Disney
// Interactive vendor id.
const (
	// VendorID is the USB vendor id of the Infinity base
	VendorID uint16 = 0x0E6F
	// ProductID is the USB product id of the Infinity base
	ProductID uint16 = 0x0129
)

// DeviceInfo describes a detected Infinity base
type DeviceInfo struct {
	// Platform-specific HID path, suitable for opening the device
	Path string
	// Human-readable strings from the USB descriptor
	Manufacturer string
	Product      string
	// Serial number, often empty on these bases
	Serial string
	// USB ids, echoed for logging
	VendorID  uint16
	ProductID uint16
}

// String returns a human-readable representation of the device
func (d DeviceInfo) String() string {
	return fmt.Sprintf("%04x:%04x at %s", d.VendorID, d.ProductID, d.Path)
}

// Options configures detection behavior
type Options struct {
	// Device paths to explicitly ignore
	IgnorePaths []string
	// USB ids to match; zero values fall back to the Infinity base ids
	VendorID  uint16
	ProductID uint16
}

// DefaultOptions returns detection options matching the Infinity base
func DefaultOptions() Options {
	return Options{
		VendorID:  VendorID,
		ProductID: ProductID,
	}
}

// ErrNoDevicesFound indicates no Infinity bases were detected
var ErrNoDevicesFound = errors.New("no Infinity bases found")

// Detect enumerates the HID bus and returns all matching bases. An
// empty result is not an error; callers decide whether absence is
// fatal.
func Detect(opts *Options) ([]DeviceInfo, error) {
	vid, pid := opts.VendorID, opts.ProductID
	if vid == 0 {
		vid = VendorID
	}
	if pid == 0 {
		pid = ProductID
	}

	var devices []DeviceInfo
	err := hid.Enumerate(vid, pid, func(info *hid.DeviceInfo) error {
		if isPathIgnored(info.Path, opts.IgnorePaths) {
			return nil
		}
		devices = append(devices, DeviceInfo{
			Path:         info.Path,
			Manufacturer: info.MfrStr,
			Product:      info.ProductStr,
			Serial:       info.SerialNbr,
			VendorID:     info.VendorID,
			ProductID:    info.ProductID,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("HID enumeration failed: %w", err)
	}

	return devices, nil
}

// DetectFirst returns the first matching base, or ErrNoDevicesFound
func DetectFirst(opts *Options) (DeviceInfo, error) {
	devices, err := Detect(opts)
	if err != nil {
		return DeviceInfo{}, err
	}
	if len(devices) == 0 {
		return DeviceInfo{}, ErrNoDevicesFound
	}
	return devices[0], nil
}

func isPathIgnored(path string, ignorePaths []string) bool {
	for _, ignored := range ignorePaths {
		if path == ignored {
			return true
		}
	}
	return false
}
