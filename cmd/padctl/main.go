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

// Command padctl monitors an Infinity base: it lights the pads, prints
// tag placements and removals as they happen, and recolors the pads by
// how many tags are present.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	infinity "github.com/ToyPadProject/go-infinity"
	"github.com/ToyPadProject/go-infinity/transport/hid"
	"github.com/ToyPadProject/go-infinity/transport/serial"
)

type config struct {
	devicePath string
	useSerial  bool
	debug      bool
}

// Package-level flag variables
var (
	flagDevicePath string
	flagUseSerial  bool
	flagDebug      bool
)

func init() {
	flag.StringVar(&flagDevicePath, "device", "", "Device path (auto-detect if empty)")
	flag.BoolVar(&flagUseSerial, "serial", false, "Treat -device as a serial port (emulated base)")
	flag.BoolVar(&flagDebug, "debug", false, "Enable debug output")
}

func parseConfig() *config {
	cfg := &config{
		devicePath: flagDevicePath,
		useSerial:  flagUseSerial,
		debug:      flagDebug,
	}

	if cfg.debug {
		infinity.SetDebugEnabled(true)
	}

	return cfg
}

func connectToBase(ctx context.Context, cfg *config) (*infinity.Device, error) {
	var connectOpts []infinity.ConnectOption

	switch {
	case cfg.devicePath == "":
		connectOpts = append(connectOpts,
			infinity.WithAutoDetection(),
			infinity.WithTransportFromDeviceFactory(hid.FromDevice))
		if cfg.debug {
			_, _ = fmt.Println("Auto-detecting Infinity bases...")
		}
	case cfg.useSerial:
		connectOpts = append(connectOpts, infinity.WithTransportFactory(serial.Factory))
	default:
		connectOpts = append(connectOpts, infinity.WithTransportFactory(hid.Factory))
	}

	device, err := infinity.ConnectDevice(ctx, cfg.devicePath, connectOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Infinity base: %w", err)
	}

	return device, nil
}

// colorForCount maps the number of tags on the base to a pad color
func colorForCount(count int) infinity.Color {
	switch {
	case count == 0:
		return infinity.ColorOff
	case count == 1:
		return infinity.Color{B: 200}
	case count == 2:
		return infinity.Color{G: 56}
	default:
		return infinity.Color{R: 200}
	}
}

// tagMonitor recolors the pads and dumps block 0 whenever a tag lands
type tagMonitor struct {
	device *infinity.Device
}

func (m *tagMonitor) OnTagChange(ctx context.Context, event *infinity.TagChangeEvent) error {
	if event.Removed {
		_, _ = fmt.Printf("Tag removed: %s\n", event.Tag)
	} else {
		_, _ = fmt.Printf("Tag placed: %s\n", event.Tag)

		if block, err := m.device.ReadTagBlock(ctx, event.Tag, 0, 0); err != nil {
			_, _ = fmt.Printf("  block 0 read failed: %v\n", err)
		} else {
			_, _ = fmt.Printf("  block 0: % X\n", block)
		}
	}

	tags, err := m.device.ListTagSlots(ctx)
	if err != nil {
		return fmt.Errorf("list tag slots: %w", err)
	}
	if err := m.device.FadeColor(ctx, infinity.PadAll, colorForCount(len(tags))); err != nil {
		return fmt.Errorf("fade color: %w", err)
	}
	return nil
}

// startupSweep flashes each pad so the user can tell the base is live
func startupSweep(ctx context.Context, device *infinity.Device) error {
	colors := []infinity.Color{infinity.ColorRed, infinity.ColorGreen, infinity.ColorBlue}
	for pad := infinity.PadRound; pad <= infinity.PadHexRight; pad++ {
		if err := device.SetColor(ctx, pad, colors[pad-1]); err != nil {
			return fmt.Errorf("set color on pad %d: %w", pad, err)
		}
		time.Sleep(200 * time.Millisecond)
	}
	return device.FadeColor(ctx, infinity.PadAll, infinity.ColorOff)
}

func run(ctx context.Context, cfg *config) error {
	device, err := connectToBase(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := device.Close(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to close device: %v\n", err)
		}
	}()

	if err := startupSweep(ctx, device); err != nil {
		return err
	}

	device.AddObserver(&tagMonitor{device: device})

	// Report anything already on the base before events start flowing
	tags, err := device.GetAllTags(ctx)
	if err != nil {
		return fmt.Errorf("initial tag scan: %w", err)
	}
	for platform, platformTags := range tags {
		for _, tag := range platformTags {
			_, _ = fmt.Printf("Already present (platform %d): %s\n", platform, tag)
		}
	}

	_, _ = fmt.Println("Monitoring tag changes. Press Ctrl+C to stop...")
	<-ctx.Done()
	return ctx.Err()
}

func main() {
	flag.Parse()
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	cfg := parseConfig()

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		_, _ = fmt.Print("\nShutting down gracefully...\n")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
