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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ToyPadProject/go-infinity/detection"
)

// DeviceConfig contains configuration options for the Device
type DeviceConfig struct {
	// RetryConfig configures retry behavior for connection attempts
	RetryConfig *RetryConfig
	// Timeout is the default timeout applied to operations whose
	// context carries no deadline
	Timeout time.Duration
}

// DefaultDeviceConfig returns default device configuration
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		RetryConfig: DefaultRetryConfig(),
		Timeout:     1 * time.Second,
	}
}

// Option is a functional option for New
type Option func(*Device) error

// WithTimeout sets the default operation timeout
func WithTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", timeout)
		}
		d.config.Timeout = timeout
		return nil
	}
}

// WithRetryConfig sets the retry configuration for connection attempts
func WithRetryConfig(config *RetryConfig) Option {
	return func(d *Device) error {
		d.config.RetryConfig = config
		return nil
	}
}

// Device is the public controller for one Infinity base. It owns a Comms
// engine (registry, allocator, dispatcher) per physical connection.
//
// All operations are safe for concurrent use: sends are serialized at
// the frame level and responses are correlated by sequence id, so
// callers on different goroutines share the device freely.
type Device struct {
	comms     *Comms
	transport Transport
	config    *DeviceConfig
}

// New creates a new Infinity base device on the given transport. The
// device is inert until Connect starts the read loop and performs the
// activation handshake.
func New(transport Transport, opts ...Option) (*Device, error) {
	device := &Device{
		transport: transport,
		comms:     NewComms(transport),
		config:    DefaultDeviceConfig(),
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	return device, nil
}

// Transport returns the underlying transport
func (d *Device) Transport() Transport {
	return d.transport
}

// Comms returns the underlying correlation engine
func (d *Device) Comms() *Comms {
	return d.comms
}

// AddObserver registers an observer for tag-change events. Observers
// are notified in registration order; they may issue device operations
// from their handlers.
func (d *Device) AddObserver(obs TagObserver) {
	d.comms.AddObserver(obs)
}

// Connect starts the read loop and performs the activation handshake.
// The base raises no tag events and answers no tag commands until
// activated.
func (d *Device) Connect(ctx context.Context) error {
	d.comms.Start()
	if err := d.Activate(ctx); err != nil {
		d.comms.Stop()
		if errors.Is(err, context.DeadlineExceeded) {
			// A base that was just plugged in can miss the first
			// handshake; report it as a timeout so retry loops act on it
			return NewTimeoutError("Activate", "")
		}
		return fmt.Errorf("activation failed: %w", err)
	}
	return nil
}

// Close stops the read loop and closes the transport. Pending requests
// are left to their callers' contexts; see Comms.Stop.
func (d *Device) Close() error {
	d.comms.Stop()
	if d.transport != nil {
		if err := d.transport.Close(); err != nil {
			return fmt.Errorf("failed to close transport: %w", err)
		}
	}
	return nil
}

// opContext applies the configured default timeout when the caller's
// context has no deadline of its own.
func (d *Device) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.config.Timeout)
}

// Activate sends the fixed handshake that unlocks the base. Only the
// acknowledgement matters; the response carries no fields we use.
func (d *Device) Activate(ctx context.Context) error {
	ctx, cancel := d.opContext(ctx)
	defer cancel()

	if _, err := d.comms.SendMessage(ctx, cmdActivate, activatePayload); err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	return nil
}

// ListTagSlots returns the tags currently held by the base, without
// UIDs. The response payload is a sequence of two-byte entries: a packed
// platform/slot byte and the tag's SAK. Entries whose platform nibble is
// zero are empty-slot sentinels (pads are numbered 1-3) and are skipped.
func (d *Device) ListTagSlots(ctx context.Context) ([]*Tag, error) {
	ctx, cancel := d.opContext(ctx)
	defer cancel()

	data, err := d.comms.SendMessage(ctx, cmdListTagSlots, nil)
	if err != nil {
		return nil, fmt.Errorf("list tag slots: %w", err)
	}

	tags := make([]*Tag, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		if data[i]>>4 == 0 {
			continue
		}
		tags = append(tags, tagFromIndexPair(data[i], data[i+1]))
	}
	return tags, nil
}

// LoadTagUID asks the base for the UID of the tag in tag's slot and
// populates tag.UID. A NoSuchTag status leaves the UID unset and returns
// a *StatusError.
func (d *Device) LoadTagUID(ctx context.Context, tag *Tag) error {
	ctx, cancel := d.opContext(ctx)
	defer cancel()

	data, err := d.comms.SendMessage(ctx, cmdLoadTagUID, []byte{byte(tag.Slot)})
	if err != nil {
		return fmt.Errorf("load tag UID: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("load tag UID: %w", ErrResponseTooShort)
	}
	if err := statusToError("LoadTagUID", data[0]); err != nil {
		return err
	}

	tag.UID = append([]byte(nil), data[1:]...)
	return nil
}

// GetAllTags lists all held tags, loads each UID, and groups the tags by
// platform. Per-tag UID failures (a tag lifted between the listing and
// the UID request, say) are logged and do not abort the bulk operation;
// the affected tag is returned with its UID unset.
func (d *Device) GetAllTags(ctx context.Context) (map[int][]*Tag, error) {
	tags, err := d.ListTagSlots(ctx)
	if err != nil {
		return nil, err
	}

	byPlatform := make(map[int][]*Tag, len(tags))
	for _, tag := range tags {
		if err := d.LoadTagUID(ctx, tag); err != nil {
			Debugf("skipping UID for %s: %v", tag, err)
		}
		byPlatform[tag.Platform] = append(byPlatform[tag.Platform], tag)
	}
	return byPlatform, nil
}

// ReadTagBlock reads one 16-byte block from the tag. The block actually
// read is (sector * 4) + offset; the base imposes no artificial limits
// on either parameter, so sector=0 offset=14 addresses the same block as
// sector=3 offset=2.
func (d *Device) ReadTagBlock(ctx context.Context, tag *Tag, sector, offset byte) ([]byte, error) {
	ctx, cancel := d.opContext(ctx)
	defer cancel()

	data, err := d.comms.SendMessage(ctx, cmdReadBlock, []byte{byte(tag.Slot), sector, offset})
	if err != nil {
		return nil, fmt.Errorf("read tag block: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("read tag block: %w", ErrResponseTooShort)
	}
	if err := statusToError("ReadTagBlock", data[0]); err != nil {
		return nil, err
	}
	return data[1:], nil
}

// WriteTagBlock writes one block to the tag; data must be exactly 16
// bytes. Addressing is identical to ReadTagBlock.
func (d *Device) WriteTagBlock(ctx context.Context, tag *Tag, sector byte, data []byte, offset byte) error {
	if len(data) != tagBlockSize {
		return fmt.Errorf("%w: got %d", ErrInvalidBlockSize, len(data))
	}

	ctx, cancel := d.opContext(ctx)
	defer cancel()

	payload := make([]byte, 0, 3+tagBlockSize)
	payload = append(payload, byte(tag.Slot), sector, offset)
	payload = append(payload, data...)

	resp, err := d.comms.SendMessage(ctx, cmdWriteBlock, payload)
	if err != nil {
		return fmt.Errorf("write tag block: %w", err)
	}
	if len(resp) == 0 {
		return fmt.Errorf("write tag block: %w", ErrResponseTooShort)
	}
	return statusToError("WriteTagBlock", resp[0])
}

// checkPad validates a pad number for LED commands
func checkPad(pad int) error {
	if pad < PadAll || pad > PadHexRight {
		return fmt.Errorf("%w: %d", ErrInvalidPad, pad)
	}
	return nil
}

// SetColor sets a pad's LED to a solid color immediately. Pad 0
// addresses all pads at once. Awaits the device acknowledgement.
func (d *Device) SetColor(ctx context.Context, pad int, c Color) error {
	if err := checkPad(pad); err != nil {
		return err
	}

	ctx, cancel := d.opContext(ctx)
	defer cancel()

	if _, err := d.comms.SendMessage(ctx, cmdSetColor, []byte{byte(pad), c.R, c.G, c.B}); err != nil {
		return fmt.Errorf("set color: %w", err)
	}
	return nil
}

// FadeColor fades a pad's LED to a color. Timing is in raw device units
// of 1/16 second per tick; see WithFadeSpeed and WithFadeCount for the
// defaults.
func (d *Device) FadeColor(ctx context.Context, pad int, c Color, opts ...LightOption) error {
	if err := checkPad(pad); err != nil {
		return err
	}
	cfg := defaultLightConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := d.opContext(ctx)
	defer cancel()

	payload := []byte{byte(pad), cfg.fadeSpeed, cfg.fadeCount, c.R, c.G, c.B}
	if _, err := d.comms.SendMessage(ctx, cmdFadeColor, payload); err != nil {
		return fmt.Errorf("fade color: %w", err)
	}
	return nil
}

// FlashColor flashes a pad's LED. On/off durations are raw device ticks
// (1/16 s); see WithFlashTiming for the defaults.
func (d *Device) FlashColor(ctx context.Context, pad int, c Color, opts ...LightOption) error {
	if err := checkPad(pad); err != nil {
		return err
	}
	cfg := defaultLightConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := d.opContext(ctx)
	defer cancel()

	payload := []byte{byte(pad), cfg.flashOn, cfg.flashOff, cfg.flashPulses, c.R, c.G, c.B}
	if _, err := d.comms.SendMessage(ctx, cmdFlashColor, payload); err != nil {
		return fmt.Errorf("flash color: %w", err)
	}
	return nil
}

// FadeRandom fades a pad's LED through random colors chosen by the base
func (d *Device) FadeRandom(ctx context.Context, pad int, opts ...LightOption) error {
	if err := checkPad(pad); err != nil {
		return err
	}
	cfg := defaultLightConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := d.opContext(ctx)
	defer cancel()

	payload := []byte{byte(pad), cfg.fadeSpeed, cfg.fadeCount}
	if _, err := d.comms.SendMessage(ctx, cmdFadeRandom, payload); err != nil {
		return fmt.Errorf("fade random: %w", err)
	}
	return nil
}

// lightConfig holds raw-device-unit timing for the LED commands
type lightConfig struct {
	fadeSpeed   byte
	fadeCount   byte
	flashOn     byte
	flashOff    byte
	flashPulses byte
}

func defaultLightConfig() lightConfig {
	return lightConfig{
		fadeSpeed:   0x10, // one second per fade step
		fadeCount:   0x02,
		flashOn:     0x02,
		flashOff:    0x02,
		flashPulses: 0x06,
	}
}

// LightOption adjusts LED command timing
type LightOption func(*lightConfig)

// WithFadeSpeed sets the fade step length in 1/16-second ticks
// (default 0x10, one second).
func WithFadeSpeed(ticks byte) LightOption {
	return func(c *lightConfig) { c.fadeSpeed = ticks }
}

// WithFadeCount sets how many fade cycles run (default 0x02)
func WithFadeCount(count byte) LightOption {
	return func(c *lightConfig) { c.fadeCount = count }
}

// WithFlashTiming sets the on/off durations in 1/16-second ticks and the
// pulse count (defaults 0x02, 0x02, 0x06).
func WithFlashTiming(onTicks, offTicks, pulses byte) LightOption {
	return func(c *lightConfig) {
		c.flashOn = onTicks
		c.flashOff = offTicks
		c.flashPulses = pulses
	}
}

// TransportFactory is a function type for creating transports from a
// device path
type TransportFactory func(path string) (Transport, error)

// TransportFromDeviceFactory is a function type for creating transports
// from detected devices
type TransportFromDeviceFactory func(device detection.DeviceInfo) (Transport, error)

// ConnectOption represents a functional option for ConnectDevice
type ConnectOption func(*connectConfig) error

// connectConfig holds configuration options for device connection
type connectConfig struct {
	transportFactory       TransportFactory
	transportDeviceFactory TransportFromDeviceFactory
	deviceDetector         func(*detection.Options) ([]detection.DeviceInfo, error)
	deviceOptions          []Option
	connectionRetries      int
	autoDetect             bool
}

// WithAutoDetection enables automatic device detection instead of using
// a specific path
func WithAutoDetection() ConnectOption {
	return func(c *connectConfig) error {
		c.autoDetect = true
		return nil
	}
}

// WithDeviceOptions adds device-level options
func WithDeviceOptions(opts ...Option) ConnectOption {
	return func(c *connectConfig) error {
		c.deviceOptions = append(c.deviceOptions, opts...)
		return nil
	}
}

// WithTransportFactory sets the transport factory function
func WithTransportFactory(factory TransportFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.transportFactory = factory
		return nil
	}
}

// WithTransportFromDeviceFactory sets the transport from device factory
// function
func WithTransportFromDeviceFactory(factory TransportFromDeviceFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.transportDeviceFactory = factory
		return nil
	}
}

// WithConnectionRetries sets the number of connection retry attempts
func WithConnectionRetries(maxAttempts int) ConnectOption {
	return func(c *connectConfig) error {
		if maxAttempts < 1 {
			return fmt.Errorf("connection retries must be at least 1, got %d", maxAttempts)
		}
		c.connectionRetries = maxAttempts
		return nil
	}
}

// WithDeviceDetector sets a custom device detector function for
// auto-detection
func WithDeviceDetector(detector func(*detection.Options) ([]detection.DeviceInfo, error)) ConnectOption {
	return func(c *connectConfig) error {
		c.deviceDetector = detector
		return nil
	}
}

// ConnectDevice creates and connects an Infinity base from a path or
// auto-detection. This is a high-level convenience that handles
// transport creation, the read loop, and the activation handshake.
//
// Example usage:
//
//	// Connect to a specific HID path
//	device, err := infinity.ConnectDevice(path,
//		infinity.WithTransportFactory(hid.Factory))
//
//	// Auto-detect a base
//	device, err := infinity.ConnectDevice("",
//		infinity.WithAutoDetection(),
//		infinity.WithTransportFromDeviceFactory(hid.FromDevice))
func ConnectDevice(ctx context.Context, path string, opts ...ConnectOption) (*Device, error) {
	config, err := applyConnectOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to apply connect options: %w", err)
	}

	transport, err := createTransport(path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	device, err := connectWithRetry(ctx, transport, config)
	if err != nil {
		_ = transport.Close()
		return nil, err
	}

	return device, nil
}

func applyConnectOptions(opts []ConnectOption) (*connectConfig, error) {
	config := &connectConfig{
		connectionRetries: 3,
	}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

func createTransport(path string, config *connectConfig) (Transport, error) {
	if config.autoDetect || path == "" {
		return createAutoDetectedTransport(config)
	}
	if config.transportFactory == nil {
		return nil, errors.New("transport factory not provided")
	}
	transport, err := config.transportFactory(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport for path %s: %w", path, err)
	}
	return transport, nil
}

func createAutoDetectedTransport(config *connectConfig) (Transport, error) {
	opts := detection.DefaultOptions()

	var devices []detection.DeviceInfo
	var err error
	if config.deviceDetector != nil {
		devices, err = config.deviceDetector(&opts)
	} else {
		devices, err = detection.Detect(&opts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to detect devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, ErrDeviceNotFound
	}

	if config.transportDeviceFactory == nil {
		return nil, errors.New("transport device factory not provided")
	}
	return config.transportDeviceFactory(devices[0])
}

// connectWithRetry wraps Connect with retry logic for flaky enumeration
// right after plug-in
func connectWithRetry(ctx context.Context, transport Transport, config *connectConfig) (*Device, error) {
	device, err := New(transport, config.deviceOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	retryConfig := device.config.RetryConfig
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
	}
	attempt := *retryConfig
	attempt.MaxAttempts = config.connectionRetries

	err = RetryWithConfig(ctx, &attempt, func() error {
		return device.Connect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect after %d attempts: %w", config.connectionRetries, err)
	}

	return device, nil
}
