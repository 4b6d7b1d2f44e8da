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
	"sync"
	"sync/atomic"
	"time"

	"github.com/ToyPadProject/go-infinity/internal/frame"
	"github.com/ToyPadProject/go-infinity/internal/syncutil"
)

const (
	// readBufferSize is the maximum inbound packet size requested from
	// the transport per read (the base uses 32-byte reports)
	readBufferSize = frame.ReportLength

	// readTimeout bounds each blocking read so the loop can notice a
	// stop signal between packets
	readTimeout = 250 * time.Millisecond
)

// Comms is the request/response correlation engine for one base
// connection. It owns the single read-loop goroutine consuming the
// transport's inbound stream, the sequence allocator, the in-flight
// request registry and the event dispatcher. All sends funnel through a
// write mutex so concurrent callers never interleave partial frames.
type Comms struct {
	transport  Transport
	registry   *requestRegistry
	dispatcher *eventDispatcher
	stopChan   chan struct{}
	seq        sequenceAllocator
	writeMu    syncutil.Mutex
	wg         sync.WaitGroup
	running    atomic.Bool
}

// NewComms creates a correlation engine on top of transport. The read
// loop does not run until Start.
func NewComms(transport Transport) *Comms {
	return &Comms{
		transport:  transport,
		registry:   newRequestRegistry(),
		dispatcher: &eventDispatcher{},
		stopChan:   make(chan struct{}, 1),
	}
}

// Start launches the read loop. Safe to call more than once; only the
// first call starts a goroutine.
func (c *Comms) Start() {
	if c.running.CompareAndSwap(false, true) {
		// A stop signal may be left over when the previous loop died on
		// a fatal transport error before consuming it
		select {
		case <-c.stopChan:
		default:
		}
		c.wg.Add(1)
		go c.readLoop()
	}
}

// Stop signals the read loop and waits for it to exit. In-flight
// requests are not cancelled; their callers' contexts time them out.
func (c *Comms) Stop() {
	select {
	case c.stopChan <- struct{}{}:
	default:
	}
	c.wg.Wait()
}

// Running reports whether the read loop is active
func (c *Comms) Running() bool {
	return c.running.Load()
}

// AddObserver registers an observer for tag-change events. Observers are
// notified in registration order.
func (c *Comms) AddObserver(obs TagObserver) {
	c.dispatcher.addObserver(obs)
}

// SendMessage builds a command frame, writes it under the write mutex
// and blocks until the matching response arrives or ctx is done.
// Cancellation deregisters the pending entry so a late response for this
// id is dropped rather than misdelivered.
func (c *Comms) SendMessage(ctx context.Context, command byte, payload []byte) ([]byte, error) {
	if !c.running.Load() {
		return nil, ErrNotConnected
	}

	seq := c.seq.Next()
	pending, err := c.registry.register(seq)
	if err != nil {
		return nil, fmt.Errorf("command 0x%02X: %w", command, err)
	}

	data, err := frame.Encode(command, seq, payload)
	if err != nil {
		c.registry.cancel(seq)
		if errors.Is(err, frame.ErrPayloadTooLarge) {
			return nil, fmt.Errorf("command 0x%02X: %w", command, ErrPayloadTooLarge)
		}
		return nil, fmt.Errorf("command 0x%02X: %w", command, err)
	}

	c.writeMu.Lock()
	err = c.transport.Write(data)
	c.writeMu.Unlock()
	if err != nil {
		c.registry.cancel(seq)
		return nil, NewTransportWriteError("SendMessage", "", err)
	}

	select {
	case result := <-pending.result:
		return result, nil
	case <-ctx.Done():
		c.registry.cancel(seq)
		return nil, fmt.Errorf("command 0x%02X: %w", command, ctx.Err())
	}
}

// readLoop is the single consumer of the transport's inbound stream. It
// classifies each packet and routes responses to the registry and events
// to the dispatcher. Malformed or unmatched frames are logged and
// dropped; only a stop signal or a fatal transport error ends the loop.
func (c *Comms) readLoop() {
	defer func() {
		c.running.Store(false)
		c.wg.Done()
	}()

	for {
		select {
		case <-c.stopChan:
			return
		default:
		}

		data, err := c.transport.Read(readBufferSize, readTimeout)
		if err != nil {
			if IsFatal(err) {
				Debugf("read loop stopping: %v", err)
				return
			}
			Debugf("transport read error: %v", err)
			continue
		}
		if len(data) == 0 {
			// Timed out with nothing pending on the wire; re-poll
			continue
		}

		c.route(frame.Decode(data))
	}
}

// route hands one decoded frame to its destination
func (c *Comms) route(decoded frame.Decoded) {
	switch decoded.Kind {
	case frame.KindResponse:
		if !c.registry.resolve(decoded.SequenceID, decoded.Payload) {
			Debugf("dropping response for unknown sequence id %d", decoded.SequenceID)
		}
	case frame.KindEvent:
		event := &TagChangeEvent{
			Tag: &Tag{
				Platform: int(decoded.Platform),
				Slot:     int(decoded.Slot),
				SAK:      decoded.SAK,
			},
			Removed: decoded.Removed,
		}
		// Observers may send commands of their own, which need the read
		// loop free to deliver their responses; dispatching inline would
		// deadlock the loop against its own response traffic.
		go c.dispatcher.dispatch(context.Background(), event)
	case frame.KindUnknown:
		Debugf("unrecognized frame: %s", formatHexBytes(decoded.Payload))
	}
}
