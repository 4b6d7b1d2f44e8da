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
	"errors"
	"fmt"
	"io"
	"runtime"
	"syscall"
)

// Error categories for error handling and retry logic
var (
	// Transport errors - potentially retryable
	ErrTransportTimeout = errors.New("transport timeout")
	ErrTransportWrite   = errors.New("transport write failed")
	ErrTransportRead    = errors.New("transport read failed")
	ErrTransportClosed  = errors.New("transport is closed")

	// Protocol errors
	ErrPayloadTooLarge   = errors.New("command payload too large")
	ErrDuplicateSequence = errors.New("sequence id already has a pending request")
	ErrResponseTooShort  = errors.New("response payload too short")

	// Device errors - generally not retryable
	ErrDeviceNotFound = errors.New("no Infinity base found")
	ErrNotConnected   = errors.New("device not connected")

	// Data errors - not retryable
	ErrInvalidBlockSize = errors.New("tag block data must be exactly 16 bytes")
	ErrInvalidPad       = errors.New("pad number out of range")
)

// StatusCode is a device status byte from the first position of a
// response payload.
type StatusCode byte

// Known status codes reported by the base
const (
	// StatusSuccess indicates the operation completed
	StatusSuccess StatusCode = 0x00
	// StatusNoSuchTag indicates the referenced slot holds no tag
	StatusNoSuchTag StatusCode = 0x80
	// StatusTagIOError indicates a read/write failure at the tag
	StatusTagIOError StatusCode = 0x82
	// StatusTagAuthUnsupported indicates the tag rejected authentication
	StatusTagAuthUnsupported StatusCode = 0x83
)

// statusCodeMeaning returns a human-readable meaning for base status
// bytes. Codes outside the known set are reported, not rejected.
func statusCodeMeaning(code StatusCode) string {
	switch code {
	case StatusSuccess:
		return "success"
	case StatusNoSuchTag:
		return "no such tag"
	case StatusTagIOError:
		return "tag I/O error"
	case StatusTagAuthUnsupported:
		return "tag authentication unsupported"
	default:
		return "unknown status"
	}
}

// IsKnown reports whether the code is part of the documented status set.
func (c StatusCode) IsKnown() bool {
	switch c {
	case StatusSuccess, StatusNoSuchTag, StatusTagIOError, StatusTagAuthUnsupported:
		return true
	default:
		return false
	}
}

// StatusError wraps a non-success device status byte with the command
// that produced it. Unknown codes are carried verbatim so callers can
// decide whether they are fatal.
type StatusError struct {
	Command string
	Code    StatusCode
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status 0x%02X (%s)", e.Command, byte(e.Code), statusCodeMeaning(e.Code))
}

// IsNoSuchTag returns true if the status indicates an empty slot
func (e *StatusError) IsNoSuchTag() bool {
	return e.Code == StatusNoSuchTag
}

// IsTagIOError returns true if the status indicates a tag I/O failure
func (e *StatusError) IsTagIOError() bool {
	return e.Code == StatusTagIOError
}

// NewStatusError creates a StatusError for the given command and raw
// status byte.
func NewStatusError(command string, code byte) *StatusError {
	return &StatusError{Command: command, Code: StatusCode(code)}
}

// statusToError maps a raw status byte to nil (success) or a typed
// StatusError for the named command.
func statusToError(command string, code byte) error {
	if StatusCode(code) == StatusSuccess {
		return nil
	}
	return NewStatusError(command, code)
}

// ErrorType represents the category of error for retry logic
type ErrorType int

const (
	// ErrorTypeTransient indicates a potentially retryable error
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent indicates a non-retryable error
	ErrorTypePermanent
	// ErrorTypeTimeout indicates a timeout error (special handling)
	ErrorTypeTimeout
)

// TransportError wraps transport-level errors with additional context
type TransportError struct {
	Err       error     // Underlying error
	Op        string    // Operation that failed
	Port      string    // Port or device identifier
	Type      ErrorType // Error category
	Retryable bool      // Whether the error is retryable
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a transport error with consistent formatting
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewTimeoutError creates a timeout error for transport operations
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// NewTransportWriteError creates a write error (transient)
func NewTransportWriteError(op, port string, err error) *TransportError {
	return NewTransportError(op, port, fmt.Errorf("%w: %w", ErrTransportWrite, err), ErrorTypeTransient)
}

// NewTransportReadError creates a read error (transient)
func NewTransportReadError(op, port string, err error) *TransportError {
	return NewTransportError(op, port, fmt.Errorf("%w: %w", ErrTransportRead, err), ErrorTypeTransient)
}

// IsRetryable returns true if the error is potentially retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite):
		return true
	default:
		return false
	}
}

// IsFatal returns true if the error indicates the base/connection is gone
// and the read loop should stop entirely. This is distinct from
// IsRetryable which indicates whether a single operation can be retried.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type == ErrorTypePermanent
	}

	if isDeviceGoneError(err) {
		return true
	}

	switch {
	case errors.Is(err, ErrTransportClosed),
		errors.Is(err, ErrDeviceNotFound),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe):
		return true
	default:
		return false
	}
}

// Windows error codes for device disconnection detection. Defined here
// because they're not available on non-Windows platforms.
const (
	errAccessDenied syscall.Errno = 5   // ERROR_ACCESS_DENIED
	errGenFailure   syscall.Errno = 31  // ERROR_GEN_FAILURE
	errNoSuchDevice syscall.Errno = 433 // ERROR_NO_SUCH_DEVICE
)

// isDeviceGoneError checks for OS-level errors indicating device
// disconnection. These occur when the base is unplugged mid-operation.
func isDeviceGoneError(err error) bool {
	if err == nil {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		// Unix device-gone errors (Linux, macOS, BSD)
		//nolint:exhaustive // Only checking specific device-gone errors, not all errno values
		switch errno {
		case syscall.EIO, syscall.ENXIO, syscall.ENODEV:
			return true
		}

		if runtime.GOOS == "windows" {
			//nolint:exhaustive // Only checking specific device-gone errors, not all errno values
			switch errno {
			case errAccessDenied, errGenFailure, errNoSuchDevice:
				return true
			}
		}
	}

	return false
}
