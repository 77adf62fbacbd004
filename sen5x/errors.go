// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sen5x

import (
	"errors"
	"fmt"
)

var (
	// ErrChecksum matches any *ChecksumError.
	ErrChecksum = errors.New("sen5x: checksum mismatch")
	// ErrInvalidState matches any *StateError.
	ErrInvalidState = errors.New("sen5x: command not allowed in current state")
)

// TransportError wraps a failure of the underlying I²C bus.
type TransportError struct {
	Command Command
	// Op is "write" or "read".
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("sen5x: %s %s: %v", e.Command, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ChecksumError is returned when a response word fails validation. Err holds
// the validator's error, a *common.CRCError with the default validator.
type ChecksumError struct {
	Command Command
	Err     error
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("sen5x: %s: %v", e.Command, e.Err)
}

func (e *ChecksumError) Unwrap() error {
	return e.Err
}

func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksum
}

// StateError is returned when a command is not permitted while the sensor
// is in measurement mode. Nothing is sent to the bus.
type StateError struct {
	Command Command
	Running bool
}

func (e *StateError) Error() string {
	return fmt.Sprintf("sen5x: %s not allowed while measuring", e.Command)
}

func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}
