// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sen5x

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Command is one of the operations supported by the driver.
type Command uint8

const (
	// StartMeasurement starts periodic measurement. New readings are
	// available once per second.
	StartMeasurement Command = iota
	// StopMeasurement returns the sensor to idle mode.
	StopMeasurement
	// GetReadDataReadyStatus reports whether a new reading can be read out.
	GetReadDataReadyStatus
	// GetSerialNumber reads the 48 bit factory serial number.
	GetSerialNumber
	// ReadMeasurement reads the last reading. The buffer is emptied upon
	// read-out.
	ReadMeasurement
	// Reinit reloads user settings from EEPROM.
	Reinit
	// StartFanCleaning runs the fan at maximum speed for 10 seconds. Only
	// possible in measurement mode.
	StartFanCleaning
)

// command is a row of the command table.
type command struct {
	name string
	// The 16-bit command word.
	cmdWord uint16
	// Execution time before the sensor accepts a read or the next command.
	delay time.Duration
	// True if this command is permitted while the sensor is measuring.
	whileRunning bool
}

var commands = [...]command{
	StartMeasurement:       {name: "StartMeasurement", cmdWord: 0x0021, delay: 50 * time.Millisecond},
	StopMeasurement:        {name: "StopMeasurement", cmdWord: 0x0104, delay: 200 * time.Millisecond, whileRunning: true},
	GetReadDataReadyStatus: {name: "GetReadDataReadyStatus", cmdWord: 0x0202, delay: 20 * time.Millisecond, whileRunning: true},
	GetSerialNumber:        {name: "GetSerialNumber", cmdWord: 0xd033, delay: 20 * time.Millisecond},
	ReadMeasurement:        {name: "ReadMeasurement", cmdWord: 0x03c4, delay: 20 * time.Millisecond, whileRunning: true},
	Reinit:                 {name: "Reinit", cmdWord: 0xd304, delay: 100 * time.Millisecond},
	StartFanCleaning:       {name: "StartFanCleaning", cmdWord: 0x5607, delay: 20 * time.Millisecond, whileRunning: true},
}

// Opcode returns the 16 bit command word sent to the sensor.
func (c Command) Opcode() uint16 {
	return commands[c].cmdWord
}

// Delay returns the time to wait after writing the command.
func (c Command) Delay() time.Duration {
	return commands[c].delay
}

// AllowedWhileRunning is true if the command may be sent during periodic
// measurement.
func (c Command) AllowedWhileRunning() bool {
	return commands[c].whileRunning
}

// Tuple returns the opcode, execution delay and measurement mode flag.
func (c Command) Tuple() (uint16, time.Duration, bool) {
	e := commands[c]
	return e.cmdWord, e.delay, e.whileRunning
}

func (c Command) String() string {
	if int(c) >= len(commands) {
		return fmt.Sprintf("Command(%d)", c)
	}
	return commands[c].name
}

func encodeOpcode(op uint16) []byte {
	w := make([]byte, 2)
	binary.BigEndian.PutUint16(w, op)
	return w
}
