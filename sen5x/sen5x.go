// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sen5x

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GermanBionicSystems/envnode/common"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// DefaultAddress is the I²C address of the SEN5x.
const DefaultAddress uint16 = 0x69

// The sensor produces a new reading once per second.
const minSampleDuration = time.Second

// Delayer waits for the execution time of a command.
type Delayer interface {
	Delay(d time.Duration)
}

// DelayFunc adapts a function to the Delayer interface.
type DelayFunc func(d time.Duration)

// Delay calls f(d).
func (f DelayFunc) Delay(d time.Duration) {
	f(d)
}

// Opts holds the configuration options for the device.
type Opts struct {
	// Addr is the I²C address. 0 selects DefaultAddress.
	Addr uint16
	// Delayer waits after each command. nil selects time.Sleep.
	Delayer Delayer
	// Validator checks a response made of (data, data, crc) triplets. nil
	// selects common.ValidateWords.
	Validator func(b []byte) error
	// IgnoreChecksum discards validation failures instead of returning a
	// *ChecksumError. Only useful with sensors known to send bad CRCs.
	IgnoreChecksum bool
}

// DefaultOpts holds the default configuration options for the device.
var DefaultOpts = Opts{
	Addr:      DefaultAddress,
	Delayer:   DelayFunc(time.Sleep),
	Validator: common.ValidateWords,
}

// Dev is a handle to a SEN5x sensor.
type Dev struct {
	d         *i2c.Dev
	delayer   Delayer
	validate  func(b []byte) error
	ignoreCRC bool

	mu sync.Mutex
	// True once StartMeasurement succeeded, cleared by StopMeasurement.
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// New returns a handle to a SEN5x on bus. opts may be nil. No command is sent
// to the device.
func New(bus i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.Addr == 0 {
		o.Addr = DefaultAddress
	}
	if o.Addr > 0x7f {
		return nil, fmt.Errorf("sen5x: invalid 7 bit address 0x%x", o.Addr)
	}
	if o.Delayer == nil {
		o.Delayer = DelayFunc(time.Sleep)
	}
	if o.Validator == nil {
		o.Validator = common.ValidateWords
	}
	return &Dev{
		d:         &i2c.Dev{Bus: bus, Addr: o.Addr},
		delayer:   o.Delayer,
		validate:  o.Validator,
		ignoreCRC: o.IgnoreChecksum,
	}, nil
}

// StartMeasurement starts periodic measurement.
func (d *Dev) StartMeasurement() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeCommand(StartMeasurement)
}

// StopMeasurement returns the sensor to idle mode.
func (d *Dev) StopMeasurement() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeCommand(StopMeasurement)
}

// Reinit reloads the user settings from EEPROM. Only possible in idle mode.
func (d *Dev) Reinit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeCommand(Reinit)
}

// StartFanCleaning starts a manual fan cleaning.
func (d *Dev) StartFanCleaning() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeCommand(StartFanCleaning)
}

// Running reports whether the driver believes the sensor is measuring.
func (d *Dev) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// SerialNumber returns the 48 bit serial number. Only possible in idle mode.
func (d *Dev) SerialNumber() (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := make([]byte, serialNumberSize)
	if err := d.delayedRead(GetSerialNumber, r); err != nil {
		return 0, err
	}
	return decodeSerialNumber(r), nil
}

// DataReady returns true if a new reading is available.
func (d *Dev) DataReady() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dataReady()
}

func (d *Dev) dataReady() (bool, error) {
	r := make([]byte, dataReadySize)
	if err := d.delayedRead(GetReadDataReadyStatus, r); err != nil {
		return false, err
	}
	return decodeDataReady(r), nil
}

// Measurement reads the last reading. Either a complete reading or an error
// is returned.
func (d *Dev) Measurement() (Measurement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.measurement()
}

func (d *Dev) measurement() (Measurement, error) {
	r := make([]byte, measurementSize)
	if err := d.delayedRead(ReadMeasurement, r); err != nil {
		return Measurement{}, err
	}
	return decodeMeasurement(r), nil
}

// Sense reads the temperature and humidity. The pressure is always 0. The
// sensor must be measuring. Implements physic.SenseEnv.
func (d *Dev) Sense(e *physic.Env) error {
	m, err := d.Measurement()
	if err != nil {
		return err
	}
	*e = m.Env()
	return nil
}

// SenseContinuous polls the data ready status every interval and sends each
// new reading to the returned channel. Periodic measurement is started if
// needed. To terminate, call Halt().
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	ch, err := d.ReadContinuous(interval)
	if err != nil {
		return nil, err
	}
	out := make(chan physic.Env, 16)
	go func() {
		defer close(out)
		for m := range ch {
			out <- m.Env()
		}
	}()
	return out, nil
}

// ReadContinuous is like SenseContinuous but returns complete readings.
func (d *Dev) ReadContinuous(interval time.Duration) (<-chan Measurement, error) {
	if interval < minSampleDuration {
		return nil, errors.New("sen5x: sample interval is < device sample rate")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil, errors.New("sen5x: ReadContinuous already running")
	}
	if !d.running {
		if err := d.writeCommand(StartMeasurement); err != nil {
			return nil, err
		}
	}
	stop := make(chan struct{})
	d.stop = stop
	ch := make(chan Measurement, 16)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m, ok := d.poll()
				if !ok {
					continue
				}
				select {
				case ch <- m:
				case <-stop:
					return
				}
			}
		}
	}()
	return ch, nil
}

// poll reads a measurement if one is ready.
func (d *Dev) poll() (Measurement, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ready, err := d.dataReady()
	if err != nil || !ready {
		return Measurement{}, false
	}
	m, err := d.measurement()
	return m, err == nil
}

// Precision returns the resolution of the temperature and humidity readings.
// Implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = physic.Kelvin / 200
	e.Humidity = physic.PercentRH / 100
	e.Pressure = 0
}

// Halt terminates a ReadContinuous or SenseContinuous loop and stops
// periodic measurement. Implements conn.Resource.
func (d *Dev) Halt() error {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.mu.Unlock()
	if stop != nil {
		close(stop)
		d.wg.Wait()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return nil
	}
	return d.writeCommand(StopMeasurement)
}

func (d *Dev) String() string {
	return fmt.Sprintf("sen5x: %s", d.d.String())
}

// writeCommand sends the command word and waits the command execution time.
func (d *Dev) writeCommand(cmd Command) error {
	op, delay, whileRunning := cmd.Tuple()
	if d.running && !whileRunning {
		return &StateError{Command: cmd, Running: d.running}
	}
	if err := d.d.Tx(encodeOpcode(op), nil); err != nil {
		return &TransportError{Command: cmd, Op: "write", Err: err}
	}
	d.delayer.Delay(delay)
	switch cmd {
	case StartMeasurement:
		d.running = true
	case StopMeasurement:
		d.running = false
	}
	return nil
}

// readResponse reads len(r) bytes and validates every word. len(r) must be a
// multiple of 3.
func (d *Dev) readResponse(cmd Command, r []byte) error {
	if len(r)%3 != 0 {
		panic(fmt.Sprintf("sen5x: response buffer length %d is not a multiple of 3", len(r)))
	}
	if err := d.d.Tx(nil, r); err != nil {
		return &TransportError{Command: cmd, Op: "read", Err: err}
	}
	if err := d.validate(r); err != nil && !d.ignoreCRC {
		return &ChecksumError{Command: cmd, Err: err}
	}
	return nil
}

func (d *Dev) delayedRead(cmd Command, r []byte) error {
	if err := d.writeCommand(cmd); err != nil {
		return err
	}
	return d.readResponse(cmd, r)
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
