// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sen5x

import (
	"errors"
	"testing"
	"time"

	"github.com/GermanBionicSystems/envnode/common"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

var errBus = errors.New("bus failure")

// failBus fails the n-th transaction (1 based) and plays back the rest.
type failBus struct {
	i2ctest.Playback
	failAt int
	calls  int
}

func (f *failBus) Tx(addr uint16, w, r []byte) error {
	f.calls++
	if f.calls == f.failAt {
		return errBus
	}
	return f.Playback.Tx(addr, w, r)
}

// delays records the waits requested by the driver.
type delays []time.Duration

func (d *delays) Delay(t time.Duration) {
	*d = append(*d, t)
}

func write(cmd Command) i2ctest.IO {
	return i2ctest.IO{Addr: DefaultAddress, W: encodeOpcode(cmd.Opcode())}
}

func read(r []byte) i2ctest.IO {
	return i2ctest.IO{Addr: DefaultAddress, R: r}
}

func getDev(t *testing.T, ops ...i2ctest.IO) (*Dev, *i2ctest.Playback, *delays) {
	pb := &i2ctest.Playback{Ops: ops, DontPanic: true}
	rec := &delays{}
	dev, err := New(pb, &Opts{Delayer: rec})
	if err != nil {
		t.Fatal(err)
	}
	return dev, pb, rec
}

func TestNew(t *testing.T) {
	pb := &i2ctest.Playback{DontPanic: true}
	dev, err := New(pb, nil)
	if err != nil {
		t.Fatal(err)
	}
	if dev.d.Addr != DefaultAddress {
		t.Errorf("address 0x%x expected 0x%x", dev.d.Addr, DefaultAddress)
	}
	if dev.Running() {
		t.Error("new device reports running")
	}
	if len(dev.String()) == 0 {
		t.Error("Dev.String() returned empty value")
	}
	dev, err = New(pb, &Opts{Addr: 0x6a})
	if err != nil {
		t.Fatal(err)
	}
	if dev.d.Addr != 0x6a {
		t.Errorf("address 0x%x expected 0x6a", dev.d.Addr)
	}
	if _, err = New(pb, &Opts{Addr: 0x80}); err == nil {
		t.Error("expected an error for an 8 bit address")
	}
}

func TestWriteCommands(t *testing.T) {
	dev, pb, rec := getDev(t,
		write(Reinit),
		write(StartMeasurement),
		write(StartFanCleaning),
		write(StopMeasurement),
	)
	if err := dev.Reinit(); err != nil {
		t.Fatal(err)
	}
	if err := dev.StartMeasurement(); err != nil {
		t.Fatal(err)
	}
	if !dev.Running() {
		t.Error("running flag not set after StartMeasurement")
	}
	if err := dev.StartFanCleaning(); err != nil {
		t.Fatal(err)
	}
	if err := dev.StopMeasurement(); err != nil {
		t.Fatal(err)
	}
	if dev.Running() {
		t.Error("running flag still set after StopMeasurement")
	}
	expected := []time.Duration{Reinit.Delay(), StartMeasurement.Delay(), StartFanCleaning.Delay(), StopMeasurement.Delay()}
	if len(*rec) != len(expected) {
		t.Fatalf("delays %v expected %v", *rec, expected)
	}
	for i := range expected {
		if (*rec)[i] != expected[i] {
			t.Errorf("delay[%d]=%s expected %s", i, (*rec)[i], expected[i])
		}
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestSerialNumber(t *testing.T) {
	dev, pb, _ := getDev(t,
		write(GetSerialNumber),
		read([]byte{0xbe, 0xef, 0x92, 0xbe, 0xef, 0x92, 0xbe, 0xef, 0x92}),
	)
	sn, err := dev.SerialNumber()
	if err != nil {
		t.Fatal(err)
	}
	if sn != 0xbeefbeefbeef {
		t.Errorf("serial number 0x%x expected 0xbeefbeefbeef", sn)
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestMeasurement(t *testing.T) {
	dev, pb, _ := getDev(t,
		write(ReadMeasurement),
		read(measurementFrame),
	)
	m, err := dev.Measurement()
	if err != nil {
		t.Fatal(err)
	}
	if m.PM2_5 != 2.2 || m.Temperature != 22.405 || m.Humidity != 55.14 {
		t.Errorf("unexpected measurement %s", m)
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestDataReady(t *testing.T) {
	dev, pb, _ := getDev(t,
		write(GetReadDataReadyStatus),
		read(common.EncodeWords([]uint16{0x0001})),
		write(GetReadDataReadyStatus),
		read(common.EncodeWords([]uint16{0x0800})),
	)
	for _, expected := range []bool{true, false} {
		ready, err := dev.DataReady()
		if err != nil {
			t.Fatal(err)
		}
		if ready != expected {
			t.Errorf("DataReady()=%t expected %t", ready, expected)
		}
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

// By default a CRC failure is returned to the caller.
func TestChecksumStrict(t *testing.T) {
	frame := append([]byte{}, measurementFrame...)
	frame[23] ^= 0xff
	dev, _, _ := getDev(t, write(ReadMeasurement), read(frame))
	m, err := dev.Measurement()
	if !errors.Is(err, ErrChecksum) {
		t.Fatalf("expected ErrChecksum, got %v", err)
	}
	var crcErr *common.CRCError
	if !errors.As(err, &crcErr) || crcErr.Offset != 21 {
		t.Errorf("expected CRC error at offset 21, got %v", err)
	}
	if m != (Measurement{}) {
		t.Errorf("partial reading returned: %s", m)
	}
}

// With IgnoreChecksum a CRC failure is discarded, matching sensors that send
// garbage CRCs.
func TestChecksumIgnored(t *testing.T) {
	frame := append([]byte{}, measurementFrame...)
	frame[2] = 0x00
	pb := &i2ctest.Playback{Ops: []i2ctest.IO{write(ReadMeasurement), read(frame)}, DontPanic: true}
	dev, err := New(pb, &Opts{Delayer: &delays{}, IgnoreChecksum: true})
	if err != nil {
		t.Fatal(err)
	}
	m, err := dev.Measurement()
	if err != nil {
		t.Fatal(err)
	}
	if m.PM2_5 != 2.2 {
		t.Errorf("PM2.5=%v expected 2.2", m.PM2_5)
	}
}

func TestCustomValidator(t *testing.T) {
	errCustom := errors.New("custom")
	var seen []byte
	pb := &i2ctest.Playback{Ops: []i2ctest.IO{write(ReadMeasurement), read(measurementFrame)}, DontPanic: true}
	dev, err := New(pb, &Opts{
		Delayer: DelayFunc(func(time.Duration) {}),
		Validator: func(b []byte) error {
			seen = b
			return errCustom
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = dev.Measurement()
	if !errors.Is(err, errCustom) || !errors.Is(err, ErrChecksum) {
		t.Errorf("expected wrapped custom error, got %v", err)
	}
	if len(seen) != measurementSize {
		t.Errorf("validator received %d bytes", len(seen))
	}
}

func TestReadResponsePanics(t *testing.T) {
	dev, _, _ := getDev(t)
	for _, size := range []int{1, 2, 4, 10} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("readResponse() with %d bytes did not panic", size)
				}
			}()
			_ = dev.readResponse(ReadMeasurement, make([]byte, size))
		}()
	}
}

func TestWriteFailure(t *testing.T) {
	bus := &failBus{Playback: i2ctest.Playback{DontPanic: true}, failAt: 1}
	dev, err := New(bus, &Opts{Delayer: &delays{}})
	if err != nil {
		t.Fatal(err)
	}
	_, err = dev.SerialNumber()
	var tErr *TransportError
	if !errors.As(err, &tErr) || tErr.Op != "write" || !errors.Is(err, errBus) {
		t.Fatalf("expected write TransportError, got %v", err)
	}
	if bus.calls != 1 {
		t.Errorf("read attempted after failed write: %d transactions", bus.calls)
	}
	if err := dev.StartMeasurement(); err == nil {
		t.Error("expected an error")
	}
}

func TestReadFailure(t *testing.T) {
	bus := &failBus{
		Playback: i2ctest.Playback{Ops: []i2ctest.IO{write(StartMeasurement), write(ReadMeasurement)}, DontPanic: true},
		failAt:   3,
	}
	dev, err := New(bus, &Opts{Delayer: &delays{}})
	if err != nil {
		t.Fatal(err)
	}
	if err := dev.StartMeasurement(); err != nil {
		t.Fatal(err)
	}
	_, err = dev.Measurement()
	var tErr *TransportError
	if !errors.As(err, &tErr) || tErr.Op != "read" || tErr.Command != ReadMeasurement || !errors.Is(err, errBus) {
		t.Fatalf("expected read TransportError, got %v", err)
	}
	if !dev.Running() {
		t.Error("running flag cleared by a read failure")
	}
}

func TestRunningState(t *testing.T) {
	dev, pb, _ := getDev(t,
		write(StartMeasurement),
		write(StopMeasurement),
		write(GetSerialNumber),
		read(common.EncodeWords([]uint16{1, 2, 3})),
	)
	if err := dev.StartMeasurement(); err != nil {
		t.Fatal(err)
	}
	for _, f := range []func() error{
		dev.StartMeasurement,
		dev.Reinit,
		func() error { _, err := dev.SerialNumber(); return err },
	} {
		err := f()
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", err)
		}
	}
	if err := dev.StopMeasurement(); err != nil {
		t.Fatal(err)
	}
	sn, err := dev.SerialNumber()
	if err != nil {
		t.Fatal(err)
	}
	if sn != 0x000100020003 {
		t.Errorf("serial number 0x%x", sn)
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestSense(t *testing.T) {
	dev, pb, _ := getDev(t, write(ReadMeasurement), read(measurementFrame))
	env := physic.Env{}
	if err := dev.Sense(&env); err != nil {
		t.Fatal(err)
	}
	if c := env.Temperature.Celsius(); c < 22.40 || c > 22.41 {
		t.Errorf("temperature %s", env.Temperature)
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}

	dev.Precision(&env)
	if env.Temperature != 5*physic.MilliKelvin || env.Humidity != physic.PercentRH/100 {
		t.Errorf("unexpected precision %#v", env)
	}
}

func TestReadContinuous(t *testing.T) {
	readings := 3
	ops := []i2ctest.IO{write(StartMeasurement)}
	// One poll where the data is not ready yet.
	ops = append(ops, write(GetReadDataReadyStatus), read(common.EncodeWords([]uint16{0})))
	for i := 0; i < readings; i++ {
		ops = append(ops,
			write(GetReadDataReadyStatus), read(common.EncodeWords([]uint16{1})),
			write(ReadMeasurement), read(measurementFrame))
	}
	ops = append(ops, write(StopMeasurement))
	pb := &i2ctest.Playback{Ops: ops, DontPanic: true}
	dev, err := New(pb, &Opts{Delayer: DelayFunc(func(time.Duration) {})})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dev.ReadContinuous(time.Millisecond); err == nil {
		t.Error("ReadContinuous() doesn't return an error on too short an interval")
	}
	ch, err := dev.ReadContinuous(minSampleDuration)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dev.ReadContinuous(minSampleDuration); err == nil {
		t.Error("expected an error for attempting concurrent ReadContinuous")
	}
	for i := 0; i < readings; i++ {
		m := <-ch
		if m.PM2_5 != 2.2 {
			t.Errorf("unexpected reading %s", m)
		}
	}
	if err := dev.Halt(); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-ch; ok {
		t.Error("channel not closed by Halt()")
	}
	if dev.Running() {
		t.Error("Halt() did not stop measurement")
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}
