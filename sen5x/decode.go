// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sen5x

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3/physic"
)

const (
	serialNumberSize = 9
	dataReadySize    = 3
	measurementSize  = 24

	// Any of the low 11 bits set means a reading is ready.
	dataReadyMask = uint16(1<<11 - 1)
)

// Measurement is one reading of the sensor.
type Measurement struct {
	// Mass concentrations in µg/m³.
	PM1_0  float32
	PM2_5  float32
	PM4_0  float32
	PM10_0 float32
	// °C
	Temperature float32
	// %RH
	Humidity float32
	VOCIndex float32
	NOxIndex float32
}

func (m Measurement) String() string {
	return fmt.Sprintf("PM1.0: %.1fµg/m³ PM2.5: %.1fµg/m³ PM4.0: %.1fµg/m³ PM10: %.1fµg/m³ Temperature: %.3f°C Humidity: %.2f%%rH VOC: %.1f NOx: %.1f",
		m.PM1_0, m.PM2_5, m.PM4_0, m.PM10_0, m.Temperature, m.Humidity, m.VOCIndex, m.NOxIndex)
}

// Env returns the temperature and humidity as physic values.
func (m Measurement) Env() physic.Env {
	return physic.Env{
		Temperature: physic.ZeroCelsius + physic.Temperature(float64(m.Temperature)*float64(physic.Kelvin)),
		Humidity:    physic.RelativeHumidity(float64(m.Humidity) * float64(physic.PercentRH)),
	}
}

// word returns the data word of the triplet at index ix.
func word(b []byte, ix int) uint16 {
	return binary.BigEndian.Uint16(b[ix*3 : ix*3+2])
}

// decodeSerialNumber joins the three data words into the 48 bit serial.
func decodeSerialNumber(b []byte) uint64 {
	return uint64(word(b, 0))<<32 | uint64(word(b, 1))<<16 | uint64(word(b, 2))
}

func decodeDataReady(b []byte) bool {
	return word(b, 0)&dataReadyMask != 0
}

// decodeMeasurement applies the scale factors from the datasheet. The
// humidity word precedes temperature on the wire.
func decodeMeasurement(b []byte) Measurement {
	return Measurement{
		PM1_0:       float32(word(b, 0)) / 10,
		PM2_5:       float32(word(b, 1)) / 10,
		PM4_0:       float32(word(b, 2)) / 10,
		PM10_0:      float32(word(b, 3)) / 10,
		Humidity:    float32(word(b, 4)) / 100,
		Temperature: float32(word(b, 5)) / 200,
		VOCIndex:    float32(word(b, 6)) / 10,
		NOxIndex:    float32(word(b, 7)) / 10,
	}
}
