// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, the CRC8 used by Sensirion sensors to protect each data word.
package common

import "fmt"

// CRC8 calculates the 8-bit CRC of the byte slice parameter and returns the
// calculated value. CRC bytes are used in sensors from TI and Sensirion.
func CRC8(bytes []byte) byte {
	var crc byte = 0xff
	for _, val := range bytes {
		crc ^= val
		for i := 0; i < 8; i++ {
			if (crc & 0x80) == 0 {
				crc <<= 1
			} else {
				crc = (byte)((crc << 1) ^ 0x31)
			}
		}
	}
	return crc
}

// CRCError is returned by ValidateWords when the checksum byte of a word does
// not match the checksum computed over its two data bytes.
type CRCError struct {
	// Offset of the first data byte of the failing word.
	Offset int
	Got    byte
	Want   byte
}

func (e *CRCError) Error() string {
	return fmt.Sprintf("crc error at offset %d: got 0x%02x want 0x%02x", e.Offset, e.Got, e.Want)
}

// ValidateWords checks a response made of 16 bit words, each followed by its
// CRC8. It panics if len(b) is not a multiple of 3.
func ValidateWords(b []byte) error {
	if len(b)%3 != 0 {
		panic(fmt.Sprintf("common: buffer length %d is not a multiple of 3", len(b)))
	}
	for ix := 0; ix < len(b); ix += 3 {
		if want := CRC8(b[ix : ix+2]); b[ix+2] != want {
			return &CRCError{Offset: ix, Got: b[ix+2], Want: want}
		}
	}
	return nil
}

// EncodeWords converts words into their big-endian wire form with the CRC
// following each word.
func EncodeWords(words []uint16) []byte {
	b := make([]byte, len(words)*3)
	for ix, val := range words {
		b[ix*3] = byte(val >> 8)
		b[ix*3+1] = byte(val)
		b[ix*3+2] = CRC8(b[ix*3 : ix*3+2])
	}
	return b
}
