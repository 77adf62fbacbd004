// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sen5x provides a driver for the Sensirion SEN5x environmental
// sensor nodes (SEN50, SEN54, SEN55). The modules report particulate matter
// mass concentration (PM1.0, PM2.5, PM4.0, PM10), temperature, relative
// humidity, and VOC and NOx indexes over I²C.
//
// Every command is a 16 bit word written big-endian. After a command specific
// execution time the sensor answers with 16 bit words, each followed by a
// CRC8 byte.
//
// # Datasheet
//
// https://sensirion.com/media/documents/6791EFA0/62A1F68F/Sensirion_Datasheet_Environmental_Node_SEN5x.pdf
package sen5x
