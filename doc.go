// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package envnode contains the driver for the Sensirion SEN5x environmental
// sensor node and the helpers to present its readings.
//
// See the sen5x package for the driver and cmd/sen5x for a ready to use
// Prometheus exporter.
package envnode
