// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package console prints SEN5x readings to the terminal (stdout), with ANSI
// color blocks grading each particulate matter channel.
package console

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"os"

	"github.com/GermanBionicSystems/envnode/sen5x"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Opts represents the options available for this display.
type Opts struct {
	Palette *ansi256.Palette
	// NoColor disables ANSI codes even on a terminal.
	NoColor bool

	_ struct{}
}

// Dev writes one line per reading.
type Dev struct {
	w       io.Writer
	palette ansi256.Palette
	color   bool

	buf bytes.Buffer
}

// New returns a Dev that writes to stdout. Colors are only used when stdout
// is a terminal.
func New(opts *Opts) *Dev {
	fd := os.Stdout.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return NewWriter(colorable.NewColorableStdout(), tty, opts)
}

// NewWriter returns a Dev that writes to w.
func NewWriter(w io.Writer, useColor bool, opts *Opts) *Dev {
	if opts == nil {
		opts = &Opts{}
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	return &Dev{
		w:       w,
		palette: *p,
		color:   useColor && !opts.NoColor,
	}
}

func (d *Dev) String() string {
	return "Console"
}

// Halt resets the terminal attributes.
func (d *Dev) Halt() error {
	if !d.color {
		return nil
	}
	_, err := io.WriteString(d.w, "\033[0m")
	return err
}

// Write prints m as a single line.
func (d *Dev) Write(m sen5x.Measurement) error {
	d.buf.Reset()
	for _, ch := range []struct {
		name  string
		value float32
	}{
		{"PM1.0", m.PM1_0},
		{"PM2.5", m.PM2_5},
		{"PM4.0", m.PM4_0},
		{"PM10", m.PM10_0},
	} {
		if d.color {
			_, _ = d.buf.WriteString(d.palette.Block(Grade(ch.value)))
			_, _ = d.buf.WriteString("\033[0m ")
		}
		fmt.Fprintf(&d.buf, "%s %6.1fµg/m³  ", ch.name, ch.value)
	}
	fmt.Fprintf(&d.buf, "%6.2f°C %6.2f%%rH VOC %5.1f NOx %5.1f\n", m.Temperature, m.Humidity, m.VOCIndex, m.NOxIndex)
	_, err := d.buf.WriteTo(d.w)
	return err
}

// Grade maps a mass concentration in µg/m³ to a color, using the US EPA
// PM2.5 breakpoints.
func Grade(pm float32) color.NRGBA {
	switch {
	case pm < 12.1:
		return color.NRGBA{0x00, 0xe4, 0x00, 0xff}
	case pm < 35.5:
		return color.NRGBA{0xff, 0xff, 0x00, 0xff}
	case pm < 55.5:
		return color.NRGBA{0xff, 0x7e, 0x00, 0xff}
	case pm < 150.5:
		return color.NRGBA{0xff, 0x00, 0x00, 0xff}
	case pm < 250.5:
		return color.NRGBA{0x8f, 0x3f, 0x97, 0xff}
	default:
		return color.NRGBA{0x7e, 0x00, 0x23, 0xff}
	}
}

var _ fmt.Stringer = &Dev{}
