// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package panel renders SEN5x readings into an image, sized for the small
// e-paper and OLED displays usually attached next to the sensor.
package panel

import (
	"fmt"
	"image"
	"io"

	"github.com/GermanBionicSystems/envnode/console"
	"github.com/GermanBionicSystems/envnode/sen5x"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/display"
)

// Opts represents the options available for rendering.
type Opts struct {
	// Size of the rendered image. Defaults to 250x122, the resolution of a
	// 2.13" e-paper display.
	Width  int
	Height int
	// FontSize in points. Defaults to Height/8.
	FontSize float64
}

// Panel renders readings.
type Panel struct {
	w, h int
	face font.Face
}

// New returns a Panel. opts may be nil.
func New(opts *Opts) (*Panel, error) {
	o := Opts{Width: 250, Height: 122}
	if opts != nil {
		if opts.Width > 0 {
			o.Width = opts.Width
		}
		if opts.Height > 0 {
			o.Height = opts.Height
		}
		o.FontSize = opts.FontSize
	}
	if o.FontSize <= 0 {
		o.FontSize = float64(o.Height) / 8
	}
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("panel: %w", err)
	}
	return &Panel{
		w:    o.Width,
		h:    o.Height,
		face: truetype.NewFace(f, &truetype.Options{Size: o.FontSize}),
	}, nil
}

// Bounds returns the size of the rendered images.
func (p *Panel) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.w, p.h)
}

func (p *Panel) render(m sen5x.Measurement) *gg.Context {
	dc := gg.NewContext(p.w, p.h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(p.face)

	// Left column: PM channels with a grade swatch. Right column: climate
	// and gas indexes.
	rows := []struct {
		label string
		value float32
	}{
		{"PM1.0", m.PM1_0},
		{"PM2.5", m.PM2_5},
		{"PM4.0", m.PM4_0},
		{"PM10", m.PM10_0},
	}
	lh := float64(p.h) / float64(len(rows))
	sw := lh * 0.6
	for i, r := range rows {
		y := lh*float64(i) + lh/2
		dc.SetColor(console.Grade(r.value))
		dc.DrawRectangle(2, y-sw/2, sw, sw)
		dc.Fill()
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(fmt.Sprintf("%s %.1f", r.label, r.value), sw+6, y, 0, 0.5)
	}
	right := []string{
		fmt.Sprintf("%.1f°C", m.Temperature),
		fmt.Sprintf("%.1f%%rH", m.Humidity),
		fmt.Sprintf("VOC %.0f", m.VOCIndex),
		fmt.Sprintf("NOx %.0f", m.NOxIndex),
	}
	for i, s := range right {
		dc.DrawStringAnchored(s, float64(p.w)-2, lh*float64(i)+lh/2, 1, 0.5)
	}
	return dc
}

// Render returns m drawn as an image.
func (p *Panel) Render(m sen5x.Measurement) image.Image {
	return p.render(m).Image()
}

// Draw renders m onto dst.
func (p *Panel) Draw(dst display.Drawer, m sen5x.Measurement) error {
	return dst.Draw(dst.Bounds(), p.Render(m), image.Point{})
}

// EncodePNG writes m as a PNG image to w.
func (p *Panel) EncodePNG(w io.Writer, m sen5x.Measurement) error {
	return p.render(m).EncodePNG(w)
}

// SavePNG writes m as a PNG image to path.
func (p *Panel) SavePNG(path string, m sen5x.Measurement) error {
	return p.render(m).SavePNG(path)
}
