// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/GermanBionicSystems/envnode/console"
	"github.com/GermanBionicSystems/envnode/panel"
	"github.com/GermanBionicSystems/envnode/sen5x"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var errNotReady = errors.New("no new reading")

// station ties the sensor to its outputs. con and pnl are optional.
type station struct {
	dev      *sen5x.Dev
	serialNr string
	exp      *exporter
	con      *console.Dev
	pnl      *panel.Panel
	pngPath  string
}

// open stops any measurement left running by a previous process, reads the
// serial number and starts periodic measurement.
func (s *station) open(clean bool) error {
	// Sent unconditionally; the driver does not know the sensor's state yet.
	if err := s.dev.StopMeasurement(); err != nil {
		return errors.Wrap(err, "failed to stop measurement")
	}
	sn, err := s.dev.SerialNumber()
	if err != nil {
		return errors.Wrap(err, "failed to read serial number")
	}
	s.serialNr = fmt.Sprintf("%012x", sn)
	if err := s.dev.StartMeasurement(); err != nil {
		return errors.Wrap(err, "failed to start measurement")
	}
	if clean {
		log.Infof("starting fan cleaning on %s", s.serialNr)
		if err := s.dev.StartFanCleaning(); err != nil {
			return errors.Wrap(err, "failed to start fan cleaning")
		}
	}
	return nil
}

// sample reads one measurement if available and publishes it.
func (s *station) sample() (sen5x.Measurement, error) {
	ready, err := s.dev.DataReady()
	if err != nil {
		s.exp.failed(s.serialNr)
		return sen5x.Measurement{}, errors.Wrap(err, "failed to read data ready status")
	}
	if !ready {
		return sen5x.Measurement{}, errNotReady
	}
	m, err := s.dev.Measurement()
	if err != nil {
		s.exp.failed(s.serialNr)
		return sen5x.Measurement{}, errors.Wrapf(err, "failed to read from sensor (serialNr %s)", s.serialNr)
	}
	s.exp.observe(s.serialNr, m)
	log.WithFields(log.Fields{
		"serial_number": s.serialNr,
		"pm2_5":         m.PM2_5,
		"temperature":   m.Temperature,
		"humidity":      m.Humidity,
	}).Debug("received")

	if s.con != nil {
		if err := s.con.Write(m); err != nil {
			log.Errorf("console: %s", err)
		}
	}
	if s.pnl != nil && s.pngPath != "" {
		if err := s.pnl.SavePNG(s.pngPath, m); err != nil {
			log.Errorf("failed to write %s: %s", s.pngPath, err)
		}
	}
	return m, nil
}

func (s *station) close() error {
	if s.con != nil {
		_ = s.con.Halt()
	}
	return s.dev.Halt()
}
