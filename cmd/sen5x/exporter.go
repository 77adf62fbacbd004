// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"github.com/GermanBionicSystems/envnode/sen5x"
	"github.com/prometheus/client_golang/prometheus"
)

// exporter holds the metrics exposed to Prometheus.
type exporter struct {
	pm1_0       *prometheus.GaugeVec
	pm2_5       *prometheus.GaugeVec
	pm4_0       *prometheus.GaugeVec
	pm10_0      *prometheus.GaugeVec
	temperature *prometheus.GaugeVec
	humidity    *prometheus.GaugeVec
	voc         *prometheus.GaugeVec
	nox         *prometheus.GaugeVec
	reads       *prometheus.CounterVec
}

func newGauge(name string, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		[]string{"serial_number"},
	)
}

func newExporter(reg prometheus.Registerer) *exporter {
	e := &exporter{
		pm1_0:       newGauge("air_pm1_0", "PM1.0 mass concentration (units: µg/m3)"),
		pm2_5:       newGauge("air_pm2_5", "PM2.5 mass concentration (units: µg/m3)"),
		pm4_0:       newGauge("air_pm4_0", "PM4.0 mass concentration (units: µg/m3)"),
		pm10_0:      newGauge("air_pm10_0", "PM10 mass concentration (units: µg/m3)"),
		temperature: newGauge("air_temperature", "Air Temperature (units: degrees Celsius)"),
		humidity:    newGauge("air_humidity", "Humidity (units: % of relative Humidity)"),
		voc:         newGauge("air_voc_index", "VOC index (1-500, 100 is the average of the last 24h)"),
		nox:         newGauge("air_nox_index", "NOx index (1-500, 1 is the average of the last 24h)"),
		reads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sen5x_reads_total",
				Help: "Sensor reads by result",
			},
			[]string{"serial_number", "result"},
		),
	}
	reg.MustRegister(e.pm1_0, e.pm2_5, e.pm4_0, e.pm10_0, e.temperature, e.humidity, e.voc, e.nox, e.reads)
	return e
}

func (e *exporter) observe(serialNr string, m sen5x.Measurement) {
	e.pm1_0.WithLabelValues(serialNr).Set(float64(m.PM1_0))
	e.pm2_5.WithLabelValues(serialNr).Set(float64(m.PM2_5))
	e.pm4_0.WithLabelValues(serialNr).Set(float64(m.PM4_0))
	e.pm10_0.WithLabelValues(serialNr).Set(float64(m.PM10_0))
	e.temperature.WithLabelValues(serialNr).Set(float64(m.Temperature))
	e.humidity.WithLabelValues(serialNr).Set(float64(m.Humidity))
	e.voc.WithLabelValues(serialNr).Set(float64(m.VOCIndex))
	e.nox.WithLabelValues(serialNr).Set(float64(m.NOxIndex))
	e.reads.WithLabelValues(serialNr, "ok").Inc()
}

func (e *exporter) failed(serialNr string) {
	e.reads.WithLabelValues(serialNr, "error").Inc()
}
