// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// sen5x reads a Sensirion SEN5x environmental sensor node, prints the
// readings and exposes them to Prometheus.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/envnode/console"
	"github.com/GermanBionicSystems/envnode/panel"
	"github.com/GermanBionicSystems/envnode/sen5x"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// CLI args
var (
	busName      = flag.String("bus", "", "I²C bus to use, the first available one if empty")
	addr         = flag.Uint("addr", uint(sen5x.DefaultAddress), "I²C address of the sensor")
	listenAddr   = flag.String("listen-address", "", "The address to listen on for HTTP requests, e.g. :8080. Disabled if empty.")
	readInterval = flag.Duration("interval", time.Second, "time interval between data ready polls")
	pngPath      = flag.String("png", "", "write the last reading to this PNG file")
	noColor      = flag.Bool("no-color", false, "disable colors in the console output")
	quiet        = flag.Bool("quiet", false, "do not print readings to the console")
	once         = flag.Bool("once", false, "exit after the first reading")
	clean        = flag.Bool("clean", false, "run a fan cleaning after starting measurement")
	lax          = flag.Bool("ignore-crc", false, "ignore CRC errors in sensor responses")
	logLevel     = flag.String("log-level", "info", "logrus log level")
)

func init() {
	//logging
	formatter := &log.TextFormatter{
		FullTimestamp: true,
	}
	log.SetFormatter(formatter)
}

func main() {
	flag.Parse()
	if err := mainImpl(); err != nil {
		log.Fatal(err)
	}
}

func mainImpl() error {
	lvl, err := log.ParseLevel(*logLevel)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)

	if _, err := host.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize periph")
	}
	bus, err := i2creg.Open(*busName)
	if err != nil {
		return errors.Wrap(err, "failed to open I²C")
	}
	defer bus.Close()

	dev, err := sen5x.New(bus, &sen5x.Opts{Addr: uint16(*addr), IgnoreChecksum: *lax})
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewBuildInfoCollector())
	s := &station{dev: dev, exp: newExporter(reg), pngPath: *pngPath}
	if !*quiet {
		s.con = console.New(&console.Opts{NoColor: *noColor})
	}
	if *pngPath != "" {
		if s.pnl, err = panel.New(nil); err != nil {
			return err
		}
	}
	if err := s.open(*clean); err != nil {
		return err
	}
	defer func() {
		if err := s.close(); err != nil {
			log.Errorf("failed to stop measurement: %s", err)
		}
	}()
	log.Infof("started %s serialNr %s", dev, s.serialNr)

	if *listenAddr != "" {
		go func() {
			// Expose the registered metrics via HTTP.
			http.Handle("/metrics", promhttp.HandlerFor(
				reg,
				promhttp.HandlerOpts{
					// Opt into OpenMetrics to support exemplars.
					EnableOpenMetrics: true,
				},
			))
			log.Panic(http.ListenAndServe(*listenAddr, nil))
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ticker := time.NewTicker(*readInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		_, err := s.sample()
		switch {
		case err == nil:
			if *once {
				return nil
			}
		case errors.Is(err, errNotReady):
			log.Debug(err)
		default:
			log.Error(err)
		}
	}
}
