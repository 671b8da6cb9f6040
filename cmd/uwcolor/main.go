/*
DESCRIPTION
  uwcolor corrects the colours of a sequence of underwater frames, described
  by a YAML manifest, using calibration patches of known colour in each frame
  or a prior calibration table.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean)

  It is free software: you can redistribute it and/or modify them
  under the terms of the GNU General Public License as published by the
  Free Software Foundation, either version 3 of the License, or (at your
  option) any later version.

  It is distributed in the hope that it will be useful, but WITHOUT
  ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
  FITNESS FOR A PARTICULAR PURPOSE. See the GNU General Public License
  for more details.

  You should have received a copy of the GNU General Public License
  in gpl.txt.  If not, see http://www.gnu.org/licenses.
*/

// uwcolor corrects the colours of underwater frames. Each frame in the
// manifest names an image, the depth at which it was taken and optionally a
// set of feature points with known distances from the camera. Corrected
// frames are written to the output directory under the same base name.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ausocean/utils/logging"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/uwcolor/attenuation"
	"github.com/ausocean/uwcolor/correct"
	"github.com/ausocean/uwcolor/scene"
	"github.com/ausocean/uwcolor/store"
)

// Logging configuration consts.
const (
	defaultLogPath = "uwcolor.log"
	logMaxSize     = 500 // MB.
	logMaxBackup   = 10
	logMaxAge      = 28 // Days.
	logSuppress    = false
)

func main() {
	scenePath := flag.String("scene", "scene.yaml", "Scene constants YAML file")
	framesPath := flag.String("frames", "frames.yaml", "Frames manifest YAML file")
	outDir := flag.String("out", "corrected", "Directory to write corrected frames to")
	priorPath := flag.String("prior", "", "Prior calibration XML file; enables prior data")
	savePath := flag.String("save", "", "Calibration XML file to save coefficients to; enables save data")
	estVeil := flag.Bool("estveil", false, "Sample veiling light from the scene background region")
	optimize := flag.Bool("optimize", false, "Refine coefficients by fitting depth bands")
	rng := flag.Float64("range", attenuation.DefaultRange, "Depth band width (m) for refinement")
	plotDir := flag.String("plots", "", "Directory to plot saved coefficients to")
	calibrateOnly := flag.Bool("calibrate", false, "Only calibrate depth bands, writing no frames; requires -optimize")
	logLevel := flag.Int("LogLevel", int(logging.Info), "Specifies log level")
	logPath := flag.String("LogPath", defaultLogPath, "Specifies log path")
	flag.Parse()

	validLogLevel := true
	if *logLevel < int(logging.Debug) || *logLevel > int(logging.Fatal) {
		*logLevel = int(logging.Info)
		validLogLevel = false
	}

	fileLog := &lumberjack.Logger{
		Filename:   *logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(int8(*logLevel), io.MultiWriter(fileLog, os.Stderr), logSuppress)
	if !validLogLevel {
		log.Error("invalid log level was defaulted to Info")
	}

	sc, err := scene.Load(*scenePath)
	if err != nil {
		log.Fatal("could not load scene", "error", err)
	}

	cfg := correct.Config{
		EstimateVeilingLight: *estVeil,
		PriorData:            *priorPath != "",
		SaveData:             *savePath != "",
		Optimize:             *optimize,
		Range:                *rng,
		Fit:                  attenuation.DefaultSettings,
	}

	var prior *store.Table
	if cfg.PriorData {
		prior, err = store.LoadFile(*priorPath)
		if err != nil {
			log.Fatal("could not load prior calibration", "path", *priorPath, "error", err)
		}
		log.Info("loaded prior calibration", "path", *priorPath, "entries", prior.Len())
	}

	s, err := correct.NewSession(sc, cfg, prior, log)
	if err != nil {
		log.Fatal("could not create correction session", "error", err)
	}
	if *calibrateOnly && s.Strategy() != correct.UseRefinement {
		log.Fatal("calibration only requires refinement", "strategy", s.Strategy().String())
	}

	m, err := loadManifest(*framesPath)
	if err != nil {
		log.Fatal("could not load frames manifest", "error", err)
	}

	var failed int
	if *calibrateOnly {
		for i, f := range m.Frames {
			_, err := calibrate(s, f, log)
			if err != nil {
				log.Error("could not calibrate frame", "frame", i, "image", f.Image, "error", err)
				failed++
			}
		}
		log.Info("finished calibrating frames", "frames", len(m.Frames), "failed", failed)
	} else {
		err = os.MkdirAll(*outDir, 0o755)
		if err != nil {
			log.Fatal("could not create output directory", "error", err)
		}
		for i, f := range m.Frames {
			err := run(s, f, *outDir, log)
			if err != nil {
				log.Error("could not correct frame", "frame", i, "image", f.Image, "error", err)
				failed++
			}
		}
		log.Info("finished correcting frames", "frames", len(m.Frames), "failed", failed)
	}

	if cfg.SaveData {
		out := s.Output()
		err = out.SaveFile(*savePath)
		if err != nil {
			log.Fatal("could not save calibration", "path", *savePath, "error", err)
		}
		log.Info("saved calibration", "path", *savePath, "entries", out.Len())

		if *plotDir != "" && out.Len() != 0 {
			err = store.PlotTable(out, *plotDir)
			if err != nil {
				log.Error("could not plot calibration", "error", err)
			}
		}
	}

	if failed != 0 {
		os.Exit(1)
	}
}

// run reads, corrects and writes a single frame.
func run(s *correct.Session, f Frame, outDir string, log logging.Logger) error {
	timer := time.Now()
	img, err := readImage(f.Image)
	if err != nil {
		return fmt.Errorf("could not read image: %w", err)
	}
	log.Debug("read image", "image", f.Image, "read duration (sec)", time.Since(timer).Seconds())

	samples := f.samples()
	if len(samples) != 0 {
		img, err = s.CorrectField(img, f.Depth, samples)
	} else {
		img, err = s.Correct(img, f.Depth)
	}
	if err != nil {
		return err
	}

	out := filepath.Join(outDir, filepath.Base(f.Image))
	timer = time.Now()
	err = writeImage(out, img)
	if err != nil {
		return fmt.Errorf("could not write image: %w", err)
	}
	log.Info("corrected frame", "image", f.Image, "depth", f.Depth, "features", len(samples), "out", out, "write duration (sec)", time.Since(timer).Seconds())
	return nil
}

// calibrate reads a single frame and feeds its calibration patches to the
// session's depth band refiner.
func calibrate(s *correct.Session, f Frame, log logging.Logger) (attenuation.Outcome, error) {
	img, err := readImage(f.Image)
	if err != nil {
		return attenuation.Skipped, fmt.Errorf("could not read image: %w", err)
	}
	outcome, err := s.Calibrate(img, f.Depth)
	if err != nil {
		return outcome, fmt.Errorf("could not calibrate: %w", err)
	}
	log.Info("calibrated frame", "image", f.Image, "depth", f.Depth, "outcome", outcome.String())
	return outcome, nil
}
