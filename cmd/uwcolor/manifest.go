/*
DESCRIPTION
  manifest.go provides loading of the YAML manifest that lists the frames to
  correct.

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

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"

	"github.com/ausocean/uwcolor/voronoi"
)

// Manifest lists frames in the order they are to be corrected.
type Manifest struct {
	Frames []Frame `yaml:"frames"`
}

// Frame is a single image to correct.
type Frame struct {
	Image    string    `yaml:"image"` // Relative paths are relative to the manifest.
	Depth    float64   `yaml:"depth"`
	Features []Feature `yaml:"features"`
}

// Feature is a point in pixel coordinates at a known distance from the camera.
type Feature struct {
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Distance float64 `yaml:"distance"`
}

func (f Frame) samples() []voronoi.Sample {
	if len(f.Features) == 0 {
		return nil
	}
	s := make([]voronoi.Sample, len(f.Features))
	for i, ft := range f.Features {
		s[i] = voronoi.Sample{Point: r2.Vec{X: ft.X, Y: ft.Y}, Distance: ft.Distance}
	}
	return s
}

// loadManifest reads the manifest at path, resolving image paths.
func loadManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read manifest: %w", err)
	}
	m, err := parseManifest(b)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	for i := range m.Frames {
		if !filepath.IsAbs(m.Frames[i].Image) {
			m.Frames[i].Image = filepath.Join(dir, m.Frames[i].Image)
		}
	}
	return m, nil
}

func parseManifest(b []byte) (*Manifest, error) {
	m := new(Manifest)
	err := yaml.Unmarshal(b, m)
	if err != nil {
		return nil, fmt.Errorf("could not parse manifest: %w", err)
	}
	for i, f := range m.Frames {
		if f.Image == "" {
			return nil, fmt.Errorf("frame %d has no image", i)
		}
		for j, ft := range f.Features {
			if ft.Distance < 0 {
				return nil, fmt.Errorf("frame %d feature %d has negative distance %v", i, j, ft.Distance)
			}
		}
	}
	return m, nil
}
