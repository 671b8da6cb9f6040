/*
DESCRIPTION
  scene.go provides the Scene type, holding the fixed physical and optical
  constants of an underwater imaging setup, and loading of a Scene from a
  YAML file.

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

// Package scene provides the physical constants of an underwater scene:
// spectral tables, camera response, calibration patch geometry and truth
// colours.
package scene

import (
	"errors"
	"fmt"
	"image"
	"os"

	"gopkg.in/yaml.v3"
)

/* Example scene file ...

wavelengths:     [400, 450, 500, 550, 600, 650, 700]
b_sca:           [0.0019, 0.0012, 0.0008, 0.0006, 0.0004, 0.0003, 0.0002]
b_att:           [0.0209, 0.0168, 0.0262, 0.0637, 0.2224, 0.3400, 0.6500]
irradiance:      [1.45, 1.70, 1.80, 1.75, 1.70, 1.55, 1.40]
camera_response:
  - [0.30, 0.02, 0.01]
  - [0.85, 0.10, 0.02]
  - [0.40, 0.55, 0.03]
  - [0.05, 0.90, 0.10]
  - [0.02, 0.20, 0.80]
  - [0.01, 0.03, 0.60]
  - [0.00, 0.01, 0.15]
k:              1.0
wavelength_sub: 50
distance:       1.2
color_1_sample: [100, 100, 20, 20]   # x, y, width, height
color_2_sample: [200, 100, 20, 20]
background_sample: [10, 10, 40, 40]
color_1_truth:  [40, 160, 200]       # blue, green, red
color_2_truth:  [180, 60, 30]

*/

// Rect is a sample rectangle given as x, y, width and height in pixels.
type Rect [4]int

// Rectangle returns r as an image.Rectangle.
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r[0], r[1], r[0]+r[2], r[1]+r[3])
}

// Scene holds the constants describing an underwater scene. A Scene is read
// only once loaded.
type Scene struct {
	// Spectral tables, one value per wavelength.
	Wavelengths    []float64    `yaml:"wavelengths"`
	BSca           []float64    `yaml:"b_sca"`           // Scattering coefficient.
	BAtt           []float64    `yaml:"b_att"`           // Attenuation coefficient.
	Irradiance     []float64    `yaml:"irradiance"`      // Ambient irradiance.
	CameraResponse [][3]float64 `yaml:"camera_response"` // Camera spectral response, blue, green, red.

	K             float64 `yaml:"k"`              // Normalisation constant.
	WavelengthSub float64 `yaml:"wavelength_sub"` // Width of a wavelength sub-band.

	Distance float64 `yaml:"distance"` // Camera to calibration patch distance.

	Color1Sample     Rect       `yaml:"color_1_sample"`
	Color2Sample     Rect       `yaml:"color_2_sample"`
	BackgroundSample Rect       `yaml:"background_sample"`
	Color1Truth      [3]float64 `yaml:"color_1_truth"`
	Color2Truth      [3]float64 `yaml:"color_2_truth"`
}

// Load reads and validates the scene YAML file at path.
func Load(path string) (*Scene, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read scene file: %w", err)
	}
	s, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("could not load scene %s: %w", path, err)
	}
	return s, nil
}

// Parse parses and validates a scene from YAML.
func Parse(b []byte) (*Scene, error) {
	s := new(Scene)
	if err := yaml.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("could not parse scene: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scene: %w", err)
	}
	return s, nil
}

// Validate does sanity checks on the scene constants.
func (s *Scene) Validate() error {
	n := len(s.Wavelengths)
	if n < 2 {
		return fmt.Errorf("need at least 2 wavelengths, have %d", n)
	}
	for name, l := range map[string]int{
		"b_sca":           len(s.BSca),
		"b_att":           len(s.BAtt),
		"irradiance":      len(s.Irradiance),
		"camera_response": len(s.CameraResponse),
	} {
		if l != n {
			return fmt.Errorf("%s has %d values, want %d", name, l, n)
		}
	}
	for i, v := range s.BAtt {
		if v == 0 {
			return fmt.Errorf("b_att is zero at wavelength %v", s.Wavelengths[i])
		}
	}
	if s.K == 0 {
		return errors.New("k must be non-zero")
	}
	if s.Distance <= 0 {
		return fmt.Errorf("distance must be positive, got %v", s.Distance)
	}
	for name, r := range map[string]Rect{
		"color_1_sample":    s.Color1Sample,
		"color_2_sample":    s.Color2Sample,
		"background_sample": s.BackgroundSample,
	} {
		if r.Rectangle().Empty() || r[0] < 0 || r[1] < 0 {
			return fmt.Errorf("%s is not a valid rectangle: %v", name, r)
		}
	}
	return nil
}
