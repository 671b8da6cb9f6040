/*
DESCRIPTION
  veiling.go provides estimation of the wideband veiling light, the colour
  of the water column backscatter, either by sampling a background region
  of an image or by integrating the scene's spectral model.

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

// Package veiling estimates the wideband veiling light of an underwater
// scene.
package veiling

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/floats"

	"github.com/ausocean/uwcolor/planes"
	"github.com/ausocean/uwcolor/scene"
)

// Light is a veiling light colour, indexed by planes channel.
type Light [planes.NumChannels]float64

// Sample estimates the veiling light as the per channel mean of the
// background region r of img.
func Sample(img *planes.Image, r image.Rectangle) (Light, error) {
	m, err := img.Mean(r)
	if err != nil {
		return Light{}, fmt.Errorf("could not sample background: %w", err)
	}
	return Light(m), nil
}

// Spectral calculates the veiling light from the scene's spectral tables.
// For each wavelength the term b_sca*irradiance/b_att is weighted by the
// camera response of each channel, and the terms are integrated over the
// wavelength set with the trapezoid rule.
func Spectral(s *scene.Scene) (Light, error) {
	if err := s.Validate(); err != nil {
		return Light{}, fmt.Errorf("could not calculate veiling light: %w", err)
	}

	n := len(s.Wavelengths)
	terms := make([]float64, n)
	weights := make([]float64, n)
	for i := range terms {
		terms[i] = s.BSca[i] * s.Irradiance[i] / s.BAtt[i]
		weights[i] = 2
	}
	weights[0], weights[n-1] = 1, 1

	var l Light
	resp := make([]float64, n)
	for c := range l {
		for i := range resp {
			resp[i] = weights[i] * s.CameraResponse[i][c]
		}
		l[c] = floats.Dot(resp, terms) / s.K * s.WavelengthSub
	}
	return l, nil
}

// Estimator selects how veiling light is obtained for an image.
type Estimator struct {
	Scene  *scene.Scene
	Sample bool // Sample the scene's background region rather than integrate.
}

// Estimate returns the veiling light for img.
func (e Estimator) Estimate(img *planes.Image) (Light, error) {
	if e.Sample {
		return Sample(img, e.Scene.BackgroundSample.Rectangle())
	}
	return Spectral(e.Scene)
}
