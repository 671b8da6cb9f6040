/*
DESCRIPTION
  refine.go provides the Refiner, which collects patch observations over a
  band of depths and, once the depth passes the band, fits the inverse model
  to each channel's observations.

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

package attenuation

import (
	"errors"
	"fmt"
	"math"

	"github.com/ausocean/uwcolor/planes"
)

// DefaultRange is the default depth band width.
const DefaultRange = 0.5

// Quantize maps a depth to its half metre key, round(|(depth+0.5)*2|)/2.
// Both calibration table keys and depth band bounds use this quantisation.
func Quantize(depth float64) float64 {
	return math.Round(math.Abs((depth+0.5)*2)) / 2
}

// Outcome describes what a Refiner did with an observation.
type Outcome int

const (
	Skipped     Outcome = iota // Depth outside the current band, nothing done.
	Accumulated                // Samples added to the current band.
	Fitted                     // Band completed and fitted.
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Accumulated:
		return "accumulated"
	case Fitted:
		return "fitted"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Band is the result of fitting one depth band.
type Band struct {
	MaxRange     float64 // Upper depth bound of the band that was fitted.
	Results      [planes.NumChannels]FitResult
	Coefficients Coefficients
}

// Converged reports whether every channel's fit converged.
func (b *Band) Converged() bool {
	for _, r := range b.Results {
		if !r.Converged {
			return false
		}
	}
	return true
}

// Refiner accumulates observation samples for a depth band, fitting them when
// the depth passes the band's upper bound. A Refiner is not safe for
// concurrent use.
type Refiner struct {
	Range    float64 // Band width.
	Settings Settings

	maxRange    float64
	initialised bool
	samples     [planes.NumChannels][]Sample
}

// NewRefiner returns a new Refiner with band width rng. A non-positive rng
// selects DefaultRange.
func NewRefiner(rng float64, s Settings) *Refiner {
	if rng <= 0 {
		rng = DefaultRange
	}
	return &Refiner{Range: rng, Settings: s}
}

// MaxRange returns the upper bound of the current band and whether the band
// has been initialised.
func (r *Refiner) MaxRange() (float64, bool) {
	return r.maxRange, r.initialised
}

// Samples returns the samples accumulated for channel c in the current band.
func (r *Refiner) Samples(c int) []Sample {
	return r.samples[c]
}

// Observe takes the observed colours of the two calibration patches, their
// truth colours and the veiling light at the given depth.
//
// On first use the band's upper bound is set to Quantize(depth). While the
// depth lies strictly within (MaxRange-Range, MaxRange) two samples per
// channel are added, one for each patch. When the depth exceeds MaxRange each
// channel is fitted from parameters (1, 1), the fitted factors are converted
// to coefficients at distance d, all samples are cleared and MaxRange is
// advanced by Range.
//
// The returned Band is non-nil only for the Fitted outcome. If conversion of
// the fitted factors fails, the Band is returned with the error; the band is
// still consumed.
func (r *Refiner) Observe(depth float64, obs1, obs2, truth1, truth2, veil [planes.NumChannels]float64, d float64) (Outcome, *Band, error) {
	if !r.initialised {
		r.maxRange = Quantize(depth)
		r.initialised = true
	}

	switch {
	case depth < r.maxRange && depth > r.maxRange-r.Range:
		for c := range r.samples {
			r.samples[c] = append(r.samples[c],
				Sample{Observed: obs1[c], Veiling: veil[c], Truth: truth1[c]},
				Sample{Observed: obs2[c], Veiling: veil[c], Truth: truth2[c]},
			)
		}
		return Accumulated, nil, nil

	case depth > r.maxRange:
		b, err := r.fit(d)
		r.Reset()
		r.maxRange += r.Range
		return Fitted, b, err
	}
	return Skipped, nil, nil
}

// Reset clears the accumulated samples of every channel, keeping the band.
func (r *Refiner) Reset() {
	for c := range r.samples {
		r.samples[c] = nil
	}
}

// fit fits each channel of the current band.
func (r *Refiner) fit(d float64) (*Band, error) {
	b := &Band{MaxRange: r.maxRange}
	var bs, ds [planes.NumChannels]float64
	var errs []error
	for c, samples := range r.samples {
		if len(samples) != 0 && zeroVeiling(samples) {
			b.Results[c] = FitResult{Params: Params{1, 1}}
			errs = append(errs, &DomainError{Channel: c, Reason: "veiling light is zero for every sample"})
			continue
		}
		res, err := Fit(samples, Params{1, 1}, r.Settings)
		b.Results[c] = res
		if err != nil {
			errs = append(errs, fmt.Errorf("could not fit %s channel: %w", planes.ChannelNames[c], err))
			continue
		}
		bs[c], ds[c] = res.Params[0], res.Params[1]
	}
	if len(errs) != 0 {
		return b, errors.Join(errs...)
	}

	c, err := FromFactors(bs, ds, d)
	if err != nil {
		return b, fmt.Errorf("could not convert fitted factors: %w", err)
	}
	b.Coefficients = c
	return b, nil
}

// zeroVeiling reports whether every sample has zero veiling light, in which
// case the backscatter factor cannot be identified.
func zeroVeiling(samples []Sample) bool {
	for _, s := range samples {
		if s.Veiling != 0 {
			return false
		}
	}
	return true
}
