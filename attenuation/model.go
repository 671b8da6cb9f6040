/*
DESCRIPTION
  model.go provides the underwater light attenuation model and the closed
  form two point solve for backscatter and direct signal attenuation
  coefficients from two reference colour patches.

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

// Package attenuation estimates per channel backscatter and direct signal
// attenuation coefficients of water, either in closed form from two
// reference patches or by nonlinear least squares over samples collected
// across a band of depths.
//
// The observed value of an object at distance d is modelled as
//
//	observed = truth*exp(-a*d) + veiling*(1 - exp(-b*d))
//
// where b is the backscatter attenuation and a the direct signal
// attenuation.
package attenuation

import (
	"errors"
	"fmt"
	"math"

	"github.com/ausocean/uwcolor/planes"
)

// ErrDomain is wrapped by all errors caused by inputs outside the domain of
// the attenuation model.
var ErrDomain = errors.New("attenuation model domain error")

// DomainError describes a calibration failure for one channel.
type DomainError struct {
	Channel int
	Reason  string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s channel: %s", planes.ChannelNames[e.Channel], e.Reason)
}

func (e *DomainError) Unwrap() error { return ErrDomain }

// Coefficients holds backscatter and direct signal attenuation coefficients,
// indexed by planes channel.
type Coefficients struct {
	Backscatter  [planes.NumChannels]float64
	DirectSignal [planes.NumChannels]float64
}

// Factors returns the backscatter factor 1-exp(-b*d) and the direct signal
// factor exp(-a*d) of each channel for distance d.
func (c Coefficients) Factors(d float64) (bs, ds [planes.NumChannels]float64) {
	for i := range bs {
		bs[i] = BackscatterFactor(c.Backscatter[i], d)
		ds[i] = DirectSignalFactor(c.DirectSignal[i], d)
	}
	return bs, ds
}

// Finite reports whether all coefficients are finite.
func (c Coefficients) Finite() bool {
	for i := range c.Backscatter {
		if !finite(c.Backscatter[i]) || !finite(c.DirectSignal[i]) {
			return false
		}
	}
	return true
}

// BackscatterFactor returns 1-exp(-b*d).
func BackscatterFactor(b, d float64) float64 { return 1 - math.Exp(-b*d) }

// DirectSignalFactor returns exp(-a*d).
func DirectSignalFactor(a, d float64) float64 { return math.Exp(-a * d) }

// Observe applies the forward model, returning the value observed for an
// object of colour truth seen through veiling light veil at distance d.
func Observe(truth, veil, b, a, d float64) float64 {
	return truth*DirectSignalFactor(a, d) + veil*BackscatterFactor(b, d)
}

// Invert applies the inverse model to an observed value.
func Invert(observed, veil, bsFactor, dsFactor float64) float64 {
	return (observed - veil*bsFactor) / dsFactor
}

// Solve calculates the attenuation coefficients of each channel from the
// observed colours obs1 and obs2 of two patches with known colours truth1
// and truth2, the veiling light veil, and the distance d to the patches.
//
// For each channel, with t1, t2, o1, o2 and v the channel values:
//
//	b = -ln(((t1*o2 - t2*o1) + (t2-t1)*v) / ((t2-t1)*v)) / d
//	a = -ln((o2 - v*(1-exp(-b*d))) / t2) / d
//
// A *DomainError is returned if a channel has equal truth values, zero
// veiling light, a zero second truth value, or a non-positive log argument.
func Solve(obs1, obs2, truth1, truth2, veil [planes.NumChannels]float64, d float64) (Coefficients, error) {
	var c Coefficients
	if !(d > 0) {
		return c, fmt.Errorf("distance %v: %w", d, ErrDomain)
	}

	for i := range c.Backscatter {
		t1, t2, o1, o2, v := truth1[i], truth2[i], obs1[i], obs2[i], veil[i]
		switch {
		case t1 == t2:
			return c, &DomainError{Channel: i, Reason: "truth colours are equal"}
		case v == 0:
			return c, &DomainError{Channel: i, Reason: "veiling light is zero"}
		case t2 == 0:
			return c, &DomainError{Channel: i, Reason: "second truth colour is zero"}
		}

		bsArg := ((t1*o2 - t2*o1) + (t2-t1)*v) / ((t2 - t1) * v)
		if !(bsArg > 0) {
			return c, &DomainError{Channel: i, Reason: fmt.Sprintf("backscatter log argument %v not positive", bsArg)}
		}
		c.Backscatter[i] = -math.Log(bsArg) / d

		dsArg := (o2 - v*BackscatterFactor(c.Backscatter[i], d)) / t2
		if !(dsArg > 0) {
			return c, &DomainError{Channel: i, Reason: fmt.Sprintf("direct signal log argument %v not positive", dsArg)}
		}
		c.DirectSignal[i] = -math.Log(dsArg) / d

		if !finite(c.Backscatter[i]) || !finite(c.DirectSignal[i]) {
			return c, &DomainError{Channel: i, Reason: "coefficients not finite"}
		}
	}
	return c, nil
}

// FromFactors converts fitted backscatter and direct signal factors at
// distance d back to attenuation coefficients, inverting
// bs = 1-exp(-b*d) and ds = exp(-a*d).
func FromFactors(bs, ds [planes.NumChannels]float64, d float64) (Coefficients, error) {
	var c Coefficients
	if !(d > 0) {
		return c, fmt.Errorf("distance %v: %w", d, ErrDomain)
	}
	for i := range bs {
		if !(bs[i] < 1) {
			return c, &DomainError{Channel: i, Reason: fmt.Sprintf("backscatter factor %v not below 1", bs[i])}
		}
		if !(ds[i] > 0) {
			return c, &DomainError{Channel: i, Reason: fmt.Sprintf("direct signal factor %v not positive", ds[i])}
		}
		c.Backscatter[i] = -math.Log(1-bs[i]) / d
		c.DirectSignal[i] = -math.Log(ds[i]) / d
	}
	return c, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
