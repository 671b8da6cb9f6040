/*
DESCRIPTION
  fit.go provides a Levenberg-Marquardt least squares fit of the inverse
  attenuation model parameters to a set of observation samples.

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

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrTooFewSamples is returned when a fit is requested with fewer samples
// than parameters.
var ErrTooFewSamples = errors.New("too few samples to fit")

// Sample is a single observation of one channel: the observed value and the
// veiling light value, paired with the known true value.
type Sample struct {
	Observed float64
	Veiling  float64
	Truth    float64
}

// Params are the parameters of the inverse model: the backscatter factor
// and the direct signal factor.
type Params [2]float64

// Model returns the corrected value of sample s under params p:
// (observed - veiling*p[0]) / p[1].
func Model(s Sample, p Params) float64 {
	return (s.Observed - s.Veiling*p[0]) / p[1]
}

// Settings control the Levenberg-Marquardt fit.
type Settings struct {
	Tolerance     float64 // Stop when the relative change in objective falls below this.
	MaxIterations int
	Damping       float64 // Initial damping factor.
}

// DefaultSettings are the settings used when none are given.
var DefaultSettings = Settings{
	Tolerance:     1e-7,
	MaxIterations: 200,
	Damping:       1e-3,
}

// Damping limits.
const (
	maxDamping    = 1e16
	dampingFactor = 10
)

// FitResult holds the outcome of a fit.
type FitResult struct {
	Params     Params
	Objective  float64 // Half the sum of squared residuals.
	Iterations int
	Converged  bool // False if the iteration or damping limit was reached first.
}

// Fit fits the model parameters to samples with the Levenberg-Marquardt
// method, starting from init. The residual of a sample is
// Model(s, p) - s.Truth.
func Fit(samples []Sample, init Params, set Settings) (FitResult, error) {
	if len(samples) < len(init) {
		return FitResult{Params: init}, fmt.Errorf("have %d samples: %w", len(samples), ErrTooFewSamples)
	}
	if set.Tolerance <= 0 || set.MaxIterations <= 0 {
		set = DefaultSettings
	}
	lambda := set.Damping
	if lambda <= 0 {
		lambda = DefaultSettings.Damping
	}

	n := len(samples)
	r := mat.NewVecDense(n, nil)
	jac := mat.NewDense(n, 2, nil)
	var jtj mat.SymDense
	var grad, step mat.VecDense
	damped := mat.NewSymDense(2, nil)

	p := init
	obj := objective(samples, p, r)
	if !finite(obj) {
		return FitResult{Params: p, Objective: obj}, fmt.Errorf("objective not finite at %v: %w", p, ErrDomain)
	}

	res := FitResult{Params: p, Objective: obj}
	for res.Iterations < set.MaxIterations {
		res.Iterations++
		if obj == 0 {
			res.Converged = true
			break
		}

		jacobian(samples, p, jac)
		jtj.SymOuterK(1, jac.T())
		grad.MulVec(jac.T(), r)

		// Increase damping until a step reduces the objective.
		var accepted bool
		for lambda <= maxDamping {
			damped.CopySym(&jtj)
			for i := 0; i < 2; i++ {
				damped.SetSym(i, i, jtj.At(i, i)+lambda)
			}
			var chol mat.Cholesky
			if chol.Factorize(damped) {
				if err := chol.SolveVecTo(&step, &grad); err == nil {
					next := Params{p[0] - step.AtVec(0), p[1] - step.AtVec(1)}
					nextObj := objective(samples, next, nil)
					if finite(nextObj) && nextObj < obj {
						p, accepted = next, true
						lambda /= dampingFactor
						converged := (obj-nextObj) <= set.Tolerance*nextObj || nextObj == 0
						obj = objective(samples, p, r)
						res.Params, res.Objective = p, obj
						res.Converged = converged
						break
					}
				}
			}
			lambda *= dampingFactor
		}
		if !accepted {
			// No downhill step exists; we are at a minimum to working precision
			// if the gradient has vanished.
			res.Converged = floats.Norm(grad.RawVector().Data, 2) <= math.Sqrt(set.Tolerance)*math.Max(1, obj)
			break
		}
		if res.Converged {
			break
		}
	}
	return res, nil
}

// objective returns half the sum of squared residuals at p, storing the
// residuals in r if it is not nil.
func objective(samples []Sample, p Params, r *mat.VecDense) float64 {
	var sum float64
	for i, s := range samples {
		e := Model(s, p) - s.Truth
		if r != nil {
			r.SetVec(i, e)
		}
		sum += e * e
	}
	return sum / 2
}

// jacobian fills jac with the partial derivatives of each residual with
// respect to the parameters.
func jacobian(samples []Sample, p Params, jac *mat.Dense) {
	for i, s := range samples {
		jac.Set(i, 0, -s.Veiling/p[1])
		jac.Set(i, 1, -(s.Observed-s.Veiling*p[0])/(p[1]*p[1]))
	}
}
