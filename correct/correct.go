/*
DESCRIPTION
  correct.go provides a colour correction session that obtains attenuation
  coefficients for each frame and removes backscatter and direct signal
  attenuation from the frame's colours.

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

// Package correct restores the colours of underwater images by inverting the
// attenuation model of package attenuation, either at the uniform scene
// distance or over a per pixel distance field.
package correct

import (
	"errors"
	"fmt"
	"time"

	"github.com/ausocean/utils/logging"
	"gonum.org/v1/gonum/mat"

	"github.com/ausocean/uwcolor/attenuation"
	"github.com/ausocean/uwcolor/planes"
	"github.com/ausocean/uwcolor/scene"
	"github.com/ausocean/uwcolor/store"
	"github.com/ausocean/uwcolor/veiling"
	"github.com/ausocean/uwcolor/voronoi"
)

// ErrNoCoefficients is returned when the prior strategy is selected without a
// prior calibration table.
var ErrNoCoefficients = errors.New("no prior calibration table")

// Strategy is the means by which a Session obtains attenuation coefficients.
type Strategy int

const (
	UseClosedForm Strategy = iota // Solve from the calibration patches of each frame.
	UsePrior                      // Look up a prior calibration table by depth.
	UseRefinement                 // Fit the patches of each depth band.
)

func (s Strategy) String() string {
	switch s {
	case UseClosedForm:
		return "closed form"
	case UsePrior:
		return "prior"
	case UseRefinement:
		return "refinement"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// Config holds the options of a Session.
type Config struct {
	EstimateVeilingLight bool    // Sample veiling light from the background region rather than integrate the spectral tables.
	PriorData            bool    // Use a prior calibration table.
	SaveData             bool    // Record coefficients into an output table.
	Optimize             bool    // Refine coefficients by fitting depth bands.
	Range                float64 // Depth band width for refinement, attenuation.DefaultRange if zero.
	Fit                  attenuation.Settings
}

// Strategy returns the strategy selected by c. Prior data takes precedence
// over optimization.
func (c Config) Strategy() Strategy {
	switch {
	case c.PriorData:
		return UsePrior
	case c.Optimize:
		return UseRefinement
	}
	return UseClosedForm
}

// Session holds the state of a sequence of corrections. A Session is not safe
// for concurrent use.
type Session struct {
	scene    *scene.Scene
	cfg      Config
	strategy Strategy
	veil     veiling.Estimator
	prior    *store.Table
	output   *store.Table
	refiner  *attenuation.Refiner

	// Coefficients of the most recent completed band under refinement.
	coeffs    attenuation.Coefficients
	committed bool

	log logging.Logger
}

// NewSession returns a new Session for the scene sc. prior is required when
// cfg selects prior data and ignored otherwise.
func NewSession(sc *scene.Scene, cfg Config, prior *store.Table, log logging.Logger) (*Session, error) {
	if sc == nil {
		return nil, errors.New("nil scene")
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scene: %w", err)
	}

	s := &Session{
		scene:    sc,
		cfg:      cfg,
		strategy: cfg.Strategy(),
		veil:     veiling.Estimator{Scene: sc, Sample: cfg.EstimateVeilingLight},
		log:      log,
	}

	switch s.strategy {
	case UsePrior:
		if prior == nil {
			return nil, ErrNoCoefficients
		}
		s.prior = prior
	case UseRefinement:
		set := cfg.Fit
		if set == (attenuation.Settings{}) {
			set = attenuation.DefaultSettings
		}
		s.refiner = attenuation.NewRefiner(cfg.Range, set)
	}

	if cfg.SaveData {
		s.output = store.NewTable()
	}

	log.Info("correction session created", "strategy", s.strategy.String(), "sample veiling light", cfg.EstimateVeilingLight, "save data", cfg.SaveData)
	return s, nil
}

// Strategy returns the session's coefficient strategy.
func (s *Session) Strategy() Strategy { return s.strategy }

// Coefficients returns the coefficients of the most recently completed depth
// band and whether one has completed. It is only meaningful under refinement.
func (s *Session) Coefficients() (attenuation.Coefficients, bool) {
	return s.coeffs, s.committed
}

// Output returns the table of recorded coefficients, or nil if the session
// does not save data.
func (s *Session) Output() *store.Table { return s.output }

// Correct returns img corrected at the scene distance using coefficients for
// the given depth. img is not modified.
func (s *Session) Correct(img *planes.Image, depth float64) (*planes.Image, error) {
	veil, c, err := s.prepare(img, depth)
	if err != nil {
		return nil, err
	}

	timer := time.Now()
	out := uniform(img, veil, c, s.scene.Distance)
	s.log.Debug("uniform correction successful", "correction duration (sec)", time.Since(timer).Seconds())
	return out, nil
}

// CorrectField returns img corrected using coefficients for the given depth
// over a distance field interpolated from samples, which are located in
// pixel coordinates. With no samples the scene distance is used throughout.
// img is not modified.
func (s *Session) CorrectField(img *planes.Image, depth float64, samples []voronoi.Sample) (*planes.Image, error) {
	if len(samples) == 0 {
		s.log.Warning("no distance samples, using uniform correction", "depth", depth)
		return s.Correct(img, depth)
	}

	veil, c, err := s.prepare(img, depth)
	if err != nil {
		return nil, err
	}

	timer := time.Now()
	field, err := voronoi.Fill(img.Bounds(), samples)
	if err != nil {
		return nil, fmt.Errorf("could not fill distance field: %w", err)
	}
	s.log.Debug("distance field filled", "samples", len(samples), "fill duration (sec)", time.Since(timer).Seconds())

	timer = time.Now()
	out := spatial(img, veil, c, field)
	s.log.Debug("field correction successful", "correction duration (sec)", time.Since(timer).Seconds())
	return out, nil
}

// Calibrate feeds the calibration patches of img at the given depth to the
// depth band refiner. When a band completes with usable coefficients they
// become the session's coefficients. Calibrate may only be used under
// refinement.
func (s *Session) Calibrate(img *planes.Image, depth float64) (attenuation.Outcome, error) {
	if s.strategy != UseRefinement {
		return attenuation.Skipped, fmt.Errorf("cannot calibrate bands using %s strategy", s.strategy)
	}
	veil, err := s.estimate(img)
	if err != nil {
		return attenuation.Skipped, err
	}
	return s.calibrate(img, depth, veil)
}

// estimate returns the veiling light for img.
func (s *Session) estimate(img *planes.Image) (veiling.Light, error) {
	timer := time.Now()
	veil, err := s.veil.Estimate(img)
	if err != nil {
		return veil, fmt.Errorf("could not estimate veiling light: %w", err)
	}
	s.log.Debug("veiling light estimated", "veiling light", veil, "estimation duration (sec)", time.Since(timer).Seconds())
	return veil, nil
}

// patches returns the mean observed colours of the two calibration patches.
func (s *Session) patches(img *planes.Image) (obs1, obs2 [planes.NumChannels]float64, err error) {
	obs1, err = img.Mean(s.scene.Color1Sample.Rectangle())
	if err != nil {
		return obs1, obs2, fmt.Errorf("could not sample first patch: %w", err)
	}
	obs2, err = img.Mean(s.scene.Color2Sample.Rectangle())
	if err != nil {
		return obs1, obs2, fmt.Errorf("could not sample second patch: %w", err)
	}
	return obs1, obs2, nil
}

// solve calculates coefficients from the patches of img alone.
func (s *Session) solve(img *planes.Image, veil veiling.Light) (attenuation.Coefficients, error) {
	obs1, obs2, err := s.patches(img)
	if err != nil {
		return attenuation.Coefficients{}, err
	}
	c, err := attenuation.Solve(obs1, obs2, s.scene.Color1Truth, s.scene.Color2Truth, veil, s.scene.Distance)
	if err != nil {
		return c, fmt.Errorf("could not solve coefficients: %w", err)
	}
	return c, nil
}

// calibrate feeds img to the refiner, committing the coefficients of a
// completed band.
func (s *Session) calibrate(img *planes.Image, depth float64, veil veiling.Light) (attenuation.Outcome, error) {
	obs1, obs2, err := s.patches(img)
	if err != nil {
		return attenuation.Skipped, err
	}

	timer := time.Now()
	outcome, band, err := s.refiner.Observe(depth, obs1, obs2, s.scene.Color1Truth, s.scene.Color2Truth, veil, s.scene.Distance)
	if outcome != attenuation.Fitted {
		s.log.Debug("calibration observed", "depth", depth, "outcome", outcome.String())
		return outcome, nil
	}
	s.log.Debug("depth band fitted", "max range", band.MaxRange, "fit duration (sec)", time.Since(timer).Seconds())

	if err != nil {
		s.log.Warning("could not fit depth band, keeping previous coefficients", "max range", band.MaxRange, "error", err.Error())
		return outcome, nil
	}
	if !band.Converged() {
		s.log.Warning("depth band fit did not converge", "max range", band.MaxRange)
	}
	s.coeffs, s.committed = band.Coefficients, true
	s.record(band.MaxRange, band.Coefficients)
	return outcome, nil
}

// prepare returns the veiling light and coefficients to correct img at depth.
func (s *Session) prepare(img *planes.Image, depth float64) (veiling.Light, attenuation.Coefficients, error) {
	var c attenuation.Coefficients
	veil, err := s.estimate(img)
	if err != nil {
		return veil, c, err
	}

	timer := time.Now()
	switch s.strategy {
	case UsePrior:
		c, err = s.prior.Lookup(depth)
		if err != nil {
			return veil, c, fmt.Errorf("could not get prior coefficients: %w", err)
		}
		if !c.Finite() {
			return veil, c, fmt.Errorf("prior coefficients for depth %v not finite: %w", depth, attenuation.ErrDomain)
		}
		s.record(depth, c)

	case UseClosedForm:
		c, err = s.solve(img, veil)
		if err != nil {
			return veil, c, err
		}
		s.record(depth, c)

	case UseRefinement:
		_, err = s.calibrate(img, depth, veil)
		if err != nil {
			return veil, c, fmt.Errorf("could not calibrate: %w", err)
		}
		if s.committed {
			c = s.coeffs
			break
		}
		// No band has completed yet.
		c, err = s.solve(img, veil)
		if err != nil {
			return veil, c, err
		}

	default:
		panic(fmt.Sprintf("unknown strategy %v", s.strategy))
	}
	s.log.Debug("coefficients obtained", "strategy", s.strategy.String(), "depth", depth, "coefficients", c, "duration (sec)", time.Since(timer).Seconds())
	return veil, c, nil
}

// record adds c to the output table under key if the session saves data.
func (s *Session) record(key float64, c attenuation.Coefficients) {
	if s.output == nil {
		return
	}
	s.output.Add(key, c)
}

// uniform applies the inverse model to every pixel of img at distance d.
func uniform(img *planes.Image, veil veiling.Light, c attenuation.Coefficients, d float64) *planes.Image {
	bs, ds := c.Factors(d)
	out := &planes.Image{}
	for ch, p := range img.Planes {
		v, b, a := veil[ch], bs[ch], ds[ch]
		var dst mat.Dense
		dst.Apply(func(_, _ int, o float64) float64 { return attenuation.Invert(o, v, b, a) }, p)
		out.Planes[ch] = &dst
	}
	return out
}

// spatial applies the inverse model to each pixel of img at the distance
// given by the corresponding element of field.
func spatial(img *planes.Image, veil veiling.Light, c attenuation.Coefficients, field *mat.Dense) *planes.Image {
	out := &planes.Image{}
	for ch, p := range img.Planes {
		b, a := c.Backscatter[ch], c.DirectSignal[ch]

		var bs, ds mat.Dense
		bs.Apply(func(_, _ int, d float64) float64 { return attenuation.BackscatterFactor(b, d) }, field)
		ds.Apply(func(_, _ int, d float64) float64 { return attenuation.DirectSignalFactor(a, d) }, field)

		var dst mat.Dense
		bs.Scale(veil[ch], &bs)
		dst.Sub(p, &bs)
		dst.DivElem(&dst, &ds)
		out.Planes[ch] = &dst
	}
	return out
}
