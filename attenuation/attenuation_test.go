/*
DESCRIPTION
  attenuation_test.go tests the closed form solve, the Levenberg-Marquardt
  fit and depth band refinement against synthetic observations generated
  with the forward model.

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
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/ausocean/uwcolor/planes"
)

type rgb = [planes.NumChannels]float64

// Synthetic scene used by the tests.
var (
	testCoeffs = Coefficients{
		Backscatter:  rgb{0.4, 0.3, 0.2},
		DirectSignal: rgb{0.1, 0.5, 0.9},
	}
	testTruth1   = rgb{40, 160, 200}
	testTruth2   = rgb{180, 60, 30}
	testVeil     = rgb{120, 90, 30}
	testDistance = 1.5
)

// observe returns the synthetic observations of both patches.
func observe(c Coefficients, veil rgb, d float64) (obs1, obs2 rgb) {
	for i := range obs1 {
		obs1[i] = Observe(testTruth1[i], veil[i], c.Backscatter[i], c.DirectSignal[i], d)
		obs2[i] = Observe(testTruth2[i], veil[i], c.Backscatter[i], c.DirectSignal[i], d)
	}
	return obs1, obs2
}

func equalCoeffs(t *testing.T, got, want Coefficients, tol float64) {
	t.Helper()
	for i := range want.Backscatter {
		if !scalar.EqualWithinAbs(got.Backscatter[i], want.Backscatter[i], tol) {
			t.Errorf("unexpected %s backscatter. Got: %v, Want: %v", planes.ChannelNames[i], got.Backscatter[i], want.Backscatter[i])
		}
		if !scalar.EqualWithinAbs(got.DirectSignal[i], want.DirectSignal[i], tol) {
			t.Errorf("unexpected %s direct signal. Got: %v, Want: %v", planes.ChannelNames[i], got.DirectSignal[i], want.DirectSignal[i])
		}
	}
}

func TestSolve(t *testing.T) {
	obs1, obs2 := observe(testCoeffs, testVeil, testDistance)
	got, err := Solve(obs1, obs2, testTruth1, testTruth2, testVeil, testDistance)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	equalCoeffs(t, got, testCoeffs, 1e-4)
}

func TestSolveDomain(t *testing.T) {
	obs1, obs2 := observe(testCoeffs, testVeil, testDistance)

	tests := []struct {
		name           string
		obs1, obs2     rgb
		truth1, truth2 rgb
		veil           rgb
		d              float64
	}{
		{name: "equal truth", obs1: obs1, obs2: obs2, truth1: testTruth1, truth2: rgb{40, 60, 30}, veil: testVeil, d: testDistance},
		{name: "zero veiling", obs1: obs1, obs2: obs2, truth1: testTruth1, truth2: testTruth2, veil: rgb{120, 0, 30}, d: testDistance},
		{name: "zero truth", obs1: obs1, obs2: obs2, truth1: testTruth1, truth2: rgb{180, 60, 0}, veil: testVeil, d: testDistance},
		{name: "negative log argument", obs1: rgb{0, 0, 0}, obs2: rgb{255, 255, 255}, truth1: testTruth1, truth2: testTruth2, veil: testVeil, d: testDistance},
		{name: "zero distance", obs1: obs1, obs2: obs2, truth1: testTruth1, truth2: testTruth2, veil: testVeil, d: 0},
	}

	for _, test := range tests {
		_, err := Solve(test.obs1, test.obs2, test.truth1, test.truth2, test.veil, test.d)
		if !errors.Is(err, ErrDomain) {
			t.Errorf("expected domain error for test: %s, got: %v", test.name, err)
		}
	}

	_, err := Solve(obs1, obs2, testTruth1, rgb{40, 60, 30}, testVeil, testDistance)
	var de *DomainError
	if !errors.As(err, &de) || de.Channel != planes.Blue {
		t.Errorf("expected blue channel domain error, got: %v", err)
	}
}

func TestFactorsRoundTrip(t *testing.T) {
	bs, ds := testCoeffs.Factors(testDistance)
	got, err := FromFactors(bs, ds, testDistance)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	equalCoeffs(t, got, testCoeffs, 1e-12)

	_, err = FromFactors(rgb{1, 0, 0}, ds, testDistance)
	if !errors.Is(err, ErrDomain) {
		t.Errorf("expected domain error for backscatter factor of 1, got: %v", err)
	}
}

func TestCoefficientsFinite(t *testing.T) {
	if !testCoeffs.Finite() {
		t.Errorf("expected finite coefficients: %+v", testCoeffs)
	}
	c := testCoeffs
	c.Backscatter[planes.Red] = math.Inf(1)
	if c.Finite() {
		t.Errorf("did not expect finite coefficients: %+v", c)
	}
}

func TestFit(t *testing.T) {
	want := Params{0.35, 0.6}
	var samples []Sample
	for _, v := range []float64{80, 100, 120} {
		for _, truth := range []float64{40, 180} {
			samples = append(samples, Sample{
				Observed: truth*want[1] + v*want[0],
				Veiling:  v,
				Truth:    truth,
			})
		}
	}

	res, err := Fit(samples, Params{1, 1}, DefaultSettings)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if !res.Converged {
		t.Errorf("fit did not converge after %d iterations, objective: %v", res.Iterations, res.Objective)
	}
	for i := range want {
		if !scalar.EqualWithinAbs(res.Params[i], want[i], 1e-4) {
			t.Errorf("unexpected parameter %d. Got: %v, Want: %v", i, res.Params[i], want[i])
		}
	}

	_, err = Fit(samples[:1], Params{1, 1}, DefaultSettings)
	if !errors.Is(err, ErrTooFewSamples) {
		t.Errorf("expected ErrTooFewSamples, got: %v", err)
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		depth, want float64
	}{
		{depth: 0.2, want: 0.5},
		{depth: 1.0, want: 1.5},
		{depth: 2.74, want: 3.0},
		{depth: 3.2, want: 3.5},
		{depth: 3.26, want: 4.0},
		{depth: 3.3, want: 4.0},
		{depth: 3.45, want: 4.0},
	}
	for i, test := range tests {
		if got := Quantize(test.depth); got != test.want {
			t.Errorf("did not get expected key for test: %d. Got: %v, Want: %v", i, got, test.want)
		}
	}

	if Quantize(3.3) != Quantize(3.45) {
		t.Error("expected 3.3 and 3.45 to share a key")
	}
	if Quantize(3.26) == Quantize(2.74) {
		t.Error("expected 3.26 and 2.74 to have different keys")
	}
}

// TestRefiner checks that observations within a band accumulate two samples
// per channel per call, and that crossing the band's upper bound fits, clears
// the samples and advances the band.
func TestRefiner(t *testing.T) {
	r := NewRefiner(0.5, Settings{})

	tests := []struct {
		depth       float64
		veil        rgb
		wantOutcome Outcome
		wantSamples int
		wantMax     float64
	}{
		{depth: 3.2, veil: rgb{110, 85, 25}, wantOutcome: Accumulated, wantSamples: 2, wantMax: 3.5},
		{depth: 3.3, veil: rgb{120, 90, 30}, wantOutcome: Accumulated, wantSamples: 4, wantMax: 3.5},
		{depth: 3.4, veil: rgb{130, 95, 35}, wantOutcome: Accumulated, wantSamples: 6, wantMax: 3.5},
		{depth: 3.5, veil: rgb{130, 95, 35}, wantOutcome: Skipped, wantSamples: 6, wantMax: 3.5},
		{depth: 3.6, veil: rgb{130, 95, 35}, wantOutcome: Fitted, wantSamples: 0, wantMax: 4.0},
		{depth: 3.7, veil: rgb{120, 90, 30}, wantOutcome: Accumulated, wantSamples: 2, wantMax: 4.0},
		{depth: 2.0, veil: rgb{120, 90, 30}, wantOutcome: Skipped, wantSamples: 2, wantMax: 4.0},
	}

	for i, test := range tests {
		obs1, obs2 := observe(testCoeffs, test.veil, testDistance)
		outcome, band, err := r.Observe(test.depth, obs1, obs2, testTruth1, testTruth2, test.veil, testDistance)
		if err != nil {
			t.Fatalf("did not expect error for test: %d: %v", i, err)
		}
		if outcome != test.wantOutcome {
			t.Errorf("unexpected outcome for test: %d. Got: %v, Want: %v", i, outcome, test.wantOutcome)
		}
		for c := 0; c < planes.NumChannels; c++ {
			if n := len(r.Samples(c)); n != test.wantSamples {
				t.Errorf("unexpected %s sample count for test: %d. Got: %d, Want: %d", planes.ChannelNames[c], i, n, test.wantSamples)
			}
		}
		if got, _ := r.MaxRange(); got != test.wantMax {
			t.Errorf("unexpected max range for test: %d. Got: %v, Want: %v", i, got, test.wantMax)
		}

		if outcome != Fitted {
			if band != nil {
				t.Errorf("did not expect band for test: %d", i)
			}
			continue
		}
		if band.MaxRange != 3.5 {
			t.Errorf("unexpected fitted band bound. Got: %v, Want: 3.5", band.MaxRange)
		}
		if !band.Converged() {
			t.Errorf("band fit did not converge: %+v", band.Results)
		}
		equalCoeffs(t, band.Coefficients, testCoeffs, 1e-4)
	}
}

// TestRefinerChannelsKeptApart checks samples of each channel only hold that
// channel's values.
func TestRefinerChannelsKeptApart(t *testing.T) {
	r := NewRefiner(1, DefaultSettings)
	obs1, obs2 := rgb{1, 2, 3}, rgb{4, 5, 6}
	if _, _, err := r.Observe(0.8, obs1, obs2, testTruth1, testTruth2, testVeil, testDistance); err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	for c := 0; c < planes.NumChannels; c++ {
		s := r.Samples(c)
		want := []Sample{
			{Observed: obs1[c], Veiling: testVeil[c], Truth: testTruth1[c]},
			{Observed: obs2[c], Veiling: testVeil[c], Truth: testTruth2[c]},
		}
		if len(s) != len(want) || s[0] != want[0] || s[1] != want[1] {
			t.Errorf("unexpected %s samples. Got: %v, Want: %v", planes.ChannelNames[c], s, want)
		}
	}
}

// TestRefinerZeroVeiling checks that a channel with no veiling light fails its
// band fit with a domain error naming the channel.
func TestRefinerZeroVeiling(t *testing.T) {
	r := NewRefiner(0.5, DefaultSettings)
	veil := rgb{120, 0, 30}
	obs1, obs2 := observe(testCoeffs, veil, testDistance)

	for _, depth := range []float64{3.2, 3.4} {
		if _, _, err := r.Observe(depth, obs1, obs2, testTruth1, testTruth2, veil, testDistance); err != nil {
			t.Fatalf("did not expect error at depth %v: %v", depth, err)
		}
	}

	outcome, band, err := r.Observe(3.6, obs1, obs2, testTruth1, testTruth2, veil, testDistance)
	if outcome != Fitted {
		t.Fatalf("unexpected outcome. Got: %v, Want: %v", outcome, Fitted)
	}
	var de *DomainError
	if !errors.As(err, &de) {
		t.Fatalf("expected DomainError, got: %v", err)
	}
	if de.Channel != planes.Green {
		t.Errorf("unexpected channel. Got: %d, Want: %d", de.Channel, planes.Green)
	}
	if band == nil || band.Results[planes.Green].Converged {
		t.Errorf("unexpected band: %+v", band)
	}
	if n := len(r.Samples(planes.Green)); n != 0 {
		t.Errorf("samples not cleared. Got: %d", n)
	}
	if got, _ := r.MaxRange(); got != 4.0 {
		t.Errorf("unexpected max range. Got: %v, Want: 4", got)
	}
}
