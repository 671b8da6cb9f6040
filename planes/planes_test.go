/*
DESCRIPTION
  planes_test.go tests the Image type and its conversions.

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

package planes

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestFromImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(2, 3, 5, 5))
	src.SetNRGBA(2, 3, color.NRGBA{R: 10, G: 20, B: 30, A: 0xff})
	src.SetNRGBA(4, 4, color.NRGBA{R: 200, G: 100, B: 50, A: 0xff})

	im := FromImage(src)
	rows, cols := im.Dims()
	if rows != 2 || cols != 3 {
		t.Fatalf("unexpected dims. Got: (%d, %d), Want: (2, 3)", rows, cols)
	}

	tests := []struct {
		x, y int
		want [NumChannels]float64
	}{
		{x: 0, y: 0, want: [NumChannels]float64{30, 20, 10}},
		{x: 2, y: 1, want: [NumChannels]float64{50, 100, 200}},
		{x: 1, y: 0, want: [NumChannels]float64{0, 0, 0}},
	}
	for i, test := range tests {
		if got := im.At(test.x, test.y); got != test.want {
			t.Errorf("did not get expected value for test: %d. Got: %v, Want: %v", i, got, test.want)
		}
	}
}

func TestToNRGBASaturates(t *testing.T) {
	im := New(1, 3)
	im.Set(0, 0, [NumChannels]float64{-20, 127.6, 300})
	im.Set(1, 0, [NumChannels]float64{255, 0, 0.4})

	out := im.ToNRGBA()
	tests := []struct {
		x    int
		want color.NRGBA
	}{
		{x: 0, want: color.NRGBA{R: 255, G: 128, B: 0, A: 0xff}},
		{x: 1, want: color.NRGBA{R: 0, G: 0, B: 255, A: 0xff}},
	}
	for i, test := range tests {
		if got := out.NRGBAAt(test.x, 0); got != test.want {
			t.Errorf("did not get expected colour for test: %d. Got: %v, Want: %v", i, got, test.want)
		}
	}
}

func TestMean(t *testing.T) {
	im := New(4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			im.Set(x, y, [NumChannels]float64{float64(x), float64(y), 7})
		}
	}

	got, err := im.Mean(image.Rect(1, 2, 3, 4))
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	want := [NumChannels]float64{1.5, 2.5, 7}
	if got != want {
		t.Errorf("unexpected mean. Got: %v, Want: %v", got, want)
	}

	for _, r := range []image.Rectangle{image.Rect(0, 0, 0, 0), image.Rect(2, 2, 5, 3), image.Rect(-1, 0, 2, 2)} {
		_, err := im.Mean(r)
		if !errors.Is(err, ErrBadRegion) {
			t.Errorf("expected ErrBadRegion for %v, got: %v", r, err)
		}
	}
}

func TestDecode(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(1, 1, color.NRGBA{R: 1, G: 2, B: 3, A: 0xff})
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("could not encode png: %v", err)
	}

	im, err := Decode(&buf)
	if err != nil {
		t.Fatalf("could not decode: %v", err)
	}
	want := [NumChannels]float64{3, 2, 1}
	if got := im.At(1, 1); got != want {
		t.Errorf("unexpected pixel. Got: %v, Want: %v", got, want)
	}
}

func TestNewFromPlanes(t *testing.T) {
	b := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	g := mat.NewDense(2, 3, nil)
	r := mat.NewDense(2, 3, nil)
	r.Set(1, 2, 9)

	im, err := NewFromPlanes(b, g, r)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got, want := im.At(2, 1), [NumChannels]float64{6, 0, 9}; got != want {
		t.Errorf("unexpected value. Got: %v, Want: %v", got, want)
	}

	_, err = NewFromPlanes(b, g, mat.NewDense(3, 2, nil))
	if err == nil {
		t.Error("expected error for mismatched planes")
	}
}
