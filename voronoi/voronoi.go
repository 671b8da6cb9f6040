/*
DESCRIPTION
  voronoi.go provides construction of Voronoi cells from sparse samples over
  an image rectangle, and filling of a dense distance field from those cells.

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

// Package voronoi interpolates sparse (point, distance) samples into a dense
// per pixel distance field by nearest sample region partitioning.
//
// Pixel (x, y) of the field is located at point (x, y); sample points use the
// same coordinates.
package voronoi

import (
	"errors"
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
)

// ErrNoSamples is returned when no samples are given.
var ErrNoSamples = errors.New("no samples")

// eps is the tolerance used for geometric inclusion tests.
const eps = 1e-9

// Sample is a point with an associated distance from the camera.
type Sample struct {
	Point    r2.Vec
	Distance float64
}

// Cell is the Voronoi cell of a sample, clipped to the domain rectangle.
type Cell struct {
	Sample  Sample
	Polygon []r2.Vec // Convex, in order. Empty if the cell lies outside the domain.
}

// Dedupe returns samples with coincident points removed; the first sample at
// a point wins.
func Dedupe(samples []Sample) []Sample {
	seen := make(map[r2.Vec]bool, len(samples))
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if seen[s.Point] {
			continue
		}
		seen[s.Point] = true
		out = append(out, s)
	}
	return out
}

// Cells returns the Voronoi cell of each distinct sample within bounds. Each
// cell is the bounds rectangle clipped by the half planes bounded by the
// perpendicular bisectors between its sample and every other sample.
func Cells(bounds image.Rectangle, samples []Sample) ([]Cell, error) {
	if bounds.Empty() {
		return nil, fmt.Errorf("empty bounds %v", bounds)
	}
	samples = Dedupe(samples)
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	rect := []r2.Vec{
		{X: float64(bounds.Min.X), Y: float64(bounds.Min.Y)},
		{X: float64(bounds.Max.X), Y: float64(bounds.Min.Y)},
		{X: float64(bounds.Max.X), Y: float64(bounds.Max.Y)},
		{X: float64(bounds.Min.X), Y: float64(bounds.Max.Y)},
	}

	cells := make([]Cell, len(samples))
	for i, s := range samples {
		poly := append([]r2.Vec(nil), rect...)
		for j, o := range samples {
			if i == j || len(poly) == 0 {
				continue
			}
			poly = clip(poly, s.Point, o.Point)
		}
		cells[i] = Cell{Sample: s, Polygon: poly}
	}
	return cells, nil
}

// clip clips the convex polygon poly to the half plane of points at least as
// close to p as to q, using Sutherland-Hodgman.
func clip(poly []r2.Vec, p, q r2.Vec) []r2.Vec {
	n := r2.Sub(q, p)
	m := r2.Scale(0.5, r2.Add(p, q))
	// side is negative or zero for points on p's side of the bisector.
	side := func(v r2.Vec) float64 { return r2.Dot(r2.Sub(v, m), n) }

	var out []r2.Vec
	for i, cur := range poly {
		prev := poly[(i+len(poly)-1)%len(poly)]
		sc, sp := side(cur), side(prev)
		if sc <= 0 {
			if sp > 0 {
				out = append(out, intersect(prev, cur, sp, sc))
			}
			out = append(out, cur)
		} else if sp <= 0 {
			out = append(out, intersect(prev, cur, sp, sc))
		}
	}
	return out
}

// intersect returns the point on segment a-b where the side function, with
// values sa at a and sb at b, is zero.
func intersect(a, b r2.Vec, sa, sb float64) r2.Vec {
	t := sa / (sa - sb)
	return r2.Add(a, r2.Scale(t, r2.Sub(b, a)))
}

// Fill returns a field with one element per pixel of bounds, row major,
// holding the distance of the sample whose Voronoi cell contains the pixel.
// A pixel on a shared cell edge takes the distance of the later cell. Any
// pixel not covered by a cell polygon takes the distance of its nearest
// sample.
func Fill(bounds image.Rectangle, samples []Sample) (*mat.Dense, error) {
	cells, err := Cells(bounds, samples)
	if err != nil {
		return nil, err
	}

	rows, cols := bounds.Dy(), bounds.Dx()
	field := mat.NewDense(rows, cols, nil)
	covered := make([]bool, rows*cols)
	for _, c := range cells {
		fillConvex(field, covered, bounds, c.Polygon, c.Sample.Distance)
	}

	var nn *nearest
	for i, ok := range covered {
		if ok {
			continue
		}
		if nn == nil {
			nn = newNearest(cells)
		}
		y, x := i/cols, i%cols
		p := r2.Vec{X: float64(x + bounds.Min.X), Y: float64(y + bounds.Min.Y)}
		field.Set(y, x, nn.distance(p))
	}
	return field, nil
}

// fillConvex sets every element of field whose pixel lies within the convex
// polygon poly, edges included, to v.
func fillConvex(field *mat.Dense, covered []bool, bounds image.Rectangle, poly []r2.Vec, v float64) {
	if len(poly) < 3 {
		return
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range poly {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	x0 := max(int(math.Ceil(minX-eps)), bounds.Min.X)
	x1 := min(int(math.Floor(maxX+eps)), bounds.Max.X-1)
	y0 := max(int(math.Ceil(minY-eps)), bounds.Min.Y)
	y1 := min(int(math.Floor(maxY+eps)), bounds.Max.Y-1)

	_, cols := field.Dims()
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if !inside(poly, r2.Vec{X: float64(x), Y: float64(y)}) {
				continue
			}
			r, c := y-bounds.Min.Y, x-bounds.Min.X
			field.Set(r, c, v)
			covered[r*cols+c] = true
		}
	}
}

// inside reports whether p lies within or on the convex polygon poly, of
// either winding.
func inside(poly []r2.Vec, p r2.Vec) bool {
	var pos, neg bool
	for i, a := range poly {
		b := poly[(i+1)%len(poly)]
		e := r2.Sub(b, a)
		cross := r2.Cross(e, r2.Sub(p, a))
		tol := eps * math.Max(1, r2.Norm(e))
		switch {
		case cross > tol:
			pos = true
		case cross < -tol:
			neg = true
		}
		if pos && neg {
			return false
		}
	}
	return true
}
