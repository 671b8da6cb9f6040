/*
DESCRIPTION
  nearest.go provides nearest sample lookup using a k-d tree, used to fill
  pixels that no cell polygon covers.

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

package voronoi

import (
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r2"
)

// site is a sample stored in the k-d tree.
type site struct {
	p    r2.Vec
	dist float64
}

func (s site) coord(d kdtree.Dim) float64 {
	if d == 0 {
		return s.p.X
	}
	return s.p.Y
}

// Compare implements kdtree.Comparable.
func (s site) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return s.coord(d) - c.(site).coord(d)
}

// Dims implements kdtree.Comparable.
func (s site) Dims() int { return 2 }

// Distance implements kdtree.Comparable, returning the squared Euclidean
// distance.
func (s site) Distance(c kdtree.Comparable) float64 {
	d := r2.Sub(s.p, c.(site).p)
	return r2.Dot(d, d)
}

// sites implements kdtree.Interface.
type sites []site

func (s sites) Index(i int) kdtree.Comparable         { return s[i] }
func (s sites) Len() int                              { return len(s) }
func (s sites) Slice(start, end int) kdtree.Interface { return s[start:end] }

// Pivot sorts s along dimension d and returns the median index.
func (s sites) Pivot(d kdtree.Dim) int {
	sort.Slice(s, func(i, j int) bool { return s[i].coord(d) < s[j].coord(d) })
	return len(s) / 2
}

type nearest struct {
	tree *kdtree.Tree
}

func newNearest(cells []Cell) *nearest {
	s := make(sites, len(cells))
	for i, c := range cells {
		s[i] = site{p: c.Sample.Point, dist: c.Sample.Distance}
	}
	return &nearest{tree: kdtree.New(s, false)}
}

// distance returns the sample distance of the sample nearest to p.
func (n *nearest) distance(p r2.Vec) float64 {
	c, _ := n.tree.Nearest(site{p: p})
	return c.(site).dist
}
