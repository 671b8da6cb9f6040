/*
DESCRIPTION
  plot.go provides plotting of calibration table coefficients against depth.

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

package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/ausocean/uwcolor/planes"
)

// PlotTable plots the backscatter and direct signal coefficients of t against
// depth, saving one PNG for each into dir.
func PlotTable(t *Table, dir string) error {
	if t.Len() == 0 {
		return errors.New("calibration table is empty")
	}

	entries := t.Entries()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Depth < entries[j].Depth })

	depths := make([]float64, len(entries))
	var bs, ds [planes.NumChannels][]float64
	for c := range bs {
		bs[c] = make([]float64, len(entries))
		ds[c] = make([]float64, len(entries))
	}
	for i, e := range entries {
		depths[i] = e.Depth
		for c := range bs {
			bs[c][i] = e.Backscatter[c]
			ds[c][i] = e.DirectSignal[c]
		}
	}

	err := plotToFile(
		dir,
		"Backscatter Attenuation",
		"Depth (m)",
		"Coefficient (1/m)",
		func(p *plot.Plot) error {
			return plotutil.AddLinePoints(p,
				"blue", plotterXY(depths, bs[planes.Blue]),
				"green", plotterXY(depths, bs[planes.Green]),
				"red", plotterXY(depths, bs[planes.Red]),
			)
		},
	)
	if err != nil {
		return fmt.Errorf("could not plot backscatter attenuation: %w", err)
	}

	err = plotToFile(
		dir,
		"Direct Signal Attenuation",
		"Depth (m)",
		"Coefficient (1/m)",
		func(p *plot.Plot) error {
			return plotutil.AddLinePoints(p,
				"blue", plotterXY(depths, ds[planes.Blue]),
				"green", plotterXY(depths, ds[planes.Green]),
				"red", plotterXY(depths, ds[planes.Red]),
			)
		},
	)
	if err != nil {
		return fmt.Errorf("could not plot direct signal attenuation: %w", err)
	}
	return nil
}

// plotToFile creates a plot with a specified name and x&y titles using the
// provided draw function, and then saves to a PNG file named name in dir.
func plotToFile(dir, name, xTitle, yTitle string, draw func(*plot.Plot) error) error {
	p := plot.New()
	p.Title.Text = name
	p.X.Label.Text = xTitle
	p.Y.Label.Text = yTitle
	err := draw(p)
	if err != nil {
		return fmt.Errorf("could not draw plot contents: %w", err)
	}
	if err := p.Save(15*vg.Centimeter, 15*vg.Centimeter, filepath.Join(dir, name+".png")); err != nil {
		return fmt.Errorf("could not save plot: %w", err)
	}
	return nil
}

// plotterXY provides a plotter.XYs type value based on the given x and y data.
func plotterXY(x, y []float64) plotter.XYs {
	xy := make(plotter.XYs, len(x))
	for i := range x {
		xy[i].X = x[i]
		xy[i].Y = y[i]
	}
	return xy
}
