//go:build withcv
// +build withcv

/*
DESCRIPTION
  cvmat.go provides conversion between gocv Mats and planes Images, and
  OpenCV backed image file reading and writing.

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

// Package cvmat converts between OpenCV matrices and planes Images.
package cvmat

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"

	"github.com/ausocean/uwcolor/planes"
)

// FromMat converts a three channel BGR Mat of any depth to an Image.
func FromMat(m gocv.Mat) (*planes.Image, error) {
	if m.Empty() {
		return nil, errors.New("mat is empty")
	}
	if m.Channels() != planes.NumChannels {
		return nil, fmt.Errorf("mat has %d channels, want %d", m.Channels(), planes.NumChannels)
	}

	bgr := gocv.Split(m)
	defer func() {
		for i := range bgr {
			bgr[i].Close()
		}
	}()

	var ps [planes.NumChannels]*mat.Dense
	f := gocv.NewMat()
	defer f.Close()
	for c := range bgr {
		bgr[c].ConvertTo(&f, gocv.MatTypeCV64F)
		p := mat.NewDense(f.Rows(), f.Cols(), nil)
		for i := 0; i < f.Rows(); i++ {
			for j := 0; j < f.Cols(); j++ {
				p.Set(i, j, f.GetDoubleAt(i, j))
			}
		}
		ps[c] = p
	}
	return planes.NewFromPlanes(ps[planes.Blue], ps[planes.Green], ps[planes.Red])
}

// ToMat converts im to an 8 bit three channel BGR Mat. Values are rounded and
// saturated to [0,255]. The caller is responsible for closing the Mat.
func ToMat(im *planes.Image) (gocv.Mat, error) {
	rows, cols := im.Dims()
	if rows == 0 || cols == 0 {
		return gocv.NewMat(), errors.New("image is empty")
	}

	bgr := make([]gocv.Mat, planes.NumChannels)
	defer func() {
		for i := range bgr {
			bgr[i].Close()
		}
	}()
	for c := range bgr {
		bgr[c] = fromDense(im.Planes[c])
	}

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge(bgr, &merged)

	out := gocv.NewMat()
	merged.ConvertTo(&out, gocv.MatTypeCV8UC3)
	return out, nil
}

// fromDense copies a plane into a new single channel 64 bit float Mat.
func fromDense(p *mat.Dense) gocv.Mat {
	rows, cols := p.Dims()
	m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV64F)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.SetDoubleAt(i, j, p.At(i, j))
		}
	}
	return m
}

// Read reads a colour image file using OpenCV.
func Read(path string) (*planes.Image, error) {
	m := gocv.IMRead(path, gocv.IMReadColor)
	defer m.Close()
	if m.Empty() {
		return nil, fmt.Errorf("could not read image %s", path)
	}
	return FromMat(m)
}

// Write writes im to path using OpenCV; the format follows the extension.
func Write(path string, im *planes.Image) error {
	m, err := ToMat(im)
	if err != nil {
		return fmt.Errorf("could not convert image: %w", err)
	}
	defer m.Close()
	if !gocv.IMWrite(path, m) {
		return fmt.Errorf("could not write image %s", path)
	}
	return nil
}
