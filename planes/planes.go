/*
DESCRIPTION
  planes.go provides the Image type, a colour image held as three float
  planes (blue, green, red) so that the correction model can be applied
  channel by channel with gonum matrix operations.

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

// Package planes provides a three channel float image representation used
// throughout colour correction, along with conversion to and from the
// standard library image types.
package planes

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Channel indices. Channels are stored in BGR order to match OpenCV.
const (
	Blue = iota
	Green
	Red
	NumChannels
)

// ChannelNames holds a lower case name for each channel index.
var ChannelNames = [NumChannels]string{"blue", "green", "red"}

// ErrBadRegion is returned when a sample region is empty or does not lie
// within the image bounds.
var ErrBadRegion = errors.New("region empty or outside image bounds")

// Image is a colour raster held as one gonum matrix per channel. Rows of the
// matrices are image rows. Values are nominally 8 bit intensities but are
// not clamped, so corrected images may fall outside [0,255].
type Image struct {
	Planes [NumChannels]*mat.Dense
}

// New returns a new zeroed Image with the given dimensions.
func New(rows, cols int) *Image {
	im := &Image{}
	for c := range im.Planes {
		im.Planes[c] = mat.NewDense(rows, cols, nil)
	}
	return im
}

// NewFromPlanes returns an Image made from the given planes, which must all
// have the same dimensions.
func NewFromPlanes(b, g, r *mat.Dense) (*Image, error) {
	rows, cols := b.Dims()
	for _, p := range []*mat.Dense{g, r} {
		pr, pc := p.Dims()
		if pr != rows || pc != cols {
			return nil, fmt.Errorf("plane dimensions differ: (%d, %d) and (%d, %d)", rows, cols, pr, pc)
		}
	}
	return &Image{Planes: [NumChannels]*mat.Dense{b, g, r}}, nil
}

// Dims returns the number of rows and columns of the image.
func (im *Image) Dims() (rows, cols int) {
	return im.Planes[Blue].Dims()
}

// Bounds returns the image bounds with the origin at (0, 0).
func (im *Image) Bounds() image.Rectangle {
	rows, cols := im.Dims()
	return image.Rect(0, 0, cols, rows)
}

// At returns the three channel values at column x, row y.
func (im *Image) At(x, y int) [NumChannels]float64 {
	var v [NumChannels]float64
	for c, p := range im.Planes {
		v[c] = p.At(y, x)
	}
	return v
}

// Set sets the three channel values at column x, row y.
func (im *Image) Set(x, y int, v [NumChannels]float64) {
	for c, p := range im.Planes {
		p.Set(y, x, v[c])
	}
}

// Mean returns the per channel mean value over region r. Each channel is
// averaged independently.
func (im *Image) Mean(r image.Rectangle) ([NumChannels]float64, error) {
	var m [NumChannels]float64
	if r.Empty() || !r.In(im.Bounds()) {
		return m, fmt.Errorf("mean of %v in %v: %w", r, im.Bounds(), ErrBadRegion)
	}

	vals := make([]float64, 0, r.Dx()*r.Dy())
	for c, p := range im.Planes {
		vals = vals[:0]
		region := p.Slice(r.Min.Y, r.Max.Y, r.Min.X, r.Max.X).(*mat.Dense)
		for i := 0; i < r.Dy(); i++ {
			vals = append(vals, region.RawRowView(i)...)
		}
		m[c] = stat.Mean(vals, nil)
	}
	return m, nil
}

// FromImage converts a standard library image to an Image holding 8 bit
// channel values.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	im := New(b.Dy(), b.Dx())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			im.Set(x-b.Min.X, y-b.Min.Y, [NumChannels]float64{float64(c.B), float64(c.G), float64(c.R)})
		}
	}
	return im
}

// ToNRGBA converts the image to an opaque 8 bit image, rounding and
// saturating each channel to [0,255].
func (im *Image) ToNRGBA() *image.NRGBA {
	rows, cols := im.Dims()
	out := image.NewNRGBA(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := im.At(x, y)
			out.SetNRGBA(x, y, color.NRGBA{
				R: saturate(v[Red]),
				G: saturate(v[Green]),
				B: saturate(v[Blue]),
				A: 0xff,
			})
		}
	}
	return out
}

// saturate rounds v and clamps it to the range of a uint8. NaN maps to 0.
func saturate(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(math.Round(v))
}
