/*
DESCRIPTION
  io.go provides reading and writing of Images from image files without
  OpenCV. PNG, JPEG and TIFF are decoded; PNG and TIFF are encoded.

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
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"
)

// Decode decodes an image in any registered format into an Image.
func Decode(r io.Reader) (*Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("could not decode image: %w", err)
	}
	return FromImage(src), nil
}

// ReadFile reads and decodes the image file at path.
func ReadFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open image file: %w", err)
	}
	defer f.Close()

	im, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	return im, nil
}

// WriteFile encodes im to path. Files with a .tif or .tiff extension are
// written as TIFF, everything else as PNG.
func WriteFile(path string, im *Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create image file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		err = tiff.Encode(f, im.ToNRGBA(), &tiff.Options{Compression: tiff.Deflate})
	default:
		err = png.Encode(f, im.ToNRGBA())
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("could not encode %s: %w", path, err)
	}
	return f.Close()
}
