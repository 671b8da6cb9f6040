//go:build !withcv
// +build !withcv

/*
DESCRIPTION
  image.go is the default build and reads and writes frames using the
  standard image codecs, used when the 'withcv' tag is absent.

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

package main

import "github.com/ausocean/uwcolor/planes"

func readImage(path string) (*planes.Image, error) { return planes.ReadFile(path) }

func writeImage(path string, im *planes.Image) error { return planes.WriteFile(path, im) }
