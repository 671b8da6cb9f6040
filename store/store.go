/*
DESCRIPTION
  store.go provides the calibration Table, mapping depth to attenuation
  coefficients, and its persistence as XML Depth records.

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

// Package store provides a table of attenuation coefficients keyed by depth,
// loaded from and saved to XML files of the form
//
//	<?xml version="1.0" encoding="UTF-8"?>
//	<Depth val="1.5">
//	    <Backscatter_Attenuation blue="0.4" green="0.3" red="0.2"></Backscatter_Attenuation>
//	    <Direct_Signal_Attenuation blue="0.1" green="0.5" red="0.9"></Direct_Signal_Attenuation>
//	</Depth>
//	...
//
// Values are attenuation coefficients in 1/m. Tables saved under depth band
// refinement hold coefficients converted from the fitted factors at the scene
// distance, not the raw fitted factors, so they are not interchangeable with
// files that store the factors directly.
package store

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ausocean/uwcolor/attenuation"
)

// Errors returned by the store.
var (
	ErrNotFound  = errors.New("no calibration entry for depth")
	ErrMalformed = errors.New("malformed calibration record")
)

// Entry is a calibration table entry.
type Entry struct {
	Depth float64
	attenuation.Coefficients
}

// Table maps depth to attenuation coefficients, remembering the order in which
// entries were added. A Table is not safe for concurrent use.
type Table struct {
	index   map[float64]int
	entries []Entry
}

// NewTable returns a new empty Table.
func NewTable() *Table {
	return &Table{index: make(map[float64]int)}
}

// Add adds coefficients for depth. If depth is already present its
// coefficients are replaced in place.
func (t *Table) Add(depth float64, c attenuation.Coefficients) {
	if i, ok := t.index[depth]; ok {
		t.entries[i].Coefficients = c
		return
	}
	t.index[depth] = len(t.entries)
	t.entries = append(t.entries, Entry{Depth: depth, Coefficients: c})
}

// Lookup returns the coefficients for the key attenuation.Quantize(depth).
// ErrNotFound is returned if there is no entry for the key.
func (t *Table) Lookup(depth float64) (attenuation.Coefficients, error) {
	key := attenuation.Quantize(depth)
	i, ok := t.index[key]
	if !ok {
		return attenuation.Coefficients{}, fmt.Errorf("depth %v (key %v): %w", depth, key, ErrNotFound)
	}
	return t.entries[i].Coefficients, nil
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// Entries returns the entries in the order they were added.
func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

type channelRecord struct {
	Blue  *float64 `xml:"blue,attr"`
	Green *float64 `xml:"green,attr"`
	Red   *float64 `xml:"red,attr"`
}

type depthRecord struct {
	XMLName      xml.Name       `xml:"Depth"`
	Val          *float64       `xml:"val,attr"`
	Backscatter  *channelRecord `xml:"Backscatter_Attenuation"`
	DirectSignal *channelRecord `xml:"Direct_Signal_Attenuation"`
}

func (r *channelRecord) values() ([3]float64, error) {
	if r.Blue == nil || r.Green == nil || r.Red == nil {
		return [3]float64{}, errors.New("missing channel attribute")
	}
	return [3]float64{*r.Blue, *r.Green, *r.Red}, nil
}

func newChannelRecord(v [3]float64) *channelRecord {
	return &channelRecord{Blue: &v[0], Green: &v[1], Red: &v[2]}
}

func (r *depthRecord) entry() (Entry, error) {
	var e Entry
	if r.Val == nil {
		return e, fmt.Errorf("missing val attribute: %w", ErrMalformed)
	}
	e.Depth = *r.Val
	if r.Backscatter == nil {
		return e, fmt.Errorf("depth %v: missing Backscatter_Attenuation: %w", e.Depth, ErrMalformed)
	}
	if r.DirectSignal == nil {
		return e, fmt.Errorf("depth %v: missing Direct_Signal_Attenuation: %w", e.Depth, ErrMalformed)
	}
	var err error
	e.Backscatter, err = r.Backscatter.values()
	if err != nil {
		return e, fmt.Errorf("depth %v: Backscatter_Attenuation: %v: %w", e.Depth, err, ErrMalformed)
	}
	e.DirectSignal, err = r.DirectSignal.values()
	if err != nil {
		return e, fmt.Errorf("depth %v: Direct_Signal_Attenuation: %v: %w", e.Depth, err, ErrMalformed)
	}
	return e, nil
}

// Load reads Depth records from r into a new Table, keyed by each record's
// val. Records may be at the top level of the document or inside a wrapping
// element, and the child records may appear in any order.
func Load(r io.Reader) (*Table, error) {
	t := NewTable()
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not read calibration data: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Depth" {
			continue
		}
		var rec depthRecord
		if err := dec.DecodeElement(&rec, &se); err != nil {
			return nil, fmt.Errorf("could not decode depth record: %w", err)
		}
		e, err := rec.entry()
		if err != nil {
			return nil, err
		}
		t.Add(e.Depth, e.Coefficients)
	}
	return t, nil
}

// LoadFile loads a Table from the XML file at path.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open calibration file: %w", err)
	}
	defer f.Close()

	t, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("could not load %s: %w", path, err)
	}
	return t, nil
}

// Save writes the XML declaration followed by one Depth record per entry, in
// the order entries were added.
func (t *Table) Save(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("could not write header: %w", err)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "    ")
	for _, e := range t.entries {
		depth := e.Depth
		rec := depthRecord{
			Val:          &depth,
			Backscatter:  newChannelRecord(e.Backscatter),
			DirectSignal: newChannelRecord(e.DirectSignal),
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("could not encode depth %v: %w", e.Depth, err)
		}
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("could not flush calibration data: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// SaveFile saves the Table to the XML file at path.
func (t *Table) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create calibration file: %w", err)
	}
	if err := t.Save(f); err != nil {
		f.Close()
		return fmt.Errorf("could not save %s: %w", path, err)
	}
	return f.Close()
}
