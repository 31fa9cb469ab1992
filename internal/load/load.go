// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package load reads the images of a catalog run from FITS files and assembles
// them into a catalog input with noise model and world coordinates.
package load

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/DeadSpheroid/gnuastro-sub000/internal/catalog"
	"github.com/DeadSpheroid/gnuastro-sub000/internal/fits"
	"github.com/DeadSpheroid/gnuastro-sub000/internal/noise"
	"github.com/DeadSpheroid/gnuastro-sub000/internal/wcs"
)

// File names and header data units of the inputs of one catalog run.
// Sky and Std hold either a file name or a number for a constant
type Files struct {
	Values     string `json:"values"`
	ValuesHDU  int    `json:"valuesHDU"`
	Objects    string `json:"objects"` // Defaults to the values file
	ObjectsHDU int    `json:"objectsHDU"`
	Clumps     string `json:"clumps"` // Optional
	ClumpsHDU  int    `json:"clumpsHDU"`
	Sky        string `json:"sky"`
	SkyHDU     int    `json:"skyHDU"`
	Std        string `json:"std"`
	StdHDU     int    `json:"stdHDU"`
	ValueUnit  string `json:"valueUnit"` // Overrides BUNIT of the values file
}

// A promise for a FITS image. Returns a materialized image, or an error
type Promise func() (f *fits.Image, err error)

// Materializes all promises with given concurrency limit. Nil promises give nil images
func MaterializeAll(ins []Promise, maxThreads int) (outs []*fits.Image, err error) {
	if maxThreads < 1 {
		maxThreads = 1
	}
	outs = make([]*fits.Image, len(ins))
	limiter := make(chan bool, maxThreads)
	errs := make(chan error, len(ins))
	for i, in := range ins {
		if in == nil {
			errs <- nil
			continue
		}
		limiter <- true
		go func(i int, theIn Promise) {
			defer func() { <-limiter }()
			f, err := theIn()
			outs[i] = f
			errs <- err
		}(i, in)
	}
	for i := 0; i < cap(limiter); i++ { // wait for goroutines to finish
		limiter <- true
	}
	for i := 0; i < len(ins); i++ { // collect errors
		if e := <-errs; e != nil {
			if err == nil {
				err = e
			} else {
				err = errors.New(fmt.Sprintf("%s; %s", err.Error(), e.Error()))
			}
		}
	}
	return outs, err
}

func readPromise(fileName string, hdu int, mode fits.ReadMode, id int, log io.Writer) Promise {
	return func() (*fits.Image, error) {
		f, err := fits.NewImageFromFile(fileName, hdu, mode, id, log)
		if err != nil {
			return nil, fmt.Errorf("%d: reading %s HDU %d: %s", id, fileName, hdu, err.Error())
		}
		fmt.Fprintf(log, "%d: Read %s HDU %d, %s pixels\n", id, fileName, hdu, f.DimensionsToString())
		return f, nil
	}
}

// Parses a constant sky or std value, reporting false for a file name
func constant(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v, err == nil
}

// Reads all files with up to maxThreads concurrent readers and builds the catalog input
func (f *Files) Load(p noise.Params, maxThreads int, log io.Writer) (*catalog.Input, error) {
	if f.Values == "" {
		return nil, errors.New("no values file given")
	}
	objects := f.Objects
	if objects == "" {
		objects = f.Values
	}
	ins := []Promise{
		readPromise(f.Values, f.ValuesHDU, fits.ReadValues, 1, log),
		readPromise(objects, f.ObjectsHDU, fits.ReadLabels, 2, log),
		nil, nil, nil,
	}
	if f.Clumps != "" {
		ins[2] = readPromise(f.Clumps, f.ClumpsHDU, fits.ReadLabels, 3, log)
	}
	skyConst, skyIsConst := constant(f.Sky)
	stdConst, stdIsConst := constant(f.Std)
	if f.Sky != "" && !skyIsConst {
		ins[3] = readPromise(f.Sky, f.SkyHDU, fits.ReadValues, 4, log)
	}
	if f.Std != "" && !stdIsConst {
		ins[4] = readPromise(f.Std, f.StdHDU, fits.ReadValues, 5, log)
	}
	imgs, err := MaterializeAll(ins, maxThreads)
	if err != nil {
		return nil, err
	}

	v := imgs[0]
	in := &catalog.Input{Naxisn: v.Naxisn, Values: v.Data, Objects: imgs[1].Labels, ValueUnit: f.ValueUnit}
	if !equalShape(imgs[1].Naxisn, v.Naxisn) {
		return nil, fmt.Errorf("objects %s do not match values %s", imgs[1].DimensionsToString(), v.DimensionsToString())
	}
	if imgs[2] != nil {
		if !equalShape(imgs[2].Naxisn, v.Naxisn) {
			return nil, fmt.Errorf("clumps %s do not match values %s", imgs[2].DimensionsToString(), v.DimensionsToString())
		}
		in.Clumps = imgs[2].Labels
	}
	if in.ValueUnit == "" {
		in.ValueUnit, _ = v.Header.String("BUNIT")
	}

	switch {
	case f.Sky == "" && f.Std == "":
	case f.Sky == "" || f.Std == "":
		return nil, errors.New("sky and std must be given together")
	case skyIsConst && stdIsConst:
		in.Noise = noise.NewConstant(skyConst, stdConst, p)
	default:
		sky, std := imgs[3], imgs[4]
		if sky == nil {
			sky = constantImage(std.Naxisn, skyConst)
		}
		if std == nil {
			std = constantImage(sky.Naxisn, stdConst)
		}
		if !equalShape(sky.Naxisn, std.Naxisn) {
			return nil, fmt.Errorf("sky %s does not match std %s", sky.DimensionsToString(), std.DimensionsToString())
		}
		if equalShape(sky.Naxisn, v.Naxisn) {
			in.Noise = noise.NewPerPixel(v.Naxisn, sky.Data, std.Data, p)
		} else if in.Noise, err = noise.NewTiled(v.Naxisn, sky.Naxisn, sky.Data, std.Data, p); err != nil {
			return nil, err
		}
	}

	w, err := wcs.FromHeader(&v.Header, len(v.Naxisn))
	if err != nil {
		fmt.Fprintf(log, "Warning: ignoring WCS of %s: %s\n", f.Values, err.Error())
	} else if w != nil {
		in.WCS = w
		fmt.Fprintf(log, "WCS %s projection, pixel scale %.4g arcsec\n", w.Projection(), w.PixelScale(0)*3600)
	}
	return in, nil
}

func constantImage(naxisn []int, v float64) *fits.Image {
	img := fits.NewImageFromNaxisn(naxisn, nil)
	for i := range img.Data {
		img.Data[i] = float32(v)
	}
	return img
}

func equalShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
