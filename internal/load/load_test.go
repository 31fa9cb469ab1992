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

package load

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/DeadSpheroid/gnuastro-sub000/internal/fits"
	"github.com/DeadSpheroid/gnuastro-sub000/internal/noise"
)

func writeImages(t *testing.T, dir string) (values, labels, sky string) {
	t.Helper()
	v := fits.NewImageFromNaxisn([]int{4, 3}, nil)
	for i := range v.Data {
		v.Data[i] = float32(i)
	}
	v.Header.Strings["CTYPE1"], v.Header.Strings["CTYPE2"] = "RA---TAN", "DEC--TAN"
	v.Header.Floats["CRPIX1"], v.Header.Floats["CRPIX2"] = 2, 2
	v.Header.Floats["CRVAL1"], v.Header.Floats["CRVAL2"] = 150, 2
	v.Header.Floats["CDELT1"], v.Header.Floats["CDELT2"] = -1e-4, 1e-4
	l := fits.NewLabelImageFromNaxisn([]int{4, 3}, []int32{0, 1, 1, 0, 0, 1, 1, 0, 0, 0, 2, 2})
	s := fits.NewImageFromNaxisn([]int{2, 1}, []float32{0.5, 1.5})

	values, labels, sky = filepath.Join(dir, "v.fits"), filepath.Join(dir, "l.fits"), filepath.Join(dir, "sky.fits")
	for name, img := range map[string]*fits.Image{values: v, labels: l, sky: s} {
		if err := img.WriteFile(name); err != nil {
			t.Fatalf("unexpected error %s", err)
		}
	}
	return values, labels, sky
}

func TestLoad(t *testing.T) {
	values, labels, _ := writeImages(t, t.TempDir())
	f := &Files{Values: values, Objects: labels, Sky: "0.25", Std: "2", ValueUnit: "counts"}
	in, err := f.Load(noise.Params{CPSCorr: 1}, 2, ioutil.Discard)
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	if len(in.Naxisn) != 2 || in.Naxisn[0] != 4 || in.Naxisn[1] != 3 {
		t.Errorf("naxisn got %v; want [4 3]", in.Naxisn)
	}
	if in.Values[5] != 5 || in.Objects[10] != 2 {
		t.Errorf("pixels got value %g label %d; want 5 2", in.Values[5], in.Objects[10])
	}
	if in.Noise == nil || in.Noise.Sky(3) != 0.25 || in.Noise.Std(3) != 2 {
		t.Errorf("constant noise model not built")
	}
	if in.WCS == nil || in.WCS.CTypeShort(0) != "RA" {
		t.Errorf("WCS not read")
	}
	if in.ValueUnit != "counts" {
		t.Errorf("unit got %q; want counts", in.ValueUnit)
	}
	if err := in.Validate(); err != nil {
		t.Errorf("unexpected validation error %s", err)
	}
}

func TestLoadTiledSky(t *testing.T) {
	values, labels, sky := writeImages(t, t.TempDir())
	f := &Files{Values: values, Objects: labels, Sky: sky, Std: "1"}
	in, err := f.Load(noise.Params{CPSCorr: 1}, 1, ioutil.Discard)
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	if got := in.Noise.Sky(0); got != 0.5 {
		t.Errorf("sky of first tile got %g; want 0.5", got)
	}
	if got := in.Noise.Sky(11); got != 1.5 {
		t.Errorf("sky of second tile got %g; want 1.5", got)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	values, labels, _ := writeImages(t, dir)
	tests := []*Files{
		{},
		{Values: values, Objects: labels, Sky: "1"},
		{Values: values, Objects: filepath.Join(dir, "missing.fits")},
		{Values: values, Objects: labels, Clumps: filepath.Join(dir, "missing.fits"), ClumpsHDU: 1},
	}
	for i, f := range tests {
		if _, err := f.Load(noise.Params{CPSCorr: 1}, 2, ioutil.Discard); err == nil {
			t.Errorf("case %d: no error", i)
		}
	}
}
