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

// Package wcs converts between pixel and world coordinates for images with
// a linear or gnomonic (TAN) world coordinate system, following the FITS WCS
// conventions of Greisen & Calabretta (2002).
package wcs

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Sky projection of the celestial axes
type Projection int

const (
	ProjLinear Projection = iota // world = crval + cd*(pixel-crpix)
	ProjTAN                      // gnomonic
)

func (p Projection) String() string {
	switch p {
	case ProjLinear:
		return "linear"
	case ProjTAN:
		return "TAN"
	default:
		return fmt.Sprintf("projection(%d)", int(p))
	}
}

// A world coordinate system. Pixel coordinates follow the FITS convention,
// i.e. the center of the first pixel is at 1.0 along each axis.
type WCS struct {
	Naxis int
	CType []string  // Axis types as found in the header, e.g. RA---TAN
	CUnit []string  // Axis units, e.g. deg
	CRPix []float64 // Reference pixel
	CRVal []float64 // World coordinates of the reference pixel

	cd    *mat.Dense // Linear transform, world units per pixel
	cdInv *mat.Dense // Inverse of the above
	lon   int        // Index of the celestial longitude axis, or -1
	lat   int        // Index of the celestial latitude axis, or -1
	proj  Projection
}

// Creates a WCS from axis types, units, reference pixel and value and the CD matrix.
// cd[i][j] is the derivative of world axis i along pixel axis j.
func New(ctype, cunit []string, crpix, crval []float64, cd [][]float64) (*WCS, error) {
	n := len(ctype)
	if n == 0 {
		return nil, errors.New("wcs: no axes")
	}
	if len(crpix) != n || len(crval) != n || len(cd) != n {
		return nil, fmt.Errorf("wcs: inconsistent axis counts ctype=%d crpix=%d crval=%d cd=%d", n, len(crpix), len(crval), len(cd))
	}
	if cunit == nil {
		cunit = make([]string, n)
	}
	w := &WCS{
		Naxis: n,
		CType: append([]string(nil), ctype...),
		CUnit: append([]string(nil), cunit...),
		CRPix: append([]float64(nil), crpix...),
		CRVal: append([]float64(nil), crval...),
		cd:    mat.NewDense(n, n, nil),
		lon:   -1,
		lat:   -1,
	}
	for i := 0; i < n; i++ {
		if len(cd[i]) != n {
			return nil, fmt.Errorf("wcs: CD matrix row %d has %d entries, want %d", i, len(cd[i]), n)
		}
		for j := 0; j < n; j++ {
			w.cd.Set(i, j, cd[i][j])
		}
	}
	w.cdInv = mat.NewDense(n, n, nil)
	if err := w.cdInv.Inverse(w.cd); err != nil {
		return nil, fmt.Errorf("wcs: CD matrix is not invertible: %s", err.Error())
	}

	// identify celestial axes and the projection
	code := ""
	for i, t := range w.CType {
		t = strings.ToUpper(t)
		short := axisName(t)
		switch {
		case short == "RA" || strings.HasSuffix(short, "LON"):
			w.lon = i
		case short == "DEC" || strings.HasSuffix(short, "LAT"):
			w.lat = i
		default:
			continue
		}
		if len(t) >= 8 {
			code = strings.TrimSpace(t[5:8])
		}
	}
	switch code {
	case "", "CAR":
		w.proj = ProjLinear
	case "TAN":
		if w.lon < 0 || w.lat < 0 {
			return nil, errors.New("wcs: TAN projection needs both a longitude and a latitude axis")
		}
		w.proj = ProjTAN
	default:
		return nil, fmt.Errorf("wcs: unsupported projection %s", code)
	}
	return w, nil
}

// Creates a WCS from the PCi_j matrix and scales along each axis
func NewFromPC(ctype, cunit []string, crpix, crval, cdelt []float64, pc [][]float64) (*WCS, error) {
	n := len(ctype)
	if len(cdelt) != n {
		return nil, fmt.Errorf("wcs: %d CDELT values for %d axes", len(cdelt), n)
	}
	cd := make([][]float64, n)
	for i := range cd {
		cd[i] = make([]float64, n)
		for j := range cd[i] {
			pcij := 0.0
			if pc != nil {
				pcij = pc[i][j]
			} else if i == j {
				pcij = 1
			}
			cd[i][j] = cdelt[i] * pcij
		}
	}
	return New(ctype, cunit, crpix, crval, cd)
}

// Returns the short name of an axis type, i.e. the part before the first dash
func axisName(ctype string) string {
	if i := strings.IndexByte(ctype, '-'); i >= 0 {
		ctype = ctype[:i]
	}
	return strings.TrimSpace(ctype)
}

// Returns the projection of the celestial axes
func (w *WCS) Projection() Projection { return w.proj }

// Number of world axes
func (w *WCS) NumAxes() int { return w.Naxis }

// Returns the unit of the given zero-based world axis, degrees if unset on a celestial axis
func (w *WCS) AxisUnit(dim int) string {
	if dim < 0 || dim >= w.Naxis {
		return ""
	}
	if dim < len(w.CUnit) && strings.TrimSpace(w.CUnit[dim]) != "" {
		return strings.TrimSpace(w.CUnit[dim])
	}
	if dim == w.lon || dim == w.lat {
		return "deg"
	}
	return ""
}

// Returns the short axis type of the given zero-based dimension, e.g. "RA" or "DEC"
func (w *WCS) CTypeShort(dim int) string {
	if dim < 0 || dim >= w.Naxis {
		return ""
	}
	return strings.ToUpper(axisName(w.CType[dim]))
}

// Returns the pixel scale along the given zero-based pixel axis in world units
// (degrees for celestial axes), as the norm of the corresponding CD matrix column
func (w *WCS) PixelScale(dim int) float64 {
	if dim < 0 || dim >= w.Naxis {
		return math.NaN()
	}
	return mat.Norm(w.cd.ColView(dim), 2)
}

// Returns the area of one pixel in arcseconds squared, from the first two pixel scales
func (w *WCS) PixelAreaArcsec2() float64 {
	if w.Naxis < 2 {
		return math.NaN()
	}
	return math.Abs(w.PixelScale(0)*w.PixelScale(1)) * 3600 * 3600
}
