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

package wcs

import (
	"fmt"
	"math"

	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/mat"
)

// Converts n pixel coordinates into world coordinates. pix[d][i] is the coordinate of
// point i along pixel axis d. Points with a NaN coordinate or which fall outside the
// valid projection region come back as NaN along all world axes.
func (w *WCS) PixelToWorld(pix [][]float64) (world [][]float64, err error) {
	n, err := w.checkBatch(pix)
	if err != nil {
		return nil, err
	}
	world = allocBatch(w.Naxis, n)
	if n == 0 {
		return world, nil
	}

	// offsets from the reference pixel, one row per point
	offsets := mat.NewDense(n, w.Naxis, nil)
	for i := 0; i < n; i++ {
		for d := 0; d < w.Naxis; d++ {
			offsets.Set(i, d, pix[d][i]-w.CRPix[d])
		}
	}
	var inter mat.Dense
	inter.Mul(offsets, w.cd.T())

	for i := 0; i < n; i++ {
		for d := 0; d < w.Naxis; d++ {
			world[d][i] = w.CRVal[d] + inter.At(i, d)
		}
		if w.proj == ProjTAN {
			lon, lat := w.deprojectTAN(unit.AngleFromDeg(inter.At(i, w.lon)), unit.AngleFromDeg(inter.At(i, w.lat)))
			world[w.lon][i], world[w.lat][i] = lon, lat
		}
	}
	return world, nil
}

// Converts n world coordinates into pixel coordinates, the inverse of PixelToWorld
func (w *WCS) WorldToPixel(world [][]float64) (pix [][]float64, err error) {
	n, err := w.checkBatch(world)
	if err != nil {
		return nil, err
	}
	pix = allocBatch(w.Naxis, n)
	if n == 0 {
		return pix, nil
	}

	inter := mat.NewDense(n, w.Naxis, nil)
	for i := 0; i < n; i++ {
		for d := 0; d < w.Naxis; d++ {
			inter.Set(i, d, world[d][i]-w.CRVal[d])
		}
		if w.proj == ProjTAN {
			x, y := w.projectTAN(unit.AngleFromDeg(world[w.lon][i]), unit.AngleFromDeg(world[w.lat][i]))
			inter.Set(i, w.lon, x)
			inter.Set(i, w.lat, y)
		}
	}
	var offsets mat.Dense
	offsets.Mul(inter, w.cdInv.T())

	for i := 0; i < n; i++ {
		for d := 0; d < w.Naxis; d++ {
			pix[d][i] = w.CRPix[d] + offsets.At(i, d)
		}
	}
	return pix, nil
}

// Gnomonic deprojection of intermediate coordinates (xi, eta) around the reference point,
// returning longitude in [0,360) and latitude, both in degrees
func (w *WCS) deprojectTAN(xi, eta unit.Angle) (lon, lat float64) {
	if math.IsNaN(xi.Rad()) || math.IsNaN(eta.Rad()) {
		return math.NaN(), math.NaN()
	}
	lon0, lat0 := unit.AngleFromDeg(w.CRVal[w.lon]), unit.AngleFromDeg(w.CRVal[w.lat])
	x, y := xi.Rad(), eta.Rad()
	den := lat0.Cos() - y*lat0.Sin()
	dLon := unit.Angle(math.Atan2(x, den))
	l := unit.Angle(math.Atan2(lat0.Sin()+y*lat0.Cos(), math.Hypot(x, den)))
	return wrapDegrees((lon0 + dLon).Deg()), l.Deg()
}

// Gnomonic projection of a celestial position, returning intermediate coordinates in degrees.
// Positions on the far hemisphere cannot be projected and come back as NaN.
func (w *WCS) projectTAN(lon, lat unit.Angle) (xi, eta float64) {
	lon0, lat0 := unit.AngleFromDeg(w.CRVal[w.lon]), unit.AngleFromDeg(w.CRVal[w.lat])
	dLon := lon - lon0
	cosC := lat0.Sin()*lat.Sin() + lat0.Cos()*lat.Cos()*dLon.Cos()
	if !(cosC > 0) {
		return math.NaN(), math.NaN()
	}
	x := lat.Cos() * dLon.Sin() / cosC
	y := (lat0.Cos()*lat.Sin() - lat0.Sin()*lat.Cos()*dLon.Cos()) / cosC
	return unit.Angle(x).Deg(), unit.Angle(y).Deg()
}

// Wraps an angle in degrees into [0,360)
func wrapDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

func (w *WCS) checkBatch(coords [][]float64) (n int, err error) {
	if len(coords) != w.Naxis {
		return 0, fmt.Errorf("wcs: %d coordinate arrays for %d axes", len(coords), w.Naxis)
	}
	n = len(coords[0])
	for d, c := range coords {
		if len(c) != n {
			return 0, fmt.Errorf("wcs: coordinate array %d has length %d, want %d", d, len(c), n)
		}
	}
	return n, nil
}

func allocBatch(naxis, n int) [][]float64 {
	res := make([][]float64, naxis)
	for d := range res {
		res[d] = make([]float64, n)
	}
	return res
}
