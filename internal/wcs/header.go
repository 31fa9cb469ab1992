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

	"github.com/DeadSpheroid/gnuastro-sub000/internal/fits"
)

// Reads a WCS from the header of an image with naxis axes.
// Returns nil without error if the header carries no axis types.
func FromHeader(h *fits.Header, naxis int) (*WCS, error) {
	if _, ok := h.String("CTYPE1"); !ok {
		return nil, nil
	}
	ctype := make([]string, naxis)
	cunit := make([]string, naxis)
	crpix := make([]float64, naxis)
	crval := make([]float64, naxis)
	cdelt := make([]float64, naxis)
	for i := 0; i < naxis; i++ {
		ctype[i], _ = h.String(fmt.Sprintf("CTYPE%d", i+1))
		cunit[i], _ = h.String(fmt.Sprintf("CUNIT%d", i+1))
		crpix[i] = h.FloatOr(fmt.Sprintf("CRPIX%d", i+1), 0)
		crval[i] = h.FloatOr(fmt.Sprintf("CRVAL%d", i+1), 0)
		cdelt[i] = h.FloatOr(fmt.Sprintf("CDELT%d", i+1), 1)
	}

	// a CD matrix takes precedence over PC and CDELT
	hasCD := false
	cd := make([][]float64, naxis)
	pc := make([][]float64, naxis)
	for i := 0; i < naxis; i++ {
		cd[i] = make([]float64, naxis)
		pc[i] = make([]float64, naxis)
		for j := 0; j < naxis; j++ {
			if v, ok := h.Float(fmt.Sprintf("CD%d_%d", i+1, j+1)); ok {
				cd[i][j], hasCD = v, true
			}
			def := 0.0
			if i == j {
				def = 1
			}
			pc[i][j] = h.FloatOr(fmt.Sprintf("PC%d_%d", i+1, j+1), def)
		}
	}
	if hasCD {
		return New(ctype, cunit, crpix, crval, cd)
	}
	return NewFromPC(ctype, cunit, crpix, crval, cdelt, pc)
}

// Writes the WCS as header keywords, in CD matrix form
func (w *WCS) ToHeader(h *fits.Header) {
	for i := 0; i < w.Naxis; i++ {
		h.Strings[fmt.Sprintf("CTYPE%d", i+1)] = w.CType[i]
		if w.CUnit[i] != "" {
			h.Strings[fmt.Sprintf("CUNIT%d", i+1)] = w.CUnit[i]
		}
		h.Floats[fmt.Sprintf("CRPIX%d", i+1)] = w.CRPix[i]
		h.Floats[fmt.Sprintf("CRVAL%d", i+1)] = w.CRVal[i]
		for j := 0; j < w.Naxis; j++ {
			h.Floats[fmt.Sprintf("CD%d_%d", i+1, j+1)] = w.cd.At(i, j)
		}
	}
}
