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

package fits

import (
	"fmt"
	"strings"
)

// A FITS image, holding either floating point pixel values or integer labels.
// Spec here:   https://fits.gsfc.nasa.gov/standard40/fits_standard40aa-le.pdf
// Primer here: https://fits.gsfc.nasa.gov/fits_primer.html
type Image struct {
	ID       int    // Sequential ID number, for log output
	FileName string // Original file name, if any, for log output

	Header Header  // The header with all keys, values, comments, history entries etc.
	Bitpix int32   // Bits per pixel value from the header. Positive values are integral, negative floating.
	Bzero  float64 // Zero offset. True pixel value is Bzero + Bscale * Data[i].
	Bscale float64 // Value scaler. True pixel value is Bzero + Bscale * Data[i].
	Naxisn []int   // Axis dimensions. Most quickly varying dimension first (i.e. X,Y,Z)
	Pixels int     // Number of pixels in the image. Product of Naxisn[]

	Data   []float32 // Pixel values, if read as values. Blanks are NaN
	Labels []int32   // Pixel labels, if read as labels. Blanks are 0
}

// Creates a FITS image initialized with empty header
func NewImage() *Image {
	return &Image{
		Header: NewHeader(),
		Bscale: 1,
	}
}

// Creates a float32 FITS image from given naxisn. Data is not copied, allocated if nil. naxisn is deep copied
func NewImageFromNaxisn(naxisn []int, data []float32) *Image {
	numPixels := NumPixels(naxisn)
	if data == nil {
		data = make([]float32, numPixels)
	}
	return &Image{
		Header: NewHeader(),
		Bitpix: -32,
		Bscale: 1,
		Naxisn: append([]int(nil), naxisn...), // clone slice
		Pixels: numPixels,
		Data:   data,
	}
}

// Creates an int32 label image from given naxisn. Labels are not copied, allocated if nil
func NewLabelImageFromNaxisn(naxisn []int, labels []int32) *Image {
	numPixels := NumPixels(naxisn)
	if labels == nil {
		labels = make([]int32, numPixels)
	}
	return &Image{
		Header: NewHeader(),
		Bitpix: 32,
		Bscale: 1,
		Naxisn: append([]int(nil), naxisn...),
		Pixels: numPixels,
		Labels: labels,
	}
}

// Returns the product of the axis dimensions
func NumPixels(naxisn []int) int {
	numPixels := 1
	for _, naxis := range naxisn {
		numPixels *= naxis
	}
	return numPixels
}

func (f *Image) DimensionsToString() string {
	b := strings.Builder{}
	for i, naxis := range f.Naxisn {
		if i > 0 {
			fmt.Fprintf(&b, "x%d", naxis)
		} else {
			fmt.Fprintf(&b, "%d", naxis)
		}
	}
	return b.String()
}

// FITS header data
type Header struct {
	Bools    map[string]bool
	Ints     map[string]int64
	Floats   map[string]float64
	Strings  map[string]string
	Dates    map[string]string
	Comments []string
	History  []string
	End      bool
	Length   int32
}

// Creates a FITS header initialized with empty maps and arrays
func NewHeader() Header {
	return Header{
		Bools:    make(map[string]bool),
		Ints:     make(map[string]int64),
		Floats:   make(map[string]float64),
		Strings:  make(map[string]string),
		Dates:    make(map[string]string),
		Comments: make([]string, 0),
		History:  make([]string, 0),
		End:      false,
	}
}

// Returns a numeric header value, accepting both integer and floating point entries
func (h *Header) Float(key string) (v float64, ok bool) {
	if f, ok := h.Floats[key]; ok {
		return f, true
	}
	if i, ok := h.Ints[key]; ok {
		return float64(i), true
	}
	return 0, false
}

// Returns a numeric header value, or the given default if absent
func (h *Header) FloatOr(key string, def float64) float64 {
	if v, ok := h.Float(key); ok {
		return v
	}
	return def
}

// Returns a string header value with surrounding blanks removed
func (h *Header) String(key string) (v string, ok bool) {
	v, ok = h.Strings[key]
	return strings.TrimSpace(v), ok
}

const fitsBlockSize int = 2880 // Block size of FITS header and data units
const HeaderLineSize int = 80  // Line size of a FITS header
