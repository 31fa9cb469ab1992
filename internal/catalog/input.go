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

package catalog

import (
	"math"

	"github.com/DeadSpheroid/gnuastro-sub000/internal/noise"
)

// World coordinate service used for sky positions and the pixel area
type WCS interface {
	NumAxes() int
	PixelScale(dim int) float64                        // World units per pixel along a zero-based pixel axis
	PixelToWorld(pix [][]float64) ([][]float64, error) // One-based pixel coordinates, pix[dim][row]
	CTypeShort(dim int) string                         // Axis type without projection, e.g. "RA"
	AxisUnit(dim int) string
}

// Measurement inputs. Arrays are borrowed and never modified; the first axis varies fastest
type Input struct {
	Naxisn    []int     // Axis lengths, 2D or 3D
	Values    []float32 // Sky subtracted pixel values, NaN for blanks
	Objects   []int32   // Object labels, 0 for background
	Clumps    []int32   // Clump labels inside each object, -1 for rivers, or nil
	Noise     noise.Model
	WCS       WCS
	ValueUnit string
}

// Number of pixels
func (in *Input) NumPixels() int {
	n := 1
	for _, a := range in.Naxisn {
		n *= a
	}
	return n
}

// Checks that the arrays agree in shape
func (in *Input) Validate() error {
	if len(in.Naxisn) < 2 || len(in.Naxisn) > 3 {
		return shapeErrorf("values", "%d dimensions, want 2 or 3", len(in.Naxisn))
	}
	for d, a := range in.Naxisn {
		if a < 1 {
			return shapeErrorf("values", "axis %d has length %d", d+1, a)
		}
	}
	n := in.NumPixels()
	if len(in.Values) != n {
		return shapeErrorf("values", "%d pixels for shape %v", len(in.Values), in.Naxisn)
	}
	if len(in.Objects) != n {
		return shapeErrorf("objects", "%d pixels, values have %d", len(in.Objects), n)
	}
	if in.Clumps != nil && len(in.Clumps) != n {
		return shapeErrorf("clumps", "%d pixels, values have %d", len(in.Clumps), n)
	}
	if in.Noise != nil {
		if err := in.Noise.Check(in.Naxisn); err != nil {
			return shapeErrorf("sky/std", "%s", err.Error())
		}
	}
	if in.WCS != nil && in.WCS.NumAxes() != len(in.Naxisn) {
		return shapeErrorf("wcs", "%d world axes for %d image dimensions", in.WCS.NumAxes(), len(in.Naxisn))
	}
	return nil
}

// Label bookkeeping from one walk over the label maps
type prescan struct {
	ndim        int
	naxisn      [3]int   // Axis lengths padded with 1
	nobj        int      // Largest object label
	lo, hi      [][3]int // Inclusive bounding box of all footprint pixels per object
	numPix      []int    // Footprint pixels per object
	numClumps   []int32  // Largest clump label per object
	clumpOffset []int    // First clump row of each object
	nclumps     int
	hostObj     []int32 // Host object label per clump row
	idInHost    []int32 // Clump label per clump row
	maxPix      int     // Largest object footprint
	maxClumps   int
}

func newPrescan(in *Input) (*prescan, error) {
	p := &prescan{ndim: len(in.Naxisn), naxisn: [3]int{1, 1, 1}}
	copy(p.naxisn[:], in.Naxisn)

	for i, o := range in.Objects {
		if o < 0 {
			return nil, shapeErrorf("objects", "negative label %d at pixel %d", o, i)
		}
		if int(o) > p.nobj {
			p.nobj = int(o)
		}
		if in.Clumps != nil {
			c := in.Clumps[i]
			if c > 0 && o == 0 {
				return nil, shapeErrorf("clumps", "clump label %d outside any object at pixel %d", c, i)
			}
			if c < -1 {
				return nil, shapeErrorf("clumps", "invalid label %d at pixel %d", c, i)
			}
		}
	}

	p.lo, p.hi = make([][3]int, p.nobj), make([][3]int, p.nobj)
	for j := range p.lo {
		p.lo[j] = [3]int{math.MaxInt32, math.MaxInt32, math.MaxInt32}
		p.hi[j] = [3]int{-1, -1, -1}
	}
	p.numPix = make([]int, p.nobj)
	p.numClumps = make([]int32, p.nobj)

	nx, ny := p.naxisn[0], p.naxisn[1]
	i := 0
	for z := 0; z < p.naxisn[2]; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x, i = x+1, i+1 {
				o := in.Objects[i]
				if o == 0 {
					continue
				}
				j := o - 1
				lo, hi := &p.lo[j], &p.hi[j]
				c := [3]int{x, y, z}
				for d := 0; d < 3; d++ {
					if c[d] < lo[d] {
						lo[d] = c[d]
					}
					if c[d] > hi[d] {
						hi[d] = c[d]
					}
				}
				p.numPix[j]++
				if in.Clumps != nil && in.Clumps[i] > p.numClumps[j] {
					p.numClumps[j] = in.Clumps[i]
				}
			}
		}
	}

	p.clumpOffset = make([]int, p.nobj)
	for j := 0; j < p.nobj; j++ {
		p.clumpOffset[j] = p.nclumps
		p.nclumps += int(p.numClumps[j])
		if p.numPix[j] > p.maxPix {
			p.maxPix = p.numPix[j]
		}
		if int(p.numClumps[j]) > p.maxClumps {
			p.maxClumps = int(p.numClumps[j])
		}
	}
	p.hostObj, p.idInHost = make([]int32, p.nclumps), make([]int32, p.nclumps)
	for j := 0; j < p.nobj; j++ {
		for k := 0; k < int(p.numClumps[j]); k++ {
			p.hostObj[p.clumpOffset[j]+k] = int32(j + 1)
			p.idInHost[p.clumpOffset[j]+k] = int32(k + 1)
		}
	}
	return p, nil
}

// Returns true if the object has any footprint pixel
func (p *prescan) present(obj int) bool {
	return p.numPix[obj-1] > 0
}

// Linear index of a pixel
func (p *prescan) index(x, y, z int) int {
	return (z*p.naxisn[1]+y)*p.naxisn[0] + x
}
