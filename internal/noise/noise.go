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

// Package noise supplies per-pixel sky and sky standard deviation to the
// catalog reducer, from constants, full-resolution images or a coarse grid of tiles.
package noise

import (
	"fmt"
	"math"
)

// Scalars shared by all noise models
type Params struct {
	CPSCorr       float64 `json:"cpscorr"       yaml:"cpscorr"`       // Correlation correction of the counts-per-second S/N term
	SkySubtracted bool    `json:"skySubtracted" yaml:"skySubtracted"` // Values are already sky subtracted, doubling the variance
	StdIsVariance bool    `json:"stdIsVariance" yaml:"stdIsVariance"` // The std input holds variances instead
}

func (p Params) CorrelationCorrection() float64 { return p.CPSCorr }
func (p Params) SkyAlreadySubtracted() bool     { return p.SkySubtracted }

// Per-pixel variance for measurement errors, from the raw std input s
func (p Params) variance(s float64) float64 {
	v := s * s
	if p.StdIsVariance {
		v = s
	}
	if p.SkySubtracted {
		v *= 2
	}
	return v
}

func (p Params) std(s float64) float64 {
	if p.StdIsVariance {
		return math.Sqrt(s)
	}
	return s
}

// A noise model, indexed by linear pixel index of the image
type Model interface {
	Sky(i int) float64      // Sky background at pixel i
	Std(i int) float64      // Sky standard deviation at pixel i
	Variance(i int) float64 // Measurement variance at pixel i, doubled if the sky was subtracted
	CorrelationCorrection() float64
	SkyAlreadySubtracted() bool
	Check(naxisn []int) error // Verifies the model covers an image of the given shape
}

// Constant sky and std for all pixels
type Constant struct {
	Params
	SkyValue float64
	StdValue float64
}

func NewConstant(sky, std float64, p Params) *Constant {
	return &Constant{Params: p, SkyValue: sky, StdValue: std}
}

func (c *Constant) Sky(i int) float64        { return c.SkyValue }
func (c *Constant) Std(i int) float64        { return c.std(c.StdValue) }
func (c *Constant) Variance(i int) float64   { return c.variance(c.StdValue) }
func (c *Constant) Check(naxisn []int) error { return nil }

// Sky and std images at full resolution
type PerPixel struct {
	Params
	Naxisn  []int
	SkyData []float32
	StdData []float32
}

func NewPerPixel(naxisn []int, sky, std []float32, p Params) *PerPixel {
	return &PerPixel{Params: p, Naxisn: append([]int(nil), naxisn...), SkyData: sky, StdData: std}
}

func (pp *PerPixel) Sky(i int) float64      { return float64(pp.SkyData[i]) }
func (pp *PerPixel) Std(i int) float64      { return pp.std(float64(pp.StdData[i])) }
func (pp *PerPixel) Variance(i int) float64 { return pp.variance(float64(pp.StdData[i])) }

func (pp *PerPixel) Check(naxisn []int) error {
	if !equalShape(pp.Naxisn, naxisn) {
		return fmt.Errorf("noise image shape %v differs from image shape %v", pp.Naxisn, naxisn)
	}
	n := numPixels(naxisn)
	if len(pp.SkyData) != n || len(pp.StdData) != n {
		return fmt.Errorf("noise images hold %d sky and %d std values for %d pixels", len(pp.SkyData), len(pp.StdData), n)
	}
	return nil
}

// Sky and std on a coarse grid of tiles, broadcast to all pixels of each tile.
// Tiles along each axis have equal size, the last one also takes the remainder.
type Tiled struct {
	Params
	Naxisn     []int // Image shape
	GridNaxisn []int // Tile grid shape
	TileSize   []int // Size of all but the last tile along each axis
	SkyData    []float32
	StdData    []float32
}

// Creates a tiled model for an image of shape naxisn from values on a grid of shape gridNaxisn
func NewTiled(naxisn, gridNaxisn []int, sky, std []float32, p Params) (*Tiled, error) {
	if len(naxisn) != len(gridNaxisn) {
		return nil, fmt.Errorf("tile grid has %d axes, image has %d", len(gridNaxisn), len(naxisn))
	}
	t := &Tiled{
		Params:     p,
		Naxisn:     append([]int(nil), naxisn...),
		GridNaxisn: append([]int(nil), gridNaxisn...),
		TileSize:   make([]int, len(naxisn)),
		SkyData:    sky,
		StdData:    std,
	}
	for d := range naxisn {
		if gridNaxisn[d] < 1 || gridNaxisn[d] > naxisn[d] {
			return nil, fmt.Errorf("tile grid axis %d has %d tiles for %d pixels", d, gridNaxisn[d], naxisn[d])
		}
		t.TileSize[d] = naxisn[d] / gridNaxisn[d]
	}
	n := numPixels(gridNaxisn)
	if len(sky) != n || len(std) != n {
		return nil, fmt.Errorf("tile grid holds %d sky and %d std values for %d tiles", len(sky), len(std), n)
	}
	return t, nil
}

// Returns the linear tile index covering linear pixel index i
func (t *Tiled) tile(i int) int {
	tile, stride := 0, 1
	for d, n := range t.Naxisn {
		coord := i % n
		i /= n
		c := coord / t.TileSize[d]
		if c >= t.GridNaxisn[d] {
			c = t.GridNaxisn[d] - 1
		}
		tile += c * stride
		stride *= t.GridNaxisn[d]
	}
	return tile
}

func (t *Tiled) Sky(i int) float64      { return float64(t.SkyData[t.tile(i)]) }
func (t *Tiled) Std(i int) float64      { return t.std(float64(t.StdData[t.tile(i)])) }
func (t *Tiled) Variance(i int) float64 { return t.variance(float64(t.StdData[t.tile(i)])) }

func (t *Tiled) Check(naxisn []int) error {
	if !equalShape(t.Naxisn, naxisn) {
		return fmt.Errorf("tiled noise covers shape %v, image has shape %v", t.Naxisn, naxisn)
	}
	return nil
}

func equalShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if v != b[i] {
			return false
		}
	}
	return true
}

func numPixels(naxisn []int) int {
	n := 1
	for _, v := range naxisn {
		n *= v
	}
	return n
}
