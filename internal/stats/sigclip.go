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

package stats

import (
	"fmt"
	"math"
)

// Upper bound on clipping iterations in tolerance mode
const maxClipIterations = 50

// Parameters for iterative sigma clipping. The second parameter is read as
// a convergence tolerance on the standard deviation if in (0,1), and as a
// fixed number of iterations if it is an integer >= 1.
type ClipParams struct {
	Multiple float64 `json:"multiple" yaml:"multiple"`
	Param    float64 `json:"param"    yaml:"param"`
}

// Returns true if the second clipping parameter is a convergence tolerance
func (p ClipParams) IsTolerance() bool {
	return p.Param > 0 && p.Param < 1
}

// Checks the parameter ranges
func (p ClipParams) Validate() error {
	if !(p.Multiple > 0) {
		return fmt.Errorf("sigma clipping multiple %g must be positive", p.Multiple)
	}
	if p.IsTolerance() {
		return nil
	}
	if p.Param < 1 || p.Param != math.Trunc(p.Param) {
		return fmt.Errorf("sigma clipping parameter %g is neither a tolerance in (0,1) nor an iteration count >= 1", p.Param)
	}
	return nil
}

func (p ClipParams) String() string {
	if p.IsTolerance() {
		return fmt.Sprintf("%g sigma, tolerance %g", p.Multiple, p.Param)
	}
	return fmt.Sprintf("%g sigma, %d iterations", p.Multiple, int(p.Param))
}

// Surviving set of a sigma clipping run
type Clipped struct {
	Num    int
	Median float64
	Mean   float64
	Std    float64
}

// Iteratively removes elements outside mean +- multiple*std from an ascending sorted slice.
// Because the data is sorted, the surviving set is always a contiguous range, so
// each iteration only moves the range bounds. Does not modify the data.
func SigmaClipSorted(a []float64, p ClipParams) Clipped {
	lo, hi := 0, len(a)
	if hi == 0 {
		return Clipped{Num: 0, Median: math.NaN(), Mean: math.NaN(), Std: math.NaN()}
	}
	iterations := maxClipIterations
	if !p.IsTolerance() {
		iterations = int(p.Param)
	}

	mean, std := MeanStdDev(a)
	for iter := 0; iter < iterations; iter++ {
		low, high := mean-p.Multiple*std, mean+p.Multiple*std
		newLo := lo + LowerBound(a[lo:hi], low)
		newHi := lo + UpperBound(a[lo:hi], high)
		if newLo == lo && newHi == hi {
			break // nothing removed, converged
		}
		lo, hi = newLo, newHi
		if hi <= lo {
			return Clipped{Num: 0, Median: math.NaN(), Mean: math.NaN(), Std: math.NaN()}
		}

		oldStd := std
		mean, std = MeanStdDev(a[lo:hi])
		if p.IsTolerance() && std > 0 && (oldStd-std)/std < p.Param {
			break
		}
	}
	return Clipped{Num: hi - lo, Median: MedianSorted(a[lo:hi]), Mean: mean, Std: std}
}
