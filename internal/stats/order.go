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

// Package stats holds order statistics over sorted float64 buffers,
// as used by the per-label sweeps of the catalog reducer.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Returns the median of an ascending sorted slice, or NaN if empty
func MedianSorted(a []float64) float64 {
	n := len(a)
	if n == 0 {
		return math.NaN()
	}
	if n&1 != 0 {
		return a[n>>1]
	}
	return 0.5 * (a[(n>>1)-1] + a[n>>1])
}

// Returns the index of the first element of the ascending sorted slice
// which is strictly greater than v, or len(a) if there is none
func UpperBound(a []float64, v float64) int {
	lo, hi := 0, len(a)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if a[mid] <= v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Returns the index of the first element of the ascending sorted slice
// which is greater or equal to v, or len(a) if there is none
func LowerBound(a []float64, v float64) int {
	lo, hi := 0, len(a)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if a[mid] < v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Returns the number of largest elements of the ascending sorted slice
// whose cumulative sum first reaches half of total. Returns 0 for non-positive totals.
func HalfSumNum(a []float64, total float64) int {
	if !(total > 0) {
		return 0
	}
	half, cum := 0.5*total, 0.0
	for i := len(a) - 1; i >= 0; i-- {
		cum += a[i]
		if cum >= half {
			return len(a) - i
		}
	}
	return len(a)
}

// Returns number and sum of elements of the ascending sorted slice strictly above the threshold
func AboveThreshold(a []float64, threshold float64) (num int, sum float64) {
	first := UpperBound(a, threshold)
	for _, v := range a[first:] {
		sum += v
	}
	return len(a) - first, sum
}

// Returns the fraction of the ascending sorted samples which are less or equal to v,
// i.e. the empirical quantile of v in the sample distribution. NaN for empty samples.
func QuantileOf(sorted []float64, v float64) float64 {
	if len(sorted) == 0 || math.IsNaN(v) {
		return math.NaN()
	}
	return stat.CDF(v, stat.Empirical, sorted, nil)
}

// Returns mean and population standard deviation, or NaNs if empty
func MeanStdDev(a []float64) (mean, stdDev float64) {
	if len(a) == 0 {
		return math.NaN(), math.NaN()
	}
	return stat.PopMeanStdDev(a, nil)
}
