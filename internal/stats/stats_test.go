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
	"math"
	"math/rand"
	"testing"

	"github.com/DeadSpheroid/gnuastro-sub000/internal/qsort"
)

func TestMedianSorted(t *testing.T) {
	if m := MedianSorted([]float64{1, 2, 3}); m != 2 {
		t.Errorf("odd median got %g; want 2", m)
	}
	if m := MedianSorted([]float64{1, 2, 3, 10}); m != 2.5 {
		t.Errorf("even median got %g; want 2.5", m)
	}
	if m := MedianSorted(nil); !math.IsNaN(m) {
		t.Errorf("empty median got %g; want NaN", m)
	}
}

func TestBounds(t *testing.T) {
	a := []float64{1, 2, 2, 2, 3}
	if i := LowerBound(a, 2); i != 1 {
		t.Errorf("lower bound got %d; want 1", i)
	}
	if i := UpperBound(a, 2); i != 4 {
		t.Errorf("upper bound got %d; want 4", i)
	}
	if i := UpperBound(a, 5); i != 5 {
		t.Errorf("upper bound past end got %d; want 5", i)
	}
}

func TestHalfSumAndThreshold(t *testing.T) {
	a := []float64{0, 0, 1, 2, 3, 10}
	// total 16, half 8, reached by the largest element alone
	if n := HalfSumNum(a, 16); n != 1 {
		t.Errorf("half sum num got %d; want 1", n)
	}
	if n := HalfSumNum(a, 40); n != 6 {
		t.Errorf("half sum num for unreachable half got %d; want 6", n)
	}
	if n := HalfSumNum(a, 0); n != 0 {
		t.Errorf("half sum num for zero total got %d; want 0", n)
	}
	num, sum := AboveThreshold(a, 5)
	if num != 1 || sum != 10 {
		t.Errorf("above threshold got (%d, %g); want (1, 10)", num, sum)
	}
	num, sum = AboveThreshold(a, 1)
	if num != 3 || sum != 15 {
		t.Errorf("above threshold got (%d, %g); want (3, 15)", num, sum)
	}
}

func TestQuantileOf(t *testing.T) {
	a := []float64{1, 2, 3, 4}
	if q := QuantileOf(a, 2); q != 0.5 {
		t.Errorf("quantile got %g; want 0.5", q)
	}
	if q := QuantileOf(a, 0); q != 0 {
		t.Errorf("quantile got %g; want 0", q)
	}
	if q := QuantileOf(a, 100); q != 1 {
		t.Errorf("quantile got %g; want 1", q)
	}
}

func TestClipParamsValidate(t *testing.T) {
	good := []ClipParams{{3, 0.2}, {3, 5}, {2.5, 1}}
	for _, p := range good {
		if err := p.Validate(); err != nil {
			t.Errorf("%v: unexpected error %s", p, err)
		}
	}
	bad := []ClipParams{{0, 0.2}, {-1, 3}, {3, 0}, {3, 2.5}, {3, -1}}
	for _, p := range bad {
		if err := p.Validate(); err == nil {
			t.Errorf("%v: expected error", p)
		}
	}
}

func contaminatedNormal(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	a := make([]float64, n)
	for i := range a {
		if rng.Float64() < 0.05 {
			a[i] = rng.Float64()*100 - 50
		} else {
			a[i] = rng.NormFloat64()
		}
	}
	qsort.QSortFloat64(a)
	return a
}

func TestSigmaClipContaminatedNormal(t *testing.T) {
	n := 10000
	tol := 5 / math.Sqrt(float64(n))
	for _, p := range []ClipParams{{3, 0.2}, {3, 10}} {
		a := contaminatedNormal(n, 42)
		c := SigmaClipSorted(a, p)
		if math.Abs(c.Mean) > tol {
			t.Errorf("%v: clipped mean got %g; want 0 +- %g", p, c.Mean, tol)
		}
		if math.Abs(c.Std-1) > tol {
			t.Errorf("%v: clipped std got %g; want 1 +- %g", p, c.Std, tol)
		}
		if math.Abs(c.Median) > tol {
			t.Errorf("%v: clipped median got %g; want 0 +- %g", p, c.Median, tol)
		}
		if c.Num < n*9/10 || c.Num > n {
			t.Errorf("%v: clipped count got %d of %d", p, c.Num, n)
		}
	}
}

func TestSigmaClipDegenerate(t *testing.T) {
	c := SigmaClipSorted(nil, ClipParams{3, 0.2})
	if c.Num != 0 || !math.IsNaN(c.Mean) {
		t.Errorf("empty clip got %+v", c)
	}
	c = SigmaClipSorted([]float64{5, 5, 5}, ClipParams{3, 0.2})
	if c.Num != 3 || c.Mean != 5 || c.Std != 0 || c.Median != 5 {
		t.Errorf("constant clip got %+v", c)
	}
}
