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
)

// Derives output columns from the accumulator rows after the barrier
type finalizer struct {
	m         *measurement
	pre       *prescan
	zeropoint float64
	cpscorr   float64
	pixArea   float64
}

// One table's accumulator rows, as seen by the column formulae
type side struct {
	rows   *rows
	l      *layout
	clumps bool
	flags  []uint8
}

func newFinalizer(m *measurement) *finalizer {
	f := &finalizer{m: m, pre: m.pre, zeropoint: m.plan.opts.Zeropoint, cpscorr: m.plan.opts.CPSCorr,
		pixArea: m.plan.pixArea}
	if m.in.Noise != nil {
		f.cpscorr = m.in.Noise.CorrelationCorrection()
	}
	return f
}

func (m *measurement) sides() (obj, clu *side) {
	obj = &side{rows: m.obj, l: &objLayout, flags: m.warn.Objects}
	if m.clu != nil {
		clu = &side{rows: m.clu, l: &clumpLayout, clumps: true, flags: m.warn.Clumps}
	}
	return obj, clu
}

// Fills all non-WCS output columns. Reads accumulator rows only, so repeated calls give identical outputs
func (m *measurement) finalize() {
	f := newFinalizer(m)
	obj, clu := m.sides()
	for _, pc := range m.plan.columns {
		if pc.def.wcsCat != wcsNone {
			continue
		}
		if pc.obj != nil {
			f.fill(pc.def, pc.obj, obj)
		}
		if pc.clump != nil && clu != nil {
			f.fill(pc.def, pc.clump, clu)
		}
	}
}

func (f *finalizer) fill(def *ColumnDef, col *Column, s *side) {
	if def.Vector {
		out := make([]float64, col.VecLen)
		for i := 0; i < s.rows.n; i++ {
			def.vector(f, s, i, out)
			for k, v := range out {
				col.Set(i, k, v)
			}
		}
		return
	}
	for i := 0; i < s.rows.n; i++ {
		col.Set(i, 0, def.value(f, s, s.rows.row(i), i))
	}
}

// R(a,b) = a/b, NaN for b = 0
func ratio(a, b float64) float64 {
	if b == 0 {
		return math.NaN()
	}
	return a / b
}

// Magnitude of a brightness, NaN unless positive
func (f *finalizer) magnitude(b float64) float64 {
	if !(b > 0) {
		return math.NaN()
	}
	return -2.5*math.Log10(b) + f.zeropoint
}

// Surface brightness of a brightness spread over an area in pixels
func (f *finalizer) surfaceBrightness(b, area float64) float64 {
	if !(area > 0) || math.IsNaN(f.pixArea) {
		return math.NaN()
	}
	return f.magnitude(b) + 2.5*math.Log10(area*f.pixArea)
}

func magnitudeError(sn float64) float64 {
	if math.IsNaN(sn) || sn == 0 {
		return math.NaN()
	}
	return 2.5 / (sn * math.Ln10)
}

// Value weighted centroid along axis d, one-based, falling back to the geometric centroid
func (s *side) weighted(r []float64, d int) float64 {
	if r[s.l.sumWht] > 0 {
		return r[s.l.v[d]]/r[s.l.sumWht] + 1
	}
	return s.geometric(r, d)
}

// Geometric centroid along axis d, one-based. The G sums only cover valued pixels, so NUM is their count
func (s *side) geometric(r []float64, d int) float64 {
	return ratio(r[s.l.g[d]], r[s.l.num]) + 1
}

func clumpsWeighted(r []float64, d int) float64 {
	if r[OColCSumWht] > 0 {
		return r[OColCVX+d]/r[OColCSumWht] + 1
	}
	return clumpsGeometric(r, d)
}

func clumpsGeometric(r []float64, d int) float64 {
	return ratio(r[OColCGX+d], r[OColCNum]) + 1
}

// Mean value of the rivers around a clump, 0 for objects and clumps without rivers
func (s *side) riverMean(r []float64) float64 {
	if !s.clumps || r[CColRivNum] == 0 {
		return 0
	}
	return r[CColRivSum] / r[CColRivNum]
}

// River variance scaled to the clump area
func (s *side) riverVar(r []float64) float64 {
	if !s.clumps || r[CColRivNum] == 0 {
		return 0
	}
	return r[CColRivSumVar] / r[CColRivNum] * r[CColNum]
}

// Sum of values, with the river contribution removed for clumps
func (s *side) brightness(r []float64) float64 {
	if !s.clumps {
		return r[s.l.sum]
	}
	return r[CColSum] - s.riverMean(r)*r[CColNum]
}

// Signal to noise ratio, NaN for a non-positive noise term
func (s *side) sn(r []float64, cpscorr float64) float64 {
	i := r[s.l.sum]
	o := 0.0
	if s.clumps {
		o = s.riverMean(r) * r[CColNum]
	}
	den := (i+o)*cpscorr + r[s.l.sumPixVar] + s.riverVar(r)
	if !(den > 0) {
		return math.NaN()
	}
	return (i - o) / math.Sqrt(den)
}

type ellipseParams struct {
	major, minor, ratio, angle float64
}

// Central second moments about the centroid, value weighted or geometric
func (s *side) moments(r []float64, geo bool) (xx, yy, xy float64, ok bool) {
	l := s.l
	if geo {
		n := r[l.num]
		if n <= 0 {
			return 0, 0, 0, false
		}
		x, y := r[l.g[0]]/n, r[l.g[1]]/n
		return r[l.gxx]/n - x*x, r[l.gyy]/n - y*y, r[l.gxy]/n - x*y, true
	}
	w := r[l.sumWht]
	if w <= 0 {
		return 0, 0, 0, false
	}
	x, y := r[l.v[0]]/w, r[l.v[1]]/w
	return r[l.vxx]/w - x*x, r[l.vyy]/w - y*y, r[l.vxy]/w - x*y, true
}

// Ellipse parameters from the second moments. Flags the row if they are undefined
func (s *side) ellipse(r []float64, i int, geo bool) ellipseParams {
	xx, yy, xy, ok := s.moments(r, geo)
	if !ok {
		s.flags[i] |= 1 << WarnMoments
		nan := math.NaN()
		return ellipseParams{nan, nan, nan, nan}
	}
	half := (xx + yy) / 2
	d := math.Sqrt((xx-yy)*(xx-yy)/4 + xy*xy)
	e := ellipseParams{
		major: math.Sqrt(math.Max(half+d, 0)),
		minor: math.Sqrt(math.Max(half-d, 0)),
		angle: 0.5 * math.Atan2(2*xy, xx-yy) * 180 / math.Pi,
	}
	e.ratio = ratio(e.minor, e.major)
	return e
}

// Radius of a circle of the given area, stretched by the value weighted axis ratio
func (s *side) radius(r []float64, i int, area float64) float64 {
	q := s.ellipse(r, i, false).ratio
	if !(q >= 1e-6) {
		return math.NaN()
	}
	rad := math.Sqrt(area / (q * math.Pi))
	if !(rad >= 1e-6) {
		return math.NaN()
	}
	return rad
}
