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

	"github.com/DeadSpheroid/gnuastro-sub000/internal/qsort"
	"github.com/DeadSpheroid/gnuastro-sub000/internal/stats"
)

// Rejection reasons of upper limit placements, as listed in the check table
const (
	placementAccepted = "accepted"
	placementOverlap  = "overlap"
	placementBlank    = "blank"
)

// Final avalanche of MurmurHash3
func fmix32(h uint32) uint32 {
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}

// Seed of the random stream of one label, a fixed function of the global seed and the
// label alone so results do not depend on the work distribution. Never zero,
// as fastrand reseeds a zero state from the clock
func labelSeed(seed uint32, obj, clump int) uint32 {
	h := fmix32(seed ^ 0x9e3779b9 ^ uint32(obj))
	h = fmix32(h ^ uint32(clump)*0x85ebca6b)
	if h == 0 {
		h = 1
	}
	return h
}

// Collects the footprint of an object (clump 0) or one of its clumps as pixel offsets
// relative to the footprint bounding box start. Returns the start and size of the box
func (w *worker) collectFootprint(obj, clump int) (fp []int, start, size [3]int) {
	in, pre := w.m.in, w.m.pre
	lo, hi := pre.lo[obj-1], pre.hi[obj-1]
	if clump == 0 {
		start = lo
		for d := 0; d < 3; d++ {
			size[d] = hi[d] - lo[d] + 1
		}
	} else {
		// clump bounding box from the clump pixels themselves
		start = [3]int{math.MaxInt32, math.MaxInt32, math.MaxInt32}
	}
	label := int32(obj)
	n := 0
	end := [3]int{-1, -1, -1}
	for z := lo[2]; z <= hi[2]; z++ {
		for y := lo[1]; y <= hi[1]; y++ {
			i := pre.index(lo[0], y, z)
			for x := lo[0]; x <= hi[0]; x, i = x+1, i+1 {
				if in.Objects[i] != label || (clump > 0 && in.Clumps[i] != int32(clump)) {
					continue
				}
				if clump > 0 {
					c := [3]int{x, y, z}
					for d := 0; d < 3; d++ {
						if c[d] < start[d] {
							start[d] = c[d]
						}
						if c[d] > end[d] {
							end[d] = c[d]
						}
					}
				}
				w.footprint[n] = i
				n++
			}
		}
	}
	fp = w.footprint[:n]
	if clump > 0 && n > 0 {
		for d := 0; d < 3; d++ {
			size[d] = end[d] - start[d] + 1
		}
	}
	base := pre.index(start[0], start[1], start[2])
	for k := range fp {
		fp[k] -= base
	}
	return fp, start, size
}

// Runs the upper limit sampler for an object (clump 0) or one of its clumps
func (w *worker) upperLimit(obj, clump int) {
	in, pre, p := w.m.in, w.m.pre, w.p
	opt := &p.opts.UpperLimit
	var r []float64
	var l *layout
	var flags *uint8
	if clump == 0 {
		r, l, flags = w.m.obj.row(obj-1), &objLayout, &w.m.warn.Objects[obj-1]
	} else {
		ci := pre.clumpOffset[obj-1] + clump - 1
		if w.clumpAll[clump] == 0 {
			r = w.m.clu.row(ci)
			r[clumpLayout.upperB], r[clumpLayout.upperS] = math.NaN(), math.NaN()
			r[clumpLayout.upperQ], r[clumpLayout.upperSkew] = math.NaN(), math.NaN()
			return
		}
		r, l, flags = w.m.clu.row(ci), &clumpLayout, &w.m.warn.Clumps[ci]
	}

	fp, start, size := w.collectFootprint(obj, clump)
	base := pre.index(start[0], start[1], start[2])
	truth := 0.0
	for _, off := range fp {
		if v := float64(in.Values[base+off]); !math.IsNaN(v) {
			truth += v
		}
	}

	var check *checkTable
	if clump == 0 && w.m.check != nil && w.m.check.id == obj {
		check = w.m.check
	}

	w.rng.Seed(labelSeed(opt.Seed, obj, clump))
	maxBlank := opt.BlankFractionMax * float64(len(fp))
	accepted, rejected := 0, 0
	for accepted < opt.NTries && rejected <= opt.FailureBudget {
		var t [3]int
		for d := 0; d < w.ndim; d++ {
			t[d] = int(w.rng.Uint32n(uint32(pre.naxisn[d] - size[d] + 1)))
		}
		shifted := pre.index(t[0], t[1], t[2])
		status, blanks, sum := placementAccepted, 0, 0.0
		for _, off := range fp {
			k := shifted + off
			if in.Objects[k] != 0 {
				status = placementOverlap
				break
			}
			if v := float64(in.Values[k]); math.IsNaN(v) {
				blanks++
			} else {
				sum += v
			}
		}
		if status == placementAccepted && float64(blanks) > maxBlank {
			status = placementBlank
		}
		if check != nil {
			check.add(t, sum, status)
		}
		if status != placementAccepted {
			rejected++
			continue
		}
		w.samples[accepted] = sum
		accepted++
	}

	if accepted < opt.NTries {
		r[l.upperB], r[l.upperS], r[l.upperQ], r[l.upperSkew] = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		*flags |= 1 << WarnUpperLimit
		return
	}
	samples := w.samples[:accepted]
	qsort.QSortFloat64(samples)
	cl := stats.SigmaClipSorted(samples, opt.SigmaClip)
	r[l.upperS] = cl.Std
	r[l.upperB] = opt.SigmaMultiple * cl.Std
	r[l.upperQ] = stats.QuantileOf(samples, truth)
	r[l.upperSkew] = ratio(cl.Mean-cl.Median, cl.Std)
}
