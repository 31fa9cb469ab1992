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
	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/floats"
)

// Accumulator rows and row flags shared by all workers. Each object row, and the
// rows of its clumps, is written by exactly one worker
type measurement struct {
	plan  *Plan
	in    *Input
	pre   *prescan
	obj   *rows
	clu   *rows
	warn  *Warnings
	check *checkTable // Upper limit placements of one object, or nil
}

func newMeasurement(p *Plan) *measurement {
	m := &measurement{plan: p, in: p.in, pre: p.pre,
		obj:  newRows(p.pre.nobj, &objLayout, p.objNeeds, p.nz),
		warn: newWarnings(p.pre.nobj, p.pre.nclumps, p.warnings)}
	if p.in.Clumps != nil {
		m.clu = newRows(p.pre.nclumps, &clumpLayout, p.clumpNeeds, p.nz)
	}
	if u := &p.opts.UpperLimit; p.objUpper && u.CheckID > 0 {
		m.check = newCheckTable(u.CheckID, u.NTries+u.FailureBudget+1, p.ndim)
	}
	return m
}

// Which groups of slots a row update has to maintain, derived once from the needs
type updates struct {
	l                   *layout
	needs               []bool
	sky, stdVar, pixVar bool
	min, max, bbox      bool
	vecs                bool
}

func newUpdates(l *layout, needs []bool, hasNoise bool) updates {
	has := func(slots ...int) bool {
		for _, s := range slots {
			if needs[s] {
				return true
			}
		}
		return false
	}
	return updates{l: l, needs: needs,
		sky:    hasNoise && has(l.sumSky, l.numSky),
		stdVar: hasNoise && has(l.sumVar, l.numVar),
		pixVar: hasNoise && has(l.sumPixVar, l.numPixVar),
		min:    has(l.minimum, l.minVNum, l.minV[0], l.minV[1], l.minV[2]),
		max:    has(l.maximum, l.maxVNum, l.maxV[0], l.maxV[1], l.maxV[2]),
		bbox:   has(l.minC[0], l.minC[1], l.minC[2], l.maxC[0], l.maxC[1], l.maxC[2]),
		vecs:   l.needsVectors(needs),
	}
}

// Per goroutine state of the measurement. Scratch is sized for the largest object
type worker struct {
	m       *measurement
	p       *Plan
	ou, cu  updates
	ndim    int
	stride  [3]int
	rng     fastrand.RNG
	clip    stats.ClipParams
	hasClmp bool

	sortBuf    []float64 // Valued pixels of one object, clumps in consecutive segments
	samples    []float64 // Random sums of the upper limit sampler
	footprint  []int     // Relative pixel offsets of one label
	clumpValid []int     // Valued pixels per clump of the current object
	clumpAll   []int     // Footprint pixels per clump of the current object
	clumpStart []int     // Start of each clump segment in the sort buffer
	clumpFill  []int     // Fill cursor of each clump segment
	occ, occV  []bool    // Projected occupancy of the current object, all and valued pixels
	clumpOcc   [][]bool  // Projected occupancy per clump
	clumpOccV  [][]bool
}

func newWorker(m *measurement) *worker {
	p := m.plan
	hasNoise := m.in.Noise != nil
	w := &worker{m: m, p: p, ndim: p.ndim, clip: p.opts.SigmaClip, hasClmp: m.in.Clumps != nil,
		ou: newUpdates(&objLayout, p.objNeeds, hasNoise),
		cu: newUpdates(&clumpLayout, p.clumpNeeds, hasNoise)}
	w.stride = [3]int{1, m.pre.naxisn[0], m.pre.naxisn[0] * m.pre.naxisn[1]}
	if p.objSort || p.clumpSort {
		size := m.pre.maxPix
		if p.objSort && p.clumpSort {
			size *= 2 // object values and clump segments side by side
		}
		w.sortBuf = getArrayOfFloat64FromPool(size)
	}
	if p.objUpper || p.clumpUpper {
		w.samples = getArrayOfFloat64FromPool(p.opts.UpperLimit.NTries)
		w.footprint = getArrayOfIntFromPool(m.pre.maxPix)
	}
	if w.hasClmp {
		w.clumpValid = getArrayOfIntFromPool(m.pre.maxClumps + 1)
		w.clumpAll = getArrayOfIntFromPool(m.pre.maxClumps + 1)
		w.clumpStart = getArrayOfIntFromPool(m.pre.maxClumps + 2)
		w.clumpFill = getArrayOfIntFromPool(m.pre.maxClumps + 1)
	}
	return w
}

// Returns scratch to the pools
func (w *worker) release() {
	putArrayOfFloat64IntoPool(w.sortBuf)
	putArrayOfFloat64IntoPool(w.samples)
	putArrayOfIntIntoPool(w.footprint)
	putArrayOfIntIntoPool(w.clumpValid)
	putArrayOfIntIntoPool(w.clumpAll)
	putArrayOfIntIntoPool(w.clumpStart)
	putArrayOfIntIntoPool(w.clumpFill)
	w.releaseOccupancy()
	w.sortBuf, w.samples, w.footprint = nil, nil, nil
	w.clumpValid, w.clumpAll, w.clumpStart, w.clumpFill = nil, nil, nil, nil
}

func (w *worker) releaseOccupancy() {
	putArrayOfBoolIntoPool(w.occ)
	putArrayOfBoolIntoPool(w.occV)
	for k := range w.clumpOcc {
		putArrayOfBoolIntoPool(w.clumpOcc[k])
		putArrayOfBoolIntoPool(w.clumpOccV[k])
	}
	w.occ, w.occV, w.clumpOcc, w.clumpOccV = nil, nil, nil, nil
}

// Measures one object and its clumps: pass 1, projections, order statistics and upper limits
func (w *worker) measure(obj int) {
	pre, p := w.m.pre, w.p
	j := obj - 1
	orow := w.m.obj.row(j)
	nclumps := int(pre.numClumps[j])
	if !pre.present(obj) {
		clearBBox(orow, &w.ou)
		clearSecondPass(orow, &w.ou)
		w.m.warn.Objects[j] |= 1 << WarnEmpty
		return
	}
	setBBoxSentinels(orow, &w.ou)
	if w.hasClmp && p.anyClumpRows {
		for k := 0; k < nclumps; k++ {
			setBBoxSentinels(w.m.clu.row(pre.clumpOffset[j]+k), &w.cu)
		}
	}
	if w.hasClmp {
		for k := 0; k <= nclumps; k++ {
			w.clumpValid[k], w.clumpAll[k] = 0, 0
		}
	}
	proj := p.objProj || p.clumpProj
	if proj {
		w.allocOccupancy(obj, nclumps)
	}

	w.pass1(obj)

	if proj {
		w.projections(obj, nclumps)
		w.releaseOccupancy()
	}
	if p.objSort || p.clumpSort {
		w.orderStatistics(obj, nclumps)
	}
	if p.objUpper {
		w.upperLimit(obj, 0)
	}
	if p.clumpUpper && w.hasClmp {
		for k := 1; k <= nclumps; k++ {
			w.upperLimit(obj, k)
		}
	}

	finishBBox(orow, &w.ou)
	if w.hasClmp && p.anyClumpRows {
		for k := 0; k < nclumps; k++ {
			finishBBox(w.m.clu.row(pre.clumpOffset[j]+k), &w.cu)
		}
	}
}

func setBBoxSentinels(r []float64, u *updates) {
	if !u.bbox {
		return
	}
	for d := 0; d < 3; d++ {
		r[u.l.minC[d]], r[u.l.maxC[d]] = math.Inf(1), math.Inf(-1)
	}
}

// Blanks the order statistic and upper limit slots of a label without pixels
func clearSecondPass(r []float64, u *updates) {
	l, n := u.l, u.needs
	slots := []int{l.median, l.halfSumNum, l.halfMaxNum, l.halfMaxSum,
		l.fracMaxNum[0], l.fracMaxNum[1], l.fracMaxSum[0], l.fracMaxSum[1],
		l.sigClipNum, l.sigClipMedian, l.sigClipMean, l.sigClipStd,
		l.upperB, l.upperS, l.upperQ, l.upperSkew}
	for _, k := range slots {
		if n[k] {
			r[k] = math.NaN()
		}
	}
}

// Replaces untouched bounding box sentinels with NaN
func finishBBox(r []float64, u *updates) {
	if !u.bbox {
		return
	}
	for d := 0; d < 3; d++ {
		if math.IsInf(r[u.l.minC[d]], 0) {
			r[u.l.minC[d]] = math.NaN()
		}
		if math.IsInf(r[u.l.maxC[d]], 0) {
			r[u.l.maxC[d]] = math.NaN()
		}
	}
}

func clearBBox(r []float64, u *updates) {
	if !u.bbox {
		return
	}
	for d := 0; d < 3; d++ {
		r[u.l.minC[d]], r[u.l.maxC[d]] = math.NaN(), math.NaN()
	}
}

// Pass 1 over the bounding box of one object
func (w *worker) pass1(obj int) {
	in, pre, p := w.m.in, w.m.pre, w.p
	j := obj - 1
	lo, hi := pre.lo[j], pre.hi[j]
	orow := w.m.obj.row(j)
	label := int32(obj)
	wx := hi[0] - lo[0] + 1

	for z := lo[2]; z <= hi[2]; z++ {
		for y := lo[1]; y <= hi[1]; y++ {
			i := pre.index(lo[0], y, z)
			for x := lo[0]; x <= hi[0]; x, i = x+1, i+1 {
				if in.Objects[i] != label {
					continue
				}
				c := int32(0)
				if w.hasClmp {
					c = in.Clumps[i]
				}
				if c < 0 {
					if p.anyRiver {
						w.river(obj, i, [3]int{x, y, z})
					}
					continue
				}
				v := float64(in.Values[i])
				blank := math.IsNaN(v)
				coord := [3]int{x, y, z}
				w.addPixel(orow, &w.ou, w.m.obj, j, i, coord, v, blank)
				xy := (y-lo[1])*wx + (x - lo[0])
				if w.occ != nil && p.objProj {
					w.occ[xy] = true
					if !blank {
						w.occV[xy] = true
					}
				}
				if c == 0 {
					continue
				}
				w.clumpAll[c]++
				if !blank {
					w.clumpValid[c]++
				}
				addClumpAggregate(orow, p.objNeeds, coord, v, blank)
				if p.anyClumpRows {
					ci := pre.clumpOffset[j] + int(c) - 1
					w.addPixel(w.m.clu.row(ci), &w.cu, w.m.clu, ci, i, coord, v, blank)
					if w.clumpOcc != nil && p.clumpProj {
						w.clumpOcc[c-1][xy] = true
						if !blank {
							w.clumpOccV[c-1][xy] = true
						}
					}
				}
			}
		}
	}
}

// Applies the update rules of one pixel to one accumulator row
func (w *worker) addPixel(r []float64, u *updates, rs *rows, row, i int, c [3]int, v float64, blank bool) {
	l, n := u.l, u.needs
	if n[l.numAll] {
		r[l.numAll]++
	}
	if blank {
		return
	}
	if n[l.num] {
		r[l.num]++
	}
	if n[l.sum] {
		r[l.sum] += v
	}
	if n[l.sumP2] {
		r[l.sumP2] += v * v
	}
	if u.sky || u.stdVar || u.pixVar {
		nm := w.m.in.Noise
		if u.sky {
			r[l.sumSky] += nm.Sky(i)
			r[l.numSky]++
		}
		if u.stdVar {
			s := nm.Std(i)
			r[l.sumVar] += s * s
			r[l.numVar]++
		}
		if u.pixVar {
			r[l.sumPixVar] += nm.Variance(i)
			r[l.numPixVar]++
		}
	}

	x, y := float64(c[0]), float64(c[1])
	for d := 0; d < w.ndim; d++ {
		if n[l.g[d]] {
			r[l.g[d]] += float64(c[d])
		}
	}
	if n[l.gxx] {
		r[l.gxx] += x * x
	}
	if n[l.gyy] {
		r[l.gyy] += y * y
	}
	if n[l.gxy] {
		r[l.gxy] += x * y
	}
	if v > 0 {
		if n[l.sumWht] {
			r[l.sumWht] += v
		}
		if n[l.numWht] {
			r[l.numWht]++
		}
		for d := 0; d < w.ndim; d++ {
			if n[l.v[d]] {
				r[l.v[d]] += v * float64(c[d])
			}
		}
		if n[l.vxx] {
			r[l.vxx] += v * x * x
		}
		if n[l.vyy] {
			r[l.vyy] += v * y * y
		}
		if n[l.vxy] {
			r[l.vxy] += v * x * y
		}
	}

	if u.max {
		switch {
		case r[l.maxVNum] == 0 || v > r[l.maximum]:
			r[l.maximum], r[l.maxVNum] = v, 1
			for d := 0; d < 3; d++ {
				r[l.maxV[d]] = float64(c[d])
			}
		case v == r[l.maximum]:
			r[l.maxVNum]++
			for d := 0; d < 3; d++ {
				r[l.maxV[d]] += float64(c[d])
			}
		}
	}
	if u.min {
		switch {
		case r[l.minVNum] == 0 || v < r[l.minimum]:
			r[l.minimum], r[l.minVNum] = v, 1
			for d := 0; d < 3; d++ {
				r[l.minV[d]] = float64(c[d])
			}
		case v == r[l.minimum]:
			r[l.minVNum]++
			for d := 0; d < 3; d++ {
				r[l.minV[d]] += float64(c[d])
			}
		}
	}
	if u.bbox {
		for d := 0; d < w.ndim; d++ {
			cd := float64(c[d])
			if cd < r[l.minC[d]] {
				r[l.minC[d]] = cd
			}
			if cd > r[l.maxC[d]] {
				r[l.maxC[d]] = cd
			}
		}
	}
	if u.vecs && rs.nz > 0 {
		k := row*rs.nz + c[2]
		if vec := rs.vecs[vecNumIn]; vec != nil {
			vec[k]++
		}
		if vec := rs.vecs[vecSumIn]; vec != nil {
			vec[k] += v
		}
		if vec := rs.vecs[vecSumVarIn]; vec != nil && w.m.in.Noise != nil {
			vec[k] += w.m.in.Noise.Variance(i)
		}
	}
}

// Updates the clump aggregates of the object row with one clump pixel
func addClumpAggregate(r []float64, n []bool, c [3]int, v float64, blank bool) {
	if n[OColCNumAll] {
		r[OColCNumAll]++
	}
	if blank {
		return
	}
	if n[OColCNum] {
		r[OColCNum]++
	}
	if n[OColCSum] {
		r[OColCSum] += v
	}
	g := [3]int{OColCGX, OColCGY, OColCGZ}
	for d := 0; d < 3; d++ {
		if n[g[d]] {
			r[g[d]] += float64(c[d])
		}
	}
	if v > 0 {
		if n[OColCSumWht] {
			r[OColCSumWht] += v
		}
		if n[OColCNumWht] {
			r[OColCNumWht]++
		}
		vs := [3]int{OColCVX, OColCVY, OColCVZ}
		for d := 0; d < 3; d++ {
			if n[vs[d]] {
				r[vs[d]] += v * float64(c[d])
			}
		}
	}
}

// Adds a river pixel to every distinct clump of the same object adjacent to it
func (w *worker) river(obj, i int, c [3]int) {
	in, pre := w.m.in, w.m.pre
	v := float64(in.Values[i])
	if math.IsNaN(v) {
		return
	}
	var adjacent [6]int32
	na := 0
	for d := 0; d < w.ndim; d++ {
		for _, dir := range [2]int{-1, 1} {
			nc := c[d] + dir
			if nc < 0 || nc >= pre.naxisn[d] {
				continue
			}
			k := i + dir*w.stride[d]
			if in.Objects[k] != int32(obj) {
				continue
			}
			cl := in.Clumps[k]
			if cl <= 0 {
				continue
			}
			seen := false
			for _, a := range adjacent[:na] {
				if a == cl {
					seen = true
					break
				}
			}
			if !seen {
				adjacent[na] = cl
				na++
			}
		}
	}
	if na == 0 {
		return
	}
	variance := 0.0
	if in.Noise != nil {
		s := in.Noise.Std(i)
		variance = s * s
	}
	off := pre.clumpOffset[obj-1]
	for _, cl := range adjacent[:na] {
		r := w.m.clu.row(off + int(cl) - 1)
		r[CColRivNum]++
		r[CColRivSum] += v
		r[CColRivSumVar] += variance
	}
}

// Allocates projected occupancy maps over the first two axes of the object bounding box
func (w *worker) allocOccupancy(obj, nclumps int) {
	pre, p := w.m.pre, w.p
	lo, hi := pre.lo[obj-1], pre.hi[obj-1]
	area := (hi[0] - lo[0] + 1) * (hi[1] - lo[1] + 1)
	if p.objProj {
		w.occ, w.occV = getArrayOfBoolFromPool(area), getArrayOfBoolFromPool(area)
	}
	if p.clumpProj && w.hasClmp {
		w.clumpOcc, w.clumpOccV = make([][]bool, nclumps), make([][]bool, nclumps)
		for k := range w.clumpOcc {
			w.clumpOcc[k], w.clumpOccV[k] = getArrayOfBoolFromPool(area), getArrayOfBoolFromPool(area)
		}
	}
}

// Fills projected counts and per-slice projection vectors from the occupancy maps
func (w *worker) projections(obj, nclumps int) {
	pre := w.m.pre
	j := obj - 1
	if w.occ != nil {
		w.project(obj, 0, w.occ, w.occV, w.m.obj.row(j), &w.ou, w.m.obj, j)
	}
	for k := 0; k < len(w.clumpOcc) && k < nclumps; k++ {
		ci := pre.clumpOffset[j] + k
		w.project(obj, k+1, w.clumpOcc[k], w.clumpOccV[k], w.m.clu.row(ci), &w.cu, w.m.clu, ci)
	}
}

// Walks all slices below the projected footprint of one label. Clump 0 denotes the object itself
func (w *worker) project(obj, clump int, occ, occV []bool, r []float64, u *updates, rs *rows, row int) {
	in, pre := w.m.in, w.m.pre
	l, n := u.l, u.needs
	lo, hi := pre.lo[obj-1], pre.hi[obj-1]
	wx := hi[0] - lo[0] + 1

	numAllXY, numXY := 0, 0
	for k := range occ {
		if occ[k] {
			numAllXY++
		}
		if occV[k] {
			numXY++
		}
	}
	if n[l.numAllXY] {
		r[l.numAllXY] = float64(numAllXY)
	}
	if n[l.numXY] {
		r[l.numXY] = float64(numXY)
	}
	if rs.nz == 0 {
		return
	}
	f := l.firstVec
	proj := n[f+vecNumProj] || n[f+vecSumProj] || n[f+vecSumProjVar]
	other := n[f+vecNumOther] || n[f+vecSumOther] || n[f+vecSumOtherVar]
	if !proj && !other {
		return
	}
	vec := func(s int) []float64 { return rs.vec(s, row) }
	numProj, sumProj, varProj := vec(vecNumProj), vec(vecSumProj), vec(vecSumProjVar)
	numOther, sumOther, varOther := vec(vecNumOther), vec(vecSumOther), vec(vecSumOtherVar)
	label := int32(obj)

	for z := 0; z < pre.naxisn[2]; z++ {
		for y := lo[1]; y <= hi[1]; y++ {
			i := pre.index(lo[0], y, z)
			for x := lo[0]; x <= hi[0]; x, i = x+1, i+1 {
				if !occ[(y-lo[1])*wx+(x-lo[0])] {
					continue
				}
				v := float64(in.Values[i])
				if math.IsNaN(v) {
					continue
				}
				variance := 0.0
				if in.Noise != nil && (varProj != nil || varOther != nil) {
					variance = in.Noise.Variance(i)
				}
				if numProj != nil {
					numProj[z]++
				}
				if sumProj != nil {
					sumProj[z] += v
				}
				if varProj != nil {
					varProj[z] += variance
				}
				o := in.Objects[i]
				if o == 0 {
					continue
				}
				mine := o == label
				if clump > 0 {
					mine = mine && in.Clumps[i] == int32(clump)
				}
				if mine {
					continue
				}
				if numOther != nil {
					numOther[z]++
				}
				if sumOther != nil {
					sumOther[z] += v
				}
				if varOther != nil {
					varOther[z] += variance
				}
			}
		}
	}
}

// Sorts the valued pixels of the object and each clump and fills the order statistic slots
func (w *worker) orderStatistics(obj, nclumps int) {
	in, pre, p := w.m.in, w.m.pre, w.p
	j := obj - 1
	lo, hi := pre.lo[j], pre.hi[j]
	label := int32(obj)

	// Object values first, then one segment per clump
	nObj := 0
	clumps := p.clumpSort && w.hasClmp && nclumps > 0
	if clumps {
		start := 0
		for k := 1; k <= nclumps; k++ {
			w.clumpStart[k] = start
			start += w.clumpValid[k]
		}
		w.clumpStart[nclumps+1] = start
	}
	objBuf := w.sortBuf
	var clumpBuf []float64
	if clumps {
		// clump segments live at the top of the buffer, objects fill from the bottom
		total := w.clumpStart[nclumps+1]
		clumpBuf = w.sortBuf[len(w.sortBuf)-total:]
		objBuf = w.sortBuf[:len(w.sortBuf)-total]
		for k := 1; k <= nclumps; k++ {
			w.clumpFill[k] = w.clumpStart[k]
		}
	}
	for z := lo[2]; z <= hi[2]; z++ {
		for y := lo[1]; y <= hi[1]; y++ {
			i := pre.index(lo[0], y, z)
			for x := lo[0]; x <= hi[0]; x, i = x+1, i+1 {
				if in.Objects[i] != label {
					continue
				}
				c := int32(0)
				if w.hasClmp {
					c = in.Clumps[i]
				}
				v := float64(in.Values[i])
				if c < 0 || math.IsNaN(v) {
					continue
				}
				if p.objSort && nObj < len(objBuf) {
					objBuf[nObj] = v
					nObj++
				}
				if clumps && c > 0 {
					clumpBuf[w.clumpFill[c]] = v
					w.clumpFill[c]++
				}
			}
		}
	}
	if p.objSort {
		w.fillOrderStatistics(w.m.obj.row(j), &w.ou, objBuf[:nObj])
	}
	if clumps {
		for k := 1; k <= nclumps; k++ {
			seg := clumpBuf[w.clumpStart[k]:w.clumpStart[k+1]]
			w.fillOrderStatistics(w.m.clu.row(pre.clumpOffset[j]+k-1), &w.cu, seg)
		}
	}
}

// Sorts one label's values in place and reads the order statistics off the sorted sequence
func (w *worker) fillOrderStatistics(r []float64, u *updates, a []float64) {
	l, n := u.l, u.needs
	qsort.QSortFloat64(a)
	if n[l.median] {
		r[l.median] = stats.MedianSorted(a)
	}
	if n[l.sigClipNum] || n[l.sigClipMedian] || n[l.sigClipMean] || n[l.sigClipStd] {
		cl := stats.SigmaClipSorted(a, w.clip)
		r[l.sigClipNum], r[l.sigClipMedian], r[l.sigClipMean], r[l.sigClipStd] = float64(cl.Num), cl.Median, cl.Mean, cl.Std
	}
	if n[l.halfSumNum] {
		r[l.halfSumNum] = float64(stats.HalfSumNum(a, floats.Sum(a)))
	}
	if len(a) == 0 {
		return
	}
	max := a[len(a)-1]
	if n[l.halfMaxNum] || n[l.halfMaxSum] {
		num, sum := stats.AboveThreshold(a, max/2)
		r[l.halfMaxNum], r[l.halfMaxSum] = float64(num), sum
	}
	for k, f := range w.p.opts.FracMax {
		if n[l.fracMaxNum[k]] || n[l.fracMaxSum[k]] {
			num, sum := stats.AboveThreshold(a, f*max)
			r[l.fracMaxNum[k]], r[l.fracMaxSum[k]] = float64(num), sum
		}
	}
}
