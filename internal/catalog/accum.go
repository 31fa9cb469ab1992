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

// Slots of the per-object accumulator row. Coordinates are zero-based pixel
// indices along each axis. Slots from OColNumInSlice on are per-slice vectors,
// kept outside the fixed-width row.
const (
	OColNumAll   = iota // All footprint pixels
	OColNumAllXY        // Distinct footprint positions projected on the first two axes
	OColNum             // Valued, i.e. non-blank, pixels
	OColNumXY           // Distinct valued positions projected on the first two axes
	OColNumWht          // Pixels with positive value
	OColNumSky          // Pixels contributing to OColSumSky
	OColNumVar          // Pixels contributing to OColSumVar
	OColSum             // Sum of values
	OColSumP2           // Sum of squared values
	OColSumWht          // Sum of positive values
	OColSumSky          // Sum of sky
	OColSumVar          // Sum of sky std squared
	OColSumPixVar       // Sum of measurement variance
	OColNumPixVar       // Pixels contributing to OColSumPixVar
	OColVX              // Value weighted coordinate sums
	OColVY
	OColVZ
	OColGX // Geometric coordinate sums
	OColGY
	OColGZ
	OColVXX // Value weighted second moments
	OColVYY
	OColVXY
	OColGXX // Geometric second moments
	OColGYY
	OColGXY
	OColMinVX // Coordinate sums of minimum valued pixels
	OColMinVY
	OColMinVZ
	OColMaxVX // Coordinate sums of maximum valued pixels
	OColMaxVY
	OColMaxVZ
	OColMinVNum // Multiplicity of the minimum value
	OColMaxVNum // Multiplicity of the maximum value
	OColMinimum
	OColMaximum
	OColMedian
	OColMinX // Bounding box
	OColMaxX
	OColMinY
	OColMaxY
	OColMinZ
	OColMaxZ
	OColHalfSumNum
	OColHalfMaxNum
	OColHalfMaxSum
	OColFracMax1Num
	OColFracMax2Num
	OColFracMax1Sum
	OColFracMax2Sum
	OColSigClipNum
	OColSigClipMedian
	OColSigClipMean
	OColSigClipStd
	OColUpperLimitB
	OColUpperLimitS
	OColUpperLimitQ
	OColUpperLimitSkew
	OColCNumAll // Aggregates over the clump pixels of the object
	OColCNum
	OColCSum
	OColCVX
	OColCVY
	OColCVZ
	OColCGX
	OColCGY
	OColCGZ
	OColCSumWht
	OColCNumWht
	OColNumInSlice // Per-slice vectors
	OColSumInSlice
	OColSumVarInSlice
	OColNumProjInSlice
	OColSumProjInSlice
	OColSumProjVarInSlice
	OColNumOtherInSlice
	OColSumOtherInSlice
	OColSumOtherVarInSlice
	OColNumCols
)

// Slots of the per-clump accumulator row, same semantics as the object slots
const (
	CColNumAll = iota
	CColNumAllXY
	CColNum
	CColNumXY
	CColNumWht
	CColNumSky
	CColNumVar
	CColSum
	CColSumP2
	CColSumWht
	CColSumSky
	CColSumVar
	CColSumPixVar
	CColNumPixVar
	CColVX
	CColVY
	CColVZ
	CColGX
	CColGY
	CColGZ
	CColVXX
	CColVYY
	CColVXY
	CColGXX
	CColGYY
	CColGXY
	CColMinVX
	CColMinVY
	CColMinVZ
	CColMaxVX
	CColMaxVY
	CColMaxVZ
	CColMinVNum
	CColMaxVNum
	CColMinimum
	CColMaximum
	CColMedian
	CColMinX
	CColMaxX
	CColMinY
	CColMaxY
	CColMinZ
	CColMaxZ
	CColHalfSumNum
	CColHalfMaxNum
	CColHalfMaxSum
	CColFracMax1Num
	CColFracMax2Num
	CColFracMax1Sum
	CColFracMax2Sum
	CColSigClipNum
	CColSigClipMedian
	CColSigClipMean
	CColSigClipStd
	CColUpperLimitB
	CColUpperLimitS
	CColUpperLimitQ
	CColUpperLimitSkew
	CColRivNum // River pixels adjacent to the clump
	CColRivSum
	CColRivSumVar
	CColNumInSlice
	CColSumInSlice
	CColSumVarInSlice
	CColNumProjInSlice
	CColSumProjInSlice
	CColSumProjVarInSlice
	CColNumOtherInSlice
	CColSumOtherInSlice
	CColSumOtherVarInSlice
	CColNumCols
)

// Number of per-slice vector slots, shared by both enumerations
const numVecSlots = OColNumCols - OColNumInSlice

// Per-slice vector slots, as offsets from the first vector slot of either enumeration
const (
	vecNumIn = iota
	vecSumIn
	vecSumVarIn
	vecNumProj
	vecSumProj
	vecSumProjVar
	vecNumOther
	vecSumOther
	vecSumOtherVar
)

// Positions of the slots shared by objects and clumps within one enumeration,
// so the same update rules serve both rows
type layout struct {
	numAll, numAllXY, num, numXY, numWht, numSky, numVar     int
	sum, sumP2, sumWht, sumSky, sumVar, sumPixVar, numPixVar int
	v, g                                                     [3]int
	vxx, vyy, vxy, gxx, gyy, gxy                             int
	minV, maxV                                               [3]int
	minVNum, maxVNum, minimum, maximum, median               int
	minC, maxC                                               [3]int
	halfSumNum, halfMaxNum, halfMaxSum                       int
	fracMaxNum, fracMaxSum                                   [2]int
	sigClipNum, sigClipMedian, sigClipMean, sigClipStd       int
	upperB, upperS, upperQ, upperSkew                        int
	firstVec                                                 int
	numCols                                                  int
}

var objLayout = layout{
	numAll: OColNumAll, numAllXY: OColNumAllXY, num: OColNum, numXY: OColNumXY, numWht: OColNumWht,
	numSky: OColNumSky, numVar: OColNumVar,
	sum: OColSum, sumP2: OColSumP2, sumWht: OColSumWht, sumSky: OColSumSky, sumVar: OColSumVar,
	sumPixVar: OColSumPixVar, numPixVar: OColNumPixVar,
	v:   [3]int{OColVX, OColVY, OColVZ},
	g:   [3]int{OColGX, OColGY, OColGZ},
	vxx: OColVXX, vyy: OColVYY, vxy: OColVXY, gxx: OColGXX, gyy: OColGYY, gxy: OColGXY,
	minV:    [3]int{OColMinVX, OColMinVY, OColMinVZ},
	maxV:    [3]int{OColMaxVX, OColMaxVY, OColMaxVZ},
	minVNum: OColMinVNum, maxVNum: OColMaxVNum, minimum: OColMinimum, maximum: OColMaximum, median: OColMedian,
	minC:       [3]int{OColMinX, OColMinY, OColMinZ},
	maxC:       [3]int{OColMaxX, OColMaxY, OColMaxZ},
	halfSumNum: OColHalfSumNum, halfMaxNum: OColHalfMaxNum, halfMaxSum: OColHalfMaxSum,
	fracMaxNum: [2]int{OColFracMax1Num, OColFracMax2Num},
	fracMaxSum: [2]int{OColFracMax1Sum, OColFracMax2Sum},
	sigClipNum: OColSigClipNum, sigClipMedian: OColSigClipMedian, sigClipMean: OColSigClipMean, sigClipStd: OColSigClipStd,
	upperB: OColUpperLimitB, upperS: OColUpperLimitS, upperQ: OColUpperLimitQ, upperSkew: OColUpperLimitSkew,
	firstVec: OColNumInSlice,
	numCols:  OColNumCols,
}

var clumpLayout = layout{
	numAll: CColNumAll, numAllXY: CColNumAllXY, num: CColNum, numXY: CColNumXY, numWht: CColNumWht,
	numSky: CColNumSky, numVar: CColNumVar,
	sum: CColSum, sumP2: CColSumP2, sumWht: CColSumWht, sumSky: CColSumSky, sumVar: CColSumVar,
	sumPixVar: CColSumPixVar, numPixVar: CColNumPixVar,
	v:   [3]int{CColVX, CColVY, CColVZ},
	g:   [3]int{CColGX, CColGY, CColGZ},
	vxx: CColVXX, vyy: CColVYY, vxy: CColVXY, gxx: CColGXX, gyy: CColGYY, gxy: CColGXY,
	minV:    [3]int{CColMinVX, CColMinVY, CColMinVZ},
	maxV:    [3]int{CColMaxVX, CColMaxVY, CColMaxVZ},
	minVNum: CColMinVNum, maxVNum: CColMaxVNum, minimum: CColMinimum, maximum: CColMaximum, median: CColMedian,
	minC:       [3]int{CColMinX, CColMinY, CColMinZ},
	maxC:       [3]int{CColMaxX, CColMaxY, CColMaxZ},
	halfSumNum: CColHalfSumNum, halfMaxNum: CColHalfMaxNum, halfMaxSum: CColHalfMaxSum,
	fracMaxNum: [2]int{CColFracMax1Num, CColFracMax2Num},
	fracMaxSum: [2]int{CColFracMax1Sum, CColFracMax2Sum},
	sigClipNum: CColSigClipNum, sigClipMedian: CColSigClipMedian, sigClipMean: CColSigClipMean, sigClipStd: CColSigClipStd,
	upperB: CColUpperLimitB, upperS: CColUpperLimitS, upperQ: CColUpperLimitQ, upperSkew: CColUpperLimitSkew,
	firstVec: CColNumInSlice,
	numCols:  CColNumCols,
}

// Returns true if any of the order statistic slots is needed
func (l *layout) needsSort(needs []bool) bool {
	return needs[l.median] || needs[l.halfSumNum] || needs[l.halfMaxNum] || needs[l.halfMaxSum] ||
		needs[l.fracMaxNum[0]] || needs[l.fracMaxNum[1]] || needs[l.fracMaxSum[0]] || needs[l.fracMaxSum[1]] ||
		needs[l.sigClipNum] || needs[l.sigClipMedian] || needs[l.sigClipMean] || needs[l.sigClipStd]
}

// Returns true if any of the upper limit slots is needed
func (l *layout) needsUpperLimit(needs []bool) bool {
	return needs[l.upperB] || needs[l.upperS] || needs[l.upperQ] || needs[l.upperSkew]
}

// Returns true if any of the projected slice vectors or projected counts is needed
func (l *layout) needsProjection(needs []bool) bool {
	f := l.firstVec
	return needs[l.numXY] || needs[l.numAllXY] ||
		needs[f+vecNumProj] || needs[f+vecSumProj] || needs[f+vecSumProjVar] ||
		needs[f+vecNumOther] || needs[f+vecSumOther] || needs[f+vecSumOtherVar]
}

// Returns true if any of the per-slice vectors is needed
func (l *layout) needsVectors(needs []bool) bool {
	for s := 0; s < numVecSlots; s++ {
		if needs[l.firstVec+s] {
			return true
		}
	}
	return false
}

// Accumulator rows of one table, with per-slice vectors kept separately
type rows struct {
	n      int         // Number of rows
	width  int         // Slots per row
	nz     int         // Slice vector length, 0 for 2D data
	data   []float64   // n*width slots, zero initialized
	vecs   [][]float64 // per vector slot n*nz values, or nil if not needed
	layout *layout
}

func newRows(n int, l *layout, needs []bool, nz int) *rows {
	r := &rows{n: n, width: l.numCols, nz: nz, data: make([]float64, n*l.numCols), layout: l,
		vecs: make([][]float64, numVecSlots)}
	if nz > 0 {
		for s := 0; s < numVecSlots; s++ {
			if needs[l.firstVec+s] {
				r.vecs[s] = make([]float64, n*nz)
			}
		}
	}
	return r
}

// Returns the slots of one row
func (r *rows) row(i int) []float64 {
	return r.data[i*r.width : (i+1)*r.width]
}

// Returns one per-slice vector of one row, or nil if not allocated
func (r *rows) vec(slot, i int) []float64 {
	v := r.vecs[slot]
	if v == nil {
		return nil
	}
	return v[i*r.nz : (i+1)*r.nz]
}
