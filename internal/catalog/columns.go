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
	"sort"
	"strings"
)

// Dimensionality a column requires of the input
type DimClass int

const (
	DimAny DimClass = iota
	Dim2D
	Dim3D
)

func (d DimClass) String() string {
	switch d {
	case Dim2D:
		return "2D"
	case Dim3D:
		return "3D"
	}
	return "any"
}

// Extra requirements of a column
type Flags uint

const (
	FlagSigmaClip  Flags = 1 << iota // Needs the sigma clipping parameters
	FlagFracMax1                     // Needs the first fraction of the maximum
	FlagFracMax2                     // Needs the second fraction of the maximum
	FlagUpperLimit                   // Runs the upper limit sampler
	FlagNoise                        // Needs a noise model
	FlagAlias                        // Bound to another column by the planner
)

// Centroid pools converted to world coordinates in one batch each
type wcsCategory int

const (
	wcsNone wcsCategory = iota
	wcsWeighted
	wcsGeometric
	wcsClumpsWeighted  // Weighted centroid of the clump pixels in each object
	wcsClumpsGeometric // Geometric centroid of the clump pixels in each object
	numWCSCategories
)

// Unit placeholder replaced by the unit of the pixel values
const unitValue = "$value"

// Computes one derived value from an accumulator row
type valueFunc func(f *finalizer, s *side, r []float64, i int) float64

// Computes one vector value of row i into out
type vectorFunc func(f *finalizer, s *side, i int, out []float64)

// A column registry entry
type ColumnDef struct {
	Code       int
	Option     string // Lower case request name
	Name       string // Display name
	Unit       string
	Doc        string
	ObjType    DataType // TypeNone if unavailable on objects
	ClumpType  DataType // TypeNone if unavailable on clumps
	Format     Format
	Width      int
	Precision  int
	ObjNeeds   []int // Object accumulator slots
	ClumpNeeds []int // Clump accumulator slots
	NeedsWCS   bool
	Dim        DimClass
	Flags      Flags
	Vector     bool

	needs      func(l *layout) []int // Slots of either enumeration
	objExtra   []int                 // Object-only slots
	clumpExtra []int                 // Clump-only slots
	wcsCat     wcsCategory
	wcsAxis    int
	value      valueFunc
	vector     vectorFunc
}

var (
	registry []*ColumnDef
	byOption map[string]*ColumnDef
)

func init() {
	registry = columnDefs()
	byOption = make(map[string]*ColumnDef, len(registry))
	for i, d := range registry {
		d.Code = i
		if d.ObjType != TypeNone {
			d.ObjNeeds = slotSet(d.needs, &objLayout, d.objExtra)
		}
		if d.ClumpType != TypeNone {
			d.ClumpNeeds = slotSet(d.needs, &clumpLayout, d.clumpExtra)
		}
		if _, dup := byOption[d.Option]; dup {
			panic("duplicate column " + d.Option)
		}
		byOption[d.Option] = d
	}
}

// Evaluates a needs declaration into a sorted set of slots
func slotSet(needs func(l *layout) []int, l *layout, extra []int) []int {
	seen := map[int]bool{}
	if needs != nil {
		for _, s := range needs(l) {
			seen[s] = true
		}
	}
	for _, s := range extra {
		seen[s] = true
	}
	res := make([]int, 0, len(seen))
	for s := range seen {
		res = append(res, s)
	}
	sort.Ints(res)
	return res
}

// Returns all registry entries in registry order
func Columns() []*ColumnDef {
	res := make([]*ColumnDef, len(registry))
	copy(res, registry)
	return res
}

// Looks up a column by its request name, case-insensitive
func LookupColumn(option string) (*ColumnDef, bool) {
	d, ok := byOption[strings.ToLower(strings.TrimSpace(option))]
	return d, ok
}

// Slot declarations shared by several columns

func needWeighted(l *layout) []int {
	return []int{l.v[0], l.v[1], l.v[2], l.sumWht, l.g[0], l.g[1], l.g[2], l.num}
}

func needGeometric(l *layout) []int {
	return []int{l.g[0], l.g[1], l.g[2], l.num}
}

func needBrightness(l *layout) []int {
	if l == &clumpLayout {
		return []int{CColSum, CColNum, CColRivNum, CColRivSum}
	}
	return []int{OColSum}
}

func needRiverVar(l *layout) []int {
	if l == &clumpLayout {
		return []int{CColNum, CColRivNum, CColRivSumVar}
	}
	return nil
}

func needSN(l *layout) []int {
	return append(append(needBrightness(l), l.sumPixVar), needRiverVar(l)...)
}

func needMoments(l *layout) []int {
	return []int{l.v[0], l.v[1], l.vxx, l.vyy, l.vxy, l.sumWht}
}

func needGeoMoments(l *layout) []int {
	return []int{l.g[0], l.g[1], l.gxx, l.gyy, l.gxy, l.num}
}

func slot(pick func(l *layout) int) func(l *layout) []int {
	return func(l *layout) []int { return []int{pick(l)} }
}

func get(pick func(l *layout) int) valueFunc {
	return func(f *finalizer, s *side, r []float64, i int) float64 { return r[pick(s.l)] }
}

func noNeeds(l *layout) []int { return nil }

// Column definitions
func columnDefs() []*ColumnDef {
	defs := []*ColumnDef{
		{Option: "objid", Name: "OBJ_ID", Unit: "counter", Doc: "Object identifier.",
			ObjType: TypeInt32, Format: FormatInt, Width: 6, needs: noNeeds,
			value: func(f *finalizer, s *side, r []float64, i int) float64 { return float64(i + 1) }},
		{Option: "hostobjid", Name: "HOST_OBJ_ID", Unit: "counter", Doc: "Object identifier hosting this clump.",
			ClumpType: TypeInt32, Format: FormatInt, Width: 6, needs: noNeeds,
			value: func(f *finalizer, s *side, r []float64, i int) float64 { return float64(f.pre.hostObj[i]) }},
		{Option: "idinhostobj", Name: "ID_IN_HOST_OBJ", Unit: "counter", Doc: "ID of clump in its host object.",
			ClumpType: TypeInt32, Format: FormatInt, Width: 6, needs: noNeeds,
			value: func(f *finalizer, s *side, r []float64, i int) float64 { return float64(f.pre.idInHost[i]) }},
		{Option: "numclumps", Name: "NUM_CLUMPS", Unit: "counter", Doc: "Number of clumps in this object.",
			ObjType: TypeInt32, Format: FormatInt, Width: 5, needs: noNeeds,
			value: func(f *finalizer, s *side, r []float64, i int) float64 { return float64(f.pre.numClumps[i]) }},

		{Option: "area", Name: "AREA", Unit: "counter", Doc: "Number of non-blank pixels.",
			ObjType: TypeInt32, ClumpType: TypeInt32, Format: FormatInt, Width: 6,
			needs: slot(func(l *layout) int { return l.num }), value: get(func(l *layout) int { return l.num })},
		{Option: "areaxy", Name: "AREA_XY", Unit: "counter", Doc: "Projected area in first two dimensions.",
			ObjType: TypeInt32, ClumpType: TypeInt32, Format: FormatInt, Width: 6, Dim: Dim3D,
			needs: slot(func(l *layout) int { return l.numXY }), value: get(func(l *layout) int { return l.numXY })},
		{Option: "clumpsarea", Name: "AREA_CLUMPS", Unit: "counter", Doc: "Non-blank area covered by clumps.",
			ObjType: TypeInt32, Format: FormatInt, Width: 6, needs: noNeeds, objExtra: []int{OColCNum},
			value: func(f *finalizer, s *side, r []float64, i int) float64 { return r[OColCNum] }},
		{Option: "weightarea", Name: "AREA_WEIGHT", Unit: "counter", Doc: "Area used for value weighted positions.",
			ObjType: TypeInt32, ClumpType: TypeInt32, Format: FormatInt, Width: 6,
			needs: slot(func(l *layout) int { return l.numWht }), value: get(func(l *layout) int { return l.numWht })},
		{Option: "geoarea", Name: "AREA_FULL", Unit: "counter", Doc: "Number of pixels, blank or not.",
			ObjType: TypeInt32, ClumpType: TypeInt32, Format: FormatInt, Width: 6,
			needs: slot(func(l *layout) int { return l.numAll }), value: get(func(l *layout) int { return l.numAll })},
		{Option: "geoareaxy", Name: "AREA_FULL_XY", Unit: "counter", Doc: "Projected full area in first two dimensions.",
			ObjType: TypeInt32, ClumpType: TypeInt32, Format: FormatInt, Width: 6, Dim: Dim3D,
			needs: slot(func(l *layout) int { return l.numAllXY }), value: get(func(l *layout) int { return l.numAllXY })},
		{Option: "areaarcsec2", Name: "AREA_ARCSEC2", Unit: "arcsec^2", Doc: "Non-blank area in arcseconds squared.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatFixed, Width: 10, Precision: 4, NeedsWCS: true,
			needs: slot(func(l *layout) int { return l.num }),
			value: func(f *finalizer, s *side, r []float64, i int) float64 { return r[s.l.num] * f.pixArea }},
		{Option: "surfacebrightness", Name: "SURFACE_BRIGHTNESS", Unit: "mag/arcsec^2", Doc: "Surface brightness over the area.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatFixed, Width: 8, Precision: 3, NeedsWCS: true,
			needs: func(l *layout) []int { return append(needBrightness(l), l.num) },
			value: func(f *finalizer, s *side, r []float64, i int) float64 {
				return f.surfaceBrightness(s.brightness(r), r[s.l.num])
			}},
	}

	// Positions
	axes := []string{"x", "y", "z"}
	for d := 0; d < 3; d++ {
		d := d
		dim := DimAny
		if d == 2 {
			dim = Dim3D
		}
		up := strings.ToUpper(axes[d])
		defs = append(defs,
			&ColumnDef{Option: axes[d], Name: up, Unit: "position", Doc: "Flux weighted center (" + up + " axis).",
				ObjType: TypeFloat64, ClumpType: TypeFloat64, Format: FormatFixed, Width: 10, Precision: 3, Dim: dim,
				needs: needWeighted,
				value: func(f *finalizer, s *side, r []float64, i int) float64 { return s.weighted(r, d) }},
			&ColumnDef{Option: "geo" + axes[d], Name: "GEO_" + up, Unit: "position", Doc: "Geometric center (" + up + " axis).",
				ObjType: TypeFloat64, ClumpType: TypeFloat64, Format: FormatFixed, Width: 10, Precision: 3, Dim: dim,
				needs: needGeometric,
				value: func(f *finalizer, s *side, r []float64, i int) float64 { return s.geometric(r, d) }},
			&ColumnDef{Option: "clumps" + axes[d], Name: "CLUMPS_" + up, Unit: "position",
				Doc:     "Flux weighted center of all clumps (" + up + " axis).",
				ObjType: TypeFloat64, Format: FormatFixed, Width: 10, Precision: 3, Dim: dim, needs: noNeeds,
				objExtra: []int{OColCVX + d, OColCSumWht, OColCGX + d, OColCNum},
				value:    func(f *finalizer, s *side, r []float64, i int) float64 { return clumpsWeighted(r, d) }},
			&ColumnDef{Option: "clumpsgeo" + axes[d], Name: "CLUMPS_GEO_" + up, Unit: "position",
				Doc:     "Geometric center of all clumps (" + up + " axis).",
				ObjType: TypeFloat64, Format: FormatFixed, Width: 10, Precision: 3, Dim: dim, needs: noNeeds,
				objExtra: []int{OColCGX + d, OColCNum},
				value:    func(f *finalizer, s *side, r []float64, i int) float64 { return clumpsGeometric(r, d) }},
			&ColumnDef{Option: "minval" + axes[d], Name: "MIN_VAL_" + up, Unit: "position",
				Doc:     "Mean position of minimum valued pixels (" + up + " axis).",
				ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatFixed, Width: 10, Precision: 3, Dim: dim,
				needs: func(l *layout) []int { return []int{l.minV[d], l.minVNum} },
				value: func(f *finalizer, s *side, r []float64, i int) float64 {
					return ratio(r[s.l.minV[d]], r[s.l.minVNum]) + 1
				}},
			&ColumnDef{Option: "maxval" + axes[d], Name: "MAX_VAL_" + up, Unit: "position",
				Doc:     "Mean position of maximum valued pixels (" + up + " axis).",
				ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatFixed, Width: 10, Precision: 3, Dim: dim,
				needs: func(l *layout) []int { return []int{l.maxV[d], l.maxVNum} },
				value: func(f *finalizer, s *side, r []float64, i int) float64 {
					return ratio(r[s.l.maxV[d]], r[s.l.maxVNum]) + 1
				}},
			&ColumnDef{Option: "min" + axes[d], Name: "MIN_" + up, Unit: "position",
				Doc:     "Minimum " + up + " of the non-blank pixels.",
				ObjType: TypeInt32, ClumpType: TypeInt32, Format: FormatInt, Width: 6, Dim: dim,
				needs: func(l *layout) []int { return []int{l.minC[d]} },
				value: func(f *finalizer, s *side, r []float64, i int) float64 { return r[s.l.minC[d]] + 1 }},
			&ColumnDef{Option: "max" + axes[d], Name: "MAX_" + up, Unit: "position",
				Doc:     "Maximum " + up + " of the non-blank pixels.",
				ObjType: TypeInt32, ClumpType: TypeInt32, Format: FormatInt, Width: 6, Dim: dim,
				needs: func(l *layout) []int { return []int{l.maxC[d]} },
				value: func(f *finalizer, s *side, r []float64, i int) float64 { return r[s.l.maxC[d]] + 1 }},
		)
	}
	defs = append(defs,
		&ColumnDef{Option: "minvalnum", Name: "MIN_VAL_NUM", Unit: "counter", Doc: "Number of pixels with the minimum value.",
			ObjType: TypeInt32, ClumpType: TypeInt32, Format: FormatInt, Width: 5,
			needs: slot(func(l *layout) int { return l.minVNum }), value: get(func(l *layout) int { return l.minVNum })},
		&ColumnDef{Option: "maxvalnum", Name: "MAX_VAL_NUM", Unit: "counter", Doc: "Number of pixels with the maximum value.",
			ObjType: TypeInt32, ClumpType: TypeInt32, Format: FormatInt, Width: 5,
			needs: slot(func(l *layout) int { return l.maxVNum }), value: get(func(l *layout) int { return l.maxVNum })},
	)

	// World coordinates
	for d := 0; d < 3; d++ {
		dim := DimAny
		if d == 2 {
			dim = Dim3D
		}
		n := string(rune('1' + d))
		defs = append(defs,
			&ColumnDef{Option: "w" + n, Name: "W" + n, Unit: "$wcs", Doc: "Flux weighted center in WCS axis " + n + ".",
				ObjType: TypeFloat64, ClumpType: TypeFloat64, Format: FormatFixed, Width: 13, Precision: 7, Dim: dim,
				NeedsWCS: true, needs: needWeighted, wcsCat: wcsWeighted, wcsAxis: d},
			&ColumnDef{Option: "geow" + n, Name: "GEO_W" + n, Unit: "$wcs", Doc: "Geometric center in WCS axis " + n + ".",
				ObjType: TypeFloat64, ClumpType: TypeFloat64, Format: FormatFixed, Width: 13, Precision: 7, Dim: dim,
				NeedsWCS: true, needs: needGeometric, wcsCat: wcsGeometric, wcsAxis: d},
			&ColumnDef{Option: "clumpsw" + n, Name: "CLUMPS_W" + n, Unit: "$wcs",
				Doc:     "Flux weighted center of all clumps in WCS axis " + n + ".",
				ObjType: TypeFloat64, Format: FormatFixed, Width: 13, Precision: 7, Dim: dim, NeedsWCS: true,
				needs: noNeeds, objExtra: []int{OColCVX, OColCVY, OColCVZ, OColCSumWht, OColCGX, OColCGY, OColCGZ, OColCNum},
				wcsCat: wcsClumpsWeighted, wcsAxis: d},
			&ColumnDef{Option: "clumpsgeow" + n, Name: "CLUMPS_GEO_W" + n, Unit: "$wcs",
				Doc:     "Geometric center of all clumps in WCS axis " + n + ".",
				ObjType: TypeFloat64, Format: FormatFixed, Width: 13, Precision: 7, Dim: dim, NeedsWCS: true,
				needs: noNeeds, objExtra: []int{OColCGX, OColCGY, OColCGZ, OColCNum},
				wcsCat: wcsClumpsGeometric, wcsAxis: d},
		)
	}
	defs = append(defs,
		&ColumnDef{Option: "ra", Name: "RA", Unit: "deg", Doc: "Flux weighted right ascension.",
			ObjType: TypeFloat64, ClumpType: TypeFloat64, Format: FormatFixed, Width: 13, Precision: 7,
			NeedsWCS: true, Flags: FlagAlias, needs: noNeeds},
		&ColumnDef{Option: "dec", Name: "DEC", Unit: "deg", Doc: "Flux weighted declination.",
			ObjType: TypeFloat64, ClumpType: TypeFloat64, Format: FormatFixed, Width: 13, Precision: 7,
			NeedsWCS: true, Flags: FlagAlias, needs: noNeeds},
	)

	// Brightness
	defs = append(defs,
		&ColumnDef{Option: "sum", Name: "SUM", Unit: unitValue, Doc: "Sum of sky subtracted values, river subtracted for clumps.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatGeneral, Width: 10, Precision: 5,
			needs: needBrightness,
			value: func(f *finalizer, s *side, r []float64, i int) float64 { return s.brightness(r) }},
		&ColumnDef{Option: "sumerror", Name: "SUM_ERROR", Unit: unitValue, Doc: "Error in measuring sum.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatGeneral, Width: 10, Precision: 5, Flags: FlagNoise,
			needs: func(l *layout) []int { return append(needRiverVar(l), l.sumPixVar) },
			value: func(f *finalizer, s *side, r []float64, i int) float64 {
				return math.Sqrt(r[s.l.sumPixVar] + s.riverVar(r))
			}},
		&ColumnDef{Option: "clumpssum", Name: "SUM_CLUMPS", Unit: unitValue, Doc: "Sum of values over all clumps.",
			ObjType: TypeFloat32, Format: FormatGeneral, Width: 10, Precision: 5, needs: noNeeds, objExtra: []int{OColCSum},
			value: func(f *finalizer, s *side, r []float64, i int) float64 { return r[OColCSum] }},
		&ColumnDef{Option: "sumnoriver", Name: "SUM_NO_RIVER", Unit: unitValue, Doc: "Sum of values without river subtraction.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatGeneral, Width: 10, Precision: 5,
			needs: slot(func(l *layout) int { return l.sum }), value: get(func(l *layout) int { return l.sum })},
		&ColumnDef{Option: "mean", Name: "MEAN", Unit: unitValue, Doc: "Mean of values, river subtracted for clumps.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatGeneral, Width: 10, Precision: 5,
			needs: func(l *layout) []int { return append(needBrightness(l), l.num) },
			value: func(f *finalizer, s *side, r []float64, i int) float64 { return ratio(s.brightness(r), r[s.l.num]) }},
		&ColumnDef{Option: "std", Name: "STD", Unit: unitValue, Doc: "Standard deviation of values.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatGeneral, Width: 10, Precision: 5,
			needs: func(l *layout) []int { return []int{l.num, l.sum, l.sumP2} },
			value: func(f *finalizer, s *side, r []float64, i int) float64 {
				mean := ratio(r[s.l.sum], r[s.l.num])
				return math.Sqrt(math.Max(ratio(r[s.l.sumP2], r[s.l.num])-mean*mean, 0))
			}},
		&ColumnDef{Option: "median", Name: "MEDIAN", Unit: unitValue, Doc: "Median of values.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatGeneral, Width: 10, Precision: 5,
			needs: slot(func(l *layout) int { return l.median }), value: get(func(l *layout) int { return l.median })},
		&ColumnDef{Option: "maximum", Name: "MAXIMUM", Unit: unitValue, Doc: "Maximum value.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatGeneral, Width: 10, Precision: 5,
			needs: func(l *layout) []int { return []int{l.maximum, l.maxVNum} },
			value: func(f *finalizer, s *side, r []float64, i int) float64 {
				if r[s.l.maxVNum] == 0 {
					return math.NaN()
				}
				return r[s.l.maximum]
			}},
		&ColumnDef{Option: "magnitude", Name: "MAGNITUDE", Unit: "log", Doc: "Magnitude.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatFixed, Width: 8, Precision: 3,
			needs: needBrightness,
			value: func(f *finalizer, s *side, r []float64, i int) float64 { return f.magnitude(s.brightness(r)) }},
		&ColumnDef{Option: "magnitudeerror", Name: "MAGNITUDE_ERROR", Unit: "log", Doc: "Error in measuring magnitude.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatFixed, Width: 8, Precision: 3, Flags: FlagNoise,
			needs: needSN,
			value: func(f *finalizer, s *side, r []float64, i int) float64 { return magnitudeError(s.sn(r, f.cpscorr)) }},
		&ColumnDef{Option: "clumpsmagnitude", Name: "MAGNITUDE_CLUMPS", Unit: "log", Doc: "Magnitude of all clumps.",
			ObjType: TypeFloat32, Format: FormatFixed, Width: 8, Precision: 3, needs: noNeeds, objExtra: []int{OColCSum},
			value: func(f *finalizer, s *side, r []float64, i int) float64 { return f.magnitude(r[OColCSum]) }},
		&ColumnDef{Option: "riverave", Name: "RIVER_MEAN", Unit: unitValue, Doc: "Mean river value surrounding the clump.",
			ClumpType: TypeFloat32, Format: FormatGeneral, Width: 10, Precision: 5, needs: noNeeds,
			clumpExtra: []int{CColRivNum, CColRivSum},
			value:      func(f *finalizer, s *side, r []float64, i int) float64 { return ratio(r[CColRivSum], r[CColRivNum]) }},
		&ColumnDef{Option: "rivernum", Name: "RIVER_NUM", Unit: "counter", Doc: "Number of river pixels around the clump.",
			ClumpType: TypeInt32, Format: FormatInt, Width: 5, needs: noNeeds, clumpExtra: []int{CColRivNum},
			value: func(f *finalizer, s *side, r []float64, i int) float64 { return r[CColRivNum] }},
		&ColumnDef{Option: "sn", Name: "SN", Unit: "ratio", Doc: "Signal to noise ratio.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatGeneral, Width: 10, Precision: 5, Flags: FlagNoise,
			needs: needSN,
			value: func(f *finalizer, s *side, r []float64, i int) float64 { return s.sn(r, f.cpscorr) }},
		&ColumnDef{Option: "sky", Name: "SKY", Unit: unitValue, Doc: "Average input sky value.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatGeneral, Width: 10, Precision: 5, Flags: FlagNoise,
			needs: func(l *layout) []int { return []int{l.sumSky, l.numSky} },
			value: func(f *finalizer, s *side, r []float64, i int) float64 { return ratio(r[s.l.sumSky], r[s.l.numSky]) }},
		&ColumnDef{Option: "skystd", Name: "SKY_STD", Unit: unitValue, Doc: "Sky standard deviation.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatGeneral, Width: 10, Precision: 5, Flags: FlagNoise,
			needs: func(l *layout) []int { return []int{l.sumVar, l.numVar} },
			value: func(f *finalizer, s *side, r []float64, i int) float64 {
				return math.Sqrt(ratio(r[s.l.sumVar], r[s.l.numVar]))
			}},
	)

	// Sigma clipping
	defs = append(defs,
		&ColumnDef{Option: "sigclipnumber", Name: "SIGCLIP_NUMBER", Unit: "counter", Doc: "Number of pixels after sigma clipping.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatFixed, Width: 8, Precision: 0, Flags: FlagSigmaClip,
			needs: slot(func(l *layout) int { return l.sigClipNum }), value: get(func(l *layout) int { return l.sigClipNum })},
		&ColumnDef{Option: "sigclipmedian", Name: "SIGCLIP_MEDIAN", Unit: unitValue, Doc: "Median after sigma clipping.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatGeneral, Width: 10, Precision: 5, Flags: FlagSigmaClip,
			needs: slot(func(l *layout) int { return l.sigClipMedian }), value: get(func(l *layout) int { return l.sigClipMedian })},
		&ColumnDef{Option: "sigclipmean", Name: "SIGCLIP_MEAN", Unit: unitValue, Doc: "Mean after sigma clipping.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatGeneral, Width: 10, Precision: 5, Flags: FlagSigmaClip,
			needs: slot(func(l *layout) int { return l.sigClipMean }), value: get(func(l *layout) int { return l.sigClipMean })},
		&ColumnDef{Option: "sigclipstd", Name: "SIGCLIP_STD", Unit: unitValue, Doc: "Standard deviation after sigma clipping.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatGeneral, Width: 10, Precision: 5, Flags: FlagSigmaClip,
			needs: slot(func(l *layout) int { return l.sigClipStd }), value: get(func(l *layout) int { return l.sigClipStd })},
	)

	// Order statistic areas and radii
	defs = append(defs,
		&ColumnDef{Option: "halfsumarea", Name: "HALF_SUM_AREA", Unit: "counter", Doc: "Area containing half the sum.",
			ObjType: TypeInt32, ClumpType: TypeInt32, Format: FormatInt, Width: 6,
			needs: slot(func(l *layout) int { return l.halfSumNum }), value: get(func(l *layout) int { return l.halfSumNum })},
		&ColumnDef{Option: "halfmaxarea", Name: "HALF_MAX_AREA", Unit: "counter", Doc: "Area of pixels above half the maximum.",
			ObjType: TypeInt32, ClumpType: TypeInt32, Format: FormatInt, Width: 6,
			needs: slot(func(l *layout) int { return l.halfMaxNum }), value: get(func(l *layout) int { return l.halfMaxNum })},
		&ColumnDef{Option: "halfmaxsum", Name: "HALF_MAX_SUM", Unit: unitValue, Doc: "Sum of pixels above half the maximum.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatGeneral, Width: 10, Precision: 5,
			needs: slot(func(l *layout) int { return l.halfMaxSum }), value: get(func(l *layout) int { return l.halfMaxSum })},
		&ColumnDef{Option: "halfsumsb", Name: "HALF_SUM_SB", Unit: "mag/arcsec^2", Doc: "Surface brightness within the half sum area.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatFixed, Width: 8, Precision: 3, NeedsWCS: true,
			needs: func(l *layout) []int { return []int{l.sum, l.halfSumNum} },
			value: func(f *finalizer, s *side, r []float64, i int) float64 {
				return f.surfaceBrightness(r[s.l.sum]/2, r[s.l.halfSumNum])
			}},
		&ColumnDef{Option: "halfmaxsb", Name: "HALF_MAX_SB", Unit: "mag/arcsec^2", Doc: "Surface brightness within the half maximum area.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatFixed, Width: 8, Precision: 3, NeedsWCS: true,
			needs: func(l *layout) []int { return []int{l.halfMaxSum, l.halfMaxNum} },
			value: func(f *finalizer, s *side, r []float64, i int) float64 {
				return f.surfaceBrightness(r[s.l.halfMaxSum], r[s.l.halfMaxNum])
			}},
		&ColumnDef{Option: "halfsumradius", Name: "HALF_SUM_RADIUS", Unit: "pixel", Doc: "Radius of the half sum area, axis ratio corrected.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatFixed, Width: 8, Precision: 3,
			needs: func(l *layout) []int { return append(needMoments(l), l.halfSumNum) },
			value: func(f *finalizer, s *side, r []float64, i int) float64 {
				return s.radius(r, i, r[s.l.halfSumNum])
			}},
		&ColumnDef{Option: "fwhmobs", Name: "FWHM_OBS", Unit: "pixel", Doc: "Full width at half maximum, axis ratio corrected.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatFixed, Width: 8, Precision: 3,
			needs: func(l *layout) []int { return append(needMoments(l), l.halfMaxNum) },
			value: func(f *finalizer, s *side, r []float64, i int) float64 {
				return 2 * s.radius(r, i, r[s.l.halfMaxNum])
			}},
	)
	for k := 0; k < 2; k++ {
		k := k
		n := string(rune('1' + k))
		flag := FlagFracMax1
		if k == 1 {
			flag = FlagFracMax2
		}
		defs = append(defs,
			&ColumnDef{Option: "fracmaxarea" + n, Name: "FRAC_MAX" + n + "_AREA", Unit: "counter",
				Doc:     "Area of pixels above fraction " + n + " of the maximum.",
				ObjType: TypeInt32, ClumpType: TypeInt32, Format: FormatInt, Width: 6, Flags: flag,
				needs: slot(func(l *layout) int { return l.fracMaxNum[k] }), value: get(func(l *layout) int { return l.fracMaxNum[k] })},
			&ColumnDef{Option: "fracmaxsum" + n, Name: "FRAC_MAX" + n + "_SUM", Unit: unitValue,
				Doc:     "Sum of pixels above fraction " + n + " of the maximum.",
				ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatGeneral, Width: 10, Precision: 5, Flags: flag,
				needs: slot(func(l *layout) int { return l.fracMaxSum[k] }), value: get(func(l *layout) int { return l.fracMaxSum[k] })},
			&ColumnDef{Option: "fracmaxradius" + n, Name: "FRAC_MAX" + n + "_RADIUS", Unit: "pixel",
				Doc:     "Radius of the area above fraction " + n + " of the maximum.",
				ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatFixed, Width: 8, Precision: 3, Flags: flag,
				needs: func(l *layout) []int { return append(needMoments(l), l.fracMaxNum[k]) },
				value: func(f *finalizer, s *side, r []float64, i int) float64 {
					return s.radius(r, i, r[s.l.fracMaxNum[k]])
				}},
		)
	}

	// Ellipse parameters
	ellipse := []struct {
		option, name, unit, doc string
		pick                    func(e ellipseParams) float64
	}{
		{"semimajor", "SEMI_MAJOR", "pixel", "Flux weighted semi-major axis.", func(e ellipseParams) float64 { return e.major }},
		{"semiminor", "SEMI_MINOR", "pixel", "Flux weighted semi-minor axis.", func(e ellipseParams) float64 { return e.minor }},
		{"axisratio", "AXIS_RATIO", "ratio", "Flux weighted axis ratio.", func(e ellipseParams) float64 { return e.ratio }},
		{"positionangle", "POSITION_ANGLE", "deg", "Flux weighted position angle.", func(e ellipseParams) float64 { return e.angle }},
	}
	for _, e := range ellipse {
		pick := e.pick
		defs = append(defs, &ColumnDef{Option: e.option, Name: e.name, Unit: e.unit, Doc: e.doc,
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatFixed, Width: 10, Precision: 3,
			needs: needMoments,
			value: func(f *finalizer, s *side, r []float64, i int) float64 { return pick(s.ellipse(r, i, false)) }})
	}
	for _, e := range ellipse {
		pick := e.pick
		defs = append(defs, &ColumnDef{Option: "geo" + e.option, Name: "GEO_" + e.name, Unit: e.unit,
			Doc:     strings.Replace(e.doc, "Flux weighted", "Geometric", 1),
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatFixed, Width: 10, Precision: 3,
			needs: needGeoMoments,
			value: func(f *finalizer, s *side, r []float64, i int) float64 { return pick(s.ellipse(r, i, true)) }})
	}

	// Upper limits
	defs = append(defs,
		&ColumnDef{Option: "upperlimit", Name: "UPPERLIMIT", Unit: unitValue, Doc: "Upper limit value, random positioning.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatGeneral, Width: 10, Precision: 5, Flags: FlagUpperLimit,
			needs: slot(func(l *layout) int { return l.upperB }), value: get(func(l *layout) int { return l.upperB })},
		&ColumnDef{Option: "upperlimitmag", Name: "UPPERLIMIT_MAG", Unit: "log", Doc: "Upper limit magnitude, random positioning.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatFixed, Width: 8, Precision: 3, Flags: FlagUpperLimit,
			needs: slot(func(l *layout) int { return l.upperB }),
			value: func(f *finalizer, s *side, r []float64, i int) float64 { return f.magnitude(r[s.l.upperB]) }},
		&ColumnDef{Option: "upperlimitonesigma", Name: "UPPERLIMIT_ONE_SIGMA", Unit: unitValue,
			Doc:     "One sigma value of all random measurements.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatGeneral, Width: 10, Precision: 5, Flags: FlagUpperLimit,
			needs: slot(func(l *layout) int { return l.upperS }), value: get(func(l *layout) int { return l.upperS })},
		&ColumnDef{Option: "upperlimitsigma", Name: "UPPERLIMIT_SIGMA", Unit: "frac", Doc: "Place in random distribution (sigma multiple).",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatGeneral, Width: 10, Precision: 5, Flags: FlagUpperLimit,
			needs: func(l *layout) []int { return append(needBrightness(l), l.upperS) },
			value: func(f *finalizer, s *side, r []float64, i int) float64 { return ratio(s.brightness(r), r[s.l.upperS]) }},
		&ColumnDef{Option: "upperlimitquantile", Name: "UPPERLIMIT_QUANTILE", Unit: "quantile", Doc: "Quantile of the sum in random distribution.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatFixed, Width: 8, Precision: 4, Flags: FlagUpperLimit,
			needs: slot(func(l *layout) int { return l.upperQ }), value: get(func(l *layout) int { return l.upperQ })},
		&ColumnDef{Option: "upperlimitskew", Name: "UPPERLIMIT_SKEW", Unit: "frac", Doc: "(Mean-Median)/STD of random distribution.",
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatGeneral, Width: 10, Precision: 5, Flags: FlagUpperLimit,
			needs: slot(func(l *layout) int { return l.upperSkew }), value: get(func(l *layout) int { return l.upperSkew })},
	)

	// Slice vectors
	vectors := []struct {
		option, name, unit, doc string
		vec                     int
		sqrt, noise             bool
	}{
		{"area-in-slice", "AREA-IN-SLICE", "counter", "Number of pixels in each slice.", vecNumIn, false, false},
		{"sum-in-slice", "SUM-IN-SLICE", unitValue, "Sum of values in each slice.", vecSumIn, false, false},
		{"sum-err-in-slice", "SUM-ERR-IN-SLICE", unitValue, "Error in sum of values in each slice.", vecSumVarIn, true, true},
		{"area-proj-in-slice", "AREA-PROJ-IN-SLICE", "counter", "Number of projected pixels in each slice.", vecNumProj, false, false},
		{"sum-proj-in-slice", "SUM-PROJ-IN-SLICE", unitValue, "Sum of projected values in each slice.", vecSumProj, false, false},
		{"sum-proj-err-in-slice", "SUM-PROJ-ERR-IN-SLICE", unitValue, "Error in sum of projected values in each slice.", vecSumProjVar, true, true},
		{"area-other-in-slice", "AREA-OTHER-IN-SLICE", "counter", "Area of other labels in the projected area of each slice.", vecNumOther, false, false},
		{"sum-other-in-slice", "SUM-OTHER-IN-SLICE", unitValue, "Sum of other labels in the projected area of each slice.", vecSumOther, false, false},
		{"sum-other-err-in-slice", "SUM-OTHER-ERR-IN-SLICE", unitValue, "Error in sum of other labels in the projected area of each slice.", vecSumOtherVar, true, true},
	}
	for _, v := range vectors {
		vec, sq := v.vec, v.sqrt
		var flags Flags
		if v.noise {
			flags = FlagNoise
		}
		defs = append(defs, &ColumnDef{Option: v.option, Name: v.name, Unit: v.unit, Doc: v.doc,
			ObjType: TypeFloat32, ClumpType: TypeFloat32, Format: FormatGeneral, Width: 10, Precision: 5,
			Dim: Dim3D, Vector: true, Flags: flags,
			needs: func(l *layout) []int { return []int{l.firstVec + vec} },
			vector: func(f *finalizer, s *side, i int, out []float64) {
				copy(out, s.rows.vec(vec, i))
				if sq {
					for k := range out {
						out[k] = math.Sqrt(out[k])
					}
				}
			}})
	}
	return defs
}

// Names the inputs and options a column requires beyond the label maps
func (d *ColumnDef) Requirements() []string {
	var req []string
	if d.NeedsWCS || d.Flags&FlagAlias != 0 {
		req = append(req, "wcs")
	}
	if d.Flags&FlagNoise != 0 {
		req = append(req, "sky/std")
	}
	if d.Flags&FlagSigmaClip != 0 {
		req = append(req, "sigmaClip")
	}
	if d.Flags&FlagFracMax1 != 0 {
		req = append(req, "fracMax[0]")
	}
	if d.Flags&FlagFracMax2 != 0 {
		req = append(req, "fracMax[1]")
	}
	if d.Flags&FlagUpperLimit != 0 {
		req = append(req, "upperLimit")
	}
	if d.ObjType == TypeNone {
		req = append(req, "clumps")
	}
	return req
}
