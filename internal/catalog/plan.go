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
	"fmt"
	"math"
	"sort"
	"strings"
)

// A requested column and the arrays allocated for it
type plannedColumn struct {
	request *ColumnDef // Entry as requested
	def     *ColumnDef // Entry after alias binding
	obj     *Column    // Object side array, or nil
	clump   *Column    // Clump side array, or nil
}

// The compiled form of a column request: accepted columns, allocated outputs and the
// accumulator slots the reducer has to maintain. Immutable once built
type Plan struct {
	in         *Input
	opts       *Options
	pre        *prescan
	ndim       int
	nz         int // Slice axis length of 3D inputs, 0 for 2D
	columns    []*plannedColumn
	objNeeds   []bool
	clumpNeeds []bool
	objects    *Table
	clumps     *Table // nil without a clump map
	pixArea    float64
	warnings   []string

	objSort, clumpSort     bool // Order statistics needed
	objUpper, clumpUpper   bool // Upper limit sampling needed
	objProj, clumpProj     bool // Projected occupancy needed
	objVec, clumpVec       bool // Slice vectors needed
	anyClumpRows, anyRiver bool
}

// Compiles the requested columns against the inputs. Configuration and input shape
// problems are reported here, before any measurement
func NewPlan(requests []string, in *Input, opts *Options, c *Context) (*Plan, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, configErrorf("", "no columns requested")
	}
	pre, err := newPrescan(in)
	if err != nil {
		return nil, err
	}

	p := &Plan{in: in, opts: opts, pre: pre, ndim: len(in.Naxisn), pixArea: math.NaN(),
		objNeeds: make([]bool, OColNumCols), clumpNeeds: make([]bool, CColNumCols)}
	if p.ndim == 3 {
		p.nz = in.Naxisn[2]
	}
	if in.WCS != nil {
		p.pixArea = math.Abs(in.WCS.PixelScale(0)*in.WCS.PixelScale(1)) * 3600 * 3600
	}

	var clumpOnly []string
	for _, req := range requests {
		def, err := p.accept(req)
		if err != nil {
			return nil, err
		}
		pc := &plannedColumn{request: def, def: def}
		if def.Flags&FlagAlias != 0 {
			if pc.def, err = p.bindAlias(def); err != nil {
				return nil, err
			}
		}
		hasObj := def.ObjType != TypeNone
		hasClump := def.ClumpType != TypeNone && in.Clumps != nil
		if !hasObj && !hasClump {
			clumpOnly = append(clumpOnly, def.Option)
			continue
		}
		if hasObj {
			for _, s := range pc.def.ObjNeeds {
				p.objNeeds[s] = true
			}
			pc.obj = &Column{} // allocated after the budget check
		}
		if hasClump {
			for _, s := range pc.def.ClumpNeeds {
				p.clumpNeeds[s] = true
			}
			pc.clump = &Column{}
		}
		p.columns = append(p.columns, pc)
	}
	if len(clumpOnly) > 0 && !opts.NoClumpWarnings {
		p.warnings = append(p.warnings, fmt.Sprintf("no clump labels given, ignoring clump-only columns: %s",
			strings.Join(clumpOnly, ", ")))
	}
	if len(p.columns) == 0 {
		return nil, configErrorf("", "none of the requested columns apply to the inputs")
	}

	p.objSort, p.clumpSort = objLayout.needsSort(p.objNeeds), clumpLayout.needsSort(p.clumpNeeds)
	p.objUpper, p.clumpUpper = objLayout.needsUpperLimit(p.objNeeds), clumpLayout.needsUpperLimit(p.clumpNeeds)
	if p.ndim == 3 {
		p.objProj, p.clumpProj = objLayout.needsProjection(p.objNeeds), clumpLayout.needsProjection(p.clumpNeeds)
		p.objVec, p.clumpVec = objLayout.needsVectors(p.objNeeds), clumpLayout.needsVectors(p.clumpNeeds)
	}
	for s := range p.clumpNeeds {
		if p.clumpNeeds[s] {
			p.anyClumpRows = true
		}
	}
	p.anyRiver = p.clumpNeeds[CColRivNum] || p.clumpNeeds[CColRivSum] || p.clumpNeeds[CColRivSumVar]

	if id := opts.UpperLimit.CheckID; id > 0 {
		if !p.objUpper {
			p.warnings = append(p.warnings, fmt.Sprintf("upper limit check requested for object %d, but no upper limit column", id))
		} else if id > pre.nobj {
			return nil, configErrorf("upperLimit.checkID", "object %d does not exist, largest label is %d", id, pre.nobj)
		}
	}

	threads := opts.Threads
	if c != nil && c.MaxThreads > 0 && threads > c.MaxThreads {
		threads = c.MaxThreads
	}
	if c != nil && c.BudgetMB > 0 {
		if err := p.checkBudget(threads, int64(c.BudgetMB)*1024*1024); err != nil {
			return nil, err
		}
	}
	p.allocate()
	return p, nil
}

// Looks up a request and applies the dimensionality, WCS, noise and parameter gates
func (p *Plan) accept(req string) (*ColumnDef, error) {
	def, ok := LookupColumn(req)
	if !ok {
		return nil, configErrorf(req, "unknown column")
	}
	switch {
	case def.Dim == Dim3D && p.ndim != 3:
		return nil, configErrorf(def.Option, "requires 3D input, got %dD", p.ndim)
	case def.Dim == Dim2D && p.ndim != 2:
		return nil, configErrorf(def.Option, "requires 2D input, got %dD", p.ndim)
	case def.NeedsWCS && p.in.WCS == nil:
		return nil, configErrorf(def.Option, "requires world coordinates, but the input has no WCS")
	case def.Flags&FlagNoise != 0 && p.in.Noise == nil:
		return nil, configErrorf(def.Option, "requires sky and sky standard deviation")
	}
	if def.Flags&FlagSigmaClip != 0 {
		if err := p.opts.SigmaClip.Validate(); err != nil {
			return nil, configErrorf(def.Option, "%s", err.Error())
		}
	}
	if def.Flags&FlagFracMax1 != 0 && len(p.opts.FracMax) < 1 {
		return nil, configErrorf(def.Option, "requires a first fraction of the maximum (fracMax)")
	}
	if def.Flags&FlagFracMax2 != 0 && len(p.opts.FracMax) < 2 {
		return nil, configErrorf(def.Option, "requires a second fraction of the maximum (fracMax)")
	}
	return def, nil
}

// Binds RA or DEC to the world coordinate column of the axis with that type
func (p *Plan) bindAlias(def *ColumnDef) (*ColumnDef, error) {
	for d := 0; d < p.in.WCS.NumAxes(); d++ {
		if p.in.WCS.CTypeShort(d) == def.Name {
			w, ok := LookupColumn(fmt.Sprintf("w%d", d+1))
			if !ok || (w.Dim == Dim3D && p.ndim != 3) {
				break
			}
			return w, nil
		}
	}
	types := make([]string, p.in.WCS.NumAxes())
	for d := range types {
		types[d] = p.in.WCS.CTypeShort(d)
	}
	return nil, configErrorf(def.Option, "no WCS axis of type %s among %v", def.Name, types)
}

func typeSize(t DataType) int64 {
	switch t {
	case TypeInt32, TypeFloat32:
		return 4
	case TypeFloat64:
		return 8
	}
	return 16
}

// Estimates the planned allocations and compares them with the budget
func (p *Plan) checkBudget(threads int, budget int64) error {
	nobj, ncl := int64(p.pre.nobj), int64(p.pre.nclumps)
	nz := int64(p.nz)
	parts := map[string]int64{
		"object accumulators": nobj * OColNumCols * 8,
		"clump accumulators":  ncl * CColNumCols * 8,
	}
	for s := 0; s < numVecSlots; s++ {
		if p.objNeeds[OColNumInSlice+s] {
			parts["slice vectors"] += nobj * nz * 8
		}
		if p.clumpNeeds[CColNumInSlice+s] {
			parts["slice vectors"] += ncl * nz * 8
		}
	}
	for _, pc := range p.columns {
		vec := int64(1)
		if pc.def.Vector {
			vec = nz
		}
		if pc.obj != nil {
			parts["output columns"] += nobj * vec * typeSize(pc.def.ObjType)
		}
		if pc.clump != nil {
			parts["output columns"] += ncl * vec * typeSize(pc.def.ClumpType)
		}
	}
	scratch := int64(p.pre.maxPix) * 8 // sort buffer
	if p.objUpper || p.clumpUpper {
		scratch += int64(p.pre.maxPix)*8 + int64(p.opts.UpperLimit.NTries)*8
	}
	parts["per-thread scratch"] = scratch * int64(threads)

	total, largest, largestBytes := int64(0), "", int64(-1)
	names := make([]string, 0, len(parts))
	for name := range parts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		total += parts[name]
		if parts[name] > largestBytes {
			largest, largestBytes = name, parts[name]
		}
	}
	if total > budget {
		return &AllocationError{What: largest, Bytes: total, Available: budget}
	}
	return nil
}

// Allocates the output tables
func (p *Plan) allocate() {
	p.objects = &Table{Name: "OBJECTS", Rows: p.pre.nobj}
	if p.in.Clumps != nil {
		p.clumps = &Table{Name: "CLUMPS", Rows: p.pre.nclumps}
	}
	for _, pc := range p.columns {
		vec := 0
		if pc.def.Vector {
			vec = p.nz
		}
		name := pc.request.Name
		unit := p.unit(pc.def)
		if pc.obj != nil {
			pc.obj = newColumn(pc.def.Code, name, unit, pc.request.Doc, pc.def.ObjType, pc.def.Format,
				pc.def.Width, pc.def.Precision, p.pre.nobj, vec)
			p.objects.Columns = append(p.objects.Columns, pc.obj)
		}
		if pc.clump != nil {
			pc.clump = newColumn(pc.def.Code, name, unit, pc.request.Doc, pc.def.ClumpType, pc.def.Format,
				pc.def.Width, pc.def.Precision, p.pre.nclumps, vec)
			p.clumps.Columns = append(p.clumps.Columns, pc.clump)
		}
	}
	p.objects.Keywords = p.keywords()
	if p.clumps != nil {
		p.clumps.Keywords = p.keywords()
	}
}

// Resolves unit placeholders
func (p *Plan) unit(def *ColumnDef) string {
	switch def.Unit {
	case unitValue:
		return p.in.ValueUnit
	case "$wcs":
		return p.in.WCS.AxisUnit(def.wcsAxis)
	}
	return def.Unit
}

// Metadata keywords attached to the output tables
func (p *Plan) keywords() []Keyword {
	o := p.opts
	kw := []Keyword{
		{Key: "ZEROPNT", Value: o.Zeropoint, Comment: "Zero point for magnitudes"},
		{Key: "CPSCORR", Value: o.CPSCorr, Comment: "Counts per second correction"},
	}
	if p.in.Noise != nil {
		kw[1].Value = p.in.Noise.CorrelationCorrection()
	}
	if !math.IsNaN(p.pixArea) {
		kw = append(kw, Keyword{Key: "PIXAREA", Value: p.pixArea, Comment: "Pixel area in arcsec^2"})
	}
	kw = append(kw,
		Keyword{Key: "SCLIPMUL", Value: o.SigmaClip.Multiple, Comment: "Sigma clipping multiple"},
		Keyword{Key: "SCLIPPAR", Value: o.SigmaClip.Param, Comment: "Sigma clipping tolerance or iterations"},
	)
	if p.objUpper || p.clumpUpper {
		u := &o.UpperLimit
		kw = append(kw,
			Keyword{Key: "UPNUM", Value: u.NTries, Comment: "Random placements per label"},
			Keyword{Key: "UPNSIGMA", Value: u.SigmaMultiple, Comment: "Upper limit sigma multiple"},
			Keyword{Key: "UPSEED", Value: int(u.Seed), Comment: "Upper limit random seed"},
			Keyword{Key: "UPSCMUL", Value: u.SigmaClip.Multiple, Comment: "Upper limit clipping multiple"},
			Keyword{Key: "UPSCPAR", Value: u.SigmaClip.Param, Comment: "Upper limit clipping parameter"},
		)
	}
	for k, f := range o.FracMax {
		kw = append(kw, Keyword{Key: fmt.Sprintf("FRACMAX%d", k+1), Value: f, Comment: "Fraction of maximum"})
	}
	return kw
}

// Returns a copy of the object accumulator slots the reducer maintains
func (p *Plan) ObjectNeeds() []bool {
	res := make([]bool, len(p.objNeeds))
	copy(res, p.objNeeds)
	return res
}

// Returns a copy of the clump accumulator slots the reducer maintains
func (p *Plan) ClumpNeeds() []bool {
	res := make([]bool, len(p.clumpNeeds))
	copy(res, p.clumpNeeds)
	return res
}

func (p *Plan) NumObjects() int    { return p.pre.nobj }
func (p *Plan) NumClumps() int     { return p.pre.nclumps }
func (p *Plan) Warnings() []string { return p.warnings }
func (p *Plan) Objects() *Table    { return p.objects }
func (p *Plan) Clumps() *Table     { return p.clumps }

// Returns the registry entry a request was bound to, e.g. "ra" to "w1"
func (p *Plan) Bound(request string) (*ColumnDef, bool) {
	for _, pc := range p.columns {
		if strings.EqualFold(pc.request.Option, request) {
			return pc.def, true
		}
	}
	return nil, false
}
