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
	"io/ioutil"
	"strings"
	"testing"

	"github.com/DeadSpheroid/gnuastro-sub000/internal/noise"
)

// A cube with one object, one clump and every optional input present
func fullCube() *Input {
	in := newImage(4, 4, 3)
	in.Clumps = make([]int32, len(in.Values))
	for i := range in.Values {
		in.Values[i], in.Objects[i] = float32(1+i%5), 1
		if i%4 < 2 {
			in.Clumps[i] = 1
		}
	}
	in.Noise = noise.NewConstant(0.1, 1, noise.Params{CPSCorr: 1})
	in.WCS = &fakeWCS{types: []string{"RA", "DEC", "WAVE"}, scale: 1e-4}
	return in
}

func needsMatch(got []bool, want []int) bool {
	set := make([]bool, len(got))
	for _, s := range want {
		set[s] = true
	}
	for i := range got {
		if got[i] != set[i] {
			return false
		}
	}
	return true
}

func TestPlannerNeedsPerColumn(t *testing.T) {
	in := fullCube()
	opts := quietOptions()
	opts.FracMax = []float64{0.5, 0.25}
	for _, def := range Columns() {
		p, err := NewPlan([]string{def.Option}, in, opts, nil)
		if err != nil {
			t.Errorf("%s: unexpected error %s", def.Option, err)
			continue
		}
		bound, ok := p.Bound(def.Option)
		if !ok {
			t.Errorf("%s: not bound", def.Option)
			continue
		}
		var objWant, clumpWant []int
		if def.ObjType != TypeNone {
			objWant = bound.ObjNeeds
		}
		if def.ClumpType != TypeNone {
			clumpWant = bound.ClumpNeeds
		}
		if !needsMatch(p.ObjectNeeds(), objWant) {
			t.Errorf("%s: object needs differ from declared %v", def.Option, objWant)
		}
		if !needsMatch(p.ClumpNeeds(), clumpWant) {
			t.Errorf("%s: clump needs differ from declared %v", def.Option, clumpWant)
		}
	}
}

func TestPlannerNeedsUnion(t *testing.T) {
	in := fullCube()
	p, err := NewPlan([]string{"sum", "x", "median", "rivernum"}, in, quietOptions(), nil)
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	var objWant, clumpWant []int
	for _, o := range []string{"sum", "x", "median", "rivernum"} {
		d, _ := LookupColumn(o)
		objWant = append(objWant, d.ObjNeeds...)
		clumpWant = append(clumpWant, d.ClumpNeeds...)
	}
	if !needsMatch(p.ObjectNeeds(), objWant) || !needsMatch(p.ClumpNeeds(), clumpWant) {
		t.Errorf("needs are not the union of the requested columns")
	}
}

func TestDeclaredNeeds(t *testing.T) {
	tests := []struct {
		option string
		obj    []int
		clump  []int
	}{
		{"area", []int{OColNum}, []int{CColNum}},
		{"clumpsgeoz", []int{OColCGZ, OColCNum}, nil},
		{"upperlimitskew", []int{OColUpperLimitSkew}, []int{CColUpperLimitSkew}},
		{"sum", []int{OColSum}, []int{CColNum, CColSum, CColRivNum, CColRivSum}},
		{"rivernum", nil, []int{CColRivNum}},
	}
	for _, test := range tests {
		d, ok := LookupColumn(test.option)
		if !ok {
			t.Fatalf("%s: not registered", test.option)
		}
		if !sameSlots(d.ObjNeeds, test.obj) || !sameSlots(d.ClumpNeeds, test.clump) {
			t.Errorf("%s: got objects %v clumps %v; want %v %v", test.option, d.ObjNeeds, d.ClumpNeeds, test.obj, test.clump)
		}
	}
}

func sameSlots(a, b []int) bool {
	seen := map[int]int{}
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		seen[s]--
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}

func TestRegistry(t *testing.T) {
	names := map[string]string{}
	for i, d := range Columns() {
		if d.Code != i {
			t.Errorf("%s: code %d at index %d", d.Option, d.Code, i)
		}
		if other, dup := names[d.Name]; dup {
			t.Errorf("display name %s used by %s and %s", d.Name, other, d.Option)
		}
		names[d.Name] = d.Option
		if d.ObjType == TypeNone && d.ClumpType == TypeNone {
			t.Errorf("%s: available on neither table", d.Option)
		}
		if d.value == nil && d.vector == nil && d.wcsCat == wcsNone && d.Flags&FlagAlias == 0 {
			t.Errorf("%s: no way to compute it", d.Option)
		}
	}
	if d, ok := LookupColumn("  UpperLimit "); !ok || d.Option != "upperlimit" {
		t.Errorf("case insensitive lookup failed")
	}
	if _, ok := LookupColumn("nosuchcolumn"); ok {
		t.Errorf("lookup of unknown column succeeded")
	}
}

func TestPlannerErrors(t *testing.T) {
	image := func() *Input {
		in := newImage(4, 4)
		in.Objects[5] = 1
		return in
	}
	clipped := quietOptions()
	clipped.SigmaClip.Multiple = -1

	tests := []struct {
		name   string
		in     *Input
		opts   *Options
		cols   []string
		config bool
		shape  bool
	}{
		{"unknown", image(), quietOptions(), []string{"area", "bogus"}, true, false},
		{"3D only", image(), quietOptions(), []string{"areaxy"}, true, false},
		{"no WCS", image(), quietOptions(), []string{"ra"}, true, false},
		{"no noise", image(), quietOptions(), []string{"sn"}, true, false},
		{"no fraction", image(), quietOptions(), []string{"fracmaxarea1"}, true, false},
		{"bad clipping", image(), clipped, []string{"sigclipmean"}, true, false},
		{"nothing", image(), quietOptions(), nil, true, false},
		{"shape", &Input{Naxisn: []int{4, 4}, Values: make([]float32, 16), Objects: make([]int32, 15)},
			quietOptions(), []string{"area"}, false, true},
		{"negative", &Input{Naxisn: []int{2, 2}, Values: make([]float32, 4), Objects: []int32{0, -1, 0, 0}},
			quietOptions(), []string{"area"}, false, true},
		{"orphan clump", &Input{Naxisn: []int{2, 2}, Values: make([]float32, 4), Objects: []int32{1, 0, 0, 0},
			Clumps: []int32{1, 1, 0, 0}}, quietOptions(), []string{"area"}, false, true},
	}
	for _, test := range tests {
		_, err := NewPlan(test.cols, test.in, test.opts, nil)
		if err == nil {
			t.Errorf("%s: no error", test.name)
			continue
		}
		if IsConfiguration(err) != test.config || IsInputShape(err) != test.shape {
			t.Errorf("%s: got error of wrong kind %s", test.name, err)
		}
	}

	// clipping parameters only matter for columns that clip
	if _, err := NewPlan([]string{"area"}, image(), clipped, nil); err != nil {
		t.Errorf("unexpected error %s", err)
	}
}

func TestPlannerBudget(t *testing.T) {
	in := newImage(200, 200)
	for i := range in.Objects {
		in.Objects[i] = int32(i + 1)
	}
	c := &Context{Log: ioutil.Discard, BudgetMB: 1}
	_, err := NewPlan([]string{"area", "x", "y"}, in, quietOptions(), c)
	if !IsAllocation(err) {
		t.Fatalf("got %v; want allocation error", err)
	}
	c.BudgetMB = 0
	if _, err := NewPlan([]string{"area"}, in, quietOptions(), c); err != nil {
		t.Errorf("unexpected error %s without budget", err)
	}
}

func TestClumpOnlyWarning(t *testing.T) {
	in := newImage(3, 3)
	in.Objects[4] = 1
	p, err := NewPlan([]string{"area", "rivernum"}, in, quietOptions(), nil)
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	if len(p.Warnings()) != 1 || !strings.Contains(p.Warnings()[0], "rivernum") {
		t.Errorf("warnings got %v; want one on rivernum", p.Warnings())
	}
	if p.Clumps() != nil || p.Objects().Column("RIVER_NUM") != nil {
		t.Errorf("clump-only column was allocated")
	}

	opts := quietOptions()
	opts.NoClumpWarnings = true
	if p, _ = NewPlan([]string{"area", "rivernum"}, in, opts, nil); len(p.Warnings()) != 0 {
		t.Errorf("warnings got %v; want none", p.Warnings())
	}
	if _, err = NewPlan([]string{"rivernum"}, in, quietOptions(), nil); !IsConfiguration(err) {
		t.Errorf("got %v; want configuration error on empty table", err)
	}
}

func TestTableKeywords(t *testing.T) {
	in := fullCube()
	opts := quietOptions()
	opts.Zeropoint = 22.5
	opts.FracMax = []float64{0.5}
	p, err := NewPlan([]string{"upperlimit", "fracmaxarea1"}, in, opts, nil)
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	keys := map[string]interface{}{}
	for _, k := range p.Objects().Keywords {
		keys[k.Key] = k.Value
	}
	for _, k := range []string{"ZEROPNT", "UPNUM", "UPNSIGMA", "UPSEED", "FRACMAX1", "PIXAREA"} {
		if _, ok := keys[k]; !ok {
			t.Errorf("missing keyword %s in %v", k, keys)
		}
	}
	if p.NumObjects() != 1 || p.NumClumps() != 1 {
		t.Errorf("labels got %d objects %d clumps; want 1 1", p.NumObjects(), p.NumClumps())
	}
}

func TestRequirements(t *testing.T) {
	tests := map[string][]string{
		"area":          nil,
		"ra":            {"wcs"},
		"sn":            {"sky/std"},
		"fracmaxsum2":   {"fracMax[1]"},
		"upperlimitmag": {"upperLimit"},
		"rivernum":      {"clumps"},
	}
	for option, want := range tests {
		d, _ := LookupColumn(option)
		got := d.Requirements()
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("%s got %v; want %v", option, got, want)
		}
	}
}
