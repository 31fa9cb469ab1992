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

package main

import (
	"flag"
	"testing"

	"github.com/DeadSpheroid/gnuastro-sub000/internal/catalog"
)

func TestSplitList(t *testing.T) {
	got := splitList(" objid, x,,y ,")
	want := []string{"objid", "x", "y"}
	if len(got) != len(want) {
		t.Fatalf("splitList got %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitList[%d] got %q; want %q", i, got[i], want[i])
		}
	}
}

func TestOptionsFromFlags(t *testing.T) {
	for name, value := range map[string]string{"zeropoint": "22.5", "schedule": "dynamic", "fracmax": "0.5,0.25", "upnum": "40"} {
		if err := flag.Set(name, value); err != nil {
			t.Fatalf("setting %s: %s", name, err.Error())
		}
	}
	opts, err := options()
	if err != nil {
		t.Fatalf("options: %s", err.Error())
	}
	if opts.Zeropoint != 22.5 {
		t.Errorf("zeropoint got %g; want 22.5", opts.Zeropoint)
	}
	if opts.Schedule != catalog.ScheduleDynamic {
		t.Errorf("schedule got %v; want %v", opts.Schedule, catalog.ScheduleDynamic)
	}
	if len(opts.FracMax) != 2 || opts.FracMax[0] != 0.5 || opts.FracMax[1] != 0.25 {
		t.Errorf("fracmax got %v; want [0.5 0.25]", opts.FracMax)
	}
	if opts.UpperLimit.NTries != 40 {
		t.Errorf("upnum got %d; want 40", opts.UpperLimit.NTries)
	}
	if opts.UpperLimit.FailureBudget != 400 {
		t.Errorf("failure budget got %d; want 400", opts.UpperLimit.FailureBudget)
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("validate: %s", err.Error())
	}

	if err := flag.Set("fracmax", "half"); err != nil {
		t.Fatal(err)
	}
	if _, err := options(); err == nil {
		t.Errorf("expected an error for an unparsable fraction")
	}
	flag.Set("fracmax", "")
}

func TestInputFiles(t *testing.T) {
	f := inputFiles([]string{"img.fits"})
	if f.Values != "img.fits" {
		t.Errorf("values got %q; want img.fits", f.Values)
	}
	if f.ObjectsHDU != 1 || f.ClumpsHDU != 2 {
		t.Errorf("label HDUs got %d, %d; want 1, 2", f.ObjectsHDU, f.ClumpsHDU)
	}
}
