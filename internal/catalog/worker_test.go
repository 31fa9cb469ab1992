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
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/DeadSpheroid/gnuastro-sub000/internal/noise"
)

// Plans the columns and runs the reducer, without finalizing
func measureRows(t *testing.T, in *Input, opts *Options, cols ...string) *measurement {
	t.Helper()
	p, err := NewPlan(cols, in, opts, nil)
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	m := newMeasurement(p)
	if err := m.measureAll(context.Background(), opts.Threads, opts.Schedule); err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	return m
}

func randomValues(in *Input, seed int64, lo, hi float64) {
	rng := rand.New(rand.NewSource(seed))
	for i := range in.Values {
		in.Values[i] = float32(lo + (hi-lo)*rng.Float64())
	}
}

var additiveSlots = []int{OColNum, OColNumAll, OColNumWht, OColSum, OColSumP2, OColSumWht, OColSumSky, OColSumVar,
	OColVX, OColVY, OColGX, OColGY, OColVXX, OColVYY, OColVXY, OColGXX, OColGYY, OColGXY}

var additiveColumns = []string{"std", "geoarea", "weightarea", "sky", "skystd", "x", "y", "semimajor", "geosemimajor"}

func TestAdditivity2D(t *testing.T) {
	union := newImage(6, 5)
	randomValues(union, 7, -1, 3)
	union.Values[8] = float32(math.NaN())
	union.Noise = noise.NewConstant(0.5, 2, noise.Params{CPSCorr: 1})
	split := &Input{Naxisn: union.Naxisn, Values: union.Values, Objects: make([]int32, 30), Noise: union.Noise}
	for i := range union.Objects {
		union.Objects[i] = 1
		split.Objects[i] = 1
		if i%6 >= 3 {
			split.Objects[i] = 2
		}
	}
	opts := quietOptions()
	u := measureRows(t, union, opts, additiveColumns...)
	s := measureRows(t, split, opts, additiveColumns...)
	ur, a, b := u.obj.row(0), s.obj.row(0), s.obj.row(1)
	for _, slot := range additiveSlots {
		if !near(ur[slot], a[slot]+b[slot], 1e-9*(1+math.Abs(ur[slot]))) {
			t.Errorf("slot %d got %g; want %g + %g", slot, ur[slot], a[slot], b[slot])
		}
	}
}

func TestAdditivitySlices(t *testing.T) {
	union := newImage(3, 3, 4)
	randomValues(union, 11, 0, 5)
	split := &Input{Naxisn: union.Naxisn, Values: union.Values, Objects: make([]int32, len(union.Values))}
	for i := range union.Objects {
		union.Objects[i] = 1
		split.Objects[i] = 1
		if i/9 >= 2 {
			split.Objects[i] = 2
		}
	}
	opts := quietOptions()
	u := measureRows(t, union, opts, "area-in-slice", "sum-in-slice")
	s := measureRows(t, split, opts, "area-in-slice", "sum-in-slice")
	for _, vec := range []int{vecNumIn, vecSumIn} {
		uv, a, b := u.obj.vec(vec, 0), s.obj.vec(vec, 0), s.obj.vec(vec, 1)
		for k := range uv {
			if !near(uv[k], a[k]+b[k], 1e-9) {
				t.Errorf("vector %d slice %d got %g; want %g + %g", vec, k, uv[k], a[k], b[k])
			}
		}
	}
}

func TestBlankNeutrality(t *testing.T) {
	build := func() *Input {
		in := newImage(5, 5)
		for y := 1; y <= 3; y++ {
			for x := 1; x <= 3; x++ {
				in.Values[y*5+x], in.Objects[y*5+x] = float32(x+2*y), 1
			}
		}
		in.Values[1*5+1] = 0
		in.Values[3*5+3] = -2
		return in
	}
	cols := []string{"geoarea", "area", "sum", "weightarea", "x", "semimajor", "maximum", "minvalx"}
	opts := quietOptions()
	before := measureRows(t, build(), opts, cols...).obj.row(0)

	in := build()
	in.Values[1*5+1] = float32(math.NaN())
	after := measureRows(t, in, opts, cols...).obj.row(0)
	if after[OColNumAll] != before[OColNumAll] {
		t.Errorf("full area got %g; want %g", after[OColNumAll], before[OColNumAll])
	}
	if after[OColNum] != before[OColNum]-1 {
		t.Errorf("area got %g; want %g", after[OColNum], before[OColNum]-1)
	}
	for _, slot := range []int{OColSum, OColSumWht, OColNumWht, OColVX, OColVY, OColVXX, OColMaximum, OColMinimum} {
		if after[slot] != before[slot] {
			t.Errorf("slot %d got %g; want %g", slot, after[slot], before[slot])
		}
	}

	// blank background pixels change nothing
	in = build()
	in.Values[0] = float32(math.NaN())
	background := measureRows(t, in, opts, cols...).obj.row(0)
	for slot := range before {
		if math.Float64bits(background[slot]) != math.Float64bits(before[slot]) {
			t.Errorf("slot %d got %g; want %g", slot, background[slot], before[slot])
		}
	}
}

func TestRiverDistinctClumps(t *testing.T) {
	in := newImage(5, 3)
	in.Clumps = make([]int32, 15)
	copy(in.Clumps[5:], []int32{1, -1, 1, -1, 2})
	copy(in.Values[5:], []float32{4, 2, 4, 7, 9})
	for i := 5; i < 10; i++ {
		in.Objects[i] = 1
	}
	cat := mustRun(t, in, quietOptions(), "rivernum", "riverave", "area")
	c := cat.Clumps
	want := []struct{ num, mean, area float64 }{{2, 4.5, 2}, {1, 7, 1}}
	for i, w := range want {
		num, mean := valueOf(t, c, "RIVER_NUM", i), valueOf(t, c, "RIVER_MEAN", i)
		if num != w.num || mean != w.mean || valueOf(t, c, "AREA", i) != w.area {
			t.Errorf("clump %d got rivers %g mean %g; want %g %g", i+1, num, mean, w.num, w.mean)
		}
	}
	if a := valueOf(t, cat.Objects, "AREA", 0); a != 3 {
		t.Errorf("object area got %g; want 3", a)
	}
}

// Many objects with clumps on a noisy background
func crowdedField() *Input {
	const nx, ny = 40, 30
	in := newImage(nx, ny)
	in.Clumps = make([]int32, nx*ny)
	rng := rand.New(rand.NewSource(5))
	for i := range in.Values {
		in.Values[i] = float32(rng.NormFloat64())
	}
	id := int32(0)
	for oy := 0; oy+6 <= ny; oy += 10 {
		for ox := 0; ox+6 <= nx; ox += 10 {
			id++
			for y := oy + 1; y < oy+7; y++ {
				for x := ox + 1; x < ox+7; x++ {
					i := y*nx + x
					in.Objects[i] = id
					in.Values[i] += 5
					switch {
					case id%2 == 0:
					case y < oy+3:
						in.Clumps[i] = 1
					case y == oy+3:
						in.Clumps[i] = -1
					default:
						in.Clumps[i] = 2
					}
				}
			}
		}
	}
	in.Noise = noise.NewConstant(0, 1, noise.Params{CPSCorr: 1})
	return in
}

var crowdedColumns = []string{"area", "sum", "x", "median", "sigclipmean", "upperlimit", "upperlimitquantile",
	"halfsumarea", "semimajor", "sn", "rivernum", "minx", "maxy"}

func tableBits(tab *Table) []uint64 {
	var bits []uint64
	for _, c := range tab.Columns {
		for i := 0; i < tab.Rows; i++ {
			for k := 0; k < c.Repeat(); k++ {
				bits = append(bits, math.Float64bits(c.Value(i, k)))
			}
		}
	}
	return bits
}

func sameBits(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestScheduleDeterminism(t *testing.T) {
	in := crowdedField()
	var ref *Catalog
	runs := []struct {
		threads  int
		schedule Schedule
	}{{1, ScheduleStatic}, {3, ScheduleStatic}, {4, ScheduleDynamic}}
	for _, r := range runs {
		opts := quietOptions()
		opts.Threads, opts.Schedule = r.threads, r.schedule
		opts.UpperLimit.NTries = 50
		cat := mustRun(t, in, opts, crowdedColumns...)
		if ref == nil {
			ref = cat
			continue
		}
		if !sameBits(tableBits(ref.Objects), tableBits(cat.Objects)) {
			t.Errorf("%d threads %s: objects differ from single thread", r.threads, r.schedule)
		}
		if !sameBits(tableBits(ref.Clumps), tableBits(cat.Clumps)) {
			t.Errorf("%d threads %s: clumps differ from single thread", r.threads, r.schedule)
		}
	}
	if ref.Objects.Rows != 12 || ref.Clumps.Rows != 12 {
		t.Errorf("rows got %d objects %d clumps; want 12 12", ref.Objects.Rows, ref.Clumps.Rows)
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	in := crowdedField()
	opts := quietOptions()
	opts.UpperLimit.NTries = 20
	m := measureRows(t, in, opts, crowdedColumns...)
	m.finalize()
	objects, clumps := tableBits(m.plan.objects), tableBits(m.plan.clumps)
	m.finalize()
	if !sameBits(objects, tableBits(m.plan.objects)) || !sameBits(clumps, tableBits(m.plan.clumps)) {
		t.Errorf("second finalize pass changed the outputs")
	}
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, crowdedField(), []string{"area"}, quietOptions(), nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v; want %v", err, context.Canceled)
	}
}

func TestSigmaClipRobust(t *testing.T) {
	const n = 100
	in := newImage(n, n)
	rng := rand.New(rand.NewSource(3))
	for i := range in.Values {
		if rng.Float64() < 0.05 {
			in.Values[i] = float32(-50 + 100*rng.Float64())
		} else {
			in.Values[i] = float32(rng.NormFloat64())
		}
		in.Objects[i] = 1
	}
	cat := mustRun(t, in, quietOptions(), "sigclipmean", "sigclipstd", "sigclipnumber")
	mean, std := valueOf(t, cat.Objects, "SIGCLIP_MEAN", 0), valueOf(t, cat.Objects, "SIGCLIP_STD", 0)
	if math.Abs(mean) > 0.05 {
		t.Errorf("clipped mean got %g; want |mean| < 0.05", mean)
	}
	if math.Abs(std-1) > 0.05 {
		t.Errorf("clipped std got %g; want within 0.05 of 1", std)
	}
	if num := valueOf(t, cat.Objects, "SIGCLIP_NUMBER", 0); num >= n*n || num < 0.9*n*n {
		t.Errorf("clipped number got %g", num)
	}
}

func TestUpperLimitNoRoom(t *testing.T) {
	in := newImage(10, 10)
	for i := range in.Objects {
		in.Values[i], in.Objects[i] = 1, 1
	}
	opts := quietOptions()
	opts.UpperLimit.NTries, opts.UpperLimit.FailureBudget, opts.UpperLimit.CheckID = 5, 7, 1
	cat := mustRun(t, in, opts, "upperlimit", "upperlimitonesigma")
	if v := valueOf(t, cat.Objects, "UPPERLIMIT", 0); !math.IsNaN(v) {
		t.Errorf("upper limit got %g; want NaN", v)
	}
	if !cat.Warnings.Has(false, 0, WarnUpperLimit) {
		t.Errorf("object not flagged")
	}
	if cat.Check == nil || cat.Check.Rows != 8 {
		t.Fatalf("check table got %v; want 8 rows", cat.Check)
	}
	for i, s := range cat.Check.Column("STATUS").Strings {
		if s != placementOverlap {
			t.Errorf("placement %d got %s; want %s", i, s, placementOverlap)
		}
	}
}

func TestUpperLimitBlankRejection(t *testing.T) {
	in := newImage(20, 20)
	for i := range in.Values {
		in.Values[i] = float32(math.NaN())
	}
	for _, i := range []int{0, 1, 20, 21} {
		in.Values[i], in.Objects[i] = 1, 1
	}
	opts := quietOptions()
	opts.UpperLimit.NTries, opts.UpperLimit.FailureBudget, opts.UpperLimit.CheckID = 5, 50, 1
	cat := mustRun(t, in, opts, "upperlimit")
	if v := valueOf(t, cat.Objects, "UPPERLIMIT", 0); !math.IsNaN(v) {
		t.Errorf("upper limit got %g; want NaN", v)
	}
	blank := 0
	for _, s := range cat.Check.Column("STATUS").Strings {
		if s == placementAccepted {
			t.Errorf("placement over blank pixels accepted")
		}
		if s == placementBlank {
			blank++
		}
	}
	if blank == 0 {
		t.Errorf("no placement rejected for blank pixels")
	}
}

func TestLabelSeed(t *testing.T) {
	seen := map[uint32]bool{}
	for obj := 1; obj <= 50; obj++ {
		for clump := 0; clump <= 5; clump++ {
			s := labelSeed(1, obj, clump)
			if s == 0 {
				t.Errorf("zero seed for object %d clump %d", obj, clump)
			}
			if seen[s] {
				t.Errorf("repeated seed for object %d clump %d", obj, clump)
			}
			seen[s] = true
			if s != labelSeed(1, obj, clump) {
				t.Errorf("seed not a function of its inputs")
			}
		}
	}
	if labelSeed(1, 3, 0) == labelSeed(2, 3, 0) {
		t.Errorf("global seed ignored")
	}
}
