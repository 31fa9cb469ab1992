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

package noise

import (
	"testing"
)

func TestConstant(t *testing.T) {
	c := NewConstant(2, 3, Params{CPSCorr: 1})
	if c.Sky(17) != 2 || c.Std(5) != 3 || c.Variance(0) != 9 {
		t.Errorf("constant got sky %g std %g var %g", c.Sky(17), c.Std(5), c.Variance(0))
	}
	c.SkySubtracted = true
	if c.Variance(0) != 18 {
		t.Errorf("sky subtracted variance got %g; want 18", c.Variance(0))
	}
	c.StdIsVariance = true
	if c.Std(0) != 1.7320508075688772 || c.Variance(0) != 6 {
		t.Errorf("variance input got std %g var %g", c.Std(0), c.Variance(0))
	}
	if c.CorrelationCorrection() != 1 || !c.SkyAlreadySubtracted() {
		t.Errorf("params not promoted")
	}
}

func TestTiledBroadcast(t *testing.T) {
	// 5x4 image on a 2x2 grid: tiles are 2x2, the last column of tiles is 3 wide
	sky := []float32{1, 2, 3, 4}
	std := []float32{10, 20, 30, 40}
	tl, err := NewTiled([]int{5, 4}, []int{2, 2}, sky, std, Params{})
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 5; x++ {
			tx := x / 2
			if tx > 1 {
				tx = 1
			}
			want := float64(1 + tx + 2*(y/2))
			if got := tl.Sky(y*5 + x); got != want {
				t.Errorf("sky at (%d,%d) got %g; want %g", x, y, got, want)
			}
			if got := tl.Std(y*5 + x); got != 10*want {
				t.Errorf("std at (%d,%d) got %g; want %g", x, y, got, 10*want)
			}
		}
	}
	if err := tl.Check([]int{5, 4}); err != nil {
		t.Errorf("unexpected shape error %s", err)
	}
	if err := tl.Check([]int{4, 5}); err == nil {
		t.Errorf("expected shape error")
	}
}

func TestTiledUnevenGrid(t *testing.T) {
	// 10 pixels on 6 tiles: five tiles of one pixel, the last one covers pixels 5..9
	sky := []float32{0, 1, 2, 3, 4, 5}
	tl, err := NewTiled([]int{10}, []int{6}, sky, make([]float32, 6), Params{})
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	used := map[float64]bool{}
	for i := 0; i < 10; i++ {
		want := float64(i)
		if i > 5 {
			want = 5
		}
		got := tl.Sky(i)
		if got != want {
			t.Errorf("sky at %d got %g; want %g", i, got, want)
		}
		used[got] = true
	}
	if len(used) != 6 {
		t.Errorf("tiles used got %d; want 6", len(used))
	}

	// 7x3 image on a 3x2 grid, both axes uneven
	sky2 := []float32{0, 1, 2, 3, 4, 5}
	tl2, err := NewTiled([]int{7, 3}, []int{3, 2}, sky2, make([]float32, 6), Params{})
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	colTile := []int{0, 0, 1, 1, 2, 2, 2}
	rowTile := []int{0, 1, 1}
	for y := 0; y < 3; y++ {
		for x := 0; x < 7; x++ {
			want := float64(colTile[x] + 3*rowTile[y])
			if got := tl2.Sky(y*7 + x); got != want {
				t.Errorf("sky at (%d,%d) got %g; want %g", x, y, got, want)
			}
		}
	}
}

func TestTiledRejectsBadGrid(t *testing.T) {
	if _, err := NewTiled([]int{5, 4}, []int{6, 1}, make([]float32, 6), make([]float32, 6), Params{}); err == nil {
		t.Errorf("expected error for more tiles than pixels")
	}
	if _, err := NewTiled([]int{5, 4}, []int{2, 2}, make([]float32, 3), make([]float32, 4), Params{}); err == nil {
		t.Errorf("expected error for short sky grid")
	}
}

func TestPerPixelCheck(t *testing.T) {
	pp := NewPerPixel([]int{2, 2}, []float32{1, 2, 3, 4}, []float32{1, 1, 1, 1}, Params{})
	if err := pp.Check([]int{2, 2}); err != nil {
		t.Errorf("unexpected error %s", err)
	}
	if err := pp.Check([]int{2, 3}); err == nil {
		t.Errorf("expected shape error")
	}
	if pp.Sky(3) != 4 {
		t.Errorf("sky got %g; want 4", pp.Sky(3))
	}
}
