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
	"io"
	"math"
)

// Output columns filled from the same centroid pool
type wcsGroup struct {
	s    *side
	cat  wcsCategory
	cols []*Column
	axes []int
}

// Converts the centroid pools to world coordinates, one WCS call per used pool.
// Conversion failures are logged and leave NaN in the affected rows
func (m *measurement) convertWCS(log io.Writer) {
	wcs := m.in.WCS
	if wcs == nil {
		return
	}
	obj, clu := m.sides()
	var groups []*wcsGroup
	find := func(s *side, cat wcsCategory) *wcsGroup {
		for _, g := range groups {
			if g.s == s && g.cat == cat {
				return g
			}
		}
		g := &wcsGroup{s: s, cat: cat}
		groups = append(groups, g)
		return g
	}
	for _, pc := range m.plan.columns {
		if pc.def.wcsCat == wcsNone {
			continue
		}
		if pc.obj != nil {
			g := find(obj, pc.def.wcsCat)
			g.cols, g.axes = append(g.cols, pc.obj), append(g.axes, pc.def.wcsAxis)
		}
		if pc.clump != nil && clu != nil {
			g := find(clu, pc.def.wcsCat)
			g.cols, g.axes = append(g.cols, pc.clump), append(g.axes, pc.def.wcsAxis)
		}
	}

	for _, g := range groups {
		pix := m.pool(g.s, g.cat)
		world, err := wcs.PixelToWorld(pix)
		n := g.s.rows.n
		if err != nil {
			fmt.Fprintf(log, "Warning: WCS conversion of %d %s centroids failed: %s\n", n, g.name(), err.Error())
			for i := 0; i < n; i++ {
				g.s.flags[i] |= 1 << WarnWCS
				for _, c := range g.cols {
					c.Set(i, 0, math.NaN())
				}
			}
			continue
		}
		for i := 0; i < n; i++ {
			if failed(pix, world, i) {
				g.s.flags[i] |= 1 << WarnWCS
				fmt.Fprintf(log, "%d: WCS conversion of %s centroid failed\n", i+1, g.name())
			}
			for k, c := range g.cols {
				c.Set(i, 0, world[g.axes[k]][i])
			}
		}
	}
}

// Returns true if row i had a valid pixel position but no world position
func failed(pix, world [][]float64, i int) bool {
	valid := true
	for d := range pix {
		if math.IsNaN(pix[d][i]) {
			valid = false
		}
	}
	if !valid {
		return false
	}
	for d := range world {
		if math.IsNaN(world[d][i]) {
			return true
		}
	}
	return false
}

func (g *wcsGroup) name() string {
	table := "object"
	if g.s.clumps {
		table = "clump"
	}
	switch g.cat {
	case wcsWeighted:
		return "weighted " + table
	case wcsGeometric:
		return "geometric " + table
	case wcsClumpsWeighted:
		return "weighted clumps-in-object"
	}
	return "geometric clumps-in-object"
}

// Builds the one-based pixel coordinates of one centroid category, pool[dim][row]
func (m *measurement) pool(s *side, cat wcsCategory) [][]float64 {
	ndim, n := m.plan.ndim, s.rows.n
	pool := make([][]float64, ndim)
	for d := range pool {
		pool[d] = make([]float64, n)
		for i := 0; i < n; i++ {
			r := s.rows.row(i)
			switch cat {
			case wcsWeighted:
				pool[d][i] = s.weighted(r, d)
			case wcsGeometric:
				pool[d][i] = s.geometric(r, d)
			case wcsClumpsWeighted:
				pool[d][i] = clumpsWeighted(r, d)
			case wcsClumpsGeometric:
				pool[d][i] = clumpsGeometric(r, d)
			}
		}
	}
	return pool
}
