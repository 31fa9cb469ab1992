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
)

// A non-fatal measurement problem, recorded per row
type Warning uint

const (
	WarnUpperLimit Warning = iota // Upper limit sampling exceeded its failure budget
	WarnWCS                       // World coordinate conversion failed
	WarnMoments                   // Second order moments undefined
	WarnEmpty                     // Label below the largest one without any pixel
	numWarnings
)

func (w Warning) String() string {
	switch w {
	case WarnUpperLimit:
		return "upper limit sampling failed"
	case WarnWCS:
		return "WCS conversion failed"
	case WarnMoments:
		return "second order moments undefined"
	case WarnEmpty:
		return "label without pixels"
	}
	return "unknown"
}

// Measurement warnings of a catalog run. Flag bytes are written only by the
// goroutine owning the row, counts are derived after the barrier
type Warnings struct {
	Objects  []uint8 // Per object bit set of 1<<Warning
	Clumps   []uint8 // Per clump bit set of 1<<Warning
	Counts   [numWarnings]int
	Messages []string // Planner warnings
}

func newWarnings(nobj, nclumps int, messages []string) *Warnings {
	return &Warnings{Objects: make([]uint8, nobj), Clumps: make([]uint8, nclumps), Messages: messages}
}

// Returns true if row i of the given table has the warning set
func (w *Warnings) Has(clumps bool, i int, kind Warning) bool {
	flags := w.Objects
	if clumps {
		flags = w.Clumps
	}
	return flags[i]&(1<<kind) != 0
}

// Recomputes the counts from the row flags
func (w *Warnings) count() {
	w.Counts = [numWarnings]int{}
	for _, flags := range [][]uint8{w.Objects, w.Clumps} {
		for _, f := range flags {
			for k := Warning(0); k < numWarnings; k++ {
				if f&(1<<k) != 0 {
					w.Counts[k]++
				}
			}
		}
	}
}

// Total number of flagged rows over all kinds
func (w *Warnings) Total() int {
	n := 0
	for _, c := range w.Counts {
		n += c
	}
	return n
}

// Writes one line per message and per non-zero warning count
func (w *Warnings) Summarize(log io.Writer) {
	for _, m := range w.Messages {
		fmt.Fprintf(log, "Warning: %s\n", m)
	}
	for k := Warning(0); k < numWarnings; k++ {
		if w.Counts[k] > 0 {
			fmt.Fprintf(log, "Warning: %s for %d rows\n", k, w.Counts[k])
		}
	}
}

// Placement attempts of the upper limit sampler for one object
type checkTable struct {
	id     int
	ndim   int
	pos    [][3]int
	sums   []float64
	status []string
}

func newCheckTable(id, capacity, ndim int) *checkTable {
	return &checkTable{id: id, ndim: ndim, pos: make([][3]int, 0, capacity),
		sums: make([]float64, 0, capacity), status: make([]string, 0, capacity)}
}

func (c *checkTable) add(pos [3]int, sum float64, status string) {
	c.pos = append(c.pos, pos)
	c.sums = append(c.sums, sum)
	c.status = append(c.status, status)
}

// Converts the attempts into an output table, positions one-based
func (c *checkTable) table() *Table {
	n := len(c.sums)
	t := &Table{Name: "UPPERLIMIT_CHECK", Rows: n,
		Keywords: []Keyword{{Key: "OBJ_ID", Value: c.id, Comment: "Object whose placements are listed"}}}
	names := []string{"X", "Y", "Z"}
	for d := 0; d < c.ndim; d++ {
		col := newColumn(-1, names[d]+"_SHIFT", "position", "Placed bounding box start ("+names[d]+" axis).",
			TypeInt32, FormatInt, 6, 0, n, 0)
		for i := range c.pos {
			col.Int32[i] = int32(c.pos[i][d] + 1)
		}
		t.Columns = append(t.Columns, col)
	}
	sum := newColumn(-1, "SUM", "", "Sum of values in the placed footprint.", TypeFloat64, FormatGeneral, 12, 6, n, 0)
	copy(sum.Float64, c.sums)
	status := newColumn(-1, "STATUS", "", "Accepted, or the reason the placement was rejected.",
		TypeString, FormatString, 8, 0, n, 0)
	copy(status.Strings, c.status)
	t.Columns = append(t.Columns, sum, status)
	return t
}
