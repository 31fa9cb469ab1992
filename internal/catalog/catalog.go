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

// Package catalog measures labelled regions of 2D and 3D images. A request for
// output columns is compiled into the accumulator slots the reducer maintains,
// objects are measured in parallel with one owning goroutine each, and the
// derived columns and world coordinates are filled after all goroutines finish.
package catalog

import (
	"context"
	"fmt"
	"io/ioutil"
	"time"
)

// Result of a catalog run
type Catalog struct {
	Objects  *Table
	Clumps   *Table // nil without clump labels
	Check    *Table // Upper limit placements of one object, or nil
	Warnings *Warnings
}

// Plans and executes a catalog run
func Run(ctx context.Context, in *Input, requests []string, opts *Options, c *Context) (*Catalog, error) {
	p, err := NewPlan(requests, in, opts, c)
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, c)
}

// Measures all objects and fills the planned output columns
func (p *Plan) Execute(ctx context.Context, c *Context) (*Catalog, error) {
	if c == nil {
		c = &Context{Log: ioutil.Discard}
	}
	log := c.Log
	if log == nil {
		log = ioutil.Discard
	}
	threads := p.opts.Threads
	if c.MaxThreads > 0 && threads > c.MaxThreads {
		threads = c.MaxThreads
	}
	if !p.opts.Quiet {
		fmt.Fprintf(log, "Measuring %d objects and %d clumps in %v pixels, %d columns, %d threads with %s schedule\n",
			p.pre.nobj, p.pre.nclumps, p.in.Naxisn, len(p.columns), threads, p.opts.Schedule)
	}

	start := time.Now()
	m := newMeasurement(p)
	if err := m.measureAll(ctx, threads, p.opts.Schedule); err != nil {
		return nil, err
	}
	m.finalize()
	m.convertWCS(log)
	m.warn.count()
	if !p.opts.Quiet {
		fmt.Fprintf(log, "Measured in %v\n", time.Since(start))
		m.warn.Summarize(log)
	}

	cat := &Catalog{Objects: p.objects, Clumps: p.clumps, Warnings: m.warn}
	if m.check != nil {
		cat.Check = m.check.table()
	}
	return cat, nil
}
