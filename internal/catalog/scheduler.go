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
	"fmt"
	"sync"
	"sync/atomic"
)

// Measures all objects on the given number of goroutines and returns after all of
// them have finished. Cancellation is checked between objects
func (m *measurement) measureAll(ctx context.Context, threads int, schedule Schedule) error {
	n := m.pre.nobj
	if n == 0 {
		return nil
	}
	if threads > n {
		threads = n
	}
	if threads < 1 {
		threads = 1
	}

	var next int64 // dynamic schedule: last object ID handed out
	errs := make(chan error, threads)
	var wg sync.WaitGroup
	for t := 0; t < threads; t++ {
		first, last := 1+t*n/threads, (t+1)*n/threads // static chunk, inclusive
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := newWorker(m)
			defer w.release()
			if schedule == ScheduleDynamic {
				for {
					obj := int(atomic.AddInt64(&next, 1))
					if obj > n {
						return
					}
					if err := ctx.Err(); err != nil {
						errs <- err
						return
					}
					w.measure(obj)
				}
			}
			for obj := first; obj <= last; obj++ {
				if err := ctx.Err(); err != nil {
					errs <- err
					return
				}
				w.measure(obj)
			}
		}()
	}
	wg.Wait() // barrier between measurement and finalization
	close(errs)

	var err error
	for e := range errs {
		if err == nil {
			err = e
		} else if !errors.Is(e, err) {
			err = fmt.Errorf("%s; %s", err.Error(), e.Error())
		}
	}
	return err
}
