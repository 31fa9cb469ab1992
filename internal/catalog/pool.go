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
	"sync"
)

// Pool of constant sized arrays of given type, to reduce memory allocation overhead
var poolFloat64 = struct {
	sync.RWMutex
	m map[int]*sync.Pool
}{m: make(map[int]*sync.Pool)}

// Pool of constant sized arrays of given type, to reduce memory allocation overhead
var poolInt = struct {
	sync.RWMutex
	m map[int]*sync.Pool
}{m: make(map[int]*sync.Pool)}

// Pool of constant sized arrays of given type, to reduce memory allocation overhead
var poolBool = struct {
	sync.RWMutex
	m map[int]*sync.Pool
}{m: make(map[int]*sync.Pool)}

// Clears all memory pools
func ClearPools() {
	poolFloat64.Lock()
	poolFloat64.m = make(map[int]*sync.Pool)
	poolFloat64.Unlock()
	poolInt.Lock()
	poolInt.m = make(map[int]*sync.Pool)
	poolInt.Unlock()
	poolBool.Lock()
	poolBool.m = make(map[int]*sync.Pool)
	poolBool.Unlock()
}

// Rounds sizes up to powers of two, so buffers for similar objects share a pool
func sizeClass(size int) int {
	c := 16
	for c < size {
		c <<= 1
	}
	return c
}

// Returns a pool for float64 arrays of the given size
func getSizedPoolFloat64(size int) *sync.Pool {
	poolFloat64.RLock()
	pool := poolFloat64.m[size]
	poolFloat64.RUnlock()
	if pool == nil {
		pool = &sync.Pool{
			New: func() interface{} {
				return make([]float64, size)
			},
		}
		poolFloat64.Lock()
		poolFloat64.m[size] = pool
		poolFloat64.Unlock()
	}
	return pool
}

// Retrieves an array of at least the given size from pool, with length size
func getArrayOfFloat64FromPool(size int) []float64 {
	pool := getSizedPoolFloat64(sizeClass(size))
	return pool.Get().([]float64)[:size]
}

// Returns an array to the pool
func putArrayOfFloat64IntoPool(arr []float64) {
	if arr == nil {
		return
	}
	pool := getSizedPoolFloat64(cap(arr))
	pool.Put(arr[:cap(arr)])
}

// Returns a pool for int arrays of the given size
func getSizedPoolInt(size int) *sync.Pool {
	poolInt.RLock()
	pool := poolInt.m[size]
	poolInt.RUnlock()
	if pool == nil {
		pool = &sync.Pool{
			New: func() interface{} {
				return make([]int, size)
			},
		}
		poolInt.Lock()
		poolInt.m[size] = pool
		poolInt.Unlock()
	}
	return pool
}

// Retrieves an array of at least the given size from pool, with length size
func getArrayOfIntFromPool(size int) []int {
	pool := getSizedPoolInt(sizeClass(size))
	return pool.Get().([]int)[:size]
}

// Returns an array to the pool
func putArrayOfIntIntoPool(arr []int) {
	if arr == nil {
		return
	}
	pool := getSizedPoolInt(cap(arr))
	pool.Put(arr[:cap(arr)])
}

// Returns a pool for bool arrays of the given size
func getSizedPoolBool(size int) *sync.Pool {
	poolBool.RLock()
	pool := poolBool.m[size]
	poolBool.RUnlock()
	if pool == nil {
		pool = &sync.Pool{
			New: func() interface{} {
				return make([]bool, size)
			},
		}
		poolBool.Lock()
		poolBool.m[size] = pool
		poolBool.Unlock()
	}
	return pool
}

// Retrieves a zeroed array of at least the given size from pool, with length size
func getArrayOfBoolFromPool(size int) []bool {
	pool := getSizedPoolBool(sizeClass(size))
	arr := pool.Get().([]bool)[:size]
	for i := range arr {
		arr[i] = false
	}
	return arr
}

// Returns an array to the pool
func putArrayOfBoolIntoPool(arr []bool) {
	if arr == nil {
		return
	}
	pool := getSizedPoolBool(cap(arr))
	pool.Put(arr[:cap(arr)])
}
