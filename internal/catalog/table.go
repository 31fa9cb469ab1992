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
	"math"
	"strings"
)

// Output data type of a column
type DataType int

const (
	TypeNone DataType = iota // Not available on this table
	TypeInt32
	TypeFloat32
	TypeFloat64
	TypeString
)

func (t DataType) String() string {
	switch t {
	case TypeInt32:
		return "int32"
	case TypeFloat32:
		return "float32"
	case TypeFloat64:
		return "float64"
	case TypeString:
		return "string"
	}
	return "none"
}

// Display format hint, in printf notation
type Format byte

const (
	FormatInt     Format = 'd'
	FormatFixed   Format = 'f'
	FormatGeneral Format = 'g'
	FormatExp     Format = 'e'
	FormatHex     Format = 'x'
	FormatOctal   Format = 'o'
	FormatString  Format = 's'
)

// Blank value of integer columns
const BlankInt32 = math.MinInt32

// An output column with one value, or one vector of VecLen values, per row
type Column struct {
	Code      int // Registry entry which produced the column, -1 for auxiliary tables
	Name      string
	Unit      string
	Doc       string
	Type      DataType
	Format    Format
	Width     int
	Precision int
	VecLen    int // Vector length, 0 for scalar columns
	Int32     []int32
	Float32   []float32
	Float64   []float64
	Strings   []string
}

func newColumn(code int, name, unit, doc string, t DataType, f Format, width, precision, rows, vecLen int) *Column {
	c := &Column{Code: code, Name: name, Unit: unit, Doc: doc, Type: t, Format: f,
		Width: width, Precision: precision, VecLen: vecLen}
	n := rows
	if vecLen > 0 {
		n *= vecLen
	}
	switch t {
	case TypeInt32:
		c.Int32 = make([]int32, n)
	case TypeFloat32:
		c.Float32 = make([]float32, n)
	case TypeFloat64:
		c.Float64 = make([]float64, n)
	case TypeString:
		c.Strings = make([]string, n)
	}
	return c
}

// Number of rows
func (c *Column) Len() int {
	n := 0
	switch c.Type {
	case TypeInt32:
		n = len(c.Int32)
	case TypeFloat32:
		n = len(c.Float32)
	case TypeFloat64:
		n = len(c.Float64)
	case TypeString:
		n = len(c.Strings)
	}
	if c.VecLen > 0 {
		n /= c.VecLen
	}
	return n
}

// Number of values per row
func (c *Column) Repeat() int {
	if c.VecLen > 0 {
		return c.VecLen
	}
	return 1
}

// Stores element k of row i, converting to the column type. NaN becomes BlankInt32 on integer columns
func (c *Column) Set(i, k int, v float64) {
	j := i*c.Repeat() + k
	switch c.Type {
	case TypeInt32:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			c.Int32[j] = BlankInt32
		} else {
			c.Int32[j] = int32(math.Round(v))
		}
	case TypeFloat32:
		c.Float32[j] = float32(v)
	case TypeFloat64:
		c.Float64[j] = v
	}
}

// Returns element k of row i as float64. Blank integers and strings read as NaN
func (c *Column) Value(i, k int) float64 {
	j := i*c.Repeat() + k
	switch c.Type {
	case TypeInt32:
		if c.Int32[j] == BlankInt32 {
			return math.NaN()
		}
		return float64(c.Int32[j])
	case TypeFloat32:
		return float64(c.Float32[j])
	case TypeFloat64:
		return c.Float64[j]
	}
	return math.NaN()
}

// A header keyword attached to a table
type Keyword struct {
	Key     string
	Value   interface{} // bool, int, float64 or string
	Comment string
}

// An output table, columns in request order
type Table struct {
	Name     string
	Rows     int
	Columns  []*Column
	Keywords []Keyword
}

// Returns the column with the given display name, or nil. Case-insensitive
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}
