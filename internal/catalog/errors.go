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
	"errors"
	"fmt"
)

// A requested column or option that cannot be served for the given inputs
type ConfigurationError struct {
	Column  string // Offending column or option name
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Column == "" {
		return "configuration: " + e.Message
	}
	return fmt.Sprintf("configuration: %s: %s", e.Column, e.Message)
}

// Input arrays whose shapes do not agree
type InputShapeError struct {
	Array   string // Offending array name
	Message string
}

func (e *InputShapeError) Error() string {
	return fmt.Sprintf("input shape: %s: %s", e.Array, e.Message)
}

// Column arrays or scratch that exceed the memory budget
type AllocationError struct {
	What      string // Largest consumer
	Bytes     int64  // Estimated total
	Available int64  // Budget
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocation: need %d MB (largest consumer %s) but only %d MB are available",
		e.Bytes/(1024*1024), e.What, e.Available/(1024*1024))
}

func configErrorf(column, format string, args ...interface{}) error {
	return &ConfigurationError{Column: column, Message: fmt.Sprintf(format, args...)}
}

func shapeErrorf(array, format string, args ...interface{}) error {
	return &InputShapeError{Array: array, Message: fmt.Sprintf(format, args...)}
}

// Reports whether err is or wraps a ConfigurationError
func IsConfiguration(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}

// Reports whether err is or wraps an InputShapeError
func IsInputShape(err error) bool {
	var e *InputShapeError
	return errors.As(err, &e)
}

// Reports whether err is or wraps an AllocationError
func IsAllocation(err error) bool {
	var e *AllocationError
	return errors.As(err, &e)
}
