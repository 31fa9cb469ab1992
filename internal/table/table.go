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

// Package table writes catalog tables as aligned plain text, CSV or FITS binary tables.
package table

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/DeadSpheroid/gnuastro-sub000/internal/catalog"
)

// Output file format
type Format int

const (
	FormatText Format = iota
	FormatCSV
	FormatFITS
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatFITS:
		return "fits"
	}
	return "text"
}

// Picks the format from the file name extension, text by default
func FormatFromFileName(fileName string) Format {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return FormatCSV
	case ".fits", ".fit", ".fts":
		return FormatFITS
	}
	return FormatText
}

// Name of the file holding table t next to fileName, e.g. cat_clumps.txt for the
// clumps of cat.txt. FITS files hold all tables, so the name is unchanged
func SiblingName(fileName string, t *catalog.Table) string {
	if FormatFromFileName(fileName) == FormatFITS {
		return fileName
	}
	ext := filepath.Ext(fileName)
	return strings.TrimSuffix(fileName, ext) + "_" + strings.ToLower(t.Name) + ext
}

// Writes the given tables to a file, in the format implied by its name. Text and CSV
// hold one table per file: the first table goes to fileName, each further table to its
// SiblingName. Returns the names of the files written
func WriteFile(fileName string, tables ...*catalog.Table) (written []string, err error) {
	format := FormatFromFileName(fileName)
	if format == FormatFITS {
		return []string{fileName}, writeToFile(fileName, func(w io.Writer) error { return WriteFITS(w, tables...) })
	}
	for i, t := range tables {
		name := fileName
		if i > 0 {
			name = SiblingName(fileName, t)
		}
		t := t
		err := writeToFile(name, func(w io.Writer) error {
			if format == FormatCSV {
				return WriteCSV(w, t)
			}
			return WriteText(w, t)
		})
		if err != nil {
			return written, err
		}
		written = append(written, name)
	}
	return written, nil
}

func writeToFile(fileName string, write func(w io.Writer) error) error {
	f, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		return err
	}
	return w.Flush()
}

// Short type names of the column comments
func typeName(c *catalog.Column) string {
	switch c.Type {
	case catalog.TypeInt32:
		return "int32"
	case catalog.TypeFloat32:
		return "float32"
	case catalog.TypeFloat64:
		return "float64"
	case catalog.TypeString:
		return fmt.Sprintf("str%d", stringWidth(c))
	}
	return "none"
}

// Blank value as written in the given column
func blankName(c *catalog.Column) string {
	switch c.Type {
	case catalog.TypeInt32:
		return fmt.Sprintf("%d", catalog.BlankInt32)
	case catalog.TypeString:
		return "n/a"
	}
	return "nan"
}

// Widest string of a string column, at least one
func stringWidth(c *catalog.Column) int {
	w := 1
	for _, s := range c.Strings {
		if len(s) > w {
			w = len(s)
		}
	}
	return w
}

// Formats element k of row i with the display hints of the column
func formatValue(c *catalog.Column, i, k int) string {
	width := c.Width
	j := i*c.Repeat() + k
	switch c.Type {
	case catalog.TypeString:
		if width < stringWidth(c) {
			width = stringWidth(c)
		}
		s := c.Strings[j]
		if s == "" {
			s = "n/a"
		}
		return fmt.Sprintf("%-*s", width, s)
	case catalog.TypeInt32:
		v := c.Int32[j]
		switch c.Format {
		case catalog.FormatHex:
			return fmt.Sprintf("%*x", width, v)
		case catalog.FormatOctal:
			return fmt.Sprintf("%*o", width, v)
		}
		return fmt.Sprintf("%*d", width, v)
	}
	v := c.Value(i, k)
	if math.IsNaN(v) {
		return fmt.Sprintf("%*s", width, "nan")
	}
	verb := byte(c.Format)
	switch c.Format {
	case catalog.FormatFixed, catalog.FormatGeneral, catalog.FormatExp:
	case catalog.FormatInt:
		verb = 'f'
	default:
		verb = 'g'
	}
	return fmt.Sprintf("%*.*"+string(verb), width, c.Precision, v)
}
