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

package fits

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
)

// A column of a FITS binary table. Exactly one of the data slices is set,
// holding Repeat consecutive elements per row.
type TableColumn struct {
	Name   string
	Unit   string
	Disp   string // TDISP display format, e.g. F10.3
	Repeat int    // Elements per row, 1 for scalar columns, width for strings

	Int32   []int32
	Float32 []float32
	Float64 []float64
	Strings []string
}

// Returns the TFORM data type letter and the bytes per element
func (c *TableColumn) form() (letter byte, size int, err error) {
	switch {
	case c.Int32 != nil:
		return 'J', 4, nil
	case c.Float32 != nil:
		return 'E', 4, nil
	case c.Float64 != nil:
		return 'D', 8, nil
	case c.Strings != nil:
		return 'A', 1, nil
	}
	return 0, 0, fmt.Errorf("table column %s has no data", c.Name)
}

func (c *TableColumn) repeat() int {
	if c.Repeat < 1 {
		return 1
	}
	return c.Repeat
}

// Writes an empty primary header, as needed before the first table extension
func WritePrimaryHeader(w io.Writer, cards []Card) error {
	sb := strings.Builder{}
	writeBool(&sb, "SIMPLE", true, "    FITS standard 4.0")
	writeInt(&sb, "BITPIX", 8, "")
	writeInt(&sb, "NAXIS", 0, "No data in the primary HDU")
	writeBool(&sb, "EXTEND", true, "Extensions may follow")
	for _, c := range cards {
		writeCard(&sb, c)
	}
	writeEnd(&sb)
	padHeader(&sb)
	_, err := w.Write([]byte(sb.String()))
	return err
}

// Writes a binary table extension with the given columns and extra keywords
func WriteTable(w io.Writer, extName string, nrows int, cols []TableColumn, cards []Card) error {
	rowBytes := 0
	letters := make([]byte, len(cols))
	sizes := make([]int, len(cols))
	for i := range cols {
		letter, size, err := cols[i].form()
		if err != nil {
			return err
		}
		letters[i], sizes[i] = letter, size
		rowBytes += size * cols[i].repeat()
	}

	sb := strings.Builder{}
	writeString(&sb, "XTENSION", "BINTABLE", "Binary table extension")
	writeInt(&sb, "BITPIX", 8, "8-bit bytes")
	writeInt(&sb, "NAXIS", 2, "2-dimensional binary table")
	writeInt(&sb, "NAXIS1", rowBytes, "width of table in bytes")
	writeInt(&sb, "NAXIS2", nrows, "number of rows in table")
	writeInt(&sb, "PCOUNT", 0, "size of special data area")
	writeInt(&sb, "GCOUNT", 1, "one data group")
	writeInt(&sb, "TFIELDS", len(cols), "number of fields in each row")
	for i, c := range cols {
		n := i + 1
		writeString(&sb, fmt.Sprintf("TTYPE%d", n), c.Name, "")
		writeString(&sb, fmt.Sprintf("TFORM%d", n), fmt.Sprintf("%d%c", c.repeat(), letters[i]), "")
		if c.Unit != "" {
			writeString(&sb, fmt.Sprintf("TUNIT%d", n), c.Unit, "")
		}
		if c.Disp != "" {
			writeString(&sb, fmt.Sprintf("TDISP%d", n), c.Disp, "")
		}
	}
	if extName != "" {
		writeString(&sb, "EXTNAME", extName, "")
	}
	for _, c := range cards {
		writeCard(&sb, c)
	}
	writeEnd(&sb)
	padHeader(&sb)
	if _, err := w.Write([]byte(sb.String())); err != nil {
		return err
	}

	// rows in network byte order
	row := make([]byte, rowBytes)
	for r := 0; r < nrows; r++ {
		off := 0
		for i := range cols {
			c := &cols[i]
			rep := c.repeat()
			if letters[i] == 'A' {
				s := c.Strings[r]
				for k := 0; k < rep; k++ {
					if k < len(s) {
						row[off+k] = s[k]
					} else {
						row[off+k] = ' '
					}
				}
				off += rep
				continue
			}
			for k := 0; k < rep; k++ {
				j := r*rep + k
				switch letters[i] {
				case 'J':
					binary.BigEndian.PutUint32(row[off:], uint32(c.Int32[j]))
				case 'E':
					binary.BigEndian.PutUint32(row[off:], math.Float32bits(c.Float32[j]))
				case 'D':
					binary.BigEndian.PutUint64(row[off:], math.Float64bits(c.Float64[j]))
				}
				off += sizes[i]
			}
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return writePadding(w, rowBytes*nrows)
}
