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

package table

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/DeadSpheroid/gnuastro-sub000/internal/catalog"
)

// Writes a table as aligned plain text. Keywords and one line per column with
// name, unit, type, blank value and description come first as comments.
// Vector columns occupy Repeat consecutive fields and one comment line each
func WriteText(w io.Writer, t *catalog.Table) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# %s\n", t.Name)
	for _, k := range t.Keywords {
		if k.Comment != "" {
			fmt.Fprintf(bw, "# %s = %v / %s\n", k.Key, k.Value, k.Comment)
		} else {
			fmt.Fprintf(bw, "# %s = %v\n", k.Key, k.Value)
		}
	}
	n := 1
	for _, c := range t.Columns {
		name := c.Name
		if c.VecLen > 0 {
			name = fmt.Sprintf("%s(%d)", c.Name, c.VecLen)
		}
		fmt.Fprintf(bw, "# Column %d: %s [%s,%s,%s] %s\n", n, name, c.Unit, typeName(c), blankName(c), c.Doc)
		n += c.Repeat()
	}

	fields := []string{}
	for i := 0; i < t.Rows; i++ {
		fields = fields[:0]
		for _, c := range t.Columns {
			for k := 0; k < c.Repeat(); k++ {
				fields = append(fields, formatValue(c, i, k))
			}
		}
		fmt.Fprintln(bw, strings.Join(fields, " "))
	}
	return bw.Flush()
}

// Writes a table as CSV with one header line of column names. Vector columns are
// expanded into NAME_1 to NAME_n
func WriteCSV(w io.Writer, t *catalog.Table) error {
	cw := csv.NewWriter(w)
	header := []string{}
	for _, c := range t.Columns {
		if c.VecLen == 0 {
			header = append(header, c.Name)
			continue
		}
		for k := 0; k < c.VecLen; k++ {
			header = append(header, fmt.Sprintf("%s_%d", c.Name, k+1))
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for i := 0; i < t.Rows; i++ {
		j := 0
		for _, c := range t.Columns {
			for k := 0; k < c.Repeat(); k++ {
				record[j] = strings.TrimSpace(formatValue(c, i, k))
				j++
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
