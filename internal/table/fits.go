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
	"fmt"
	"io"

	"github.com/DeadSpheroid/gnuastro-sub000/internal/catalog"
	"github.com/DeadSpheroid/gnuastro-sub000/internal/fits"
)

// Writes the tables as consecutive binary table extensions after an empty primary HDU
func WriteFITS(w io.Writer, tables ...*catalog.Table) error {
	if err := fits.WritePrimaryHeader(w, []fits.Card{{Key: "NTABLES", Value: len(tables), Comment: "Number of table extensions"}}); err != nil {
		return err
	}
	for _, t := range tables {
		cols, cards := fitsColumns(t)
		if err := fits.WriteTable(w, t.Name, t.Rows, cols, cards); err != nil {
			return fmt.Errorf("%s: %s", t.Name, err.Error())
		}
	}
	return nil
}

// Converts the columns and keywords of a table. Integer columns declare their blank
// value with TNULL
func fitsColumns(t *catalog.Table) ([]fits.TableColumn, []fits.Card) {
	cols := make([]fits.TableColumn, len(t.Columns))
	cards := []fits.Card{}
	for i, c := range t.Columns {
		fc := fits.TableColumn{Name: c.Name, Unit: c.Unit, Disp: tdisp(c), Repeat: c.Repeat()}
		switch c.Type {
		case catalog.TypeInt32:
			fc.Int32 = c.Int32
			cards = append(cards, fits.Card{Key: fmt.Sprintf("TNULL%d", i+1), Value: int(catalog.BlankInt32)})
		case catalog.TypeFloat32:
			fc.Float32 = c.Float32
		case catalog.TypeFloat64:
			fc.Float64 = c.Float64
		case catalog.TypeString:
			fc.Strings, fc.Repeat = c.Strings, stringWidth(c)
			if fc.Strings == nil {
				fc.Strings = []string{}
			}
		}
		cols[i] = fc
	}
	for _, k := range t.Keywords {
		cards = append(cards, fits.Card{Key: k.Key, Value: k.Value, Comment: k.Comment})
	}
	return cols, cards
}

// FITS display format of a column
func tdisp(c *catalog.Column) string {
	width := c.Width
	if width <= 0 {
		width = 10
	}
	switch c.Format {
	case catalog.FormatInt:
		if c.Type != catalog.TypeInt32 {
			return fmt.Sprintf("F%d.0", width)
		}
		return fmt.Sprintf("I%d", width)
	case catalog.FormatFixed:
		return fmt.Sprintf("F%d.%d", width, c.Precision)
	case catalog.FormatGeneral:
		return fmt.Sprintf("G%d.%d", width, c.Precision)
	case catalog.FormatExp:
		return fmt.Sprintf("E%d.%d", width, c.Precision)
	case catalog.FormatHex:
		return fmt.Sprintf("Z%d", width)
	case catalog.FormatOctal:
		return fmt.Sprintf("O%d", width)
	case catalog.FormatString:
		return fmt.Sprintf("A%d", stringWidth(c))
	}
	return ""
}
