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
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// A header card with a typed value, for passing extra keywords to the writers
type Card struct {
	Key     string
	Value   interface{} // bool, int, int32, int64, float32, float64 or string
	Comment string
}

// Writes an in-memory FITS image to a file with given filename.
// Creates/overwrites the file if necessary
func (fits *Image) WriteFile(fileName string) error {
	f, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := fits.Write(w); err != nil {
		return err
	}
	return w.Flush()
}

// Writes an in-memory FITS image to an io.Writer, as float32 values or int32 labels
// depending on which of Data and Labels is set
func (fits *Image) Write(f io.Writer) error {
	// Build header in string buffer
	sb := strings.Builder{}
	writeBool(&sb, "SIMPLE", true, "    FITS standard 4.0")
	if fits.Labels != nil {
		writeInt(&sb, "BITPIX", 32, "    32-bit twos complement integer")
	} else {
		writeInt(&sb, "BITPIX", -32, "    32-bit floating point")
	}
	writeInt(&sb, "NAXIS", len(fits.Naxisn), "[1] Number of axis")
	for i := 0; i < len(fits.Naxisn); i++ {
		writeInt(&sb, fmt.Sprintf("NAXIS%d", i+1), fits.Naxisn[i], "[1] Axis size")
	}
	for _, c := range fits.headerCards() {
		writeCard(&sb, c)
	}
	writeEnd(&sb)
	padHeader(&sb)

	// Write header block(s)
	_, err := f.Write([]byte(sb.String()))
	if err != nil {
		return err
	}

	if fits.Labels != nil {
		if err := writeInt32Array(f, fits.Labels); err != nil {
			return err
		}
		return writePadding(f, len(fits.Labels)*4)
	}
	if err := writeFloat32Array(f, fits.Data); err != nil {
		return err
	}
	return writePadding(f, len(fits.Data)*4)
}

// Returns the WCS related keywords of the header, such that they survive a write
func (fits *Image) headerCards() []Card {
	cards := []Card{}
	for i := 1; i <= len(fits.Naxisn); i++ {
		for _, k := range []string{"CTYPE", "CUNIT"} {
			key := fmt.Sprintf("%s%d", k, i)
			if v, ok := fits.Header.String(key); ok {
				cards = append(cards, Card{key, v, ""})
			}
		}
		for _, k := range []string{"CRPIX", "CRVAL", "CDELT"} {
			key := fmt.Sprintf("%s%d", k, i)
			if v, ok := fits.Header.Float(key); ok {
				cards = append(cards, Card{key, v, ""})
			}
		}
		for j := 1; j <= len(fits.Naxisn); j++ {
			for _, k := range []string{"CD", "PC"} {
				key := fmt.Sprintf("%s%d_%d", k, i, j)
				if v, ok := fits.Header.Float(key); ok {
					cards = append(cards, Card{key, v, ""})
				}
			}
		}
	}
	return cards
}

// Writes a header card, picking the formatting from its value type
func writeCard(w io.Writer, c Card) {
	switch v := c.Value.(type) {
	case bool:
		writeBool(w, c.Key, v, c.Comment)
	case int:
		writeInt(w, c.Key, v, c.Comment)
	case int32:
		writeInt(w, c.Key, int(v), c.Comment)
	case int64:
		writeInt(w, c.Key, int(v), c.Comment)
	case float32:
		writeFloat(w, c.Key, float64(v), c.Comment)
	case float64:
		writeFloat(w, c.Key, v, c.Comment)
	case string:
		writeString(w, c.Key, v, c.Comment)
	default:
		writeString(w, c.Key, fmt.Sprintf("%v", v), c.Comment)
	}
}

// Writes a FITS header boolean value
func writeBool(w io.Writer, key string, value bool, comment string) {
	if len(key) > 8 {
		key = key[0:8]
	}
	if len(comment) > 47 {
		comment = comment[0:47]
	}
	v := "F"
	if value {
		v = "T"
	}
	fmt.Fprintf(w, "%-8s= %20s / %-47s", key, v, comment)
}

// Writes a FITS header integer value
func writeInt(w io.Writer, key string, value int, comment string) {
	if len(key) > 8 {
		key = key[0:8]
	}
	if len(comment) > 47 {
		comment = comment[0:47]
	}
	fmt.Fprintf(w, "%-8s= %20d / %-47s", key, value, comment)
}

// Writes a FITS header floating point value. Always carries a decimal point or exponent,
// so readers do not mistake it for an integer
func writeFloat(w io.Writer, key string, value float64, comment string) {
	if len(key) > 8 {
		key = key[0:8]
	}
	if len(comment) > 47 {
		comment = comment[0:47]
	}
	s := strings.ToUpper(fmt.Sprintf("%.13G", value))
	if !strings.ContainsAny(s, ".EN") {
		s += "."
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		// not representable as a FITS number
		writeString(w, key, s, comment)
		return
	}
	fmt.Fprintf(w, "%-8s= %20s / %-47s", key, s, comment)
}

// Writes a FITS header string value, with escaping and continuations if necessary.
func writeString(w io.Writer, key, value, comment string) {
	if len(key) > 8 {
		key = key[0:8]
	}
	if len(comment) > 47 {
		comment = comment[0:47]
	}

	// escape ' characters
	value = strings.Join(strings.Split(value, "'"), "''")

	if len(value) <= 18 {
		fmt.Fprintf(w, "%-8s= '%s'%s / %-47s", key, value, strings.Repeat(" ", 18-len(value)), comment)
	} else if len(value) <= 68 {
		fmt.Fprintf(w, "%-8s= '%s'%s", key, value, strings.Repeat(" ", 68-len(value)))
	} else {
		fmt.Fprintf(w, "%-8s= '%s&'", key, value[0:67])
		value = value[67:]
		for len(value) > 67 {
			fmt.Fprintf(w, "CONTINUE  '%s&'", value[0:67])
			value = value[67:]
		}
		fmt.Fprintf(w, "CONTINUE  '%s'%s", value, strings.Repeat(" ", 68-len(value)))
	}
}

// Writes a FITS header end record
func writeEnd(w io.Writer) {
	fmt.Fprintf(w, "END%s", strings.Repeat(" ", 80-3))
}

// Pads current header block with spaces if necessary
func padHeader(sb *strings.Builder) {
	bytesInHeaderBlock := (sb.Len() % fitsBlockSize)
	if bytesInHeaderBlock > 0 {
		for i := bytesInHeaderBlock; i < fitsBlockSize; i++ {
			sb.WriteRune(' ')
		}
	}
}

// Pads a data unit of the given length with zeros to the next block boundary
func writePadding(w io.Writer, length int) error {
	rem := length % fitsBlockSize
	if rem == 0 {
		return nil
	}
	_, err := w.Write(make([]byte, fitsBlockSize-rem))
	return err
}

// Writes FITS binary body data in network byte order.
func writeFloat32Array(w io.Writer, data []float32) error {
	buf := make([]byte, bufLen)

	for block := 0; block < len(data); block += (bufLen >> 2) {
		size := len(data) - block
		if size > (bufLen >> 2) {
			size = (bufLen >> 2)
		}

		for offset := 0; offset < size; offset++ {
			val := math.Float32bits(data[block+offset])
			buf[(offset<<2)+0] = byte(val >> 24)
			buf[(offset<<2)+1] = byte(val >> 16)
			buf[(offset<<2)+2] = byte(val >> 8)
			buf[(offset<<2)+3] = byte(val)
		}
		_, err := w.Write(buf[:(size << 2)])
		if err != nil {
			return err
		}
	}
	return nil
}

// Writes FITS binary body data in network byte order.
func writeInt32Array(w io.Writer, data []int32) error {
	buf := make([]byte, bufLen)

	for block := 0; block < len(data); block += (bufLen >> 2) {
		size := len(data) - block
		if size > (bufLen >> 2) {
			size = (bufLen >> 2)
		}

		for offset := 0; offset < size; offset++ {
			val := uint32(data[block+offset])
			buf[(offset<<2)+0] = byte(val >> 24)
			buf[(offset<<2)+1] = byte(val >> 16)
			buf[(offset<<2)+2] = byte(val >> 8)
			buf[(offset<<2)+3] = byte(val)
		}
		_, err := w.Write(buf[:(size << 2)])
		if err != nil {
			return err
		}
	}
	return nil
}
