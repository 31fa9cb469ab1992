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
	"compress/gzip"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"
)

var reParser *regexp.Regexp = compileRE() // Regexp parser for FITS header lines

// How to store the pixel data of an image
type ReadMode int

const (
	ReadValues ReadMode = iota // float32 values in Data, blanks as NaN
	ReadLabels                 // int32 labels in Labels, blanks as 0
)

// Reads the given header data unit of a FITS file, counting from 0 for the primary HDU.
// Decompresses gzip if .gz or .gzip suffix is present.
func NewImageFromFile(fileName string, hdu int, mode ReadMode, id int, logWriter io.Writer) (i *Image, err error) {
	i = NewImage()
	i.ID = id
	return i, i.ReadFile(fileName, hdu, mode, logWriter)
}

// Read FITS data from the file with the given name. Decompresses gzip if .gz or gzip suffix is present.
func (fits *Image) ReadFile(fileName string, hdu int, mode ReadMode, logWriter io.Writer) error {
	f, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f

	fits.FileName = fileName
	ext := path.Ext(fileName)
	lExt := strings.ToLower(ext)

	if lExt == ".gz" || lExt == ".gzip" {
		// Decompress gzip if .gz or .gzip suffix is present
		r, err = gzip.NewReader(f)
		if err != nil {
			return err
		}
	}

	for i := 0; i < hdu; i++ {
		if err := skipHDU(r, fits.ID, logWriter); err != nil {
			return fmt.Errorf("%d: skipping HDU %d of %s: %s", fits.ID, i, fileName, err.Error())
		}
	}
	return fits.Read(r, mode, logWriter)
}

// Skips over one header data unit, including the padding of its data
func skipHDU(r io.Reader, id int, logWriter io.Writer) error {
	h := NewHeader()
	if err := h.read(r, id, logWriter); err != nil {
		return err
	}
	bitpix, naxis := h.Ints["BITPIX"], h.Ints["NAXIS"]
	size := int64(0)
	if naxis > 0 {
		size = 1
		for i := int64(1); i <= naxis; i++ {
			size *= h.Ints["NAXIS"+strconv.FormatInt(i, 10)]
		}
	}
	gcount, ok := h.Ints["GCOUNT"]
	if !ok {
		gcount = 1
	}
	bytes := (absInt64(bitpix) / 8) * gcount * (h.Ints["PCOUNT"] + size)
	if rem := bytes % int64(fitsBlockSize); rem != 0 {
		bytes += int64(fitsBlockSize) - rem
	}
	_, err := io.CopyN(io.Discard, r, bytes)
	return err
}

func absInt64(a int64) int64 {
	if a < 0 {
		return -a
	}
	return a
}

func (fits *Image) PopHeaderInt(key string) (res int64, err error) {
	if val, ok := fits.Header.Ints[key]; ok {
		delete(fits.Header.Ints, key)
		return val, nil
	}
	return 0, fmt.Errorf("%d: FITS header does not contain key %s", fits.ID, key)
}

func (fits *Image) PopHeaderIntOrFloat(key string) (res float64, err error) {
	if val, ok := fits.Header.Ints[key]; ok {
		delete(fits.Header.Ints, key)
		return float64(val), nil
	} else if val, ok := fits.Header.Floats[key]; ok {
		delete(fits.Header.Floats, key)
		return val, nil
	}
	return 0, fmt.Errorf("%d: FITS header does not contain key %s", fits.ID, key)
}

func (fits *Image) Read(f io.Reader, mode ReadMode, logWriter io.Writer) (err error) {
	err = fits.Header.read(f, fits.ID, logWriter)
	if err != nil {
		return err
	}

	// check mandatory fields as per standard
	if fits.Header.Bools["SIMPLE"] {
		delete(fits.Header.Bools, "SIMPLE")
	} else if xt, ok := fits.Header.String("XTENSION"); ok && xt == "IMAGE" {
		delete(fits.Header.Strings, "XTENSION")
	} else {
		return fmt.Errorf("%d: Not a FITS image; neither SIMPLE=T nor XTENSION='IMAGE' in header", fits.ID)
	}

	var bitpix int64
	if bitpix, err = fits.PopHeaderInt("BITPIX"); err != nil {
		return err
	}
	fits.Bitpix = int32(bitpix)
	var naxis int64
	if naxis, err = fits.PopHeaderInt("NAXIS"); err != nil {
		return err
	}
	if naxis == 0 {
		return fmt.Errorf("%d: HDU holds no image data, NAXIS=0", fits.ID)
	}
	fits.Naxisn = make([]int, naxis)
	fits.Pixels = 1
	for i := int64(1); i <= naxis; i++ {
		name := "NAXIS" + strconv.FormatInt(i, 10)
		var nai int64
		if nai, err = fits.PopHeaderInt(name); err != nil {
			return err
		}
		fits.Naxisn[i-1] = int(nai)
		fits.Pixels *= int(nai)
	}

	if fits.Bzero, err = fits.PopHeaderIntOrFloat("BZERO"); err != nil {
		fits.Bzero = 0
	}
	if fits.Bscale, err = fits.PopHeaderIntOrFloat("BSCALE"); err != nil {
		fits.Bscale = 1
	}
	return fits.readData(f, mode, logWriter)
}

const bufLen int = 16 * 1024 // input buffer length for reading from file

// Batched read of image data, converting from network byte order and applying Bzero and Bscale.
// Integer pixels equal to the BLANK keyword become NaN values or zero labels.
func (fits *Image) readData(r io.Reader, mode ReadMode, logWriter io.Writer) error {
	bytesPerValue := 0
	switch fits.Bitpix {
	case 8, 16, 32, 64, -32, -64:
		bytesPerValue = int(absInt64(int64(fits.Bitpix))) / 8
	default:
		return fmt.Errorf("%d: Unknown BITPIX value %d", fits.ID, fits.Bitpix)
	}
	if mode == ReadLabels && fits.Bitpix < 0 {
		return fmt.Errorf("%d: Label image must have integer pixels, found BITPIX %d", fits.ID, fits.Bitpix)
	}
	if mode == ReadValues && (fits.Bitpix == 32 || fits.Bitpix == 64 || fits.Bitpix == -64) {
		fmt.Fprintf(logWriter, "%d: Warning: loss of precision converting BITPIX %d to float32 values\n", fits.ID, fits.Bitpix)
	}
	blank, hasBlank := fits.Header.Ints["BLANK"]
	hasBlank = hasBlank && fits.Bitpix > 0

	if mode == ReadValues {
		fits.Data = make([]float32, fits.Pixels)
	} else {
		fits.Labels = make([]int32, fits.Pixels)
	}
	buf := make([]byte, bufLen)

	dataIndex := 0
	leftoverBytes := 0
	badLabels := 0
	for dataIndex < fits.Pixels {
		bytesToRead := (fits.Pixels-dataIndex)*bytesPerValue - leftoverBytes
		if bytesToRead > bufLen-leftoverBytes {
			bytesToRead = bufLen - leftoverBytes
		}
		bytesRead, err := r.Read(buf[leftoverBytes : leftoverBytes+bytesToRead])
		if err != nil && !(err == io.EOF && bytesRead > 0) {
			return fmt.Errorf("%d: %s", fits.ID, err.Error())
		}

		availableBytes := leftoverBytes + bytesRead
		numValues := availableBytes / bytesPerValue
		for i := 0; i < numValues; i++ {
			b := buf[i*bytesPerValue : (i+1)*bytesPerValue]
			if fits.Bitpix < 0 {
				v := decodeFloat(b, fits.Bitpix)*fits.Bscale + fits.Bzero
				fits.Data[dataIndex+i] = float32(v)
				continue
			}
			raw := decodeInt(b, fits.Bitpix)
			isBlank := hasBlank && raw == blank
			if mode == ReadValues {
				if isBlank {
					fits.Data[dataIndex+i] = float32(math.NaN())
				} else {
					fits.Data[dataIndex+i] = float32(float64(raw)*fits.Bscale + fits.Bzero)
				}
				continue
			}
			label := int64(0)
			if !isBlank {
				label = int64(math.Round(float64(raw)*fits.Bscale + fits.Bzero))
			}
			if label > math.MaxInt32 || label < math.MinInt32 {
				badLabels++
				label = 0
			}
			fits.Labels[dataIndex+i] = int32(label)
		}
		dataIndex += numValues
		leftoverBytes = availableBytes - numValues*bytesPerValue
		copy(buf, buf[numValues*bytesPerValue:availableBytes])
	}
	if badLabels > 0 {
		fmt.Fprintf(logWriter, "%d: Warning: %d labels outside int32 range set to 0\n", fits.ID, badLabels)
	}
	fits.Bzero, fits.Bscale = 0, 1 // reflect that data values incorporate these now
	return nil
}

// Decodes a big endian two's complement integer. Eight bit values are unsigned as per standard
func decodeInt(b []byte, bitpix int32) int64 {
	switch bitpix {
	case 8:
		return int64(b[0])
	case 16:
		return int64(int16((uint16(b[0]) << 8) | uint16(b[1])))
	case 32:
		return int64(int32((uint32(b[0]) << 24) | (uint32(b[1]) << 16) | (uint32(b[2]) << 8) | (uint32(b[3]))))
	default:
		return int64((uint64(b[0]) << 56) | (uint64(b[1]) << 48) | (uint64(b[2]) << 40) | (uint64(b[3]) << 32) |
			(uint64(b[4]) << 24) | (uint64(b[5]) << 16) | (uint64(b[6]) << 8) | (uint64(b[7])))
	}
}

// Decodes a big endian IEEE floating point value
func decodeFloat(b []byte, bitpix int32) float64 {
	if bitpix == -32 {
		bits := ((uint32(b[0])) << 24) | (uint32(b[1]) << 16) | (uint32(b[2]) << 8) | (uint32(b[3]))
		return float64(math.Float32frombits(bits))
	}
	bits := ((uint64(b[0]) << 56) | (uint64(b[1]) << 48) | (uint64(b[2]) << 40) | (uint64(b[3]) << 32) |
		(uint64(b[4]) << 24) | (uint64(b[5]) << 16) | (uint64(b[6]) << 8) | (uint64(b[7])))
	return math.Float64frombits(bits)
}

func (h *Header) read(r io.Reader, id int, logWriter io.Writer) error {
	buf := make([]byte, fitsBlockSize)

	for h.Length = 0; !h.End; {
		// read next header unit
		bytesRead, err := io.ReadFull(r, buf)
		if err != nil || bytesRead != fitsBlockSize {
			return fmt.Errorf("%d: %s", id, err.Error())
		}
		h.Length += int32(bytesRead)

		// parse all lines in this header unit
		for lineNo := 0; lineNo < fitsBlockSize/HeaderLineSize && !h.End; lineNo++ {
			line := buf[lineNo*HeaderLineSize : (lineNo+1)*HeaderLineSize]
			subValues := reParser.FindSubmatch(line)
			if subValues == nil {
				fmt.Fprintf(logWriter, "%d: Warning:Cannot parse '%s', ignoring\n", id, string(line))
			} else {
				subNames := reParser.SubexpNames()
				h.readLine(subNames, subValues, id, lineNo, logWriter)
			}
		}
	}
	return nil
}

func (h *Header) readLine(subNames []string, subValues [][]byte, id, lineNo int, logWriter io.Writer) {
	key := ""
	// ignore index 0 which is the whole line
	for i := 1; i < len(subNames); i++ {
		if subValues[i] != nil && len(subNames[i]) == 1 {
			switch c := subNames[i][0]; c {
			case byte('E'): // end line
				h.End = true
			case byte('H'): // history line
				h.History = append(h.History, string(subValues[i]))
			case byte('C'): // comment line
				h.Comments = append(h.Comments, string(subValues[i]))
			case byte('k'): // key
				key = string(subValues[i])
			case byte('b'): // boolean
				if len(subValues[i]) > 0 {
					v := subValues[i][0]
					h.Bools[key] = v == byte('t') || v == byte('T')
				}
			case byte('i'): // int
				val, err := strconv.ParseInt(string(subValues[i]), 10, 64)
				if err == nil {
					h.Ints[key] = val
				}
			case byte('f'): // float
				val, err := strconv.ParseFloat(strings.Replace(string(subValues[i]), "D", "E", 1), 64)
				if err == nil {
					h.Floats[key] = val
				}
			case byte('s'): // string
				h.Strings[key] = string(subValues[i])
			case byte('d'): // date
				h.Dates[key] = string(subValues[i])
			case byte('c'): // comment
				// ignore value comments
			default:
				fmt.Fprintf(logWriter, "%d:%d:Warning:Unknown token '%s'\n", id, lineNo, string(c))
			}
		}
	}
}

// Build regexp parser for FITS header lines
func compileRE() *regexp.Regexp {
	white := "\\s+"
	whiteOpt := "\\s*"
	whiteLine := white

	hist := "HISTORY"
	rest := ".*"
	histLine := hist + white + "(?P<H>" + rest + ")"

	commKey := "COMMENT"
	commLine := commKey + white + "(?P<C>" + rest + ")"

	end := "(?P<E>END)"
	endLine := end + whiteOpt

	key := "(?P<k>[A-Z0-9_-]+)"
	equals := "="

	boo := "(?P<b>[TF])"
	inte := "(?P<i>[+-]?[0-9]+)"
	floa := "(?P<f>[+-]?(?:[0-9]*\\.[0-9]*|[0-9]+)(?:[ED][-+]?[0-9]+)?)"
	stri := "'(?P<s>[^']*)'"
	date := "(?P<d>[0-9]{1,4}-?[012][0-9]-?[0123][0-9]T[012][0-9]:?[0-5][0-9]:?[0-5][0-9].?[0-9]*)" // FIXME: other variants possible, see ISO8601
	val := "(?:" + boo + "|" + inte + "|" + floa + "|" + stri + "|" + date + ")"

	// missing: CONTINUE for strings
	// missing: complex int: (nr, nr)
	// missing: complex float: (nr, nr)

	commOpt := "(?:/(?P<c>.*))?"
	keyLine := key + whiteOpt + equals + whiteOpt + val + whiteOpt + commOpt

	lineRe := "^(?:" + whiteLine + "|" + histLine + "|" + commLine + "|" + keyLine + "|" + endLine + ")$"
	return regexp.MustCompile(lineRe)
}
