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
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestImageRoundTrip(t *testing.T) {
	naxisn := []int{7, 5}
	img := NewImageFromNaxisn(naxisn, nil)
	for i := range img.Data {
		img.Data[i] = float32(i) * 0.25
	}
	img.Data[3] = float32(math.NaN())
	img.Header.Strings["CTYPE1"] = "RA---TAN"
	img.Header.Floats["CRPIX1"] = 3.5
	img.Header.Floats["CD1_1"] = -2.5e-4

	buf := bytes.Buffer{}
	if err := img.Write(&buf); err != nil {
		t.Fatalf("write: %s", err)
	}
	if buf.Len()%fitsBlockSize != 0 {
		t.Errorf("file length %d is not a multiple of %d", buf.Len(), fitsBlockSize)
	}

	back := NewImage()
	if err := back.Read(&buf, ReadValues, &bytes.Buffer{}); err != nil {
		t.Fatalf("read: %s", err)
	}
	if back.DimensionsToString() != "7x5" {
		t.Errorf("dimensions got %s; want 7x5", back.DimensionsToString())
	}
	for i, v := range img.Data {
		w := back.Data[i]
		if v != w && !(math.IsNaN(float64(v)) && math.IsNaN(float64(w))) {
			t.Errorf("pixel %d got %g; want %g", i, w, v)
		}
	}
	if s, _ := back.Header.String("CTYPE1"); s != "RA---TAN" {
		t.Errorf("CTYPE1 got '%s'", s)
	}
	if v, _ := back.Header.Float("CRPIX1"); v != 3.5 {
		t.Errorf("CRPIX1 got %g", v)
	}
	if v, _ := back.Header.Float("CD1_1"); v != -2.5e-4 {
		t.Errorf("CD1_1 got %g", v)
	}
}

func TestLabelRoundTrip(t *testing.T) {
	img := NewLabelImageFromNaxisn([]int{4, 3, 2}, nil)
	for i := range img.Labels {
		img.Labels[i] = int32(i % 5)
	}
	img.Labels[7] = -1
	buf := bytes.Buffer{}
	if err := img.Write(&buf); err != nil {
		t.Fatalf("write: %s", err)
	}
	back := NewImage()
	if err := back.Read(&buf, ReadLabels, &bytes.Buffer{}); err != nil {
		t.Fatalf("read: %s", err)
	}
	if back.Pixels != 24 || len(back.Labels) != 24 {
		t.Fatalf("got %d pixels", back.Pixels)
	}
	for i, v := range img.Labels {
		if back.Labels[i] != v {
			t.Errorf("label %d got %d; want %d", i, back.Labels[i], v)
		}
	}
}

func TestLabelsRejectFloatImage(t *testing.T) {
	img := NewImageFromNaxisn([]int{2, 2}, nil)
	buf := bytes.Buffer{}
	if err := img.Write(&buf); err != nil {
		t.Fatalf("write: %s", err)
	}
	back := NewImage()
	if err := back.Read(&buf, ReadLabels, &bytes.Buffer{}); err == nil {
		t.Errorf("expected error reading float pixels as labels")
	}
}

func TestWriteTable(t *testing.T) {
	cols := []TableColumn{
		{Name: "OBJ_ID", Int32: []int32{1, 2, 3}, Disp: "I6"},
		{Name: "SUM", Unit: "counts", Float32: []float32{1.5, 2.5, 3.5}},
		{Name: "RA", Unit: "deg", Float64: []float64{10, 20, 30}},
		{Name: "AREA-IN-SLICE", Repeat: 2, Float32: []float32{1, 2, 3, 4, 5, 6}},
	}
	buf := bytes.Buffer{}
	if err := WriteTable(&buf, "OBJECTS", 3, cols, []Card{{"ZEROPNT", 22.5, "zero point"}}); err != nil {
		t.Fatalf("write: %s", err)
	}
	hdr := buf.String()[:fitsBlockSize]
	for _, want := range []string{"XTENSION= 'BINTABLE'", "NAXIS1  =                   24", "NAXIS2  =                    3",
		"TFIELDS =                    4", "TFORM1  = '1J'", "TFORM4  = '2E'", "TTYPE2  = 'SUM'", "TUNIT3  = 'deg'",
		"EXTNAME = 'OBJECTS'", "ZEROPNT =                 22.5"} {
		if !strings.Contains(hdr, want) {
			t.Errorf("table header lacks %q", want)
		}
	}
	if buf.Len() != 2*fitsBlockSize {
		t.Errorf("table length got %d; want %d", buf.Len(), 2*fitsBlockSize)
	}
	data := buf.Bytes()[fitsBlockSize:]
	if data[3] != 1 || data[24+3] != 2 {
		t.Errorf("unexpected OBJ_ID encoding % x", data[:8])
	}
}

func TestLabelPreview(t *testing.T) {
	img := NewLabelImageFromNaxisn([]int{8, 8}, nil)
	for i := range img.Labels {
		img.Labels[i] = int32(i / 16)
	}
	buf := bytes.Buffer{}
	if err := img.WriteLabelPreview(&buf); err != nil {
		t.Fatalf("preview: %s", err)
	}
	if buf.Len() == 0 {
		t.Errorf("empty preview")
	}
	if c1, c2 := labelColor(1), labelColor(2); c1 == c2 {
		t.Errorf("labels 1 and 2 share color %v", c1)
	}
}
