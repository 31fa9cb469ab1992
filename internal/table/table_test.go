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
	"bytes"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DeadSpheroid/gnuastro-sub000/internal/catalog"
)

func sampleTable() *catalog.Table {
	return &catalog.Table{Name: "OBJECTS", Rows: 2,
		Keywords: []catalog.Keyword{{Key: "ZEROPNT", Value: 22.5, Comment: "Zero point for magnitudes"}},
		Columns: []*catalog.Column{
			{Name: "OBJ_ID", Unit: "counter", Doc: "Object identifier.", Type: catalog.TypeInt32,
				Format: catalog.FormatInt, Width: 6, Int32: []int32{1, catalog.BlankInt32}},
			{Name: "X", Unit: "position", Doc: "Flux weighted center.", Type: catalog.TypeFloat64,
				Format: catalog.FormatFixed, Width: 10, Precision: 3, Float64: []float64{3.375, 12}},
			{Name: "SUM", Unit: "counts", Doc: "Sum of values.", Type: catalog.TypeFloat32,
				Format: catalog.FormatGeneral, Width: 10, Precision: 5, Float32: []float32{16, float32(math.NaN())}},
			{Name: "AREA-IN-SLICE", Unit: "counter", Doc: "Pixels per slice.", Type: catalog.TypeFloat32,
				Format: catalog.FormatGeneral, Width: 4, Precision: 3, VecLen: 2, Float32: []float32{1, 2, 3, 4}},
		}}
}

func TestWriteText(t *testing.T) {
	buf := bytes.Buffer{}
	if err := WriteText(&buf, sampleTable()); err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	want := []string{
		"# OBJECTS",
		"# ZEROPNT = 22.5 / Zero point for magnitudes",
		"# Column 1: OBJ_ID [counter,int32,-2147483648] Object identifier.",
		"# Column 2: X [position,float64,nan] Flux weighted center.",
		"# Column 3: SUM [counts,float32,nan] Sum of values.",
		"# Column 4: AREA-IN-SLICE(2) [counter,float32,nan] Pixels per slice.",
		"     1      3.375         16    1    2",
		"-2147483648     12.000        nan    3    4",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines; want %d:\n%s", len(lines), len(want), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d got %q; want %q", i, lines[i], want[i])
		}
	}
}

func TestWriteCSV(t *testing.T) {
	buf := bytes.Buffer{}
	if err := WriteCSV(&buf, sampleTable()); err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	want := "OBJ_ID,X,SUM,AREA-IN-SLICE_1,AREA-IN-SLICE_2\n1,3.375,16,1,2\n-2147483648,12.000,nan,3,4\n"
	if buf.String() != want {
		t.Errorf("got %q; want %q", buf.String(), want)
	}
}

func TestWriteFITS(t *testing.T) {
	check := &catalog.Table{Name: "UPPERLIMIT_CHECK", Rows: 2, Columns: []*catalog.Column{
		{Name: "STATUS", Type: catalog.TypeString, Format: catalog.FormatString, Width: 8,
			Strings: []string{"accepted", "overlap"}},
	}}
	buf := bytes.Buffer{}
	if err := WriteFITS(&buf, sampleTable(), check); err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	s := buf.String()
	for _, want := range []string{"NTABLES =                    2", "EXTNAME = 'OBJECTS'", "EXTNAME = 'UPPERLIMIT_CHECK'",
		"TFORM1  = '1J'", "TFORM2  = '1D'", "TFORM4  = '2E'", "TFORM1  = '8A'", "TDISP2  = 'F10.3'",
		"TNULL1  =          -2147483648", "ZEROPNT =                 22.5", "TUNIT3  = 'counts'"} {
		if !strings.Contains(s, want) {
			t.Errorf("output lacks %q", want)
		}
	}
	if buf.Len()%2880 != 0 {
		t.Errorf("length %d is not a multiple of the block size", buf.Len())
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	clumps := &catalog.Table{Name: "CLUMPS", Rows: 0}
	written, err := WriteFile(filepath.Join(dir, "cat.txt"), sampleTable(), clumps)
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	if len(written) != 2 || filepath.Base(written[1]) != "cat_clumps.txt" {
		t.Errorf("written got %v; want cat.txt and cat_clumps.txt", written)
	}
	bytes, err := ioutil.ReadFile(written[1])
	if err != nil || !strings.HasPrefix(string(bytes), "# CLUMPS") {
		t.Errorf("clump table got %q, %v", bytes, err)
	}

	written, err = WriteFile(filepath.Join(dir, "cat.fits"), sampleTable(), clumps)
	if err != nil || len(written) != 1 {
		t.Fatalf("fits got %v, %v; want one file", written, err)
	}
	if fi, err := os.Stat(written[0]); err != nil || fi.Size()%2880 != 0 {
		t.Errorf("unexpected fits file %v, %v", fi, err)
	}
}

func TestFormatFromFileName(t *testing.T) {
	tests := map[string]Format{"a.txt": FormatText, "a.CSV": FormatCSV, "a.fits": FormatFITS, "b.fit": FormatFITS, "c": FormatText}
	for name, want := range tests {
		if got := FormatFromFileName(name); got != want {
			t.Errorf("%s got %s; want %s", name, got, want)
		}
	}
}
