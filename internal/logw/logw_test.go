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

package logw

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"testing"
)

func TestTee(t *testing.T) {
	out := bytes.Buffer{}
	w := New(&out)
	w.Printf("before %d\n", 1)
	name := filepath.Join(t.TempDir(), "run.log")
	if err := w.AlsoToFile(name); err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	w.Printf("after %d\n", 2)
	if err := w.Sync(); err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	w.Printf("closed\n")

	if got := out.String(); got != "before 1\nafter 2\nclosed\n" {
		t.Errorf("stream got %q", got)
	}
	bytes, err := ioutil.ReadFile(name)
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	if string(bytes) != "after 2\n" {
		t.Errorf("file got %q; want %q", bytes, "after 2\n")
	}
}

func TestFileName(t *testing.T) {
	tests := []struct{ log, out, want string }{
		{AutoName, "cat.fits", "cat.log"},
		{AutoName, "dir/cat.txt", "dir/cat.log"},
		{AutoName, "", "mkcatalog.log"},
		{"run.log", "cat.fits", "run.log"},
	}
	for _, test := range tests {
		if got := FileName(test.log, test.out); got != test.want {
			t.Errorf("FileName(%q, %q) got %q; want %q", test.log, test.out, got, test.want)
		}
	}
}
