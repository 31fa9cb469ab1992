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

package rest

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DeadSpheroid/gnuastro-sub000/internal/catalog"
	"github.com/DeadSpheroid/gnuastro-sub000/internal/fits"
	"github.com/gin-gonic/gin"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(&catalog.Context{Log: ioutil.Discard, MaxThreads: 2})
}

func TestGetColumns(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/columns", nil)
	testRouter().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status got %d; want %d", w.Code, http.StatusOK)
	}
	var infos []columnInfo
	if err := json.Unmarshal(w.Body.Bytes(), &infos); err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	defs := catalog.Columns()
	if len(infos) != len(defs) {
		t.Fatalf("got %d columns; want %d", len(infos), len(defs))
	}
	for i, d := range defs {
		if infos[i].Option != d.Option || infos[i].Name != d.Name {
			t.Errorf("entry %d got %s/%s; want %s/%s", i, infos[i].Option, infos[i].Name, d.Option, d.Name)
		}
	}
}

func writeInputs(t *testing.T) (dir, values, labels string) {
	t.Helper()
	dir = t.TempDir()
	v := fits.NewImageFromNaxisn([]int{5, 5}, nil)
	l := fits.NewLabelImageFromNaxisn([]int{5, 5}, nil)
	for i := range v.Data {
		v.Data[i] = 1
		if i%5 < 2 {
			l.Labels[i] = 1
		}
	}
	values, labels = filepath.Join(dir, "values.fits"), filepath.Join(dir, "labels.fits")
	if err := v.WriteFile(values); err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	if err := l.WriteFile(labels); err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	return dir, values, labels
}

func postCatalog(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/catalog", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	testRouter().ServeHTTP(w, req)
	return w
}

func TestPostCatalogStreamsTable(t *testing.T) {
	_, values, labels := writeInputs(t)
	body := `{"files":{"values":"` + values + `","objects":"` + labels + `"},"columns":["objid","area","sum"],"options":{"threads":1}}`
	w := postCatalog(t, body)
	if w.Code != http.StatusOK {
		t.Fatalf("status got %d; want %d", w.Code, http.StatusOK)
	}
	out := w.Body.String()
	for _, want := range []string{"Arguments:", "# Column 2: AREA", "     1     10         10"} {
		if !strings.Contains(out, want) {
			t.Errorf("response lacks %q:\n%s", want, out)
		}
	}
}

func TestPostCatalogToFile(t *testing.T) {
	dir, values, labels := writeInputs(t)
	output := filepath.Join(dir, "cat.fits")
	body := `{"files":{"values":"` + values + `","objects":"` + labels + `"},"columns":["area"],"output":"` + output + `"}`
	w := postCatalog(t, body)
	if !strings.Contains(w.Body.String(), "Wrote "+output) {
		t.Errorf("response lacks confirmation:\n%s", w.Body.String())
	}
	if _, err := os.Stat(output); err != nil {
		t.Errorf("output not written: %s", err)
	}
}

func TestPostCatalogErrors(t *testing.T) {
	if w := postCatalog(t, `{"columns":`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed body got status %d; want %d", w.Code, http.StatusBadRequest)
	}
	_, values, labels := writeInputs(t)
	w := postCatalog(t, `{"files":{"values":"`+values+`","objects":"`+labels+`"},"columns":["nosuchcolumn"]}`)
	if !strings.Contains(w.Body.String(), "error: configuration: nosuchcolumn") {
		t.Errorf("response lacks configuration error:\n%s", w.Body.String())
	}
}
