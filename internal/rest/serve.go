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

// Package rest exposes the column registry and catalog runs on server-side files over HTTP.
package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/DeadSpheroid/gnuastro-sub000/internal/catalog"
	"github.com/DeadSpheroid/gnuastro-sub000/internal/load"
	"github.com/DeadSpheroid/gnuastro-sub000/internal/table"
	"github.com/gin-gonic/gin"
)

// Listens and serves on the given address, e.g. ":8080"
func Serve(addr string, c *catalog.Context) error {
	return NewRouter(c).Run(addr)
}

// Creates the router of the API. Catalog runs share the memory budget and
// thread limit of the given context
func NewRouter(c *catalog.Context) *gin.Engine {
	s := &server{c: c}
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.GET("/columns", getColumns)
			v1.POST("/catalog", s.postCatalog)
		}
	}
	return r
}

type server struct {
	c *catalog.Context
}

func getPing(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "pong",
	})
}

// Registry entry as listed by the API
type columnInfo struct {
	Option     string   `json:"option"`
	Name       string   `json:"name"`
	Unit       string   `json:"unit"`
	Doc        string   `json:"doc"`
	ObjectType string   `json:"objectType,omitempty"`
	ClumpType  string   `json:"clumpType,omitempty"`
	Dim        string   `json:"dim"`
	Vector     bool     `json:"vector,omitempty"`
	Requires   []string `json:"requires,omitempty"`
}

func getColumns(c *gin.Context) {
	defs := catalog.Columns()
	infos := make([]columnInfo, len(defs))
	for i, d := range defs {
		infos[i] = columnInfo{Option: d.Option, Name: d.Name, Unit: d.Unit, Doc: d.Doc,
			Dim: d.Dim.String(), Vector: d.Vector, Requires: d.Requirements()}
		if d.ObjType != catalog.TypeNone {
			infos[i].ObjectType = d.ObjType.String()
		}
		if d.ClumpType != catalog.TypeNone {
			infos[i].ClumpType = d.ClumpType.String()
		}
	}
	c.JSON(http.StatusOK, infos)
}

func printArgs(logWriter io.Writer, prefix, suffix string, args interface{}) error {
	m, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "%s%s%s", prefix, string(m), suffix)
	return nil
}

type postCatalogArgs struct {
	Files   load.Files       `json:"files"`
	Columns []string         `json:"columns"`
	Options *catalog.Options `json:"options"`
	Output  string           `json:"output"` // Server-side file name. Text tables are streamed back if empty
}

// Runs a catalog and streams the log as plain text, followed by the tables
// unless they are written to a server-side file
func (s *server) postCatalog(c *gin.Context) {
	logWriter := c.Writer
	args := postCatalogArgs{Options: catalog.DefaultOptions()}
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if args.Options == nil {
		args.Options = catalog.DefaultOptions()
	}

	header := logWriter.Header()
	header.Set("Content-Type", "text/plain")
	logWriter.WriteHeader(http.StatusOK)
	defer logWriter.Flush()

	if err := printArgs(logWriter, "Arguments:\n", "\n", args); err != nil {
		fmt.Fprintf(logWriter, "Error printing arguments: %s\n", err.Error())
		return
	}

	ctx := *s.c
	ctx.Log = logWriter
	in, err := args.Files.Load(args.Options.NoiseParams(), ctx.MaxThreads, logWriter)
	if err != nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
		return
	}
	cat, err := catalog.Run(c.Request.Context(), in, args.Columns, args.Options, &ctx)
	if err != nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
		return
	}
	tables := []*catalog.Table{cat.Objects}
	if cat.Clumps != nil {
		tables = append(tables, cat.Clumps)
	}
	if cat.Check != nil {
		tables = append(tables, cat.Check)
	}

	if args.Output == "" {
		for _, t := range tables {
			if err := table.WriteText(logWriter, t); err != nil {
				fmt.Fprintf(logWriter, "error: %s\n", err.Error())
				return
			}
		}
		return
	}
	written, err := table.WriteFile(args.Output, tables...)
	if err != nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
		return
	}
	fmt.Fprintf(logWriter, "Wrote %s\n", strings.Join(written, ", "))
}
