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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/DeadSpheroid/gnuastro-sub000/internal/catalog"
	"github.com/DeadSpheroid/gnuastro-sub000/internal/fits"
	"github.com/DeadSpheroid/gnuastro-sub000/internal/load"
	"github.com/DeadSpheroid/gnuastro-sub000/internal/logw"
	"github.com/DeadSpheroid/gnuastro-sub000/internal/rest"
	"github.com/DeadSpheroid/gnuastro-sub000/internal/table"
	"github.com/klauspost/cpuid"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var out = flag.String("out", "catalog.txt", "save output tables to `file`. Format follows the suffix: .txt, .csv or .fits")
var logName = flag.String("log", logw.AutoName, "save log output to `file`. `%auto` replaces suffix of output file with .log")
var preview = flag.String("preview", "", "save a TIFF preview of the object labels to `file`")
var config = flag.String("config", "", "load options from YAML `file`, command line flags take precedence")

var values = flag.String("values", "", "read pixel values from FITS `file`, also the first argument after the command")
var valuesHDU = flag.Int("hdu", 0, "header data unit of the values file")
var objects = flag.String("objects", "", "read object labels from FITS `file`, defaults to the values file")
var objectsHDU = flag.Int("objectsHDU", 1, "header data unit of the object labels")
var clumps = flag.String("clumps", "", "read clump labels from FITS `file`, blank for no clumps")
var clumpsHDU = flag.Int("clumpsHDU", 2, "header data unit of the clump labels")
var sky = flag.String("sky", "", "sky level, a FITS `file` or a constant")
var skyHDU = flag.Int("skyHDU", 0, "header data unit of the sky file")
var std = flag.String("std", "", "sky standard deviation, a FITS `file` or a constant")
var stdHDU = flag.Int("stdHDU", 0, "header data unit of the standard deviation file")
var valueUnit = flag.String("unit", "", "unit of the pixel values, blank for BUNIT of the values file")

var columns = flag.String("columns", "objid,x,y,sum,magnitude", "comma separated list of output columns, see the columns command")
var threads = flag.Int("threads", 0, "number of measurement threads, 0=number of logical cores")
var schedule = flag.String("schedule", "static", "work distribution across threads, static or dynamic")
var zeropoint = flag.Float64("zeropoint", 0, "magnitude zeropoint")
var fracMax = flag.String("fracmax", "", "comma separated fractions of the maximum for the fracmax columns, at most two")
var skySubtracted = flag.Bool("skysubtracted", false, "values are already sky subtracted, sky only enters the noise")
var upNum = flag.Int("upnum", 100, "number of accepted random placements for upper limits")
var upSigma = flag.Float64("upsigma", 3, "multiple of the one-sigma spread reported as upper limit")
var upSeed = flag.Int64("upseed", 1, "seed of the upper limit placements")
var checkID = flag.Int("checkid", 0, "tabulate the upper limit placements of this object, 0=none")
var quiet = flag.Bool("quiet", false, "do not log progress and warnings of the measurement")

var addr = flag.String("addr", "localhost:8080", "serve the REST API on this `address`")
var chroot = flag.String("chroot", "", "chroot into this directory before serving, blank for none")
var setuid = flag.Int("setuid", -1, "set user id after chroot before serving, -1 for none")

func main() {
	logWriter := logw.New(os.Stdout)
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(logWriter, `mkcatalog Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (catalog|columns|serve|legal|version) (values.fits)

Commands:
  catalog Measure the labelled objects and clumps of the input images
  columns List the available output columns
  serve   Serve the REST API
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	// Initialize logging to file in addition to stdout, if selected
	if args[0] == "catalog" || args[0] == "serve" {
		if name := logw.FileName(*logName, *out); name != "" {
			if err := logWriter.AlsoToFile(name); err != nil {
				logWriter.Fatalf("Unable to open logfile '%s'\n", name)
			}
		}
	}
	defer logWriter.Close()

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			logWriter.Fatalf("Could not create CPU profile: %s\n", err.Error())
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			logWriter.Fatalf("Could not start CPU profile: %s\n", err.Error())
		}
		defer pprof.StopCPUProfile()
	}

	var err error
	switch args[0] {
	case "catalog":
		fmt.Fprintf(logWriter, "Running on %s with %d logical cores\n", cpuid.CPU.BrandName, catalog.DefaultThreads())
		err = cmdCatalog(args[1:], logWriter)

	case "columns":
		err = cmdColumns(logWriter)

	case "serve":
		c := catalog.NewContext(logWriter)
		if err = rest.MakeSandbox(*chroot, *setuid, logWriter); err == nil {
			err = rest.Serve(*addr, c)
		}

	case "legal":
		cmdLegal(logWriter)

	case "version":
		fmt.Fprintf(logWriter, "Version %s\n", version)
		return

	case "help", "?":
		flag.Usage()
		return

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	if args[0] == "catalog" {
		fmt.Fprintf(logWriter, "\nDone after %v\n", time.Since(start))
	}

	// Store memory profile if flagged
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			logWriter.Fatalf("Could not create memory profile: %s\n", err.Error())
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			logWriter.Fatalf("Could not write allocation profile: %s\n", err.Error())
		}
	}

	if err != nil {
		logWriter.Fatalf("Error: %s\n", err.Error())
	}
	logWriter.Sync()
}

// Measure a catalog from the flagged inputs and write the result tables
func cmdCatalog(args []string, logWriter io.Writer) error {
	opts, err := options()
	if err != nil {
		return err
	}
	files := inputFiles(args)
	if files.Values == "" {
		return fmt.Errorf("no values file given")
	}

	c := catalog.NewContext(logWriter)
	if !opts.Quiet {
		fmt.Fprintf(logWriter, "Using %d of %d MiB memory. Options:\n%s\n", c.BudgetMB, c.MemoryMB, opts.String())
	}
	in, err := files.Load(opts.NoiseParams(), c.MaxThreads, logWriter)
	if err != nil {
		return err
	}
	if *preview != "" {
		labels := fits.NewLabelImageFromNaxisn(in.Naxisn, in.Objects)
		if err := labels.WriteLabelPreviewToFile(*preview); err != nil {
			return fmt.Errorf("writing preview %s: %s", *preview, err.Error())
		}
		fmt.Fprintf(logWriter, "Wrote label preview %s\n", *preview)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	cat, err := catalog.Run(ctx, in, splitList(*columns), opts, c)
	if err != nil {
		return err
	}
	catalog.ClearPools()

	tables := []*catalog.Table{cat.Objects}
	if cat.Clumps != nil {
		tables = append(tables, cat.Clumps)
	}
	if cat.Check != nil {
		tables = append(tables, cat.Check)
	}
	written, err := table.WriteFile(*out, tables...)
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "Wrote %s\n", strings.Join(written, ", "))
	return nil
}

// Collects the input files from the flags. The first argument overrides the values flag
func inputFiles(args []string) *load.Files {
	f := &load.Files{
		Values:     *values,
		ValuesHDU:  *valuesHDU,
		Objects:    *objects,
		ObjectsHDU: *objectsHDU,
		Clumps:     *clumps,
		ClumpsHDU:  *clumpsHDU,
		Sky:        *sky,
		SkyHDU:     *skyHDU,
		Std:        *std,
		StdHDU:     *stdHDU,
		ValueUnit:  *valueUnit,
	}
	if len(args) > 0 {
		f.Values = args[0]
	}
	return f
}

// Builds the options from the config file, if any, and the flags which were set explicitly
func options() (opts *catalog.Options, err error) {
	opts = catalog.DefaultOptions()
	if *config != "" {
		if opts, err = catalog.LoadOptions(*config); err != nil {
			return nil, err
		}
	}

	var errs []string
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "threads":
			if *threads > 0 {
				opts.Threads = *threads
			}
		case "schedule":
			opts.Schedule = catalog.Schedule(*schedule)
		case "zeropoint":
			opts.Zeropoint = *zeropoint
		case "skysubtracted":
			opts.SkySubtracted = *skySubtracted
		case "upnum":
			if opts.UpperLimit.FailureBudget == 10*opts.UpperLimit.NTries {
				opts.UpperLimit.FailureBudget = 10 * *upNum
			}
			opts.UpperLimit.NTries = *upNum
		case "upsigma":
			opts.UpperLimit.SigmaMultiple = *upSigma
		case "upseed":
			opts.UpperLimit.Seed = uint32(*upSeed)
		case "checkid":
			opts.UpperLimit.CheckID = *checkID
		case "quiet":
			opts.Quiet = *quiet
		case "fracmax":
			opts.FracMax = nil
			for _, s := range splitList(*fracMax) {
				v, err := strconv.ParseFloat(s, 64)
				if err != nil {
					errs = append(errs, fmt.Sprintf("fracmax: %s", err.Error()))
					continue
				}
				opts.FracMax = append(opts.FracMax, v)
			}
		}
	})
	if len(errs) > 0 {
		return nil, fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return opts, nil
}

// Splits a comma separated list, dropping blanks
func splitList(s string) []string {
	res := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, part)
		}
	}
	return res
}

// List the column registry
func cmdColumns(logWriter io.Writer) error {
	w := tabwriter.NewWriter(logWriter, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Option\tName\tUnit\tObjects\tClumps\tRequires\tDescription\n")
	for _, d := range catalog.Columns() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", d.Option, d.Name, d.Unit,
			availability(d.ObjType), availability(d.ClumpType), strings.Join(d.Requirements(), ","), d.Doc)
	}
	return w.Flush()
}

func availability(t catalog.DataType) string {
	if t == catalog.TypeNone {
		return "-"
	}
	return t.String()
}
