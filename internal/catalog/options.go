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

package catalog

import (
	"fmt"
	"io"
	"io/ioutil"
	"math"
	"runtime"

	"github.com/DeadSpheroid/gnuastro-sub000/internal/noise"
	"github.com/DeadSpheroid/gnuastro-sub000/internal/stats"
	"github.com/klauspost/cpuid"
	"github.com/pbnjay/memory"
	"gopkg.in/yaml.v2"
)

// An execution context for catalog runs
type Context struct {
	Log        io.Writer
	MemoryMB   int // memory.TotalMemory()/1024/1024
	BudgetMB   int // MemoryMB*7/10, upper bound for the planned allocations
	MaxThreads int `json:"maxThreads"`
}

func NewContext(log io.Writer) *Context {
	memoryMB := int(memory.TotalMemory() / 1024 / 1024)
	return &Context{
		Log:        log,
		MemoryMB:   memoryMB,
		BudgetMB:   memoryMB * 7 / 10,
		MaxThreads: DefaultThreads(),
	}
}

// Returns the number of logical cores, or the Go runtime's CPU count if undetected
func DefaultThreads() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Work distribution across the measurement goroutines
type Schedule string

const (
	ScheduleStatic  Schedule = "static"  // Near-equal contiguous chunks of object IDs
	ScheduleDynamic Schedule = "dynamic" // One object ID per pop from a shared counter
)

// Upper limit sampler settings
type UpperLimitOptions struct {
	NTries           int              `json:"nTries"           yaml:"nTries"`           // Accepted placements per label
	SigmaMultiple    float64          `json:"sigmaMultiple"    yaml:"sigmaMultiple"`    // Multiple of the one-sigma spread for UPPERLIMIT
	FailureBudget    int              `json:"failureBudget"    yaml:"failureBudget"`    // Rejected placements tolerated per label
	BlankFractionMax float64          `json:"blankFractionMax" yaml:"blankFractionMax"` // Largest tolerated blank fraction of a placement
	Seed             uint32           `json:"seed"             yaml:"seed"`
	SigmaClip        stats.ClipParams `json:"sigmaClip"        yaml:"sigmaClip"` // Clipping of the random sums
	CheckID          int              `json:"checkID"          yaml:"checkID"`   // Object whose placements are tabulated, 0 for none
}

// Runtime configuration of a catalog run
type Options struct {
	Threads         int               `json:"threads"         yaml:"threads"`
	Schedule        Schedule          `json:"schedule"        yaml:"schedule"`
	SigmaClip       stats.ClipParams  `json:"sigmaClip"       yaml:"sigmaClip"`
	FracMax         []float64         `json:"fracMax"         yaml:"fracMax"`
	UpperLimit      UpperLimitOptions `json:"upperLimit"      yaml:"upperLimit"`
	Zeropoint       float64           `json:"zeropoint"       yaml:"zeropoint"`
	SkySubtracted   bool              `json:"skySubtracted"   yaml:"skySubtracted"`
	CPSCorr         float64           `json:"cpscorr"         yaml:"cpscorr"`
	NoClumpWarnings bool              `json:"noClumpWarnings" yaml:"noClumpWarnings"`
	Quiet           bool              `json:"quiet"           yaml:"quiet"`
}

func DefaultOptions() *Options {
	return &Options{
		Threads:   DefaultThreads(),
		Schedule:  ScheduleStatic,
		SigmaClip: stats.ClipParams{Multiple: 3, Param: 0.2},
		UpperLimit: UpperLimitOptions{
			NTries:           100,
			SigmaMultiple:    3,
			FailureBudget:    1000,
			BlankFractionMax: 0.01,
			Seed:             1,
			SigmaClip:        stats.ClipParams{Multiple: 3, Param: 0.2},
		},
		CPSCorr: 1,
	}
}

// Loads options from a YAML file, starting from the defaults
func LoadOptions(fileName string) (*Options, error) {
	bytes, err := ioutil.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	return ParseOptions(bytes)
}

// Parses options from YAML, starting from the defaults. A failure budget
// left unset follows ten times the configured number of tries
func ParseOptions(data []byte) (*Options, error) {
	o := DefaultOptions()
	o.UpperLimit.FailureBudget = 0
	if err := yaml.UnmarshalStrict(data, o); err != nil {
		return nil, fmt.Errorf("options: %s", err.Error())
	}
	if o.UpperLimit.FailureBudget == 0 {
		o.UpperLimit.FailureBudget = 10 * o.UpperLimit.NTries
	}
	return o, nil
}

// Checks option ranges. Sigma clipping and fraction checks that depend on the
// requested columns happen in the planner
func (o *Options) Validate() error {
	if o.Threads < 1 {
		return configErrorf("threads", "%d must be at least 1", o.Threads)
	}
	if o.Schedule != ScheduleStatic && o.Schedule != ScheduleDynamic {
		return configErrorf("schedule", "unknown schedule %q, want %q or %q", o.Schedule, ScheduleStatic, ScheduleDynamic)
	}
	for _, f := range o.FracMax {
		if !(f > 0 && f < 1) {
			return configErrorf("fracMax", "fraction %g is not in (0,1)", f)
		}
	}
	if len(o.FracMax) > 2 {
		return configErrorf("fracMax", "at most two fractions, got %d", len(o.FracMax))
	}
	if math.IsNaN(o.Zeropoint) || math.IsInf(o.Zeropoint, 0) {
		return configErrorf("zeropoint", "%g is not finite", o.Zeropoint)
	}
	if !(o.CPSCorr > 0) {
		return configErrorf("cpscorr", "%g must be positive", o.CPSCorr)
	}
	u := &o.UpperLimit
	if u.NTries < 1 {
		return configErrorf("upperLimit.nTries", "%d must be at least 1", u.NTries)
	}
	if !(u.SigmaMultiple > 0) {
		return configErrorf("upperLimit.sigmaMultiple", "%g must be positive", u.SigmaMultiple)
	}
	if u.FailureBudget < 0 {
		return configErrorf("upperLimit.failureBudget", "%d must not be negative", u.FailureBudget)
	}
	if !(u.BlankFractionMax >= 0 && u.BlankFractionMax <= 1) {
		return configErrorf("upperLimit.blankFractionMax", "%g is not in [0,1]", u.BlankFractionMax)
	}
	if err := u.SigmaClip.Validate(); err != nil {
		return configErrorf("upperLimit.sigmaClip", "%s", err.Error())
	}
	if u.CheckID < 0 {
		return configErrorf("upperLimit.checkID", "%d must not be negative", u.CheckID)
	}
	return nil
}

// Returns the noise parameters implied by the options, for building noise models
func (o *Options) NoiseParams() noise.Params {
	return noise.Params{CPSCorr: o.CPSCorr, SkySubtracted: o.SkySubtracted}
}

func (o *Options) String() string {
	bytes, err := yaml.Marshal(o)
	if err != nil {
		return err.Error()
	}
	return string(bytes)
}
