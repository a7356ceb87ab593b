// qbench.go runs a homodyne displacement-sensing experiment for each entry in
// the cartesian product of a collection of tuning parameters, e.g. input
// squeezing and shot count, and outputs a CSV of estimator statistics for
// each combination. A squeezed probe is shifted along x by a known amount and
// the homodyne record is used to estimate the shift back.
package main

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	flag "github.com/spf13/pflag"
	"gonum.org/v1/gonum/stat"

	"github.com/tvle2/GKP-sens/manifest"
	"github.com/tvle2/GKP-sens/qcirc"
	"github.com/tvle2/GKP-sens/qcirc/backend/gaussian"
	"github.com/tvle2/GKP-sens/qcirc/wire"
)

var (
	squeeze = flag.Float64Slice("squeeze", []float64{0, 0.5, 1.0},
		"The squeezing magnitudes to prepare the probe mode with.")
	shift = flag.Float64Slice("shift", []float64{0.1},
		"The x-quadrature shifts to apply and estimate.")
	shots = flag.IntSlice("shots", []int{200},
		"The number of measurement shots per parameter combination.")
	seed         = flag.Int64("seed", 42, "The RNG seed for measurement sampling.")
	manifestPath = flag.String("manifest", "",
		"Optional qbench.toml to read parameter grids from. Explicitly set flags win.")
	archiveDir = flag.String("archiveDir", "",
		"If set, per-combination results are archived as CBOR files in this directory.")
)

var (
	inputs  = []string{"squeeze", "shift", "shots"}
	columns = []string{"Squeeze", "Shift", "Shots", "Mean", "Std", "StdErr", "Succeeded"}
)

// Engine configuration, overridable from a manifest's [engine] table.
var (
	benchBackend = gaussian.Name
	benchCutoff  = 0
)

// An Experiment packages together the result of benchmarking a single
// parameterization for easy formatting.
type Experiment struct {
	// Fields corresponding to experiment parameters
	Squeeze float64
	Shift   float64
	Shots   int

	// Fields corresponding to experiment results
	Mean      float64
	Std       float64
	StdErr    float64
	Succeeded bool
}

func main() {
	flag.Parse()
	applyManifest()
	fmt.Println(header())
	tmpl := template.Must(template.New("line").Parse(lineTmpl()))
	var args [][]interface{}
	for _, inp := range inputs {
		args = append(args, lookupInput(inp))
	}
	cell := 0
	applyCartesian(func(args []interface{}) {
		exp := &Experiment{
			Squeeze: args[inpIndex("squeeze")].(float64),
			Shift:   args[inpIndex("shift")].(float64),
			Shots:   args[inpIndex("shots")].(int),
		}
		if err := bench(exp, cell); err != nil {
			log.Printf("Benching %v: %v", exp, err)
		}
		cell++
		if err := tmpl.Execute(os.Stdout, exp); err != nil {
			log.Fatalf("BUG: could not fill in line template: %v", err)
		}
	}, args)
}

// applyManifest backfills parameter grids from a qbench.toml for every flag
// the user did not set explicitly.
func applyManifest() {
	if *manifestPath == "" {
		return
	}
	m, err := manifest.Load(*manifestPath)
	if err != nil {
		log.Fatalf("Loading manifest: %v", err)
	}
	if !flag.CommandLine.Changed("squeeze") {
		*squeeze = m.Sweep.Squeeze
	}
	if !flag.CommandLine.Changed("shift") {
		*shift = m.Sweep.Shift
	}
	if !flag.CommandLine.Changed("shots") {
		*shots = m.Sweep.Shots
	}
	if !flag.CommandLine.Changed("seed") {
		*seed = m.Engine.Seed
	}
	benchBackend = m.Engine.Backend
	benchCutoff = m.Engine.Cutoff
}

func inpIndex(v string) int {
	for i, inp := range inputs {
		if inp == v {
			return i
		}
	}
	return -1
}

func bench(exp *Experiment, cell int) error {
	eng, err := qcirc.NewEngine(qcirc.EngineOpts{
		Backend: benchBackend,
		Modes:   1,
		Cutoff:  benchCutoff,
		Rand:    rand.New(rand.NewSource(*seed)),
	})
	if err != nil {
		return err
	}
	prog, err := qcirc.NewProgram(1,
		qcirc.Squeezed(0, exp.Squeeze, 0),
		qcirc.Xgate(0, qcirc.Real(exp.Shift)),
		qcirc.MeasureHomodyne(0, 0),
	)
	if err != nil {
		return err
	}

	estimates := make([]float64, 0, exp.Shots)
	var last *qcirc.Results
	for i := 0; i < exp.Shots; i++ {
		res, err := eng.Run(prog)
		if err != nil {
			return err
		}
		v, ok := res.Sample(0)
		if !ok {
			return fmt.Errorf("no outcome recorded for mode 0")
		}
		x, _ := v.AsReal()
		estimates = append(estimates, x)
		last = res
	}

	exp.Mean = stat.Mean(estimates, nil)
	exp.Std = stat.StdDev(estimates, nil)
	exp.StdErr = exp.Std / math.Sqrt(float64(exp.Shots))
	exp.Succeeded = true

	if *archiveDir != "" && last != nil {
		if err := archive(prog, last, cell); err != nil {
			return fmt.Errorf("archiving cell %d: %w", cell, err)
		}
	}
	return nil
}

func archive(prog *qcirc.Program, res *qcirc.Results, cell int) error {
	pb, err := wire.MarshalProgram(prog)
	if err != nil {
		return err
	}
	rb, err := wire.MarshalResults(res)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*archiveDir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(*archiveDir, fmt.Sprintf("cell%03d_program.cbor", cell)), pb, 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(*archiveDir, fmt.Sprintf("cell%03d_results.cbor", cell)), rb, 0o644)
}

func header() string {
	return strings.Join(columns, ", ")
}

func lineTmpl() string {
	var els []string
	for _, c := range columns {
		els = append(els, "{{."+c+"}}")
	}
	return strings.Join(els, ", ") + "\n"
}

func lookupInput(name string) []interface{} {
	var r []interface{}
	if v, err := flag.CommandLine.GetIntSlice(name); err == nil {
		for _, val := range v {
			r = append(r, val)
		}
	} else if v, err := flag.CommandLine.GetFloat64Slice(name); err == nil {
		for _, val := range v {
			r = append(r, val)
		}
	} else {
		log.Fatalf("Unknown type for input %s", name)
	}
	return r
}

func applyCartesian(f func([]interface{}), args [][]interface{}) {
	for i := range args {
		if len(args[i]) == 1 {
			continue
		}
		l := make([][]interface{}, len(args))
		r := make([][]interface{}, len(args))
		copy(l, args)
		copy(r, args)
		l[i] = args[i][:1]
		r[i] = args[i][1:]
		applyCartesian(f, l)
		applyCartesian(f, r)
		return
	}
	x := make([]interface{}, 0, len(args))
	for _, a := range args {
		x = append(x, a[0])
	}
	f(x)
}
