// romprep fits, applies and inspects snapshot preprocessing transformers
// for reduced-order modelling.
//
// Usage:
//
//	romprep fit -config pipeline.yaml -in X.csv -out Y.csv -save t.db [-overwrite] [-plot p.png]
//	romprep transform -load t.db -in X.csv -out Y.csv
//	romprep inverse -load t.db -in Y.csv -out X.csv [-locs 0,3,4]
//	romprep ddts -load t.db -in dX.csv -out dY.csv
//	romprep verify -config pipeline.yaml -in X.csv [-tol 1e-9]
//	romprep inspect -load t.db [-json]
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/romprep/core/model"
	"github.com/YuminosukeSato/romprep/pkg/config"
	"github.com/YuminosukeSato/romprep/pkg/errors"
	"github.com/YuminosukeSato/romprep/pkg/log"
	"github.com/YuminosukeSato/romprep/pkg/matio"
	"github.com/YuminosukeSato/romprep/report"

	// transformer kinds for LoadTransformer
	_ "github.com/YuminosukeSato/romprep/preprocessing"
)

const version = "0.1.0"

const usage = `usage: romprep <command> [flags]

commands:
  fit        learn a transformer from a config and snapshot matrix
  transform  apply a saved transformer
  inverse    undo a saved transformer, optionally on selected rows
  ddts       apply the linear part of a saved transformer to time derivatives
  verify     self-check a configured transformer on a snapshot matrix
  inspect    print a saved transformer
  version    print the version
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "romprep: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return errors.New("missing command")
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "fit":
		return runFit(rest, stdout)
	case "transform", "inverse", "ddts":
		return runApply(cmd, rest, stdout)
	case "verify":
		return runVerify(rest, stdout)
	case "inspect":
		return runInspect(rest, stdout)
	case "version":
		fmt.Fprintf(stdout, "romprep %s\n", version)
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stdout, usage)
		return errors.Newf("unknown command %q", cmd)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, errors.New("-config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := log.SetupLogger(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

// writeOutput writes m to path, or to stdout when path is empty.
func writeOutput(path string, m mat.Matrix, stdout io.Writer) error {
	if path == "" {
		return matio.WriteCSV(stdout, m)
	}
	return matio.WriteFile(path, m)
}

func runFit(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("fit", flag.ContinueOnError)
	configPath := fs.String("config", "", "pipeline config (YAML)")
	in := fs.String("in", "", "snapshot matrix (CSV, one row per state entry)")
	out := fs.String("out", "", "transformed matrix (CSV, default stdout)")
	save := fs.String("save", "", "file to save the fitted transformer to")
	overwrite := fs.Bool("overwrite", false, "replace an existing -save file")
	plotPath := fs.String("plot", "", "chart of row statistics before and after (png, svg, pdf)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	tr, err := cfg.Build()
	if err != nil {
		return err
	}
	X, err := matio.ReadFile(*in)
	if err != nil {
		return err
	}

	logger := log.GetLoggerWithName("romprep")
	Y, err := tr.FitTransform(X)
	if err != nil {
		return err
	}
	n, k := X.Dims()
	logger.Info("fitted transformer",
		log.OperationKey, log.OperationFit,
		log.StateDimensionKey, n,
		log.SnapshotsKey, k,
	)

	if err := writeOutput(*out, Y, stdout); err != nil {
		return err
	}
	if *save != "" {
		if err := model.SaveTransformer(tr, *save, *overwrite); err != nil {
			return err
		}
		logger.Info("saved transformer", log.PathKey, *save)
	}
	if *plotPath != "" {
		if err := report.PlotSummary(report.Summarize(X), report.Summarize(Y), fmt.Sprint(tr), *plotPath); err != nil {
			return err
		}
	}
	return nil
}

func runApply(cmd string, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	load := fs.String("load", "", "saved transformer")
	in := fs.String("in", "", "input matrix (CSV)")
	out := fs.String("out", "", "output matrix (CSV, default stdout)")
	logLevel := fs.String("log-level", "info", "debug, info, warn or error")
	var locsFlag *string
	if cmd == "inverse" {
		locsFlag = fs.String("locs", "", "comma-separated state rows held by -in")
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := log.SetupLogger(*logLevel); err != nil {
		return err
	}

	tr, err := model.LoadTransformer(*load)
	if err != nil {
		return err
	}
	X, err := matio.ReadFile(*in)
	if err != nil {
		return err
	}

	var Y *mat.Dense
	op := log.OperationTransform
	switch cmd {
	case "transform":
		Y, err = tr.Transform(X)
	case "inverse":
		var locs []int
		if locs, err = matio.ParseLocs(*locsFlag); err != nil {
			return err
		}
		op = log.OperationInverseTransform
		Y, err = tr.InverseTransform(X, locs)
	case "ddts":
		d, ok := tr.(model.DdtsTransformer)
		if !ok || !model.Supports(tr, model.CapDdts) {
			return errors.Wrapf(errors.ErrNotImplemented, "ddts: %T", tr)
		}
		op = log.OperationTransformDdts
		Y, err = d.TransformDdts(X)
	}
	if err != nil {
		return err
	}
	log.GetLoggerWithName("romprep").Debug("applied transformer", log.OperationKey, op, log.PathKey, *load)
	return writeOutput(*out, Y, stdout)
}

func runVerify(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	configPath := fs.String("config", "", "pipeline config (YAML)")
	in := fs.String("in", "", "snapshot matrix (CSV)")
	tol := fs.Float64("tol", 0, "relative tolerance (0 uses the default)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	tr, err := cfg.Build()
	if err != nil {
		return err
	}
	X, err := matio.ReadFile(*in)
	if err != nil {
		return err
	}

	var opts []model.VerifyOption
	if *tol > 0 {
		opts = append(opts, model.WithTolerance(*tol))
	}
	if err := model.Verify(tr, X, opts...); err != nil {
		return err
	}
	log.GetLoggerWithName("romprep").Info("verification passed", log.OperationKey, log.OperationVerify)
	fmt.Fprintln(stdout, "all checks passed")
	return nil
}

func runInspect(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	load := fs.String("load", "", "saved transformer")
	asJSON := fs.Bool("json", false, "print the parameters as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tr, err := model.LoadTransformer(*load)
	if err != nil {
		return err
	}
	if !*asJSON {
		fmt.Fprintln(stdout, tr)
		return nil
	}
	data, err := model.Describe(tr).ToJSON()
	if err != nil {
		return errors.Wrap(err, "inspect")
	}
	fmt.Fprintln(stdout, string(data))
	return nil
}
