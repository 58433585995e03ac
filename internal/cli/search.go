package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/calvinalkan/batchsize/internal/batchsize"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

// SearchCmd returns the search command.
func SearchCmd(d *deps) *Command {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.StringP("datadir", "d", "", "Data directory passed to the benchmark")
	fs.Bool("nogpu", false, "Use the CPU candidate list (4..512) instead of the GPU list (1..64)")
	fs.Int("max-tries", 0, "Attempts per candidate are limited to max-tries - 1 (default from config, 5)")
	fs.Bool("save", false, "Record the result in the table for the detected architecture")

	var override bool
	boolishVarP(fs, &override, "override", "o", false, "With --save, replace an existing entry")

	return &Command{
		Flags:   fs,
		Usage:   "search <model> [flags]",
		Short:   "Time candidate batch sizes and pick the fastest",
		MaxArgs: 1,
		Long: `Run the single-inference benchmark once per candidate batch size and
print the batch size with the lowest wall-clock time.

Failed attempts are retried after a pause; a candidate that never succeeds
is skipped. If every candidate fails the smallest one is printed.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return batchsize.ErrModelRequired
			}

			dataDir, _ := fs.GetString("datadir")
			nogpu, _ := fs.GetBool("nogpu")
			maxTries, _ := fs.GetInt("max-tries")
			save, _ := fs.GetBool("save")

			if maxTries == 0 {
				maxTries = d.cfg.MaxTries
			}

			return execSearch(ctx, o, d, batchsize.SearchRequest{
				Model:    args[0],
				NoGPU:    nogpu,
				DataDir:  dataDir,
				MaxTries: maxTries,
			}, save, override)
		},
	}
}

func execSearch(ctx context.Context, o *IO, d *deps, req batchsize.SearchRequest, save, override bool) error {
	var stderr io.Writer
	if d.verbose {
		stderr = o.errOut
	}

	searcher := &batchsize.Searcher{
		Runner: batchsize.ExecRunner{
			Command: d.cfg.BenchmarkCommand,
			Dir:     d.cfg.EffectiveCwd,
			Stderr:  stderr,
		},
		Out:   o.Out(),
		Log:   d.log,
		Pause: d.cfg.RetryPauseDur,
	}

	result, err := searcher.Find(ctx, req)
	if err != nil {
		return err
	}

	o.Println(result.Optimal)

	if !save {
		return nil
	}

	architecture, err := newDetector(d).Detect(ctx)
	if err != nil {
		return fmt.Errorf("detecting architecture: %w", err)
	}

	stored, err := batchsize.StoreBatchSize(d.cfg.TableAbs, architecture, req.Model, result.Optimal, override)
	if err != nil {
		return err
	}

	if !stored {
		o.Warn(fmt.Sprintf("%s %s already recorded", architecture, req.Model), "pass --override to replace it")

		return nil
	}

	d.log.Debug("stored search result",
		zap.String("architecture", architecture),
		zap.String("model", req.Model),
		zap.Int("batch_size", result.Optimal))

	return nil
}
