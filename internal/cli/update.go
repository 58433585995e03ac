package cli

import (
	"context"
	"path/filepath"

	"github.com/calvinalkan/batchsize/internal/batchsize"

	flag "github.com/spf13/pflag"
)

// UpdateCmd returns the update command.
func UpdateCmd(d *deps) *Command {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	fs.StringP("experiment", "e", batchsize.DefaultExperimentFile, "Experiment summary CSV")

	var override bool
	boolishVarP(fs, &override, "override", "o", false, "Replace batch sizes already in the table (true|false|yes|no|on|off|1|0)")

	return &Command{
		Flags: fs,
		Usage: "update [flags]",
		Short: "Store batch sizes from an experiment summary",
		Long: `Extend the batch size table with the batch sizes of finished runs
in an experiment summary.

Rows with status FINISHED are grouped by architecture and model; every
group must contain exactly one row. Existing entries are kept unless
--override is given. The table is rewritten in full.`,
		Exec: func(_ context.Context, io *IO, _ []string) error {
			experiment, _ := fs.GetString("experiment")

			return execUpdate(io, d, experiment, override)
		},
	}
}

func execUpdate(io *IO, d *deps, experiment string, override bool) error {
	if !filepath.IsAbs(experiment) {
		experiment = filepath.Join(d.cfg.EffectiveCwd, experiment)
	}

	result, err := batchsize.UpdateFromExperiments(d.cfg.TableAbs, experiment, override)
	if err != nil {
		return err
	}

	if len(result.Stored) == 0 && len(result.Skipped) == 0 {
		io.Warn("no finished runs in "+experiment, "check the status column of the experiment summary")
	}

	for _, rec := range result.Stored {
		io.Println("Storing / overriding batch size for", rec.Architecture, rec.Model)
	}

	return nil
}
