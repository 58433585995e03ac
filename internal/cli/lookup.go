package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/calvinalkan/batchsize/internal/arch"
	"github.com/calvinalkan/batchsize/internal/batchsize"

	flag "github.com/spf13/pflag"
)

var errNotRecorded = errors.New("no batch size recorded for")

// LookupCmd returns the lookup command.
func LookupCmd(d *deps) *Command {
	return &Command{
		Flags:   flag.NewFlagSet("lookup", flag.ContinueOnError),
		Usage:   "lookup <model>",
		Short:   "Print recorded batch size for this machine",
		MaxArgs: 1,
		Long: `Detect the architecture of this machine and print the batch size
recorded for it and the given model.

Any failure (probe error, missing table, unknown architecture or model)
is reported the same way: exit code 1 and nothing on stdout.`,
		Exec: func(ctx context.Context, io *IO, args []string) error {
			if len(args) == 0 {
				return batchsize.ErrModelRequired
			}

			size, ok := batchsize.Lookup(ctx, d.log, newDetector(d), d.cfg.TableAbs, args[0])
			if !ok {
				return fmt.Errorf("%w %s", errNotRecorded, args[0])
			}

			io.Println(size)

			return nil
		},
	}
}

// newDetector returns a Detector running the configured probe command, or
// this executable's arch command when none is configured.
func newDetector(d *deps) *arch.Detector {
	command := d.cfg.ProbeCommand
	if len(command) == 0 {
		self, err := os.Executable()
		if err != nil {
			self = os.Args[0]
		}

		command = []string{self, "arch"}
	}

	return &arch.Detector{Command: command, Log: d.log}
}
