package cli

import (
	"context"

	"github.com/calvinalkan/batchsize/internal/arch"

	flag "github.com/spf13/pflag"
)

// ArchCmd returns the arch command. It is also the default probe that
// lookup runs as a subprocess.
func ArchCmd(d *deps) *Command {
	return &Command{
		Flags:      flag.NewFlagSet("arch", flag.ContinueOnError),
		Usage:      "arch",
		Short:      "Print the detected architecture",
		Long:       "Print the name of the first GPU, or the CPU model name when no GPU is available.",
		SkipConfig: true,
		Exec: func(ctx context.Context, io *IO, _ []string) error {
			name, err := arch.NewProber(d.log).Probe(ctx)
			if err != nil {
				return err
			}

			io.Println(name)

			return nil
		},
	}
}
