package cli

import (
	"context"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(d *deps) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			execPrintConfig(io, d)

			return nil
		},
	}
}

func execPrintConfig(io *IO, d *deps) {
	cfg := d.cfg

	io.Println("effective_cwd=" + cfg.EffectiveCwd)
	io.Println("table=" + cfg.TableAbs)

	probe := "<self> arch"
	if len(cfg.ProbeCommand) > 0 {
		probe = strings.Join(cfg.ProbeCommand, " ")
	}

	io.Println("probe_command=" + probe)
	io.Println("benchmark_command=" + strings.Join(cfg.BenchmarkCommand, " "))
	io.Println("retry_pause=" + cfg.RetryPauseDur.String())
	io.Println("max_tries=" + strconv.Itoa(cfg.MaxTries))

	io.Println("")
	io.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		io.Println("(defaults only)")
	} else {
		if cfg.Sources.Global != "" {
			io.Println("global_config=" + cfg.Sources.Global)
		}

		if cfg.Sources.Project != "" {
			io.Println("project_config=" + cfg.Sources.Project)
		}
	}
}
