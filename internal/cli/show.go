package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/calvinalkan/batchsize/internal/batchsize"

	"github.com/olekukonko/tablewriter"
	flag "github.com/spf13/pflag"
)

var errUnknownArch = errors.New("architecture not in table")

// ShowCmd returns the show command.
func ShowCmd(d *deps) *Command {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.StringP("arch", "a", "", "Only show this architecture")

	return &Command{
		Flags: fs,
		Usage: "show [flags]",
		Short: "Print the batch size table",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			only, _ := fs.GetString("arch")

			return execShow(io, d.cfg.TableAbs, only)
		},
	}
}

func execShow(io *IO, tablePath, only string) error {
	table, err := batchsize.LoadTable(tablePath)
	if err != nil {
		return err
	}

	if only != "" {
		if _, ok := table[only]; !ok {
			return fmt.Errorf("%w: %s", errUnknownArch, only)
		}
	}

	entries := table.Entries()
	if len(entries) == 0 && only == "" {
		io.Println("(empty)")

		return nil
	}

	tw := tablewriter.NewWriter(io.Out())
	tw.SetHeader([]string{"ARCHITECTURE", "MODEL", "BATCH SIZE"})
	tw.SetAutoWrapText(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, e := range entries {
		if only != "" && e.Architecture != only {
			continue
		}

		tw.Append([]string{e.Architecture, e.Model, strconv.Itoa(e.BatchSize)})
	}

	tw.Render()

	return nil
}
