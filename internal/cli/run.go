package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/calvinalkan/batchsize/internal/batchsize"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

var errNoCommand = errors.New("no command provided")

// Run is the main entry point. Returns exit code.
//
// sigCh may be nil. The first signal received cancels the running command;
// subprocesses are killed and pauses are interrupted.
func Run(_ io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globals := flag.NewFlagSet("batchsize", flag.ContinueOnError)
	globals.SetOutput(&strings.Builder{}) // discard pflag output
	globals.SetInterspersed(false)

	workDir := globals.StringP("cwd", "C", "", "Run as if started in `dir`")
	configPath := globals.StringP("config", "c", "", "Use specified config `file`")
	tablePath := globals.String("table", "", "Batch size table `file`")
	verbose := globals.BoolP("verbose", "v", false, "Debug logging to stderr")
	help := globals.BoolP("help", "h", false, "Show help")

	d := &deps{env: env, log: newLogger(errOut, false)}
	commands := allCommands(d)

	var cmdArgs []string
	if len(args) > 1 {
		cmdArgs = args[1:]
	}

	if len(cmdArgs) == 0 {
		printUsage(out, globals, commands)

		return 0
	}

	err := globals.Parse(cmdArgs)
	if err != nil {
		fprintln(errOut, "error:", err)
		fprintln(errOut)
		printUsage(errOut, globals, commands)

		return 1
	}

	if *help {
		printUsage(out, globals, commands)

		return 0
	}

	rest := globals.Args()
	if len(rest) == 0 {
		fprintln(errOut, "error:", errNoCommand)
		fprintln(errOut)
		printUsage(errOut, globals, commands)

		return 1
	}

	name := rest[0]

	cmd, ok := findCommand(commands, name)
	if !ok {
		fprintln(errOut, "error: unknown command:", name)
		fprintln(errOut)
		printUsage(errOut, globals, commands)

		return 1
	}

	d.verbose = *verbose
	d.log = newLogger(errOut, *verbose)
	defer func() { _ = d.log.Sync() }()

	// Command help must work even with a broken config.
	if !cmd.SkipConfig && !hasHelpFlag(rest[1:]) {
		loaded, loadErr := batchsize.LoadConfig(batchsize.LoadConfigInput{
			WorkDirOverride: *workDir,
			ConfigPath:      *configPath,
			TableOverride:   *tablePath,
			HasTableFlag:    globals.Changed("table"),
			Env:             env,
		})
		if loadErr != nil {
			fprintln(errOut, "error:", loadErr)
			fprintln(errOut)
			printUsage(errOut, globals, commands)

			return 1
		}

		d.cfg = loaded
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	ioCtx := NewIO(out, errOut)
	code := cmd.Run(ctx, ioCtx, rest[1:])

	return ioCtx.Finish(code)
}

// deps is filled in by Run before a command executes.
type deps struct {
	cfg     batchsize.Config
	env     map[string]string
	log     *zap.Logger
	verbose bool
}

func allCommands(d *deps) []*Command {
	return []*Command{
		UpdateCmd(d),
		LookupCmd(d),
		SearchCmd(d),
		ArchCmd(d),
		ShowCmd(d),
		PrintConfigCmd(d),
	}
}

func findCommand(commands []*Command, name string) (*Command, bool) {
	for _, c := range commands {
		if c.Name() == name {
			return c, true
		}
	}

	return nil, false
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "-h" || arg == "--help" {
			return true
		}
	}

	return false
}

func printUsage(w io.Writer, globals *flag.FlagSet, commands []*Command) {
	fprintln(w, `batchsize - find and cache ideal inference batch sizes

Usage: batchsize [global flags] <command> [args]

Global flags:`)
	fprintln(w, strings.TrimRight(globals.FlagUsages(), "\n"))
	fprintln(w)
	fprintln(w, "Commands:")

	for _, c := range commands {
		fprintln(w, c.HelpLine())
	}
}
