package cli_test

import (
	"strings"
	"testing"

	"github.com/calvinalkan/batchsize/internal/batchsize"
	"github.com/calvinalkan/batchsize/internal/cli"
)

func TestShowCommand(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(batchsize.DefaultTable, `{
		"gpuX": {"resnet": 32, "alexnet": 64},
		"cpuA": {"vgg": 256}
	}`)

	stdout := c.MustRun("show")

	cli.AssertContains(t, stdout, "ARCHITECTURE")
	cli.AssertContains(t, stdout, "BATCH SIZE")

	// Rows are sorted by architecture, then model.
	cpu := strings.Index(stdout, "vgg")
	alex := strings.Index(stdout, "alexnet")
	resnet := strings.Index(stdout, "resnet")

	if cpu < 0 || alex < 0 || resnet < 0 || cpu >= alex || alex >= resnet {
		t.Errorf("rows not sorted:\n%s", stdout)
	}

	cli.AssertContains(t, stdout, "256")
}

func TestShowEmptyTable(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	if got, want := c.MustRun("show"), "(empty)"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}
}

func TestShowSingleArchitecture(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(batchsize.DefaultTable, `{"gpuX": {"resnet": 32}, "cpuA": {"vgg": 256}}`)

	stdout := c.MustRun("show", "--arch", "cpuA")
	cli.AssertContains(t, stdout, "vgg")
	cli.AssertNotContains(t, stdout, "resnet")

	stderr := c.MustFail("show", "-a", "tpuZ")
	cli.AssertContains(t, stderr, "architecture not in table: tpuZ")
}

func TestShowStdoutEmptyOnError(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(batchsize.DefaultTable, `{"gpuX": {"resnet": "big"}}`)

	stderr := c.MustFail("show")
	cli.AssertContains(t, stderr, "invalid batch size table")
}

func TestShowHelp(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("show", "--help")

	cli.AssertContains(t, stdout, "Usage: batchsize show")
	cli.AssertContains(t, stdout, "--arch")
}
