package cli_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/batchsize/internal/batchsize"
	"github.com/calvinalkan/batchsize/internal/cli"
)

// onlyBatchSize4 succeeds for --batch-size 4 and fails for every other size.
// Arguments arrive as: --model M --batch-size N --datadir D --max_batch_size X.
const onlyBatchSize4 = `case "$4" in
4) echo "1/1 - sparse_categorical_accuracy: 0.75 max=$8 model=$2 data=$6" ;;
*) exit 1 ;;
esac`

func newSearchCLI(t *testing.T, script string) *cli.CLI {
	t.Helper()

	c := cli.NewCLI(t)
	c.WriteConfig(map[string]any{
		"benchmark_command": []string{"sh", "-c", script, "bench"},
		"probe_command":     []string{"sh", "-c", "echo gpuX"},
		"retry_pause":       "0s",
		"max_tries":         2,
	})

	return c
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")

	return lines[len(lines)-1]
}

func Test_Search_Prints_Only_Successful_Candidate_When_Invoked(t *testing.T) {
	t.Parallel()

	c := newSearchCLI(t, onlyBatchSize4)
	stdout := c.MustRun("search", "resnet", "--datadir", "/data/imagenet")

	if got, want := lastLine(stdout), "4"; got != want {
		t.Errorf("optimal=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stdout, "sparse_categorical_accuracy: 0.75 max=64 model=resnet data=/data/imagenet\r")
	cli.AssertContains(t, stdout, "4    ")
	cli.AssertContains(t, stdout, "(1 tries)")
	cli.AssertContains(t, stdout, "1    failed with 1 tries")
	cli.AssertContains(t, stdout, "64   failed with 1 tries")
}

func Test_Search_Nogpu_Uses_CPU_Candidates_When_Invoked(t *testing.T) {
	t.Parallel()

	c := newSearchCLI(t, `echo "sparse_categorical_accuracy max=$8 size=$4"`)
	stdout := c.MustRun("search", "resnet", "-d", "/data", "--nogpu")

	cli.AssertContains(t, stdout, "max=512 size=4\r")
	cli.AssertContains(t, stdout, "max=512 size=512\r")
	cli.AssertNotContains(t, stdout, "size=1\r")
	cli.AssertNotContains(t, stdout, "size=2\r")
}

func Test_Search_All_Candidates_Fail_When_Invoked(t *testing.T) {
	t.Parallel()

	c := newSearchCLI(t, "exit 1")

	stdout, stderr, code := c.Run("search", "resnet", "--datadir", "/data", "--max-tries", "3")
	if got, want := code, 0; got != want {
		t.Errorf("exitCode=%d, want=%d\nstderr: %s", got, want, stderr)
	}

	if got, want := lastLine(stdout), "1"; got != want {
		t.Errorf("optimal=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stdout, "failed with 2 tries")
	cli.AssertNotContains(t, stdout, "tries)")
}

func Test_Search_Save_Stores_Result_When_Invoked(t *testing.T) {
	t.Parallel()

	c := newSearchCLI(t, onlyBatchSize4)
	c.MustRun("search", "resnet", "--datadir", "/data", "--save")

	want := batchsize.Table{"gpuX": {"resnet": 4}}
	if diff := cmp.Diff(want, c.ReadTable()); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func Test_Search_Save_Keeps_Existing_Entry_When_Invoked(t *testing.T) {
	t.Parallel()

	c := newSearchCLI(t, onlyBatchSize4)
	c.WriteFile(batchsize.DefaultTable, `{"gpuX": {"resnet": 16}}`)

	stdout, stderr, code := c.Run("search", "resnet", "--datadir", "/data", "--save")
	if got, want := code, 0; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	if got, want := lastLine(stdout), "4"; got != want {
		t.Errorf("optimal=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stderr, "warning: gpuX resnet already recorded")

	got, _ := c.ReadTable().Get("gpuX", "resnet")
	if got != 16 {
		t.Errorf("batch size=%d, want=16", got)
	}

	c.MustRun("search", "resnet", "--datadir", "/data", "--save", "--override")

	got, _ = c.ReadTable().Get("gpuX", "resnet")
	if got != 4 {
		t.Errorf("batch size=%d, want=4", got)
	}
}

func Test_Search_Requires_Model_And_Datadir_When_Invoked(t *testing.T) {
	t.Parallel()

	c := newSearchCLI(t, onlyBatchSize4)

	stderr := c.MustFail("search", "--datadir", "/data")
	cli.AssertContains(t, stderr, "model is required")

	stderr = c.MustFail("search", "resnet")
	cli.AssertContains(t, stderr, "data directory is required")
}

func Test_Search_Missing_Benchmark_Program_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteConfig(map[string]any{
		"benchmark_command": []string{"batchsize-no-such-benchmark"},
		"retry_pause":       "0s",
		"max_tries":         2,
	})

	stdout := c.MustRun("search", "resnet", "--datadir", "/data")

	if got, want := lastLine(stdout), "1"; got != want {
		t.Errorf("optimal=%q, want=%q", got, want)
	}
}
