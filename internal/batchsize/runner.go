package batchsize

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"slices"
)

// Runner runs one single-inference benchmark with the given arguments.
// onLine receives every line the benchmark writes to stdout.
type Runner interface {
	Run(ctx context.Context, args []string, onLine func(line string)) error
}

// ExecRunner runs the benchmark as an external process.
type ExecRunner struct {
	// Command is the program and its leading arguments.
	Command []string
	// Dir is the working directory of the process. Empty means inherit.
	Dir string
	// Stderr receives the process stderr. Nil discards it.
	Stderr io.Writer
}

const maxLineSize = 1 << 20

// Run starts the process, streams its stdout to onLine and waits for exit.
// A non-zero exit status is returned as an error.
func (r ExecRunner) Run(ctx context.Context, args []string, onLine func(line string)) error {
	if len(r.Command) == 0 {
		return fmt.Errorf("benchmark: %w", ErrCommandEmpty)
	}

	argv := append(slices.Clone(r.Command), args...)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Dir
	cmd.Stderr = r.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}

	startErr := cmd.Start()
	if startErr != nil {
		return fmt.Errorf("starting %s: %w", argv[0], startErr)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	scanner.Split(scanProgressLines)

	for scanner.Scan() {
		if onLine != nil {
			onLine(scanner.Text())
		}
	}

	scanErr := scanner.Err()
	if scanErr != nil {
		// Unblock the child before waiting on it.
		_, _ = io.Copy(io.Discard, stdout)
	}

	waitErr := cmd.Wait()

	return errors.Join(waitErr, scanErr)
}

// scanProgressLines splits on '\n' and on bare '\r', since progress bars
// redraw a line with carriage returns only.
func scanProgressLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance := i + 1
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			advance++
		} else if data[i] == '\r' && i+1 == len(data) && !atEOF {
			// Might be the first half of "\r\n".
			return 0, nil, nil
		}

		return advance, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}
