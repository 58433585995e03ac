package arch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

var (
	errProbeCommandEmpty = errors.New("probe command is empty")
	errProbeNoOutput     = errors.New("probe printed no architecture")
)

// Detector runs an external probe process and reads the architecture
// identifier from its standard output.
type Detector struct {
	// Command is the probe program followed by its arguments.
	Command []string
	Log     *zap.Logger
}

// Detect runs the probe once and returns the last non-empty line it printed.
// Probe failures are returned unchanged to the caller.
func (d *Detector) Detect(ctx context.Context) (string, error) {
	if len(d.Command) == 0 {
		return "", errProbeCommandEmpty
	}

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, d.Command[0], d.Command[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if d.Log != nil {
		d.Log.Debug("running architecture probe", zap.Strings("command", d.Command))
	}

	err := cmd.Run()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("probe %s: %w: %s", d.Command[0], err, msg)
		}

		return "", fmt.Errorf("probe %s: %w", d.Command[0], err)
	}

	arch := lastLine(stdout.String())
	if arch == "" {
		return "", errProbeNoOutput
	}

	return arch, nil
}

func lastLine(out string) string {
	lines := strings.Split(out, "\n")

	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimRight(lines[i], "\r")
		if strings.TrimSpace(line) != "" {
			return line
		}
	}

	return ""
}
