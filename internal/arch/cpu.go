package arch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

var errNoModelName = errors.New("no model name in cpuinfo")

// CPUModelName returns the processor brand string: /proc/cpuinfo on Linux,
// sysctl on darwin, GOARCH elsewhere or when the lookup finds nothing.
func CPUModelName(ctx context.Context) (string, error) {
	switch runtime.GOOS {
	case "linux":
		data, err := os.ReadFile("/proc/cpuinfo")
		if err != nil {
			return "", fmt.Errorf("reading cpuinfo: %w", err)
		}

		name, parseErr := ParseCPUInfo(string(data))
		if parseErr != nil {
			return runtime.GOARCH, nil
		}

		return name, nil
	case "darwin":
		out, err := exec.CommandContext(ctx, "sysctl", "-n", "machdep.cpu.brand_string").Output()
		if err != nil {
			return "", fmt.Errorf("sysctl: %w", err)
		}

		return strings.TrimSpace(string(out)), nil
	default:
		return runtime.GOARCH, nil
	}
}

// ParseCPUInfo extracts the first "model name" value from /proc/cpuinfo
// content. ARM kernels without that field report "Processor" or "Hardware".
func ParseCPUInfo(content string) (string, error) {
	var fallback string

	for line := range strings.SplitSeq(content, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if value == "" {
			continue
		}

		switch key {
		case "model name":
			return value, nil
		case "Processor", "Hardware":
			if fallback == "" {
				fallback = value
			}
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", errNoModelName
}
