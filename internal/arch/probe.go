// Package arch identifies the compute hardware a benchmark runs on.
//
// The identifier is the name of the first GPU when one is visible through
// NVML, and the CPU model name otherwise. [Detector] obtains it from a
// separate probe process so that GPU runtime state never leaks into the
// caller.
package arch

import (
	"context"
	"fmt"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"go.uber.org/zap"
)

// UnknownGPU is reported when a GPU exists but does not report its name.
const UnknownGPU = "Unknown GPU"

// Prober computes the architecture identifier in-process.
type Prober struct {
	// GPUName returns the name of the first GPU, or false when there is none.
	GPUName func() (string, bool, error)
	// CPUName returns the CPU model name.
	CPUName func(ctx context.Context) (string, error)

	Log *zap.Logger
}

// NewProber returns a Prober backed by NVML and the platform CPU lookup.
func NewProber(log *zap.Logger) *Prober {
	return &Prober{
		GPUName: nvmlGPUName,
		CPUName: CPUModelName,
		Log:     log,
	}
}

// Probe returns the GPU name when a GPU is present and the CPU model name
// otherwise. A missing or broken NVML counts as "no GPU".
func (p *Prober) Probe(ctx context.Context) (string, error) {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	name, ok, err := p.GPUName()
	if err != nil {
		log.Debug("gpu probe unavailable, falling back to cpu", zap.Error(err))
	}

	if ok {
		return name, nil
	}

	cpu, err := p.CPUName(ctx)
	if err != nil {
		return "", fmt.Errorf("cpu model name: %w", err)
	}

	return cpu, nil
}

func nvmlGPUName() (string, bool, error) {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return "", false, fmt.Errorf("failed to initialize NVML: %v", ret)
	}

	defer func() { _ = nvml.Shutdown() }()

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return "", false, fmt.Errorf("failed to get device count: %v", ret)
	}

	if count == 0 {
		return "", false, nil
	}

	device, ret := nvml.DeviceGetHandleByIndex(0)
	if ret != nvml.SUCCESS {
		return UnknownGPU, true, nil
	}

	name, ret := device.GetName()
	if ret != nvml.SUCCESS || name == "" {
		return UnknownGPU, true, nil
	}

	return name, true, nil
}
