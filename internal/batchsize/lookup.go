package batchsize

import (
	"context"

	"go.uber.org/zap"
)

// Detector identifies the hardware architecture of the current machine.
type Detector interface {
	Detect(ctx context.Context) (string, error)
}

// Lookup returns the batch size recorded in the table at tablePath for the
// detected architecture and model. Every failure (detector, missing or
// unreadable table, unknown architecture or model) reports false; callers
// cannot tell these apart.
func Lookup(ctx context.Context, log *zap.Logger, detector Detector, tablePath, model string) (int, bool) {
	arch, err := detector.Detect(ctx)
	if err != nil {
		log.Debug("architecture detection failed", zap.Error(err))

		return 0, false
	}

	table, err := LoadTable(tablePath)
	if err != nil {
		log.Debug("loading table failed", zap.String("table", tablePath), zap.Error(err))

		return 0, false
	}

	size, ok := table.Get(arch, model)
	if !ok {
		log.Debug("no batch size recorded", zap.String("architecture", arch), zap.String("model", model))
	}

	return size, ok
}
