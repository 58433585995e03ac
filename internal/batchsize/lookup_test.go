package batchsize_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/calvinalkan/batchsize/internal/batchsize"
)

type fakeDetector struct {
	arch string
	err  error
}

func (f fakeDetector) Detect(context.Context) (string, error) {
	return f.arch, f.err
}

func Test_Lookup_Returns_Recorded_Batch_Size(t *testing.T) {
	t.Parallel()

	tablePath := filepath.Join(t.TempDir(), "batch_sizes.json")
	require.NoError(t, batchsize.SaveTable(tablePath, batchsize.Table{"gpuX": {"resnet": 32}}))

	size, ok := batchsize.Lookup(context.Background(), zap.NewNop(), fakeDetector{arch: "gpuX"}, tablePath, "resnet")
	assert.True(t, ok)
	assert.Equal(t, 32, size)
}

func Test_Lookup_Reports_Absent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tablePath := filepath.Join(dir, "batch_sizes.json")
	require.NoError(t, batchsize.SaveTable(tablePath, batchsize.Table{"gpuX": {"resnet": 32}}))

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o600))

	for _, tt := range []struct {
		name     string
		detector batchsize.Detector
		table    string
		model    string
	}{
		{name: "unknown model", detector: fakeDetector{arch: "gpuX"}, table: tablePath, model: "vgg"},
		{name: "unknown architecture", detector: fakeDetector{arch: "cpuA"}, table: tablePath, model: "resnet"},
		{name: "missing table", detector: fakeDetector{arch: "gpuX"}, table: filepath.Join(dir, "none.json"), model: "resnet"},
		{name: "corrupt table", detector: fakeDetector{arch: "gpuX"}, table: corrupt, model: "resnet"},
		{name: "detector fails", detector: fakeDetector{err: errors.New("probe crashed")}, table: tablePath, model: "resnet"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			size, ok := batchsize.Lookup(context.Background(), zap.NewNop(), tt.detector, tt.table, tt.model)
			assert.False(t, ok)
			assert.Zero(t, size)
		})
	}
}
