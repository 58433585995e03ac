package batchsize_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/batchsize/internal/batchsize"
)

func Test_WithTableLock_Serializes_Concurrent_Writers(t *testing.T) {
	t.Parallel()

	tablePath := filepath.Join(t.TempDir(), "batch_sizes.json")

	const writers = 8

	var wg sync.WaitGroup

	errs := make(chan error, writers)

	for i := range writers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			errs <- batchsize.WithTableLock(tablePath, func(table batchsize.Table) (bool, error) {
				table.Set("gpuX", "model"+string(rune('a'+i)), i+1)

				return true, nil
			})
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	table, err := batchsize.LoadTable(tablePath)
	require.NoError(t, err)
	assert.Len(t, table["gpuX"], writers)
}

func Test_WithTableLock_Skips_Write_When_Unchanged_Or_Failed(t *testing.T) {
	t.Parallel()

	tablePath := filepath.Join(t.TempDir(), "batch_sizes.json")

	err := batchsize.WithTableLock(tablePath, func(table batchsize.Table) (bool, error) {
		table.Set("gpuX", "resnet", 8)

		return false, nil
	})
	require.NoError(t, err)

	_, statErr := os.Stat(tablePath)
	require.ErrorIs(t, statErr, os.ErrNotExist)

	errBoom := errors.New("boom")

	err = batchsize.WithTableLock(tablePath, func(table batchsize.Table) (bool, error) {
		table.Set("gpuX", "resnet", 8)

		return true, errBoom
	})
	require.ErrorIs(t, err, errBoom)

	_, statErr = os.Stat(tablePath)
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func Test_WithTableLock_Removes_Lock_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tablePath := filepath.Join(dir, "batch_sizes.json")

	require.NoError(t, batchsize.WithTableLock(tablePath, func(batchsize.Table) (bool, error) {
		return true, nil
	}))

	entries, err := os.ReadDir(filepath.Join(dir, ".locks"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
