package batchsize

import "fmt"

// UpdateResult lists which records were written into the table and which
// were skipped because the pair was already present.
type UpdateResult struct {
	Stored  []Record
	Skipped []Record
}

// ApplyRecords stores each record into table unless the pair already exists
// and override is false. Records are validated (one per architecture/model)
// before the table is touched.
func ApplyRecords(table Table, records []Record, override bool) (UpdateResult, error) {
	grouped, err := GroupRecords(records)
	if err != nil {
		return UpdateResult{}, err
	}

	var result UpdateResult

	for _, rec := range grouped {
		if table[rec.Architecture] == nil {
			table[rec.Architecture] = make(map[string]int)
		}

		if _, exists := table[rec.Architecture][rec.Model]; exists && !override {
			result.Skipped = append(result.Skipped, rec)

			continue
		}

		table[rec.Architecture][rec.Model] = rec.BatchSize
		result.Stored = append(result.Stored, rec)
	}

	return result, nil
}

// UpdateFromExperiments reads the experiment summary and merges its finished
// records into the table at tablePath. The table is always rewritten in full
// on success and left untouched on any error.
func UpdateFromExperiments(tablePath, experimentPath string, override bool) (UpdateResult, error) {
	records, err := ReadExperiments(experimentPath)
	if err != nil {
		return UpdateResult{}, err
	}

	var result UpdateResult

	lockErr := WithTableLock(tablePath, func(table Table) (bool, error) {
		var applyErr error

		result, applyErr = ApplyRecords(table, records, override)
		if applyErr != nil {
			return false, applyErr
		}

		return true, nil
	})
	if lockErr != nil {
		return UpdateResult{}, fmt.Errorf("updating %s: %w", tablePath, lockErr)
	}

	return result, nil
}

// StoreBatchSize records size for arch and model in the table at tablePath.
// An existing entry is kept unless override is set. Reports whether the
// table was changed.
func StoreBatchSize(tablePath, arch, model string, size int, override bool) (bool, error) {
	if size <= 0 {
		return false, fmt.Errorf("%w: %d", ErrInvalidBatchSize, size)
	}

	stored := false

	lockErr := WithTableLock(tablePath, func(table Table) (bool, error) {
		if _, exists := table.Get(arch, model); exists && !override {
			return false, nil
		}

		table.Set(arch, model, size)
		stored = true

		return true, nil
	})
	if lockErr != nil {
		return false, fmt.Errorf("updating %s: %w", tablePath, lockErr)
	}

	return stored, nil
}
