package batchsize

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
)

// Experiment summary columns.
const (
	ColumnStatus       = "status"
	ColumnArchitecture = "params.architecture"
	ColumnModel        = "params.model"
	ColumnBatchSize    = "params.batch_size"
)

// StatusFinished marks a completed, successful benchmark run.
const StatusFinished = "FINISHED"

// DefaultExperimentFile is the summary read by update when --experiment is not given.
const DefaultExperimentFile = "imagenet_0_2025-02-04_03-09-17.csv"

// Record is a finished experiment reduced to the fields the table needs.
type Record struct {
	Architecture string
	Model        string
	BatchSize    int
}

// missingValues are the cell contents treated as "no value".
var missingValues = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

func isMissing(value string) bool {
	return missingValues[value]
}

// ReadExperiments reads the experiment summary at path and returns its
// finished records in file order.
func ReadExperiments(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening experiment file: %w", err)
	}
	defer file.Close()

	records, parseErr := ParseExperiments(file)
	if parseErr != nil {
		return nil, fmt.Errorf("%s: %w", path, parseErr)
	}

	return records, nil
}

// ParseExperiments reads a comma-separated experiment summary. Rows whose
// status is not FINISHED, or that lack architecture, model or batch size,
// are dropped.
func ParseExperiments(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnStatus)
		}

		return nil, fmt.Errorf("reading header: %w", err)
	}

	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	idx := make(map[string]int, 4)

	for _, name := range []string{ColumnStatus, ColumnArchitecture, ColumnModel, ColumnBatchSize} {
		col := slices.Index(header, name)
		if col < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}

		idx[name] = col
	}

	var records []Record

	for {
		row, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil {
			return nil, fmt.Errorf("reading row: %w", readErr)
		}

		cell := func(name string) string {
			col := idx[name]
			if col >= len(row) {
				return ""
			}

			return row[col]
		}

		if cell(ColumnStatus) != StatusFinished {
			continue
		}

		arch, model, rawSize := cell(ColumnArchitecture), cell(ColumnModel), cell(ColumnBatchSize)
		if isMissing(arch) || isMissing(model) || isMissing(rawSize) {
			continue
		}

		size, sizeErr := parseBatchSize(rawSize)
		if sizeErr != nil {
			line, _ := reader.FieldPos(idx[ColumnBatchSize])

			return nil, fmt.Errorf("line %d: %w", line, sizeErr)
		}

		records = append(records, Record{Architecture: arch, Model: model, BatchSize: size})
	}

	return records, nil
}

// parseBatchSize accepts integral numbers, including float spellings like
// "32.0" written for columns that also hold missing values.
func parseBatchSize(raw string) (int, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBatchSize, raw)
	}

	if value != math.Trunc(value) || value < 1 || value > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBatchSize, raw)
	}

	return int(value), nil
}

// GroupRecords orders records by (architecture, model) and checks that every
// pair occurs exactly once.
func GroupRecords(records []Record) ([]Record, error) {
	sorted := slices.Clone(records)

	slices.SortStableFunc(sorted, func(a, b Record) int {
		if c := strings.Compare(a.Architecture, b.Architecture); c != 0 {
			return c
		}

		return strings.Compare(a.Model, b.Model)
	})

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.Architecture == cur.Architecture && prev.Model == cur.Model {
			return nil, fmt.Errorf("%w for %s %s", ErrDuplicateRecord, cur.Architecture, cur.Model)
		}
	}

	return sorted, nil
}
