package batchsize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
)

// Table maps an architecture identifier to model names and their batch size.
type Table map[string]map[string]int

// Entry is one (architecture, model, batch size) triple of a Table.
type Entry struct {
	Architecture string
	Model        string
	BatchSize    int
}

// Get returns the batch size recorded for arch and model.
func (t Table) Get(arch, model string) (int, bool) {
	models, ok := t[arch]
	if !ok {
		return 0, false
	}

	size, ok := models[model]

	return size, ok
}

// Set records size for arch and model, creating the architecture entry if needed.
func (t Table) Set(arch, model string, size int) {
	if t[arch] == nil {
		t[arch] = make(map[string]int)
	}

	t[arch][model] = size
}

// Entries returns all triples sorted by architecture, then model.
func (t Table) Entries() []Entry {
	entries := make([]Entry, 0, len(t))

	for arch, models := range t {
		for model, size := range models {
			entries = append(entries, Entry{Architecture: arch, Model: model, BatchSize: size})
		}
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		if c := strings.Compare(a.Architecture, b.Architecture); c != 0 {
			return c
		}

		return strings.Compare(a.Model, b.Model)
	})

	return entries
}

// LoadTable reads the table at path. A missing file yields an empty table.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Table{}, nil
		}

		return nil, fmt.Errorf("reading table: %w", err)
	}

	return ParseTable(data)
}

// ParseTable decodes a table from JSON (comments and trailing commas allowed).
func ParseTable(data []byte) (Table, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTableInvalid, err)
	}

	table := Table{}

	unmarshalErr := json.Unmarshal(standardized, &table)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrTableInvalid, unmarshalErr)
	}

	// "null" decodes to a nil map
	if table == nil {
		table = Table{}
	}

	for arch, models := range table {
		if models == nil {
			table[arch] = map[string]int{}

			continue
		}

		for model, size := range models {
			if size <= 0 {
				return nil, fmt.Errorf("%w: %s/%s: %w %d", ErrTableInvalid, arch, model, ErrInvalidBatchSize, size)
			}
		}
	}

	return table, nil
}

// Marshal encodes the table as JSON indented with four spaces.
func (t Table) Marshal() ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")

	if t == nil {
		t = Table{}
	}

	err := enc.Encode(t)
	if err != nil {
		return nil, fmt.Errorf("encoding table: %w", err)
	}

	return buf.Bytes(), nil
}

// SaveTable writes the whole table to path, replacing any prior content.
func SaveTable(path string, table Table) error {
	data, err := table.Marshal()
	if err != nil {
		return err
	}

	writeErr := atomic.WriteFile(path, bytes.NewReader(data))
	if writeErr != nil {
		return fmt.Errorf("writing table: %w", writeErr)
	}

	// atomic.WriteFile creates the temp file with 0600
	chmodErr := os.Chmod(path, filePerms)
	if chmodErr != nil {
		return fmt.Errorf("chmod table: %w", chmodErr)
	}

	return nil
}
