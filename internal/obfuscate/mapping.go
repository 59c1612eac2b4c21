package obfuscate

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

//go:embed default_mapping.csv
var defaultMappingCSV []byte

// mappingColumns are the header names a mapping table must provide.
var mappingColumns = []string{"source_start", "source_end", "target_start", "target_end", "comment"}

// DefaultMappings returns the built-in mapping table.
func DefaultMappings() []Mapping {
	mappings, err := ParseMappings(bytes.NewReader(defaultMappingCSV))
	if err != nil {
		panic(fmt.Sprintf("embedded mapping table is invalid: %v", err))
	}
	return mappings
}

// LoadMappingsFile reads a mapping table from a CSV file.
func LoadMappingsFile(path string) ([]Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open character mapping file: %w", err)
	}
	defer f.Close()

	mappings, err := ParseMappings(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load character mapping file %s: %w", path, err)
	}
	return mappings, nil
}

// ParseMappings reads a CSV mapping table. The first record is a header
// naming the columns source_start, source_end, target_start, target_end and
// comment in any order; code points are hexadecimal. Malformed rows are
// logged and skipped. Only an unreadable header is an error.
func ParseMappings(r io.Reader) ([]Mapping, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var mappings []Mapping
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				slog.Warn("Failed to parse character mapping record, ignored", "error", err)
				continue
			}
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		line, _ := reader.FieldPos(0)
		mapping, err := recordToMapping(record, index)
		if err != nil {
			slog.Warn("Invalid character mapping record, ignored", "line", line, "error", err)
			continue
		}
		slog.Info("Loaded character mapping", "comment", mapping.Comment)
		mappings = append(mappings, mapping)
	}

	return mappings, nil
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, column := range mappingColumns {
		if _, ok := index[column]; !ok {
			return nil, fmt.Errorf("missing column %q", column)
		}
	}
	return index, nil
}

func recordToMapping(record []string, index map[string]int) (Mapping, error) {
	field := func(name string) (string, error) {
		i := index[name]
		if i >= len(record) {
			return "", fmt.Errorf("missing field %s", name)
		}
		return strings.TrimSpace(record[i]), nil
	}
	codePoint := func(name string) (rune, error) {
		value, err := field(name)
		if err != nil {
			return 0, err
		}
		value = strings.TrimPrefix(strings.TrimPrefix(value, "U+"), "u+")
		n, err := strconv.ParseUint(value, 16, 32)
		if err != nil {
			return 0, fmt.Errorf("failed to parse %s as hex code point: %w", name, err)
		}
		return rune(n), nil
	}

	var m Mapping
	var err error
	if m.SourceStart, err = codePoint("source_start"); err != nil {
		return Mapping{}, err
	}
	if m.SourceEnd, err = codePoint("source_end"); err != nil {
		return Mapping{}, err
	}
	if m.TargetStart, err = codePoint("target_start"); err != nil {
		return Mapping{}, err
	}
	if m.TargetEnd, err = codePoint("target_end"); err != nil {
		return Mapping{}, err
	}
	if m.Comment, err = field("comment"); err != nil {
		return Mapping{}, err
	}
	if err := m.Validate(); err != nil {
		return Mapping{}, err
	}
	return m, nil
}
