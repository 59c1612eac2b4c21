package obfuscate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseMappings(t *testing.T) {
	tests := []struct {
		name          string
		csv           string
		expectError   bool
		expectedCount int
	}{
		{
			name: "valid table",
			csv: "source_start,source_end,target_start,target_end,comment\n" +
				"4E00,9FA5,4E00,9FA5,cjk\n" +
				"0061,007A,0041,005A,letters\n",
			expectedCount: 2,
		},
		{
			name: "columns in another order",
			csv: "comment,target_end,target_start,source_end,source_start\n" +
				"letters,005A,0041,007A,0061\n",
			expectedCount: 1,
		},
		{
			name: "malformed rows are skipped",
			csv: "source_start,source_end,target_start,target_end,comment\n" +
				"zzzz,9FA5,4E00,9FA5,bad hex\n" +
				"0061,007A,0041\n" +
				"007A,0061,0041,005A,reversed\n" +
				"U+0030,U+0039,U+0030,U+0039,digits\n",
			expectedCount: 1,
		},
		{
			name: "comment lines are ignored",
			csv: "source_start,source_end,target_start,target_end,comment\n" +
				"# disabled,row\n" +
				"0061,007A,0061,007A,letters\n",
			expectedCount: 1,
		},
		{
			name:        "missing column",
			csv:         "source_start,source_end,target_start,comment\n",
			expectError: true,
		},
		{
			name:        "empty input",
			csv:         "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mappings, err := ParseMappings(strings.NewReader(tt.csv))
			if tt.expectError {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(mappings) != tt.expectedCount {
				t.Errorf("expected %d mappings, got %d", tt.expectedCount, len(mappings))
			}
		})
	}
}

func TestParseMappingsValues(t *testing.T) {
	csv := "source_start,source_end,target_start,target_end,comment\n0061,007A,0041,005A, letters \n"

	mappings, err := ParseMappings(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := Mapping{SourceStart: 'a', SourceEnd: 'z', TargetStart: 'A', TargetEnd: 'Z', Comment: "letters"}
	if mappings[0] != expected {
		t.Errorf("expected %+v, got %+v", expected, mappings[0])
	}
}

func TestDefaultMappings(t *testing.T) {
	mappings := DefaultMappings()
	if len(mappings) != 3 {
		t.Fatalf("expected 3 default mappings, got %d", len(mappings))
	}
	if mappings[0].SourceStart != 0x4E00 || mappings[0].SourceEnd != 0x9FA5 {
		t.Errorf("expected CJK range first, got %+v", mappings[0])
	}
}

func TestLoadMappingsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.csv")
	content := "source_start,source_end,target_start,target_end,comment\n0030,0039,0030,0039,digits\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	mappings, err := LoadMappingsFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mappings) != 1 {
		t.Errorf("expected 1 mapping, got %d", len(mappings))
	}

	if _, err := LoadMappingsFile(filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}
