package adapter

import (
	"errors"
	"testing"
)

func testCatalog() Catalog {
	return Catalog{
		{
			Name:        "read_file",
			Description: "Read a file",
			InputSchema: `{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`,
		},
		{
			Name:        "write_file",
			Description: "Write a file",
			InputSchema: `{"type":"object","properties":{"path":{"type":"string"},"content":{"type":"string"}},"required":["path","content"]}`,
			Mutating:    true,
		},
	}
}

func TestValidateArgs(t *testing.T) {
	catalog := testCatalog()
	readFile, _ := catalog.Schema("read_file")

	tests := []struct {
		name    string
		args    map[string]any
		wantErr bool
	}{
		{
			name:    "valid",
			args:    map[string]any{"path": "main.go"},
			wantErr: false,
		},
		{
			name:    "missing required field",
			args:    map[string]any{},
			wantErr: true,
		},
		{
			name:    "wrong type",
			args:    map[string]any{"path": 42},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := readFile.ValidateArgs(tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("error type = %T, want *ValidationError", err)
				}
			}
		})
	}
}

func TestMutationClassification(t *testing.T) {
	catalog := testCatalog()

	tests := []struct {
		action string
		want   bool
	}{
		{"read_file", false},
		{"write_file", true},
		// Unknown actions are conservatively treated as mutating.
		{"unknown_action", true},
	}

	for _, tt := range tests {
		if got := catalog.Mutates(tt.action); got != tt.want {
			t.Errorf("Mutates(%q) = %v, want %v", tt.action, got, tt.want)
		}
	}
}

func TestSchemaLookup(t *testing.T) {
	catalog := testCatalog()

	if _, ok := catalog.Schema("read_file"); !ok {
		t.Error("Schema(read_file) not found")
	}
	if _, ok := catalog.Schema("nope"); ok {
		t.Error("Schema(nope) unexpectedly found")
	}
	if names := catalog.Names(); len(names) != 2 || names[0] != "read_file" {
		t.Errorf("Names() = %v", names)
	}
}
