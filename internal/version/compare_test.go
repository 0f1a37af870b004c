package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCompatibility(t *testing.T) {
	tests := []struct {
		name          string
		reader        string
		written       string
		expectError   bool
		errorContains string
	}{
		{name: "exact match", reader: "1.2.0", written: "1.2.0"},
		{name: "patch differs", reader: "1.2.0", written: "1.2.9"},
		{name: "older minor", reader: "1.2.0", written: "1.1.7"},
		{name: "v prefix", reader: "v1.2.0", written: "v1.2.3"},
		{name: "dev reader", reader: "main", written: "9.9.9"},
		{name: "dev writer", reader: "1.0.0", written: "main"},
		{name: "newer minor", reader: "1.2.0", written: "1.3.0", expectError: true, errorContains: "newer minor"},
		{name: "major differs", reader: "2.0.0", written: "1.2.0", expectError: true, errorContains: "major version mismatch"},
		{name: "invalid reader", reader: "not-a-version", written: "1.2.0", expectError: true, errorContains: "invalid reader version"},
		{name: "invalid written", reader: "1.2.0", written: "x.y", expectError: true, errorContains: "invalid written version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCompatibility(tt.reader, tt.written)
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)

				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestSchemaVersionIsReadableByItself(t *testing.T) {
	assert.NoError(t, CheckCompatibility(SchemaVersion, SchemaVersion))
	assert.NotEmpty(t, GetVersion())
}
