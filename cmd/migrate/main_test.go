package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_UpDownVersion(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrate.db")
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)

	require.NoError(t, run([]string{"-db", dbPath, "version"}, stdout, stderr))
	assert.Equal(t, "schema version 0\n", stdout.String())

	stdout.Reset()
	require.NoError(t, run([]string{"-db", dbPath, "up"}, stdout, stderr))
	assert.Equal(t, "schema version 2\n", stdout.String())

	// Up again is a no-op.
	stdout.Reset()
	require.NoError(t, run([]string{"-db", dbPath, "up"}, stdout, stderr))
	assert.Equal(t, "schema version 2\n", stdout.String())

	stdout.Reset()
	require.NoError(t, run([]string{"-db", dbPath, "down"}, stdout, stderr))
	assert.Equal(t, "schema version 1\n", stdout.String())

	stdout.Reset()
	require.NoError(t, run([]string{"-db", dbPath, "-steps", "1", "down"}, stdout, stderr))
	assert.Equal(t, "schema version 0\n", stdout.String())
}

func TestRun_BadInvocations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrate.db")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no command", []string{"-db", dbPath}, "expected exactly one command"},
		{"unknown command", []string{"-db", dbPath, "sideways"}, `unknown command "sideways"`},
		{"zero steps", []string{"-db", dbPath, "-steps", "0", "down"}, "steps must be at least 1"},
		{"unknown flag", []string{"-force"}, "flag provided but not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(tt.args, new(bytes.Buffer), new(bytes.Buffer))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
