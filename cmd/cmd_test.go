package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSyllabus = `title: GCSE Mathematics
topics:
  - id: 1
    name: Number
    subtopics:
      - id: 11
        name: Percentages
      - id: 12
        name: Ratio
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSyllabusCacheAndProgressCommands(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "bloom.db")
	file := filepath.Join(dir, "syllabus.yaml")
	require.NoError(t, os.WriteFile(file, []byte(testSyllabus), 0o644))

	out, err := run(t, "syllabus", "validate", file)
	require.NoError(t, err)
	assert.Contains(t, out, "valid (1 topics, 2 subtopics)")

	out, err = run(t, "--db", db, "syllabus", "load", file)
	require.NoError(t, err)
	assert.Contains(t, out, "1 topics, 2 subtopics")

	out, err = run(t, "--db", db, "syllabus", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Percentages")

	out, err = run(t, "--db", db, "cache", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "empty")

	_, err = run(t, "--db", db, "cache", "rm", "11")
	assert.Error(t, err)

	out, err = run(t, "--db", db, "progress")
	require.NoError(t, err)
	assert.Contains(t, out, "Number")

	_, err = run(t, "--db", db, "progress", "reset")
	assert.Error(t, err)

	out, err = run(t, "--db", db, "session", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found.")
}

func TestSyllabusValidateRejectsBadFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"title":"T","topics":[]}`), 0o644))

	_, err := run(t, "syllabus", "validate", file)
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "bloom (devel)\n", out)
}

func TestVersionVerbose(t *testing.T) {
	t.Cleanup(func() { versionCmd.Flags().Set("verbose", "false") })

	out, err := run(t, "version", "--verbose")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "bloom (devel)\ngo: "), out)
	assert.Contains(t, out, runtime.GOOS+"/"+runtime.GOARCH)
}
