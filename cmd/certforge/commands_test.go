package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certforge/internal/errcode"
	"certforge/internal/testutil"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestGenerateCommand(t *testing.T) {
	dir := t.TempDir()
	rosterPath := testutil.WriteWorkbook(t, dir, "roster.xlsx",
		testutil.Header,
		[]string{"Alice", "Go", "3", "Hackathon"},
	)
	templatePath := testutil.WriteTemplate(t, dir, 1800, 900)
	out := filepath.Join(dir, "out")
	missingFont := filepath.Join(dir, "missing.ttf")

	stdout, stderr, err := execute(t, "generate",
		"--roster", rosterPath,
		"--template", templatePath,
		"--out", out,
		"--name-font", missingFont,
		"--details-font", missingFont,
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 certificates written for 1 records")
	assert.Contains(t, stdout, filepath.Join(out, "certificates.zip"))
	assert.Contains(t, stderr, "default font used")
	assert.FileExists(t, filepath.Join(out, "Alice_certificate.png"))
}

func TestGenerateCommandMissingColumns(t *testing.T) {
	dir := t.TempDir()
	rosterPath := testutil.WriteWorkbook(t, dir, "roster.xlsx", []string{"Name"}, []string{"Alice"})
	missingFont := filepath.Join(dir, "missing.ttf")

	_, _, err := execute(t, "generate",
		"--roster", rosterPath,
		"--template", testutil.WriteTemplate(t, dir, 100, 100),
		"--out", filepath.Join(dir, "out"),
		"--name-font", missingFont,
		"--details-font", missingFont,
	)
	require.Error(t, err)
	assert.Equal(t, errcode.DataFormat, errcode.Code(err))
	assert.Contains(t, err.Error(), "missing required columns: [Course Position Event]")
}

func TestGenerateCommandRequiresFlags(t *testing.T) {
	_, _, err := execute(t, "generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roster")
}

func TestRosterCommand(t *testing.T) {
	dir := t.TempDir()
	rosterPath := testutil.WriteWorkbook(t, dir, "roster.xlsx",
		testutil.Header,
		[]string{"Alice", "Go", "1", "Hackathon"},
		[]string{"Bob", "", "11", ""},
	)

	stdout, _, err := execute(t, "roster", rosterPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"NAME", "COURSE", "POSITION", "EVENT"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"Alice", "Go", "1st", "Hackathon"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"Bob", "Unknown", "11th", "Unknown"}, strings.Fields(lines[2]))
}
