package suite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const validSuiteYAML = `
name: smoke
description: quick sanity pass
scenarios:
  - name: short-prompt
    prompt: "Say hi"
    max_tokens: 16
  - name: long-prompt
    prompt: "Write a short story"
    max_tokens: 512
    expected_output_length: 400
`

func TestLoad_ParsesScenarios(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "smoke.yaml", validSuiteYAML)

	s, err := Load(filepath.Join(dir, "smoke.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "smoke", s.Name)
	require.Len(t, s.Scenarios, 2)
	assert.Equal(t, "short-prompt", s.Scenarios[0].Name)
	assert.Equal(t, 16, s.Scenarios[0].MaxTokens)
	assert.Equal(t, 400, s.Scenarios[1].ExpectedOutputLength)
}

func TestLoad_DefaultsMissingMaxTokens(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bare.yaml", `
name: bare
scenarios:
  - name: only
    prompt: "hello"
`)

	s, err := Load(filepath.Join(dir, "bare.yaml"))
	require.NoError(t, err)
	require.Len(t, s.Scenarios, 1)
	assert.Equal(t, 100, s.Scenarios[0].MaxTokens)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/suite.yaml")
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: [unterminated")

	_, err := Load(filepath.Join(dir, "broken.yaml"))
	assert.Error(t, err)
}

func TestLoadAll_LoadsEveryYAMLFileAndSkipsOthers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", validSuiteYAML)
	writeFile(t, dir, "b.yml", "name: b\nscenarios:\n  - name: x\n    prompt: hi\n")
	writeFile(t, dir, "notes.txt", "not a suite")

	suites, err := LoadAll(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, suites, 2)
}

func TestLoadAll_SkipsUnparseableFileRatherThanFailing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.yaml", validSuiteYAML)
	writeFile(t, dir, "bad.yaml", "name: [unterminated")

	suites, err := LoadAll(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, suites, 1)
	assert.Equal(t, "smoke", suites[0].Name)
}

func TestLoadAll_MissingDirectory(t *testing.T) {
	_, err := LoadAll(context.Background(), "/nonexistent/suites/dir")
	assert.Error(t, err)
}
