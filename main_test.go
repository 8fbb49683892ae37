package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithoutArgsPrintsUsage(t *testing.T) {
	out := &bytes.Buffer{}
	err := run(context.Background(), out, nil)
	require.ErrorIs(t, err, errUsage)
	assert.Contains(t, out.String(), "Usage:")
}

func TestRunHelp(t *testing.T) {
	out := &bytes.Buffer{}
	require.NoError(t, run(context.Background(), out, []string{"help"}))
	assert.Contains(t, out.String(), "predict")
}

func TestRunUnknownCommand(t *testing.T) {
	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"scrape"})
	require.ErrorIs(t, err, errUsage)
	assert.Contains(t, out.String(), `unknown command "scrape"`)
}

func TestPredictRequiresInput(t *testing.T) {
	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"predict"})
	require.ErrorIs(t, err, errUsage)
	assert.Contains(t, out.String(), "predict requires -input")
}

func TestImportWithEmptyDataDirFails(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_SQLITE_PATH", filepath.Join(dir, "dataset.db"))
	t.Setenv("APP_DATA_DIR", dir)
	t.Setenv("APP_LOG_LEVEL", "error")

	err := run(context.Background(), &bytes.Buffer{}, []string{"import"})
	assert.Error(t, err)
}
