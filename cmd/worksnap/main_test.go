package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/root4loot/worksnap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	cli := NewCLI()
	args := []string{
		"--env-file", filepath.Join(t.TempDir(), "none.env"),
		"-u", "http://localhost:3000",
		"-d", "chromedp",
		"-of", "/tmp/full.png",
		"--viewport-out=/tmp/viewport.png",
		"-wt", "8s",
		"-lw", "1s",
		"--category-wait=4s",
		"-at", "15s",
		"--headful",
		"--dev",
	}

	require.NoError(t, cli.parseFlags(args))

	assert.Equal(t, "http://localhost:3000", cli.Options.URL)
	assert.Equal(t, worksnap.DriverChromedp, cli.Options.Driver)
	assert.Equal(t, "/tmp/full.png", cli.Options.FullPagePath)
	assert.Equal(t, "/tmp/viewport.png", cli.Options.ViewportPath)
	assert.Equal(t, 8*time.Second, cli.Options.WorkCardTimeout)
	assert.Equal(t, time.Second, cli.Options.LoginWait)
	assert.Equal(t, 4*time.Second, cli.Options.CategoryWait)
	assert.Equal(t, 15*time.Second, cli.Options.ActionTimeout)
	assert.False(t, cli.Options.Headless)
	assert.True(t, cli.Options.Dev)
	assert.NotNil(t, cli.Launch)
}

func TestParseFlagsPrecedence(t *testing.T) {
	dir := t.TempDir()

	config := filepath.Join(dir, "worksnap.yaml")
	require.NoError(t, os.WriteFile(config, []byte("url: http://file\nemail: file@example.com\npassword: file\n"), 0o644))

	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("WORKSNAP_EMAIL=env@example.com\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("WORKSNAP_EMAIL") })

	cli := NewCLI()
	require.NoError(t, cli.parseFlags([]string{"--config", config, "--env-file=" + envFile, "-p", "flag"}))

	assert.Equal(t, "http://file", cli.Options.URL)
	assert.Equal(t, "env@example.com", cli.Options.Email)
	assert.Equal(t, "flag", cli.Options.Password)
	assert.True(t, cli.Options.Headless)
}

func TestParseFlagsErrors(t *testing.T) {
	none := filepath.Join(t.TempDir(), "none.env")

	tests := [][]string{
		{"--env-file", none, "-d", "selenium"},
		{"--env-file", none, "--unknown"},
		{"--env-file", none, "--config", filepath.Join(t.TempDir(), "missing.yaml")},
		{"--env-file", none, "-wt", "0s"},
	}

	for _, args := range tests {
		assert.Error(t, NewCLI().parseFlags(args), args)
	}
}

func TestFilterFlags(t *testing.T) {
	args := []string{"-u", "x", "--config", "a.yaml", "-v", "--env-file=b.env", "-d", "rod"}

	assert.Equal(t, []string{"--config", "a.yaml", "--env-file=b.env"}, filterFlags(args, "config", "env-file"))
	assert.Empty(t, filterFlags([]string{"-u", "x"}, "config"))
}
