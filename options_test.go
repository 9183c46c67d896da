package worksnap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()

	assert.Equal(t, "http://localhost:5173", o.URL)
	assert.Equal(t, 375, o.CaptureWidth)
	assert.Equal(t, 812, o.CaptureHeight)
	assert.Equal(t, 5*time.Second, o.WorkCardTimeout)
	assert.Equal(t, 3*time.Second, o.CategoryWait)
	assert.Equal(t, DriverRod, o.Driver)
	assert.NoError(t, o.Validate())
}

func TestLoadOptionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worksnap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
url: http://staging:8080
driver: chromedp
work_card_timeout: 10s
selectors:
  edit_button_text: Edit works
`), 0o644))

	o, err := LoadOptionsFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://staging:8080", o.URL)
	assert.Equal(t, DriverChromedp, o.Driver)
	assert.Equal(t, 10*time.Second, o.WorkCardTimeout)
	assert.Equal(t, "Edit works", o.Selectors.EditButtonText)
	assert.Equal(t, ".work-card", o.Selectors.WorkCard)
	assert.Equal(t, "foreman@example.com", o.Email)
}

func TestLoadOptionsFileErrors(t *testing.T) {
	_, err := LoadOptionsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: [1"), 0o644))
	_, err = LoadOptionsFile(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("WORKSNAP_EMAIL=env-file@example.com\nWORKSNAP_PASSWORD=from-file\n"), 0o644))

	t.Setenv("WORKSNAP_URL", "http://env:5173")
	t.Setenv("WORKSNAP_PASSWORD", "from-env")
	t.Setenv("WORKSNAP_DEV", "true")
	t.Setenv("WORKSNAP_WORK_CARD_TIMEOUT", "7s")
	t.Setenv("WORKSNAP_LOGIN_WAIT", "4s")
	t.Setenv("WORKSNAP_CATEGORY_WAIT", "6s")
	t.Setenv("WORKSNAP_ACTION_TIMEOUT", "20s")
	t.Cleanup(func() { os.Unsetenv("WORKSNAP_EMAIL") })

	o := DefaultOptions()
	require.NoError(t, o.ApplyEnv(envFile, filepath.Join(t.TempDir(), "missing.env")))

	assert.Equal(t, "http://env:5173", o.URL)
	assert.Equal(t, "env-file@example.com", o.Email)
	assert.Equal(t, "from-env", o.Password)
	assert.True(t, o.Dev)
	assert.Equal(t, 7*time.Second, o.WorkCardTimeout)
	assert.Equal(t, 4*time.Second, o.LoginWait)
	assert.Equal(t, 6*time.Second, o.CategoryWait)
	assert.Equal(t, 20*time.Second, o.ActionTimeout)
	assert.Equal(t, 2*time.Second, o.StepWait)
}

func TestApplyEnvInvalid(t *testing.T) {
	t.Setenv("WORKSNAP_DEV", "maybe")
	assert.Error(t, DefaultOptions().ApplyEnv())

	t.Setenv("WORKSNAP_DEV", "false")
	t.Setenv("WORKSNAP_TIMEOUT", "soon")
	assert.Error(t, DefaultOptions().ApplyEnv())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"driver", func(o *Options) { o.Driver = "selenium" }},
		{"url", func(o *Options) { o.URL = "" }},
		{"paths", func(o *Options) { o.ViewportPath = "" }},
		{"work card timeout", func(o *Options) { o.WorkCardTimeout = 0 }},
		{"threshold", func(o *Options) { o.SimilarityThreshold = 101 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.modify(o)
			assert.Error(t, o.Validate())
		})
	}
}
