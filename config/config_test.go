package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/delaneyj/fiberparty/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, config.Default().Validate())
}

func TestParseOverridesOnlyWhatIsSet(t *testing.T) {
	cfg, err := config.Parse([]byte(`
scheduler:
  frame_budget: 8ms
log:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, 8*time.Millisecond, cfg.Scheduler.FrameBudget)
	assert.Equal(t, 250*time.Millisecond, cfg.Scheduler.UserBlockingTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestParseRejects(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown key":    "scheduler:\n  frame_budgett: 5ms\n",
		"bad duration":   "scheduler:\n  frame_budget: soon\n",
		"zero budget":    "scheduler:\n  frame_budget: 0s\n",
		"bad level":      "log:\n  level: loud\n",
		"bad format":     "log:\n  format: xml\n",
		"inverted order": "scheduler:\n  normal_timeout: 1s\n  user_blocking_timeout: 2s\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := config.Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadRoundTripsMarshal(t *testing.T) {
	want := config.Default()
	want.Metrics.Enabled = true
	want.Scheduler.NormalTimeout = 3 * time.Second
	data, err := want.Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "fiberparty.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	got, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLogger(t *testing.T) {
	cfg := config.Default()
	cfg.Log = config.Log{Level: "warn", Format: "json"}
	var buf bytes.Buffer
	l, err := cfg.Logger(&buf)
	require.NoError(t, err)

	l.Info("hidden")
	l.WithField("root", 1).Warn("shown")

	assert.Equal(t, logrus.WarnLevel, l.GetLevel())
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"root":1`)
}
