package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/knadh/koanf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	c, err := Load(koanf.New("."), filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.Equal(t, 5*time.Minute, c.IdleTimeout())
	assert.Equal(t, 115200, c.Baud)
	assert.Equal(t, 10, c.Steps.Fine)
	assert.Equal(t, 50, c.Steps.Medium)
	assert.Equal(t, 100, c.Steps.Coarse)
	assert.Equal(t, "atom_focuser4.conf", c.LastPortFile)
}

func TestLoadFileOverlay(t *testing.T) {
	p := filepath.Join(t.TempDir(), FileName)
	yml := `Port: /dev/ttyUSB0
OpenTimeout: 1500ms
AutoPowerOffMinutes: 0.5
Steps:
  Fine: 5
LogFormat: json
`
	require.NoError(t, os.WriteFile(p, []byte(yml), 0o644))
	c, err := Load(koanf.New("."), p)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", c.Port)
	assert.Equal(t, 1500*time.Millisecond, c.OpenTimeout)
	assert.Equal(t, 30*time.Second, c.IdleTimeout())
	assert.Equal(t, 5, c.Steps.Fine)
	assert.Equal(t, 50, c.Steps.Medium, "unset nested keys keep their default")
	assert.Equal(t, "json", c.LogFormat)
	assert.Equal(t, ":8000", c.Addr)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(p, []byte("Port: COM3\n"), 0o644))
	t.Setenv("ATOMFOCUS_PORT", "COM5")
	t.Setenv("ATOMFOCUS_MOCK", "true")
	t.Setenv("ATOMFOCUS_STEPS__COARSE", "250")

	c, err := Load(koanf.New("."), p)
	require.NoError(t, err)
	assert.Equal(t, "COM5", c.Port)
	assert.True(t, c.Mock)
	assert.Equal(t, 250, c.Steps.Coarse)
}

func TestLoadRejectsInvalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(p, []byte("Baud: 0\nLogLevel: loud\n"), 0o644))
	_, err := Load(koanf.New("."), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Baud")
	assert.Contains(t, err.Error(), "loud")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Default().Validate())

	c := Default()
	c.Steps.Medium = 0
	assert.Error(t, c.Validate())

	c = Default()
	c.AutoPowerOffMinutes = -1
	assert.Error(t, c.Validate())

	c = Default()
	c.LogFormat = "xml"
	assert.Error(t, c.Validate())
}

func TestDialer(t *testing.T) {
	c := Default()
	c.Baud = 9600
	d := c.Dialer()
	assert.Equal(t, 9600, d.Baud)
	assert.Equal(t, 3*time.Second, d.OpenTimeout)
}

func TestMockBackend(t *testing.T) {
	c := Default()
	c.Mock = true
	c.Port = "COM5"
	opener, list := c.Backend()
	ports, err := list()
	require.NoError(t, err)
	assert.Equal(t, []string{"COM5"}, ports)
	ch, err := opener.Open("COM5")
	require.NoError(t, err)
	assert.Equal(t, "COM5", ch.Name())
	require.NoError(t, ch.Close())
}

func TestLoggerFromConfig(t *testing.T) {
	c := Default()
	c.LogLevel = "warn"
	c.LogFormat = "json"
	var buf bytes.Buffer
	l, lv, err := c.Logger(&buf)
	require.NoError(t, err)
	l.Info("hidden")
	assert.Zero(t, buf.Len())
	lv.Set(slog.LevelInfo)
	l.Info("shown")
	assert.Contains(t, buf.String(), `"ts"`)
}
