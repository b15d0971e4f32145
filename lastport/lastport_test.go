package lastport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingIsEmpty(t *testing.T) {
	s := Store{Path: filepath.Join(t.TempDir(), "nope.conf")}
	port, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, port)
}

func TestSaveLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sub", DefaultFile)
	s := Store{Path: p}
	require.NoError(t, s.Save("COM5"))
	require.NoError(t, s.Save("/dev/ttyUSB0"))

	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", string(raw), "the file holds only the port name")

	port, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", port)
}

func TestLoadTrimsNewline(t *testing.T) {
	p := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(p, []byte("COM3\r\n"), 0o644))
	port, err := Store{Path: p}.Load()
	require.NoError(t, err)
	assert.Equal(t, "COM3", port)
}

func TestPreferred(t *testing.T) {
	avail := []string{"COM3", "COM5"}
	assert.Equal(t, "COM5", Preferred("COM5", avail, "COM3"))
	assert.Equal(t, "COM4", Preferred("COM9", avail, "COM4"), "a vanished port is not offered")
	assert.Equal(t, "COM3", Preferred("COM9", avail, ""))
	assert.Equal(t, "COM1", Preferred("", nil, "COM1"))
	assert.Equal(t, "", Preferred("COM5", nil, ""))
}
