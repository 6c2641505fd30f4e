package audiomoth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_NoPathNoFileReturnsDefaults(t *testing.T) {
	var cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_MissingExplicitPathIsError(t *testing.T) {
	var _, err = LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, Kind(ErrInvalidArgument))
}

func TestLoadConfig_MergesOntoDefaults(t *testing.T) {
	var dir = t.TempDir()
	var path = filepath.Join(dir, "audiomoth-utils.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pps:\n  lfxoPPM: 50\n"), 0o644))

	var cfg, err = LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 50.0, cfg.PPS.LFXOPPM)
	// Untouched fields keep their defaults.
	assert.Equal(t, DefaultConfig().RecognisedDownsampleRates, cfg.RecognisedDownsampleRates)
	assert.Equal(t, DefaultConfig().Align.MaxDivergenceHzPerSec, cfg.Align.MaxDivergenceHzPerSec)
}

func TestLoadConfig_RejectsMalformedYAML(t *testing.T) {
	var dir = t.TempDir()
	var path = filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pps: [this is not a mapping"), 0o644))

	var _, err = LoadConfig(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, Kind(ErrInvalidArgument))
}
