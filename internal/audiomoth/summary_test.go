package audiomoth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummariser_SummariseAndFinalise(t *testing.T) {
	var dir = t.TempDir()
	writeWAVFixture(t, dir, "20230201_120000.WAV", "Recorded at 12:00:00 01/02/2023 (UTC) and temperature was 18.2C", "AudioMoth 0C2B1", 48000, 480)
	writeWAVFixture(t, dir, "20230201_130000.WAV", "Recorded at 13:00:00 01/02/2023 (UTC)", "AudioMoth 0C2B1", 48000, 960)

	var s = NewSummariser(nil)
	s.Initialise()

	require.NoError(t, s.Summarise(dir, filepath.Join(dir, "20230201_120000.WAV"), nil))
	require.NoError(t, s.Summarise(dir, filepath.Join(dir, "20230201_130000.WAV"), nil))

	var outPath = filepath.Join(dir, "SUMMARY.CSV")
	require.NoError(t, s.Finalise(outPath))

	var contents, err = os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "20230201_120000.WAV")
	assert.Contains(t, string(contents), "20230201_130000.WAV")
	assert.Contains(t, string(contents), "18.2")
}

func TestSummariser_UnreadableFileStillProducesRow(t *testing.T) {
	var dir = t.TempDir()
	var path = filepath.Join(dir, "not-a-wav.WAV")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	var s = NewSummariser(nil)
	s.Initialise()
	require.NoError(t, s.Summarise(dir, path, nil))

	var outPath = filepath.Join(dir, "SUMMARY.CSV")
	require.NoError(t, s.Finalise(outPath))

	var contents, err = os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "not-a-wav.WAV")
}

func TestSummariser_Finalise_SortsByFolderThenFilename(t *testing.T) {
	var dir = t.TempDir()
	writeWAVFixture(t, dir, "20230201_130000.WAV", "Recorded at 13:00:00 01/02/2023 (UTC)", "AudioMoth 0C2B1", 48000, 10)
	writeWAVFixture(t, dir, "20230201_120000.WAV", "Recorded at 12:00:00 01/02/2023 (UTC)", "AudioMoth 0C2B1", 48000, 10)

	var s = NewSummariser(nil)
	s.Initialise()
	require.NoError(t, s.Summarise(dir, filepath.Join(dir, "20230201_130000.WAV"), nil))
	require.NoError(t, s.Summarise(dir, filepath.Join(dir, "20230201_120000.WAV"), nil))

	var outPath = filepath.Join(dir, "SUMMARY.CSV")
	require.NoError(t, s.Finalise(outPath))

	var contents, err = os.ReadFile(outPath)
	require.NoError(t, err)

	var firstIdx = indexOf(string(contents), "20230201_120000.WAV")
	var secondIdx = indexOf(string(contents), "20230201_130000.WAV")
	assert.True(t, firstIdx < secondIdx)
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
