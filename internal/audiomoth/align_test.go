package audiomoth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGPSLog(t *testing.T, dir string, lines ...string) string {
	t.Helper()
	var path = filepath.Join(dir, "GPS.TXT")
	var text string
	for _, l := range lines {
		text += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestAligner_Initialise_CommitsReconciledFixes(t *testing.T) {
	var dir = t.TempDir()
	var path = writeGPSLog(t, dir,
		"Received GPS fix: 2023-02-01 12:00:00 Latitude: 51.5 Longitude: -0.12",
		"Time was set.",
		"Actual sample rate: 48000 Hz",
		"Received GPS fix: 2023-02-01 12:10:00 Latitude: 51.5 Longitude: -0.12",
		"Time was updated by 50ms fast",
		"Actual sample rate: 48002 Hz",
	)

	var a = NewAligner(nil)
	require.NoError(t, a.Initialise(path))

	assert.Len(t, a.fixes, 2)
	assert.Equal(t, 48000000.0, a.fixes[0].SampleRateMHz)
	assert.Equal(t, 500.0, a.fixes[1].TimeOffsetMs10) // 50ms * 10
}

func TestAligner_Initialise_RejectsFewerThanTwoFixes(t *testing.T) {
	var dir = t.TempDir()
	var path = writeGPSLog(t, dir,
		"Received GPS fix: 2023-02-01 12:00:00 Latitude: 51.5 Longitude: -0.12",
		"Time was set.",
		"Actual sample rate: 48000 Hz",
	)

	var a = NewAligner(nil)
	var err = a.Initialise(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, Kind(ErrInsufficientFixes))
}

func TestInterpolateFix_MidpointAverages(t *testing.T) {
	var t0 = time.Date(2023, 2, 1, 12, 0, 0, 0, time.UTC)
	var t1 = time.Date(2023, 2, 1, 12, 10, 0, 0, time.UTC)
	var lower = Fix{Timestamp: t0, TimeOffsetMs10: 0, SampleRateMHz: 48000000}
	var upper = Fix{Timestamp: t1, TimeOffsetMs10: 100, SampleRateMHz: 48000100}

	var mid = t0.Add(5 * time.Minute)
	var offset, rate, calc = interpolateFix(lower, upper, mid, 48000000, maxDivergenceDefault)

	assert.InDelta(t, 50, offset, 1e-6)
	assert.Equal(t, "INTERPOLATION", calc)
	assert.InDelta(t, 48000050, rate, 1e-3)
}

func TestInterpolateFix_DivergentRateFallsBackToMedian(t *testing.T) {
	var t0 = time.Date(2023, 2, 1, 12, 0, 0, 0, time.UTC)
	var t1 = time.Date(2023, 2, 1, 12, 10, 0, 0, time.UTC)
	var lower = Fix{Timestamp: t0, SampleRateMHz: 48000000}
	var upper = Fix{Timestamp: t1, SampleRateMHz: 49000000} // wildly divergent

	var _, rate, calc = interpolateFix(lower, upper, t0.Add(5*time.Minute), 48000000, maxDivergenceDefault)
	assert.Equal(t, "MEDIAN", calc)
	assert.Equal(t, 48000000.0, rate)
}

func TestAligner_Align_DerivesDistinctStartAndEndSampleRates(t *testing.T) {
	var dir = t.TempDir()
	var fixBase = time.Date(2023, 2, 1, 12, 0, 0, 0, time.UTC)

	var a = NewAligner(nil)
	// Set up directly rather than via Initialise/GPS.TXT: this needs a
	// long enough inter-fix span, and a small enough divergence between
	// the two fixes' rates to survive the MAX_DIVERGENCE check, that a
	// several-second recording samples two clearly distinct points on
	// the interpolated drift line while still landing within 100 mHz of
	// the WAV header's declared rate at its start.
	a.fixes = []Fix{
		{Timestamp: fixBase, SampleRateMHz: 48000000},
		{Timestamp: fixBase.Add(10 * time.Second), SampleRateMHz: 48000300},
	}
	a.medianSampleRate = 48000300

	var recordedAt = fixBase.Add(time.Second)
	var input = writeWAVFixture(t, dir, "20230201_120001.WAV", "Recorded at 12:00:01 01/02/2023 (UTC)", "AudioMoth 0C2B1", 48000, 192000)

	var outPath, err = a.Align(input, dir, AlignOptions{})
	require.NoError(t, err)
	assert.FileExists(t, outPath)

	require.Len(t, a.recordings, 1)
	var rec = a.recordings[0]
	assert.Equal(t, recordedAt, rec.Timestamp)
	assert.NotEqual(t, rec.SampleRateStart, rec.SampleRateEnd)
	assert.InDelta(t, 48000.03, rec.SampleRateStart, 1e-3)
	assert.InDelta(t, 48000.15, rec.SampleRateEnd, 1e-3)
}

func TestAligner_AlignAndFinalise_EndToEnd(t *testing.T) {
	var dir = t.TempDir()
	var gpsLog = writeGPSLog(t, dir,
		"Received GPS fix: 2023-02-01 11:50:00 Latitude: 51.5 Longitude: -0.12",
		"Time was set.",
		"Actual sample rate: 48000 Hz",
		"Received GPS fix: 2023-02-01 12:10:00 Latitude: 51.5 Longitude: -0.12",
		"Time was set.",
		"Actual sample rate: 48000 Hz",
	)

	var a = NewAligner(nil)
	require.NoError(t, a.Initialise(gpsLog))

	var input = writeWAVFixture(t, dir, "20230201_120000.WAV", "Recorded at 12:00:00 01/02/2023 (UTC)", "AudioMoth 0C2B1", 48000, 100)

	var outPath, err = a.Align(input, dir, AlignOptions{})
	require.NoError(t, err)
	assert.FileExists(t, outPath)

	var reportPath = filepath.Join(dir, "GPS.CSV")
	require.NoError(t, a.Finalise(reportPath))
	assert.FileExists(t, reportPath)

	var contents, rerr = os.ReadFile(reportPath)
	require.NoError(t, rerr)
	assert.Contains(t, string(contents), "FIX")
	assert.Contains(t, string(contents), "RECORDING")
}
