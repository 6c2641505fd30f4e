package audiomoth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGPSLogLine_Fix(t *testing.T) {
	var line, ok = parseGPSLogLine("Received GPS fix: 2023-02-01 12:00:00 Latitude: 51.5 Longitude: -0.12")
	require.True(t, ok)
	assert.True(t, line.isFix)
	assert.InDelta(t, 51.5, line.latitude, 1e-9)
	assert.InDelta(t, -0.12, line.longitude, 1e-9)
	assert.Equal(t, 2023, line.fixTime.Year())
	assert.Equal(t, 12, line.fixTime.Hour())
}

func TestParseGPSLogLine_TimeSet(t *testing.T) {
	var line, ok = parseGPSLogLine("Time was set.")
	require.True(t, ok)
	assert.True(t, line.isTimeOutcome)
	assert.True(t, line.timeWasSet)
}

func TestParseGPSLogLine_TimeUpdatedFastAndSlow(t *testing.T) {
	var fast, ok = parseGPSLogLine("Time was updated by 120ms fast")
	require.True(t, ok)
	assert.Equal(t, 120, fast.timeOffsetMs)

	var slow, ok2 = parseGPSLogLine("Time was updated by 80ms slow")
	require.True(t, ok2)
	assert.Equal(t, -80, slow.timeOffsetMs)
}

func TestParseGPSLogLine_TimeNotUpdated(t *testing.T) {
	var line, ok = parseGPSLogLine("Time was not updated.")
	require.True(t, ok)
	assert.True(t, line.timeNotUpdated)
}

func TestParseGPSLogLine_SampleRate(t *testing.T) {
	var line, ok = parseGPSLogLine("Actual sample rate: 48003 Hz")
	require.True(t, ok)
	assert.True(t, line.isSampleRate)
	assert.Equal(t, 48003, line.sampleRate)
}

func TestParseGPSLogLine_UnrecognisedLineIsNotOK(t *testing.T) {
	var _, ok = parseGPSLogLine("some unrelated boot log line")
	assert.False(t, ok)
}
