package audiomoth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFilename_Split_Accepts(t *testing.T) {
	var data = buildWAV("Recorded at 12:00:00 01/02/2023 (UTC)", "AudioMoth 0C2B1", 48000, 1)
	var h, err = ReadHeader(data, int64(len(data)))
	require.NoError(t, err)

	var info, verr = ValidateFilename(OpSplit, "20230201_120000.WAV", h)
	require.NoError(t, verr)
	assert.Equal(t, "20230201_120000", info.Timestring)
	assert.False(t, info.HasSyncPostfix())
}

func TestValidateFilename_Sync_PreservesSyncPostfix(t *testing.T) {
	var data = buildWAV("Recorded at 12:00:00 01/02/2023 (UTC)", "AudioMoth 0C2B1", 48000, 1)
	var h, err = ReadHeader(data, int64(len(data)))
	require.NoError(t, err)

	var info, verr = ValidateFilename(OpSync, "20230201_120000_SYNC.WAV", h)
	require.NoError(t, verr)
	assert.True(t, info.HasSyncPostfix())
}

func TestValidateFilename_RejectsMismatchedPattern(t *testing.T) {
	var _, err = ValidateFilename(OpSplit, "not_a_wav_name.WAV", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, Kind(ErrFilenameInvalid))
}

func TestValidateFilename_RejectsCommentMismatch(t *testing.T) {
	var data = buildWAV("Recorded at 13:00:00 01/02/2023 (UTC)", "AudioMoth 0C2B1", 48000, 1)
	var h, err = ReadHeader(data, int64(len(data)))
	require.NoError(t, err)

	var _, verr = ValidateFilename(OpSplit, "20230201_120000.WAV", h)
	require.Error(t, verr)
	assert.ErrorIs(t, verr, Kind(ErrMetadataMismatch))
}

func TestValidateFilename_RejectsPrefixNotMatchingArtist(t *testing.T) {
	var data = buildWAV("Recorded at 12:00:00 01/02/2023 (UTC)", "AudioMoth 0C2B1", 48000, 1)
	var h, err = ReadHeader(data, int64(len(data)))
	require.NoError(t, err)

	var _, verr = ValidateFilename(OpSync, "WRONGPREFIX_20230201_120000.WAV", h)
	require.Error(t, verr)
	assert.ErrorIs(t, verr, Kind(ErrMetadataMismatch))
}

func TestValidateFilename_Expand_AcceptsLegacyBareTime(t *testing.T) {
	var data = buildWAV("Recorded at 12:00:00 01/02/2023 (UTC)", "AudioMoth 0C2B1", 48000, 1)
	var h, err = ReadHeader(data, int64(len(data)))
	require.NoError(t, err)

	var info, verr = ValidateFilename(OpExpand, "120000.WAV", h)
	require.NoError(t, verr)
	assert.Equal(t, "120000", info.Timestring)
}

func TestParseCommentTimestamp_HandlesOffset(t *testing.T) {
	var utc, tz, ok = parseCommentTimestamp("Recorded at 09:30:00 15/06/2023 (UTC-5)")
	require.True(t, ok)
	assert.Equal(t, -5*60, int(tz.Minutes()))
	assert.Equal(t, 14, utc.Hour()) // 09:30 local + 5h = 14:30 UTC
	assert.Equal(t, 30, utc.Minute())
}

func TestParseCommentTimestamp_RejectsUnrecognised(t *testing.T) {
	var _, _, ok = parseCommentTimestamp("no timestamp here")
	assert.False(t, ok)
}
