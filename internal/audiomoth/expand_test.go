package audiomoth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSentinelBlock(count uint32) []byte {
	var block = make([]byte, sentinelBlockSize)
	for i := 0; i < sentinelBits; i++ {
		var v int16 = -1
		if count&(1<<uint(i)) != 0 {
			v = 1
		}
		writeSample16(block, i*2, v)
	}
	return block
}

func TestDecodeSentinelBlock_RoundTripsCount(t *testing.T) {
	var block = makeSentinelBlock(37)
	var count, ok = decodeSentinelBlock(block)
	require.True(t, ok)
	assert.EqualValues(t, 37, count)
}

func TestDecodeSentinelBlock_RejectsNonSentinelData(t *testing.T) {
	var block = make([]byte, sentinelBlockSize)
	writeSample16(block, 0, 1234) // not -1/1/0
	var _, ok = decodeSentinelBlock(block)
	assert.False(t, ok)
}

func newSectionReaderOverBytes(t *testing.T, data []byte) *sectionReader {
	t.Helper()
	var path = filepath.Join(t.TempDir(), "section.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	var f, err = os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return newSectionReader(f, 0)
}

func TestBuildSegments_MergesSilentRunIntoOneSegment(t *testing.T) {
	var audio = make([]byte, 512)
	for i := range audio {
		audio[i] = byte(i % 7)
	}
	var sentinel = makeSentinelBlock(3) // expands to 3*512 output bytes

	var data = append(append([]byte{}, audio...), sentinel...)
	var r = newSectionReaderOverBytes(t, data)

	var segments, err = buildSegments(r, int64(len(data)))
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Equal(t, segAudio, segments[0].kind)
	assert.EqualValues(t, 512, segments[0].outputBytes)

	assert.Equal(t, segSilent, segments[1].kind)
	assert.EqualValues(t, 512, segments[1].inputBytes)
	assert.EqualValues(t, 3*512, segments[1].outputBytes)
	assert.EqualValues(t, 512, segments[1].outputOffset)
}

func TestExpand_DurationModeWithNoSentinelsCopiesThrough(t *testing.T) {
	var dir = t.TempDir()
	// 256 samples (512 bytes) of non-zero, non-sentinel audio: nothing
	// decodes as a sentinel block, so this should just pass through unchanged.
	var input = writeWAVFixture(t, dir, "20230201_120000.WAV", "Recorded at 12:00:00 01/02/2023 (UTC)", "AudioMoth 0C2B1", 48000, 256)
	require.NoError(t, fillNonSentinelSamples(input))

	var maxDur = 1
	var outputs, err = Expand(input, t.TempDir(), ExpandOptions{MaximumFileDuration: &maxDur, GenerateSilentFiles: true})
	require.NoError(t, err)
	require.Len(t, outputs, 1)

	var h, rerr = ReadHeader(mustRead(t, outputs[0]), mustSize(t, outputs[0]))
	require.NoError(t, rerr)
	assert.EqualValues(t, 256*2, h.DataSize)
}

func TestExpand_EventModeSlicesLongAudioSegmentIntoMultipleFiles(t *testing.T) {
	var dir = t.TempDir()
	var sampleRate = 8000
	var maxDur = 1
	var secondSamples = sampleRate // 1 second of audio per slab at this rate

	// A single AUDIO segment spanning 5 maximumFileDuration slabs, with no
	// sentinel blocks anywhere, so buildSegments reports it as one segment.
	var numSamples = secondSamples * 5
	var input = writeWAVFixture(t, dir, "20230201_120000.WAV", "Recorded at 12:00:00 01/02/2023 (UTC)", "AudioMoth 0C2B1", uint32(sampleRate), numSamples)
	require.NoError(t, fillNonSentinelSamples(input))

	var outputs, err = Expand(input, dir, ExpandOptions{
		MaximumFileDuration: &maxDur,
		ExpansionType:       ExpandEvent,
	})
	require.NoError(t, err)
	require.Len(t, outputs, 5)

	var totalDataSize int64
	for _, out := range outputs {
		var h, rerr = ReadHeader(mustRead(t, out), mustSize(t, out))
		require.NoError(t, rerr)
		assert.EqualValues(t, secondSamples*2, h.DataSize)
		totalDataSize += int64(h.DataSize)
	}
	assert.EqualValues(t, numSamples*2, totalDataSize)
}

// fillNonSentinelSamples overwrites the data payload of a fixture built
// by writeWAVFixture with a pattern that can never decode as a sentinel
// block (every sample outside {-1,0,1}).
func fillNonSentinelSamples(path string) error {
	var data, err = os.ReadFile(path)
	if err != nil {
		return err
	}

	var h, herr = ReadHeader(data, int64(len(data)))
	if herr != nil {
		return herr
	}

	for off := h.Size; off+2 <= len(data); off += 2 {
		writeSample16(data, off, 12345)
	}

	return os.WriteFile(path, data, 0o644)
}
