package audiomoth

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGuanoChunk(body string) []byte {
	var out bytes.Buffer
	out.WriteString("guan")
	binary.Write(&out, binary.LittleEndian, uint32(len(body)))
	out.WriteString(body)
	return out.Bytes()
}

func TestReadGuano_RoundTrip(t *testing.T) {
	var body = "GUANO|Version:1.0\nTimestamp:2023-01-01T00:00:00.000-05:00\n"
	var data = buildGuanoChunk(body)

	var g, err = ReadGuano(data, int64(len(data)))
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, body, string(g.Contents))

	var out bytes.Buffer
	require.NoError(t, WriteGuano(&out, g))
	assert.Equal(t, data, out.Bytes())
}

func TestReadGuano_AbsentReturnsNilNil(t *testing.T) {
	var g, err = ReadGuano([]byte("notg uano"), 9)
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestReadGuano_RejectsOverrun(t *testing.T) {
	var data = buildGuanoChunk("short")
	var _, err = ReadGuano(data, int64(len(data)-1))
	require.Error(t, err)
	assert.ErrorIs(t, err, Kind(ErrHeaderInvalid))
}

func TestWriteGuano_NilIsNoOp(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, WriteGuano(&out, nil))
	assert.Empty(t, out.Bytes())
}

func TestWithRewrittenTimestamp_ReplacesOnlyFirstOccurrence(t *testing.T) {
	var g = &Guano{Contents: []byte("Timestamp:2023-01-01T00:00:00.000-05:00 Other:2023-01-01T00:00:00")}

	var rewritten = g.WithRewrittenTimestamp("2024-06-15T08:30:00")

	var want = "Timestamp:2024-06-15T08:30:00.000-05:00 Other:2023-01-01T00:00:00"
	assert.Equal(t, want, string(rewritten.Contents))
}

func TestWithRewrittenTimestamp_NilReceiverStaysNil(t *testing.T) {
	var g *Guano
	assert.Nil(t, g.WithRewrittenTimestamp("2024-01-01T00:00:00"))
}
