package audiomoth

/*------------------------------------------------------------------
 *
 * Purpose:	The optional trailing GUANO chunk: bat-recording metadata
 *		carried past the data payload as a "guan" RIFF chunk.
 *
 * Description:	The body is kept both as a raw buffer, for verbatim
 *		rewrite, and as a string, for regex-based timestamp edits
 *		(Split/Expand/Sync/Align all rewrite the embedded
 *		timestamp before re-emitting the chunk).
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
	"io"
	"regexp"
)

// Guano is the optional trailing "guan" chunk (spec §3).
type Guano struct {
	Contents []byte // raw UTF-8 body, exactly as read
}

// ReadGuano reads one "guan" chunk starting at data[0], if present.
// availableBytes bounds how much of data may be consumed. Returns
// (nil, nil) if there is no trailing guan chunk at all.
func ReadGuano(data []byte, availableBytes int64) (*Guano, error) {
	if int64(len(data)) < availableBytes {
		availableBytes = int64(len(data))
	}
	if availableBytes < chunkHeaderSize {
		return nil, nil
	}

	if string(data[0:4]) != "guan" {
		return nil, nil
	}

	var size = binary.LittleEndian.Uint32(data[4:8])
	var end = int64(chunkHeaderSize) + int64(size)
	if end > availableBytes {
		return nil, newErr(ErrHeaderInvalid, "guan chunk overruns available bytes")
	}

	return &Guano{Contents: append([]byte(nil), data[chunkHeaderSize:end]...)}, nil
}

// WriteGuano emits the "guan" chunk with its current size and buffer.
func WriteGuano(w io.Writer, g *Guano) error {
	if g == nil {
		return nil
	}

	var header [chunkHeaderSize]byte
	copy(header[0:4], "guan")
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(g.Contents)))

	if _, err := w.Write(header[:]); err != nil {
		return wrapErr(ErrOutputWriteFailed, err, "writing guan chunk header")
	}
	if _, err := w.Write(g.Contents); err != nil {
		return wrapErr(ErrOutputWriteFailed, err, "writing guan chunk body")
	}

	return nil
}

// isoTimestampPattern matches a GUANO Timestamp field's value, e.g.
// "2023-01-01T00:00:00.000-05:00" — we only ever rewrite the
// YYYY-MM-DDTHH:MM:SS portion, leaving fractional seconds/offset alone.
var isoTimestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)

// WithRewrittenTimestamp returns a copy of g with the first occurrence
// of a YYYY-MM-DDTHH:MM:SS timestamp in its text body replaced by
// newTimestamp (spec §4.3 step 6, §4.5 writing, §4.8, §4.9).
func (g *Guano) WithRewrittenTimestamp(newTimestamp string) *Guano {
	if g == nil {
		return nil
	}

	var text = string(g.Contents)
	var replaced bool

	var out = isoTimestampPattern.ReplaceAllStringFunc(text, func(match string) string {
		if replaced {
			return match
		}
		replaced = true
		return newTimestamp
	})

	return &Guano{Contents: []byte(out)}
}
