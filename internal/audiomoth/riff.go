package audiomoth

/*------------------------------------------------------------------
 *
 * Purpose:	C1 — the restricted RIFF/WAVE reader and writer. Parses the
 *		opening RIFF container, walks fmt /LIST-INFO/data chunks,
 *		tolerates and preserves anything else it finds before
 *		data, and can patch header fields in place so a rewritten
 *		header is byte-identical outside the fields explicitly
 *		changed (spec §4.1, §8 invariant 6).
 *
 * Description:	Every recognised chunk's raw bytes are kept in Header.raw
 *		so WriteHeader can emit the original chunk order verbatim;
 *		UpdateComment/UpdateSampleRate/UpdateSizes patch that same
 *		buffer at recorded offsets instead of re-serialising from
 *		scratch.
 *
 *---------------------------------------------------------------*/

import (
	"bytes"
	"encoding/binary"
	"io"
)

const (
	riffHeaderSize  = 12 // "RIFF" + size + "WAVE"
	chunkHeaderSize = 8  // id + size
	fmtChunkSize    = 16 // PCM fmt chunk payload size
)

// Format mirrors the fmt chunk payload (spec §3 wavFormat).
type Format struct {
	AudioFormat       uint16
	NumChannels       uint16
	SamplesPerSecond  uint32
	BytesPerSecond    uint32
	BlockAlign        uint16
	BitsPerSample     uint16
}

// Header is the parsed WAV header (spec §3 WavHeader).
type Header struct {
	Size     int    // total header length up to (excluding) the data payload
	Format   Format
	DataSize uint32 // data.size, payload byte count

	Comment string // ICMT text, trimmed of trailing NULs
	Artist  string // IART text, trimmed of trailing NULs

	// raw holds every recognised chunk's bytes, in file order, so the
	// header can be rewritten verbatim except for patched fields.
	raw []byte

	riffSizeOffset  int // offset of the RIFF chunk's 4-byte size field
	fmtRateOffset   int // offset of fmt.SamplesPerSecond
	fmtByteRateOffset int
	dataSizeOffset  int // offset of the data chunk's 4-byte size field
	icmtTextOffset  int // offset of ICMT text bytes, or -1 if absent
	icmtCapacity    int // declared ICMT chunk size
	iartTextOffset  int
	iartCapacity    int
}

// ReadHeader parses the RIFF/WAVE header starting at bytes[0]. fileSize
// is the total size of the underlying file, used to validate data.size.
func ReadHeader(data []byte, fileSize int64) (*Header, error) {
	if len(data) < riffHeaderSize {
		return nil, newErr(ErrHeaderInvalid, "file too short for RIFF header")
	}

	if string(data[0:4]) != "RIFF" {
		return nil, newErr(ErrHeaderInvalid, "missing RIFF tag")
	}

	if string(data[8:12]) != "WAVE" {
		return nil, newErr(ErrHeaderInvalid, "not a WAVE file")
	}

	var h = &Header{
		riffSizeOffset: 4,
		icmtTextOffset: -1,
		iartTextOffset: -1,
	}

	var pos = riffHeaderSize
	var sawFmt, sawData bool

	for pos+chunkHeaderSize <= len(data) {
		var id = string(data[pos : pos+4])
		var size = binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		var payloadStart = pos + chunkHeaderSize
		var payloadEnd = payloadStart + int(size)

		if payloadEnd > len(data) {
			return nil, newErr(ErrHeaderInvalid, "chunk %q overruns buffer", id)
		}

		switch id {
		case "fmt ":
			if size < fmtChunkSize {
				return nil, newErr(ErrHeaderInvalid, "fmt chunk too small")
			}

			h.fmtRateOffset = payloadStart + 4
			h.fmtByteRateOffset = payloadStart + 8

			h.Format = Format{
				AudioFormat:      binary.LittleEndian.Uint16(data[payloadStart : payloadStart+2]),
				NumChannels:      binary.LittleEndian.Uint16(data[payloadStart+2 : payloadStart+4]),
				SamplesPerSecond: binary.LittleEndian.Uint32(data[payloadStart+4 : payloadStart+8]),
				BytesPerSecond:   binary.LittleEndian.Uint32(data[payloadStart+8 : payloadStart+12]),
				BlockAlign:       binary.LittleEndian.Uint16(data[payloadStart+12 : payloadStart+14]),
				BitsPerSample:    binary.LittleEndian.Uint16(data[payloadStart+14 : payloadStart+16]),
			}

			if h.Format.AudioFormat != 1 {
				return nil, newErr(ErrHeaderInvalid, "non-PCM format %d", h.Format.AudioFormat)
			}
			if h.Format.NumChannels != 1 {
				return nil, newErr(ErrHeaderInvalid, "not mono, %d channels", h.Format.NumChannels)
			}
			if h.Format.BitsPerSample != 16 {
				return nil, newErr(ErrHeaderInvalid, "not 16-bit, %d bits", h.Format.BitsPerSample)
			}

			sawFmt = true

		case "LIST":
			if payloadStart+4 > len(data) || string(data[payloadStart:payloadStart+4]) != "INFO" {
				// Not an INFO list; preserve but don't interpret.
				break
			}

			var sub = payloadStart + 4
			for sub+chunkHeaderSize <= payloadEnd {
				var subID = string(data[sub : sub+4])
				var subSize = binary.LittleEndian.Uint32(data[sub+4 : sub+8])
				var subTextStart = sub + chunkHeaderSize
				var subTextEnd = subTextStart + int(subSize)

				if subTextEnd > payloadEnd {
					return nil, newErr(ErrHeaderInvalid, "LIST subchunk %q overruns LIST", subID)
				}

				switch subID {
				case "ICMT":
					h.icmtTextOffset = subTextStart
					h.icmtCapacity = int(subSize)
					h.Comment = trimNUL(data[subTextStart:subTextEnd])
				case "IART":
					h.iartTextOffset = subTextStart
					h.iartCapacity = int(subSize)
					h.Artist = trimNUL(data[subTextStart:subTextEnd])
				}

				sub = subTextEnd
				if subSize%2 == 1 {
					sub++ // chunks are padded to even length
				}
			}

		case "data":
			h.dataSizeOffset = pos + 4
			h.DataSize = size
			h.Size = pos + chunkHeaderSize
			sawData = true
		}

		if sawData {
			break
		}

		pos = payloadEnd
		if size%2 == 1 {
			pos++
		}
	}

	if !sawFmt {
		return nil, newErr(ErrHeaderInvalid, "missing fmt chunk")
	}
	if !sawData {
		return nil, newErr(ErrHeaderInvalid, "missing data chunk")
	}

	if int64(h.Size)+int64(h.DataSize) > fileSize {
		return nil, newErr(ErrHeaderInvalid, "data.size %d exceeds fileSize-header.size", h.DataSize)
	}

	h.raw = append([]byte(nil), data[:h.Size]...)

	return h, nil
}

func trimNUL(b []byte) string {
	var i = bytes.IndexByte(b, 0)
	if i < 0 {
		return string(b)
	}
	return string(b[:i])
}

// UpdateComment replaces the ICMT text in place, zero-padded to the
// declared ICMT capacity. Fails if text is longer than that capacity.
func (h *Header) UpdateComment(text string) error {
	if h.icmtTextOffset < 0 {
		return newErr(ErrHeaderInvalid, "no ICMT chunk to update")
	}
	if len(text) > h.icmtCapacity {
		return newErr(ErrInvalidArgument, "comment %q exceeds ICMT capacity %d", text, h.icmtCapacity)
	}

	var dst = h.raw[h.icmtTextOffset : h.icmtTextOffset+h.icmtCapacity]
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, text)
	h.Comment = text

	return nil
}

// UpdateSampleRate rewrites only wavFormat.samplesPerSecond and the
// derived bytes-per-second field.
func (h *Header) UpdateSampleRate(rate uint32) {
	h.Format.SamplesPerSecond = rate
	h.Format.BytesPerSecond = rate * uint32(h.Format.BlockAlign)

	binary.LittleEndian.PutUint32(h.raw[h.fmtRateOffset:h.fmtRateOffset+4], rate)
	binary.LittleEndian.PutUint32(h.raw[h.fmtByteRateOffset:h.fmtByteRateOffset+4], h.Format.BytesPerSecond)
}

// UpdateSizes sets data.size to dataSize and recomputes the RIFF outer
// size to include the header, data, and (if present) guano sizes.
func (h *Header) UpdateSizes(guano *Guano, dataSize uint32) {
	h.DataSize = dataSize
	binary.LittleEndian.PutUint32(h.raw[h.dataSizeOffset:h.dataSizeOffset+4], dataSize)

	var riffSize = uint32(h.Size-chunkHeaderSize) + dataSize
	if guano != nil {
		riffSize += chunkHeaderSize + uint32(len(guano.Contents))
	}

	binary.LittleEndian.PutUint32(h.raw[h.riffSizeOffset:h.riffSizeOffset+4], riffSize)
}

// WriteHeader emits the header bytes, preserving original chunk order.
func (h *Header) WriteHeader(w io.Writer) error {
	var _, err = w.Write(h.raw)
	if err != nil {
		return wrapErr(ErrOutputWriteFailed, err, "writing header")
	}
	return nil
}

// Clone returns a deep copy of h so edits to the copy (e.g. per-output
// comment rewrites in Split) don't disturb the original parse.
func (h *Header) Clone() *Header {
	var c = *h
	c.raw = append([]byte(nil), h.raw...)
	return &c
}
