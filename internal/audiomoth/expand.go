package audiomoth

/*------------------------------------------------------------------
 *
 * Purpose:	L2 Expander and core C2 — decodes a trigger-compressed
 *		recording's silent-run sentinels back into a conventional
 *		PCM timeline and cuts the result into DURATION- or
 *		EVENT-aligned output files (spec §4.5).
 *
 *---------------------------------------------------------------*/

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

const (
	sentinelBlockSize = 512
	sentinelBits       = 32
)

// ExpansionType selects how Expand cuts the reconstructed timeline.
type ExpansionType int

const (
	ExpandDuration ExpansionType = iota
	ExpandEvent
)

// segmentKind is a FileSummary segment's type (spec §3).
type segmentKind int

const (
	segAudio segmentKind = iota
	segSilent
)

// fileSegment is one maximal run of same-kind bytes in the input/output
// timelines (spec §3 FileSummary segment).
type fileSegment struct {
	kind         segmentKind
	inputBytes   int64
	outputBytes  int64
	inputOffset  int64 // offset within the data payload
	outputOffset int64 // offset within the reconstructed timeline
}

// ExpandOptions configures Expand.
type ExpandOptions struct {
	Prefix                   string
	MaximumFileDuration      *int // nil means the one-day default
	GenerateSilentFiles      bool
	AlignToSecondTransitions bool
	ExpansionType            ExpansionType
	Progress                 Progress
	Logger                   *log.Logger
}

// Expand implements spec §4.5. It returns the paths written, in order.
func Expand(inputPath, outputDir string, opts ExpandOptions) ([]string, error) {
	var logger = opts.Logger
	if logger == nil {
		logger = discardLogger("expand")
	}

	var maxDuration = 86400
	if opts.MaximumFileDuration != nil {
		if *opts.MaximumFileDuration <= 0 {
			return nil, newErr(ErrInvalidArgument, "maximumFileDuration must be a positive integer, got %d", *opts.MaximumFileDuration)
		}
		maxDuration = *opts.MaximumFileDuration
	}

	logger.Info("starting expand", "input", inputPath, "maximumFileDuration", maxDuration, "expansionType", opts.ExpansionType)

	var in, header, guano, info, err = openAndValidate(inputPath, OpExpand)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	var sampleRate = int(header.Format.SamplesPerSecond)
	var reader = newSectionReader(in, int64(header.Size))

	var segments []fileSegment
	segments, err = buildSegments(reader, int64(header.DataSize))
	if err != nil {
		return nil, err
	}

	var totalOutput int64
	if len(segments) > 0 {
		var last = segments[len(segments)-1]
		totalOutput = last.outputOffset + last.outputBytes
	}

	var windows []expandWindow
	if opts.ExpansionType == ExpandEvent {
		windows = planEventWindows(segments, sampleRate, maxDuration, opts.AlignToSecondTransitions, info.OriginalTimestamp)
	} else {
		windows = planDurationWindows(segments, totalOutput, sampleRate, maxDuration, opts.GenerateSilentFiles, info.OriginalTimestamp)
	}

	var tracker = newProgressTracker(opts.Progress)
	var outputs []string
	var written int64

	for _, win := range windows {
		var outHeader = header.Clone()
		outHeader.UpdateSizes(guano, uint32(win.length))

		var ts = time.UnixMilli(win.timestampMs).UTC()

		var outGuano = guano
		if guano != nil {
			outGuano = guano.WithRewrittenTimestamp(ts.Format("2006-01-02T15:04:05"))
		}

		var outName = FormatOutputFilename(opts.Prefix, info.ExistingPrefix, ts, win.milliseconds, info.ExistingPostfix, false)
		var outPath = filepath.Join(outputDir, outName)

		if err := writeOutputFile(outPath, outHeader, outGuano, func(w *os.File) error {
			return writeSegmentRange(w, reader, segments, win.offset, win.offset+win.length, func(copied int64) {
				tracker.update(written+copied, totalOutput)
			})
		}); err != nil {
			return nil, err
		}

		written += win.length
		outputs = append(outputs, outPath)
		logger.Info("wrote expand output", "path", outPath, "bytes", win.length)
	}

	tracker.finish()
	logger.Info("expand complete", "outputs", len(outputs))

	return outputs, nil
}

// buildSegments walks the data payload in 512-byte windows, classifying
// each as AUDIO or SILENT and merging adjacent same-kind windows
// (spec §4.5 Segmentation). When the payload does not start on a
// 512-byte file offset, the first window is shortened so every later
// window does.
func buildSegments(r *sectionReader, dataSize int64) ([]fileSegment, error) {
	var segments []fileSegment
	var buf [sentinelBlockSize]byte

	var firstLen int64
	if rem := r.base % sentinelBlockSize; rem != 0 {
		firstLen = sentinelBlockSize - rem
	}

	var offset int64
	for offset < dataSize {
		var windowLen = int64(sentinelBlockSize)
		if offset == 0 && firstLen > 0 {
			windowLen = firstLen
		}
		if offset+windowLen > dataSize {
			windowLen = dataSize - offset
		}

		var window = buf[:windowLen]
		var n, err = r.ReadAt(window, offset)
		if err != nil && err != io.EOF {
			return nil, wrapErr(ErrInputReadFailed, err, "reading block at offset %d", offset)
		}
		if int64(n) < windowLen {
			return nil, newErr(ErrInputReadFailed, "short read decoding block at offset %d", offset)
		}

		var kind segmentKind
		var outputBytes int64

		if windowLen == sentinelBlockSize {
			var count, ok = decodeSentinelBlock(window)
			if ok {
				kind = segSilent
				outputBytes = int64(count) * sentinelBlockSize
			} else {
				kind = segAudio
				outputBytes = windowLen
			}
		} else {
			// Short leading/trailing window: SILENT only if all-zero,
			// with no sentinel count to expand (spec §4.5 step 2).
			if allZero(window) {
				kind = segSilent
			} else {
				kind = segAudio
			}
			outputBytes = windowLen
		}

		if len(segments) > 0 && segments[len(segments)-1].kind == kind {
			segments[len(segments)-1].inputBytes += windowLen
			segments[len(segments)-1].outputBytes += outputBytes
		} else {
			segments = append(segments, fileSegment{kind: kind, inputBytes: windowLen, outputBytes: outputBytes})
		}

		offset += windowLen
	}

	var inOff, outOff int64
	for i := range segments {
		segments[i].inputOffset = inOff
		segments[i].outputOffset = outOff
		inOff += segments[i].inputBytes
		outOff += segments[i].outputBytes
	}

	return segments, nil
}

// decodeSentinelBlock reports whether a full 512-byte window is a
// silent-run sentinel, and if so, the decoded run count (spec §4.5
// Block decoder).
func decodeSentinelBlock(block []byte) (count uint32, ok bool) {
	for i := 0; i < sentinelBits; i++ {
		switch readSample16(block, i*2) {
		case 1:
			count |= 1 << uint(i)
		case -1:
			// bit i stays clear
		default:
			return 0, false
		}
	}

	for i := sentinelBits * 2; i < sentinelBlockSize; i += 2 {
		if readSample16(block, i) != 0 {
			return 0, false
		}
	}

	return count, true
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// expandWindow is one planned output file's span in the reconstructed
// output timeline.
type expandWindow struct {
	offset       int64
	length       int64
	timestampMs  int64
	milliseconds *int
}

// planDurationWindows implements DURATION expansion (spec §4.5).
func planDurationWindows(segments []fileSegment, totalOutput int64, sampleRate, maxDuration int, generateSilentFiles bool, originalTimestamp int64) []expandWindow {
	var sliceBytes = int64(maxDuration) * int64(sampleRate) * 2
	if sliceBytes <= 0 {
		return nil
	}

	var numSlices = int((totalOutput + sliceBytes - 1) / sliceBytes)
	if numSlices < 1 {
		numSlices = 1
	}

	var windows []expandWindow
	for i := 0; i < numSlices; i++ {
		var start = int64(i) * sliceBytes
		var length = sliceBytes
		if start+length > totalOutput {
			length = totalOutput - start
		}
		if length <= 0 {
			continue
		}

		var emit = generateSilentFiles || maxDuration == 86400 || segmentRangeIntersectsAudio(segments, start, start+length)
		if !emit {
			continue
		}

		windows = append(windows, expandWindow{
			offset:      start,
			length:      length,
			timestampMs: originalTimestamp + int64(i)*int64(maxDuration)*1000,
		})
	}

	return windows
}

// planEventWindows implements EVENT expansion (spec §4.5): one file per
// maximumFileDuration-second slab within each AUDIO segment, optionally
// snapped to second transitions and coalesced across adjacent segments
// that fall inside the same second.
func planEventWindows(segments []fileSegment, sampleRate, maxDuration int, alignToSeconds bool, originalTimestamp int64) []expandWindow {
	var audioSegs []fileSegment
	for _, s := range segments {
		if s.kind == segAudio {
			audioSegs = append(audioSegs, s)
		}
	}

	var secondBytes = int64(sampleRate) * 2
	var slabBytes = int64(maxDuration) * secondBytes

	var windows []expandWindow
	for idx := 0; idx < len(audioSegs); {
		var seg = audioSegs[idx]
		var segEnd = seg.outputOffset + seg.outputBytes

		var slabStart = seg.outputOffset
		var milliseconds *int

		if alignToSeconds && secondBytes > 0 {
			slabStart = (seg.outputOffset / secondBytes) * secondBytes
		} else if secondBytes > 0 {
			var ms = int(((seg.outputOffset % secondBytes) * 1000) / secondBytes)
			milliseconds = &ms
		}

		var firstSlabEnd = slabStart + slabBytes
		var coveredEnd = segEnd

		var j = idx
		if alignToSeconds {
			for j+1 < len(audioSegs) && audioSegs[j+1].outputOffset < firstSlabEnd {
				j++
				var end = audioSegs[j].outputOffset + audioSegs[j].outputBytes
				if end > coveredEnd {
					coveredEnd = end
				}
			}
		}

		// Emit one window per maximumFileDuration-second slab spanning the
		// segment (or coalesced group of segments), not just the first.
		for slabCursor := slabStart; slabCursor < coveredEnd; slabCursor += slabBytes {
			var slabEnd = slabCursor + slabBytes
			if slabEnd > coveredEnd {
				slabEnd = coveredEnd
			}

			var seconds = slabCursor / secondBytes
			var windowTimestamp = originalTimestamp + seconds*1000

			var windowMilliseconds *int
			if slabCursor == slabStart {
				windowMilliseconds = milliseconds
			}

			windows = append(windows, expandWindow{
				offset:       slabCursor,
				length:       slabEnd - slabCursor,
				timestampMs:  windowTimestamp,
				milliseconds: windowMilliseconds,
			})
		}

		idx = j + 1
	}

	return windows
}

func segmentRangeIntersectsAudio(segments []fileSegment, from, to int64) bool {
	for _, s := range segments {
		if s.kind != segAudio {
			continue
		}
		var segEnd = s.outputOffset + s.outputBytes
		if s.outputOffset < to && segEnd > from {
			return true
		}
	}
	return false
}

// writeSegmentRange streams the output-timeline range [from, to) to w,
// copying AUDIO bytes positionally from the input and synthesizing
// SILENT bytes as zeros (spec §4.5 Writing).
func writeSegmentRange(w io.Writer, r *sectionReader, segments []fileSegment, from, to int64, tick func(copied int64)) error {
	var written int64

	for _, s := range segments {
		var segEnd = s.outputOffset + s.outputBytes
		if segEnd <= from || s.outputOffset >= to {
			continue
		}

		var overlapStart = s.outputOffset
		if from > overlapStart {
			overlapStart = from
		}
		var overlapEnd = segEnd
		if to < overlapEnd {
			overlapEnd = to
		}
		var length = overlapEnd - overlapStart

		if s.kind == segAudio {
			var inputOffset = s.inputOffset + (overlapStart - s.outputOffset)
			if err := copyExactly(w, r, inputOffset, length, sampleBufferSize, nil); err != nil {
				return err
			}
		} else {
			if err := writeZeros(w, length, sampleBufferSize); err != nil {
				return err
			}
		}

		written += length
		if tick != nil {
			tick(written)
		}
	}

	return nil
}
