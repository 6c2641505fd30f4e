package audiomoth

/*------------------------------------------------------------------
 *
 * Purpose:	L2 Splitter — cuts a long recording into uniform-duration
 *		pieces (spec §4.3).
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// SplitOptions configures Split. A nil MaximumFileDuration means "use
// the one-day default"; an explicit non-positive value is invalid
// (spec §8 boundary behaviour).
type SplitOptions struct {
	Prefix              string
	MaximumFileDuration *int
	Progress            Progress
	Logger              *log.Logger
}

// splitDescriptor is one planned output file (spec §3 OutputFile).
type splitDescriptor struct {
	timestamp int64 // epoch ms UTC
	offset    int64
	length    int64
	index     int
	total     int
}

// Split implements spec §4.3. It returns the paths of every file
// written, in order.
func Split(inputPath, outputDir string, opts SplitOptions) ([]string, error) {
	var logger = opts.Logger
	if logger == nil {
		logger = discardLogger("split")
	}

	var maxDuration = 86400
	if opts.MaximumFileDuration != nil {
		if *opts.MaximumFileDuration <= 0 {
			return nil, newErr(ErrInvalidArgument, "maximumFileDuration must be a positive integer, got %d", *opts.MaximumFileDuration)
		}
		maxDuration = *opts.MaximumFileDuration
	}

	logger.Info("starting split", "input", inputPath, "maximumFileDuration", maxDuration)

	var in, header, guano, info, err = openAndValidate(inputPath, OpSplit)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	var chunkSize = int64(maxDuration) * int64(header.Format.SamplesPerSecond) * 2
	if chunkSize <= 0 {
		return nil, newErr(ErrInvalidArgument, "maximumFileDuration produces a zero-size chunk")
	}

	var totalData = int64(header.DataSize)
	var numChunks = int((totalData + chunkSize - 1) / chunkSize)
	if numChunks < 1 {
		numChunks = 1
	}

	var descriptors = make([]splitDescriptor, 0, numChunks)
	for i := 0; i < numChunks; i++ {
		var offset = int64(i) * chunkSize
		var length = chunkSize
		if offset+length > totalData {
			length = totalData - offset
		}

		descriptors = append(descriptors, splitDescriptor{
			timestamp: info.OriginalTimestamp + int64(i)*int64(maxDuration)*1000,
			offset:    offset,
			length:    length,
			index:     i + 1,
			total:     numChunks,
		})
	}

	var base = filepath.Base(inputPath)
	var tracker = newProgressTracker(opts.Progress)
	var written int64
	var outputs []string

	var reader = newSectionReader(in, int64(header.Size))

	for _, d := range descriptors {
		var outHeader = header.Clone()
		var ts = time.UnixMilli(d.timestamp).UTC()

		if numChunks == 1 {
			// Single chunk: original timestamp and comment unchanged.
		} else {
			if err := outHeader.UpdateComment(padOrTruncateComment(outHeader.icmtCapacity, fmt.Sprintf("Split from %s as file %d of %d.", base, d.index, d.total))); err != nil {
				return nil, err
			}
		}

		var outGuano = guano
		if guano != nil {
			outGuano = guano.WithRewrittenTimestamp(ts.Format("2006-01-02T15:04:05"))
		}

		outHeader.UpdateSizes(outGuano, uint32(d.length))

		var outName = FormatOutputFilename(opts.Prefix, info.ExistingPrefix, ts, nil, info.ExistingPostfix, false)
		var outPath = filepath.Join(outputDir, outName)

		if err := writeOutputFile(outPath, outHeader, outGuano, func(w *os.File) error {
			return copyExactly(w, reader, d.offset, d.length, sampleBufferSize, func(copied int64) {
				tracker.update(written+copied, totalData)
			})
		}); err != nil {
			return nil, err
		}

		written += d.length
		outputs = append(outputs, outPath)

		logger.Info("wrote split output", "path", outPath, "bytes", d.length)
	}

	tracker.finish()
	logger.Info("split complete", "outputs", len(outputs))

	return outputs, nil
}

// padOrTruncateComment is a defensive helper: if a generated comment
// would exceed the ICMT chunk's declared capacity it is truncated
// rather than rejected outright, since the generated text (unlike a
// caller-supplied one) is not something the caller can shorten.
func padOrTruncateComment(capacity int, comment string) string {
	if len(comment) > capacity {
		return comment[:capacity]
	}
	return comment
}
