package audiomoth

/*------------------------------------------------------------------
 *
 * Purpose:	L2 Downsampler — reduces a recording to one of the eight
 *		recognised sample rates using the integer-ratio resample
 *		engine in resample.go (spec §4.4).
 *
 *---------------------------------------------------------------*/

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// recognisedDownsampleRates are the only targets Downsample accepts,
// matching spec §4.4's literal set. A configuration can override this
// list (SPEC_FULL.md Part D.3); DefaultConfig returns exactly these.
var recognisedDownsampleRates = []int{8000, 16000, 32000, 48000, 96000, 192000, 250000, 384000}

// DownsampleOptions configures Downsample.
type DownsampleOptions struct {
	Prefix              string
	RequestedSampleRate int
	RecognisedRates     []int // nil means recognisedDownsampleRates
	Progress            Progress
	Logger              *log.Logger
}

// Downsample implements spec §4.4. It returns the written file's path.
func Downsample(inputPath, outputDir string, opts DownsampleOptions) (string, error) {
	var logger = opts.Logger
	if logger == nil {
		logger = discardLogger("downsample")
	}

	var recognised = opts.RecognisedRates
	if recognised == nil {
		recognised = recognisedDownsampleRates
	}

	if !containsInt(recognised, opts.RequestedSampleRate) {
		return "", newErr(ErrInvalidArgument, "requestedSampleRate %d is not one of the recognised rates", opts.RequestedSampleRate)
	}

	logger.Info("starting downsample", "input", inputPath, "requestedSampleRate", opts.RequestedSampleRate)

	var in, header, guano, info, err = openAndValidate(inputPath, OpDownsample)
	if err != nil {
		return "", err
	}
	defer in.Close()

	var sourceRate = int(header.Format.SamplesPerSecond)
	if opts.RequestedSampleRate > sourceRate {
		return "", newErr(ErrInvalidArgument, "requestedSampleRate %d exceeds source rate %d", opts.RequestedSampleRate, sourceRate)
	}

	var ts = time.UnixMilli(info.OriginalTimestamp).UTC()
	var outName = FormatOutputFilename(opts.Prefix, info.ExistingPrefix, ts, nil, info.ExistingPostfix, false)
	var outPath = filepath.Join(outputDir, outName)
	var reader = newSectionReader(in, int64(header.Size))
	var tracker = newProgressTracker(opts.Progress)

	if opts.RequestedSampleRate == sourceRate {
		var total = int64(header.DataSize)
		var outHeader = header.Clone()

		if err := writeOutputFile(outPath, outHeader, guano, func(w *os.File) error {
			return copyExactly(w, reader, 0, total, sampleBufferSize, func(copied int64) {
				tracker.update(copied, total)
			})
		}); err != nil {
			return "", err
		}

		tracker.finish()
		logger.Info("downsample complete (identity rate)", "path", outPath)

		return outPath, nil
	}

	var inputSamples = int64(header.DataSize) / 2
	var outputSamples = ComputeOutputLength(sourceRate, opts.RequestedSampleRate, inputSamples)
	var kernel = newDownsampleKernel(sourceRate, opts.RequestedSampleRate)

	var outHeader = header.Clone()
	outHeader.UpdateSampleRate(uint32(opts.RequestedSampleRate))
	outHeader.UpdateSizes(guano, uint32(outputSamples*2))

	if err := writeOutputFile(outPath, outHeader, guano, func(w *os.File) error {
		return streamDownsample(w, reader, inputSamples, kernel, func(done int64) {
			tracker.update(done, inputSamples)
		})
	}); err != nil {
		return "", err
	}

	tracker.finish()
	logger.Info("downsample complete", "path", outPath, "outputSamples", outputSamples)

	return outPath, nil
}

// streamDownsample reads the input sample-by-sample from a
// sampleBufferSize (1 MiB) window at a time, feeding kernel and writing completed output
// samples as they're produced (spec §5's fixed-size working buffers).
func streamDownsample(w io.Writer, r *sectionReader, inputSamples int64, kernel *downsampleKernel, tick func(done int64)) error {
	const window = sampleBufferSize / 2 // samples per read, in bytes terms halved below
	var inBuf = make([]byte, window*2)
	var outSamples = make([]int16, 0, window)
	var outBuf = make([]byte, 0, window*2)

	var offset int64
	for offset < inputSamples {
		var count = inputSamples - offset
		if count > window {
			count = window
		}

		var chunk = inBuf[:count*2]
		var n, err = r.ReadAt(chunk, offset*2)
		if err != nil && err != io.EOF {
			return wrapErr(ErrInputReadFailed, err, "reading samples")
		}
		if int64(n) < count*2 {
			return newErr(ErrInputReadFailed, "short read: wanted %d bytes got %d", count*2, n)
		}

		outSamples = outSamples[:0]
		for i := int64(0); i < count; i++ {
			var sample = readSample16(chunk, int(i*2))
			outSamples = kernel.feed(sample, outSamples)
		}

		if len(outSamples) > 0 {
			outBuf = outBuf[:0]
			for _, s := range outSamples {
				var b [2]byte
				writeSample16(b[:], 0, s)
				outBuf = append(outBuf, b[:]...)
			}
			if _, err := w.Write(outBuf); err != nil {
				return wrapErr(ErrOutputWriteFailed, err, "writing output samples")
			}
		}

		offset += count
		if tick != nil {
			tick(offset)
		}
	}

	var final = kernel.flush(nil)
	if len(final) > 0 {
		var tail = make([]byte, len(final)*2)
		for i, s := range final {
			writeSample16(tail, i*2, s)
		}
		if _, err := w.Write(tail); err != nil {
			return wrapErr(ErrOutputWriteFailed, err, "writing final samples")
		}
	}

	return nil
}

func containsInt(haystack []int, needle int) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
