package audiomoth

/*------------------------------------------------------------------
 *
 * Purpose:	L3 Sync planner & engine, and core C4 — reconciles a
 *		recording's PPS CSV against its sample count, corrects
 *		timing anomalies, and streams a resampled or time-true
 *		copy of the recording (spec §4.8).
 *
 *---------------------------------------------------------------*/

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
)

// maxPPSOffsetMicros bounds the "sample straddles a PPS edge" fix-up
// window (spec §4.8 PPS event fix-ups).
const maxPPSOffsetMicros = 500.0

// syncInterval is one accepted PPS-to-PPS span (spec §3 Interval).
type syncInterval struct {
	startPPSIndex, endPPSIndex int
	timeInterval               float64 // seconds
	cumulativeTimeInterval     float64
	numberOfSamples            int64
	firstSampleGap             float64 // microseconds
	lastSampleGap              float64 // microseconds
	sampleRate                 float64 // Hz, fractional
	missedPPS                  bool
}

// SyncOptions configures Sync.
type SyncOptions struct {
	Prefix       string
	ResampleRate *int // nil means no resample
	AutoResolve  bool
	PPS          PPSConfig
	Progress     Progress
	Logger       *log.Logger
}

// Sync implements spec §4.8. It returns the written file's path, and
// the path of the companion unusual-rate report when autoResolve
// produced one (empty otherwise).
func Sync(wavPath, csvPath, outputDir string, opts SyncOptions) (outputPath string, reportPath string, err error) {
	var logger = opts.Logger
	if logger == nil {
		logger = discardLogger("sync")
	}

	var pps = opts.PPS
	if pps.LFXOPPM == 0 && pps.HFXOPPM == 0 && pps.MaxBufferOverflow == 0 {
		pps = DefaultConfig().PPS
	}

	var in, header, guano, info, verr = openAndValidate(wavPath, OpSync)
	if verr != nil {
		return "", "", verr
	}
	defer in.Close()

	var csvFile *os.File
	csvFile, err = os.Open(csvPath) //nolint:gosec
	if err != nil {
		return "", "", wrapErr(ErrInputReadFailed, err, "opening %q", csvPath)
	}
	defer csvFile.Close()

	var reader = NewCSVReader([]Column{
		{Name: "PPS_NUMBER", Parser: intColumnParser},
		{Name: "AUDIOMOTH_TIME", Parser: intColumnParser},
		{Name: "TOTAL_SAMPLES", Parser: intColumnParser},
		{Name: "TIMER_COUNT", Parser: intColumnParser},
		{Name: "BUFFERS_FILLED", Parser: intColumnParser},
		{Name: "BUFFERS_WRITTEN", Parser: intColumnParser},
	})
	if err := reader.Read(csvFile); err != nil {
		return "", "", err
	}
	if reader.RowCount < 2 {
		return "", "", newErr(ErrInsufficientEvents, "sync CSV has %d rows, need >= 2", reader.RowCount)
	}

	var audiomothTime = reader.Ints("AUDIOMOTH_TIME")
	var totalSamples = reader.Ints("TOTAL_SAMPLES")
	var timerCount = reader.Ints("TIMER_COUNT")
	var buffersFilled = reader.Ints("BUFFERS_FILLED")
	var buffersWritten = reader.Ints("BUFFERS_WRITTEN")

	for i := range buffersFilled {
		if buffersFilled[i]-buffersWritten[i] >= int64(pps.MaxBufferOverflow) {
			return "", "", newErr(ErrInvalidArgument, "row %d shows a buffer overflow (%d >= %d)", i, buffersFilled[i]-buffersWritten[i], pps.MaxBufferOverflow)
		}
	}

	if diff := info.OriginalTimestamp - audiomothTime[0]; diff > 500 || diff < -500 {
		return "", "", newErr(ErrMetadataMismatch, "file timestamp diverges from AUDIOMOTH_TIME[0] by %d ms", diff)
	}

	var sampleRate = int(header.Format.SamplesPerSecond)
	var overSampleRate = int(math.Pow(2, math.Floor(math.Log2(384000.0/float64(sampleRate)))))
	var clockTicksToCompleteSample = 2 + 4*(2+overSampleRate*(16+12))
	var sampleIntervalMicros = 1e6 / float64(sampleRate)

	var timeToNextSample = make([]float64, len(timerCount))
	for i, tc := range timerCount {
		timeToNextSample[i] = float64(tc) / float64(clockTicksToCompleteSample) * sampleIntervalMicros
	}

	var intervals []syncInterval
	var averageSampleRate float64

	for i := 0; i < len(audiomothTime)-1; i++ {
		var deltaMs = audiomothTime[i+1] - audiomothTime[i]
		var deltaT = math.Round(float64(deltaMs) / 1000)
		var deltaSamples = totalSamples[i+1] - totalSamples[i]

		var targetRate = averageSampleRate
		if targetRate == 0 {
			targetRate = float64(sampleRate)
		}

		var msTolerance = math.Ceil(pps.LFXOPPM / 1e6 * deltaT * 1000)
		var hfxoPPM = pps.HFXOPPM
		if len(intervals) > 0 {
			hfxoPPM = 40
		}
		var sampleTolerance = math.Ceil(hfxoPPM / 1e6 * targetRate * deltaT)

		var msOK = math.Abs(float64(deltaMs)-deltaT*1000) <= msTolerance
		var samplesOK = math.Abs(float64(deltaSamples)-deltaT*targetRate) <= sampleTolerance

		var missed = deltaT > 1
		var misaligned = !msOK || !samplesOK

		if !opts.AutoResolve && (missed || misaligned) {
			if missed {
				return "", "", newErr(ErrPPSMissed, "PPS interval %d-%d missed %d seconds", i, i+1, int(deltaT)-1)
			}
			return "", "", newErr(ErrPPSMisaligned, "PPS interval %d-%d misaligned", i, i+1)
		}
		if misaligned && opts.AutoResolve {
			continue // skipped, per spec step 4
		}

		var firstGap = timeToNextSample[i]
		var lastGap = sampleIntervalMicros - timeToNextSample[i+1]
		var rate = (float64(deltaSamples) - 1) * 1e6 / (deltaT*1e6 - firstGap - lastGap)

		var cumulative = deltaT
		if len(intervals) > 0 {
			cumulative += intervals[len(intervals)-1].cumulativeTimeInterval
		}

		intervals = append(intervals, syncInterval{
			startPPSIndex:          i,
			endPPSIndex:            i + 1,
			timeInterval:           deltaT,
			cumulativeTimeInterval: cumulative,
			numberOfSamples:        deltaSamples,
			firstSampleGap:         firstGap,
			lastSampleGap:          lastGap,
			sampleRate:             rate,
			missedPPS:              missed,
		})

		var n = float64(len(intervals))
		averageSampleRate = averageSampleRate*(n-1)/n + rate/n
	}

	applyPPSFixups(intervals, averageSampleRate, sampleRate)
	applySampleTimeAlignment(intervals, clockTicksToCompleteSample, sampleIntervalMicros)

	var unusual []int
	for i, iv := range intervals {
		if math.Round(iv.sampleRate-averageSampleRate) != 0 {
			unusual = append(unusual, i)
		}
	}
	if len(unusual) > 0 {
		if !opts.AutoResolve {
			return "", "", newErr(ErrPPSUnusualRate, "%d interval(s) deviate from the average sample rate", len(unusual))
		}
	}

	var targetSampleRate = sampleRate
	if opts.ResampleRate != nil && *opts.ResampleRate != sampleRate {
		if *opts.ResampleRate < sampleRate {
			return "", "", newErr(ErrInvalidArgument, "resampleRate %d is below source rate %d", *opts.ResampleRate, sampleRate)
		}
		targetSampleRate = *opts.ResampleRate
	}

	var totalTime = 0.0
	if len(intervals) > 0 {
		totalTime = intervals[len(intervals)-1].cumulativeTimeInterval
	}
	var numberOfSamplesToWrite = ComputeOutputLength(sampleRate, targetSampleRate, int64(totalTime*float64(sampleRate)))

	if numberOfSamplesToWrite*2 > (1<<32 - 1) {
		return "", "", newErr(ErrFileSizeExceedsLimit, "sync output would exceed 2^32-1 bytes")
	}

	var outHeader = header.Clone()
	outHeader.UpdateSampleRate(uint32(targetSampleRate))
	outHeader.UpdateSizes(guano, uint32(numberOfSamplesToWrite*2))

	var ts = time.UnixMilli(info.OriginalTimestamp).UTC()
	var outGuano = guano
	if guano != nil {
		outGuano = guano.WithRewrittenTimestamp(ts.Format("2006-01-02T15:04:05"))
	}

	var outName = FormatOutputFilename(opts.Prefix, info.ExistingPrefix, ts, nil, info.ExistingPostfix, true)
	var outPath = filepath.Join(outputDir, outName)

	var tracker = newProgressTracker(opts.Progress)
	var dataReader = newSectionReader(in, int64(header.Size))

	if err := writeOutputFile(outPath, outHeader, outGuano, func(w *os.File) error {
		return streamSync(w, dataReader, intervals, float64(targetSampleRate), numberOfSamplesToWrite, func(done int64) {
			tracker.update(done, numberOfSamplesToWrite)
		})
	}); err != nil {
		return "", "", err
	}

	tracker.finish()

	if len(unusual) > 0 && opts.AutoResolve {
		reportPath = outPath + ".TXT"
		var report = "Unusual sample rate intervals: " + joinInts(unusual) + "\n"
		if werr := os.WriteFile(reportPath, []byte(report), 0o644); werr != nil { //nolint:gosec
			return "", "", wrapErr(ErrOutputWriteFailed, werr, "writing report %q", reportPath)
		}
	}

	logger.Info("sync complete", "path", outPath, "intervals", len(intervals), "unusual", len(unusual))

	return outPath, reportPath, nil
}

// applyPPSFixups applies spec §4.8's two targeted corrections for a
// sample straddling a PPS edge.
func applyPPSFixups(intervals []syncInterval, average float64, maxRate int) {
	for i := 0; i+1 < len(intervals); i++ {
		var cur = &intervals[i]
		var next = &intervals[i+1]

		if cur.lastSampleGap < maxPPSOffsetMicros &&
			math.Round(cur.sampleRate-average) == -1 &&
			math.Round(next.sampleRate-average) == 1 {
			var sampleInterval = 1e6 / average
			cur.lastSampleGap = sampleInterval
			next.firstSampleGap = 0
			cur.sampleRate = (float64(cur.numberOfSamples) - 1) * 1e6 / (cur.timeInterval*1e6 - cur.firstSampleGap - cur.lastSampleGap)
			next.sampleRate = (float64(next.numberOfSamples) - 1) * 1e6 / (next.timeInterval*1e6 - next.firstSampleGap - next.lastSampleGap)
		}
	}

	if maxRate == 192000 {
		for i := 0; i+1 < len(intervals); i++ {
			var cur = &intervals[i]
			var next = &intervals[i+1]
			if math.Round(cur.sampleRate-average) == -1 && math.Round(next.sampleRate-average) == 0 {
				cur.numberOfSamples++
				cur.sampleRate = (float64(cur.numberOfSamples) - 1) * 1e6 / (cur.timeInterval*1e6 - cur.firstSampleGap - cur.lastSampleGap)
			}
		}

		if len(intervals) > 0 {
			intervals[0].firstSampleGap -= 1e6 / average
		}

		for i := range intervals {
			if math.Round(intervals[i].sampleRate-average) == -1 {
				intervals[i].numberOfSamples++
				intervals[i].sampleRate = (float64(intervals[i].numberOfSamples) - 1) * 1e6 / (intervals[i].timeInterval*1e6 - intervals[i].firstSampleGap - intervals[i].lastSampleGap)
			}
		}
	}
}

// applySampleTimeAlignment shifts every interval's boundaries by half
// the acquisition/conversion period (spec §4.8 Sample-time alignment).
func applySampleTimeAlignment(intervals []syncInterval, clockTicksToCompleteSample int, sampleIntervalMicros float64) {
	var half = sampleIntervalMicros / 2

	for i := range intervals {
		intervals[i].firstSampleGap += half
		intervals[i].lastSampleGap -= half

		if intervals[i].firstSampleGap < 0 {
			if i > 0 {
				intervals[i-1].lastSampleGap += intervals[i].firstSampleGap
				intervals[i-1].numberOfSamples++
			}
			intervals[i].firstSampleGap = 0
		}
	}
}

// streamSync plays out each interval at targetSampleRate, driving the
// shared linear-interpolation kernel per spec §4.8's streaming engine.
// If fewer than numberOfSamplesToWrite samples have been written after
// the last interval, the remainder is filled by repeating the last input
// sample of the final interval; no input past the final interval is read.
func streamSync(w io.Writer, r *sectionReader, intervals []syncInterval, targetSampleRate float64, numberOfSamplesToWrite int64, tick func(done int64)) error {
	var inputCursor int64 // sample index into the source stream
	var written int64

	var emit = func(sample int16) error {
		var b [2]byte
		writeSample16(b[:], 0, sample)
		if _, err := w.Write(b[:]); err != nil {
			return wrapErr(ErrOutputWriteFailed, err, "writing sync sample")
		}
		written++
		if tick != nil {
			tick(written)
		}
		return nil
	}

	var readSampleAt = func(index int64) (int16, error) {
		var buf [2]byte
		var n, err = r.ReadAt(buf[:], index*2)
		if err != nil && err != io.EOF {
			return 0, wrapErr(ErrInputReadFailed, err, "reading sync sample %d", index)
		}
		if n < 2 {
			return 0, nil
		}
		return readSample16(buf[:], 0), nil
	}

	for _, iv := range intervals {
		var numberOfSamples = int64(iv.timeInterval * targetSampleRate)

		var prevSample, _ = readSampleAt(inputCursor)
		var prevOffset = iv.firstSampleGap / 1e6
		var nextOffset = prevOffset + 1/iv.sampleRate
		var nextSample, _ = readSampleAt(inputCursor + 1)
		var cursor = inputCursor

		for j := int64(0); j < numberOfSamples && written < numberOfSamplesToWrite; j++ {
			var currentOffset = float64(j) / float64(numberOfSamples) * iv.timeInterval

			for currentOffset > nextOffset && cursor+2 <= inputCursor+iv.numberOfSamples {
				cursor++
				prevSample = nextSample
				prevOffset = nextOffset
				nextOffset += 1 / iv.sampleRate
				nextSample, _ = readSampleAt(cursor + 1)
			}

			var li = linearInterpolant{
				prevValue: float64(prevSample), prevOffset: prevOffset,
				nextValue: float64(nextSample), nextOffset: nextOffset,
			}
			var out = clampSample16(li.valueAt(currentOffset))
			if err := emit(out); err != nil {
				return err
			}
		}

		inputCursor += iv.numberOfSamples
	}

	var last int16
	if len(intervals) > 0 {
		var l, _ = readSampleAt(inputCursor - 1)
		last = l
	}
	for written < numberOfSamplesToWrite {
		if err := emit(last); err != nil {
			return err
		}
	}

	return nil
}

func intColumnParser(cell string) (interface{}, bool) {
	var v, err = strconv.ParseInt(cell, 10, 64)
	if err != nil {
		return nil, false
	}
	return v, true
}

func joinInts(vals []int) string {
	var out string
	for i, v := range vals {
		if i > 0 {
			out += ","
		}
		out += strconv.Itoa(v)
	}
	return out
}
