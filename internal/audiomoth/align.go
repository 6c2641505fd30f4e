package audiomoth

/*------------------------------------------------------------------
 *
 * Purpose:	L3 Align planner & engine — reconciles an unsynchronised
 *		recording against an independent GPS fix log, compensating
 *		clock drift and sample-rate error, and reports the session
 *		as GPS.CSV (spec §4.9).
 *
 *---------------------------------------------------------------*/

import (
	"bufio"
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
)

// maxDivergenceDefault is spec §4.9's MAX_DIVERGENCE = 400 / 48e6, a
// fractional deviation from medianSampleRate beyond which a fix's own
// sample rate is distrusted in favour of the median.
const maxDivergenceDefault = 400.0 / 48e6

// clockDriftCorrection is the multiplicative correction spec §4.9
// applies to the instantaneous rate while streaming: (1 - 2/48e6).
const clockDriftCorrection = 1 - 2.0/48e6

// Fix is one committed GPS fix (spec §3).
type Fix struct {
	Timestamp      time.Time // UTC
	Latitude       float64
	Longitude      float64
	TimeOffsetMs10 float64 // tenths of ms, device clock minus true time
	SampleRateMHz  float64 // mHz
}

// AlignedRecording is one aligned recording's GPS.CSV row (spec §3).
type AlignedRecording struct {
	Timestamp          time.Time
	TimezoneOffset      time.Duration
	Filename           string
	Latitude, Longitude float64
	HasPosition        bool
	DurationSeconds    float64
	Temperature        string
	BatteryVoltage      string
	SampleRateStart    float64
	SampleRateEnd      float64
	Calculation        string // "INTERPOLATION" or "MEDIAN"
}

// AlignOptions configures Aligner.Align.
type AlignOptions struct {
	Prefix                string
	OnlyBetweenFixes      bool
	MaxDivergenceHzPerSec float64 // 0 means maxDivergenceDefault
	Progress              Progress
	Logger                *log.Logger
}

// Aligner implements the initialise/align/finalise lifecycle (spec
// §4.9). Not safe for concurrent use (spec §5).
type Aligner struct {
	fixes            []Fix
	medianSampleRate float64
	recordings       []AlignedRecording
	logger           *log.Logger
}

// NewAligner builds an Aligner.
func NewAligner(logger *log.Logger) *Aligner {
	if logger == nil {
		logger = discardLogger("align")
	}
	return &Aligner{logger: logger}
}

// Initialise streams gpsTxtPath line-by-line, committing a fix whenever
// a GPS-fix line, its following time outcome, and a sample-rate line
// all reconcile (spec §4.9 initialise).
func (a *Aligner) Initialise(gpsTxtPath string) error {
	var f, err = os.Open(gpsTxtPath) //nolint:gosec
	if err != nil {
		return wrapErr(ErrTimeSourceInvalid, err, "opening %q", gpsTxtPath)
	}
	defer f.Close()

	a.fixes = nil

	var pendingFix *gpsLogLine
	var pendingOutcome *gpsLogLine

	var scanner = bufio.NewScanner(f)
	for scanner.Scan() {
		var parsed, ok = parseGPSLogLine(scanner.Text())
		if !ok {
			continue
		}

		switch {
		case parsed.isFix:
			var copy = parsed
			pendingFix = &copy
			pendingOutcome = nil

		case parsed.isTimeOutcome:
			if pendingFix != nil {
				var copy = parsed
				pendingOutcome = &copy
			}

		case parsed.isSampleRate:
			if pendingFix != nil && pendingOutcome != nil {
				var offsetTenths float64
				if !pendingOutcome.timeWasSet && !pendingOutcome.timeNotUpdated {
					offsetTenths = float64(pendingOutcome.timeOffsetMs) * timeOffsetMultiplier
				}

				a.fixes = append(a.fixes, Fix{
					Timestamp:      pendingFix.fixTime,
					Latitude:       pendingFix.latitude,
					Longitude:      pendingFix.longitude,
					TimeOffsetMs10: offsetTenths,
					SampleRateMHz:  float64(parsed.sampleRate) * 1000,
				})
			}
			pendingFix = nil
			pendingOutcome = nil
		}
	}

	if err := scanner.Err(); err != nil {
		return wrapErr(ErrInputReadFailed, err, "reading %q", gpsTxtPath)
	}

	if len(a.fixes) < 2 {
		return newErr(ErrInsufficientFixes, "gps log %q yielded %d committed fixes, need >= 2", gpsTxtPath, len(a.fixes))
	}

	var rates = make([]float64, len(a.fixes))
	for i, fx := range a.fixes {
		rates[i] = fx.SampleRateMHz
	}
	sort.Float64s(rates)
	a.medianSampleRate = rates[len(rates)/2] // upper median when even, per spec

	return nil
}

// Align implements spec §4.9 align(). It returns the written file's
// path.
func (a *Aligner) Align(wavPath, outputDir string, opts AlignOptions) (string, error) {
	var logger = opts.Logger
	if logger == nil {
		logger = a.logger
	}

	var maxDivergence = opts.MaxDivergenceHzPerSec
	if maxDivergence == 0 {
		maxDivergence = maxDivergenceDefault
	}

	var in, header, guano, info, err = openAndValidate(wavPath, OpSync)
	if err != nil {
		return "", err
	}
	defer in.Close()

	var recordingTime = time.UnixMilli(info.OriginalTimestamp).UTC()

	var timeOffset10, sampleRateMHzStart, calc, rerr = a.resolveRate(recordingTime, maxDivergence, opts.OnlyBetweenFixes)
	if rerr != nil {
		return "", rerr
	}

	var sampleRateHzStart = sampleRateMHzStart / 1000
	if math.Abs(sampleRateHzStart-float64(header.Format.SamplesPerSecond)) > 0.1 {
		return "", newErr(ErrSampleRateMismatch, "derived rate %.3f Hz deviates from header rate %d Hz by more than 100 mHz", sampleRateHzStart, header.Format.SamplesPerSecond)
	}

	var inputSamples = int64(header.DataSize) / 2

	// The recording's clock runs at sampleRateHzStart, so this is only an
	// estimate of the wall-clock time its last sample falls at; good
	// enough to pick which fixes bracket the end of the file.
	var approxDuration = float64(inputSamples) / sampleRateHzStart
	var recordingEndTime = recordingTime.Add(time.Duration(approxDuration * float64(time.Second)))

	var _, sampleRateMHzEnd, _, eerr = a.resolveRate(recordingEndTime, maxDivergence, false)
	if eerr != nil {
		return "", eerr
	}
	var sampleRateHzEnd = sampleRateMHzEnd / 1000

	var shiftSeconds = timeOffset10 / timeOffsetMultiplier / 1000
	var sampleShift = int64(roundHalfAwayFromZero(shiftSeconds * sampleRateHzStart))

	var outputSamples = inputSamples - sampleShift
	if outputSamples < 0 {
		outputSamples = 0
	}

	var outHeader = header.Clone()
	outHeader.UpdateSampleRate(uint32(math.Round(sampleRateHzStart)))
	outHeader.UpdateSizes(guano, uint32(outputSamples*2))

	var ts = recordingTime
	var outGuano = guano
	if guano != nil {
		outGuano = guano.WithRewrittenTimestamp(ts.Format("2006-01-02T15:04:05"))
	}

	var outName = FormatOutputFilename(opts.Prefix, info.ExistingPrefix, ts, nil, info.ExistingPostfix, true)
	var outPath = filepath.Join(outputDir, outName)

	var tracker = newProgressTracker(opts.Progress)
	var reader = newSectionReader(in, int64(header.Size))

	if err := writeOutputFile(outPath, outHeader, outGuano, func(w *os.File) error {
		return streamAlign(w, reader, inputSamples, sampleShift, outputSamples, math.Round(sampleRateHzStart), sampleRateHzStart, sampleRateHzEnd, func(done int64) {
			tracker.update(done, outputSamples)
		})
	}); err != nil {
		return "", err
	}

	tracker.finish()

	var record = AlignedRecording{
		Timestamp:       recordingTime,
		TimezoneOffset:  info.RecordingTimezone,
		Filename:        filepath.Base(wavPath),
		DurationSeconds: float64(outputSamples) / sampleRateHzStart,
		Temperature:     extractTemperature(header.Comment, guano),
		BatteryVoltage:  extractBatteryVoltage(header.Comment, guano),
		SampleRateStart: sampleRateHzStart,
		SampleRateEnd:   sampleRateHzEnd,
		Calculation:     calc,
	}
	if guano != nil {
		record.Latitude, record.Longitude, record.HasPosition = parseGuanoPosition(guano)
	}
	a.recordings = append(a.recordings, record)

	logger.Info("align complete", "path", outPath, "calculation", calc, "sampleRateStart", sampleRateHzStart, "sampleRateEnd", sampleRateHzEnd)

	return outPath, nil
}

// resolveRate resolves the clock-drift offset and sample rate implied
// by the committed fix log at time t, applying spec §4.9's precedes/
// follows/bracket rules. Used once for the start of a recording and
// once (with onlyBetweenFixes forced false) for its end, so Align can
// derive distinct SampleRateStart/SampleRateEnd endpoints.
func (a *Aligner) resolveRate(t time.Time, maxDivergence float64, onlyBetweenFixes bool) (timeOffset10, sampleRateMHz float64, calc string, err error) {
	if t.Before(a.fixes[0].Timestamp) {
		return 0, 0, "", newErr(ErrRecordingOutsideFixes, "time %v precedes first fix %v", t, a.fixes[0].Timestamp)
	}

	var last = a.fixes[len(a.fixes)-1]

	if !t.Before(last.Timestamp) {
		if onlyBetweenFixes {
			return 0, 0, "", newErr(ErrRecordingOutsideFixes, "time %v follows last fix %v", t, last.Timestamp)
		}

		var prev = a.fixes[len(a.fixes)-2]
		timeOffset10, sampleRateMHz, calc = extrapolateFix(prev, last, t, a.medianSampleRate, maxDivergence)
		return timeOffset10, sampleRateMHz, calc, nil
	}

	var idx = sort.Search(len(a.fixes), func(i int) bool {
		return a.fixes[i].Timestamp.After(t)
	})
	if idx == 0 || idx >= len(a.fixes) {
		return 0, 0, "", newErr(ErrRecordingOutsideFixes, "time %v is not bracketed by two fixes", t)
	}

	var lower = a.fixes[idx-1]
	var upper = a.fixes[idx]
	if t.Equal(lower.Timestamp) || t.Equal(upper.Timestamp) {
		return 0, 0, "", newErr(ErrRecordingOutsideFixes, "time %v coincides exactly with a fix", t)
	}

	timeOffset10, sampleRateMHz, calc = interpolateFix(lower, upper, t, a.medianSampleRate, maxDivergence)
	return timeOffset10, sampleRateMHz, calc, nil
}

// extrapolateFix linearly extrapolates clock drift from the last two
// fixes, past the end of the log (spec §4.9). The sample rate is not
// extrapolated: it is the last fix's rate, or median when that rate
// diverges from median by more than maxDivergence.
func extrapolateFix(prev, last Fix, at time.Time, median, maxDivergence float64) (timeOffset10, sampleRateMHz float64, calc string) {
	var li = linearInterpolant{
		prevValue: prev.TimeOffsetMs10, prevOffset: 0,
		nextValue: last.TimeOffsetMs10, nextOffset: last.Timestamp.Sub(prev.Timestamp).Seconds(),
	}
	timeOffset10 = li.valueAt(at.Sub(prev.Timestamp).Seconds())

	if math.Abs(last.SampleRateMHz-median)/median > maxDivergence {
		sampleRateMHz = median
		calc = "MEDIAN"
	} else {
		sampleRateMHz = last.SampleRateMHz
		calc = "INTERPOLATION"
	}

	return timeOffset10, sampleRateMHz, calc
}

// interpolateFix linearly interpolates clock drift and sample rate
// between two bracketing fixes (spec §4.9).
func interpolateFix(lower, upper Fix, at time.Time, median, maxDivergence float64) (timeOffset10, sampleRateMHz float64, calc string) {
	var span = upper.Timestamp.Sub(lower.Timestamp).Seconds()
	var progress = at.Sub(lower.Timestamp).Seconds()

	var offsetInterp = linearInterpolant{
		prevValue: lower.TimeOffsetMs10, prevOffset: 0,
		nextValue: upper.TimeOffsetMs10, nextOffset: span,
	}
	timeOffset10 = offsetInterp.valueAt(progress)

	var rateInterp = linearInterpolant{
		prevValue: lower.SampleRateMHz, prevOffset: 0,
		nextValue: upper.SampleRateMHz, nextOffset: span,
	}
	var rate = rateInterp.valueAt(progress)

	if math.Abs(rate-median)/median > maxDivergence {
		sampleRateMHz = median
		calc = "MEDIAN"
	} else {
		sampleRateMHz = rate
		calc = "INTERPOLATION"
	}

	return timeOffset10, sampleRateMHz, calc
}

// streamAlign drops or pads sampleShift leading samples, then streams
// the remainder through the shared linear-interpolation kernel (spec
// §4.9), evaluating the instantaneous input sample rate at each output
// sample as sampleRateStart + progress*(sampleRateEnd - sampleRateStart),
// scaled by clockDriftCorrection, mirroring streamSync's per-sample
// cursor advance with a continuously varying rate instead of a constant
// per-interval one.
func streamAlign(w io.Writer, r *sectionReader, inputSamples, sampleShift, outputSamples int64, targetSampleRate, rateStart, rateEnd float64, tick func(done int64)) error {
	var srcStart int64
	var padSamples int64

	if sampleShift >= 0 {
		srcStart = sampleShift
	} else {
		padSamples = -sampleShift
	}

	var written int64
	var emit = func(sample int16) error {
		var b [2]byte
		writeSample16(b[:], 0, sample)
		if _, err := w.Write(b[:]); err != nil {
			return wrapErr(ErrOutputWriteFailed, err, "writing align sample")
		}
		written++
		if tick != nil {
			tick(written)
		}
		return nil
	}

	if padSamples > 0 {
		if err := writeZeros(w, padSamples*2, sampleBufferSize); err != nil {
			return err
		}
		written += padSamples
		if tick != nil {
			tick(written)
		}
	}

	// bodyCount is how many samples the interpolation kernel itself
	// produces; outputSamples also counts the leading pad written above.
	var bodyCount = outputSamples - padSamples
	if bodyCount <= 0 {
		return nil
	}

	var remaining = inputSamples - srcStart
	if remaining < 0 {
		remaining = 0
	}

	var readSampleAt = func(index int64) (int16, error) {
		if index < 0 {
			return 0, nil
		}
		var buf [2]byte
		var n, err = r.ReadAt(buf[:], (srcStart+index)*2)
		if err != nil && err != io.EOF {
			return 0, wrapErr(ErrInputReadFailed, err, "reading align sample %d", index)
		}
		if n < 2 {
			return 0, nil
		}
		return readSample16(buf[:], 0), nil
	}

	// rateAt evaluates the instantaneous input sample rate at the
	// absolute input sample index absIdx, as a fraction of progress
	// through the whole recording (not just the post-shift remainder).
	var rateAt = func(absIdx int64) float64 {
		var progress float64
		if inputSamples > 0 {
			progress = float64(absIdx) / float64(inputSamples)
		}
		return (rateStart + progress*(rateEnd-rateStart)) * clockDriftCorrection
	}

	var totalDuration = float64(bodyCount) / targetSampleRate

	var prevSample, _ = readSampleAt(0)
	var prevOffset = 0.0
	var nextOffset = 1 / rateAt(srcStart+1)
	var nextSample, _ = readSampleAt(1)
	var cursor int64

	for j := int64(0); j < bodyCount; j++ {
		var progress = float64(j) / float64(bodyCount)
		var currentOffset = progress * totalDuration

		for currentOffset > nextOffset && cursor+2 <= remaining {
			cursor++
			prevSample = nextSample
			prevOffset = nextOffset
			nextOffset += 1 / rateAt(srcStart+cursor+1)
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

	return nil
}

func strconv64(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}

// gpsCSVHeader is SUMMARY.CSV's sibling report (spec §4.9 finalise).
var gpsCSVHeader = []string{
	"EVENT", "TIMESTAMP", "FILENAME", "LATITUDE", "LONGITUDE",
	"DURATION", "TEMPERATURE", "BATTERY VOLTAGE",
	"SAMPLE RATE START", "SAMPLE RATE END", "CALCULATION",
	"UTM ZONE", "UTM HEMISPHERE", "UTM EASTING", "UTM NORTHING",
}

// Finalise sorts recordings by timestamp and interleaves them with
// fixes into a single GPS.CSV (spec §4.9 finalise).
func (a *Aligner) Finalise(outputPath string) error {
	sort.SliceStable(a.recordings, func(i, j int) bool {
		return a.recordings[i].Timestamp.Before(a.recordings[j].Timestamp)
	})

	type row struct {
		timestamp time.Time
		record    []string
	}

	var rows []row
	for _, fx := range a.fixes {
		var utm, ok = convertToUTM(fx.Latitude, fx.Longitude)
		var zone, hemi, easting, northing string
		if ok {
			zone, hemi, easting, northing = utm.Zone, utm.Hemisphere, utm.Easting, utm.Northing
		}

		rows = append(rows, row{
			timestamp: fx.Timestamp,
			record: []string{
				"FIX", fx.Timestamp.Format("2006-01-02T15:04:05Z"), "",
				strconv64(fx.Latitude), strconv64(fx.Longitude),
				"", "", "", "", "", "",
				zone, hemi, easting, northing,
			},
		})
	}

	for _, rec := range a.recordings {
		var lat, lon string
		if rec.HasPosition {
			lat, lon = strconv64(rec.Latitude), strconv64(rec.Longitude)
		}

		var zone, hemi, easting, northing string
		if rec.HasPosition {
			if utm, ok := convertToUTM(rec.Latitude, rec.Longitude); ok {
				zone, hemi, easting, northing = utm.Zone, utm.Hemisphere, utm.Easting, utm.Northing
			}
		}

		rows = append(rows, row{
			timestamp: rec.Timestamp,
			record: []string{
				"RECORDING", rec.Timestamp.Format("2006-01-02T15:04:05Z"), rec.Filename,
				lat, lon,
				formatDuration(rec.DurationSeconds), rec.Temperature, rec.BatteryVoltage,
				strconv64(rec.SampleRateStart), strconv64(rec.SampleRateEnd), rec.Calculation,
				zone, hemi, easting, northing,
			},
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].timestamp.Before(rows[j].timestamp)
	})

	var out, err = os.Create(outputPath) //nolint:gosec
	if err != nil {
		return wrapErr(ErrOutputWriteFailed, err, "creating %q", outputPath)
	}
	defer out.Close()

	var w = csv.NewWriter(out)
	defer w.Flush()

	if err := w.Write(gpsCSVHeader); err != nil {
		return wrapErr(ErrOutputWriteFailed, err, "writing GPS.CSV header")
	}
	for _, r := range rows {
		if err := w.Write(r.record); err != nil {
			return wrapErr(ErrOutputWriteFailed, err, "writing GPS.CSV row")
		}
	}

	return nil
}
