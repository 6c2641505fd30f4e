package audiomoth

/*------------------------------------------------------------------
 *
 * Purpose:	L2 Summariser — walks a caller-driven file enumeration and
 *		accumulates one row per recognised recording, written out
 *		as SUMMARY.CSV (spec §4.7).
 *
 * Description:	File discovery itself is an external collaborator (spec
 *		§1); callers drive Summarise once per file they find.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// SummaryRow is one accumulated recording (spec §4.7).
type SummaryRow struct {
	Filename        string
	Folder          string
	DurationSeconds float64
	SampleRate      int
	Timestamp       string
	Latitude        float64
	Longitude       float64
	HasPosition     bool
	Temperature     string
	BatteryVoltage  string
	UTMZone         string
	UTMEasting      string
	UTMNorthing     string
}

// Summariser implements the initialise/summarise/finalise lifecycle
// (spec §4.7). Not safe for concurrent use; one accumulator is driven
// from a single thread between initialise and finalise (spec §5).
type Summariser struct {
	rows   []SummaryRow
	logger *log.Logger
}

// NewSummariser builds a Summariser, already initialised.
func NewSummariser(logger *log.Logger) *Summariser {
	if logger == nil {
		logger = discardLogger("summarise")
	}
	return &Summariser{logger: logger}
}

// Initialise clears the accumulator.
func (s *Summariser) Initialise() {
	s.rows = nil
}

// Summarise recognises filePath against the union of the four operation
// filename patterns, reads its header, and appends a best-effort row
// even when only partially readable.
func (s *Summariser) Summarise(rootPath, filePath string, progress Progress) error {
	var folder, _ = filepath.Rel(rootPath, filepath.Dir(filePath))
	var filename = filepath.Base(filePath)

	var row = SummaryRow{Filename: filename, Folder: folder}

	var in, err = os.Open(filePath) //nolint:gosec
	if err != nil {
		s.rows = append(s.rows, row)
		return nil
	}
	defer in.Close()

	var stat os.FileInfo
	stat, err = in.Stat()
	if err != nil || stat.Size() == 0 {
		s.rows = append(s.rows, row)
		return nil
	}

	var headBuf = make([]byte, minInt64(stat.Size(), headerBufferSize))
	if _, err := in.ReadAt(headBuf, 0); err != nil {
		s.rows = append(s.rows, row)
		return nil
	}

	var header *Header
	header, err = ReadHeader(headBuf, stat.Size())
	if err != nil {
		s.rows = append(s.rows, row)
		return nil
	}

	row.SampleRate = int(header.Format.SamplesPerSecond)

	var info, infoErr = matchAnyOperation(filename, header)
	if infoErr == nil {
		row.Timestamp = FormatTimestamp(time.UnixMilli(info.OriginalTimestamp).UTC())
	}

	var decodedSamples = int64(header.DataSize) / 2
	if strings.Contains(filename, "T") {
		var reader = newSectionReader(in, int64(header.Size))
		var segments, segErr = buildSegments(reader, int64(header.DataSize))
		if segErr == nil {
			var total int64
			if len(segments) > 0 {
				var last = segments[len(segments)-1]
				total = last.outputOffset + last.outputBytes
			}
			decodedSamples = total / 2
		}
	}

	if row.SampleRate > 0 {
		row.DurationSeconds = float64(decodedSamples) / float64(row.SampleRate)
	}

	var guano *Guano
	var guanoAvailable = stat.Size() - int64(header.Size) - int64(header.DataSize)
	if guanoAvailable > 0 {
		var guanoBuf = make([]byte, guanoAvailable)
		if _, err := in.ReadAt(guanoBuf, int64(header.Size)+int64(header.DataSize)); err == nil {
			guano, _ = ReadGuano(guanoBuf, guanoAvailable)
		}
	}

	if guano != nil {
		row.Latitude, row.Longitude, row.HasPosition = parseGuanoPosition(guano)
	}

	row.Temperature = extractTemperature(header.Comment, guano)
	row.BatteryVoltage = extractBatteryVoltage(header.Comment, guano)

	if row.HasPosition {
		if utm, ok := convertToUTM(row.Latitude, row.Longitude); ok {
			row.UTMZone = utm.Zone
			row.UTMEasting = utm.Easting
			row.UTMNorthing = utm.Northing
		}
	}

	s.rows = append(s.rows, row)

	if progress != nil {
		progress(100)
	}

	return nil
}

// Finalise sorts accumulated rows by (folder, filename) and writes
// SUMMARY.CSV to outputPath.
func (s *Summariser) Finalise(outputPath string) error {
	sort.SliceStable(s.rows, func(i, j int) bool {
		if s.rows[i].Folder != s.rows[j].Folder {
			return s.rows[i].Folder < s.rows[j].Folder
		}
		return s.rows[i].Filename < s.rows[j].Filename
	})

	var out, err = os.Create(outputPath) //nolint:gosec
	if err != nil {
		return wrapErr(ErrOutputWriteFailed, err, "creating %q", outputPath)
	}
	defer out.Close()

	var w = csv.NewWriter(out)
	defer w.Flush()

	var header = []string{
		"FILENAME", "FOLDER", "DURATION", "SAMPLE RATE", "TIMESTAMP",
		"LATITUDE", "LONGITUDE", "TEMPERATURE", "BATTERY VOLTAGE",
		"UTM ZONE", "UTM EASTING", "UTM NORTHING",
	}
	if err := w.Write(header); err != nil {
		return wrapErr(ErrOutputWriteFailed, err, "writing SUMMARY.CSV header")
	}

	for _, row := range s.rows {
		var lat, lon string
		if row.HasPosition {
			lat = strconv.FormatFloat(row.Latitude, 'f', 6, 64)
			lon = strconv.FormatFloat(row.Longitude, 'f', 6, 64)
		}

		var record = []string{
			row.Filename,
			row.Folder,
			formatDuration(row.DurationSeconds),
			formatSampleRate(row.SampleRate),
			row.Timestamp,
			lat,
			lon,
			row.Temperature,
			row.BatteryVoltage,
			row.UTMZone,
			row.UTMEasting,
			row.UTMNorthing,
		}
		if err := w.Write(record); err != nil {
			return wrapErr(ErrOutputWriteFailed, err, "writing SUMMARY.CSV row")
		}
	}

	return nil
}

func formatDuration(d float64) string {
	if d == 0 {
		return "0"
	}
	return strconv.FormatFloat(d, 'f', 3, 64)
}

func formatSampleRate(r int) string {
	if r == 0 {
		return ""
	}
	return strconv.Itoa(r)
}

// matchAnyOperation tries each operation's filename pattern in turn,
// since the Summariser doesn't know in advance which produced a file.
func matchAnyOperation(filename string, header *Header) (*FilenameInfo, error) {
	var lastErr error
	for _, op := range []Operation{OpSplit, OpDownsample, OpExpand, OpSync} {
		var info, err = ValidateFilename(op, filename, header)
		if err == nil {
			return info, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
