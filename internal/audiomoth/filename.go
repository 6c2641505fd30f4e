package audiomoth

/*------------------------------------------------------------------
 *
 * Purpose:	L1 filename validator. One regex per operation extracts
 *		(existingPrefix, timestring, existingPostfix) and the
 *		result is cross-checked against the WAV comment/artist
 *		(spec §4.2).
 *
 *---------------------------------------------------------------*/

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Operation names an entry point, used to pick the right filename
// pattern and cross-check rule.
type Operation int

const (
	OpSplit Operation = iota
	OpDownsample
	OpExpand
	OpSync
)

func (op Operation) String() string {
	switch op {
	case OpSplit:
		return "SPLIT"
	case OpDownsample:
		return "DOWNSAMPLE"
	case OpExpand:
		return "EXPAND"
	case OpSync:
		return "SYNC"
	default:
		return "UNKNOWN"
	}
}

var (
	// SPLIT, DOWNSAMPLE, SYNC all require the full YYYYMMDD_HHMMSS form.
	filenamePatternFull = regexp.MustCompile(`(?i)^(?:([A-Za-z0-9]+)_)?(\d{8}_\d{6})(_SYNC)?\.WAV$`)

	// EXPAND additionally accepts the legacy bare HHMMSS form.
	filenamePatternExpand = regexp.MustCompile(`(?i)^(?:([A-Za-z0-9]+)_)?(\d{8}_\d{6}|\d{6})(_SYNC)?\.WAV$`)

	commentPattern = regexp.MustCompile(`Recorded at (\d{2}):(\d{2}):(\d{2}) (\d{2})/(\d{2})/(\d{4}) \(UTC([+-]\d{1,2})?(?::(\d{2}))?\)`)

	artistTagPrefix = "AudioMoth "
)

// FilenameInfo is the cross-checked result of validating a filename
// against an operation and (when required) a WAV header.
type FilenameInfo struct {
	ExistingPrefix     string
	Timestring         string
	ExistingPostfix    string // "_SYNC" or ""
	OriginalTimestamp  int64  // UTC epoch milliseconds
	RecordingTimezone  time.Duration
}

// ValidateFilename applies spec §4.2's rules for op against filename,
// using header for the cross-checks that operation requires.
func ValidateFilename(op Operation, filename string, header *Header) (*FilenameInfo, error) {
	var pattern = filenamePatternFull
	if op == OpExpand {
		pattern = filenamePatternExpand
	}

	var m = pattern.FindStringSubmatch(filename)
	if m == nil {
		return nil, newErr(ErrFilenameInvalid, "filename %q does not match %s pattern", filename, op)
	}

	var info = &FilenameInfo{
		ExistingPrefix:  m[1],
		Timestring:      m[2],
		ExistingPostfix: m[3],
	}

	if (op == OpExpand || op == OpSync) && info.ExistingPrefix != "" {
		if header == nil {
			return nil, newErr(ErrFilenameInvalid, "prefix %q requires a header to cross-check", info.ExistingPrefix)
		}

		var expected = strings.TrimPrefix(header.Artist, artistTagPrefix)
		if info.ExistingPrefix != expected {
			return nil, newErr(ErrMetadataMismatch, "filename prefix %q does not match artist tag %q", info.ExistingPrefix, header.Artist)
		}
	}

	var timestamp time.Time
	var tz time.Duration
	var haveTimestamp bool

	if len(info.Timestring) == 15 { // YYYYMMDD_HHMMSS
		var t, err = time.ParseInLocation("20060102_150405", info.Timestring, time.UTC)
		if err != nil {
			return nil, wrapErr(ErrFilenameInvalid, err, "parsing timestring %q", info.Timestring)
		}
		timestamp = t
		haveTimestamp = true
	}

	if op == OpSplit || op == OpExpand || op == OpSync {
		if header == nil {
			return nil, newErr(ErrFilenameInvalid, "comment cross-check requires a header")
		}

		var commentTime, commentTZ, ok = parseCommentTimestamp(header.Comment)
		if !ok {
			return nil, newErr(ErrMetadataMismatch, "comment %q has no recognisable timestamp", header.Comment)
		}
		tz = commentTZ

		if haveTimestamp && !commentTime.Equal(timestamp) {
			return nil, newErr(ErrMetadataMismatch, "filename timestamp %v does not match comment timestamp %v", timestamp, commentTime)
		}

		if !haveTimestamp {
			// Legacy EXPAND HHMMSS: only the time-of-day must match.
			var hhmmss = info.Timestring
			if commentTime.Format("150405") != hhmmss {
				return nil, newErr(ErrMetadataMismatch, "filename time %q does not match comment time", hhmmss)
			}
			timestamp = commentTime
		}
	}

	if !haveTimestamp && op != OpSplit && op != OpSync {
		// EXPAND with legacy form: the comment cross-check above has
		// already taken the full timestamp from the comment.
	}

	info.OriginalTimestamp = timestamp.UnixMilli()
	info.RecordingTimezone = tz

	return info, nil
}

// parseCommentTimestamp extracts the "Recorded at HH:MM:SS DD/MM/YYYY
// (UTC[±H[:MM]])" fields from a comment, returning the moment in UTC
// and the recording's local UTC offset.
func parseCommentTimestamp(comment string) (time.Time, time.Duration, bool) {
	var m = commentPattern.FindStringSubmatch(comment)
	if m == nil {
		return time.Time{}, 0, false
	}

	var hour, _ = strconv.Atoi(m[1])
	var minute, _ = strconv.Atoi(m[2])
	var second, _ = strconv.Atoi(m[3])
	var day, _ = strconv.Atoi(m[4])
	var month, _ = strconv.Atoi(m[5])
	var year, _ = strconv.Atoi(m[6])

	var tzHours = 0
	if m[7] != "" {
		tzHours, _ = strconv.Atoi(m[7])
	}
	var tzMinutes = 0
	if m[8] != "" {
		tzMinutes, _ = strconv.Atoi(m[8])
		if tzHours < 0 {
			tzMinutes = -tzMinutes
		}
	}
	var tz = time.Duration(tzHours)*time.Hour + time.Duration(tzMinutes)*time.Minute

	// The local time printed in the comment, converted to UTC by
	// subtracting the stated offset.
	var local = time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	var utc = local.Add(-tz)

	return utc, tz, true
}

// HasSyncPostfix reports whether this filename already carries a
// preserved "_SYNC" postfix (spec §4.2 last bullet).
func (f *FilenameInfo) HasSyncPostfix() bool {
	return strings.EqualFold(f.ExistingPostfix, "_SYNC")
}
