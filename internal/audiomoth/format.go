package audiomoth

/*------------------------------------------------------------------
 *
 * Purpose:	Rendering helpers shared by every writing operation:
 *		the "Recorded at HH:MM:SS DD/MM/YYYY (UTC...)" comment text
 *		and the "[prefix_][existingPrefix]YYYYMMDD_HHMMSS[_mmm]
 *		[existingPostfix].WAV" output filename (spec §6).
 *
 * Description:	Uses lestrrat-go/strftime the same way the teacher's
 *		tq.go/xmit.go render an operator-supplied timestamp format
 *		into text, rather than hand-rolling %-style substitution.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/strftime"
)

const (
	filenameTimestampLayout = "%Y%m%d_%H%M%S"
	commentTimeLayout       = "%H:%M:%S"
	commentDateLayout       = "%d/%m/%Y"
)

// FormatTimestamp renders t (UTC) as YYYYMMDD_HHMMSS.
func FormatTimestamp(t time.Time) string {
	var out, err = strftime.Format(filenameTimestampLayout, t.UTC())
	if err != nil {
		// strftime only fails on malformed patterns; ours is constant.
		return t.UTC().Format("20060102_150405")
	}
	return out
}

// FormatComment renders the "Recorded at HH:MM:SS DD/MM/YYYY (UTC...)"
// prefix of an ICMT comment, given the moment in UTC and the recording's
// local UTC offset.
func FormatComment(t time.Time, tz time.Duration, rest string) string {
	var local = t.Add(tz)

	var timePart, _ = strftime.Format(commentTimeLayout, local)
	var datePart, _ = strftime.Format(commentDateLayout, local)

	var offset = FormatUTCOffset(tz)

	var comment = fmt.Sprintf("Recorded at %s %s (UTC%s)", timePart, datePart, offset)
	if rest != "" {
		comment += " " + rest
	}

	return comment
}

// FormatUTCOffset renders a duration as "", "+5", "-4", or "+5:30".
func FormatUTCOffset(tz time.Duration) string {
	if tz == 0 {
		return ""
	}

	var sign = "+"
	if tz < 0 {
		sign = "-"
		tz = -tz
	}

	var hours = int(tz / time.Hour)
	var minutes = int((tz % time.Hour) / time.Minute)

	if minutes == 0 {
		return fmt.Sprintf("%s%d", sign, hours)
	}
	return fmt.Sprintf("%s%d:%02d", sign, hours, minutes)
}

// FormatOutputFilename builds "[prefix_][existingPrefix]YYYYMMDD_HHMMSS
// [_mmm][existingPostfix].WAV" per spec §6. appendSync forces a "_SYNC"
// postfix (Sync/Align results) unless existingPostfix already carries one.
func FormatOutputFilename(prefix, existingPrefix string, timestamp time.Time, milliseconds *int, existingPostfix string, appendSync bool) string {
	var name string

	if prefix != "" {
		name += prefix + "_"
	}
	if existingPrefix != "" {
		name += existingPrefix + "_"
	}

	name += FormatTimestamp(timestamp)

	if milliseconds != nil {
		name += fmt.Sprintf("_%03d", *milliseconds)
	}

	name += existingPostfix

	if appendSync && existingPostfix == "" {
		name += "_SYNC"
	}

	name += ".WAV"

	return name
}
