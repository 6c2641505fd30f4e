package audiomoth

/*------------------------------------------------------------------
 *
 * Purpose:	Align's GPS.TXT line parser: fixed regex shapes for the
 *		five line kinds a GPS-disciplined log emits (spec §4.9
 *		initialise).
 *
 *---------------------------------------------------------------*/

import (
	"regexp"
	"strconv"
	"time"
)

// timeOffsetMultiplier converts tenths-of-ms clock corrections to ms
// (spec §4.9's TIME_OFFSET_MULTIPLIER = 10).
const timeOffsetMultiplier = 10

var (
	gpsFixLinePattern = regexp.MustCompile(
		`Received GPS fix: (\d{4}-\d{2}-\d{2}) (\d{2}):(\d{2}):(\d{2}) Latitude: (-?\d+\.\d+) Longitude: (-?\d+\.\d+)`)

	timeSetLinePattern = regexp.MustCompile(`Time was set`)

	timeUpdatedLinePattern = regexp.MustCompile(`Time was updated by (\d+)ms (fast|slow)`)

	timeNotUpdatedLinePattern = regexp.MustCompile(`Time was not updated`)

	sampleRateLinePattern = regexp.MustCompile(`Actual sample rate: (\d+) Hz`)
)

// gpsLogLine is one line of the GPS.TXT log, classified by kind.
type gpsLogLine struct {
	isFix          bool
	fixTime        time.Time
	latitude       float64
	longitude      float64
	isTimeOutcome  bool
	timeWasSet     bool
	timeOffsetMs   int // signed, positive means device was fast
	timeNotUpdated bool
	isSampleRate   bool
	sampleRate     int
}

// parseGPSLogLine classifies a single GPS.TXT line, returning ok=false
// for a line that matches none of the five recognised shapes.
func parseGPSLogLine(line string) (gpsLogLine, bool) {
	if m := gpsFixLinePattern.FindStringSubmatch(line); m != nil {
		var date = m[1]
		var hour, _ = strconv.Atoi(m[2])
		var minute, _ = strconv.Atoi(m[3])
		var second, _ = strconv.Atoi(m[4])
		var lat, _ = strconv.ParseFloat(m[5], 64)
		var lon, _ = strconv.ParseFloat(m[6], 64)

		var day, derr = time.Parse("2006-01-02", date)
		if derr != nil {
			return gpsLogLine{}, false
		}

		var fixTime = time.Date(day.Year(), day.Month(), day.Day(), hour, minute, second, 0, time.UTC)
		return gpsLogLine{isFix: true, fixTime: fixTime, latitude: lat, longitude: lon}, true
	}

	if timeSetLinePattern.MatchString(line) {
		return gpsLogLine{isTimeOutcome: true, timeWasSet: true}, true
	}

	if m := timeUpdatedLinePattern.FindStringSubmatch(line); m != nil {
		var ms, _ = strconv.Atoi(m[1])
		if m[2] == "slow" {
			ms = -ms
		}
		return gpsLogLine{isTimeOutcome: true, timeOffsetMs: ms}, true
	}

	if timeNotUpdatedLinePattern.MatchString(line) {
		return gpsLogLine{isTimeOutcome: true, timeNotUpdated: true}, true
	}

	if m := sampleRateLinePattern.FindStringSubmatch(line); m != nil {
		var rate, _ = strconv.Atoi(m[1])
		return gpsLogLine{isSampleRate: true, sampleRate: rate}, true
	}

	return gpsLogLine{}, false
}
