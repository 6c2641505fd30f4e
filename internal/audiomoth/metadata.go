package audiomoth

/*------------------------------------------------------------------
 *
 * Purpose:	Extracts the Summariser's secondary fields — GPS position,
 *		temperature, battery voltage — from a comment or GUANO
 *		body, comment preferred and GUANO as fallback (spec §4.7).
 *
 *---------------------------------------------------------------*/

import (
	"regexp"
	"strconv"
)

var (
	commentTemperaturePattern = regexp.MustCompile(`(-?\d+(?:\.\d+)?)C\b`)
	commentBatteryPattern     = regexp.MustCompile(`(\d+(?:\.\d+)?)V\b|greater than 4\.9V|less than 2\.5V`)

	guanoPositionPattern    = regexp.MustCompile(`Loc Position:\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)`)
	guanoTemperaturePattern = regexp.MustCompile(`Temperature Int:\s*(-?\d+(?:\.\d+)?)`)
	guanoBatteryPattern     = regexp.MustCompile(`(?i)battery[^:]*:\s*(\d+(?:\.\d+)?)`)
)

// parseGuanoPosition extracts "Loc Position:lat,lon" from a GUANO body.
func parseGuanoPosition(g *Guano) (lat, lon float64, ok bool) {
	if g == nil {
		return 0, 0, false
	}

	var m = guanoPositionPattern.FindStringSubmatch(string(g.Contents))
	if m == nil {
		return 0, 0, false
	}

	lat, _ = strconv.ParseFloat(m[1], 64)
	lon, _ = strconv.ParseFloat(m[2], 64)
	return lat, lon, true
}

// extractTemperature prefers the comment's "XX.XC" marker, falling back
// to GUANO's "Temperature Int" field.
func extractTemperature(comment string, guano *Guano) string {
	if m := commentTemperaturePattern.FindStringSubmatch(comment); m != nil {
		return m[1]
	}
	if guano != nil {
		if m := guanoTemperaturePattern.FindStringSubmatch(string(guano.Contents)); m != nil {
			return m[1]
		}
	}
	return ""
}

// extractBatteryVoltage prefers the comment's "X.XV" / "greater than
// 4.9V" / "less than 2.5V" markers, falling back to a GUANO battery field.
func extractBatteryVoltage(comment string, guano *Guano) string {
	if m := commentBatteryPattern.FindStringSubmatch(comment); m != nil {
		if m[1] != "" {
			return m[1]
		}
		return m[0]
	}
	if guano != nil {
		if m := guanoBatteryPattern.FindStringSubmatch(string(guano.Contents)); m != nil {
			return m[1]
		}
	}
	return ""
}
