package audiomoth

/*------------------------------------------------------------------
 *
 * Purpose:	UTM enrichment for GPS.CSV and SUMMARY.CSV rows, adapted
 *		from the teacher's cmd/samoyed-ll2utm latitude/longitude
 *		conversion helper.
 *
 *---------------------------------------------------------------*/

import (
	"math"
	"strconv"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/tzneal/coordconv"
)

func hemisphereToRune(h coordconv.Hemisphere) rune {
	switch h {
	case coordconv.HemisphereNorth:
		return 'N'
	case coordconv.HemisphereSouth:
		return 'S'
	default:
		return '?'
	}
}

// utmFields is the per-row UTM enrichment of spec SPEC_FULL.md Part D.1/D.2.
// A conversion failure degrades the row's UTM columns to empty, matching
// the teacher's own practice of continuing past a failed ll2utm/MGRS
// attempt.
type utmFields struct {
	Zone       string
	Hemisphere string
	Easting    string
	Northing   string
}

func convertToUTM(lat, lon float64) (utmFields, bool) {
	var latlng = s2.LatLng{
		Lat: s1.Angle(lat * math.Pi / 180),
		Lng: s1.Angle(lon * math.Pi / 180),
	}

	var coord, err = coordconv.DefaultUTMConverter.ConvertFromGeodetic(latlng, 0)
	if err != nil {
		return utmFields{}, false
	}

	return utmFields{
		Zone:       strconv.Itoa(coord.Zone),
		Hemisphere: string(hemisphereToRune(coord.Hemisphere)),
		Easting:    strconv.FormatFloat(coord.Easting, 'f', 2, 64),
		Northing:   strconv.FormatFloat(coord.Northing, 'f', 2, 64),
	}, true
}
