package audiomoth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToUTM_NorthernHemisphere(t *testing.T) {
	var fields, ok = convertToUTM(51.5074, -0.1278) // London
	require.True(t, ok)
	assert.Equal(t, "N", fields.Hemisphere)
	assert.NotEmpty(t, fields.Zone)
	assert.NotEmpty(t, fields.Easting)
	assert.NotEmpty(t, fields.Northing)
}

func TestConvertToUTM_SouthernHemisphere(t *testing.T) {
	var fields, ok = convertToUTM(-33.8688, 151.2093) // Sydney
	require.True(t, ok)
	assert.Equal(t, "S", fields.Hemisphere)
}
