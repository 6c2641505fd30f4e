package audiomoth

/*------------------------------------------------------------------
 *
 * Purpose:	Toolkit-wide tunable defaults, loaded from an optional YAML
 *		file the same way deviceid.go loads tocalls.yaml in the
 *		teacher: search a short list of candidate locations,
 *		tolerate absence, fall back to built-in constants.
 *
 *---------------------------------------------------------------*/

import (
	"os"

	"gopkg.in/yaml.v3"
)

// PPSConfig carries the §4.8 reconciliation tolerances.
type PPSConfig struct {
	LFXOPPM           float64 `yaml:"lfxoPPM"`
	HFXOPPM           float64 `yaml:"hfxoPPM"`
	MaxBufferOverflow int     `yaml:"maxBufferOverflow"`
}

// AlignConfig carries the §4.9 divergence tolerance.
type AlignConfig struct {
	MaxDivergenceHzPerSec float64 `yaml:"maxDivergenceHzPerSec"`
}

// Config is the toolkit's resolved set of defaults.
type Config struct {
	DefaultMaximumFileDuration int       `yaml:"defaultMaximumFileDuration"`
	RecognisedDownsampleRates  []int     `yaml:"recognisedDownsampleRates"`
	PPS                        PPSConfig `yaml:"pps"`
	Align                      AlignConfig `yaml:"align"`
}

// DefaultConfig returns the spec's literal built-in values (§4.4, §4.8,
// §4.9), used whenever no YAML file is found or one is not supplied.
func DefaultConfig() Config {
	return Config{
		DefaultMaximumFileDuration: 86400,
		RecognisedDownsampleRates:  []int{8000, 16000, 32000, 48000, 96000, 192000, 250000, 384000},
		PPS: PPSConfig{
			LFXOPPM:           100,
			HFXOPPM:           100,
			MaxBufferOverflow: 8,
		},
		Align: AlignConfig{
			MaxDivergenceHzPerSec: 400.0 / 48e6,
		},
	}
}

var configSearchLocations = []string{
	"audiomoth-utils.yaml",
	"config/audiomoth-utils.yaml",
	"/etc/audiomoth-utils.yaml",
}

// LoadConfig reads path if non-empty, otherwise searches
// configSearchLocations, merging onto DefaultConfig. A missing file
// anywhere in the search list is not an error; a malformed one is.
func LoadConfig(path string) (Config, error) {
	var cfg = DefaultConfig()

	var candidates []string
	if path != "" {
		candidates = []string{path}
	} else {
		candidates = configSearchLocations
	}

	var data []byte
	var found bool
	for _, candidate := range candidates {
		var b, err = os.ReadFile(candidate) //nolint:gosec
		if err == nil {
			data = b
			found = true
			break
		}
	}

	if !found {
		if path != "" {
			return cfg, newErr(ErrInvalidArgument, "config file %q not found", path)
		}
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, wrapErr(ErrInvalidArgument, err, "parsing config")
	}

	return cfg, nil
}
