package main

/*------------------------------------------------------------------
 *
 * Purpose:	Thin argv wrapper around audiomoth.Expand.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenAcousticDevices/AudioMoth-Utils/internal/audiomoth"
	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

func main() {
	var prefix = pflag.StringP("prefix", "p", "", "Prefix to prepend to every output filename.")
	var maxDuration = pflag.IntP("duration", "d", 0, "Maximum duration of each output file, in seconds. 0 uses the one-day default.")
	var mode = pflag.StringP("mode", "m", "duration", "Expansion mode: 'duration' or 'event'.")
	var generateSilent = pflag.Bool("generate-silent-files", false, "In duration mode, still emit files that contain only silence.")
	var alignToSeconds = pflag.Bool("align-to-seconds", false, "In event mode, snap output windows to second transitions.")
	var outputDir = pflag.StringP("output", "o", ".", "Directory to write output files into.")
	var verbose = pflag.BoolP("verbose", "v", false, "Log progress to stderr.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "audiomoth-expand reconstructs a trigger-compressed AudioMoth recording and cuts it into files.\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]... <WAV FILE>...\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help || len(pflag.Args()) == 0 {
		pflag.Usage()
		os.Exit(1)
	}

	var expansionType = audiomoth.ExpandDuration
	switch strings.ToLower(*mode) {
	case "duration":
		expansionType = audiomoth.ExpandDuration
	case "event":
		expansionType = audiomoth.ExpandEvent
	default:
		fmt.Fprintf(os.Stderr, "Unrecognised mode %q, expected 'duration' or 'event'.\n", *mode)
		pflag.Usage()
		os.Exit(1)
	}

	var logger *log.Logger
	if *verbose {
		logger = audiomoth.NewLogger(os.Stderr, "expand")
	}

	var opts = audiomoth.ExpandOptions{
		Prefix:                   *prefix,
		GenerateSilentFiles:      *generateSilent,
		AlignToSecondTransitions: *alignToSeconds,
		ExpansionType:            expansionType,
		Logger:                   logger,
	}
	if *maxDuration > 0 {
		opts.MaximumFileDuration = maxDuration
	}

	var failed bool
	for _, input := range pflag.Args() {
		var outputs, err = audiomoth.Expand(input, *outputDir, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", filepath.Base(input), err)
			failed = true
			continue
		}
		for _, path := range outputs {
			fmt.Println(path)
		}
	}

	if failed {
		os.Exit(1)
	}
}
