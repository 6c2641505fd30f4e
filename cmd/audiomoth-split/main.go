package main

/*------------------------------------------------------------------
 *
 * Purpose:	Thin argv wrapper around audiomoth.Split: cut one or more
 *		WAV recordings into uniform-duration pieces.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/OpenAcousticDevices/AudioMoth-Utils/internal/audiomoth"
	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

func main() {
	var prefix = pflag.StringP("prefix", "p", "", "Prefix to prepend to every output filename.")
	var maxDuration = pflag.IntP("duration", "d", 0, "Maximum duration of each output file, in seconds. 0 uses the one-day default.")
	var outputDir = pflag.StringP("output", "o", ".", "Directory to write output files into.")
	var verbose = pflag.BoolP("verbose", "v", false, "Log progress to stderr.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "audiomoth-split cuts an AudioMoth recording into uniform-duration pieces.\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]... <WAV FILE>...\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help || len(pflag.Args()) == 0 {
		pflag.Usage()
		os.Exit(1)
	}

	var logger *log.Logger
	if *verbose {
		logger = audiomoth.NewLogger(os.Stderr, "split")
	}

	var opts = audiomoth.SplitOptions{Prefix: *prefix, Logger: logger}
	if *maxDuration > 0 {
		opts.MaximumFileDuration = maxDuration
	}

	var failed bool
	for _, input := range pflag.Args() {
		var outputs, err = audiomoth.Split(input, *outputDir, opts)
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
