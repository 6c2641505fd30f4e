package main

/*------------------------------------------------------------------
 *
 * Purpose:	Thin argv wrapper around audiomoth.Downsample.
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
	var rate = pflag.IntP("rate", "r", 0, "Target sample rate in Hz. Required.")
	var outputDir = pflag.StringP("output", "o", ".", "Directory to write output files into.")
	var verbose = pflag.BoolP("verbose", "v", false, "Log progress to stderr.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "audiomoth-downsample reduces an AudioMoth recording to one of the recognised sample rates.\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s --rate HZ [OPTION]... <WAV FILE>...\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help || *rate == 0 || len(pflag.Args()) == 0 {
		pflag.Usage()
		os.Exit(1)
	}

	var logger *log.Logger
	if *verbose {
		logger = audiomoth.NewLogger(os.Stderr, "downsample")
	}

	var opts = audiomoth.DownsampleOptions{Prefix: *prefix, RequestedSampleRate: *rate, Logger: logger}

	var failed bool
	for _, input := range pflag.Args() {
		var output, err = audiomoth.Downsample(input, *outputDir, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", filepath.Base(input), err)
			failed = true
			continue
		}
		fmt.Println(output)
	}

	if failed {
		os.Exit(1)
	}
}
