package main

/*------------------------------------------------------------------
 *
 * Purpose:	Thin argv wrapper around audiomoth.Aligner: reconcile one or
 *		more recordings against a GPS.TXT fix log and write a
 *		single GPS.CSV session report.
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
	var gpsLog = pflag.StringP("gps-log", "g", "", "Path to the GPS.TXT fix log. Required.")
	var onlyBetweenFixes = pflag.Bool("only-between-fixes", false, "Fail instead of extrapolating past the last fix.")
	var outputDir = pflag.StringP("output", "o", ".", "Directory to write output files and GPS.CSV into.")
	var verbose = pflag.BoolP("verbose", "v", false, "Log progress to stderr.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "audiomoth-align reconciles recordings against an independent GPS fix log.\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s --gps-log GPS.TXT [OPTION]... <WAV FILE>...\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help || *gpsLog == "" || len(pflag.Args()) == 0 {
		pflag.Usage()
		os.Exit(1)
	}

	var logger *log.Logger
	if *verbose {
		logger = audiomoth.NewLogger(os.Stderr, "align")
	}

	var aligner = audiomoth.NewAligner(logger)
	if err := aligner.Initialise(*gpsLog); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", filepath.Base(*gpsLog), err)
		os.Exit(1)
	}

	var opts = audiomoth.AlignOptions{Prefix: *prefix, OnlyBetweenFixes: *onlyBetweenFixes, Logger: logger}

	var failed bool
	for _, input := range pflag.Args() {
		var output, err = aligner.Align(input, *outputDir, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", filepath.Base(input), err)
			failed = true
			continue
		}
		fmt.Println(output)
	}

	var reportPath = filepath.Join(*outputDir, "GPS.CSV")
	if err := aligner.Finalise(reportPath); err != nil {
		fmt.Fprintf(os.Stderr, "writing %s: %s\n", reportPath, err)
		os.Exit(1)
	}

	if failed {
		os.Exit(1)
	}
}
