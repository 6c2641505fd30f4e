package main

/*------------------------------------------------------------------
 *
 * Purpose:	Thin argv wrapper around audiomoth.Sync.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"github.com/OpenAcousticDevices/AudioMoth-Utils/internal/audiomoth"
	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

func main() {
	var prefix = pflag.StringP("prefix", "p", "", "Prefix to prepend to the output filename.")
	var resampleRate = pflag.IntP("resample-rate", "r", 0, "Resample the corrected recording to this rate in Hz. 0 leaves the source rate unchanged.")
	var autoResolve = pflag.BoolP("auto-resolve", "a", false, "Auto-resolve missed/misaligned/unusual PPS events instead of failing.")
	var outputDir = pflag.StringP("output", "o", ".", "Directory to write the output file into.")
	var verbose = pflag.BoolP("verbose", "v", false, "Log progress to stderr.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "audiomoth-sync reconciles a recording against its companion PPS CSV.\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]... <WAV FILE> <CSV FILE>\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help || len(pflag.Args()) != 2 {
		pflag.Usage()
		os.Exit(1)
	}

	var logger *log.Logger
	if *verbose {
		logger = audiomoth.NewLogger(os.Stderr, "sync")
	}

	var opts = audiomoth.SyncOptions{Prefix: *prefix, AutoResolve: *autoResolve, Logger: logger}
	if *resampleRate > 0 {
		opts.ResampleRate = resampleRate
	}

	var output, report, err = audiomoth.Sync(pflag.Args()[0], pflag.Args()[1], *outputDir, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	fmt.Println(output)
	if report != "" {
		fmt.Fprintf(os.Stderr, "unusual sample rates reported: %s\n", report)
	}
}
