package main

/*------------------------------------------------------------------
 *
 * Purpose:	Thin argv wrapper around audiomoth.Summariser: walk a
 *		directory tree and write SUMMARY.CSV describing every
 *		recognised recording found.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenAcousticDevices/AudioMoth-Utils/internal/audiomoth"
	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

func main() {
	var outputPath = pflag.StringP("output", "o", "SUMMARY.CSV", "Path to write the summary CSV to.")
	var verbose = pflag.BoolP("verbose", "v", false, "Log progress to stderr.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "audiomoth-summarise walks a directory and writes SUMMARY.CSV describing every recognised recording.\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]... <ROOT DIRECTORY>...\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help || len(pflag.Args()) == 0 {
		pflag.Usage()
		os.Exit(1)
	}

	var logger *log.Logger
	if *verbose {
		logger = audiomoth.NewLogger(os.Stderr, "summarise")
	}

	var summariser = audiomoth.NewSummariser(logger)
	summariser.Initialise()

	for _, root := range pflag.Args() {
		var walkErr = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".wav") {
				return nil
			}
			return summariser.Summarise(root, path, nil)
		})
		if walkErr != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", root, walkErr)
			os.Exit(1)
		}
	}

	if err := summariser.Finalise(*outputPath); err != nil {
		fmt.Fprintf(os.Stderr, "writing %s: %s\n", *outputPath, err)
		os.Exit(1)
	}

	fmt.Println(*outputPath)
}
