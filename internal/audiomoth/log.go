package audiomoth

/*------------------------------------------------------------------
 *
 * Purpose:	A named sub-logger per operation, built on charmbracelet/log.
 *
 * Description:	The teacher's go.mod carries charmbracelet/log as a direct
 *		dependency but never imports it; every diagnostic instead
 *		goes through text_color_set/dw_printf. Here it does real
 *		work: one sub-logger per operation (split, downsample,
 *		expand, sync, align, summarise), threaded through each
 *		operation's options rather than reached for as global
 *		state, so two operations can run in the same process
 *		without fighting over a shared logger's fields.
 *
 *---------------------------------------------------------------*/

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// NewLogger returns a logger writing to w (os.Stderr if w is nil) tagged
// with the given operation name, e.g. "split", "sync".
func NewLogger(w io.Writer, operation string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}

	var logger = log.NewWithOptions(w, log.Options{
		Prefix:          operation,
		ReportTimestamp: true,
	})

	return logger
}

// discardLogger is used when the caller passes a nil *log.Logger to an
// operation's options, so call sites never need a nil check.
func discardLogger(operation string) *log.Logger {
	return NewLogger(io.Discard, operation)
}
