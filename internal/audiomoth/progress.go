package audiomoth

/*------------------------------------------------------------------
 *
 * Purpose:	Progress callback capability type and percent-transition
 *		de-duplication, shared by every streaming operation.
 *
 * Description:	The callback is a plain function value, invoked
 *		synchronously from the caller's own goroutine, never
 *		retained past its own call (spec §5, §9 "Callbacks").
 *		progressTracker only calls it at integer-percent
 *		transitions, and calls it with 100 when the operation is
 *		done unless the last data-driven transition already
 *		reported 100.
 *
 *---------------------------------------------------------------*/

// Progress is invoked with an integer 0..100 at each percent transition.
type Progress func(percent int)

type progressTracker struct {
	callback Progress
	last     int
	reported bool
}

func newProgressTracker(callback Progress) *progressTracker {
	return &progressTracker{callback: callback, last: -1}
}

// update reports progress given how many of total bytes/samples have
// been processed so far. Safe to call with total == 0 (reports nothing
// until finish).
func (p *progressTracker) update(done, total int64) {
	if p.callback == nil || total <= 0 {
		return
	}

	var percent = int(done * 100 / total)
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}

	if percent != p.last {
		p.last = percent
		p.callback(percent)
		if percent == 100 {
			p.reported = true
		}
	}
}

// finish guarantees a final 100% callback, matching spec §6: "must
// invoke it ... once with 100 at completion."
func (p *progressTracker) finish() {
	if p.callback == nil {
		return
	}

	if !p.reported || p.last != 100 {
		p.callback(100)
	}
}
