package audiomoth

/*------------------------------------------------------------------
 *
 * Purpose:	C3 — the shared resampling and interpolation engines used
 *		by Downsample directly and by the inner sample loops of
 *		Sync and Align (spec §4.4, §4.8, §4.9).
 *
 * Description:	downsampleKernel implements the fixed-ratio "integer
 *		over-sample, linearly interpolate, integer-average down"
 *		pipeline of §4.4. linearInterpolant is the smaller
 *		building block Sync/Align drive themselves with
 *		externally supplied, per-interval sample-rate estimates
 *		rather than a single fixed ratio.
 *
 *---------------------------------------------------------------*/

import "math"

// gcdInt returns the greatest common divisor of a and b (a, b > 0).
func gcdInt(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// ComputeOutputLength applies spec §4.4's output-length formula, shared
// by Downsample and by Sync's resample decision (§4.8).
func ComputeOutputLength(sourceRate, targetRate int, inputSamples int64) int64 {
	var g = gcdInt(int64(sourceRate/1000), int64(targetRate/1000))
	var num = inputSamples * int64(targetRate/1000/int(g))
	var den = int64(sourceRate / 1000 / int(g))
	return num / den
}

// downsampleKernel streams one input sample at a time and emits zero or
// more output samples, implementing spec §4.4's algorithm exactly.
type downsampleKernel struct {
	divider int64   // sampleRateDivider
	step    float64 // sourceRate / rawSampleRate, a rational <= 1

	haveWindow bool
	prevSample int16
	nextSample int16
	inputIndex int64 // index of nextSample in the source stream

	rawTick    int64 // how many raw-rate interpolated samples generated so far
	accumSum   float64
	accumCount int64
}

// newDownsampleKernel builds the kernel without validating its
// arguments. requestedRate must already be one of the eight
// recognised rates and no higher than sourceRate; those checks are the
// caller's responsibility (Downsample), matching spec §4.4's
// precondition list.
func newDownsampleKernel(sourceRate, requestedRate int) *downsampleKernel {
	var divider = int64(math.Ceil(float64(sourceRate) / float64(requestedRate)))
	var rawRate = divider * int64(requestedRate)

	return &downsampleKernel{
		divider: divider,
		step:    float64(sourceRate) / float64(rawRate),
	}
}

// feed processes one more input sample, appending any newly completed
// output samples to out, and returns the extended slice.
func (k *downsampleKernel) feed(sample int16, out []int16) []int16 {
	if !k.haveWindow {
		k.haveWindow = true
		k.prevSample = sample
		k.nextSample = sample
		return out
	}

	k.prevSample = k.nextSample
	k.nextSample = sample
	k.inputIndex++

	for {
		var target = float64(k.rawTick) * k.step
		if target > float64(k.inputIndex) {
			break
		}

		var frac = target - float64(k.inputIndex-1)
		var interp = float64(k.prevSample) + frac*(float64(k.nextSample)-float64(k.prevSample))

		k.accumSum += interp
		k.accumCount++
		k.rawTick++

		if k.accumCount == k.divider {
			out = append(out, clampSample16(k.accumSum/float64(k.divider)))
			k.accumSum = 0
			k.accumCount = 0
		}
	}

	return out
}

// flush emits a final partial average if any samples were accumulated
// but not yet enough to complete a full group. See DESIGN.md's Open
// Question decision #1: an accumulator that exactly fills on the last
// input sample was already flushed inside feed, so this never produces
// a dangling extra sample.
func (k *downsampleKernel) flush(out []int16) []int16 {
	if k.accumCount > 0 {
		out = append(out, clampSample16(k.accumSum/float64(k.accumCount)))
	}
	return out
}

// linearInterpolant is the smaller shared primitive: given a value known
// at two offsets (seconds since some epoch the caller defines), evaluate
// the line between them at any offset. Sync (§4.8) and Align (§4.9) both
// drive this with interval/fix-derived offsets rather than a fixed step.
type linearInterpolant struct {
	prevValue, prevOffset float64
	nextValue, nextOffset float64
}

// valueAt linearly interpolates (or extrapolates) to offset t.
func (li linearInterpolant) valueAt(t float64) float64 {
	if li.nextOffset == li.prevOffset {
		return li.nextValue
	}

	var frac = (t - li.prevOffset) / (li.nextOffset - li.prevOffset)
	return li.prevValue + frac*(li.nextValue-li.prevValue)
}
