package cwkey

/*------------------------------------------------------------------
 *
 * Purpose:   	Generate audio samples for the side tone.
 *
 * Description:	ToneRenderer is a ToneGenerator and a Delayer in one.
 *		Instead of waiting in real time, each delay produces
 *		the corresponding number of samples, sine wave while
 *		the tone is on and silence while it is off.
 *
 *		Use it with a NullLine key to turn a Transmitter into
 *		an audio file generator, or as the source for a live
 *		sound card stream.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"math"
	"time"
)

const ticksPerCycle = 256.0 * 256.0 * 256.0 * 256.0

// SampleSink receives 16 bit mono samples.
type SampleSink interface {
	PutSample(sam int16) error
}

type ToneRenderer struct {
	sink          SampleSink
	samplesPerSec int
	sineTable     [256]int16

	on    bool
	step  uint32 // Phase advance per sample.
	phase uint32 // Upper bits index the sine table.

	// Total of all delays.  Sample counts come from this so
	// rounding does not accumulate over a long message.
	elapsed time.Duration

	samples int64
}

/*------------------------------------------------------------------
 *
 * Name:        NewToneRenderer
 *
 * Inputs:      samplesPerSec	- e.g. 44100.
 *
 *		amp		- Signal amplitude on scale of 0 .. 100.
 *				  100 will produce maximum amplitude of +-32k samples.
 *
 *----------------------------------------------------------------*/

func NewToneRenderer(sink SampleSink, samplesPerSec int, amp int) (*ToneRenderer, error) {
	if samplesPerSec <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", samplesPerSec)
	}
	if amp < 0 || amp > 100 {
		return nil, fmt.Errorf("amplitude %d must be in range 0 to 100", amp)
	}

	var r = &ToneRenderer{sink: sink, samplesPerSec: samplesPerSec} //nolint:exhaustruct

	for j := range r.sineTable {
		var a = (float64(j) / 256.0) * (2 * math.Pi)
		r.sineTable[j] = int16(math.Sin(a) * 32767.0 * float64(amp) / 100.0)
	}

	return r, nil
}

// Start turns the tone on.  Frequencies at or above half the sample
// rate cannot be rendered and are brought down to just below it.
func (r *ToneRenderer) Start(hz int) error {
	var limit = (r.samplesPerSec - 1) / 2
	if hz > limit || hz < 0 {
		var clamped = max(0, min(hz, limit))
		logger.Warn("tone frequency out of range for sample rate", "hz", hz, "rate", r.samplesPerSec, "using", clamped)
		hz = clamped
	}

	r.on = true
	r.step = uint32((float64(hz)*ticksPerCycle)/float64(r.samplesPerSec) + 0.5)
	return nil
}

func (r *ToneRenderer) Stop() error {
	r.on = false
	r.phase = 0
	return nil
}

// Delay writes d worth of samples.  It does not wait.
func (r *ToneRenderer) Delay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	r.elapsed += d
	var target = int64(r.elapsed) * int64(r.samplesPerSec) / int64(time.Second)
	var n = target - r.samples

	for j := int64(0); j < n; j++ {
		if j%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		var sam int16
		if r.on {
			r.phase += r.step
			sam = r.sineTable[(r.phase>>24)&0xff]
		}

		if err := r.sink.PutSample(sam); err != nil {
			return err
		}
		r.samples++
	}

	return nil
}

// Samples is the number written so far.
func (r *ToneRenderer) Samples() int64 {
	return r.samples
}
