package sidetone

import (
	"fmt"
	"math"
	"sync"
)

// Ramp time for the tone to come up or go down.
const rampSeconds = 0.005

// oscillator is shared between the keying goroutine, which calls Start
// and Stop, and the sound card callback, which calls fill.
type oscillator struct {
	mu sync.Mutex

	sampleRate float64
	amp        float32

	on    bool
	step  float64 // Radians per sample.
	phase float64

	gain     float32 // 0 .. 1, moves toward on or off.
	gainStep float32
}

func newOscillator(sampleRate int, amp int) (*oscillator, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if amp < 0 || amp > 100 {
		return nil, fmt.Errorf("amplitude %d must be in range 0 to 100", amp)
	}

	return &oscillator{ //nolint:exhaustruct
		sampleRate: float64(sampleRate),
		amp:        float32(amp) / 100,
		gainStep:   float32(1 / (rampSeconds * float64(sampleRate))),
	}, nil
}

func (o *oscillator) Start(hz int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.on = true
	o.step = 2 * math.Pi * float64(hz) / o.sampleRate
	return nil
}

func (o *oscillator) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.on = false
	return nil
}

func (o *oscillator) fill(out []float32) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i := range out {
		if o.on {
			o.gain = min(1, o.gain+o.gainStep)
		} else {
			o.gain = max(0, o.gain-o.gainStep)
		}

		if o.gain == 0 {
			o.phase = 0
			out[i] = 0
			continue
		}

		out[i] = o.amp * o.gain * float32(math.Sin(o.phase))
		o.phase = math.Mod(o.phase+o.step, 2*math.Pi)
	}
}
