package cwkey

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const ms = time.Millisecond

func newTestTransmitter(t *testing.T, o Options) (*Transmitter, *Timeline) {
	t.Helper()

	var tl = NewTimeline()
	if o.Key == nil {
		o.Key = tl.Key()
	}
	o.PTT = tl.PTT()
	o.Tone = tl
	o.Delayer = tl

	return NewTransmitter(o), tl
}

func durations(units ...int) []time.Duration {
	var out = make([]time.Duration, len(units))
	for i, u := range units {
		out[i] = time.Duration(u) * 80 * ms
	}
	return out
}

func TestTransmitter_Defaults(t *testing.T) {
	var tx, _ = newTestTransmitter(t, Options{}) //nolint:exhaustruct

	assert.Equal(t, DefaultWPM, tx.Speed())
	assert.Equal(t, DefaultToneHz, tx.Tone())
	assert.Equal(t, 80, tx.Timing().DitMs())
}

func TestTransmitter_SetSpeedOutOfRange(t *testing.T) {
	var tx, _ = newTestTransmitter(t, Options{WPM: 30}) //nolint:exhaustruct

	assert.Equal(t, 40, tx.Timing().DitMs())
	assert.Equal(t, DefaultWPM, tx.SetSpeed(0))
	assert.Equal(t, 80, tx.Timing().DitMs())
	assert.Equal(t, 1200, tx.SetSpeed(1200))
	assert.Equal(t, 1, tx.Timing().DitMs())
	assert.Equal(t, DefaultWPM, tx.SetSpeed(1201))
	assert.Equal(t, 80, tx.Timing().DitMs())
}

func TestTransmitter_ToneZeroKeepsPrevious(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		var tx, _ = newTestTransmitter(t, Options{}) //nolint:exhaustruct
		var f = rapid.IntRange(1, 20000).Draw(rt, "f")

		tx.SetTone(f)
		assert.Equal(rt, f, tx.SetTone(0))
		assert.Equal(rt, f, tx.Tone())
	})
}

// The letter I: two dits, the gap between them, the gap after the
// second, and two more units to make up the letter space.
func TestTransmitter_TwoElementLetter(t *testing.T) {
	var tx, tl = newTestTransmitter(t, Options{}) //nolint:exhaustruct

	require.NoError(t, tx.SendChar(context.Background(), 'I'))

	assert.Equal(t, durations(1, 1), tl.Pulses())
	assert.Equal(t, durations(1), tl.Gaps())
	assert.Equal(t, 160*ms, tl.KeyDownTime)
	assert.Equal(t, 6*80*ms, tl.Now)

	// The next letter starts 3 units after the last key up.
	var lastUp = tl.Events[len(tl.Events)-1]
	for i := len(tl.Events) - 1; i >= 0; i-- {
		if tl.Events[i].Kind == EventKeyUp {
			lastUp = tl.Events[i]
			break
		}
	}
	assert.Equal(t, 3*80*ms, tl.Now-lastUp.At)
}

func TestTransmitter_WordGap(t *testing.T) {
	var tx, tl = newTestTransmitter(t, Options{}) //nolint:exhaustruct

	require.NoError(t, tx.SendChar(context.Background(), ' '))

	assert.Equal(t, 6*80*ms, tl.Now)
	assert.Equal(t, time.Duration(0), tl.KeyDownTime)
	assert.Empty(t, tl.Pulses())
}

func TestTransmitter_SOS(t *testing.T) {
	var tx, tl = newTestTransmitter(t, Options{}) //nolint:exhaustruct

	require.NoError(t, tx.Transmit(context.Background(), "SOS"))

	assert.Equal(t, durations(1, 1, 1, 3, 3, 3, 1, 1, 1), tl.Pulses())
	assert.Equal(t, durations(1, 1, 3, 1, 1, 3, 1, 1), tl.Gaps())

	assert.Equal(t, 2, tl.PTTToggles)
	assert.Equal(t, EventPTTOn, tl.Events[0].Kind)
	assert.Equal(t, EventPTTOff, tl.Events[len(tl.Events)-1].Kind)
	assert.Equal(t, tx.Timing().Duration("SOS"), tl.Now)
	assert.False(t, tx.InSession())
}

func TestTransmitter_ToneFollowsKey(t *testing.T) {
	var tx, tl = newTestTransmitter(t, Options{ToneHz: 650}) //nolint:exhaustruct

	require.NoError(t, tx.Transmit(context.Background(), "ET"))

	var kinds []EventKind
	for _, e := range tl.Events {
		if e.Kind == EventToneOn {
			assert.Equal(t, 650, e.Hz)
		}
		if e.Kind != EventDelay {
			kinds = append(kinds, e.Kind)
		}
	}

	assert.Equal(t, []EventKind{
		EventPTTOn,
		EventKeyDown, EventToneOn, EventKeyUp, EventToneOff,
		EventKeyDown, EventToneOn, EventKeyUp, EventToneOff,
		EventPTTOff,
	}, kinds)
}

func TestTransmitter_ControlCharacterIsNothing(t *testing.T) {
	var tx, tl = newTestTransmitter(t, Options{}) //nolint:exhaustruct

	require.NoError(t, tx.SendChar(context.Background(), 1))
	assert.Empty(t, tl.Events)
	assert.Equal(t, time.Duration(0), tl.Now)

	// Same as leaving it out.
	var with, withTL = newTestTransmitter(t, Options{}) //nolint:exhaustruct
	var without, withoutTL = newTestTransmitter(t, Options{}) //nolint:exhaustruct
	require.NoError(t, with.Transmit(context.Background(), "E\x01E"))
	require.NoError(t, without.Transmit(context.Background(), "EE"))
	assert.Equal(t, withoutTL.Events, withTL.Events)
}

func TestTransmitter_EmptyMessageStillTogglesPTT(t *testing.T) {
	var tx, tl = newTestTransmitter(t, Options{Guard: 300 * ms}) //nolint:exhaustruct

	require.NoError(t, tx.Transmit(context.Background(), ""))

	assert.Equal(t, 2, tl.PTTToggles)
	assert.Equal(t, 300*ms, tl.Now)
}

func TestTransmitter_GuardAndTail(t *testing.T) {
	var tx, tl = newTestTransmitter(t, Options{Guard: 300 * ms, Tail: 100 * ms}) //nolint:exhaustruct

	require.NoError(t, tx.Transmit(context.Background(), "E"))

	var keyDown, pttOff time.Duration
	for _, e := range tl.Events {
		switch e.Kind {
		case EventKeyDown:
			keyDown = e.At
		case EventPTTOff:
			pttOff = e.At
		}
	}

	assert.Equal(t, 300*ms, keyDown)
	assert.Equal(t, 300*ms+4*80*ms+100*ms, pttOff)
}

// speedChanger switches speed the first time the key goes up, which is
// before the gap that closes the first element.
type speedChanger struct {
	Output
	tx   **Transmitter
	done bool
}

func (s *speedChanger) Set(on bool) error {
	var err = s.Output.Set(on)
	if !on && !s.done {
		s.done = true
		(*s.tx).SetSpeed(30)
	}
	return err
}

func TestTransmitter_SpeedChangeTakesEffectNextElement(t *testing.T) {
	var tx *Transmitter
	var tl = NewTimeline()
	tx = NewTransmitter(Options{ //nolint:exhaustruct
		Key:     &speedChanger{Output: tl.Key(), tx: &tx},
		PTT:     tl.PTT(),
		Tone:    tl,
		Delayer: tl,
	})

	require.NoError(t, tx.SendChar(context.Background(), 'S'))

	assert.Equal(t, []time.Duration{80 * ms, 40 * ms, 40 * ms}, tl.Pulses())
	// The first element keeps its own dit for the gap after it.
	assert.Equal(t, []time.Duration{80 * ms, 40 * ms}, tl.Gaps())
}

// cancelAfter cancels a context after n key downs.
type cancelAfter struct {
	Output
	n      int
	cancel context.CancelFunc
}

func (c *cancelAfter) Set(on bool) error {
	if on {
		c.n--
		if c.n == 0 {
			c.cancel()
		}
	}
	return c.Output.Set(on)
}

func TestTransmitter_CancellableStopsEarly(t *testing.T) {
	var ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	var tl = NewTimeline()
	var tx = NewTransmitter(Options{ //nolint:exhaustruct
		Key:         &cancelAfter{Output: tl.Key(), n: 2, cancel: cancel},
		PTT:         tl.PTT(),
		Tone:        tl,
		Delayer:     tl,
		Cancellable: true,
	})

	var err = tx.Transmit(ctx, "SOS")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, tl.Pulses(), 2)
	assert.Equal(t, 2, tl.PTTToggles)
	assert.Equal(t, EventPTTOff, tl.Events[len(tl.Events)-1].Kind)
	assert.False(t, tx.InSession())
}

func TestTransmitter_NotCancellableRunsToCompletion(t *testing.T) {
	var ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	var tl = NewTimeline()
	var tx = NewTransmitter(Options{ //nolint:exhaustruct
		Key:     &cancelAfter{Output: tl.Key(), n: 2, cancel: cancel},
		PTT:     tl.PTT(),
		Tone:    tl,
		Delayer: tl,
	})

	require.NoError(t, tx.Transmit(ctx, "SOS"))
	assert.Len(t, tl.Pulses(), 9)
}

type failingLine struct {
	failOn bool
	sets   []bool
}

var errLine = errors.New("line broke")

func (f *failingLine) Set(on bool) error {
	f.sets = append(f.sets, on)
	if on == f.failOn {
		return errLine
	}
	return nil
}

func TestTransmitter_KeyErrorEndsSession(t *testing.T) {
	var key = &failingLine{failOn: true} //nolint:exhaustruct
	var tx, tl = newTestTransmitter(t, Options{Key: key}) //nolint:exhaustruct

	var err = tx.Transmit(context.Background(), "E")

	assert.ErrorIs(t, err, errLine)
	assert.Equal(t, 2, tl.PTTToggles)
	assert.False(t, key.sets[len(key.sets)-1], "key must be left up")
}

func TestTransmitter_Transmitf(t *testing.T) {
	var tx, tl = newTestTransmitter(t, Options{}) //nolint:exhaustruct

	require.NoError(t, tx.Transmitf(context.Background(), "%d", 5))

	assert.Equal(t, durations(1, 1, 1, 1, 1), tl.Pulses())
	assert.Equal(t, 2, tl.PTTToggles)
}

func TestTransmitter_SinkClosedAfterUse(t *testing.T) {
	var tx, tl = newTestTransmitter(t, Options{}) //nolint:exhaustruct

	var kept io.Writer
	require.NoError(t, tx.WithSink(context.Background(), func(w io.Writer) error {
		kept = w
		var _, err = io.WriteString(w, "E")
		return err
	}))

	var _, err = io.WriteString(kept, "E")
	assert.ErrorIs(t, err, ErrSinkClosed)
	assert.Len(t, tl.Pulses(), 1)
}

// assertKeyedOnlyWithPTT fails if the key ever goes down while PTT is off.
func assertKeyedOnlyWithPTT(t *testing.T, tl *Timeline) {
	t.Helper()

	var ptt bool
	for i, e := range tl.Events {
		switch e.Kind {
		case EventPTTOn:
			ptt = true
		case EventPTTOff:
			ptt = false
		case EventKeyDown:
			assert.True(t, ptt, "event %d: key down at %v with PTT off", i, e.At)
		}
	}
	assert.False(t, ptt, "PTT left on")
}

func TestTransmitter_SessionsNest(t *testing.T) {
	var tx, tl = newTestTransmitter(t, Options{}) //nolint:exhaustruct

	require.NoError(t, tx.BeginSession(context.Background()))
	require.NoError(t, tx.BeginSession(context.Background()))
	require.NoError(t, tx.EndSession())
	assert.True(t, tx.InSession(), "inner EndSession must leave PTT on")
	assert.Equal(t, 1, tl.PTTToggles)

	require.NoError(t, tx.SendChar(context.Background(), 'E'))
	require.NoError(t, tx.EndSession())
	assert.False(t, tx.InSession())

	// Extra calls do nothing.
	require.NoError(t, tx.EndSession())

	assert.Equal(t, 2, tl.PTTToggles)
	assertKeyedOnlyWithPTT(t, tl)
}

func TestTransmitter_TransmitInsideSink(t *testing.T) {
	var tx, tl = newTestTransmitter(t, Options{}) //nolint:exhaustruct

	require.NoError(t, tx.WithSink(context.Background(), func(w io.Writer) error {
		if _, err := io.WriteString(w, "E"); err != nil {
			return err
		}
		if err := tx.Transmit(context.Background(), "T"); err != nil {
			return err
		}
		var _, err = io.WriteString(w, "E")
		return err
	}))

	assert.Equal(t, durations(1, 3, 1), tl.Pulses())
	assert.Equal(t, 2, tl.PTTToggles)
	assert.Equal(t, tx.Timing().Duration("ETE"), tl.Now)
	assertKeyedOnlyWithPTT(t, tl)
}

func TestTransmitter_BeginSessionInsideSink(t *testing.T) {
	var tx, tl = newTestTransmitter(t, Options{}) //nolint:exhaustruct

	require.NoError(t, tx.WithSink(context.Background(), func(w io.Writer) error {
		if err := tx.BeginSession(context.Background()); err != nil {
			return err
		}
		if err := tx.SendChar(context.Background(), 'T'); err != nil {
			return err
		}
		if err := tx.EndSession(); err != nil {
			return err
		}
		var _, err = io.WriteString(w, "E")
		return err
	}))

	assert.Equal(t, durations(3, 1), tl.Pulses())
	assert.Equal(t, 2, tl.PTTToggles)
	assertKeyedOnlyWithPTT(t, tl)
}

func TestTransmitter_DurationMatchesPrediction(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		var wpm = rapid.IntRange(1, 60).Draw(rt, "wpm")
		var msg = string(rapid.SliceOfN(rapid.ByteRange(0, 127), 0, 20).Draw(rt, "msg"))

		var tx, tl = newTestTransmitter(t, Options{WPM: wpm}) //nolint:exhaustruct
		require.NoError(rt, tx.Transmit(context.Background(), msg))

		assert.Equal(rt, tx.Timing().Duration(msg), tl.Now, "%q at %d wpm", msg, wpm)
	})
}
