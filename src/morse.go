package cwkey

/*------------------------------------------------------------------
 *
 * Purpose:   	Key a transmitter with Morse code.
 *
 * Description:	A Transmitter turns characters into key down / key up
 *		periods on an output line, with a side tone for the
 *		same periods, and brackets a complete message with PTT.
 *
 *		    PTT on, guard delay
 *		    for each character:
 *			for each element:  key + tone for 1 or 3 units, quiet 1
 *			quiet 2 more to make the 3 unit letter space
 *			(space character:  quiet 6)
 *		    optional tail delay, PTT off
 *
 *		Everything blocks the calling goroutine.  By default a
 *		message always runs to completion.  With Cancellable set,
 *		the context is checked before every element and gap and
 *		passed to the delays.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// Output is a digital output line such as the key or PTT.
type Output interface {
	Set(on bool) error
}

// ToneGenerator produces the side tone.
type ToneGenerator interface {
	Start(hz int) error
	Stop() error
}

// Delayer holds the calling goroutine for d.  It may return early with
// ctx.Err() if ctx is cancelled.
type Delayer interface {
	Delay(ctx context.Context, d time.Duration) error
}

type NullLine struct{}

func (NullLine) Set(bool) error { return nil }
func (NullLine) Close() error   { return nil }

type NullTone struct{}

func (NullTone) Start(int) error { return nil }
func (NullTone) Stop() error     { return nil }

// SleepDelayer waits in real time.
type SleepDelayer struct{}

func (SleepDelayer) Delay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	var timer = time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Options struct {
	Key     Output
	PTT     Output
	Tone    ToneGenerator
	Delayer Delayer

	WPM    int
	ToneHz int

	Guard time.Duration // PTT on to first element.
	Tail  time.Duration // Last gap to PTT off.

	Cancellable bool

	// strftime format for the transmit log line.  Empty for none.
	TimestampFormat string
}

type Transmitter struct {
	key   Output
	ptt   Output
	tone  ToneGenerator
	delay Delayer

	guard, tail     time.Duration
	cancellable     bool
	timestampFormat string

	mu     sync.Mutex // Protects timing and toneHz.
	timing Timing
	toneHz int

	depth     int  // Open BeginSession calls.
	inSession bool // PTT is on.
	units     int  // Counted during a session for the consistency check.
	sent      []byte
}

func NewTransmitter(o Options) *Transmitter {
	var t = &Transmitter{ //nolint:exhaustruct
		key:             o.Key,
		ptt:             o.PTT,
		tone:            o.Tone,
		delay:           o.Delayer,
		guard:           o.Guard,
		tail:            o.Tail,
		cancellable:     o.Cancellable,
		timestampFormat: o.TimestampFormat,
		timing:          NewTiming(o.WPM),
		toneHz:          DefaultToneHz,
	}

	if t.key == nil {
		t.key = NullLine{}
	}
	if t.ptt == nil {
		t.ptt = NullLine{}
	}
	if t.tone == nil {
		t.tone = NullTone{}
	}
	if t.delay == nil {
		t.delay = SleepDelayer{}
	}

	t.SetTone(o.ToneHz)

	return t
}

// SetSpeed changes speed from the next element on.  Returns the speed in
// effect, which is DefaultWPM for anything out of range.
func (t *Transmitter) SetSpeed(wpm int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timing.SetSpeed(wpm)
}

func (t *Transmitter) Speed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timing.WPM()
}

func (t *Transmitter) Timing() Timing {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timing
}

// SetTone changes the side tone frequency.  0 (or negative) leaves it
// alone.  Returns the frequency in effect.
func (t *Transmitter) SetTone(hz int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if hz > 0 {
		t.toneHz = hz
	}
	return t.toneHz
}

func (t *Transmitter) Tone() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.toneHz
}

func (t *Transmitter) InSession() bool {
	return t.depth > 0
}

func (t *Transmitter) effective(ctx context.Context) context.Context {
	if !t.cancellable || ctx == nil {
		return context.Background()
	}
	return ctx
}

func (t *Transmitter) quiet(ctx context.Context, units int) error {
	return t.gap(ctx, units, t.Timing().Dit())
}

// gap is quiet at a given dit length.
func (t *Transmitter) gap(ctx context.Context, units int, dit time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.units += units
	return t.delay.Delay(ctx, time.Duration(units)*dit)
}

/*-------------------------------------------------------------------
 *
 * Name:        BeginSession
 *
 * Purpose:    	Turn on PTT and wait for the transmitter to settle.
 *
 * Description:	Sessions nest.  Only the outermost one raises PTT, and
 *		PTT stays on until the matching outermost EndSession.
 *		Every BeginSession must be followed by EndSession, even
 *		when sending fails part way.
 *
 *--------------------------------------------------------------------*/

func (t *Transmitter) BeginSession(ctx context.Context) error {
	t.depth++
	if t.depth > 1 {
		return nil
	}

	logger.Debug("ptt", "on", true)
	if err := t.ptt.Set(true); err != nil {
		return fmt.Errorf("ptt on: %w", err)
	}

	t.inSession = true
	t.units = 0
	t.sent = t.sent[:0]

	return t.delay.Delay(t.effective(ctx), t.guard)
}

// EndSession closes the session opened by the matching BeginSession.
// Closing the outermost one makes sure the key and tone are off, waits
// for the tail time if any, and turns off PTT.  Extra calls do nothing.
func (t *Transmitter) EndSession() error {
	if t.depth == 0 {
		return nil
	}
	t.depth--
	if t.depth > 0 || !t.inSession {
		return nil
	}
	t.inSession = false

	var errs = []error{
		t.key.Set(false),
		t.tone.Stop(),
		t.delay.Delay(context.Background(), t.tail),
	}

	logger.Debug("ptt", "on", false)
	if err := t.ptt.Set(false); err != nil {
		errs = append(errs, fmt.Errorf("ptt off: %w", err))
	}

	return errors.Join(errs...)
}

/*-------------------------------------------------------------------
 *
 * Name:        SendElement
 *
 * Purpose:    	Key down for one dit or dah, with side tone, then
 *		key up for one dit.
 *
 *--------------------------------------------------------------------*/

func (t *Transmitter) SendElement(ctx context.Context, e Element) error {
	ctx = t.effective(ctx)

	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	var timing, hz = t.timing, t.toneHz
	t.mu.Unlock()

	var on = timing.Dit()
	if e == Dah {
		on = timing.Dah()
	}

	if err := t.key.Set(true); err != nil {
		return fmt.Errorf("key down: %w", err)
	}

	var toneErr = t.tone.Start(hz)
	var holdErr error
	if toneErr == nil {
		holdErr = t.delay.Delay(ctx, on)
	}

	var offErr = errors.Join(t.key.Set(false), t.tone.Stop())

	if err := errors.Join(toneErr, holdErr, offErr); err != nil {
		return err
	}

	t.units += e.Units()

	return t.gap(ctx, elementGapUnits, timing.Dit())
}

/*-------------------------------------------------------------------
 *
 * Name:        SendChar
 *
 * Purpose:    	Send one character followed by the letter space.
 *
 * Description:	A space is 6 units of quiet.  Characters missing from
 *		the table are skipped and take no time at all.
 *
 *--------------------------------------------------------------------*/

func (t *Transmitter) SendChar(ctx context.Context, ch byte) error {
	ctx = t.effective(ctx)

	var sym = Lookup(ch)

	switch sym.Kind {
	case WordSpace:
		if err := t.quiet(ctx, wordGapUnits); err != nil {
			return err
		}
		t.record(ch)
		return nil
	case Unsupported:
		return nil
	}

	for i := 0; i < sym.Len(); i++ {
		if err := t.SendElement(ctx, sym.At(i)); err != nil {
			return err
		}
	}

	if err := t.quiet(ctx, letterGapUnits-elementGapUnits); err != nil {
		return err
	}
	t.record(ch)
	return nil
}

func (t *Transmitter) record(ch byte) {
	if t.inSession {
		t.sent = append(t.sent, ch)
	}
}

func (t *Transmitter) SendString(ctx context.Context, str string) error {
	for i := 0; i < len(str); i++ {
		if err := t.SendChar(ctx, str[i]); err != nil {
			return err
		}
	}
	return nil
}

/*-------------------------------------------------------------------
 *
 * Name:        Transmit
 *
 * Purpose:    	Send a complete message, PTT on thru PTT off.
 *
 * Returns:	nil when the whole message went out.
 *		ctx.Err() if cancelled (Cancellable only).
 *		Any error from the output lines or tone generator.
 *
 *		PTT, key and tone are always left off.
 *
 *--------------------------------------------------------------------*/

func (t *Transmitter) Transmit(ctx context.Context, str string) error {
	return t.WithSink(ctx, func(w io.Writer) error {
		var _, werr = io.WriteString(w, str)
		return werr
	})
}

// Transmitf formats like fmt.Printf straight into the transmitter.
func (t *Transmitter) Transmitf(ctx context.Context, format string, args ...any) error {
	return t.WithSink(ctx, func(w io.Writer) error {
		var _, werr = fmt.Fprintf(w, format, args...)
		return werr
	})
}

/*-------------------------------------------------------------------
 *
 * Name:        WithSink
 *
 * Purpose:    	Run fn with a writer whose characters are keyed
 *		as they are written, all in one PTT session.
 *
 * Description:	The writer is only valid while fn runs.  The session
 *		is ended when fn returns, whatever happened.  Called
 *		while a session is open, it joins that session.
 *
 *--------------------------------------------------------------------*/

func (t *Transmitter) WithSink(ctx context.Context, fn func(w io.Writer) error) (err error) {
	var outer = t.depth == 0
	if err := t.BeginSession(ctx); err != nil {
		return errors.Join(err, t.EndSession())
	}

	var ts = timestampPrefix(t.timestampFormat, time.Now())
	var sink = &charSink{t: t, ctx: ctx} //nolint:exhaustruct

	defer func() {
		sink.done = true
		var units, sent = t.units, string(t.sent)
		err = errors.Join(err, t.EndSession())

		logger.Infof("[morse%s] %q", ts, sink.text)
		logger.Debug("morse", "code", Encode(string(sink.text)))

		if err == nil && outer {
			var expected = t.Timing().Units(sent)
			if units != expected {
				logger.Warn("morse: internal error, inconsistent length", "counted", units, "calculated", expected)
			}
		}
	}()

	if err := fn(sink); err != nil {
		return err
	}

	return sink.err
}

type charSink struct {
	t    *Transmitter
	ctx  context.Context
	done bool
	err  error
	text []byte
}

var ErrSinkClosed = errors.New("morse sink used after its transmission ended")

func (s *charSink) Write(p []byte) (int, error) {
	if s.done {
		return 0, ErrSinkClosed
	}
	if s.err != nil {
		return 0, s.err
	}

	for i, c := range p {
		if err := s.t.SendChar(s.ctx, c); err != nil {
			s.err = err
			return i, err
		}
		s.text = append(s.text, c)
	}

	return len(p), nil
}
