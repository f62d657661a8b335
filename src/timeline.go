package cwkey

import (
	"context"
	"fmt"
	"io"
	"time"
)

type EventKind int

const (
	EventKeyDown EventKind = iota
	EventKeyUp
	EventToneOn
	EventToneOff
	EventPTTOn
	EventPTTOff
	EventDelay
)

var eventNames = map[EventKind]string{
	EventKeyDown: "key down",
	EventKeyUp:   "key up",
	EventToneOn:  "tone on",
	EventToneOff: "tone off",
	EventPTTOn:   "ptt on",
	EventPTTOff:  "ptt off",
	EventDelay:   "delay",
}

func (k EventKind) String() string {
	return eventNames[k]
}

type Event struct {
	At   time.Duration // Virtual time since the timeline started.
	Kind EventKind
	Hz   int           // EventToneOn only.
	Len  time.Duration // EventDelay only.
}

/*-------------------------------------------------------------------
 *
 * Name:        Timeline
 *
 * Purpose:    	Stand in for all the hardware with a virtual clock.
 *
 * Description:	Key(), PTT(), the tone generator and the delayer all
 *		record into one event list.  Delays advance the clock
 *		without sleeping.  Used for dry runs and tests.
 *
 *--------------------------------------------------------------------*/

type Timeline struct {
	Now    time.Duration
	Events []Event

	keyDown bool
	pttOn   bool
	toneOn  bool

	KeyDownTime time.Duration // Total time with the key down.
	PTTToggles  int
}

func NewTimeline() *Timeline {
	return new(Timeline)
}

type timelineLine struct {
	tl  *Timeline
	ptt bool
}

func (l timelineLine) Set(on bool) error {
	var tl = l.tl

	if l.ptt {
		if on == tl.pttOn {
			return nil
		}
		tl.pttOn = on
		tl.PTTToggles++
		if on {
			tl.record(Event{At: tl.Now, Kind: EventPTTOn}) //nolint:exhaustruct
		} else {
			tl.record(Event{At: tl.Now, Kind: EventPTTOff}) //nolint:exhaustruct
		}
		return nil
	}

	if on == tl.keyDown {
		return nil
	}
	tl.keyDown = on
	if on {
		tl.record(Event{At: tl.Now, Kind: EventKeyDown}) //nolint:exhaustruct
	} else {
		tl.record(Event{At: tl.Now, Kind: EventKeyUp}) //nolint:exhaustruct
	}
	return nil
}

func (tl *Timeline) Key() Output {
	return timelineLine{tl: tl, ptt: false}
}

func (tl *Timeline) PTT() Output {
	return timelineLine{tl: tl, ptt: true}
}

func (tl *Timeline) Start(hz int) error {
	tl.toneOn = true
	tl.record(Event{At: tl.Now, Kind: EventToneOn, Hz: hz}) //nolint:exhaustruct
	return nil
}

func (tl *Timeline) Stop() error {
	if !tl.toneOn {
		return nil
	}
	tl.toneOn = false
	tl.record(Event{At: tl.Now, Kind: EventToneOff}) //nolint:exhaustruct
	return nil
}

func (tl *Timeline) Delay(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	tl.record(Event{At: tl.Now, Kind: EventDelay, Len: d}) //nolint:exhaustruct
	if tl.keyDown {
		tl.KeyDownTime += d
	}
	tl.Now += d
	return nil
}

func (tl *Timeline) record(e Event) {
	tl.Events = append(tl.Events, e)
}

// Pulses returns the key down durations in order.
func (tl *Timeline) Pulses() []time.Duration {
	var out []time.Duration
	var start time.Duration
	for _, e := range tl.Events {
		switch e.Kind {
		case EventKeyDown:
			start = e.At
		case EventKeyUp:
			out = append(out, e.At-start)
		}
	}
	return out
}

// Gaps returns the key up durations between consecutive pulses.
func (tl *Timeline) Gaps() []time.Duration {
	var out []time.Duration
	var up time.Duration
	var seenUp = false
	for _, e := range tl.Events {
		switch e.Kind {
		case EventKeyUp:
			up = e.At
			seenUp = true
		case EventKeyDown:
			if seenUp {
				out = append(out, e.At-up)
			}
		}
	}
	return out
}

func (tl *Timeline) Reset() {
	*tl = Timeline{} //nolint:exhaustruct
}

// Dump writes one line per event, for --dry-run.
func (tl *Timeline) Dump(w io.Writer) {
	for _, e := range tl.Events {
		switch e.Kind {
		case EventDelay:
			continue
		case EventToneOn:
			fmt.Fprintf(w, "%8d ms  %s %d Hz\n", e.At.Milliseconds(), e.Kind, e.Hz)
		default:
			fmt.Fprintf(w, "%8d ms  %s\n", e.At.Milliseconds(), e.Kind)
		}
	}
	fmt.Fprintf(w, "%8d ms  end\n", tl.Now.Milliseconds())
}
