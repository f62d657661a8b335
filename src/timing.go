package cwkey

/*------------------------------------------------------------------
 *
 * Purpose:   	Timing profile derived from speed in words per minute.
 *
 * Description:	The standard word "PARIS" is 50 time units long so
 *		one unit (a dit) is 1200 / wpm milliseconds.
 *
 *		All other durations are multiples of the dit:
 *
 *			dah			3
 *			gap after each element	1
 *			extra after a letter	2	(3 total)
 *			space character		6
 *
 *---------------------------------------------------------------*/

import (
	"time"
)

const (
	DefaultWPM    = 15
	MaxWPM        = 1200
	DefaultToneHz = 800
)

const (
	elementGapUnits = 1
	letterGapUnits  = 3
	wordGapUnits    = 6
)

// Timing is the dit and dah durations for one speed.
// The zero value is not useful; use NewTiming.
type Timing struct {
	wpm   int
	ditMs int
}

func NewTiming(wpm int) Timing {
	var t Timing
	t.SetSpeed(wpm)
	return t
}

// SetSpeed recomputes the profile.  Anything outside 1 .. 1200 reverts
// to DefaultWPM.  Returns the speed actually in effect.
func (t *Timing) SetSpeed(wpm int) int {
	if wpm <= 0 || wpm > MaxWPM {
		wpm = DefaultWPM
	}
	t.wpm = wpm
	t.ditMs = 1200 / wpm
	return wpm
}

func (t Timing) WPM() int {
	return t.wpm
}

func (t Timing) DitMs() int {
	return t.ditMs
}

func (t Timing) DahMs() int {
	return 3 * t.ditMs
}

func (t Timing) Dit() time.Duration {
	return time.Duration(t.ditMs) * time.Millisecond
}

func (t Timing) Dah() time.Duration {
	return time.Duration(t.DahMs()) * time.Millisecond
}

// UnitsToDuration converts a count of dits to time at this speed.
func (t Timing) UnitsToDuration(units int) time.Duration {
	return time.Duration(units*t.ditMs) * time.Millisecond
}

/*-------------------------------------------------------------------
 *
 * Name:        Units
 *
 * Purpose:    	Find number of time units for a string of characters.
 *
 * Returns:	4 for E		(1 + 1 + 2)
 *		6 for T		(3 + 1 + 2)
 *		14 for E E	(4 + 6 + 4)
 *		0 for characters not in the table.
 *
 * Description:	This counts everything the transmitter holds for,
 *		key down and key up, not including the PTT guard
 *		or tail delays.
 *
 *--------------------------------------------------------------------*/

func (t Timing) Units(str string) int {
	var units = 0
	for i := 0; i < len(str); i++ {
		units += Lookup(str[i]).Units()
	}
	return units
}

// Duration is Units converted to time.
func (t Timing) Duration(str string) time.Duration {
	return t.UnitsToDuration(t.Units(str))
}
