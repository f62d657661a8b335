package cwkey

/*------------------------------------------------------------------
 *
 * Purpose:	Standalone application to render Morse code to an
 *		audio file, for practice or for checking timing.
 *
 * Inputs:	Text from the command line, or stdin if none.
 *
 * Outputs:	16 bit mono .WAV file.
 *
 * Description:	cw2wav -w 20 -o cq.wav CQ CQ DE W1AW
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

type RenderOptions struct {
	WPM        int
	ToneHz     int
	SampleRate int
	Amplitude  int
	Lead       time.Duration // Silence before the first element.
}

type RenderResult struct {
	Samples  int64
	Duration time.Duration
	WPM      int
}

// RenderWAV writes text as Morse audio to a new file.
func RenderWAV(path string, text string, o RenderOptions) (RenderResult, error) {
	var result RenderResult

	var af, err = CreateAudioFile(path, o.SampleRate)
	if err != nil {
		return result, err
	}

	var r, rerr = NewToneRenderer(af, o.SampleRate, o.Amplitude)
	if rerr != nil {
		af.Close()
		return result, rerr
	}

	var tx = NewTransmitter(Options{ //nolint:exhaustruct
		Tone:    r,
		Delayer: r,
		WPM:     o.WPM,
		ToneHz:  o.ToneHz,
		Guard:   o.Lead,
	})

	if err := tx.Transmit(context.Background(), text); err != nil {
		af.Close()
		return result, err
	}

	if err := af.Close(); err != nil {
		return result, fmt.Errorf("couldn't finish %s: %w", path, err)
	}

	result.Samples = r.Samples()
	result.Duration = time.Duration(result.Samples) * time.Second / time.Duration(o.SampleRate)
	result.WPM = tx.Speed()

	return result, nil
}

func CW2WavMain() {
	var flags = pflag.NewFlagSet("cw2wav", pflag.ExitOnError)

	var output = flags.StringP("output", "o", "cw.wav", "Output file name.")
	var speed = flags.IntP("speed", "w", DefaultWPM, "Speed in words per minute.")
	var tone = flags.IntP("tone", "f", DefaultToneHz, "Tone frequency in Hz.")
	var sampleRate = flags.IntP("sample-rate", "r", DefaultSampleRate, "Audio sample rate, per sec.")
	var amplitude = flags.IntP("amplitude", "a", DefaultAmplitude, "Amplitude, 0 to 100.")
	var leadMS = flags.IntP("lead", "l", 0, "Milliseconds of silence at the start.")
	var version = flags.BoolP("version", "v", false, "Print version and exit.")
	var help = flags.BoolP("help", "h", false, "Display help text.")

	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cw2wav [options] [text ...]\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Text is read from stdin if not on the command line.\n")
		flags.PrintDefaults()
	}

	flags.Parse(os.Args[1:]) //nolint:errcheck // ExitOnError

	if *help {
		flags.Usage()
		os.Exit(0)
	}

	if *version {
		PrintVersion(os.Stdout)
		os.Exit(0)
	}

	var text = strings.Join(flags.Args(), " ")
	if flags.NArg() == 0 {
		var b, err = io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stdin: %s\n", err)
			os.Exit(1)
		}
		text = strings.Join(strings.Fields(string(b)), " ")
	}

	var result, err = RenderWAV(*output, text, RenderOptions{
		WPM:        *speed,
		ToneHz:     *tone,
		SampleRate: *sampleRate,
		Amplitude:  *amplitude,
		Lead:       time.Duration(*leadMS) * time.Millisecond,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d samples, %.3f seconds at %d wpm, to %s\n",
		result.Samples, result.Duration.Seconds(), result.WPM, *output)
}
