package main

/*------------------------------------------------------------------
 *
 * Purpose:   	Send Morse code from the command line.
 *
 * Inputs:	Text on the command line, one message.
 *		Otherwise each line of stdin is a message.
 *
 *		--interactive	Key what is typed, as it is typed.
 *		--script	Run a Lua script.
 *		--pty		Accept text on a pseudo terminal.
 *		--dry-run	Print the timing instead of keying anything.
 *
 *---------------------------------------------------------------*/

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	cwkey "github.com/doismellburning/cwkey/src"
	"github.com/doismellburning/cwkey/src/rig"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "cwkey: %s\n", err)
		os.Exit(1)
	}
}

// Used by run.  Tests replace it.
var openRig = rig.Open

func run(args []string, stdin *os.File, stdout io.Writer) error {
	var flags = pflag.NewFlagSet("cwkey", pflag.ContinueOnError)

	var configFileName = flags.StringP("config-file", "c", "", "Configuration file name, .yaml or .toml.")
	var speed = flags.IntP("speed", "w", 0, "Speed in words per minute.  Overrides the config file.")
	var tone = flags.IntP("tone", "f", 0, "Side tone in Hz.  Overrides the config file.")
	var timestampFormat = flags.StringP("timestamp-format", "T", "", "Precede logged transmissions with 'strftime' format time stamp.")
	var dryRun = flags.BoolP("dry-run", "n", false, "Print key, tone and PTT events with times instead of using hardware.")
	var interactive = flags.BoolP("interactive", "i", false, "Key characters as they are typed.  Enter ends the transmission.")
	var script = flags.StringP("script", "s", "", "Run a Lua script.")
	var ptyLink = flags.StringP("pty", "p", "", "Create a pseudo terminal, with this symlink, and send lines written to it.")
	var debug = flags.BoolP("debug", "d", false, "Debug logging, including key and PTT changes.")
	var version = flags.BoolP("version", "v", false, "Print version and exit.")
	var help = flags.BoolP("help", "h", false, "Display help text.")

	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cwkey [options] [text ...]\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Without text, each line from stdin is sent as a message.\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return err
	}

	if *help {
		flags.Usage()
		return nil
	}

	if *version {
		cwkey.PrintVersion(stdout)
		return nil
	}

	var cfg = cwkey.DefaultConfig()
	if *configFileName != "" {
		var err error
		cfg, err = cwkey.LoadConfig(*configFileName)
		if err != nil {
			return err
		}
	}

	if *speed != 0 {
		cfg.Speed = *speed
	}
	if *tone != 0 {
		cfg.Tone = *tone
	}
	if *timestampFormat != "" {
		cfg.TimestampFormat = *timestampFormat
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cwkey.SetLogLevel(cfg.LogLevel); err != nil {
		return err
	}

	var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tx *cwkey.Transmitter
	var timeline *cwkey.Timeline

	if *dryRun {
		timeline = cwkey.NewTimeline()
		var o = cfg.TransmitterOptions()
		o.Key = timeline.Key()
		o.PTT = timeline.PTT()
		o.Tone = timeline
		o.Delayer = timeline
		tx = cwkey.NewTransmitter(o)
	} else {
		var r, err = openRig(cfg, nil)
		if err != nil {
			return err
		}
		defer r.Close()
		tx = r.Tx
	}

	var err error

	switch {
	case *script != "":
		err = cwkey.RunScript(ctx, tx, stdout, *script)
	case *interactive:
		err = interactiveKeyer(ctx, tx, stdin, stdout)
	case *ptyLink != "":
		err = servePTY(ctx, tx, cfg, *ptyLink)
	case flags.NArg() > 0:
		err = tx.Transmit(ctx, strings.Join(flags.Args(), " "))
	default:
		err = sendLines(ctx, tx, stdin)
	}

	if timeline != nil {
		if flags.NArg() > 0 {
			fmt.Fprintln(stdout, cwkey.Encode(strings.Join(flags.Args(), " ")))
		}
		timeline.Dump(stdout)
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// sendLines sends each non-blank line as its own transmission.
func sendLines(ctx context.Context, tx *cwkey.Transmitter, r io.Reader) error {
	var scanner = bufio.NewScanner(r)

	for scanner.Scan() {
		var line = strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := tx.Transmit(ctx, line); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return scanner.Err()
}

func interactiveKeyer(ctx context.Context, tx *cwkey.Transmitter, stdin *os.File, stdout io.Writer) error {
	var fd = int(stdin.Fd()) //nolint:gosec
	if !term.IsTerminal(fd) {
		return errors.New("--interactive needs a terminal")
	}

	var state, err = term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, state) //nolint:errcheck

	fmt.Fprintf(stdout, "Type to send.  Enter ends the transmission, control-D or control-C to quit.\r\n")

	return keyboard(ctx, tx, stdin, stdout)
}

func servePTY(ctx context.Context, tx *cwkey.Transmitter, cfg cwkey.Config, link string) error {
	var p, err = cwkey.OpenPTY(link)
	if err != nil {
		return err
	}
	defer p.Close()

	var q = cwkey.NewQueue(tx, cfg.Server.QueueDepth)
	defer q.Close()

	var srv = cwkey.NewServer(q, cwkey.ServerOptions{
		DefaultWPM:  cfg.Speed,
		DefaultTone: cfg.Tone,
		AllowExit:   true,
	})

	fmt.Fprintf(os.Stderr, "Virtual keyer is available on %s\n", p.Name())

	err = p.Serve(ctx, srv)
	if errors.Is(err, cwkey.ErrExitRequested) {
		return nil
	}
	return err
}
