package main

/*------------------------------------------------------------------
 *
 * Purpose:   	Keyer daemon.  Other programs send it text and commands
 *		in UDP datagrams, in the style of cwdaemon, or write
 *		lines to a pseudo terminal.
 *
 * Description:	Messages are queued and sent one at a time, each with
 *		its own PTT.  Speed and tone follow the config file when
 *		it changes.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/pflag"

	cwkey "github.com/doismellburning/cwkey/src"
	"github.com/doismellburning/cwkey/src/rig"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "cwkeyd: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags = pflag.NewFlagSet("cwkeyd", pflag.ContinueOnError)

	var configFileName = flags.StringP("config-file", "c", "", "Configuration file name, .yaml or .toml.  Reloaded when it changes.")
	var listen = flags.StringP("listen", "l", "", "UDP address for commands.  Default :6789.")
	var speed = flags.IntP("speed", "w", 0, "Speed in words per minute.  Overrides the config file.")
	var tone = flags.IntP("tone", "f", 0, "Side tone in Hz.  Overrides the config file.")
	var announce = flags.BoolP("announce", "a", false, "Announce the service with DNS-SD.")
	var ptyLink = flags.StringP("pty", "p", "", "Also accept lines on a pseudo terminal, with this symlink.")
	var allowExit = flags.BoolP("allow-exit", "x", false, "Allow the ESC 5 command to stop the daemon.")
	var debug = flags.BoolP("debug", "d", false, "Debug logging, including key and PTT changes.")
	var version = flags.BoolP("version", "v", false, "Print version and exit.")
	var help = flags.BoolP("help", "h", false, "Display help text.")

	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cwkeyd [options]\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Datagrams of plain text are sent.  ESC followed by:\n")
		fmt.Fprintf(os.Stderr, "  0       reset speed and tone\n")
		fmt.Fprintf(os.Stderr, "  2<wpm>  set speed\n")
		fmt.Fprintf(os.Stderr, "  3<hz>   set tone\n")
		fmt.Fprintf(os.Stderr, "  4       abort\n")
		fmt.Fprintf(os.Stderr, "  5       exit, if allowed\n")
		fmt.Fprintf(os.Stderr, "\n")
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
		cwkey.PrintVersion(os.Stdout)
		return nil
	}

	var overrides = func(cfg *cwkey.Config) error {
		if *speed != 0 {
			cfg.Speed = *speed
		}
		if *tone != 0 {
			cfg.Tone = *tone
		}
		if *listen != "" {
			cfg.Server.Listen = *listen
		}
		if *announce {
			cfg.Server.Announce = true
		}
		if *ptyLink != "" {
			cfg.Server.PTY = *ptyLink
		}
		if *allowExit {
			cfg.Server.AllowExit = true
		}
		if *debug {
			cfg.LogLevel = "debug"
		}
		return cfg.Validate()
	}

	var cfg = cwkey.DefaultConfig()
	if *configFileName != "" {
		var err error
		cfg, err = cwkey.LoadConfig(*configFileName)
		if err != nil {
			return err
		}
	}
	if err := overrides(&cfg); err != nil {
		return err
	}
	if err := cwkey.SetLogLevel(cfg.LogLevel); err != nil {
		return err
	}

	var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var r, err = rig.Open(cfg, nil)
	if err != nil {
		return err
	}
	defer r.Close()

	var q = cwkey.NewQueue(r.Tx, cfg.Server.QueueDepth)
	defer q.Close()

	q.OnSent = func(msg string, err error) {
		if err != nil {
			cwkey.Logger().Warn("not sent", "text", msg, "err", err)
		}
	}

	var srv = cwkey.NewServer(q, cwkey.ServerOptions{
		DefaultWPM:  cfg.Speed,
		DefaultTone: cfg.Tone,
		AllowExit:   cfg.Server.AllowExit,
	})

	if *configFileName != "" {
		var w, werr = cwkey.NewConfigWatcher(*configFileName, 0, func(c cwkey.Config) {
			if err := overrides(&c); err != nil {
				cwkey.Logger().Warn("config not applied", "err", err)
				return
			}
			applyConfig(q, srv, c)
		})
		if werr != nil {
			cwkey.Logger().Warn("config file changes will be ignored", "err", werr)
		} else {
			go w.Run(ctx)
		}
	}

	if cfg.Server.Announce {
		var port, perr = listenPort(cfg.Server.Listen)
		if perr != nil {
			return perr
		}
		if err := cwkey.DNSSDAnnounce(ctx, cfg.Server.DNSSDName, port); err != nil {
			cwkey.Logger().Error("not announced", "err", err)
		}
	}

	var exit = make(chan error, 2)

	if cfg.Server.PTY != "" {
		var p, perr = cwkey.OpenPTY(cfg.Server.PTY)
		if perr != nil {
			return perr
		}
		defer p.Close()

		go func() { exit <- p.Serve(ctx, srv) }()
	}

	go func() { exit <- srv.ListenAndServe(ctx, cfg.Server.Listen) }()

	select {
	case <-ctx.Done():
		shutdown(stop, q)
		return nil
	case err := <-exit:
		stop()
		if errors.Is(err, cwkey.ErrExitRequested) {
			return nil
		}
		return err
	}
}

// shutdown restores the default signal handling, so a second interrupt
// kills the process, and drops whatever is still queued.
func shutdown(stop context.CancelFunc, q *cwkey.Queue) {
	stop()
	q.Abort()
	q.Close()
}

// applyConfig takes the speed and tone from a reloaded config file.
// The lines and side tone stay as they were opened.
func applyConfig(q *cwkey.Queue, srv *cwkey.Server, cfg cwkey.Config) {
	q.SetSpeed(cfg.Speed)
	q.SetTone(cfg.Tone)
	srv.SetDefaults(cfg.Speed, cfg.Tone)

	if err := cwkey.SetLogLevel(cfg.LogLevel); err != nil {
		cwkey.Logger().Warn("bad log level", "err", err)
	}
}

func listenPort(addr string) (int, error) {
	var _, portStr, err = net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("listen address %q: %w", addr, err)
	}
	return strconv.Atoi(portStr)
}
