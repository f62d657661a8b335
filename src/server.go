package cwkey

/*------------------------------------------------------------------
 *
 * Purpose:   	Accept text and commands from other programs over UDP.
 *
 * Description:	This is the same simple protocol as cwdaemon so that
 *		logging programs which support it can drive us.
 *
 *		A datagram of plain text is queued for sending.
 *
 *		A datagram starting with ESC (0x1b) is a command:
 *
 *			ESC 0		Reset speed and tone to configured values.
 *			ESC 2<wpm>	Set speed.
 *			ESC 3<hz>	Set side tone.  0 is ignored.
 *			ESC 4		Abort current message and flush queue.
 *			ESC 5		Exit the daemon, if allowed.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
)

const DefaultServerPort = 6789

const escape = 0x1b

type CommandKind int

const (
	CmdText CommandKind = iota
	CmdReset
	CmdSpeed
	CmdTone
	CmdAbort
	CmdExit
)

var commandNames = map[CommandKind]string{
	CmdText:  "text",
	CmdReset: "reset",
	CmdSpeed: "speed",
	CmdTone:  "tone",
	CmdAbort: "abort",
	CmdExit:  "exit",
}

func (k CommandKind) String() string {
	return commandNames[k]
}

type Command struct {
	Kind  CommandKind
	Text  string // CmdText
	Value int    // CmdSpeed, CmdTone
}

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrExitRequested  = errors.New("exit requested")
)

/*-------------------------------------------------------------------
 *
 * Name:        ParseDatagram
 *
 * Purpose:     Decode one UDP datagram.
 *
 * Description:	Trailing CR / LF are removed from text since some
 *		clients send a line at a time.
 *
 *--------------------------------------------------------------------*/

func ParseDatagram(b []byte) (Command, error) {
	if len(b) == 0 || b[0] != escape {
		return Command{Kind: CmdText, Text: strings.TrimRight(string(b), "\r\n")}, nil //nolint:exhaustruct
	}

	if len(b) < 2 {
		return Command{}, fmt.Errorf("%w: ESC alone", ErrUnknownCommand) //nolint:exhaustruct
	}

	var arg = strings.TrimSpace(string(b[2:]))

	switch b[1] {
	case '0':
		return Command{Kind: CmdReset}, nil //nolint:exhaustruct
	case '2', '3':
		var n, err = strconv.Atoi(arg)
		if err != nil {
			return Command{}, fmt.Errorf("bad number %q for ESC %c: %w", arg, b[1], err) //nolint:exhaustruct
		}
		if b[1] == '2' {
			return Command{Kind: CmdSpeed, Value: n}, nil //nolint:exhaustruct
		}
		return Command{Kind: CmdTone, Value: n}, nil //nolint:exhaustruct
	case '4':
		return Command{Kind: CmdAbort}, nil //nolint:exhaustruct
	case '5':
		return Command{Kind: CmdExit}, nil //nolint:exhaustruct
	}

	return Command{}, fmt.Errorf("%w: ESC %q", ErrUnknownCommand, b[1]) //nolint:exhaustruct
}

type Server struct {
	q *Queue

	mu          sync.Mutex // Protects the defaults.
	defaultWPM  int
	defaultTone int
	allowExit   bool
}

type ServerOptions struct {
	// Values for ESC 0.
	DefaultWPM  int
	DefaultTone int

	AllowExit bool
}

func NewServer(q *Queue, o ServerOptions) *Server {
	var s = &Server{ //nolint:exhaustruct
		q:           q,
		defaultWPM:  o.DefaultWPM,
		defaultTone: o.DefaultTone,
		allowExit:   o.AllowExit,
	}
	if s.defaultWPM == 0 {
		s.defaultWPM = DefaultWPM
	}
	if s.defaultTone == 0 {
		s.defaultTone = DefaultToneHz
	}
	return s
}

// SetDefaults changes what ESC 0 goes back to, e.g. after the
// configuration file is reloaded.
func (s *Server) SetDefaults(wpm, hz int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultWPM = wpm
	s.defaultTone = hz
}

// Handle carries out one command.  Returns ErrExitRequested for an
// allowed ESC 5.
func (s *Server) Handle(cmd Command) error {
	switch cmd.Kind {
	case CmdText:
		if cmd.Text == "" {
			return nil
		}
		return s.q.Send(cmd.Text)
	case CmdReset:
		s.mu.Lock()
		var wpm, hz = s.defaultWPM, s.defaultTone
		s.mu.Unlock()
		s.q.SetSpeed(wpm)
		s.q.SetTone(hz)
	case CmdSpeed:
		var got = s.q.SetSpeed(cmd.Value)
		if got != cmd.Value {
			logger.Warn("speed out of range, using default", "requested", cmd.Value, "wpm", got)
		}
	case CmdTone:
		s.q.SetTone(cmd.Value)
	case CmdAbort:
		s.q.Abort()
	case CmdExit:
		if !s.allowExit {
			logger.Warn("exit command ignored")
			return nil
		}
		return ErrExitRequested
	default:
		return ErrUnknownCommand
	}
	return nil
}

/*-------------------------------------------------------------------
 *
 * Name:        Serve
 *
 * Purpose:     Read datagrams until ctx is done or an exit command.
 *
 * Returns:	nil when ctx is done.
 *		ErrExitRequested for ESC 5, when allowed.
 *		Otherwise the read error.
 *
 *--------------------------------------------------------------------*/

func (s *Server) Serve(ctx context.Context, conn net.PacketConn) error {
	var stop = context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var buf = make([]byte, 2048)

	for {
		var n, addr, err = conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var cmd, perr = ParseDatagram(buf[:n])
		if perr != nil {
			logger.Warn("bad datagram", "from", addr, "err", perr)
			continue
		}

		logger.Debug("command", "from", addr, "kind", cmd.Kind, "text", cmd.Text, "value", cmd.Value)

		if herr := s.Handle(cmd); herr != nil {
			if errors.Is(herr, ErrExitRequested) {
				logger.Info("exit requested", "from", addr)
				return herr
			}
			logger.Warn("command failed", "from", addr, "kind", cmd.Kind, "err", herr)
		}
	}
}

// ListenAndServe opens a UDP socket on addr, e.g. ":6789".
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	var conn, err = lc.ListenPacket(ctx, "udp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	defer conn.Close()

	logger.Info("ready for commands", "addr", conn.LocalAddr())

	return s.Serve(ctx, conn)
}
