package cwkey

/*------------------------------------------------------------------
 *
 * Purpose:   	Accept text and commands on a pseudo terminal, for
 *		programs which would rather write to a serial port
 *		than a UDP socket.
 *
 * Description:	Each line is handled like a UDP datagram:  plain text
 *		is queued for sending and a line starting with ESC is
 *		a command.
 *
 *		The device name is not the same every time.  This is
 *		inconvenient for the application because it might be
 *		necessary to change the device name in its configuration.
 *		We create a symlink, /tmp/cwkey by default, so the
 *		configuration does not need to change.
 *
 *---------------------------------------------------------------*/

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/creack/pty"
)

const DefaultPTYSymlink = "/tmp/cwkey"

// Handler carries out a command.  *Server is one.
type Handler interface {
	Handle(cmd Command) error
}

type PTYInput struct {
	master  *os.File /* My end. */
	slave   *os.File /* Pseudo terminal slave, kept open so it doesn't vanish. */
	symlink string
}

func OpenPTY(symlink string) (*PTYInput, error) {
	var ptmx, pts, err = pty.Open()
	if err != nil {
		return nil, fmt.Errorf("could not create pseudo terminal: %w", err)
	}

	var p = &PTYInput{master: ptmx, slave: pts, symlink: symlink}

	if symlink != "" {
		os.Remove(symlink)

		if err := os.Symlink(pts.Name(), symlink); err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to create symlink %s: %w", symlink, err)
		}
		logger.Infof("Created symlink %s -> %s", symlink, pts.Name())
	}

	logger.Info("virtual keyer available", "device", pts.Name())

	return p, nil
}

// Name is the device for the other application to open.
func (p *PTYInput) Name() string {
	return p.slave.Name()
}

// Serve reads lines until ctx is done, the pty is closed, or h asks
// to exit.
func (p *PTYInput) Serve(ctx context.Context, h Handler) error {
	var stop = context.AfterFunc(ctx, func() { p.master.Close() })
	defer stop()

	var err = serveLines(p.master, h)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (p *PTYInput) Close() error {
	if p.symlink != "" {
		os.Remove(p.symlink)
	}
	return errors.Join(p.master.Close(), p.slave.Close())
}

func serveLines(r io.Reader, h Handler) error {
	var scanner = bufio.NewScanner(r)

	for scanner.Scan() {
		var cmd, err = ParseDatagram(scanner.Bytes())
		if err != nil {
			logger.Warn("bad line", "err", err)
			continue
		}

		if herr := h.Handle(cmd); herr != nil {
			if errors.Is(herr, ErrExitRequested) {
				return herr
			}
			logger.Warn("command failed", "kind", cmd.Kind, "err", herr)
		}
	}

	var err = scanner.Err()
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}
