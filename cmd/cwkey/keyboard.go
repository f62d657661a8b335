package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	cwkey "github.com/doismellburning/cwkey/src"
)

const (
	ctrlC = 0x03
	ctrlD = 0x04
)

// keyboard keys each byte read from in as soon as it arrives.  The first
// character of a line turns on PTT and Enter turns it off again.  It
// returns at end of input, control-C or control-D with PTT off.
func keyboard(ctx context.Context, tx *cwkey.Transmitter, in io.Reader, echo io.Writer) (err error) {
	var r = bufio.NewReader(in)

	defer func() {
		err = errors.Join(err, tx.EndSession())
	}()

	for {
		var c, rerr = r.ReadByte()
		if errors.Is(rerr, io.EOF) {
			return nil
		}
		if rerr != nil {
			return rerr
		}

		switch c {
		case ctrlC, ctrlD:
			fmt.Fprintf(echo, "\r\n")
			return nil

		case '\r', '\n':
			fmt.Fprintf(echo, "\r\n")
			if err := tx.EndSession(); err != nil {
				return err
			}
			continue
		}

		if cwkey.Lookup(c).Kind == cwkey.Unsupported {
			continue
		}

		if !tx.InSession() {
			if err := tx.BeginSession(ctx); err != nil {
				return err
			}
		}

		fmt.Fprintf(echo, "%c", c)

		if err := tx.SendChar(ctx, c); err != nil {
			return err
		}
	}
}
