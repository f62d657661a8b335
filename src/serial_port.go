package cwkey

/*------------------------------------------------------------------
 *
 * Purpose:   	Key and PTT thru the RTS or DTR signal of a serial port.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/term"
)

// serialPort is what we need from *term.Term.
type serialPort interface {
	SetRTS(v bool) error
	SetDTR(v bool) error
	Close() error
}

type serialSignal int

const (
	signalRTS serialSignal = iota
	signalDTR
)

func (s serialSignal) String() string {
	if s == signalDTR {
		return "DTR"
	}
	return "RTS"
}

func parseSignal(s string) (serialSignal, error) {
	switch strings.ToLower(s) {
	case "", "rts":
		return signalRTS, nil
	case "dtr":
		return signalDTR, nil
	default:
		return signalRTS, fmt.Errorf("serial signal must be RTS or DTR, not %q", s)
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	openSerialPort
 *
 * Purpose:	Open serial port.
 *
 * Inputs:	devicename	- Usually /dev/tty...
 *				  "COMn" also allowed and converted to /dev/ttyS(n-1)
 *				  Could be /dev/rfcomm0 for Bluetooth.
 *
 *---------------------------------------------------------------*/

var openSerialPort = func(devicename string) (serialPort, error) {
	var name = linuxSerialName(devicename)

	var fd, err = term.Open(name, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("could not open serial port %s: %w", name, err)
	}

	return fd, nil
}

/* Translate Windows device name into Linux name. */
/* COM1 -> /dev/ttyS0, etc. */

func linuxSerialName(devicename string) string {
	if len(devicename) > 3 && strings.EqualFold(devicename[:3], "COM") {
		var n, err = strconv.Atoi(devicename[3:])
		if err == nil {
			if n < 1 {
				n = 1
			}
			var linuxname = fmt.Sprintf("/dev/ttyS%d", n-1)
			logger.Infof("Converted serial port name '%s' to Linux equivalent '%s'", devicename, linuxname)
			return linuxname
		}
	}
	return devicename
}

type serialLine struct {
	port   serialPort
	signal serialSignal
	closer func() error
}

func (l *serialLine) Set(on bool) error {
	if l.signal == signalDTR {
		return l.port.SetDTR(on)
	}
	return l.port.SetRTS(on)
}

func (l *serialLine) Close() error {
	return l.closer()
}

func openSerial(device string, signal string) (Line, error) {
	var sig, err = parseSignal(signal)
	if err != nil {
		return nil, err
	}

	var port, perr = openSerialPort(device)
	if perr != nil {
		return nil, perr
	}

	return &serialLine{port: port, signal: sig, closer: port.Close}, nil
}

// sharedPort hands out lines on different signals of one port.  The
// port is closed with the last of them.
type sharedPort struct {
	port serialPort
	refs int
}

func (s *sharedPort) line(sig serialSignal) Line {
	s.refs++
	return &serialLine{port: s.port, signal: sig, closer: s.release}
}

func (s *sharedPort) release() error {
	s.refs--
	if s.refs == 0 {
		return s.port.Close()
	}
	return nil
}
