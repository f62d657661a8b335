package cwkey

/*------------------------------------------------------------------
 *
 * Purpose:   	Activate the output control lines for the key and
 *		push to talk (PTT).
 *
 * Description:	Traditionally this is done with the RTS or DTR signal
 *		of a serial port.  We can also use:
 *
 *		    gpiod	- a GPIO chip line thru the character device.
 *		    cm108	- GPIO pins of a CM108/CM119 etc. USB audio adapter.
 *		    none	- nothing at all, e.g. when VOX is used.
 *
 *		Key and PTT are configured the same way and are
 *		independent.  They can be two pins of the same device.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

type LineMethod string

const (
	LineNone   LineMethod = "none"
	LineSerial LineMethod = "serial"
	LineGPIOD  LineMethod = "gpiod"
	LineCM108  LineMethod = "cm108"
)

// Line is an Output that holds an open device.
type Line interface {
	Output
	io.Closer
}

type LineConfig struct {
	Method LineMethod `yaml:"method" toml:"method"`

	// serial:  /dev/ttyUSB0
	// gpiod:   /dev/gpiochip0 or gpiochip0
	// cm108:   /dev/hidraw2, or empty to find the first suitable adapter.
	Device string `yaml:"device" toml:"device"`

	// gpiod:  line offset.  cm108:  GPIO number 1 thru 8, default 3.
	Line int `yaml:"line" toml:"line"`

	// serial only:  "rts" (default) or "dtr".
	Signal string `yaml:"signal" toml:"signal"`

	// Active low.
	Invert bool `yaml:"invert" toml:"invert"`
}

var (
	ErrUnknownMethod = errors.New("unknown line method")
	ErrBadLine       = errors.New("invalid line number")
)

// Used by OpenLine.  Tests replace them.
var (
	openSerialLine = openSerial
	openGPIODLine  = openGPIOD
	openCM108Line  = openCM108
)

/*-------------------------------------------------------------------
 *
 * Name:        OpenLine
 *
 * Purpose:    	Open an output line and set it to the off state.
 *
 * Inputs:	name	- "key" or "ptt", only for messages.
 *
 *		cfg	- Where it is.
 *
 *--------------------------------------------------------------------*/

func OpenLine(name string, cfg LineConfig) (Line, error) {
	var method = LineMethod(strings.ToLower(string(cfg.Method)))

	var line Line
	var err error

	switch method {
	case "", LineNone:
		return NullLine{}, nil
	case LineSerial:
		line, err = openSerialLine(cfg.Device, cfg.Signal)
	case LineGPIOD:
		line, err = openGPIODLine(cfg.Device, cfg.Line, cfg.Invert)
	case LineCM108:
		line, err = openCM108Line(cfg.Device, cfg.Line)
	default:
		return nil, fmt.Errorf("%s: %w %q", name, ErrUnknownMethod, cfg.Method)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return finishLine(name, method, cfg, line)
}

// finishLine adds inversion and logging, then turns the line off.
func finishLine(name string, method LineMethod, cfg LineConfig, line Line) (Line, error) {
	// A gpiod request takes care of its own inversion.
	if cfg.Invert && method != LineGPIOD {
		line = &invertedLine{Line: line}
	}

	line = &namedLine{Line: line, name: name, method: method}

	if err := line.Set(false); err != nil {
		line.Close()
		return nil, fmt.Errorf("%s: initial off: %w", name, err)
	}

	logger.Info("output line ready", "name", name, "method", method, "device", cfg.Device, "invert", cfg.Invert)

	return line, nil
}

type invertedLine struct {
	Line
}

func (l *invertedLine) Set(on bool) error {
	return l.Line.Set(!on)
}

// namedLine adds debug logging.
type namedLine struct {
	Line
	name   string
	method LineMethod
}

func (l *namedLine) Set(on bool) error {
	logger.Debug("line set", "name", l.name, "method", l.method, "on", on)
	var err = l.Line.Set(on)
	if err != nil {
		logger.Error("line set failed", "name", l.name, "on", on, "err", err)
	}
	return err
}

/*-------------------------------------------------------------------
 *
 * Name:        OpenLines
 *
 * Purpose:    	Open both the key and PTT lines.
 *
 * Description:	The same serial port can't be opened twice, so when
 *		key and PTT are two signals of one port, they share
 *		a single handle.  Typically key on DTR and PTT on RTS.
 *
 *--------------------------------------------------------------------*/

func OpenLines(key, ptt LineConfig) (Line, Line, error) {
	if !sameSerialPort(key, ptt) {
		var k, err = OpenLine("key", key)
		if err != nil {
			return nil, nil, err
		}
		var p, perr = OpenLine("ptt", ptt)
		if perr != nil {
			k.Close()
			return nil, nil, perr
		}
		return k, p, nil
	}

	var keySignal, kerr = parseSignal(key.Signal)
	if kerr != nil {
		return nil, nil, fmt.Errorf("key: %w", kerr)
	}
	var pttSignal, perr = parseSignal(ptt.Signal)
	if perr != nil {
		return nil, nil, fmt.Errorf("ptt: %w", perr)
	}

	var port, err = openSerialPort(key.Device)
	if err != nil {
		return nil, nil, fmt.Errorf("key and ptt: %w", err)
	}

	var shared = &sharedPort{port: port} //nolint:exhaustruct

	var k, ferr = finishLine("key", LineSerial, key, shared.line(keySignal))
	if ferr != nil {
		return nil, nil, ferr
	}

	var p, gerr = finishLine("ptt", LineSerial, ptt, shared.line(pttSignal))
	if gerr != nil {
		k.Close()
		return nil, nil, gerr
	}

	return k, p, nil
}

func sameSerialPort(a, b LineConfig) bool {
	return strings.EqualFold(string(a.Method), string(LineSerial)) &&
		strings.EqualFold(string(b.Method), string(LineSerial)) &&
		a.Device != "" && a.Device == b.Device
}
