package cwkey

/*------------------------------------------------------------------
 *
 * Purpose:   	Key and PTT thru a GPIO line using the Linux GPIO
 *		character device, e.g. on a Raspberry Pi.
 *
 * Description:	The old /sys/class/gpio interface is deprecated and
 *		gone from recent kernels so we only do it this way.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const gpioConsumer = "cwkey"

// gpiodOutputLine is what we need from *gpiocdev.Line.
type gpiodOutputLine interface {
	SetValue(v int) error
	Close() error
}

var requestGPIODLine = func(chip string, offset int, invert bool) (gpiodOutputLine, error) {
	var opts = []gpiocdev.LineReqOption{
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer(gpioConsumer),
	}
	if invert {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	var l, err = gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, err
	}
	return l, nil
}

type gpiodLine struct {
	line gpiodOutputLine
}

func (l *gpiodLine) Set(on bool) error {
	var v = 0
	if on {
		v = 1
	}
	return l.line.SetValue(v)
}

func (l *gpiodLine) Close() error {
	return l.line.Close()
}

func openGPIOD(chip string, offset int, invert bool) (Line, error) {
	if chip == "" {
		chip = "gpiochip0"
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w %d for gpiod", ErrBadLine, offset)
	}

	var line, err = requestGPIODLine(chip, offset, invert)
	if err != nil {
		return nil, fmt.Errorf("can't get GPIOD line %d of %s: %w", offset, chip, err)
	}

	logger.Debug("GPIOD request OK", "chip", chip, "line", offset, "invert", invert)

	return &gpiodLine{line: line}, nil
}
