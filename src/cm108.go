package cwkey

/*------------------------------------------------------------------
 *
 * Purpose:   	Use the CM108/CM119 (or compatible) GPIO pins for the
 *		key or Push To Talk (PTT) control.
 *
 * Description:	Quite a few radio interfaces are built around a USB
 *		audio adapter with a GPIO pin wired to PTT.  Commercial
 *		products such as the DMK URI, RB-USB RIM, RA-35, DINAH
 *		and the All in One cable (AIOC), plus homebrew "fobs".
 *
 *		Homebrew plans all use GPIO 3 because it is easier to
 *		tack solder a wire to a pin on the end.  All of the
 *		products seen so far use the same pin so this is the
 *		default.
 *
 *		The pins are set by writing a HID report to the
 *		/dev/hidraw device belonging to the adapter.  The cm108
 *		subpackage finds the right one.
 *
 *		By default /dev/hidraw* are only accessible by root.
 *		A udev rule like this opens it up to the audio group:
 *
 *		SUBSYSTEM=="hidraw", ATTRS{idVendor}=="0d8c", GROUP="audio", MODE="0660"
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

const (
	CMEDIA_VID    = 0x0d8c
	SSS_VID       = 0x0c76
	AIOC_VID      = 0x1209
	AIOC_PID      = 0x7388
	CM108_DEFAULT = 3 // GPIO number
)

var ErrNoCM108Device = errors.New("no CM108 compatible HID device")

/*-------------------------------------------------------------------
 *
 * Name:	IsCM108Compatible
 *
 * Purpose:	Is this USB device known to have usable GPIO?
 *
 * Description:	C-Media CM108/CM109/CM119 and variants, SSS1621/SSS1623,
 *		and the AIOC which emulates a CM108.
 *
 *------------------------------------------------------------------*/

func IsCM108Compatible(vid, pid int) bool {
	switch vid {
	case CMEDIA_VID:
		return (pid >= 0x0008 && pid <= 0x000f) ||
			pid == 0x0012 || pid == 0x0013 ||
			pid == 0x0139 || pid == 0x013a || pid == 0x013c
	case SSS_VID:
		return pid == 0x1605 || pid == 0x1607 || pid == 0x160b
	case AIOC_VID:
		return pid == AIOC_PID
	}
	return false
}

/*-------------------------------------------------------------------
 *
 * Name:	cm108Report
 *
 * Purpose:	HID output report to set one GPIO pin.
 *
 * Inputs:	num	- GPIO number, range 1 thru 8.
 *
 *		on	- High or low.
 *
 * Description:	We need 0 for the first two bytes.  Writing 4 bytes
 *		fails with EPIPE.  Hamlib writes 5 bytes and so do we.
 *
 *------------------------------------------------------------------*/

func cm108Report(num int, on bool) ([]byte, error) {
	if num < 1 || num > 8 {
		return nil, fmt.Errorf("%w: CM108 GPIO number %d must be in range of 1 thru 8", ErrBadLine, num)
	}

	var iomask = byte(1 << (num - 1)) // 0=input, 1=output
	var iodata byte                   // 0=low, 1=high
	if on {
		iodata = iomask
	}

	return []byte{0, 0, iodata, iomask, 0}, nil
}

type cm108Line struct {
	name string
	num  int
	dev  io.WriteCloser
}

func (l *cm108Line) Set(on bool) error {
	var data, err = cm108Report(l.num, on)
	if err != nil {
		return err
	}

	var n, werr = l.dev.Write(data)
	if werr != nil {
		return fmt.Errorf("write to %s failed: %w", l.name, werr)
	}
	if n != len(data) {
		return fmt.Errorf("write to %s failed, n=%d", l.name, n)
	}
	return nil
}

func (l *cm108Line) Close() error {
	return l.dev.Close()
}

func openCM108(name string, num int) (Line, error) {
	if name == "" {
		return nil, ErrNoCM108Device
	}
	if num == 0 {
		num = CM108_DEFAULT
	}
	if num < 1 || num > 8 {
		return nil, fmt.Errorf("%w: CM108 GPIO number %d must be in range of 1 thru 8", ErrBadLine, num)
	}

	var fd, err = os.OpenFile(name, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			logger.Errorf("Type \"ls -l %s\" and verify that it has audio group rw, and that you are in the audio group.", name)
		}
		return nil, fmt.Errorf("could not open %s for write: %w", name, err)
	}

	var info, ioctlErr = unix.IoctlHIDGetRawInfo(int(fd.Fd())) //nolint:gosec
	switch {
	case ioctlErr != nil:
		logger.Warn("ioctl HIDIOCGRAWINFO failed", "device", name, "err", ioctlErr)
	case !IsCM108Compatible(int(uint16(info.Vendor)), int(uint16(info.Product))): //nolint:gosec
		logger.Warnf("%s is not a supported device type.  Proceed at your own risk.  vid=%04x pid=%04x", name, uint16(info.Vendor), uint16(info.Product)) //nolint:gosec
	}

	return &cm108Line{name: name, num: num, dev: fd}, nil
}
