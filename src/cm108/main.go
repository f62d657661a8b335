package cm108

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	cwkey "github.com/doismellburning/cwkey/src"
)

/*-------------------------------------------------------------------
 *
 * Name:	Main
 *
 * Purpose:	Useful utility to list USB audio and HID devices.
 *
 * Optional command line arguments:
 *
 *		HID path
 *		GPIO number (default 3)
 *
 *		When specified the pin will be set high and low until interrupted.
 *
 *------------------------------------------------------------------*/

func Main() {
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:    cwkey-cm108  [ device-path [ gpio-num ] ]\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "With no command line arguments, this will produce a list of\n")
		fmt.Fprintf(os.Stderr, "Audio devices and Human Interface Devices (HID) and indicate\n")
		fmt.Fprintf(os.Stderr, "which ones can be used for GPIO key or PTT.\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Specify the HID device path to test the GPIO function.\n")
		fmt.Fprintf(os.Stderr, "Its state should change once per second.\n")
		fmt.Fprintf(os.Stderr, "GPIO 3 is the default.  A different number can be optionally specified.\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	if pflag.NArg() >= 1 {
		var gpio = cwkey.CM108_DEFAULT
		if pflag.NArg() >= 2 {
			var err error
			gpio, err = strconv.Atoi(pflag.Arg(1))
			if err != nil || gpio < 1 || gpio > 8 {
				fmt.Fprintf(os.Stderr, "GPIO number must be in range of 1 - 8.\n")
				pflag.Usage()
				os.Exit(1)
			}
		}

		var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := toggle(ctx, os.Stdout, pflag.Arg(0), gpio); err != nil {
			fmt.Fprintf(os.Stderr, "\nWRITE ERROR for USB Audio Adapter GPIO: %s\n", err)
			os.Exit(1)
		}
		return
	}

	// Take inventory of USB Audio adapters and other HID devices.

	var things, err = Inventory()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	List(os.Stdout, things)
}

func toggle(ctx context.Context, w io.Writer, path string, gpio int) error {
	var line, err = cwkey.OpenLine("gpio", cwkey.LineConfig{ //nolint:exhaustruct
		Method: cwkey.LineCM108,
		Device: path,
		Line:   gpio,
	})
	if err != nil {
		return err
	}
	defer line.Close()

	var ticker = time.NewTicker(time.Second)
	defer ticker.Stop()

	var state = 0
	for {
		fmt.Fprintf(w, "%d", state)
		if err := line.Set(state == 1); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			fmt.Fprintf(w, "\n")
			return line.Set(false)
		case <-ticker.C:
		}
		state = 1 - state
	}
}

// List prints the inventory as a table.
func List(w io.Writer, things []*Thing) {
	fmt.Fprintf(w, "    VID  PID   %-32s %-22s %-15s %-20s %-17s %s\n", "Product", "Sound", "ADEVICE", "ADEVICE", "HID [ptt]", "USB")
	fmt.Fprintf(w, "    ---  ---   %-32s %-22s %-15s %-20s %-17s %s\n", "-------", "-----", "-------", "-------", "---------", "---")

	for _, thing := range things {
		var good = "  "
		if thing.Good() {
			good = "**"
		}
		fmt.Fprintf(w, "%2s  %04x %04x  %-32s %-22s %-15s %-20s %-17s %s\n",
			good, thing.VID, thing.PID,
			thing.Product, thing.SoundDevnode, thing.PlugHW, thing.PlugHW2,
			thing.HIDRaw, thing.USBDevnode)
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "** = Can use Audio Adapter GPIO for key or PTT.\n")
	fmt.Fprintf(w, "\n")
}
