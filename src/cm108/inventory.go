// Package cm108 finds the /dev/hidraw device that controls the GPIO pins
// of a USB audio adapter.
package cm108

/*------------------------------------------------------------------
 *
 * Description:	The USB soundcards (/dev/snd/pcm...) have an associated
 *		Human Interface Device (HID) corresponding to the GPIO
 *		pins.  The mapping has no obvious pattern.
 *
 *		    Sound Card 0		HID 1
 *		    Sound Card 1		HID 0
 *		    Sound Card 2		HID 2
 *		    Sound Card 4		HID 6
 *
 *		We match them up thru the parent USB device node.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jochenvg/go-udev"

	cwkey "github.com/doismellburning/cwkey/src"
)

// Thing is a USB sound card, its HID, or both merged together.
type Thing struct {
	VID, PID     int
	CardNumber   string // e.g. 2 for plughw:2,0
	CardName     string // Assigned by system (e.g. Device_1) or by udev rule.
	Product      string
	SoundDevnode string // e.g. /dev/snd/pcmC0D0p
	PlugHW       string // Above in more familiar format e.g. plughw:0,0
	PlugHW2      string // With name rather than number.
	Devpath      string // Kernel dev path.  Does not include /sys mount point.
	HIDRaw       string // e.g. /dev/hidraw3
	USBDevnode   string // e.g. /dev/bus/usb/001/012.  This is what we use to match up audio and HID.
}

// Good reports whether the GPIO should work for PTT.
func (t Thing) Good() bool {
	return cwkey.IsCM108Compatible(t.VID, t.PID)
}

// node is the part of a udev device we look at.
type node interface {
	Devnode() string
	Devpath() string
	Syspath() string
	SysattrValue(name string) string
	usbParent() node
}

type udevNode struct {
	d *udev.Device
}

func (n udevNode) Devnode() string                 { return n.d.Devnode() }
func (n udevNode) Devpath() string                 { return n.d.Devpath() }
func (n udevNode) Syspath() string                 { return n.d.Syspath() }
func (n udevNode) SysattrValue(name string) string { return n.d.SysattrValue(name) }

func (n udevNode) usbParent() node {
	var p = n.d.ParentWithSubsystemDevtype("usb", "usb_device")
	if p == nil {
		return nil
	}
	return udevNode{d: p}
}

// enumerate lists the devices of one subsystem.  Tests replace it.
var enumerate = func(subsystem string) ([]node, error) {
	var u udev.Udev
	var e = u.NewEnumerate()
	if e == nil {
		return nil, errors.New("can't create udev enumerate")
	}

	if err := e.AddMatchSubsystem(subsystem); err != nil {
		return nil, fmt.Errorf("udev match %s: %w", subsystem, err)
	}

	var devices, err = e.Devices()
	if err != nil {
		return nil, fmt.Errorf("udev scan %s: %w", subsystem, err)
	}

	var out = make([]node, 0, len(devices))
	for _, d := range devices {
		out = append(out, udevNode{d: d})
	}
	return out, nil
}

func hexAttr(n node, name string) int {
	var v, _ = strconv.ParseInt(n.SysattrValue(name), 16, 32)
	return int(v)
}

var pcmRE = regexp.MustCompile("pcmC([0-9]+)D([0-9]+)[cp]")

/*-------------------------------------------------------------------
 *
 * Name:	Inventory
 *
 * Purpose:	Take inventory of USB audio and HID.
 *
 * Returns:	Corresponding sound device and HID are merged into one item.
 *
 *------------------------------------------------------------------*/

func Inventory() ([]*Thing, error) {
	var things []*Thing

	/*
	 * First get a list of the USB audio devices.
	 */
	var sound, err = enumerate("sound")
	if err != nil {
		return nil, err
	}

	var cardDevpath, cardID, cardNumber string

	for _, dev := range sound {
		var devnode = dev.Devnode()

		if devnode == "" {
			// The card itself has no node but has the attributes
			// we want for the pcm nodes that follow.
			cardDevpath = dev.Devpath()
			cardID = dev.SysattrValue("id")
			cardNumber = dev.SysattrValue("number")
			continue
		}

		var parent = dev.usbParent()
		if parent == nil {
			continue
		}

		things = append(things, &Thing{ //nolint:exhaustruct
			VID:          hexAttr(parent, "idVendor"),
			PID:          hexAttr(parent, "idProduct"),
			CardName:     cardID,
			CardNumber:   cardNumber,
			Product:      parent.SysattrValue("product"),
			SoundDevnode: devnode,
			USBDevnode:   parent.Devnode(),
			Devpath:      cardDevpath,
		})
	}

	/*
	 * Now merge in all of the USB HID.
	 */
	var hids, herr = enumerate("hidraw")
	if herr != nil {
		return nil, herr
	}

	for _, dev := range hids {
		var devnode = dev.Devnode()
		if devnode == "" {
			continue
		}

		var parent = dev.usbParent()
		if parent == nil {
			continue
		}

		var vid, pid = hexAttr(parent, "idVendor"), hexAttr(parent, "idProduct")
		var usb = parent.Devnode()

		// Add hidraw name to any matching existing.
		var matched = false
		for _, thing := range things {
			if thing.VID == vid && thing.PID == pid && usb != "" && thing.USBDevnode == usb {
				matched = true
				thing.HIDRaw = devnode
			}
		}

		// If it did not match to existing, add new entry.
		if !matched {
			things = append(things, &Thing{ //nolint:exhaustruct
				VID:        vid,
				PID:        pid,
				Product:    parent.SysattrValue("product"),
				HIDRaw:     devnode,
				USBDevnode: usb,
				Devpath:    dev.Devpath(),
			})
		}
	}

	/*
	 * Seeing the form /dev/snd/pcmC4D0p will be confusing to many because we
	 * would generally use something like plughw:4,0 for an audio device.
	 */
	for _, thing := range things {
		var m = pcmRE.FindStringSubmatch(thing.SoundDevnode)
		if m != nil {
			thing.PlugHW = fmt.Sprintf("plughw:%s,%s", m[1], m[2])
			thing.PlugHW2 = fmt.Sprintf("plughw:%s,%s", thing.CardName, m[2])
		}
	}

	return things, nil
}

var soundRE = regexp.MustCompile(".+:(CARD=)?([A-Za-z0-9_]+)(,.*)?")

/*-------------------------------------------------------------------
 *
 * Name:	FindPTT
 *
 * Purpose:	Try to find /dev/hidraw corresponding to a USB audio "card."
 *
 * Inputs:	audioDevice	- This can take many forms such as:
 *					surround41:CARD=Fred,DEV=0
 *					surround41:Fred,0
 *					surround41:Fred
 *					plughw:2,3
 *				  We just need to extract the card number or name.
 *
 *				  Empty means the first suitable adapter found.
 *
 * Returns:	Device name, something like /dev/hidraw2.
 *
 *------------------------------------------------------------------*/

func FindPTT(audioDevice string) (string, error) {
	var things, err = Inventory()
	if err != nil {
		return "", err
	}

	return findPTT(things, audioDevice)
}

func findPTT(things []*Thing, audioDevice string) (string, error) {
	if audioDevice == "" {
		for _, thing := range things {
			if thing.Good() && thing.HIDRaw != "" {
				return thing.HIDRaw, nil
			}
		}
		return "", cwkey.ErrNoCM108Device
	}

	var m = soundRE.FindStringSubmatch(audioDevice)
	if m == nil || m[2] == "" {
		return "", fmt.Errorf("could not extract card number or name from %s", audioDevice)
	}
	var numOrName = m[2]

	for _, thing := range things {
		if numOrName == thing.CardName || numOrName == thing.CardNumber {
			if thing.HIDRaw == "" {
				continue
			}
			if !thing.Good() {
				cwkey.Logger().Warnf("USB audio card %s (%s) is not a device known to work with GPIO PTT.", thing.CardNumber, thing.CardName)
			}
			return thing.HIDRaw, nil
		}
	}

	return "", fmt.Errorf("%w for audio device %s", cwkey.ErrNoCM108Device, audioDevice)
}

// Resolve fills in the device of a cm108 line config left empty, using
// the HID that goes with audioDevice or the first suitable one.
func Resolve(cfg cwkey.LineConfig, audioDevice string) (cwkey.LineConfig, error) {
	if !strings.EqualFold(string(cfg.Method), string(cwkey.LineCM108)) || cfg.Device != "" {
		return cfg, nil
	}

	var dev, err = FindPTT(audioDevice)
	if err != nil {
		return cfg, err
	}

	cwkey.Logger().Info("found CM108 GPIO", "device", dev)
	cfg.Device = dev
	return cfg, nil
}
