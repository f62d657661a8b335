// Package rig opens everything a Transmitter needs from a Config:
// key and PTT lines, with CM108 discovery, and the side tone.
package rig

import (
	"errors"
	"fmt"

	cwkey "github.com/doismellburning/cwkey/src"
	"github.com/doismellburning/cwkey/src/cm108"
	"github.com/doismellburning/cwkey/src/sidetone"
)

type Rig struct {
	Tx *cwkey.Transmitter

	key, ptt cwkey.Line
	tone     sidetone.Generator
}

// Used by Open.  Tests replace them.
var (
	resolveCM108 = cm108.Resolve
	openLines    = cwkey.OpenLines
	openSidetone = sidetone.Open
)

/*-------------------------------------------------------------------
 *
 * Name:        Open
 *
 * Purpose:    	Open the hardware and make a Transmitter for it.
 *
 * Inputs:	cfg	- After Validate.
 *
 *		delay	- nil to wait in real time.
 *
 * Description:	A cm108 line without a device is matched to the
 *		audio_device sound card, or the first suitable adapter
 *		if that is empty too.
 *
 *--------------------------------------------------------------------*/

func Open(cfg cwkey.Config, delay cwkey.Delayer) (*Rig, error) {
	var keyCfg, err = resolveCM108(cfg.Key, cfg.AudioDevice)
	if err != nil {
		return nil, fmt.Errorf("key: %w", err)
	}

	pttCfg, err := resolveCM108(cfg.PTT, cfg.AudioDevice)
	if err != nil {
		return nil, fmt.Errorf("ptt: %w", err)
	}

	var r = new(Rig)

	r.key, r.ptt, err = openLines(keyCfg, pttCfg)
	if err != nil {
		return nil, err
	}

	r.tone, err = openSidetone(cfg.Sidetone)
	if err != nil {
		return nil, errors.Join(err, r.closeLines())
	}

	var o = cfg.TransmitterOptions()
	o.Key = r.key
	o.PTT = r.ptt
	o.Tone = r.tone
	o.Delayer = delay
	r.Tx = cwkey.NewTransmitter(o)

	return r, nil
}

func (r *Rig) closeLines() error {
	return errors.Join(r.key.Close(), r.ptt.Close())
}

// Close leaves key and PTT off.
func (r *Rig) Close() error {
	return errors.Join(r.tone.Close(), r.closeLines())
}
