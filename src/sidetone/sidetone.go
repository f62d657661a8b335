// Package sidetone plays the side tone live on a sound card.
package sidetone

import (
	"fmt"
	"io"

	cwkey "github.com/doismellburning/cwkey/src"
)

// Generator is a cwkey.ToneGenerator that holds a sound device open.
type Generator interface {
	cwkey.ToneGenerator
	io.Closer
}

type nullGenerator struct {
	cwkey.NullTone
}

func (nullGenerator) Close() error { return nil }

// Used by Open.  Tests replace them.
var (
	openPortAudioStream = openPortAudio
	openOtoPlayer       = openOto
)

// Open starts the configured backend.  The sound card plays silence
// until Start.
func Open(cfg cwkey.SidetoneConfig) (Generator, error) {
	var osc, err = newOscillator(cfg.SampleRate, cfg.Amplitude)
	if err != nil {
		return nil, err
	}

	var g Generator

	switch cfg.Backend {
	case cwkey.SidetoneNone, "":
		return nullGenerator{}, nil
	case cwkey.SidetonePortAudio:
		g, err = openPortAudioStream(osc)
	case cwkey.SidetoneOto:
		g, err = openOtoPlayer(osc)
	default:
		return nil, fmt.Errorf("%w: sidetone backend %q", cwkey.ErrConfigValue, cfg.Backend)
	}

	if err != nil {
		return nil, fmt.Errorf("sidetone %s: %w", cfg.Backend, err)
	}

	cwkey.Logger().Info("side tone", "backend", cfg.Backend, "rate", cfg.SampleRate)

	return g, nil
}
