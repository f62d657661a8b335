package sidetone

import (
	"errors"

	"github.com/gordonklaus/portaudio"
)

type portAudioGenerator struct {
	*oscillator
	stream *portaudio.Stream
}

func openPortAudio(osc *oscillator) (Generator, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	// Mono output, no input, whatever buffer size the host likes.
	var stream, err = portaudio.OpenDefaultStream(0, 1, osc.sampleRate, 0, osc.fill)
	if err != nil {
		return nil, errors.Join(err, portaudio.Terminate())
	}

	if err := stream.Start(); err != nil {
		return nil, errors.Join(err, stream.Close(), portaudio.Terminate())
	}

	return &portAudioGenerator{oscillator: osc, stream: stream}, nil
}

func (g *portAudioGenerator) Close() error {
	return errors.Join(g.stream.Stop(), g.stream.Close(), portaudio.Terminate())
}
