package sidetone

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/ebitengine/oto/v3"
)

type otoGenerator struct {
	*oscillator
	player *oto.Player
}

func openOto(osc *oscillator) (Generator, error) {
	var ctx, ready, err = oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(osc.sampleRate),
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   20 * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	var player = ctx.NewPlayer(&otoReader{osc: osc}) //nolint:exhaustruct
	player.Play()

	return &otoGenerator{oscillator: osc, player: player}, nil
}

func (g *otoGenerator) Close() error {
	return g.player.Close()
}

// otoReader is an endless stream of little endian float32 samples.
type otoReader struct {
	osc *oscillator
	buf []float32
}

func (r *otoReader) Read(p []byte) (int, error) {
	var n = len(p) / 4
	if cap(r.buf) < n {
		r.buf = make([]float32, n)
	}
	var samples = r.buf[:n]

	r.osc.fill(samples)

	for i, s := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}

	return n * 4, nil
}
