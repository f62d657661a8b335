package sidetone

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	cwkey "github.com/doismellburning/cwkey/src"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOscillator(t *testing.T) {
	var osc, err = newOscillator(8000, 100)
	require.NoError(t, err)

	var buf = make([]float32, 100)
	osc.fill(buf)
	for _, s := range buf {
		require.Zero(t, s, "silent before Start")
	}

	require.NoError(t, osc.Start(1000))
	osc.fill(buf)

	// 5 ms ramp at 8000 is 40 samples.
	assert.Equal(t, float32(1), osc.gain)
	for _, s := range buf {
		require.LessOrEqual(t, math.Abs(float64(s)), 1.0)
	}
	var peak float32
	for _, s := range buf[40:] {
		peak = max(peak, s)
	}
	assert.InDelta(t, 1.0, peak, 0.01)

	require.NoError(t, osc.Stop())
	osc.fill(buf)
	assert.Zero(t, osc.gain)
	assert.Zero(t, buf[len(buf)-1])
}

func TestNewOscillator_Bad(t *testing.T) {
	var _, err = newOscillator(0, 50)
	assert.Error(t, err)

	_, err = newOscillator(8000, -1)
	assert.Error(t, err)
}

func TestOtoReader(t *testing.T) {
	var osc, err = newOscillator(8000, 50)
	require.NoError(t, err)
	require.NoError(t, osc.Start(2000))

	var r = &otoReader{osc: osc} //nolint:exhaustruct
	var p = make([]byte, 4*200+3)
	var n, rerr = r.Read(p)
	require.NoError(t, rerr)
	assert.Equal(t, 800, n)

	// A quarter cycle per sample, so every fourth is a peak.
	var peak = math.Float32frombits(binary.LittleEndian.Uint32(p[4*61:]))
	assert.InDelta(t, 0.5, peak, 0.01)
	var trough = math.Float32frombits(binary.LittleEndian.Uint32(p[4*199:]))
	assert.InDelta(t, -0.5, trough, 0.01)
}

type fakeGenerator struct {
	*oscillator
	closed bool
}

func (f *fakeGenerator) Close() error {
	f.closed = true
	return nil
}

func TestOpen(t *testing.T) {
	var saved = openOtoPlayer
	t.Cleanup(func() { openOtoPlayer = saved })

	var fake *fakeGenerator
	openOtoPlayer = func(osc *oscillator) (Generator, error) {
		fake = &fakeGenerator{oscillator: osc} //nolint:exhaustruct
		return fake, nil
	}

	var g, err = Open(cwkey.SidetoneConfig{Backend: cwkey.SidetoneOto, SampleRate: 8000, Amplitude: 50})
	require.NoError(t, err)
	require.NoError(t, g.Start(700))
	assert.True(t, fake.on)
	require.NoError(t, g.Close())
	assert.True(t, fake.closed)

	var none, nerr = Open(cwkey.SidetoneConfig{Backend: cwkey.SidetoneNone, SampleRate: 8000, Amplitude: 50})
	require.NoError(t, nerr)
	require.NoError(t, none.Start(700))
	require.NoError(t, none.Close())
}

func TestOpen_Errors(t *testing.T) {
	var _, err = Open(cwkey.SidetoneConfig{Backend: "alsa", SampleRate: 8000, Amplitude: 50})
	assert.ErrorIs(t, err, cwkey.ErrConfigValue)

	var saved = openPortAudioStream
	t.Cleanup(func() { openPortAudioStream = saved })

	var boom = errors.New("no sound card")
	openPortAudioStream = func(*oscillator) (Generator, error) { return nil, boom }

	_, err = Open(cwkey.SidetoneConfig{Backend: cwkey.SidetonePortAudio, SampleRate: 8000, Amplitude: 50})
	assert.ErrorIs(t, err, boom)
}
