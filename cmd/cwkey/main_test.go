package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cwkey "github.com/doismellburning/cwkey/src"
)

func Example_dryRun() {
	os.Args = []string{"cwkey", "--dry-run", "E"}

	main()
	// Output:
	// .
	//        0 ms  ptt on
	//      300 ms  key down
	//      300 ms  tone on 800 Hz
	//      380 ms  key up
	//      380 ms  tone off
	//      620 ms  ptt off
	//      620 ms  end
}

func newTimelineTransmitter() (*cwkey.Transmitter, *cwkey.Timeline) {
	var tl = cwkey.NewTimeline()
	var tx = cwkey.NewTransmitter(cwkey.Options{ //nolint:exhaustruct
		Key:     tl.Key(),
		PTT:     tl.PTT(),
		Tone:    tl,
		Delayer: tl,
	})
	return tx, tl
}

func TestKeyboard(t *testing.T) {
	var tx, tl = newTimelineTransmitter()
	var echo bytes.Buffer

	require.NoError(t, keyboard(context.Background(), tx, strings.NewReader("e~t\rTT\x04ignored"), &echo))

	assert.Equal(t, "et\r\nTT\r\n", echo.String())
	assert.Len(t, tl.Pulses(), 4)
	assert.Equal(t, 4, tl.PTTToggles, "two transmissions")
	assert.False(t, tx.InSession())
}

func TestKeyboard_EOFEndsSession(t *testing.T) {
	var tx, tl = newTimelineTransmitter()

	require.NoError(t, keyboard(context.Background(), tx, strings.NewReader("E"), new(bytes.Buffer)))
	assert.Equal(t, 2, tl.PTTToggles)
	assert.False(t, tx.InSession())
}

func TestSendLines(t *testing.T) {
	var tx, tl = newTimelineTransmitter()

	require.NoError(t, sendLines(context.Background(), tx, strings.NewReader("E\n\n  T \n")))
	assert.Len(t, tl.Pulses(), 2)
	assert.Equal(t, 4, tl.PTTToggles)
}

func TestRun_Script(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "s.lua")
	require.NoError(t, os.WriteFile(path, []byte(`print(morse.speed()) morse.send("E")`), 0o600))

	var out bytes.Buffer
	require.NoError(t, run([]string{"-n", "-w", "30", "--script", path}, os.Stdin, &out))

	assert.True(t, strings.HasPrefix(out.String(), "30\n"), out.String())
	assert.Contains(t, out.String(), "key down")
}

func TestRun_BadConfig(t *testing.T) {
	var err = run([]string{"-n", "-c", filepath.Join(t.TempDir(), "nope.yaml"), "E"}, os.Stdin, new(bytes.Buffer))
	assert.Error(t, err)

	err = run([]string{"--no-such-flag"}, os.Stdin, new(bytes.Buffer))
	assert.Error(t, err)
}
