package cwkey

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigWatcher_Reload(t *testing.T) {
	var path = writeConfig(t, "cwkey.yaml", "speed: 20\n")

	var got = make(chan Config, 4)
	var w, err = NewConfigWatcher(path, 20*time.Millisecond, func(c Config) { got <- c })
	require.NoError(t, err)

	var ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// A bad file is ignored.
	require.NoError(t, os.WriteFile(path, []byte("speed: [\n"), 0o600))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("speed: 25\ntone: 600\n"), 0o600))

	select {
	case c := <-got:
		assert.Equal(t, 25, c.Speed)
		assert.Equal(t, 600, c.Tone)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload")
	}
}

func TestConfigWatcher_IgnoresOtherFiles(t *testing.T) {
	var path = writeConfig(t, "cwkey.yaml", "speed: 20\n")

	var got = make(chan Config, 4)
	var w, err = NewConfigWatcher(path, 10*time.Millisecond, func(c Config) { got <- c })
	require.NoError(t, err)

	var ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.yaml"), []byte("speed: 30\n"), 0o600))

	select {
	case c := <-got:
		t.Fatalf("unexpected reload %+v", c)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNewConfigWatcher_NoDirectory(t *testing.T) {
	var _, err = NewConfigWatcher(filepath.Join(t.TempDir(), "nope", "cwkey.yaml"), 0, func(Config) {})
	assert.Error(t, err)
}
