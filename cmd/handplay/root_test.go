package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/handplay/internal/config"
)

// isolate keeps the test away from real config files in the working
// directory and the home directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestInitializeConfig_File(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	yaml := []byte(`
gesture:
  cooldown: 3s
  rules: classic
player:
  seek_policy: ignore
transport:
  addr: 127.0.0.1:7000
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o644))

	v := viper.New()
	config.SetDefaults(v)
	require.NoError(t, initializeConfig(v, path))

	cfg, err := config.NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Gesture.Cooldown)
	assert.Equal(t, "classic", cfg.Gesture.Rules)
	assert.Equal(t, "ignore", cfg.Player.SeekPolicy)
	assert.Equal(t, "127.0.0.1:7000", cfg.Transport.Addr)
	assert.Equal(t, 30, cfg.Player.RenderFPS, "unset keys keep their defaults")
}

func TestInitializeConfig_SearchPathAndEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "handplay.yaml"), []byte("camera:\n  fps: 20\n"), 0o644))
	t.Setenv("HANDPLAY_TRANSPORT_QUEUE_SIZE", "4")

	v := viper.New()
	config.SetDefaults(v)
	require.NoError(t, initializeConfig(v, ""))

	cfg, err := config.NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Camera.FPS)
	assert.Equal(t, 4, cfg.Transport.QueueSize)
}

func TestInitializeConfig_MissingFileIsFine(t *testing.T) {
	isolate(t)

	v := viper.New()
	config.SetDefaults(v)
	assert.NoError(t, initializeConfig(v, ""))
}

func TestInitializeConfig_BrokenFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gesture: [unclosed"), 0o644))

	v := viper.New()
	assert.Error(t, initializeConfig(v, path))
}

func TestBindFlags(t *testing.T) {
	root := newRootCmd()
	playerCmd, _, err := root.Find([]string{"player"})
	require.NoError(t, err)

	require.NoError(t, playerCmd.ParseFlags([]string{"--listen", "127.0.0.1:7001", "--log-level", "debug"}))

	v := viper.New()
	config.SetDefaults(v)
	require.NoError(t, bindFlags(v, playerCmd))

	assert.Equal(t, "127.0.0.1:7001", v.GetString("transport.addr"))
	assert.Equal(t, "debug", v.GetString("logger.level"))
	assert.Equal(t, "127.0.0.1:8080", v.GetString("server.addr"), "unchanged flags do not override")
}

func TestRoot_InvalidConfigStopsBeforeRun(t *testing.T) {
	isolate(t)
	t.Setenv("HANDPLAY_PLAYER_SEEK_POLICY", "wrap")

	root := newRootCmd()
	root.SetArgs([]string{"controller"})
	err := root.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "seek_policy")
}

func TestRoot_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"player", "controller", "standalone"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}
