package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	v, err := Load(Options{
		Paths:    []string{t.TempDir()},
		Name:     "does-not-exist",
		Defaults: map[string]interface{}{"server.port": 8080},
	})
	require.NoError(t, err)
	assert.Equal(t, 8080, v.GetInt("server.port"))
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("server:\n  port: 9000\nlog:\n  level: debug\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pulse.yaml"), yaml, 0o644))

	v, err := Load(Options{
		Paths:    []string{dir},
		Name:     "pulse",
		Defaults: map[string]interface{}{"server.port": 8080, "log.level": "info"},
	})
	require.NoError(t, err)
	assert.Equal(t, 9000, v.GetInt("server.port"))
	assert.Equal(t, "debug", v.GetString("log.level"))
}

func TestBindEnvs(t *testing.T) {
	t.Setenv("PULSE_TEST_PORT", "7070")

	v, err := Load(Options{Paths: []string{t.TempDir()}, Name: "none"})
	require.NoError(t, err)
	require.NoError(t, BindEnvs(v, map[string]string{"server.port": "PULSE_TEST_PORT"}))

	assert.Equal(t, 7070, v.GetInt("server.port"))
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "pulse.yaml")
	require.NoError(t, os.WriteFile(file, []byte("log:\n  level: info\n"), 0o644))

	v, err := Load(Options{Paths: []string{dir}, Name: "pulse"})
	require.NoError(t, err)

	levels := make(chan string, 16)
	require.True(t, Watch(v, func(fsnotify.Event) {
		select {
		case levels <- v.GetString("log.level"):
		default:
		}
	}))

	require.NoError(t, os.WriteFile(file, []byte("log:\n  level: debug\n"), 0o644))
	deadline := time.After(5 * time.Second)
	for {
		select {
		case level := <-levels:
			if level == "debug" {
				return
			}
		case <-deadline:
			t.Fatal("no change notification")
		}
	}
}

func TestWatch_NoFile(t *testing.T) {
	v, err := Load(Options{Paths: []string{t.TempDir()}, Name: "none"})
	require.NoError(t, err)
	assert.False(t, Watch(v, func(fsnotify.Event) {}))
}
