package internal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hbomb79/Hermes/internal/api"
	"github.com/hbomb79/Hermes/internal/event"
	"github.com/hbomb79/Hermes/internal/lifecycle"
	"github.com/hbomb79/Hermes/tests/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, downloadDir string, hostAddr string) HermesConfig {
	return HermesConfig{
		Lifecycle: lifecycle.Config{
			DownloadPath:         downloadDir,
			RetentionSeconds:     600,
			SweepIntervalSeconds: 300,
			SweepPattern:         "*.mp3",
		},
		Rest: api.RestConfig{HostAddr: hostAddr, StaticDir: t.TempDir()},
	}
}

func Test_LoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "downloads", config.Lifecycle.DownloadPath)
	assert.Equal(t, 600, config.Lifecycle.RetentionSeconds)
	assert.Equal(t, 300, config.Lifecycle.SweepIntervalSeconds)
	assert.Equal(t, "*.mp3", config.Lifecycle.SweepPattern)
	assert.True(t, config.Lifecycle.WatchDirectory)
	assert.Equal(t, []string{"https://www.youtube.com", "https://youtu.be"}, config.Extract.AllowedPrefixes)
	assert.Equal(t, "320k", config.Extract.AudioBitrate)
	assert.Equal(t, "/usr/bin/ffmpeg", config.Extract.Ffmpeg.FfmpegBinPath)
	assert.Equal(t, "0.0.0.0:8080", config.Rest.HostAddr)
	assert.Equal(t, "info", config.Logging.Level)
}

func Test_LoadConfig_FileWithEnvironmentOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
lifecycle:
  download_dir: /srv/hermes
  retention_seconds: 120
extract:
  allowed_prefixes:
    - https://youtu.be
rest:
  host_address: 127.0.0.1:9000
`), 0o644))

	t.Setenv("SWEEP_INTERVAL_SECONDS", "30")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/hermes", config.Lifecycle.DownloadPath)
	assert.Equal(t, 120, config.Lifecycle.RetentionSeconds)
	assert.Equal(t, 30, config.Lifecycle.SweepIntervalSeconds)
	assert.Equal(t, []string{"https://youtu.be"}, config.Extract.AllowedPrefixes)
	assert.Equal(t, "127.0.0.1:9000", config.Rest.HostAddr)
}

func Test_LoadConfig_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lifecycle: [not, a, map"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func Test_New_RejectsInvalidLifecycleConfig(t *testing.T) {
	config := testConfig(t, t.TempDir(), "127.0.0.1:0")
	config.Lifecycle.SweepIntervalSeconds = 0

	_, err := New(config)
	assert.Error(t, err)
}

func Test_Run_ResetsDownloadsAndStopsOnCancel(t *testing.T) {
	dir, paths := helpers.TempDirWithFiles(t, []string{"stale.mp3", "leftover.webm"})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "partial"), 0o755))

	hermes, err := New(testConfig(t, dir, "127.0.0.1:0"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hermes.Run(ctx) }()

	assert.Eventually(t, func() bool {
		entries, err := os.ReadDir(dir)
		return err == nil && len(entries) == 0
	}, 2*time.Second, 10*time.Millisecond)
	for _, path := range paths {
		assert.False(t, helpers.FileExists(path))
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Hermes did not stop after context cancellation")
	}
}

func Test_Run_ReturnsServiceCrash(t *testing.T) {
	hermes, err := New(testConfig(t, t.TempDir(), "not-an-address"))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- hermes.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.ErrorContains(t, err, "rest-gateway")
	case <-time.After(5 * time.Second):
		t.Fatal("Hermes did not stop after a service crashed")
	}
}

type recordingEventHandler struct {
	event.EventHandler
	registered []event.Event
}

func (handler *recordingEventHandler) RegisterHandlerFunction(ev event.Event, _ event.HandlerMethod) {
	handler.registered = append(handler.registered, ev)
}

func Test_RegisterEventMetrics_SubscribesToAllEvents(t *testing.T) {
	handler := &recordingEventHandler{}
	registerEventMetrics(handler)

	assert.ElementsMatch(t, []event.Event{event.FILE_REGISTERED, event.FILE_EXPIRED, event.DOWNLOAD_COMPLETE, event.DOWNLOAD_FAILED}, handler.registered)
}
