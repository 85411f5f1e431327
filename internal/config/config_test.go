package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notifyadapter/internal/notify"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultSocket, cfg.NotifySocket)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.True(t, cfg.Echo)
	assert.True(t, cfg.Log)
	assert.Equal(t, DefaultChannelSize, cfg.ChannelSize)
	assert.False(t, cfg.InitialLivez)
	assert.False(t, cfg.InitialReadyz)
	assert.True(t, cfg.AllowMessageWatchdogUsec)
	assert.True(t, cfg.AllowMessageExtendTimeoutUsec)
	assert.Equal(t, 90*time.Second, cfg.UnitTimeoutStart)
	assert.Zero(t, cfg.UnitWatchdog)
	assert.True(t, cfg.Metrics)
	assert.Empty(t, cfg.HistoryDB)
	assert.Empty(t, cfg.ReportSchedule)

	assert.Equal(t, []notify.Event{notify.EventReady, notify.EventWatchdog}, cfg.StatusLivezTrue)
	assert.Contains(t, cfg.StatusReadyzFalse, notify.EventReloading)
	assert.Empty(t, cfg.StatusShutdown)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "/tmp/test.sock")
	t.Setenv("ADAPTER_PORT", "9999")
	t.Setenv("ADAPTER_ECHO", "false")
	t.Setenv("ADAPTER_CHANNEL_SIZE", "4")
	t.Setenv("ADAPTER_INITIAL_LIVEZ", "true")
	t.Setenv("ADAPTER_STATUS_SHUTDOWN", "stopping")
	t.Setenv("ADAPTER_UNIT_TIMEOUT_START_SEC", "1.5")
	t.Setenv("ADAPTER_UNIT_WATCHDOG_SEC", "2")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.sock", cfg.NotifySocket)
	assert.Equal(t, 9999, cfg.Port)
	assert.False(t, cfg.Echo)
	assert.Equal(t, 4, cfg.ChannelSize)
	assert.True(t, cfg.InitialLivez)
	assert.Equal(t, []notify.Event{notify.EventStopping}, cfg.StatusShutdown)
	assert.Equal(t, 1500*time.Millisecond, cfg.UnitTimeoutStart)
	assert.Equal(t, 2*time.Second, cfg.UnitWatchdog)
}

func TestLoadInvalidValuesAreFatal(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"ADAPTER_PORT", "not-a-port"},
		{"ADAPTER_PORT", "0"},
		{"ADAPTER_ECHO", "maybe"},
		{"ADAPTER_CHANNEL_SIZE", "0"},
		{"ADAPTER_STATUS_LIVEZ_TRUE", "ready,bogus"},
		{"ADAPTER_UNIT_WATCHDOG_SEC", "-1"},
		{"ADAPTER_UNIT_TIMEOUT_START_SEC", "ninety"},
	}
	for _, tt := range tests {
		t.Run(tt.name+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.name, tt.value)
			_, err := Load("")
			require.Error(t, err)
		})
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "adapter.yaml")
	data := []byte("notify_socket: /tmp/file.sock\nport: \"7070\"\nstatus_shutdown: stopping\nunit_watchdog_sec: \"3\"\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/file.sock", cfg.NotifySocket)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, []notify.Event{notify.EventStopping}, cfg.StatusShutdown)
	assert.Equal(t, 3*time.Second, cfg.UnitWatchdog)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "adapter.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"7070\"\n"), 0o644))

	t.Setenv("ADAPTER_PORT", "8088")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8088, cfg.Port)
}

func TestLoadRejectsUnknownFileKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "adapter.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prot: \"7070\"\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFileIsFatal(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
