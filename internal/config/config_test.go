package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected slog.Level
	}{
		{"Debug", "DEBUG", slog.LevelDebug},
		{"Info", "INFO", slog.LevelInfo},
		{"Warn", "WARN", slog.LevelWarn},
		{"Error", "ERROR", slog.LevelError},
		{"Empty", "", slog.LevelInfo},
		{"Garbage", "FNORD", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := FlitConf{LogLevel: tt.input}
			config.setLogLevel()
			result := config.GetLogLevel()
			if result != tt.expected {
				t.Errorf("setLogLevel() with LogLevel=%s = %v; want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSetPort(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"Zero Port", 0, 2021},
		{"Non-Zero Port", 8080, 8080},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := FlitConf{Http: HTTPConf{ListenPort: tt.input}}
			config.setPort()
			result := config.Http.ListenPort
			if result != tt.expected {
				t.Errorf("setPort() with ListenPort=%d = %d; want %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSetDataDir(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Default", "", "/var/lib/flit"},
		{"Explicit", "/tmp/flit", "/tmp/flit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := FlitConf{DataDir: tt.input}
			config.setDataDir()
			if config.DataDir != tt.expected {
				t.Errorf("setDataDir() with DataDir=%s = %s; want %s", tt.input, config.DataDir, tt.expected)
			}
		})
	}
}

func TestFlitConf_setOfflineBuffers(t *testing.T) {
	tests := []struct {
		name     string
		outputs  []OutputConf
		expected []int64
	}{
		{
			name:     "All positive values",
			outputs:  []OutputConf{{OfflineBufferTime: 10}, {OfflineBufferTime: 5}},
			expected: []int64{10, 5},
		},
		{
			name:     "All negative values",
			outputs:  []OutputConf{{OfflineBufferTime: -1}, {OfflineBufferTime: -100}},
			expected: []int64{0, 0},
		},
		{
			name:     "Mixed values",
			outputs:  []OutputConf{{OfflineBufferTime: -5}, {OfflineBufferTime: 0}, {OfflineBufferTime: 7}},
			expected: []int64{0, 0, 7},
		},
		{
			name:     "Empty outputs",
			outputs:  []OutputConf{},
			expected: []int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := &FlitConf{
				Outputs: tt.outputs,
			}
			conf.setOfflineBuffers()
			for i, o := range conf.Outputs {
				require.Equal(t, tt.expected[i], o.OfflineBufferTime)
			}
		})
	}
}

func TestParseFlitConfig(t *testing.T) {
	yaml := `
log_level: DEBUG
data_dir: /tmp/flit-test
plugins_dir: /tmp/flit-plugins
http:
  listen_address: 127.0.0.1
inputs:
  - plugin: example
    alias: heartbeat
    tag: svc.heartbeat
    properties:
      interval_sec: "10"
outputs:
  - name: console
    type: stdout
    match: "svc.*"
  - name: archive
    type: file
    connection: /tmp/flit-out
    offline_buffer_time: -3
    options:
      compress: gzip
`
	path := filepath.Join(t.TempDir(), "flitd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	conf := ParseFlitConfig(path)

	require.Equal(t, slog.LevelDebug, conf.GetLogLevel())
	require.Equal(t, "/tmp/flit-test", conf.DataDir)
	require.Equal(t, "/tmp/flit-plugins", conf.PluginsDir)
	require.Equal(t, 2021, conf.Http.ListenPort)
	require.Equal(t, "127.0.0.1", conf.Http.ListenAddress)

	require.Len(t, conf.Inputs, 1)
	require.Equal(t, "example", conf.Inputs[0].PluginName)
	require.Equal(t, "heartbeat", conf.Inputs[0].Alias)
	require.Equal(t, "svc.heartbeat", conf.Inputs[0].Tag)
	require.Equal(t, map[string]string{"interval_sec": "10"}, conf.Inputs[0].Properties)

	require.Len(t, conf.Outputs, 2)
	require.Equal(t, "stdout", conf.Outputs[0].OutputType)
	require.Equal(t, "svc.*", conf.Outputs[0].Match)
	require.Equal(t, "/tmp/flit-out", conf.Outputs[1].Connection)
	require.EqualValues(t, 0, conf.Outputs[1].OfflineBufferTime)
	require.Equal(t, "gzip", conf.Outputs[1].Options["compress"])
}

func TestToOutputUnknownType(t *testing.T) {
	oc := OutputConf{Name: "bogus", OutputType: "carrier_pigeon"}
	_, err := oc.ToOutput(FlitConf{DataDir: t.TempDir()})
	require.Error(t, err)
}
