package config

import (
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

type FlitConf struct {
	Inputs     []InputConf
	Outputs    []OutputConf
	DataDir    string   `yaml:"data_dir"`
	PluginsDir string   `yaml:"plugins_dir"`
	Http       HTTPConf `yaml:"http"`
	LogLevel   string   `yaml:"log_level"`
	slogLevel  slog.Level
}

func (fc *FlitConf) setLogLevel() {
	switch fc.LogLevel {
	case "DEBUG":
		fc.slogLevel = slog.LevelDebug
	case "INFO":
		fc.slogLevel = slog.LevelInfo
	case "WARN":
		fc.slogLevel = slog.LevelWarn
	case "ERROR":
		fc.slogLevel = slog.LevelError
	default:
		fc.slogLevel = slog.LevelInfo
	}
}

func (fc *FlitConf) GetLogLevel() slog.Level {
	return fc.slogLevel
}

type HTTPConf struct {
	ListenPort    int    `yaml:"listen_port"`
	ListenAddress string `yaml:"listen_address"`
}

func ParseFlitConfig(path string) (conf FlitConf) {
	file, err := os.ReadFile(path)
	if err != nil {
		panic("Cannot read flit config file!")
	}

	conf = FlitConf{}
	err = yaml.Unmarshal(file, &conf)
	if err != nil {
		panic("Cannot parse flit config!")
	}

	conf.setDataDir()
	conf.setPort()
	conf.setOfflineBuffers()
	conf.setLogLevel()

	return
}

func (fc *FlitConf) setDataDir() {
	if fc.DataDir == "" {
		fc.DataDir = "/var/lib/flit"
	}
}

func (fc *FlitConf) setPort() {
	if fc.Http.ListenPort == 0 {
		fc.Http.ListenPort = 2021
	}
}

func (fc *FlitConf) setOfflineBuffers() {
	for i := range fc.Outputs {
		if fc.Outputs[i].OfflineBufferTime < 0 {
			fc.Outputs[i].OfflineBufferTime = 0
		}
	}
}
