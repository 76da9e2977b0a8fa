package plugin

import (
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	goplugin "github.com/hashicorp/go-plugin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"flit.hoyle.net/internal/logger"
	"flit.hoyle.net/pkg/input"
	"flit.hoyle.net/pkg/remote"
)

// RemotePluginRegistry manages out-of-process input plugins. Each plugin
// is a standalone executable served with remote.Serve.
type RemotePluginRegistry struct {
	plugins map[string]*RemoteLoadedPlugin
	mutex   sync.RWMutex
}

// RemoteLoadedPlugin wraps a plugin process client and the descriptor that
// bridges it into the instance lifecycle.
type RemoteLoadedPlugin struct {
	Name   string
	Path   string
	Client *goplugin.Client

	descriptor *input.Plugin
}

var remoteRegistry = &RemotePluginRegistry{
	plugins: make(map[string]*RemoteLoadedPlugin),
}

// GetRemoteRegistry returns the global remote plugin registry.
func GetRemoteRegistry() *RemotePluginRegistry {
	return remoteRegistry
}

// RemotePluginNameFromPath derives the plugin name from an executable
// path. The flit-in_ prefix applies here too; an extension is optional so
// both flit-in_example and flit-in_example.exe work.
func RemotePluginNameFromPath(pluginPath string) (string, error) {
	base := filepath.Base(pluginPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if !strings.HasPrefix(base, FilePrefix) {
		return "", fmt.Errorf("plugin executable %s must be named %s<name>", base, FilePrefix)
	}
	name := strings.TrimPrefix(base, FilePrefix)
	if name == "" {
		return "", fmt.Errorf("plugin executable %s has an empty plugin name", base)
	}
	return name, nil
}

// LoadPlugin registers a plugin executable. The process is launched lazily
// on the first dispense.
func (pr *RemotePluginRegistry) LoadPlugin(pluginPath string) error {
	pr.mutex.Lock()
	defer pr.mutex.Unlock()

	logger.Info("Loading remote plugin", slog.String("path", pluginPath))

	name, err := RemotePluginNameFromPath(pluginPath)
	if err != nil {
		return err
	}

	if _, exists := pr.plugins[name]; exists {
		logger.Info("Remote plugin already loaded", slog.String("name", name))
		return nil
	}

	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig: remote.Handshake,
		Plugins: map[string]goplugin.Plugin{
			remote.CollectorPluginName: &remote.CollectorPlugin{},
		},
		Cmd:              exec.Command(pluginPath),
		AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolNetRPC},
		Logger:           logger.NewHCLogAdapter(),
	})

	lp := &RemoteLoadedPlugin{
		Name:   name,
		Path:   pluginPath,
		Client: client,
	}
	lp.descriptor = lp.buildDescriptor()

	pr.plugins[name] = lp

	logger.Info("Successfully loaded remote plugin",
		slog.String("name", name),
		slog.String("path", pluginPath))

	promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "flit_remote_plugin_info",
		Help:        "Information about loaded remote input plugins",
		ConstLabels: prometheus.Labels{"plugin_name": name, "plugin_transport": "rpc"},
	}).Set(1)

	return nil
}

// LoadPluginsFromDir registers all conventionally named executables from
// the specified directory. Non-executable files are skipped.
func (pr *RemotePluginRegistry) LoadPluginsFromDir(pluginDir string) error {
	logger.Info("Loading remote plugins from directory", slog.String("dir", pluginDir))

	matches, err := filepath.Glob(filepath.Join(pluginDir, FilePrefix+"*"))
	if err != nil {
		return fmt.Errorf("failed to list plugin files in %s: %w", pluginDir, err)
	}

	var loadErrors []string
	loadedCount := 0

	for _, pluginPath := range matches {
		if filepath.Ext(pluginPath) == ".so" {
			// Shared objects belong to the in-process loader.
			continue
		}
		if _, err := exec.LookPath(pluginPath); err != nil {
			continue
		}

		if err := pr.LoadPlugin(pluginPath); err != nil {
			logger.Error("Failed to load remote plugin", slog.String("path", pluginPath), slog.Any("error", err))
			loadErrors = append(loadErrors, fmt.Sprintf("%s: %v", pluginPath, err))
		} else {
			loadedCount++
		}
	}

	if len(loadErrors) > 0 {
		logger.Warn("Failed to load some remote plugins", slog.String("errors", strings.Join(loadErrors, "; ")))
	}

	logger.Info("Loaded remote plugins from directory", slog.Int("count", loadedCount))
	return nil
}

// GetPlugin returns a loaded remote plugin by name.
func (pr *RemotePluginRegistry) GetPlugin(name string) (*RemoteLoadedPlugin, bool) {
	pr.mutex.RLock()
	defer pr.mutex.RUnlock()

	p, exists := pr.plugins[name]
	return p, exists
}

// CleanupAll shuts down all plugin processes.
func (pr *RemotePluginRegistry) CleanupAll() {
	pr.mutex.Lock()
	defer pr.mutex.Unlock()

	for name, lp := range pr.plugins {
		logger.Info("Killing remote plugin", slog.String("name", name))
		lp.Client.Kill()
	}

	pr.plugins = make(map[string]*RemoteLoadedPlugin)
}

// Descriptor returns an input plugin descriptor that forwards the
// lifecycle to the plugin process.
func (lp *RemoteLoadedPlugin) Descriptor() *input.Plugin {
	return lp.descriptor
}

func (lp *RemoteLoadedPlugin) dispense() (remote.Collector, error) {
	rpcClient, err := lp.Client.Client()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to plugin %s: %w", lp.Name, err)
	}

	raw, err := rpcClient.Dispense(remote.CollectorPluginName)
	if err != nil {
		return nil, fmt.Errorf("failed to dispense collector from plugin %s: %w", lp.Name, err)
	}

	col, ok := raw.(remote.Collector)
	if !ok {
		return nil, fmt.Errorf("plugin %s did not return a valid collector", lp.Name)
	}
	return col, nil
}

func (lp *RemoteLoadedPlugin) buildDescriptor() *input.Plugin {
	return &input.Plugin{
		Name:        lp.Name,
		Description: fmt.Sprintf("Remote input plugin %s", lp.Path),
		EventType:   "logs",
		Init: func(ins *input.Instance) input.Status {
			col, err := lp.dispense()
			if err != nil {
				logger.Error("Remote plugin init failed", slog.String("name", lp.Name), slog.Any("error", err))
				return input.Error
			}

			interval, err := col.Init(ins.Properties())
			if err != nil {
				logger.Error("Remote plugin rejected configuration", slog.String("name", lp.Name), slog.Any("error", err))
				return input.Error
			}

			ins.SetContext(col)
			if interval > 0 {
				ins.SetInterval(time.Duration(interval) * time.Second)
			}
			return input.OK
		},
		Collect: func(ins *input.Instance) input.Status {
			col, ok := ins.Context().(remote.Collector)
			if !ok {
				return input.Error
			}

			buf, err := col.Collect()
			if err != nil {
				logger.Error("Remote plugin collect failed", slog.String("name", lp.Name), slog.Any("error", err))
				return input.Error
			}
			if len(buf) == 0 {
				return input.OK
			}
			return ins.Ingest("", buf)
		},
		Exit: func(ins *input.Instance) input.Status {
			if col, ok := ins.Context().(remote.Collector); ok {
				if err := col.Exit(); err != nil {
					logger.Warn("Remote plugin exit failed", slog.String("name", lp.Name), slog.Any("error", err))
				}
			}
			ins.ClearContext()
			return input.OK
		},
	}
}
