// Package plugin loads input plugins built outside the daemon binary.
// Shared objects built with -buildmode=plugin are loaded in-process; plain
// executables speaking the remote transport run out-of-process.
package plugin

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"plugin"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"flit.hoyle.net/internal/logger"
	"flit.hoyle.net/pkg/input"
)

// FilePrefix is the mandatory file name prefix for input plugin shared
// objects. A plugin named "example" lives in flit-in_example.so.
const FilePrefix = "flit-in_"

// DescriptorSymbol is the exported variable every input plugin shared
// object must provide. Its type is *input.Plugin.
const DescriptorSymbol = "InputPlugin"

type PluginRegistry struct {
	plugins map[string]*LoadedPlugin
	mutex   sync.RWMutex
}

type LoadedPlugin struct {
	Descriptor *input.Plugin
	Path       string
}

var registry = &PluginRegistry{
	plugins: make(map[string]*LoadedPlugin),
}

func GetRegistry() *PluginRegistry {
	return registry
}

// PluginNameFromPath derives the plugin name from a shared object path and
// enforces the naming convention. flit-in_example.so yields "example".
func PluginNameFromPath(pluginPath string) (string, error) {
	base := filepath.Base(pluginPath)
	if filepath.Ext(base) != ".so" {
		return "", fmt.Errorf("plugin file %s must have a .so extension", base)
	}
	if !strings.HasPrefix(base, FilePrefix) {
		return "", fmt.Errorf("plugin file %s must be named %s<name>.so", base, FilePrefix)
	}
	name := strings.TrimSuffix(strings.TrimPrefix(base, FilePrefix), ".so")
	if name == "" {
		return "", fmt.Errorf("plugin file %s has an empty plugin name", base)
	}
	return name, nil
}

// PluginFileName returns the shared object file name for a plugin name.
func PluginFileName(name string) string {
	return FilePrefix + name + ".so"
}

func (pr *PluginRegistry) LoadPlugin(pluginPath string) error {
	pr.mutex.Lock()
	defer pr.mutex.Unlock()

	logger.Info("Loading plugin", slog.String("path", pluginPath))

	name, err := PluginNameFromPath(pluginPath)
	if err != nil {
		return err
	}

	p, err := plugin.Open(pluginPath)
	if err != nil {
		return fmt.Errorf("failed to open plugin %s: %w", pluginPath, err)
	}

	sym, err := p.Lookup(DescriptorSymbol)
	if err != nil {
		return fmt.Errorf("plugin %s does not export %s: %w", pluginPath, DescriptorSymbol, err)
	}

	descPtr, ok := sym.(**input.Plugin)
	if !ok {
		return fmt.Errorf("plugin %s exports %s with the wrong type", pluginPath, DescriptorSymbol)
	}
	desc := *descPtr
	if desc == nil {
		return fmt.Errorf("plugin %s exports a nil %s", pluginPath, DescriptorSymbol)
	}

	if err := desc.Validate(); err != nil {
		return fmt.Errorf("plugin %s has an invalid descriptor: %w", pluginPath, err)
	}
	if desc.Name != name {
		return fmt.Errorf("plugin %s declares name %q but its file implies %q", pluginPath, desc.Name, name)
	}

	pr.plugins[name] = &LoadedPlugin{
		Descriptor: desc,
		Path:       pluginPath,
	}

	logger.Info("Successfully loaded plugin",
		slog.String("name", name),
		slog.String("description", desc.Description))

	promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "flit_plugin_info",
		Help:        "Information about loaded input plugins",
		ConstLabels: prometheus.Labels{"plugin_name": name, "plugin_transport": "shared_object"},
	}).Set(1)

	return nil
}

// LoadPluginsFromDir loads all conventionally named shared objects from the
// specified directory.
func (pr *PluginRegistry) LoadPluginsFromDir(pluginDir string) error {
	logger.Info("Loading plugins from directory", slog.String("dir", pluginDir))

	pluginPaths, err := filepath.Glob(filepath.Join(pluginDir, FilePrefix+"*.so"))
	if err != nil {
		return fmt.Errorf("failed to list plugin files in %s: %w", pluginDir, err)
	}

	var loadErrors []string
	for _, pluginPath := range pluginPaths {
		if err := pr.LoadPlugin(pluginPath); err != nil {
			logger.Error("Failed to load plugin", slog.String("path", pluginPath), slog.Any("error", err))
			loadErrors = append(loadErrors, fmt.Sprintf("%s: %v", pluginPath, err))
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("failed to load some plugins: %s", strings.Join(loadErrors, "; "))
	}
	logger.Info("Successfully loaded plugins", slog.Int("count", len(pr.plugins)))
	return nil
}

// GetPlugin returns a loaded plugin by name.
func (pr *PluginRegistry) GetPlugin(name string) (*LoadedPlugin, bool) {
	pr.mutex.RLock()
	defer pr.mutex.RUnlock()

	p, exists := pr.plugins[name]
	return p, exists
}

// ListPlugins returns the names of all loaded plugins.
func (pr *PluginRegistry) ListPlugins() []string {
	pr.mutex.RLock()
	defer pr.mutex.RUnlock()

	names := make([]string, 0, len(pr.plugins))
	for name := range pr.plugins {
		names = append(names, name)
	}
	return names
}

// Resolve finds an input plugin descriptor by name, preferring compiled-in
// plugins over dynamically loaded ones.
func Resolve(name string) (*input.Plugin, bool) {
	if p, ok := input.Lookup(name); ok {
		return p, true
	}
	if lp, ok := registry.GetPlugin(name); ok {
		return lp.Descriptor, true
	}
	if rp, ok := remoteRegistry.GetPlugin(name); ok {
		return rp.Descriptor(), true
	}
	return nil, false
}
