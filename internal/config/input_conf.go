package config

import (
	"fmt"

	"flit.hoyle.net/internal/engine"
	"flit.hoyle.net/internal/plugin"
)

type InputConf struct {
	PluginName string `yaml:"plugin"`
	Alias      string
	Tag        string
	Properties map[string]string
}

// ToInstance resolves the plugin by name and registers an instance of it
// with the engine.
func (ic *InputConf) ToInstance(e *engine.Engine) error {
	p, ok := plugin.Resolve(ic.PluginName)
	if !ok {
		return fmt.Errorf("input plugin %s not found", ic.PluginName)
	}

	_, err := e.AddInstance(p, ic.Alias, ic.Tag, ic.Properties)
	if err != nil {
		return fmt.Errorf("failed to initialize input %s: %w", ic.PluginName, err)
	}
	return nil
}
