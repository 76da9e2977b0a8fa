package input

import (
	"fmt"
	"sort"
	"sync"
)

// Built-in plugin registry. Statically linked inputs register themselves
// here; dynamically loaded modules go through internal/plugin instead.
var registry = struct {
	sync.RWMutex
	plugins map[string]*Plugin
}{plugins: make(map[string]*Plugin)}

// Register adds a built-in plugin descriptor to the registry. Registering an
// invalid descriptor or a duplicate name is an error.
func Register(p *Plugin) error {
	if err := p.Validate(); err != nil {
		return err
	}
	registry.Lock()
	defer registry.Unlock()
	if _, exists := registry.plugins[p.Name]; exists {
		return fmt.Errorf("input: plugin %s already registered", p.Name)
	}
	registry.plugins[p.Name] = p
	return nil
}

// MustRegister is Register for package init paths.
func MustRegister(p *Plugin) {
	if err := Register(p); err != nil {
		panic(err)
	}
}

// Lookup returns a registered plugin by name.
func Lookup(name string) (*Plugin, bool) {
	registry.RLock()
	defer registry.RUnlock()
	p, ok := registry.plugins[name]
	return p, ok
}

// Plugins lists registered descriptors sorted by name.
func Plugins() []*Plugin {
	registry.RLock()
	defer registry.RUnlock()
	out := make([]*Plugin, 0, len(registry.plugins))
	for _, p := range registry.plugins {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
