// Package input defines the contract between the flit engine and its input
// plugins.
//
// An input plugin is described by a Plugin descriptor: identity, an event
// type tag, a configuration map and four callbacks. The descriptor is
// immutable once registered; the engine discovers it either through the
// built-in registry or by symbol lookup in a dynamically loaded module.
//
// Plugin lifecycle, driven entirely by the engine:
//
//  1. Init: read configuration, allocate a context, hand it to the engine
//     via Instance.SetContext, register the collect interval. A non-zero
//     status aborts the instance and must leave no context allocated.
//  2. PreRun (optional): invoked once before the first collect cycle.
//  3. Collect: invoked periodically, synchronously and serially. Builds and
//     encodes records and passes buffers to Instance.Ingest.
//  4. Exit: invoked exactly once after the last collect, releases the
//     context.
//
// Minimal plugin:
//
//	var Example = &input.Plugin{
//	    Name:        "example",
//	    Description: "Example input",
//	    EventType:   "logs",
//	    ConfigMap: input.ConfigMap{
//	        {Key: "interval_sec", Default: "30", Description: "Collect interval."},
//	    },
//	    Init:    cbInit,
//	    Collect: cbCollect,
//	    Exit:    cbExit,
//	}
package input

import (
	"errors"
	"fmt"
)

// Status is the integer result of a plugin callback. Zero means success;
// anything else is a failure the engine interprets.
type Status int

const (
	// OK reports success.
	OK Status = 0

	// Error reports an unrecoverable callback failure.
	Error Status = -1

	// Retry asks the engine to invoke the callback again on the next cycle.
	Retry Status = -2
)

// ConfigEntry declares one configuration key an input recognizes.
// Defaults are kept as strings; Instance accessors do the parsing.
type ConfigEntry struct {
	// Key is the configuration key name.
	Key string

	// Default is the value used when the key is absent from the instance
	// properties.
	Default string

	// Description is shown in configuration listings.
	Description string
}

// ConfigMap is the fixed set of configuration keys an input recognizes.
type ConfigMap []ConfigEntry

// Lookup returns the entry for a key.
func (m ConfigMap) Lookup(key string) (ConfigEntry, bool) {
	for _, e := range m {
		if e.Key == key {
			return e, true
		}
	}
	return ConfigEntry{}, false
}

// Callback signatures shared by every input plugin.
type (
	// InitFunc initializes one instance of the plugin.
	InitFunc func(ins *Instance) Status

	// PreRunFunc runs once between Init and the first Collect. Optional.
	PreRunFunc func(ins *Instance) Status

	// CollectFunc produces records for one collect cycle.
	CollectFunc func(ins *Instance) Status

	// ExitFunc tears one instance down.
	ExitFunc func(ins *Instance) Status
)

// Plugin is the static descriptor of an input plugin. It is created at
// load time and never mutated afterwards.
type Plugin struct {
	// Name is the plugin identifier. It couples with the module file name:
	// plugin "example" ships as flit-in_example.so.
	Name string

	// Description is a short human-readable summary.
	Description string

	// EventType tags the kind of events the plugin emits, e.g. "logs".
	EventType string

	// ConfigMap lists the configuration keys the plugin recognizes.
	ConfigMap ConfigMap

	// Init, PreRun, Collect and Exit are the lifecycle callbacks.
	// PreRun may be nil; the other three are mandatory.
	Init    InitFunc
	PreRun  PreRunFunc
	Collect CollectFunc
	Exit    ExitFunc
}

// Validate checks that the descriptor is complete enough to run.
func (p *Plugin) Validate() error {
	if p == nil {
		return errors.New("input: nil plugin descriptor")
	}
	if p.Name == "" {
		return errors.New("input: plugin descriptor has no name")
	}
	if p.Init == nil || p.Collect == nil || p.Exit == nil {
		return fmt.Errorf("input: plugin %s must define Init, Collect and Exit", p.Name)
	}
	return nil
}
