package input

import (
	"fmt"
	"strconv"
	"time"

	"flit.hoyle.net/pkg/handle"
)

// IngestFunc is the engine's ingestion entry point. It receives the instance
// the buffer originates from, an optional routing tag (empty means "use the
// instance tag") and a buffer of serialized records, and returns a status the
// caller propagates unchanged.
type IngestFunc func(ins *Instance, tag string, data []byte) Status

// Instance is the engine-side state of one configured input. The plugin's
// own state lives behind an opaque context handle; the instance never holds
// it directly in a way callbacks could alias.
type Instance struct {
	plugin     *Plugin
	alias      string
	tag        string
	properties map[string]string
	interval   time.Duration
	ctx        handle.Handle
	ingest     IngestFunc

	// Now supplies wall-clock time to collectors. Tests swap it out.
	Now func() time.Time
}

// NewInstance binds a plugin descriptor to per-instance configuration and
// the engine's ingestion entry point.
func NewInstance(p *Plugin, alias, tag string, properties map[string]string, ingest IngestFunc) *Instance {
	if alias == "" {
		alias = p.Name
	}
	if tag == "" {
		tag = alias
	}
	return &Instance{
		plugin:     p,
		alias:      alias,
		tag:        tag,
		properties: properties,
		ingest:     ingest,
		Now:        time.Now,
	}
}

// Plugin returns the descriptor this instance runs.
func (ins *Instance) Plugin() *Plugin {
	return ins.plugin
}

// Name returns the configured alias, falling back to the plugin name.
func (ins *Instance) Name() string {
	return ins.alias
}

// Tag returns the routing tag records from this instance carry.
func (ins *Instance) Tag() string {
	return ins.tag
}

// Property returns the value of a configuration key, falling back to the
// ConfigMap default when the key is not set on the instance.
func (ins *Instance) Property(key string) string {
	if v, ok := ins.properties[key]; ok {
		return v
	}
	if e, ok := ins.plugin.ConfigMap.Lookup(key); ok {
		return e.Default
	}
	return ""
}

// Properties returns a copy of the raw instance properties, without
// ConfigMap defaults applied. External plugin transports forward these to
// the plugin process wholesale.
func (ins *Instance) Properties() map[string]string {
	out := make(map[string]string, len(ins.properties))
	for k, v := range ins.properties {
		out[k] = v
	}
	return out
}

// PropertyInt parses an integer configuration key. A malformed value is an
// error; Init callbacks turn it into a non-zero status.
func (ins *Instance) PropertyInt(key string) (int, error) {
	raw := ins.Property(key)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("input: property %s=%q is not an integer: %w", key, raw, err)
	}
	return n, nil
}

// SetInterval registers how often the engine should invoke Collect.
// Init callbacks call this; the engine reads it once Init succeeds.
func (ins *Instance) SetInterval(d time.Duration) {
	ins.interval = d
}

// Interval returns the registered collect interval.
func (ins *Instance) Interval() time.Duration {
	return ins.interval
}

// SetContext transfers ownership of the plugin context to the engine. The
// engine keeps only an opaque handle and presents the value back on every
// later callback. Setting a new context releases any previous one.
func (ins *Instance) SetContext(v any) {
	if ins.ctx.Valid() {
		ins.ctx.Delete()
	}
	ins.ctx = handle.New(v)
}

// Context resolves the opaque handle back to the plugin context, or nil when
// none was set.
func (ins *Instance) Context() any {
	if !ins.ctx.Valid() {
		return nil
	}
	return ins.ctx.Value()
}

// HasContext reports whether a context is currently allocated.
func (ins *Instance) HasContext() bool {
	return ins.ctx.Valid()
}

// ClearContext releases the context handle. Calling it without a live
// context is a no-op, so an exit path that never initialized stays safe.
func (ins *Instance) ClearContext() {
	if ins.ctx.Valid() {
		ins.ctx.Delete()
	}
	ins.ctx = 0
}

// Ingest hands a buffer of serialized records to the engine. The returned
// status must be propagated unchanged by the calling collector.
func (ins *Instance) Ingest(tag string, data []byte) Status {
	if ins.ingest == nil {
		return Error
	}
	if tag == "" {
		tag = ins.tag
	}
	return ins.ingest(ins, tag, data)
}
