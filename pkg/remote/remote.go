// Package remote defines the wire contract for out-of-process input
// plugins. External collectors are plain executables served over
// hashicorp/go-plugin's net/rpc transport; the daemon launches them and
// drives the same init/collect/exit lifecycle used by in-process plugins.
package remote

import (
	"net/rpc"

	"github.com/hashicorp/go-plugin"
)

// ProtocolVersion gates daemon/plugin compatibility. Bump it whenever the
// Collector surface changes incompatibly.
const ProtocolVersion = 1

// CollectorPluginName is the key plugins are served and dispensed under.
const CollectorPluginName = "collector"

// Handshake is shared by the daemon and every external plugin binary. The
// magic cookie is a basic sanity check that keeps users from launching a
// plugin executable by hand.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  ProtocolVersion,
	MagicCookieKey:   "FLIT_PLUGIN",
	MagicCookieValue: "e1c03cf5fb4cf3211295b8ae9b8f6c52",
}

// Collector is what an external input plugin implements. Init receives the
// raw instance properties and returns the collect interval in seconds (0
// means use the daemon default). Collect returns a serialized record
// buffer; an empty buffer means nothing to ingest this cycle.
type Collector interface {
	Init(properties map[string]string) (int, error)
	Collect() ([]byte, error)
	Exit() error
}

// CollectorRPC is the client half of the transport. It lives in the daemon
// and forwards Collector calls to the plugin process.
type CollectorRPC struct {
	client *rpc.Client
}

func (c *CollectorRPC) Init(properties map[string]string) (int, error) {
	var interval int
	err := c.client.Call("Plugin.Init", properties, &interval)
	return interval, err
}

func (c *CollectorRPC) Collect() ([]byte, error) {
	var buf []byte
	err := c.client.Call("Plugin.Collect", struct{}{}, &buf)
	return buf, err
}

func (c *CollectorRPC) Exit() error {
	return c.client.Call("Plugin.Exit", struct{}{}, &struct{}{})
}

// CollectorRPCServer is the server half, running inside the plugin process.
type CollectorRPCServer struct {
	Impl Collector
}

func (s *CollectorRPCServer) Init(properties map[string]string, interval *int) error {
	i, err := s.Impl.Init(properties)
	*interval = i
	return err
}

func (s *CollectorRPCServer) Collect(_ struct{}, buf *[]byte) error {
	b, err := s.Impl.Collect()
	*buf = b
	return err
}

func (s *CollectorRPCServer) Exit(_ struct{}, _ *struct{}) error {
	return s.Impl.Exit()
}

// CollectorPlugin adapts a Collector to go-plugin's Plugin interface. The
// daemon side leaves Impl nil and only dispenses clients.
type CollectorPlugin struct {
	Impl Collector
}

func (p *CollectorPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &CollectorRPCServer{Impl: p.Impl}, nil
}

func (p *CollectorPlugin) Client(_ *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &CollectorRPC{client: c}, nil
}

// Serve runs an external plugin. Plugin binaries call it from main and
// never return.
func Serve(impl Collector) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]plugin.Plugin{
			CollectorPluginName: &CollectorPlugin{Impl: impl},
		},
	})
}
