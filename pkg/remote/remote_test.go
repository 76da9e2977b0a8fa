package remote

import (
	"errors"
	"net"
	"net/rpc"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeCollector struct {
	props    map[string]string
	collects int
	exited   bool
	initErr  error
}

func (f *fakeCollector) Init(properties map[string]string) (int, error) {
	f.props = properties
	return 10, f.initErr
}

func (f *fakeCollector) Collect() ([]byte, error) {
	f.collects++
	return []byte{0x92, byte(f.collects)}, nil
}

func (f *fakeCollector) Exit() error {
	f.exited = true
	return nil
}

func newPipeClient(t *testing.T, impl Collector) *CollectorRPC {
	t.Helper()

	serverConn, clientConn := net.Pipe()
	server := rpc.NewServer()
	err := server.RegisterName("Plugin", &CollectorRPCServer{Impl: impl})
	require.NoError(t, err)
	go server.ServeConn(serverConn)

	client := rpc.NewClient(clientConn)
	t.Cleanup(func() { client.Close() })
	return &CollectorRPC{client: client}
}

func TestCollectorRoundtrip(t *testing.T) {
	impl := &fakeCollector{}
	c := newPipeClient(t, impl)

	interval, err := c.Init(map[string]string{"interval_sec": "10"})
	require.NoError(t, err)
	require.Equal(t, 10, interval)
	require.Equal(t, map[string]string{"interval_sec": "10"}, impl.props)

	buf, err := c.Collect()
	require.NoError(t, err)
	require.Equal(t, []byte{0x92, 0x01}, buf)

	buf, err = c.Collect()
	require.NoError(t, err)
	require.Equal(t, []byte{0x92, 0x02}, buf)

	require.NoError(t, c.Exit())
	require.True(t, impl.exited)
}

func TestCollectorInitError(t *testing.T) {
	impl := &fakeCollector{initErr: errors.New("bad property")}
	c := newPipeClient(t, impl)

	_, err := c.Init(nil)
	require.ErrorContains(t, err, "bad property")
}
