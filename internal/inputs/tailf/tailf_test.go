package tailf

import (
	"io"
	"os"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"flit.hoyle.net/pkg/event"
	"flit.hoyle.net/pkg/input"
)

type capture struct {
	buffers [][]byte
}

func (c *capture) ingest(ins *input.Instance, tag string, data []byte) input.Status {
	c.buffers = append(c.buffers, data)
	return input.OK
}

func (c *capture) records(t *testing.T) []event.Record {
	t.Helper()
	var recs []event.Record
	for _, b := range c.buffers {
		rs, err := event.UnmarshalAll(b)
		require.NoError(t, err)
		recs = append(recs, rs...)
	}
	return recs
}

func createTempBadgerDB(t *testing.T) (*badger.DB, func()) {
	dir := t.TempDir()
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	return db, func() { db.Close() }
}

func createTempFileWithSize(t *testing.T, size int64) string {
	tmpfile, err := os.CreateTemp(t.TempDir(), "testfile")
	require.NoError(t, err)
	defer tmpfile.Close()
	if size > 0 {
		_, err = tmpfile.Seek(size-1, io.SeekStart)
		require.NoError(t, err)
		_, err = tmpfile.Write([]byte{0})
		require.NoError(t, err)
	}
	return tmpfile.Name()
}

func TestFindLastReadOffset_NoOffsetInDB(t *testing.T) {
	db, cleanup := createTempBadgerDB(t)
	defer cleanup()
	filename := createTempFileWithSize(t, 100)

	location, err := findLastReadOffset(db, filename)
	require.NoError(t, err)
	require.Equal(t, io.SeekStart, location.Whence)
	require.Equal(t, int64(0), location.Offset)
}

func TestFindLastReadOffset_OffsetWithinFileSize(t *testing.T) {
	db, cleanup := createTempBadgerDB(t)
	defer cleanup()
	filename := createTempFileWithSize(t, 200)

	err := db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(filename), int64ToBytes(100))
	})
	require.NoError(t, err)

	location, err := findLastReadOffset(db, filename)
	require.NoError(t, err)
	require.Equal(t, int64(100), location.Offset)
}

func TestFindLastReadOffset_OffsetBeyondFileSize(t *testing.T) {
	db, cleanup := createTempBadgerDB(t)
	defer cleanup()
	filename := createTempFileWithSize(t, 50)

	err := db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(filename), int64ToBytes(100))
	})
	require.NoError(t, err)

	location, err := findLastReadOffset(db, filename)
	require.NoError(t, err)
	require.Equal(t, int64(0), location.Offset, "offset beyond file size means rotation, restart from 0")
}

func TestInitRequiresPath(t *testing.T) {
	sink := &capture{}
	ins := input.NewInstance(Plugin, "no-path", "", nil, sink.ingest)
	require.Equal(t, input.Error, Plugin.Init(ins))
	require.False(t, ins.HasContext())
}

func TestInitRejectsMalformedConfig(t *testing.T) {
	path := createTempFileWithSize(t, 0)

	tests := []struct {
		name  string
		props map[string]string
	}{
		{"Bad interval", map[string]string{"path": path, "interval_sec": "often"}},
		{"Bad max_lines", map[string]string{"path": path, "max_lines": "lots"}},
		{"Zero max_lines", map[string]string{"path": path, "max_lines": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins := input.NewInstance(Plugin, "bad-config", "", tt.props, (&capture{}).ingest)
			require.Equal(t, input.Error, Plugin.Init(ins))
			require.False(t, ins.HasContext())
		})
	}
}

func TestCollectEmitsOneRecordPerLine(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "tailf")
	require.NoError(t, err)
	_, err = f.WriteString("first\nsecond\nthird\n")
	require.NoError(t, err)
	require.NoError(t, f.Sync())

	sink := &capture{}
	ins := input.NewInstance(Plugin, "tail", "files", map[string]string{"path": f.Name()}, sink.ingest)
	require.Equal(t, input.OK, Plugin.Init(ins))
	require.Equal(t, time.Second, ins.Interval())

	require.Eventually(t, func() bool {
		Plugin.Collect(ins)
		return len(sink.records(t)) >= 3
	}, 5*time.Second, 20*time.Millisecond)

	recs := sink.records(t)
	require.Len(t, recs, 3)
	want := []string{"first", "second", "third"}
	for i, r := range recs {
		line, ok := r.String("log")
		require.True(t, ok)
		require.Equal(t, want[i], line)
	}

	require.Equal(t, input.OK, Plugin.Exit(ins))
	require.False(t, ins.HasContext())
	f.Close()
}

func TestCollectWithNoPendingLines(t *testing.T) {
	path := createTempFileWithSize(t, 0)
	sink := &capture{}
	ins := input.NewInstance(Plugin, "quiet", "", map[string]string{"path": path}, sink.ingest)
	require.Equal(t, input.OK, Plugin.Init(ins))
	defer Plugin.Exit(ins)

	require.Equal(t, input.OK, Plugin.Collect(ins))
	require.Empty(t, sink.buffers, "no lines means no ingestion")
}
