package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/gzip"

	"flit.hoyle.net/pkg/event"
)

// File appends records to per-tag files as JSON lines, optionally gzip
// compressed. One file per tag under the configured directory.
type File struct {
	baseOutput
	dir      string
	compress bool
	mu       sync.Mutex
	files    map[string]*fileSink
}

type fileSink struct {
	f  *os.File
	gz *gzip.Writer
}

func NewFile(name, dir string, opts map[string]string) (fo *File, err error) {
	fo = &File{
		baseOutput: baseOutput{
			name:       name,
			outputType: "file",
		},
		dir:   dir,
		files: make(map[string]*fileSink),
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("output: cannot create file output dir %s: %w", dir, err)
	}
	if opts["compress"] == "gzip" {
		fo.compress = true
	}
	fo.initOutputMetrics()

	return fo, nil
}

func (fo *File) Flush(tag string, recs []event.Record) bool {
	return genericFlush(&fo.baseOutput, tag, recs, fo.writeRecords)
}

func (fo *File) Cleanup() {
	fo.mu.Lock()
	defer fo.mu.Unlock()
	for _, s := range fo.files {
		if s.gz != nil {
			s.gz.Close()
		}
		s.f.Close()
	}
	fo.files = make(map[string]*fileSink)
	fo.baseOutput.Cleanup()
}

type fileLine struct {
	Timestamp float64        `json:"date"`
	Fields    map[string]any `json:"record"`
}

func (fo *File) writeRecords(tag string, recs []event.Record) error {
	fo.mu.Lock()
	defer fo.mu.Unlock()

	sink, err := fo.sinkFor(tag)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(sink.writer())
	for _, r := range recs {
		line := fileLine{
			Timestamp: float64(r.Time.Seconds()) + float64(r.Time.Nanos())/1e9,
			Fields:    r.Fields,
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	if sink.gz != nil {
		return sink.gz.Flush()
	}
	return nil
}

func (fo *File) sinkFor(tag string) (*fileSink, error) {
	if s, ok := fo.files[tag]; ok {
		return s, nil
	}

	name := tag + ".log"
	if fo.compress {
		name += ".gz"
	}
	f, err := os.OpenFile(filepath.Join(fo.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	s := &fileSink{f: f}
	if fo.compress {
		s.gz = gzip.NewWriter(f)
	}
	fo.files[tag] = s
	return s, nil
}

func (s *fileSink) writer() interface{ Write([]byte) (int, error) } {
	if s.gz != nil {
		return s.gz
	}
	return s.f
}
