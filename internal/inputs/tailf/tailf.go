// Package tailf implements a file-tailing input. Each collect cycle drains
// the lines the tailer accumulated since the previous one and emits one
// record per line. Read offsets survive restarts through a small badger
// index, so a rotated or already-read file is not replayed.
package tailf

import (
	"encoding/binary"
	"io"
	"log/slog"
	"os"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/nxadm/tail"

	"flit.hoyle.net/internal/logger"
	"flit.hoyle.net/pkg/event"
	"flit.hoyle.net/pkg/input"
)

type context struct {
	tailer   *tail.Tail
	index    *badger.DB
	maxLines int
}

// Plugin is the tailf input descriptor.
var Plugin = &input.Plugin{
	Name:        "tailf",
	Description: "Tail a file and emit one record per line",
	EventType:   "logs",
	ConfigMap: input.ConfigMap{
		{Key: "path", Default: "", Description: "File to tail."},
		{Key: "interval_sec", Default: "1", Description: "Collect interval."},
		{Key: "max_lines", Default: "500", Description: "Maximum lines drained per collect cycle."},
		{Key: "index_dir", Default: "", Description: "Directory for the read-offset index. Empty disables offset persistence."},
	},
	Init:    cbInit,
	Collect: cbCollect,
	Exit:    cbExit,
}

func init() {
	input.MustRegister(Plugin)
}

func cbInit(ins *input.Instance) input.Status {
	path := ins.Property("path")
	if path == "" {
		logger.Error("tailf requires a path", slog.String("instance", ins.Name()))
		return input.Error
	}
	interval, err := ins.PropertyInt("interval_sec")
	if err != nil {
		logger.Error("Invalid interval_sec", slog.String("instance", ins.Name()), slog.Any("error", err))
		return input.Error
	}
	maxLines, err := ins.PropertyInt("max_lines")
	if err != nil || maxLines <= 0 {
		logger.Error("Invalid max_lines", slog.String("instance", ins.Name()), slog.Any("error", err))
		return input.Error
	}

	ctx := &context{maxLines: maxLines}

	loc := &tail.SeekInfo{Whence: io.SeekStart}
	if dir := ins.Property("index_dir"); dir != "" {
		db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(logger.Default()))
		if err != nil {
			logger.Error("Failed to open offset index", slog.String("instance", ins.Name()), slog.Any("error", err))
			return input.Error
		}
		ctx.index = db
		loc, _ = findLastReadOffset(db, path)
	}

	tailer, err := tail.TailFile(path, tail.Config{
		Follow:        true,
		ReOpen:        true,
		CompleteLines: true,
		Location:      loc,
		Logger:        logger.Default(),
	})
	if err != nil {
		logger.Error("Could not open file for tailing", slog.String("file", path), slog.Any("error", err))
		if ctx.index != nil {
			ctx.index.Close()
		}
		return input.Error
	}
	ctx.tailer = tailer

	ins.SetContext(ctx)
	ins.SetInterval(time.Duration(interval) * time.Second)
	return input.OK
}

func cbCollect(ins *input.Instance) input.Status {
	ctx := ins.Context().(*context)

	var recs []event.Record
	for len(recs) < ctx.maxLines {
		select {
		case line, ok := <-ctx.tailer.Lines:
			if !ok {
				logger.Warn("Tail channel closed", slog.String("file", ctx.tailer.Filename))
				return drainToIngest(ins, recs)
			}
			if line.Err != nil {
				logger.Error("Tail error", slog.String("file", ctx.tailer.Filename), slog.Any("error", line.Err))
				continue
			}
			recs = append(recs, event.Record{
				Time:   event.EventTime{Time: ins.Now()},
				Fields: map[string]any{"log": line.Text},
			})
		default:
			return drainToIngest(ins, recs)
		}
	}
	return drainToIngest(ins, recs)
}

func drainToIngest(ins *input.Instance, recs []event.Record) input.Status {
	if len(recs) == 0 {
		return input.OK
	}
	buf, err := event.MarshalAll(recs)
	if err != nil {
		logger.Error("Failed to encode records", slog.String("instance", ins.Name()), slog.Any("error", err))
		return input.Error
	}
	status := ins.Ingest("", buf)
	if status != input.OK {
		logger.Error("Ingestion rejected records",
			slog.String("instance", ins.Name()), slog.Int("status", int(status)))
	}
	return status
}

func cbExit(ins *input.Instance) input.Status {
	ctx, ok := ins.Context().(*context)
	if !ok {
		return input.OK
	}

	offset, err := ctx.tailer.Tell()
	if err != nil {
		logger.Error("cannot get file offset, resetting to 0",
			slog.String("file", ctx.tailer.Filename), slog.Any("error", err))
		offset = 0
	}
	ctx.tailer.Stop()
	ctx.tailer.Cleanup()

	if ctx.index != nil {
		err = ctx.index.Update(func(txn *badger.Txn) error {
			return txn.Set([]byte(ctx.tailer.Filename), int64ToBytes(offset))
		})
		if err != nil {
			logger.Error("error when saving file offset",
				slog.String("file", ctx.tailer.Filename), slog.Any("error", err))
		}
		ctx.index.Close()
	}

	ins.ClearContext()
	return input.OK
}

func int64ToBytes(i int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(i))
	return b
}

func bytesToInt64(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

func findLastReadOffset(indexDB *badger.DB, filename string) (location *tail.SeekInfo, err error) {
	location = &tail.SeekInfo{}
	location.Whence = io.SeekStart

	err = indexDB.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(filename))
		if err != nil {
			// no stored offset, start from the beginning
			location.Offset = 0
			return nil
		}
		return item.Value(func(val []byte) error {
			location.Offset = bytesToInt64(val)
			return nil
		})
	})

	f, statErr := os.Stat(filename)
	// offset greater than size means the file was rotated
	if statErr != nil || location.Offset > f.Size() {
		location.Offset = 0
	}

	return location, err
}
