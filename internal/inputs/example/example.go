// Package example implements the canonical flit input: every collect cycle
// it emits one record counting how many times it has been invoked. It is
// small on purpose; new input plugins start from a copy of it.
package example

import (
	"log/slog"
	"time"

	"flit.hoyle.net/internal/logger"
	"flit.hoyle.net/pkg/event"
	"flit.hoyle.net/pkg/input"
)

// context is the per-instance plugin state. The engine owns it between Init
// and Exit; callbacks borrow it through the instance's opaque handle.
type context struct {
	collectCount uint64
}

// Plugin is the example input descriptor, exported for symbol lookup when
// the package is built as a shared module.
var Plugin = &input.Plugin{
	Name:        "example",
	Description: "Example input that counts its own collect calls",
	EventType:   "logs",
	ConfigMap: input.ConfigMap{
		{Key: "interval_sec", Default: "30", Description: "Collect interval."},
	},
	Init:    cbInit,
	Collect: cbCollect,
	Exit:    cbExit,
}

func init() {
	input.MustRegister(Plugin)
}

func cbInit(ins *input.Instance) input.Status {
	interval, err := ins.PropertyInt("interval_sec")
	if err != nil {
		logger.Error("Invalid interval_sec", slog.String("instance", ins.Name()), slog.Any("error", err))
		return input.Error
	}

	ins.SetContext(&context{})
	ins.SetInterval(time.Duration(interval) * time.Second)
	return input.OK
}

func cbCollect(ins *input.Instance) input.Status {
	ctx := ins.Context().(*context)
	ctx.collectCount++

	r := event.Record{
		Time:   event.EventTime{Time: ins.Now()},
		Fields: map[string]any{"collect-calls": ctx.collectCount},
	}
	buf, err := event.Marshal(r)
	if err != nil {
		logger.Error("Failed to encode record", slog.String("instance", ins.Name()), slog.Any("error", err))
		return input.Error
	}

	status := ins.Ingest("", buf)
	if status != input.OK {
		logger.Error("Ingestion rejected record",
			slog.String("instance", ins.Name()), slog.Int("status", int(status)))
	}
	return status
}

func cbExit(ins *input.Instance) input.Status {
	ins.ClearContext()
	return input.OK
}
