// Package engine is the flit host runtime. It owns input instances and their
// contexts, drives the collector callbacks on their registered intervals,
// accepts serialized record buffers through the ingestion entry point and
// routes the decoded records to matching outputs.
package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"flit.hoyle.net/internal/logger"
	"flit.hoyle.net/internal/output"
	"flit.hoyle.net/pkg/event"
	"flit.hoyle.net/pkg/input"
)

// DefaultInterval is the collect interval used when an input's Init does not
// register one.
const DefaultInterval = time.Second

var (
	ingestedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flit_ingested_records_total",
		Help: "Total number of records accepted through the ingestion entry point",
	}, []string{"instance"})

	invalidBuffers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flit_invalid_buffers_total",
		Help: "Total number of rejected ingestion buffers",
	}, []string{"instance"})
)

// Engine wires inputs to outputs. Instances are added before Start; the
// engine guarantees each instance's callbacks run serially: Init once, then
// Collect on a single goroutine, then Exit exactly once after the collect
// loop has drained.
type Engine struct {
	outputs []output.Output
	runners []*runner
}

func New() *Engine {
	return &Engine{}
}

// AddOutput registers a sink. Not safe to call after Start.
func (e *Engine) AddOutput(o output.Output) {
	e.outputs = append(e.outputs, o)
}

// AddInstance creates an instance of a plugin and runs its Init callback. A
// non-zero Init status aborts the instance; the engine guarantees no context
// stays allocated on that path.
func (e *Engine) AddInstance(p *input.Plugin, alias, tag string, properties map[string]string) (*input.Instance, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	ins := input.NewInstance(p, alias, tag, properties, e.Ingest)
	if status := p.Init(ins); status != input.OK {
		ins.ClearContext()
		return nil, fmt.Errorf("engine: init of input %s failed with status %d", ins.Name(), status)
	}
	if ins.Interval() <= 0 {
		ins.SetInterval(DefaultInterval)
	}

	e.runners = append(e.runners, newRunner(ins))
	logger.Info("Initialized input instance",
		slog.String("plugin", p.Name),
		slog.String("instance", ins.Name()),
		slog.Duration("interval", ins.Interval()))
	return ins, nil
}

// Start runs PreRun callbacks and launches one collect loop per instance.
func (e *Engine) Start() {
	for _, r := range e.runners {
		if fn := r.ins.Plugin().PreRun; fn != nil {
			if status := fn(r.ins); status != input.OK {
				logger.Error("Input pre-run failed, instance will not collect",
					slog.String("instance", r.ins.Name()), slog.Int("status", int(status)))
				continue
			}
		}
		go r.loop()
		r.started = true
	}
}

// Stop drains every collect loop, then invokes each instance's Exit callback
// exactly once and cleans the outputs up.
func (e *Engine) Stop() {
	for _, r := range e.runners {
		r.stopLoop()
	}
	for _, r := range e.runners {
		p := r.ins.Plugin()
		if status := p.Exit(r.ins); status != input.OK {
			logger.Error("Input exit failed", slog.String("instance", r.ins.Name()), slog.Int("status", int(status)))
		}
		if r.ins.HasContext() {
			logger.Warn("Input exit left a context allocated, releasing it",
				slog.String("instance", r.ins.Name()))
			r.ins.ClearContext()
		}
	}
	e.runners = nil
	for _, o := range e.outputs {
		o.Cleanup()
	}
}

// Ingest is the ingestion entry point handed to every instance. It validates
// that the buffer decodes as records, counts it and fans the records out to
// every output whose match pattern accepts the tag. The returned status is
// what collectors propagate to the engine unchanged.
func (e *Engine) Ingest(ins *input.Instance, tag string, data []byte) input.Status {
	name := "unknown"
	if ins != nil {
		name = ins.Name()
	}

	recs, err := event.UnmarshalAll(data)
	if err != nil {
		logger.Error("Rejecting undecodable ingestion buffer",
			slog.String("instance", name), slog.Any("error", err))
		invalidBuffers.WithLabelValues(name).Inc()
		return input.Error
	}
	ingestedRecords.WithLabelValues(name).Add(float64(len(recs)))

	for _, o := range e.outputs {
		if Match(o.Match(), tag) {
			o.Flush(tag, recs)
		}
	}
	return input.OK
}
