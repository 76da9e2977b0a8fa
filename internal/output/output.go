package output

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"flit.hoyle.net/internal/buffer"
	"flit.hoyle.net/internal/filter"
	"flit.hoyle.net/internal/logger"
	"flit.hoyle.net/pkg/event"
)

// Output is a sink the engine routes decoded records to.
type Output interface {
	Cleanup()
	GetName() string
	SetName(name string)
	InitSpill(dir string, ttlHours int64) error
	Flush(tag string, recs []event.Record) bool
	Match() string
	SetMatch(pattern string)
	SetFilter(f filter.Filter)
}

type baseOutput struct {
	name       string
	outputType string
	match      string
	filter     filter.Filter
	monitor    outputMetrics
	spill      *buffer.Spill
}

type outputMetrics struct {
	recordsSent   prometheus.Counter
	recordsFailed prometheus.Counter
}

func (bo *baseOutput) GetName() string {
	return bo.name
}

func (bo *baseOutput) SetName(name string) {
	bo.name = name
}

func (bo *baseOutput) Match() string {
	if bo.match == "" {
		return "*"
	}
	return bo.match
}

func (bo *baseOutput) SetMatch(pattern string) {
	bo.match = pattern
}

func (bo *baseOutput) SetFilter(f filter.Filter) {
	bo.filter = f
}

func (bo *baseOutput) InitSpill(dir string, ttlHours int64) (err error) {
	bo.spill, err = buffer.Open(dir, bo.name+".spill", ttlHours)
	return err
}

// Cleanup releases resources held by the baseOutput.
func (bo *baseOutput) Cleanup() {
	if bo.spill != nil {
		bo.spill.Close()
	}
}

func (bo *baseOutput) initOutputMetrics() {
	bo.monitor.recordsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name:        "flit_output_records_total",
		Help:        "Total number of records flushed to outputs",
		ConstLabels: prometheus.Labels{"output_name": bo.name, "output_type": bo.outputType},
	})
	bo.monitor.recordsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name:        "flit_output_errors_total",
		Help:        "Total number of records that failed to flush",
		ConstLabels: prometheus.Labels{"output_name": bo.name, "output_type": bo.outputType},
	})
}

// genericFlush is the shared flush path: try the sink, spill the chunk on
// failure, replay older spilled chunks on success. Replay deletes what it
// fetched even when the re-send partially fails, mirroring the at-most-once
// choice of the spill design.
func genericFlush(
	bo *baseOutput,
	tag string,
	recs []event.Record,
	flushFunc func(tag string, recs []event.Record) error,
) bool {
	recs = bo.filter.FilterRecords(recs)
	if len(recs) == 0 {
		return true
	}

	err := flushFunc(tag, recs)
	if err != nil {
		logger.Error("Failed to flush records", slog.String("output", bo.name), slog.Any("error", err))
		bo.monitor.recordsFailed.Add(float64(len(recs)))
	} else {
		bo.monitor.recordsSent.Add(float64(len(recs)))
	}

	if bo.spill == nil || !bo.spill.Enabled() {
		return err == nil
	}

	if err != nil {
		data, encErr := event.MarshalAll(recs)
		if encErr != nil {
			logger.Error("Failed to encode records for spilling", slog.String("output", bo.name), slog.Any("error", encErr))
			return false
		}
		if spillErr := bo.spill.Put(buffer.Chunk{Tag: tag, Data: data}); spillErr != nil {
			logger.Error("Failed to spill records", slog.String("output", bo.name), slog.Any("error", spillErr))
		}
		return false
	}

	entries, _ := bo.spill.Fetch(len(recs) + 1)
	if len(entries) == 0 {
		return true
	}
	replayed := true
	for _, e := range entries {
		old, decErr := event.UnmarshalAll(e.Chunk.Data)
		if decErr != nil {
			logger.Error("Failed to decode spilled chunk", slog.String("output", bo.name), slog.Any("error", decErr))
			continue
		}
		if sendErr := flushFunc(e.Chunk.Tag, old); sendErr != nil {
			logger.Error("Failed to re-send spilled records", slog.String("output", bo.name), slog.Any("error", sendErr))
			replayed = false
			break
		}
		bo.monitor.recordsSent.Add(float64(len(old)))
	}
	if replayed {
		bo.spill.Delete(entries)
	}
	return true
}
