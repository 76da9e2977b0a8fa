package engine

import (
	"log/slog"
	"time"

	"flit.hoyle.net/internal/logger"
	"flit.hoyle.net/pkg/input"
)

// runner drives one instance's collect loop. All callback invocations for an
// instance happen on this goroutine, so Collect is never concurrent with
// itself; Exit runs only after stopLoop has seen the loop drain.
type runner struct {
	ins     *input.Instance
	stop    chan struct{}
	done    chan struct{}
	started bool
}

func newRunner(ins *input.Instance) *runner {
	return &runner{
		ins:  ins,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (r *runner) loop() {
	defer close(r.done)

	ticker := time.NewTicker(r.ins.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.collect()
		}
	}
}

func (r *runner) collect() {
	p := r.ins.Plugin()
	status := p.Collect(r.ins)
	switch status {
	case input.OK:
	case input.Retry:
		logger.Debug("Input asked for retry", slog.String("instance", r.ins.Name()))
	default:
		logger.Error("Input collect failed",
			slog.String("instance", r.ins.Name()), slog.Int("status", int(status)))
	}
}

func (r *runner) stopLoop() {
	if !r.started {
		return
	}
	close(r.stop)
	<-r.done
	r.started = false
}
