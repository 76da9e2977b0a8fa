package output

import (
	"fmt"
	"io"
	"os"

	"flit.hoyle.net/pkg/event"
)

const (
	STDOUT = "stdout"
	STDERR = "stderr"
)

// Stdout prints one line per record. Useful for debugging pipelines.
type Stdout struct {
	baseOutput
	out io.Writer
}

func NewStdout(name, stream string) (s *Stdout) {
	s = &Stdout{
		baseOutput: baseOutput{
			name:       name,
			outputType: "stdout",
		},
	}
	if stream == STDERR {
		s.out = os.Stderr
	} else {
		s.out = os.Stdout
	}
	s.initOutputMetrics()

	return
}

func (s *Stdout) Flush(tag string, recs []event.Record) bool {
	return genericFlush(&s.baseOutput, tag, recs, s.printRecords)
}

func (s *Stdout) printRecords(tag string, recs []event.Record) error {
	for _, r := range recs {
		msg := fmt.Sprintf("[%d.%09d] %s: %v", r.Time.Seconds(), r.Time.Nanos(), tag, r.Fields)
		if _, err := fmt.Fprintln(s.out, msg); err != nil {
			return err
		}
	}
	return nil
}
