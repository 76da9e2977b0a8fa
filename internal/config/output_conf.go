package config

import (
	"fmt"
	"log/slog"

	"flit.hoyle.net/internal/filter"
	"flit.hoyle.net/internal/logger"
	"flit.hoyle.net/internal/output"
)

type OutputConf struct {
	Name              string
	OutputType        string `yaml:"type"`
	Match             string
	Connection        string
	OfflineBufferTime int64         `yaml:"offline_buffer_time"` // Time in hours to keep the offline buffer
	Filter            filter.Filter `yaml:"filter"`
	Options           map[string]string
}

func (oc *OutputConf) ToOutput(conf FlitConf) (out output.Output, err error) {
	switch oc.OutputType {
	case "stdout":
		out = output.NewStdout(oc.Name, oc.Connection)
	case "file":
		out, err = output.NewFile(oc.Name, oc.Connection, oc.Options)
	case "psql":
		out, err = output.NewPSQL(oc.Name, oc.Connection, oc.Options)
	default:
		err = fmt.Errorf("unknown output type: %s", oc.OutputType)
	}
	if err != nil {
		return nil, err
	}

	out.SetMatch(oc.Match)

	oc.Filter.Activate()
	out.SetFilter(oc.Filter)

	if err := out.InitSpill(conf.DataDir, oc.OfflineBufferTime); err != nil {
		logger.Warn("Cannot create offline buffer",
			slog.String("output", oc.Name), slog.Any("error", err))
	}

	return out, nil
}
