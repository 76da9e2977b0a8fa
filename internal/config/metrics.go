package config

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Set at build time with -ldflags.
var (
	Version, Commit, BuildDate string
)

var (
	FlitInfo = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flit_build_info",
		Help: "Flit build information",
		ConstLabels: map[string]string{
			"version":    Version,
			"commit":     Commit,
			"build_date": BuildDate,
		},
	})
)
