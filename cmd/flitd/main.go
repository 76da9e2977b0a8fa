package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flit.hoyle.net/internal/config"
	"flit.hoyle.net/internal/engine"
	"flit.hoyle.net/internal/logger"
	"flit.hoyle.net/internal/plugin"

	_ "flit.hoyle.net/internal/inputs/example"
	_ "flit.hoyle.net/internal/inputs/tailf"
)

func printVersionInfo() {
	fmt.Printf("flit %s\n", config.Version)
	fmt.Printf("Git commit: %s\n", config.Commit)
	fmt.Printf("Compilation time: %s\n", config.BuildDate)
}

func main() {

	confPath := flag.String("c", "/etc/flitd.yaml", "Path of config file")
	version := flag.Bool("v", false, "Show version info")
	flag.Parse()

	if *version {
		printVersionInfo()
		os.Exit(0)
	}

	flitConfig := config.ParseFlitConfig(*confPath)
	logger.SetLogLevel(flitConfig.GetLogLevel())

	// Load plugins if plugin directory is configured
	if flitConfig.PluginsDir != "" {
		logger.Info("Loading plugins", slog.String("dir", flitConfig.PluginsDir))
		if err := plugin.GetRegistry().LoadPluginsFromDir(flitConfig.PluginsDir); err != nil {
			logger.Error("Failed to load plugins", slog.Any("error", err))
			// Continue execution - plugins are optional
		}
		if err := plugin.GetRemoteRegistry().LoadPluginsFromDir(flitConfig.PluginsDir); err != nil {
			logger.Error("Failed to load remote plugins", slog.Any("error", err))
		}

		for _, name := range plugin.GetRegistry().ListPlugins() {
			logger.Info("Loaded plugin", slog.String("name", name))
		}
	}

	eng := engine.New()

	for _, oc := range flitConfig.Outputs {
		out, err := oc.ToOutput(flitConfig)
		if err != nil {
			logger.Error("Cannot create output", slog.String("name", oc.Name), slog.Any("error", err))
			os.Exit(1)
		}
		eng.AddOutput(out)
	}

	for _, ic := range flitConfig.Inputs {
		if err := ic.ToInstance(eng); err != nil {
			logger.Error("Cannot create input", slog.String("plugin", ic.PluginName), slog.Any("error", err))
			os.Exit(1)
		}
	}

	config.FlitInfo.Set(1)

	http.Handle("/metrics", promhttp.Handler())

	listen := fmt.Sprintf("%s:%d", flitConfig.Http.ListenAddress, flitConfig.Http.ListenPort)
	go http.ListenAndServe(listen, nil)

	eng.Start()
	logger.Info("Engine is running", slog.Int("inputs", len(flitConfig.Inputs)), slog.Int("outputs", len(flitConfig.Outputs)))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	<-sig

	eng.Stop()
	plugin.GetRemoteRegistry().CleanupAll()
	logger.Info("Exiting...")
}
