package main

import (
	"flag"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/mkvs-io/kvstored/internal/config"
	"github.com/mkvs-io/kvstored/internal/logx"
	"github.com/mkvs-io/kvstored/internal/server"
)

func main() {
	var flagConfigFile string
	flag.StringVar(&flagConfigFile, "config", "", "path to a kvstored configuration file (directive syntax, see spec §6)")
	flag.Parse()

	// A bare positional argument is accepted too, matching the reference
	// server's `kvstored [/path/to/kvstored.conf]` invocation.
	if flagConfigFile == "" && flag.NArg() > 0 {
		flagConfigFile = flag.Arg(0)
	}

	cfg := config.Default()
	if flagConfigFile != "" {
		loaded, err := config.Load(flagConfigFile)
		if err != nil {
			logx.Fatalf("kvstored: loading config %q: %v", flagConfigFile, err)
		}
		cfg = loaded
	}

	if cfg.LogFile != "" && cfg.LogFile != "stdout" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			logx.Fatalf("kvstored: opening logfile %q: %v", cfg.LogFile, err)
		}
		logx.SetOutput(f)
	}
	logx.SetLevel(cfg.LogLevel)

	if cfg.Daemonize {
		logx.Warn("kvstored: daemonize is not supported by this build; continuing in the foreground")
	}
	if cfg.PidFile != "" {
		if err := os.WriteFile(cfg.PidFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
			logx.Warnf("kvstored: writing pidfile %q: %v", cfg.PidFile, err)
		}
	}

	srv, err := server.New(cfg)
	if err != nil {
		logx.Fatalf("kvstored: initialization failed: %v", err)
	}

	if err := srv.Listen(); err != nil {
		logx.Fatalf("kvstored: listen failed: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer wg.Done()
		<-sigs
		logx.Note("kvstored: signal received, shutting down")
		if err := srv.Save(); err != nil {
			logx.Errorf("kvstored: save on shutdown failed: %v", err)
		}
		if err := srv.Close(); err != nil {
			logx.Errorf("kvstored: close failed: %v", err)
		}
	}()
	wg.Wait()
	logx.Note("kvstored: shutdown complete")
}
