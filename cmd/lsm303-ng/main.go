package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"lsm303-ng/internal/config"
	"lsm303-ng/internal/web"
)

func main() {
	var configPath string
	var simOverride bool
	flag.StringVar(&configPath, "config", "./lsm303.yaml", "Path to YAML config")
	flag.BoolVar(&simOverride, "sim", false, "Use the simulated chip regardless of bus.kind")
	flag.Parse()

	logs := web.NewLogBuffer(2000)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if simOverride {
		cfg.Bus.Kind = "sim"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("lsm303-ng starting")
	status := web.NewStatus()
	rt, err := newRuntime(ctx, cfg, status)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	if cfg.Web.Enable {
		go func() {
			err := web.Serve(ctx, cfg.Web.Listen, web.Handler(status, rt.compass, logs))
			if err != nil && ctx.Err() == nil {
				log.Printf("web server stopped: %v", err)
				cancel()
			}
		}()
		log.Printf("web listen=%s", cfg.Web.Listen)
	}

	<-ctx.Done()
	log.Printf("lsm303-ng stopping")
	if err := rt.Close(); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
