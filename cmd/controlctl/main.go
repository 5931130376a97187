package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/tlvctl/internal/config"
	"github.com/danmuck/tlvctl/internal/controller"
	"github.com/danmuck/tlvctl/internal/logging"
)

func main() {
	configPath := flag.String("config", "controlctl.toml", "path to controller config")
	flag.Parse()

	logging.ConfigureRuntime()

	fileCfg, err := config.LoadControllerConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "controlctl: %v\n", err)
		os.Exit(1)
	}

	svc, err := controller.NewService(controller.FromFileConfig(fileCfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "controlctl: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "controlctl: %v\n", err)
		os.Exit(1)
	}
}
