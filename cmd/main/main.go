package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"market-pulse/src/app"
	"market-pulse/src/config"
	"market-pulse/src/logger"
)

// -----------------------------------------------------------------------------

func main() {

	// 1. Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// 2. Load config from YAML file
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup logger
	appLogger := logger.NewLogger(conf.LogLevel, conf.Name)
	appLogger.Info("Source %s, server %s:%d, storage %s", conf.Transport.URL, conf.Host, conf.Port, conf.Storage.DBType)

	// 4. Wire components
	application := app.New(conf, appLogger)

	// 5. Lifecycle: cancel on SIGINT / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Run until interrupted
	if err := application.Run(ctx); err != nil {
		appLogger.Error("Stopped with error: %v", err)
		os.Exit(1)
	}
	appLogger.Info("Shutdown complete.")
}
