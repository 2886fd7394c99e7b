package main

import (
	"context"
	"embed"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/appetiteclub/posconsole/internal/app"
	"github.com/aquamarinepk/aqm"
)

const appNamespace = "CONSOLE"

//go:embed assets
var assetsFS embed.FS

func main() {
	config, err := aqm.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("Cannot setup %s(%s): %v", app.AppName, app.AppVersion, err)
	}

	logLevel, _ := config.GetString("log.level")
	logger := aqm.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	console, err := app.New(config, logger, assetsFS)
	if err != nil {
		log.Fatalf("Cannot create %s: %v", app.AppName, err)
	}

	if err := console.Initialize(ctx); err != nil {
		log.Fatalf("Cannot initialize %s: %v", app.AppName, err)
	}

	if err := console.Run(ctx); err != nil {
		log.Fatalf("%s(%s) stopped with error: %v", app.AppName, app.AppVersion, err)
	}

	if err := console.Shutdown(context.Background()); err != nil {
		logger.Errorf("Shutdown error: %v", err)
	}
}
