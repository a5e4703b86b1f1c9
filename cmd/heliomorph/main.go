package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "embed"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/camposclima/heliomorph/internal/app"
	"github.com/camposclima/heliomorph/pkg/support/logger"
)

// embeddedConfig embeds the application's YAML configuration file. Values can
// be overridden through environment variables at startup.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// main parses the command, installs signal handling for graceful shutdown and
// hands control to the Fx application.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Attempting to stop the run...", sig)
		cancel()
	}()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	command := app.CommandRun
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	// Remaining arguments of the form key=value override run parameters, e.g.
	// "model=ACCESS-CM2" or "workers=8".
	runOverrides := make(map[string]interface{})
	if len(os.Args) > 2 {
		for _, arg := range os.Args[2:] {
			key, value, ok := strings.Cut(arg, "=")
			if !ok {
				logger.Fatalf("Invalid run override '%s', expected key=value.", arg)
			}
			runOverrides[key] = value
		}
	}

	app.RunApplication(ctx, envFilePath, embeddedConfig, command, runOverrides)
	os.Exit(0)
}
