// Command dossier runs the document processing workflow from the command
// line: executing runs, resuming suspended reviews, inspecting thread state,
// and managing the document cache and report registry.
package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"
)

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("DOSSIER_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	app := &cli.App{
		Name:  "dossier",
		Usage: "resumable document extraction, classification, and reporting",
		Commands: []*cli.Command{
			runCommand(),
			resumeCommand(),
			pendingCommand(),
			stateCommand(),
			batchCommand(),
			cacheCommand(),
			reportsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		newLogger().Error("command failed", "error", err)
		os.Exit(1)
	}
}
