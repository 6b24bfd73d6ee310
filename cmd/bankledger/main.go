package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"bankledger/internal/cli"
	"bankledger/internal/config"
	"bankledger/internal/log"
)

func main() {
	// Load .env file for local development
	cli.LoadEnvFile()

	// Command output goes to stdout, so only warnings are logged by default
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	logger := cli.SetupLogger(level, os.Stderr)

	app := cli.NewApp(config.Load(), logger)
	app.SetFlags(flag.CommandLine)

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cli.Register(commander, app)

	flag.Parse()
	ctx := log.NewContext(context.Background(), logger.WithComponent(log.ComponentCLI))
	status := commander.Execute(ctx)

	if err := app.Close(); err != nil {
		logger.Error("Failed to close ledger", log.FieldError, err)
		if status == subcommands.ExitSuccess {
			status = subcommands.ExitFailure
		}
	}
	os.Exit(int(status))
}
