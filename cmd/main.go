package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/duskfall/crossfade/internal/shared"
)

func main() {
	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		loaded, err := shared.LoadConfig("config.toml")
		if err == nil {
			config = loaded
		}
	}

	runner := NewRunner(RunnerOpts{Config: config})

	app := &cli.Command{
		Name:     "crossfade",
		Usage:    "Multi-provider music backend with capability-aware fallback",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			unwrapped = err
		}

		if errors.Is(unwrapped, shared.ErrNotImplemented) {
			runner.logger.Warn("not implemented", "error", err)
			os.Exit(0)
		}

		runner.logger.Fatalf("%v", err)
	}
}
