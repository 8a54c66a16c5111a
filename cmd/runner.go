package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/duskfall/crossfade/internal/providers"
	"github.com/duskfall/crossfade/internal/shared"
	"github.com/duskfall/crossfade/internal/store"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	store   *store.Store
	manager *providers.Manager
	logger  *log.Logger
	output  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	Store   *store.Store
	Manager *providers.Manager
	Logger  *log.Logger
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided configuration.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:  opts.Config,
		store:   opts.Store,
		manager: opts.Manager,
		logger:  opts.Logger,
		output:  opts.Output,
	}
}

// SetLogger swaps the runner's logger, e.g. to a file logger while the TUI
// owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, providersCommand, authCommand, searchCommand, playCommand, settingsCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// buildManager wires the compiled-in providers against the configured
// gateways, restores their persisted credentials, and applies the stored
// selection.
func buildManager(ctx context.Context, config *shared.Config, st *store.Store, logger *log.Logger) *providers.Manager {
	manager := providers.NewManager(logger)
	manager.Register(providers.NewQQMusicProvider(config.Providers.QQMusic, st, logger))
	manager.Register(providers.NewNeteaseProvider(config.Providers.Netease, st, logger))
	manager.Register(providers.NewSpotifyProvider(config.Providers.Spotify, "", "", logger))

	for _, p := range manager.All() {
		if err := p.LoadCredential(ctx); err != nil {
			logger.Warn("failed to load credential", "provider", p.ID(), "error", err)
		}
	}
	if st != nil {
		if _, err := manager.ApplyConfig(ctx, st); err != nil {
			logger.Warn("failed to apply provider selection", "error", err)
		}
	}
	return manager
}

// bootstrap lazily opens the settings store and wires the provider manager.
// Commands that only touch the config skip it.
func (r *Runner) bootstrap(ctx context.Context) error {
	if r.store == nil {
		st, err := store.Open(r.config.Store.Path)
		if err != nil {
			return fmt.Errorf("failed to open settings store: %w", err)
		}
		r.store = st
	}
	if r.manager == nil {
		r.manager = buildManager(ctx, r.config, r.store, r.logger)
	}
	return nil
}

// reloadConfig swaps in the config file named by the command's --config flag
// when it differs from the default already loaded in main.
func (r *Runner) reloadConfig(path string) {
	if path == "" {
		return
	}
	loaded, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Debug("keeping current config", "path", path, "error", err)
		return
	}
	r.config = loaded
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
