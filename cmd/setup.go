package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/urfave/cli/v3"

	"github.com/duskfall/crossfade/internal/server"
	"github.com/duskfall/crossfade/internal/shared"
	"github.com/duskfall/crossfade/internal/store"
)

// Setup writes a starter config file and opens the settings store once so the
// schema migrations run.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("created configuration file", "path", path)

	config, err := shared.LoadConfig(path)
	if err != nil {
		return err
	}
	r.config = config

	st, err := store.Open(config.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize settings store: %w", err)
	}
	defer st.Close()
	r.logger.Info("initialized settings store", "path", config.Store.Path)

	return r.writePlain("✓ Setup complete. Edit %s and run 'crossfade serve'.\n", path)
}

// Serve starts the HTTP API on the configured address.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))
	if err := r.bootstrap(ctx); err != nil {
		return err
	}

	host := r.config.Server.Host
	if cmd.String("host") != "" {
		host = cmd.String("host")
	}
	port := r.config.Server.Port
	if cmd.Int("port") != 0 {
		port = cmd.Int("port")
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	handler := server.NewHTTPHandler(r.manager, r.store, r.logger)

	r.logger.Info("starting API server", "addr", addr)
	return http.ListenAndServe(addr, handler)
}
