package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/duskfall/crossfade/internal/shared"
)

// ProvidersList prints the registered providers with their capabilities and
// current role in the selection.
func (r *Runner) ProvidersList(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx); err != nil {
		return err
	}

	infos := r.manager.ListProvidersInfo()

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"providers":         infos,
			"active":            r.manager.ActiveID(),
			"fallbackProviders": r.manager.FallbackIDs(),
		}, cmd.Bool("pretty"))
	}

	active := r.manager.ActiveID()
	fallbacks := r.manager.FallbackIDs()
	for _, info := range infos {
		marker := " "
		if info.ID == active {
			marker = "*"
		}
		role := ""
		for i, id := range fallbacks {
			if id == info.ID {
				role = fmt.Sprintf(" (fallback #%d)", i+1)
			}
		}
		if err := r.writePlain("%s %s [%s]%s\n    %s\n", marker, info.Name, info.ID, role, strings.Join(info.Capabilities, ", ")); err != nil {
			return err
		}
	}

	return nil
}

// ProvidersSwitch activates the named provider and persists the choice.
func (r *Runner) ProvidersSwitch(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("%w: provider id", shared.ErrMissingArgument)
	}

	if err := r.bootstrap(ctx); err != nil {
		return err
	}

	if err := r.manager.Switch(id); err != nil {
		return err
	}
	if err := r.store.SetMainProviderID(id); err != nil {
		r.logger.Warn("failed to persist main provider", "error", err)
	}

	return r.writePlain("✓ Active provider: %s\n", id)
}

// ProvidersFallback sets and persists the fallback order.
func (r *Runner) ProvidersFallback(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: provider ids", shared.ErrMissingArgument)
	}

	if err := r.bootstrap(ctx); err != nil {
		return err
	}

	kept := r.manager.SetFallbackOrder(ids)
	if _, err := r.store.SetFallbackProviderIDs(kept); err != nil {
		r.logger.Warn("failed to persist fallback order", "error", err)
	}

	if len(kept) == 0 {
		return r.writePlain("✓ Fallback chain cleared\n")
	}
	return r.writePlain("✓ Fallback chain: %s\n", strings.Join(kept, " -> "))
}

// ProvidersSelection resolves the stored configuration without activating it.
func (r *Runner) ProvidersSelection(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx); err != nil {
		return err
	}

	selection, err := r.manager.Selection(ctx, r.store)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(selection, cmd.Bool("pretty"))
	}

	main := selection.MainProvider
	if main == "" {
		main = "(none)"
	}
	return r.writePlain("main: %s\nfallbacks: %s\n", main, strings.Join(selection.FallbackProviders, ", "))
}

// ProvidersApply resolves the stored configuration and makes it active.
func (r *Runner) ProvidersApply(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx); err != nil {
		return err
	}

	selection, err := r.manager.ApplyConfig(ctx, r.store)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(selection, cmd.Bool("pretty"))
	}

	if selection.MainProvider == "" {
		return r.writePlain("No logged-in provider available\n")
	}
	return r.writePlain("✓ Active provider: %s\n", selection.MainProvider)
}
