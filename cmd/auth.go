package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/duskfall/crossfade/internal/providers"
	"github.com/duskfall/crossfade/internal/shared"
)

func (r *Runner) resolveProvider(id string) (providers.Provider, error) {
	if id == "" {
		if active := r.manager.Active(); active != nil {
			return active, nil
		}
		return nil, shared.ErrNoActiveProvider
	}
	return r.manager.Get(id)
}

// AuthStatus reports the login status of a provider.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx); err != nil {
		return err
	}

	provider, err := r.resolveProvider(cmd.String("provider"))
	if err != nil {
		return err
	}

	status := provider.GetLoginStatus(ctx)

	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}

	if !status.LoggedIn {
		if status.Expired {
			return r.writePlain("✗ %s: credential expired\n", provider.ID())
		}
		return r.writePlain("✗ %s: not logged in\n", provider.ID())
	}

	line := fmt.Sprintf("✓ %s: logged in", provider.ID())
	if status.Nickname != "" {
		line += " as " + status.Nickname
	}
	if status.MusicID != 0 {
		line += fmt.Sprintf(" (id %d)", status.MusicID)
	}
	if status.Refreshed {
		line += ", credential refreshed"
	}
	return r.writePlain("%s\n", line)
}

// AuthImport reads a cURL command captured from a logged-in browser session
// and stores its cookies as the provider's credential.
func (r *Runner) AuthImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("%w: curl file path", shared.ErrMissingArgument)
	}

	if err := r.bootstrap(ctx); err != nil {
		return err
	}

	provider, err := r.resolveProvider(cmd.String("provider"))
	if err != nil {
		return err
	}

	parsed, err := shared.ParseCurlFile(path)
	if err != nil {
		return err
	}

	cookies := parsed.CookieMap()
	if len(cookies) == 0 {
		return fmt.Errorf("%w: no cookies found in %s", shared.ErrInvalidCredentials, path)
	}

	if err := provider.SaveCredential(ctx, cookies); err != nil {
		return err
	}
	r.logger.Info("credential imported", "provider", provider.ID(), "cookies", len(cookies))

	status := provider.GetLoginStatus(ctx)
	if !status.LoggedIn {
		return r.writePlain("Credential saved but %s still reports logged out\n", provider.ID())
	}
	return r.writePlain("✓ Logged in to %s\n", provider.ID())
}

// AuthLogout clears the stored credentials of a provider.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx); err != nil {
		return err
	}

	provider, err := r.resolveProvider(cmd.String("provider"))
	if err != nil {
		return err
	}

	result := provider.Logout(ctx)
	if !result.Success {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, result.Error)
	}

	return r.writePlain("✓ Logged out of %s\n", provider.ID())
}
