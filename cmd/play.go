package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/duskfall/crossfade/internal/shared"
)

// Search searches songs on the active provider.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	keyword := cmd.Args().First()
	if keyword == "" {
		return fmt.Errorf("%w: keyword", shared.ErrMissingArgument)
	}

	if err := r.bootstrap(ctx); err != nil {
		return err
	}

	result := r.manager.SearchSongs(ctx, keyword, cmd.Int("page"), cmd.Int("num"))
	if !result.Success {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, result.Error)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	for i, song := range result.Songs {
		if err := r.writePlain("%2d. %s - %s  [%s] mid=%s\n", i+1, song.Name, song.Singer, formatDuration(song.Duration), song.Mid); err != nil {
			return err
		}
	}
	if len(result.Songs) == 0 {
		return r.writePlain("No results for %q\n", keyword)
	}
	return nil
}

// PlayURL resolves a playable URL, falling back across providers when the
// song name is supplied.
func (r *Runner) PlayURL(ctx context.Context, cmd *cli.Command) error {
	mid := cmd.Args().First()
	if mid == "" {
		return fmt.Errorf("%w: song mid", shared.ErrMissingArgument)
	}

	if err := r.bootstrap(ctx); err != nil {
		return err
	}

	result := r.manager.SongURLWithFallback(ctx, mid, cmd.String("name"), cmd.String("singer"), cmd.String("quality"))
	if !result.Success {
		return fmt.Errorf("%w: %s", shared.ErrSongNotFound, result.Error)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	if err := r.writePlain("%s\n", result.URL); err != nil {
		return err
	}
	if result.FallbackProvider != "" {
		return r.writePlain("(served by %s instead of %s)\n", result.FallbackProvider, result.OriginalProvider)
	}
	return nil
}

// PlayLyric fetches lyrics, falling back across providers when the song name
// is supplied.
func (r *Runner) PlayLyric(ctx context.Context, cmd *cli.Command) error {
	mid := cmd.Args().First()
	if mid == "" {
		return fmt.Errorf("%w: song mid", shared.ErrMissingArgument)
	}

	if err := r.bootstrap(ctx); err != nil {
		return err
	}

	result := r.manager.SongLyricWithFallback(ctx, mid, cmd.String("name"), cmd.String("singer"), cmd.Bool("qrc"))
	if !result.Success {
		return fmt.Errorf("%w: %s", shared.ErrSongNotFound, result.Error)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	if err := r.writePlain("%s\n", result.Lyric); err != nil {
		return err
	}
	if result.Trans != "" {
		if err := r.writePlain("\n--- translation ---\n%s\n", result.Trans); err != nil {
			return err
		}
	}
	if result.FallbackProvider != "" {
		return r.writePlain("(served by %s instead of %s)\n", result.FallbackProvider, result.OriginalProvider)
	}
	return nil
}

// SettingsGet prints the persisted frontend settings.
func (r *Runner) SettingsGet(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx); err != nil {
		return err
	}

	settings, err := r.store.FrontendSettings()
	if err != nil {
		return err
	}
	if settings == nil {
		settings = map[string]any{}
	}

	return r.writeJSON(settings, cmd.Bool("pretty"))
}

// SettingsClear deletes the persisted frontend settings.
func (r *Runner) SettingsClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx); err != nil {
		return err
	}

	existed, err := r.store.DeleteFrontendSettings()
	if err != nil {
		return err
	}
	if !existed {
		return r.writePlain("No stored settings\n")
	}
	return r.writePlain("✓ Settings cleared\n")
}

func formatDuration(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
