package providers

import "context"

// Active-provider dispatch. Every operation below runs against the active
// provider and returns the standard no-active-provider failure when none is
// selected, so callers never branch on nil providers.

func (m *Manager) SearchSongs(ctx context.Context, keyword string, page, num int) SearchResult {
	p := m.Active()
	if p == nil {
		return SearchResult{Error: errNoActiveProvider}
	}
	return p.SearchSongs(ctx, keyword, page, num)
}

func (m *Manager) HotSearch(ctx context.Context) HotSearchResult {
	p := m.Active()
	if p == nil {
		return HotSearchResult{Error: errNoActiveProvider}
	}
	return p.HotSearch(ctx)
}

func (m *Manager) SearchSuggest(ctx context.Context, keyword string) SuggestResult {
	p := m.Active()
	if p == nil {
		return SuggestResult{Error: errNoActiveProvider}
	}
	return p.SearchSuggest(ctx, keyword)
}

func (m *Manager) SongURLsBatch(ctx context.Context, mids []string) SongURLBatchResult {
	p := m.Active()
	if p == nil {
		return SongURLBatchResult{Error: errNoActiveProvider}
	}
	return p.SongURLsBatch(ctx, mids)
}

func (m *Manager) SongInfo(ctx context.Context, mid string) SongInfoResult {
	p := m.Active()
	if p == nil {
		return SongInfoResult{Error: errNoActiveProvider}
	}
	return p.SongInfo(ctx, mid)
}

func (m *Manager) GuessLike(ctx context.Context) RecommendResult {
	p := m.Active()
	if p == nil {
		return RecommendResult{Error: errNoActiveProvider}
	}
	return p.GuessLike(ctx)
}

func (m *Manager) DailyRecommend(ctx context.Context) RecommendResult {
	p := m.Active()
	if p == nil {
		return RecommendResult{Error: errNoActiveProvider}
	}
	return p.DailyRecommend(ctx)
}

func (m *Manager) RecommendPlaylists(ctx context.Context) RecommendPlaylistsResult {
	p := m.Active()
	if p == nil {
		return RecommendPlaylistsResult{Error: errNoActiveProvider}
	}
	return p.RecommendPlaylists(ctx)
}

func (m *Manager) FavSongs(ctx context.Context, page, num int) FavSongsResult {
	p := m.Active()
	if p == nil {
		return FavSongsResult{Error: errNoActiveProvider}
	}
	return p.FavSongs(ctx, page, num)
}

func (m *Manager) UserPlaylists(ctx context.Context) UserPlaylistsResult {
	p := m.Active()
	if p == nil {
		return UserPlaylistsResult{Error: errNoActiveProvider}
	}
	return p.UserPlaylists(ctx)
}

func (m *Manager) PlaylistSongs(ctx context.Context, playlistID int64, dirID, page, num int) PlaylistSongsResult {
	p := m.Active()
	if p == nil {
		return PlaylistSongsResult{Error: errNoActiveProvider}
	}
	return p.PlaylistSongs(ctx, playlistID, dirID, page, num)
}

// GetLoginStatus reports the named provider's credential state, or the
// active provider's when id is empty.
func (m *Manager) GetLoginStatus(ctx context.Context, id string) LoginStatusResult {
	p, err := m.resolveProvider(id)
	if err != nil {
		return LoginStatusResult{Error: err.Error()}
	}
	if p == nil {
		return LoginStatusResult{Error: errNoActiveProvider}
	}
	return p.GetLoginStatus(ctx)
}

// GetQRCode requests a login QR from the named provider, or the active one
// when id is empty.
func (m *Manager) GetQRCode(ctx context.Context, id, loginType string) QRCodeResult {
	p, err := m.resolveProvider(id)
	if err != nil {
		return QRCodeResult{Error: err.Error()}
	}
	if p == nil {
		return QRCodeResult{Error: errNoActiveProvider}
	}
	return p.GetQRCode(ctx, loginType)
}

// CheckQRStatus polls a pending QR login on the named provider, or the
// active one when id is empty.
func (m *Manager) CheckQRStatus(ctx context.Context, id, qrID string) QRStatusResult {
	p, err := m.resolveProvider(id)
	if err != nil {
		return QRStatusResult{Status: QRStatusUnknown, Error: err.Error()}
	}
	if p == nil {
		return QRStatusResult{Status: QRStatusUnknown, Error: errNoActiveProvider}
	}
	return p.CheckQRStatus(ctx, qrID)
}

// Logout clears the named provider's credential, or the active one's when
// id is empty.
func (m *Manager) Logout(ctx context.Context, id string) OperationResult {
	p, err := m.resolveProvider(id)
	if err != nil {
		return OperationResult{Error: err.Error()}
	}
	if p == nil {
		return OperationResult{Error: errNoActiveProvider}
	}
	return p.Logout(ctx)
}

func (m *Manager) resolveProvider(id string) (Provider, error) {
	if id == "" {
		return m.Active(), nil
	}
	return m.Get(id)
}
