// package providers defines the music provider contract, the capability
// vocabulary, and the manager that routes operations across providers with
// credential-aware fallback.
package providers

import "context"

// Provider is the uniform contract every music backend implements.
//
// Operations never return Go errors for domain failures; a failed operation
// returns a result struct with Success false and a human-readable Error.
// Transport-level problems surface the same way so callers handle exactly
// one shape. A provider that does not support an operation must both omit
// the matching capability and return the standard not-implemented failure,
// which the embeddable Unimplemented type provides.
type Provider interface {
	// ID returns the stable short identifier, e.g. "qqmusic".
	ID() string
	// Name returns the human-readable display name.
	Name() string
	// Capabilities reports the operations this provider supports.
	Capabilities() CapabilitySet

	LoadCredential(ctx context.Context) error
	SaveCredential(ctx context.Context, credential map[string]string) error

	GetQRCode(ctx context.Context, loginType string) QRCodeResult
	CheckQRStatus(ctx context.Context, qrID string) QRStatusResult
	GetLoginStatus(ctx context.Context) LoginStatusResult
	Logout(ctx context.Context) OperationResult

	SearchSongs(ctx context.Context, keyword string, page, num int) SearchResult
	HotSearch(ctx context.Context) HotSearchResult
	SearchSuggest(ctx context.Context, keyword string) SuggestResult

	SongURL(ctx context.Context, mid, quality string) SongURLResult
	SongURLsBatch(ctx context.Context, mids []string) SongURLBatchResult
	SongLyric(ctx context.Context, mid string, qrc bool) LyricResult
	SongInfo(ctx context.Context, mid string) SongInfoResult

	GuessLike(ctx context.Context) RecommendResult
	DailyRecommend(ctx context.Context) RecommendResult
	RecommendPlaylists(ctx context.Context) RecommendPlaylistsResult

	FavSongs(ctx context.Context, page, num int) FavSongsResult
	UserPlaylists(ctx context.Context) UserPlaylistsResult
	PlaylistSongs(ctx context.Context, playlistID int64, dirID, page, num int) PlaylistSongsResult
}

// Unimplemented returns the standard not-implemented failure for every
// operation. Concrete providers embed it and override what they support.
type Unimplemented struct{}

func (Unimplemented) LoadCredential(context.Context) error { return nil }

func (Unimplemented) SaveCredential(context.Context, map[string]string) error { return nil }

func (Unimplemented) GetQRCode(context.Context, string) QRCodeResult {
	return QRCodeResult{Error: errNotImplemented}
}

func (Unimplemented) CheckQRStatus(context.Context, string) QRStatusResult {
	return QRStatusResult{Status: QRStatusUnknown, Error: errNotImplemented}
}

func (Unimplemented) GetLoginStatus(context.Context) LoginStatusResult {
	return LoginStatusResult{Error: errNotImplemented}
}

func (Unimplemented) Logout(context.Context) OperationResult {
	return OperationResult{Error: errNotImplemented}
}

func (Unimplemented) SearchSongs(context.Context, string, int, int) SearchResult {
	return SearchResult{Error: errNotImplemented}
}

func (Unimplemented) HotSearch(context.Context) HotSearchResult {
	return HotSearchResult{Error: errNotImplemented}
}

func (Unimplemented) SearchSuggest(context.Context, string) SuggestResult {
	return SuggestResult{Error: errNotImplemented}
}

func (Unimplemented) SongURL(context.Context, string, string) SongURLResult {
	return SongURLResult{Error: errNotImplemented}
}

func (Unimplemented) SongURLsBatch(context.Context, []string) SongURLBatchResult {
	return SongURLBatchResult{Error: errNotImplemented}
}

func (Unimplemented) SongLyric(context.Context, string, bool) LyricResult {
	return LyricResult{Error: errNotImplemented}
}

func (Unimplemented) SongInfo(context.Context, string) SongInfoResult {
	return SongInfoResult{Error: errNotImplemented}
}

func (Unimplemented) GuessLike(context.Context) RecommendResult {
	return RecommendResult{Error: errNotImplemented}
}

func (Unimplemented) DailyRecommend(context.Context) RecommendResult {
	return RecommendResult{Error: errNotImplemented}
}

func (Unimplemented) RecommendPlaylists(context.Context) RecommendPlaylistsResult {
	return RecommendPlaylistsResult{Error: errNotImplemented}
}

func (Unimplemented) FavSongs(context.Context, int, int) FavSongsResult {
	return FavSongsResult{Error: errNotImplemented}
}

func (Unimplemented) UserPlaylists(context.Context) UserPlaylistsResult {
	return UserPlaylistsResult{Error: errNotImplemented}
}

func (Unimplemented) PlaylistSongs(context.Context, int64, int, int, int) PlaylistSongsResult {
	return PlaylistSongsResult{Error: errNotImplemented}
}
