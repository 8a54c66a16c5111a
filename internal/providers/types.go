package providers

// Song is the provider-normalized record for a single track.
//
// Mid is provider-scoped and never portable across providers; a fallback
// lookup must re-match the song in the target catalog first.
type Song struct {
	ID       int    `json:"id"`
	Mid      string `json:"mid"`
	Name     string `json:"name"`
	Singer   string `json:"singer"` // multi-artist names joined with ", "
	Album    string `json:"album"`
	AlbumMid string `json:"albumMid,omitempty"`
	Duration int    `json:"duration"` // seconds
	Cover    string `json:"cover"`
	Provider string `json:"provider"`
}

// Playlist is the provider-normalized record for a playlist.
type Playlist struct {
	ID        int64  `json:"id"`
	DirID     int    `json:"dirid,omitempty"`
	Name      string `json:"name"`
	Cover     string `json:"cover"`
	SongCount int    `json:"songCount"`
	PlayCount int    `json:"playCount,omitempty"`
	Creator   string `json:"creator,omitempty"`
	Provider  string `json:"provider"`
}

// HotKey is a trending search keyword with its heat score.
type HotKey struct {
	Keyword string `json:"keyword"`
	Score   int    `json:"score"`
}

// Suggestion is a single search-suggest entry.
type Suggestion struct {
	Type    string `json:"type"` // "song", "singer" or "album"
	Keyword string `json:"keyword"`
	Singer  string `json:"singer,omitempty"`
}

// QR scan states reported by CheckQRStatus.
const (
	QRStatusWaiting = "waiting"
	QRStatusScanned = "scanned"
	QRStatusTimeout = "timeout"
	QRStatusSuccess = "success"
	QRStatusRefused = "refused"
	QRStatusUnknown = "unknown"
)

// Preferred playback quality values accepted by SongURL.
const (
	QualityAuto     = "auto"
	QualityHigh     = "high"
	QualityBalanced = "balanced"
	QualityCompat   = "compat"
)

// errNotImplemented is the uniform failure text for unimplemented operations.
const errNotImplemented = "Not implemented"

// errNoActiveProvider is the uniform failure text when no provider is active.
const errNoActiveProvider = "No active provider"

// QRCodeResult is the result of requesting a login QR code.
type QRCodeResult struct {
	Success   bool   `json:"success"`
	QRData    string `json:"qr_data"` // data URI or plain URL to encode
	IsURL     bool   `json:"is_url,omitempty"`
	LoginType string `json:"login_type"`
	Error     string `json:"error,omitempty"`
}

// QRStatusResult is the result of polling a pending QR login.
type QRStatusResult struct {
	Success  bool   `json:"success"`
	Status   string `json:"status"`
	LoggedIn bool   `json:"logged_in,omitempty"`
	MusicID  int64  `json:"musicid,omitempty"`
	Error    string `json:"error,omitempty"`
}

// LoginStatusResult reports the provider's credential state.
//
// Refreshed is set when this query triggered a successful credential refresh;
// Expired when the credential exists but could not be refreshed.
type LoginStatusResult struct {
	LoggedIn   bool   `json:"logged_in"`
	MusicID    int64  `json:"musicid,omitempty"`
	EncryptUin string `json:"encrypt_uin,omitempty"`
	Nickname   string `json:"nickname,omitempty"`
	Refreshed  bool   `json:"refreshed,omitempty"`
	Expired    bool   `json:"expired,omitempty"`
	Error      string `json:"error,omitempty"`
}

// OperationResult is the minimal success/error result shape.
type OperationResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SearchResult carries songs found for a keyword.
type SearchResult struct {
	Success bool   `json:"success"`
	Songs   []Song `json:"songs"`
	Keyword string `json:"keyword,omitempty"`
	Page    int    `json:"page,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HotSearchResult carries trending search keywords.
type HotSearchResult struct {
	Success bool     `json:"success"`
	HotKeys []HotKey `json:"hotkeys"`
	Error   string   `json:"error,omitempty"`
}

// SuggestResult carries search-suggest entries for a partial keyword.
type SuggestResult struct {
	Success     bool         `json:"success"`
	Suggestions []Suggestion `json:"suggestions"`
	Error       string       `json:"error,omitempty"`
}

// SongURLResult is the result of resolving a playable URL.
//
// FallbackProvider, OriginalProvider and MatchedSong are only populated when
// the URL was served by a fallback provider after cross-catalog matching.
type SongURLResult struct {
	Success          bool   `json:"success"`
	URL              string `json:"url"`
	Mid              string `json:"mid"`
	Quality          string `json:"quality,omitempty"`
	Provider         string `json:"provider,omitempty"`
	FallbackProvider string `json:"fallback_provider,omitempty"`
	OriginalProvider string `json:"original_provider,omitempty"`
	MatchedSong      *Song  `json:"matched_song,omitempty"`
	Error            string `json:"error,omitempty"`
}

// SongURLBatchResult maps mids to playable URLs.
type SongURLBatchResult struct {
	Success bool              `json:"success"`
	URLs    map[string]string `json:"urls"`
	Error   string            `json:"error,omitempty"`
}

// LyricResult carries lyric text, optionally with a translation.
type LyricResult struct {
	Success          bool   `json:"success"`
	Lyric            string `json:"lyric"`
	Trans            string `json:"trans"`
	Mid              string `json:"mid,omitempty"`
	QRC              bool   `json:"qrc,omitempty"`
	FallbackProvider string `json:"fallback_provider,omitempty"`
	OriginalProvider string `json:"original_provider,omitempty"`
	Error            string `json:"error,omitempty"`
}

// SongInfoResult carries the backend's raw song detail payload.
type SongInfoResult struct {
	Success bool           `json:"success"`
	Info    map[string]any `json:"info"`
	Error   string         `json:"error,omitempty"`
}

// RecommendResult carries recommended songs.
type RecommendResult struct {
	Success bool   `json:"success"`
	Songs   []Song `json:"songs"`
	Date    string `json:"date,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RecommendPlaylistsResult carries recommended playlists.
type RecommendPlaylistsResult struct {
	Success   bool       `json:"success"`
	Playlists []Playlist `json:"playlists"`
	Error     string     `json:"error,omitempty"`
}

// FavSongsResult carries a page of the user's favorite songs.
type FavSongsResult struct {
	Success bool   `json:"success"`
	Songs   []Song `json:"songs"`
	Total   int    `json:"total"`
	Error   string `json:"error,omitempty"`
}

// UserPlaylistsResult carries playlists the user created and collected.
type UserPlaylistsResult struct {
	Success   bool       `json:"success"`
	Created   []Playlist `json:"created"`
	Collected []Playlist `json:"collected"`
	Error     string     `json:"error,omitempty"`
}

// PlaylistSongsResult carries the songs of one playlist.
type PlaylistSongsResult struct {
	Success    bool   `json:"success"`
	Songs      []Song `json:"songs"`
	PlaylistID int64  `json:"playlist_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ProviderInfo identifies one registered provider and its capabilities.
type ProviderInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
}

// ActiveInfo describes the active provider, or a null provider when none is
// active. Capabilities is always present (empty when no provider).
type ActiveInfo struct {
	Provider     *ProviderRef `json:"provider"`
	Capabilities []string     `json:"capabilities"`
}

// ProviderRef is the id/name pair for a provider.
type ProviderRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Selection reports the main provider and fallback order that routing would
// actually use, after logged-in filtering.
type Selection struct {
	Success           bool     `json:"success"`
	MainProvider      string   `json:"mainProvider,omitempty"`
	FallbackProviders []string `json:"fallbackProviders"`
	Error             string   `json:"error,omitempty"`
}
