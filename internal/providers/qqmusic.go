// QQ Music [Provider] implementation.
//
// Communicates with a self-hosted QQMusicApi HTTP gateway. The gateway wraps
// the vendor's signed endpoints; this client holds the cookie credential,
// persists it through the store, and normalizes gateway payloads into the
// shared result shapes.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/duskfall/crossfade/internal/shared"
	"github.com/duskfall/crossfade/internal/store"
)

const (
	defaultQQBaseURL = "http://127.0.0.1:8000"

	errNotLoggedIn = "Not logged in"

	dailyRecommendCap = 20
	suggestCap        = 10
)

// qqPickOrder maps a quality preference to the ordered file types to try.
// Later entries are smaller files that more accounts can fetch.
var qqPickOrder = map[string][]string{
	QualityAuto:     {"FLAC", "OGG_640", "OGG_320", "MP3_320", "OGG_192", "MP3_128", "ACC_192", "ACC_96", "ACC_48"},
	QualityHigh:     {"MP3_320", "OGG_192", "MP3_128", "ACC_192", "ACC_96", "ACC_48"},
	QualityBalanced: {"MP3_128", "ACC_192", "ACC_96", "ACC_48"},
	QualityCompat:   {"ACC_96", "ACC_48", "MP3_128"},
}

// QQMusicProvider implements the Provider contract over a QQMusicApi gateway.
type QQMusicProvider struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	store      *store.Store
	log        *log.Logger
	caps       CapabilitySet

	mu         sync.Mutex
	credential map[string]string
}

// NewQQMusicProvider creates the provider. The store may be nil, in which
// case credentials live only in memory for the process lifetime.
func NewQQMusicProvider(cfg shared.GatewayConfig, st *store.Store, logger *log.Logger) *QQMusicProvider {
	baseURL := cfg.APIURL
	if baseURL == "" {
		baseURL = defaultQQBaseURL
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 5.0
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &QQMusicProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(limit), 1),
		store:      st,
		log:        logger,
		caps: NewCapabilitySet(
			CapAuthQRLogin,
			CapSearchSong, CapSearchAlbum, CapSearchPlaylist, CapSearchSuggest, CapSearchHot,
			CapPlaySong, CapPlayQualityLossless, CapPlayQualityHigh, CapPlayQualityStandard,
			CapLyricBasic, CapLyricWordByWord, CapLyricTranslation,
			CapRecommendDaily, CapRecommendPersonalized, CapRecommendPlaylist,
			CapPlaylistUser, CapPlaylistFavorite,
		),
	}
}

func (q *QQMusicProvider) ID() string   { return "qqmusic" }
func (q *QQMusicProvider) Name() string { return "QQ Music" }

func (q *QQMusicProvider) Capabilities() CapabilitySet { return q.caps }

// LoadCredential restores the persisted cookie map into memory.
func (q *QQMusicProvider) LoadCredential(_ context.Context) error {
	if q.store == nil {
		return nil
	}
	cred, err := q.store.QQMusicCredential()
	if err != nil {
		return err
	}
	q.mu.Lock()
	q.credential = cred
	q.mu.Unlock()
	return nil
}

// SaveCredential merges the supplied cookie fields into the stored
// credential and the in-memory copy.
func (q *QQMusicProvider) SaveCredential(_ context.Context, credential map[string]string) error {
	q.mu.Lock()
	if q.credential == nil {
		q.credential = make(map[string]string, len(credential))
	}
	for k, v := range credential {
		q.credential[k] = v
	}
	q.mu.Unlock()
	if q.store == nil {
		return nil
	}
	_, err := q.store.SetQQMusicCredential(credential)
	return err
}

func (q *QQMusicProvider) credentialSnapshot() map[string]string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[string]string, len(q.credential))
	for k, v := range q.credential {
		out[k] = v
	}
	return out
}

func (q *QQMusicProvider) loggedIn() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.credential["musickey"] != ""
}

// qqEnvelope is the gateway's uniform response wrapper.
type qqEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (q *QQMusicProvider) doRequest(ctx context.Context, endpoint string, query url.Values, result any) error {
	if err := q.limiter.Wait(ctx); err != nil {
		return err
	}

	apiURL := q.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if cookie := q.cookieHeader(); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: gateway status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var envelope qqEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if envelope.Code != 0 {
		msg := envelope.Message
		if msg == "" {
			msg = fmt.Sprintf("gateway error code %d", envelope.Code)
		}
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, msg)
	}
	if result != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (q *QQMusicProvider) cookieHeader() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.credential) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(q.credential))
	for k, v := range q.credential {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, "; ")
}

// GetQRCode requests a login QR code. loginType is "qq" or "wx"; anything
// else defaults to "qq".
func (q *QQMusicProvider) GetQRCode(ctx context.Context, loginType string) QRCodeResult {
	if loginType != "qq" && loginType != "wx" {
		loginType = "qq"
	}
	var data struct {
		QRID   string `json:"qr_id"`
		QRData string `json:"qr_data"`
	}
	query := url.Values{"type": {loginType}}
	if err := q.doRequest(ctx, "/login/qrcode", query, &data); err != nil {
		return QRCodeResult{LoginType: loginType, Error: err.Error()}
	}
	return QRCodeResult{
		Success:   true,
		QRData:    data.QRData,
		LoginType: loginType,
	}
}

// CheckQRStatus polls the pending QR login. On success the gateway returns
// the cookie credential, which is persisted immediately.
func (q *QQMusicProvider) CheckQRStatus(ctx context.Context, qrID string) QRStatusResult {
	var data struct {
		Status     string            `json:"status"`
		Credential map[string]string `json:"credential"`
	}
	query := url.Values{"id": {qrID}}
	if err := q.doRequest(ctx, "/login/qrcode/status", query, &data); err != nil {
		return QRStatusResult{Status: QRStatusUnknown, Error: err.Error()}
	}

	status := data.Status
	switch status {
	case QRStatusWaiting, QRStatusScanned, QRStatusTimeout, QRStatusSuccess, QRStatusRefused:
	default:
		status = QRStatusUnknown
	}
	res := QRStatusResult{Success: true, Status: status}
	if status == QRStatusSuccess && len(data.Credential) > 0 {
		if err := q.SaveCredential(ctx, data.Credential); err != nil {
			q.log.Error("failed to persist credential", "provider", q.ID(), "error", err)
		}
		res.LoggedIn = true
		if id, err := strconv.ParseInt(data.Credential["musicid"], 10, 64); err == nil {
			res.MusicID = id
		}
	}
	return res
}

// GetLoginStatus validates the stored credential against the gateway. An
// expired credential is refreshed once; a refresh failure reports
// logged_in=false with expired=true and keeps the stale cookie in place so
// the caller can decide whether to log out.
func (q *QQMusicProvider) GetLoginStatus(ctx context.Context) LoginStatusResult {
	if !q.loggedIn() {
		return LoginStatusResult{LoggedIn: false}
	}

	var check struct {
		Valid   bool  `json:"valid"`
		MusicID int64 `json:"musicid"`
	}
	if err := q.doRequest(ctx, "/credential/check", nil, &check); err != nil {
		return LoginStatusResult{LoggedIn: false, Error: err.Error()}
	}
	if check.Valid {
		return LoginStatusResult{LoggedIn: true, MusicID: check.MusicID, EncryptUin: q.encryptUin()}
	}

	var refreshed struct {
		Credential map[string]string `json:"credential"`
	}
	if err := q.doRequest(ctx, "/credential/refresh", nil, &refreshed); err != nil || len(refreshed.Credential) == 0 {
		q.log.Warn("credential refresh failed", "provider", q.ID())
		return LoginStatusResult{LoggedIn: false, Expired: true}
	}
	if err := q.SaveCredential(ctx, refreshed.Credential); err != nil {
		return LoginStatusResult{LoggedIn: false, Expired: true, Error: err.Error()}
	}
	musicID, _ := strconv.ParseInt(refreshed.Credential["musicid"], 10, 64)
	q.log.Info("credential refreshed", "provider", q.ID())
	return LoginStatusResult{LoggedIn: true, MusicID: musicID, Refreshed: true, EncryptUin: q.encryptUin()}
}

func (q *QQMusicProvider) encryptUin() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.credential["encrypt_uin"]
}

// Logout discards the stored credential. Succeeds even when nothing was
// stored.
func (q *QQMusicProvider) Logout(_ context.Context) OperationResult {
	q.mu.Lock()
	q.credential = nil
	q.mu.Unlock()
	if q.store != nil {
		if _, err := q.store.DeleteQQMusicCredential(); err != nil {
			return OperationResult{Error: err.Error()}
		}
	}
	return OperationResult{Success: true}
}

// qqSong is the gateway's song payload.
type qqSong struct {
	ID     int    `json:"id"`
	Mid    string `json:"mid"`
	Name   string `json:"name"`
	Singer []struct {
		Name string `json:"name"`
	} `json:"singer"`
	Album struct {
		Name string `json:"name"`
		Mid  string `json:"mid"`
	} `json:"album"`
	Interval int    `json:"interval"`
	Cover    string `json:"cover"`
}

func (q *QQMusicProvider) normalizeSong(s qqSong) Song {
	singers := make([]string, 0, len(s.Singer))
	for _, singer := range s.Singer {
		if singer.Name != "" {
			singers = append(singers, singer.Name)
		}
	}
	return Song{
		ID:       s.ID,
		Mid:      s.Mid,
		Name:     s.Name,
		Singer:   strings.Join(singers, ", "),
		Album:    s.Album.Name,
		AlbumMid: s.Album.Mid,
		Duration: s.Interval,
		Cover:    s.Cover,
		Provider: q.ID(),
	}
}

func (q *QQMusicProvider) normalizeSongs(raw []qqSong) []Song {
	songs := make([]Song, len(raw))
	for i, s := range raw {
		songs[i] = q.normalizeSong(s)
	}
	return songs
}

func (q *QQMusicProvider) SearchSongs(ctx context.Context, keyword string, page, num int) SearchResult {
	if strings.TrimSpace(keyword) == "" {
		return SearchResult{Error: "Keyword is required"}
	}
	if page < 1 {
		page = 1
	}
	if num < 1 {
		num = 20
	}
	var data struct {
		Songs []qqSong `json:"songs"`
	}
	query := url.Values{
		"keyword": {keyword},
		"page":    {strconv.Itoa(page)},
		"num":     {strconv.Itoa(num)},
	}
	if err := q.doRequest(ctx, "/search/song", query, &data); err != nil {
		return SearchResult{Error: err.Error()}
	}
	return SearchResult{
		Success: true,
		Songs:   q.normalizeSongs(data.Songs),
		Keyword: keyword,
		Page:    page,
	}
}

func (q *QQMusicProvider) HotSearch(ctx context.Context) HotSearchResult {
	var data struct {
		HotKeys []HotKey `json:"hotkeys"`
	}
	if err := q.doRequest(ctx, "/search/hot", nil, &data); err != nil {
		return HotSearchResult{Error: err.Error()}
	}
	return HotSearchResult{Success: true, HotKeys: data.HotKeys}
}

// SearchSuggest returns song, singer, and album suggestions, capped at ten
// entries overall.
func (q *QQMusicProvider) SearchSuggest(ctx context.Context, keyword string) SuggestResult {
	if strings.TrimSpace(keyword) == "" {
		return SuggestResult{Error: "Keyword is required"}
	}
	var data struct {
		Songs []struct {
			Name   string `json:"name"`
			Singer string `json:"singer"`
		} `json:"songs"`
		Singers []struct {
			Name string `json:"name"`
		} `json:"singers"`
		Albums []struct {
			Name   string `json:"name"`
			Singer string `json:"singer"`
		} `json:"albums"`
	}
	query := url.Values{"keyword": {keyword}}
	if err := q.doRequest(ctx, "/search/suggest", query, &data); err != nil {
		return SuggestResult{Error: err.Error()}
	}

	suggestions := make([]Suggestion, 0, suggestCap)
	for _, s := range data.Songs {
		suggestions = append(suggestions, Suggestion{Type: "song", Keyword: s.Name, Singer: s.Singer})
	}
	for _, s := range data.Singers {
		suggestions = append(suggestions, Suggestion{Type: "singer", Keyword: s.Name})
	}
	for _, a := range data.Albums {
		suggestions = append(suggestions, Suggestion{Type: "album", Keyword: a.Name, Singer: a.Singer})
	}
	if len(suggestions) > suggestCap {
		suggestions = suggestions[:suggestCap]
	}
	return SuggestResult{Success: true, Suggestions: suggestions}
}

// pickOrder resolves the quality preference to the ordered file types to
// try. Logged-out accounts cannot fetch the large files, so auto and high
// degrade to the balanced profile.
func (q *QQMusicProvider) pickOrder(quality string) []string {
	order, ok := qqPickOrder[quality]
	if !ok {
		order = qqPickOrder[QualityAuto]
		quality = QualityAuto
	}
	if !q.loggedIn() && (quality == QualityAuto || quality == QualityHigh) {
		return qqPickOrder[QualityBalanced]
	}
	return order
}

// SongURL tries each file type in the preference order until the gateway
// yields a usable URL.
func (q *QQMusicProvider) SongURL(ctx context.Context, mid, quality string) SongURLResult {
	if mid == "" {
		return SongURLResult{Error: "Song mid is required"}
	}

	var lastErr string
	for _, fileType := range q.pickOrder(quality) {
		var data struct {
			URL string `json:"url"`
		}
		query := url.Values{"mid": {mid}, "type": {fileType}}
		if err := q.doRequest(ctx, "/song/url", query, &data); err != nil {
			lastErr = err.Error()
			continue
		}
		if data.URL == "" {
			continue
		}
		return SongURLResult{
			Success:  true,
			URL:      data.URL,
			Mid:      mid,
			Quality:  fileType,
			Provider: q.ID(),
		}
	}
	if lastErr == "" {
		lastErr = "Failed to get playable URL"
	}
	return SongURLResult{Mid: mid, Error: lastErr}
}

func (q *QQMusicProvider) SongURLsBatch(ctx context.Context, mids []string) SongURLBatchResult {
	if len(mids) == 0 {
		return SongURLBatchResult{Error: "Song mids are required"}
	}
	var data struct {
		URLs map[string]string `json:"urls"`
	}
	query := url.Values{"mids": {strings.Join(mids, ",")}}
	if err := q.doRequest(ctx, "/song/urls", query, &data); err != nil {
		return SongURLBatchResult{Error: err.Error()}
	}
	return SongURLBatchResult{Success: true, URLs: data.URLs}
}

func (q *QQMusicProvider) SongLyric(ctx context.Context, mid string, qrc bool) LyricResult {
	if mid == "" {
		return LyricResult{Error: "Song mid is required"}
	}
	var data struct {
		Lyric string `json:"lyric"`
		Trans string `json:"trans"`
		QRC   bool   `json:"qrc"`
	}
	query := url.Values{"mid": {mid}}
	if qrc {
		query.Set("qrc", "1")
	}
	if err := q.doRequest(ctx, "/lyric", query, &data); err != nil {
		return LyricResult{Mid: mid, Error: err.Error()}
	}
	if data.Lyric == "" {
		return LyricResult{Mid: mid, Error: "Lyric not found"}
	}
	return LyricResult{
		Success: true,
		Lyric:   data.Lyric,
		Trans:   data.Trans,
		Mid:     mid,
		QRC:     data.QRC,
	}
}

func (q *QQMusicProvider) SongInfo(ctx context.Context, mid string) SongInfoResult {
	if mid == "" {
		return SongInfoResult{Error: "Song mid is required"}
	}
	var info map[string]any
	query := url.Values{"mid": {mid}}
	if err := q.doRequest(ctx, "/song/detail", query, &info); err != nil {
		return SongInfoResult{Error: err.Error()}
	}
	return SongInfoResult{Success: true, Info: info}
}

func (q *QQMusicProvider) GuessLike(ctx context.Context) RecommendResult {
	if !q.loggedIn() {
		return RecommendResult{Error: errNotLoggedIn}
	}
	var data struct {
		Songs []qqSong `json:"songs"`
	}
	if err := q.doRequest(ctx, "/recommend/guess", nil, &data); err != nil {
		return RecommendResult{Error: err.Error()}
	}
	return RecommendResult{Success: true, Songs: q.normalizeSongs(data.Songs)}
}

// DailyRecommend prefers the personalized radar feed and falls back to the
// public new-song chart when the radar yields nothing. The list is capped at
// twenty songs and stamped with today's date.
func (q *QQMusicProvider) DailyRecommend(ctx context.Context) RecommendResult {
	var data struct {
		Songs []qqSong `json:"songs"`
	}
	if err := q.doRequest(ctx, "/recommend/daily", nil, &data); err != nil || len(data.Songs) == 0 {
		data.Songs = nil
		if err := q.doRequest(ctx, "/recommend/newsong", nil, &data); err != nil {
			return RecommendResult{Error: err.Error()}
		}
	}
	songs := q.normalizeSongs(data.Songs)
	if len(songs) > dailyRecommendCap {
		songs = songs[:dailyRecommendCap]
	}
	return RecommendResult{
		Success: true,
		Songs:   songs,
		Date:    time.Now().Format("2006-01-02"),
	}
}

// qqPlaylist is the gateway's playlist payload.
type qqPlaylist struct {
	ID        int64  `json:"id"`
	DirID     int    `json:"dirid"`
	Name      string `json:"name"`
	Cover     string `json:"cover"`
	SongCount int    `json:"song_count"`
	PlayCount int    `json:"play_count"`
	Creator   string `json:"creator"`
}

func (q *QQMusicProvider) normalizePlaylists(raw []qqPlaylist) []Playlist {
	playlists := make([]Playlist, len(raw))
	for i, p := range raw {
		playlists[i] = Playlist{
			ID:        p.ID,
			DirID:     p.DirID,
			Name:      p.Name,
			Cover:     p.Cover,
			SongCount: p.SongCount,
			PlayCount: p.PlayCount,
			Creator:   p.Creator,
			Provider:  q.ID(),
		}
	}
	return playlists
}

func (q *QQMusicProvider) RecommendPlaylists(ctx context.Context) RecommendPlaylistsResult {
	var data struct {
		Playlists []qqPlaylist `json:"playlists"`
	}
	if err := q.doRequest(ctx, "/recommend/playlists", nil, &data); err != nil {
		return RecommendPlaylistsResult{Error: err.Error()}
	}
	return RecommendPlaylistsResult{Success: true, Playlists: q.normalizePlaylists(data.Playlists)}
}

func (q *QQMusicProvider) FavSongs(ctx context.Context, page, num int) FavSongsResult {
	if !q.loggedIn() {
		return FavSongsResult{Error: errNotLoggedIn}
	}
	if page < 1 {
		page = 1
	}
	if num < 1 {
		num = 20
	}
	var data struct {
		Songs []qqSong `json:"songs"`
		Total int      `json:"total"`
	}
	query := url.Values{
		"page": {strconv.Itoa(page)},
		"num":  {strconv.Itoa(num)},
	}
	if err := q.doRequest(ctx, "/user/fav/songs", query, &data); err != nil {
		return FavSongsResult{Error: err.Error()}
	}
	return FavSongsResult{Success: true, Songs: q.normalizeSongs(data.Songs), Total: data.Total}
}

// UserPlaylists fetches the created and collected lists. The two lists come
// from separate gateway endpoints; one failing does not discard the other.
func (q *QQMusicProvider) UserPlaylists(ctx context.Context) UserPlaylistsResult {
	if !q.loggedIn() {
		return UserPlaylistsResult{Error: errNotLoggedIn}
	}

	var created struct {
		Playlists []qqPlaylist `json:"playlists"`
	}
	createdErr := q.doRequest(ctx, "/user/playlists/created", nil, &created)

	var collected struct {
		Playlists []qqPlaylist `json:"playlists"`
	}
	collectedErr := q.doRequest(ctx, "/user/playlists/collected", nil, &collected)

	if createdErr != nil && collectedErr != nil {
		return UserPlaylistsResult{Error: createdErr.Error()}
	}
	if createdErr != nil {
		q.log.Warn("created playlists unavailable", "provider", q.ID(), "error", createdErr)
	}
	if collectedErr != nil {
		q.log.Warn("collected playlists unavailable", "provider", q.ID(), "error", collectedErr)
	}
	return UserPlaylistsResult{
		Success:   true,
		Created:   q.normalizePlaylists(created.Playlists),
		Collected: q.normalizePlaylists(collected.Playlists),
	}
}

// PlaylistSongs lists a playlist's songs. The user's own playlists are
// addressed by dirID; public playlists by playlistID.
func (q *QQMusicProvider) PlaylistSongs(ctx context.Context, playlistID int64, dirID, page, num int) PlaylistSongsResult {
	if playlistID == 0 && dirID == 0 {
		return PlaylistSongsResult{Error: "Playlist id is required"}
	}
	if page < 1 {
		page = 1
	}
	if num < 1 {
		num = 50
	}
	var data struct {
		Songs []qqSong `json:"songs"`
	}
	query := url.Values{
		"page": {strconv.Itoa(page)},
		"num":  {strconv.Itoa(num)},
	}
	if playlistID != 0 {
		query.Set("id", strconv.FormatInt(playlistID, 10))
	}
	if dirID != 0 {
		query.Set("dirid", strconv.Itoa(dirID))
	}
	if err := q.doRequest(ctx, "/playlist/songs", query, &data); err != nil {
		return PlaylistSongsResult{PlaylistID: playlistID, Error: err.Error()}
	}
	return PlaylistSongsResult{
		Success:    true,
		Songs:      q.normalizeSongs(data.Songs),
		PlaylistID: playlistID,
	}
}
