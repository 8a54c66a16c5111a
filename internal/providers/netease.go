// Netease Cloud Music [Provider] implementation.
//
// Communicates with a NeteaseCloudMusicApi-compatible gateway. The session
// is a raw cookie string minted by the QR login flow and persisted through
// the store.
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
	defaultNeteaseBaseURL = "http://127.0.0.1:3100"

	// playlist detail returns every track id; only this many are resolved
	// per page of detail lookups
	neteaseTrackDetailCap = 100
)

// Netease QR check codes.
const (
	neteaseQRExpired = 800
	neteaseQRWaiting = 801
	neteaseQRScanned = 802
	neteaseQRSuccess = 803
)

// neteaseLevel maps the quality preference to the gateway's level values.
var neteaseLevel = map[string]string{
	QualityAuto:     "exhigh",
	QualityHigh:     "exhigh",
	QualityBalanced: "standard",
	QualityCompat:   "standard",
}

// NeteaseProvider implements the Provider contract over a
// NeteaseCloudMusicApi gateway.
type NeteaseProvider struct {
	Unimplemented

	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	store      *store.Store
	log        *log.Logger
	caps       CapabilitySet

	mu      sync.Mutex
	session string
	userID  int64
}

func NewNeteaseProvider(cfg shared.GatewayConfig, st *store.Store, logger *log.Logger) *NeteaseProvider {
	baseURL := cfg.APIURL
	if baseURL == "" {
		baseURL = defaultNeteaseBaseURL
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 5.0
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &NeteaseProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(limit), 1),
		store:      st,
		log:        logger,
		caps: NewCapabilitySet(
			CapAuthQRLogin, CapAuthAnonymous,
			CapSearchSong, CapSearchSuggest, CapSearchHot,
			CapPlaySong, CapPlayQualityHigh, CapPlayQualityStandard,
			CapLyricBasic, CapLyricTranslation,
			CapRecommendDaily, CapRecommendPlaylist,
			CapPlaylistUser,
		),
	}
}

func (n *NeteaseProvider) ID() string   { return "netease" }
func (n *NeteaseProvider) Name() string { return "Netease Cloud Music" }

func (n *NeteaseProvider) Capabilities() CapabilitySet { return n.caps }

func (n *NeteaseProvider) LoadCredential(_ context.Context) error {
	if n.store == nil {
		return nil
	}
	session, err := n.store.NeteaseSession()
	if err != nil {
		return err
	}
	n.mu.Lock()
	n.session = session
	n.mu.Unlock()
	return nil
}

// SaveCredential stores the session cookie string under the "session" key.
func (n *NeteaseProvider) SaveCredential(_ context.Context, credential map[string]string) error {
	session := credential["session"]
	if session == "" {
		return fmt.Errorf("%w: session", shared.ErrMissingCredentials)
	}
	n.mu.Lock()
	n.session = session
	n.userID = 0
	n.mu.Unlock()
	if n.store == nil {
		return nil
	}
	return n.store.SetNeteaseSession(session)
}

func (n *NeteaseProvider) sessionCookie() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.session
}

func (n *NeteaseProvider) doRequest(ctx context.Context, endpoint string, query url.Values, result any) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	apiURL := n.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if session := n.sessionCookie(); session != "" {
		req.Header.Set("Cookie", session)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: gateway status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// GetQRCode starts the unikey QR flow: mint a key, then render it. The
// returned qr_data is the gateway's QR image data URI and the key doubles
// as the poll id for CheckQRStatus.
func (n *NeteaseProvider) GetQRCode(ctx context.Context, _ string) QRCodeResult {
	var key struct {
		Data struct {
			Unikey string `json:"unikey"`
		} `json:"data"`
	}
	ts := url.Values{"timestamp": {strconv.FormatInt(time.Now().UnixMilli(), 10)}}
	if err := n.doRequest(ctx, "/login/qr/key", ts, &key); err != nil {
		return QRCodeResult{LoginType: "netease", Error: err.Error()}
	}
	if key.Data.Unikey == "" {
		return QRCodeResult{LoginType: "netease", Error: "Failed to create QR key"}
	}

	var created struct {
		Data struct {
			QRImg string `json:"qrimg"`
			QRURL string `json:"qrurl"`
		} `json:"data"`
	}
	query := url.Values{"key": {key.Data.Unikey}, "qrimg": {"true"}}
	if err := n.doRequest(ctx, "/login/qr/create", query, &created); err != nil {
		return QRCodeResult{LoginType: "netease", Error: err.Error()}
	}

	qrData := created.Data.QRImg
	isURL := false
	if qrData == "" {
		qrData = created.Data.QRURL
		isURL = true
	}
	return QRCodeResult{
		Success:   true,
		QRData:    qrData,
		IsURL:     isURL,
		LoginType: "netease",
	}
}

// CheckQRStatus polls the unikey. Code 803 carries the session cookie.
func (n *NeteaseProvider) CheckQRStatus(ctx context.Context, qrID string) QRStatusResult {
	var data struct {
		Code   int    `json:"code"`
		Cookie string `json:"cookie"`
	}
	query := url.Values{
		"key":       {qrID},
		"timestamp": {strconv.FormatInt(time.Now().UnixMilli(), 10)},
	}
	if err := n.doRequest(ctx, "/login/qr/check", query, &data); err != nil {
		return QRStatusResult{Status: QRStatusUnknown, Error: err.Error()}
	}

	switch data.Code {
	case neteaseQRWaiting:
		return QRStatusResult{Success: true, Status: QRStatusWaiting}
	case neteaseQRScanned:
		return QRStatusResult{Success: true, Status: QRStatusScanned}
	case neteaseQRExpired:
		return QRStatusResult{Success: true, Status: QRStatusTimeout}
	case neteaseQRSuccess:
		if data.Cookie != "" {
			if err := n.SaveCredential(ctx, map[string]string{"session": data.Cookie}); err != nil {
				n.log.Error("failed to persist session", "provider", n.ID(), "error", err)
			}
		}
		res := QRStatusResult{Success: true, Status: QRStatusSuccess, LoggedIn: true}
		if status := n.GetLoginStatus(ctx); status.LoggedIn {
			res.MusicID = status.MusicID
		}
		return res
	default:
		return QRStatusResult{Status: QRStatusUnknown, Error: fmt.Sprintf("unexpected QR code %d", data.Code)}
	}
}

func (n *NeteaseProvider) GetLoginStatus(ctx context.Context) LoginStatusResult {
	if n.sessionCookie() == "" {
		return LoginStatusResult{LoggedIn: false}
	}
	var status struct {
		Data struct {
			Account *struct {
				ID int64 `json:"id"`
			} `json:"account"`
			Profile *struct {
				Nickname string `json:"nickname"`
			} `json:"profile"`
		} `json:"data"`
	}
	if err := n.doRequest(ctx, "/login/status", nil, &status); err != nil {
		return LoginStatusResult{LoggedIn: false, Error: err.Error()}
	}
	if status.Data.Account == nil || status.Data.Account.ID == 0 {
		return LoginStatusResult{LoggedIn: false, Expired: true}
	}
	n.mu.Lock()
	n.userID = status.Data.Account.ID
	n.mu.Unlock()
	res := LoginStatusResult{LoggedIn: true, MusicID: status.Data.Account.ID}
	if status.Data.Profile != nil {
		res.Nickname = status.Data.Profile.Nickname
	}
	return res
}

func (n *NeteaseProvider) Logout(_ context.Context) OperationResult {
	n.mu.Lock()
	n.session = ""
	n.userID = 0
	n.mu.Unlock()
	if n.store != nil {
		if _, err := n.store.DeleteNeteaseSession(); err != nil {
			return OperationResult{Error: err.Error()}
		}
	}
	return OperationResult{Success: true}
}

// neteaseSong is the gateway's track payload.
type neteaseSong struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"ar"`
	Album struct {
		Name   string `json:"name"`
		PicURL string `json:"picUrl"`
	} `json:"al"`
	DurationMS int `json:"dt"`
}

func (n *NeteaseProvider) normalizeSong(s neteaseSong) Song {
	singers := make([]string, 0, len(s.Artists))
	for _, a := range s.Artists {
		if a.Name != "" {
			singers = append(singers, a.Name)
		}
	}
	return Song{
		ID:       int(s.ID),
		Mid:      strconv.FormatInt(s.ID, 10),
		Name:     s.Name,
		Singer:   strings.Join(singers, ", "),
		Album:    s.Album.Name,
		Duration: s.DurationMS / 1000,
		Cover:    s.Album.PicURL,
		Provider: n.ID(),
	}
}

func (n *NeteaseProvider) normalizeSongs(raw []neteaseSong) []Song {
	songs := make([]Song, len(raw))
	for i, s := range raw {
		songs[i] = n.normalizeSong(s)
	}
	return songs
}

// SearchSongs searches the cloud catalog. The gateway pages by offset, so
// the 1-based page is converted before the request.
func (n *NeteaseProvider) SearchSongs(ctx context.Context, keyword string, page, num int) SearchResult {
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
		Result struct {
			Songs []neteaseSong `json:"songs"`
		} `json:"result"`
	}
	query := url.Values{
		"keywords": {keyword},
		"limit":    {strconv.Itoa(num)},
		"offset":   {strconv.Itoa((page - 1) * num)},
	}
	if err := n.doRequest(ctx, "/cloudsearch", query, &data); err != nil {
		return SearchResult{Error: err.Error()}
	}
	return SearchResult{
		Success: true,
		Songs:   n.normalizeSongs(data.Result.Songs),
		Keyword: keyword,
		Page:    page,
	}
}

func (n *NeteaseProvider) HotSearch(ctx context.Context) HotSearchResult {
	var data struct {
		Data []struct {
			SearchWord string `json:"searchWord"`
			Score      int    `json:"score"`
		} `json:"data"`
	}
	if err := n.doRequest(ctx, "/search/hot/detail", nil, &data); err != nil {
		return HotSearchResult{Error: err.Error()}
	}
	hotkeys := make([]HotKey, len(data.Data))
	for i, h := range data.Data {
		hotkeys[i] = HotKey{Keyword: h.SearchWord, Score: h.Score}
	}
	return HotSearchResult{Success: true, HotKeys: hotkeys}
}

func (n *NeteaseProvider) SearchSuggest(ctx context.Context, keyword string) SuggestResult {
	if strings.TrimSpace(keyword) == "" {
		return SuggestResult{Error: "Keyword is required"}
	}
	var data struct {
		Result struct {
			AllMatch []struct {
				Keyword string `json:"keyword"`
			} `json:"allMatch"`
		} `json:"result"`
	}
	query := url.Values{"keywords": {keyword}, "type": {"mobile"}}
	if err := n.doRequest(ctx, "/search/suggest", query, &data); err != nil {
		return SuggestResult{Error: err.Error()}
	}
	suggestions := make([]Suggestion, 0, len(data.Result.AllMatch))
	for _, m := range data.Result.AllMatch {
		suggestions = append(suggestions, Suggestion{Type: "song", Keyword: m.Keyword})
	}
	if len(suggestions) > suggestCap {
		suggestions = suggestions[:suggestCap]
	}
	return SuggestResult{Success: true, Suggestions: suggestions}
}

func (n *NeteaseProvider) SongURL(ctx context.Context, mid, quality string) SongURLResult {
	if mid == "" {
		return SongURLResult{Error: "Song id is required"}
	}
	level, ok := neteaseLevel[quality]
	if !ok {
		level = neteaseLevel[QualityAuto]
	}
	var data struct {
		Data []struct {
			URL   string `json:"url"`
			Level string `json:"level"`
		} `json:"data"`
	}
	query := url.Values{"id": {mid}, "level": {level}}
	if err := n.doRequest(ctx, "/song/url/v1", query, &data); err != nil {
		return SongURLResult{Mid: mid, Error: err.Error()}
	}
	if len(data.Data) == 0 || data.Data[0].URL == "" {
		return SongURLResult{Mid: mid, Error: "Failed to get playable URL"}
	}
	got := data.Data[0]
	resolved := got.Level
	if resolved == "" {
		resolved = level
	}
	return SongURLResult{
		Success:  true,
		URL:      got.URL,
		Mid:      mid,
		Quality:  resolved,
		Provider: n.ID(),
	}
}

func (n *NeteaseProvider) SongURLsBatch(ctx context.Context, mids []string) SongURLBatchResult {
	if len(mids) == 0 {
		return SongURLBatchResult{Error: "Song ids are required"}
	}
	var data struct {
		Data []struct {
			ID  int64  `json:"id"`
			URL string `json:"url"`
		} `json:"data"`
	}
	query := url.Values{
		"id":    {strings.Join(mids, ",")},
		"level": {neteaseLevel[QualityBalanced]},
	}
	if err := n.doRequest(ctx, "/song/url/v1", query, &data); err != nil {
		return SongURLBatchResult{Error: err.Error()}
	}
	urls := make(map[string]string, len(data.Data))
	for _, d := range data.Data {
		if d.URL != "" {
			urls[strconv.FormatInt(d.ID, 10)] = d.URL
		}
	}
	return SongURLBatchResult{Success: true, URLs: urls}
}

// SongLyric fetches the plain lyric plus the translation when present. The
// gateway has no word-by-word variant, so the qrc flag is ignored.
func (n *NeteaseProvider) SongLyric(ctx context.Context, mid string, _ bool) LyricResult {
	if mid == "" {
		return LyricResult{Error: "Song id is required"}
	}
	var data struct {
		LRC struct {
			Lyric string `json:"lyric"`
		} `json:"lrc"`
		TLyric struct {
			Lyric string `json:"lyric"`
		} `json:"tlyric"`
	}
	query := url.Values{"id": {mid}}
	if err := n.doRequest(ctx, "/lyric", query, &data); err != nil {
		return LyricResult{Mid: mid, Error: err.Error()}
	}
	if data.LRC.Lyric == "" {
		return LyricResult{Mid: mid, Error: "Lyric not found"}
	}
	return LyricResult{
		Success: true,
		Lyric:   data.LRC.Lyric,
		Trans:   data.TLyric.Lyric,
		Mid:     mid,
	}
}

func (n *NeteaseProvider) SongInfo(ctx context.Context, mid string) SongInfoResult {
	if mid == "" {
		return SongInfoResult{Error: "Song id is required"}
	}
	var data struct {
		Songs []map[string]any `json:"songs"`
	}
	query := url.Values{"ids": {mid}}
	if err := n.doRequest(ctx, "/song/detail", query, &data); err != nil {
		return SongInfoResult{Error: err.Error()}
	}
	if len(data.Songs) == 0 {
		return SongInfoResult{Error: "Song not found"}
	}
	return SongInfoResult{Success: true, Info: data.Songs[0]}
}

func (n *NeteaseProvider) DailyRecommend(ctx context.Context) RecommendResult {
	if n.sessionCookie() == "" {
		return RecommendResult{Error: errNotLoggedIn}
	}
	var data struct {
		Data struct {
			DailySongs []neteaseSong `json:"dailySongs"`
		} `json:"data"`
	}
	if err := n.doRequest(ctx, "/recommend/songs", nil, &data); err != nil {
		return RecommendResult{Error: err.Error()}
	}
	return RecommendResult{
		Success: true,
		Songs:   n.normalizeSongs(data.Data.DailySongs),
		Date:    time.Now().Format("2006-01-02"),
	}
}

func (n *NeteaseProvider) RecommendPlaylists(ctx context.Context) RecommendPlaylistsResult {
	var data struct {
		Result []struct {
			ID         int64  `json:"id"`
			Name       string `json:"name"`
			PicURL     string `json:"picUrl"`
			PlayCount  int    `json:"playCount"`
			TrackCount int    `json:"trackCount"`
		} `json:"result"`
	}
	query := url.Values{"limit": {"30"}}
	if err := n.doRequest(ctx, "/personalized", query, &data); err != nil {
		return RecommendPlaylistsResult{Error: err.Error()}
	}
	playlists := make([]Playlist, len(data.Result))
	for i, p := range data.Result {
		playlists[i] = Playlist{
			ID:        p.ID,
			Name:      p.Name,
			Cover:     p.PicURL,
			SongCount: p.TrackCount,
			PlayCount: p.PlayCount,
			Provider:  n.ID(),
		}
	}
	return RecommendPlaylistsResult{Success: true, Playlists: playlists}
}

// neteasePlaylist is the gateway's playlist payload.
type neteasePlaylist struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CoverURL   string `json:"coverImgUrl"`
	TrackCount int    `json:"trackCount"`
	PlayCount  int    `json:"playCount"`
	Creator    struct {
		UserID   int64  `json:"userId"`
		Nickname string `json:"nickname"`
	} `json:"creator"`
}

// UserPlaylists splits the account's playlists into created and collected
// by comparing each playlist's creator against the session's user id.
func (n *NeteaseProvider) UserPlaylists(ctx context.Context) UserPlaylistsResult {
	status := n.GetLoginStatus(ctx)
	if !status.LoggedIn {
		return UserPlaylistsResult{Error: errNotLoggedIn}
	}

	var data struct {
		Playlist []neteasePlaylist `json:"playlist"`
	}
	query := url.Values{"uid": {strconv.FormatInt(status.MusicID, 10)}}
	if err := n.doRequest(ctx, "/user/playlist", query, &data); err != nil {
		return UserPlaylistsResult{Error: err.Error()}
	}

	created := make([]Playlist, 0, len(data.Playlist))
	collected := make([]Playlist, 0)
	for _, p := range data.Playlist {
		playlist := Playlist{
			ID:        p.ID,
			Name:      p.Name,
			Cover:     p.CoverURL,
			SongCount: p.TrackCount,
			PlayCount: p.PlayCount,
			Creator:   p.Creator.Nickname,
			Provider:  n.ID(),
		}
		if p.Creator.UserID == status.MusicID {
			created = append(created, playlist)
		} else {
			collected = append(collected, playlist)
		}
	}
	return UserPlaylistsResult{Success: true, Created: created, Collected: collected}
}

// PlaylistSongs resolves a playlist page. The detail endpoint only returns
// track ids, so the page's slice of ids is fetched in a second request.
func (n *NeteaseProvider) PlaylistSongs(ctx context.Context, playlistID int64, _, page, num int) PlaylistSongsResult {
	if playlistID == 0 {
		return PlaylistSongsResult{Error: "Playlist id is required"}
	}
	if page < 1 {
		page = 1
	}
	if num < 1 || num > neteaseTrackDetailCap {
		num = neteaseTrackDetailCap
	}

	var detail struct {
		Playlist struct {
			TrackIDs []struct {
				ID int64 `json:"id"`
			} `json:"trackIds"`
		} `json:"playlist"`
	}
	query := url.Values{"id": {strconv.FormatInt(playlistID, 10)}}
	if err := n.doRequest(ctx, "/playlist/detail", query, &detail); err != nil {
		return PlaylistSongsResult{PlaylistID: playlistID, Error: err.Error()}
	}

	ids := detail.Playlist.TrackIDs
	start := (page - 1) * num
	if start >= len(ids) {
		return PlaylistSongsResult{Success: true, Songs: []Song{}, PlaylistID: playlistID}
	}
	end := start + num
	if end > len(ids) {
		end = len(ids)
	}
	idStrs := make([]string, 0, end-start)
	for _, t := range ids[start:end] {
		idStrs = append(idStrs, strconv.FormatInt(t.ID, 10))
	}

	var songs struct {
		Songs []neteaseSong `json:"songs"`
	}
	query = url.Values{"ids": {strings.Join(idStrs, ",")}}
	if err := n.doRequest(ctx, "/song/detail", query, &songs); err != nil {
		return PlaylistSongsResult{PlaylistID: playlistID, Error: err.Error()}
	}
	return PlaylistSongsResult{
		Success:    true,
		Songs:      n.normalizeSongs(songs.Songs),
		PlaylistID: playlistID,
	}
}
