// Spotify [Provider] implementation.
//
// Anonymous catalog access through the client-credentials grant. No user
// login exists here, so the provider counts as logged in whenever a token
// can be minted, and playback serves the 30 second preview clips. It is
// meant as a last-resort fallback catalog, not a primary player.
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
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/duskfall/crossfade/internal/shared"
)

const (
	defaultSpotifyBaseURL  = "https://api.spotify.com/v1"
	defaultSpotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// SpotifyProvider implements the anonymous subset of the Provider contract.
type SpotifyProvider struct {
	Unimplemented

	baseURL    string
	httpClient *http.Client
	config     *clientcredentials.Config
	log        *log.Logger
	caps       CapabilitySet

	mu    sync.Mutex
	token *oauth2.Token
}

// NewSpotifyProvider creates the provider. tokenURL and baseURL overrides
// are for tests; empty strings select the real endpoints.
func NewSpotifyProvider(cfg shared.SpotifyConfig, baseURL, tokenURL string, logger *log.Logger) *SpotifyProvider {
	if baseURL == "" {
		baseURL = defaultSpotifyBaseURL
	}
	if tokenURL == "" {
		tokenURL = defaultSpotifyTokenURL
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SpotifyProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		config: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
		},
		log: logger,
		caps: NewCapabilitySet(
			CapAuthAnonymous,
			CapSearchSong,
			CapPlaySong, CapPlayQualityStandard,
		),
	}
}

func (s *SpotifyProvider) ID() string   { return "spotify" }
func (s *SpotifyProvider) Name() string { return "Spotify" }

func (s *SpotifyProvider) Capabilities() CapabilitySet { return s.caps }

// ensureToken mints or reuses a client-credentials token.
func (s *SpotifyProvider) ensureToken(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != nil && s.token.Valid() {
		return s.token, nil
	}
	if s.config.ClientID == "" || s.config.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client_id and client_secret", shared.ErrMissingCredentials)
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	s.token = token
	return token, nil
}

// GetLoginStatus reports logged in whenever a token can be minted. There is
// no user identity behind the client-credentials grant.
func (s *SpotifyProvider) GetLoginStatus(ctx context.Context) LoginStatusResult {
	if _, err := s.ensureToken(ctx); err != nil {
		return LoginStatusResult{LoggedIn: false, Error: err.Error()}
	}
	return LoginStatusResult{LoggedIn: true}
}

// Logout drops the cached token; the next call mints a fresh one.
func (s *SpotifyProvider) Logout(_ context.Context) OperationResult {
	s.mu.Lock()
	s.token = nil
	s.mu.Unlock()
	return OperationResult{Success: true}
}

func (s *SpotifyProvider) doRequest(ctx context.Context, endpoint string, query url.Values, result any) error {
	token, err := s.ensureToken(ctx)
	if err != nil {
		return err
	}

	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: spotify status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// spotifyTrack is the API's track payload.
type spotifyTrack struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name   string `json:"name"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
	DurationMS int    `json:"duration_ms"`
	PreviewURL string `json:"preview_url"`
}

func (s *SpotifyProvider) normalizeTrack(t spotifyTrack) Song {
	singers := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a.Name != "" {
			singers = append(singers, a.Name)
		}
	}
	cover := ""
	if len(t.Album.Images) > 0 {
		cover = t.Album.Images[0].URL
	}
	return Song{
		Mid:      t.ID,
		Name:     t.Name,
		Singer:   strings.Join(singers, ", "),
		Album:    t.Album.Name,
		Duration: t.DurationMS / 1000,
		Cover:    cover,
		Provider: s.ID(),
	}
}

func (s *SpotifyProvider) SearchSongs(ctx context.Context, keyword string, page, num int) SearchResult {
	if strings.TrimSpace(keyword) == "" {
		return SearchResult{Error: "Keyword is required"}
	}
	if page < 1 {
		page = 1
	}
	if num < 1 || num > 50 {
		num = 20
	}
	var data struct {
		Tracks struct {
			Items []spotifyTrack `json:"items"`
		} `json:"tracks"`
	}
	query := url.Values{
		"q":      {keyword},
		"type":   {"track"},
		"limit":  {strconv.Itoa(num)},
		"offset": {strconv.Itoa((page - 1) * num)},
	}
	if err := s.doRequest(ctx, "/search", query, &data); err != nil {
		return SearchResult{Error: err.Error()}
	}
	songs := make([]Song, len(data.Tracks.Items))
	for i, t := range data.Tracks.Items {
		songs[i] = s.normalizeTrack(t)
	}
	return SearchResult{Success: true, Songs: songs, Keyword: keyword, Page: page}
}

// SongURL serves the track's preview clip. Full playback needs a user
// session, which the anonymous grant does not carry.
func (s *SpotifyProvider) SongURL(ctx context.Context, mid, _ string) SongURLResult {
	if mid == "" {
		return SongURLResult{Error: "Track id is required"}
	}
	var track spotifyTrack
	if err := s.doRequest(ctx, "/tracks/"+url.PathEscape(mid), nil, &track); err != nil {
		return SongURLResult{Mid: mid, Error: err.Error()}
	}
	if track.PreviewURL == "" {
		return SongURLResult{Mid: mid, Error: "No preview available"}
	}
	return SongURLResult{
		Success:  true,
		URL:      track.PreviewURL,
		Mid:      mid,
		Quality:  "preview",
		Provider: s.ID(),
	}
}

// SongURLsBatch resolves preview URLs for up to 50 tracks in one request.
func (s *SpotifyProvider) SongURLsBatch(ctx context.Context, mids []string) SongURLBatchResult {
	if len(mids) == 0 {
		return SongURLBatchResult{Error: "Track ids are required"}
	}
	if len(mids) > 50 {
		mids = mids[:50]
	}
	var data struct {
		Tracks []spotifyTrack `json:"tracks"`
	}
	query := url.Values{"ids": {strings.Join(mids, ",")}}
	if err := s.doRequest(ctx, "/tracks", query, &data); err != nil {
		return SongURLBatchResult{Error: err.Error()}
	}
	urls := make(map[string]string, len(data.Tracks))
	for _, t := range data.Tracks {
		if t.PreviewURL != "" {
			urls[t.ID] = t.PreviewURL
		}
	}
	return SongURLBatchResult{Success: true, URLs: urls}
}

func (s *SpotifyProvider) SongInfo(ctx context.Context, mid string) SongInfoResult {
	if mid == "" {
		return SongInfoResult{Error: "Track id is required"}
	}
	var info map[string]any
	if err := s.doRequest(ctx, "/tracks/"+url.PathEscape(mid), nil, &info); err != nil {
		return SongInfoResult{Error: err.Error()}
	}
	return SongInfoResult{Success: true, Info: info}
}
