package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/duskfall/crossfade/internal/providers"
	"github.com/duskfall/crossfade/internal/shared"
	"github.com/duskfall/crossfade/internal/store"
)

// API serves the uniform JSON surface over the provider manager and the
// credential store. Every response carries the typed result shape; business
// failures encode as success=false with HTTP 200.
type API struct {
	manager *providers.Manager
	store   *store.Store
	log     *log.Logger
}

func NewAPI(manager *providers.Manager, st *store.Store, logger *log.Logger) *API {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &API{manager: manager, store: st, log: logger}
}

// NewHTTPHandler builds the fully-wired router: middleware plus every API
// route.
func NewHTTPHandler(manager *providers.Manager, st *store.Store, logger *log.Logger) http.Handler {
	api := NewAPI(manager, st, logger)
	router := NewBasicRouter()
	router.Use(RequestID(), LogRequests(api.log))
	api.Mount(router)
	return router
}

// Mount registers every endpoint on the router.
func (a *API) Mount(r Router) {
	r.Handle(http.MethodGet, "/api/health", http.HandlerFunc(a.health))

	r.Handle(http.MethodGet, "/api/providers", http.HandlerFunc(a.listProviders))
	r.Handle(http.MethodGet, "/api/providers/active", http.HandlerFunc(a.activeProvider))
	r.Handle(http.MethodPost, "/api/providers/switch", http.HandlerFunc(a.switchProvider))
	r.Handle(http.MethodPost, "/api/providers/fallback", http.HandlerFunc(a.setFallback))
	r.Handle(http.MethodGet, "/api/providers/selection", http.HandlerFunc(a.selection))
	r.Handle(http.MethodPost, "/api/providers/apply", http.HandlerFunc(a.applyConfig))

	r.Handle(http.MethodGet, "/api/auth/qr", http.HandlerFunc(a.authQR))
	r.Handle(http.MethodGet, "/api/auth/qr/status", http.HandlerFunc(a.authQRStatus))
	r.Handle(http.MethodGet, "/api/auth/status", http.HandlerFunc(a.authStatus))
	r.Handle(http.MethodPost, "/api/auth/logout", http.HandlerFunc(a.authLogout))

	r.Handle(http.MethodGet, "/api/search/songs", http.HandlerFunc(a.searchSongs))
	r.Handle(http.MethodGet, "/api/search/hot", http.HandlerFunc(a.hotSearch))
	r.Handle(http.MethodGet, "/api/search/suggest", http.HandlerFunc(a.searchSuggest))

	r.Handle(http.MethodGet, "/api/song/url", http.HandlerFunc(a.songURL))
	r.Handle(http.MethodGet, "/api/song/urls", http.HandlerFunc(a.songURLs))
	r.Handle(http.MethodGet, "/api/song/lyric", http.HandlerFunc(a.songLyric))
	r.Handle(http.MethodGet, "/api/song/info", http.HandlerFunc(a.songInfo))

	r.Handle(http.MethodGet, "/api/recommend/guess", http.HandlerFunc(a.recommendGuess))
	r.Handle(http.MethodGet, "/api/recommend/daily", http.HandlerFunc(a.recommendDaily))
	r.Handle(http.MethodGet, "/api/recommend/playlists", http.HandlerFunc(a.recommendPlaylists))

	r.Handle(http.MethodGet, "/api/playlists/fav", http.HandlerFunc(a.favSongs))
	r.Handle(http.MethodGet, "/api/playlists/user", http.HandlerFunc(a.userPlaylists))
	r.Handle(http.MethodGet, "/api/playlists/songs", http.HandlerFunc(a.playlistSongs))

	r.Handle(http.MethodGet, "/api/settings", http.HandlerFunc(a.getSettings))
	r.Handle(http.MethodPost, "/api/settings", http.HandlerFunc(a.updateSettings))
	r.Handle(http.MethodDelete, "/api/settings/reset", http.HandlerFunc(a.resetSettings))
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": "ok"})
}

func (a *API) listProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"providers": a.manager.ListProvidersInfo(),
		"active":    a.manager.ActiveID(),
	})
}

func (a *API) activeProvider(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.manager.GetCapabilities())
}

// switchProvider activates the requested provider and persists it as the
// configured main provider.
func (a *API) switchProvider(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		writeJSON(w, http.StatusOK, providers.OperationResult{Error: "Provider id is required"})
		return
	}
	if err := a.manager.Switch(body.ID); err != nil {
		writeJSON(w, http.StatusOK, providers.OperationResult{Error: err.Error()})
		return
	}
	if a.store != nil {
		if err := a.store.SetMainProviderID(body.ID); err != nil {
			a.log.Error("failed to persist main provider", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, providers.OperationResult{Success: true})
}

// setFallback replaces the fallback chain and persists the filtered order.
func (a *API) setFallback(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusOK, providers.OperationResult{Error: "Provider ids are required"})
		return
	}
	kept := a.manager.SetFallbackOrder(body.IDs)
	if a.store != nil {
		if _, err := a.store.SetFallbackProviderIDs(kept); err != nil {
			a.log.Error("failed to persist fallback order", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "fallbackProviders": kept})
}

func (a *API) selection(w http.ResponseWriter, r *http.Request) {
	sel, _ := a.manager.Selection(r.Context(), a.store)
	writeJSON(w, http.StatusOK, sel)
}

func (a *API) applyConfig(w http.ResponseWriter, r *http.Request) {
	sel, _ := a.manager.ApplyConfig(r.Context(), a.store)
	writeJSON(w, http.StatusOK, sel)
}

func (a *API) authQR(w http.ResponseWriter, r *http.Request) {
	providerID := r.URL.Query().Get("provider")
	loginType := r.URL.Query().Get("type")
	writeJSON(w, http.StatusOK, a.manager.GetQRCode(r.Context(), providerID, loginType))
}

func (a *API) authQRStatus(w http.ResponseWriter, r *http.Request) {
	providerID := r.URL.Query().Get("provider")
	qrID := r.URL.Query().Get("id")
	writeJSON(w, http.StatusOK, a.manager.CheckQRStatus(r.Context(), providerID, qrID))
}

func (a *API) authStatus(w http.ResponseWriter, r *http.Request) {
	providerID := r.URL.Query().Get("provider")
	writeJSON(w, http.StatusOK, a.manager.GetLoginStatus(r.Context(), providerID))
}

func (a *API) authLogout(w http.ResponseWriter, r *http.Request) {
	providerID := r.URL.Query().Get("provider")
	writeJSON(w, http.StatusOK, a.manager.Logout(r.Context(), providerID))
}

func (a *API) searchSongs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := intQuery(q.Get("page"), 1)
	num := intQuery(q.Get("num"), 20)
	writeJSON(w, http.StatusOK, a.manager.SearchSongs(r.Context(), q.Get("keyword"), page, num))
}

func (a *API) hotSearch(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.manager.HotSearch(r.Context()))
}

func (a *API) searchSuggest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.manager.SearchSuggest(r.Context(), r.URL.Query().Get("keyword")))
}

// songURL resolves a playable URL. name and singer enable cross-provider
// fallback; without them only the active provider is tried.
func (a *API) songURL(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res := a.manager.SongURLWithFallback(r.Context(),
		q.Get("mid"), q.Get("name"), q.Get("singer"), q.Get("quality"))
	writeJSON(w, http.StatusOK, res)
}

func (a *API) songURLs(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("mids"))
	if raw == "" {
		writeJSON(w, http.StatusOK, providers.SongURLBatchResult{Error: "Song mids are required"})
		return
	}
	writeJSON(w, http.StatusOK, a.manager.SongURLsBatch(r.Context(), strings.Split(raw, ",")))
}

func (a *API) songLyric(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	qrc := q.Get("qrc") == "1" || q.Get("qrc") == "true"
	res := a.manager.SongLyricWithFallback(r.Context(),
		q.Get("mid"), q.Get("name"), q.Get("singer"), qrc)
	writeJSON(w, http.StatusOK, res)
}

func (a *API) songInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.manager.SongInfo(r.Context(), r.URL.Query().Get("mid")))
}

func (a *API) recommendGuess(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.manager.GuessLike(r.Context()))
}

func (a *API) recommendDaily(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.manager.DailyRecommend(r.Context()))
}

func (a *API) recommendPlaylists(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.manager.RecommendPlaylists(r.Context()))
}

func (a *API) favSongs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := intQuery(q.Get("page"), 1)
	num := intQuery(q.Get("num"), 20)
	writeJSON(w, http.StatusOK, a.manager.FavSongs(r.Context(), page, num))
}

func (a *API) userPlaylists(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.manager.UserPlaylists(r.Context()))
}

func (a *API) playlistSongs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	playlistID, _ := strconv.ParseInt(q.Get("id"), 10, 64)
	dirID := intQuery(q.Get("dirid"), 0)
	page := intQuery(q.Get("page"), 1)
	num := intQuery(q.Get("num"), 50)
	writeJSON(w, http.StatusOK, a.manager.PlaylistSongs(r.Context(), playlistID, dirID, page, num))
}

func (a *API) getSettings(w http.ResponseWriter, _ *http.Request) {
	if a.store == nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "settings": map[string]any{}})
		return
	}
	settings, err := a.store.FrontendSettings()
	if err != nil {
		writeJSON(w, http.StatusOK, providers.OperationResult{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "settings": settings})
}

// updateSettings shallow-merges the posted object into the stored settings.
func (a *API) updateSettings(w http.ResponseWriter, r *http.Request) {
	var partial map[string]any
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		writeJSON(w, http.StatusOK, providers.OperationResult{Error: "Settings object is required"})
		return
	}
	if a.store == nil {
		writeJSON(w, http.StatusOK, providers.OperationResult{Error: "Settings storage unavailable"})
		return
	}
	merged, err := a.store.UpdateFrontendSettings(partial)
	if err != nil {
		writeJSON(w, http.StatusOK, providers.OperationResult{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "settings": merged})
}

func (a *API) resetSettings(w http.ResponseWriter, _ *http.Request) {
	if a.store == nil {
		writeJSON(w, http.StatusOK, providers.OperationResult{Success: true})
		return
	}
	if _, err := a.store.DeleteFrontendSettings(); err != nil {
		writeJSON(w, http.StatusOK, providers.OperationResult{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, providers.OperationResult{Success: true})
}

func intQuery(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
