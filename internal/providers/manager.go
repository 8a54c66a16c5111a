package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/duskfall/crossfade/internal/shared"
)

// matchSearchNum is how many candidates a cross-catalog match inspects.
const matchSearchNum = 10

// SelectionSource supplies the persisted provider preferences that
// ApplyConfig and Selection resolve against the live login state.
type SelectionSource interface {
	MainProviderID() (string, error)
	FallbackProviderIDs() ([]string, error)
}

// Manager owns the provider registry, the active selection, and the
// fallback order. All methods are safe for concurrent use.
type Manager struct {
	mu          sync.RWMutex
	log         *log.Logger
	order       []string
	providers   map[string]Provider
	activeID    string
	fallbackIDs []string
}

func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Manager{
		log:       logger,
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry. Registration order is preserved
// and drives the automatic main-provider choice in ApplyConfig. Registering
// an already-known id replaces the provider without changing its position.
func (m *Manager) Register(p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := p.ID()
	if _, ok := m.providers[id]; !ok {
		m.order = append(m.order, id)
	}
	m.providers[id] = p
	m.log.Debug("provider registered", "id", id, "name", p.Name())
}

// Switch makes the named provider active. An unknown id is rejected and the
// current selection is left untouched. The fallback chain is not modified;
// dispatch skips the active id, so a later switch away restores the provider
// as a fallback candidate.
func (m *Manager) Switch(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.providers[id]; !ok {
		return fmt.Errorf("%w: %s", shared.ErrUnknownProvider, id)
	}
	m.activeID = id
	m.log.Info("active provider switched", "id", id)
	return nil
}

// SetFallbackOrder replaces the fallback chain. Unknown ids and the active
// provider are dropped; the relative order of the rest is preserved.
func (m *Manager) SetFallbackOrder(ids []string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] || id == m.activeID {
			continue
		}
		if _, ok := m.providers[id]; !ok {
			continue
		}
		seen[id] = true
		kept = append(kept, id)
	}
	m.fallbackIDs = kept
	m.log.Info("fallback order set", "ids", kept)
	return append([]string(nil), kept...)
}

// ActiveID returns the id of the active provider, or "" when none is active.
func (m *Manager) ActiveID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeID
}

// FallbackIDs returns a copy of the current fallback chain.
func (m *Manager) FallbackIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.fallbackIDs...)
}

// Get returns the provider registered under id.
func (m *Manager) Get(id string) (Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownProvider, id)
	}
	return p, nil
}

// Active returns the active provider, or nil when none is active.
func (m *Manager) Active() Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.activeID == "" {
		return nil
	}
	return m.providers[m.activeID]
}

// All returns every registered provider in registration order.
func (m *Manager) All() []Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Provider, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.providers[id])
	}
	return out
}

// ListProvidersInfo describes every registered provider.
func (m *Manager) ListProvidersInfo() []ProviderInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ProviderInfo, 0, len(m.order))
	for _, id := range m.order {
		p := m.providers[id]
		out = append(out, ProviderInfo{
			ID:           p.ID(),
			Name:         p.Name(),
			Capabilities: p.Capabilities().List(),
		})
	}
	return out
}

// GetCapabilities describes the active provider. With no active provider it
// reports a null provider and an empty capability list rather than failing.
func (m *Manager) GetCapabilities() ActiveInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.activeID == "" {
		return ActiveInfo{Provider: nil, Capabilities: []string{}}
	}
	p := m.providers[m.activeID]
	return ActiveInfo{
		Provider:     &ProviderRef{ID: p.ID(), Name: p.Name()},
		Capabilities: p.Capabilities().List(),
	}
}

// ApplyConfig resolves the persisted selection against live login state and
// activates the result. The configured main provider wins when it is
// registered and logged in; otherwise the first logged-in provider in
// registration order is used; with nobody logged in, no provider is active.
// The fallback chain keeps only registered, logged-in providers other than
// the chosen main, in their configured order.
func (m *Manager) ApplyConfig(ctx context.Context, source SelectionSource) (Selection, error) {
	mainID, fallbackIDs, err := m.resolveSelection(ctx, source)
	if err != nil {
		return Selection{Error: err.Error()}, err
	}

	m.mu.Lock()
	m.activeID = mainID
	m.fallbackIDs = fallbackIDs
	m.mu.Unlock()

	m.log.Info("provider selection applied", "main", mainID, "fallbacks", fallbackIDs)
	return Selection{Success: true, MainProvider: mainID, FallbackProviders: fallbackIDs}, nil
}

// Selection reports the selection that routing is actually using: the
// currently active provider when it is logged in, and the configured fallback
// chain filtered to registered, logged-in providers other than the main. It
// never recomputes the main from configuration; that is ApplyConfig's job.
func (m *Manager) Selection(ctx context.Context, source SelectionSource) (Selection, error) {
	configuredFallbacks, err := source.FallbackProviderIDs()
	if err != nil {
		return Selection{Error: err.Error()}, err
	}

	mainID := ""
	if active := m.Active(); active != nil && m.EnsureLoggedIn(ctx, active) {
		mainID = active.ID()
	}

	fallbackIDs := make([]string, 0, len(configuredFallbacks))
	for _, id := range configuredFallbacks {
		if id == mainID {
			continue
		}
		p, err := m.Get(id)
		if err != nil || !m.EnsureLoggedIn(ctx, p) {
			continue
		}
		fallbackIDs = append(fallbackIDs, id)
	}
	return Selection{Success: true, MainProvider: mainID, FallbackProviders: fallbackIDs}, nil
}

func (m *Manager) resolveSelection(ctx context.Context, source SelectionSource) (string, []string, error) {
	configuredMain, err := source.MainProviderID()
	if err != nil {
		return "", nil, err
	}
	configuredFallbacks, err := source.FallbackProviderIDs()
	if err != nil {
		return "", nil, err
	}

	m.mu.RLock()
	order := append([]string(nil), m.order...)
	registry := make(map[string]Provider, len(m.providers))
	for id, p := range m.providers {
		registry[id] = p
	}
	m.mu.RUnlock()

	loggedIn := make(map[string]bool, len(order))
	for _, id := range order {
		loggedIn[id] = m.EnsureLoggedIn(ctx, registry[id])
	}

	mainID := ""
	if configuredMain != "" && registry[configuredMain] != nil && loggedIn[configuredMain] {
		mainID = configuredMain
	} else {
		for _, id := range order {
			if loggedIn[id] {
				mainID = id
				break
			}
		}
	}

	fallbackIDs := make([]string, 0, len(configuredFallbacks))
	seen := make(map[string]bool, len(configuredFallbacks))
	for _, id := range configuredFallbacks {
		if seen[id] || id == mainID || registry[id] == nil || !loggedIn[id] {
			continue
		}
		seen[id] = true
		fallbackIDs = append(fallbackIDs, id)
	}
	return mainID, fallbackIDs, nil
}

// EnsureLoggedIn reports whether the provider currently holds a usable
// credential. GetLoginStatus is allowed to refresh the credential as a side
// effect, so a single call can flip a stale session back to usable.
func (m *Manager) EnsureLoggedIn(ctx context.Context, p Provider) bool {
	return p.GetLoginStatus(ctx).LoggedIn
}

// SongURLWithFallback resolves a playable URL through the active provider, then walks
// the fallback chain on failure. Fallback providers serve a different
// catalog, so the song is re-matched there by name and singer before asking
// for a URL; a fallback hit is annotated with the serving provider, the
// original provider, and the matched song. When every provider fails, the
// active provider's original failure is returned, tagged with its id.
func (m *Manager) SongURLWithFallback(ctx context.Context, mid, songName, singer, quality string) SongURLResult {
	active := m.Active()
	if active == nil {
		return SongURLResult{Error: errNoActiveProvider}
	}

	original := active.SongURL(ctx, mid, quality)
	original.Provider = active.ID()
	if original.Success && original.URL != "" {
		return original
	}
	if strings.TrimSpace(songName) == "" {
		return original
	}

	m.log.Warn("song url failed, trying fallbacks",
		"provider", active.ID(), "mid", mid, "error", original.Error)

	for _, fb := range m.fallbackCandidates(active.ID()) {
		if !fb.Capabilities().Has(CapSearchSong) {
			continue
		}
		matched := m.matchSongInProvider(ctx, fb, songName, singer)
		if matched == nil {
			continue
		}
		res := fb.SongURL(ctx, matched.Mid, quality)
		if !res.Success || res.URL == "" {
			continue
		}
		res.Provider = fb.ID()
		res.FallbackProvider = fb.ID()
		res.OriginalProvider = active.ID()
		res.MatchedSong = matched
		m.log.Info("song url served by fallback",
			"provider", fb.ID(), "original", active.ID(), "mid", matched.Mid)
		return res
	}
	return original
}

// SongLyric resolves lyrics through the active provider, falling back the
// same way SongURL does. Candidates without lyric support are skipped before
// any search request is made.
func (m *Manager) SongLyricWithFallback(ctx context.Context, mid, songName, singer string, qrc bool) LyricResult {
	active := m.Active()
	if active == nil {
		return LyricResult{Error: errNoActiveProvider}
	}

	original := active.SongLyric(ctx, mid, qrc)
	if original.Success && original.Lyric != "" {
		return original
	}
	if strings.TrimSpace(songName) == "" {
		return original
	}

	for _, fb := range m.fallbackCandidates(active.ID()) {
		if !fb.Capabilities().Has(CapLyricBasic) || !fb.Capabilities().Has(CapSearchSong) {
			continue
		}
		matched := m.matchSongInProvider(ctx, fb, songName, singer)
		if matched == nil {
			continue
		}
		res := fb.SongLyric(ctx, matched.Mid, qrc)
		if !res.Success || res.Lyric == "" {
			continue
		}
		res.FallbackProvider = fb.ID()
		res.OriginalProvider = active.ID()
		m.log.Info("lyric served by fallback",
			"provider", fb.ID(), "original", active.ID(), "mid", matched.Mid)
		return res
	}
	return original
}

// fallbackCandidates snapshots the fallback chain as providers, skipping the
// active id and anything no longer registered.
func (m *Manager) fallbackCandidates(activeID string) []Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Provider, 0, len(m.fallbackIDs))
	for _, id := range m.fallbackIDs {
		if id == activeID {
			continue
		}
		if p, ok := m.providers[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// matchSongInProvider searches a fallback provider's catalog for the song.
// The first page is inspected and the first candidate whose name matches
// exactly and whose singer field contains the query singer wins; failing
// that, the first exact name match. An empty query singer is contained in
// every singer field, so it collapses both rules into the name check.
func (m *Manager) matchSongInProvider(ctx context.Context, p Provider, songName, singer string) *Song {
	query := strings.TrimSpace(songName + " " + singer)
	res := p.SearchSongs(ctx, query, 1, matchSearchNum)
	if !res.Success || len(res.Songs) == 0 {
		return nil
	}

	var nameOnly *Song
	for i := range res.Songs {
		candidate := &res.Songs[i]
		if candidate.Name != songName {
			continue
		}
		if strings.Contains(candidate.Singer, singer) {
			return candidate
		}
		if nameOnly == nil {
			nameOnly = candidate
		}
	}
	return nameOnly
}
