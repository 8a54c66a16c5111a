package providers

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/duskfall/crossfade/internal/shared"
)

// fakeProvider is a scriptable Provider for manager tests.
type fakeProvider struct {
	Unimplemented

	id       string
	caps     CapabilitySet
	loggedIn bool

	searchCalls int
	searchFn    func(keyword string, page, num int) SearchResult
	urlFn       func(mid, quality string) SongURLResult
	lyricFn     func(mid string) LyricResult
}

func (f *fakeProvider) ID() string   { return f.id }
func (f *fakeProvider) Name() string { return strings.ToUpper(f.id) }

func (f *fakeProvider) Capabilities() CapabilitySet { return f.caps }

func (f *fakeProvider) GetLoginStatus(context.Context) LoginStatusResult {
	return LoginStatusResult{LoggedIn: f.loggedIn}
}

func (f *fakeProvider) SearchSongs(_ context.Context, keyword string, page, num int) SearchResult {
	f.searchCalls++
	if f.searchFn != nil {
		return f.searchFn(keyword, page, num)
	}
	return SearchResult{Error: "no results"}
}

func (f *fakeProvider) SongURL(_ context.Context, mid, quality string) SongURLResult {
	if f.urlFn != nil {
		return f.urlFn(mid, quality)
	}
	return SongURLResult{Mid: mid, Error: "not scripted"}
}

func (f *fakeProvider) SongLyric(_ context.Context, mid string, _ bool) LyricResult {
	if f.lyricFn != nil {
		return f.lyricFn(mid)
	}
	return LyricResult{Mid: mid, Error: "not scripted"}
}

func newTestManager(t *testing.T, providers ...*fakeProvider) *Manager {
	t.Helper()
	m := NewManager(shared.NewLogger(io.Discard))
	for _, p := range providers {
		m.Register(p)
	}
	return m
}

func TestManagerSwitch(t *testing.T) {
	a := &fakeProvider{id: "a"}
	b := &fakeProvider{id: "b"}
	m := newTestManager(t, a, b)

	t.Run("activates known provider", func(t *testing.T) {
		if err := m.Switch("a"); err != nil {
			t.Fatalf("Switch failed: %v", err)
		}
		if got := m.ActiveID(); got != "a" {
			t.Errorf("ActiveID = %q, want %q", got, "a")
		}
	})

	t.Run("rejects unknown id and keeps selection", func(t *testing.T) {
		if err := m.Switch("nope"); err == nil {
			t.Fatal("expected error for unknown provider")
		}
		if got := m.ActiveID(); got != "a" {
			t.Errorf("ActiveID = %q, want unchanged %q", got, "a")
		}
	})

	t.Run("keeps the fallback chain intact across switches", func(t *testing.T) {
		m.SetFallbackOrder([]string{"b"})
		if err := m.Switch("b"); err != nil {
			t.Fatalf("Switch failed: %v", err)
		}
		if ids := m.FallbackIDs(); len(ids) != 1 || ids[0] != "b" {
			t.Fatalf("FallbackIDs = %v, want [b] retained", ids)
		}
		if err := m.Switch("a"); err != nil {
			t.Fatalf("Switch failed: %v", err)
		}
		if ids := m.FallbackIDs(); len(ids) != 1 || ids[0] != "b" {
			t.Errorf("FallbackIDs = %v, want [b] after switching back", ids)
		}
	})
}

func TestSetFallbackOrder(t *testing.T) {
	a := &fakeProvider{id: "a"}
	b := &fakeProvider{id: "b"}
	c := &fakeProvider{id: "c"}
	m := newTestManager(t, a, b, c)
	if err := m.Switch("a"); err != nil {
		t.Fatal(err)
	}

	got := m.SetFallbackOrder([]string{"c", "a", "ghost", "b", "c"})
	want := []string{"c", "b"}
	if len(got) != len(want) {
		t.Fatalf("fallback ids = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fallback ids = %v, want %v", got, want)
			break
		}
	}
}

func TestGetCapabilities(t *testing.T) {
	t.Run("no active provider", func(t *testing.T) {
		m := newTestManager(t, &fakeProvider{id: "a"})
		info := m.GetCapabilities()
		if info.Provider != nil {
			t.Errorf("Provider = %+v, want nil", info.Provider)
		}
		if info.Capabilities == nil || len(info.Capabilities) != 0 {
			t.Errorf("Capabilities = %v, want empty non-nil list", info.Capabilities)
		}
	})

	t.Run("active provider", func(t *testing.T) {
		a := &fakeProvider{id: "a", caps: NewCapabilitySet(CapSearchSong, CapPlaySong)}
		m := newTestManager(t, a)
		if err := m.Switch("a"); err != nil {
			t.Fatal(err)
		}
		info := m.GetCapabilities()
		if info.Provider == nil || info.Provider.ID != "a" {
			t.Fatalf("Provider = %+v, want id a", info.Provider)
		}
		if len(info.Capabilities) != 2 {
			t.Errorf("Capabilities = %v, want 2 entries", info.Capabilities)
		}
	})
}

func TestSongURLWithFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("active provider success needs no fallback", func(t *testing.T) {
		a := &fakeProvider{
			id:   "a",
			caps: NewCapabilitySet(CapSearchSong, CapPlaySong),
			urlFn: func(mid, _ string) SongURLResult {
				return SongURLResult{Success: true, URL: "http://a/" + mid, Mid: mid}
			},
		}
		b := &fakeProvider{id: "b", caps: NewCapabilitySet(CapSearchSong, CapPlaySong)}
		m := newTestManager(t, a, b)
		if err := m.Switch("a"); err != nil {
			t.Fatal(err)
		}
		m.SetFallbackOrder([]string{"b"})

		res := m.SongURLWithFallback(ctx, "a1", "Yesterday", "Beatles", QualityHigh)
		if !res.Success || res.URL != "http://a/a1" {
			t.Fatalf("unexpected result: %+v", res)
		}
		if res.FallbackProvider != "" {
			t.Errorf("FallbackProvider = %q, want empty", res.FallbackProvider)
		}
		if b.searchCalls != 0 {
			t.Errorf("fallback searched %d times, want 0", b.searchCalls)
		}
	})

	t.Run("fallback matches by name and singer", func(t *testing.T) {
		a := &fakeProvider{
			id:   "a",
			caps: NewCapabilitySet(CapSearchSong, CapPlaySong),
			urlFn: func(mid, _ string) SongURLResult {
				return SongURLResult{Mid: mid, Error: "paywalled"}
			},
		}
		b := &fakeProvider{
			id:   "b",
			caps: NewCapabilitySet(CapSearchSong, CapPlaySong),
			searchFn: func(keyword string, page, num int) SearchResult {
				if keyword != "Yesterday Beatles" {
					t.Errorf("search keyword = %q, want %q", keyword, "Yesterday Beatles")
				}
				if page != 1 || num != 10 {
					t.Errorf("search page/num = %d/%d, want 1/10", page, num)
				}
				return SearchResult{Success: true, Songs: []Song{
					{Name: "Yesterday Once More", Singer: "Carpenters", Mid: "b1", Provider: "b"},
					{Name: "Yesterday", Singer: "The Beatles", Mid: "b42", Provider: "b"},
				}}
			},
			urlFn: func(mid, _ string) SongURLResult {
				return SongURLResult{Success: true, URL: "http://b/" + mid, Mid: mid}
			},
		}
		m := newTestManager(t, a, b)
		if err := m.Switch("a"); err != nil {
			t.Fatal(err)
		}
		m.SetFallbackOrder([]string{"b"})

		res := m.SongURLWithFallback(ctx, "a1", "Yesterday", "Beatles", QualityHigh)
		if !res.Success || res.URL != "http://b/b42" {
			t.Fatalf("unexpected result: %+v", res)
		}
		if res.FallbackProvider != "b" || res.OriginalProvider != "a" {
			t.Errorf("provenance = %q/%q, want b/a", res.FallbackProvider, res.OriginalProvider)
		}
		if res.MatchedSong == nil || res.MatchedSong.Mid != "b42" {
			t.Errorf("MatchedSong = %+v, want mid b42", res.MatchedSong)
		}
	})

	t.Run("exhaustion returns the original error", func(t *testing.T) {
		a := &fakeProvider{
			id:   "a",
			caps: NewCapabilitySet(CapSearchSong, CapPlaySong),
			urlFn: func(mid, _ string) SongURLResult {
				return SongURLResult{Mid: mid, Error: "paywalled"}
			},
		}
		b := &fakeProvider{
			id:   "b",
			caps: NewCapabilitySet(CapSearchSong, CapPlaySong),
			searchFn: func(string, int, int) SearchResult {
				return SearchResult{Success: true, Songs: []Song{}}
			},
		}
		m := newTestManager(t, a, b)
		if err := m.Switch("a"); err != nil {
			t.Fatal(err)
		}
		m.SetFallbackOrder([]string{"b"})

		res := m.SongURLWithFallback(ctx, "a1", "Yesterday", "Beatles", QualityHigh)
		if res.Success {
			t.Fatalf("expected failure, got %+v", res)
		}
		if res.Error != "paywalled" {
			t.Errorf("Error = %q, want original %q", res.Error, "paywalled")
		}
		if res.Provider != "a" {
			t.Errorf("Provider = %q, want the original provider id", res.Provider)
		}
	})

	t.Run("name matching is case sensitive", func(t *testing.T) {
		a := &fakeProvider{
			id:   "a",
			caps: NewCapabilitySet(CapSearchSong, CapPlaySong),
			urlFn: func(mid, _ string) SongURLResult {
				return SongURLResult{Mid: mid, Error: "paywalled"}
			},
		}
		b := &fakeProvider{
			id:   "b",
			caps: NewCapabilitySet(CapSearchSong, CapPlaySong),
			searchFn: func(string, int, int) SearchResult {
				return SearchResult{Success: true, Songs: []Song{
					{Name: "yesterday", Singer: "The Beatles", Mid: "lower"},
				}}
			},
			urlFn: func(mid, _ string) SongURLResult {
				return SongURLResult{Success: true, URL: "http://b/" + mid, Mid: mid}
			},
		}
		m := newTestManager(t, a, b)
		if err := m.Switch("a"); err != nil {
			t.Fatal(err)
		}
		m.SetFallbackOrder([]string{"b"})

		res := m.SongURLWithFallback(ctx, "a1", "Yesterday", "Beatles", QualityAuto)
		if res.Success {
			t.Fatalf("lowercase catalog name matched, got %+v", res)
		}
		if res.Error != "paywalled" {
			t.Errorf("Error = %q, want original %q", res.Error, "paywalled")
		}
	})

	t.Run("singer containment runs query into candidate only", func(t *testing.T) {
		a := &fakeProvider{
			id:   "a",
			caps: NewCapabilitySet(CapSearchSong, CapPlaySong),
			urlFn: func(mid, _ string) SongURLResult {
				return SongURLResult{Mid: mid, Error: "region locked"}
			},
		}
		b := &fakeProvider{
			id:   "b",
			caps: NewCapabilitySet(CapSearchSong, CapPlaySong),
			searchFn: func(string, int, int) SearchResult {
				return SearchResult{Success: true, Songs: []Song{
					{Name: "Yesterday", Singer: "Beatles", Mid: "short"},
					{Name: "Yesterday", Singer: "The Beatles", Mid: "full"},
				}}
			},
			urlFn: func(mid, _ string) SongURLResult {
				return SongURLResult{Success: true, URL: "http://b/" + mid, Mid: mid}
			},
		}
		m := newTestManager(t, a, b)
		if err := m.Switch("a"); err != nil {
			t.Fatal(err)
		}
		m.SetFallbackOrder([]string{"b"})

		res := m.SongURLWithFallback(ctx, "a1", "Yesterday", "The Beatles", QualityAuto)
		if res.MatchedSong == nil || res.MatchedSong.Mid != "full" {
			t.Fatalf("MatchedSong = %+v, want the candidate whose singer contains the query", res.MatchedSong)
		}
	})

	t.Run("active id left in the chain is skipped during the walk", func(t *testing.T) {
		a := &fakeProvider{id: "a", caps: NewCapabilitySet(CapSearchSong, CapPlaySong)}
		b := &fakeProvider{
			id:   "b",
			caps: NewCapabilitySet(CapSearchSong, CapPlaySong),
			urlFn: func(mid, _ string) SongURLResult {
				return SongURLResult{Mid: mid, Error: "unavailable"}
			},
		}
		m := newTestManager(t, a, b)
		if err := m.Switch("a"); err != nil {
			t.Fatal(err)
		}
		m.SetFallbackOrder([]string{"b"})
		if err := m.Switch("b"); err != nil {
			t.Fatal(err)
		}

		res := m.SongURLWithFallback(ctx, "b1", "Yesterday", "Beatles", QualityAuto)
		if res.Success {
			t.Fatalf("expected failure, got %+v", res)
		}
		if res.Error != "unavailable" || res.Provider != "b" {
			t.Errorf("result = %+v, want the active provider's own failure", res)
		}
		if b.searchCalls != 0 {
			t.Errorf("active provider searched %d times as its own fallback, want 0", b.searchCalls)
		}
	})

	t.Run("singer containment beats a bare name match", func(t *testing.T) {
		a := &fakeProvider{
			id:   "a",
			caps: NewCapabilitySet(CapSearchSong, CapPlaySong),
			urlFn: func(mid, _ string) SongURLResult {
				return SongURLResult{Mid: mid, Error: "region locked"}
			},
		}
		b := &fakeProvider{
			id:   "b",
			caps: NewCapabilitySet(CapSearchSong, CapPlaySong),
			searchFn: func(string, int, int) SearchResult {
				return SearchResult{Success: true, Songs: []Song{
					{Name: "Yesterday", Singer: "Karaoke Band", Mid: "cover"},
					{Name: "Yesterday", Singer: "The Beatles", Mid: "real"},
				}}
			},
			urlFn: func(mid, _ string) SongURLResult {
				return SongURLResult{Success: true, URL: "http://b/" + mid, Mid: mid}
			},
		}
		m := newTestManager(t, a, b)
		if err := m.Switch("a"); err != nil {
			t.Fatal(err)
		}
		m.SetFallbackOrder([]string{"b"})

		res := m.SongURLWithFallback(ctx, "a1", "Yesterday", "Beatles", QualityAuto)
		if res.MatchedSong == nil || res.MatchedSong.Mid != "real" {
			t.Fatalf("MatchedSong = %+v, want the singer-overlap candidate", res.MatchedSong)
		}
	})

	t.Run("missing song name skips the fallback walk", func(t *testing.T) {
		a := &fakeProvider{
			id:   "a",
			caps: NewCapabilitySet(CapSearchSong, CapPlaySong),
			urlFn: func(mid, _ string) SongURLResult {
				return SongURLResult{Mid: mid, Error: "unavailable"}
			},
		}
		b := &fakeProvider{id: "b", caps: NewCapabilitySet(CapSearchSong, CapPlaySong)}
		m := newTestManager(t, a, b)
		if err := m.Switch("a"); err != nil {
			t.Fatal(err)
		}
		m.SetFallbackOrder([]string{"b"})

		res := m.SongURLWithFallback(ctx, "a1", "", "", QualityAuto)
		if res.Error != "unavailable" {
			t.Errorf("Error = %q, want %q", res.Error, "unavailable")
		}
		if b.searchCalls != 0 {
			t.Errorf("fallback searched %d times, want 0", b.searchCalls)
		}
	})

	t.Run("no active provider", func(t *testing.T) {
		m := newTestManager(t, &fakeProvider{id: "a"})
		res := m.SongURLWithFallback(ctx, "a1", "x", "y", QualityAuto)
		if res.Success || res.Error != "No active provider" {
			t.Errorf("unexpected result: %+v", res)
		}
	})
}

func TestSongLyricWithFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("candidate without lyric support is never searched", func(t *testing.T) {
		a := &fakeProvider{
			id:   "a",
			caps: NewCapabilitySet(CapSearchSong, CapLyricBasic),
			lyricFn: func(mid string) LyricResult {
				return LyricResult{Mid: mid, Error: "no lyric"}
			},
		}
		noLyric := &fakeProvider{id: "b", caps: NewCapabilitySet(CapSearchSong, CapPlaySong)}
		m := newTestManager(t, a, noLyric)
		if err := m.Switch("a"); err != nil {
			t.Fatal(err)
		}
		m.SetFallbackOrder([]string{"b"})

		res := m.SongLyricWithFallback(ctx, "a1", "Yesterday", "Beatles", false)
		if res.Success {
			t.Fatalf("expected failure, got %+v", res)
		}
		if res.Error != "no lyric" {
			t.Errorf("Error = %q, want original %q", res.Error, "no lyric")
		}
		if noLyric.searchCalls != 0 {
			t.Errorf("gated candidate searched %d times, want 0", noLyric.searchCalls)
		}
	})

	t.Run("fallback serves the lyric with provenance", func(t *testing.T) {
		a := &fakeProvider{
			id:   "a",
			caps: NewCapabilitySet(CapSearchSong, CapLyricBasic),
			lyricFn: func(mid string) LyricResult {
				return LyricResult{Mid: mid, Error: "no lyric"}
			},
		}
		b := &fakeProvider{
			id:   "b",
			caps: NewCapabilitySet(CapSearchSong, CapLyricBasic),
			searchFn: func(string, int, int) SearchResult {
				return SearchResult{Success: true, Songs: []Song{
					{Name: "Yesterday", Singer: "The Beatles", Mid: "b42"},
				}}
			},
			lyricFn: func(mid string) LyricResult {
				return LyricResult{Success: true, Lyric: "[00:00.00]Yesterday", Mid: mid}
			},
		}
		m := newTestManager(t, a, b)
		if err := m.Switch("a"); err != nil {
			t.Fatal(err)
		}
		m.SetFallbackOrder([]string{"b"})

		res := m.SongLyricWithFallback(ctx, "a1", "Yesterday", "Beatles", false)
		if !res.Success || res.Lyric == "" {
			t.Fatalf("unexpected result: %+v", res)
		}
		if res.FallbackProvider != "b" || res.OriginalProvider != "a" {
			t.Errorf("provenance = %q/%q, want b/a", res.FallbackProvider, res.OriginalProvider)
		}
	})
}

// fakeSource is an in-memory SelectionSource.
type fakeSource struct {
	main      string
	fallbacks []string
}

func (f *fakeSource) MainProviderID() (string, error) { return f.main, nil }
func (f *fakeSource) FallbackProviderIDs() ([]string, error) { return f.fallbacks, nil }

func TestApplyConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("first logged-in provider wins without configured main", func(t *testing.T) {
		qq := &fakeProvider{id: "qqmusic"}
		ne := &fakeProvider{id: "netease", loggedIn: true}
		m := newTestManager(t, qq, ne)

		sel, err := m.ApplyConfig(ctx, &fakeSource{})
		if err != nil {
			t.Fatalf("ApplyConfig failed: %v", err)
		}
		if sel.MainProvider != "netease" {
			t.Errorf("MainProvider = %q, want netease", sel.MainProvider)
		}
		if len(sel.FallbackProviders) != 0 {
			t.Errorf("FallbackProviders = %v, want empty", sel.FallbackProviders)
		}
		if m.ActiveID() != "netease" {
			t.Errorf("ActiveID = %q, want netease", m.ActiveID())
		}
	})

	t.Run("configured main wins when logged in", func(t *testing.T) {
		qq := &fakeProvider{id: "qqmusic", loggedIn: true}
		ne := &fakeProvider{id: "netease", loggedIn: true}
		m := newTestManager(t, qq, ne)

		sel, err := m.ApplyConfig(ctx, &fakeSource{main: "netease", fallbacks: []string{"qqmusic", "netease"}})
		if err != nil {
			t.Fatal(err)
		}
		if sel.MainProvider != "netease" {
			t.Errorf("MainProvider = %q, want netease", sel.MainProvider)
		}
		if len(sel.FallbackProviders) != 1 || sel.FallbackProviders[0] != "qqmusic" {
			t.Errorf("FallbackProviders = %v, want [qqmusic]", sel.FallbackProviders)
		}
	})

	t.Run("logged-out configured main is ignored", func(t *testing.T) {
		qq := &fakeProvider{id: "qqmusic", loggedIn: true}
		ne := &fakeProvider{id: "netease"}
		m := newTestManager(t, qq, ne)

		sel, err := m.ApplyConfig(ctx, &fakeSource{main: "netease", fallbacks: []string{"netease"}})
		if err != nil {
			t.Fatal(err)
		}
		if sel.MainProvider != "qqmusic" {
			t.Errorf("MainProvider = %q, want qqmusic", sel.MainProvider)
		}
		if len(sel.FallbackProviders) != 0 {
			t.Errorf("FallbackProviders = %v, want empty", sel.FallbackProviders)
		}
	})

	t.Run("nobody logged in leaves no provider active", func(t *testing.T) {
		qq := &fakeProvider{id: "qqmusic"}
		ne := &fakeProvider{id: "netease"}
		m := newTestManager(t, qq, ne)

		sel, err := m.ApplyConfig(ctx, &fakeSource{main: "qqmusic"})
		if err != nil {
			t.Fatal(err)
		}
		if sel.MainProvider != "" {
			t.Errorf("MainProvider = %q, want empty", sel.MainProvider)
		}
		if m.ActiveID() != "" {
			t.Errorf("ActiveID = %q, want empty", m.ActiveID())
		}
	})

	t.Run("Selection reports the live active provider", func(t *testing.T) {
		qq := &fakeProvider{id: "qqmusic", loggedIn: true}
		ne := &fakeProvider{id: "netease", loggedIn: true}
		m := newTestManager(t, qq, ne)
		if err := m.Switch("qqmusic"); err != nil {
			t.Fatal(err)
		}

		sel, err := m.Selection(ctx, &fakeSource{main: "netease", fallbacks: []string{"netease", "qqmusic"}})
		if err != nil {
			t.Fatal(err)
		}
		if sel.MainProvider != "qqmusic" {
			t.Errorf("MainProvider = %q, want the active qqmusic", sel.MainProvider)
		}
		if len(sel.FallbackProviders) != 1 || sel.FallbackProviders[0] != "netease" {
			t.Errorf("FallbackProviders = %v, want [netease]", sel.FallbackProviders)
		}
		if m.ActiveID() != "qqmusic" {
			t.Errorf("ActiveID changed to %q", m.ActiveID())
		}
	})

	t.Run("Selection with a logged-out active provider reports no main", func(t *testing.T) {
		qq := &fakeProvider{id: "qqmusic"}
		ne := &fakeProvider{id: "netease", loggedIn: true}
		m := newTestManager(t, qq, ne)
		if err := m.Switch("qqmusic"); err != nil {
			t.Fatal(err)
		}

		sel, err := m.Selection(ctx, &fakeSource{fallbacks: []string{"netease"}})
		if err != nil {
			t.Fatal(err)
		}
		if sel.MainProvider != "" {
			t.Errorf("MainProvider = %q, want empty", sel.MainProvider)
		}
		if len(sel.FallbackProviders) != 1 || sel.FallbackProviders[0] != "netease" {
			t.Errorf("FallbackProviders = %v, want [netease]", sel.FallbackProviders)
		}
	})
}

func TestDispatchWithoutActiveProvider(t *testing.T) {
	m := newTestManager(t, &fakeProvider{id: "a"})
	ctx := context.Background()

	if res := m.SearchSongs(ctx, "x", 1, 10); res.Success || res.Error != "No active provider" {
		t.Errorf("SearchSongs = %+v", res)
	}
	if res := m.HotSearch(ctx); res.Success || res.Error != "No active provider" {
		t.Errorf("HotSearch = %+v", res)
	}
	if res := m.SongURLsBatch(ctx, []string{"a"}); res.Success || res.Error != "No active provider" {
		t.Errorf("SongURLsBatch = %+v", res)
	}
	if res := m.UserPlaylists(ctx); res.Success || res.Error != "No active provider" {
		t.Errorf("UserPlaylists = %+v", res)
	}
	if res := m.GetLoginStatus(ctx, ""); res.LoggedIn || res.Error != "No active provider" {
		t.Errorf("GetLoginStatus = %+v", res)
	}
}
