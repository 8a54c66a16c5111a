package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/duskfall/crossfade/internal/shared"
	"github.com/duskfall/crossfade/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func qqGatewayOK(data string) string {
	return fmt.Sprintf(`{"code":0,"data":%s}`, data)
}

func newQQProvider(t *testing.T, handler http.Handler) (*QQMusicProvider, *store.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	st := newTestStore(t)
	cfg := shared.GatewayConfig{APIURL: srv.URL, RateLimit: 1000}
	return NewQQMusicProvider(cfg, st, shared.NewLogger(io.Discard)), st
}

func TestQQMusicSearchSongs(t *testing.T) {
	p, _ := newQQProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/song" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("keyword"); got != "海阔天空" {
			t.Errorf("keyword = %q", got)
		}
		fmt.Fprint(w, qqGatewayOK(`{"songs":[
			{"id":101,"mid":"m101","name":"海阔天空","singer":[{"name":"Beyond"}],
			 "album":{"name":"乐与怒","mid":"a1"},"interval":326,"cover":"http://img/1"}
		]}`))
	}))

	res := p.SearchSongs(context.Background(), "海阔天空", 1, 20)
	if !res.Success {
		t.Fatalf("search failed: %s", res.Error)
	}
	if len(res.Songs) != 1 {
		t.Fatalf("songs = %d, want 1", len(res.Songs))
	}
	song := res.Songs[0]
	if song.Mid != "m101" || song.Singer != "Beyond" || song.Provider != "qqmusic" {
		t.Errorf("unexpected song: %+v", song)
	}
	if song.Duration != 326 {
		t.Errorf("duration = %d, want 326", song.Duration)
	}
}

func TestQQMusicSearchValidation(t *testing.T) {
	p, _ := newQQProvider(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("gateway should not be called")
	}))
	if res := p.SearchSongs(context.Background(), "  ", 1, 10); res.Success || res.Error == "" {
		t.Errorf("expected validation failure, got %+v", res)
	}
}

func TestQQMusicSongURLPickOrder(t *testing.T) {
	t.Run("takes the first file type the gateway serves", func(t *testing.T) {
		var tried []string
		p, _ := newQQProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fileType := r.URL.Query().Get("type")
			tried = append(tried, fileType)
			if fileType == "MP3_128" {
				fmt.Fprint(w, qqGatewayOK(`{"url":"http://stream/128"}`))
				return
			}
			fmt.Fprint(w, qqGatewayOK(`{"url":""}`))
		}))

		res := p.SongURL(context.Background(), "m101", QualityBalanced)
		if !res.Success || res.URL != "http://stream/128" {
			t.Fatalf("unexpected result: %+v", res)
		}
		if res.Quality != "MP3_128" {
			t.Errorf("quality = %q, want MP3_128", res.Quality)
		}
		if len(tried) != 1 || tried[0] != "MP3_128" {
			t.Errorf("tried = %v", tried)
		}
	})

	t.Run("logged-out high degrades to balanced profile", func(t *testing.T) {
		var tried []string
		p, _ := newQQProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tried = append(tried, r.URL.Query().Get("type"))
			fmt.Fprint(w, qqGatewayOK(`{"url":""}`))
		}))

		res := p.SongURL(context.Background(), "m101", QualityHigh)
		if res.Success {
			t.Fatalf("expected failure, got %+v", res)
		}
		want := qqPickOrder[QualityBalanced]
		if len(tried) != len(want) {
			t.Fatalf("tried = %v, want balanced order %v", tried, want)
		}
		for i := range want {
			if tried[i] != want[i] {
				t.Errorf("tried = %v, want %v", tried, want)
				break
			}
		}
	})

	t.Run("logged-in high keeps the full profile", func(t *testing.T) {
		var tried []string
		p, _ := newQQProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tried = append(tried, r.URL.Query().Get("type"))
			fmt.Fprint(w, qqGatewayOK(`{"url":""}`))
		}))
		if err := p.SaveCredential(context.Background(), map[string]string{"musickey": "k", "musicid": "7"}); err != nil {
			t.Fatal(err)
		}

		p.SongURL(context.Background(), "m101", QualityHigh)
		if len(tried) != len(qqPickOrder[QualityHigh]) || tried[0] != "MP3_320" {
			t.Errorf("tried = %v, want high order %v", tried, qqPickOrder[QualityHigh])
		}
	})
}

func TestQQMusicLoginStatus(t *testing.T) {
	t.Run("no credential short-circuits", func(t *testing.T) {
		p, _ := newQQProvider(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Error("gateway should not be called")
		}))
		if res := p.GetLoginStatus(context.Background()); res.LoggedIn {
			t.Errorf("unexpected result: %+v", res)
		}
	})

	t.Run("valid credential", func(t *testing.T) {
		p, _ := newQQProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/credential/check" {
				t.Errorf("path = %q", r.URL.Path)
			}
			if got := r.Header.Get("Cookie"); got == "" {
				t.Error("missing cookie header")
			}
			fmt.Fprint(w, qqGatewayOK(`{"valid":true,"musicid":42}`))
		}))
		if err := p.SaveCredential(context.Background(), map[string]string{"musickey": "k"}); err != nil {
			t.Fatal(err)
		}

		res := p.GetLoginStatus(context.Background())
		if !res.LoggedIn || res.MusicID != 42 || res.Refreshed {
			t.Errorf("unexpected result: %+v", res)
		}
	})

	t.Run("expired credential refreshes once", func(t *testing.T) {
		p, st := newQQProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/credential/check":
				fmt.Fprint(w, qqGatewayOK(`{"valid":false}`))
			case "/credential/refresh":
				fmt.Fprint(w, qqGatewayOK(`{"credential":{"musickey":"fresh","musicid":"42"}}`))
			default:
				t.Errorf("unexpected path %q", r.URL.Path)
			}
		}))
		if err := p.SaveCredential(context.Background(), map[string]string{"musickey": "stale"}); err != nil {
			t.Fatal(err)
		}

		res := p.GetLoginStatus(context.Background())
		if !res.LoggedIn || !res.Refreshed || res.MusicID != 42 {
			t.Errorf("unexpected result: %+v", res)
		}
		cred, err := st.QQMusicCredential()
		if err != nil {
			t.Fatal(err)
		}
		if cred["musickey"] != "fresh" {
			t.Errorf("persisted musickey = %q, want fresh", cred["musickey"])
		}
	})

	t.Run("refresh failure reports expired", func(t *testing.T) {
		p, _ := newQQProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/credential/check":
				fmt.Fprint(w, qqGatewayOK(`{"valid":false}`))
			case "/credential/refresh":
				fmt.Fprint(w, `{"code":500,"message":"refresh rejected"}`)
			}
		}))
		if err := p.SaveCredential(context.Background(), map[string]string{"musickey": "stale"}); err != nil {
			t.Fatal(err)
		}

		res := p.GetLoginStatus(context.Background())
		if res.LoggedIn || !res.Expired {
			t.Errorf("unexpected result: %+v", res)
		}
	})
}

func TestQQMusicQRLogin(t *testing.T) {
	p, st := newQQProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login/qrcode":
			if got := r.URL.Query().Get("type"); got != "wx" {
				t.Errorf("type = %q, want wx", got)
			}
			fmt.Fprint(w, qqGatewayOK(`{"qr_id":"qr1","qr_data":"data:image/png;base64,AAAA"}`))
		case "/login/qrcode/status":
			fmt.Fprint(w, qqGatewayOK(`{"status":"success","credential":{"musickey":"mk","musicid":"9"}}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))

	qr := p.GetQRCode(context.Background(), "wx")
	if !qr.Success || qr.QRData == "" || qr.LoginType != "wx" {
		t.Fatalf("unexpected QR result: %+v", qr)
	}

	status := p.CheckQRStatus(context.Background(), "qr1")
	if !status.Success || status.Status != QRStatusSuccess || !status.LoggedIn {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.MusicID != 9 {
		t.Errorf("musicid = %d, want 9", status.MusicID)
	}
	cred, err := st.QQMusicCredential()
	if err != nil {
		t.Fatal(err)
	}
	if cred["musickey"] != "mk" {
		t.Errorf("persisted credential = %v", cred)
	}
}

func TestQQMusicLogout(t *testing.T) {
	p, st := newQQProvider(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	if err := p.SaveCredential(context.Background(), map[string]string{"musickey": "k"}); err != nil {
		t.Fatal(err)
	}

	if res := p.Logout(context.Background()); !res.Success {
		t.Fatalf("logout failed: %+v", res)
	}
	cred, err := st.QQMusicCredential()
	if err != nil {
		t.Fatal(err)
	}
	if len(cred) != 0 {
		t.Errorf("credential survived logout: %v", cred)
	}
	if p.loggedIn() {
		t.Error("provider still logged in after logout")
	}
}

func TestQQMusicLyric(t *testing.T) {
	p, _ := newQQProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("qrc"); got != "1" {
			t.Errorf("qrc = %q, want 1", got)
		}
		fmt.Fprint(w, qqGatewayOK(`{"lyric":"[00:01.00]line","trans":"[00:01.00]译文","qrc":true}`))
	}))

	res := p.SongLyric(context.Background(), "m101", true)
	if !res.Success || res.Lyric == "" || res.Trans == "" || !res.QRC {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestQQMusicDailyRecommendFallsBackToNewSongs(t *testing.T) {
	var paths []string
	p, _ := newQQProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/recommend/daily":
			fmt.Fprint(w, `{"code":301,"message":"login required"}`)
		case "/recommend/newsong":
			songs := make([]map[string]any, 30)
			for i := range songs {
				songs[i] = map[string]any{"id": i, "mid": fmt.Sprintf("m%d", i), "name": "s"}
			}
			payload, _ := json.Marshal(map[string]any{"songs": songs})
			fmt.Fprint(w, qqGatewayOK(string(payload)))
		}
	}))

	res := p.DailyRecommend(context.Background())
	if !res.Success {
		t.Fatalf("daily recommend failed: %s", res.Error)
	}
	if len(res.Songs) != dailyRecommendCap {
		t.Errorf("songs = %d, want capped %d", len(res.Songs), dailyRecommendCap)
	}
	if res.Date == "" {
		t.Error("missing date stamp")
	}
	if len(paths) != 2 {
		t.Errorf("paths = %v, want daily then newsong", paths)
	}
}

func TestQQMusicUserPlaylistsPartialTolerance(t *testing.T) {
	p, _ := newQQProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user/playlists/created":
			fmt.Fprint(w, qqGatewayOK(`{"playlists":[{"id":1,"dirid":201,"name":"mine","song_count":12}]}`))
		case "/user/playlists/collected":
			fmt.Fprint(w, `{"code":500,"message":"upstream down"}`)
		}
	}))
	if err := p.SaveCredential(context.Background(), map[string]string{"musickey": "k"}); err != nil {
		t.Fatal(err)
	}

	res := p.UserPlaylists(context.Background())
	if !res.Success {
		t.Fatalf("expected partial success, got %+v", res)
	}
	if len(res.Created) != 1 || res.Created[0].DirID != 201 {
		t.Errorf("created = %+v", res.Created)
	}
	if len(res.Collected) != 0 {
		t.Errorf("collected = %+v, want empty", res.Collected)
	}
}

func TestQQMusicRequiresLogin(t *testing.T) {
	p, _ := newQQProvider(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("gateway should not be called while logged out")
	}))

	if res := p.GuessLike(context.Background()); res.Success || res.Error != errNotLoggedIn {
		t.Errorf("GuessLike = %+v", res)
	}
	if res := p.FavSongs(context.Background(), 1, 20); res.Success || res.Error != errNotLoggedIn {
		t.Errorf("FavSongs = %+v", res)
	}
	if res := p.UserPlaylists(context.Background()); res.Success || res.Error != errNotLoggedIn {
		t.Errorf("UserPlaylists = %+v", res)
	}
}
