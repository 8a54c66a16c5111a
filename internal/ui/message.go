package ui

import (
	"github.com/duskfall/crossfade/internal/providers"
)

type providersLoadedMsg struct {
	infos     []providers.ProviderInfo
	activeID  string
	fallbacks []string
}

type providerSwitchedMsg struct {
	id  string
	err error
}

type fallbackToggledMsg struct {
	chain []string
	err   error
}

type songsFetchedMsg struct {
	result providers.SearchResult
}

type urlResolvedMsg struct {
	song   providers.Song
	result providers.SongURLResult
}
