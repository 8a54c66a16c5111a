package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/duskfall/crossfade/internal/providers"
)

var (
	_ list.Item = providerItem{}
	_ list.Item = songItem{}
)

// providerItem wraps [providers.ProviderInfo] to implement [list.Item].
type providerItem struct {
	info     providers.ProviderInfo
	active   bool
	fallback int // 1-based position in the fallback chain, 0 when absent
}

func (i providerItem) FilterValue() string { return i.info.Name }
func (i providerItem) Title() string {
	title := i.info.Name
	if i.active {
		title = "* " + title
	}
	if i.fallback > 0 {
		title = fmt.Sprintf("%s (fallback #%d)", title, i.fallback)
	}
	return title
}
func (i providerItem) Description() string {
	return strings.Join(i.info.Capabilities, ", ")
}

// songItem wraps [providers.Song] to implement [list.Item].
type songItem struct {
	song providers.Song
}

func (i songItem) FilterValue() string { return i.song.Name }
func (i songItem) Title() string       { return i.song.Name }
func (i songItem) Description() string {
	desc := i.song.Singer
	if i.song.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.song.Album)
	}
	return desc
}
