package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/duskfall/crossfade/internal/providers"
	"github.com/duskfall/crossfade/internal/store"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ProviderListView ViewState = iota
	SearchInputView
	SongListView
	PlayView
)

const searchPageSize = 20

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	manager  *providers.Manager
	settings *store.Store

	width  int
	height int

	providerList list.Model
	songList     list.Model
	input        textinput.Model

	keyword  string
	selected providers.Song
	resolved providers.SongURLResult

	err  error
	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, manager *providers.Manager, settings *store.Store) *Model {
	input := textinput.New()
	input.Placeholder = "song or artist"
	input.CharLimit = 120

	return &Model{
		ctx:      ctx,
		view:     ProviderListView,
		manager:  manager,
		settings: settings,
		input:    input,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init loads the provider registry into the first view.
func (m *Model) Init() tea.Cmd {
	return m.loadProviders()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.providerList.Width() == 0 {
			m.providerList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.songList.Width() == 0 {
			m.songList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ProviderListView:
			return m.handleProviderListKeys(msg)
		case SearchInputView:
			return m.handleSearchInputKeys(msg)
		case SongListView:
			return m.handleSongListKeys(msg)
		case PlayView:
			return m.handlePlayKeys(msg)
		}

	case providersLoadedMsg:
		items := make([]list.Item, len(msg.infos))
		for i, info := range msg.infos {
			item := providerItem{info: info, active: info.ID == msg.activeID}
			for pos, id := range msg.fallbacks {
				if id == info.ID {
					item.fallback = pos + 1
				}
			}
			items[i] = item
		}
		m.providerList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.providerList.Title = "Providers"
		m.providerList.SetSize(m.width-4, m.height-8)
		return m, nil

	case providerSwitchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		return m, m.loadProviders()

	case fallbackToggledMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		return m, m.loadProviders()

	case songsFetchedMsg:
		if !msg.result.Success {
			m.err = fmt.Errorf("%s", msg.result.Error)
			m.view = SearchInputView
			return m, nil
		}
		m.err = nil
		items := make([]list.Item, len(msg.result.Songs))
		for i, song := range msg.result.Songs {
			items[i] = songItem{song: song}
		}
		m.songList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.songList.Title = fmt.Sprintf("Results for '%s'", m.keyword)
		m.songList.SetSize(m.width-4, m.height-8)
		m.view = SongListView
		return m, nil

	case urlResolvedMsg:
		m.selected = msg.song
		m.resolved = msg.result
		m.view = PlayView
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ProviderListView:
		return m.renderProviderList()
	case SearchInputView:
		return m.renderSearchInput()
	case SongListView:
		return m.renderSongList()
	case PlayView:
		return m.renderPlay()
	default:
		return ""
	}
}

func (m *Model) handleProviderListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "/":
		m.view = SearchInputView
		m.input.Focus()
		return m, textinput.Blink
	case "f":
		if item, ok := m.providerList.SelectedItem().(providerItem); ok {
			return m, m.toggleFallback(item.info.ID)
		}
	case "enter":
		if item, ok := m.providerList.SelectedItem().(providerItem); ok {
			return m, m.switchProvider(item.info.ID)
		}
	}

	var cmd tea.Cmd
	m.providerList, cmd = m.providerList.Update(msg)
	return m, cmd
}

func (m *Model) handleSearchInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = ProviderListView
		m.input.Blur()
		return m, nil
	case "enter":
		keyword := m.input.Value()
		if keyword == "" {
			return m, nil
		}
		m.keyword = keyword
		m.input.Blur()
		return m, m.searchSongs(keyword)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleSongListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = SearchInputView
		m.input.Focus()
		return m, textinput.Blink
	case "enter":
		if item, ok := m.songList.SelectedItem().(songItem); ok {
			return m, m.resolveURL(item.song)
		}
	}

	var cmd tea.Cmd
	m.songList, cmd = m.songList.Update(msg)
	return m, cmd
}

func (m *Model) handlePlayKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = SongListView
		return m, nil
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ProviderListView:
		m.providerList, cmd = m.providerList.Update(msg)
	case SongListView:
		m.songList, cmd = m.songList.Update(msg)
	case SearchInputView:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadProviders() tea.Cmd {
	return func() tea.Msg {
		return providersLoadedMsg{
			infos:     m.manager.ListProvidersInfo(),
			activeID:  m.manager.ActiveID(),
			fallbacks: m.manager.FallbackIDs(),
		}
	}
}

func (m *Model) switchProvider(id string) tea.Cmd {
	return func() tea.Msg {
		if err := m.manager.Switch(id); err != nil {
			return providerSwitchedMsg{id: id, err: err}
		}
		if m.settings != nil {
			if err := m.settings.SetMainProviderID(id); err != nil {
				return providerSwitchedMsg{id: id, err: err}
			}
		}
		return providerSwitchedMsg{id: id}
	}
}

func (m *Model) toggleFallback(id string) tea.Cmd {
	return func() tea.Msg {
		chain := m.manager.FallbackIDs()
		next := make([]string, 0, len(chain)+1)
		found := false
		for _, existing := range chain {
			if existing == id {
				found = true
				continue
			}
			next = append(next, existing)
		}
		if !found {
			next = append(next, id)
		}

		kept := m.manager.SetFallbackOrder(next)
		if m.settings != nil {
			if _, err := m.settings.SetFallbackProviderIDs(kept); err != nil {
				return fallbackToggledMsg{chain: kept, err: err}
			}
		}
		return fallbackToggledMsg{chain: kept}
	}
}

func (m *Model) searchSongs(keyword string) tea.Cmd {
	return func() tea.Msg {
		return songsFetchedMsg{result: m.manager.SearchSongs(m.ctx, keyword, 1, searchPageSize)}
	}
}

func (m *Model) resolveURL(song providers.Song) tea.Cmd {
	return func() tea.Msg {
		result := m.manager.SongURLWithFallback(m.ctx, song.Mid, song.Name, song.Singer, providers.QualityAuto)
		return urlResolvedMsg{song: song, result: result}
	}
}

func (m *Model) renderProviderList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.fallback, m.keys.search, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	body := m.providerList.View()
	if m.err != nil {
		body = fmt.Sprintf("%s\n%s", body, styles.err.Render(m.err.Error()))
	}
	return fmt.Sprintf("%s\n\n%s", body, helpView)
}

func (m *Model) renderSearchInput() string {
	title := styles.title.Render("Search")

	var errLine string
	if m.err != nil {
		errLine = "\n" + styles.err.Render(m.err.Error())
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, m.input.View(), errLine, helpView)
}

func (m *Model) renderSongList() string {
	playKey := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "resolve url"))
	helpKeys := []key.Binding{playKey, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.songList.View(), helpView)
}

func (m *Model) renderPlay() string {
	title := styles.title.Render(fmt.Sprintf("%s - %s", m.selected.Name, m.selected.Singer))

	var body string
	if m.resolved.Success {
		body = styles.ok.Render("✓ Playable") + "\n" + m.resolved.URL
		if m.resolved.FallbackProvider != "" {
			body += "\n" + styles.warn.Render(fmt.Sprintf("served by %s instead of %s", m.resolved.FallbackProvider, m.resolved.OriginalProvider))
		}
	} else {
		body = styles.err.Render(fmt.Sprintf("✗ %s", m.resolved.Error))
	}

	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n\n%s", title, body, helpView)
}
