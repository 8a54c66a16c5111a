// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for browsing providers and resolving songs:
//  1. [ProviderListView] : Inspect providers, switch the active one, reorder fallbacks
//  2. [SearchInputView] : Enter a search keyword
//  3. [SongListView] : Browse search results
//  4. [PlayView] : Show the resolved URL with fallback provenance
//
// The [Model] implements bubbletea's standard Init/Update/View pattern. Provider
// switches and URL resolution run as tea.Cmd functions so the UI never blocks on
// gateway requests.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with contextual
// help displayed via charmbracelet/bubbles/help.
package ui
