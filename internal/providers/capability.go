package providers

// Capability identifies an optional feature a provider may support.
//
// Identifiers are stable dotted strings grouped by domain; new capabilities
// may be added but existing ones are never renamed or removed, since the
// frontend keys UI decisions off these exact values.
type Capability string

const (
	// Authentication
	CapAuthQRLogin   Capability = "auth.qr_login"
	CapAuthPassword  Capability = "auth.password"
	CapAuthAnonymous Capability = "auth.anonymous"

	// Search
	CapSearchSong     Capability = "search.song"
	CapSearchAlbum    Capability = "search.album"
	CapSearchPlaylist Capability = "search.playlist"
	CapSearchSuggest  Capability = "search.suggest"
	CapSearchHot      Capability = "search.hot"

	// Playback
	CapPlaySong            Capability = "play.song"
	CapPlayQualityLossless Capability = "play.quality.lossless"
	CapPlayQualityHigh     Capability = "play.quality.high"
	CapPlayQualityStandard Capability = "play.quality.standard"

	// Lyrics
	CapLyricBasic       Capability = "lyric.basic"
	CapLyricWordByWord  Capability = "lyric.word"
	CapLyricTranslation Capability = "lyric.translation"

	// Recommendations
	CapRecommendDaily        Capability = "recommend.daily"
	CapRecommendPersonalized Capability = "recommend.personalized"
	CapRecommendPlaylist     Capability = "recommend.playlist"

	// Playlists
	CapPlaylistUser     Capability = "playlist.user"
	CapPlaylistFavorite Capability = "playlist.favorite"
	CapPlaylistCreate   Capability = "playlist.create"
)

// CapabilitySet is an immutable membership set of capabilities.
//
// Construct one with NewCapabilitySet at provider creation and never mutate
// it afterwards; a provider's capability set is fixed for its lifetime.
type CapabilitySet struct {
	caps map[Capability]struct{}
	list []Capability
}

// NewCapabilitySet builds a set from the given capabilities, preserving the
// declaration order for listing and dropping duplicates.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	set := CapabilitySet{caps: make(map[Capability]struct{}, len(caps))}
	for _, c := range caps {
		if _, ok := set.caps[c]; ok {
			continue
		}
		set.caps[c] = struct{}{}
		set.list = append(set.list, c)
	}
	return set
}

// Has reports whether the set contains cap.
func (s CapabilitySet) Has(cap Capability) bool {
	_, ok := s.caps[cap]
	return ok
}

// List returns the capabilities in declaration order as strings.
func (s CapabilitySet) List() []string {
	out := make([]string, len(s.list))
	for i, c := range s.list {
		out[i] = string(c)
	}
	return out
}

// Len returns the number of capabilities in the set.
func (s CapabilitySet) Len() int {
	return len(s.list)
}
