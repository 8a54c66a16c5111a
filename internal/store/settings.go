package store

// Well-known settings keys. Credential blobs are keyed per provider so a
// provider never sees another backend's secrets.
const (
	keyQQMusicCredential = "qqmusic_credential"
	keyNeteaseSession    = "netease_session"
	keyMainProviderID    = "main_provider_id"
	keyFallbackProviders = "fallback_provider_ids"
	keyFrontendSettings  = "frontend_settings"
)

// QQMusicCredential returns the stored QQ Music cookie map, or nil when absent.
func (s *Store) QQMusicCredential() (map[string]string, error) {
	cred := make(map[string]string)
	ok, err := s.Get(keyQQMusicCredential, &cred)
	if err != nil || !ok {
		return nil, err
	}
	return cred, nil
}

// SetQQMusicCredential merges the given cookie fields into the stored credential.
func (s *Store) SetQQMusicCredential(cred map[string]string) (map[string]string, error) {
	partial := make(map[string]any, len(cred))
	for k, v := range cred {
		partial[k] = v
	}

	merged, err := s.MergeMap(keyQQMusicCredential, partial)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(merged))
	for k, v := range merged {
		if sv, ok := v.(string); ok {
			out[k] = sv
		}
	}
	return out, nil
}

// DeleteQQMusicCredential removes the stored QQ Music credential.
func (s *Store) DeleteQQMusicCredential() (bool, error) {
	return s.Delete(keyQQMusicCredential)
}

// NeteaseSession returns the stored Netease session cookie, or "" when absent.
func (s *Store) NeteaseSession() (string, error) {
	var session string
	if _, err := s.Get(keyNeteaseSession, &session); err != nil {
		return "", err
	}
	return session, nil
}

// SetNeteaseSession stores the Netease session cookie.
func (s *Store) SetNeteaseSession(session string) error {
	return s.Set(keyNeteaseSession, session)
}

// DeleteNeteaseSession removes the stored Netease session.
func (s *Store) DeleteNeteaseSession() (bool, error) {
	return s.Delete(keyNeteaseSession)
}

// MainProviderID returns the configured main provider id, or "" when unset.
func (s *Store) MainProviderID() (string, error) {
	var id string
	if _, err := s.Get(keyMainProviderID, &id); err != nil {
		return "", err
	}
	return id, nil
}

// SetMainProviderID stores the main provider id.
func (s *Store) SetMainProviderID(id string) error {
	return s.Set(keyMainProviderID, id)
}

// DeleteMainProviderID clears the main provider selection.
func (s *Store) DeleteMainProviderID() (bool, error) {
	return s.Delete(keyMainProviderID)
}

// FallbackProviderIDs returns the configured fallback provider ids in order.
// Entries that are not strings are discarded on read.
func (s *Store) FallbackProviderIDs() ([]string, error) {
	var raw []any
	if _, err := s.Get(keyFallbackProviders, &raw); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// SetFallbackProviderIDs stores the fallback provider order, dropping empty
// entries and duplicates while preserving first-seen order.
func (s *Store) SetFallbackProviderIDs(ids []string) ([]string, error) {
	seen := make(map[string]struct{}, len(ids))
	deduped := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}

	if err := s.Set(keyFallbackProviders, deduped); err != nil {
		return nil, err
	}
	return deduped, nil
}

// DeleteFallbackProviderIDs clears the fallback provider order.
func (s *Store) DeleteFallbackProviderIDs() (bool, error) {
	return s.Delete(keyFallbackProviders)
}

// FrontendSettings returns the stored frontend settings blob (possibly empty).
func (s *Store) FrontendSettings() (map[string]any, error) {
	settings := make(map[string]any)
	if _, err := s.Get(keyFrontendSettings, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// UpdateFrontendSettings merges updates into the stored frontend settings.
func (s *Store) UpdateFrontendSettings(updates map[string]any) (map[string]any, error) {
	return s.MergeMap(keyFrontendSettings, updates)
}

// DeleteFrontendSettings removes the stored frontend settings.
func (s *Store) DeleteFrontendSettings() (bool, error) {
	return s.Delete(keyFrontendSettings)
}
