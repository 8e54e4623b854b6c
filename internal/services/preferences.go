package services

import (
	"context"
	"errors"
	"fmt"

	"ezfin/internal/core"
	"ezfin/internal/identity"
)

// PreferenceService keeps user preferences in identity-provider public
// metadata.
type PreferenceService struct {
	metadata   identity.MetadataStore
	invalidate func(userID string)
}

func NewPreferenceService(metadata identity.MetadataStore) *PreferenceService {
	return &PreferenceService{metadata: metadata}
}

// OnChange registers a hook called after a successful update.
func (s *PreferenceService) OnChange(fn func(userID string)) {
	s.invalidate = fn
}

// Get returns the stored preferences. Anonymous callers, users unknown to
// the provider and malformed metadata yield defaults; other provider
// failures are returned.
func (s *PreferenceService) Get(ctx context.Context, userID string) (core.UserPreferences, error) {
	if userID == "" {
		return core.DefaultPreferences(), nil
	}
	md, err := s.metadata.PublicMetadata(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return core.DefaultPreferences(), nil
	}
	if err != nil {
		return core.UserPreferences{}, fmt.Errorf("read preferences: %w", err)
	}
	return core.PreferencesFromMetadata(md), nil
}

// Update normalizes the input over the defaults, stores the result and
// returns it.
func (s *PreferenceService) Update(ctx context.Context, userID string, in core.PreferencesInput) (core.UserPreferences, error) {
	if userID == "" {
		return core.UserPreferences{}, core.ErrUnauthorized
	}
	prefs := core.NormalizePreferences(in)
	patch := map[string]any{core.PreferencesMetadataKey: prefs.Metadata()}
	if err := s.metadata.MergePublicMetadata(ctx, userID, patch); err != nil {
		return core.UserPreferences{}, fmt.Errorf("save preferences: %w", err)
	}
	if s.invalidate != nil {
		s.invalidate(userID)
	}
	return prefs, nil
}
