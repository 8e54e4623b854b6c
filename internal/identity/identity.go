// Package identity talks to the external identity provider: it resolves
// profiles and stores per-user public metadata.
package identity

import (
	"context"
	"strings"
)

// MetadataStore reads and merges a user's public metadata. Merge replaces
// the given top-level keys and leaves the others untouched.
type MetadataStore interface {
	PublicMetadata(ctx context.Context, userID string) (map[string]any, error)
	MergePublicMetadata(ctx context.Context, userID string, patch map[string]any) error
}

type ProfileReader interface {
	Profile(ctx context.Context, userID string) (Profile, error)
}

// Provider is the full capability set the services need.
type Provider interface {
	MetadataStore
	ProfileReader
}

type Profile struct {
	ID        string
	FirstName string
	Username  string
	Emails    []string
}

// DisplayName picks the first non-empty of first name, username and primary
// email.
func (p Profile) DisplayName() string {
	if s := strings.TrimSpace(p.FirstName); s != "" {
		return s
	}
	if s := strings.TrimSpace(p.Username); s != "" {
		return s
	}
	if len(p.Emails) > 0 {
		return p.Emails[0]
	}
	return ""
}
