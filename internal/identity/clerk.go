package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/user"

	"ezfin/internal/core"
)

// Clerk reads profiles and public metadata through the Clerk backend API.
type Clerk struct {
	users *user.Client
}

var _ Provider = (*Clerk)(nil)

// NewClerk returns a provider bound to baseURL and authenticated with the
// secret key.
func NewClerk(_ context.Context, baseURL, secretKey string) *Clerk {
	cfg := &clerk.ClientConfig{}
	cfg.Key = clerk.String(secretKey)
	cfg.URL = clerk.String(strings.TrimRight(baseURL, "/"))
	cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	return &Clerk{users: user.NewClient(cfg)}
}

func (c *Clerk) Profile(ctx context.Context, userID string) (Profile, error) {
	u, err := c.users.Get(ctx, userID)
	if err != nil {
		return Profile{}, clerkError("get user", err)
	}
	p := Profile{ID: u.ID}
	if u.FirstName != nil {
		p.FirstName = *u.FirstName
	}
	if u.Username != nil {
		p.Username = *u.Username
	}
	for _, e := range u.EmailAddresses {
		if e != nil {
			p.Emails = append(p.Emails, e.EmailAddress)
		}
	}
	return p, nil
}

func (c *Clerk) PublicMetadata(ctx context.Context, userID string) (map[string]any, error) {
	u, err := c.users.Get(ctx, userID)
	if err != nil {
		return nil, clerkError("get user", err)
	}
	if len(u.PublicMetadata) == 0 {
		return map[string]any{}, nil
	}
	var md map[string]any
	if err := json.Unmarshal(u.PublicMetadata, &md); err != nil {
		return nil, fmt.Errorf("decode public metadata: %w", err)
	}
	return md, nil
}

// MergePublicMetadata relies on the provider's merge semantics: top-level
// keys in patch replace existing ones, others are kept.
func (c *Clerk) MergePublicMetadata(ctx context.Context, userID string, patch map[string]any) error {
	raw, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	md := json.RawMessage(raw)
	if _, err := c.users.UpdateMetadata(ctx, userID, &user.UpdateMetadataParams{PublicMetadata: &md}); err != nil {
		return clerkError("update metadata", err)
	}
	return nil
}

// clerkError maps a missing user to ErrNotFound and keeps the provider's
// first message otherwise.
func clerkError(op string, err error) error {
	var apiErr *clerk.APIErrorResponse
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("identity provider %s: %w", op, err)
	}
	if apiErr.HTTPStatusCode == http.StatusNotFound {
		return core.ErrNotFound
	}
	if len(apiErr.Errors) > 0 {
		return fmt.Errorf("identity provider %s returned %d: %s", op, apiErr.HTTPStatusCode, apiErr.Errors[0].Message)
	}
	return fmt.Errorf("identity provider %s returned %d", op, apiErr.HTTPStatusCode)
}
