/**
 * @description
 * This file implements the Farcaster identity-lookup adapter. It wraps the
 * Neynar client and normalizes every outcome into a LookupResult, so callers
 * never see a raised error.
 */

package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/megabyte0x/accountable/internal/domain"
	"github.com/megabyte0x/accountable/pkg/neynarclient"
)

// FarcasterClient is the social-graph collaborator the lookup adapter calls.
type FarcasterClient interface {
	LookupUserByUsername(ctx context.Context, username string) (*neynarclient.User, error)
}

// Lookup resolves usernames against the Farcaster social graph.
type Lookup struct {
	client FarcasterClient
	logger *slog.Logger
}

// NewLookup creates a lookup adapter. The client may be nil when no API key is
// configured; every query then resolves to a structured failure.
func NewLookup(client FarcasterClient, logger *slog.Logger) Lookup {
	return Lookup{client: client, logger: logger}
}

// SearchUser resolves a username to a Farcaster profile. Empty or whitespace
// input short-circuits to "no match" without a network call. A no-match and an
// upstream failure look the same to the caller: no user, optionally a message.
func (l Lookup) SearchUser(ctx context.Context, query string) domain.LookupResult {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return domain.LookupResult{}
	}

	if l.client == nil {
		return domain.LookupResult{Message: "Farcaster lookup is not configured"}
	}

	user, err := l.client.LookupUserByUsername(ctx, trimmed)
	if err != nil {
		if !errors.Is(err, neynarclient.ErrUserNotFound) {
			l.logger.Warn("farcaster lookup failed", "username", trimmed, "error", err)
		}
		return domain.LookupResult{Message: "Failed to search Farcaster users"}
	}

	return domain.LookupResult{
		User: &domain.FarcasterUser{
			FID:           user.FID,
			Username:      user.Username,
			DisplayName:   user.DisplayName,
			AvatarURL:     user.PfpURL,
			WalletAddress: user.PrimaryEthAddress(),
		},
	}
}
