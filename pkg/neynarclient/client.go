/**
 * @description
 * This package provides a client for the Neynar Farcaster API. It encapsulates
 * the logic for making authenticated HTTP requests, decoding response bodies,
 * and managing errors from the API.
 *
 * @dependencies
 * - context, encoding/json, fmt, io, net/http, net/url, time: Standard Go libraries.
 *
 * @notes
 * - The client includes a default HTTP client with a timeout to prevent
 *   requests from hanging indefinitely.
 * - Error handling is designed to provide context, returning a formatted error
 *   string that includes the status code and response body for easier debugging.
 */

package neynarclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrUserNotFound is returned when no Farcaster account matches the username.
var ErrUserNotFound = errors.New("farcaster user not found")

// Client is a client for interacting with the Neynar API.
type Client struct {
	BaseURL    string
	APIKey     string
	httpClient *http.Client
}

// NewClient creates a new Neynar API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// User is the profile shape returned by the lookup endpoint.
type User struct {
	FID               int64             `json:"fid"`
	Username          string            `json:"username"`
	DisplayName       string            `json:"display_name"`
	PfpURL            string            `json:"pfp_url"`
	VerifiedAddresses VerifiedAddresses `json:"verified_addresses"`
}

// VerifiedAddresses carries the wallet addresses a user has verified.
type VerifiedAddresses struct {
	EthAddresses []string       `json:"eth_addresses"`
	Primary      PrimaryAddress `json:"primary"`
}

// PrimaryAddress is the address the user marked primary per chain.
type PrimaryAddress struct {
	EthAddress string `json:"eth_address"`
}

// PrimaryEthAddress returns the primary verified address, falling back to the
// first verified one when no primary is set.
func (u User) PrimaryEthAddress() string {
	if u.VerifiedAddresses.Primary.EthAddress != "" {
		return u.VerifiedAddresses.Primary.EthAddress
	}
	if len(u.VerifiedAddresses.EthAddresses) > 0 {
		return u.VerifiedAddresses.EthAddresses[0]
	}
	return ""
}

type lookupResponse struct {
	User User `json:"user"`
}

// LookupUserByUsername resolves a Farcaster username to a profile.
func (c *Client) LookupUserByUsername(ctx context.Context, username string) (*User, error) {
	endpoint := fmt.Sprintf("%s/v2/farcaster/user/by_username?username=%s", c.BaseURL, url.QueryEscape(username))

	httpReq, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-api-key", c.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to Neynar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUserNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp)
	}

	var lookupResp lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lookupResp); err != nil {
		return nil, fmt.Errorf("failed to decode successful response: %w", err)
	}

	return &lookupResp.User, nil
}

// handleErrorResponse reads an error response body and formats it into an error.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("neynar api error: status %d (failed to read body)", resp.StatusCode)
	}
	return fmt.Errorf("neynar api error: status %d, body: %s", resp.StatusCode, string(body))
}
