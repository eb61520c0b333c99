package neynarclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLookupUserByUsername(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/farcaster/user/by_username" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if r.URL.Query().Get("username") != "megabyte" {
			t.Errorf("unexpected username %q", r.URL.Query().Get("username"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"user": {
				"fid": 14582,
				"username": "megabyte",
				"display_name": "Megabyte",
				"pfp_url": "https://img/avatar.png",
				"verified_addresses": {
					"eth_addresses": ["0xaaa", "0xbbb"],
					"primary": {"eth_address": "0xbbb"}
				}
			}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	user, err := client.LookupUserByUsername(context.Background(), "megabyte")
	if err != nil {
		t.Fatalf("LookupUserByUsername returned error: %v", err)
	}

	if user.FID != 14582 || user.Username != "megabyte" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.PrimaryEthAddress() != "0xbbb" {
		t.Fatalf("expected primary address 0xbbb, got %q", user.PrimaryEthAddress())
	}
}

func TestLookupUserNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	_, err := client.LookupUserByUsername(context.Background(), "nobody")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestLookupUserUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"message":"subscription expired"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	_, err := client.LookupUserByUsername(context.Background(), "someone")
	if err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
	if errors.Is(err, ErrUserNotFound) {
		t.Fatal("upstream failure must not look like a business not-found")
	}
}

func TestPrimaryEthAddressFallback(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{
			name: "primary set",
			user: User{VerifiedAddresses: VerifiedAddresses{
				EthAddresses: []string{"0xaaa"},
				Primary:      PrimaryAddress{EthAddress: "0xbbb"},
			}},
			want: "0xbbb",
		},
		{
			name: "falls back to first verified",
			user: User{VerifiedAddresses: VerifiedAddresses{EthAddresses: []string{"0xaaa"}}},
			want: "0xaaa",
		},
		{
			name: "no addresses",
			user: User{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.PrimaryEthAddress(); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
