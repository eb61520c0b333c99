/**
 * @description
 * This file serves the frame discovery boundary: the Farcaster manifest at
 * /.well-known/farcaster.json, the embed metadata descriptor the host uses to
 * render a preview card, and the frame client configuration (network mode and
 * contract address). Everything here is assembled from configuration exactly
 * as provided; nothing is computed dynamically.
 */

package api

import (
	"net/http"

	"github.com/megabyte0x/accountable/internal/config"
)

// accountAssociation is the signed domain-ownership block of the manifest.
// Header, payload and signature are base64url-encoded JSON, passed through
// verbatim from configuration.
type accountAssociation struct {
	Header    string `json:"header"`
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

// frameDescriptor is the frame block of the manifest.
type frameDescriptor struct {
	Version               string `json:"version"`
	Name                  string `json:"name"`
	IconURL               string `json:"iconUrl"`
	HomeURL               string `json:"homeUrl"`
	ImageURL              string `json:"imageUrl"`
	ButtonTitle           string `json:"buttonTitle"`
	SplashImageURL        string `json:"splashImageUrl"`
	SplashBackgroundColor string `json:"splashBackgroundColor"`
	WebhookURL            string `json:"webhookUrl"`
}

type frameManifest struct {
	AccountAssociation accountAssociation `json:"accountAssociation"`
	Frame              frameDescriptor    `json:"frame"`
}

// embedButtonAction describes what happens when the preview card button is
// pressed: the host launches the frame.
type embedButtonAction struct {
	Type                  string `json:"type"`
	Name                  string `json:"name"`
	URL                   string `json:"url"`
	SplashImageURL        string `json:"splashImageUrl"`
	SplashBackgroundColor string `json:"splashBackgroundColor"`
}

type embedButton struct {
	Title  string            `json:"title"`
	Action embedButtonAction `json:"action"`
}

// frameEmbed is the serialized descriptor embedding hosts read from page
// metadata to render a rich preview card.
type frameEmbed struct {
	Version  string      `json:"version"`
	ImageURL string      `json:"imageUrl"`
	Button   embedButton `json:"button"`
}

func manifestFromConfig(cfg config.Config) frameManifest {
	return frameManifest{
		AccountAssociation: accountAssociation{
			Header:    cfg.AccountAssociationHeader,
			Payload:   cfg.AccountAssociationPayload,
			Signature: cfg.AccountAssociationSignature,
		},
		Frame: frameDescriptor{
			Version:               cfg.FrameVersion,
			Name:                  cfg.FrameName,
			IconURL:               cfg.FrameIconURL,
			HomeURL:               cfg.FrameHomeURL,
			ImageURL:              cfg.FrameImageURL,
			ButtonTitle:           cfg.FrameButtonTitle,
			SplashImageURL:        cfg.FrameSplashImageURL,
			SplashBackgroundColor: cfg.FrameSplashBackgroundColor,
			WebhookURL:            cfg.FrameWebhookURL,
		},
	}
}

func embedFromConfig(cfg config.Config) frameEmbed {
	return frameEmbed{
		Version:  "next",
		ImageURL: cfg.FrameImageURL,
		Button: embedButton{
			Title: cfg.FrameButtonTitle,
			Action: embedButtonAction{
				Type:                  "launch_frame",
				Name:                  cfg.FrameName,
				URL:                   cfg.FrameHomeURL,
				SplashImageURL:        cfg.FrameSplashImageURL,
				SplashBackgroundColor: cfg.FrameSplashBackgroundColor,
			},
		},
	}
}

// handleFrameManifest serves the frame discovery document.
func (h *Handler) handleFrameManifest(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, manifestFromConfig(h.cfg))
}

// handleFrameEmbed serves the embed metadata descriptor.
func (h *Handler) handleFrameEmbed(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, embedFromConfig(h.cfg))
}

// handleFrameConfig exposes the network mode and contract address the frame
// client should submit transactions against.
func (h *Handler) handleFrameConfig(w http.ResponseWriter, r *http.Request) {
	network := "mainnet"
	if h.cfg.IsDevelopment() {
		network = "testnet"
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"network":          network,
		"contract_address": h.cfg.ContractAddress(),
	})
}
