package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/streamwatch/streamwatch/internal/credentials"
	"github.com/streamwatch/streamwatch/internal/models"
)

type credentialsRequest struct {
	Platform string `json:"platform"`

	// Twitch and Reddit application credentials.
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"`

	// Twitter.
	BearerToken string `json:"bearer_token,omitempty"`

	// YouTube.
	APIKey string `json:"api_key,omitempty"`

	// Sentiment analyzer.
	OpenAIKey string `json:"openai_key,omitempty"`
}

// CredentialsHandler handles POST /api/credentials and
// DELETE /api/credentials/{platform}. Credentials are write-only: the
// response never echoes a secret back.
func (h *Handler) CredentialsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.setCredentials(w, r)
	case http.MethodDelete:
		h.removeCredentials(w, r)
	case http.MethodGet:
		h.credentialStatus(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) setCredentials(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.OpenAIKey != "" {
		h.sess.Credentials.SetOpenAIKey(req.OpenAIKey)
		if req.Platform == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}

	platform, err := models.ParsePlatform(req.Platform)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var bundle credentials.Bundle
	switch platform {
	case models.PlatformTwitch:
		if req.ClientID == "" || req.ClientSecret == "" {
			h.writeError(w, http.StatusBadRequest, "twitch requires client_id and client_secret")
			return
		}
		bundle = credentials.Twitch{ClientID: req.ClientID, ClientSecret: req.ClientSecret}
	case models.PlatformTwitter:
		if req.BearerToken == "" {
			h.writeError(w, http.StatusBadRequest, "twitter requires bearer_token")
			return
		}
		bundle = credentials.Twitter{BearerToken: req.BearerToken}
	case models.PlatformYouTube:
		if req.APIKey == "" {
			h.writeError(w, http.StatusBadRequest, "youtube requires api_key")
			return
		}
		bundle = credentials.YouTube{APIKey: req.APIKey}
	case models.PlatformReddit:
		if req.ClientID == "" || req.ClientSecret == "" {
			h.writeError(w, http.StatusBadRequest, "reddit requires client_id and client_secret")
			return
		}
		bundle = credentials.Reddit{
			ClientID:     req.ClientID,
			ClientSecret: req.ClientSecret,
			UserAgent:    req.UserAgent,
		}
	}

	h.sess.Credentials.Set(bundle)
	h.logger.Info("credentials updated", "platform", platform)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeCredentials(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// api / credentials / platform
	if len(parts) < 3 {
		h.writeError(w, http.StatusBadRequest, "platform required")
		return
	}
	platform, err := models.ParsePlatform(parts[2])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.sess.Credentials.Remove(platform)
	h.logger.Info("credentials removed", "platform", platform)
	w.WriteHeader(http.StatusNoContent)
}

// credentialStatus reports which platforms have credentials configured,
// without revealing them.
func (h *Handler) credentialStatus(w http.ResponseWriter, r *http.Request) {
	configured := make(map[string]bool, len(models.Platforms()))
	for _, p := range models.Platforms() {
		_, ok := h.sess.Credentials.Get(p)
		configured[string(p)] = ok
	}
	_, hasOpenAI := h.sess.Credentials.OpenAIKey()

	h.writeJSON(w, http.StatusOK, map[string]any{
		"platforms": configured,
		"openai":    hasOpenAI,
	})
}
