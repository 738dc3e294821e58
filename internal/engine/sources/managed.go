package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anatolykoptev/go_quiz/internal/engine/acquire"
)

// ManagedService calls the internal transcript microservice:
// POST {BaseURL}/api/transcript with a shared-secret header.
type ManagedService struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

var _ acquire.Strategy = (*ManagedService)(nil)

type managedReq struct {
	VideoID string `json:"videoId"`
}

type managedResp struct {
	Success    bool   `json:"success"`
	Transcript string `json:"transcript"`
	Error      string `json:"error,omitempty"`
}

func (m *ManagedService) Name() string           { return "managed" }
func (m *ManagedService) Timeout() time.Duration { return 15 * time.Second }

func (m *ManagedService) Attempt(ctx context.Context, videoID string) (acquire.Outcome, error) {
	if m.BaseURL == "" {
		return acquire.Outcome{}, errors.New("transcript service not configured")
	}
	payload, err := json.Marshal(managedReq{VideoID: videoID})
	if err != nil {
		return acquire.Outcome{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(m.BaseURL, "/")+"/api/transcript", bytes.NewReader(payload))
	if err != nil {
		return acquire.Outcome{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", m.APIKey)

	body, err := doRequest(m.Client, req)
	if err != nil {
		return acquire.Outcome{}, fmt.Errorf("transcript service: %w", err)
	}

	var resp managedResp
	if err := json.Unmarshal(body, &resp); err != nil {
		return acquire.Outcome{}, fmt.Errorf("decode transcript service response: %w", err)
	}
	if !resp.Success {
		if resp.Error != "" {
			return acquire.Outcome{}, fmt.Errorf("transcript service: %s", resp.Error)
		}
		return acquire.Outcome{}, errors.New("transcript service reported failure")
	}
	text := strings.TrimSpace(resp.Transcript)
	if text == "" {
		return acquire.Outcome{}, errors.New("transcript service returned no transcript")
	}
	return acquire.Outcome{Text: text, Authoritative: true}, nil
}
