// Package line is the bridge to the LINE platform: it resolves access
// tokens to user identities and pushes text messages to users.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

const defaultAPIBase = "https://api.line.me"

// Client calls the LINE messaging and OAuth APIs
type Client struct {
	httpClient   *http.Client
	channelToken string
	apiBase      string
}

// NewClient creates a LINE client using the channel access token
func NewClient(channelToken string) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		channelToken: channelToken,
		apiBase:      defaultAPIBase,
	}
}

// VerifyToken validates a LIFF access token and resolves the profile
// behind it. It satisfies the middleware.Verifier interface.
func (c *Client) VerifyToken(ctx context.Context, accessToken string) (string, string, error) {
	verifyURL := c.apiBase + "/oauth2/v2.1/verify?access_token=" + url.QueryEscape(accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, verifyURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create verify request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("token verification failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", "", fmt.Errorf("invalid token: %s", string(body))
	}

	profileReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/v2/profile", nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create profile request: %w", err)
	}
	profileReq.Header.Set("Authorization", "Bearer "+accessToken)

	profileResp, err := c.httpClient.Do(profileReq)
	if err != nil {
		return "", "", fmt.Errorf("profile fetch failed: %w", err)
	}
	defer profileResp.Body.Close()

	if profileResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(profileResp.Body)
		return "", "", fmt.Errorf("failed to get profile: %s", string(body))
	}

	var profile struct {
		UserID      string `json:"userId"`
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(profileResp.Body).Decode(&profile); err != nil {
		return "", "", fmt.Errorf("failed to decode profile: %w", err)
	}

	return profile.UserID, profile.DisplayName, nil
}

// PushMessage sends a text message to a single user. A fresh retry key is
// attached so the LINE API deduplicates retried deliveries.
func (c *Client) PushMessage(ctx context.Context, userID, text string) error {
	payload := map[string]interface{}{
		"to": userID,
		"messages": []map[string]interface{}{
			{"type": "text", "text": text},
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/v2/bot/message/push", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.channelToken)
	req.Header.Set("X-Line-Retry-Key", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("LINE API error: %s", string(body))
	}

	return nil
}
