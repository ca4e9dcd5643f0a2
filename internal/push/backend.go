package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrAssociation reports that the backend did not accept the token.
var ErrAssociation = errors.New("push: token association rejected")

// AssociatePath is the backend endpoint that links a token to a user.
const AssociatePath = "/api/notifications/token"

const defaultBackendTimeout = 15 * time.Second

// BackendClient associates delivery tokens with users on the backend service.
type BackendClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewBackendClient constructs a client for baseURL (e.g. "https://api.example.com").
func NewBackendClient(baseURL string, httpClient *http.Client) *BackendClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultBackendTimeout}
	}
	return &BackendClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type associateRequest struct {
	FCMToken string `json:"fcmToken"`
}

type associateResponse struct {
	Success bool `json:"success"`
}

// Associate posts token on behalf of the session identified by authToken.
func (c *BackendClient) Associate(ctx context.Context, authToken, token string) error {
	if strings.TrimSpace(authToken) == "" {
		return fmt.Errorf("%w: missing session token", ErrAssociation)
	}

	body, err := json.Marshal(associateRequest{FCMToken: token})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+AssociatePath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("push: build association request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push: send association request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status=%d body=%s", ErrAssociation, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded associateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrAssociation, err)
	}
	if !decoded.Success {
		return ErrAssociation
	}
	return nil
}
