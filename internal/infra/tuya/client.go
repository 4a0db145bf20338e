// Package tuya is the device transport: attribute writes and status
// reads against the Tuya cloud API. The radio-level protocol behind the
// cloud is opaque to the rest of the system.
package tuya

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"delta-assistant/internal/device"
	"delta-assistant/internal/domain"
	"delta-assistant/internal/infra"
)

type Client struct {
	clientID   string
	secret     string
	baseURL    string
	httpClient *http.Client

	mu       sync.RWMutex
	token    string
	expireAt time.Time
}

func NewClient(clientID, secret, region string) *Client {
	baseURL := "https://openapi.tuyaus.com"
	switch strings.ToLower(region) {
	case "eu":
		baseURL = "https://openapi.tuyaeu.com"
	case "cn":
		baseURL = "https://openapi.tuyacn.com"
	case "in":
		baseURL = "https://openapi.tuyain.com"
	}

	return NewClientWithURL(clientID, secret, baseURL)
}

func NewClientWithURL(clientID, secret, baseURL string) *Client {
	return &Client{
		clientID:   clientID,
		secret:     secret,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Dial returns the write handle for one device. The handle is cheap; it
// shares this client's HTTP connection pool and token.
func (c *Client) Dial(_ context.Context, dev *domain.Device) (device.Transport, error) {
	if dev.ID == "" {
		return nil, fmt.Errorf("device %s has no configured id", dev.Name)
	}
	return &handle{client: c, deviceID: dev.ID}, nil
}

type handle struct {
	client   *Client
	deviceID string
}

// WriteAttribute issues one data-point write. Fire and forget apart
// from the transport error.
func (h *handle) WriteAttribute(ctx context.Context, dps int, value any) error {
	body, _ := json.Marshal(map[string]any{
		"commands": []map[string]any{
			{"code": strconv.Itoa(dps), "value": value},
		},
	})

	path := fmt.Sprintf("/v1.0/iot-03/devices/%s/commands", h.deviceID)
	resp, err := h.client.doRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return fmt.Errorf("writing attribute %d: %w", dps, err)
	}

	var result struct {
		Success bool   `json:"success"`
		Msg     string `json:"msg"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("tuya error: %s", result.Msg)
	}
	return nil
}

// Status dumps the device's current data points.
func (h *handle) Status(ctx context.Context) (map[string]any, error) {
	path := fmt.Sprintf("/v1.0/iot-03/devices/%s/status", h.deviceID)
	resp, err := h.client.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching status: %w", err)
	}

	var result struct {
		Success bool   `json:"success"`
		Msg     string `json:"msg"`
		Result  []struct {
			Code  string `json:"code"`
			Value any    `json:"value"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("parsing status: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("tuya error: %s", result.Msg)
	}

	status := make(map[string]any, len(result.Result))
	for _, dp := range result.Result {
		status[dp.Code] = dp.Value
	}
	return status, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	var respBody []byte
	retryErr := infra.WithRetry(ctx, infra.DefaultRetryConfig(), func() error {
		timestamp := fmt.Sprintf("%d", time.Now().UnixMilli())

		var bodyReader io.Reader
		if body != nil {
			bodyReader = strings.NewReader(string(body))
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		sign := c.calcSign(timestamp, c.token, method, path, body)

		req.Header.Set("client_id", c.clientID)
		req.Header.Set("access_token", c.token)
		req.Header.Set("sign", sign)
		req.Header.Set("t", timestamp)
		req.Header.Set("sign_method", "HMAC-SHA256")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if infra.IsRetryableHTTPStatus(resp.StatusCode) {
			return fmt.Errorf("tuya API error %d (retryable): %s", resp.StatusCode, string(respBody))
		}

		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}

	return respBody, nil
}

func (c *Client) ensureToken(ctx context.Context) error {
	c.mu.RLock()
	if c.token != "" && time.Now().Add(5*time.Minute).Before(c.expireAt) {
		c.mu.RUnlock()
		return nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Add(5*time.Minute).Before(c.expireAt) {
		return nil
	}

	timestamp := fmt.Sprintf("%d", time.Now().UnixMilli())
	path := "/v1.0/token?grant_type=1"
	sign := c.calcSign(timestamp, "", http.MethodGet, path, nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating token request: %w", err)
	}

	req.Header.Set("client_id", c.clientID)
	req.Header.Set("sign", sign)
	req.Header.Set("t", timestamp)
	req.Header.Set("sign_method", "HMAC-SHA256")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading token response: %w", err)
	}

	var tokenResp struct {
		Success bool   `json:"success"`
		Msg     string `json:"msg"`
		Result  struct {
			AccessToken string `json:"access_token"`
			ExpireTime  int64  `json:"expire_time"`
		} `json:"result"`
	}
	if err = json.Unmarshal(body, &tokenResp); err != nil {
		return fmt.Errorf("parsing token response: %w", err)
	}
	if !tokenResp.Success {
		return fmt.Errorf("token error: %s", tokenResp.Msg)
	}

	c.token = tokenResp.Result.AccessToken
	c.expireAt = time.Now().Add(time.Duration(tokenResp.Result.ExpireTime) * time.Second)

	return nil
}

func (c *Client) calcSign(timestamp, token, method, path string, body []byte) string {
	str := c.clientID + token + timestamp + c.stringToSign(method, path, body)
	h := hmac.New(sha256.New, []byte(c.secret))
	h.Write([]byte(str))
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
}

func (c *Client) stringToSign(method, path string, body []byte) string {
	bodyHash := sha256.Sum256(body)
	return method + "\n" + hex.EncodeToString(bodyHash[:]) + "\n\n" + path
}
