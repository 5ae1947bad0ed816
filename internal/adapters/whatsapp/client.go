// Package whatsapp - клиент HTTP-шлюза для отправки сообщений WhatsApp.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"outreach-service/internal/contextkeys"
	"outreach-service/internal/core/port"
)

type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewClient(baseURL, token string, opts ...func(*Client)) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("whatsapp gateway URL is required")
	}
	c := &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func WithHTTPClient(hc *http.Client) func(*Client) {
	return func(c *Client) {
		if hc != nil {
			c.HTTPClient = hc
		}
	}
}

type sendRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

type sendResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

// Send: транспортные ошибки и 5xx возвращаются как error,
// отказ шлюза (4xx) - как SendResult{Success: false}
func (c *Client) Send(ctx context.Context, phone, text string) (port.SendResult, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "WhatsAppClient",
	})

	payload, err := json.Marshal(sendRequest{To: phone, Text: text})
	if err != nil {
		return port.SendResult{}, fmt.Errorf("failed to encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return port.SendResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		req.Header.Set("X-Trace-ID", traceID)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logger.Error("Failed to reach WhatsApp gateway", err, nil)
		return port.SendResult{}, fmt.Errorf("whatsapp gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 500 {
		err := fmt.Errorf("whatsapp gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		logger.Error("WhatsApp gateway error", err, port.Fields{"status_code": resp.StatusCode})
		return port.SendResult{}, err
	}

	var decoded sendResponse
	_ = json.Unmarshal(body, &decoded)
	if resp.StatusCode >= 300 {
		reason := decoded.Error
		if reason == "" {
			reason = fmt.Sprintf("status %d", resp.StatusCode)
		}
		logger.Warn("WhatsApp gateway rejected message", port.Fields{"status_code": resp.StatusCode, "reason": reason})
		return port.SendResult{Success: false, Error: reason}, nil
	}

	logger.Debug("Message accepted by gateway", port.Fields{"external_id": decoded.ID})
	return port.SendResult{Success: true, ExternalID: decoded.ID}, nil
}
