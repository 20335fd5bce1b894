package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// Client talks to the Telegram Bot API for a single authorized chat.
type Client struct {
	token  string
	chatID string
	apiURL string
	http   *http.Client
	log    *zap.SugaredLogger
}

// NewClient returns a client for token and chatID. An empty token or chat
// disables every call (logged once per call, never fatal).
func NewClient(token, chatID string) *Client {
	return &Client{
		token:  token,
		chatID: chatID,
		apiURL: DefaultAPIURL,
		http:   &http.Client{Timeout: 90 * time.Second},
		log:    zap.S(),
	}
}

// WithAPIURL points the client at another Bot API server (tests, local proxies).
func (c *Client) WithAPIURL(u string) *Client {
	c.apiURL = strings.TrimRight(u, "/")
	return c
}

func (c *Client) enabled() bool {
	return c.token != "" && c.chatID != ""
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.apiURL, c.token, method)
}

// apiResponse is the envelope of every Bot API reply.
type apiResponse struct {
	Ok          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var r apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", resp.Status, err)
	}
	if !r.Ok {
		return nil, fmt.Errorf("telegram API error: %s (code %d)", r.Description, r.ErrorCode)
	}
	return r.Result, nil
}

// Notify sends a Markdown message to the configured chat.
func (c *Client) Notify(ctx context.Context, text string) {
	if !c.enabled() {
		c.log.Warn("Telegram credentials missing, skipping notification")
		return
	}

	payload := map[string]string{
		"chat_id":    c.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	c.log.Debugf("Telegram Notify: %s", text)

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendMessage"), bytes.NewReader(body))
	if err != nil {
		c.log.Errorf("Telegram request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := c.do(req); err != nil {
		c.log.Errorf("Telegram Alert Failed: %v", err)
	}
}

// SendPhoto uploads a PNG image with an optional caption.
func (c *Client) SendPhoto(ctx context.Context, caption string, png []byte) error {
	if !c.enabled() {
		return fmt.Errorf("telegram credentials missing")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("chat_id", c.chatID)
	if caption != "" {
		_ = mw.WriteField("caption", caption)
	}
	part, err := mw.CreateFormFile("photo", "income.png")
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, bytes.NewReader(png)); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendPhoto"), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	_, err = c.do(req)
	return err
}
