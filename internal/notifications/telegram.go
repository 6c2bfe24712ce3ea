package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const telegramAPIBaseURL = "https://api.telegram.org"

// Sender delivers a formatted message to a chat.
type Sender interface {
	Send(ctx context.Context, token, chatID, text string) error
}

// TelegramSender posts messages through the Bot API.
type TelegramSender struct {
	baseURL string
	client  *http.Client
}

// NewTelegramSender creates a sender with a 10 second timeout.
func NewTelegramSender() *TelegramSender {
	return &TelegramSender{
		baseURL: telegramAPIBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send calls sendMessage with HTML formatting.
func (t *TelegramSender) Send(ctx context.Context, token, chatID, text string) error {
	payload, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return fmt.Errorf("marshalling telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// The URL embeds the bot token; keep it out of logs.
		return fmt.Errorf("sending telegram message: %w", redact(err, token))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var tr telegramResponse
	_ = json.Unmarshal(body, &tr)
	if resp.StatusCode >= 300 || !tr.OK {
		if tr.Description != "" {
			return fmt.Errorf("telegram returned status %d: %s", resp.StatusCode, tr.Description)
		}
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, secret string) error {
	if secret == "" {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "***"), err: err}
}
