package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Update represents a Telegram Update object (partial schema)
type Update struct {
	UpdateID int `json:"update_id"`
	Message  struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From struct {
			Username string `json:"username"`
		} `json:"from"`
	} `json:"message"`
}

// Reply is what a command produces: text, and optionally a PNG to upload.
type Reply struct {
	Text  string
	Photo []byte
}

// CommandHandler processes one slash command from the authorized chat.
type CommandHandler func(ctx context.Context, command string) Reply

// retryDelay is the pause after a failed poll.
var retryDelay = 5 * time.Second

// StartListener long-polls for commands until ctx is cancelled.
// It blocks, so it should be called in a goroutine.
func (c *Client) StartListener(ctx context.Context, handler CommandHandler) {
	if !c.enabled() {
		c.log.Info("Telegram Listener: Credentials missing, disabled.")
		return
	}

	authChatID, err := strconv.ParseInt(c.chatID, 10, 64)
	if err != nil {
		c.log.Errorf("Telegram Listener: invalid chat id %q: %v", c.chatID, err)
		return
	}
	offset := 0

	c.log.Info("Telegram Listener: Started")

	for {
		updates, err := c.getUpdates(ctx, offset)
		if ctx.Err() != nil {
			c.log.Info("Telegram Listener: Stopped")
			return
		}
		if err != nil {
			c.log.Warnf("Telegram Listener Error: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			c.dispatch(ctx, authChatID, update, handler)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, authChatID int64, update Update, handler CommandHandler) {
	// Access Control
	if update.Message.Chat.ID != authChatID {
		c.log.Warnf("⚠️ UNAUTHORIZED ACCESS ATTEMPT: User %s (ID: %d) tried: %s",
			update.Message.From.Username, update.Message.Chat.ID, update.Message.Text)
		// No reply, so the bot does not reveal itself
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}

	c.log.Infof("Command received: %s", text)
	reply := handler(ctx, text)
	if len(reply.Photo) > 0 {
		if err := c.SendPhoto(ctx, reply.Text, reply.Photo); err != nil {
			c.log.Errorf("Telegram photo upload failed: %v", err)
			c.Notify(ctx, "⚠️ Could not upload the chart.")
		}
		return
	}
	if reply.Text != "" {
		c.Notify(ctx, reply.Text)
	}
}

func (c *Client) getUpdates(ctx context.Context, offset int) ([]Update, error) {
	url := fmt.Sprintf("%s?offset=%d&timeout=60", c.methodURL("getUpdates"), offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var updates []Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return updates, nil
}
