package notify

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// TelegramSink posts a message to a single chat via the Bot API. The spec
// treats the Telegram notifier as an external collaborator specified only
// at interface level (Send(text) error); this is the minimal implementation
// of that interface, not a reimplementation of the bot itself.
type TelegramSink struct {
	botToken   string
	chatID     string
	httpClient *http.Client

	// apiBase defaults to Telegram's public API; overridable so tests can
	// point Send at a local fake server.
	apiBase string
}

const telegramAPIBase = "https://api.telegram.org"

func NewTelegramSink(botToken, chatID string) *TelegramSink {
	return &TelegramSink{
		botToken:   botToken,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiBase:    telegramAPIBase,
	}
}

func (t *TelegramSink) Send(text string) error {
	base := t.apiBase
	if base == "" {
		base = telegramAPIBase
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", base, t.botToken)
	form := url.Values{
		"chat_id": {t.chatID},
		"text":    {text},
	}
	resp, err := t.httpClient.PostForm(endpoint, form)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram api returned status %d", resp.StatusCode)
	}
	return nil
}
